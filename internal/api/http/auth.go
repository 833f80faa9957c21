package httpapi

import (
	"bufio"
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/AtharvDutare/Scan-Crop/internal/auth"
	"github.com/AtharvDutare/Scan-Crop/internal/common"
)

const (
	localUser  = "user"
	localToken = "token"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RequireUser resolves the bearer token and stores the signed-in user in
// the request locals.
func RequireUser(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := common.BearerToken(c.Get(fiber.HeaderAuthorization))
		user, err := svc.CurrentUser(c.UserContext(), token)
		if err != nil {
			return err
		}
		c.Locals(localUser, user)
		c.Locals(localToken, token)
		return c.Next()
	}
}

func currentUser(c *fiber.Ctx) auth.User {
	user, _ := c.Locals(localUser).(auth.User)
	return user
}

func (h *handlers) signUp(c *fiber.Ctx) error {
	var in credentials
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	grant, err := h.Auth.SignUp(c.UserContext(), in.Email, in.Password)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(grant)
}

func (h *handlers) signIn(c *fiber.Ctx) error {
	var in credentials
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	grant, err := h.Auth.SignIn(c.UserContext(), in.Email, in.Password)
	if err != nil {
		return err
	}
	return c.JSON(grant)
}

func (h *handlers) signOut(c *fiber.Ctx) error {
	token, _ := c.Locals(localToken).(string)
	if err := h.Auth.SignOut(c.UserContext(), token); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) me(c *fiber.Ctx) error {
	return c.JSON(currentUser(c))
}

func (h *handlers) sendVerification(c *fiber.Ctx) error {
	token, _ := c.Locals(localToken).(string)
	if err := h.Auth.SendEmailVerification(c.UserContext(), token); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status": "verification_sent",
	})
}

func (h *handlers) verifyEmail(c *fiber.Ctx) error {
	code := c.Query("code")
	if code == "" {
		return fiber.NewError(fiber.StatusBadRequest, "code query parameter is required")
	}

	user, err := h.Auth.VerifyEmail(c.UserContext(), code)
	if err != nil {
		return err
	}
	return c.JSON(user)
}

// streamAuthEvents streams the signed-in user's own auth events. The watch
// ends with the stream, on shutdown, or when the stream never starts.
func (h *handlers) streamAuthEvents(c *fiber.Ctx) error {
	userID := currentUser(c).ID
	prepareStream(c)

	ctx, cancel := context.WithCancel(context.Background())
	events := h.Auth.Watch(ctx)
	guard := newStreamGuard(h.Done, streamStartTimeout, cancel)

	own := make(chan auth.Event, streamBuffer)
	go func() {
		defer close(own)
		for ev := range events {
			if ev.User.ID != userID {
				continue
			}
			offerLatest(own, ev)
		}
	}()

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		if !guard.start() {
			return
		}

		if err := w.Flush(); err != nil {
			return
		}
		pump[auth.Event](w, h.Done, "auth", own)
	}))
	return nil
}
