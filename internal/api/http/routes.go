package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/AtharvDutare/Scan-Crop/internal/auth"
	"github.com/AtharvDutare/Scan-Crop/internal/catalog"
	"github.com/AtharvDutare/Scan-Crop/internal/scan"
	"github.com/AtharvDutare/Scan-Crop/internal/weather"
)

// Services are the collaborators served over HTTP.
type Services struct {
	Weather *weather.Service
	Auth    *auth.Service
	Scanner *scan.Scanner
	Catalog *catalog.Catalog
	Logger  *zerolog.Logger

	// Done ends open event streams when closed.
	Done <-chan struct{}
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, s Services) {
	h := &handlers{Services: s}
	requireUser := RequireUser(s.Auth)

	v1 := app.Group("/api/v1")

	v1.Post("/weather/lookup", h.lookupWeather)
	v1.Get("/weather", h.currentWeather)
	v1.Get("/weather/stream", h.streamWeather)

	authGroup := v1.Group("/auth")
	authGroup.Post("/signup", h.signUp)
	authGroup.Post("/signin", h.signIn)
	authGroup.Post("/verify", h.verifyEmail)
	authGroup.Post("/signout", requireUser, h.signOut)
	authGroup.Get("/me", requireUser, h.me)
	authGroup.Post("/verification", requireUser, h.sendVerification)
	authGroup.Get("/events", requireUser, h.streamAuthEvents)

	v1.Get("/scans", h.listScans)
	v1.Post("/scans", h.startScan)
	v1.Get("/scans/current", h.currentScan)
	v1.Get("/scans/:id", h.scanByID)

	v1.Get("/home/recent-scans", h.recentScans)
	v1.Get("/alerts", h.alerts)

	v1.Get("/market/posts", h.marketPosts)
	v1.Post("/market/posts", requireUser, h.createPost)
}

type handlers struct {
	Services
}
