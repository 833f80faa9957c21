package httpapi

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/AtharvDutare/Scan-Crop/internal/auth"
	"github.com/AtharvDutare/Scan-Crop/internal/catalog"
	"github.com/AtharvDutare/Scan-Crop/internal/common"
	"github.com/AtharvDutare/Scan-Crop/internal/fetch"
	"github.com/AtharvDutare/Scan-Crop/internal/scan"
	"github.com/AtharvDutare/Scan-Crop/internal/weather"
)

// StatusFor maps an error returned by a handler to its HTTP status code.
func StatusFor(err error) int {
	var fe *fiber.Error
	var ve common.ValidationErrors

	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.As(err, &ve),
		errors.Is(err, weather.ErrEmptyQuery),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, catalog.ErrUnknownCropType):
		return fiber.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrSessionNotFound),
		errors.Is(err, auth.ErrSessionExpired):
		return fiber.StatusUnauthorized
	case errors.Is(err, auth.ErrVerificationNotFound),
		errors.Is(err, catalog.ErrScanNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, auth.ErrVerificationExpired):
		return fiber.StatusGone
	case errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, scan.ErrScanInProgress):
		return fiber.StatusConflict
	case errors.Is(err, fetch.ErrClosed):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler renders every handler error as {"error": true, "message": ...}.
// Internal errors are logged and their details withheld.
func ErrorHandler(logger *zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := StatusFor(err)
		message := err.Error()
		if code == fiber.StatusInternalServerError {
			logger.Error().
				Err(err).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Msg("Request failed")
			message = "internal server error"
		}

		body := fiber.Map{
			"error":   true,
			"message": message,
		}
		var ve common.ValidationErrors
		if errors.As(err, &ve) {
			body["errors"] = ve.Errors
		}
		return c.Status(code).JSON(body)
	}
}
