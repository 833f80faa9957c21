package httpapi

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// HTTPRecorder observes served requests.
type HTTPRecorder interface {
	ObserveHTTP(method, route string, status int, elapsed time.Duration)
}

// RequestLogger logs one line per request and reports it to rec, which may
// be nil. Errors are rendered here so the logged status is the one sent.
func RequestLogger(logger *zerolog.Logger, rec HTTPRecorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		elapsed := time.Since(start)
		status := c.Response().StatusCode()
		route := c.Route().Path

		ev := logger.Info()
		switch {
		case status >= fiber.StatusInternalServerError:
			ev = logger.Error()
		case status >= fiber.StatusBadRequest:
			ev = logger.Warn()
		}
		ev.Str("method", c.Method()).
			Str("path", c.Path()).
			Str("route", route).
			Int("status", status).
			Dur("latency", elapsed).
			Interface("request_id", c.Locals("requestid")).
			Msg("HTTP request")

		if rec != nil {
			rec.ObserveHTTP(c.Method(), route, status, elapsed)
		}
		return nil
	}
}
