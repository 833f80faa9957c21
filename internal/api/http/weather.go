package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/AtharvDutare/Scan-Crop/internal/result"
	"github.com/AtharvDutare/Scan-Crop/internal/weather"
)

// lookupWeather starts a lookup and answers with the state published for it.
// The query outlives the request, so it is copied out of the request buffer.
func (h *handlers) lookupWeather(c *fiber.Ctx) error {
	if _, err := h.Weather.Lookup(utils.CopyString(c.Query("q"))); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(result.ViewOf[weather.Report](h.Weather.State()))
}

func (h *handlers) currentWeather(c *fiber.Ctx) error {
	return c.JSON(result.ViewOf[weather.Report](h.Weather.State()))
}

func (h *handlers) streamWeather(c *fiber.Ctx) error {
	return streamStates[weather.Report](c, h.Done, "state", h.Weather.Subscribe, h.Weather.State)
}
