package httpapi

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/AtharvDutare/Scan-Crop/internal/catalog"
	"github.com/AtharvDutare/Scan-Crop/internal/result"
)

func (h *handlers) listScans(c *fiber.Ctx) error {
	return c.JSON(h.Catalog.Scans())
}

func (h *handlers) startScan(c *fiber.Ctx) error {
	if _, err := h.Scanner.Start(utils.CopyString(c.Query("field"))); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(h.scanView())
}

func (h *handlers) currentScan(c *fiber.Ctx) error {
	return c.JSON(h.scanView())
}

func (h *handlers) scanByID(c *fiber.Ctx) error {
	s, err := h.Catalog.ScanByID(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(s)
}

type scanView struct {
	result.View[catalog.Scan]
	Running  bool    `json:"running"`
	Progress float64 `json:"progress"`
}

func (h *handlers) scanView() scanView {
	return scanView{
		View:     result.ViewOf[catalog.Scan](h.Scanner.State()),
		Running:  h.Scanner.Running(),
		Progress: h.Scanner.Progress(),
	}
}

func (h *handlers) recentScans(c *fiber.Ctx) error {
	return c.JSON(h.Catalog.RecentScans())
}

func (h *handlers) alerts(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)
	if limit < 0 {
		return fiber.NewError(fiber.StatusBadRequest, "limit must not be negative")
	}
	return c.JSON(h.Catalog.Alerts(limit))
}

func (h *handlers) marketPosts(c *fiber.Ctx) error {
	crop := catalog.CropType(strings.ToLower(c.Query("crop")))
	switch crop {
	case "", "all":
		crop = ""
	case catalog.CropCorn, catalog.CropSoybean, catalog.CropWheat:
	default:
		return fiber.NewError(fiber.StatusBadRequest, "unknown crop type")
	}

	return c.JSON(h.Catalog.MarketPosts(catalog.MarketFilter{
		Crop:  crop,
		Query: c.Query("q"),
	}))
}

func (h *handlers) createPost(c *fiber.Ctx) error {
	var in catalog.NewPost
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	in.SellerName = currentUser(c).Email

	post, err := h.Catalog.AddPost(in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}
