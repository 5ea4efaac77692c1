package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/daywindow/internal/models"
	"github.com/terraincognita07/daywindow/internal/services"
)

// GetDeals is public. The tz query parameter picks the weekday and defaults
// to the default preferences zone.
func (handler *Handler) GetDeals(c *fiber.Ctx) error {
	location, err := services.LoadWindowLocation(c.Query("tz", models.DefaultTimeZone))
	if err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid time zone")
	}
	return c.JSON(handler.dealsService.Today(c.UserContext(), location))
}
