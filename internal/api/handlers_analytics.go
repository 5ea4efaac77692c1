package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/daywindow/internal/services"
)

func (handler *Handler) GetAnalytics(c *fiber.Ctx) error {
	period, err := services.ParseAnalyticsPeriod(c.Query("period"))
	if err != nil {
		return taskErrorResponse(c, err)
	}
	user, preferences, err := handler.loadPreferences(c)
	if err != nil {
		return taskErrorResponse(c, err)
	}
	location, err := services.LoadWindowLocation(preferences.TimeZone)
	if err != nil {
		return taskErrorResponse(c, err)
	}

	report, err := handler.taskService.AnalyticsReport(c.UserContext(), user.ID, period, location)
	if err != nil {
		return taskErrorResponse(c, err)
	}
	return c.JSON(report)
}
