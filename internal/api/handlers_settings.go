package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/daywindow/internal/models"
	"github.com/terraincognita07/daywindow/internal/services"
)

func (handler *Handler) GetSettings(c *fiber.Ctx) error {
	_, preferences, err := handler.loadPreferences(c)
	if err != nil {
		return taskErrorResponse(c, err)
	}
	return c.JSON(settingsPayload(preferences))
}

// UpdateSettings keeps the stored value for any field left out of the body.
func (handler *Handler) UpdateSettings(c *fiber.Ctx) error {
	input := settingsInput{}
	if err := parseBody(c, &input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	user, current, err := handler.loadPreferences(c)
	if err != nil {
		return taskErrorResponse(c, err)
	}

	next := services.PreferencesInput{
		WorkStartHour:     current.WorkStartHour,
		WorkDurationHours: current.WorkDurationHours,
		TimeZone:          current.TimeZone,
	}
	if input.WorkStartHour != nil {
		next.WorkStartHour = *input.WorkStartHour
	}
	if input.WorkDurationHours != nil {
		next.WorkDurationHours = *input.WorkDurationHours
	}
	if input.TimeZone != "" {
		next.TimeZone = input.TimeZone
	}

	saved, err := handler.preferencesService.Save(c.UserContext(), user.ID, next)
	if err != nil {
		if errors.Is(err, services.ErrInvalidTimeZone) {
			return apiError(c, fiber.StatusBadRequest, "invalid time zone")
		}
		return taskErrorResponse(c, err)
	}
	return c.JSON(settingsPayload(saved))
}

func settingsPayload(preferences models.UserPreferences) fiber.Map {
	return fiber.Map{
		"preferences": preferences,
		"preview":     services.PreviewWindow(preferences),
	}
}
