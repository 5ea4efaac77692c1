package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/daywindow/internal/models"
	"github.com/terraincognita07/daywindow/internal/services"
)

func (handler *Handler) GetToday(c *fiber.Ctx) error {
	loaded, err := handler.openPlanner(c, true)
	if err != nil {
		if errors.Is(err, errMissingUser) {
			return apiError(c, fiber.StatusUnauthorized, "unauthorized")
		}
		return taskErrorResponse(c, err)
	}
	return c.JSON(handler.todayPayload(loaded))
}

func (handler *Handler) todayPayload(loaded plannerContext) fiber.Map {
	planner := loaded.planner
	now := handler.clock()
	window := planner.Window()

	upcoming := make([]models.Task, 0)
	for _, task := range planner.Tasks() {
		if task.WindowDate > window.DateKey {
			upcoming = append(upcoming, task)
		}
	}

	var active any
	focusSeconds := int64(0)
	if task, ok := planner.Active(); ok {
		active = task
		focusSeconds = int64(services.FocusRemaining(task, now).Seconds())
	}

	return fiber.Map{
		"now":                     now.UTC(),
		"window":                  window,
		"window_closed":           window.Closed(now),
		"preferences":             loaded.preferences,
		"preview":                 services.PreviewWindow(loaded.preferences),
		"tasks":                   planner.WindowTasks(),
		"missed":                  planner.Missed(),
		"upcoming":                upcoming,
		"active":                  active,
		"focus_remaining_seconds": focusSeconds,
		"categories":              models.Categories(),
		"degraded":                loaded.degraded,
	}
}
