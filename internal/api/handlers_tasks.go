package api

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/daywindow/internal/models"
	"github.com/terraincognita07/daywindow/internal/services"
)

func (handler *Handler) CreateTask(c *fiber.Ctx) error {
	input := taskCreateInput{}
	if err := parseBody(c, &input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	return handler.withPlanner(c, func(loaded plannerContext) error {
		task, err := loaded.planner.Add(c.UserContext(), services.TaskDraft{
			TaskDetails: services.TaskDetails{
				Title:    input.Title,
				Notes:    input.Notes,
				Category: input.Category,
			},
			Start:           input.StartTime,
			DurationMinutes: input.DurationMinutes,
		})
		if err != nil {
			return taskErrorResponse(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"task": task})
	})
}

func (handler *Handler) UpdateTask(c *fiber.Ctx) error {
	input := taskUpdateInput{}
	if err := parseBody(c, &input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	return handler.withPlanner(c, func(loaded plannerContext) error {
		current, err := loaded.planner.Task(c.Params("id"))
		if err != nil {
			return taskErrorResponse(c, err)
		}
		details := services.TaskDetails{Title: current.Title, Notes: current.Notes, Category: current.Category}
		if input.Title != nil {
			details.Title = *input.Title
		}
		if input.Notes != nil {
			details.Notes = *input.Notes
		}
		if input.Category != nil {
			details.Category = *input.Category
		}

		task, err := loaded.planner.Update(c.UserContext(), current.ID, details)
		if err != nil {
			return taskErrorResponse(c, err)
		}
		return c.JSON(fiber.Map{"task": task})
	})
}

func (handler *Handler) DeleteTask(c *fiber.Ctx) error {
	return handler.withPlanner(c, func(loaded plannerContext) error {
		if err := loaded.planner.Remove(c.UserContext(), c.Params("id")); err != nil {
			return taskErrorResponse(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}

func (handler *Handler) ScheduleTask(c *fiber.Ctx) error {
	input := scheduleInput{}
	if err := parseBody(c, &input); err != nil || input.StartTime == nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	return handler.taskMutation(c, func(loaded plannerContext, taskID string) (models.Task, error) {
		return loaded.planner.Schedule(c.UserContext(), taskID, *input.StartTime, input.DurationMinutes)
	})
}

func (handler *Handler) BumpTask(c *fiber.Ctx) error {
	input := bumpInput{}
	if err := parseBody(c, &input); err != nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	return handler.taskMutation(c, func(loaded plannerContext, taskID string) (models.Task, error) {
		return loaded.planner.Bump(c.UserContext(), taskID, input.DeltaMinutes)
	})
}

func (handler *Handler) ExtendTask(c *fiber.Ctx) error {
	input := extendInput{}
	if err := parseBody(c, &input); err != nil || input.EndTime == nil {
		return apiError(c, fiber.StatusBadRequest, "invalid input")
	}
	return handler.withPlanner(c, func(loaded plannerContext) error {
		task, shifts, err := loaded.planner.Extend(c.UserContext(), c.Params("id"), *input.EndTime)
		if err != nil {
			return taskErrorResponse(c, err)
		}
		if shifts == nil {
			shifts = []services.RippleShift{}
		}
		return c.JSON(fiber.Map{"task": task, "shifted": shifts})
	})
}

func (handler *Handler) ClearTaskTime(c *fiber.Ctx) error {
	return handler.taskMutation(c, func(loaded plannerContext, taskID string) (models.Task, error) {
		return loaded.planner.ClearTime(c.UserContext(), taskID)
	})
}

// CompleteTask answers with the day's reward card along with the task.
func (handler *Handler) CompleteTask(c *fiber.Ctx) error {
	return handler.withPlanner(c, func(loaded plannerContext) error {
		task, err := loaded.planner.Complete(c.UserContext(), c.Params("id"))
		if err != nil {
			return taskErrorResponse(c, err)
		}

		completed := 0
		for _, candidate := range loaded.planner.WindowTasks() {
			if candidate.Completed {
				completed++
			}
		}
		deals := handler.dealsService.Today(c.UserContext(), loaded.location)
		celebration := services.BuildCelebration(handler.clock(), loaded.location, completed, deals.Deals, nil)
		return c.JSON(fiber.Map{"task": task, "celebration": celebration})
	})
}

func (handler *Handler) ReopenTask(c *fiber.Ctx) error {
	return handler.taskMutation(c, func(loaded plannerContext, taskID string) (models.Task, error) {
		return loaded.planner.Reopen(c.UserContext(), taskID)
	})
}

func (handler *Handler) DeferTask(c *fiber.Ctx) error {
	return handler.taskMutation(c, func(loaded plannerContext, taskID string) (models.Task, error) {
		return loaded.planner.Defer(c.UserContext(), taskID)
	})
}

func (handler *Handler) DeferMissedTasks(c *fiber.Ctx) error {
	return handler.withPlanner(c, func(loaded plannerContext) error {
		deferred, err := loaded.planner.DeferMissed(c.UserContext())
		if err != nil {
			return taskErrorResponse(c, err)
		}
		return c.JSON(fiber.Map{"tasks": deferred})
	})
}

func (handler *Handler) ArchiveWindow(c *fiber.Ctx) error {
	user, preferences, err := handler.loadPreferences(c)
	if err != nil {
		return taskErrorResponse(c, err)
	}
	dateKey := strings.TrimSpace(c.Params("date"))
	if _, err := services.ParseWindowDate(dateKey); err != nil {
		return taskErrorResponse(c, err)
	}

	ids, err := handler.taskService.ArchiveWindow(c.UserContext(), user.ID, services.WindowSettingsFromPreferences(preferences), dateKey)
	if err != nil {
		return taskErrorResponse(c, err)
	}
	return c.JSON(fiber.Map{"window_date": dateKey, "archived": ids})
}

func (handler *Handler) taskMutation(c *fiber.Ctx, run func(plannerContext, string) (models.Task, error)) error {
	return handler.withPlanner(c, func(loaded plannerContext) error {
		task, err := run(loaded, c.Params("id"))
		if err != nil {
			return taskErrorResponse(c, err)
		}
		return c.JSON(fiber.Map{"task": task})
	})
}
