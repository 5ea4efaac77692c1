package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"github.com/terraincognita07/daywindow/internal/services"
)

// taskErrorResponse maps planner, scheduler and preferences errors onto
// HTTP statuses.
func taskErrorResponse(c *fiber.Ctx, err error) error {
	var conflict *services.ConflictError
	if errors.As(err, &conflict) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":               "task conflict",
			"task_id":             conflict.TaskID,
			"conflicting_task_id": conflict.ConflictingTaskID,
		})
	}

	var precondition *services.PreconditionError
	if errors.As(err, &precondition) {
		body := fiber.Map{"error": precondition.Reason.Error()}
		if precondition.TaskID != "" {
			body["task_id"] = precondition.TaskID
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(body)
	}

	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		return apiError(c, fiber.StatusNotFound, "task not found")
	case errors.Is(err, services.ErrWindowOpen):
		return apiError(c, fiber.StatusUnprocessableEntity, services.ErrWindowOpen.Error())
	case errors.Is(err, services.ErrInvalidTimeZone),
		errors.Is(err, services.ErrInvalidWorkHours),
		errors.Is(err, services.ErrInvalidWindowDate),
		errors.Is(err, services.ErrInvalidDuration),
		errors.Is(err, services.ErrInvalidAnalyticsPeriod),
		errors.Is(err, services.ErrTaskTitleRequired),
		errors.Is(err, services.ErrTaskTitleTooLong),
		errors.Is(err, services.ErrTaskNotesTooLong),
		errors.Is(err, services.ErrInvalidCategory):
		return apiError(c, fiber.StatusBadRequest, rootMessage(err))
	}

	log.WithError(err).WithFields(log.Fields{
		"method": c.Method(),
		"path":   c.Path(),
	}).Error("api: request failed")
	switch {
	case errors.Is(err, services.ErrTaskPersistFailed):
		return apiError(c, fiber.StatusInternalServerError, "failed to save task")
	case errors.Is(err, services.ErrTaskListFailed):
		return apiError(c, fiber.StatusInternalServerError, "failed to load tasks")
	case errors.Is(err, services.ErrPreferencesLoadFailed), errors.Is(err, services.ErrPreferencesSaveFailed):
		return apiError(c, fiber.StatusInternalServerError, "failed to load settings")
	default:
		return apiError(c, fiber.StatusInternalServerError, "internal error")
	}
}

// rootMessage strips the detail that fmt.Errorf("%w: ...") appended.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
