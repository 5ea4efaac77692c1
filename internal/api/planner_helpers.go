package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"github.com/terraincognita07/daywindow/internal/models"
	"github.com/terraincognita07/daywindow/internal/services"
)

var errMissingUser = errors.New("missing current user")

type plannerContext struct {
	user        *models.User
	preferences models.UserPreferences
	settings    services.WindowSettings
	location    *time.Location
	planner     *services.Planner
	degraded    bool
}

func (handler *Handler) loadPreferences(c *fiber.Ctx) (*models.User, models.UserPreferences, error) {
	user, ok := currentUser(c)
	if !ok {
		return nil, models.UserPreferences{}, errMissingUser
	}
	preferences, err := handler.preferencesService.Load(c.UserContext(), user.ID)
	if err != nil {
		return nil, models.UserPreferences{}, err
	}
	return user, preferences, nil
}

// openPlanner loads the snapshot for the current user. With failOpen a store
// read error yields an empty planner instead of an error.
func (handler *Handler) openPlanner(c *fiber.Ctx, failOpen bool) (plannerContext, error) {
	user, preferences, err := handler.loadPreferences(c)
	if err != nil {
		return plannerContext{}, err
	}
	settings := services.WindowSettingsFromPreferences(preferences)
	location, err := services.LoadWindowLocation(preferences.TimeZone)
	if err != nil {
		return plannerContext{}, err
	}

	result := plannerContext{
		user:        user,
		preferences: preferences,
		settings:    settings,
		location:    location,
	}
	planner, err := handler.taskService.OpenPlanner(c.UserContext(), user.ID, settings)
	if err != nil && failOpen && errors.Is(err, services.ErrTaskListFailed) {
		log.WithError(err).WithField("user_id", user.ID).Warn("api: task list unavailable, serving empty planner")
		planner, err = handler.taskService.EmptyPlanner(user.ID, settings)
		result.degraded = true
	}
	if err != nil {
		return plannerContext{}, err
	}
	result.planner = planner
	return result, nil
}

func (handler *Handler) withPlanner(c *fiber.Ctx, run func(plannerContext) error) error {
	loaded, err := handler.openPlanner(c, false)
	if err != nil {
		if errors.Is(err, errMissingUser) {
			return apiError(c, fiber.StatusUnauthorized, "unauthorized")
		}
		return taskErrorResponse(c, err)
	}
	return run(loaded)
}
