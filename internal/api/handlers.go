package api

import (
	"errors"
	"time"

	"github.com/terraincognita07/daywindow/internal/services"
)

func NewHandler(options Options) (*Handler, error) {
	if options.Preferences == nil || options.Tasks == nil {
		return nil, errors.New("preferences and task repositories are required")
	}
	if !options.LocalMode {
		if options.Users == nil {
			return nil, errors.New("user repository is required outside local mode")
		}
		if options.SecretKey == "" {
			return nil, errors.New("secret key is required outside local mode")
		}
	}

	clock := options.Clock
	if clock == nil {
		clock = time.Now
	}
	deals := options.Deals
	if deals == nil {
		deals = services.NewDealsService("")
	}
	deals.WithClock(clock)

	handler := &Handler{
		secretKey:          []byte(options.SecretKey),
		cookieSecure:       options.CookieSecure,
		localMode:          options.LocalMode,
		clock:              clock,
		preferencesService: services.NewPreferencesService(options.Preferences),
		taskService: services.NewTaskService(options.Tasks).
			WithClock(clock).
			WithTracerProvider(options.TracerProvider),
		dealsService: deals,
		loginLimiter: newAttemptLimiter(),
	}
	if options.Users != nil {
		handler.authService = services.NewAuthService(options.Users)
	}
	return handler, nil
}
