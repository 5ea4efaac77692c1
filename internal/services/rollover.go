package services

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// RolloverService archives completed tasks once their window has closed.
type RolloverService struct {
	preferences PreferencesLister
	tasks       *TaskService
	interval    time.Duration
}

func NewRolloverService(preferences PreferencesLister, tasks *TaskService, interval time.Duration) *RolloverService {
	if interval <= 0 {
		interval = time.Minute
	}
	return &RolloverService{
		preferences: preferences,
		tasks:       tasks,
		interval:    interval,
	}
}

func (service *RolloverService) Start(ctx context.Context) {
	ticker := time.NewTicker(service.interval)
	go func() {
		defer ticker.Stop()

		service.RunOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				service.RunOnce(ctx)
			}
		}
	}()
}

// RunOnce returns the number of tasks archived across all users.
func (service *RolloverService) RunOnce(ctx context.Context) int {
	rows, err := service.preferences.ListAll(ctx)
	if err != nil {
		log.WithError(err).Error("rollover: list preferences failed")
		return 0
	}

	now := service.tasks.Now()
	archived := 0
	for _, preferences := range rows {
		settings := WindowSettingsFromPreferences(preferences)
		window, err := settings.Compute(now)
		if err != nil {
			log.WithError(err).WithField("user_id", preferences.UserID).Warn("rollover: invalid preferences")
			continue
		}
		previous, err := settings.Previous(window)
		if err != nil {
			continue
		}

		keys := []string{previous.DateKey}
		if window.Closed(now) {
			keys = append(keys, window.DateKey)
		}
		for _, key := range keys {
			ids, err := service.tasks.ArchiveWindow(ctx, preferences.UserID, settings, key)
			if err != nil {
				log.WithError(err).WithFields(log.Fields{
					"user_id": preferences.UserID,
					"window":  key,
				}).Error("rollover: archive failed")
				continue
			}
			if len(ids) > 0 {
				log.WithFields(log.Fields{
					"user_id": preferences.UserID,
					"window":  key,
					"count":   len(ids),
				}).Info("rollover: archived completed tasks")
			}
			archived += len(ids)
		}
	}
	return archived
}
