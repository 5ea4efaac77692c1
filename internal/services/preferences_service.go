package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/terraincognita07/daywindow/internal/models"
)

var (
	ErrPreferencesLoadFailed = errors.New("load preferences failed")
	ErrPreferencesSaveFailed = errors.New("save preferences failed")
)

// PreferencesRepository stores one preferences row per user.
type PreferencesRepository interface {
	FindByUserID(ctx context.Context, userID uint) (models.UserPreferences, bool, error)
	Upsert(ctx context.Context, preferences *models.UserPreferences) error
	ListAll(ctx context.Context) ([]models.UserPreferences, error)
}

type PreferencesInput struct {
	WorkStartHour     int
	WorkDurationHours int
	TimeZone          string
}

type WindowPreview struct {
	StartHour   int  `json:"start_hour"`
	EndHour     int  `json:"end_hour"`
	EndsNextDay bool `json:"ends_next_day"`
	Hours       int  `json:"hours"`
}

type PreferencesService struct {
	preferences PreferencesRepository
}

func NewPreferencesService(preferences PreferencesRepository) *PreferencesService {
	return &PreferencesService{preferences: preferences}
}

// Load creates the default row on first access.
func (service *PreferencesService) Load(ctx context.Context, userID uint) (models.UserPreferences, error) {
	preferences, found, err := service.preferences.FindByUserID(ctx, userID)
	if err != nil {
		return models.UserPreferences{}, fmt.Errorf("%w: %v", ErrPreferencesLoadFailed, err)
	}
	if found {
		return preferences, nil
	}

	preferences = models.DefaultPreferences(userID)
	if err := service.preferences.Upsert(ctx, &preferences); err != nil {
		return models.UserPreferences{}, fmt.Errorf("%w: %v", ErrPreferencesSaveFailed, err)
	}
	return preferences, nil
}

func (service *PreferencesService) Save(ctx context.Context, userID uint, input PreferencesInput) (models.UserPreferences, error) {
	normalized, err := NormalizePreferencesInput(input)
	if err != nil {
		return models.UserPreferences{}, err
	}

	preferences, err := service.Load(ctx, userID)
	if err != nil {
		return models.UserPreferences{}, err
	}
	preferences.WorkStartHour = normalized.WorkStartHour
	preferences.WorkDurationHours = normalized.WorkDurationHours
	preferences.TimeZone = normalized.TimeZone
	if err := service.preferences.Upsert(ctx, &preferences); err != nil {
		return models.UserPreferences{}, fmt.Errorf("%w: %v", ErrPreferencesSaveFailed, err)
	}
	return preferences, nil
}

func (service *PreferencesService) ListAll(ctx context.Context) ([]models.UserPreferences, error) {
	rows, err := service.preferences.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPreferencesLoadFailed, err)
	}
	return rows, nil
}

func NormalizePreferencesInput(input PreferencesInput) (PreferencesInput, error) {
	if err := ValidateWorkHours(input.WorkStartHour, input.WorkDurationHours); err != nil {
		return PreferencesInput{}, err
	}
	location, err := LoadWindowLocation(input.TimeZone)
	if err != nil {
		return PreferencesInput{}, err
	}
	return PreferencesInput{
		WorkStartHour:     input.WorkStartHour,
		WorkDurationHours: input.WorkDurationHours,
		TimeZone:          location.String(),
	}, nil
}

func PreviewWindow(preferences models.UserPreferences) WindowPreview {
	total := preferences.WorkStartHour + preferences.WorkDurationHours
	return WindowPreview{
		StartHour:   preferences.WorkStartHour,
		EndHour:     total % 24,
		EndsNextDay: total >= 24,
		Hours:       preferences.WorkDurationHours,
	}
}
