package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/terraincognita07/daywindow/internal/models"
)

const (
	WindowDateLayout     = "2006-01-02"
	MaxWorkDurationHours = 48
)

var (
	ErrInvalidTimeZone   = errors.New("invalid time zone")
	ErrInvalidWorkHours  = errors.New("invalid work hours")
	ErrInvalidWindowDate = errors.New("invalid window date")
)

// WorkWindow is derived from preferences on every request and never stored.
type WorkWindow struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	DateKey string    `json:"date_key"`
}

// Contains reports whether instant lies in [Start, End].
func (window WorkWindow) Contains(instant time.Time) bool {
	return !instant.Before(window.Start) && !instant.After(window.End)
}

func (window WorkWindow) Closed(now time.Time) bool {
	return !now.Before(window.End)
}

func (window WorkWindow) Minutes() int {
	return int(window.End.Sub(window.Start) / time.Minute)
}

type WindowSettings struct {
	TimeZone      string
	StartHour     int
	DurationHours int
}

func WindowSettingsFromPreferences(preferences models.UserPreferences) WindowSettings {
	return WindowSettings{
		TimeZone:      preferences.TimeZone,
		StartHour:     preferences.WorkStartHour,
		DurationHours: preferences.WorkDurationHours,
	}
}

func (settings WindowSettings) Compute(now time.Time) (WorkWindow, error) {
	return ComputeWindow(now, settings.TimeZone, settings.StartHour, settings.DurationHours)
}

// ForDate rebuilds the window whose date key is dateKey.
func (settings WindowSettings) ForDate(dateKey string) (WorkWindow, error) {
	location, err := resolveWindowInputs(settings.TimeZone, settings.StartHour, settings.DurationHours)
	if err != nil {
		return WorkWindow{}, err
	}
	day, err := ParseWindowDate(dateKey)
	if err != nil {
		return WorkWindow{}, err
	}
	wallStart := time.Date(day.Year(), day.Month(), day.Day(), settings.StartHour, 0, 0, 0, time.UTC)
	return windowFromWallStart(wallStart, location, settings.DurationHours), nil
}

// Next steps by calendar day rather than by 24 elapsed hours so that a DST
// change between the two windows cannot map back onto the same date key.
func (settings WindowSettings) Next(window WorkWindow) (WorkWindow, error) {
	return settings.shift(window, 1)
}

func (settings WindowSettings) Previous(window WorkWindow) (WorkWindow, error) {
	return settings.shift(window, -1)
}

func (settings WindowSettings) shift(window WorkWindow, days int) (WorkWindow, error) {
	day, err := ParseWindowDate(window.DateKey)
	if err != nil {
		return WorkWindow{}, err
	}
	return settings.ForDate(day.AddDate(0, 0, days).Format(WindowDateLayout))
}

// ComputeWindow returns the work window that is running at now, or the most
// recent one when now falls before today's start hour.
func ComputeWindow(now time.Time, timeZone string, startHour int, durationHours int) (WorkWindow, error) {
	location, err := resolveWindowInputs(timeZone, startHour, durationHours)
	if err != nil {
		return WorkWindow{}, err
	}

	local := now.In(location)
	year, month, day := local.Date()
	wallStart := time.Date(year, month, day, startHour, 0, 0, 0, time.UTC)
	if local.Hour() < startHour {
		wallStart = wallStart.AddDate(0, 0, -1)
	}

	return windowFromWallStart(wallStart, location, durationHours), nil
}

// windowFromWallStart resolves the wall-clock start hour held in the UTC
// fields of wallStart inside location. A start hour skipped by a DST gap
// resolves to the instant time.Date picks for it.
func windowFromWallStart(wallStart time.Time, location *time.Location, durationHours int) WorkWindow {
	year, month, day := wallStart.Date()
	start := time.Date(year, month, day, wallStart.Hour(), 0, 0, 0, location).UTC()
	end := start.Add(time.Duration(durationHours) * time.Hour)
	return WorkWindow{
		Start:   start,
		End:     end,
		DateKey: time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Format(WindowDateLayout),
	}
}

func ValidateWorkHours(startHour int, durationHours int) error {
	if startHour < 0 || startHour > 23 {
		return fmt.Errorf("%w: start hour %d", ErrInvalidWorkHours, startHour)
	}
	if durationHours < 1 || durationHours > MaxWorkDurationHours {
		return fmt.Errorf("%w: duration %d", ErrInvalidWorkHours, durationHours)
	}
	return nil
}

// LoadWindowLocation never falls back to a default zone.
func LoadWindowLocation(name string) (*time.Location, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || trimmed == "Local" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimeZone, name)
	}
	location, err := time.LoadLocation(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimeZone, name)
	}
	return location, nil
}

func ParseWindowDate(raw string) (time.Time, error) {
	day, err := time.Parse(WindowDateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidWindowDate, raw)
	}
	return day, nil
}

func resolveWindowInputs(timeZone string, startHour int, durationHours int) (*time.Location, error) {
	if err := ValidateWorkHours(startHour, durationHours); err != nil {
		return nil, err
	}
	return LoadWindowLocation(timeZone)
}
