package services

import (
	"errors"
	"strings"
	"time"

	"github.com/terraincognita07/daywindow/internal/models"
)

const (
	maxTaskTitleLength = 200
	maxTaskNotesLength = 4000
)

var (
	ErrTaskTitleRequired = errors.New("task title is required")
	ErrTaskTitleTooLong  = errors.New("task title is too long")
	ErrTaskNotesTooLong  = errors.New("task notes are too long")
	ErrInvalidCategory   = errors.New("invalid task category")
)

type TaskDetails struct {
	Title    string
	Notes    string
	Category string
}

// TaskDraft describes a new task. Start is optional; when set the task is
// placed immediately and DurationMinutes must be positive.
type TaskDraft struct {
	TaskDetails
	Start           *time.Time
	DurationMinutes int
}

func NormalizeTaskDetails(details TaskDetails) (TaskDetails, error) {
	title := strings.TrimSpace(details.Title)
	if title == "" {
		return TaskDetails{}, ErrTaskTitleRequired
	}
	if len([]rune(title)) > maxTaskTitleLength {
		return TaskDetails{}, ErrTaskTitleTooLong
	}

	notes := strings.TrimSpace(details.Notes)
	if len([]rune(notes)) > maxTaskNotesLength {
		return TaskDetails{}, ErrTaskNotesTooLong
	}

	category := strings.TrimSpace(details.Category)
	if category == "" {
		category = models.CategoryOther
	}
	if !models.IsCategory(category) {
		return TaskDetails{}, ErrInvalidCategory
	}

	return TaskDetails{Title: title, Notes: notes, Category: category}, nil
}
