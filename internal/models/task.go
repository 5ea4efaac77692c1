package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	CategoryWork     = "Work"
	CategoryPersonal = "Personal"
	CategoryHealth   = "Health"
	CategoryLearning = "Learning"
	CategorySocial   = "Social"
	CategoryOther    = "Other"
)

// Categories lists the accepted task categories in display order.
func Categories() []string {
	return []string{
		CategoryWork,
		CategoryPersonal,
		CategoryHealth,
		CategoryLearning,
		CategorySocial,
		CategoryOther,
	}
}

func IsCategory(value string) bool {
	for _, category := range Categories() {
		if category == value {
			return true
		}
	}
	return false
}

type Task struct {
	ID                 string     `gorm:"primaryKey;type:text" json:"id"`
	UserID             uint       `gorm:"not null;index:idx_tasks_user_window" json:"user_id"`
	Title              string     `gorm:"not null" json:"title"`
	Notes              string     `json:"notes"`
	Category           string     `gorm:"not null;default:Other" json:"category"`
	StartTime          *time.Time `json:"start_time"`
	EndTime            *time.Time `json:"end_time"`
	Completed          bool       `gorm:"not null;default:false" json:"completed"`
	CompletedAt        *time.Time `json:"completed_at"`
	WindowDate         string     `gorm:"not null;index:idx_tasks_user_window" json:"window_date"`
	OriginalWindowDate string     `gorm:"not null" json:"original_window_date"`
	DeferredToDate     *string    `json:"deferred_to_date"`
	ArchivedAt         *time.Time `json:"archived_at"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (task *Task) BeforeCreate(tx *gorm.DB) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	return nil
}

func (task Task) IsScheduled() bool {
	return task.StartTime != nil && task.EndTime != nil
}

func (task Task) IsArchived() bool {
	return task.ArchivedAt != nil
}

// Duration is zero for unscheduled tasks.
func (task Task) Duration() time.Duration {
	if !task.IsScheduled() {
		return 0
	}
	return task.EndTime.Sub(*task.StartTime)
}
