package models

import "time"

const (
	DefaultWorkStartHour     = 4
	DefaultWorkDurationHours = 16
	DefaultTimeZone          = "Africa/Johannesburg"
)

type UserPreferences struct {
	ID                uint      `gorm:"primaryKey" json:"-"`
	UserID            uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	WorkStartHour     int       `gorm:"not null;default:4" json:"work_start_hour"`
	WorkDurationHours int       `gorm:"not null;default:16" json:"work_duration_hours"`
	TimeZone          string    `gorm:"not null;default:Africa/Johannesburg" json:"time_zone"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func DefaultPreferences(userID uint) UserPreferences {
	return UserPreferences{
		UserID:            userID,
		WorkStartHour:     DefaultWorkStartHour,
		WorkDurationHours: DefaultWorkDurationHours,
		TimeZone:          DefaultTimeZone,
	}
}
