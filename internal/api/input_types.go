package api

import "time"

type credentialsInput struct {
	Email      string `json:"email" form:"email"`
	Password   string `json:"password" form:"password"`
	RememberMe bool   `json:"remember_me" form:"remember_me"`
}

type changePasswordInput struct {
	CurrentPassword string `json:"current_password" form:"current_password"`
	NewPassword     string `json:"new_password" form:"new_password"`
}

type settingsInput struct {
	WorkStartHour     *int   `json:"work_start_hour" form:"work_start_hour"`
	WorkDurationHours *int   `json:"work_duration_hours" form:"work_duration_hours"`
	TimeZone          string `json:"time_zone" form:"time_zone"`
}

type taskCreateInput struct {
	Title           string     `json:"title"`
	Notes           string     `json:"notes"`
	Category        string     `json:"category"`
	StartTime       *time.Time `json:"start_time"`
	DurationMinutes int        `json:"duration_minutes"`
}

type taskUpdateInput struct {
	Title    *string `json:"title"`
	Notes    *string `json:"notes"`
	Category *string `json:"category"`
}

type scheduleInput struct {
	StartTime       *time.Time `json:"start_time"`
	DurationMinutes int        `json:"duration_minutes"`
}

type bumpInput struct {
	DeltaMinutes int `json:"delta_minutes"`
}

type extendInput struct {
	EndTime *time.Time `json:"end_time"`
}
