package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/terraincognita07/daywindow/internal/models"
)

type AnalyticsPeriod string

const (
	PeriodToday AnalyticsPeriod = "today"
	PeriodWeek  AnalyticsPeriod = "week"
	PeriodMonth AnalyticsPeriod = "month"
)

var ErrInvalidAnalyticsPeriod = errors.New("invalid analytics period")

type CategorySummary struct {
	Category   string  `json:"category"`
	Minutes    int     `json:"minutes"`
	Tasks      int     `json:"tasks"`
	Percentage float64 `json:"percentage"`
}

type AnalyticsSummary struct {
	TotalMinutes   int               `json:"total_minutes"`
	CompletedTasks int               `json:"completed_tasks"`
	ByCategory     []CategorySummary `json:"by_category"`
}

type AnalyticsBucket struct {
	Start        string `json:"start"`
	End          string `json:"end"`
	TotalMinutes int    `json:"total_minutes"`
	Completed    int    `json:"completed"`
}

type AnalyticsReport struct {
	Period  AnalyticsPeriod   `json:"period"`
	From    time.Time         `json:"from"`
	To      time.Time         `json:"to"`
	Summary AnalyticsSummary  `json:"summary"`
	Buckets []AnalyticsBucket `json:"buckets"`
}

func ParseAnalyticsPeriod(raw string) (AnalyticsPeriod, error) {
	switch AnalyticsPeriod(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PeriodToday:
		return PeriodToday, nil
	case PeriodWeek:
		return PeriodWeek, nil
	case PeriodMonth:
		return PeriodMonth, nil
	default:
		return "", ErrInvalidAnalyticsPeriod
	}
}

// PeriodRange returns [start, end) in location.
func PeriodRange(period AnalyticsPeriod, now time.Time, location *time.Location) (time.Time, time.Time) {
	switch period {
	case PeriodWeek:
		start := WeekStart(now, location)
		return start, start.AddDate(0, 0, 7)
	case PeriodMonth:
		start := MonthStart(now, location)
		return start, start.AddDate(0, 1, 0)
	default:
		return DayRange(now, location)
	}
}

func SummarizeTasks(tasks []models.Task) AnalyticsSummary {
	totalMinutes := 0
	minutesByCategory := make(map[string]int)
	tasksByCategory := make(map[string]int)
	for _, task := range tasks {
		category := task.Category
		if category == "" {
			category = models.CategoryOther
		}
		tasksByCategory[category]++
		minutes := int(task.Duration() / time.Minute)
		totalMinutes += minutes
		minutesByCategory[category] += minutes
	}

	byCategory := make([]CategorySummary, 0, len(minutesByCategory))
	for _, category := range models.Categories() {
		minutes := minutesByCategory[category]
		if minutes <= 0 {
			continue
		}
		percentage := 0.0
		if totalMinutes > 0 {
			percentage = float64(minutes) / float64(totalMinutes) * 100
		}
		byCategory = append(byCategory, CategorySummary{
			Category:   category,
			Minutes:    minutes,
			Tasks:      tasksByCategory[category],
			Percentage: percentage,
		})
	}
	sort.SliceStable(byCategory, func(i, j int) bool {
		return byCategory[i].Minutes > byCategory[j].Minutes
	})

	return AnalyticsSummary{
		TotalMinutes:   totalMinutes,
		CompletedTasks: len(tasks),
		ByCategory:     byCategory,
	}
}

// BuildAnalyticsReport only counts completed, scheduled tasks whose
// completion falls inside the period.
func BuildAnalyticsReport(tasks []models.Task, period AnalyticsPeriod, now time.Time, location *time.Location) AnalyticsReport {
	if location == nil {
		location = time.UTC
	}
	from, to := PeriodRange(period, now, location)

	completed := make([]models.Task, 0, len(tasks))
	for _, task := range tasks {
		if !task.Completed || !task.IsScheduled() || task.CompletedAt == nil {
			continue
		}
		if task.CompletedAt.Before(from) || !task.CompletedAt.Before(to) {
			continue
		}
		completed = append(completed, task)
	}

	report := AnalyticsReport{
		Period:  period,
		From:    from,
		To:      to,
		Summary: SummarizeTasks(completed),
		Buckets: []AnalyticsBucket{},
	}

	switch period {
	case PeriodWeek:
		for offset := 0; offset < 7; offset++ {
			day := from.AddDate(0, 0, offset)
			report.Buckets = append(report.Buckets, bucketFor(completed, day, day.AddDate(0, 0, 1), location))
		}
	case PeriodMonth:
		for cursor := WeekStart(from, location); cursor.Before(to); cursor = cursor.AddDate(0, 0, 7) {
			report.Buckets = append(report.Buckets, bucketFor(completed, cursor, cursor.AddDate(0, 0, 7), location))
		}
	}
	return report
}

func bucketFor(tasks []models.Task, start time.Time, end time.Time, location *time.Location) AnalyticsBucket {
	matched := make([]models.Task, 0)
	for _, task := range tasks {
		day, ok := analyticsTaskDate(task, location)
		if !ok || day.Before(start) || !day.Before(end) {
			continue
		}
		matched = append(matched, task)
	}
	summary := SummarizeTasks(matched)
	return AnalyticsBucket{
		Start:        start.Format(WindowDateLayout),
		End:          end.AddDate(0, 0, -1).Format(WindowDateLayout),
		TotalMinutes: summary.TotalMinutes,
		Completed:    summary.CompletedTasks,
	}
}

// analyticsTaskDate prefers the window the task belongs to over the day it
// was completed on.
func analyticsTaskDate(task models.Task, location *time.Location) (time.Time, bool) {
	if task.WindowDate != "" {
		day, err := time.ParseInLocation(WindowDateLayout, task.WindowDate, location)
		if err == nil {
			return day, true
		}
	}
	if task.CompletedAt != nil {
		return DateAtLocation(*task.CompletedAt, location), true
	}
	return time.Time{}, false
}

// AnalyticsReport loads the windows overlapping the period, one day early
// so that a window started the evening before is counted.
func (service *TaskService) AnalyticsReport(ctx context.Context, userID uint, period AnalyticsPeriod, location *time.Location) (AnalyticsReport, error) {
	if location == nil {
		location = time.UTC
	}
	now := service.clock()
	from, to := PeriodRange(period, now, location)
	tasks, err := service.tasks.ListByWindowRange(ctx, userID,
		from.AddDate(0, 0, -1).Format(WindowDateLayout),
		to.Format(WindowDateLayout),
	)
	if err != nil {
		return AnalyticsReport{}, fmt.Errorf("%w: %v", ErrTaskListFailed, err)
	}
	return BuildAnalyticsReport(tasks, period, now, location), nil
}
