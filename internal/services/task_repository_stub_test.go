package services

import (
	"context"
	"errors"
	"time"

	"github.com/terraincognita07/daywindow/internal/models"
)

var errStubWriteFailed = errors.New("stub write failed")

// stubTaskRepository keeps tasks in memory. failWrites makes every write
// fail after the call is counted.
type stubTaskRepository struct {
	tasks      map[string]models.Task
	listErr    error
	failWrites bool
	writes     int
}

func newStubTaskRepository(tasks ...models.Task) *stubTaskRepository {
	repo := &stubTaskRepository{tasks: make(map[string]models.Task)}
	for _, task := range tasks {
		repo.tasks[task.ID] = task
	}
	return repo
}

func (repo *stubTaskRepository) ListByWindowRange(ctx context.Context, userID uint, fromDate string, toDate string) ([]models.Task, error) {
	if repo.listErr != nil {
		return nil, repo.listErr
	}
	tasks := make([]models.Task, 0, len(repo.tasks))
	for _, task := range repo.tasks {
		if task.UserID == userID && task.WindowDate >= fromDate && task.WindowDate <= toDate {
			tasks = append(tasks, task)
		}
	}
	SortTasksForDisplay(tasks)
	return tasks, nil
}

func (repo *stubTaskRepository) Create(ctx context.Context, task *models.Task) error {
	repo.writes++
	if repo.failWrites {
		return errStubWriteFailed
	}
	repo.tasks[task.ID] = *task
	return nil
}

func (repo *stubTaskRepository) Update(ctx context.Context, task *models.Task) error {
	repo.writes++
	if repo.failWrites {
		return errStubWriteFailed
	}
	repo.tasks[task.ID] = *task
	return nil
}

func (repo *stubTaskRepository) UpdateMany(ctx context.Context, tasks []models.Task) error {
	repo.writes++
	if repo.failWrites {
		return errStubWriteFailed
	}
	for _, task := range tasks {
		repo.tasks[task.ID] = task
	}
	return nil
}

func (repo *stubTaskRepository) Delete(ctx context.Context, userID uint, taskID string) error {
	repo.writes++
	if repo.failWrites {
		return errStubWriteFailed
	}
	delete(repo.tasks, taskID)
	return nil
}

func (repo *stubTaskRepository) MarkArchived(ctx context.Context, userID uint, taskIDs []string, archivedAt time.Time) error {
	repo.writes++
	if repo.failWrites {
		return errStubWriteFailed
	}
	for _, taskID := range taskIDs {
		task := repo.tasks[taskID]
		if task.ArchivedAt == nil {
			stamped := archivedAt
			task.ArchivedAt = &stamped
		}
		repo.tasks[taskID] = task
	}
	return nil
}

type stubPreferencesRepository struct {
	rows    map[uint]models.UserPreferences
	findErr error
	saveErr error
}

func newStubPreferencesRepository(rows ...models.UserPreferences) *stubPreferencesRepository {
	repo := &stubPreferencesRepository{rows: make(map[uint]models.UserPreferences)}
	for _, row := range rows {
		repo.rows[row.UserID] = row
	}
	return repo
}

func (repo *stubPreferencesRepository) FindByUserID(ctx context.Context, userID uint) (models.UserPreferences, bool, error) {
	if repo.findErr != nil {
		return models.UserPreferences{}, false, repo.findErr
	}
	row, ok := repo.rows[userID]
	return row, ok, nil
}

func (repo *stubPreferencesRepository) Upsert(ctx context.Context, preferences *models.UserPreferences) error {
	if repo.saveErr != nil {
		return repo.saveErr
	}
	repo.rows[preferences.UserID] = *preferences
	return nil
}

func (repo *stubPreferencesRepository) ListAll(ctx context.Context) ([]models.UserPreferences, error) {
	if repo.findErr != nil {
		return nil, repo.findErr
	}
	rows := make([]models.UserPreferences, 0, len(repo.rows))
	for _, row := range repo.rows {
		rows = append(rows, row)
	}
	return rows, nil
}

func fixedClock(now time.Time) func() time.Time {
	return func() time.Time { return now }
}

func at(hour int, minute int) time.Time {
	return time.Date(2026, time.March, 2, hour, minute, 0, 0, time.UTC)
}

// scheduledTask builds a task in the 2026-03-02 window of a UTC 04:00+16h day.
func scheduledTask(id string, start time.Time, minutes int) models.Task {
	end := start.Add(time.Duration(minutes) * time.Minute)
	return models.Task{
		ID:                 id,
		UserID:             1,
		Title:              "Task " + id,
		Category:           models.CategoryWork,
		StartTime:          &start,
		EndTime:            &end,
		WindowDate:         "2026-03-02",
		OriginalWindowDate: "2026-03-02",
	}
}

func utcSettings() WindowSettings {
	return WindowSettings{TimeZone: "UTC", StartHour: 4, DurationHours: 16}
}
