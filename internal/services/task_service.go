package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/terraincognita07/daywindow/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/terraincognita07/daywindow/internal/services"

var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrTaskListFailed    = errors.New("list tasks failed")
	ErrTaskPersistFailed = errors.New("persist task failed")
)

// TaskRepository is implemented by the sqlite store, the local JSON store and
// the Redis cache wrapper. Lists are ordered by start time with unscheduled
// tasks first.
type TaskRepository interface {
	ListByWindowRange(ctx context.Context, userID uint, fromDate string, toDate string) ([]models.Task, error)
	Create(ctx context.Context, task *models.Task) error
	Update(ctx context.Context, task *models.Task) error
	UpdateMany(ctx context.Context, tasks []models.Task) error
	Delete(ctx context.Context, userID uint, taskID string) error
	MarkArchived(ctx context.Context, userID uint, taskIDs []string, archivedAt time.Time) error
}

type TaskService struct {
	tasks  TaskRepository
	clock  func() time.Time
	tracer trace.Tracer
}

func NewTaskService(tasks TaskRepository) *TaskService {
	return &TaskService{
		tasks:  tasks,
		clock:  time.Now,
		tracer: otel.Tracer(tracerName),
	}
}

func (service *TaskService) WithClock(clock func() time.Time) *TaskService {
	if clock != nil {
		service.clock = clock
	}
	return service
}

func (service *TaskService) WithTracerProvider(provider trace.TracerProvider) *TaskService {
	if provider != nil {
		service.tracer = provider.Tracer(tracerName)
	}
	return service
}

func (service *TaskService) Now() time.Time {
	return service.clock()
}

// OpenPlanner loads the tasks of the previous, current and next window so
// that missed tasks can still be deferred and tasks already moved past a
// closed window stay addressable.
func (service *TaskService) OpenPlanner(ctx context.Context, userID uint, settings WindowSettings) (*Planner, error) {
	planner, err := service.EmptyPlanner(userID, settings)
	if err != nil {
		return nil, err
	}
	next, err := settings.Next(planner.window)
	if err != nil {
		return nil, err
	}

	tasks, err := service.tasks.ListByWindowRange(ctx, userID, planner.previous.DateKey, next.DateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTaskListFailed, err)
	}
	for _, task := range tasks {
		planner.tasks[task.ID] = task
	}
	return planner, nil
}

// EmptyPlanner is used when the store cannot be read: the page still renders
// with an empty task list.
func (service *TaskService) EmptyPlanner(userID uint, settings WindowSettings) (*Planner, error) {
	now := service.clock()
	window, err := settings.Compute(now)
	if err != nil {
		return nil, err
	}
	previous, err := settings.Previous(window)
	if err != nil {
		return nil, err
	}

	return &Planner{
		userID:   userID,
		settings: settings,
		window:   window,
		previous: previous,
		tasks:    make(map[string]models.Task),
		repo:     service.tasks,
		clock:    service.clock,
		tracer:   service.tracer,
	}, nil
}

func (service *TaskService) ListRange(ctx context.Context, userID uint, fromDate string, toDate string) ([]models.Task, error) {
	tasks, err := service.tasks.ListByWindowRange(ctx, userID, fromDate, toDate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTaskListFailed, err)
	}
	return tasks, nil
}

// ArchiveWindow archives the completed tasks of a closed window. It has no
// snapshot to roll back, so it writes straight through.
func (service *TaskService) ArchiveWindow(ctx context.Context, userID uint, settings WindowSettings, dateKey string) ([]string, error) {
	ctx, span := service.tracer.Start(ctx, "tasks.archive_window", trace.WithAttributes(
		attribute.String("window.date", dateKey),
	))
	defer span.End()

	window, err := settings.ForDate(dateKey)
	if err != nil {
		return nil, err
	}
	scheduler := NewScheduler(window, service.clock)
	if !window.Closed(service.clock()) {
		return nil, fmt.Errorf("%w: %s", ErrWindowOpen, dateKey)
	}

	tasks, err := service.tasks.ListByWindowRange(ctx, userID, dateKey, dateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTaskListFailed, err)
	}
	archived, ids := scheduler.ArchiveCompleted(tasks, dateKey)
	if len(ids) == 0 {
		return ids, nil
	}
	if err := service.tasks.MarkArchived(ctx, userID, ids, *archived[0].ArchivedAt); err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("%w: %v", ErrTaskPersistFailed, err)
	}
	span.SetAttributes(attribute.Int("task.count", len(ids)))
	return ids, nil
}

// SortTasksForDisplay orders unscheduled tasks first, then by start time.
func SortTasksForDisplay(tasks []models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		left, right := tasks[i], tasks[j]
		switch {
		case left.StartTime == nil && right.StartTime != nil:
			return true
		case left.StartTime != nil && right.StartTime == nil:
			return false
		case left.StartTime != nil && !left.StartTime.Equal(*right.StartTime):
			return left.StartTime.Before(*right.StartTime)
		case !left.CreatedAt.Equal(right.CreatedAt):
			return left.CreatedAt.Before(right.CreatedAt)
		default:
			return left.ID < right.ID
		}
	})
}
