package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/terraincognita07/daywindow/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Planner owns the task snapshot of one user for the current and previous
// window. Every mutation is applied to the snapshot first, then persisted;
// a failed write restores the snapshot to its previous state. A Planner is
// meant for a single request and is not safe for concurrent use.
type Planner struct {
	userID   uint
	settings WindowSettings
	window   WorkWindow
	previous WorkWindow
	tasks    map[string]models.Task
	repo     TaskRepository
	clock    func() time.Time
	tracer   trace.Tracer
}

func (planner *Planner) Window() WorkWindow {
	return planner.window
}

func (planner *Planner) PreviousWindow() WorkWindow {
	return planner.previous
}

func (planner *Planner) Tasks() []models.Task {
	tasks := make([]models.Task, 0, len(planner.tasks))
	for _, task := range planner.tasks {
		tasks = append(tasks, task)
	}
	SortTasksForDisplay(tasks)
	return tasks
}

// WindowTasks lists the tasks bound to the current window that overlap it.
func (planner *Planner) WindowTasks() []models.Task {
	scheduler := planner.scheduler()
	tasks := make([]models.Task, 0, len(planner.tasks))
	for _, task := range planner.Tasks() {
		if task.WindowDate == planner.window.DateKey && scheduler.WithinWindow(task) {
			tasks = append(tasks, task)
		}
	}
	return tasks
}

func (planner *Planner) Missed() []models.Task {
	all := planner.Tasks()
	missed := NewScheduler(planner.previous, planner.clock).MissedTasks(all)
	return append(missed, planner.scheduler().MissedTasks(all)...)
}

func (planner *Planner) Active() (models.Task, bool) {
	return ActiveTask(planner.WindowTasks(), planner.clock())
}

func (planner *Planner) Task(taskID string) (models.Task, error) {
	task, ok := planner.tasks[taskID]
	if !ok {
		return models.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	return task, nil
}

func (planner *Planner) Add(ctx context.Context, draft TaskDraft) (models.Task, error) {
	details, err := NormalizeTaskDetails(draft.TaskDetails)
	if err != nil {
		return models.Task{}, err
	}

	now := planner.clock()
	target := planner.window
	if planner.window.Closed(now) {
		if draft.Start != nil {
			return models.Task{}, &PreconditionError{Reason: ErrWindowClosed}
		}
		target, err = planner.settings.Next(planner.window)
		if err != nil {
			return models.Task{}, err
		}
	}

	task := models.Task{
		ID:                 uuid.NewString(),
		UserID:             planner.userID,
		Title:              details.Title,
		Notes:              details.Notes,
		Category:           details.Category,
		WindowDate:         target.DateKey,
		OriginalWindowDate: target.DateKey,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if draft.Start != nil {
		task, err = planner.scheduler().PlaceTask(task, *draft.Start, draft.DurationMinutes, planner.peersOf(task))
		if err != nil {
			return models.Task{}, err
		}
	}

	if err := planner.apply(ctx, "add", []models.Task{task}, nil, func(ctx context.Context) error {
		return planner.repo.Create(ctx, &task)
	}); err != nil {
		return models.Task{}, err
	}
	return task, nil
}

func (planner *Planner) Update(ctx context.Context, taskID string, details TaskDetails) (models.Task, error) {
	return planner.mutate(ctx, "update", taskID, func(scheduler *Scheduler, task models.Task, _ []models.Task) (models.Task, error) {
		return scheduler.UpdateDetails(task, details)
	})
}

func (planner *Planner) Schedule(ctx context.Context, taskID string, start time.Time, durationMinutes int) (models.Task, error) {
	return planner.mutate(ctx, "schedule", taskID, func(scheduler *Scheduler, task models.Task, peers []models.Task) (models.Task, error) {
		return scheduler.PlaceTask(task, start, durationMinutes, peers)
	})
}

func (planner *Planner) Bump(ctx context.Context, taskID string, deltaMinutes int) (models.Task, error) {
	return planner.mutate(ctx, "bump", taskID, func(scheduler *Scheduler, task models.Task, _ []models.Task) (models.Task, error) {
		return scheduler.Bump(task, deltaMinutes)
	})
}

func (planner *Planner) ClearTime(ctx context.Context, taskID string) (models.Task, error) {
	return planner.mutate(ctx, "clear_time", taskID, func(scheduler *Scheduler, task models.Task, _ []models.Task) (models.Task, error) {
		return scheduler.ClearTime(task)
	})
}

func (planner *Planner) Complete(ctx context.Context, taskID string) (models.Task, error) {
	return planner.mutate(ctx, "complete", taskID, func(scheduler *Scheduler, task models.Task, _ []models.Task) (models.Task, error) {
		return scheduler.CompleteTask(task)
	})
}

func (planner *Planner) Reopen(ctx context.Context, taskID string) (models.Task, error) {
	return planner.mutate(ctx, "reopen", taskID, func(scheduler *Scheduler, task models.Task, _ []models.Task) (models.Task, error) {
		return scheduler.ReopenTask(task)
	})
}

// Extend moves the task's end and ripples the overrun into the later tasks
// of the window. All rows are written in one batch.
func (planner *Planner) Extend(ctx context.Context, taskID string, newEnd time.Time) (models.Task, []RippleShift, error) {
	task, err := planner.Task(taskID)
	if err != nil {
		return models.Task{}, nil, err
	}
	scheduler, err := planner.schedulerFor(task)
	if err != nil {
		return task, nil, err
	}

	extended, shifts, err := scheduler.ExtendTask(task, newEnd, planner.peersOf(task))
	if err != nil {
		return task, nil, err
	}

	changed := make([]models.Task, 0, len(shifts)+1)
	changed = append(changed, extended)
	for _, shift := range shifts {
		changed = append(changed, scheduler.ApplyShift(planner.tasks[shift.TaskID], shift))
	}
	if err := planner.apply(ctx, "extend", changed, nil, func(ctx context.Context) error {
		return planner.repo.UpdateMany(ctx, changed)
	}); err != nil {
		return task, nil, err
	}
	return extended, shifts, nil
}

func (planner *Planner) Remove(ctx context.Context, taskID string) error {
	task, err := planner.Task(taskID)
	if err != nil {
		return err
	}
	if task.IsArchived() {
		return &PreconditionError{TaskID: task.ID, Reason: ErrTaskArchived}
	}
	return planner.apply(ctx, "remove", nil, []string{taskID}, func(ctx context.Context) error {
		return planner.repo.Delete(ctx, planner.userID, taskID)
	})
}

// Defer moves a missed task into the next window that is still open.
func (planner *Planner) Defer(ctx context.Context, taskID string) (models.Task, error) {
	target, err := planner.deferTarget()
	if err != nil {
		return models.Task{}, err
	}
	return planner.mutate(ctx, "defer", taskID, func(scheduler *Scheduler, task models.Task, _ []models.Task) (models.Task, error) {
		return scheduler.DeferToNextWindow(task, target)
	})
}

func (planner *Planner) DeferMissed(ctx context.Context) ([]models.Task, error) {
	target, err := planner.deferTarget()
	if err != nil {
		return nil, err
	}

	deferred := make([]models.Task, 0)
	for _, task := range planner.Missed() {
		scheduler, err := planner.schedulerFor(task)
		if err != nil {
			return nil, err
		}
		moved, err := scheduler.DeferToNextWindow(task, target)
		if err != nil {
			return nil, err
		}
		deferred = append(deferred, moved)
	}
	if len(deferred) == 0 {
		return deferred, nil
	}

	if err := planner.apply(ctx, "defer_missed", deferred, nil, func(ctx context.Context) error {
		return planner.repo.UpdateMany(ctx, deferred)
	}); err != nil {
		return nil, err
	}
	return deferred, nil
}

// ArchiveClosed archives the completed tasks of every closed window in the
// snapshot. Running it again archives nothing new.
func (planner *Planner) ArchiveClosed(ctx context.Context) ([]string, error) {
	now := planner.clock()
	all := planner.Tasks()
	archived := make([]models.Task, 0)
	ids := make([]string, 0)
	for _, window := range []WorkWindow{planner.previous, planner.window} {
		if !window.Closed(now) {
			continue
		}
		stamped, stampedIDs := NewScheduler(window, planner.clock).ArchiveCompleted(all, window.DateKey)
		archived = append(archived, stamped...)
		ids = append(ids, stampedIDs...)
	}
	if len(ids) == 0 {
		return ids, nil
	}

	if err := planner.apply(ctx, "archive", archived, nil, func(ctx context.Context) error {
		return planner.repo.MarkArchived(ctx, planner.userID, ids, now)
	}); err != nil {
		return nil, err
	}
	return ids, nil
}

func (planner *Planner) mutate(ctx context.Context, operation string, taskID string, change func(*Scheduler, models.Task, []models.Task) (models.Task, error)) (models.Task, error) {
	task, err := planner.Task(taskID)
	if err != nil {
		return models.Task{}, err
	}
	scheduler, err := planner.schedulerFor(task)
	if err != nil {
		return task, err
	}

	updated, err := change(scheduler, task, planner.peersOf(task))
	if err != nil {
		return task, err
	}
	if err := planner.apply(ctx, operation, []models.Task{updated}, nil, func(ctx context.Context) error {
		return planner.repo.Update(ctx, &updated)
	}); err != nil {
		return task, err
	}
	return updated, nil
}

// apply writes changed and removed into the snapshot, runs persist and puts
// the previous values back when persist fails.
func (planner *Planner) apply(ctx context.Context, operation string, changed []models.Task, removed []string, persist func(ctx context.Context) error) error {
	ctx, span := planner.tracer.Start(ctx, "planner."+operation, trace.WithAttributes(
		attribute.String("window.date", planner.window.DateKey),
		attribute.Int("task.count", len(changed)+len(removed)),
	))
	defer span.End()

	previous := make(map[string]*models.Task, len(changed)+len(removed))
	remember := func(taskID string) {
		if _, seen := previous[taskID]; seen {
			return
		}
		if existing, ok := planner.tasks[taskID]; ok {
			previous[taskID] = &existing
			return
		}
		previous[taskID] = nil
	}

	for _, task := range changed {
		remember(task.ID)
		planner.tasks[task.ID] = task
	}
	for _, taskID := range removed {
		remember(taskID)
		delete(planner.tasks, taskID)
	}

	if err := persist(ctx); err != nil {
		for taskID, task := range previous {
			if task == nil {
				delete(planner.tasks, taskID)
				continue
			}
			planner.tasks[taskID] = *task
		}
		recordSpanError(span, err)
		return fmt.Errorf("%w: %v", ErrTaskPersistFailed, err)
	}
	return nil
}

func (planner *Planner) scheduler() *Scheduler {
	return NewScheduler(planner.window, planner.clock)
}

func (planner *Planner) schedulerFor(task models.Task) (*Scheduler, error) {
	switch task.WindowDate {
	case planner.window.DateKey:
		return planner.scheduler(), nil
	case planner.previous.DateKey:
		return NewScheduler(planner.previous, planner.clock), nil
	}
	window, err := planner.settings.ForDate(task.WindowDate)
	if err != nil {
		return nil, err
	}
	return NewScheduler(window, planner.clock), nil
}

func (planner *Planner) peersOf(task models.Task) []models.Task {
	peers := make([]models.Task, 0, len(planner.tasks))
	for _, candidate := range planner.tasks {
		if candidate.WindowDate == task.WindowDate {
			peers = append(peers, candidate)
		}
	}
	return peers
}

func (planner *Planner) deferTarget() (string, error) {
	if !planner.window.Closed(planner.clock()) {
		return planner.window.DateKey, nil
	}
	next, err := planner.settings.Next(planner.window)
	if err != nil {
		return "", err
	}
	return next.DateKey, nil
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
