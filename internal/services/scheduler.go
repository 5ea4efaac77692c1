package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/terraincognita07/daywindow/internal/models"
)

const unscheduledBumpDuration = 30 * time.Minute

var (
	ErrTaskConflict     = errors.New("task time conflict")
	ErrTaskNotScheduled = errors.New("task has no time set")
	ErrTaskNotStarted   = errors.New("task has not started yet")
	ErrTaskCompleted    = errors.New("task already completed")
	ErrTaskArchived     = errors.New("task is archived")
	ErrWindowClosed     = errors.New("window is closed")
	ErrWindowOpen       = errors.New("window is still open")
	ErrInvalidDuration  = errors.New("invalid task duration")
)

type ConflictError struct {
	TaskID            string
	ConflictingTaskID string
}

func (err *ConflictError) Error() string {
	return fmt.Sprintf("task %s overlaps task %s", err.TaskID, err.ConflictingTaskID)
}

func (err *ConflictError) Unwrap() error {
	return ErrTaskConflict
}

// PreconditionError is returned before any mutation takes place. TaskID is
// empty when the task has not been created yet.
type PreconditionError struct {
	TaskID string
	Reason error
}

func (err *PreconditionError) Error() string {
	if err.TaskID == "" {
		return err.Reason.Error()
	}
	return fmt.Sprintf("task %s: %v", err.TaskID, err.Reason)
}

func (err *PreconditionError) Unwrap() error {
	return err.Reason
}

type RippleShift struct {
	TaskID string    `json:"task_id"`
	Start  time.Time `json:"start_time"`
	End    time.Time `json:"end_time"`
}

// Scheduler applies placement rules for a single work window. It never
// touches storage; every method returns the updated copy of a task.
type Scheduler struct {
	window WorkWindow
	clock  func() time.Time
}

func NewScheduler(window WorkWindow, clock func() time.Time) *Scheduler {
	if clock == nil {
		clock = time.Now
	}
	return &Scheduler{window: window, clock: clock}
}

func (scheduler *Scheduler) Window() WorkWindow {
	return scheduler.window
}

func (scheduler *Scheduler) ClampToWindow(instant time.Time) time.Time {
	if instant.Before(scheduler.window.Start) {
		return scheduler.window.Start
	}
	if instant.After(scheduler.window.End) {
		return scheduler.window.End
	}
	return instant
}

// WithinWindow also accepts tasks that only touch the window on one edge.
func (scheduler *Scheduler) WithinWindow(task models.Task) bool {
	if !task.IsScheduled() {
		return true
	}
	return scheduler.window.Contains(*task.StartTime) || scheduler.window.Contains(*task.EndTime)
}

func (scheduler *Scheduler) HasConflict(candidateStart time.Time, candidateEnd time.Time, tasks []models.Task, excludeID string) bool {
	return findConflict(candidateStart, candidateEnd, tasks, excludeID) != ""
}

func (scheduler *Scheduler) PlaceTask(task models.Task, desiredStart time.Time, durationMinutes int, tasks []models.Task) (models.Task, error) {
	if err := scheduler.requireEditable(task); err != nil {
		return task, err
	}
	if durationMinutes <= 0 || durationMinutes > scheduler.window.Minutes() {
		return task, fmt.Errorf("%w: %d minutes", ErrInvalidDuration, durationMinutes)
	}

	start := scheduler.ClampToWindow(desiredStart)
	end := scheduler.ClampToWindow(start.Add(time.Duration(durationMinutes) * time.Minute))
	if end.Before(start) {
		return task, fmt.Errorf("%w: end before start", ErrInvalidDuration)
	}
	if conflictID := findConflict(start, end, tasks, task.ID); conflictID != "" {
		return task, &ConflictError{TaskID: task.ID, ConflictingTaskID: conflictID}
	}

	return scheduler.withTimes(task, start, end), nil
}

// Bump moves a task by deltaMinutes without a conflict check. Start and end
// are clamped separately, so the duration can shrink at the window edge.
func (scheduler *Scheduler) Bump(task models.Task, deltaMinutes int) (models.Task, error) {
	if err := scheduler.requireEditable(task); err != nil {
		return task, err
	}

	start := scheduler.window.Start
	if task.StartTime != nil {
		start = *task.StartTime
	}
	end := start.Add(unscheduledBumpDuration)
	if task.EndTime != nil {
		end = *task.EndTime
	}
	duration := end.Sub(start)
	if duration < 0 {
		return task, fmt.Errorf("%w: end before start", ErrInvalidDuration)
	}

	newStart := scheduler.ClampToWindow(start.Add(scheduler.boundedShift(start, deltaMinutes)))
	newEnd := scheduler.ClampToWindow(newStart.Add(duration))
	return scheduler.withTimes(task, newStart, newEnd), nil
}

// boundedShift saturates deltaMinutes at the distance that already reaches
// the far window edge from, so large offsets cannot overflow.
func (scheduler *Scheduler) boundedShift(from time.Time, deltaMinutes int) time.Duration {
	reach := scheduler.window.End.Sub(scheduler.window.Start)
	if offset := from.Sub(scheduler.window.Start); offset < 0 {
		reach -= offset
	} else {
		reach += offset
	}
	limit := int64(reach/time.Minute) + 1
	delta := int64(deltaMinutes)
	if delta > limit {
		delta = limit
	} else if delta < -limit {
		delta = -limit
	}
	return time.Duration(delta) * time.Minute
}

// RippleExtend shifts every later open task by the amount task overruns its
// current end. Contractions propagate nothing.
func (scheduler *Scheduler) RippleExtend(task models.Task, newEnd time.Time, allTasks []models.Task) []RippleShift {
	if !task.IsScheduled() {
		return nil
	}
	overrun := newEnd.Sub(*task.EndTime)
	if overrun <= 0 {
		return nil
	}

	ordered := scheduler.rippleParticipants(allTasks)
	position := -1
	for index, candidate := range ordered {
		if candidate.ID == task.ID {
			position = index
			break
		}
	}
	if position < 0 {
		return nil
	}

	shifts := make([]RippleShift, 0, len(ordered)-position-1)
	for _, later := range ordered[position+1:] {
		shifts = append(shifts, RippleShift{
			TaskID: later.ID,
			Start:  scheduler.ClampToWindow(later.StartTime.Add(overrun)),
			End:    scheduler.ClampToWindow(later.EndTime.Add(overrun)),
		})
	}
	return shifts
}

// ExtendTask sets a new end for task and computes the ripple for the tasks
// after it. The new interval and every shifted interval are conflict-checked
// against the tasks the ripple leaves in place.
func (scheduler *Scheduler) ExtendTask(task models.Task, newEnd time.Time, allTasks []models.Task) (models.Task, []RippleShift, error) {
	if err := scheduler.requireEditable(task); err != nil {
		return task, nil, err
	}
	if !task.IsScheduled() {
		return task, nil, &PreconditionError{TaskID: task.ID, Reason: ErrTaskNotScheduled}
	}

	clampedEnd := scheduler.ClampToWindow(newEnd)
	if clampedEnd.Before(*task.StartTime) {
		return task, nil, fmt.Errorf("%w: end before start", ErrInvalidDuration)
	}

	shifts := scheduler.RippleExtend(task, clampedEnd, allTasks)
	moving := make(map[string]struct{}, len(shifts))
	for _, shift := range shifts {
		moving[shift.TaskID] = struct{}{}
	}
	staying := make([]models.Task, 0, len(allTasks))
	for _, candidate := range allTasks {
		if _, ok := moving[candidate.ID]; !ok {
			staying = append(staying, candidate)
		}
	}
	if conflictID := findConflict(*task.StartTime, clampedEnd, staying, task.ID); conflictID != "" {
		return task, nil, &ConflictError{TaskID: task.ID, ConflictingTaskID: conflictID}
	}
	for _, shift := range shifts {
		if conflictID := findConflict(shift.Start, shift.End, staying, task.ID); conflictID != "" {
			return task, nil, &ConflictError{TaskID: shift.TaskID, ConflictingTaskID: conflictID}
		}
	}

	return scheduler.withTimes(task, *task.StartTime, clampedEnd), shifts, nil
}

func (scheduler *Scheduler) ApplyShift(task models.Task, shift RippleShift) models.Task {
	return scheduler.withTimes(task, shift.Start, shift.End)
}

func (scheduler *Scheduler) ClearTime(task models.Task) (models.Task, error) {
	if task.IsArchived() {
		return task, &PreconditionError{TaskID: task.ID, Reason: ErrTaskArchived}
	}
	task.StartTime = nil
	task.EndTime = nil
	task.UpdatedAt = scheduler.clock()
	return task, nil
}

func (scheduler *Scheduler) CompleteTask(task models.Task) (models.Task, error) {
	if err := scheduler.requireEditable(task); err != nil {
		return task, err
	}
	if !task.IsScheduled() {
		return task, &PreconditionError{TaskID: task.ID, Reason: ErrTaskNotScheduled}
	}
	now := scheduler.clock()
	if now.Before(*task.StartTime) {
		return task, &PreconditionError{TaskID: task.ID, Reason: ErrTaskNotStarted}
	}
	if task.Completed {
		return task, nil
	}

	task.Completed = true
	task.CompletedAt = &now
	task.UpdatedAt = now
	return task, nil
}

func (scheduler *Scheduler) ReopenTask(task models.Task) (models.Task, error) {
	if err := scheduler.requireEditable(task); err != nil {
		return task, err
	}
	task.Completed = false
	task.CompletedAt = nil
	task.UpdatedAt = scheduler.clock()
	return task, nil
}

func (scheduler *Scheduler) UpdateDetails(task models.Task, details TaskDetails) (models.Task, error) {
	if err := scheduler.requireEditable(task); err != nil {
		return task, err
	}
	normalized, err := NormalizeTaskDetails(details)
	if err != nil {
		return task, err
	}
	task.Title = normalized.Title
	task.Notes = normalized.Notes
	task.Category = normalized.Category
	task.UpdatedAt = scheduler.clock()
	return task, nil
}

// DeferToNextWindow expects the scheduler to be built for the task's own
// window, which must already be closed.
func (scheduler *Scheduler) DeferToNextWindow(task models.Task, nextWindowDateKey string) (models.Task, error) {
	if task.Completed {
		return task, &PreconditionError{TaskID: task.ID, Reason: ErrTaskCompleted}
	}
	now := scheduler.clock()
	if !scheduler.window.Closed(now) {
		return task, &PreconditionError{TaskID: task.ID, Reason: ErrWindowOpen}
	}

	if task.OriginalWindowDate == "" {
		task.OriginalWindowDate = task.WindowDate
	}
	next := nextWindowDateKey
	task.StartTime = nil
	task.EndTime = nil
	task.Completed = false
	task.CompletedAt = nil
	task.ArchivedAt = nil
	task.WindowDate = next
	task.DeferredToDate = &next
	task.UpdatedAt = now
	return task, nil
}

// ArchiveCompleted stamps completed, unarchived tasks of the closed window.
// Tasks archived by an earlier run are skipped, so repeated runs return no ids.
func (scheduler *Scheduler) ArchiveCompleted(tasks []models.Task, closedWindowDateKey string) ([]models.Task, []string) {
	now := scheduler.clock()
	archived := make([]models.Task, 0)
	ids := make([]string, 0)
	for _, task := range tasks {
		if task.WindowDate != closedWindowDateKey || !task.Completed || task.IsArchived() {
			continue
		}
		stamped := now
		task.ArchivedAt = &stamped
		task.UpdatedAt = now
		archived = append(archived, task)
		ids = append(ids, task.ID)
	}
	return archived, ids
}

// MissedTasks lists incomplete tasks of the scheduler's window once it closed.
func (scheduler *Scheduler) MissedTasks(tasks []models.Task) []models.Task {
	missed := make([]models.Task, 0)
	if !scheduler.window.Closed(scheduler.clock()) {
		return missed
	}
	for _, task := range tasks {
		if task.WindowDate == scheduler.window.DateKey && !task.Completed && !task.IsArchived() {
			missed = append(missed, task)
		}
	}
	return missed
}

func (scheduler *Scheduler) requireEditable(task models.Task) error {
	if task.IsArchived() {
		return &PreconditionError{TaskID: task.ID, Reason: ErrTaskArchived}
	}
	if scheduler.window.Closed(scheduler.clock()) {
		return &PreconditionError{TaskID: task.ID, Reason: ErrWindowClosed}
	}
	return nil
}

func (scheduler *Scheduler) rippleParticipants(tasks []models.Task) []models.Task {
	participants := make([]models.Task, 0, len(tasks))
	for _, task := range tasks {
		if !task.IsScheduled() || task.Completed || task.IsArchived() || !scheduler.WithinWindow(task) {
			continue
		}
		participants = append(participants, task)
	}
	sort.SliceStable(participants, func(i, j int) bool {
		left, right := participants[i], participants[j]
		if left.StartTime.Equal(*right.StartTime) {
			return left.ID < right.ID
		}
		return left.StartTime.Before(*right.StartTime)
	})
	return participants
}

func (scheduler *Scheduler) withTimes(task models.Task, start time.Time, end time.Time) models.Task {
	task.StartTime = &start
	task.EndTime = &end
	task.UpdatedAt = scheduler.clock()
	return task
}

// ActiveTask returns the open task running at now, if any.
func ActiveTask(tasks []models.Task, now time.Time) (models.Task, bool) {
	for _, task := range tasks {
		if !task.IsScheduled() || task.Completed || task.IsArchived() {
			continue
		}
		if !now.Before(*task.StartTime) && now.Before(*task.EndTime) {
			return task, true
		}
	}
	return models.Task{}, false
}

func FocusRemaining(task models.Task, now time.Time) time.Duration {
	if !task.IsScheduled() {
		return 0
	}
	remaining := task.EndTime.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// findConflict treats touching endpoints as free.
func findConflict(candidateStart time.Time, candidateEnd time.Time, tasks []models.Task, excludeID string) string {
	for _, task := range tasks {
		if task.ID == excludeID || !task.IsScheduled() {
			continue
		}
		if candidateStart.Before(*task.EndTime) && task.StartTime.Before(candidateEnd) {
			return task.ID
		}
	}
	return ""
}
