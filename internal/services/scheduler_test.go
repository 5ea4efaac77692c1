package services

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/terraincognita07/daywindow/internal/models"
)

func testScheduler(t *testing.T, now time.Time) *Scheduler {
	t.Helper()
	window, err := utcSettings().ForDate("2026-03-02")
	if err != nil {
		t.Fatalf("ForDate returned error: %v", err)
	}
	return NewScheduler(window, fixedClock(now))
}

func TestClampToWindow(t *testing.T) {
	scheduler := testScheduler(t, at(8, 0))

	tests := []struct {
		name    string
		instant time.Time
		want    time.Time
	}{
		{name: "before start", instant: at(1, 0), want: at(4, 0)},
		{name: "inside", instant: at(9, 30), want: at(9, 30)},
		{name: "after end", instant: at(23, 0), want: at(20, 0)},
		{name: "on end", instant: at(20, 0), want: at(20, 0)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := scheduler.ClampToWindow(tc.instant)
			if !got.Equal(tc.want) {
				t.Fatalf("ClampToWindow(%s) = %s, want %s", tc.instant, got, tc.want)
			}
			if again := scheduler.ClampToWindow(got); !again.Equal(got) {
				t.Fatalf("clamp is not idempotent: %s then %s", got, again)
			}
		})
	}
}

func TestWithinWindow(t *testing.T) {
	scheduler := testScheduler(t, at(8, 0))

	tests := []struct {
		name string
		task models.Task
		want bool
	}{
		{name: "unscheduled", task: models.Task{ID: "u"}, want: true},
		{name: "inside", task: scheduledTask("a", at(9, 0), 60), want: true},
		{name: "overlaps start edge", task: scheduledTask("b", at(3, 30), 60), want: true},
		{name: "overlaps end edge", task: scheduledTask("c", at(19, 30), 60), want: true},
		{name: "before window", task: scheduledTask("d", at(1, 0), 60), want: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := scheduler.WithinWindow(tc.task); got != tc.want {
				t.Fatalf("WithinWindow = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestHasConflictIsSymmetricAndIgnoresTouchingEdges(t *testing.T) {
	scheduler := testScheduler(t, at(8, 0))
	a := scheduledTask("a", at(9, 0), 60)
	b := scheduledTask("b", at(9, 30), 60)
	c := scheduledTask("c", at(10, 0), 60)

	if !scheduler.HasConflict(*a.StartTime, *a.EndTime, []models.Task{b}, a.ID) ||
		!scheduler.HasConflict(*b.StartTime, *b.EndTime, []models.Task{a}, b.ID) {
		t.Fatal("expected overlapping tasks to conflict both ways")
	}
	if scheduler.HasConflict(*a.StartTime, *a.EndTime, []models.Task{c}, a.ID) ||
		scheduler.HasConflict(*c.StartTime, *c.EndTime, []models.Task{a}, c.ID) {
		t.Fatal("expected touching tasks not to conflict")
	}
	if scheduler.HasConflict(*a.StartTime, *a.EndTime, []models.Task{a}, a.ID) {
		t.Fatal("expected the excluded task to be ignored")
	}
	if scheduler.HasConflict(at(9, 0), at(10, 0), []models.Task{{ID: "u"}}, "") {
		t.Fatal("expected unscheduled tasks to be ignored")
	}
}

func TestPlaceTask(t *testing.T) {
	scheduler := testScheduler(t, at(8, 0))
	existing := scheduledTask("a", at(9, 0), 60)
	fresh := models.Task{ID: "n", WindowDate: "2026-03-02"}

	placed, err := scheduler.PlaceTask(fresh, at(19, 30), 60, []models.Task{existing})
	if err != nil {
		t.Fatalf("PlaceTask returned error: %v", err)
	}
	if !placed.StartTime.Equal(at(19, 30)) || !placed.EndTime.Equal(at(20, 0)) {
		t.Fatalf("expected end clamped to 20:00, got %s - %s", placed.StartTime, placed.EndTime)
	}

	_, err = scheduler.PlaceTask(fresh, at(9, 30), 30, []models.Task{existing})
	var conflict *ConflictError
	if !errors.As(err, &conflict) || conflict.ConflictingTaskID != "a" || !errors.Is(err, ErrTaskConflict) {
		t.Fatalf("expected conflict with a, got %v", err)
	}

	if _, err := scheduler.PlaceTask(fresh, at(12, 0), 0, nil); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
}

func TestPlaceTaskBoundsDuration(t *testing.T) {
	scheduler := testScheduler(t, at(8, 0))
	fresh := models.Task{ID: "n", WindowDate: "2026-03-02"}

	full, err := scheduler.PlaceTask(fresh, at(4, 0), scheduler.Window().Minutes(), nil)
	if err != nil {
		t.Fatalf("PlaceTask returned error: %v", err)
	}
	if !full.StartTime.Equal(at(4, 0)) || !full.EndTime.Equal(at(20, 0)) {
		t.Fatalf("expected the whole window, got %s - %s", full.StartTime, full.EndTime)
	}

	for _, minutes := range []int{scheduler.Window().Minutes() + 1, 200_000_000, math.MaxInt, -1} {
		placed, err := scheduler.PlaceTask(fresh, at(10, 0), minutes, nil)
		if !errors.Is(err, ErrInvalidDuration) {
			t.Fatalf("PlaceTask(%d) = %s - %s, %v; want ErrInvalidDuration", minutes, placed.StartTime, placed.EndTime, err)
		}
	}
}

func TestPlaceTaskRejectsClosedWindow(t *testing.T) {
	scheduler := testScheduler(t, at(21, 0))

	_, err := scheduler.PlaceTask(models.Task{ID: "n"}, at(12, 0), 30, nil)
	var precondition *PreconditionError
	if !errors.As(err, &precondition) || !errors.Is(err, ErrWindowClosed) {
		t.Fatalf("expected closed window precondition, got %v", err)
	}
}

func TestBump(t *testing.T) {
	scheduler := testScheduler(t, at(8, 0))

	moved, err := scheduler.Bump(scheduledTask("a", at(9, 0), 60), 15)
	if err != nil {
		t.Fatalf("Bump returned error: %v", err)
	}
	if !moved.StartTime.Equal(at(9, 15)) || moved.Duration() != time.Hour {
		t.Fatalf("unexpected bumped task %s - %s", moved.StartTime, moved.EndTime)
	}

	shrunk, err := scheduler.Bump(scheduledTask("b", at(19, 0), 60), 30)
	if err != nil {
		t.Fatalf("Bump returned error: %v", err)
	}
	if !shrunk.StartTime.Equal(at(19, 30)) || !shrunk.EndTime.Equal(at(20, 0)) {
		t.Fatalf("expected end clamped at window end, got %s - %s", shrunk.StartTime, shrunk.EndTime)
	}

	virtual, err := scheduler.Bump(models.Task{ID: "u"}, 60)
	if err != nil {
		t.Fatalf("Bump returned error: %v", err)
	}
	if !virtual.StartTime.Equal(at(5, 0)) || virtual.Duration() != 30*time.Minute {
		t.Fatalf("expected virtual 30 minute slot at 05:00, got %s - %s", virtual.StartTime, virtual.EndTime)
	}

	// Bump never checks for conflicts.
	if _, err := scheduler.Bump(scheduledTask("c", at(9, 0), 60), 30); err != nil {
		t.Fatalf("Bump returned error: %v", err)
	}
}

func TestBumpSaturatesLargeOffsets(t *testing.T) {
	scheduler := testScheduler(t, at(8, 0))

	tests := []struct {
		name      string
		delta     int
		wantStart time.Time
		wantEnd   time.Time
	}{
		{name: "forward", delta: 200_000_000, wantStart: at(20, 0), wantEnd: at(20, 0)},
		{name: "forward max int", delta: math.MaxInt, wantStart: at(20, 0), wantEnd: at(20, 0)},
		{name: "backward", delta: -200_000_000, wantStart: at(4, 0), wantEnd: at(5, 0)},
		{name: "backward min int", delta: math.MinInt, wantStart: at(4, 0), wantEnd: at(5, 0)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			original := scheduledTask("a", at(10, 0), 60)
			moved, err := scheduler.Bump(original, tc.delta)
			if err != nil {
				t.Fatalf("Bump returned error: %v", err)
			}
			if !moved.StartTime.Equal(tc.wantStart) || !moved.EndTime.Equal(tc.wantEnd) {
				t.Fatalf("Bump(%d) = %s - %s, want %s - %s", tc.delta, moved.StartTime, moved.EndTime, tc.wantStart, tc.wantEnd)
			}
			if moved.EndTime.Before(*moved.StartTime) {
				t.Fatalf("end before start: %s - %s", moved.StartTime, moved.EndTime)
			}
			if (tc.delta > 0) == moved.StartTime.Before(*original.StartTime) {
				t.Fatalf("bump moved the task the wrong way: %s", moved.StartTime)
			}
		})
	}
}

func TestRippleExtend(t *testing.T) {
	scheduler := testScheduler(t, at(8, 0))
	a := scheduledTask("a", at(9, 0), 60)
	b := scheduledTask("b", at(10, 0), 60)
	c := scheduledTask("c", at(11, 0), 60)
	done := scheduledTask("d", at(12, 0), 60)
	done.Completed = true
	all := []models.Task{c, done, a, b}

	shifts := scheduler.RippleExtend(a, at(10, 30), all)
	if len(shifts) != 2 {
		t.Fatalf("expected two shifts, got %#v", shifts)
	}
	want := []RippleShift{
		{TaskID: "b", Start: at(10, 30), End: at(11, 30)},
		{TaskID: "c", Start: at(11, 30), End: at(12, 30)},
	}
	for index, shift := range shifts {
		if shift.TaskID != want[index].TaskID || !shift.Start.Equal(want[index].Start) || !shift.End.Equal(want[index].End) {
			t.Fatalf("shift %d = %#v, want %#v", index, shift, want[index])
		}
		original := map[string]models.Task{"b": b, "c": c}[shift.TaskID]
		if shift.Start.Before(*original.StartTime) {
			t.Fatalf("shift moved a task backwards: %#v", shift)
		}
	}

	if shifts := scheduler.RippleExtend(a, at(9, 45), all); len(shifts) != 0 {
		t.Fatalf("expected contraction to be a no-op, got %#v", shifts)
	}
	if shifts := scheduler.RippleExtend(c, at(13, 0), all); len(shifts) != 0 {
		t.Fatalf("expected the last open task to shift nothing, got %#v", shifts)
	}
}

func TestRippleExtendClampsAtWindowEnd(t *testing.T) {
	scheduler := testScheduler(t, at(8, 0))
	a := scheduledTask("a", at(18, 0), 60)
	b := scheduledTask("b", at(19, 0), 60)

	shifts := scheduler.RippleExtend(a, at(19, 50), []models.Task{a, b})
	if len(shifts) != 1 {
		t.Fatalf("expected one shift, got %#v", shifts)
	}
	if !shifts[0].Start.Equal(at(19, 50)) || !shifts[0].End.Equal(at(20, 0)) {
		t.Fatalf("expected b compressed to 19:50-20:00, got %#v", shifts[0])
	}
}

func TestExtendTask(t *testing.T) {
	scheduler := testScheduler(t, at(8, 0))
	a := scheduledTask("a", at(9, 0), 60)
	b := scheduledTask("b", at(10, 0), 60)

	extended, shifts, err := scheduler.ExtendTask(a, at(10, 30), []models.Task{a, b})
	if err != nil {
		t.Fatalf("ExtendTask returned error: %v", err)
	}
	if !extended.EndTime.Equal(at(10, 30)) || len(shifts) != 1 {
		t.Fatalf("unexpected extend result %#v %#v", extended, shifts)
	}

	if _, _, err := scheduler.ExtendTask(a, at(8, 0), []models.Task{a}); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration for end before start, got %v", err)
	}
	if _, _, err := scheduler.ExtendTask(models.Task{ID: "u"}, at(10, 0), nil); !errors.Is(err, ErrTaskNotScheduled) {
		t.Fatalf("expected ErrTaskNotScheduled, got %v", err)
	}
}

func TestExtendTaskRejectsRippleOntoCompletedTask(t *testing.T) {
	scheduler := testScheduler(t, at(8, 0))
	a := scheduledTask("a", at(9, 0), 60)
	b := scheduledTask("b", at(10, 0), 60)
	done := scheduledTask("d", at(11, 0), 60)
	done.Completed = true

	_, shifts, err := scheduler.ExtendTask(a, at(10, 30), []models.Task{a, b, done})
	var conflict *ConflictError
	if !errors.As(err, &conflict) || conflict.TaskID != "b" || conflict.ConflictingTaskID != "d" {
		t.Fatalf("expected b to conflict with d, got %v", err)
	}
	if shifts != nil {
		t.Fatalf("expected no shifts on conflict, got %#v", shifts)
	}

	later := scheduledTask("l", at(11, 30), 30)
	later.Completed = true
	if _, shifts, err := scheduler.ExtendTask(a, at(10, 30), []models.Task{a, b, later}); err != nil || len(shifts) != 1 {
		t.Fatalf("expected ripple touching a completed task to pass, got %#v %v", shifts, err)
	}
}

func TestCompleteTask(t *testing.T) {
	task := scheduledTask("a", at(9, 0), 60)

	if _, err := testScheduler(t, at(8, 59)).CompleteTask(task); !errors.Is(err, ErrTaskNotStarted) {
		t.Fatalf("expected ErrTaskNotStarted, got %v", err)
	}
	if _, err := testScheduler(t, at(8, 0)).CompleteTask(models.Task{ID: "u"}); !errors.Is(err, ErrTaskNotScheduled) {
		t.Fatalf("expected ErrTaskNotScheduled, got %v", err)
	}

	scheduler := testScheduler(t, at(9, 0))
	completed, err := scheduler.CompleteTask(task)
	if err != nil {
		t.Fatalf("CompleteTask returned error: %v", err)
	}
	if !completed.Completed || completed.CompletedAt == nil || !completed.CompletedAt.Equal(at(9, 0)) {
		t.Fatalf("unexpected completed task %#v", completed)
	}

	again, err := testScheduler(t, at(9, 30)).CompleteTask(completed)
	if err != nil {
		t.Fatalf("second CompleteTask returned error: %v", err)
	}
	if !again.CompletedAt.Equal(at(9, 0)) {
		t.Fatalf("expected completion time to stay at 09:00, got %s", again.CompletedAt)
	}

	reopened, err := scheduler.ReopenTask(completed)
	if err != nil || reopened.Completed || reopened.CompletedAt != nil {
		t.Fatalf("unexpected reopen result %#v, %v", reopened, err)
	}
}

func TestClearTimeAllowedUntilArchived(t *testing.T) {
	scheduler := testScheduler(t, at(21, 0))
	task := scheduledTask("a", at(9, 0), 60)

	cleared, err := scheduler.ClearTime(task)
	if err != nil || cleared.IsScheduled() {
		t.Fatalf("expected cleared task after close, got %#v, %v", cleared, err)
	}

	archivedAt := at(20, 5)
	task.ArchivedAt = &archivedAt
	if _, err := scheduler.ClearTime(task); !errors.Is(err, ErrTaskArchived) {
		t.Fatalf("expected ErrTaskArchived, got %v", err)
	}
}

func TestDeferToNextWindow(t *testing.T) {
	task := scheduledTask("a", at(9, 0), 60)

	if _, err := testScheduler(t, at(12, 0)).DeferToNextWindow(task, "2026-03-03"); !errors.Is(err, ErrWindowOpen) {
		t.Fatalf("expected ErrWindowOpen, got %v", err)
	}

	scheduler := testScheduler(t, at(21, 0))
	deferred, err := scheduler.DeferToNextWindow(task, "2026-03-03")
	if err != nil {
		t.Fatalf("DeferToNextWindow returned error: %v", err)
	}
	if deferred.IsScheduled() || deferred.Completed || deferred.ArchivedAt != nil {
		t.Fatalf("expected reset task, got %#v", deferred)
	}
	if deferred.WindowDate != "2026-03-03" || deferred.OriginalWindowDate != "2026-03-02" {
		t.Fatalf("unexpected dates %#v", deferred)
	}

	// A second deferral keeps the first original date.
	deferred.WindowDate = "2026-03-02"
	twice, err := scheduler.DeferToNextWindow(deferred, "2026-03-04")
	if err != nil {
		t.Fatalf("DeferToNextWindow returned error: %v", err)
	}
	if twice.OriginalWindowDate != "2026-03-02" || *twice.DeferredToDate != "2026-03-04" {
		t.Fatalf("unexpected twice-deferred task %#v", twice)
	}

	task.Completed = true
	if _, err := scheduler.DeferToNextWindow(task, "2026-03-03"); !errors.Is(err, ErrTaskCompleted) {
		t.Fatalf("expected ErrTaskCompleted, got %v", err)
	}
}

func TestArchiveCompletedIsIdempotent(t *testing.T) {
	scheduler := testScheduler(t, at(21, 0))
	done := scheduledTask("a", at(9, 0), 60)
	done.Completed = true
	open := scheduledTask("b", at(10, 0), 60)
	otherDay := scheduledTask("c", at(9, 0), 60)
	otherDay.WindowDate = "2026-03-01"
	otherDay.Completed = true

	archived, ids := scheduler.ArchiveCompleted([]models.Task{done, open, otherDay}, "2026-03-02")
	if len(ids) != 1 || ids[0] != "a" || !archived[0].ArchivedAt.Equal(at(21, 0)) {
		t.Fatalf("unexpected archive result %v %#v", ids, archived)
	}

	_, again := scheduler.ArchiveCompleted([]models.Task{archived[0], open, otherDay}, "2026-03-02")
	if len(again) != 0 {
		t.Fatalf("expected nothing archived on rerun, got %v", again)
	}
}

func TestActiveTaskAndFocusRemaining(t *testing.T) {
	a := scheduledTask("a", at(9, 0), 60)
	b := scheduledTask("b", at(10, 0), 60)

	active, ok := ActiveTask([]models.Task{a, b}, at(10, 0))
	if !ok || active.ID != "b" {
		t.Fatalf("expected b active at 10:00, got %#v", active)
	}
	if remaining := FocusRemaining(active, at(10, 20)); remaining != 40*time.Minute {
		t.Fatalf("expected 40m remaining, got %s", remaining)
	}
	if _, ok := ActiveTask([]models.Task{a, b}, at(12, 0)); ok {
		t.Fatal("expected no active task after the last one ended")
	}
}
