package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/terraincognita07/daywindow/internal/models"
	"gorm.io/gorm"
)

func openTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()

	database, err := OpenSQLite(filepath.Join(t.TempDir(), "daywindow.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("open sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return database
}

func timePtr(value time.Time) *time.Time {
	return &value
}

func TestTaskRepositoryListOrdersUnscheduledFirst(t *testing.T) {
	repo := NewTaskRepository(openTestDatabase(t))
	ctx := context.Background()
	base := time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)

	tasks := []models.Task{
		{ID: "late", UserID: 1, Title: "Late", WindowDate: "2026-03-02", OriginalWindowDate: "2026-03-02", StartTime: timePtr(base.Add(3 * time.Hour)), EndTime: timePtr(base.Add(4 * time.Hour))},
		{ID: "loose", UserID: 1, Title: "Loose", WindowDate: "2026-03-02", OriginalWindowDate: "2026-03-02"},
		{ID: "early", UserID: 1, Title: "Early", WindowDate: "2026-03-02", OriginalWindowDate: "2026-03-02", StartTime: timePtr(base), EndTime: timePtr(base.Add(time.Hour))},
		{ID: "other-day", UserID: 1, Title: "Other", WindowDate: "2026-03-05", OriginalWindowDate: "2026-03-05"},
		{ID: "other-user", UserID: 2, Title: "Other user", WindowDate: "2026-03-02", OriginalWindowDate: "2026-03-02"},
	}
	for index := range tasks {
		if err := repo.Create(ctx, &tasks[index]); err != nil {
			t.Fatalf("create %s: %v", tasks[index].ID, err)
		}
	}

	listed, err := repo.ListByWindowRange(ctx, 1, "2026-03-01", "2026-03-02")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(listed))
	}
	want := []string{"loose", "early", "late"}
	for index, id := range want {
		if listed[index].ID != id {
			t.Fatalf("position %d: expected %s, got %s", index, id, listed[index].ID)
		}
	}
	if !listed[1].StartTime.Equal(base) {
		t.Fatalf("expected start %s to round-trip, got %s", base, listed[1].StartTime)
	}
}

func TestTaskRepositoryCreateAssignsID(t *testing.T) {
	repo := NewTaskRepository(openTestDatabase(t))

	task := models.Task{UserID: 1, Title: "No id", WindowDate: "2026-03-02", OriginalWindowDate: "2026-03-02"}
	if err := repo.Create(context.Background(), &task); err != nil {
		t.Fatalf("create: %v", err)
	}
	if task.ID == "" {
		t.Fatal("expected generated id")
	}
}

func TestTaskRepositoryUpdateClearsTimes(t *testing.T) {
	repo := NewTaskRepository(openTestDatabase(t))
	ctx := context.Background()
	start := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

	task := models.Task{ID: "t1", UserID: 1, Title: "Plan", WindowDate: "2026-03-02", OriginalWindowDate: "2026-03-02", StartTime: timePtr(start), EndTime: timePtr(start.Add(time.Hour))}
	if err := repo.Create(ctx, &task); err != nil {
		t.Fatalf("create: %v", err)
	}

	task.StartTime = nil
	task.EndTime = nil
	task.Title = "Plan later"
	if err := repo.Update(ctx, &task); err != nil {
		t.Fatalf("update: %v", err)
	}

	listed, err := repo.ListByWindowRange(ctx, 1, "2026-03-02", "2026-03-02")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 || listed[0].StartTime != nil || listed[0].EndTime != nil {
		t.Fatalf("expected cleared times, got %#v", listed)
	}
	if listed[0].Title != "Plan later" {
		t.Fatalf("expected updated title, got %q", listed[0].Title)
	}
}

func TestTaskRepositoryUpdateUnknownTask(t *testing.T) {
	repo := NewTaskRepository(openTestDatabase(t))

	err := repo.Update(context.Background(), &models.Task{ID: "missing", UserID: 1, Title: "x", WindowDate: "2026-03-02", OriginalWindowDate: "2026-03-02"})
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestTaskRepositoryUpdateManyIsAtomic(t *testing.T) {
	repo := NewTaskRepository(openTestDatabase(t))
	ctx := context.Background()

	task := models.Task{ID: "t1", UserID: 1, Title: "First", WindowDate: "2026-03-02", OriginalWindowDate: "2026-03-02"}
	if err := repo.Create(ctx, &task); err != nil {
		t.Fatalf("create: %v", err)
	}

	renamed := task
	renamed.Title = "Renamed"
	missing := models.Task{ID: "missing", UserID: 1, Title: "Ghost", WindowDate: "2026-03-02", OriginalWindowDate: "2026-03-02"}
	if err := repo.UpdateMany(ctx, []models.Task{renamed, missing}); err == nil {
		t.Fatal("expected update many to fail")
	}

	listed, err := repo.ListByWindowRange(ctx, 1, "2026-03-02", "2026-03-02")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if listed[0].Title != "First" {
		t.Fatalf("expected rollback to keep original title, got %q", listed[0].Title)
	}
}

func TestTaskRepositoryDeleteScopesToOwner(t *testing.T) {
	repo := NewTaskRepository(openTestDatabase(t))
	ctx := context.Background()

	task := models.Task{ID: "t1", UserID: 1, Title: "Mine", WindowDate: "2026-03-02", OriginalWindowDate: "2026-03-02"}
	if err := repo.Create(ctx, &task); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := repo.Delete(ctx, 2, "t1"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected foreign delete to miss, got %v", err)
	}
	if err := repo.Delete(ctx, 1, "t1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
}

func TestTaskRepositoryMarkArchivedKeepsFirstTimestamp(t *testing.T) {
	repo := NewTaskRepository(openTestDatabase(t))
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		task := models.Task{ID: id, UserID: 1, Title: id, Completed: true, WindowDate: "2026-03-02", OriginalWindowDate: "2026-03-02"}
		if err := repo.Create(ctx, &task); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}

	first := time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC)
	if err := repo.MarkArchived(ctx, 1, []string{"a"}, first); err != nil {
		t.Fatalf("archive a: %v", err)
	}
	if err := repo.MarkArchived(ctx, 1, []string{"a", "b"}, first.Add(time.Hour)); err != nil {
		t.Fatalf("archive a,b: %v", err)
	}

	listed, err := repo.ListByWindowRange(ctx, 1, "2026-03-02", "2026-03-02")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, task := range listed {
		if task.ArchivedAt == nil {
			t.Fatalf("expected %s archived", task.ID)
		}
		if task.ID == "a" && !task.ArchivedAt.Equal(first) {
			t.Fatalf("expected first archive time to stick, got %s", task.ArchivedAt)
		}
	}
}
