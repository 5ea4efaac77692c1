package localstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/terraincognita07/daywindow/internal/models"
	"github.com/terraincognita07/daywindow/internal/services"
)

var ErrTaskNotFound = errors.New("local task not found")

var _ services.TaskRepository = (*TaskStore)(nil)

// TaskStore keeps every task in one JSON file holding a list of tasks. The
// file is read and rewritten whole on each operation.
type TaskStore struct {
	path  string
	mu    sync.Mutex
	clock func() time.Time
}

func NewTaskStore(path string) (*TaskStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &TaskStore{path: path, clock: time.Now}, nil
}

func (store *TaskStore) WithClock(clock func() time.Time) *TaskStore {
	if clock != nil {
		store.clock = clock
	}
	return store
}

func (store *TaskStore) ListByWindowRange(ctx context.Context, userID uint, fromDate string, toDate string) ([]models.Task, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	all, err := store.read()
	if err != nil {
		return nil, err
	}
	tasks := make([]models.Task, 0)
	for _, task := range all {
		if task.UserID == userID && task.WindowDate >= fromDate && task.WindowDate <= toDate {
			tasks = append(tasks, task)
		}
	}
	services.SortTasksForDisplay(tasks)
	return tasks, nil
}

func (store *TaskStore) Create(ctx context.Context, task *models.Task) error {
	return store.change(func(all []models.Task) ([]models.Task, error) {
		if task.ID == "" {
			task.ID = uuid.NewString()
		}
		for _, existing := range all {
			if existing.ID == task.ID {
				return nil, fmt.Errorf("duplicate task id %s", task.ID)
			}
		}
		now := store.clock().UTC()
		if task.CreatedAt.IsZero() {
			task.CreatedAt = now
		}
		task.UpdatedAt = now
		return append(all, *task), nil
	})
}

func (store *TaskStore) Update(ctx context.Context, task *models.Task) error {
	return store.UpdateMany(ctx, []models.Task{*task})
}

func (store *TaskStore) UpdateMany(ctx context.Context, tasks []models.Task) error {
	return store.change(func(all []models.Task) ([]models.Task, error) {
		now := store.clock().UTC()
		for _, task := range tasks {
			index := indexOf(all, task.UserID, task.ID)
			if index < 0 {
				return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, task.ID)
			}
			task.CreatedAt = all[index].CreatedAt
			task.UpdatedAt = now
			all[index] = task
		}
		return all, nil
	})
}

func (store *TaskStore) Delete(ctx context.Context, userID uint, taskID string) error {
	return store.change(func(all []models.Task) ([]models.Task, error) {
		index := indexOf(all, userID, taskID)
		if index < 0 {
			return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
		}
		return append(all[:index], all[index+1:]...), nil
	})
}

func (store *TaskStore) MarkArchived(ctx context.Context, userID uint, taskIDs []string, archivedAt time.Time) error {
	if len(taskIDs) == 0 {
		return nil
	}
	wanted := make(map[string]bool, len(taskIDs))
	for _, id := range taskIDs {
		wanted[id] = true
	}
	return store.change(func(all []models.Task) ([]models.Task, error) {
		for index := range all {
			task := &all[index]
			if task.UserID != userID || !wanted[task.ID] || task.ArchivedAt != nil {
				continue
			}
			stamp := archivedAt
			task.ArchivedAt = &stamp
			task.UpdatedAt = archivedAt
		}
		return all, nil
	})
}

func (store *TaskStore) change(apply func([]models.Task) ([]models.Task, error)) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	all, err := store.read()
	if err != nil {
		return err
	}
	updated, err := apply(all)
	if err != nil {
		return err
	}
	return store.write(updated)
}

// read treats a missing file as an empty list.
func (store *TaskStore) read() ([]models.Task, error) {
	data, err := os.ReadFile(store.path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.Task{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read local store: %w", err)
	}
	if len(data) == 0 {
		return []models.Task{}, nil
	}

	tasks := make([]models.Task, 0)
	if err := sonic.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("decode local store: %w", err)
	}
	return tasks, nil
}

// write replaces the file through a rename so readers never see a partial list.
func (store *TaskStore) write(tasks []models.Task) error {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	data, err := sonic.ConfigStd.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("encode local store: %w", err)
	}

	temp, err := os.CreateTemp(filepath.Dir(store.path), ".tasks-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(temp.Name())

	if _, err := temp.Write(data); err != nil {
		_ = temp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(temp.Name(), store.path); err != nil {
		return fmt.Errorf("replace local store: %w", err)
	}
	return nil
}

func indexOf(tasks []models.Task, userID uint, taskID string) int {
	for index, task := range tasks {
		if task.ID == taskID && task.UserID == userID {
			return index
		}
	}
	return -1
}
