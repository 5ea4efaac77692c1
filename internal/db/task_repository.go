package db

import (
	"context"
	"time"

	"github.com/terraincognita07/daywindow/internal/models"
	"gorm.io/gorm"
)

type TaskRepository struct {
	database *gorm.DB
}

func NewTaskRepository(database *gorm.DB) *TaskRepository {
	return &TaskRepository{database: database}
}

// ListByWindowRange returns the tasks whose window date lies in
// [fromDate, toDate], unscheduled ones first.
func (repo *TaskRepository) ListByWindowRange(ctx context.Context, userID uint, fromDate string, toDate string) ([]models.Task, error) {
	tasks := make([]models.Task, 0)
	err := repo.database.WithContext(ctx).
		Where("user_id = ? AND window_date >= ? AND window_date <= ?", userID, fromDate, toDate).
		Order("start_time IS NOT NULL, start_time ASC, created_at ASC, id ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (repo *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	return repo.database.WithContext(ctx).Create(task).Error
}

func (repo *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	return repo.update(repo.database.WithContext(ctx), task)
}

// UpdateMany writes every task or none of them.
func (repo *TaskRepository) UpdateMany(ctx context.Context, tasks []models.Task) error {
	return repo.database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for index := range tasks {
			if err := repo.update(tx, &tasks[index]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (repo *TaskRepository) update(database *gorm.DB, task *models.Task) error {
	result := database.Model(&models.Task{}).
		Where("id = ? AND user_id = ?", task.ID, task.UserID).
		Select("*").
		Omit("id", "user_id", "created_at").
		Updates(task)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (repo *TaskRepository) Delete(ctx context.Context, userID uint, taskID string) error {
	result := repo.database.WithContext(ctx).
		Where("id = ? AND user_id = ?", taskID, userID).
		Delete(&models.Task{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (repo *TaskRepository) MarkArchived(ctx context.Context, userID uint, taskIDs []string, archivedAt time.Time) error {
	if len(taskIDs) == 0 {
		return nil
	}
	return repo.database.WithContext(ctx).Model(&models.Task{}).
		Where("user_id = ? AND id IN ? AND archived_at IS NULL", userID, taskIDs).
		Updates(map[string]any{
			"archived_at": archivedAt,
			"updated_at":  archivedAt,
		}).Error
}
