package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/terraincognita07/daywindow/internal/models"
	"github.com/terraincognita07/daywindow/internal/services"
)

var _ services.TaskRepository = (*TaskCache)(nil)

// TaskCache is a read-through Redis cache in front of a task repository.
// List keys carry a per-user generation; a write bumps the generation so
// every older entry, including one a concurrent read stores late, is never
// served again.
type TaskCache struct {
	base  services.TaskRepository
	redis *redis.Client
	ttl   time.Duration
}

func NewTaskCache(base services.TaskRepository, client *redis.Client, ttl time.Duration) *TaskCache {
	if base == nil {
		panic("cache.NewTaskCache: base repository is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &TaskCache{base: base, redis: client, ttl: ttl}
}

func (c *TaskCache) ListByWindowRange(ctx context.Context, userID uint, fromDate string, toDate string) ([]models.Task, error) {
	generation, cacheable := c.generation(ctx, userID)
	key := rangeKey(userID, generation, fromDate, toDate)
	if cacheable {
		if tasks, ok := c.load(ctx, key); ok {
			return tasks, nil
		}
	}

	tasks, err := c.base.ListByWindowRange(ctx, userID, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	if cacheable {
		c.store(ctx, userID, key, tasks)
	}
	return tasks, nil
}

func (c *TaskCache) Create(ctx context.Context, task *models.Task) error {
	if err := c.base.Create(ctx, task); err != nil {
		return err
	}
	c.evict(ctx, task.UserID)
	return nil
}

func (c *TaskCache) Update(ctx context.Context, task *models.Task) error {
	if err := c.base.Update(ctx, task); err != nil {
		return err
	}
	c.evict(ctx, task.UserID)
	return nil
}

func (c *TaskCache) UpdateMany(ctx context.Context, tasks []models.Task) error {
	if err := c.base.UpdateMany(ctx, tasks); err != nil {
		return err
	}
	evicted := make(map[uint]bool)
	for _, task := range tasks {
		if !evicted[task.UserID] {
			c.evict(ctx, task.UserID)
			evicted[task.UserID] = true
		}
	}
	return nil
}

func (c *TaskCache) Delete(ctx context.Context, userID uint, taskID string) error {
	if err := c.base.Delete(ctx, userID, taskID); err != nil {
		return err
	}
	c.evict(ctx, userID)
	return nil
}

func (c *TaskCache) MarkArchived(ctx context.Context, userID uint, taskIDs []string, archivedAt time.Time) error {
	if err := c.base.MarkArchived(ctx, userID, taskIDs, archivedAt); err != nil {
		return err
	}
	c.evict(ctx, userID)
	return nil
}

func (c *TaskCache) load(ctx context.Context, key string) ([]models.Task, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.WithError(err).WithField("key", key).Warn("cache: read failed")
			_ = c.redis.Del(ctx, key).Err()
		}
		return nil, false
	}
	var tasks []models.Task
	if err := sonic.Unmarshal(data, &tasks); err != nil {
		_ = c.redis.Del(ctx, key).Err()
		return nil, false
	}
	return tasks, true
}

func (c *TaskCache) store(ctx context.Context, userID uint, key string, tasks []models.Task) {
	if c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(tasks)
	if err != nil {
		return
	}
	_, err = c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, c.ttl)
		pipe.Expire(ctx, generationKey(userID), c.ttl)
		return nil
	})
	if err != nil {
		log.WithError(err).WithField("key", key).Warn("cache: write failed")
	}
}

// generation reports false when Redis cannot say which entries are current.
// The generation key outlives every entry stored under it, so a reset to
// zero only happens once all older entries have expired.
func (c *TaskCache) generation(ctx context.Context, userID uint) (int64, bool) {
	if c.redis == nil {
		return 0, false
	}
	generation, err := c.redis.Get(ctx, generationKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, true
	}
	if err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("cache: generation read failed")
		return 0, false
	}
	return generation, true
}

func (c *TaskCache) evict(ctx context.Context, userID uint) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Incr(ctx, generationKey(userID)).Err(); err != nil {
		log.WithError(err).WithField("user_id", userID).Warn("cache: evict failed")
	}
}

func rangeKey(userID uint, generation int64, fromDate string, toDate string) string {
	return fmt.Sprintf("tasks:%d:%d:%s:%s", userID, generation, fromDate, toDate)
}

func generationKey(userID uint) string {
	return fmt.Sprintf("tasks:%d:generation", userID)
}
