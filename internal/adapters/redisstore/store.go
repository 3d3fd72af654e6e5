package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"ytmp3server/internal/core/domain"
)

const indexKey = "tasks"

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
}

// NewClient constructs a go-redis client. It returns nil when Addr is empty.
func NewClient(opts Options) *redis.Client {
	if opts.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// Ping validates the connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err()
}

// TaskHistory implements ports.TaskHistory on Redis.
// Keys: task:<id> => JSON(domain.Task)
// Sorted set for listing: tasks (score: start time, unix nanoseconds)
type TaskHistory struct {
	client  *redis.Client
	timeout time.Duration
}

// NewTaskHistory wraps a connected client.
func NewTaskHistory(client *redis.Client) *TaskHistory {
	return &TaskHistory{client: client, timeout: 2 * time.Second}
}

func taskKey(id string) string { return fmt.Sprintf("task:%s", id) }

// Save upserts the task record.
func (h *TaskHistory) Save(ctx context.Context, task domain.Task) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	b, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to encode task %s: %w", task.ID, err)
	}
	pipe := h.client.TxPipeline()
	pipe.Set(ctx, taskKey(task.ID), b, 0)
	pipe.ZAdd(ctx, indexKey, redis.Z{Score: float64(task.StartTime.UnixNano()), Member: task.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save task %s: %w", task.ID, err)
	}
	return nil
}

// LoadAll returns every stored task, oldest first. Index entries whose
// record has disappeared are skipped.
func (h *TaskHistory) LoadAll(ctx context.Context) ([]domain.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*h.timeout)
	defer cancel()

	ids, err := h.client.ZRange(ctx, indexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	tasks := make([]domain.Task, 0, len(ids))
	for _, id := range ids {
		val, err := h.client.Get(ctx, taskKey(id)).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load task %s: %w", id, err)
		}
		var t domain.Task
		if err := json.Unmarshal(val, &t); err != nil {
			return nil, fmt.Errorf("failed to decode task %s: %w", id, err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// Delete removes the task record and its index entry.
func (h *TaskHistory) Delete(ctx context.Context, taskID string) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	pipe := h.client.TxPipeline()
	pipe.Del(ctx, taskKey(taskID))
	pipe.ZRem(ctx, indexKey, taskID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete task %s: %w", taskID, err)
	}
	return nil
}
