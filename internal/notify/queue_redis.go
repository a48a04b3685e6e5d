package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisQueue pushes jobs onto a redis list so a separate notifier process can
// deliver them. Failed jobs are kept on "<key>:failed".
type RedisQueue struct {
	client     *redis.Client
	key        string
	popTimeout time.Duration
}

func NewRedisQueue(client *redis.Client, key string, popTimeout time.Duration) *RedisQueue {
	if key == "" {
		key = "notifications"
	}
	if popTimeout <= 0 {
		popTimeout = 2 * time.Second
	}
	return &RedisQueue{client: client, key: key, popTimeout: popTimeout}
}

func (q *RedisQueue) failedKey() string {
	return q.key + ":failed"
}

func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal notification job: %w", err)
	}

	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		return fmt.Errorf("failed to queue notification to %s: %w", job.To, err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context) (*Job, error) {
	result, err := q.client.BRPop(ctx, q.popTimeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop notification: %w", err)
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		zap.L().Error("Bad notification data, discarding", zap.String("raw", result[1]), zap.Error(err))
		return nil, nil
	}
	return &job, nil
}

func (q *RedisQueue) Fail(ctx context.Context, job Job, cause error) {
	failed := map[string]any{
		"job":   job,
		"error": cause.Error(),
		"time":  time.Now().UTC(),
	}
	data, err := json.Marshal(failed)
	if err != nil {
		zap.L().Error("Failed to marshal failed notification", zap.Error(err))
		return
	}
	if err := q.client.LPush(ctx, q.failedKey(), data).Err(); err != nil {
		zap.L().Warn("Failed to record failed notification", zap.String("to", job.To), zap.Error(err))
		return
	}
	zap.L().Debug("Notification moved to failed queue", zap.String("to", job.To), zap.String("kind", string(job.Kind)))
}

func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// Close is a no-op; the redis client is shared with the cache.
func (q *RedisQueue) Close() error {
	return nil
}
