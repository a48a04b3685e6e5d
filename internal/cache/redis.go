package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache namespaces every entry under a generation number. InvalidateAll
// bumps the generation so older entries become unreachable and age out by TTL.
type RedisCache struct {
	client *redis.Client
	prefix string
}

func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	if prefix == "" {
		prefix = "ledger"
	}
	return &RedisCache{client: client, prefix: prefix}
}

func (c *RedisCache) generationKey() string {
	return c.prefix + ":cache:generation"
}

func (c *RedisCache) generation(ctx context.Context) (string, error) {
	gen, err := c.client.Get(ctx, c.generationKey()).Result()
	if errors.Is(err, redis.Nil) {
		return "0", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read cache generation: %w", err)
	}
	return gen, nil
}

func (c *RedisCache) entryKey(gen, key string) string {
	return c.prefix + ":cache:" + gen + ":" + key
}

func (c *RedisCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return false, err
	}

	data, err := c.client.Get(ctx, c.entryKey(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cached %s: %w", key, err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to decode cached %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s for cache: %w", key, err)
	}

	gen, err := c.generation(ctx)
	if err != nil {
		return err
	}

	if err := c.client.Set(ctx, c.entryKey(gen, key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache %s: %w", key, err)
	}
	return nil
}

func (c *RedisCache) InvalidateAll(ctx context.Context) error {
	if err := c.client.Incr(ctx, c.generationKey()).Err(); err != nil {
		return fmt.Errorf("failed to bump cache generation: %w", err)
	}
	return nil
}

// Close is a no-op; the redis client is owned by whoever created it.
func (c *RedisCache) Close() error {
	return nil
}
