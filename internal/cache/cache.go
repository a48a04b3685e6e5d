/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cache

import (
	"context"
	"fmt"
	"time"

	"collect-ledger-go/internal/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ReadCache stores serialized read results keyed by request shape.
// A miss is reported as (false, nil).
type ReadCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// CacheInvalidator drops every cached read at once. Writers call it after
// they commit.
type CacheInvalidator interface {
	InvalidateAll(ctx context.Context) error
}

// Cache is a read cache that can also be invalidated and closed.
type Cache interface {
	ReadCache
	CacheInvalidator
	Close() error
}

// New builds the configured cache backend. The redis client is only used with
// the redis backend and may be nil otherwise.
func New(cfg models.CacheConfig, client *redis.Client) (Cache, error) {
	if !cfg.Enabled {
		zap.L().Info("Read cache disabled")
		return NopCache{}, nil
	}

	switch cfg.Backend {
	case "memory":
		zap.L().Info("Using in-memory read cache", zap.Duration("sweep_interval", cfg.SweepInterval))
		return NewMemoryCache(cfg.SweepInterval), nil
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("redis cache backend requires a redis client")
		}
		zap.L().Info("Using redis read cache", zap.String("prefix", cfg.KeyPrefix))
		return NewRedisCache(client, cfg.KeyPrefix), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string, any) (bool, error)        { return false, nil }
func (NopCache) Set(context.Context, string, any, time.Duration) error { return nil }
func (NopCache) InvalidateAll(context.Context) error                   { return nil }
func (NopCache) Close() error                                          { return nil }
