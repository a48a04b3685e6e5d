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

package api

import (
	"context"
	"fmt"
	"time"

	"collect-ledger-go/internal/cache"
	"collect-ledger-go/internal/metrics"
	"collect-ledger-go/internal/models"
	"collect-ledger-go/internal/store"

	"go.uber.org/zap"
)

// EventEmitter receives committed mutations
type EventEmitter interface {
	Emit(ctx context.Context, event models.Event)
}

// LedgerService is the inbound surface of the ledger. Reads go through the
// read cache; writes go straight to the store and emit an event once committed.
type LedgerService struct {
	store      store.LedgerStore
	cache      cache.ReadCache
	events     EventEmitter
	collectTTL time.Duration
	paymentTTL time.Duration
	now        func() time.Time
}

func NewLedgerService(st store.LedgerStore, readCache cache.ReadCache, events EventEmitter, cfg models.CacheConfig) *LedgerService {
	if readCache == nil {
		readCache = cache.NopCache{}
	}
	collectTTL := cfg.CollectTTL
	if collectTTL <= 0 {
		collectTTL = 5 * time.Minute
	}
	paymentTTL := cfg.PaymentTTL
	if paymentTTL <= 0 {
		paymentTTL = 2 * time.Minute
	}
	return &LedgerService{
		store:      st,
		cache:      readCache,
		events:     events,
		collectTTL: collectTTL,
		paymentTTL: paymentTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *LedgerService) HealthCheck(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

func (s *LedgerService) emit(ctx context.Context, event models.Event) {
	if s.events == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}
	s.events.Emit(ctx, event)
}

// cachedRead serves key from the cache or loads and stores it. Cache errors
// are logged and never fail the read.
func cachedRead[T any](ctx context.Context, s *LedgerService, key string, ttl time.Duration, load func() (T, error)) (T, error) {
	var value T
	hit, err := s.cache.Get(ctx, key, &value)
	switch {
	case err != nil:
		metrics.RecordCacheLookup(metrics.CacheError)
		zap.L().Warn("Read cache lookup failed", append(requestFields(ctx), zap.String("key", key), zap.Error(err))...)
	case hit:
		metrics.RecordCacheLookup(metrics.CacheHit)
		return value, nil
	default:
		metrics.RecordCacheLookup(metrics.CacheMiss)
	}

	value, err = load()
	if err != nil {
		return value, err
	}

	if err := s.cache.Set(ctx, key, value, ttl); err != nil {
		zap.L().Warn("Failed to populate read cache", append(requestFields(ctx), zap.String("key", key), zap.Error(err))...)
	}
	return value, nil
}

// requestFields adds transport request metadata to log entries when present
func requestFields(ctx context.Context) []zap.Field {
	meta := models.GetRequestMeta(ctx)
	if meta == nil {
		return nil
	}
	var fields []zap.Field
	if meta.RequestId != "" {
		fields = append(fields, zap.String("request_id", meta.RequestId))
	}
	if meta.ActorId != "" {
		fields = append(fields, zap.String("actor_id", meta.ActorId))
	}
	return fields
}
