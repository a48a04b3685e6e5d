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

package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"collect-ledger-go/internal/api"
	"collect-ledger-go/internal/cache"
	"collect-ledger-go/internal/database"
	"collect-ledger-go/internal/models"
	"collect-ledger-go/internal/notify"
	"collect-ledger-go/internal/pipeline"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	DbService *database.Service
	Redis     *redis.Client
	Cache     cache.Cache
	Queue     notify.Queue
	Pipeline  *pipeline.Pipeline
	Worker    *notify.Worker // only set when jobs are delivered in-process
	Ledger    *api.LedgerService
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices wires the store, read cache, notification pipeline and
// ledger service. With the memory queue a worker is started in-process; with
// the redis queue delivery is left to the notifier command.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	services := &Services{DbService: dbService}

	if cfg.Cache.Backend == "redis" || cfg.Notifications.QueueBackend == "redis" {
		client, err := NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			services.Close()
			return nil, err
		}
		services.Redis = client
	}

	services.Cache, err = cache.New(cfg.Cache, services.Redis)
	if err != nil {
		services.Close()
		return nil, err
	}

	renderer, err := notify.LoadRenderer(cfg.Notifications.TemplatesFile)
	if err != nil {
		services.Close()
		return nil, fmt.Errorf("failed to load notification templates: %w", err)
	}

	if cfg.Notifications.QueueBackend == "redis" {
		services.Queue = notify.NewRedisQueue(services.Redis, cfg.Notifications.QueueKey, cfg.Notifications.PopTimeout)
	} else {
		services.Queue = notify.NewMemoryQueue(cfg.Notifications.EventBuffer, cfg.Notifications.PopTimeout)
		services.Worker = notify.NewWorker(services.Queue, notify.NewMailer(cfg.Notifications), cfg.Notifications.DeliverTimeout).
			WithRateLimit(cfg.Notifications.RatePerSecond, cfg.Notifications.RateBurst)
		services.Worker.Start(ctx)
	}

	services.Pipeline = pipeline.New(services.Cache, services.Queue, renderer, dbService, cfg.Notifications.EventBuffer)
	services.Pipeline.Start(ctx)

	services.Ledger = api.NewLedgerService(dbService, services.Cache, services.Pipeline, cfg.Cache)

	zap.L().Info("Services initialized",
		zap.String("cache_backend", cfg.Cache.Backend),
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.String("queue_backend", cfg.Notifications.QueueBackend))
	return services, nil
}

// InitializeDatabaseOnly initializes just the database service without the pipeline.
// Useful for maintenance tools that must not send notifications.
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func NewRedisClient(ctx context.Context, cfg models.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		if closeErr := client.Close(); closeErr != nil {
			zap.L().Warn("Failed to close redis client", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("unable to reach redis at %s: %w", cfg.Addr, err)
	}

	zap.L().Info("Connected to redis", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	return client, nil
}

// Close stops the pipeline first so buffered events still reach the queue,
// then the worker so queued jobs are still delivered.
func (cs *Services) Close() {
	if cs.Pipeline != nil {
		cs.Pipeline.Stop()
	}
	if cs.Worker != nil {
		cs.Worker.Stop()
	}
	if cs.Queue != nil {
		if err := cs.Queue.Close(); err != nil {
			zap.L().Warn("Failed to close notification queue", zap.Error(err))
		}
	}
	if cs.Cache != nil {
		if err := cs.Cache.Close(); err != nil {
			zap.L().Warn("Failed to close read cache", zap.Error(err))
		}
	}
	if cs.Redis != nil {
		if err := cs.Redis.Close(); err != nil {
			zap.L().Warn("Failed to close redis client", zap.Error(err))
		}
	}
	if cs.DbService != nil {
		cs.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
