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

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"collect-ledger-go/internal/common"
	"collect-ledger-go/internal/config"
	"collect-ledger-go/internal/metrics"
	"collect-ledger-go/internal/notify"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	if cfg.Notifications.QueueBackend != "redis" {
		logger.Fatal("Notifier requires NOTIFY_QUEUE_BACKEND=redis; the memory queue is drained in-process",
			zap.String("queue_backend", cfg.Notifications.QueueBackend))
	}

	client, err := common.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal("Failed to connect to redis", zap.Error(err))
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}()

	queue := notify.NewRedisQueue(client, cfg.Notifications.QueueKey, cfg.Notifications.PopTimeout)
	worker := notify.NewWorker(queue, notify.NewMailer(cfg.Notifications), cfg.Notifications.DeliverTimeout).
		WithRateLimit(cfg.Notifications.RatePerSecond, cfg.Notifications.RateBurst)

	logger.Info("Starting notifier",
		zap.String("queue_key", cfg.Notifications.QueueKey),
		zap.String("mailer", cfg.Notifications.Mailer),
		zap.String("metrics_addr", cfg.Metrics.Addr))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(ctx)
	})
	if cfg.Metrics.Addr != "" {
		g.Go(func() error {
			return metrics.Serve(ctx, metrics.NewServer(cfg.Metrics.Addr))
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Notifier stopped with error", zap.Error(err))
		return
	}
	logger.Info("Notifier stopped")
}
