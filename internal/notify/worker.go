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

package notify

import (
	"context"
	"sync"
	"time"

	"collect-ledger-go/internal/metrics"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Worker delivers queued jobs one at a time. Each job gets a single attempt;
// failures are logged, recorded on the queue's failed list and dropped.
type Worker struct {
	queue          Queue
	mailer         Mailer
	deliverTimeout time.Duration
	idleBackoff    time.Duration
	limiter        *rate.Limiter

	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

func NewWorker(queue Queue, mailer Mailer, deliverTimeout time.Duration) *Worker {
	if deliverTimeout <= 0 {
		deliverTimeout = 10 * time.Second
	}
	return &Worker{
		queue:          queue,
		mailer:         mailer,
		deliverTimeout: deliverTimeout,
		idleBackoff:    time.Second,
		stopChan:       make(chan struct{}),
		doneChan:       make(chan struct{}),
	}
}

// WithRateLimit caps deliveries per second. A non-positive rate leaves the
// worker unthrottled.
func (w *Worker) WithRateLimit(perSecond float64, burst int) *Worker {
	if perSecond <= 0 {
		w.limiter = nil
		return w
	}
	if burst < 1 {
		burst = 1
	}
	w.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	return w
}

// Start runs the worker in the background until Stop is called
func (w *Worker) Start(ctx context.Context) {
	zap.L().Info("Starting notification worker")
	go func() {
		defer close(w.doneChan)
		w.Run(ctx)
	}()
}

// Stop waits for the current job, then delivers what is still queued
func (w *Worker) Stop() {
	zap.L().Info("Stopping notification worker")
	w.stopOnce.Do(func() { close(w.stopChan) })
	<-w.doneChan

	drainCtx, cancel := context.WithTimeout(context.Background(), 5*w.deliverTimeout)
	defer cancel()
	w.Drain(drainCtx)
	zap.L().Info("Notification worker stopped")
}

// Run processes jobs until the context is cancelled or Stop is called
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.stopChan:
			return nil
		default:
		}
		w.processNext(ctx)
	}
}

// Drain processes jobs until the queue reports empty or ctx ends
func (w *Worker) Drain(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := w.queue.Len(ctx)
		if err != nil || n == 0 {
			return
		}
		if !w.processNext(ctx) {
			return
		}
	}
}

// processNext returns false when no job was available
func (w *Worker) processNext(ctx context.Context) bool {
	job, err := w.queue.Dequeue(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		zap.L().Warn("Failed to read notification queue", zap.Error(err))
		select {
		case <-time.After(w.idleBackoff):
		case <-ctx.Done():
		}
		return false
	}
	if job == nil {
		return false
	}

	if err := w.deliver(ctx, *job); err != nil {
		metrics.RecordNotification(string(job.Kind), metrics.NotificationFailed)
		zap.L().Error("Notification delivery failed", zap.Error(err))
		w.queue.Fail(ctx, *job, err)
	} else {
		metrics.RecordNotification(string(job.Kind), metrics.NotificationSent)
		zap.L().Info("Notification sent", zap.String("kind", string(job.Kind)), zap.String("to", job.To))
	}

	if n, err := w.queue.Len(ctx); err == nil {
		metrics.NotificationQueueLength.Set(float64(n))
	}
	return true
}

func (w *Worker) deliver(ctx context.Context, job Job) error {
	if w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			return &NotificationDeliveryError{Kind: job.Kind, To: job.To, Err: err}
		}
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.deliverTimeout)
	defer cancel()

	if err := w.mailer.Send(sendCtx, job.To, job.Subject, job.Body); err != nil {
		return &NotificationDeliveryError{Kind: job.Kind, To: job.To, Err: err}
	}
	return nil
}
