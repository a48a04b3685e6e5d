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

	"go.uber.org/zap"
)

const maxFailedJobs = 100

type FailedJob struct {
	Job   Job
	Error string
	Time  time.Time
}

// MemoryQueue is an in-process queue for a worker running in the same binary.
type MemoryQueue struct {
	jobs       chan Job
	popTimeout time.Duration

	mu     sync.Mutex
	failed []FailedJob
}

func NewMemoryQueue(capacity int, popTimeout time.Duration) *MemoryQueue {
	if capacity <= 0 {
		capacity = 256
	}
	if popTimeout <= 0 {
		popTimeout = 2 * time.Second
	}
	return &MemoryQueue{
		jobs:       make(chan Job, capacity),
		popTimeout: popTimeout,
	}
}

func (q *MemoryQueue) Enqueue(_ context.Context, job Job) error {
	select {
	case q.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (*Job, error) {
	timer := time.NewTimer(q.popTimeout)
	defer timer.Stop()

	select {
	case job := <-q.jobs:
		return &job, nil
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Fail keeps the most recent failures for inspection
func (q *MemoryQueue) Fail(_ context.Context, job Job, cause error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.failed = append(q.failed, FailedJob{Job: job, Error: cause.Error(), Time: time.Now().UTC()})
	if len(q.failed) > maxFailedJobs {
		q.failed = q.failed[len(q.failed)-maxFailedJobs:]
	}
	zap.L().Debug("Notification moved to failed list", zap.String("to", job.To), zap.String("kind", string(job.Kind)))
}

func (q *MemoryQueue) Failed() []FailedJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]FailedJob(nil), q.failed...)
}

func (q *MemoryQueue) Len(context.Context) (int64, error) {
	return int64(len(q.jobs)), nil
}

func (q *MemoryQueue) Close() error {
	return nil
}
