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
	"errors"
	"fmt"
	"time"
)

// Kind identifies which message a job carries
type Kind string

const (
	KindCollectCreated  Kind = "collect_created"
	KindPaymentRecorded Kind = "payment_recorded"
	KindPaymentReceived Kind = "payment_received"
)

// Job is a rendered message waiting for delivery
type Job struct {
	Kind      Kind      `json:"kind"`
	To        string    `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CollectId string    `json:"collect_id,omitempty"`
	PaymentId string    `json:"payment_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

var ErrQueueFull = errors.New("notification queue is full")

// Queue moves jobs from the pipeline to the delivery worker. Enqueue must
// return promptly; Dequeue blocks for at most the backend's pop timeout and
// returns (nil, nil) when nothing arrived.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Dequeue(ctx context.Context) (*Job, error)
	Fail(ctx context.Context, job Job, cause error)
	Len(ctx context.Context) (int64, error)
	Close() error
}

// NotificationDeliveryError reports a failed delivery attempt. It never
// leaves the worker.
type NotificationDeliveryError struct {
	Kind Kind
	To   string
	Err  error
}

func (e *NotificationDeliveryError) Error() string {
	return fmt.Sprintf("deliver %s to %s: %v", e.Kind, e.To, e.Err)
}

func (e *NotificationDeliveryError) Unwrap() error {
	return e.Err
}
