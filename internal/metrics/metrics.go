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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CollectsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_collects_created_total",
			Help: "Total number of collects created",
		},
		[]string{"occasion"},
	)

	PaymentsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_payments_created_total",
			Help: "Total number of payments recorded",
		},
		[]string{"payment_method"},
	)

	TxRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_tx_retries_total",
			Help: "Transactions restarted after lock contention",
		},
		[]string{"op"},
	)

	TxConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_tx_conflicts_total",
			Help: "Transactions that gave up after exhausting retries",
		},
		[]string{"op"},
	)

	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_cache_requests_total",
			Help: "Read cache lookups by result",
		},
		[]string{"result"},
	)

	CacheInvalidationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_cache_invalidations_total",
			Help: "Total number of full cache invalidations",
		},
	)

	EventsDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_events_dropped_total",
			Help: "Events dropped because the dispatch buffer was full",
		},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_notifications_total",
			Help: "Notification jobs by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	NotificationQueueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_notification_queue_length",
			Help: "Current length of the notification queue",
		},
	)
)

// Cache lookup results
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// Notification outcomes
const (
	NotificationQueued  = "queued"
	NotificationSkipped = "skipped"
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
)

func RecordCollect(occasion string) {
	CollectsCreatedTotal.WithLabelValues(occasion).Inc()
}

func RecordPayment(paymentMethod string) {
	PaymentsCreatedTotal.WithLabelValues(paymentMethod).Inc()
}

func RecordCacheLookup(result string) {
	CacheRequestsTotal.WithLabelValues(result).Inc()
}

func RecordNotification(kind, status string) {
	NotificationsTotal.WithLabelValues(kind, status).Inc()
}
