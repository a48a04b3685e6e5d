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

package models

import "time"

// EventType names a committed ledger mutation
type EventType string

const (
	EventCollectCreated EventType = "collect.created"
	EventCollectUpdated EventType = "collect.updated"
	EventCollectDeleted EventType = "collect.deleted"
	EventPaymentCreated EventType = "payment.created"
	EventPaymentUpdated EventType = "payment.updated"
	EventPaymentDeleted EventType = "payment.deleted"
	EventUserDeleted    EventType = "user.deleted"
)

// IsCreation reports whether the event should produce notifications
func (t EventType) IsCreation() bool {
	return t == EventCollectCreated || t == EventPaymentCreated
}

// Event is emitted only after the mutation has been committed. Collect and
// Payment carry the committed rows when the event type has them.
type Event struct {
	Type       EventType
	CollectId  string
	Collect    *Collect
	Payment    *Payment
	OccurredAt time.Time
}
