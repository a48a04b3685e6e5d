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

import (
	"time"

	"github.com/shopspring/decimal"
)

// Occasion is the reason a collect was started
type Occasion string

const (
	OccasionBirthday  Occasion = "birthday"
	OccasionWedding   Occasion = "wedding"
	OccasionMedical   Occasion = "medical"
	OccasionCharity   Occasion = "charity"
	OccasionEducation Occasion = "education"
	OccasionBusiness  Occasion = "business"
	OccasionOther     Occasion = "other"
)

// Occasions lists every accepted occasion in display order
var Occasions = []Occasion{
	OccasionBirthday,
	OccasionWedding,
	OccasionMedical,
	OccasionCharity,
	OccasionEducation,
	OccasionBusiness,
	OccasionOther,
}

func (o Occasion) Valid() bool {
	for _, known := range Occasions {
		if o == known {
			return true
		}
	}
	return false
}

// PaymentMethod is how a contribution was paid
type PaymentMethod string

const (
	PaymentMethodCard     PaymentMethod = "card"
	PaymentMethodSbp      PaymentMethod = "sbp"
	PaymentMethodQiwi     PaymentMethod = "qiwi"
	PaymentMethodYooMoney PaymentMethod = "yoomoney"
	PaymentMethodOther    PaymentMethod = "other"
)

var PaymentMethods = []PaymentMethod{
	PaymentMethodCard,
	PaymentMethodSbp,
	PaymentMethodQiwi,
	PaymentMethodYooMoney,
	PaymentMethodOther,
}

func (m PaymentMethod) Valid() bool {
	for _, known := range PaymentMethods {
		if m == known {
			return true
		}
	}
	return false
}

// PaymentStatus is kept for record-keeping only; it never changes aggregates
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusSuccessful PaymentStatus = "successful"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

var PaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusSuccessful,
	PaymentStatusFailed,
	PaymentStatusRefunded,
}

func (s PaymentStatus) Valid() bool {
	for _, known := range PaymentStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// User represents a user in the system
type User struct {
	Id        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Collect represents a fundraising campaign. CollectedAmountCents and
// ContributorsCount are owned by the aggregation engine.
type Collect struct {
	Id                   string    `db:"id" json:"id"`
	AuthorId             string    `db:"author_id" json:"author_id"`
	Title                string    `db:"title" json:"title"`
	Occasion             Occasion  `db:"occasion" json:"occasion"`
	Description          string    `db:"description" json:"description"`
	TargetAmountCents    *int64    `db:"target_amount_cents" json:"target_amount_cents"`
	CollectedAmountCents int64     `db:"collected_amount_cents" json:"collected_amount_cents"`
	ContributorsCount    int64     `db:"contributors_count" json:"contributors_count"`
	CoverImage           string    `db:"cover_image" json:"cover_image,omitempty"`
	EndsAt               time.Time `db:"ends_at" json:"end_datetime"`
	IsActive             bool      `db:"is_active" json:"is_active"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// IsOpenEnded reports whether the collect has no target amount
func (c *Collect) IsOpenEnded() bool {
	return c.TargetAmountCents == nil
}

// Payment represents a single contribution (immutable amount)
type Payment struct {
	Id                string          `db:"id" json:"id"`
	UserId            *string         `db:"user_id" json:"user"`
	CollectId         string          `db:"collect_id" json:"collect"`
	Amount            decimal.Decimal `db:"amount" json:"amount"`
	AmountCents       int64           `db:"amount_cents" json:"amount_cents"`
	Method            PaymentMethod   `db:"payment_method" json:"payment_method"`
	Status            PaymentStatus   `db:"status" json:"status"`
	Comment           *string         `db:"comment" json:"comment"`
	IsAnonymous       bool            `db:"is_anonymous" json:"is_anonymous"`
	CountsContributor bool            `db:"counts_contributor" json:"counts_contributor"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// CollectStats holds the derived aggregate pair of a collect
type CollectStats struct {
	CollectId            string `json:"collect_id"`
	CollectedAmountCents int64  `json:"collected_amount_cents"`
	ContributorsCount    int64  `json:"contributors_count"`
	PaymentsCount        int64  `json:"payments_count"`
}

// StatsDrift compares stored aggregates with the figures computed from payments
type StatsDrift struct {
	Stored   CollectStats
	Computed CollectStats
}

func (d StatsDrift) InSync() bool {
	return d.Stored.CollectedAmountCents == d.Computed.CollectedAmountCents &&
		d.Stored.ContributorsCount == d.Computed.ContributorsCount
}
