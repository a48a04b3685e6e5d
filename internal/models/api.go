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

// CollectProgress is a read-side view of a collect against its target
type CollectProgress struct {
	Collect          Collect  `json:"collect"`
	PercentCollected *float64 `json:"percent_collected,omitempty"`
	RemainingCents   *int64   `json:"remaining_cents,omitempty"`
	Expired          bool     `json:"expired"`
}

// NewCollectProgress derives progress figures. Open-ended collects have no
// percentage or remaining amount.
func NewCollectProgress(c Collect, now time.Time) CollectProgress {
	progress := CollectProgress{
		Collect: c,
		Expired: !c.EndsAt.After(now),
	}
	if c.TargetAmountCents == nil || *c.TargetAmountCents <= 0 {
		return progress
	}

	target := *c.TargetAmountCents
	percent := float64(c.CollectedAmountCents) * 100 / float64(target)
	remaining := target - c.CollectedAmountCents
	if remaining < 0 {
		remaining = 0
	}
	progress.PercentCollected = &percent
	progress.RemainingCents = &remaining
	return progress
}
