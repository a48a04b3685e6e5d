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

package database

const (
	collectColumns = `id, author_id, title, occasion, description, target_amount_cents,
		collected_amount_cents, contributors_count, cover_image, ends_at, is_active, created_at, updated_at`

	paymentColumns = `id, user_id, collect_id, amount, amount_cents, payment_method, status, comment,
		is_anonymous, counts_contributor, created_at, updated_at`

	// User queries
	queryGetUsers = `
		SELECT id, name, email, created_at, updated_at
		FROM users
		ORDER BY created_at`

	queryInsertUser = `
		INSERT OR IGNORE INTO users (id, name, email, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`

	queryGetUserById = `
		SELECT id, name, email, created_at, updated_at
		FROM users
		WHERE id = ?`

	queryDeleteUser = `
		DELETE FROM users WHERE id = ?`

	queryUserExists = `
		SELECT 1 FROM users WHERE id = ?`

	// Collect queries
	queryInsertCollect = `
		INSERT INTO collects (` + collectColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, 0, 0, ?, ?, 1, ?, ?)`

	queryGetCollect = `
		SELECT ` + collectColumns + `
		FROM collects
		WHERE id = ?`

	queryListCollects = `
		SELECT ` + collectColumns + `
		FROM collects`

	queryCollectExists = `
		SELECT 1 FROM collects WHERE id = ?`

	queryDeleteCollect = `
		DELETE FROM collects WHERE id = ?`

	// Payment queries
	queryInsertPayment = `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	queryGetPayment = `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE id = ?`

	queryListPayments = `
		SELECT ` + paymentColumns + `
		FROM payments`

	queryUpdatePaymentStatus = `
		UPDATE payments SET status = ?, updated_at = ? WHERE id = ?`

	queryDeletePayment = `
		DELETE FROM payments WHERE id = ?`

	// Aggregate queries. The increment is expressed relative to the stored
	// column values so concurrent writers never overwrite each other's delta.
	queryApplyPaymentDelta = `
		UPDATE collects
		SET collected_amount_cents = collected_amount_cents + ?,
		    contributors_count = contributors_count + ?,
		    updated_at = ?
		WHERE id = ?`

	queryComputeCollectStats = `
		SELECT COALESCE(SUM(amount_cents), 0), COALESCE(SUM(counts_contributor), 0), COUNT(*)
		FROM payments
		WHERE collect_id = ?`

	queryGetStoredCollectStats = `
		SELECT collected_amount_cents, contributors_count
		FROM collects
		WHERE id = ?`

	queryOverwriteCollectStats = `
		UPDATE collects
		SET collected_amount_cents = ?, contributors_count = ?, updated_at = ?
		WHERE id = ?`
)
