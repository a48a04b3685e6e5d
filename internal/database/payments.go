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

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"collect-ledger-go/internal/metrics"
	"collect-ledger-go/internal/models"
	"collect-ledger-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// scanPayment reads a payment inside a transaction; plain reads go through sqlx.
func scanPayment(row rowScanner, p *models.Payment) error {
	var userId, comment sql.NullString
	err := row.Scan(&p.Id, &userId, &p.CollectId, &p.Amount, &p.AmountCents, &p.Method, &p.Status,
		&comment, &p.IsAnonymous, &p.CountsContributor, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return err
	}
	p.UserId = nil
	if userId.Valid {
		v := userId.String
		p.UserId = &v
	}
	p.Comment = nil
	if comment.Valid {
		v := comment.String
		p.Comment = &v
	}
	return nil
}

func nullableString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func newPayment(params store.CreatePaymentParams, cents int64, now time.Time) *models.Payment {
	createdAt := now
	if !params.CreatedAt.IsZero() {
		createdAt = params.CreatedAt.UTC()
	}
	return &models.Payment{
		Id:                uuid.New().String(),
		UserId:            params.UserId,
		CollectId:         params.CollectId,
		Amount:            store.FromMinorUnits(cents),
		AmountCents:       cents,
		Method:            params.Method,
		Status:            models.PaymentStatusPending,
		Comment:           params.Comment,
		IsAnonymous:       params.IsAnonymous,
		CountsContributor: params.UserId != nil,
		CreatedAt:         createdAt,
		UpdatedAt:         createdAt,
	}
}

func insertPayment(ctx context.Context, tx *sql.Tx, p *models.Payment) error {
	_, err := tx.ExecContext(ctx, queryInsertPayment,
		p.Id, nullableString(p.UserId), p.CollectId, p.Amount.StringFixed(2), p.AmountCents,
		p.Method, p.Status, nullableString(p.Comment), p.IsAnonymous, p.CountsContributor,
		p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

// CreatePayment records a contribution and folds it into the collect's
// aggregates in the same transaction. Either both land or neither does.
func (s *Service) CreatePayment(ctx context.Context, params store.CreatePaymentParams) (*models.Payment, error) {
	cents, err := store.ValidateCreatePayment(params)
	if err != nil {
		return nil, err
	}

	payment := newPayment(params, cents, s.now())

	err = s.runInTx(ctx, "create_payment", func(tx *sql.Tx) error {
		if err := ensureCollectExists(ctx, tx, payment.CollectId); err != nil {
			return err
		}
		if payment.UserId != nil {
			if err := ensureUserExists(ctx, tx, *payment.UserId); err != nil {
				return err
			}
		}
		if err := insertPayment(ctx, tx, payment); err != nil {
			return err
		}
		return applyPaymentDelta(ctx, tx, payment.CollectId, payment.AmountCents, contributorDelta(payment), s.now())
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordPayment(string(payment.Method))
	zap.L().Info("Payment recorded",
		zap.String("payment_id", payment.Id),
		zap.String("collect_id", payment.CollectId),
		zap.Int64("amount_cents", payment.AmountCents),
		zap.String("payment_method", string(payment.Method)),
		zap.Bool("guest", payment.UserId == nil))
	return payment, nil
}

func (s *Service) GetPayment(ctx context.Context, paymentId string) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.GetContext(ctx, &payment, queryGetPayment, paymentId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.NotFound("payment", paymentId)
		}
		zap.L().Error("Failed to query payment", zap.String("payment_id", paymentId), zap.Error(err))
		return nil, fmt.Errorf("unable to query payment: %w", err)
	}
	return &payment, nil
}

// ListPayments returns payments newest first
func (s *Service) ListPayments(ctx context.Context, filter store.PaymentFilter) ([]models.Payment, error) {
	limit, offset := normalizePage(filter.Limit, filter.Offset)

	var where []string
	var args []any
	if filter.CollectId != "" {
		where = append(where, "collect_id = ?")
		args = append(args, filter.CollectId)
	}
	if filter.UserId != "" {
		where = append(where, "user_id = ?")
		args = append(args, filter.UserId)
	}
	if filter.Method != "" {
		where = append(where, "payment_method = ?")
		args = append(args, filter.Method)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}

	query := queryListPayments
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	payments := []models.Payment{}
	if err := s.db.SelectContext(ctx, &payments, query, args...); err != nil {
		zap.L().Error("Failed to list payments", zap.Error(err))
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

func (s *Service) UpdatePaymentStatus(ctx context.Context, paymentId string, status models.PaymentStatus) (*models.Payment, error) {
	if err := store.ValidatePaymentStatus(status); err != nil {
		return nil, err
	}

	err := s.runInTx(ctx, "update_payment_status", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, queryUpdatePaymentStatus, status, s.now(), paymentId)
		if err != nil {
			return fmt.Errorf("failed to update payment status: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		if affected == 0 {
			return store.NotFound("payment", paymentId)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Payment status updated", zap.String("payment_id", paymentId), zap.String("status", string(status)))
	return s.GetPayment(ctx, paymentId)
}

// DeletePayment removes a payment and reverses exactly the delta it applied
func (s *Service) DeletePayment(ctx context.Context, paymentId string) (*models.Payment, error) {
	var payment models.Payment

	err := s.runInTx(ctx, "delete_payment", func(tx *sql.Tx) error {
		if err := scanPayment(tx.QueryRowContext(ctx, queryGetPayment, paymentId), &payment); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return store.NotFound("payment", paymentId)
			}
			return fmt.Errorf("failed to load payment: %w", err)
		}
		if _, err := tx.ExecContext(ctx, queryDeletePayment, paymentId); err != nil {
			return fmt.Errorf("failed to delete payment: %w", err)
		}
		return applyPaymentDelta(ctx, tx, payment.CollectId, -payment.AmountCents, -contributorDelta(&payment), s.now())
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Payment deleted",
		zap.String("payment_id", payment.Id),
		zap.String("collect_id", payment.CollectId),
		zap.Int64("amount_cents", payment.AmountCents))
	return &payment, nil
}

// BulkInsertPayments is the seed path. It writes payment rows only; the
// affected collects must be recomputed afterwards.
func (s *Service) BulkInsertPayments(ctx context.Context, params []store.CreatePaymentParams) (int, error) {
	payments := make([]*models.Payment, 0, len(params))
	now := s.now()
	for i, p := range params {
		cents, err := store.ValidateCreatePayment(p)
		if err != nil {
			return 0, fmt.Errorf("payment %d: %w", i, err)
		}
		payments = append(payments, newPayment(p, cents, now))
	}

	err := s.runInTx(ctx, "bulk_insert_payments", func(tx *sql.Tx) error {
		for _, p := range payments {
			if err := insertPayment(ctx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	zap.L().Info("Bulk inserted payments", zap.Int("count", len(payments)))
	return len(payments), nil
}
