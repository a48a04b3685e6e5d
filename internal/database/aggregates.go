package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"collect-ledger-go/internal/models"
	"collect-ledger-go/internal/store"

	"go.uber.org/zap"
)

func contributorDelta(p *models.Payment) int64 {
	if p.CountsContributor {
		return 1
	}
	return 0
}

// applyPaymentDelta shifts a collect's aggregates relative to their stored
// values. It must run inside the transaction that wrote the payment row.
func applyPaymentDelta(ctx context.Context, tx *sql.Tx, collectId string, amountCents, contributors int64, now time.Time) error {
	result, err := tx.ExecContext(ctx, queryApplyPaymentDelta, amountCents, contributors, now, collectId)
	if err != nil {
		return fmt.Errorf("failed to update collect aggregates: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return store.NotFound("collect", collectId)
	}
	return nil
}

func computeCollectStats(ctx context.Context, q interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}, collectId string) (models.CollectStats, error) {
	stats := models.CollectStats{CollectId: collectId}
	err := q.QueryRowContext(ctx, queryComputeCollectStats, collectId).
		Scan(&stats.CollectedAmountCents, &stats.ContributorsCount, &stats.PaymentsCount)
	if err != nil {
		return stats, fmt.Errorf("failed to compute stats from payments: %w", err)
	}
	return stats, nil
}

// RecomputeCollectStats overwrites the stored aggregates with the figures
// derived from the collect's payments.
func (s *Service) RecomputeCollectStats(ctx context.Context, collectId string) (*models.CollectStats, error) {
	zap.L().Info("Recomputing collect stats", zap.String("collect_id", collectId))

	var stats models.CollectStats
	err := s.runInTx(ctx, "recompute_stats", func(tx *sql.Tx) error {
		if err := ensureCollectExists(ctx, tx, collectId); err != nil {
			return err
		}
		computed, err := computeCollectStats(ctx, tx, collectId)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, queryOverwriteCollectStats,
			computed.CollectedAmountCents, computed.ContributorsCount, s.now(), collectId)
		if err != nil {
			return fmt.Errorf("failed to overwrite collect stats: %w", err)
		}
		stats = computed
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Collect stats recomputed",
		zap.String("collect_id", collectId),
		zap.Int64("collected_amount_cents", stats.CollectedAmountCents),
		zap.Int64("contributors_count", stats.ContributorsCount),
		zap.Int64("payments_count", stats.PaymentsCount))
	return &stats, nil
}

// VerifyCollectStats compares stored aggregates with the payment set without writing
func (s *Service) VerifyCollectStats(ctx context.Context, collectId string) (*models.StatsDrift, error) {
	zap.L().Info("Reconciling collect stats", zap.String("collect_id", collectId))

	// Both reads share one snapshot so a concurrent payment cannot show up as drift
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	drift := &models.StatsDrift{Stored: models.CollectStats{CollectId: collectId}}
	err = tx.QueryRowContext(ctx, queryGetStoredCollectStats, collectId).
		Scan(&drift.Stored.CollectedAmountCents, &drift.Stored.ContributorsCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.NotFound("collect", collectId)
		}
		return nil, fmt.Errorf("failed to get stored stats: %w", err)
	}

	computed, err := computeCollectStats(ctx, tx, collectId)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	drift.Computed = computed
	drift.Stored.PaymentsCount = computed.PaymentsCount

	if !drift.InSync() {
		zap.L().Error("Collect stats reconciliation failed",
			zap.String("collect_id", collectId),
			zap.Int64("stored_amount_cents", drift.Stored.CollectedAmountCents),
			zap.Int64("computed_amount_cents", computed.CollectedAmountCents),
			zap.Int64("stored_contributors", drift.Stored.ContributorsCount),
			zap.Int64("computed_contributors", computed.ContributorsCount))
		return drift, nil
	}

	zap.L().Info("Collect stats reconciliation successful",
		zap.String("collect_id", collectId),
		zap.Int64("collected_amount_cents", computed.CollectedAmountCents),
		zap.Int64("contributors_count", computed.ContributorsCount))
	return drift, nil
}
