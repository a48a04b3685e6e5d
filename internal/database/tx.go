package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"collect-ledger-go/internal/metrics"
	"collect-ledger-go/internal/store"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// runInTx executes fn in a single transaction and commits it. Lock contention
// (SQLITE_BUSY / SQLITE_LOCKED) restarts the whole transaction with exponential
// backoff; once retries are exhausted the caller gets store.ErrConflict.
func (s *Service) runInTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	backoff := s.retryBackoff

	for attempt := 0; ; attempt++ {
		err := s.execTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !isContention(err) {
			return err
		}

		if attempt >= s.maxRetries {
			metrics.TxConflictsTotal.WithLabelValues(op).Inc()
			zap.L().Warn("Transaction retries exhausted",
				zap.String("op", op),
				zap.Int("attempts", attempt+1),
				zap.Error(err))
			return fmt.Errorf("%s: %w (%v)", op, store.ErrConflict, err)
		}

		metrics.TxRetriesTotal.WithLabelValues(op).Inc()
		zap.L().Debug("Retrying contended transaction",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", backoff))

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
}

func (s *Service) execTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func isContention(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
}
