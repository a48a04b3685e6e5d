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
	"fmt"
	"time"

	"collect-ledger-go/internal/models"
	"collect-ledger-go/internal/store"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.LedgerStore.
var _ store.LedgerStore = (*Service)(nil)

// Service is the SQLite ledger store. Aggregate updates run inside the same
// transaction as the payment row they derive from.
type Service struct {
	db           *sqlx.DB
	maxRetries   int
	retryBackoff time.Duration
	now          func() time.Time
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", dataSourceName(cfg))
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	// Set connection timeouts and limits
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test connection with timeout
	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := newService(db, cfg.MaxTxRetries, cfg.RetryBackoff)
	if err := service.initSchema(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func newService(db *sql.DB, maxRetries int, retryBackoff time.Duration) *Service {
	if retryBackoff <= 0 {
		retryBackoff = 20 * time.Millisecond
	}
	return &Service{
		db:           sqlx.NewDb(db, "sqlite3"),
		maxRetries:   maxRetries,
		retryBackoff: retryBackoff,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// dataSourceName enables WAL, foreign keys and BEGIN IMMEDIATE so writers
// queue on the database lock instead of failing lock upgrades mid-transaction.
func dataSourceName(cfg models.DatabaseConfig) string {
	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}
	return fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_txlock=immediate&_busy_timeout=%d",
		cfg.Path, busy.Milliseconds())
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

func (s *Service) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT UNIQUE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE TABLE IF NOT EXISTS collects (
		id TEXT PRIMARY KEY,
		author_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL CHECK (length(title) <= 200),
		occasion TEXT NOT NULL,
		description TEXT NOT NULL,
		target_amount_cents INTEGER CHECK (target_amount_cents IS NULL OR target_amount_cents > 0),
		collected_amount_cents INTEGER NOT NULL DEFAULT 0 CHECK (collected_amount_cents >= 0),
		contributors_count INTEGER NOT NULL DEFAULT 0 CHECK (contributors_count >= 0),
		cover_image TEXT NOT NULL DEFAULT '',
		ends_at TIMESTAMP NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_collects_author_created ON collects(author_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_collects_active_ends ON collects(is_active, ends_at);
	CREATE INDEX IF NOT EXISTS idx_collects_occasion ON collects(occasion);
	CREATE INDEX IF NOT EXISTS idx_collects_created_at ON collects(created_at);

	CREATE TABLE IF NOT EXISTS payments (
		id TEXT PRIMARY KEY,
		user_id TEXT REFERENCES users(id) ON DELETE SET NULL,
		collect_id TEXT NOT NULL REFERENCES collects(id) ON DELETE CASCADE,
		amount TEXT NOT NULL,
		amount_cents INTEGER NOT NULL CHECK (amount_cents >= 100),
		payment_method TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		comment TEXT,
		is_anonymous BOOLEAN NOT NULL DEFAULT 0,
		counts_contributor BOOLEAN NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_collect_created ON payments(collect_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_payments_user_created ON payments(user_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_payments_status_created ON payments(status, created_at);
	CREATE INDEX IF NOT EXISTS idx_payments_method ON payments(payment_method);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// normalizePage applies the listing defaults: 20 rows, at most 100.
func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	} else if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		zap.L().Warn("Failed to close rows", zap.Error(err))
	}
}
