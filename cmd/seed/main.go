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

package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"time"

	"collect-ledger-go/internal/common"
	"collect-ledger-go/internal/config"
	"collect-ledger-go/internal/models"
	"collect-ledger-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	paymentBatchSize   = 500
	recomputeWorkers   = 4
	defaultTargetCents = 500000
)

var seedAmounts = []string{"100.00", "250.00", "500.00", "1000.00", "1500.50"}

// SeedStore is the write side the seeder needs
type SeedStore interface {
	CreateUser(ctx context.Context, userId, name, email string) (*models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)
	DeleteUser(ctx context.Context, userId string) error
	CreateCollect(ctx context.Context, params store.CreateCollectParams) (*models.Collect, error)
	BulkInsertPayments(ctx context.Context, params []store.CreatePaymentParams) (int, error)
	RecomputeCollectStats(ctx context.Context, collectId string) (*models.CollectStats, error)
}

type seedCounts struct {
	users    int
	collects int
	payments int
}

type seeder struct {
	store SeedStore
	rng   *rand.Rand
	now   time.Time
}

func (s *seeder) clear(ctx context.Context) (int, error) {
	users, err := s.store.GetUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}
	for _, u := range users {
		if err := s.store.DeleteUser(ctx, u.Id); err != nil {
			return 0, fmt.Errorf("failed to delete user %s: %w", u.Id, err)
		}
	}
	return len(users), nil
}

func (s *seeder) seedUsers(ctx context.Context, n int) ([]string, error) {
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := uuid.New().String()
		email := fmt.Sprintf("user%d.%s@example.com", i, id[:8])
		if _, err := s.store.CreateUser(ctx, id, fmt.Sprintf("User %d", i), email); err != nil {
			return nil, fmt.Errorf("failed to create user %d: %w", i, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *seeder) seedCollects(ctx context.Context, n int, users []string) ([]string, error) {
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		params := store.CreateCollectParams{
			AuthorId:    users[s.rng.IntN(len(users))],
			Title:       fmt.Sprintf("Collect %d", i),
			Occasion:    models.Occasions[s.rng.IntN(len(models.Occasions))],
			Description: fmt.Sprintf("Seeded collect number %d", i),
			EndsAt:      s.now.Add(time.Duration(7+s.rng.IntN(60)) * 24 * time.Hour),
		}
		// every fifth collect is open-ended
		if i%5 != 0 {
			target := int64(defaultTargetCents)
			params.TargetAmountCents = &target
		}
		c, err := s.store.CreateCollect(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("failed to create collect %d: %w", i, err)
		}
		ids = append(ids, c.Id)
	}
	return ids, nil
}

func (s *seeder) paymentParams(users, collects []string) store.CreatePaymentParams {
	p := store.CreatePaymentParams{
		CollectId:   collects[s.rng.IntN(len(collects))],
		Amount:      decimal.RequireFromString(seedAmounts[s.rng.IntN(len(seedAmounts))]),
		Method:      models.PaymentMethods[s.rng.IntN(len(models.PaymentMethods))],
		IsAnonymous: s.rng.IntN(10) == 0,
		CreatedAt:   s.now.Add(-time.Duration(s.rng.IntN(72*60)) * time.Minute),
	}
	// roughly one guest payment in eight
	if s.rng.IntN(8) != 0 {
		userId := users[s.rng.IntN(len(users))]
		p.UserId = &userId
	}
	return p
}

func (s *seeder) seedPayments(ctx context.Context, n int, users, collects []string) (int, error) {
	inserted := 0
	for inserted < n {
		size := min(paymentBatchSize, n-inserted)
		batch := make([]store.CreatePaymentParams, size)
		for i := range batch {
			batch[i] = s.paymentParams(users, collects)
		}
		count, err := s.store.BulkInsertPayments(ctx, batch)
		if err != nil {
			return inserted, err
		}
		inserted += count
	}
	return inserted, nil
}

// recompute rewrites the aggregates of every seeded collect, since the bulk
// insert path leaves them untouched.
func (s *seeder) recompute(ctx context.Context, collects []string) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(recomputeWorkers)
	for _, id := range collects {
		g.Go(func() error {
			if _, err := s.store.RecomputeCollectStats(ctx, id); err != nil {
				return fmt.Errorf("failed to recompute collect %s: %w", id, err)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *seeder) run(ctx context.Context, users, collects, payments int) (seedCounts, error) {
	var counts seedCounts
	userIds, err := s.seedUsers(ctx, users)
	if err != nil {
		return counts, err
	}
	counts.users = len(userIds)

	collectIds, err := s.seedCollects(ctx, collects, userIds)
	if err != nil {
		return counts, err
	}
	counts.collects = len(collectIds)

	if len(collectIds) == 0 {
		return counts, nil
	}
	counts.payments, err = s.seedPayments(ctx, payments, userIds, collectIds)
	if err != nil {
		return counts, err
	}

	return counts, s.recompute(ctx, collectIds)
}

func main() {
	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	usersFlag := flag.Int("users", 2000, "Number of users to create")
	collectsFlag := flag.Int("collects", 2000, "Number of collects to create")
	paymentsFlag := flag.Int("payments", 5000, "Number of payments to create")
	clearFlag := flag.Bool("clear", false, "Delete all existing users (and their collects) first")
	flag.Parse()

	opts := seedOptions{users: *usersFlag, collects: *collectsFlag, payments: *paymentsFlag, clear: *clearFlag}
	if err := run(context.Background(), logger, opts); err != nil {
		logger.Fatal("Seeding failed", zap.Error(err))
	}
}

type seedOptions struct {
	users    int
	collects int
	payments int
	clear    bool
}

// run returns instead of exiting so the database is closed on every path
func run(ctx context.Context, logger *zap.Logger, opts seedOptions) error {
	if opts.users < 1 || opts.collects < 0 || opts.payments < 0 {
		return fmt.Errorf("invalid counts: need at least one user and non-negative collects and payments")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Database only: seeding must not fan out notifications
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbService.Close()

	s := &seeder{
		store: dbService,
		rng:   rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x5eed)),
		now:   time.Now().UTC(),
	}

	if opts.clear {
		removed, err := s.clear(ctx)
		if err != nil {
			return fmt.Errorf("failed to clear data: %w", err)
		}
		logger.Info("Cleared existing data", zap.Int("users_removed", removed))
	}

	start := time.Now()
	counts, err := s.run(ctx, opts.users, opts.collects, opts.payments)
	if err != nil {
		return err
	}

	common.PrintHeader("SEED COMPLETE", common.DefaultWidth)
	fmt.Printf("Users:     %d\n", counts.users)
	fmt.Printf("Collects:  %d\n", counts.collects)
	fmt.Printf("Payments:  %d\n", counts.payments)
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()

	logger.Info("Seeding completed",
		zap.Int("users", counts.users),
		zap.Int("collects", counts.collects),
		zap.Int("payments", counts.payments),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}
