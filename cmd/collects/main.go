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
	"time"

	"collect-ledger-go/internal/common"
	"collect-ledger-go/internal/config"
	"collect-ledger-go/internal/database"
	"collect-ledger-go/internal/models"
	"collect-ledger-go/internal/store"

	"go.uber.org/zap"
)

type reportStats struct {
	collects       int
	payments       int
	collectedCents int64
	expired        int
}

func formatPayer(p models.Payment) string {
	if p.IsAnonymous || p.UserId == nil {
		return "anonymous"
	}
	return common.Truncate(*p.UserId, 8)
}

func printPayment(p models.Payment, isLast bool) {
	fmt.Printf("%s %12s  %-9s %-10s %-11s %s\n",
		common.BoxPrefix(isLast),
		p.Amount.StringFixed(2),
		p.Method,
		p.Status,
		formatPayer(p),
		p.CreatedAt.Format("2006-01-02 15:04:05"))
}

func printCollectHeader(progress models.CollectProgress) {
	c := progress.Collect
	state := "active"
	switch {
	case !c.IsActive:
		state = "closed"
	case progress.Expired:
		state = "expired"
	}

	fmt.Printf("\n┌─ Collect: %s (%s, %s)\n", common.Truncate(c.Title, 50), c.Occasion, state)
	fmt.Printf("│  ID: %s\n", c.Id)
	fmt.Printf("│  Collected: %s of %s", common.FormatCents(c.CollectedAmountCents), common.FormatTarget(c.TargetAmountCents))
	if progress.PercentCollected != nil {
		fmt.Printf(" (%.1f%%)", *progress.PercentCollected)
	}
	fmt.Printf("\n│  Contributors: %d, ends %s\n", c.ContributorsCount, c.EndsAt.Format("2006-01-02"))
	fmt.Print("├")
	common.PrintSeparator("─", common.DefaultWidth-2)
}

func processCollect(ctx context.Context, c models.Collect, dbService *database.Service, paymentLimit int, now time.Time) (int, error) {
	payments, err := dbService.ListPayments(ctx, store.PaymentFilter{CollectId: c.Id, Limit: paymentLimit})
	if err != nil {
		return 0, fmt.Errorf("failed to get payments: %w", err)
	}

	printCollectHeader(models.NewCollectProgress(c, now))
	if len(payments) == 0 {
		fmt.Println("└── no payments yet")
		return 0, nil
	}
	for i, p := range payments {
		printPayment(p, i == len(payments)-1)
	}
	return len(payments), nil
}

func main() {
	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	authorFlag := flag.String("author", "", "Filter by author id or email (optional)")
	occasionFlag := flag.String("occasion", "", "Filter by occasion (optional)")
	activeFlag := flag.Bool("active", false, "Only show active collects")
	limitFlag := flag.Int("limit", 20, "Maximum number of collects to show")
	paymentsFlag := flag.Int("payments", 10, "Maximum number of payments shown per collect")
	flag.Parse()

	opts := reportOptions{
		author:      *authorFlag,
		occasion:    models.Occasion(*occasionFlag),
		activeOnly:  *activeFlag,
		limit:       *limitFlag,
		paymentsMax: *paymentsFlag,
	}
	if err := run(context.Background(), logger, opts); err != nil {
		logger.Fatal("Collect report failed", zap.Error(err))
	}
}

type reportOptions struct {
	author      string
	occasion    models.Occasion
	activeOnly  bool
	limit       int
	paymentsMax int
}

// run returns instead of exiting so the database is closed on every path
func run(ctx context.Context, logger *zap.Logger, opts reportOptions) error {
	logger.Info("Starting collect report")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger.Info("Connecting to database", zap.String("path", cfg.Database.Path))
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbService.Close()

	filter := store.CollectFilter{
		Occasion: opts.occasion,
		Limit:    opts.limit,
	}
	if opts.activeOnly {
		active := true
		filter.Active = &active
	}
	if opts.author != "" {
		author, err := common.ResolveUser(ctx, dbService, opts.author, logger)
		if err != nil {
			return fmt.Errorf("failed to resolve author %q: %w", opts.author, err)
		}
		filter.AuthorId = author.Id
	}

	collects, err := dbService.ListCollects(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list collects: %w", err)
	}

	common.PrintHeader("COLLECT REPORT", common.WideWidth)

	now := time.Now().UTC()
	stats := reportStats{}
	for _, c := range collects {
		count, err := processCollect(ctx, c, dbService, opts.paymentsMax, now)
		if err != nil {
			logger.Error("Failed to process collect", zap.String("collect_id", c.Id), zap.Error(err))
			continue
		}
		stats.collects++
		stats.payments += count
		stats.collectedCents += c.CollectedAmountCents
		if !c.EndsAt.After(now) {
			stats.expired++
		}
	}

	summary := fmt.Sprintf("SUMMARY: %d collects (%d expired), %s collected, %d payments shown",
		stats.collects, stats.expired, common.FormatCents(stats.collectedCents), stats.payments)
	common.PrintFooter(summary, common.WideWidth)

	logger.Info("Collect report completed",
		zap.Int("collects", stats.collects),
		zap.Int("payments_shown", stats.payments))
	return nil
}
