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

	"collect-ledger-go/internal/common"
	"collect-ledger-go/internal/config"
	"collect-ledger-go/internal/models"
	"collect-ledger-go/internal/store"

	"go.uber.org/zap"
)

const pageSize = 100

// StatsService is what the reconciler needs from the ledger
type StatsService interface {
	ListCollects(ctx context.Context, filter store.CollectFilter) ([]models.Collect, error)
	VerifyCollectStats(ctx context.Context, collectId string) (*models.StatsDrift, error)
	RecomputeCollectStats(ctx context.Context, collectId string) (*models.CollectStats, error)
}

type reconcileResult struct {
	checked  int
	drifted  int
	repaired int
	failed   int
}

func reconcileCollect(ctx context.Context, svc StatsService, collectId string, fix bool, result *reconcileResult) {
	logger := zap.L()
	result.checked++

	drift, err := svc.VerifyCollectStats(ctx, collectId)
	if err != nil {
		logger.Error("Failed to verify collect", zap.String("collect_id", collectId), zap.Error(err))
		result.failed++
		return
	}
	if drift.InSync() {
		return
	}

	result.drifted++
	fmt.Printf("DRIFT %s: stored %s/%d, computed %s/%d\n",
		collectId,
		common.FormatCents(drift.Stored.CollectedAmountCents), drift.Stored.ContributorsCount,
		common.FormatCents(drift.Computed.CollectedAmountCents), drift.Computed.ContributorsCount)

	if !fix {
		return
	}
	if _, err := svc.RecomputeCollectStats(ctx, collectId); err != nil {
		logger.Error("Failed to repair collect", zap.String("collect_id", collectId), zap.Error(err))
		result.failed++
		return
	}
	result.repaired++
}

func reconcile(ctx context.Context, svc StatsService, collectId string, fix bool) (reconcileResult, error) {
	var result reconcileResult
	if collectId != "" {
		reconcileCollect(ctx, svc, collectId, fix, &result)
		return result, nil
	}

	for offset := 0; ; offset += pageSize {
		collects, err := svc.ListCollects(ctx, store.CollectFilter{Limit: pageSize, Offset: offset})
		if err != nil {
			return result, fmt.Errorf("failed to list collects: %w", err)
		}
		for _, c := range collects {
			reconcileCollect(ctx, svc, c.Id, fix, &result)
		}
		if len(collects) < pageSize {
			return result, nil
		}
	}
}

func main() {
	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	collectFlag := flag.String("collect", "", "Reconcile a single collect (default: all)")
	fixFlag := flag.Bool("fix", false, "Rewrite drifted aggregates from the payment rows")
	flag.Parse()

	if err := run(context.Background(), logger, *collectFlag, *fixFlag); err != nil {
		logger.Fatal("Reconciliation aborted", zap.Error(err))
	}
}

// run returns instead of exiting so deferred Close always runs
func run(ctx context.Context, logger *zap.Logger, collectId string, fix bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer services.Close()

	common.PrintHeader("COLLECT RECONCILIATION", common.DefaultWidth)

	result, err := reconcile(ctx, services.Ledger, collectId, fix)
	if err != nil {
		return err
	}

	summary := fmt.Sprintf("SUMMARY: %d checked, %d drifted, %d repaired, %d failed",
		result.checked, result.drifted, result.repaired, result.failed)
	common.PrintFooter(summary, common.DefaultWidth)

	logger.Info("Reconciliation completed",
		zap.Int("checked", result.checked),
		zap.Int("drifted", result.drifted),
		zap.Int("repaired", result.repaired),
		zap.Int("failed", result.failed))
	return nil
}
