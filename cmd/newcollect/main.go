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
	"os"
	"strings"
	"time"

	"collect-ledger-go/internal/common"
	"collect-ledger-go/internal/config"
	"collect-ledger-go/internal/models"
	"collect-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type collectRequest struct {
	author string
	params store.CreateCollectParams
}

func parseAndValidateFlags(args []string, now time.Time) (*collectRequest, error) {
	fs := flag.NewFlagSet("newcollect", flag.ContinueOnError)
	authorFlag := fs.String("author", "", "Author id or email (required)")
	titleFlag := fs.String("title", "", "Collect title (required)")
	occasionFlag := fs.String("occasion", string(models.OccasionOther), "Occasion: "+occasionList())
	descriptionFlag := fs.String("description", "", "Description (required)")
	targetFlag := fs.String("target", "", "Target amount, e.g. 5000.00 (omit for an open-ended collect)")
	daysFlag := fs.Int("days", 30, "Days until the collect ends")
	coverFlag := fs.String("cover", "", "Cover image path (optional)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *authorFlag == "" || *titleFlag == "" || *descriptionFlag == "" {
		return nil, fmt.Errorf("flags --author, --title and --description are required")
	}
	if *daysFlag < 0 {
		return nil, fmt.Errorf("--days cannot be negative")
	}

	params := store.CreateCollectParams{
		Title:       *titleFlag,
		Occasion:    models.Occasion(*occasionFlag),
		Description: *descriptionFlag,
		CoverImage:  *coverFlag,
		EndsAt:      now.Add(time.Duration(*daysFlag) * 24 * time.Hour),
	}

	if *targetFlag != "" {
		target, err := decimal.NewFromString(*targetFlag)
		if err != nil {
			return nil, fmt.Errorf("invalid target format: %w", err)
		}
		cents, ok := store.ToMinorUnits(target)
		if !ok {
			return nil, fmt.Errorf("target must have at most two decimal places")
		}
		params.TargetAmountCents = &cents
	}

	return &collectRequest{author: *authorFlag, params: params}, nil
}

func occasionList() string {
	names := make([]string, len(models.Occasions))
	for i, o := range models.Occasions {
		names[i] = string(o)
	}
	return strings.Join(names, ", ")
}

func main() {
	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	if err := run(context.Background(), logger, os.Args[1:], time.Now().UTC()); err != nil {
		logger.Fatal("Collect creation failed", zap.Error(err))
	}
}

// run returns instead of exiting so deferred Close drains queued notifications
func run(ctx context.Context, logger *zap.Logger, args []string, now time.Time) error {
	req, err := parseAndValidateFlags(args, now)
	if err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	defer services.Close()

	author, err := common.ResolveUser(ctx, services.DbService, req.author, logger)
	if err != nil {
		return fmt.Errorf("failed to resolve author %q: %w", req.author, err)
	}
	req.params.AuthorId = author.Id

	collect, err := services.Ledger.CreateCollect(ctx, req.params)
	if err != nil {
		return fmt.Errorf("failed to create collect: %w", err)
	}

	common.PrintHeader("COLLECT CREATED", common.DefaultWidth)
	fmt.Printf("ID:        %s\n", collect.Id)
	fmt.Printf("Title:     %s\n", collect.Title)
	fmt.Printf("Author:    %s\n", author.Name)
	fmt.Printf("Occasion:  %s\n", collect.Occasion)
	fmt.Printf("Target:    %s\n", common.FormatTarget(collect.TargetAmountCents))
	fmt.Printf("Ends:      %s\n", collect.EndsAt.Format("2006-01-02 15:04"))
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()
	return nil
}
