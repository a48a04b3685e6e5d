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

	"collect-ledger-go/internal/common"
	"collect-ledger-go/internal/config"
	"collect-ledger-go/internal/models"
	"collect-ledger-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type paymentRequest struct {
	user      string
	collectId string
	amount    decimal.Decimal
	method    models.PaymentMethod
	comment   string
	anonymous bool
}

func parseAndValidateFlags(args []string) (*paymentRequest, error) {
	fs := flag.NewFlagSet("pay", flag.ContinueOnError)
	collectFlag := fs.String("collect", "", "Collect id (required)")
	amountFlag := fs.String("amount", "", "Amount to contribute, e.g. 150.00 (required)")
	methodFlag := fs.String("method", string(models.PaymentMethodCard), "Payment method: card, sbp, qiwi, yoomoney, other")
	userFlag := fs.String("user", "", "Paying user id or email (omit for a guest payment)")
	commentFlag := fs.String("comment", "", "Comment shown to the author (optional)")
	anonymousFlag := fs.Bool("anonymous", false, "Hide the payer's name from the author")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if *collectFlag == "" || *amountFlag == "" {
		return nil, fmt.Errorf("flags --collect and --amount are required")
	}

	amount, err := decimal.NewFromString(*amountFlag)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}

	return &paymentRequest{
		user:      *userFlag,
		collectId: *collectFlag,
		amount:    amount,
		method:    models.PaymentMethod(*methodFlag),
		comment:   *commentFlag,
		anonymous: *anonymousFlag,
	}, nil
}

func (r *paymentRequest) params(userId *string) store.CreatePaymentParams {
	params := store.CreatePaymentParams{
		UserId:      userId,
		CollectId:   r.collectId,
		Amount:      r.amount,
		Method:      r.method,
		IsAnonymous: r.anonymous,
	}
	if r.comment != "" {
		comment := r.comment
		params.Comment = &comment
	}
	return params
}

func main() {
	logger, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	if err := run(context.Background(), logger, os.Args[1:]); err != nil {
		logger.Fatal("Payment failed", zap.Error(err))
	}
}

// run returns instead of exiting so deferred Close drains queued notifications
func run(ctx context.Context, logger *zap.Logger, args []string) error {
	req, err := parseAndValidateFlags(args)
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

	var userId *string
	payerName := "guest"
	if req.user != "" {
		user, err := common.ResolveUser(ctx, services.DbService, req.user, logger)
		if err != nil {
			return fmt.Errorf("failed to resolve user %q: %w", req.user, err)
		}
		userId = &user.Id
		payerName = user.Name
	}

	payment, err := services.Ledger.CreatePayment(ctx, req.params(userId))
	if err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}

	progress, err := services.Ledger.GetCollectProgress(ctx, payment.CollectId)
	if err != nil {
		return fmt.Errorf("failed to load collect: %w", err)
	}

	common.PrintHeader("PAYMENT RECORDED", common.DefaultWidth)
	fmt.Printf("Payment:       %s\n", payment.Id)
	fmt.Printf("Payer:         %s\n", payerName)
	fmt.Printf("Amount:        %s (%s)\n", payment.Amount.StringFixed(2), payment.Method)
	fmt.Printf("Collect:       %s\n", progress.Collect.Title)
	fmt.Printf("Collected:     %s of %s\n",
		common.FormatCents(progress.Collect.CollectedAmountCents),
		common.FormatTarget(progress.Collect.TargetAmountCents))
	if progress.PercentCollected != nil {
		fmt.Printf("Progress:      %.1f%%\n", *progress.PercentCollected)
	}
	fmt.Printf("Contributors:  %d\n", progress.Collect.ContributorsCount)
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()
	return nil
}
