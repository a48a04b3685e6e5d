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
	"errors"
	"flag"
	"fmt"
	"regexp"

	"collect-ledger-go/internal/common"
	"collect-ledger-go/internal/config"
	"collect-ledger-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// validateEmail accepts an empty address: such users simply get no notifications
func validateEmail(email string) error {
	if email == "" {
		return nil
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email format: %s", email)
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) < 2 {
		return fmt.Errorf("name must be at least 2 characters")
	}
	return nil
}

func main() {
	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	// Parse command line flags
	nameFlag := flag.String("name", "", "User's display name (required)")
	emailFlag := flag.String("email", "", "User's email address (optional, enables notifications)")
	flag.Parse()

	if err := run(context.Background(), *nameFlag, *emailFlag); err != nil {
		zap.L().Fatal("Failed to add user", zap.Error(err))
	}
}

func run(ctx context.Context, name, email string) error {
	if err := validateName(name); err != nil {
		return fmt.Errorf("invalid name: %w", err)
	}
	if err := validateEmail(email); err != nil {
		return fmt.Errorf("invalid email: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer dbService.Close()

	user, err := dbService.CreateUser(ctx, uuid.New().String(), name, email)
	if err != nil {
		if errors.Is(err, store.ErrValidation) {
			return fmt.Errorf("user already exists with email %q: %w", email, err)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	common.PrintHeader("USER CREATED", common.DefaultWidth)
	fmt.Printf("ID:    %s\n", user.Id)
	fmt.Printf("Name:  %s\n", user.Name)
	if user.Email != "" {
		fmt.Printf("Email: %s\n", user.Email)
	} else {
		fmt.Println("Email: (none, notifications disabled)")
	}
	common.PrintSeparator("=", common.DefaultWidth)
	fmt.Println()
	return nil
}
