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

package common

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"collect-ledger-go/internal/models"
	"collect-ledger-go/internal/store"

	"go.uber.org/zap"
)

// UserDirectory is the part of the store the CLI user lookups need
type UserDirectory interface {
	GetUserById(ctx context.Context, userId string) (*models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)
}

// ResolveUser finds a user by id, falling back to a case-insensitive email match.
func ResolveUser(ctx context.Context, users UserDirectory, ref string, logger *zap.Logger) (*models.User, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("user reference is required")
	}

	user, err := users.GetUserById(ctx, ref)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if !strings.Contains(ref, "@") {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	logger.Info("Looking up user by email", zap.String("email", ref))
	all, err := users.GetUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}
	for i := range all {
		if strings.EqualFold(all[i].Email, ref) {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", store.NotFound("user", ref))
}
