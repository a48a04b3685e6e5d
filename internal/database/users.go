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
	"errors"
	"fmt"
	"strings"

	"collect-ledger-go/internal/models"
	"collect-ledger-go/internal/store"

	"go.uber.org/zap"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner, user *models.User) error {
	var email sql.NullString
	if err := row.Scan(&user.Id, &user.Name, &email, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return err
	}
	user.Email = email.String
	return nil
}

func (s *Service) GetUsers(ctx context.Context) ([]models.User, error) {
	zap.L().Debug("Querying users")

	rows, err := s.db.QueryContext(ctx, queryGetUsers)
	if err != nil {
		zap.L().Error("Failed to query users", zap.Error(err))
		return nil, fmt.Errorf("unable to query users: %w", err)
	}
	defer closeRows(rows)

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := scanUser(rows, &user); err != nil {
			zap.L().Error("Failed to scan user row", zap.Error(err))
			return nil, fmt.Errorf("unable to scan user row: %w", err)
		}
		users = append(users, user)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during user row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	zap.L().Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}

func (s *Service) GetUserById(ctx context.Context, userId string) (*models.User, error) {
	zap.L().Debug("Querying user by ID", zap.String("user_id", userId))

	var user models.User
	err := scanUser(s.db.QueryRowContext(ctx, queryGetUserById, userId), &user)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.NotFound("user", userId)
		}
		zap.L().Error("Failed to query user by ID", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to query user by ID: %w", err)
	}

	zap.L().Debug("Retrieved user by ID", zap.String("user_id", userId), zap.String("name", user.Name))
	return &user, nil
}

// CreateUser stores a user. An empty email leaves the user without a contact
// address, which suppresses their notifications.
func (s *Service) CreateUser(ctx context.Context, userId, name, email string) (*models.User, error) {
	zap.L().Info("Creating user", zap.String("id", userId), zap.String("name", name), zap.String("email", email))

	verr := &store.ValidationError{}
	if strings.TrimSpace(userId) == "" {
		verr.Add("id", "is required")
	}
	if strings.TrimSpace(name) == "" {
		verr.Add("name", "is required")
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	var contact sql.NullString
	if email != "" {
		contact = sql.NullString{String: email, Valid: true}
	}

	now := s.now()
	result, err := s.db.ExecContext(ctx, queryInsertUser, userId, name, contact, now, now)
	if err != nil {
		zap.L().Error("Failed to insert user", zap.String("email", email), zap.Error(err))
		return nil, fmt.Errorf("unable to insert user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		zap.L().Error("Failed to get rows affected", zap.Error(err))
		return nil, fmt.Errorf("unable to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return nil, (&store.ValidationError{}).Add("email", "user with this id or email already exists").Err()
	}

	zap.L().Info("User created successfully", zap.String("id", userId), zap.String("name", name), zap.String("email", email))

	// Return the created user
	return s.GetUserById(ctx, userId)
}

// DeleteUser removes a user. Their own collects (and those collects' payments)
// cascade away; payments they made elsewhere survive with the user cleared,
// keeping the contributor flag they were counted with.
func (s *Service) DeleteUser(ctx context.Context, userId string) error {
	zap.L().Info("Deleting user", zap.String("user_id", userId))

	err := s.runInTx(ctx, "delete_user", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, queryDeleteUser, userId)
		if err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		if affected == 0 {
			return store.NotFound("user", userId)
		}
		return nil
	})
	if err != nil {
		return err
	}

	zap.L().Info("User deleted", zap.String("user_id", userId))
	return nil
}

func ensureUserExists(ctx context.Context, tx *sql.Tx, userId string) error {
	var one int
	err := tx.QueryRowContext(ctx, queryUserExists, userId).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return store.NotFound("user", userId)
	}
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	return nil
}
