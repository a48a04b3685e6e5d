package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"collect-ledger-go/internal/metrics"
	"collect-ledger-go/internal/models"
	"collect-ledger-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func nullableCents(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

// CreateCollect stores a new collect with zeroed aggregates
func (s *Service) CreateCollect(ctx context.Context, params store.CreateCollectParams) (*models.Collect, error) {
	now := s.now()
	if err := store.ValidateCreateCollect(params, now); err != nil {
		return nil, err
	}

	collect := &models.Collect{
		Id:                uuid.New().String(),
		AuthorId:          params.AuthorId,
		Title:             params.Title,
		Occasion:          params.Occasion,
		Description:       params.Description,
		TargetAmountCents: params.TargetAmountCents,
		CoverImage:        params.CoverImage,
		EndsAt:            params.EndsAt.UTC(),
		IsActive:          true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err := s.runInTx(ctx, "create_collect", func(tx *sql.Tx) error {
		if err := ensureUserExists(ctx, tx, params.AuthorId); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, queryInsertCollect,
			collect.Id, collect.AuthorId, collect.Title, collect.Occasion, collect.Description,
			nullableCents(collect.TargetAmountCents), collect.CoverImage, collect.EndsAt,
			collect.CreatedAt, collect.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert collect: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordCollect(string(collect.Occasion))
	zap.L().Info("Collect created",
		zap.String("collect_id", collect.Id),
		zap.String("author_id", collect.AuthorId),
		zap.String("occasion", string(collect.Occasion)),
		zap.Bool("open_ended", collect.IsOpenEnded()))
	return collect, nil
}

func (s *Service) GetCollect(ctx context.Context, collectId string) (*models.Collect, error) {
	zap.L().Debug("Querying collect", zap.String("collect_id", collectId))

	var collect models.Collect
	err := s.db.GetContext(ctx, &collect, queryGetCollect, collectId)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.NotFound("collect", collectId)
		}
		zap.L().Error("Failed to query collect", zap.String("collect_id", collectId), zap.Error(err))
		return nil, fmt.Errorf("unable to query collect: %w", err)
	}
	return &collect, nil
}

// ListCollects returns collects newest first
func (s *Service) ListCollects(ctx context.Context, filter store.CollectFilter) ([]models.Collect, error) {
	limit, offset := normalizePage(filter.Limit, filter.Offset)

	var where []string
	var args []any
	if filter.AuthorId != "" {
		where = append(where, "author_id = ?")
		args = append(args, filter.AuthorId)
	}
	if filter.Occasion != "" {
		where = append(where, "occasion = ?")
		args = append(args, filter.Occasion)
	}
	if filter.Active != nil {
		where = append(where, "is_active = ?")
		args = append(args, *filter.Active)
	}

	query := queryListCollects
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	collects := []models.Collect{}
	if err := s.db.SelectContext(ctx, &collects, query, args...); err != nil {
		zap.L().Error("Failed to list collects", zap.Error(err))
		return nil, fmt.Errorf("failed to list collects: %w", err)
	}

	zap.L().Debug("Listed collects", zap.Int("count", len(collects)), zap.Int("limit", limit), zap.Int("offset", offset))
	return collects, nil
}

// UpdateCollect patches descriptive fields. Aggregates are never touched here.
func (s *Service) UpdateCollect(ctx context.Context, collectId string, params store.UpdateCollectParams) (*models.Collect, error) {
	now := s.now()
	if err := store.ValidateUpdateCollect(params, now); err != nil {
		return nil, err
	}

	var sets []string
	var args []any
	if params.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *params.Title)
	}
	if params.Occasion != nil {
		sets = append(sets, "occasion = ?")
		args = append(args, *params.Occasion)
	}
	if params.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *params.Description)
	}
	if params.ClearTarget {
		sets = append(sets, "target_amount_cents = NULL")
	} else if params.TargetAmountCents != nil {
		sets = append(sets, "target_amount_cents = ?")
		args = append(args, *params.TargetAmountCents)
	}
	if params.CoverImage != nil {
		sets = append(sets, "cover_image = ?")
		args = append(args, *params.CoverImage)
	}
	if params.EndsAt != nil {
		sets = append(sets, "ends_at = ?")
		args = append(args, params.EndsAt.UTC())
	}
	if params.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, *params.IsActive)
	}
	if len(sets) == 0 {
		return s.GetCollect(ctx, collectId)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, now, collectId)
	query := "UPDATE collects SET " + strings.Join(sets, ", ") + " WHERE id = ?"

	err := s.runInTx(ctx, "update_collect", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to update collect: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		if affected == 0 {
			return store.NotFound("collect", collectId)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Collect updated", zap.String("collect_id", collectId), zap.Int("fields", len(sets)-1))
	return s.GetCollect(ctx, collectId)
}

// DeleteCollect hard-deletes a collect; its payments cascade with it
func (s *Service) DeleteCollect(ctx context.Context, collectId string) error {
	err := s.runInTx(ctx, "delete_collect", func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, queryDeleteCollect, collectId)
		if err != nil {
			return fmt.Errorf("failed to delete collect: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to check rows affected: %w", err)
		}
		if affected == 0 {
			return store.NotFound("collect", collectId)
		}
		return nil
	})
	if err != nil {
		return err
	}

	zap.L().Info("Collect deleted", zap.String("collect_id", collectId))
	return nil
}

func ensureCollectExists(ctx context.Context, tx *sql.Tx, collectId string) error {
	var one int
	err := tx.QueryRowContext(ctx, queryCollectExists, collectId).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return store.NotFound("collect", collectId)
	}
	if err != nil {
		return fmt.Errorf("failed to look up collect: %w", err)
	}
	return nil
}

// DeactivateCollect closes a collect to new listings without removing it
func (s *Service) DeactivateCollect(ctx context.Context, collectId string) (*models.Collect, error) {
	inactive := false
	return s.UpdateCollect(ctx, collectId, store.UpdateCollectParams{IsActive: &inactive})
}
