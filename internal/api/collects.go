package api

import (
	"context"

	"collect-ledger-go/internal/cache"
	"collect-ledger-go/internal/models"
	"collect-ledger-go/internal/store"

	"go.uber.org/zap"
)

func (s *LedgerService) CreateCollect(ctx context.Context, params store.CreateCollectParams) (*models.Collect, error) {
	collect, err := s.store.CreateCollect(ctx, params)
	if err != nil {
		zap.L().Warn("Create collect rejected", append(requestFields(ctx), zap.String("author_id", params.AuthorId), zap.Error(err))...)
		return nil, err
	}

	s.emit(ctx, models.Event{Type: models.EventCollectCreated, CollectId: collect.Id, Collect: collect})
	return collect, nil
}

func (s *LedgerService) GetCollect(ctx context.Context, collectId string) (*models.Collect, error) {
	return cachedRead(ctx, s, cache.CollectKey(collectId), s.collectTTL, func() (*models.Collect, error) {
		return s.store.GetCollect(ctx, collectId)
	})
}

func (s *LedgerService) ListCollects(ctx context.Context, filter store.CollectFilter) ([]models.Collect, error) {
	return cachedRead(ctx, s, cache.CollectListKey(filter), s.collectTTL, func() ([]models.Collect, error) {
		return s.store.ListCollects(ctx, filter)
	})
}

// GetCollectProgress derives target progress from the cached collect
func (s *LedgerService) GetCollectProgress(ctx context.Context, collectId string) (*models.CollectProgress, error) {
	collect, err := s.GetCollect(ctx, collectId)
	if err != nil {
		return nil, err
	}
	progress := models.NewCollectProgress(*collect, s.now())
	return &progress, nil
}

func (s *LedgerService) UpdateCollect(ctx context.Context, collectId string, params store.UpdateCollectParams) (*models.Collect, error) {
	collect, err := s.store.UpdateCollect(ctx, collectId, params)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, models.Event{Type: models.EventCollectUpdated, CollectId: collectId, Collect: collect})
	return collect, nil
}

func (s *LedgerService) DeactivateCollect(ctx context.Context, collectId string) (*models.Collect, error) {
	collect, err := s.store.DeactivateCollect(ctx, collectId)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, models.Event{Type: models.EventCollectUpdated, CollectId: collectId, Collect: collect})
	return collect, nil
}

func (s *LedgerService) DeleteCollect(ctx context.Context, collectId string) error {
	if err := s.store.DeleteCollect(ctx, collectId); err != nil {
		return err
	}

	s.emit(ctx, models.Event{Type: models.EventCollectDeleted, CollectId: collectId})
	return nil
}

// RecomputeCollectStats repairs a collect's aggregates from its payments
func (s *LedgerService) RecomputeCollectStats(ctx context.Context, collectId string) (*models.CollectStats, error) {
	stats, err := s.store.RecomputeCollectStats(ctx, collectId)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, models.Event{Type: models.EventCollectUpdated, CollectId: collectId})
	return stats, nil
}

// VerifyCollectStats bypasses the cache so it compares against committed data
func (s *LedgerService) VerifyCollectStats(ctx context.Context, collectId string) (*models.StatsDrift, error) {
	return s.store.VerifyCollectStats(ctx, collectId)
}
