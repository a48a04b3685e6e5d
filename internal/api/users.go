package api

import (
	"context"

	"collect-ledger-go/internal/models"
)

func (s *LedgerService) CreateUser(ctx context.Context, userId, name, email string) (*models.User, error) {
	return s.store.CreateUser(ctx, userId, name, email)
}

func (s *LedgerService) GetUsers(ctx context.Context) ([]models.User, error) {
	return s.store.GetUsers(ctx)
}

// DeleteUser removes the user and their collects, so cached reads are dropped too
func (s *LedgerService) DeleteUser(ctx context.Context, userId string) error {
	if err := s.store.DeleteUser(ctx, userId); err != nil {
		return err
	}

	s.emit(ctx, models.Event{Type: models.EventUserDeleted})
	return nil
}
