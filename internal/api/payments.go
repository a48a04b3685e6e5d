package api

import (
	"context"

	"collect-ledger-go/internal/cache"
	"collect-ledger-go/internal/models"
	"collect-ledger-go/internal/store"

	"go.uber.org/zap"
)

// CreatePayment records a contribution. The event is emitted only after the
// payment and its aggregate update have committed together.
func (s *LedgerService) CreatePayment(ctx context.Context, params store.CreatePaymentParams) (*models.Payment, error) {
	payment, err := s.store.CreatePayment(ctx, params)
	if err != nil {
		zap.L().Warn("Create payment rejected", append(requestFields(ctx), zap.String("collect_id", params.CollectId), zap.Error(err))...)
		return nil, err
	}

	s.emit(ctx, models.Event{Type: models.EventPaymentCreated, CollectId: payment.CollectId, Payment: payment})
	return payment, nil
}

func (s *LedgerService) GetPayment(ctx context.Context, paymentId string) (*models.Payment, error) {
	return cachedRead(ctx, s, cache.PaymentKey(paymentId), s.paymentTTL, func() (*models.Payment, error) {
		return s.store.GetPayment(ctx, paymentId)
	})
}

func (s *LedgerService) ListPayments(ctx context.Context, filter store.PaymentFilter) ([]models.Payment, error) {
	return cachedRead(ctx, s, cache.PaymentListKey(filter), s.paymentTTL, func() ([]models.Payment, error) {
		return s.store.ListPayments(ctx, filter)
	})
}

func (s *LedgerService) UpdatePaymentStatus(ctx context.Context, paymentId string, status models.PaymentStatus) (*models.Payment, error) {
	payment, err := s.store.UpdatePaymentStatus(ctx, paymentId, status)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, models.Event{Type: models.EventPaymentUpdated, CollectId: payment.CollectId, Payment: payment})
	return payment, nil
}

func (s *LedgerService) DeletePayment(ctx context.Context, paymentId string) (*models.Payment, error) {
	payment, err := s.store.DeletePayment(ctx, paymentId)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, models.Event{Type: models.EventPaymentDeleted, CollectId: payment.CollectId, Payment: payment})
	return payment, nil
}
