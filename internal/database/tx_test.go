package database

import (
	"context"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"collect-ledger-go/internal/models"
	"collect-ledger-go/internal/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func setupMockDb(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return newService(db, 1, time.Millisecond), mock
}

func anyArgs(n int) []driver.Value {
	args := make([]driver.Value, n)
	for i := range args {
		args[i] = sqlmock.AnyArg()
	}
	return args
}

func TestCreatePayment_AggregateFailureRollsBack(t *testing.T) {
	service, mock := setupMockDb(t)

	mock.ExpectBegin()
	mock.ExpectQuery(queryCollectExists).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec(queryInsertPayment).
		WithArgs(anyArgs(12)...).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(queryApplyPaymentDelta).
		WithArgs(int64(1250), int64(0), sqlmock.AnyArg(), "c1").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectRollback()

	_, err := service.CreatePayment(context.Background(), store.CreatePaymentParams{
		CollectId: "c1",
		Amount:    decimal.RequireFromString("12.50"),
		Method:    models.PaymentMethodCard,
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to update collect aggregates")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePayment_CollectVanishedBeforeUpdate(t *testing.T) {
	service, mock := setupMockDb(t)

	mock.ExpectBegin()
	mock.ExpectQuery(queryCollectExists).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec(queryInsertPayment).
		WithArgs(anyArgs(12)...).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(queryApplyPaymentDelta).
		WithArgs(int64(500), int64(0), sqlmock.AnyArg(), "c1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := service.CreatePayment(context.Background(), store.CreatePaymentParams{
		CollectId: "c1",
		Amount:    decimal.NewFromInt(5),
		Method:    models.PaymentMethodCard,
	})
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTx_ContentionExhaustsToConflict(t *testing.T) {
	service, mock := setupMockDb(t)

	busy := sqlite3.Error{Code: sqlite3.ErrBusy}
	mock.ExpectBegin().WillReturnError(busy)
	mock.ExpectBegin().WillReturnError(busy)

	_, err := service.CreatePayment(context.Background(), store.CreatePaymentParams{
		CollectId: "c1",
		Amount:    decimal.NewFromInt(5),
		Method:    models.PaymentMethodCard,
	})
	require.ErrorIs(t, err, store.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTx_RetriesThenCommits(t *testing.T) {
	service, mock := setupMockDb(t)

	mock.ExpectBegin().WillReturnError(sqlite3.Error{Code: sqlite3.ErrLocked})
	mock.ExpectBegin()
	mock.ExpectExec(queryDeleteCollect).
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, service.DeleteCollect(context.Background(), "c1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTx_NonContentionErrorIsNotRetried(t *testing.T) {
	service, mock := setupMockDb(t)

	mock.ExpectBegin()
	mock.ExpectExec(queryDeleteUser).
		WithArgs("u1").
		WillReturnError(sqlite3.Error{Code: sqlite3.ErrConstraint})
	mock.ExpectRollback()

	err := service.DeleteUser(context.Background(), "u1")
	require.Error(t, err)
	require.NotErrorIs(t, err, store.ErrConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIsContention(t *testing.T) {
	require.True(t, isContention(sqlite3.Error{Code: sqlite3.ErrBusy}))
	require.True(t, isContention(errors.Join(errors.New("wrapped"), sqlite3.Error{Code: sqlite3.ErrLocked})))
	require.False(t, isContention(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	require.False(t, isContention(errors.New("boom")))
}

func TestListPaymentsMapsColumns(t *testing.T) {
	service, mock := setupMockDb(t)

	created := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "user_id", "collect_id", "amount", "amount_cents", "payment_method",
		"status", "comment", "is_anonymous", "counts_contributor", "created_at", "updated_at"}).
		AddRow("p1", nil, "c1", "150.00", int64(15000), "sbp", "pending", "thanks", true, false, created, created).
		AddRow("p2", "u1", "c1", "20.50", int64(2050), "card", "completed", nil, false, true, created, created)

	mock.ExpectQuery(queryListPayments+" WHERE collect_id = ? ORDER BY created_at DESC, id LIMIT ? OFFSET ?").
		WithArgs("c1", 20, 0).
		WillReturnRows(rows)

	payments, err := service.ListPayments(context.Background(), store.PaymentFilter{CollectId: "c1"})
	require.NoError(t, err)
	require.Len(t, payments, 2)

	guest := payments[0]
	require.Nil(t, guest.UserId)
	require.NotNil(t, guest.Comment)
	require.Equal(t, "thanks", *guest.Comment)
	require.True(t, guest.Amount.Equal(decimal.RequireFromString("150")))
	require.Equal(t, models.PaymentMethodSbp, guest.Method)

	member := payments[1]
	require.NotNil(t, member.UserId)
	require.Equal(t, "u1", *member.UserId)
	require.Nil(t, member.Comment)
	require.True(t, member.CountsContributor)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{0, 0, 20, 0},
		{-3, -1, 20, 0},
		{50, 10, 50, 10},
		{100, 0, 100, 0},
		{150, 0, 100, 0},
	}
	for _, tt := range tests {
		limit, offset := normalizePage(tt.limit, tt.offset)
		require.Equal(t, tt.wantLimit, limit, "limit for %d", tt.limit)
		require.Equal(t, tt.wantOffset, offset, "offset for %d", tt.offset)
	}
}

func TestListCollects_OversizedLimitIsCapped(t *testing.T) {
	service, mock := setupMockDb(t)

	mock.ExpectQuery(queryListCollects+" ORDER BY created_at DESC, id LIMIT ? OFFSET ?").
		WithArgs(100, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	collects, err := service.ListCollects(context.Background(), store.CollectFilter{Limit: 150})
	require.NoError(t, err)
	require.Empty(t, collects)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyCollectStats_ReadsInOneTransaction(t *testing.T) {
	service, mock := setupMockDb(t)

	mock.ExpectBegin()
	mock.ExpectQuery(queryGetStoredCollectStats).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"collected_amount_cents", "contributors_count"}).AddRow(int64(2500), int64(2)))
	mock.ExpectQuery(queryComputeCollectStats).
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"amount", "contributors", "payments"}).AddRow(int64(2500), int64(2), int64(3)))
	mock.ExpectCommit()

	drift, err := service.VerifyCollectStats(context.Background(), "c1")
	require.NoError(t, err)
	require.True(t, drift.InSync())
	require.Equal(t, int64(3), drift.Computed.PaymentsCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyCollectStats_UnknownCollectRollsBack(t *testing.T) {
	service, mock := setupMockDb(t)

	mock.ExpectBegin()
	mock.ExpectQuery(queryGetStoredCollectStats).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"collected_amount_cents", "contributors_count"}))
	mock.ExpectRollback()

	_, err := service.VerifyCollectStats(context.Background(), "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
