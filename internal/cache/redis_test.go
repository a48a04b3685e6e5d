package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"collect-ledger-go/internal/models"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCache_GetHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()
	c := NewRedisCache(db, "ledger")

	mock.ExpectGet("ledger:cache:generation").SetVal("3")
	mock.ExpectGet("ledger:cache:3:collects:get:c1").SetVal(`{"id":"c1","collected_amount_cents":35000}`)

	var out models.Collect
	hit, err := c.Get(ctx, CollectKey("c1"), &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, int64(35000), out.CollectedAmountCents)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_GetMissWithoutGeneration(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCache(db, "ledger")

	mock.ExpectGet("ledger:cache:generation").RedisNil()
	mock.ExpectGet("ledger:cache:0:payments:get:p1").RedisNil()

	var out models.Payment
	hit, err := c.Get(context.Background(), PaymentKey("p1"), &out)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_Set(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCache(db, "ledger")

	value := map[string]int{"n": 1}
	data, err := json.Marshal(value)
	require.NoError(t, err)

	mock.ExpectGet("ledger:cache:generation").SetVal("7")
	mock.ExpectSet("ledger:cache:7:k", data, 2*time.Minute).SetVal("OK")

	require.NoError(t, c.Set(context.Background(), "k", value, 2*time.Minute))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_InvalidateAllBumpsGeneration(t *testing.T) {
	db, mock := redismock.NewClientMock()
	c := NewRedisCache(db, "ledger")

	mock.ExpectIncr("ledger:cache:generation").SetVal(8)

	require.NoError(t, c.InvalidateAll(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_Errors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	ctx := context.Background()
	c := NewRedisCache(db, "")

	mock.ExpectGet("ledger:cache:generation").SetErr(assert.AnError)
	var out models.Collect
	_, err := c.Get(ctx, CollectKey("c1"), &out)
	assert.Error(t, err)

	mock.ExpectIncr("ledger:cache:generation").SetErr(assert.AnError)
	assert.Error(t, c.InvalidateAll(ctx))

	assert.NoError(t, mock.ExpectationsWereMet())
}
