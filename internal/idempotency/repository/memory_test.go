package repository

import (
	"context"
	"testing"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord(key string, expires time.Time) *model.IdempotencyRecord {
	return &model.IdempotencyRecord{
		Key:                key,
		OperationType:      model.OperationInbound,
		TargetID:           "P1",
		OperatorID:         "u1",
		Status:             model.IdempotencyProcessing,
		RequestFingerprint: "fp",
		RequestPayload:     []byte(`{"v":1,"data":{}}`),
		ExpiresAt:          expires,
	}
}

func TestMemoryRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	exp := time.Now().Add(time.Hour)

	rec, err := repo.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Nil(t, rec)

	ok, err := repo.Create(ctx, newRecord("k1", exp))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Create(ctx, newRecord("k1", exp))
	require.NoError(t, err)
	assert.False(t, ok, "second create on the same key must lose")

	require.NoError(t, repo.Fail(ctx, "k1", "InsufficientStock", "not enough"))
	assert.Error(t, repo.Fail(ctx, "k1", "x", "y"), "only processing records can fail")

	rec, err = repo.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, model.IdempotencyFailed, rec.Status)
	require.NotNil(t, rec.ErrorCode)
	assert.Equal(t, "InsufficientStock", *rec.ErrorCode)

	ok, err = repo.Reclaim(ctx, newRecord("k1", exp), model.IdempotencyCompleted)
	require.NoError(t, err)
	assert.False(t, ok, "reclaim from the wrong status is refused")

	ok, err = repo.Reclaim(ctx, newRecord("k1", exp), model.IdempotencyFailed)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.Complete(ctx, "k1", []byte("done")))
	rec, err = repo.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, model.IdempotencyCompleted, rec.Status)
	assert.Equal(t, []byte("done"), rec.ResponsePayload)
	assert.Nil(t, rec.ErrorCode)
}

func TestMemoryRepository_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	for i, key := range []string{"a", "b", "c"} {
		_, err := repo.Create(ctx, newRecord(key, now.Add(-time.Duration(i+1)*time.Minute)))
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, newRecord("live", now.Add(time.Minute)))
	require.NoError(t, err)

	n, err := repo.DeleteExpired(ctx, now, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	// Oldest first: c and b are gone, a remains.
	rec, _ := repo.Get(ctx, "c")
	assert.Nil(t, rec)
	rec, _ = repo.Get(ctx, "a")
	assert.NotNil(t, rec)

	n, err = repo.DeleteExpired(ctx, now, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rec, _ = repo.Get(ctx, "live")
	assert.NotNil(t, rec)
}
