package sweeper

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/idempotency/repository"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweep_DeletesInBatches(t *testing.T) {
	repo := repository.NewMemoryRepository()
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 7; i++ {
		repo.Put(model.IdempotencyRecord{
			Key:       fmt.Sprintf("old-%d", i),
			Status:    model.IdempotencyProcessing,
			ExpiresAt: now.Add(-time.Minute),
		})
	}
	repo.Put(model.IdempotencyRecord{Key: "fresh", Status: model.IdempotencyCompleted, ExpiresAt: now.Add(time.Hour)})

	s := NewSweeper(repo, time.Minute, 3, nil, logger.NewNop())
	s.now = func() time.Time { return now }

	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	rec, err := repo.Get(context.Background(), "old-0")
	require.NoError(t, err)
	assert.Nil(t, rec)
	rec, err = repo.Get(context.Background(), "fresh")
	require.NoError(t, err)
	assert.NotNil(t, rec)
}

func TestStart_StopsOnCancel(t *testing.T) {
	s := NewSweeper(repository.NewMemoryRepository(), time.Millisecond, 10, nil, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
