package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/pkg/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *RedisStockCache {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	client, err := cache.NewRedisClient(&cache.Config{Addr: addr})
	if err != nil {
		t.Skipf("redis not available at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStockCache(client, time.Minute)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "inventory:stock:P1", Key("P1"))
}

func TestRedisStockCache_RoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	productID := "cache-test-" + time.Now().Format("150405.000000")

	_, ok, err := c.Get(ctx, productID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, &dto.StockSummary{ProductID: productID, Quantity: 50, ReservedQuantity: 10, AvailableQuantity: 40}))

	got, ok, err := c.Get(ctx, productID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(40), got.AvailableQuantity)

	require.NoError(t, c.Invalidate(ctx, productID))
	_, ok, err = c.Get(ctx, productID)
	require.NoError(t, err)
	assert.False(t, ok)
}
