package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/pkg/cache"
)

const keyPrefix = "inventory:stock:"

// RedisStockCache holds per-product stock summaries. It is also the
// invalidation target of the post-commit notifier.
type RedisStockCache struct {
	client *cache.RedisClient
	ttl    time.Duration
}

func NewRedisStockCache(client *cache.RedisClient, ttl time.Duration) *RedisStockCache {
	return &RedisStockCache{client: client, ttl: ttl}
}

func Key(productID string) string {
	return keyPrefix + productID
}

func (c *RedisStockCache) Get(ctx context.Context, productID string) (*dto.StockSummary, bool, error) {
	var summary dto.StockSummary
	ok, err := c.client.GetJSON(ctx, Key(productID), &summary)
	if err != nil || !ok {
		return nil, false, err
	}
	return &summary, true, nil
}

func (c *RedisStockCache) Set(ctx context.Context, summary *dto.StockSummary) error {
	if err := c.client.SetJSON(ctx, Key(summary.ProductID), summary, c.ttl); err != nil {
		return fmt.Errorf("cache stock %s: %w", summary.ProductID, err)
	}
	return nil
}

func (c *RedisStockCache) Invalidate(ctx context.Context, productID string) error {
	return c.client.Delete(ctx, Key(productID))
}
