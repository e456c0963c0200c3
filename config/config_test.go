package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadEnv_Defaults(t *testing.T) {
	cfg := LoadEnv()

	assert.Equal(t, "postgres", cfg.Server.StorageDriver)
	assert.Equal(t, 24*time.Hour, cfg.Inventory.IdempotencyTTL)
	assert.Equal(t, "updated", cfg.Inventory.OutboundPickOrder)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
}

func TestLoadEnv_Overrides(t *testing.T) {
	t.Setenv("IDEMPOTENCY_TTL", "90m")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("LOW_STOCK_DEFAULT", "7")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("POSTGRES_MAX_OPEN_CONNS", "not-a-number")

	cfg := LoadEnv()

	assert.Equal(t, 90*time.Minute, cfg.Inventory.IdempotencyTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, int64(7), cfg.Inventory.LowStockDefault)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, 10, cfg.Postgres.MaxOpenConns)
}
