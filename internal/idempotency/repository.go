package idempotency

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

// Repository persists one record per idempotency key. Every transition is a
// single conditional statement so that concurrent coordinators racing on the
// same key cannot both win.
type Repository interface {
	// Get returns nil when the key has never been seen (or has been swept).
	Get(ctx context.Context, key string) (*model.IdempotencyRecord, error)

	// Create inserts rec if its key is absent. False means another caller
	// already owns the key.
	Create(ctx context.Context, rec *model.IdempotencyRecord) (bool, error)

	// Reclaim moves a record currently in status from back to processing,
	// replacing its request data. False means the record changed underneath.
	Reclaim(ctx context.Context, rec *model.IdempotencyRecord, from model.IdempotencyStatus) (bool, error)

	Complete(ctx context.Context, key string, response []byte) error
	Fail(ctx context.Context, key, code, message string) error

	// DeleteExpired removes at most limit records whose expires_at is not after now.
	DeleteExpired(ctx context.Context, now time.Time, limit int) (int64, error)
}
