package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

// MemoryRepository keeps idempotency records in process. It backs the
// "memory" storage driver and the use-case tests.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[string]model.IdempotencyRecord
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		records: make(map[string]model.IdempotencyRecord),
		now:     time.Now,
	}
}

func (r *MemoryRepository) Get(_ context.Context, key string) (*model.IdempotencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[key]
	if !ok {
		return nil, nil
	}
	return cloneRecord(rec), nil
}

func (r *MemoryRepository) Create(_ context.Context, rec *model.IdempotencyRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[rec.Key]; ok {
		return false, nil
	}
	r.records[rec.Key] = *cloneRecord(*rec)
	return true, nil
}

func (r *MemoryRepository) Reclaim(_ context.Context, rec *model.IdempotencyRecord, from model.IdempotencyStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.records[rec.Key]
	if !ok || cur.Status != from {
		return false, nil
	}
	cur.OperationType = rec.OperationType
	cur.TargetID = rec.TargetID
	cur.OperatorID = rec.OperatorID
	cur.Status = model.IdempotencyProcessing
	cur.RequestFingerprint = rec.RequestFingerprint
	cur.RequestPayload = append([]byte(nil), rec.RequestPayload...)
	cur.ResponsePayload = nil
	cur.ErrorCode = nil
	cur.ErrorMessage = nil
	cur.UpdatedAt = rec.UpdatedAt
	cur.ExpiresAt = rec.ExpiresAt
	r.records[rec.Key] = cur
	return true, nil
}

func (r *MemoryRepository) Complete(_ context.Context, key string, response []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.records[key]
	if !ok || cur.Status != model.IdempotencyProcessing {
		return fmt.Errorf("idempotency record %q is no longer processing", key)
	}
	cur.Status = model.IdempotencyCompleted
	cur.ResponsePayload = append([]byte(nil), response...)
	cur.UpdatedAt = r.now()
	r.records[key] = cur
	return nil
}

func (r *MemoryRepository) Fail(_ context.Context, key, code, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.records[key]
	if !ok || cur.Status != model.IdempotencyProcessing {
		return fmt.Errorf("idempotency record %q is no longer processing", key)
	}
	cur.Status = model.IdempotencyFailed
	cur.ErrorCode = &code
	cur.ErrorMessage = &message
	cur.UpdatedAt = r.now()
	r.records[key] = cur
	return nil
}

func (r *MemoryRepository) DeleteExpired(_ context.Context, now time.Time, limit int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	expired := make([]model.IdempotencyRecord, 0)
	for _, rec := range r.records {
		if rec.Expired(now) {
			expired = append(expired, rec)
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].ExpiresAt.Before(expired[j].ExpiresAt) })
	if limit > 0 && len(expired) > limit {
		expired = expired[:limit]
	}
	for _, rec := range expired {
		delete(r.records, rec.Key)
	}
	return int64(len(expired)), nil
}

// Put overwrites a record as-is. Tests use it to stage stuck or corrupt state.
func (r *MemoryRepository) Put(rec model.IdempotencyRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[rec.Key] = *cloneRecord(rec)
}

func cloneRecord(rec model.IdempotencyRecord) *model.IdempotencyRecord {
	out := rec
	out.RequestPayload = append([]byte(nil), rec.RequestPayload...)
	if rec.ResponsePayload != nil {
		out.ResponsePayload = append([]byte(nil), rec.ResponsePayload...)
	}
	return &out
}
