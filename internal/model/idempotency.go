package model

import "time"

type IdempotencyStatus string

const (
	IdempotencyProcessing IdempotencyStatus = "processing"
	IdempotencyCompleted  IdempotencyStatus = "completed"
	IdempotencyFailed     IdempotencyStatus = "failed"
)

// IdempotencyRecord gates one client-submitted operation. Payloads are
// versioned envelopes produced by the idempotency codec.
type IdempotencyRecord struct {
	Key                string            `db:"idempotency_key"`
	OperationType      OperationType     `db:"operation_type"`
	TargetID           string            `db:"target_id"`
	OperatorID         string            `db:"operator_id"`
	Status             IdempotencyStatus `db:"status"`
	RequestFingerprint string            `db:"request_fingerprint"`
	RequestPayload     []byte            `db:"request_payload"`
	ResponsePayload    []byte            `db:"response_payload"`
	ErrorCode          *string           `db:"error_code"`
	ErrorMessage       *string           `db:"error_message"`
	CreatedAt          time.Time         `db:"created_at"`
	UpdatedAt          time.Time         `db:"updated_at"`
	ExpiresAt          time.Time         `db:"expires_at"`
}

func (r *IdempotencyRecord) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}
