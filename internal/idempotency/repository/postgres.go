package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Get(ctx context.Context, key string) (*model.IdempotencyRecord, error) {
	var rec model.IdempotencyRecord
	err := r.DB.GetContext(ctx, &rec, `SELECT * FROM idempotency_records WHERE idempotency_key = $1`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get idempotency record: %w", err)
	}
	return &rec, nil
}

func (r *PGRepository) Create(ctx context.Context, rec *model.IdempotencyRecord) (bool, error) {
	query := `
        INSERT INTO idempotency_records (
            idempotency_key, operation_type, target_id, operator_id, status,
            request_fingerprint, request_payload, created_at, updated_at, expires_at
        )
        VALUES (
            :idempotency_key, :operation_type, :target_id, :operator_id, :status,
            :request_fingerprint, :request_payload, :created_at, :updated_at, :expires_at
        )
        ON CONFLICT (idempotency_key) DO NOTHING
    `
	res, err := r.DB.NamedExecContext(ctx, query, rec)
	if err != nil {
		return false, fmt.Errorf("create idempotency record: %w", err)
	}
	return affectedOne(res)
}

func (r *PGRepository) Reclaim(ctx context.Context, rec *model.IdempotencyRecord, from model.IdempotencyStatus) (bool, error) {
	query := `
        UPDATE idempotency_records SET
            operation_type = $3,
            target_id = $4,
            operator_id = $5,
            status = $6,
            request_fingerprint = $7,
            request_payload = $8,
            response_payload = NULL,
            error_code = NULL,
            error_message = NULL,
            updated_at = $9,
            expires_at = $10
        WHERE idempotency_key = $1 AND status = $2
    `
	res, err := r.DB.ExecContext(ctx, query,
		rec.Key, from,
		rec.OperationType, rec.TargetID, rec.OperatorID, model.IdempotencyProcessing,
		rec.RequestFingerprint, rec.RequestPayload, rec.UpdatedAt, rec.ExpiresAt,
	)
	if err != nil {
		return false, fmt.Errorf("reclaim idempotency record: %w", err)
	}
	return affectedOne(res)
}

func (r *PGRepository) Complete(ctx context.Context, key string, response []byte) error {
	query := `
        UPDATE idempotency_records
        SET status = $2, response_payload = $3, updated_at = NOW()
        WHERE idempotency_key = $1 AND status = $4
    `
	res, err := r.DB.ExecContext(ctx, query, key, model.IdempotencyCompleted, response, model.IdempotencyProcessing)
	if err != nil {
		return fmt.Errorf("complete idempotency record: %w", err)
	}
	return requireOne(res, key)
}

func (r *PGRepository) Fail(ctx context.Context, key, code, message string) error {
	query := `
        UPDATE idempotency_records
        SET status = $2, error_code = $3, error_message = $4, updated_at = NOW()
        WHERE idempotency_key = $1 AND status = $5
    `
	res, err := r.DB.ExecContext(ctx, query, key, model.IdempotencyFailed, code, message, model.IdempotencyProcessing)
	if err != nil {
		return fmt.Errorf("fail idempotency record: %w", err)
	}
	return requireOne(res, key)
}

func (r *PGRepository) DeleteExpired(ctx context.Context, now time.Time, limit int) (int64, error) {
	query := `
        DELETE FROM idempotency_records
        WHERE idempotency_key IN (
            SELECT idempotency_key FROM idempotency_records
            WHERE expires_at <= $1
            ORDER BY expires_at
            LIMIT $2
            FOR UPDATE SKIP LOCKED
        )
    `
	res, err := r.DB.ExecContext(ctx, query, now, limit)
	if err != nil {
		return 0, fmt.Errorf("delete expired idempotency records: %w", err)
	}
	return res.RowsAffected()
}

func affectedOne(res sql.Result) (bool, error) {
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

func requireOne(res sql.Result, key string) error {
	ok, err := affectedOne(res)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("idempotency record %q is no longer processing", key)
	}
	return nil
}
