package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/pkg/database/postgres"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
	q  sqlx.ExtContext
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db, q: db}
}

func (r *PGRepository) WithinTx(ctx context.Context, isolation sql.IsolationLevel, fn func(ctx context.Context, repo inventory.Repository) error) (err error) {
	tx, err := r.DB.BeginTxx(ctx, &sql.TxOptions{Isolation: isolation})
	if err != nil {
		return apperr.Storage(fmt.Errorf("begin transaction: %w", err))
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			err = translateTxError(err)
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = translateTxError(fmt.Errorf("commit transaction: %w", cerr))
		}
	}()

	return fn(ctx, &PGRepository{DB: r.DB, q: tx})
}

const (
	constraintQuantityNonNeg  = "inventory_records_quantity_nonneg"
	constraintReservedNonNeg  = "inventory_records_reserved_nonneg"
	constraintReservedCovered = "inventory_records_reserved_covered"
)

// translateTxError keeps taxonomy errors and turns serialization failures
// into ConcurrentStockConflict. Stock CHECK violations map to the rule they
// guard; anything else is a StorageError.
func translateTxError(err error) error {
	switch {
	case postgres.IsSerializationFailure(err):
		return apperr.Wrap(apperr.CodeConcurrentStockConflict, "stock changed concurrently, re-read availability and retry", err)
	case postgres.IsNumericOutOfRange(err):
		return apperr.Wrap(apperr.CodeValidation, "quantity exceeds the maximum stock level", err)
	case postgres.IsCheckViolation(err):
		switch postgres.ConstraintName(err) {
		case constraintQuantityNonNeg:
			return apperr.Wrap(apperr.CodeNegativeStock, "quantity would fall below zero", err)
		case constraintReservedCovered, constraintReservedNonNeg:
			return apperr.Wrap(apperr.CodeReservedConflict, "quantity would fall below reserved", err)
		}
	}
	return apperr.Storage(err)
}

func keyPredicate(key model.KeyTuple) *predicate {
	p := &predicate{}
	p.eq("product_id", key.ProductID)
	p.nullableEq("variant_id", key.VariantID)
	p.nullableEq("batch_number", key.BatchNumber)
	p.nullableEq("location", key.Location)
	return p
}

func (r *PGRepository) getOne(ctx context.Context, query string, args ...interface{}) (*model.InventoryRecord, error) {
	var rec model.InventoryRecord
	err := sqlx.GetContext(ctx, r.q, &rec, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *PGRepository) Find(ctx context.Context, key model.KeyTuple) (*model.InventoryRecord, error) {
	p := keyPredicate(key)
	return r.getOne(ctx, "SELECT * FROM inventory_records"+p.where(), p.args...)
}

func (r *PGRepository) FindForUpdate(ctx context.Context, key model.KeyTuple) (*model.InventoryRecord, error) {
	p := keyPredicate(key)
	return r.getOne(ctx, "SELECT * FROM inventory_records"+p.where()+" FOR UPDATE", p.args...)
}

func (r *PGRepository) GetByID(ctx context.Context, id string) (*model.InventoryRecord, error) {
	return r.getOne(ctx, `SELECT * FROM inventory_records WHERE id = $1`, id)
}

func (r *PGRepository) FindCandidates(ctx context.Context, f *dto.CandidateFilter) ([]model.InventoryRecord, error) {
	p := candidatePredicate(f)
	query := "SELECT * FROM inventory_records" + p.where() + candidateOrder(f.Order)

	var items []model.InventoryRecord
	if err := sqlx.SelectContext(ctx, r.q, &items, query, p.args...); err != nil {
		return nil, fmt.Errorf("find outbound candidates: %w", err)
	}
	return items, nil
}

func (r *PGRepository) List(ctx context.Context, f *dto.StockFilter) ([]model.InventoryRecord, int, error) {
	p := stockPredicate(f)

	var count int
	if err := sqlx.GetContext(ctx, r.q, &count, "SELECT count(*) FROM inventory_records"+p.where(), p.args...); err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM inventory_records" + p.where() + " ORDER BY updated_at DESC, id"
	query += p.page(f.Page, f.PageSize)

	items := []model.InventoryRecord{}
	err := sqlx.SelectContext(ctx, r.q, &items, query, p.args...)
	return items, count, err
}

func (r *PGRepository) Create(ctx context.Context, rec *model.InventoryRecord) error {
	query := `
        INSERT INTO inventory_records (
            id, product_id, variant_id, batch_number, location,
            quantity, reserved_quantity, unit_cost, created_at, updated_at
        )
        VALUES (
            :id, :product_id, :variant_id, :batch_number, :location,
            :quantity, :reserved_quantity, :unit_cost, :created_at, :updated_at
        )
    `
	// Note: available_quantity is a generated column, so we don't insert it
	_, err := sqlx.NamedExecContext(ctx, r.q, query, rec)
	return err
}

func (r *PGRepository) CreateOrIncrement(ctx context.Context, key model.KeyTuple, qty int64, meta dto.RecordMetadata) (*model.InventoryRecord, error) {
	query := `
        INSERT INTO inventory_records (
            id, product_id, variant_id, batch_number, location,
            quantity, reserved_quantity, unit_cost, created_at, updated_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, 0, $7, NOW(), NOW())
        ON CONFLICT ON CONSTRAINT inventory_records_key_uniq
        DO UPDATE SET
            quantity = inventory_records.quantity + EXCLUDED.quantity,
            unit_cost = COALESCE(EXCLUDED.unit_cost, inventory_records.unit_cost),
            updated_at = EXCLUDED.updated_at
        RETURNING *
    `
	var rec model.InventoryRecord
	err := sqlx.GetContext(ctx, r.q, &rec, query,
		uuid.New().String(), key.ProductID, key.VariantID, key.BatchNumber, key.Location,
		qty, meta.UnitCost,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert inventory record: %w", err)
	}
	return &rec, nil
}

func (r *PGRepository) ConditionalDecrement(ctx context.Context, id string, qty int64) (int64, error) {
	query := `
        UPDATE inventory_records
        SET quantity = quantity - $2, updated_at = NOW()
        WHERE id = $1 AND quantity >= $2 AND quantity - reserved_quantity >= $2
    `
	res, err := r.q.ExecContext(ctx, query, id, qty)
	if err != nil {
		return 0, fmt.Errorf("decrement inventory record: %w", err)
	}
	return res.RowsAffected()
}

func (r *PGRepository) SetQuantity(ctx context.Context, id string, qty int64) (*model.InventoryRecord, error) {
	query := `
        UPDATE inventory_records
        SET quantity = $2, updated_at = NOW()
        WHERE id = $1 AND $2 >= 0 AND $2 >= reserved_quantity
        RETURNING *
    `
	rec, err := r.getOne(ctx, query, id, qty)
	if err != nil {
		return nil, fmt.Errorf("set inventory quantity: %w", err)
	}
	if rec != nil {
		return rec, nil
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, apperr.Newf(apperr.CodeRecordNotFound, "inventory record %s not found", id)
	}
	if err := model.CheckInvariants(qty, current.ReservedQuantity); err != nil {
		return nil, err
	}
	return nil, apperr.New(apperr.CodeConcurrentStockConflict, "inventory record changed concurrently")
}

func (r *PGRepository) InsertMutation(ctx context.Context, m *model.InventoryMutation) error {
	query := `
        INSERT INTO inventory_mutations (
            id, number, inventory_id, product_id, variant_id, batch_number, location,
            operation_type, reason, quantity_before, quantity_change, quantity_after,
            notes, operator_id, approver_id, idempotency_key, created_at
        )
        VALUES (
            :id, :number, :inventory_id, :product_id, :variant_id, :batch_number, :location,
            :operation_type, :reason, :quantity_before, :quantity_change, :quantity_after,
            :notes, :operator_id, :approver_id, :idempotency_key, :created_at
        )
    `
	_, err := sqlx.NamedExecContext(ctx, r.q, query, m)
	if err != nil {
		return fmt.Errorf("insert inventory mutation: %w", err)
	}
	return nil
}

func (r *PGRepository) ListMutations(ctx context.Context, f *dto.MovementFilter) ([]model.InventoryMutation, int, error) {
	p := movementPredicate(f)

	var count int
	if err := sqlx.GetContext(ctx, r.q, &count, "SELECT count(*) FROM inventory_mutations"+p.where(), p.args...); err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM inventory_mutations" + p.where() + " ORDER BY created_at DESC, id"
	query += p.page(f.Page, f.PageSize)

	items := []model.InventoryMutation{}
	err := sqlx.SelectContext(ctx, r.q, &items, query, p.args...)
	return items, count, err
}
