package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"testing"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	idemrepo "github.com/fekuna/omnipos-inventory-service/internal/idempotency/repository"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/migrations"
	"github.com/fekuna/omnipos-inventory-service/pkg/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB connects to POSTGRES_DSN (postgres:// URL form), applies the
// migrations and empties every table.
func openTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	url := os.Getenv("POSTGRES_DSN")
	if url == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		t.Skipf("postgres unavailable: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, postgres.MigrateUp(migrations.FS, url))
	_, err = db.Exec(`TRUNCATE inventory_mutations, inventory_records, idempotency_records`)
	require.NoError(t, err)
	return db
}

func TestPGRepository_Ledger(t *testing.T) {
	db := openTestDB(t)
	repo := NewPGRepository(db)
	ctx := context.Background()
	key := model.KeyTuple{ProductID: "P-pg"}

	var rec *model.InventoryRecord
	for i := 0; i < 2; i++ {
		err := repo.WithinTx(ctx, sql.LevelReadCommitted, func(ctx context.Context, r inventory.Repository) error {
			var err error
			rec, err = r.CreateOrIncrement(ctx, key, 5, dto.RecordMetadata{})
			return err
		})
		require.NoError(t, err)
	}
	assert.Equal(t, int64(10), rec.Quantity, "null key components must hit the same row")

	n, err := repo.ConditionalDecrement(ctx, rec.ID, 11)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.ConditionalDecrement(ctx, rec.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.SetQuantity(ctx, rec.ID, -1)
	assert.True(t, apperr.Is(err, apperr.CodeNegativeStock), err)

	got, err := repo.Find(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(6), got.Quantity)
}

func TestTranslateTxError(t *testing.T) {
	check := func(constraint string) error {
		return fmt.Errorf("set inventory quantity: %w", &pq.Error{Code: "23514", Constraint: constraint})
	}
	cases := []struct {
		name string
		err  error
		want apperr.Code
	}{
		{"quantity below zero", check(constraintQuantityNonNeg), apperr.CodeNegativeStock},
		{"below reserved", check(constraintReservedCovered), apperr.CodeReservedConflict},
		{"negative reserved", check(constraintReservedNonNeg), apperr.CodeReservedConflict},
		{"audit delta mismatch", check("inventory_mutations_delta"), apperr.CodeStorage},
		{"bigint overflow", fmt.Errorf("upsert inventory record: %w", &pq.Error{Code: "22003"}), apperr.CodeValidation},
		{"serialization failure", &pq.Error{Code: "40001"}, apperr.CodeConcurrentStockConflict},
		{"deadlock", &pq.Error{Code: "40P01"}, apperr.CodeConcurrentStockConflict},
		{"taxonomy error kept", apperr.New(apperr.CodeInsufficientStock, "short"), apperr.CodeInsufficientStock},
		{"plain error", errors.New("boom"), apperr.CodeStorage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, apperr.CodeOf(translateTxError(tc.err)))
		})
	}
}

func TestPGRepository_IncrementOverflowIsRejected(t *testing.T) {
	db := openTestDB(t)
	repo := NewPGRepository(db)
	ctx := context.Background()
	key := model.KeyTuple{ProductID: "P-max"}

	increment := func(qty int64) error {
		return repo.WithinTx(ctx, sql.LevelReadCommitted, func(ctx context.Context, r inventory.Repository) error {
			_, err := r.CreateOrIncrement(ctx, key, qty, dto.RecordMetadata{})
			return err
		})
	}
	require.NoError(t, increment(math.MaxInt64))

	err := increment(1)
	assert.True(t, apperr.Is(err, apperr.CodeValidation), err)

	got, err := repo.Find(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), got.Quantity)
}

func TestPGRepository_WithinTxRollsBack(t *testing.T) {
	db := openTestDB(t)
	repo := NewPGRepository(db)
	ctx := context.Background()
	key := model.KeyTuple{ProductID: "P-rollback"}

	boom := errors.New("boom")
	err := repo.WithinTx(ctx, sql.LevelSerializable, func(ctx context.Context, r inventory.Repository) error {
		if _, err := r.CreateOrIncrement(ctx, key, 3, dto.RecordMetadata{}); err != nil {
			return err
		}
		return boom
	})
	assert.True(t, apperr.Is(err, apperr.CodeStorage), err)
	assert.ErrorIs(t, err, boom)

	got, err := repo.Find(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPGIdempotencyRepository_CreateIsExclusive(t *testing.T) {
	db := openTestDB(t)
	repo := idemrepo.NewPGRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	rec := &model.IdempotencyRecord{
		Key:                "k-pg",
		OperationType:      model.OperationInbound,
		TargetID:           "P",
		OperatorID:         "op",
		Status:             model.IdempotencyProcessing,
		RequestFingerprint: "fp",
		RequestPayload:     []byte(`{"v":1}`),
		CreatedAt:          now,
		UpdatedAt:          now,
		ExpiresAt:          now.Add(time.Hour),
	}

	ok, err := repo.Create(ctx, rec)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Create(ctx, rec)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Complete(ctx, "k-pg", []byte(`{"v":1,"data":{}}`)))
	got, err := repo.Get(ctx, "k-pg")
	require.NoError(t, err)
	assert.Equal(t, model.IdempotencyCompleted, got.Status)

	deleted, err := repo.DeleteExpired(ctx, now.Add(2*time.Hour), 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
