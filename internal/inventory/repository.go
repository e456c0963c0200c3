package inventory

import (
	"context"
	"database/sql"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

// Repository is the only code that writes inventory_records. A Repository
// handed out by TxManager runs every call inside that transaction.
type Repository interface {
	// Ledger rows. Lookups match the full key tuple; nil components are
	// matched as nil.
	Find(ctx context.Context, key model.KeyTuple) (*model.InventoryRecord, error)
	FindForUpdate(ctx context.Context, key model.KeyTuple) (*model.InventoryRecord, error)
	FindCandidates(ctx context.Context, filter *dto.CandidateFilter) ([]model.InventoryRecord, error)
	GetByID(ctx context.Context, id string) (*model.InventoryRecord, error)
	List(ctx context.Context, filter *dto.StockFilter) ([]model.InventoryRecord, int, error)

	// Core stock operations
	Create(ctx context.Context, rec *model.InventoryRecord) error
	CreateOrIncrement(ctx context.Context, key model.KeyTuple, qty int64, meta dto.RecordMetadata) (*model.InventoryRecord, error)
	// ConditionalDecrement lowers quantity by qty only while available stays
	// non-negative. Zero rows affected means the stock was taken first.
	ConditionalDecrement(ctx context.Context, id string, qty int64) (int64, error)
	SetQuantity(ctx context.Context, id string, qty int64) (*model.InventoryRecord, error)

	// Movements / Audit
	InsertMutation(ctx context.Context, m *model.InventoryMutation) error
	ListMutations(ctx context.Context, filter *dto.MovementFilter) ([]model.InventoryMutation, int, error)
}

// TxManager runs fn against a Repository bound to one transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type TxManager interface {
	WithinTx(ctx context.Context, isolation sql.IsolationLevel, fn func(ctx context.Context, repo Repository) error) error
}
