package dto

import (
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/shopspring/decimal"
)

// StockFilter selects ledger rows for listing. Nil optional components are
// not filtered on.
type StockFilter struct {
	ProductID   string
	VariantID   *string
	BatchNumber *string
	Location    *string
	OnlyInStock bool
	Page        int
	PageSize    int
}

type MovementFilter struct {
	ProductID     string
	InventoryID   string
	OperationType model.OperationType
	OperatorID    string
	StartDate     *time.Time
	EndDate       *time.Time
	Page          int
	PageSize      int
}

// PickOrder decides which batch an outbound takes first.
type PickOrder string

const (
	PickOldestUpdated  PickOrder = "updated"
	PickOldestReceived PickOrder = "received"
)

func (o PickOrder) Valid() bool {
	return o == PickOldestUpdated || o == PickOldestReceived
}

// CandidateFilter selects rows an outbound may draw from: product and variant
// match exactly (null-aware); batch and location match exactly when given.
type CandidateFilter struct {
	ProductID   string
	VariantID   *string
	BatchNumber *string
	Location    *string
	Order       PickOrder
}

// RecordMetadata is refreshed on an existing row by inbound when supplied.
type RecordMetadata struct {
	UnitCost decimal.NullDecimal
}

type MutationResult struct {
	Inventory *model.InventoryRecord   `json:"inventory"`
	Mutation  *model.InventoryMutation `json:"mutation"`
}

// StockSummary is the cached per-product view served by GetStock.
type StockSummary struct {
	ProductID         string                  `json:"product_id"`
	Quantity          int64                   `json:"quantity"`
	ReservedQuantity  int64                   `json:"reserved_quantity"`
	AvailableQuantity int64                   `json:"available_quantity"`
	Records           []model.InventoryRecord `json:"records"`
}
