package handler

import (
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type MutateRequest struct {
	IdempotencyKey string  `json:"idempotency_key"`
	OperationType  string  `json:"operation_type"`
	ProductID      string  `json:"product_id"`
	VariantID      string  `json:"variant_id,omitempty"`
	BatchNumber    string  `json:"batch_number,omitempty"`
	Location       string  `json:"location,omitempty"`
	Quantity       int64   `json:"quantity"`
	Reason         string  `json:"reason,omitempty"`
	Notes          string  `json:"notes,omitempty"`
	UnitCost       *string `json:"unit_cost,omitempty"`
	ApproverID     string  `json:"approver_id,omitempty"`
}

type MutateResponse struct {
	Inventory *model.InventoryRecord   `json:"inventory"`
	Mutation  *model.InventoryMutation `json:"mutation"`
}

type GetStockRequest struct {
	ProductID string `json:"product_id"`
}

type StockResponse struct {
	ProductID         string                  `json:"product_id"`
	Quantity          int64                   `json:"quantity"`
	ReservedQuantity  int64                   `json:"reserved_quantity"`
	AvailableQuantity int64                   `json:"available_quantity"`
	Records           []model.InventoryRecord `json:"records"`
}

type ListMovementsRequest struct {
	ProductID     string     `json:"product_id,omitempty"`
	InventoryID   string     `json:"inventory_id,omitempty"`
	OperationType string     `json:"operation_type,omitempty"`
	OperatorID    string     `json:"operator_id,omitempty"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	Page          int32      `json:"page"`
	PageSize      int32      `json:"page_size"`
}

type ListMovementsResponse struct {
	Movements []model.InventoryMutation `json:"movements"`
	Total     int32                     `json:"total"`
}
