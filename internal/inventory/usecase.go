package inventory

import (
	"context"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type UseCase interface {
	// Mutate validates input and applies it exactly once per idempotency key.
	Mutate(ctx context.Context, input *dto.MutationInput) (*dto.MutationResult, error)

	// Receive, Ship and Adjust apply one mutation without idempotency.
	Receive(ctx context.Context, input *dto.MutationInput) (*dto.MutationResult, error)
	Ship(ctx context.Context, input *dto.MutationInput) (*dto.MutationResult, error)
	Adjust(ctx context.Context, input *dto.MutationInput) (*dto.MutationResult, error)

	GetStock(ctx context.Context, productID string) (*dto.StockSummary, error)
	ListStock(ctx context.Context, filter *dto.StockFilter) ([]model.InventoryRecord, int, error)
	ListMovements(ctx context.Context, filter *dto.MovementFilter) ([]model.InventoryMutation, int, error)
}
