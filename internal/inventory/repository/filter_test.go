package repository

import (
	"testing"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestKeyPredicate(t *testing.T) {
	p := keyPredicate(model.KeyTuple{ProductID: "P", BatchNumber: strPtr("B1")})
	assert.Equal(t,
		" WHERE product_id = $1 AND variant_id IS NULL AND batch_number IS NOT DISTINCT FROM $2 AND location IS NULL",
		p.where())
	assert.Equal(t, []interface{}{"P", "B1"}, p.args)
}

func TestMovementPredicate(t *testing.T) {
	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	p := movementPredicate(&dto.MovementFilter{ProductID: "P", OperationType: model.OperationOutbound, StartDate: &start})
	assert.Equal(t, " WHERE product_id = $1 AND operation_type = $2 AND created_at >= $3", p.where())
	assert.Equal(t, " LIMIT $4 OFFSET $5", p.page(2, 20))
	assert.Equal(t, []interface{}{"P", "outbound", start, 20, 20}, p.args)
}

func TestStockPredicate_Empty(t *testing.T) {
	p := stockPredicate(&dto.StockFilter{})
	assert.Equal(t, "", p.where())
	assert.Equal(t, "", p.page(1, 0))
}
