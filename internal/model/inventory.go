package model

import (
	"fmt"
	"math"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/shopspring/decimal"
)

type OperationType string

const (
	OperationInbound  OperationType = "inbound"
	OperationOutbound OperationType = "outbound"
	OperationAdjust   OperationType = "adjust"
)

func (t OperationType) Valid() bool {
	switch t {
	case OperationInbound, OperationOutbound, OperationAdjust:
		return true
	}
	return false
}

// NumberPrefix is the prefix of human-readable mutation numbers.
func (t OperationType) NumberPrefix() string {
	switch t {
	case OperationInbound:
		return "IN"
	case OperationOutbound:
		return "OUT"
	default:
		return "ADJ"
	}
}

type MovementReason string

const (
	ReasonReceipt     MovementReason = "receipt"
	ReasonReturn      MovementReason = "return"
	ReasonTransferIn  MovementReason = "transfer_in"
	ReasonShipment    MovementReason = "shipment"
	ReasonSale        MovementReason = "sale"
	ReasonTransferOut MovementReason = "transfer_out"
	ReasonCorrection  MovementReason = "correction"
	ReasonDamage      MovementReason = "damage"
	ReasonLoss        MovementReason = "loss"
	ReasonFound       MovementReason = "found"
	ReasonExpired     MovementReason = "expired"
	ReasonCount       MovementReason = "count"
)

var reasonsByOperation = map[OperationType][]MovementReason{
	OperationInbound:  {ReasonReceipt, ReasonReturn, ReasonTransferIn},
	OperationOutbound: {ReasonShipment, ReasonSale, ReasonTransferOut},
	OperationAdjust:   {ReasonCorrection, ReasonDamage, ReasonLoss, ReasonFound, ReasonExpired, ReasonCount},
}

// DefaultReason is recorded when a request carries no reason.
func DefaultReason(op OperationType) MovementReason {
	if reasons := reasonsByOperation[op]; len(reasons) > 0 {
		return reasons[0]
	}
	return ""
}

func (r MovementReason) AllowedFor(op OperationType) bool {
	for _, allowed := range reasonsByOperation[op] {
		if allowed == r {
			return true
		}
	}
	return false
}

// MutationState tracks one mutation attempt:
// Validating -> Applying -> Committed, Validating -> Rejected, Applying -> Aborted.
type MutationState string

const (
	StateValidating MutationState = "validating"
	StateApplying   MutationState = "applying"
	StateCommitted  MutationState = "committed"
	StateRejected   MutationState = "rejected"
	StateAborted    MutationState = "aborted"
)

// KeyTuple identifies one ledger row. A nil component is a distinct value:
// (P, nil batch) and (P, batch "B1") are different rows.
type KeyTuple struct {
	ProductID   string
	VariantID   *string
	BatchNumber *string
	Location    *string
}

func (k KeyTuple) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.ProductID, deref(k.VariantID), deref(k.BatchNumber), deref(k.Location))
}

// Matches reports an exact, null-aware match on every component.
func (k KeyTuple) Matches(other KeyTuple) bool {
	return k.ProductID == other.ProductID &&
		sameOptional(k.VariantID, other.VariantID) &&
		sameOptional(k.BatchNumber, other.BatchNumber) &&
		sameOptional(k.Location, other.Location)
}

type InventoryRecord struct {
	ID                string              `db:"id" json:"id"`
	ProductID         string              `db:"product_id" json:"product_id"`
	VariantID         *string             `db:"variant_id" json:"variant_id,omitempty"`
	BatchNumber       *string             `db:"batch_number" json:"batch_number,omitempty"`
	Location          *string             `db:"location" json:"location,omitempty"`
	Quantity          int64               `db:"quantity" json:"quantity"`
	ReservedQuantity  int64               `db:"reserved_quantity" json:"reserved_quantity"`
	AvailableQuantity int64               `db:"available_quantity" json:"available_quantity"` // Generated column
	UnitCost          decimal.NullDecimal `db:"unit_cost" json:"unit_cost"`
	CreatedAt         time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time           `db:"updated_at" json:"updated_at"`
}

func (r *InventoryRecord) Key() KeyTuple {
	return KeyTuple{
		ProductID:   r.ProductID,
		VariantID:   r.VariantID,
		BatchNumber: r.BatchNumber,
		Location:    r.Location,
	}
}

func (r *InventoryRecord) Available() int64 {
	return r.Quantity - r.ReservedQuantity
}

// CheckInvariants enforces quantity >= 0 and quantity >= reserved.
func CheckInvariants(quantity, reserved int64) error {
	if quantity < 0 {
		return apperr.Newf(apperr.CodeNegativeStock, "quantity %d would fall below zero", quantity)
	}
	if quantity < reserved {
		return apperr.Newf(apperr.CodeReservedConflict, "quantity %d would fall below reserved %d", quantity, reserved)
	}
	return nil
}

// AddQuantity returns current + delta, rejecting a positive delta that would
// overflow the quantity column.
func AddQuantity(current, delta int64) (int64, error) {
	if delta > 0 && current > math.MaxInt64-delta {
		return 0, apperr.Newf(apperr.CodeValidation, "quantity %d + %d exceeds the maximum stock level", current, delta)
	}
	return current + delta, nil
}

// InventoryMutation is the append-only audit entry written with every
// committed ledger change. QuantityAfter - QuantityBefore == QuantityChange.
type InventoryMutation struct {
	ID             string         `db:"id" json:"id"`
	Number         string         `db:"number" json:"number"`
	InventoryID    string         `db:"inventory_id" json:"inventory_id"`
	ProductID      string         `db:"product_id" json:"product_id"`
	VariantID      *string        `db:"variant_id" json:"variant_id,omitempty"`
	BatchNumber    *string        `db:"batch_number" json:"batch_number,omitempty"`
	Location       *string        `db:"location" json:"location,omitempty"`
	OperationType  OperationType  `db:"operation_type" json:"operation_type"`
	Reason         MovementReason `db:"reason" json:"reason"`
	QuantityBefore int64          `db:"quantity_before" json:"quantity_before"`
	QuantityChange int64          `db:"quantity_change" json:"quantity_change"`
	QuantityAfter  int64          `db:"quantity_after" json:"quantity_after"`
	Notes          string         `db:"notes" json:"notes"`
	OperatorID     string         `db:"operator_id" json:"operator_id"`
	ApproverID     *string        `db:"approver_id" json:"approver_id,omitempty"`
	IdempotencyKey *string        `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func sameOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
