package dto

import (
	"strings"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/shopspring/decimal"
)

// MutationInput is one client-submitted stock change. Quantity is the
// received amount for inbound, the requested amount for outbound and a
// signed delta for adjust.
type MutationInput struct {
	IdempotencyKey string               `json:"idempotency_key"`
	OperationType  model.OperationType  `json:"operation_type"`
	ProductID      string               `json:"product_id"`
	VariantID      *string              `json:"variant_id,omitempty"`
	BatchNumber    *string              `json:"batch_number,omitempty"`
	Location       *string              `json:"location,omitempty"`
	Quantity       int64                `json:"quantity"`
	Reason         model.MovementReason `json:"reason,omitempty"`
	Notes          string               `json:"notes,omitempty"`
	UnitCost       decimal.NullDecimal  `json:"unit_cost"`
	OperatorID     string               `json:"operator_id"`
	ApproverID     *string              `json:"approver_id,omitempty"`
}

// Normalize trims identifiers, turns blank optional components into nil and
// fills in the default reason.
func (in *MutationInput) Normalize() {
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)
	in.ProductID = strings.TrimSpace(in.ProductID)
	in.OperatorID = strings.TrimSpace(in.OperatorID)
	in.VariantID = blankToNil(in.VariantID)
	in.BatchNumber = blankToNil(in.BatchNumber)
	in.Location = blankToNil(in.Location)
	in.ApproverID = blankToNil(in.ApproverID)
	if in.Reason == "" {
		in.Reason = model.DefaultReason(in.OperationType)
	}
}

func (in *MutationInput) Validate() error {
	switch {
	case !in.OperationType.Valid():
		return apperr.Newf(apperr.CodeValidation, "unknown operation type %q", in.OperationType)
	case in.ProductID == "":
		return apperr.New(apperr.CodeValidation, "product id is required")
	case in.OperatorID == "":
		return apperr.New(apperr.CodeValidation, "operator id is required")
	}

	switch in.OperationType {
	case model.OperationInbound, model.OperationOutbound:
		if in.Quantity <= 0 {
			return apperr.Newf(apperr.CodeValidation, "%s quantity must be positive", in.OperationType)
		}
	case model.OperationAdjust:
		if in.Quantity == 0 {
			return apperr.New(apperr.CodeValidation, "adjust delta must not be zero")
		}
	}

	if !in.Reason.AllowedFor(in.OperationType) {
		return apperr.Newf(apperr.CodeValidation, "reason %q is not valid for %s", in.Reason, in.OperationType)
	}
	if in.UnitCost.Valid && in.UnitCost.Decimal.IsNegative() {
		return apperr.New(apperr.CodeValidation, "unit cost must not be negative")
	}
	if len(in.Notes) > 1000 {
		return apperr.New(apperr.CodeValidation, "notes must be at most 1000 characters")
	}
	return nil
}

func (in *MutationInput) Key() model.KeyTuple {
	return model.KeyTuple{
		ProductID:   in.ProductID,
		VariantID:   in.VariantID,
		BatchNumber: in.BatchNumber,
		Location:    in.Location,
	}
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
