package dto

import (
	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
)

type ExecuteInput struct {
	Key           string
	OperationType model.OperationType
	TargetID      string
	OperatorID    string
	Request       interface{}
}

func (in *ExecuteInput) Validate() error {
	switch {
	case in.Key == "":
		return apperr.New(apperr.CodeValidation, "idempotency key is required")
	case len(in.Key) > 255:
		return apperr.New(apperr.CodeValidation, "idempotency key must be at most 255 characters")
	case !in.OperationType.Valid():
		return apperr.Newf(apperr.CodeValidation, "unknown operation type %q", in.OperationType)
	case in.TargetID == "":
		return apperr.New(apperr.CodeValidation, "target id is required")
	case in.OperatorID == "":
		return apperr.New(apperr.CodeValidation, "operator id is required")
	}
	return nil
}
