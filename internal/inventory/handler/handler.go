package handler

import (
	"context"
	"strings"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/auth"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const maxPageSize = 200

type InventoryHandler struct {
	uc     inventory.UseCase
	logger logger.ZapLogger
}

func NewInventoryHandler(uc inventory.UseCase, log logger.ZapLogger) *InventoryHandler {
	return &InventoryHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *InventoryHandler) Mutate(ctx context.Context, req *MutateRequest) (*MutateResponse, error) {
	// The operator comes from the authenticated caller, never the body.
	operatorID := auth.GetUserID(ctx)
	key := req.IdempotencyKey
	if key == "" {
		key = auth.GetIdempotencyKey(ctx)
	}

	input := &dto.MutationInput{
		IdempotencyKey: key,
		OperationType:  model.OperationType(strings.ToLower(req.OperationType)),
		ProductID:      req.ProductID,
		VariantID:      optional(req.VariantID),
		BatchNumber:    optional(req.BatchNumber),
		Location:       optional(req.Location),
		Quantity:       req.Quantity,
		Reason:         model.MovementReason(req.Reason),
		Notes:          req.Notes,
		OperatorID:     operatorID,
		ApproverID:     optional(req.ApproverID),
	}
	if req.UnitCost != nil && *req.UnitCost != "" {
		cost, err := decimal.NewFromString(*req.UnitCost)
		if err != nil {
			return nil, toStatus(apperr.Newf(apperr.CodeValidation, "invalid unit cost %q", *req.UnitCost))
		}
		input.UnitCost = decimal.NewNullDecimal(cost)
	}

	res, err := h.uc.Mutate(ctx, input)
	if err != nil {
		return nil, toStatus(err)
	}

	return &MutateResponse{
		Inventory: res.Inventory,
		Mutation:  res.Mutation,
	}, nil
}

func (h *InventoryHandler) GetStock(ctx context.Context, req *GetStockRequest) (*StockResponse, error) {
	summary, err := h.uc.GetStock(ctx, req.ProductID)
	if err != nil {
		return nil, toStatus(err)
	}

	return &StockResponse{
		ProductID:         summary.ProductID,
		Quantity:          summary.Quantity,
		ReservedQuantity:  summary.ReservedQuantity,
		AvailableQuantity: summary.AvailableQuantity,
		Records:           summary.Records,
	}, nil
}

func (h *InventoryHandler) ListMovements(ctx context.Context, req *ListMovementsRequest) (*ListMovementsResponse, error) {
	page, pageSize := int(req.Page), int(req.PageSize)
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = 50
	}

	filters := &dto.MovementFilter{
		ProductID:     req.ProductID,
		InventoryID:   req.InventoryID,
		OperationType: model.OperationType(strings.ToLower(req.OperationType)),
		OperatorID:    req.OperatorID,
		StartDate:     req.StartDate,
		EndDate:       req.EndDate,
		Page:          page,
		PageSize:      pageSize,
	}
	if filters.OperationType != "" && !filters.OperationType.Valid() {
		return nil, toStatus(apperr.Newf(apperr.CodeValidation, "unknown operation type %q", req.OperationType))
	}

	mvs, count, err := h.uc.ListMovements(ctx, filters)
	if err != nil {
		return nil, toStatus(err)
	}

	return &ListMovementsResponse{
		Movements: mvs,
		Total:     int32(count),
	}, nil
}

// toStatus maps the error taxonomy onto gRPC codes. The message always
// starts with the taxonomy code; driver errors never leave the service.
func toStatus(err error) error {
	code := apperr.CodeOf(err)
	msg := string(code) + ": " + apperr.MessageOf(err)

	switch code {
	case apperr.CodeValidation:
		return status.Error(codes.InvalidArgument, msg)
	case apperr.CodeRecordNotFound:
		return status.Error(codes.NotFound, msg)
	case apperr.CodeInsufficientStock, apperr.CodeNegativeStock, apperr.CodeReservedConflict:
		return status.Error(codes.FailedPrecondition, msg)
	case apperr.CodeConcurrentStockConflict:
		return status.Error(codes.Aborted, msg)
	case apperr.CodeOperationInProgress:
		return status.Error(codes.Unavailable, msg)
	default:
		return status.Error(codes.Internal, msg)
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// UnaryLoggingInterceptor logs every call with its outcome.
func UnaryLoggingInterceptor(log logger.ZapLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		fields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.String("user_id", auth.GetUserID(ctx)),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("code", status.Code(err).String()),
		}
		switch status.Code(err) {
		case codes.OK:
			log.Debug("gRPC call", fields...)
		case codes.Internal, codes.Unknown:
			log.Error("gRPC call failed", append(fields, zap.Error(err))...)
		default:
			log.Info("gRPC call rejected", append(fields, zap.Error(err))...)
		}
		return resp, err
	}
}
