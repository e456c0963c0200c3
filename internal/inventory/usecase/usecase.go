package usecase

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	idemdto "github.com/fekuna/omnipos-inventory-service/internal/idempotency/dto"
	idemusecase "github.com/fekuna/omnipos-inventory-service/internal/idempotency/usecase"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/internal/notify"
	"github.com/fekuna/omnipos-inventory-service/internal/threshold"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Notifier receives committed changes.
type Notifier interface {
	Notify(ctx context.Context, evt notify.ChangeEvent)
}

// StockCache holds per-product stock summaries for GetStock.
type StockCache interface {
	Get(ctx context.Context, productID string) (*dto.StockSummary, bool, error)
	Set(ctx context.Context, summary *dto.StockSummary) error
}

type Option func(*inventoryUseCase)

func WithNotifier(n Notifier) Option {
	return func(uc *inventoryUseCase) { uc.notifier = n }
}

func WithThresholds(p threshold.Provider) Option {
	return func(uc *inventoryUseCase) { uc.thresholds = p }
}

func WithStockCache(c StockCache) Option {
	return func(uc *inventoryUseCase) { uc.stockCache = c }
}

func WithMetrics(m *inventory.Metrics) Option {
	return func(uc *inventoryUseCase) { uc.metrics = m }
}

func WithPickOrder(o dto.PickOrder) Option {
	return func(uc *inventoryUseCase) {
		if o.Valid() {
			uc.pickOrder = o
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(uc *inventoryUseCase) { uc.now = now }
}

func WithTracer(tp trace.TracerProvider) Option {
	return func(uc *inventoryUseCase) { uc.tracer = tp.Tracer("inventory") }
}

type inventoryUseCase struct {
	repo        inventory.Repository
	tx          inventory.TxManager
	coordinator *idemusecase.Coordinator
	notifier    Notifier
	thresholds  threshold.Provider
	stockCache  StockCache
	metrics     *inventory.Metrics
	pickOrder   dto.PickOrder
	logger      logger.ZapLogger
	tracer      trace.Tracer
	now         func() time.Time
}

func NewInventoryUseCase(repo inventory.Repository, tx inventory.TxManager, coordinator *idemusecase.Coordinator, log logger.ZapLogger, opts ...Option) inventory.UseCase {
	uc := &inventoryUseCase{
		repo:        repo,
		tx:          tx,
		coordinator: coordinator,
		pickOrder:   dto.PickOldestUpdated,
		logger:      log,
		tracer:      otel.Tracer("inventory"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

func (uc *inventoryUseCase) Mutate(ctx context.Context, input *dto.MutationInput) (*dto.MutationResult, error) {
	input.Normalize()
	if input.IdempotencyKey == "" {
		uc.metrics.Mutation(input.OperationType, model.StateRejected, 0)
		return nil, apperr.New(apperr.CodeValidation, "idempotency key is required")
	}
	if err := input.Validate(); err != nil {
		uc.metrics.Mutation(input.OperationType, model.StateRejected, 0)
		return nil, err
	}

	exec := &idemdto.ExecuteInput{
		Key:           input.IdempotencyKey,
		OperationType: input.OperationType,
		TargetID:      input.ProductID,
		OperatorID:    input.OperatorID,
		Request:       input,
	}
	return idemusecase.Execute(ctx, uc.coordinator, exec, func(ctx context.Context) (*dto.MutationResult, error) {
		switch input.OperationType {
		case model.OperationInbound:
			return uc.Receive(ctx, input)
		case model.OperationOutbound:
			return uc.Ship(ctx, input)
		default:
			return uc.Adjust(ctx, input)
		}
	})
}

// Receive adds stock, creating the row for a new key tuple.
func (uc *inventoryUseCase) Receive(ctx context.Context, input *dto.MutationInput) (*dto.MutationResult, error) {
	return uc.run(ctx, input, model.OperationInbound, sql.LevelReadCommitted,
		func(ctx context.Context, repo inventory.Repository) (*model.InventoryRecord, int64, error) {
			rec, err := repo.CreateOrIncrement(ctx, input.Key(), input.Quantity, dto.RecordMetadata{UnitCost: input.UnitCost})
			if err != nil {
				return nil, 0, err
			}
			return rec, rec.Quantity - input.Quantity, nil
		})
}

// Ship takes stock from the first matching batch with enough available
// quantity. The decrement is conditional so that two concurrent shipments
// can never both draw the same units.
func (uc *inventoryUseCase) Ship(ctx context.Context, input *dto.MutationInput) (*dto.MutationResult, error) {
	return uc.run(ctx, input, model.OperationOutbound, sql.LevelSerializable,
		func(ctx context.Context, repo inventory.Repository) (*model.InventoryRecord, int64, error) {
			candidates, err := repo.FindCandidates(ctx, &dto.CandidateFilter{
				ProductID:   input.ProductID,
				VariantID:   input.VariantID,
				BatchNumber: input.BatchNumber,
				Location:    input.Location,
				Order:       uc.pickOrder,
			})
			if err != nil {
				return nil, 0, err
			}
			if len(candidates) == 0 {
				return nil, 0, apperr.Newf(apperr.CodeRecordNotFound, "no stock record for %s", input.Key())
			}

			var picked *model.InventoryRecord
			var best int64
			for i := range candidates {
				available := candidates[i].Available()
				if available >= input.Quantity {
					picked = &candidates[i]
					break
				}
				if available > best {
					best = available
				}
			}
			if picked == nil {
				return nil, 0, apperr.Newf(apperr.CodeInsufficientStock,
					"requested %d, available %d", input.Quantity, best)
			}

			rows, err := repo.ConditionalDecrement(ctx, picked.ID, input.Quantity)
			if err != nil {
				return nil, 0, err
			}
			if rows == 0 {
				return nil, 0, apperr.New(apperr.CodeConcurrentStockConflict,
					"stock changed concurrently, re-read availability and retry")
			}

			after, err := repo.GetByID(ctx, picked.ID)
			if err != nil {
				return nil, 0, err
			}
			if after == nil {
				return nil, 0, apperr.Newf(apperr.CodeRecordNotFound, "inventory record %s not found", picked.ID)
			}
			return after, after.Quantity + input.Quantity, nil
		})
}

// Adjust applies a signed delta. Reserved quantity is never touched.
func (uc *inventoryUseCase) Adjust(ctx context.Context, input *dto.MutationInput) (*dto.MutationResult, error) {
	return uc.run(ctx, input, model.OperationAdjust, sql.LevelReadCommitted,
		func(ctx context.Context, repo inventory.Repository) (*model.InventoryRecord, int64, error) {
			current, err := repo.FindForUpdate(ctx, input.Key())
			if err != nil {
				return nil, 0, err
			}

			if current == nil {
				if input.Quantity <= 0 {
					return nil, 0, apperr.Newf(apperr.CodeRecordNotFound, "no record to decrease for %s", input.Key())
				}
				rec, err := repo.CreateOrIncrement(ctx, input.Key(), input.Quantity, dto.RecordMetadata{UnitCost: input.UnitCost})
				if err != nil {
					return nil, 0, err
				}
				return rec, rec.Quantity - input.Quantity, nil
			}

			after, err := model.AddQuantity(current.Quantity, input.Quantity)
			if err != nil {
				return nil, 0, err
			}
			if err := model.CheckInvariants(after, current.ReservedQuantity); err != nil {
				return nil, 0, err
			}
			rec, err := repo.SetQuantity(ctx, current.ID, after)
			if err != nil {
				return nil, 0, err
			}
			return rec, current.Quantity, nil
		})
}

type applyFunc func(ctx context.Context, repo inventory.Repository) (rec *model.InventoryRecord, before int64, err error)

// run drives one attempt through Validating -> Applying -> Committed,
// writing the audit entry in the same transaction as the quantity change.
func (uc *inventoryUseCase) run(ctx context.Context, input *dto.MutationInput, op model.OperationType, isolation sql.IsolationLevel, apply applyFunc) (*dto.MutationResult, error) {
	start := uc.now()
	ctx, span := uc.tracer.Start(ctx, "inventory."+string(op), trace.WithAttributes(
		attribute.String("product_id", input.ProductID),
		attribute.Int64("quantity", input.Quantity),
	))
	defer span.End()

	input.OperationType = op
	input.Normalize()
	if err := input.Validate(); err != nil {
		uc.finish(span, op, model.StateRejected, start)
		return nil, err
	}

	var result *dto.MutationResult
	err := uc.tx.WithinTx(ctx, isolation, func(ctx context.Context, repo inventory.Repository) error {
		rec, before, err := apply(ctx, repo)
		if err != nil {
			return err
		}
		mutation := uc.newMutation(input, rec, before)
		if err := repo.InsertMutation(ctx, mutation); err != nil {
			return err
		}
		result = &dto.MutationResult{Inventory: rec, Mutation: mutation}
		return nil
	})
	if err != nil {
		err = apperr.Storage(err)
		state := model.StateAborted
		if apperr.IsBusinessRule(apperr.CodeOf(err)) {
			state = model.StateRejected
		}
		span.SetStatus(codes.Error, err.Error())
		uc.finish(span, op, state, start)
		if state == model.StateAborted {
			uc.logger.Warn("Inventory mutation aborted",
				zap.String("operation", string(op)),
				zap.String("product_id", input.ProductID),
				zap.String("code", string(apperr.CodeOf(err))),
				zap.Error(err),
			)
		}
		return nil, err
	}

	uc.finish(span, op, model.StateCommitted, start)
	uc.logger.Info("Inventory mutation committed",
		zap.String("number", result.Mutation.Number),
		zap.String("product_id", input.ProductID),
		zap.Int64("before", result.Mutation.QuantityBefore),
		zap.Int64("after", result.Mutation.QuantityAfter),
	)
	uc.announce(ctx, result)
	return result, nil
}

func (uc *inventoryUseCase) finish(span trace.Span, op model.OperationType, state model.MutationState, start time.Time) {
	span.SetAttributes(attribute.String("mutation.state", string(state)))
	uc.metrics.Mutation(op, state, uc.now().Sub(start))
}

func (uc *inventoryUseCase) newMutation(input *dto.MutationInput, rec *model.InventoryRecord, before int64) *model.InventoryMutation {
	now := uc.now()
	var key *string
	if input.IdempotencyKey != "" {
		k := input.IdempotencyKey
		key = &k
	}
	return &model.InventoryMutation{
		ID:             uuid.New().String(),
		Number:         mutationNumber(input.OperationType, now),
		InventoryID:    rec.ID,
		ProductID:      rec.ProductID,
		VariantID:      rec.VariantID,
		BatchNumber:    rec.BatchNumber,
		Location:       rec.Location,
		OperationType:  input.OperationType,
		Reason:         input.Reason,
		QuantityBefore: before,
		QuantityChange: rec.Quantity - before,
		QuantityAfter:  rec.Quantity,
		Notes:          input.Notes,
		OperatorID:     input.OperatorID,
		ApproverID:     input.ApproverID,
		IdempotencyKey: key,
		CreatedAt:      now,
	}
}

const numberSuffixLen = 12

// mutationNumber renders e.g. OUT-20261015-1A2B3C4D5E6F.
func mutationNumber(op model.OperationType, at time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:numberSuffixLen])
	return fmt.Sprintf("%s-%s-%s", op.NumberPrefix(), at.UTC().Format("20060102"), suffix)
}

func (uc *inventoryUseCase) announce(ctx context.Context, result *dto.MutationResult) {
	if uc.notifier == nil {
		return
	}
	rec, m := result.Inventory, result.Mutation

	evt := notify.ChangeEvent{
		EventID:        uuid.New().String(),
		ProductID:      rec.ProductID,
		InventoryID:    rec.ID,
		OperationType:  m.OperationType,
		OldQuantity:    m.QuantityBefore,
		NewQuantity:    m.QuantityAfter,
		Delta:          m.QuantityChange,
		Available:      rec.Available(),
		OperatorID:     m.OperatorID,
		MutationNumber: m.Number,
		OccurredAt:     m.CreatedAt,
	}
	if uc.thresholds != nil {
		if limit, ok := uc.thresholds.Threshold(ctx, rec.ProductID); ok {
			evt.Threshold = &limit
			evt.LowStock = threshold.IsLow(rec.Available(), limit)
		}
	}
	if evt.LowStock {
		uc.metrics.LowStock(m.OperationType)
	}
	uc.notifier.Notify(ctx, evt)
}

// GetStock returns the product's stock across all key tuples, read through
// the stock cache. An unknown product yields a zero summary.
func (uc *inventoryUseCase) GetStock(ctx context.Context, productID string) (*dto.StockSummary, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, apperr.New(apperr.CodeValidation, "product id is required")
	}

	if uc.stockCache != nil {
		summary, ok, err := uc.stockCache.Get(ctx, productID)
		if err != nil {
			uc.logger.Warn("Failed to read stock cache", zap.String("product_id", productID), zap.Error(err))
		} else if ok {
			return summary, nil
		}
	}

	records, _, err := uc.repo.List(ctx, &dto.StockFilter{ProductID: productID})
	if err != nil {
		return nil, apperr.Storage(err)
	}

	summary := &dto.StockSummary{ProductID: productID, Records: records}
	for _, rec := range records {
		summary.Quantity += rec.Quantity
		summary.ReservedQuantity += rec.ReservedQuantity
	}
	summary.AvailableQuantity = summary.Quantity - summary.ReservedQuantity

	if uc.stockCache != nil {
		if err := uc.stockCache.Set(ctx, summary); err != nil {
			uc.logger.Warn("Failed to write stock cache", zap.String("product_id", productID), zap.Error(err))
		}
	}
	return summary, nil
}

func (uc *inventoryUseCase) ListStock(ctx context.Context, filter *dto.StockFilter) ([]model.InventoryRecord, int, error) {
	items, total, err := uc.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, apperr.Storage(err)
	}
	return items, total, nil
}

func (uc *inventoryUseCase) ListMovements(ctx context.Context, filter *dto.MovementFilter) ([]model.InventoryMutation, int, error) {
	items, total, err := uc.repo.ListMutations(ctx, filter)
	if err != nil {
		return nil, 0, apperr.Storage(err)
	}
	return items, total, nil
}
