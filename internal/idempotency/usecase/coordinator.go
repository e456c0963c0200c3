package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/idempotency"
	"github.com/fekuna/omnipos-inventory-service/internal/idempotency/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const claimAttempts = 3

// Coordinator makes a side-effecting operation execute at most once per
// idempotency key and replays the stored outcome for retries.
type Coordinator struct {
	repo    idempotency.Repository
	ttl     time.Duration
	logger  logger.ZapLogger
	metrics *idempotency.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

type Option func(*Coordinator)

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

func WithTracer(tp trace.TracerProvider) Option {
	return func(c *Coordinator) { c.tracer = tp.Tracer("idempotency") }
}

func NewCoordinator(repo idempotency.Repository, ttl time.Duration, log logger.ZapLogger, metrics *idempotency.Metrics, opts ...Option) *Coordinator {
	c := &Coordinator{
		repo:    repo,
		ttl:     ttl,
		logger:  log,
		metrics: metrics,
		tracer:  otel.Tracer("idempotency"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Execute runs fn under the idempotency key of in. A completed key returns
// the stored response without calling fn. A key still processing returns
// OperationInProgress. A failed key is reclaimed and fn runs again.
func Execute[T any](ctx context.Context, c *Coordinator, in *dto.ExecuteInput, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if err := in.Validate(); err != nil {
		return zero, err
	}

	ctx, span := c.tracer.Start(ctx, "idempotency.Execute", trace.WithAttributes(
		attribute.String("idempotency.key", in.Key),
		attribute.String("operation", string(in.OperationType)),
	))
	defer span.End()

	request, err := idempotency.Encode(in.Request)
	if err != nil {
		return zero, apperr.Wrap(apperr.CodeValidation, "request cannot be serialized", err)
	}
	fingerprint := idempotency.Fingerprint(request)

	replay, err := c.claim(ctx, in, request, fingerprint)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return zero, err
	}

	if replay != nil {
		var out T
		if err := idempotency.Decode(replay, &out); err == nil {
			c.metrics.Outcome(string(in.OperationType), idempotency.OutcomeReplayed)
			span.SetAttributes(attribute.Bool("idempotency.replayed", true))
			return out, nil
		}
		// Unreadable stored response: retake the key and execute again.
		c.logger.Warn("Corrupt idempotency response, re-executing",
			zap.String("idempotency_key", in.Key))
		ok, err := c.repo.Reclaim(ctx, c.newRecord(in, request, fingerprint), model.IdempotencyCompleted)
		if err != nil {
			return zero, apperr.Storage(err)
		}
		if !ok {
			c.metrics.Outcome(string(in.OperationType), idempotency.OutcomeInProgress)
			return zero, apperr.New(apperr.CodeOperationInProgress, "operation with this idempotency key is in progress")
		}
		c.metrics.Outcome(string(in.OperationType), idempotency.OutcomeReclaimed)
	}

	result, err := fn(ctx)
	if err != nil {
		// The outcome is recorded even when the caller has gone away.
		saveCtx := context.WithoutCancel(ctx)
		if ferr := c.repo.Fail(saveCtx, in.Key, string(apperr.CodeOf(err)), apperr.MessageOf(err)); ferr != nil {
			c.logger.Error("Failed to mark idempotency record failed",
				zap.String("idempotency_key", in.Key), zap.Error(ferr))
		}
		c.metrics.Outcome(string(in.OperationType), idempotency.OutcomeFailed)
		span.SetStatus(codes.Error, err.Error())
		return zero, err
	}

	c.metrics.Outcome(string(in.OperationType), idempotency.OutcomeExecuted)

	response, err := idempotency.Encode(result)
	if err != nil {
		// Leave the record processing: the effect is committed and must not
		// be applied a second time by a retry.
		c.logger.Error("Failed to encode idempotency response",
			zap.String("idempotency_key", in.Key), zap.Error(err))
		return result, nil
	}
	if err := c.repo.Complete(context.WithoutCancel(ctx), in.Key, response); err != nil {
		c.logger.Error("Failed to complete idempotency record",
			zap.String("idempotency_key", in.Key), zap.Error(err))
		return result, nil
	}

	// Hand back exactly what a replay would return.
	var out T
	if err := idempotency.Decode(response, &out); err != nil {
		return result, nil
	}
	return out, nil
}

// claim takes ownership of the key. A non-nil payload means the key is
// already completed and the payload should be replayed.
func (c *Coordinator) claim(ctx context.Context, in *dto.ExecuteInput, request []byte, fingerprint string) ([]byte, error) {
	for attempt := 0; attempt < claimAttempts; attempt++ {
		existing, err := c.repo.Get(ctx, in.Key)
		if err != nil {
			return nil, apperr.Storage(err)
		}

		if existing == nil {
			ok, err := c.repo.Create(ctx, c.newRecord(in, request, fingerprint))
			if err != nil {
				return nil, apperr.Storage(err)
			}
			if ok {
				return nil, nil
			}
			continue
		}

		if existing.Status != model.IdempotencyFailed &&
			existing.RequestFingerprint != "" && existing.RequestFingerprint != fingerprint {
			return nil, apperr.New(apperr.CodeValidation, "idempotency key was already used with a different request")
		}

		switch existing.Status {
		case model.IdempotencyCompleted:
			if existing.ResponsePayload == nil {
				return []byte{}, nil
			}
			return existing.ResponsePayload, nil

		case model.IdempotencyProcessing:
			c.metrics.Outcome(string(in.OperationType), idempotency.OutcomeInProgress)
			return nil, apperr.New(apperr.CodeOperationInProgress, "operation with this idempotency key is in progress")

		case model.IdempotencyFailed:
			ok, err := c.repo.Reclaim(ctx, c.newRecord(in, request, fingerprint), model.IdempotencyFailed)
			if err != nil {
				return nil, apperr.Storage(err)
			}
			if ok {
				c.metrics.Outcome(string(in.OperationType), idempotency.OutcomeReclaimed)
				return nil, nil
			}
			continue

		default:
			return nil, apperr.Storage(errors.New("unknown idempotency status " + string(existing.Status)))
		}
	}

	c.metrics.Outcome(string(in.OperationType), idempotency.OutcomeInProgress)
	return nil, apperr.New(apperr.CodeOperationInProgress, "operation with this idempotency key is in progress")
}

func (c *Coordinator) newRecord(in *dto.ExecuteInput, request []byte, fingerprint string) *model.IdempotencyRecord {
	now := c.now()
	return &model.IdempotencyRecord{
		Key:                in.Key,
		OperationType:      in.OperationType,
		TargetID:           in.TargetID,
		OperatorID:         in.OperatorID,
		Status:             model.IdempotencyProcessing,
		RequestFingerprint: fingerprint,
		RequestPayload:     request,
		CreatedAt:          now,
		UpdatedAt:          now,
		ExpiresAt:          now.Add(c.ttl),
	}
}
