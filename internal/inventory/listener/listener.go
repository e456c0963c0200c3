package listener

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	EventTypeOrderCreated = "OrderCreated"
	OperatorID            = "system:order-listener"

	defaultRetries = 3
	defaultBackoff = 200 * time.Millisecond
)

// MessageReader is satisfied by broker.Reader.
type MessageReader interface {
	ReadMessage(ctx context.Context) (*kafka.Message, error)
}

// OrderListener ships stock for every line of an OrderCreated event. Each
// line carries its own idempotency key, so a redelivered event replays the
// recorded outcome instead of shipping twice.
type OrderListener struct {
	reader  MessageReader
	uc      inventory.UseCase
	logger  logger.ZapLogger
	retries int
	backoff time.Duration
}

type Option func(*OrderListener)

func WithRetry(retries int, backoff time.Duration) Option {
	return func(l *OrderListener) {
		l.retries = retries
		l.backoff = backoff
	}
}

func NewOrderListener(reader MessageReader, uc inventory.UseCase, log logger.ZapLogger, opts ...Option) *OrderListener {
	l := &OrderListener{
		reader:  reader,
		uc:      uc,
		logger:  log,
		retries: defaultRetries,
		backoff: defaultBackoff,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *OrderListener) Start(ctx context.Context) {
	l.logger.Info("Starting order listener")
	for {
		msg, err := l.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info("Stopping order listener")
				return
			}
			l.logger.Error("Failed to read kafka message", zap.Error(err))
			if !sleep(ctx, time.Second) {
				return
			}
			continue
		}
		l.HandleMessage(ctx, msg.Value)
	}
}

type OrderCreatedEvent struct {
	EventID   string       `json:"event_id"`
	EventType string       `json:"event_type"`
	Payload   OrderPayload `json:"payload"`
	Timestamp time.Time    `json:"timestamp"`
}

type OrderPayload struct {
	ID    string             `json:"id"`
	Items []OrderItemPayload `json:"items"`
}

type OrderItemPayload struct {
	ProductID   string  `json:"product_id"`
	VariantID   *string `json:"variant_id"`
	BatchNumber *string `json:"batch_number"`
	Location    *string `json:"location"`
	Quantity    int64   `json:"quantity"`
}

// LineKey is the idempotency key of one order line.
func LineKey(orderID string, line int) string {
	return fmt.Sprintf("order:%s:%d", orderID, line)
}

// HandleMessage applies one event and reports how many lines were shipped.
func (l *OrderListener) HandleMessage(ctx context.Context, value []byte) int {
	var event OrderCreatedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return 0
	}
	if event.EventType != EventTypeOrderCreated {
		return 0
	}
	if event.Payload.ID == "" {
		l.logger.Warn("Order event without order id", zap.String("event_id", event.EventID))
		return 0
	}

	l.logger.Info("Processing OrderCreated event", zap.String("order_id", event.Payload.ID))

	shipped := 0
	for i, item := range event.Payload.Items {
		input := &dto.MutationInput{
			IdempotencyKey: LineKey(event.Payload.ID, i),
			OperationType:  model.OperationOutbound,
			ProductID:      item.ProductID,
			VariantID:      item.VariantID,
			BatchNumber:    item.BatchNumber,
			Location:       item.Location,
			Quantity:       item.Quantity,
			Reason:         model.ReasonSale,
			Notes:          "order " + event.Payload.ID,
			OperatorID:     OperatorID,
		}

		if err := l.ship(ctx, input); err != nil {
			l.logger.Error("Failed to ship order line",
				zap.String("order_id", event.Payload.ID),
				zap.String("product_id", item.ProductID),
				zap.String("code", string(apperr.CodeOf(err))),
				zap.Error(err),
			)
			continue
		}
		shipped++
	}
	return shipped
}

func (l *OrderListener) ship(ctx context.Context, input *dto.MutationInput) error {
	var err error
	for attempt := 0; attempt <= l.retries; attempt++ {
		if attempt > 0 && !sleep(ctx, l.backoff*time.Duration(attempt)) {
			return errors.Join(err, ctx.Err())
		}
		_, err = l.uc.Mutate(ctx, input)
		if err == nil || !apperr.Retryable(apperr.CodeOf(err)) {
			return err
		}
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
