package listener

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/apperr"
	idemrepo "github.com/fekuna/omnipos-inventory-service/internal/idempotency/repository"
	idemusecase "github.com/fekuna/omnipos-inventory-service/internal/idempotency/usecase"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-inventory-service/internal/inventory/repository"
	invusecase "github.com/fekuna/omnipos-inventory-service/internal/inventory/usecase"
	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func orderEvent(t *testing.T, orderID string, items ...OrderItemPayload) []byte {
	t.Helper()
	value, err := json.Marshal(OrderCreatedEvent{
		EventID:   "evt-" + orderID,
		EventType: EventTypeOrderCreated,
		Payload:   OrderPayload{ID: orderID, Items: items},
		Timestamp: time.Now(),
	})
	require.NoError(t, err)
	return value
}

func newStack(t *testing.T) (*repository.MemoryStore, inventory.UseCase) {
	t.Helper()
	store := repository.NewMemoryStore()
	coordinator := idemusecase.NewCoordinator(idemrepo.NewMemoryRepository(), time.Hour, logger.NewNop(), nil)
	return store, invusecase.NewInventoryUseCase(store.Repository(), store, coordinator, logger.NewNop())
}

func TestHandleMessage_ShipsEachLineOnce(t *testing.T) {
	store, uc := newStack(t)
	store.Seed(model.InventoryRecord{ProductID: "P1", Quantity: 10})
	store.Seed(model.InventoryRecord{ProductID: "P2", Quantity: 5})

	l := NewOrderListener(nil, uc, logger.NewNop())
	value := orderEvent(t, "O-1",
		OrderItemPayload{ProductID: "P1", Quantity: 3},
		OrderItemPayload{ProductID: "P2", Quantity: 2},
	)

	assert.Equal(t, 2, l.HandleMessage(context.Background(), value))
	// Redelivery replays the recorded results.
	assert.Equal(t, 2, l.HandleMessage(context.Background(), value))

	p1, err := store.Repository().Find(context.Background(), model.KeyTuple{ProductID: "P1"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), p1.Quantity)

	p2, err := store.Repository().Find(context.Background(), model.KeyTuple{ProductID: "P2"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), p2.Quantity)

	moves, total, err := uc.ListMovements(context.Background(), &dto.MovementFilter{OperatorID: OperatorID})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, m := range moves {
		assert.Equal(t, model.ReasonSale, m.Reason)
		require.NotNil(t, m.IdempotencyKey)
	}
}

func TestHandleMessage_RejectedLineDoesNotBlockOthers(t *testing.T) {
	store, uc := newStack(t)
	store.Seed(model.InventoryRecord{ProductID: "P1", Quantity: 1})
	store.Seed(model.InventoryRecord{ProductID: "P2", Quantity: 5})

	l := NewOrderListener(nil, uc, logger.NewNop())
	shipped := l.HandleMessage(context.Background(), orderEvent(t, "O-2",
		OrderItemPayload{ProductID: "P1", Quantity: 3},
		OrderItemPayload{ProductID: "P2", Quantity: 2},
	))
	assert.Equal(t, 1, shipped)

	p1, err := store.Repository().Find(context.Background(), model.KeyTuple{ProductID: "P1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), p1.Quantity)
}

func TestHandleMessage_IgnoresOtherEvents(t *testing.T) {
	uc := &scriptedUseCase{}
	l := NewOrderListener(nil, uc, logger.NewNop())

	assert.Zero(t, l.HandleMessage(context.Background(), []byte(`{"event_type":"OrderCancelled","payload":{"id":"O"}}`)))
	assert.Zero(t, l.HandleMessage(context.Background(), []byte(`not json`)))
	assert.Zero(t, uc.calls())
}

func TestShip_RetriesTransientFailures(t *testing.T) {
	uc := &scriptedUseCase{errs: []error{
		apperr.New(apperr.CodeConcurrentStockConflict, "conflict"),
		apperr.New(apperr.CodeOperationInProgress, "busy"),
		nil,
	}}
	l := NewOrderListener(nil, uc, logger.NewNop(), WithRetry(3, time.Millisecond))

	shipped := l.HandleMessage(context.Background(), orderEvent(t, "O-3", OrderItemPayload{ProductID: "P", Quantity: 1}))
	assert.Equal(t, 1, shipped)
	assert.Equal(t, 3, uc.calls())
}

func TestShip_BusinessErrorIsNotRetried(t *testing.T) {
	uc := &scriptedUseCase{errs: []error{apperr.New(apperr.CodeInsufficientStock, "short")}}
	l := NewOrderListener(nil, uc, logger.NewNop(), WithRetry(3, time.Millisecond))

	shipped := l.HandleMessage(context.Background(), orderEvent(t, "O-4", OrderItemPayload{ProductID: "P", Quantity: 1}))
	assert.Zero(t, shipped)
	assert.Equal(t, 1, uc.calls())
}

func TestStart_StopsOnCancel(t *testing.T) {
	reader := &chanReader{msgs: make(chan kafka.Message, 1)}
	uc := &scriptedUseCase{}
	l := NewOrderListener(reader, uc, logger.NewNop())

	reader.msgs <- kafka.Message{Value: orderEvent(t, "O-5", OrderItemPayload{ProductID: "P", Quantity: 1})}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return uc.calls() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("listener did not stop")
	}
}

type chanReader struct {
	msgs chan kafka.Message
}

func (r *chanReader) ReadMessage(ctx context.Context) (*kafka.Message, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case m := <-r.msgs:
		return &m, nil
	}
}

type scriptedUseCase struct {
	inventory.UseCase

	mu    sync.Mutex
	errs  []error
	count int
}

func (s *scriptedUseCase) Mutate(_ context.Context, input *dto.MutationInput) (*dto.MutationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count++
	if input.IdempotencyKey == "" {
		return nil, errors.New("missing key")
	}
	if len(s.errs) == 0 {
		return &dto.MutationResult{}, nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	if err != nil {
		return nil, err
	}
	return &dto.MutationResult{}, nil
}

func (s *scriptedUseCase) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
