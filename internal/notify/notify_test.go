package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInvalidator struct {
	products []string
	err      error
	ctxErr   error
}

func (f *fakeInvalidator) Invalidate(ctx context.Context, productID string) error {
	f.ctxErr = ctx.Err()
	f.products = append(f.products, productID)
	return f.err
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessage(ctx context.Context, msg kafka.Message) error {
	f.msgs = append(f.msgs, msg)
	return f.err
}

func event() ChangeEvent {
	return ChangeEvent{
		EventID:        "e1",
		ProductID:      "P1",
		OperationType:  model.OperationOutbound,
		OldQuantity:    50,
		NewQuantity:    20,
		Delta:          -30,
		OperatorID:     "u1",
		MutationNumber: "OUT-20261015-ABCDEF12",
		OccurredAt:     time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestNotify_InvalidatesAndPublishes(t *testing.T) {
	inv := &fakeInvalidator{}
	w := &fakeWriter{}
	n := NewNotifier(inv, NewKafkaPublisher(w), time.Second, logger.NewNop(), nil)

	n.Notify(context.Background(), event())

	assert.Equal(t, []string{"P1"}, inv.products)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("P1"), w.msgs[0].Key)

	var env envelope
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &env))
	assert.Equal(t, EventTypeStockChanged, env.EventType)
	assert.Equal(t, int64(-30), env.Payload.Delta)
}

func TestNotify_FailuresAreSwallowedAndCounted(t *testing.T) {
	reg := prometheus.NewRegistry()
	inv := &fakeInvalidator{err: errors.New("redis down")}
	w := &fakeWriter{err: errors.New("broker down")}
	n := NewNotifier(inv, NewKafkaPublisher(w), time.Second, logger.NewNop(), reg)

	assert.NotPanics(t, func() { n.Notify(context.Background(), event()) })

	assert.Equal(t, 1.0, testutil.ToFloat64(n.failures.WithLabelValues("cache")))
	assert.Equal(t, 1.0, testutil.ToFloat64(n.failures.WithLabelValues("publish")))
}

func TestNotify_DetachedFromCallerCancel(t *testing.T) {
	inv := &fakeInvalidator{}
	n := NewNotifier(inv, nil, time.Second, logger.NewNop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.Notify(ctx, event())

	assert.NoError(t, inv.ctxErr)
	assert.Equal(t, []string{"P1"}, inv.products)
}
