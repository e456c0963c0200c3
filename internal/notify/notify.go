package notify

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/fekuna/omnipos-inventory-service/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// ChangeEvent announces one committed ledger change.
type ChangeEvent struct {
	EventID        string              `json:"event_id"`
	ProductID      string              `json:"product_id"`
	InventoryID    string              `json:"inventory_id"`
	OperationType  model.OperationType `json:"operation_type"`
	OldQuantity    int64               `json:"old_quantity"`
	NewQuantity    int64               `json:"new_quantity"`
	Delta          int64               `json:"delta"`
	Available      int64               `json:"available_quantity"`
	OperatorID     string              `json:"operator_id"`
	MutationNumber string              `json:"mutation_number"`
	LowStock       bool                `json:"low_stock"`
	Threshold      *int64              `json:"threshold,omitempty"`
	OccurredAt     time.Time           `json:"occurred_at"`
}

type Invalidator interface {
	Invalidate(ctx context.Context, productID string) error
}

type Publisher interface {
	Publish(ctx context.Context, evt ChangeEvent) error
}

// Notifier fans a committed change out to the cache and the event stream.
// Nothing it does can fail the mutation that triggered it.
type Notifier struct {
	invalidator Invalidator
	publisher   Publisher
	timeout     time.Duration
	logger      logger.ZapLogger
	failures    *prometheus.CounterVec
}

func NewNotifier(inv Invalidator, pub Publisher, timeout time.Duration, log logger.ZapLogger, reg prometheus.Registerer) *Notifier {
	n := &Notifier{
		invalidator: inv,
		publisher:   pub,
		timeout:     timeout,
		logger:      log,
	}
	if reg != nil {
		n.failures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "inventory",
			Subsystem: "notify",
			Name:      "failures_total",
			Help:      "Post-commit notifications that could not be delivered",
		}, []string{"target"})
		reg.MustRegister(n.failures)
	}
	return n
}

// Notify invalidates cached stock for the product and publishes evt. It runs
// on a context detached from the caller's cancellation and bounded by the
// configured timeout; failures are logged and counted.
func (n *Notifier) Notify(ctx context.Context, evt ChangeEvent) {
	ctx = context.WithoutCancel(ctx)
	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	if n.invalidator != nil {
		if err := n.invalidator.Invalidate(ctx, evt.ProductID); err != nil {
			n.fail("cache", evt, err)
		}
	}
	if n.publisher != nil {
		if err := n.publisher.Publish(ctx, evt); err != nil {
			n.fail("publish", evt, err)
		}
	}
}

func (n *Notifier) fail(target string, evt ChangeEvent, err error) {
	n.logger.Warn("Post-commit notification failed",
		zap.String("target", target),
		zap.String("product_id", evt.ProductID),
		zap.String("mutation_number", evt.MutationNumber),
		zap.Error(err),
	)
	if n.failures != nil {
		n.failures.WithLabelValues(target).Inc()
	}
}
