package inventory

import (
	"time"

	"github.com/fekuna/omnipos-inventory-service/internal/model"
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	mutations *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	lowStock  *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "inventory",
				Name:      "mutations_total",
				Help:      "Stock mutations by operation and final state",
			},
			[]string{"operation", "state"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "inventory",
				Name:      "mutation_duration_seconds",
				Help:      "Time spent applying a stock mutation",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		lowStock: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "inventory",
				Name:      "low_stock_events_total",
				Help:      "Committed mutations that left a product at or below its threshold",
			},
			[]string{"operation"},
		),
	}
	reg.MustRegister(m.mutations, m.duration, m.lowStock)
	return m
}

func (m *Metrics) Mutation(op model.OperationType, state model.MutationState, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(string(op), string(state)).Inc()
	if state == model.StateCommitted {
		m.duration.WithLabelValues(string(op)).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) LowStock(op model.OperationType) {
	if m == nil {
		return
	}
	m.lowStock.WithLabelValues(string(op)).Inc()
}

// MutationCounter exposes a single series, mainly for tests.
func (m *Metrics) MutationCounter(op model.OperationType, state model.MutationState) prometheus.Counter {
	return m.mutations.WithLabelValues(string(op), string(state))
}
