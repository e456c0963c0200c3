package idempotency

import "github.com/prometheus/client_golang/prometheus"

const (
	OutcomeExecuted   = "executed"
	OutcomeReplayed   = "replayed"
	OutcomeInProgress = "in_progress"
	OutcomeFailed     = "failed"
	OutcomeReclaimed  = "reclaimed"
)

type Metrics struct {
	outcomes *prometheus.CounterVec
	swept    prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "inventory",
				Subsystem: "idempotency",
				Name:      "requests_total",
				Help:      "Idempotent requests by outcome",
			},
			[]string{"operation", "outcome"},
		),
		swept: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "inventory",
				Subsystem: "idempotency",
				Name:      "swept_records_total",
				Help:      "Expired idempotency records deleted by the sweeper",
			},
		),
	}
	reg.MustRegister(m.outcomes, m.swept)
	return m
}

func (m *Metrics) Outcome(operation, outcome string) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) Swept(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.swept.Add(float64(n))
}

// OutcomeCounter exposes a single series, mainly for tests.
func (m *Metrics) OutcomeCounter(operation, outcome string) prometheus.Counter {
	return m.outcomes.WithLabelValues(operation, outcome)
}
