package resolver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cecil-the-coder/modelwatch/pkg/types"
)

// Metrics counts per-source attempt outcomes so fallback churn is visible
// without log spelunking.
type Metrics struct {
	attempts *prometheus.CounterVec
}

// NewMetrics registers the resolver metrics. A nil registerer falls back to a
// private registry, keeping the chain usable in tests without wiring.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &Metrics{
		attempts: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "modelwatch_resolver_attempts_total",
			Help: "Source attempts by the resolution chain, by outcome.",
		}, []string{"source", "operation", "outcome"}),
	}
}

func (m *Metrics) observe(source types.SourceName, op string, success bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.attempts.WithLabelValues(string(source), op, outcome).Inc()
}
