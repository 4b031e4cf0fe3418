package chat

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for chat sessions.
type Metrics struct {
	TurnsTotal     *prometheus.CounterVec
	SessionsActive prometheus.Gauge
	EvictionsTotal prometheus.Counter
}

// NewMetrics returns the process-wide chat metrics, registering them once.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			TurnsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "veritas",
					Subsystem: "chat",
					Name:      "turns_total",
					Help:      "Total number of chat turns by outcome",
				},
				[]string{"outcome"},
			),
			SessionsActive: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "veritas",
					Subsystem: "chat",
					Name:      "sessions_active",
					Help:      "Current number of in-memory chat sessions",
				},
			),
			EvictionsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "veritas",
					Subsystem: "chat",
					Name:      "evictions_total",
					Help:      "Total number of sessions evicted to stay under the limit",
				},
			),
		}
	})
	return globalMetrics
}
