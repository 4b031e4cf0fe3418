package analysis

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for analysis requests.
type Metrics struct {
	RequestsTotal  *prometheus.CounterVec
	Duration       *prometheus.HistogramVec
	FallbacksTotal *prometheus.CounterVec
	SourcesTotal   prometheus.Counter
}

// NewMetrics returns the process-wide analysis metrics, registering them on
// first use.
//
// Metrics:
//   - veritas_analysis_requests_total{kind,outcome}
//   - veritas_analysis_duration_seconds{kind}
//   - veritas_analysis_field_fallbacks_total{kind,field}
//   - veritas_analysis_sources_total
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			RequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "veritas",
					Subsystem: "analysis",
					Name:      "requests_total",
					Help:      "Total number of analysis requests by kind and outcome",
				},
				[]string{"kind", "outcome"}, // outcome: "ok", "error", "absorbed"
			),
			Duration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "veritas",
					Subsystem: "analysis",
					Name:      "duration_seconds",
					Help:      "Duration of analysis requests in seconds",
					Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2m
				},
				[]string{"kind"},
			),
			FallbacksTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "veritas",
					Subsystem: "analysis",
					Name:      "field_fallbacks_total",
					Help:      "Total number of reply fields that fell back to their default",
				},
				[]string{"kind", "field"},
			),
			SourcesTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "veritas",
					Subsystem: "analysis",
					Name:      "sources_total",
					Help:      "Total number of grounding sources returned with fact-checks",
				},
			),
		}
	})
	return globalMetrics
}

// RecordRequest records a finished request.
func (m *Metrics) RecordRequest(kind, outcome string, seconds float64) {
	m.RequestsTotal.WithLabelValues(kind, outcome).Inc()
	m.Duration.WithLabelValues(kind).Observe(seconds)
}

// RecordFallbacks records each field that fell back to its default.
func (m *Metrics) RecordFallbacks(kind string, fields []string) {
	for _, f := range fields {
		m.FallbacksTotal.WithLabelValues(kind, f).Inc()
	}
}

// RecordSources records the number of sources attached to a fact-check.
func (m *Metrics) RecordSources(n int) {
	m.SourcesTotal.Add(float64(n))
}
