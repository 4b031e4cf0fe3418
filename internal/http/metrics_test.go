package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/fyrsmithlabs/veritas/internal/logging"
)

func TestHTTPMetrics_MetricsMiddleware(t *testing.T) {
	reader := metric.NewManualReader()
	mp := metric.NewMeterProvider(metric.WithReader(reader))
	m := newHTTPMetrics(mp.Meter(httpInstrumentationName), logging.Nop())

	e := echo.New()
	e.Use(m.MetricsMiddleware())
	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/api/v1/chat/sessions/:id", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "chat session not found")
	})

	for _, path := range []string{"/health", "/api/v1/chat/sessions/a", "/api/v1/chat/sessions/b"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, mm := range sm.Metrics {
			found[mm.Name] = true
			switch mm.Name {
			case "veritas.http.requests_total":
				sum, ok := mm.Data.(metricdata.Sum[int64])
				require.True(t, ok)
				counts := map[string]int64{}
				for _, dp := range sum.DataPoints {
					endpoint, _ := dp.Attributes.Value(attribute.Key("endpoint"))
					status, _ := dp.Attributes.Value(attribute.Key("status"))
					counts[endpoint.AsString()+" "+status.Emit()] += dp.Value
				}
				assert.Equal(t, map[string]int64{
					"/health 200":                   1,
					"/api/v1/chat/sessions/:id 404": 2,
				}, counts)
			case "veritas.http.request_duration_seconds":
				hist, ok := mm.Data.(metricdata.Histogram[float64])
				require.True(t, ok)
				var total uint64
				for _, dp := range hist.DataPoints {
					total += dp.Count
				}
				assert.Equal(t, uint64(3), total)
			}
		}
	}

	assert.True(t, found["veritas.http.requests_total"], "requests counter not found")
	assert.True(t, found["veritas.http.request_duration_seconds"], "duration histogram not found")
	assert.True(t, found["veritas.http.response_size_bytes"], "response size histogram not found")
}

func TestRouteLabel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "unmatched"},
		{"/health", "/health"},
		{"/api/v1/chat/sessions/:id", "/api/v1/chat/sessions/:id"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, routeLabel(tt.input))
	}
}
