// Package telemetry sets up OpenTelemetry tracing and metrics for veritas.
//
// New installs global tracer and meter providers backed by OTLP exporters
// (gRPC or HTTP/protobuf). The analysis service and the endpoint clients pick
// them up through otel.Tracer and otel.Meter, so nothing else needs a handle
// on this package. When telemetry is disabled the global no-op providers stay
// in place.
//
// Exporter failures never stop the daemon. The instance is marked degraded
// and the reason is reported by Health.
//
//	telemetry:
//	  enabled: true
//	  endpoint: "localhost:4317"
//	  protocol: grpc
//	  sample_rate: 0.25
//
// Tests use NewTestTelemetry, which records spans and metrics in memory.
package telemetry
