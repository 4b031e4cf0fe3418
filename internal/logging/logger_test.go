package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/fyrsmithlabs/veritas/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(NewDefaultConfig(), nil)
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.True(t, logger.Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Enabled(zapcore.DebugLevel))
}

func TestNewLogger_InvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Stdout = false
	_, err := NewLogger(cfg, nil)
	assert.Error(t, err)
}

func TestLogger_Levels(t *testing.T) {
	tl := NewTestLogger()
	ctx := context.Background()

	tl.Trace(ctx, "trace message")
	tl.Debug(ctx, "debug message")
	tl.Info(ctx, "info message", zap.String("kind", "fact_check"))
	tl.Warn(ctx, "warn message")
	tl.Error(ctx, "error message")

	require.Len(t, tl.All(), 5)
	tl.AssertLogged(t, TraceLevel, "trace message")
	tl.AssertLogged(t, zapcore.DebugLevel, "debug message")
	tl.AssertLogged(t, zapcore.WarnLevel, "warn message")
	tl.AssertField(t, "info message", "kind", "fact_check")
	tl.AssertNotLogged(t, zapcore.ErrorLevel, "info message")

	tl.Reset()
	assert.Empty(t, tl.All())
}

func TestLogger_ContextFields(t *testing.T) {
	tl := NewTestLogger()

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	ctx = WithRequestID(ctx, "req-123")
	ctx = WithSessionID(ctx, "2b1f0c1e-5b2a-4c1d-9f8e-000000000001")

	tl.Info(ctx, "chat turn")

	tl.AssertField(t, "chat turn", "request.id", "req-123")
	tl.AssertField(t, "chat turn", "session.id", "2b1f0c1e-5b2a-4c1d-9f8e-000000000001")
	tl.AssertField(t, "chat turn", "trace_id", span.SpanContext().TraceID().String())
}

func TestWithRequestID_DropsMalformed(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want string
	}{
		{"valid", "abc_DEF-123", "abc_DEF-123"},
		{"empty", "", ""},
		{"newline injection", "abc\ninjected", ""},
		{"too long", string(bytes.Repeat([]byte("a"), maxIDLen+1)), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := WithRequestID(context.Background(), tt.id)
			assert.Equal(t, tt.want, RequestIDFromContext(ctx))
		})
	}
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()))

	tl := NewTestLogger()
	ctx := WithLogger(context.Background(), tl.Logger)
	FromContext(ctx).Info(ctx, "stored")
	tl.AssertLogged(t, zapcore.InfoLevel, "stored")
}

func TestFromConfig(t *testing.T) {
	cfg, err := FromConfig(config.LoggingConfig{Level: "trace", Format: "console"}, config.TelemetryConfig{Enabled: true, ServiceName: "veritas-test"})
	require.NoError(t, err)
	assert.Equal(t, TraceLevel, cfg.Level)
	assert.Equal(t, "console", cfg.Format)
	assert.Equal(t, "veritas-test", cfg.ServiceName)
	assert.True(t, cfg.OTEL)
	assert.False(t, cfg.Sampling.Enabled)

	_, err = FromConfig(config.LoggingConfig{Level: "loud"}, config.TelemetryConfig{})
	assert.Error(t, err)
}

func TestRedactingEncoder(t *testing.T) {
	enc, err := NewRedactingEncoder(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), NewDefaultConfig().Redaction)
	require.NoError(t, err)

	buf, err := enc.EncodeEntry(zapcore.Entry{Message: "request"}, []zap.Field{
		zap.String("x-goog-api-key", "AIzaSyA-very-secret"),
		zap.String("header", "Authorization: Bearer abc.def"),
		zap.String("url", "https://example.com/?api_key=xyz"),
		zap.String("model", "gemini-2.5-flash"),
		Secret("configured_key", config.Secret("12345")),
	})
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))

	assert.Equal(t, "[REDACTED]", out["x-goog-api-key"])
	assert.NotContains(t, out["header"], "abc.def")
	assert.NotContains(t, out["url"], "xyz")
	assert.Equal(t, "gemini-2.5-flash", out["model"])
	assert.Equal(t, "[REDACTED:5]", out["configured_key"])
}

func TestTruncated(t *testing.T) {
	assert.Equal(t, "short", Truncated("k", "short", 10).String)
	assert.Equal(t, "abc...(3 more bytes)", Truncated("k", "abcdef", 3).String)
}

func TestLevelFromString(t *testing.T) {
	tests := map[string]zapcore.Level{
		"":      zapcore.InfoLevel,
		"trace": TraceLevel,
		"debug": zapcore.DebugLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	}
	for in, want := range tests {
		got, err := LevelFromString(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestSampledCore_ErrorsNeverDropped(t *testing.T) {
	tl := NewTestLogger()
	core := newSampledCore(tl.zap.Core(), SamplingConfig{Enabled: true, Tick: 1e9, Initial: 1, Thereafter: 0})
	logger := &Logger{zap: zap.New(core), config: NewDefaultConfig()}
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		logger.Info(ctx, "noisy")
		logger.Error(ctx, "failure")
	}

	assert.Equal(t, 1, tl.FilterMessage("noisy").Len())
	assert.Equal(t, 5, tl.FilterMessage("failure").Len())
}
