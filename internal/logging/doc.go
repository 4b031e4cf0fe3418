// Package logging provides structured logging for veritas.
//
// Logger wraps Zap with context-aware methods. Every entry logged through a
// context picks up the active trace, the HTTP request ID and the chat session
// ID when they are present:
//
//	ctx = logging.WithRequestID(ctx, c.Response().Header().Get(echo.HeaderXRequestID))
//	ctx = logging.WithSessionID(ctx, session.ID())
//	logger.Info(ctx, "chat turn completed", zap.Duration("duration", d))
//
// Output goes to stdout, to an OpenTelemetry log provider, or both. Field
// names such as api_key and x-goog-api-key are redacted by the encoder, and
// values that look like bearer tokens or key assignments are masked.
//
// Levels below Error are sampled when sampling is enabled. Errors are never
// dropped.
//
// Tests use NewTestLogger, which records entries in memory:
//
//	tl := logging.NewTestLogger()
//	svc := analysis.NewService(gen, builder, tl.Logger)
//	tl.AssertLogged(t, zapcore.WarnLevel, "virality")
package logging
