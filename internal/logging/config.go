package logging

import (
	"fmt"
	"regexp"
	"time"

	"github.com/fyrsmithlabs/veritas/internal/config"
	"go.uber.org/zap/zapcore"
)

// TraceLevel is a custom level below Debug. Request and response bodies
// exchanged with the generative endpoint are logged at this level.
const TraceLevel = zapcore.Level(-2)

// Config holds logging configuration.
type Config struct {
	Level       zapcore.Level
	Format      string
	ServiceName string
	Stdout      bool
	OTEL        bool
	Sampling    SamplingConfig
	Caller      bool
	Stacktrace  zapcore.Level
	Fields      map[string]string
	Redaction   RedactionConfig
}

// SamplingConfig controls log volume reduction below Error.
type SamplingConfig struct {
	Enabled    bool
	Tick       time.Duration
	Initial    int
	Thereafter int
}

// RedactionConfig controls sensitive data redaction.
type RedactionConfig struct {
	Enabled  bool
	Fields   []string
	Patterns []string
}

// NewDefaultConfig returns config with production defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Level:       zapcore.InfoLevel,
		Format:      "json",
		ServiceName: "veritas",
		Stdout:      true,
		Sampling: SamplingConfig{
			Enabled:    true,
			Tick:       time.Second,
			Initial:    100,
			Thereafter: 10,
		},
		Caller:     true,
		Stacktrace: zapcore.ErrorLevel,
		Redaction: RedactionConfig{
			Enabled: true,
			Fields: []string{
				"api_key", "x-goog-api-key", "authorization", "token", "secret",
			},
			Patterns: []string{
				`(?i)bearer\s+\S+`,
				`(?i)api[_-]?key[=:]\s*\S+`,
				`AIza[0-9A-Za-z_-]{30,}`,
			},
		},
	}
}

// FromConfig builds a logging config from the application's logging and
// telemetry sections. OTEL output follows telemetry.enabled.
func FromConfig(lc config.LoggingConfig, tc config.TelemetryConfig) (*Config, error) {
	cfg := NewDefaultConfig()

	level, err := LevelFromString(lc.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", lc.Level, err)
	}
	cfg.Level = level
	if lc.Format != "" {
		cfg.Format = lc.Format
	}
	if tc.ServiceName != "" {
		cfg.ServiceName = tc.ServiceName
	}
	cfg.OTEL = tc.Enabled

	// Trace output is for debugging a single request; sampling would hide it.
	if level <= zapcore.DebugLevel {
		cfg.Sampling.Enabled = false
	}

	return cfg, nil
}

// LevelFromString parses a level name, accepting "trace" as well as the
// standard zap names. An empty string means info.
func LevelFromString(level string) (zapcore.Level, error) {
	switch level {
	case "":
		return zapcore.InfoLevel, nil
	case "trace":
		return TraceLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel, err
	}
	return l, nil
}

// Validate checks config for errors.
func (c *Config) Validate() error {
	if c.Format != "json" && c.Format != "console" {
		return fmt.Errorf("format must be 'json' or 'console', got %q", c.Format)
	}
	if !c.Stdout && !c.OTEL {
		return fmt.Errorf("at least one output must be enabled (stdout or otel)")
	}
	if c.Sampling.Enabled && c.Sampling.Tick <= 0 {
		return fmt.Errorf("sampling tick must be > 0 when sampling enabled")
	}
	if c.Redaction.Enabled {
		for _, pattern := range c.Redaction.Patterns {
			if len(pattern) > 200 {
				return fmt.Errorf("redaction pattern too long (max 200 chars): %q", pattern)
			}
			if _, err := regexp.Compile(pattern); err != nil {
				return fmt.Errorf("invalid redaction pattern %q: %w", pattern, err)
			}
		}
	}
	for k, v := range c.Fields {
		if k == "" {
			return fmt.Errorf("field key cannot be empty")
		}
		if v == "" {
			return fmt.Errorf("field %q has empty value", k)
		}
	}
	return nil
}
