// Package config provides configuration loading for veritas.
//
// Configuration is layered: built-in defaults, then an optional YAML file,
// then VERITAS_* environment variables. See LoadWithFile.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete veritas configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	GenAI     GenAIConfig     `koanf:"genai"`
	Models    ModelsConfig    `koanf:"models"`
	Prompts   PromptsConfig   `koanf:"prompts"`
	Geo       GeoConfig       `koanf:"geo"`
	Chat      ChatConfig      `koanf:"chat"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	BodyLimit       string        `koanf:"body_limit"` // echo size string, e.g. "10M"
}

// GenAIConfig holds settings for the remote generative-AI endpoint.
type GenAIConfig struct {
	Provider   string        `koanf:"provider"` // "gemini" or "openai"
	APIKey     Secret        `koanf:"api_key"`
	BaseURL    string        `koanf:"base_url"` // empty selects the provider default
	Timeout    time.Duration `koanf:"timeout"`
	RateLimit  float64       `koanf:"rate_limit"` // requests per second
	Burst      int           `koanf:"burst"`
	MaxRetries int           `koanf:"max_retries"`
}

// ModelsConfig selects the model used for each request kind.
type ModelsConfig struct {
	FactCheck              string  `koanf:"fact_check"`
	FactCheckTemperature   float64 `koanf:"fact_check_temperature"`
	FactCheckSearch        bool    `koanf:"fact_check_search"`
	FactCheckMaps          bool    `koanf:"fact_check_maps"`
	Deepfake               string  `koanf:"deepfake"`
	DeepfakeThinkingBudget int     `koanf:"deepfake_thinking_budget"`
	Virality               string  `koanf:"virality"`
	Chat                   string  `koanf:"chat"`
}

// PromptsConfig points at the optional instruction catalog.
type PromptsConfig struct {
	CatalogPath string `koanf:"catalog_path"`
	Watch       bool   `koanf:"watch"`
}

// GeoConfig controls location context for fact-check requests.
type GeoConfig struct {
	Timeout          time.Duration `koanf:"timeout"`
	DefaultEnabled   bool          `koanf:"default_enabled"`
	DefaultLatitude  float64       `koanf:"default_latitude"`
	DefaultLongitude float64       `koanf:"default_longitude"`
}

// ChatConfig limits in-memory chat sessions.
type ChatConfig struct {
	MaxSessions int `koanf:"max_sessions"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig holds OpenTelemetry exporter settings.
type TelemetryConfig struct {
	Enabled        bool    `koanf:"enabled"`
	Endpoint       string  `koanf:"endpoint"`
	Protocol       string  `koanf:"protocol"` // "grpc" or "http/protobuf"
	Insecure       bool    `koanf:"insecure"`
	ServiceName    string  `koanf:"service_name"`
	SampleRate     float64 `koanf:"sample_rate"`
	MetricsEnabled bool    `koanf:"metrics_enabled"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            9191,
			ShutdownTimeout: 10 * time.Second,
			BodyLimit:       "10M",
		},
		GenAI: GenAIConfig{
			Provider:   "gemini",
			Timeout:    90 * time.Second,
			RateLimit:  1.0,
			Burst:      5,
			MaxRetries: 3,
		},
		Models: ModelsConfig{
			FactCheck:              "gemini-2.5-flash",
			FactCheckTemperature:   0.3,
			FactCheckSearch:        true,
			FactCheckMaps:          true,
			Deepfake:               "gemini-3-pro-preview",
			DeepfakeThinkingBudget: 4096,
			Virality:               "gemini-flash-lite-latest",
			Chat:                   "gemini-3-pro-preview",
		},
		Geo: GeoConfig{
			Timeout: 5 * time.Second,
		},
		Chat: ChatConfig{
			MaxSessions: 1000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Enabled:        false,
			Endpoint:       "localhost:4317",
			Protocol:       "grpc",
			Insecure:       true,
			ServiceName:    "veritas",
			SampleRate:     1.0,
			MetricsEnabled: true,
		},
	}
}

// Validate validates the configuration.
//
// The API key is not required here so that the daemon can start without one;
// the endpoint client rejects requests when it is missing.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	switch c.GenAI.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unknown genai provider %q (want gemini or openai)", c.GenAI.Provider)
	}
	if c.GenAI.Timeout <= 0 {
		return errors.New("genai timeout must be positive")
	}
	if c.GenAI.RateLimit <= 0 {
		return errors.New("genai rate_limit must be positive")
	}
	if c.GenAI.Burst < 1 {
		return errors.New("genai burst must be at least 1")
	}
	if c.GenAI.MaxRetries < 0 {
		return errors.New("genai max_retries cannot be negative")
	}

	if c.Models.FactCheck == "" || c.Models.Deepfake == "" || c.Models.Virality == "" || c.Models.Chat == "" {
		return errors.New("every request kind needs a model")
	}
	if c.Models.FactCheckTemperature < 0 || c.Models.FactCheckTemperature > 2 {
		return fmt.Errorf("fact_check_temperature must be between 0 and 2, got %v", c.Models.FactCheckTemperature)
	}

	if c.Geo.Timeout <= 0 {
		return errors.New("geo timeout must be positive")
	}
	if c.Geo.DefaultEnabled {
		if c.Geo.DefaultLatitude < -90 || c.Geo.DefaultLatitude > 90 {
			return fmt.Errorf("default_latitude out of range: %v", c.Geo.DefaultLatitude)
		}
		if c.Geo.DefaultLongitude < -180 || c.Geo.DefaultLongitude > 180 {
			return fmt.Errorf("default_longitude out of range: %v", c.Geo.DefaultLongitude)
		}
	}

	if c.Chat.MaxSessions < 1 {
		return errors.New("chat max_sessions must be at least 1")
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format)
	}

	if c.Telemetry.Enabled && c.Telemetry.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}

	return nil
}
