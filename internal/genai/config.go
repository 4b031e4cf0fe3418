package genai

import (
	"fmt"
	"time"

	"github.com/fyrsmithlabs/veritas/internal/config"
)

// Provider names accepted by New.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Config holds client settings.
type Config struct {
	Provider   string
	APIKey     string `json:"-"`
	BaseURL    string
	Timeout    time.Duration
	RateLimit  float64 // requests per second
	Burst      int
	MaxRetries int
}

// ConfigFrom converts the application config section.
func ConfigFrom(c config.GenAIConfig) Config {
	return Config{
		Provider:   c.Provider,
		APIKey:     c.APIKey.Value(),
		BaseURL:    c.BaseURL,
		Timeout:    c.Timeout,
		RateLimit:  c.RateLimit,
		Burst:      c.Burst,
		MaxRetries: c.MaxRetries,
	}
}

func (c Config) withDefaults(baseURL string) Config {
	if c.BaseURL == "" {
		c.BaseURL = baseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.RateLimit <= 0 {
		c.RateLimit = defaultRateLimit
	}
	if c.Burst < 1 {
		c.Burst = defaultBurst
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = defaultMaxRetries
	}
	return c
}

// New creates the Generator for cfg.Provider.
func New(cfg Config, opts ...Option) (Generator, error) {
	switch cfg.Provider {
	case ProviderGemini, "":
		return NewGeminiClient(cfg, opts...)
	case ProviderOpenAI:
		return NewOpenAIClient(cfg, opts...)
	default:
		return nil, fmt.Errorf("unsupported genai provider: %s", cfg.Provider)
	}
}
