package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/veritas/internal/config"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.Equal(t, ProtocolGRPC, cfg.Protocol)
	assert.Equal(t, "veritas", cfg.ServiceName)
	assert.Equal(t, 1.0, cfg.SampleRate)
	assert.True(t, cfg.Metrics)
	assert.Equal(t, 15*time.Second, cfg.ExportInterval)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTime)
	require.NoError(t, cfg.Validate())
}

func TestFromConfig(t *testing.T) {
	tc := config.Default().Telemetry
	tc.Enabled = true
	tc.SampleRate = 0.25
	tc.Protocol = ""

	cfg := FromConfig(tc, "1.2.3")

	assert.True(t, cfg.Enabled)
	assert.Equal(t, tc.Endpoint, cfg.Endpoint)
	assert.Equal(t, ProtocolGRPC, cfg.Protocol)
	assert.Equal(t, "1.2.3", cfg.ServiceVersion)
	assert.Equal(t, 0.25, cfg.SampleRate)
	assert.Equal(t, tc.MetricsEnabled, cfg.Metrics)
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"disabled ignores fields", func(c *Config) { c.Endpoint = ""; c.SampleRate = 7 }, ""},
		{"enabled defaults", func(c *Config) { c.Enabled = true }, ""},
		{"http protocol", func(c *Config) { c.Enabled = true; c.Protocol = ProtocolHTTP; c.Endpoint = "localhost:4318" }, ""},
		{"missing endpoint", func(c *Config) { c.Enabled = true; c.Endpoint = "" }, "endpoint is required"},
		{"missing service name", func(c *Config) { c.Enabled = true; c.ServiceName = "" }, "service_name is required"},
		{"unknown protocol", func(c *Config) { c.Enabled = true; c.Protocol = "udp" }, "unknown protocol"},
		{"insecure remote", func(c *Config) { c.Enabled = true; c.Endpoint = "collector.example.com:4317" }, "insecure export"},
		{"secure remote", func(c *Config) {
			c.Enabled = true
			c.Endpoint = "collector.example.com:4317"
			c.Insecure = false
		}, ""},
		{"sample rate too high", func(c *Config) { c.Enabled = true; c.SampleRate = 1.5 }, "sample_rate"},
		{"negative sample rate", func(c *Config) { c.Enabled = true; c.SampleRate = -0.1 }, "sample_rate"},
		{"zero export interval", func(c *Config) { c.Enabled = true; c.ExportInterval = 0 }, "export interval"},
		{"zero interval without metrics", func(c *Config) {
			c.Enabled = true
			c.Metrics = false
			c.ExportInterval = 0
		}, ""},
		{"zero shutdown timeout", func(c *Config) { c.Enabled = true; c.ShutdownTime = 0 }, "shutdown timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestIsLocalEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		want     bool
	}{
		{"localhost:4317", true},
		{"http://localhost:4318", true},
		{"127.0.0.1:4317", true},
		{"[::1]:4317", true},
		{"localhost", true},
		{"collector:4317", false},
		{"10.0.0.5:4317", false},
		{"https://otel.example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			assert.Equal(t, tt.want, isLocalEndpoint(tt.endpoint))
		})
	}
}
