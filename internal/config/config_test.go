package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	require.NoError(t, os.Chmod(path, perm))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "gemini", cfg.GenAI.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.Models.FactCheck)
	assert.Equal(t, 0.3, cfg.Models.FactCheckTemperature)
	assert.Equal(t, 4096, cfg.Models.DeepfakeThinkingBudget)
	assert.Equal(t, "gemini-flash-lite-latest", cfg.Models.Virality)
	assert.Equal(t, "gemini-3-pro-preview", cfg.Models.Chat)
	assert.Equal(t, 5*time.Second, cfg.Geo.Timeout)
	assert.False(t, cfg.GenAI.APIKey.IsSet())
}

func TestLoadWithFile_YAMLThenEnv(t *testing.T) {
	path := writeConfig(t, `
server:
  http_port: 8088
genai:
  api_key: from-file
  timeout: 30s
models:
  fact_check: gemini-custom
geo:
  default_enabled: true
  default_latitude: 55.75
  default_longitude: 37.62
`, 0o600)

	t.Setenv("VERITAS_SERVER_HTTP_PORT", "7070")
	t.Setenv("VERITAS_MODELS_VIRALITY", "lite-model")

	cfg, err := LoadWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port, "env overrides file")
	assert.Equal(t, "from-file", cfg.GenAI.APIKey.Value())
	assert.Equal(t, 30*time.Second, cfg.GenAI.Timeout)
	assert.Equal(t, "gemini-custom", cfg.Models.FactCheck)
	assert.Equal(t, "lite-model", cfg.Models.Virality)
	assert.Equal(t, "gemini-3-pro-preview", cfg.Models.Deepfake, "unset fields keep defaults")
	assert.True(t, cfg.Geo.DefaultEnabled)
	assert.InDelta(t, 55.75, cfg.Geo.DefaultLatitude, 1e-9)
}

func TestLoadWithFile_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		wantErr string
	}{
		{
			name:    "missing file",
			path:    func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") },
			wantErr: "failed to open config file",
		},
		{
			name:    "world writable",
			path:    func(t *testing.T) string { return writeConfig(t, "server:\n  http_port: 1\n", 0o666) },
			wantErr: "insecure config file permissions",
		},
		{
			name:    "directory",
			path:    func(t *testing.T) string { return t.TempDir() },
			wantErr: "directory",
		},
		{
			name:    "invalid values",
			path:    func(t *testing.T) string { return writeConfig(t, "genai:\n  provider: mystery\n", 0o600) },
			wantErr: "unknown genai provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadWithFile(tt.path(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"VERITAS_SERVER_HTTP_PORT":       "server.http_port",
		"VERITAS_GENAI_API_KEY":          "genai.api_key",
		"VERITAS_MODELS_FACT_CHECK":      "models.fact_check",
		"VERITAS_TELEMETRY_SERVICE_NAME": "telemetry.service_name",
		"VERITAS_PROMPTS_CATALOG_PATH":   "prompts.catalog_path",
		"VERITAS_STANDALONE":             "standalone",
		"VERITAS_GEO_DEFAULT_LONGITUDE":  "geo.default_longitude",
		"VERITAS_CHAT_MAX_SESSIONS":      "chat.max_sessions",
		"VERITAS_LOGGING_LEVEL":          "logging.level",
	}
	for in, want := range tests {
		assert.Equal(t, want, envKey(in), in)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, true},
		{"openai provider", func(c *Config) { c.GenAI.Provider = "openai" }, false},
		{"no rate", func(c *Config) { c.GenAI.RateLimit = 0 }, true},
		{"negative retries", func(c *Config) { c.GenAI.MaxRetries = -1 }, true},
		{"empty model", func(c *Config) { c.Models.Chat = "" }, true},
		{"hot temperature", func(c *Config) { c.Models.FactCheckTemperature = 3 }, true},
		{"bad latitude", func(c *Config) { c.Geo.DefaultEnabled = true; c.Geo.DefaultLatitude = 91 }, true},
		{"bad latitude ignored when disabled", func(c *Config) { c.Geo.DefaultLatitude = 91 }, false},
		{"no sessions", func(c *Config) { c.Chat.MaxSessions = 0 }, true},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"telemetry without name", func(c *Config) { c.Telemetry.Enabled = true; c.Telemetry.ServiceName = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSecret_Redaction(t *testing.T) {
	s := Secret("api-key-123")

	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprintf("%v", s))
	assert.Equal(t, "Secret([REDACTED])", fmt.Sprintf("%#v", s))
	assert.Equal(t, "api-key-123", s.Value())

	data, err := json.Marshal(struct{ Key Secret }{s})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "api-key-123")

	assert.Equal(t, "", Secret("").String())
	assert.False(t, Secret("").IsSet())
}
