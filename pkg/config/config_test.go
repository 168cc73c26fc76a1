package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("API_BASE_URL", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultAPIBaseURL, cfg.APIBaseURL)
	assert.Equal(t, time.Duration(0), cfg.HTTPTimeout)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("API_BASE_URL", " https://api.example.com/v1/ ")
	t.Setenv("HTTP_TIMEOUT", "15s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
	t.Setenv("DEBUG", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1/", cfg.APIBaseURL)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, "https://api.example.com/v1", cfg.ResolveAPIBaseURL(""))
}

func TestLoadConfig_ProductionDisablesDebug(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DEBUG", "true")
	t.Setenv("JWT_SECRET", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.Debug)
	assert.Error(t, cfg.Validate(), "default secret must be rejected in production")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"ok", Config{APIBaseURL: "http://localhost:8080/api", Port: "8080"}, false},
		{"missing url", Config{Port: "8080"}, true},
		{"bad scheme", Config{APIBaseURL: "ftp://x", Port: "8080"}, true},
		{"negative timeout", Config{APIBaseURL: "http://x", Port: "1", HTTPTimeout: -time.Second}, true},
		{"missing port", Config{APIBaseURL: "http://x"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestResolveAPIBaseURL(t *testing.T) {
	cfg := &Config{APIBaseURL: "http://configured/api/"}
	assert.Equal(t, "http://override", cfg.ResolveAPIBaseURL("http://override/"))
	assert.Equal(t, "http://configured/api", cfg.ResolveAPIBaseURL("  "))

	empty := &Config{}
	assert.Equal(t, DefaultAPIBaseURL, empty.ResolveAPIBaseURL(""))
}
