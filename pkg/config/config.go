// Package config loads client and dev gateway settings from an optional .env file and the environment.
package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultAPIBaseURL   = "http://localhost:8080/api"
	defaultDevJWTSecret = "dev-gateway-secret-change-me"
)

// Config application settings
type Config struct {
	Environment string `mapstructure:"ENVIRONMENT"`

	// Gateway client
	APIBaseURL  string        `mapstructure:"API_BASE_URL"`
	HTTPTimeout time.Duration `mapstructure:"HTTP_TIMEOUT"` // zero means no client-side timeout

	// Local persistence
	DataDir      string `mapstructure:"DATA_DIR"`
	PostgresDSN  string `mapstructure:"POSTGRES_DSN"`
	CookieOrigin string `mapstructure:"COOKIE_ORIGIN"`

	// Dev gateway
	Port           string   `mapstructure:"PORT"`
	JWTSecret      string   `mapstructure:"JWT_SECRET"`
	AllowedOrigins []string `mapstructure:"-"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
	Debug    bool   `mapstructure:"DEBUG"`
}

// LoadConfig reads the .env file matching ENVIRONMENT (if present), then the process environment.
// Environment variables win over file values.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("ENVIRONMENT", "development")

	envFile := ".env.local"
	if v.GetString("ENVIRONMENT") == "production" {
		envFile = ".env.production"
	}
	v.SetConfigFile(envFile)
	v.SetConfigType("env")
	_ = v.ReadInConfig() // a missing file is fine

	v.SetDefault("API_BASE_URL", DefaultAPIBaseURL)
	v.SetDefault("HTTP_TIMEOUT", "0s")
	v.SetDefault("DATA_DIR", "./data")
	v.SetDefault("POSTGRES_DSN", "")
	v.SetDefault("COOKIE_ORIGIN", "")
	v.SetDefault("PORT", "8080")
	v.SetDefault("JWT_SECRET", defaultDevJWTSecret)
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("LOG_LEVEL", "INFO")
	v.SetDefault("DEBUG", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg.APIBaseURL = strings.TrimSpace(cfg.APIBaseURL)
	cfg.PostgresDSN = strings.TrimSpace(cfg.PostgresDSN)
	cfg.CookieOrigin = strings.TrimSpace(cfg.CookieOrigin)
	cfg.AllowedOrigins = splitList(v.GetString("ALLOWED_ORIGINS"))

	if cfg.IsProduction() {
		cfg.Debug = false
	}
	if cfg.Debug {
		cfg.LogLevel = "DEBUG"
	}
	return &cfg, nil
}

// Cached config (initialized once per process)
var (
	cachedConfig *Config
	cachedErr    error
	configOnce   sync.Once
)

// GetCached returns the process-wide Config, loading it on first use.
func GetCached() (*Config, error) {
	configOnce.Do(func() {
		cachedConfig, cachedErr = LoadConfig()
	})
	return cachedConfig, cachedErr
}

// Validate checks the settings that cannot fall back to a default.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}
	if !strings.HasPrefix(c.APIBaseURL, "http://") && !strings.HasPrefix(c.APIBaseURL, "https://") {
		return fmt.Errorf("API_BASE_URL must be an http(s) URL, got %q", c.APIBaseURL)
	}
	if c.HTTPTimeout < 0 {
		return fmt.Errorf("HTTP_TIMEOUT must not be negative")
	}
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.IsProduction() && (c.JWTSecret == "" || c.JWTSecret == defaultDevJWTSecret) {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	return nil
}

// ResolveAPIBaseURL picks the gateway address: an explicit override first, then the configured one,
// then the default. A trailing slash is removed.
func (c *Config) ResolveAPIBaseURL(override string) string {
	for _, candidate := range []string{override, c.APIBaseURL, DefaultAPIBaseURL} {
		if s := strings.TrimSpace(candidate); s != "" {
			return strings.TrimRight(s, "/")
		}
	}
	return DefaultAPIBaseURL
}

// IsProduction reports whether ENVIRONMENT is production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsDevelopment reports whether ENVIRONMENT is development.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
