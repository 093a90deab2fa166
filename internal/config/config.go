// Package config provides application configuration loading from environment variables and .env files.
// It uses viper for flexible configuration management with sensible defaults.
package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config holds all application configuration loaded from environment variables or .env file.
// Configuration priority: environment variables > .env file > defaults.
type Config struct {
	AppEnv            string        // Application environment (dev, staging, prod)
	APIBaseURL        string        // Base URL of the experiments backend
	RequestTimeout    time.Duration // Timeout of every backend request
	HTTPAddr          string        // Dashboard bind address (e.g., ":8080")
	MetricsAddr       string        // Metrics server bind address
	LogLevel          string        // zerolog level name
	TokenFile         string        // Credentials file; empty selects ~/.abconsole/credentials.yaml
	RateLimitPerIP    int           // Dashboard requests per minute per IP (0 disables)
	StreamInterval    time.Duration // Refresh interval of the stats stream
	MockSalt          string        // Salt for deterministic assignment in the mock backend
	mockSaltGenerated bool          // internal: tracks if the mock salt was auto-generated
}

const (
	saltByteSize        = 16
	defaultSaltFallback = "default-random-salt"
)

// Load reads configuration from environment variables and .env file (if present).
// Environment variables take precedence over .env file values.
// It does not validate; call Validate before serving.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env") // Optional; silently ignored if file doesn't exist
	_ = v.ReadInConfig()
	v.AutomaticEnv()

	setConfigDefaults(v)
	salt, generated := getOrGenerateMockSalt(v)

	return &Config{
		AppEnv:            v.GetString("APP_ENV"),
		APIBaseURL:        v.GetString("API_BASE_URL"),
		RequestTimeout:    v.GetDuration("REQUEST_TIMEOUT"),
		HTTPAddr:          v.GetString("APP_HTTP_ADDR"),
		MetricsAddr:       v.GetString("METRICS_ADDR"),
		LogLevel:          v.GetString("LOG_LEVEL"),
		TokenFile:         v.GetString("TOKEN_FILE"),
		RateLimitPerIP:    v.GetInt("RATE_LIMIT_PER_IP"),
		StreamInterval:    v.GetDuration("STREAM_INTERVAL"),
		MockSalt:          salt,
		mockSaltGenerated: generated,
	}, nil
}

// setConfigDefaults sets default values suitable for local development.
func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("API_BASE_URL", "http://localhost:3000/api")
	v.SetDefault("REQUEST_TIMEOUT", "10s")
	v.SetDefault("APP_HTTP_ADDR", ":8080")
	v.SetDefault("METRICS_ADDR", ":9090")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TOKEN_FILE", "")
	v.SetDefault("RATE_LIMIT_PER_IP", 100)
	v.SetDefault("STREAM_INTERVAL", "5s")
}

// getOrGenerateMockSalt returns MOCK_SALT, generating a random one when unset.
// Assignments made by the mock backend change on restart with a generated salt.
func getOrGenerateMockSalt(v *viper.Viper) (string, bool) {
	if salt := v.GetString("MOCK_SALT"); salt != "" {
		return salt, false
	}
	b := make([]byte, saltByteSize)
	if _, err := rand.Read(b); err != nil {
		log.Error().Err(err).Msg("failed to generate random salt, using fallback")
		return defaultSaltFallback, true
	}
	return hex.EncodeToString(b), true
}

// MockSaltGenerated reports whether MockSalt was generated rather than configured.
func (c *Config) MockSaltGenerated() bool {
	return c.mockSaltGenerated
}

// Level returns the parsed log level, defaulting to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

// ValidationError represents a configuration validation error with details about what failed.
type ValidationError struct {
	Field   string // Name of the configuration field
	Message string // Human-readable error message
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed [%s]: %s", e.Field, e.Message)
}

// Validate checks the configuration and returns the first problem found.
//
// Rules:
//  1. API_BASE_URL must be an absolute http(s) URL
//  2. REQUEST_TIMEOUT must be positive
//  3. APP_HTTP_ADDR and METRICS_ADDR must be non-empty
//  4. LOG_LEVEL must be a zerolog level name
//  5. RATE_LIMIT_PER_IP must not be negative
//  6. STREAM_INTERVAL must be at least one second
func (c *Config) Validate() error {
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ValidationError{
			Field:   "API_BASE_URL",
			Message: fmt.Sprintf("must be an absolute http(s) URL, got '%s'", c.APIBaseURL),
		}
	}

	if c.RequestTimeout <= 0 {
		return ValidationError{
			Field:   "REQUEST_TIMEOUT",
			Message: "request timeout must be positive",
		}
	}

	if c.HTTPAddr == "" {
		return ValidationError{
			Field:   "APP_HTTP_ADDR",
			Message: "HTTP server address cannot be empty",
		}
	}

	if c.MetricsAddr == "" {
		return ValidationError{
			Field:   "METRICS_ADDR",
			Message: "metrics server address cannot be empty",
		}
	}

	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return ValidationError{
			Field:   "LOG_LEVEL",
			Message: fmt.Sprintf("unknown log level '%s'", c.LogLevel),
		}
	}

	if c.RateLimitPerIP < 0 {
		return ValidationError{
			Field:   "RATE_LIMIT_PER_IP",
			Message: "rate limit cannot be negative",
		}
	}

	if c.StreamInterval < time.Second {
		return ValidationError{
			Field:   "STREAM_INTERVAL",
			Message: "stream interval must be at least 1s",
		}
	}

	return nil
}
