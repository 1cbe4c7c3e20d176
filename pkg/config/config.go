package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/platinummonkey/clerk-fapi-go/pkg/observability"
)

// Config holds all SDK configuration
type Config struct {
	// PublishableKey identifies the instance, e.g. pk_test_... or pk_live_...
	PublishableKey string

	// BaseURL overrides the Frontend API origin derived from the
	// publishable key. Normally left empty.
	BaseURL string

	// StoreKeyPrefix namespaces every key the SDK writes to its
	// persistence store, so several instances can share one backend.
	StoreKeyPrefix string

	// UserAgent sent with every Frontend API request
	UserAgent string

	// HTTPTimeout bounds each Frontend API call. Zero means no timeout.
	HTTPTimeout time.Duration

	// TokenCacheSize is the maximum number of minted session tokens kept
	// in the in-process cache
	TokenCacheSize int

	// TokenLeeway is subtracted from a cached token's remaining lifetime
	// so callers never receive a token about to expire
	TokenLeeway time.Duration

	// KeepAliveSchedule is a cron expression for the session keep-alive
	// touch. Empty disables the refresher.
	KeepAliveSchedule string

	// Observability configuration
	Observability ObservabilityConfig
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// New returns a Config for the given publishable key with defaults applied
func New(publishableKey string) *Config {
	return &Config{
		PublishableKey: publishableKey,
		StoreKeyPrefix: defaultStoreKeyPrefix,
		UserAgent:      defaultUserAgent,
		HTTPTimeout:    30 * time.Second,
		TokenCacheSize: 32,
		TokenLeeway:    10 * time.Second,
		Observability: ObservabilityConfig{
			LogLevel:           observability.InfoLevel,
			OTelServiceName:    "clerk-fapi-go",
			OTelServiceVersion: Version,
			OTelInsecure:       true,
		},
	}
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := New(getEnv("CLERK_PUBLISHABLE_KEY", ""))

	cfg.BaseURL = getEnv("CLERK_API_URL", "")
	cfg.StoreKeyPrefix = getEnv("CLERK_STORE_KEY_PREFIX", defaultStoreKeyPrefix)
	cfg.UserAgent = getEnv("CLERK_USER_AGENT", defaultUserAgent)
	cfg.HTTPTimeout = getEnvDuration("CLERK_HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.TokenCacheSize = getEnvInt("CLERK_TOKEN_CACHE_SIZE", cfg.TokenCacheSize)
	cfg.TokenLeeway = getEnvDuration("CLERK_TOKEN_LEEWAY", cfg.TokenLeeway)
	cfg.KeepAliveSchedule = getEnv("CLERK_KEEPALIVE_SCHEDULE", "")

	cfg.Observability = ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("CLERK_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("CLERK_METRICS_ENABLED", false),
		OTelEnabled:        getEnvBool("CLERK_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("CLERK_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("CLERK_OTEL_SERVICE_NAME", "clerk-fapi-go"),
		OTelServiceVersion: getEnv("CLERK_OTEL_SERVICE_VERSION", Version),
		OTelInsecure:       getEnvBool("CLERK_OTEL_INSECURE", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.PublishableKey == "" {
		return fmt.Errorf("publishable key is required")
	}
	if _, err := ParsePublishableKey(c.PublishableKey); err != nil {
		return fmt.Errorf("invalid publishable key: %w", err)
	}

	if c.BaseURL != "" && !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("base URL must be an absolute http(s) URL: %s", c.BaseURL)
	}

	if c.HTTPTimeout < 0 {
		return fmt.Errorf("HTTP timeout must not be negative")
	}
	if c.TokenCacheSize < 0 {
		return fmt.Errorf("token cache size must not be negative")
	}
	if c.TokenLeeway < 0 {
		return fmt.Errorf("token leeway must not be negative")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// FrontendAPIURL returns the base URL for Frontend API calls: the explicit
// BaseURL override when set, otherwise the origin encoded in the
// publishable key.
func (c *Config) FrontendAPIURL() (string, error) {
	if c.BaseURL != "" {
		return strings.TrimRight(c.BaseURL, "/"), nil
	}

	key, err := ParsePublishableKey(c.PublishableKey)
	if err != nil {
		return "", err
	}
	return key.FrontendAPIURL(), nil
}

// IsDevelopmentInstance reports whether the configured key belongs to a
// development instance
func (c *Config) IsDevelopmentInstance() bool {
	key, err := ParsePublishableKey(c.PublishableKey)
	if err != nil {
		return false
	}
	return key.Instance == InstanceTypeDevelopment
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
