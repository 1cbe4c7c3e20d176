package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	// SQL store drivers selectable via store.driver.
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/platinummonkey/clerk-fapi-go/pkg/config"
	"github.com/platinummonkey/clerk-fapi-go/pkg/observability"
	"github.com/platinummonkey/clerk-fapi-go/pkg/store"
)

// Config is the demo's YAML configuration.
type Config struct {
	PublishableKey    string      `yaml:"publishable_key"`
	LogLevel          string      `yaml:"log_level"`
	StoreKeyPrefix    string      `yaml:"store_key_prefix"`
	KeepAliveSchedule string      `yaml:"keep_alive_schedule"`
	MetricsAddr       string      `yaml:"metrics_addr"`
	Store             StoreConfig `yaml:"store"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	// Backend is one of memory, file, redis, sql.
	Backend string `yaml:"backend"`

	// Dir holds the file backend's state directory.
	Dir string `yaml:"dir"`

	// URL is the redis backend's connection URL, e.g. redis://localhost:6379/0.
	URL string `yaml:"url"`

	// Driver and DSN configure the sql backend: sqlite3 or postgres.
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// DefaultConfig returns the demo defaults: memory store, info logging.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Store:    StoreConfig{Backend: "memory"},
	}
}

// LoadConfig loads configuration from a file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

// LoadConfigFromDir searches dir for a config file, falling back to defaults
// when none exists.
func LoadConfigFromDir(dir string) (*Config, error) {
	configNames := []string{"clerk-demo.yaml", "clerk-demo.yml", ".clerk-demo.yaml", ".clerk-demo.yml"}

	for _, name := range configNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadConfig(path)
		}
	}
	return DefaultConfig(), nil
}

// SDKConfig converts the demo configuration into the SDK's. The publishable
// key falls back to the CLERK_PUBLISHABLE_KEY environment variable.
func (c *Config) SDKConfig() (*config.Config, error) {
	key := c.PublishableKey
	if key == "" {
		key = os.Getenv("CLERK_PUBLISHABLE_KEY")
	}
	if key == "" {
		return nil, fmt.Errorf("publishable key is required: set publishable_key in the config file or CLERK_PUBLISHABLE_KEY")
	}

	cfg := config.New(key)
	cfg.StoreKeyPrefix = c.StoreKeyPrefix
	cfg.KeepAliveSchedule = c.KeepAliveSchedule
	cfg.Observability.LogLevel = logLevel(c.LogLevel)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// BuildStore constructs the configured persistence backend. The returned
// cleanup releases backend resources and may be nil.
func (c *Config) BuildStore(logger *observability.Logger) (store.Store, func() error, error) {
	switch c.Store.Backend {
	case "", "memory":
		return store.NewMemoryStore(), nil, nil

	case "file":
		dir := c.Store.Dir
		if dir == "" {
			dir = filepath.Join(os.TempDir(), "clerk-demo")
		}
		s, err := store.NewFileStore(dir, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open file store: %w", err)
		}
		return s, nil, nil

	case "redis":
		if c.Store.URL == "" {
			return nil, nil, fmt.Errorf("store.url is required for the redis backend")
		}
		s, err := store.NewRedisStore(c.Store.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return s, s.Close, nil

	case "sql":
		dialect, driver, err := sqlDialect(c.Store.Driver)
		if err != nil {
			return nil, nil, err
		}
		if c.Store.DSN == "" {
			return nil, nil, fmt.Errorf("store.dsn is required for the sql backend")
		}
		db, err := sql.Open(driver, c.Store.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		s, err := store.NewSQLStore(db, dialect)
		if err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to initialize sql store: %w", err)
		}
		return s, db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
}

func sqlDialect(driver string) (store.Dialect, string, error) {
	switch driver {
	case "", "sqlite3", "sqlite":
		return store.DialectSQLite, "sqlite3", nil
	case "postgres":
		return store.DialectPostgres, "postgres", nil
	default:
		return "", "", fmt.Errorf("unknown sql driver %q", driver)
	}
}

func logLevel(level string) observability.LogLevel {
	switch level {
	case "debug":
		return observability.DebugLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}
