// Package platform loads configuration and wires the service components.
package platform

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/swipetherapy/swipe-therapy/pkg/backend"
)

// CurrentConfigVersion is the only supported config API version.
const CurrentConfigVersion = "v1"

// Defaults applied by applyDefaults.
const (
	defaultAddress         = ":8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 90 * time.Second
	defaultShutdownTimeout = 25 * time.Second
	defaultMaxOpenConns    = 10
	defaultCleanupInterval = time.Hour
	defaultRetentionDays   = 90
	defaultLogLevel        = "info"
)

// Config holds the complete service configuration.
type Config struct {
	APIVersion string         `yaml:"apiVersion"`
	Server     ServerConfig   `yaml:"server"`
	Database   DatabaseConfig `yaml:"database"`
	Backend    BackendConfig  `yaml:"backend"`
	Session    SessionConfig  `yaml:"session"`
	Audit      AuditConfig    `yaml:"audit"`
	Logging    LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig configures the PostgreSQL connection. An empty DSN selects
// in-memory session storage and log-only auditing.
type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`

	// Migrate applies pending migrations on startup. Defaults to true.
	Migrate *bool `yaml:"migrate"`
}

// MigrateOnStart reports whether migrations run on startup.
func (d DatabaseConfig) MigrateOnStart() bool {
	return d.Migrate == nil || *d.Migrate
}

// BackendConfig configures the generation backend.
type BackendConfig struct {
	Variant         string        `yaml:"variant"`
	APIKey          string        `yaml:"api_key"`
	BaseURL         string        `yaml:"base_url"`
	Model           string        `yaml:"model"`
	ReasoningEffort string        `yaml:"reasoning_effort"`
	Timeout         time.Duration `yaml:"timeout"`
	ProxyURL        string        `yaml:"proxy_url"`
}

// SessionConfig configures session retention. A zero Retention keeps
// sessions forever.
type SessionConfig struct {
	Retention       time.Duration `yaml:"retention"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// AuditConfig configures the generation audit log.
type AuditConfig struct {
	Enabled        bool `yaml:"enabled"`
	RetentionDays  int  `yaml:"retention_days"`
	StoreRawOutput bool `yaml:"store_raw_output"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// LoadConfig loads configuration from a file.
// The path is expected to come from command line arguments, controlled by the administrator.
func LoadConfig(path string) (*Config, error) {
	// #nosec G304 -- path is from CLI args, controlled by admin
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML config bytes, expanding ${VAR} references.
func ParseConfig(data []byte) (*Config, error) {
	data = []byte(expandEnvVars(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.APIVersion != "" && cfg.APIVersion != CurrentConfigVersion {
		return nil, fmt.Errorf("unsupported config apiVersion %q (supported: %s)", cfg.APIVersion, CurrentConfigVersion)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// FromEnv builds a config from environment variables alone. It is used when
// no config file is given.
func FromEnv() *Config {
	cfg := &Config{
		Server:   ServerConfig{Address: os.Getenv("LISTEN_ADDRESS")},
		Database: DatabaseConfig{DSN: os.Getenv("DATABASE_URL")},
		Backend: BackendConfig{
			Variant:  os.Getenv("BACKEND_VARIANT"),
			APIKey:   os.Getenv("OPENAI_API_KEY"),
			Model:    os.Getenv("BACKEND_MODEL"),
			ProxyURL: os.Getenv("HTTP_PROXY_URL"),
		},
		Audit:   AuditConfig{Enabled: true},
		Logging: LoggingConfig{Level: os.Getenv("LOG_LEVEL")},
	}
	applyDefaults(cfg)
	return cfg
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in the string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(match[2 : len(match)-1])
	})
}

// applyDefaults applies default values to the config.
func applyDefaults(cfg *Config) {
	if cfg.APIVersion == "" {
		cfg.APIVersion = CurrentConfigVersion
	}
	if cfg.Server.Address == "" {
		cfg.Server.Address = defaultAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = defaultMaxOpenConns
	}
	if cfg.Backend.Variant == "" {
		cfg.Backend.Variant = string(backend.VariantStructured)
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = backend.DefaultTimeout
	}
	if cfg.Session.CleanupInterval == 0 {
		cfg.Session.CleanupInterval = defaultCleanupInterval
	}
	if cfg.Audit.RetentionDays == 0 {
		cfg.Audit.RetentionDays = defaultRetentionDays
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaultLogLevel
	}
}

// Validate validates the configuration, reporting every problem at once.
func (c *Config) Validate() error {
	var errs []string

	if !backend.Variant(c.Backend.Variant).Valid() {
		errs = append(errs, fmt.Sprintf("backend.variant must be %q or %q, got %q",
			backend.VariantStructured, backend.VariantChat, c.Backend.Variant))
	}
	if c.Backend.Timeout < 0 {
		errs = append(errs, "backend.timeout must not be negative")
	}
	if c.Database.MaxOpenConns < 0 {
		errs = append(errs, "database.max_open_conns must not be negative")
	}
	if c.Session.Retention < 0 {
		errs = append(errs, "session.retention must not be negative")
	}
	if c.Session.CleanupInterval < 0 {
		errs = append(errs, "session.cleanup_interval must not be negative")
	}
	if c.Audit.RetentionDays < 0 {
		errs = append(errs, "audit.retention_days must not be negative")
	}
	if _, err := ParseLogLevel(c.Logging.Level); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
