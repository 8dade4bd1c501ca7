package platform

import (
	"database/sql"
	"log/slog"

	"github.com/swipetherapy/swipe-therapy/pkg/backend"
)

// Options configures platform construction.
type Options struct {
	Config *Config

	// DB replaces the connection opened from Config.Database.DSN. The caller
	// owns its schema; migrations are not run against it.
	DB *sql.DB

	// Backend replaces the generator built from Config.Backend.
	Backend backend.Generator

	Logger *slog.Logger
}

// Option is a functional option for configuring the platform.
type Option func(*Options)

// WithConfig sets the configuration.
func WithConfig(cfg *Config) Option {
	return func(o *Options) {
		o.Config = cfg
	}
}

// WithDB injects a database connection.
func WithDB(db *sql.DB) Option {
	return func(o *Options) {
		o.DB = db
	}
}

// WithBackend injects a generation backend.
func WithBackend(g backend.Generator) Option {
	return func(o *Options) {
		o.Backend = g
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}
