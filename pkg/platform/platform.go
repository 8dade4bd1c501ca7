package platform

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq" // postgres driver

	"github.com/swipetherapy/swipe-therapy/pkg/audit"
	auditpostgres "github.com/swipetherapy/swipe-therapy/pkg/audit/postgres"
	"github.com/swipetherapy/swipe-therapy/pkg/backend"
	"github.com/swipetherapy/swipe-therapy/pkg/database/migrate"
	"github.com/swipetherapy/swipe-therapy/pkg/generator"
	"github.com/swipetherapy/swipe-therapy/pkg/health"
	"github.com/swipetherapy/swipe-therapy/pkg/phase"
	"github.com/swipetherapy/swipe-therapy/pkg/session"
	sessionpostgres "github.com/swipetherapy/swipe-therapy/pkg/session/postgres"
)

// slogKeyError is the slog attribute key for error values.
const slogKeyError = "error"

// Platform owns the service components and their lifecycle.
type Platform struct {
	config    *Config
	logger    *slog.Logger
	lifecycle *Lifecycle

	db        *sql.DB
	ownsDB    bool
	sessions  session.Store
	auditLog  audit.Logger
	querier   audit.Querier
	generator *generator.Service
	health    *health.Checker
}

// New creates a new platform instance.
func New(opts ...Option) (*Platform, error) {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Config == nil {
		return nil, errors.New("config is required")
	}
	applyDefaults(options.Config)
	if err := options.Config.Validate(); err != nil {
		return nil, err
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	p := &Platform{
		config:    options.Config,
		logger:    options.Logger,
		lifecycle: NewLifecycle(),
	}

	if err := p.initializeComponents(options); err != nil {
		_ = p.closeDB()
		return nil, fmt.Errorf("initializing components: %w", err)
	}
	return p, nil
}

// initializeComponents builds every component in dependency order.
func (p *Platform) initializeComponents(opts *Options) error {
	if err := p.initDatabase(opts); err != nil {
		return err
	}
	p.initSessions()
	p.initAudit()
	return p.initGenerator(opts)
}

func (p *Platform) initDatabase(opts *Options) error {
	if opts.DB != nil {
		p.db = opts.DB
		return nil
	}
	if p.config.Database.DSN == "" {
		p.logger.Info("no database configured, using in-memory session storage")
		return nil
	}

	db, err := sql.Open("postgres", p.config.Database.DSN)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(p.config.Database.MaxOpenConns)
	p.db = db
	p.ownsDB = true

	if p.config.Database.MigrateOnStart() {
		if err := migrate.Run(db); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}
	}
	p.lifecycle.RegisterCloser("database", db)
	return nil
}

func (p *Platform) initSessions() {
	retention := p.config.Session.Retention
	interval := p.config.Session.CleanupInterval

	if p.db == nil {
		store := session.NewMemoryStore()
		p.sessions = store
		p.appendCleanup("memory sessions", retention > 0, func() { store.StartCleanupRoutine(interval, retention) }, store.Close)
		return
	}

	store := sessionpostgres.New(p.db)
	p.sessions = store
	p.appendCleanup("postgres sessions", retention > 0, func() { store.StartCleanupRoutine(interval, retention) }, store.Close)
}

func (p *Platform) initAudit() {
	if p.db == nil || !p.config.Audit.Enabled {
		p.auditLog = audit.NewSlogLogger(p.logger)
		return
	}

	store := auditpostgres.New(p.db, auditpostgres.Config{RetentionDays: p.config.Audit.RetentionDays})
	p.auditLog = store
	p.querier = store
	p.appendCleanup("audit log", true, func() { store.StartCleanupRoutine(p.config.Session.CleanupInterval) }, store.Close)
}

// appendCleanup registers a store whose cleanup routine starts with the
// platform and whose Close stops it.
func (p *Platform) appendCleanup(name string, enabled bool, start func(), closeFn func() error) {
	p.lifecycle.Append(Hook{
		Name: name,
		OnStart: func(context.Context) error {
			if enabled {
				start()
			}
			return nil
		},
		OnStop: func(context.Context) error { return closeFn() },
	})
}

func (p *Platform) initGenerator(opts *Options) error {
	gen := opts.Backend
	bc := p.config.Backend
	if gen == nil {
		if bc.APIKey == "" {
			p.logger.Warn("no backend api key configured, card generation will fail with ConfigurationError")
		} else {
			built, err := backend.New(backend.Config{
				Variant:         backend.Variant(bc.Variant),
				APIKey:          bc.APIKey,
				BaseURL:         bc.BaseURL,
				Model:           bc.Model,
				ReasoningEffort: bc.ReasoningEffort,
				Timeout:         bc.Timeout,
				ProxyURL:        bc.ProxyURL,
			})
			if err != nil {
				return fmt.Errorf("creating backend: %w", err)
			}
			gen = built
		}
	}

	svc, err := generator.New(generator.Config{
		Table:          phase.DefaultTable(),
		Backend:        gen,
		Variant:        bc.Variant,
		Audit:          p.auditLog,
		StoreRawOutput: p.config.Audit.StoreRawOutput,
		Logger:         p.logger,
	})
	if err != nil {
		return fmt.Errorf("creating generator: %w", err)
	}
	p.generator = svc

	var pinger health.Pinger
	if p.db != nil {
		pinger = p.db
	}
	p.health = health.NewChecker(pinger)
	return nil
}

// Start starts background routines and marks the platform ready.
func (p *Platform) Start(ctx context.Context) error {
	if err := p.lifecycle.Start(ctx); err != nil {
		return fmt.Errorf("starting platform: %w", err)
	}
	p.health.SetReady()
	return nil
}

// Stop marks the platform draining and releases every component.
func (p *Platform) Stop(ctx context.Context) error {
	p.health.SetDraining()
	if err := p.lifecycle.Stop(ctx); err != nil {
		p.logger.Error("platform shutdown incomplete", slogKeyError, err)
		return err
	}
	return nil
}

// closeDB closes a connection the platform opened itself.
func (p *Platform) closeDB() error {
	if !p.ownsDB {
		return nil
	}
	return p.db.Close()
}

// Config returns the platform configuration.
func (p *Platform) Config() *Config { return p.config }

// Logger returns the platform logger.
func (p *Platform) Logger() *slog.Logger { return p.logger }

// Sessions returns the session store.
func (p *Platform) Sessions() session.Store { return p.sessions }

// Generator returns the card generation service.
func (p *Platform) Generator() *generator.Service { return p.generator }

// Health returns the readiness checker.
func (p *Platform) Health() *health.Checker { return p.health }

// AuditQuerier returns the audit reader, or nil when audit events are only logged.
func (p *Platform) AuditQuerier() audit.Querier { return p.querier }
