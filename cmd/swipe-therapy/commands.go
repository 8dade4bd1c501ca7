package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "github.com/lib/pq" // postgres driver
	"github.com/spf13/cobra"

	"github.com/swipetherapy/swipe-therapy/internal/server"
	"github.com/swipetherapy/swipe-therapy/pkg/database/migrate"
	"github.com/swipetherapy/swipe-therapy/pkg/platform"
)

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "swipe-therapy",
		Short:         "Card generation and session API for the swipe therapy client",
		Version:       server.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to configuration file (defaults to environment variables)")

	cmd.AddCommand(newServeCmd(opts), newMigrateCmd(opts))
	return cmd
}

// loadConfig reads the config file when given, otherwise the environment.
func (o *rootOptions) loadConfig() (*platform.Config, error) {
	if o.configPath == "" {
		return platform.FromEnv(), nil
	}
	return platform.LoadConfig(o.configPath)
}

func newServeCmd(root *rootOptions) *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if address != "" {
				cfg.Server.Address = address
			}

			logger := platform.NewLogger(os.Stderr, cfg.Logging)
			p, err := platform.New(platform.WithConfig(cfg), platform.WithLogger(logger))
			if err != nil {
				return fmt.Errorf("creating platform: %w", err)
			}
			return server.New(p).Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "Listen address, overrides server.address")
	return cmd
}

// Schema operations, replaced in tests.
var (
	migrateUp      = migrate.Run
	migrateDown    = migrate.Down
	migrateSteps   = migrate.Steps
	migrateVersion = migrate.Version
)

func newMigrateCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	var upSteps, downSteps int

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if upSteps < 0 {
				return errors.New("--steps must not be negative")
			}
			return withDB(root, func(db *sql.DB) error {
				if upSteps > 0 {
					if err := migrateSteps(db, upSteps); err != nil {
						return err
					}
					cmd.Printf("applied %d migration(s)\n", upSteps)
					return nil
				}
				if err := migrateUp(db); err != nil {
					return err
				}
				cmd.Println("migrations applied")
				return nil
			})
		},
	}
	up.Flags().IntVar(&upSteps, "steps", 0, "Apply only the next N migrations (0 applies all)")

	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if downSteps < 0 {
				return errors.New("--steps must not be negative")
			}
			return withDB(root, func(db *sql.DB) error {
				if downSteps > 0 {
					if err := migrateSteps(db, -downSteps); err != nil {
						return err
					}
					cmd.Printf("rolled back %d migration(s)\n", downSteps)
					return nil
				}
				if err := migrateDown(db); err != nil {
					return err
				}
				cmd.Println("migrations rolled back")
				return nil
			})
		},
	}
	down.Flags().IntVar(&downSteps, "steps", 0, "Roll back only the last N migrations (0 rolls back all)")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDB(root, func(db *sql.DB) error {
				v, dirty, err := migrateVersion(db)
				if err != nil {
					return err
				}
				cmd.Printf("version %d (dirty: %t)\n", v, dirty)
				return nil
			})
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

// withDB opens the configured database for the duration of fn.
func withDB(root *rootOptions, fn func(*sql.DB) error) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	if cfg.Database.DSN == "" {
		return errors.New("database.dsn is required for migrations")
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()

	return fn(db)
}
