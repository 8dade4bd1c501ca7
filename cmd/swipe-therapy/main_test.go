package main

import (
	"bytes"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRootCmd_Version(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "dev")
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := newRootCmd()
	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["migrate"])
}

func TestMigrate_RequiresDSN(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	for _, sub := range []string{"up", "down", "version"} {
		t.Run(sub, func(t *testing.T) {
			_, err := execute(t, "migrate", sub)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "database.dsn")
		})
	}
}

func TestServe_BadConfigPath(t *testing.T) {
	_, err := execute(t, "serve", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestServe_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend:\n  variant: completions\n"), 0o600))

	_, err := execute(t, "serve", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend.variant")
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("LISTEN_ADDRESS", ":7070")
	cfg, err := (&rootOptions{}).loadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Address)
}

// stubSchemaOps replaces the schema operations and records which ran.
func stubSchemaOps(t *testing.T) *[]string {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://swipe@localhost:1/swipe?sslmode=disable")

	var calls []string
	origUp, origDown, origSteps, origVersion := migrateUp, migrateDown, migrateSteps, migrateVersion
	t.Cleanup(func() {
		migrateUp, migrateDown, migrateSteps, migrateVersion = origUp, origDown, origSteps, origVersion
	})

	migrateUp = func(*sql.DB) error { calls = append(calls, "up"); return nil }
	migrateDown = func(*sql.DB) error { calls = append(calls, "down"); return nil }
	migrateSteps = func(_ *sql.DB, n int) error { calls = append(calls, fmt.Sprintf("steps %d", n)); return nil }
	migrateVersion = func(*sql.DB) (uint, bool, error) { calls = append(calls, "version"); return 2, false, nil }
	return &calls
}

func TestMigrate_Commands(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCall string
		wantOut  string
	}{
		{name: "up applies all", args: []string{"migrate", "up"}, wantCall: "up", wantOut: "migrations applied"},
		{name: "up with steps", args: []string{"migrate", "up", "--steps", "1"}, wantCall: "steps 1", wantOut: "applied 1 migration(s)"},
		{name: "down rolls back all", args: []string{"migrate", "down"}, wantCall: "down", wantOut: "migrations rolled back"},
		{name: "down with steps", args: []string{"migrate", "down", "--steps", "2"}, wantCall: "steps -2", wantOut: "rolled back 2 migration(s)"},
		{name: "version", args: []string{"migrate", "version"}, wantCall: "version", wantOut: "version 2 (dirty: false)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := stubSchemaOps(t)

			out, err := execute(t, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.wantCall}, *calls)
			assert.Contains(t, out, tt.wantOut)
		})
	}
}

func TestMigrate_NegativeSteps(t *testing.T) {
	for _, sub := range []string{"up", "down"} {
		t.Run(sub, func(t *testing.T) {
			calls := stubSchemaOps(t)

			_, err := execute(t, "migrate", sub, "--steps", "-1")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "--steps")
			assert.Empty(t, *calls)
		})
	}
}
