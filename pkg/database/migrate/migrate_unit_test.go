package migrate

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	migrateTestSuccess      = "success"
	migrateTestFactoryError = "factory error"
)

var expectedMigrationFiles = []string{
	"000001_therapy_sessions.up.sql",
	"000001_therapy_sessions.down.sql",
	"000002_generation_audit.up.sql",
	"000002_generation_audit.down.sql",
}

// mockMigrator implements the migrator interface for testing.
type mockMigrator struct {
	upErr      error
	downErr    error
	stepsErr   error
	versionVal uint
	dirty      bool
	versionErr error
}

func (m *mockMigrator) Up() error         { return m.upErr }
func (m *mockMigrator) Down() error       { return m.downErr }
func (m *mockMigrator) Steps(_ int) error { return m.stepsErr }
func (m *mockMigrator) Version() (version uint, dirty bool, err error) {
	return m.versionVal, m.dirty, m.versionErr
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	require.NoError(t, err)
	assert.Len(t, entries, len(expectedMigrationFiles))

	fileNames := make(map[string]bool)
	for _, e := range entries {
		fileNames[e.Name()] = true
	}
	for _, expected := range expectedMigrationFiles {
		assert.True(t, fileNames[expected], "expected migration file %s to exist", expected)
	}
}

func TestMigrationFilesContent(t *testing.T) {
	for _, name := range expectedMigrationFiles {
		content, err := migrations.ReadFile("migrations/" + name)
		require.NoError(t, err, "failed to read %s", name)
		require.NotEmpty(t, content, "migration file %s should not be empty", name)

		if strings.HasSuffix(name, ".up.sql") {
			assert.Contains(t, string(content), "CREATE TABLE", "up migration %s should contain CREATE TABLE", name)
		} else {
			assert.Contains(t, string(content), "DROP TABLE", "down migration %s should contain DROP TABLE", name)
		}
	}
}

func TestSessionsMigration_UpsertKey(t *testing.T) {
	content, err := migrations.ReadFile("migrations/000001_therapy_sessions.up.sql")
	require.NoError(t, err)
	migrationSQL := string(content)

	// ON CONFLICT (client_id) needs a unique constraint on client_id.
	assert.Contains(t, migrationSQL, "client_id     TEXT PRIMARY KEY")
	for _, col := range []string{"history", "current_index", "cards", "updated_at"} {
		assert.Contains(t, migrationSQL, col, "up migration should contain column %s", col)
	}
	assert.Contains(t, migrationSQL, "idx_therapy_sessions_updated_at")
}

func TestRun(t *testing.T) {
	origFactory := migratorFactory
	defer func() { migratorFactory = origFactory }()

	t.Run(migrateTestSuccess, func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return &mockMigrator{versionVal: 2}, nil
		}

		err := Run(nil)
		assert.NoError(t, err)
	})

	t.Run("no change is not an error", func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return &mockMigrator{upErr: migrate.ErrNoChange, versionVal: 2}, nil
		}

		err := Run(nil)
		assert.NoError(t, err)
	})

	t.Run("up error", func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return &mockMigrator{upErr: errors.New("up failed")}, nil
		}

		err := Run(nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "running migrations")
	})

	t.Run(migrateTestFactoryError, func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return nil, errors.New("factory failed")
		}

		err := Run(nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "factory failed")
	})

	t.Run("version error", func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return &mockMigrator{versionErr: errors.New("version failed")}, nil
		}

		err := Run(nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "getting migration version")
	})

	t.Run("nil version is not an error", func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return &mockMigrator{versionErr: migrate.ErrNilVersion}, nil
		}

		err := Run(nil)
		assert.NoError(t, err)
	})

	t.Run("dirty state logs warning", func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return &mockMigrator{versionVal: 2, dirty: true}, nil
		}

		err := Run(nil)
		assert.NoError(t, err)
	})
}

func TestVersion(t *testing.T) {
	origFactory := migratorFactory
	defer func() { migratorFactory = origFactory }()

	t.Run(migrateTestSuccess, func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return &mockMigrator{versionVal: 5, dirty: false}, nil
		}

		version, dirty, err := Version(nil)
		assert.NoError(t, err)
		assert.Equal(t, uint(5), version)
		assert.False(t, dirty)
	})

	t.Run(migrateTestFactoryError, func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return nil, errors.New("factory failed")
		}

		_, _, err := Version(nil)
		assert.Error(t, err)
	})
}

func TestDown(t *testing.T) {
	origFactory := migratorFactory
	defer func() { migratorFactory = origFactory }()

	t.Run(migrateTestSuccess, func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return &mockMigrator{}, nil
		}

		err := Down(nil)
		assert.NoError(t, err)
	})

	t.Run("no change is not an error", func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return &mockMigrator{downErr: migrate.ErrNoChange}, nil
		}

		err := Down(nil)
		assert.NoError(t, err)
	})

	t.Run("down error", func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return &mockMigrator{downErr: errors.New("down failed")}, nil
		}

		err := Down(nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "rolling back migrations")
	})

	t.Run(migrateTestFactoryError, func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return nil, errors.New("factory failed")
		}

		err := Down(nil)
		assert.Error(t, err)
	})
}

func TestSteps(t *testing.T) {
	origFactory := migratorFactory
	defer func() { migratorFactory = origFactory }()

	t.Run(migrateTestSuccess, func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return &mockMigrator{}, nil
		}

		err := Steps(nil, 1)
		assert.NoError(t, err)
	})

	t.Run("no change is not an error", func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return &mockMigrator{stepsErr: migrate.ErrNoChange}, nil
		}

		err := Steps(nil, 1)
		assert.NoError(t, err)
	})

	t.Run("steps error", func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return &mockMigrator{stepsErr: errors.New("steps failed")}, nil
		}

		err := Steps(nil, 1)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "stepping migrations")
	})

	t.Run(migrateTestFactoryError, func(t *testing.T) {
		migratorFactory = func(_ *sql.DB) (migrator, error) {
			return nil, errors.New("factory failed")
		}

		err := Steps(nil, 1)
		assert.Error(t, err)
	})
}

// TestMigrationTablesHaveConsumers verifies that every table created by a
// migration is named in non-test Go source under pkg/. Stores build their SQL
// with squirrel, so the table name appears as a string literal rather than in
// a literal INSERT or SELECT.
func TestMigrationTablesHaveConsumers(t *testing.T) {
	entries, err := migrations.ReadDir("migrations")
	require.NoError(t, err)

	createTableRe := regexp.MustCompile(`(?i)CREATE TABLE\s+(?:IF NOT EXISTS\s+)?(\w+)`)

	var tables []string
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}
		content, readErr := migrations.ReadFile("migrations/" + entry.Name())
		require.NoError(t, readErr)

		for _, m := range createTableRe.FindAllStringSubmatch(string(content), -1) {
			tables = append(tables, m[1])
		}
	}
	require.NotEmpty(t, tables, "migrations should contain CREATE TABLE statements")

	var goFiles []string
	require.NoError(t, collectGoSourceFiles("../../../pkg", &goFiles), "failed to walk pkg/ directory")
	require.NotEmpty(t, goFiles, "should find Go source files under pkg/")

	var corpus strings.Builder
	for _, path := range goFiles {
		content, readErr := os.ReadFile(path) //nolint:gosec // test reads source files, not user input
		require.NoError(t, readErr)
		corpus.Write(content)  //nolint:revive // strings.Builder.Write never returns an error
		corpus.WriteByte('\n') //nolint:revive // strings.Builder.WriteByte never returns an error
	}
	source := corpus.String()

	for _, table := range tables {
		assert.Contains(t, source, `"`+table+`"`,
			"table %q is created by a migration but no non-test Go code references it. "+
				"Either wire up the table or remove the migration.", table)
	}
}

// collectGoSourceFiles walks dir recursively and appends non-test, non-migration
// Go source file paths to dst.
func collectGoSourceFiles(dir string, dst *[]string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		path := dir + "/" + entry.Name()
		if entry.IsDir() {
			if entry.Name() == "migrate" || entry.Name() == "vendor" {
				continue
			}
			if err := collectGoSourceFiles(path, dst); err != nil {
				return err
			}
			continue
		}
		if strings.HasSuffix(entry.Name(), ".go") && !strings.HasSuffix(entry.Name(), "_test.go") {
			*dst = append(*dst, path)
		}
	}
	return nil
}

// TestAuditMigration_ColumnConsistency verifies that every generation_audit
// column appears in the audit store's column list, so DDL and DML cannot drift.
func TestAuditMigration_ColumnConsistency(t *testing.T) {
	migrationContent, err := migrations.ReadFile("migrations/000002_generation_audit.up.sql")
	require.NoError(t, err)

	colRe := regexp.MustCompile(`(?m)^\s{4}(\w+)\s+[A-Z]`)
	matches := colRe.FindAllStringSubmatch(string(migrationContent), -1)
	require.NotEmpty(t, matches, "migration should declare columns")

	storeSource, err := os.ReadFile("../../audit/postgres/store.go")
	require.NoError(t, err)

	listRe := regexp.MustCompile(`(?s)var auditColumns = \[\]string\{(.+?)\}`)
	listMatch := listRe.FindStringSubmatch(string(storeSource))
	require.Len(t, listMatch, 2, "store.go should declare auditColumns")

	for _, m := range matches {
		assert.Contains(t, listMatch[1], `"`+m[1]+`"`,
			"column %q of generation_audit must appear in auditColumns", m[1])
	}
}
