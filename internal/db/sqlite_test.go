package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAndMigrate(t *testing.T) {
	database, err := New(filepath.Join(t.TempDir(), "portal.db"))
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, RunMigrations(database))

	for _, table := range []string{"schema_version", "principals", "audit_logs"} {
		var count int
		err := database.QueryRow(
			`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table,
		).Scan(&count)
		require.NoError(t, err)
		require.Equal(t, 1, count, table)
	}

	var version int
	err = database.QueryRow(`SELECT version FROM schema_version`).Scan(&version)
	require.NoError(t, err)
	require.Equal(t, 1, version)
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "portal.db")

	database, err := New(path)
	require.NoError(t, err)
	require.NoError(t, RunMigrations(database))
	require.NoError(t, database.Close())

	// A second open against the same file must not re-run the schema.
	database, err = New(path)
	require.NoError(t, err)
	defer database.Close()
	require.NoError(t, RunMigrations(database))

	var count int
	err = database.QueryRow(`SELECT COUNT(*) FROM schema_version`).Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
