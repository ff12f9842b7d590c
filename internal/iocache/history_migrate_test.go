package iocache

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/covmap/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tableExists reports whether a table or index of the given name exists in a SQLite file.
func tableExists(t *testing.T, dbPath, kind, name string) bool {
	t.Helper()
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var count int
	row := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = ? AND name = ?", kind, name)
	require.NoError(t, row.Scan(&count))
	return count > 0
}

func TestMigrateHistory_SQLite(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")

	t.Run("fresh database reports version zero", func(t *testing.T) {
		version, dirty, err := HistoryVersion(schema.SQLiteBackend, dbPath)
		require.NoError(t, err)
		assert.Zero(t, version)
		assert.False(t, dirty)
	})

	t.Run("migrate to latest", func(t *testing.T) {
		require.NoError(t, MigrateHistory(schema.SQLiteBackend, dbPath, -1))

		version, _, err := HistoryVersion(schema.SQLiteBackend, dbPath)
		require.NoError(t, err)
		assert.Equal(t, uint(2), version)
		assert.True(t, tableExists(t, dbPath, "table", runsTable))
		assert.True(t, tableExists(t, dbPath, "table", coverageRecordsTable))
		assert.True(t, tableExists(t, dbPath, "index", "idx_covmap_coverage_records_test_script"))
	})

	t.Run("latest again is a no-op", func(t *testing.T) {
		assert.NoError(t, MigrateHistory(schema.SQLiteBackend, dbPath, -1))
	})

	t.Run("store works on migrated schema", func(t *testing.T) {
		store, err := NewHistoryStore(schema.SQLiteBackend, dbPath)
		require.NoError(t, err)
		defer func() { _ = store.Close() }()

		runID, err := store.BeginRun(time.Now(), "/root", nil)
		require.NoError(t, err)
		require.NoError(t, store.RecordCoverage(runID, sampleRecords))
	})

	t.Run("migrate down to version 1", func(t *testing.T) {
		require.NoError(t, MigrateHistory(schema.SQLiteBackend, dbPath, 1))

		version, _, err := HistoryVersion(schema.SQLiteBackend, dbPath)
		require.NoError(t, err)
		assert.Equal(t, uint(1), version)
		assert.False(t, tableExists(t, dbPath, "index", "idx_covmap_coverage_records_test_script"))
		assert.True(t, tableExists(t, dbPath, "table", runsTable))
	})

	t.Run("roll back everything", func(t *testing.T) {
		require.NoError(t, MigrateHistory(schema.SQLiteBackend, dbPath, 0))

		version, _, err := HistoryVersion(schema.SQLiteBackend, dbPath)
		require.NoError(t, err)
		assert.Zero(t, version)
		assert.False(t, tableExists(t, dbPath, "table", runsTable))
		assert.False(t, tableExists(t, dbPath, "table", coverageRecordsTable))
	})
}

func TestMigrateHistory_UnsupportedBackends(t *testing.T) {
	for _, backend := range []schema.DatabaseBackend{schema.NoneBackend, "", "oracle"} {
		t.Run(string(backend), func(t *testing.T) {
			assert.Error(t, MigrateHistory(backend, "", -1))
		})
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	for _, dialect := range []string{"sqlite", "mysql", "postgresql"} {
		entries, err := migrationsFS.ReadDir("migrations/" + dialect)
		require.NoError(t, err, dialect)
		assert.Len(t, entries, 4, dialect)
	}
}
