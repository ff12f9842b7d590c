package iocache

import (
	"testing"
	"time"

	"github.com/huangsam/covmap/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteTableName(t *testing.T) {
	tests := []struct {
		backend  schema.DatabaseBackend
		expected string
	}{
		{schema.MySQLBackend, "`covmap_runs`"},
		{schema.PostgreSQLBackend, `"covmap_runs"`},
		{schema.SQLiteBackend, `"covmap_runs"`},
	}
	for _, tt := range tests {
		t.Run(string(tt.backend), func(t *testing.T) {
			assert.Equal(t, tt.expected, quoteTableName(runsTable, tt.backend))
		})
	}
}

func TestValidateTableName(t *testing.T) {
	valid := []string{"covmap_runs", "_private", "Cache2"}
	for _, name := range valid {
		assert.NoError(t, validateTableName(name), name)
	}
	invalid := []string{"", "2cache", "cache;drop", "my-table", "a b"}
	for _, name := range invalid {
		assert.Error(t, validateTableName(name), name)
	}
}

func TestRebind(t *testing.T) {
	query := "UPDATE t SET a = ?, b = ? WHERE id = ?"
	assert.Equal(t, "UPDATE t SET a = $1, b = $2 WHERE id = $3", rebind(query, schema.PostgreSQLBackend))
	assert.Equal(t, query, rebind(query, schema.MySQLBackend))
	assert.Equal(t, query, rebind(query, schema.SQLiteBackend))
}

func TestDriverNameFor(t *testing.T) {
	tests := map[schema.DatabaseBackend]string{
		schema.SQLiteBackend:     "sqlite",
		schema.MySQLBackend:      "mysql",
		schema.PostgreSQLBackend: "pgx",
	}
	for backend, expected := range tests {
		name, err := driverNameFor(backend)
		require.NoError(t, err)
		assert.Equal(t, expected, name)
	}

	_, err := driverNameFor(schema.NoneBackend)
	assert.Error(t, err)
}

func TestFormatAndParseTime(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 6, 123456000, time.UTC)

	t.Run("sqlite round trip", func(t *testing.T) {
		formatted := formatTime(ts, schema.SQLiteBackend)
		assert.IsType(t, "", formatted)

		parsed, err := parseTime(formatted)
		require.NoError(t, err)
		assert.True(t, ts.Equal(parsed))
	})

	t.Run("native time passes through", func(t *testing.T) {
		formatted := formatTime(ts, schema.PostgreSQLBackend)
		parsed, err := parseTime(formatted)
		require.NoError(t, err)
		assert.True(t, ts.Equal(parsed))
	})

	t.Run("mysql datetime text", func(t *testing.T) {
		parsed, err := parseTime([]byte("2024-03-09 14:05:06.123456"))
		require.NoError(t, err)
		assert.True(t, ts.Equal(parsed))
	})

	t.Run("unexpected types", func(t *testing.T) {
		_, err := parseTime(42)
		assert.Error(t, err)
		_, err = parseTime("yesterday")
		assert.Error(t, err)
	})
}
