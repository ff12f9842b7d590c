package iocache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/huangsam/covmap/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetManager restores the global manager so each test can initialize it again.
func resetManager(t *testing.T) {
	t.Helper()
	initOnce = sync.Once{}
	closeOnce = sync.Once{}
	Manager = &CacheStoreManager{}
	t.Cleanup(func() {
		CloseStores()
		initOnce = sync.Once{}
		closeOnce = sync.Once{}
		Manager = &CacheStoreManager{}
	})
}

func TestInitStores(t *testing.T) {
	t.Run("both stores enabled", func(t *testing.T) {
		resetManager(t)
		dir := t.TempDir()
		cachePath := filepath.Join(dir, "cache.db")
		historyPath := filepath.Join(dir, "history.db")

		err := InitStores(schema.SQLiteBackend, cachePath, schema.SQLiteBackend, historyPath)
		require.NoError(t, err)
		assert.NotNil(t, Manager.GetDocumentStore())
		assert.NotNil(t, Manager.GetHistoryStore())

		CloseStores()
		assert.FileExists(t, cachePath)
		assert.FileExists(t, historyPath)
	})

	t.Run("none and empty backends stay disabled", func(t *testing.T) {
		resetManager(t)

		require.NoError(t, InitStores(schema.NoneBackend, "", "", ""))
		assert.Nil(t, Manager.GetDocumentStore())
		assert.Nil(t, Manager.GetHistoryStore())
	})

	t.Run("idempotent", func(t *testing.T) {
		resetManager(t)
		cachePath := filepath.Join(t.TempDir(), "cache.db")

		assert.NoError(t, InitStores(schema.SQLiteBackend, cachePath, "", ""))
		assert.NoError(t, InitStores(schema.SQLiteBackend, cachePath, "", ""))
		assert.NoError(t, InitStores(schema.SQLiteBackend, cachePath, "", ""))

		CloseStores()
		CloseStores()
	})

	t.Run("history failure closes the cache store", func(t *testing.T) {
		resetManager(t)
		cachePath := filepath.Join(t.TempDir(), "cache.db")

		err := InitStores(schema.SQLiteBackend, cachePath, "oracle", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to initialize run history")
		assert.Nil(t, Manager.GetDocumentStore())
	})
}

func TestClearCache(t *testing.T) {
	t.Run("sqlite removes the file", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "cache.db")
		store, err := NewCacheStore(documentTable, schema.SQLiteBackend, dbPath)
		require.NoError(t, err)
		require.NoError(t, store.Close())

		require.NoError(t, ClearCache(schema.SQLiteBackend, dbPath, ""))
		_, err = os.Stat(dbPath)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("sqlite missing file is fine", func(t *testing.T) {
		assert.NoError(t, ClearCache(schema.SQLiteBackend, filepath.Join(t.TempDir(), "nope.db"), ""))
	})

	t.Run("sqlite requires a path", func(t *testing.T) {
		assert.Error(t, ClearCache(schema.SQLiteBackend, "", ""))
	})

	t.Run("none backend", func(t *testing.T) {
		assert.NoError(t, ClearCache(schema.NoneBackend, "", ""))
	})

	t.Run("unsupported backend", func(t *testing.T) {
		assert.Error(t, ClearCache("oracle", "", ""))
	})
}

func TestClearHistory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	require.NoError(t, MigrateHistory(schema.SQLiteBackend, dbPath, -1))

	require.NoError(t, ClearHistory(schema.SQLiteBackend, dbPath, ""))
	assert.NoFileExists(t, dbPath)

	assert.NoError(t, ClearHistory(schema.NoneBackend, "", ""))
	assert.Error(t, ClearHistory("oracle", "", ""))
}
