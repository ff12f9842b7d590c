// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"time"

	"github.com/huangsam/covmap/schema"
)

// CacheManager defines the interface for managing the persistence stores.
// This allows the persistence layer to be mocked for testing.
type CacheManager interface {
	GetDocumentStore() CacheStore
	GetHistoryStore() HistoryStore
}

// CacheStore defines the interface for cache data storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// HistoryStore defines the interface for tracking runs and the records they emitted.
type HistoryStore interface {
	// BeginRun creates a new run and returns its unique ID
	BeginRun(startTime time.Time, inputRoot string, configParams map[string]any) (int64, error)

	// RecordCoverage stores the records of a run, preserving their order
	RecordCoverage(runID int64, records []schema.CoverageRecord) error

	// EndRun updates the run with completion data
	EndRun(runID int64, summary schema.RunSummary) error

	// GetStatus returns status information about the history store
	GetStatus() (schema.HistoryStatus, error)

	// GetAllRuns retrieves every tracked run ordered by ID
	GetAllRuns() ([]schema.RunRecord, error)

	// GetAllCoverageRecords retrieves every stored record ordered by run and sequence
	GetAllCoverageRecords() ([]schema.StoredCoverageRecord, error)

	// Close closes the underlying connection
	Close() error
}
