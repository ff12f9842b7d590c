package iocache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/covmap/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteHistoryExport(t *testing.T) {
	t.Run("writes both parquet files", func(t *testing.T) {
		store := newTestHistoryStore(t)
		runID, err := store.BeginRun(time.Now(), "/root", map[string]any{"match": "full"})
		require.NoError(t, err)
		require.NoError(t, store.RecordCoverage(runID, sampleRecords))
		require.NoError(t, store.EndRun(runID, schema.RunSummary{EndTime: time.Now(), TotalRecords: 3}))

		prefix := filepath.Join(t.TempDir(), "export")
		require.NoError(t, ExecuteHistoryExport(store, prefix))

		for _, suffix := range []string{runsExportSuffix, coverageRecordsExportSuffix} {
			info, err := os.Stat(prefix + suffix)
			require.NoError(t, err, suffix)
			assert.Positive(t, info.Size(), suffix)
		}
	})

	t.Run("requires output file", func(t *testing.T) {
		err := ExecuteHistoryExport(&MockHistoryStore{}, "")
		assert.ErrorContains(t, err, "--output-file")
	})

	t.Run("requires history store", func(t *testing.T) {
		err := ExecuteHistoryExport(nil, "out")
		assert.ErrorContains(t, err, "not enabled")
	})

	t.Run("empty history", func(t *testing.T) {
		store := &MockHistoryStore{}
		store.On("GetStatus").Return(schema.HistoryStatus{Backend: "sqlite", Connected: true}, nil)

		err := ExecuteHistoryExport(store, filepath.Join(t.TempDir(), "out"))
		assert.ErrorContains(t, err, "no run history")
		store.AssertExpectations(t)
	})

	t.Run("status failure", func(t *testing.T) {
		store := &MockHistoryStore{}
		store.On("GetStatus").Return(schema.HistoryStatus{}, errors.New("boom"))

		err := ExecuteHistoryExport(store, filepath.Join(t.TempDir(), "out"))
		assert.ErrorContains(t, err, "boom")
	})

	t.Run("record retrieval failure", func(t *testing.T) {
		store := &MockHistoryStore{}
		store.On("GetStatus").Return(schema.HistoryStatus{TotalRuns: 1, TableSizes: map[string]int64{}}, nil)
		store.On("GetAllRuns").Return([]schema.RunRecord{{RunID: 1}}, nil)
		store.On("GetAllCoverageRecords").Return(nil, errors.New("disk error"))

		err := ExecuteHistoryExport(store, filepath.Join(t.TempDir(), "out"))
		assert.ErrorContains(t, err, "failed to retrieve coverage records")
	})
}
