package parquet

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/covmap/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []schema.CoverageRecord {
	return []schema.CoverageRecord{
		{ExecutableName: "libmath.so", SourceFile: "src/add.c", FunctionName: "add", BasicBlockCoverage: 0.8, TestScript: "unit/mathlib/add.sh"},
		{ExecutableName: "libmath.so", SourceFile: "src/sub.c", FunctionName: "sub", BasicBlockCoverage: 1, TestScript: "unit/mathlib/sub.sh"},
	}
}

func sampleRuns() []Run {
	now := time.Now()
	start := now.Add(-time.Minute)
	durationMs := int32(now.Sub(start).Milliseconds())
	params := `{"match":"prefix","workers":4}`
	return []Run{
		{
			RunID:         1,
			StartTime:     start,
			EndTime:       &now,
			RunDurationMs: &durationMs,
			InputRoot:     "/data/coverage",
			TotalRecords:  120,
			TotalDocs:     12,
			SkippedUnits:  1,
			ConfigParams:  &params,
		},
		{
			RunID:     2,
			StartTime: now,
			InputRoot: "/data/coverage",
			// Still running: nullable fields stay nil
		},
	}
}

func TestStructTags(t *testing.T) {
	tests := []struct {
		name    string
		model   any
		columns []string
	}{
		{
			name:    "coverage record",
			model:   new(CoverageRecord),
			columns: []string{"executable_name", "source_file", "function_name", "basic_block_coverage", "test_script"},
		},
		{
			name:    "run",
			model:   new(Run),
			columns: []string{"run_id", "start_time", "end_time", "run_duration_ms", "input_root", "total_records", "total_docs", "skipped_units", "config_params"},
		},
		{
			name:    "run coverage record",
			model:   new(RunCoverageRecord),
			columns: []string{"run_id", "sequence", "executable_name", "source_file", "function_name", "basic_block_coverage", "test_script"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Verify struct tags are properly defined for parquet schema inference
			s := parquet.SchemaOf(tt.model)
			require.NotNil(t, s)
			for _, colName := range tt.columns {
				_, ok := s.Lookup(colName)
				assert.True(t, ok, "Column %s should exist in schema", colName)
			}
		})
	}
}

func TestWriteCoverageRecords(t *testing.T) {
	data := ConvertCoverageRecords(sampleRecords())

	var buf bytes.Buffer
	require.NoError(t, WriteCoverageRecords(&buf, data))

	reader := parquet.NewGenericReader[CoverageRecord](bytes.NewReader(buf.Bytes()))
	defer func() { _ = reader.Close() }()

	readData := make([]CoverageRecord, reader.NumRows())
	n, err := reader.Read(readData)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	assert.Equal(t, len(data), n)
	assert.Equal(t, data, readData)
}

func TestWriteRunsParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "runs.parquet")
	data := sampleRuns()

	require.NoError(t, WriteRunsParquet(data, outputPath))

	file, err := os.Open(outputPath)
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[Run](file)
	defer func() { _ = reader.Close() }()

	readData := make([]Run, reader.NumRows())
	n, err := reader.Read(readData)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	require.Equal(t, len(data), n)

	for i := range data {
		assert.Equal(t, data[i].RunID, readData[i].RunID)
		assert.Equal(t, data[i].InputRoot, readData[i].InputRoot)
		assert.Equal(t, data[i].TotalRecords, readData[i].TotalRecords)
		assert.Equal(t, data[i].SkippedUnits, readData[i].SkippedUnits)

		if data[i].EndTime == nil {
			assert.Nil(t, readData[i].EndTime)
		} else {
			require.NotNil(t, readData[i].EndTime)
			assert.WithinDuration(t, *data[i].EndTime, *readData[i].EndTime, time.Microsecond)
		}
		if data[i].ConfigParams == nil {
			assert.Nil(t, readData[i].ConfigParams)
		} else {
			require.NotNil(t, readData[i].ConfigParams)
			assert.Equal(t, *data[i].ConfigParams, *readData[i].ConfigParams)
		}
	}
}

func TestWriteRunCoverageRecordsParquet(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "records.parquet")
	stored := []schema.StoredCoverageRecord{
		{RunID: 1, Sequence: 0, CoverageRecord: sampleRecords()[0]},
		{RunID: 1, Sequence: 1, CoverageRecord: sampleRecords()[1]},
	}
	data := ConvertStoredCoverageRecords(stored)

	require.NoError(t, WriteRunCoverageRecordsParquet(data, outputPath))

	file, err := os.Open(outputPath)
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[RunCoverageRecord](file)
	defer func() { _ = reader.Close() }()

	readData := make([]RunCoverageRecord, reader.NumRows())
	n, err := reader.Read(readData)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	assert.Equal(t, 2, n)
	assert.Equal(t, data, readData)
}

func TestWriteRunsParquet_EmptyData(t *testing.T) {
	outputPath := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteRunsParquet([]Run{}, outputPath))

	info, err := os.Stat(outputPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0), "Parquet footer should still be written")
}

func TestWriteRunsParquet_InvalidPath(t *testing.T) {
	err := WriteRunsParquet(sampleRuns(), filepath.Join(t.TempDir(), "missing", "runs.parquet"))
	assert.Error(t, err)
}

func TestConvertRunRecords(t *testing.T) {
	end := time.Now()
	durationMs := int32(1500)
	records := []schema.RunRecord{{
		RunID:         3,
		StartTime:     end.Add(-1500 * time.Millisecond),
		EndTime:       &end,
		RunDurationMs: &durationMs,
		InputRoot:     "cov",
		TotalRecords:  5,
		TotalDocs:     2,
		SkippedUnits:  0,
	}}

	runs := ConvertRunRecords(records)
	require.Len(t, runs, 1)
	assert.Equal(t, int64(3), runs[0].RunID)
	assert.Equal(t, &end, runs[0].EndTime)
	assert.Equal(t, int32(1500), *runs[0].RunDurationMs)
	assert.Nil(t, runs[0].ConfigParams)
	assert.Equal(t, "cov", runs[0].InputRoot)
}

func TestConvertCoverageRecordsEmpty(t *testing.T) {
	rows := ConvertCoverageRecords(nil)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}
