// Package parquet provides data structures and functions for exporting covmap
// records and run history to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/huangsam/covmap/schema"
	"github.com/parquet-go/parquet-go"
)

// CoverageRecord is one function-to-test-script mapping row.
// It mirrors schema.CoverageRecord column for column.
type CoverageRecord struct {
	// ExecutableName is the data_file of the coverage document
	ExecutableName string `parquet:"executable_name,snappy,dict"`

	// SourceFile is the source file containing the function
	SourceFile string `parquet:"source_file,snappy,dict"`

	// FunctionName is the function name as reported by gcov
	FunctionName string `parquet:"function_name,snappy"`

	// BasicBlockCoverage is blocks_executed / blocks in [0, 1]
	BasicBlockCoverage float64 `parquet:"basic_block_coverage,snappy"`

	// TestScript is the framework/suite/case.sh path of the exercising test
	TestScript string `parquet:"test_script,snappy,dict"`
}

// Run represents a single tracked covmap run.
// This struct maps to the covmap_runs database table.
type Run struct {
	// RunID is the unique identifier for this run
	RunID int64 `parquet:"run_id,snappy"`

	// StartTime is when the run began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the run completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the run in milliseconds (nullable)
	RunDurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	// InputRoot is the directory that was walked
	InputRoot string `parquet:"input_root,snappy"`

	// TotalRecords is the number of records emitted
	TotalRecords int32 `parquet:"total_records,snappy"`

	// TotalDocs is the number of coverage documents decoded
	TotalDocs int32 `parquet:"total_docs,snappy"`

	// SkippedUnits is the number of unreadable or malformed units
	SkippedUnits int32 `parquet:"skipped_units,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// RunCoverageRecord is a coverage record stored with the run that produced it.
// This struct maps to the covmap_coverage_records database table.
type RunCoverageRecord struct {
	RunID              int64   `parquet:"run_id,snappy"`
	Sequence           int32   `parquet:"sequence,snappy"`
	ExecutableName     string  `parquet:"executable_name,snappy,dict"`
	SourceFile         string  `parquet:"source_file,snappy,dict"`
	FunctionName       string  `parquet:"function_name,snappy"`
	BasicBlockCoverage float64 `parquet:"basic_block_coverage,snappy"`
	TestScript         string  `parquet:"test_script,snappy,dict"`
}

// writeRows writes rows of any tagged struct type to w.
func writeRows[T any](w io.Writer, data []T) error {
	// The schema is automatically derived from the struct tags
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// writeFile creates outputPath and writes rows to it.
func writeFile[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := writeRows(file, data); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// WriteCoverageRecords writes coverage records to w in Parquet format.
func WriteCoverageRecords(w io.Writer, data []CoverageRecord) error {
	return writeRows(w, data)
}

// WriteRunsParquet writes a slice of Run structs to a Parquet file.
func WriteRunsParquet(data []Run, outputPath string) error {
	return writeFile(data, outputPath)
}

// WriteRunCoverageRecordsParquet writes a slice of RunCoverageRecord structs to a Parquet file.
func WriteRunCoverageRecordsParquet(data []RunCoverageRecord, outputPath string) error {
	return writeFile(data, outputPath)
}

// ConvertCoverageRecords converts schema.CoverageRecord to CoverageRecord rows, keeping order.
func ConvertCoverageRecords(records []schema.CoverageRecord) []CoverageRecord {
	result := make([]CoverageRecord, len(records))
	for i, record := range records {
		result[i] = CoverageRecord{
			ExecutableName:     record.ExecutableName,
			SourceFile:         record.SourceFile,
			FunctionName:       record.FunctionName,
			BasicBlockCoverage: record.BasicBlockCoverage,
			TestScript:         record.TestScript,
		}
	}
	return result
}

// ConvertRunRecords converts schema.RunRecord to Run for Parquet export.
func ConvertRunRecords(records []schema.RunRecord) []Run {
	result := make([]Run, len(records))
	for i, record := range records {
		result[i] = Run{
			RunID:         record.RunID,
			StartTime:     record.StartTime,
			EndTime:       record.EndTime,
			RunDurationMs: record.RunDurationMs,
			InputRoot:     record.InputRoot,
			TotalRecords:  record.TotalRecords,
			TotalDocs:     record.TotalDocs,
			SkippedUnits:  record.SkippedUnits,
			ConfigParams:  record.ConfigParams,
		}
	}
	return result
}

// ConvertStoredCoverageRecords converts schema.StoredCoverageRecord to RunCoverageRecord for Parquet export.
func ConvertStoredCoverageRecords(records []schema.StoredCoverageRecord) []RunCoverageRecord {
	result := make([]RunCoverageRecord, len(records))
	for i, record := range records {
		result[i] = RunCoverageRecord{
			RunID:              record.RunID,
			Sequence:           record.Sequence,
			ExecutableName:     record.ExecutableName,
			SourceFile:         record.SourceFile,
			FunctionName:       record.FunctionName,
			BasicBlockCoverage: record.BasicBlockCoverage,
			TestScript:         record.TestScript,
		}
	}
	return result
}
