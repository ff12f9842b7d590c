package iocache

import (
	"errors"
	"fmt"

	"github.com/huangsam/covmap/internal/contract"
	"github.com/huangsam/covmap/internal/parquet"
)

// Suffixes appended to the export prefix for each Parquet file.
const (
	runsExportSuffix            = ".runs.parquet"
	coverageRecordsExportSuffix = ".coverage_records.parquet"
)

// ExecuteHistoryExport exports the run history in store to two Parquet files
// named after outputFile.
func ExecuteHistoryExport(store contract.HistoryStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("run history is not enabled. Set --history-backend to export")
	}

	status, err := store.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get history status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no run history found to export")
	}

	fmt.Printf("Exporting data from %s backend...\n", status.Backend)
	fmt.Printf("Total runs: %d\n", status.TotalRuns)
	fmt.Printf("Total coverage records: %d\n", status.TableSizes[coverageRecordsTable])

	runs, err := store.GetAllRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve runs: %w", err)
	}
	records, err := store.GetAllCoverageRecords()
	if err != nil {
		return fmt.Errorf("failed to retrieve coverage records: %w", err)
	}

	parquetRuns := parquet.ConvertRunRecords(runs)
	runsFile := outputFile + runsExportSuffix
	if err := parquet.WriteRunsParquet(parquetRuns, runsFile); err != nil {
		return fmt.Errorf("failed to write runs: %w", err)
	}
	fmt.Printf("Exported %d runs to: %s\n", len(parquetRuns), runsFile)

	parquetRecords := parquet.ConvertStoredCoverageRecords(records)
	recordsFile := outputFile + coverageRecordsExportSuffix
	if err := parquet.WriteRunCoverageRecordsParquet(parquetRecords, recordsFile); err != nil {
		return fmt.Errorf("failed to write coverage records: %w", err)
	}
	fmt.Printf("Exported %d coverage records to: %s\n", len(parquetRecords), recordsFile)

	fmt.Println("\nExport complete! The Parquet files can be used with:")
	fmt.Println("  - DuckDB")
	fmt.Println("  - Pandas (via pyarrow)")
	fmt.Println("  - Any other Parquet-compatible tool")

	return nil
}
