// Package outwriter has output and writer logic.
package outwriter

import (
	"fmt"
	"io"

	"github.com/huangsam/covmap/internal/contract"
	"github.com/huangsam/covmap/schema"
)

// WriteRecords writes the whole record collection once, dispatching on the configured output format.
// JSON is the default and the only format that is always safe to pipe to stdout.
func WriteRecords(records []schema.CoverageRecord, cfg *contract.Config) error {
	if records == nil {
		records = []schema.CoverageRecord{}
	}

	fmtFloat := createFormatter(cfg.Precision)

	// Dispatcher: Handle different output formats
	switch cfg.Output {
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRecordsCSV(w, records, fmtFloat)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.ParquetOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRecordsParquet(w, records)
		}, "Wrote Parquet"); err != nil {
			return fmt.Errorf("error writing Parquet output: %w", err)
		}
	case schema.TextOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeRecordsTable(w, records, cfg, fmtFloat)
		}, "Wrote table"); err != nil {
			return fmt.Errorf("error writing table output: %w", err)
		}
	default:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return WriteJSON(w, records)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	}
	return nil
}
