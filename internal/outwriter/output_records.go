package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/huangsam/covmap/internal/contract"
	"github.com/huangsam/covmap/internal/parquet"
	"github.com/huangsam/covmap/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/term"
)

// recordHeader is shared by the CSV and table outputs.
var recordHeader = []string{
	"executable_name",
	"source_file",
	"function_name",
	"basic_block_coverage",
	"test_script",
}

// writeRecordsCSV writes one header row and one row per record.
func writeRecordsCSV(w io.Writer, records []schema.CoverageRecord, fmtFloat func(float64) string) error {
	return writeCSVWithHeader(w, recordHeader, func(csvWriter *csv.Writer) error {
		for _, r := range records {
			row := []string{
				r.ExecutableName,
				r.SourceFile,
				r.FunctionName,
				fmtFloat(r.BasicBlockCoverage),
				r.TestScript,
			}
			if err := csvWriter.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// writeRecordsParquet writes one Parquet row per record.
func writeRecordsParquet(w io.Writer, records []schema.CoverageRecord) error {
	return parquet.WriteCoverageRecords(w, parquet.ConvertCoverageRecords(records))
}

// writeRecordsTable generates and writes the human-readable table.
func writeRecordsTable(w io.Writer, records []schema.CoverageRecord, cfg *contract.Config, fmtFloat func(float64) string) error {
	table := tablewriter.NewWriter(w)

	// 1. Define Headers
	table.Header([]string{"#", "Test Script", "Executable", "Source", "Function", "Coverage", "Label"})

	// 2. Configure alignment to match a minimal look
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	// 3. Populate Rows
	pathWidth := getMaxTablePathWidth(cfg)
	data := make([][]string, 0, len(records))
	for i, r := range records {
		label := contract.GetPlainLabel(r.BasicBlockCoverage)
		if cfg.UseColors {
			label = contract.GetColorLabel(r.BasicBlockCoverage)
		}
		data = append(data, []string{
			strconv.Itoa(i + 1),
			r.TestScript,
			contract.TruncatePath(r.ExecutableName, pathWidth),
			contract.TruncatePath(r.SourceFile, pathWidth),
			r.FunctionName,
			fmtFloat(r.BasicBlockCoverage),
			label,
		})
	}

	// 4. Render the table
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	scripts := make(map[string]struct{})
	functions := make(map[string]struct{})
	for _, r := range records {
		scripts[r.TestScript] = struct{}{}
		functions[r.ExecutableName+"\x00"+r.SourceFile+"\x00"+r.FunctionName] = struct{}{}
	}
	_, err := fmt.Fprintf(w, "Showing %d records (%d test scripts, %d distinct functions)\n", len(records), len(scripts), len(functions))
	return err
}

// getMaxTablePathWidth calculates the maximum width for path columns in table output
// based on terminal width.
func getMaxTablePathWidth(cfg *contract.Config) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 { // Not set by override
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Reserve space for the index, script, function, coverage and label columns
	baseWidth := 70

	// Two path columns share what is left
	available := (termWidth - baseWidth) / 2
	if available < 15 {
		return 15
	}
	if available > 50 {
		return 50
	}
	return available
}
