// Package core has the coverage mapping pipeline: walking, aggregation and run tracking.
package core

import (
	"context"
	"time"

	"github.com/huangsam/covmap/internal/contract"
	"github.com/huangsam/covmap/internal/outwriter"
	"github.com/huangsam/covmap/schema"
)

// ExecuteCoverageMap walks the input root, writes the records to the output
// file and prints a run summary to stderr.
// It serves as the main entry point for the root command.
func ExecuteCoverageMap(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()
	records, report, err := MapCoverage(ctx, cfg, mgr)
	if err != nil {
		return err
	}
	if err := outwriter.WriteRecords(records, cfg); err != nil {
		return err
	}
	RecordRun(mgr, cfg, start, records, report)
	outwriter.PrintRunSummary(report, cfg, time.Since(start))
	return nil
}

// MapCoverage runs one walk and returns its records in output order.
func MapCoverage(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) ([]schema.CoverageRecord, *schema.WalkReport, error) {
	acc, report, err := Walk(ctx, cfg, mgr)
	if err != nil {
		return nil, nil, err
	}
	return acc.Records(), report, nil
}

// RecordRun stores a completed run in the history store when one is configured.
// Callers invoke it only once the records have been delivered, so failed runs
// leave no rows behind. Tracking failures are warnings.
func RecordRun(mgr contract.CacheManager, cfg *contract.Config, start time.Time, records []schema.CoverageRecord, report *schema.WalkReport) {
	if mgr == nil {
		return
	}
	history := mgr.GetHistoryStore()
	if history == nil {
		return
	}

	runID, err := history.BeginRun(start, cfg.InputRoot, runParams(cfg))
	if err != nil {
		contract.LogWarn("Run tracking initialization failed", err)
		return
	}
	if err := history.RecordCoverage(runID, records); err != nil {
		contract.LogWarn("Failed to record coverage history", err)
	}
	summary := schema.RunSummary{
		EndTime:      time.Now(),
		TotalRecords: len(records),
		TotalDocs:    report.Documents,
		SkippedUnits: len(report.Skipped),
	}
	if err := history.EndRun(runID, summary); err != nil {
		contract.LogWarn("Failed to finalize run tracking", err)
	}
}

// runParams captures the settings that shape a run's output.
func runParams(cfg *contract.Config) map[string]any {
	return map[string]any{
		"match":        string(cfg.MatchPolicy),
		"suffix":       cfg.DocumentSuffix,
		"include_gz":   cfg.IncludeGzip,
		"workers":      cfg.Workers,
		"output":       string(cfg.Output),
		"output_file":  cfg.OutputFile,
		"cache_active": cfg.CacheBackend != schema.NoneBackend,
	}
}
