package schema

import "time"

// RunSummary holds the completion data of a tracked run.
type RunSummary struct {
	EndTime      time.Time
	TotalRecords int
	TotalDocs    int
	SkippedUnits int
}

// RunRecord represents a row from the covmap_runs table.
type RunRecord struct {
	RunID         int64
	StartTime     time.Time
	EndTime       *time.Time
	RunDurationMs *int32
	InputRoot     string
	TotalRecords  int32
	TotalDocs     int32
	SkippedUnits  int32
	ConfigParams  *string
}

// StoredCoverageRecord represents a row from the covmap_coverage_records table.
type StoredCoverageRecord struct {
	RunID    int64
	Sequence int32
	CoverageRecord
}
