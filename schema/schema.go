// Package schema has configs, models and constants for all parts of covmap.
package schema

// CoverageRecord maps one function compiled into an executable to the test script
// that exercised it. It is the only entity covmap emits.
type CoverageRecord struct {
	ExecutableName     string  `json:"executable_name"`      // data_file of the coverage document
	SourceFile         string  `json:"source_file"`          // Source file containing the function
	FunctionName       string  `json:"function_name"`        // Symbol name of the covered function
	BasicBlockCoverage float64 `json:"basic_block_coverage"` // Executed blocks / total blocks, 0 when there are no blocks
	TestScript         string  `json:"test_script"`          // Reconstructed framework/suite/case.sh path
}

// SkippedUnit describes a directory or document that could not be processed.
type SkippedUnit struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// WalkReport summarizes a single pass over the coverage hierarchy.
type WalkReport struct {
	TestDirs       int           `json:"test_dirs"`       // Subdirectories accepted by the identity resolver
	IgnoredEntries int           `json:"ignored_entries"` // Root entries skipped silently
	Documents      int           `json:"documents"`       // Documents parsed successfully
	CachedDocs     int           `json:"cached_docs"`     // Documents served from the parse cache
	Records        int           `json:"records"`         // Records produced
	Skipped        []SkippedUnit `json:"skipped"`         // Units reported and skipped
}
