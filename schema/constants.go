package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// MatchPolicy controls how a directory name is matched against the test identity convention.
	MatchPolicy string

	// DatabaseBackend represents the database backend for caching and run history.
	DatabaseBackend string
)

// All output modes supported.
const (
	JSONOut    OutputMode = "json" // default
	CSVOut     OutputMode = "csv"
	ParquetOut OutputMode = "parquet"
	TextOut    OutputMode = "text"
)

// All match policies supported.
const (
	// PrefixMatch accepts names whose start matches the convention, e.g. unit_mathlib_add_v2.
	PrefixMatch MatchPolicy = "prefix" // default
	// FullMatch requires the whole name to match the convention.
	FullMatch MatchPolicy = "full"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite"
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// Default document naming.
const (
	DefaultDocumentSuffix = ".gcov.json"
	GzipSuffix            = ".gz"
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	JSONOut:    {},
	CSVOut:     {},
	ParquetOut: {},
	TextOut:    {},
}

// ValidMatchPolicies lists all valid match policies.
var ValidMatchPolicies = map[MatchPolicy]struct{}{
	PrefixMatch: {},
	FullMatch:   {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}
