package contract

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/huangsam/covmap/schema"
)

// Default values for configuration.
const (
	DefaultPrecision = 3
	MaxPrecision     = 6
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// Config holds the runtime configuration for a mapping run.
// This struct is the "final, validated" config.
type Config struct {
	InputRoot  string
	OutputFile string
	Output     schema.OutputMode

	MatchPolicy    schema.MatchPolicy
	DocumentSuffix string
	IncludeGzip    bool

	Workers   int
	Precision int
	Width     int // Terminal width override (0 = auto-detect)
	UseColors bool

	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext

	HistoryBackend   schema.DatabaseBackend
	HistoryDBConnect string // Please use env var as this is plaintext
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// These are set manually from positional args, so no tag
	InputRoot  string
	OutputFile string

	Output           string `mapstructure:"output"`
	Match            string `mapstructure:"match"`
	Suffix           string `mapstructure:"suffix"`
	IncludeGz        bool   `mapstructure:"include-gz"`
	Workers          int    `mapstructure:"workers"`
	Precision        int    `mapstructure:"precision"`
	Width            int    `mapstructure:"width"`
	Color            string `mapstructure:"color"`
	CacheBackend     string `mapstructure:"cache-backend"`
	CacheDBConnect   string `mapstructure:"cache-db-connect"`
	HistoryBackend   string `mapstructure:"history-backend"`
	HistoryDBConnect string `mapstructure:"history-db-connect"`
}

// Clone returns a copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// DocumentSuffixes returns every file suffix that marks a coverage document.
func (c *Config) DocumentSuffixes() []string {
	suffixes := []string{c.DocumentSuffix}
	if c.IncludeGzip {
		suffixes = append(suffixes, c.DocumentSuffix+schema.GzipSuffix)
	}
	return suffixes
}

// IsDocument reports whether a file name carries one of the document suffixes.
func (c *Config) IsDocument(name string) bool {
	for _, suffix := range c.DocumentSuffixes() {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validatePaths(cfg, input); err != nil {
		return err
	}
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	return validateBackendConfigs(cfg, input)
}

// ProcessAndValidateOptions validates everything except the positional paths.
// It serves commands that take no input root of their own, like mcp.
func ProcessAndValidateOptions(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	return validateBackendConfigs(cfg, input)
}

// ProcessMatchPolicy validates a match policy string.
func ProcessMatchPolicy(s string) (schema.MatchPolicy, error) {
	if s == "" {
		return schema.PrefixMatch, nil
	}
	policy := schema.MatchPolicy(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := schema.ValidMatchPolicies[policy]; !ok {
		return "", fmt.Errorf("invalid match policy '%s'. must be prefix or full", s)
	}
	return policy, nil
}

// ProcessProfilingConfig handles the profiling flag and sets up profiling configuration.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}

// validatePaths transfers the positional arguments.
func validatePaths(cfg *Config, input *ConfigRawInput) error {
	cfg.InputRoot = strings.TrimSpace(input.InputRoot)
	if cfg.InputRoot == "" {
		return fmt.Errorf("input directory is required")
	}
	cfg.OutputFile = strings.TrimSpace(input.OutputFile)
	if cfg.OutputFile == "" {
		return fmt.Errorf("output file is required (use - for stdout)")
	}
	return nil
}

// validateSimpleInputs processes and validates all non-path related fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.Width = input.Width
	cfg.IncludeGzip = input.IncludeGz

	// --- 1. Output Format ---
	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if cfg.Output == "" {
		cfg.Output = schema.JSONOut
	}
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be json, csv, parquet, text", input.Output)
	}
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "-" {
		return fmt.Errorf("parquet output cannot be written to stdout")
	}

	// --- 2. Match Policy ---
	policy, err := ProcessMatchPolicy(input.Match)
	if err != nil {
		return err
	}
	cfg.MatchPolicy = policy

	// --- 3. Document Suffix ---
	cfg.DocumentSuffix = strings.TrimSpace(input.Suffix)
	if cfg.DocumentSuffix == "" {
		cfg.DocumentSuffix = schema.DefaultDocumentSuffix
	}

	// --- 4. Workers ---
	if input.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	// --- 5. Precision ---
	if input.Precision < 1 || input.Precision > MaxPrecision {
		return fmt.Errorf("precision must be between 1 and %d (received %d)", MaxPrecision, input.Precision)
	}
	cfg.Precision = input.Precision

	// --- 6. Color ---
	color := input.Color
	if color == "" {
		color = "yes"
	}
	colors, err := ParseBoolString(color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	return nil
}

// ParseDatabaseBackend validates a backend string. An empty string maps to NoneBackend.
func ParseDatabaseBackend(s string) (schema.DatabaseBackend, error) {
	if s == "" {
		return schema.NoneBackend, nil
	}
	backend := schema.DatabaseBackend(strings.ToLower(s))
	if _, ok := schema.ValidDatabaseBackends[backend]; !ok {
		return "", fmt.Errorf("invalid backend '%s'. must be sqlite, mysql, postgresql, none", s)
	}
	return backend, nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

// validateBackendConfigs validates cache and history backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cacheBackend, err := ParseDatabaseBackend(input.CacheBackend)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	cfg.CacheBackend = cacheBackend
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}

	// --- History Backend Validation ---
	historyBackend, err := ParseDatabaseBackend(input.HistoryBackend)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	cfg.HistoryBackend = historyBackend
	cfg.HistoryDBConnect = input.HistoryDBConnect
	if err := ValidateDatabaseConnectionString(cfg.HistoryBackend, cfg.HistoryDBConnect); err != nil {
		return err
	}

	// Validate that cache and history use different databases
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.HistoryBackend == schema.SQLiteBackend {
		cacheDBPath := cfg.CacheDBConnect
		if cacheDBPath == "" {
			cacheDBPath = GetCacheDBFilePath()
		}
		historyDBPath := cfg.HistoryDBConnect
		if historyDBPath == "" {
			historyDBPath = GetHistoryDBFilePath()
		}
		if cacheDBPath == historyDBPath {
			return fmt.Errorf("cache and history storage must use different SQLite database files. Both resolve to %q", cacheDBPath)
		}
	}

	return nil
}
