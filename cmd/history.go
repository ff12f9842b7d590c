package cmd

import (
	"fmt"

	"github.com/huangsam/covmap/internal/contract"
	"github.com/huangsam/covmap/internal/iocache"
	"github.com/huangsam/covmap/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// loadHistoryBackend reads and validates the history backend settings.
func loadHistoryBackend() (schema.DatabaseBackend, string, error) {
	if err := loadConfigFile(); err != nil {
		return "", "", err
	}

	backend, err := contract.ParseDatabaseBackend(viper.GetString("history-backend"))
	if err != nil {
		return "", "", fmt.Errorf("history: %w", err)
	}
	connStr := viper.GetString("history-db-connect")
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// historySetup loads minimal configuration needed for history operations.
// This is used by commands that need history access without full shared setup.
func historySetup() error {
	backend, connStr, err := loadHistoryBackend()
	if err != nil {
		return err
	}

	// No document caching for history commands
	if err := iocache.InitStores(schema.NoneBackend, "", backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize run history: %w", err)
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr
	cfg.OutputFile = viper.GetString("output-file")

	return nil
}

// historySetupWrapper wraps historySetup to provide PreRunE for history commands.
func historySetupWrapper(_ *cobra.Command, _ []string) error {
	return historySetup()
}

// historyMigrateSetup loads minimal configuration needed for migrate operations.
// This does NOT initialize stores or create tables, so migrations run on a fresh database.
func historyMigrateSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := loadHistoryBackend()
	if err != nil {
		return err
	}
	if backend == schema.SQLiteBackend {
		connStr = sqliteFilePath(connStr, contract.GetHistoryDBFilePath())
	}

	cfg.HistoryBackend = backend
	cfg.HistoryDBConnect = connStr

	return nil
}

// historyCmd focused on run history management.
//
// Note: History subcommands use minimal initialization (historySetup) instead of
// the full sharedSetup used by mapping runs.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage tracked mapping runs and exports",
	Long: `Manage the history of mapping runs.

When --history-backend is set, covmap tracks every run, storing:
- Run metadata (timestamps, input root, configuration, duration)
- Totals (records, documents, skipped units)
- Every coverage record the run produced, in output order

Supported backends: SQLite, MySQL, PostgreSQL, or None (default, disabled)

Subcommands:
  status  - Show run history statistics
  export  - Export data to Parquet for analytics
  clear   - Remove all run history
  migrate - Run database schema migrations

Examples:
  # Check tracking status
  covmap history status --history-backend sqlite

  # Export for analysis in pandas/DuckDB
  covmap history export --history-backend sqlite --output-file covmap-history`,
}

// historyClearCmd clears the run history.
var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all tracked runs and coverage records",
	Long: `Delete all stored runs and their coverage records.

WARNING: This action cannot be undone. Consider exporting data first.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops the history tables

Examples:
  # Export before clearing
  covmap history export --history-backend sqlite --output-file backup
  covmap history clear --history-backend sqlite`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		// Release the connection before the file or tables go away
		iocache.CloseStores()
		dbFile := sqliteFilePath(cfg.HistoryDBConnect, contract.GetHistoryDBFilePath())
		if err := iocache.ClearHistory(cfg.HistoryBackend, dbFile, cfg.HistoryDBConnect); err != nil {
			contract.LogFatal("Failed to clear run history", err)
		}
		fmt.Println("Run history cleared successfully.")
	},
}

// historyStatusCmd shows run history status.
var historyStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display run history statistics and connection details",
	Long: `Show detailed information about run history tracking.

Displays:
- Backend type and connection status
- Total number of tracked runs
- Last and oldest run timestamps
- Total records mapped across all runs
- Database table sizes

Examples:
  # Check run history status
  covmap history status --history-backend sqlite`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		store := iocache.Manager.GetHistoryStore()
		if store == nil {
			iocache.PrintHistoryStatus(schema.HistoryStatus{Backend: string(schema.NoneBackend)})
			return
		}
		status, err := store.GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get run history status", err)
		}
		iocache.PrintHistoryStatus(status)
	},
}

// historyExportCmd exports run history to Parquet files.
var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export run history to Parquet for BI tools and analytics",
	Long: `Export all stored run history to Parquet format for use with analytics tools.

Exports two datasets:
- <output-file>.runs.parquet             - metadata about each run
- <output-file>.coverage_records.parquet - every record, keyed by run and sequence

Requires: --output-file parameter

Examples:
  # Export all data
  covmap history export --history-backend sqlite --output-file covmap-history

  # Use with DuckDB for analysis
  duckdb -c "SELECT test_script, count(*) FROM read_parquet('covmap-history.coverage_records.parquet') GROUP BY 1"`,
	PreRunE: historySetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExecuteHistoryExport(iocache.Manager.GetHistoryStore(), cfg.OutputFile); err != nil {
			contract.LogFatal("Failed to export run history", err)
		}
	},
}

// historyMigrateCmd runs database migrations for the history store.
var historyMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the run history store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  covmap history migrate --history-backend sqlite

  # Migrate to specific version
  covmap history migrate --history-backend sqlite --target-version 1

  # Roll back every migration
  covmap history migrate --history-backend sqlite --target-version 0`,
	PreRunE: historyMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := iocache.MigrateHistory(cfg.HistoryBackend, cfg.HistoryDBConnect, targetVersion); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
