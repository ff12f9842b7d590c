package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/covmap/internal/contract"
	"github.com/huangsam/covmap/schema"
)

// Table names for run history.
const (
	runsTable            = "covmap_runs"
	coverageRecordsTable = "covmap_coverage_records"
)

// historyTables lists the history tables in creation order.
var historyTables = []string{runsTable, coverageRecordsTable}

// HistoryStoreImpl implements the HistoryStore interface.
type HistoryStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
}

var _ contract.HistoryStore = &HistoryStoreImpl{} // Compile-time check

// NewHistoryStore creates a new HistoryStore with the specified backend.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (*HistoryStoreImpl, error) {
	if backend == schema.NoneBackend {
		// Return a no-op store for disabled tracking
		return &HistoryStoreImpl{backend: backend}, nil
	}

	db, err := openDB(backend, connStr, contract.GetHistoryDBFilePath())
	if err != nil {
		return nil, err
	}

	// Create the table schemas
	if err := createHistoryTables(db, backend); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history tables: %w", err)
	}

	return &HistoryStoreImpl{db: db, backend: backend}, nil
}

// createHistoryTables creates the run history tables.
func createHistoryTables(db *sql.DB, backend schema.DatabaseBackend) error {
	queries := map[string]string{
		runsTable:            getCreateRunsQuery(backend),
		coverageRecordsTable: getCreateCoverageRecordsQuery(backend),
	}
	for _, table := range historyTables {
		if _, err := db.Exec(queries[table]); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}
	return nil
}

// getCreateRunsQuery returns the CREATE TABLE query for covmap_runs.
func getCreateRunsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(runsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT AUTO_INCREMENT PRIMARY KEY,
				start_time DATETIME(6) NOT NULL,
				end_time DATETIME(6),
				run_duration_ms INT,
				input_root TEXT NOT NULL,
				total_records INT NOT NULL DEFAULT 0,
				total_docs INT NOT NULL DEFAULT 0,
				skipped_units INT NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGSERIAL PRIMARY KEY,
				start_time TIMESTAMPTZ NOT NULL,
				end_time TIMESTAMPTZ,
				run_duration_ms INT,
				input_root TEXT NOT NULL,
				total_records INT NOT NULL DEFAULT 0,
				total_docs INT NOT NULL DEFAULT 0,
				skipped_units INT NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER PRIMARY KEY AUTOINCREMENT,
				start_time TEXT NOT NULL,
				end_time TEXT,
				run_duration_ms INTEGER,
				input_root TEXT NOT NULL,
				total_records INTEGER NOT NULL DEFAULT 0,
				total_docs INTEGER NOT NULL DEFAULT 0,
				skipped_units INTEGER NOT NULL DEFAULT 0,
				config_params TEXT
			);
		`, quotedTableName)
	}
}

// getCreateCoverageRecordsQuery returns the CREATE TABLE query for covmap_coverage_records.
func getCreateCoverageRecordsQuery(backend schema.DatabaseBackend) string {
	quotedTableName := quoteTableName(coverageRecordsTable, backend)

	switch backend {
	case schema.MySQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				record_seq INT NOT NULL,
				executable_name TEXT NOT NULL,
				source_file TEXT NOT NULL,
				function_name TEXT NOT NULL,
				basic_block_coverage DOUBLE NOT NULL,
				test_script VARCHAR(512) NOT NULL,
				PRIMARY KEY (run_id, record_seq)
			);
		`, quotedTableName)

	case schema.PostgreSQLBackend:
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id BIGINT NOT NULL,
				record_seq INT NOT NULL,
				executable_name TEXT NOT NULL,
				source_file TEXT NOT NULL,
				function_name TEXT NOT NULL,
				basic_block_coverage DOUBLE PRECISION NOT NULL,
				test_script TEXT NOT NULL,
				PRIMARY KEY (run_id, record_seq)
			);
		`, quotedTableName)

	default: // SQLite
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				run_id INTEGER NOT NULL,
				record_seq INTEGER NOT NULL,
				executable_name TEXT NOT NULL,
				source_file TEXT NOT NULL,
				function_name TEXT NOT NULL,
				basic_block_coverage REAL NOT NULL,
				test_script TEXT NOT NULL,
				PRIMARY KEY (run_id, record_seq)
			);
		`, quotedTableName)
	}
}

// disabled reports whether the store is a no-op.
func (hs *HistoryStoreImpl) disabled() bool {
	return hs.backend == schema.NoneBackend || hs.db == nil
}

// BeginRun creates a new run and returns its unique ID.
func (hs *HistoryStoreImpl) BeginRun(startTime time.Time, inputRoot string, configParams map[string]any) (int64, error) {
	if hs.disabled() {
		return 0, nil
	}

	// Serialize config params to JSON
	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	quotedTableName := quoteTableName(runsTable, hs.backend)

	var runID int64
	switch hs.backend {
	case schema.PostgreSQLBackend:
		query := fmt.Sprintf(`INSERT INTO %s (start_time, input_root, config_params) VALUES ($1, $2, $3) RETURNING run_id`, quotedTableName)
		err = hs.db.QueryRow(query, startTime, inputRoot, string(configJSON)).Scan(&runID)
	default: // SQLite and MySQL
		query := fmt.Sprintf(`INSERT INTO %s (start_time, input_root, config_params) VALUES (?, ?, ?)`, quotedTableName)
		var result sql.Result
		result, err = hs.db.Exec(query, formatTime(startTime, hs.backend), inputRoot, string(configJSON))
		if err == nil {
			runID, err = result.LastInsertId()
		}
	}

	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}

	return runID, nil
}

// RecordCoverage stores the records of a run in one transaction, numbering them in order.
func (hs *HistoryStoreImpl) RecordCoverage(runID int64, records []schema.CoverageRecord) error {
	if hs.disabled() || len(records) == 0 {
		return nil
	}

	tx, err := hs.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := rebind(fmt.Sprintf(`
		INSERT INTO %s (run_id, record_seq, executable_name, source_file, function_name, basic_block_coverage, test_script)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, quoteTableName(coverageRecordsTable, hs.backend)), hs.backend)

	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare coverage insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i, r := range records {
		if _, err := stmt.Exec(runID, i, r.ExecutableName, r.SourceFile, r.FunctionName, r.BasicBlockCoverage, r.TestScript); err != nil {
			return fmt.Errorf("failed to insert coverage record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit coverage records: %w", err)
	}
	return nil
}

// EndRun updates the run with completion data.
func (hs *HistoryStoreImpl) EndRun(runID int64, summary schema.RunSummary) error {
	if hs.disabled() {
		return nil
	}

	quotedTableName := quoteTableName(runsTable, hs.backend)

	// First, get the start_time to calculate duration
	var rawStart any
	query := rebind(fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = ?`, quotedTableName), hs.backend)
	if err := hs.db.QueryRow(query, runID).Scan(&rawStart); err != nil {
		return fmt.Errorf("failed to get start_time for run %d: %w", runID, err)
	}
	startTime, err := parseTime(rawStart)
	if err != nil {
		return fmt.Errorf("failed to parse start_time: %w", err)
	}

	durationMs := summary.EndTime.Sub(startTime).Milliseconds()

	updateQuery := rebind(fmt.Sprintf(`
		UPDATE %s SET end_time = ?, run_duration_ms = ?, total_records = ?, total_docs = ?, skipped_units = ?
		WHERE run_id = ?
	`, quotedTableName), hs.backend)
	_, err = hs.db.Exec(updateQuery,
		formatTime(summary.EndTime, hs.backend), durationMs,
		summary.TotalRecords, summary.TotalDocs, summary.SkippedUnits, runID)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	return nil
}

// Close closes the underlying connection.
func (hs *HistoryStoreImpl) Close() error {
	if hs.db != nil {
		return hs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the history store.
func (hs *HistoryStoreImpl) GetStatus() (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:    string(hs.backend),
		Connected:  hs.db != nil,
		TableSizes: make(map[string]int64),
	}

	if hs.disabled() {
		return status, nil
	}

	quotedRuns := quoteTableName(runsTable, hs.backend)

	// Get total runs and records
	row := hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*), COALESCE(SUM(total_records), 0) FROM %s", quotedRuns))
	if err := row.Scan(&status.TotalRuns, &status.TotalRecords); err != nil {
		return status, fmt.Errorf("failed to get total runs: %w", err)
	}

	if status.TotalRuns > 0 {
		// Get last run info
		var rawLast any
		row = hs.db.QueryRow(fmt.Sprintf("SELECT run_id, start_time FROM %s ORDER BY run_id DESC LIMIT 1", quotedRuns))
		if err := row.Scan(&status.LastRunID, &rawLast); err != nil {
			return status, fmt.Errorf("failed to get last run info: %w", err)
		}
		lastRunTime, err := parseTime(rawLast)
		if err != nil {
			return status, fmt.Errorf("failed to parse last run time: %w", err)
		}
		status.LastRunTime = lastRunTime

		// Get oldest run time
		var rawOldest any
		row = hs.db.QueryRow(fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", quotedRuns))
		if err := row.Scan(&rawOldest); err != nil {
			return status, fmt.Errorf("failed to get oldest run time: %w", err)
		}
		oldestRunTime, err := parseTime(rawOldest)
		if err != nil {
			return status, fmt.Errorf("failed to parse oldest run time: %w", err)
		}
		status.OldestRunTime = oldestRunTime
	}

	// Get table sizes
	for _, table := range historyTables {
		var count int64
		row = hs.db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteTableName(table, hs.backend)))
		if err := row.Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}

	return status, nil
}

// GetAllRuns retrieves every tracked run ordered by ID.
func (hs *HistoryStoreImpl) GetAllRuns() ([]schema.RunRecord, error) {
	if hs.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, start_time, end_time, run_duration_ms, input_root,
		total_records, total_docs, skipped_units, config_params
		FROM %s ORDER BY run_id`, quoteTableName(runsTable, hs.backend))

	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.RunRecord
	for rows.Next() {
		var record schema.RunRecord
		var rawStart, rawEnd any
		if err := rows.Scan(&record.RunID, &rawStart, &rawEnd, &record.RunDurationMs, &record.InputRoot,
			&record.TotalRecords, &record.TotalDocs, &record.SkippedUnits, &record.ConfigParams); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}

		startTime, err := parseTime(rawStart)
		if err != nil {
			return nil, fmt.Errorf("failed to parse start_time: %w", err)
		}
		record.StartTime = startTime

		if rawEnd != nil {
			endTime, err := parseTime(rawEnd)
			if err != nil {
				return nil, fmt.Errorf("failed to parse end_time: %w", err)
			}
			record.EndTime = &endTime
		}

		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return results, nil
}

// GetAllCoverageRecords retrieves every stored record ordered by run and sequence.
func (hs *HistoryStoreImpl) GetAllCoverageRecords() ([]schema.StoredCoverageRecord, error) {
	if hs.disabled() {
		return nil, nil
	}

	query := fmt.Sprintf(`SELECT run_id, record_seq, executable_name, source_file, function_name,
		basic_block_coverage, test_script
		FROM %s ORDER BY run_id, record_seq`, quoteTableName(coverageRecordsTable, hs.backend))

	rows, err := hs.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query coverage records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.StoredCoverageRecord
	for rows.Next() {
		var r schema.StoredCoverageRecord
		if err := rows.Scan(&r.RunID, &r.Sequence, &r.ExecutableName, &r.SourceFile, &r.FunctionName,
			&r.BasicBlockCoverage, &r.TestScript); err != nil {
			return nil, fmt.Errorf("failed to scan coverage record: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating coverage records: %w", err)
	}

	return results, nil
}
