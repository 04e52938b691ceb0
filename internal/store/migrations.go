package store

import "fmt"

// currentSchemaVersion is the latest schema version.
const currentSchemaVersion = 1

// Migrate runs forward migrations to bring the database schema up to date.
func (db *DB) Migrate() error {
	// Create the schema_version table if it does not exist.
	if _, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	version := 0
	row := db.conn.QueryRow("SELECT version FROM schema_version LIMIT 1")
	if err := row.Scan(&version); err != nil {
		// No rows means version 0 (fresh database).
		version = 0
	}

	if version < 1 {
		if err := db.migrateV1(); err != nil {
			return fmt.Errorf("migration v1: %w", err)
		}
	}

	return nil
}

// migrateV1 creates all initial tables and indexes.
func (db *DB) migrateV1() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			uuid             TEXT NOT NULL UNIQUE,
			created_at       TEXT NOT NULL,
			window_start     TEXT NOT NULL,
			window_end       TEXT NOT NULL,
			window_days      INTEGER NOT NULL,
			ordering         TEXT NOT NULL,
			total_calculated INTEGER NOT NULL,
			total_errors     INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS metric_values (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id        INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			metric_id     TEXT NOT NULL,
			value_json    TEXT NOT NULL,
			numeric_value REAL,
			window_days   INTEGER NOT NULL,
			breakdown     TEXT,
			trend         REAL,
			computed_at   TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS metric_errors (
			id        INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id    INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			metric_id TEXT NOT NULL,
			kind      TEXT NOT NULL,
			message   TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS sessions (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id          INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			session_id      TEXT NOT NULL,
			project_path    TEXT,
			start_time      TEXT,
			end_time        TEXT,
			duration_ms     INTEGER NOT NULL,
			message_count   INTEGER NOT NULL,
			tool_call_count INTEGER NOT NULL,
			cost_usd        REAL NOT NULL,
			model           TEXT,
			is_agent        BOOLEAN NOT NULL,
			git_branch      TEXT
		)`,

		// Indexes.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_metric_values_run_metric ON metric_values(run_id, metric_id)`,
		`CREATE INDEX IF NOT EXISTS idx_metric_values_metric ON metric_values(metric_id)`,
		`CREATE INDEX IF NOT EXISTS idx_metric_errors_run ON metric_errors(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_run ON sessions(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_session ON sessions(session_id)`,
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range statements {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("executing %q: %w", stmt[:40], err)
		}
	}

	// Set schema version.
	if _, err := tx.Exec("DELETE FROM schema_version"); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", currentSchemaVersion); err != nil {
		return err
	}

	return tx.Commit()
}
