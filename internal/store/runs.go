package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/blackwell-systems/claudemetrics/internal/claude"
	"github.com/blackwell-systems/claudemetrics/internal/metrics"
)

const runColumns = `id, uuid, created_at, window_start, window_end, window_days,
	ordering, total_calculated, total_errors`

// SaveRun stores a run with its values and errors in one transaction and
// returns the run's row ID. A run's UUID may only be saved once.
func (db *DB) SaveRun(run *Run, values map[string]metrics.Value, errs []metrics.MetricError) (int64, error) {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.Exec(
		`INSERT INTO runs (uuid, created_at, window_start, window_end, window_days,
		 ordering, total_calculated, total_errors) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.UUID, formatTime(run.CreatedAt), formatTime(run.WindowStart), formatTime(run.WindowEnd),
		run.WindowDays, run.Ordering, len(values), len(errs),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting run %s: %w", run.UUID, err)
	}
	runID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	ids := make([]string, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := insertValue(tx, runID, values[id]); err != nil {
			return 0, fmt.Errorf("inserting %s: %w", id, err)
		}
	}

	for _, e := range errs {
		if _, err := tx.Exec(
			"INSERT INTO metric_errors (run_id, metric_id, kind, message) VALUES (?, ?, ?, ?)",
			runID, e.MetricID, string(e.Kind), e.Message,
		); err != nil {
			return 0, fmt.Errorf("inserting error for %s: %w", e.MetricID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	run.ID = runID
	run.TotalCalculated = len(values)
	run.TotalErrors = len(errs)
	return runID, nil
}

func insertValue(tx *sql.Tx, runID int64, v metrics.Value) error {
	valueJSON, err := json.Marshal(v.Value)
	if err != nil {
		return err
	}
	var numeric sql.NullFloat64
	if f, ok := v.Float(); ok {
		numeric = sql.NullFloat64{Float64: f, Valid: true}
	}
	var breakdown sql.NullString
	if len(v.Breakdown) > 0 {
		b, err := json.Marshal(v.Breakdown)
		if err != nil {
			return err
		}
		breakdown = sql.NullString{String: string(b), Valid: true}
	}
	var trend sql.NullFloat64
	if v.Trend != nil {
		trend = sql.NullFloat64{Float64: *v.Trend, Valid: true}
	}
	_, err = tx.Exec(
		`INSERT INTO metric_values (run_id, metric_id, value_json, numeric_value, window_days,
		 breakdown, trend, computed_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, v.MetricID, string(valueJSON), numeric, v.WindowDays, breakdown, trend,
		formatTime(v.Timestamp),
	)
	return err
}

// SaveSessions stores the session summaries of a run.
func (db *DB) SaveSessions(runID int64, sessions []claude.Session) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, s := range sessions {
		if _, err := tx.Exec(
			`INSERT INTO sessions (run_id, session_id, project_path, start_time, end_time,
			 duration_ms, message_count, tool_call_count, cost_usd, model, is_agent, git_branch)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, s.ID, s.ProjectPath, formatTime(s.StartTime), formatTime(s.EndTime),
			s.DurationMs, s.MessageCount, s.ToolCallCount, s.CostUSD, s.Model, s.IsAgent, s.GitBranch,
		); err != nil {
			return fmt.Errorf("inserting session %s: %w", s.ID, err)
		}
	}
	return tx.Commit()
}

// ListRuns returns the most recent runs, newest first. A non-positive
// limit returns every run.
func (db *DB) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.conn.Query(
		"SELECT "+runColumns+" FROM runs ORDER BY id DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetRun returns a run by row ID, or nil if it does not exist.
func (db *DB) GetRun(id int64) (*Run, error) {
	row := db.conn.QueryRow("SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	return scanRunRow(row)
}

// GetRunByUUID returns a run by its UUID, or nil if it does not exist.
func (db *DB) GetRunByUUID(uuid string) (*Run, error) {
	row := db.conn.QueryRow("SELECT "+runColumns+" FROM runs WHERE uuid = ?", uuid)
	return scanRunRow(row)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var createdAt, start, end string
	if err := s.Scan(&r.ID, &r.UUID, &createdAt, &start, &end, &r.WindowDays,
		&r.Ordering, &r.TotalCalculated, &r.TotalErrors); err != nil {
		return nil, err
	}
	r.CreatedAt = parseTime(createdAt)
	r.WindowStart = parseTime(start)
	r.WindowEnd = parseTime(end)
	return &r, nil
}

func scanRunRow(row *sql.Row) (*Run, error) {
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

// GetRunValues returns the stored values of a run sorted by metric ID.
func (db *DB) GetRunValues(runID int64) ([]MetricValue, error) {
	rows, err := db.conn.Query(
		`SELECT run_id, metric_id, value_json, numeric_value, window_days, breakdown, trend, computed_at
		 FROM metric_values WHERE run_id = ? ORDER BY metric_id`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var values []MetricValue
	for rows.Next() {
		var v MetricValue
		var valueJSON, computedAt string
		var numeric, trend sql.NullFloat64
		var breakdown sql.NullString
		if err := rows.Scan(&v.RunID, &v.MetricID, &valueJSON, &numeric, &v.WindowDays,
			&breakdown, &trend, &computedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(valueJSON), &v.Value); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", v.MetricID, err)
		}
		if numeric.Valid {
			v.Numeric = &numeric.Float64
		}
		if trend.Valid {
			v.Trend = &trend.Float64
		}
		if breakdown.Valid {
			if err := json.Unmarshal([]byte(breakdown.String), &v.Breakdown); err != nil {
				return nil, fmt.Errorf("decoding %s breakdown: %w", v.MetricID, err)
			}
		}
		v.ComputedAt = parseTime(computedAt)
		values = append(values, v)
	}
	return values, rows.Err()
}

// GetRunErrors returns the stored errors of a run sorted by metric ID.
func (db *DB) GetRunErrors(runID int64) ([]MetricError, error) {
	rows, err := db.conn.Query(
		"SELECT run_id, metric_id, kind, message FROM metric_errors WHERE run_id = ? ORDER BY metric_id",
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var errs []MetricError
	for rows.Next() {
		var e MetricError
		if err := rows.Scan(&e.RunID, &e.MetricID, &e.Kind, &e.Message); err != nil {
			return nil, err
		}
		errs = append(errs, e)
	}
	return errs, rows.Err()
}

// GetRunSessions returns the sessions saved with a run.
func (db *DB) GetRunSessions(runID int64) ([]SessionRow, error) {
	rows, err := db.conn.Query(
		`SELECT run_id, session_id, project_path, start_time, end_time, duration_ms,
		 message_count, tool_call_count, cost_usd, model, is_agent, git_branch
		 FROM sessions WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []SessionRow
	for rows.Next() {
		var s SessionRow
		var project, start, end, model, branch sql.NullString
		if err := rows.Scan(&s.RunID, &s.SessionID, &project, &start, &end, &s.DurationMs,
			&s.MessageCount, &s.ToolCallCount, &s.CostUSD, &model, &s.IsAgent, &branch); err != nil {
			return nil, err
		}
		s.ProjectPath = project.String
		s.StartTime = parseTime(start.String)
		s.EndTime = parseTime(end.String)
		s.Model = model.String
		s.GitBranch = branch.String
		out = append(out, s)
	}
	return out, rows.Err()
}

// MetricHistory returns a metric's numeric values across the most recent
// runs, oldest first. Runs where the metric was not numeric are skipped.
func (db *DB) MetricHistory(metricID string, limit int) ([]MetricPoint, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.conn.Query(
		`SELECT r.id, r.created_at, v.numeric_value
		 FROM metric_values v JOIN runs r ON r.id = v.run_id
		 WHERE v.metric_id = ? AND v.numeric_value IS NOT NULL
		 ORDER BY r.id DESC LIMIT ?`,
		metricID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var points []MetricPoint
	for rows.Next() {
		var p MetricPoint
		var createdAt string
		if err := rows.Scan(&p.RunID, &createdAt, &p.Value); err != nil {
			return nil, err
		}
		p.CreatedAt = parseTime(createdAt)
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(points)-1; i < j; i, j = i+1, j-1 {
		points[i], points[j] = points[j], points[i]
	}
	return points, nil
}

// DeleteRun removes a run and everything saved with it.
func (db *DB) DeleteRun(id int64) error {
	_, err := db.conn.Exec("DELETE FROM runs WHERE id = ?", id)
	return err
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
