// Package store provides SQLite persistence for metric runs.
package store

import "time"

// Run is one persisted evaluation of the metric catalog.
type Run struct {
	ID              int64     `json:"id"`
	UUID            string    `json:"uuid"`
	CreatedAt       time.Time `json:"created_at"`
	WindowStart     time.Time `json:"window_start"`
	WindowEnd       time.Time `json:"window_end"`
	WindowDays      int       `json:"window_days"`
	Ordering        string    `json:"ordering"`
	TotalCalculated int       `json:"total_calculated"`
	TotalErrors     int       `json:"total_errors"`
}

// MetricValue is a stored metric value. Value holds the decoded JSON form;
// Numeric is set when the value was a plain number.
type MetricValue struct {
	RunID      int64          `json:"run_id"`
	MetricID   string         `json:"metric_id"`
	Value      any            `json:"value"`
	Numeric    *float64       `json:"numeric,omitempty"`
	WindowDays int            `json:"window_days"`
	Breakdown  map[string]any `json:"breakdown,omitempty"`
	Trend      *float64       `json:"trend,omitempty"`
	ComputedAt time.Time      `json:"computed_at"`
}

// MetricError is a stored metric failure.
type MetricError struct {
	RunID    int64  `json:"run_id"`
	MetricID string `json:"metric_id"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
}

// SessionRow is the per-session summary saved alongside a run.
type SessionRow struct {
	RunID         int64     `json:"run_id"`
	SessionID     string    `json:"session_id"`
	ProjectPath   string    `json:"project_path,omitempty"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	DurationMs    int64     `json:"duration_ms"`
	MessageCount  int       `json:"message_count"`
	ToolCallCount int       `json:"tool_call_count"`
	CostUSD       float64   `json:"cost_usd"`
	Model         string    `json:"model,omitempty"`
	IsAgent       bool      `json:"is_agent"`
	GitBranch     string    `json:"git_branch,omitempty"`
}

// MetricPoint is one metric's numeric value in one run.
type MetricPoint struct {
	RunID     int64     `json:"run_id"`
	CreatedAt time.Time `json:"created_at"`
	Value     float64   `json:"value"`
}
