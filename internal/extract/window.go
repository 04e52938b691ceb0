// Package extract folds Claude Code's local transcripts and caches into a
// single time-windowed snapshot for metric calculation.
package extract

import (
	"time"

	"github.com/blackwell-systems/claudemetrics/internal/claude"
)

// DailyActivity is one calendar day of activity.
type DailyActivity struct {
	Date          string  `json:"date"`
	SessionCount  int     `json:"session_count"`
	MessageCount  int     `json:"message_count"`
	ToolCallCount int     `json:"tool_call_count"`
	CostUSD       float64 `json:"cost_usd"`
	InputTokens   int64   `json:"input_tokens"`
	OutputTokens  int64   `json:"output_tokens"`
	ActiveHours   float64 `json:"active_hours"`
}

// ModelUsage is the share of window activity apportioned to one model.
type ModelUsage struct {
	Model           string  `json:"model"`
	MessageCount    int     `json:"message_count"`
	InputTokens     int64   `json:"input_tokens"`
	OutputTokens    int64   `json:"output_tokens"`
	CacheReadTokens int64   `json:"cache_read_tokens"`
	CostUSD         float64 `json:"cost_usd"`
}

// TokenTotals sums token counters across all window sessions.
type TokenTotals struct {
	Input     int64 `json:"input"`
	Output    int64 `json:"output"`
	CacheRead int64 `json:"cache_read"`
}

// Window is everything observed between Start and End. It is built once by
// an Extractor and must not be mutated afterwards.
type Window struct {
	Start time.Time `json:"window_start"`
	End   time.Time `json:"window_end"`
	Days  int       `json:"window_days"`

	Sessions  []claude.Session  `json:"sessions"`
	Messages  []claude.Message  `json:"messages"`
	ToolCalls []claude.ToolCall `json:"tool_calls"`

	DailyActivity []DailyActivity `json:"daily_activity"`

	// HourlyDistribution always holds the 24 keys 0..23.
	HourlyDistribution map[int]int `json:"hourly_distribution"`

	ToolCounts   map[string]int `json:"tool_counts"`
	FilesRead    map[string]int `json:"files_read"`
	FilesEdited  map[string]int `json:"files_edited"`
	FilesWritten map[string]int `json:"files_written"`

	ModelUsage  map[string]ModelUsage `json:"model_usage"`
	TotalTokens TokenTotals           `json:"total_tokens"`

	TotalSessions  int     `json:"total_sessions"`
	TotalMessages  int     `json:"total_messages"`
	TotalToolCalls int     `json:"total_tool_calls"`
	TotalCostUSD   float64 `json:"total_cost_usd"`

	// ActiveDates is the sorted set of YYYY-MM-DD session start dates.
	ActiveDates []string `json:"active_dates"`

	// Todos maps in-window session IDs to their todo lists.
	Todos map[string][]claude.TodoTask `json:"todos,omitempty"`

	// FileHistory maps in-window session IDs to their backup summaries.
	FileHistory map[string]claude.FileHistorySession `json:"file_history,omitempty"`
}

// NewWindow returns an empty window ending at end and spanning days.
func NewWindow(end time.Time, days int) *Window {
	w := &Window{
		Start:              end.Add(-time.Duration(days) * 24 * time.Hour),
		End:                end,
		Days:               days,
		HourlyDistribution: make(map[int]int, 24),
		ToolCounts:         make(map[string]int),
		FilesRead:          make(map[string]int),
		FilesEdited:        make(map[string]int),
		FilesWritten:       make(map[string]int),
		ModelUsage:         make(map[string]ModelUsage),
		Todos:              make(map[string][]claude.TodoTask),
		FileHistory:        make(map[string]claude.FileHistorySession),
	}
	for h := 0; h < 24; h++ {
		w.HourlyDistribution[h] = 0
	}
	return w
}

// SessionByID returns the window session with the given ID.
func (w *Window) SessionByID(id string) (claude.Session, bool) {
	for _, s := range w.Sessions {
		if s.ID == id {
			return s, true
		}
	}
	return claude.Session{}, false
}

// Summary is a compact description of a window.
type Summary struct {
	Start              time.Time      `json:"window_start"`
	End                time.Time      `json:"window_end"`
	Days               int            `json:"window_days"`
	TotalSessions      int            `json:"total_sessions"`
	TotalMessages      int            `json:"total_messages"`
	TotalToolCalls     int            `json:"total_tool_calls"`
	TotalCostUSD       float64        `json:"total_cost_usd"`
	TotalTokens        TokenTotals    `json:"total_tokens"`
	SessionCount       int            `json:"session_count"`
	MessageCount       int            `json:"message_count"`
	ToolCallCount      int            `json:"tool_call_count"`
	DailyActivityCount int            `json:"daily_activity_count"`
	ActiveDatesCount   int            `json:"active_dates_count"`
	FilesReadCount     int            `json:"files_read_count"`
	FilesEditedCount   int            `json:"files_edited_count"`
	FilesWrittenCount  int            `json:"files_written_count"`
	ModelCount         int            `json:"model_count"`
	TodoSessions       int            `json:"todo_sessions"`
	HourlyDistribution map[int]int    `json:"hourly_distribution"`
	ToolCounts         map[string]int `json:"tool_counts"`
}

// Summary returns the window's headline counts. Cost is rounded to four
// decimal places.
func (w *Window) Summary() Summary {
	return Summary{
		Start:              w.Start,
		End:                w.End,
		Days:               w.Days,
		TotalSessions:      w.TotalSessions,
		TotalMessages:      w.TotalMessages,
		TotalToolCalls:     w.TotalToolCalls,
		TotalCostUSD:       round4(w.TotalCostUSD),
		TotalTokens:        w.TotalTokens,
		SessionCount:       len(w.Sessions),
		MessageCount:       len(w.Messages),
		ToolCallCount:      len(w.ToolCalls),
		DailyActivityCount: len(w.DailyActivity),
		ActiveDatesCount:   len(w.ActiveDates),
		FilesReadCount:     len(w.FilesRead),
		FilesEditedCount:   len(w.FilesEdited),
		FilesWrittenCount:  len(w.FilesWritten),
		ModelCount:         len(w.ModelUsage),
		TodoSessions:       len(w.Todos),
		HourlyDistribution: w.HourlyDistribution,
		ToolCounts:         w.ToolCounts,
	}
}
