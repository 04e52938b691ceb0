// Package claude provides types and parsers for Claude Code's local data files.
package claude

import "time"

// Session is one reconstructed conversation transcript. Only the in-window
// portion of the source file contributes to its counters.
type Session struct {
	ID                    string    `json:"session_id"`
	ProjectPath           string    `json:"project_path"`
	SourcePath            string    `json:"source_path"`
	StartTime             time.Time `json:"start_time"`
	EndTime               time.Time `json:"end_time"`
	DurationMs            int64     `json:"duration_ms"`
	MessageCount          int       `json:"message_count"`
	UserMessageCount      int       `json:"user_message_count"`
	AssistantMessageCount int       `json:"assistant_message_count"`
	ToolCallCount         int       `json:"tool_call_count"`
	CostUSD               float64   `json:"cost_usd"`

	// Model is the lexicographically last entry of ModelsUsed.
	Model      string   `json:"model,omitempty"`
	ModelsUsed []string `json:"models_used"`

	TotalInputTokens     int64 `json:"total_input_tokens"`
	TotalOutputTokens    int64 `json:"total_output_tokens"`
	TotalCacheReadTokens int64 `json:"total_cache_read_tokens"`
	IsAgent              bool  `json:"is_agent"`

	// GitBranch is the first branch recorded in the window; GitBranches
	// lists every distinct branch in order of first appearance.
	GitBranch       string   `json:"git_branch,omitempty"`
	GitBranches     []string `json:"git_branches,omitempty"`
	CompactionCount int      `json:"compaction_count"`
	CompactedTokens int64    `json:"compacted_tokens"`

	HookCount          int `json:"hook_count"`
	HookPreventedCount int `json:"hook_prevented_count"`

	// AmbiguousResults counts tool results that were paired positionally
	// while more than one call of the same record was still unresolved.
	AmbiguousResults int `json:"ambiguous_results,omitempty"`
}

// Message is one conversation turn within a session.
type Message struct {
	UUID            string    `json:"uuid"`
	ParentUUID      string    `json:"parent_uuid,omitempty"`
	SessionID       string    `json:"session_id"`
	Timestamp       time.Time `json:"timestamp"`
	Type            string    `json:"type"`
	Role            string    `json:"role,omitempty"`
	Model           string    `json:"model,omitempty"`
	InputTokens     int64     `json:"input_tokens"`
	OutputTokens    int64     `json:"output_tokens"`
	CacheReadTokens int64     `json:"cache_read_tokens"`
	CostUSD         float64   `json:"cost_usd"`
	HasThinking     bool      `json:"has_thinking"`
	ThinkingLength  int       `json:"thinking_length"`
	ToolCallCount   int       `json:"tool_call_count"`

	Content           string   `json:"content,omitempty"`
	ToolNames         []string `json:"tool_names,omitempty"`
	IsSidechain       bool     `json:"is_sidechain,omitempty"`
	IsAPIError        bool     `json:"is_api_error,omitempty"`
	ThinkingLevel     string   `json:"thinking_level,omitempty"`
	ThinkingDisabled  bool     `json:"thinking_disabled,omitempty"`
	GitBranch         string   `json:"git_branch,omitempty"`
	CWD               string   `json:"cwd,omitempty"`
	IsCompactBoundary bool     `json:"is_compact_boundary,omitempty"`
	CompactPreTokens  int64    `json:"compact_pre_tokens,omitempty"`
}

// ToolCall is one tool invocation plus its (possibly absent) result.
// Success starts out true and stays that way until a result is applied;
// a call whose DurationMs is nil has an unknown outcome.
type ToolCall struct {
	ID              string    `json:"id,omitempty"`
	Name            string    `json:"tool_name"`
	Timestamp       time.Time `json:"timestamp"`
	SessionID       string    `json:"session_id"`
	MessageUUID     string    `json:"message_uuid,omitempty"`
	DurationMs      *int64    `json:"duration_ms"`
	TotalDurationMs *int64    `json:"total_duration_ms"`
	Success         bool      `json:"success"`
	IsError         bool      `json:"is_error"`
	Interrupted     bool      `json:"interrupted"`
	FilePath        string    `json:"file_path,omitempty"`
	Resolved        bool      `json:"resolved"`

	Input ToolInput `json:"input"`

	Truncated         bool   `json:"truncated,omitempty"`
	ErrorType         string `json:"error_type,omitempty"`
	AgentTotalTokens  int64  `json:"agent_total_tokens,omitempty"`
	AgentToolUseCount int    `json:"agent_tool_use_count,omitempty"`
	ResultBytes       int64  `json:"result_bytes,omitempty"`

	// NestingDepth is 1 for calls made by a main session and 2 for calls
	// made from inside a sub-agent transcript.
	NestingDepth int `json:"nesting_depth"`
}

// ToolInput holds the subset of tool_use input fields the metrics read.
type ToolInput struct {
	FilePath     string `json:"file_path,omitempty"`
	Command      string `json:"command,omitempty"`
	SubagentType string `json:"subagent_type,omitempty"`
	Resume       string `json:"resume,omitempty"`
	Content      string `json:"-"`
	ContentSize  int    `json:"content_size,omitempty"`
	Plan         string `json:"-"`
}

// StatsCache represents the aggregate stats in ~/.claude/stats-cache.json.
type StatsCache struct {
	Version          int                   `json:"version"`
	LastComputedDate string                `json:"lastComputedDate"`
	DailyActivity    []DailyActivity       `json:"dailyActivity"`
	ModelUsage       map[string]ModelUsage `json:"modelUsage"`
	TotalSessions    int                   `json:"totalSessions"`
	TotalMessages    int                   `json:"totalMessages"`
	FirstSessionDate string                `json:"firstSessionDate"`
	HourCounts       map[string]int        `json:"hourCounts"`
}

// DailyActivity is one day of the stats cache. Older cache versions used
// totalMessages/toolCalls instead of messageCount/toolCallCount; both are
// accepted.
type DailyActivity struct {
	Date          string  `json:"date"`
	MessageCount  int     `json:"messageCount"`
	TotalMessages int     `json:"totalMessages"`
	SessionCount  int     `json:"sessionCount"`
	ToolCallCount int     `json:"toolCallCount"`
	ToolCalls     int     `json:"toolCalls"`
	TotalCost     float64 `json:"totalCost"`
	InputTokens   int64   `json:"inputTokens"`
	OutputTokens  int64   `json:"outputTokens"`
}

// Messages returns the day's message count under either field name.
func (d DailyActivity) Messages() int {
	if d.MessageCount != 0 {
		return d.MessageCount
	}
	return d.TotalMessages
}

// Tools returns the day's tool call count under either field name.
func (d DailyActivity) Tools() int {
	if d.ToolCallCount != 0 {
		return d.ToolCallCount
	}
	return d.ToolCalls
}

// ModelUsage represents aggregate usage stats for a single model.
type ModelUsage struct {
	InputTokens              int64   `json:"inputTokens"`
	OutputTokens             int64   `json:"outputTokens"`
	CacheReadInputTokens     int64   `json:"cacheReadInputTokens"`
	CacheCreationInputTokens int64   `json:"cacheCreationInputTokens"`
	CostUSD                  float64 `json:"costUSD"`
}

// TodoTask is one entry of a todo list file.
type TodoTask struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	Status     string `json:"status"`
	Priority   string `json:"priority"`
	ActiveForm string `json:"activeForm"`
}

// SessionTodos is the todo list written for one session/agent pair.
type SessionTodos struct {
	SessionID string     `json:"session_id"`
	AgentID   string     `json:"agent_id,omitempty"`
	Tasks     []TodoTask `json:"tasks"`
}

// FileHistorySession summarizes the versioned backups of one session.
type FileHistorySession struct {
	SessionID   string `json:"session_id"`
	UniqueFiles int    `json:"unique_files"`
	TotalEdits  int    `json:"total_edits"`
	MaxVersion  int    `json:"max_version"`
	TotalBytes  int64  `json:"total_bytes"`

	// Versions maps each backed-up file hash to its highest version.
	Versions map[string]int `json:"versions,omitempty"`
}

// ProjectDir represents a discovered project directory under ~/.claude/projects/.
type ProjectDir struct {
	Path string
	Name string

	// ProjectPath is the working directory the folder name encodes.
	ProjectPath string
}
