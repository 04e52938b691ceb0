package claude

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Record types that carry no conversation content.
const (
	TypeFileHistorySnapshot = "file-history-snapshot"
	TypeUser                = "user"
	TypeAssistant           = "assistant"
	TypeSystem              = "system"
)

// ErrEmptyRecord is returned by DecodeRecord for blank lines.
var ErrEmptyRecord = errors.New("empty record")

// Record is one decoded transcript line. Absent fields hold their zero value.
type Record struct {
	Type        string
	Subtype     string
	UUID        string
	ParentUUID  string
	SessionID   string
	Timestamp   time.Time
	IsSidechain bool
	IsAPIError  bool
	GitBranch   string
	CWD         string

	// CostUSD is only meaningful when HasCost is set.
	CostUSD float64
	HasCost bool

	Role   string
	Model  string
	Usage  Usage
	Text   string
	Blocks []ContentBlock

	ThinkingLevel    string
	ThinkingDisabled bool

	CompactPreTokens int64

	HookCount             int
	PreventedContinuation bool

	// ToolResult is set when toolUseResult is a JSON object.
	ToolResult *ToolResult
}

// HasTimestamp reports whether the record carried a parseable timestamp.
func (r *Record) HasTimestamp() bool {
	return !r.Timestamp.IsZero()
}

// IsCompactBoundary reports whether the record marks a context compaction.
func (r *Record) IsCompactBoundary() bool {
	return r.Type == TypeSystem && r.Subtype == "compact_boundary"
}

// ToolUses returns the tool_use blocks of the record in order.
func (r *Record) ToolUses() []ContentBlock {
	var uses []ContentBlock
	for _, b := range r.Blocks {
		if b.Type == "tool_use" {
			uses = append(uses, b)
		}
	}
	return uses
}

// ToolResults returns the tool_result blocks of the record in order.
func (r *Record) ToolResults() []ContentBlock {
	var results []ContentBlock
	for _, b := range r.Blocks {
		if b.Type == "tool_result" {
			results = append(results, b)
		}
	}
	return results
}

// Usage holds the token counters of one API response.
type Usage struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
}

// ContentBlock represents a single content block (text, thinking, tool_use,
// tool_result).
type ContentBlock struct {
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
	ToolUseID string          `json:"tool_use_id"`
	Content   json.RawMessage `json:"content"`
	IsError   bool            `json:"is_error"`
	Text      string          `json:"text"`
	Thinking  string          `json:"thinking"`
}

// ResultText flattens a tool_result content payload, which is either a
// string or a list of text blocks.
func (b ContentBlock) ResultText() string {
	if len(b.Content) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(b.Content, &s); err == nil {
		return s
	}
	var parts []ContentBlock
	if err := json.Unmarshal(b.Content, &parts); err != nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range parts {
		if p.Text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// ToolResult is the decoded toolUseResult object of a record.
type ToolResult struct {
	DurationMs        *int64
	TotalDurationMs   *int64
	Status            string
	Interrupted       bool
	FilePath          string
	Truncated         bool
	TotalTokens       int64
	TotalToolUseCount int
	Stderr            string
	// ContentBytes is the size of the file content a Read returned.
	ContentBytes int64
}

// IsError reports whether the result status marks a failure.
func (t *ToolResult) IsError() bool {
	return t.Status == "error"
}

type rawRecord struct {
	Type              string          `json:"type"`
	Subtype           string          `json:"subtype"`
	UUID              string          `json:"uuid"`
	ParentUUID        string          `json:"parentUuid"`
	SessionID         string          `json:"sessionId"`
	IsSidechain       bool            `json:"isSidechain"`
	IsAPIErrorMessage bool            `json:"isApiErrorMessage"`
	GitBranch         string          `json:"gitBranch"`
	CWD               string          `json:"cwd"`
	Message           json.RawMessage `json:"message"`
	ToolUseResult     json.RawMessage `json:"toolUseResult"`

	// Scalars whose type varies across client versions are decoded one
	// by one so a mistyped field zeroes only itself.
	Timestamp             json.RawMessage `json:"timestamp"`
	CostUSD               json.RawMessage `json:"costUSD"`
	HookCount             json.RawMessage `json:"hookCount"`
	PreventedContinuation json.RawMessage `json:"preventedContinuation"`
	ThinkingMetadata      json.RawMessage `json:"thinkingMetadata"`
	CompactMetadata       json.RawMessage `json:"compactMetadata"`
}

type rawThinkingMetadata struct {
	Level    string `json:"level"`
	Disabled bool   `json:"disabled"`
}

type rawCompactMetadata struct {
	Trigger   string `json:"trigger"`
	PreTokens int64  `json:"preTokens"`
}

type rawMessage struct {
	Role    string          `json:"role"`
	Model   string          `json:"model"`
	Usage   Usage           `json:"usage"`
	Content json.RawMessage `json:"content"`
}

type rawToolResult struct {
	DurationMs        *float64        `json:"durationMs"`
	TotalDurationMs   *float64        `json:"totalDurationMs"`
	Status            string          `json:"status"`
	Interrupted       bool            `json:"interrupted"`
	FilePath          string          `json:"filePath"`
	File              json.RawMessage `json:"file"`
	Truncated         bool            `json:"truncated"`
	TotalTokens       int64           `json:"totalTokens"`
	TotalToolUseCount int             `json:"totalToolUseCount"`
	Stderr            string          `json:"stderr"`
}

// DecodeRecord decodes one JSONL line. Only a line that is not a JSON object
// is an error; sub-shapes that do not match (a string message, a non-object
// tool result, foreign content blocks) are left empty.
func DecodeRecord(line []byte) (*Record, error) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil, ErrEmptyRecord
	}

	var raw rawRecord
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, err
	}

	rec := &Record{
		Type:        raw.Type,
		Subtype:     raw.Subtype,
		UUID:        raw.UUID,
		ParentUUID:  raw.ParentUUID,
		SessionID:   raw.SessionID,
		IsSidechain: raw.IsSidechain,
		IsAPIError:  raw.IsAPIErrorMessage,
		GitBranch:   raw.GitBranch,
		CWD:         raw.CWD,
	}

	var ts string
	if decodeField(raw.Timestamp, &ts) {
		rec.Timestamp = ParseTimestamp(ts)
	}
	var cost float64
	if decodeField(raw.CostUSD, &cost) {
		rec.CostUSD = cost
		rec.HasCost = true
	}
	decodeField(raw.HookCount, &rec.HookCount)
	decodeField(raw.PreventedContinuation, &rec.PreventedContinuation)

	var thinking rawThinkingMetadata
	if decodeField(raw.ThinkingMetadata, &thinking) {
		rec.ThinkingLevel = thinking.Level
		rec.ThinkingDisabled = thinking.Disabled
	}
	var compact rawCompactMetadata
	if decodeField(raw.CompactMetadata, &compact) {
		rec.CompactPreTokens = compact.PreTokens
	}

	decodeMessage(raw.Message, rec)
	rec.ToolResult = decodeToolResult(raw.ToolUseResult)

	return rec, nil
}

// decodeField unmarshals one optional field into dst. Absent, null and
// mistyped values leave dst untouched and report false.
func decodeField[T any](data json.RawMessage, dst *T) bool {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return false
	}
	*dst = v
	return true
}

func decodeMessage(data json.RawMessage, rec *Record) {
	if len(data) == 0 {
		return
	}
	var msg rawMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	rec.Role = msg.Role
	rec.Model = msg.Model
	rec.Usage = msg.Usage

	if len(msg.Content) == 0 {
		return
	}

	// Content is either a plain string or a list of blocks.
	var s string
	if err := json.Unmarshal(msg.Content, &s); err == nil {
		rec.Text = s
		return
	}

	var items []json.RawMessage
	if err := json.Unmarshal(msg.Content, &items); err != nil {
		return
	}
	var texts []string
	for _, item := range items {
		var block ContentBlock
		if err := json.Unmarshal(item, &block); err != nil {
			continue
		}
		rec.Blocks = append(rec.Blocks, block)
		if block.Type == "text" && block.Text != "" {
			texts = append(texts, block.Text)
		}
	}
	rec.Text = strings.Join(texts, "\n")
}

func decodeToolResult(data json.RawMessage) *ToolResult {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil
	}
	var raw rawToolResult
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	res := &ToolResult{
		DurationMs:        floatToInt64(raw.DurationMs),
		TotalDurationMs:   floatToInt64(raw.TotalDurationMs),
		Status:            raw.Status,
		Interrupted:       raw.Interrupted,
		FilePath:          raw.FilePath,
		Truncated:         raw.Truncated,
		TotalTokens:       raw.TotalTokens,
		TotalToolUseCount: raw.TotalToolUseCount,
		Stderr:            raw.Stderr,
	}
	var file struct {
		FilePath string `json:"filePath"`
		Content  string `json:"content"`
	}
	if decodeField(raw.File, &file) {
		if res.FilePath == "" {
			res.FilePath = file.FilePath
		}
		res.ContentBytes = int64(len(file.Content))
	}
	return res
}

func floatToInt64(f *float64) *int64 {
	if f == nil {
		return nil
	}
	v := int64(*f)
	return &v
}

// decodeToolInput extracts the input fields the metrics read from a
// tool_use block.
func decodeToolInput(raw json.RawMessage) ToolInput {
	var in struct {
		FilePath     string          `json:"file_path"`
		Path         string          `json:"path"`
		Command      string          `json:"command"`
		SubagentType string          `json:"subagent_type"`
		Resume       json.RawMessage `json:"resume"`
		Content      string          `json:"content"`
		Plan         string          `json:"plan"`
	}
	if len(raw) == 0 {
		return ToolInput{}
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return ToolInput{}
	}

	ti := ToolInput{
		FilePath:     in.FilePath,
		Command:      in.Command,
		SubagentType: in.SubagentType,
		Content:      in.Content,
		ContentSize:  len(in.Content),
		Plan:         in.Plan,
	}
	if ti.FilePath == "" {
		ti.FilePath = in.Path
	}
	if r := bytes.TrimSpace(in.Resume); len(r) > 0 && !bytes.Equal(r, []byte("null")) {
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			ti.Resume = s
		} else {
			ti.Resume = string(r)
		}
	}
	return ti
}

// ParseTimestamp parses an ISO 8601 timestamp string into a time.Time.
// Naive timestamps are taken as UTC. Returns the zero time on failure.
func ParseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02T15:04:05.999999999", s); err == nil {
		return t
	}
	return time.Time{}
}
