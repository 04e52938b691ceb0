package claude

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// helper to write a JSONL file in a temp dir and return its path.
func writeJSONL(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestDecodeRecord_AssistantWithBlocks(t *testing.T) {
	line := `{"type":"assistant","uuid":"u1","parentUuid":"u0","timestamp":"2026-01-15T10:00:00.123Z","sessionId":"s1","gitBranch":"main","costUSD":0.25,` +
		`"message":{"role":"assistant","model":"claude-sonnet-4","usage":{"input_tokens":100,"output_tokens":20,"cache_read_input_tokens":7},` +
		`"content":[{"type":"thinking","thinking":"hmm"},{"type":"text","text":"hello"},{"type":"tool_use","id":"tu_1","name":"Read","input":{"file_path":"/a/b.go"}}]}}`

	rec, err := DecodeRecord([]byte(line))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Type != "assistant" || rec.UUID != "u1" || rec.ParentUUID != "u0" {
		t.Errorf("envelope = %q/%q/%q", rec.Type, rec.UUID, rec.ParentUUID)
	}
	if !rec.HasTimestamp() {
		t.Fatal("expected timestamp")
	}
	if !rec.HasCost || rec.CostUSD != 0.25 {
		t.Errorf("CostUSD = %v (has=%v), want 0.25", rec.CostUSD, rec.HasCost)
	}
	if rec.Model != "claude-sonnet-4" {
		t.Errorf("Model = %q", rec.Model)
	}
	if rec.Usage.InputTokens != 100 || rec.Usage.OutputTokens != 20 || rec.Usage.CacheReadInputTokens != 7 {
		t.Errorf("Usage = %+v", rec.Usage)
	}
	if len(rec.Blocks) != 3 {
		t.Fatalf("len(Blocks) = %d, want 3", len(rec.Blocks))
	}
	if rec.Text != "hello" {
		t.Errorf("Text = %q, want hello", rec.Text)
	}
	uses := rec.ToolUses()
	if len(uses) != 1 || uses[0].Name != "Read" {
		t.Errorf("ToolUses = %+v", uses)
	}
	if rec.GitBranch != "main" {
		t.Errorf("GitBranch = %q", rec.GitBranch)
	}
}

func TestDecodeRecord_StringContent(t *testing.T) {
	rec, err := DecodeRecord([]byte(`{"type":"user","message":{"role":"user","content":"fix the bug?"}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Text != "fix the bug?" {
		t.Errorf("Text = %q", rec.Text)
	}
	if rec.HasTimestamp() {
		t.Error("expected no timestamp")
	}
	if len(rec.Blocks) != 0 {
		t.Errorf("Blocks = %d, want 0", len(rec.Blocks))
	}
}

func TestDecodeRecord_ToolUseResult(t *testing.T) {
	tests := []struct {
		name      string
		line      string
		wantNil   bool
		wantErr   bool
		wantPath  string
		wantBytes int64
	}{
		{
			name:     "object with filePath",
			line:     `{"type":"user","toolUseResult":{"durationMs":12,"status":"error","filePath":"/x.py"}}`,
			wantErr:  true,
			wantPath: "/x.py",
		},
		{
			name:     "nested file object",
			line:     `{"type":"user","toolUseResult":{"file":{"filePath":"/y.md"}}}`,
			wantPath: "/y.md",
		},
		{
			name:      "read with content",
			line:      `{"type":"user","toolUseResult":{"type":"text","file":{"filePath":"/z.go","content":"package z\n"}}}`,
			wantPath:  "/z.go",
			wantBytes: 10,
		},
		{
			name:    "string result",
			line:    `{"type":"user","toolUseResult":"Error: boom"}`,
			wantNil: true,
		},
		{
			name:    "array result",
			line:    `{"type":"user","toolUseResult":[{"type":"text","text":"x"}]}`,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := DecodeRecord([]byte(tt.line))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantNil {
				if rec.ToolResult != nil {
					t.Errorf("ToolResult = %+v, want nil", rec.ToolResult)
				}
				return
			}
			if rec.ToolResult == nil {
				t.Fatal("expected ToolResult")
			}
			if rec.ToolResult.IsError() != tt.wantErr {
				t.Errorf("IsError = %v, want %v", rec.ToolResult.IsError(), tt.wantErr)
			}
			if rec.ToolResult.FilePath != tt.wantPath {
				t.Errorf("FilePath = %q, want %q", rec.ToolResult.FilePath, tt.wantPath)
			}
			if rec.ToolResult.ContentBytes != tt.wantBytes {
				t.Errorf("ContentBytes = %d, want %d", rec.ToolResult.ContentBytes, tt.wantBytes)
			}
		})
	}
}

func TestDecodeRecord_Malformed(t *testing.T) {
	for _, line := range []string{"", "   ", "not json", `{"type":`, `[1,2]`} {
		if _, err := DecodeRecord([]byte(line)); err == nil {
			t.Errorf("DecodeRecord(%q) expected error", line)
		}
	}
}

func TestDecodeRecord_CompactAndHooks(t *testing.T) {
	rec, err := DecodeRecord([]byte(`{"type":"system","subtype":"compact_boundary","timestamp":"2026-01-15T10:00:00Z","compactMetadata":{"trigger":"auto","preTokens":150000}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rec.IsCompactBoundary() {
		t.Error("expected compact boundary")
	}
	if rec.CompactPreTokens != 150000 {
		t.Errorf("CompactPreTokens = %d", rec.CompactPreTokens)
	}

	rec, err = DecodeRecord([]byte(`{"type":"system","subtype":"stop_hook_summary","hookCount":2,"preventedContinuation":true}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.HookCount != 2 || !rec.PreventedContinuation {
		t.Errorf("hooks = %d/%v", rec.HookCount, rec.PreventedContinuation)
	}
}

func TestDecodeRecord_MistypedFieldsKeepRecord(t *testing.T) {
	rec, err := DecodeRecord([]byte(`{"type":"assistant","timestamp":123,"costUSD":"0.5","hookCount":"2","thinkingMetadata":"high","message":{"role":"assistant","model":"claude-sonnet-4","usage":{"input_tokens":7,"output_tokens":3}}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.HasTimestamp() {
		t.Errorf("Timestamp = %v, want zero", rec.Timestamp)
	}
	if rec.HasCost || rec.CostUSD != 0 {
		t.Errorf("CostUSD = %v (has=%v), want unset", rec.CostUSD, rec.HasCost)
	}
	if rec.HookCount != 0 {
		t.Errorf("HookCount = %d, want 0", rec.HookCount)
	}
	if rec.Model != "claude-sonnet-4" {
		t.Errorf("Model = %q, want claude-sonnet-4", rec.Model)
	}
	if rec.Usage.InputTokens != 7 || rec.Usage.OutputTokens != 3 {
		t.Errorf("Usage = %+v, want 7/3", rec.Usage)
	}

	rec, err = DecodeRecord([]byte(`{"type":"assistant","timestamp":"2026-01-15T10:00:00Z","costUSD":null}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rec.HasTimestamp() || rec.HasCost {
		t.Errorf("timestamp=%v cost=%v, want timestamp and no cost", rec.Timestamp, rec.HasCost)
	}
}

func TestDecodeToolInput(t *testing.T) {
	in := decodeToolInput([]byte(`{"subagent_type":"Explore","resume":"agent-1","content":"abcd","file_path":"/p/plan.md"}`))
	if in.SubagentType != "Explore" {
		t.Errorf("SubagentType = %q", in.SubagentType)
	}
	if in.Resume != "agent-1" {
		t.Errorf("Resume = %q", in.Resume)
	}
	if in.ContentSize != 4 {
		t.Errorf("ContentSize = %d, want 4", in.ContentSize)
	}
	if in.FilePath != "/p/plan.md" {
		t.Errorf("FilePath = %q", in.FilePath)
	}

	if got := decodeToolInput([]byte(`{"resume":null}`)); got.Resume != "" {
		t.Errorf("null resume = %q, want empty", got.Resume)
	}
}

func TestResultText(t *testing.T) {
	b := ContentBlock{Content: []byte(`"plain"`)}
	if got := b.ResultText(); got != "plain" {
		t.Errorf("ResultText = %q", got)
	}
	b = ContentBlock{Content: []byte(`[{"type":"text","text":"a"},{"type":"text","text":"b"}]`)}
	if got := b.ResultText(); got != "a\nb" {
		t.Errorf("ResultText = %q", got)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2026-01-15T10:00:00Z", time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)},
		{"2026-01-15T10:00:00.500Z", time.Date(2026, 1, 15, 10, 0, 0, 500_000_000, time.UTC)},
		{"2026-01-15T10:00:00", time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)},
		{"", time.Time{}},
		{"yesterday", time.Time{}},
	}
	for _, tt := range tests {
		got := ParseTimestamp(tt.input)
		if !got.Equal(tt.want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
