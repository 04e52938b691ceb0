package claude

import (
	"strings"
	"testing"
	"time"
)

var (
	testNow    = time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	testCutoff = testNow.AddDate(0, 0, -30)
)

func reconstructLines(t *testing.T, sessionID string, lines ...string) *Reconstruction {
	t.Helper()
	rc, err := Reconstruct(strings.NewReader(strings.Join(lines, "\n")), sessionID, "/proj", ReconstructOptions{
		Cutoff: testCutoff,
		Now:    testNow,
	})
	if err != nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	return rc
}

func TestReconstruct_TokenTotals(t *testing.T) {
	rc := reconstructLines(t, "sess-1",
		`{"type":"assistant","uuid":"a1","timestamp":"2026-01-20T10:00:00Z","message":{"role":"assistant","model":"claude-sonnet-4","usage":{"input_tokens":100,"output_tokens":20}}}`,
		`{"type":"assistant","uuid":"a2","timestamp":"2026-01-20T10:05:00Z","message":{"role":"assistant","model":"claude-sonnet-4","usage":{"input_tokens":50,"output_tokens":10}}}`,
	)
	if rc == nil {
		t.Fatal("expected a session")
	}
	s := rc.Session
	if s.TotalInputTokens != 150 {
		t.Errorf("TotalInputTokens = %d, want 150", s.TotalInputTokens)
	}
	if s.TotalOutputTokens != 30 {
		t.Errorf("TotalOutputTokens = %d, want 30", s.TotalOutputTokens)
	}
	if s.MessageCount < 2 {
		t.Errorf("MessageCount = %d, want >= 2", s.MessageCount)
	}
	if s.AssistantMessageCount != 2 {
		t.Errorf("AssistantMessageCount = %d, want 2", s.AssistantMessageCount)
	}
	if s.DurationMs != 5*60*1000 {
		t.Errorf("DurationMs = %d, want 300000", s.DurationMs)
	}
}

func TestReconstruct_OutOfWindowExcluded(t *testing.T) {
	rc := reconstructLines(t, "sess-old",
		`{"type":"user","uuid":"u1","timestamp":"2025-11-01T10:00:00Z","message":{"role":"user","content":"hi"}}`,
		`{"type":"assistant","uuid":"a1","timestamp":"2025-11-01T10:01:00Z","message":{"role":"assistant","usage":{"input_tokens":500,"output_tokens":50}}}`,
	)
	if rc != nil {
		t.Fatalf("expected nil for out-of-window session, got %+v", rc.Session)
	}
}

func TestReconstruct_LeadingOutOfWindowRecordsDoNotCount(t *testing.T) {
	rc := reconstructLines(t, "sess-mixed",
		`{"type":"assistant","uuid":"a0","timestamp":"2025-11-01T10:00:00Z","message":{"role":"assistant","usage":{"input_tokens":1000,"output_tokens":1000}}}`,
		`{"type":"assistant","uuid":"a1","timestamp":"2026-01-25T10:00:00Z","message":{"role":"assistant","usage":{"input_tokens":10,"output_tokens":5}}}`,
	)
	if rc == nil {
		t.Fatal("expected a session")
	}
	if rc.Session.TotalInputTokens != 10 || rc.Session.TotalOutputTokens != 5 {
		t.Errorf("tokens = %d/%d, want 10/5", rc.Session.TotalInputTokens, rc.Session.TotalOutputTokens)
	}
	if rc.Session.MessageCount != 1 {
		t.Errorf("MessageCount = %d, want 1", rc.Session.MessageCount)
	}
	if !rc.Session.StartTime.Equal(time.Date(2026, 1, 25, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("StartTime = %v", rc.Session.StartTime)
	}
}

func TestReconstruct_SkipsSnapshotsAndCorruptLines(t *testing.T) {
	rc := reconstructLines(t, "sess-2",
		`{"type":"file-history-snapshot","timestamp":"2026-01-20T09:59:00Z","snapshot":{}}`,
		`this is not json`,
		`{"type":"user","uuid":"u1","timestamp":"2026-01-20T10:00:00Z","message":{"role":"user","content":"hello"}}`,
		`{"type":"assistant",`,
	)
	if rc == nil {
		t.Fatal("expected a session")
	}
	if rc.Session.MessageCount != 1 {
		t.Errorf("MessageCount = %d, want 1", rc.Session.MessageCount)
	}
	if rc.Messages[0].Content != "hello" {
		t.Errorf("Content = %q", rc.Messages[0].Content)
	}
}

func TestReconstruct_RecordWithoutTimestamp(t *testing.T) {
	rc := reconstructLines(t, "sess-3",
		`{"type":"assistant","message":{"role":"assistant","model":"claude-opus-4","usage":{"input_tokens":7}}}`,
	)
	if rc != nil {
		t.Fatal("a session made only of unstamped records is not in the window")
	}

	rc = reconstructLines(t, "sess-3",
		`{"type":"user","uuid":"u1","timestamp":"2026-01-20T10:00:00Z","message":{"role":"user","content":"go"}}`,
		`{"type":"assistant","message":{"role":"assistant","model":"claude-opus-4","usage":{"input_tokens":7},"content":[{"type":"tool_use","id":"t1","name":"Bash"}]}}`,
	)
	if rc == nil {
		t.Fatal("expected a session")
	}
	if rc.Session.TotalInputTokens != 7 {
		t.Errorf("TotalInputTokens = %d, want 7", rc.Session.TotalInputTokens)
	}
	if rc.Session.MessageCount != 1 {
		t.Errorf("MessageCount = %d, want 1 (unstamped record makes no message)", rc.Session.MessageCount)
	}
	if len(rc.ToolCalls) != 1 || !rc.ToolCalls[0].Timestamp.Equal(testNow) {
		t.Errorf("unstamped tool call should use Now, got %+v", rc.ToolCalls)
	}
}

func TestReconstruct_ToolCallOptimisticDefault(t *testing.T) {
	rc := reconstructLines(t, "sess-4",
		`{"type":"assistant","uuid":"a1","timestamp":"2026-01-20T10:00:00Z","message":{"role":"assistant","content":[{"type":"tool_use","id":"t1","name":"Bash","input":{"command":"ls"}}]}}`,
	)
	if rc == nil || len(rc.ToolCalls) != 1 {
		t.Fatalf("expected one tool call, got %+v", rc)
	}
	tc := rc.ToolCalls[0]
	if !tc.Success {
		t.Error("unresolved call must keep Success = true")
	}
	if tc.DurationMs != nil {
		t.Errorf("DurationMs = %v, want nil", *tc.DurationMs)
	}
	if tc.Resolved {
		t.Error("Resolved = true, want false")
	}
}

func TestReconstruct_PairsResultByToolUseID(t *testing.T) {
	rc := reconstructLines(t, "sess-5",
		`{"type":"assistant","uuid":"a1","timestamp":"2026-01-20T10:00:00Z","message":{"role":"assistant","content":[{"type":"tool_use","id":"t1","name":"Read","input":{"file_path":"/a.go"}},{"type":"tool_use","id":"t2","name":"Edit","input":{"file_path":"/b.go"}}]}}`,
		`{"type":"user","uuid":"u1","timestamp":"2026-01-20T10:00:01Z","message":{"role":"user","content":[{"type":"tool_result","tool_use_id":"t1","content":"Error: EACCES: permission denied","is_error":true}]},"toolUseResult":{"durationMs":40,"status":"error"}}`,
	)
	if rc == nil {
		t.Fatal("expected a session")
	}
	read, edit := rc.ToolCalls[0], rc.ToolCalls[1]
	if read.Success || !read.IsError {
		t.Errorf("Read: Success=%v IsError=%v, want false/true", read.Success, read.IsError)
	}
	if read.DurationMs == nil || *read.DurationMs != 40 {
		t.Errorf("Read DurationMs = %v, want 40", read.DurationMs)
	}
	if read.ErrorType != "EACCES" {
		t.Errorf("ErrorType = %q, want EACCES", read.ErrorType)
	}
	if !edit.Success || edit.Resolved {
		t.Errorf("Edit should stay unresolved, got %+v", edit)
	}
	if read.FilePath != "/a.go" {
		t.Errorf("FilePath = %q", read.FilePath)
	}
}

func TestReconstruct_PositionalPairingWithinRecord(t *testing.T) {
	rc := reconstructLines(t, "sess-6",
		`{"type":"assistant","uuid":"a1","timestamp":"2026-01-20T10:00:00Z","message":{"role":"assistant","content":[{"type":"tool_use","name":"Bash"},{"type":"tool_use","name":"Write"}]},"toolUseResult":{"durationMs":5,"interrupted":true,"filePath":"/out.txt"}}`,
	)
	if rc == nil || len(rc.ToolCalls) != 2 {
		t.Fatalf("expected two calls, got %+v", rc)
	}
	first, last := rc.ToolCalls[0], rc.ToolCalls[1]
	if !first.Success || first.DurationMs != nil {
		t.Errorf("first call should keep its default, got %+v", first)
	}
	if last.Success || !last.Interrupted || last.FilePath != "/out.txt" {
		t.Errorf("last call = %+v, want interrupted write on /out.txt", last)
	}
	if rc.Session.AmbiguousResults != 1 {
		t.Errorf("AmbiguousResults = %d, want 1", rc.Session.AmbiguousResults)
	}
	if rc.Messages[0].ToolCallCount != 2 {
		t.Errorf("ToolCallCount = %d, want 2", rc.Messages[0].ToolCallCount)
	}
}

func TestReconstruct_ThinkingAndModels(t *testing.T) {
	rc := reconstructLines(t, "agent-7",
		`{"type":"assistant","uuid":"a1","timestamp":"2026-01-20T10:00:00Z","message":{"role":"assistant","model":"claude-sonnet-4","content":[{"type":"thinking","thinking":"first"},{"type":"thinking","thinking":"second!"}]}}`,
		`{"type":"assistant","uuid":"a2","timestamp":"2026-01-20T10:01:00Z","message":{"role":"assistant","model":"claude-haiku-3"}}`,
		`{"type":"assistant","uuid":"a3","timestamp":"2026-01-20T10:02:00Z","message":{"role":"assistant","model":"claude-opus-4"}}`,
	)
	if rc == nil {
		t.Fatal("expected a session")
	}
	m := rc.Messages[0]
	if !m.HasThinking || m.ThinkingLength != len("second!") {
		t.Errorf("thinking = %v/%d, want true/7", m.HasThinking, m.ThinkingLength)
	}
	if rc.Session.Model != "claude-sonnet-4" {
		t.Errorf("Model = %q, want lexicographically last claude-sonnet-4", rc.Session.Model)
	}
	if len(rc.Session.ModelsUsed) != 3 || rc.Session.ModelsUsed[0] != "claude-haiku-3" {
		t.Errorf("ModelsUsed = %v", rc.Session.ModelsUsed)
	}
	if !rc.Session.IsAgent {
		t.Error("expected IsAgent for agent- prefix")
	}
}

func TestReconstruct_CostSourcesAndEstimate(t *testing.T) {
	lines := strings.Join([]string{
		`{"type":"assistant","uuid":"a1","timestamp":"2026-01-20T10:00:00Z","costUSD":0.1,"message":{"role":"assistant","model":"m"}}`,
		`{"type":"assistant","uuid":"a2","timestamp":"2026-01-20T10:00:01Z","costUSD":0.2,"message":{"role":"assistant","model":"m"}}`,
		`{"type":"assistant","uuid":"a3","timestamp":"2026-01-20T10:00:02Z","message":{"role":"assistant","model":"m","usage":{"output_tokens":1000}}}`,
	}, "\n")

	rc, err := Reconstruct(strings.NewReader(lines), "s", "/p", ReconstructOptions{Cutoff: testCutoff, Now: testNow})
	if err != nil || rc == nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if rc.Session.CostUSD != 0.3 {
		t.Errorf("CostUSD = %v, want exactly 0.3", rc.Session.CostUSD)
	}

	estimate := func(model string, u Usage) float64 { return float64(u.OutputTokens) / 1000 }
	rc, err = Reconstruct(strings.NewReader(lines), "s", "/p", ReconstructOptions{Cutoff: testCutoff, Now: testNow, EstimateCost: estimate})
	if err != nil || rc == nil {
		t.Fatalf("Reconstruct: %v", err)
	}
	if rc.Session.CostUSD != 1.3 {
		t.Errorf("CostUSD = %v, want 1.3", rc.Session.CostUSD)
	}
}

func TestReconstruct_BranchesCompactionAndHooks(t *testing.T) {
	rc := reconstructLines(t, "sess-8",
		`{"type":"user","uuid":"u1","timestamp":"2026-01-20T10:00:00Z","gitBranch":"feature/x","message":{"role":"user","content":"a"}}`,
		`{"type":"user","uuid":"u2","timestamp":"2026-01-20T10:01:00Z","gitBranch":"main","message":{"role":"user","content":"b"}}`,
		`{"type":"user","uuid":"u3","timestamp":"2026-01-20T10:02:00Z","gitBranch":"feature/x","message":{"role":"user","content":"c"}}`,
		`{"type":"system","subtype":"compact_boundary","uuid":"c1","timestamp":"2026-01-20T10:03:00Z","compactMetadata":{"trigger":"auto","preTokens":1200}}`,
		`{"type":"system","subtype":"stop_hook_summary","uuid":"h1","timestamp":"2026-01-20T10:04:00Z","hookCount":3,"preventedContinuation":true}`,
	)
	if rc == nil {
		t.Fatal("expected a session")
	}
	s := rc.Session
	if s.GitBranch != "feature/x" || len(s.GitBranches) != 2 {
		t.Errorf("branches = %q %v", s.GitBranch, s.GitBranches)
	}
	if s.CompactionCount != 1 || s.CompactedTokens != 1200 {
		t.Errorf("compaction = %d/%d", s.CompactionCount, s.CompactedTokens)
	}
	if s.HookCount != 3 || s.HookPreventedCount != 1 {
		t.Errorf("hooks = %d/%d", s.HookCount, s.HookPreventedCount)
	}
}

func TestClassifyToolError(t *testing.T) {
	tests := map[string]string{
		"bash: /etc/x: Permission denied": "permission_denied",
		"EPERM: operation not permitted":  "EPERM",
		"Access denied for user":          "access_denied",
		"File does not exist.":            "not_found",
		"Command timed out after 2m":      "timeout",
		"exit status 1":                   "tool_error",
	}
	for in, want := range tests {
		if got := ClassifyToolError(in); got != want {
			t.Errorf("ClassifyToolError(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReconstructSession_File(t *testing.T) {
	dir := t.TempDir()
	path := writeJSONL(t, dir, "abc-123.jsonl",
		`{"type":"user","uuid":"u1","timestamp":"2026-01-20T10:00:00Z","message":{"role":"user","content":"hi"}}`+"\n")

	rc, err := ReconstructSession(path, "/proj", ReconstructOptions{Cutoff: testCutoff, Now: testNow})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rc.Session.ID != "abc-123" {
		t.Errorf("ID = %q, want abc-123", rc.Session.ID)
	}
	if rc.Session.SourcePath != path {
		t.Errorf("SourcePath = %q", rc.Session.SourcePath)
	}

	if _, err := ReconstructSession(dir+"/missing.jsonl", "/proj", ReconstructOptions{}); err == nil {
		t.Error("expected error for missing file")
	}
}
