package claude

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// CostFunc estimates the cost of one record from its model and usage.
type CostFunc func(model string, usage Usage) float64

// ReconstructOptions controls how a session file is reconstructed.
type ReconstructOptions struct {
	// Cutoff is the start of the window; records stamped before it are
	// skipped.
	Cutoff time.Time

	// Now stamps tool calls whose record carries no timestamp.
	Now time.Time

	// EstimateCost prices records that carry no costUSD. Nil leaves them at
	// zero.
	EstimateCost CostFunc
}

// Reconstruction is the result of replaying one session file.
type Reconstruction struct {
	Session   *Session
	Messages  []Message
	ToolCalls []ToolCall
}

// ReconstructSession replays the session file at path. It returns nil (and
// no error) when the file has no in-window messages.
func ReconstructSession(path, projectPath string, opts ReconstructOptions) (*Reconstruction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	id := SessionIDFromPath(path)
	rc, err := Reconstruct(f, id, projectPath, opts)
	if err != nil {
		return nil, fmt.Errorf("reconstructing %s: %w", filepath.Base(path), err)
	}
	if rc != nil {
		rc.Session.SourcePath = path
	}
	return rc, nil
}

// Reconstruct replays a record stream for one session. Records are taken in
// stream order; undecodable lines are skipped.
func Reconstruct(r io.Reader, sessionID, projectPath string, opts ReconstructOptions) (*Reconstruction, error) {
	b := newSessionBuilder(sessionID, projectPath, opts)
	if err := EachRecord(r, b.add); err != nil {
		return nil, err
	}
	return b.finish(), nil
}

// EachRecord decodes r line by line and calls fn for every decodable record.
// Lines are not length limited.
func EachRecord(r io.Reader, fn func(*Record)) error {
	br := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := br.ReadBytes('\n')
		if len(line) > 0 {
			if rec, derr := DecodeRecord(line); derr == nil {
				fn(rec)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

// SessionIDFromPath derives the session ID from a transcript file name.
func SessionIDFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), ".jsonl")
}

// IsAgentSession reports whether a session ID names a sub-agent transcript.
func IsAgentSession(sessionID string) bool {
	return strings.HasPrefix(sessionID, "agent-")
}

type sessionBuilder struct {
	opts        ReconstructOptions
	session     Session
	messages    []Message
	calls       []ToolCall
	pending     map[string]int
	models      map[string]bool
	branches    map[string]bool
	cost        decimal.Decimal
	inWindow    bool
	first, last time.Time
}

func newSessionBuilder(sessionID, projectPath string, opts ReconstructOptions) *sessionBuilder {
	return &sessionBuilder{
		opts: opts,
		session: Session{
			ID:          sessionID,
			ProjectPath: projectPath,
			IsAgent:     IsAgentSession(sessionID),
		},
		pending:  make(map[string]int),
		models:   make(map[string]bool),
		branches: make(map[string]bool),
		cost:     decimal.Zero,
	}
}

func (b *sessionBuilder) add(rec *Record) {
	if rec.Type == TypeFileHistorySnapshot {
		return
	}

	ts := rec.Timestamp
	if rec.HasTimestamp() {
		if ts.Before(b.opts.Cutoff) {
			return
		}
		b.inWindow = true
		if b.first.IsZero() {
			b.first = ts
		}
		b.last = ts
	}

	s := &b.session
	switch rec.Type {
	case TypeUser:
		s.UserMessageCount++
	case TypeAssistant:
		s.AssistantMessageCount++
	}

	if rec.Model != "" {
		b.models[rec.Model] = true
	}
	if rec.GitBranch != "" && !b.branches[rec.GitBranch] {
		b.branches[rec.GitBranch] = true
		s.GitBranches = append(s.GitBranches, rec.GitBranch)
	}

	s.TotalInputTokens += rec.Usage.InputTokens
	s.TotalOutputTokens += rec.Usage.OutputTokens
	s.TotalCacheReadTokens += rec.Usage.CacheReadInputTokens

	cost := rec.CostUSD
	if !rec.HasCost && b.opts.EstimateCost != nil && rec.Model != "" {
		cost = b.opts.EstimateCost(rec.Model, rec.Usage)
	}
	b.cost = b.cost.Add(decimal.NewFromFloat(cost))

	if rec.IsCompactBoundary() {
		s.CompactionCount++
		s.CompactedTokens += rec.CompactPreTokens
	}
	if rec.Type == TypeSystem && rec.HookCount > 0 {
		s.HookCount += rec.HookCount
		if rec.PreventedContinuation {
			s.HookPreventedCount++
		}
	}

	var (
		hasThinking    bool
		thinkingLength int
		created        []int
		toolNames      []string
	)
	for _, block := range rec.Blocks {
		switch block.Type {
		case "thinking":
			hasThinking = true
			thinkingLength = utf8.RuneCountInString(block.Thinking)
		case "tool_use":
			created = append(created, b.newToolCall(rec, block))
			toolNames = append(toolNames, b.calls[len(b.calls)-1].Name)
		}
	}

	b.applyResults(rec, created)

	if !rec.HasTimestamp() {
		return
	}
	b.messages = append(b.messages, Message{
		UUID:              rec.UUID,
		ParentUUID:        rec.ParentUUID,
		SessionID:         s.ID,
		Timestamp:         ts,
		Type:              typeOrUnknown(rec.Type),
		Role:              rec.Role,
		Model:             rec.Model,
		InputTokens:       rec.Usage.InputTokens,
		OutputTokens:      rec.Usage.OutputTokens,
		CacheReadTokens:   rec.Usage.CacheReadInputTokens,
		CostUSD:           cost,
		HasThinking:       hasThinking,
		ThinkingLength:    thinkingLength,
		ToolCallCount:     len(created),
		Content:           rec.Text,
		ToolNames:         toolNames,
		IsSidechain:       rec.IsSidechain,
		IsAPIError:        rec.IsAPIError,
		ThinkingLevel:     rec.ThinkingLevel,
		ThinkingDisabled:  rec.ThinkingDisabled,
		GitBranch:         rec.GitBranch,
		CWD:               rec.CWD,
		IsCompactBoundary: rec.IsCompactBoundary(),
		CompactPreTokens:  rec.CompactPreTokens,
	})
}

func (b *sessionBuilder) newToolCall(rec *Record, block ContentBlock) int {
	name := block.Name
	if name == "" {
		name = "unknown"
	}
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = b.opts.Now
	}
	depth := 1
	if b.session.IsAgent || rec.IsSidechain {
		depth = 2
	}
	input := decodeToolInput(block.Input)
	b.calls = append(b.calls, ToolCall{
		ID:           block.ID,
		Name:         name,
		Timestamp:    ts,
		SessionID:    b.session.ID,
		MessageUUID:  rec.UUID,
		Success:      true,
		FilePath:     input.FilePath,
		Input:        input,
		NestingDepth: depth,
	})
	idx := len(b.calls) - 1
	if block.ID != "" {
		b.pending[block.ID] = idx
	}
	return idx
}

// applyResults pairs the record's result payload with earlier calls. A
// tool_result block naming a pending call ID wins; otherwise the payload goes
// to the last call created by this same record.
func (b *sessionBuilder) applyResults(rec *Record, created []int) {
	matched := false
	for _, block := range rec.ToolResults() {
		idx, ok := b.pending[block.ToolUseID]
		if !ok {
			continue
		}
		delete(b.pending, block.ToolUseID)
		res := rec.ToolResult
		if matched {
			// One toolUseResult object per record; later blocks only
			// contribute their own error flag.
			res = nil
		}
		applyResult(&b.calls[idx], res, &block)
		matched = true
	}
	if matched || rec.ToolResult == nil || len(created) == 0 {
		return
	}

	unresolved := 0
	for _, idx := range created {
		if !b.calls[idx].Resolved {
			unresolved++
		}
	}
	if unresolved > 1 {
		b.session.AmbiguousResults++
	}
	last := created[len(created)-1]
	if id := b.calls[last].ID; id != "" {
		delete(b.pending, id)
	}
	applyResult(&b.calls[last], rec.ToolResult, nil)
}

func applyResult(tc *ToolCall, res *ToolResult, block *ContentBlock) {
	tc.Resolved = true
	var errText string
	if res != nil {
		tc.DurationMs = res.DurationMs
		tc.TotalDurationMs = res.TotalDurationMs
		tc.IsError = res.IsError()
		tc.Interrupted = res.Interrupted
		if res.FilePath != "" {
			tc.FilePath = res.FilePath
		}
		tc.Truncated = res.Truncated
		tc.AgentTotalTokens = res.TotalTokens
		tc.AgentToolUseCount = res.TotalToolUseCount
		tc.ResultBytes = res.ContentBytes
		errText = res.Stderr
	}
	if block != nil && block.IsError {
		tc.IsError = true
		errText = block.ResultText() + "\n" + errText
	}
	tc.Success = !tc.IsError && !tc.Interrupted
	if tc.IsError {
		tc.ErrorType = ClassifyToolError(errText)
	}
}

// ClassifyToolError maps tool error output onto a coarse error type.
func ClassifyToolError(text string) string {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(text, "EACCES"):
		return "EACCES"
	case strings.Contains(text, "EPERM"):
		return "EPERM"
	case strings.Contains(lower, "permission denied"):
		return "permission_denied"
	case strings.Contains(lower, "access denied"):
		return "access_denied"
	case strings.Contains(lower, "no such file") || strings.Contains(lower, "does not exist"):
		return "not_found"
	case strings.Contains(lower, "timed out") || strings.Contains(lower, "timeout"):
		return "timeout"
	}
	return "tool_error"
}

func (b *sessionBuilder) finish() *Reconstruction {
	if !b.inWindow || len(b.messages) == 0 {
		return nil
	}

	s := b.session
	s.StartTime = b.first
	s.EndTime = b.last
	s.DurationMs = b.last.Sub(b.first).Milliseconds()
	s.MessageCount = len(b.messages)
	s.ToolCallCount = len(b.calls)
	s.CostUSD = b.cost.InexactFloat64()

	s.ModelsUsed = make([]string, 0, len(b.models))
	for m := range b.models {
		s.ModelsUsed = append(s.ModelsUsed, m)
	}
	sort.Strings(s.ModelsUsed)
	if n := len(s.ModelsUsed); n > 0 {
		s.Model = s.ModelsUsed[n-1]
	}
	if len(s.GitBranches) > 0 {
		s.GitBranch = s.GitBranches[0]
	}

	return &Reconstruction{
		Session:   &s,
		Messages:  b.messages,
		ToolCalls: b.calls,
	}
}

func typeOrUnknown(t string) string {
	if t == "" {
		return "unknown"
	}
	return t
}
