package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/claudemetrics/internal/claude"
	"github.com/blackwell-systems/claudemetrics/internal/extract"
)

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func ms(n int64) *int64 { return &n }

// sampleWindow holds two sessions: a Friday morning session on main in
// project alpha, and a Saturday evening session on a feature branch in
// project beta that spawns two agents.
func sampleWindow() *extract.Window {
	w := extract.NewWindow(testNow, 30)

	w.Sessions = []claude.Session{
		{
			ID: "s1", ProjectPath: "/home/u/alpha",
			StartTime: at("2026-01-30T09:00:00Z"), EndTime: at("2026-01-30T10:00:00Z"), DurationMs: 3_600_000,
			MessageCount: 4, UserMessageCount: 2, AssistantMessageCount: 2,
			CostUSD: 1.0, ModelsUsed: []string{"claude-sonnet-4"}, Model: "claude-sonnet-4",
			TotalInputTokens: 1000, TotalOutputTokens: 100,
			GitBranch: "main", HookCount: 4, HookPreventedCount: 1,
		},
		{
			ID: "s2", ProjectPath: "/home/u/beta",
			StartTime: at("2026-01-31T20:00:00Z"), EndTime: at("2026-01-31T20:30:00Z"), DurationMs: 1_800_000,
			MessageCount: 2, UserMessageCount: 1, AssistantMessageCount: 1,
			CostUSD: 0.5, ModelsUsed: []string{"claude-opus-4", "claude-sonnet-4"}, Model: "claude-sonnet-4",
			TotalInputTokens: 500, TotalOutputTokens: 50,
			GitBranch: "feat/x",
		},
	}

	w.Messages = []claude.Message{
		{UUID: "m1", SessionID: "s1", Timestamp: at("2026-01-30T09:00:00Z"), Type: "user", Role: "user", Content: "Please fix this bug?"},
		{UUID: "m2", SessionID: "s1", Timestamp: at("2026-01-30T09:01:00Z"), Type: "assistant", Role: "assistant", Model: "claude-sonnet-4",
			InputTokens: 1000, OutputTokens: 100, HasThinking: true, ThinkingLength: 400},
		{UUID: "m3", SessionID: "s1", Timestamp: at("2026-01-30T09:30:00Z"), Type: "user", Role: "user", Content: "thanks, great"},
		{UUID: "m4", SessionID: "s1", Timestamp: at("2026-01-30T09:31:00Z"), Type: "assistant", Role: "assistant", Model: "claude-sonnet-4"},
		{UUID: "m5", SessionID: "s2", Timestamp: at("2026-01-31T20:00:00Z"), Type: "user", Role: "user", Content: "add a feature"},
		{UUID: "m6", SessionID: "s2", Timestamp: at("2026-01-31T20:01:00Z"), Type: "assistant", Role: "assistant", Model: "claude-opus-4",
			InputTokens: 500, OutputTokens: 50, HasThinking: true, ThinkingLength: 800, IsAPIError: true},
	}

	w.ToolCalls = []claude.ToolCall{
		{ID: "t1", Name: "Read", SessionID: "s1", Timestamp: at("2026-01-30T09:01:00Z"), FilePath: "/home/u/alpha/main.go", Success: true, DurationMs: ms(100), NestingDepth: 1},
		{ID: "t2", Name: "Edit", SessionID: "s1", Timestamp: at("2026-01-30T09:02:00Z"), FilePath: "/home/u/alpha/main.go", IsError: true, DurationMs: ms(50), NestingDepth: 1},
		{ID: "t3", Name: "Edit", SessionID: "s1", Timestamp: at("2026-01-30T09:03:00Z"), FilePath: "/home/u/alpha/main.go", Success: true, DurationMs: ms(50), NestingDepth: 1},
		{ID: "t4", Name: "Write", SessionID: "s1", Timestamp: at("2026-01-30T09:04:00Z"), FilePath: "/home/u/alpha/docs/README.md", Success: true, NestingDepth: 1},
		{ID: "t5", Name: "Task", SessionID: "s2", MessageUUID: "m6", Timestamp: at("2026-01-31T20:01:00Z"), Success: true, NestingDepth: 1,
			Input: claude.ToolInput{SubagentType: "Explore"}, AgentTotalTokens: 300, AgentToolUseCount: 3},
		{ID: "t6", Name: "Task", SessionID: "s2", MessageUUID: "m6", Timestamp: at("2026-01-31T20:02:00Z"), Success: true, NestingDepth: 1,
			AgentTotalTokens: 100, AgentToolUseCount: 1},
	}

	w.ToolCounts = map[string]int{"Read": 1, "Edit": 2, "Write": 1, "Task": 2}
	w.FilesRead = map[string]int{"/home/u/alpha/main.go": 1}
	w.FilesEdited = map[string]int{"/home/u/alpha/main.go": 2}
	w.FilesWritten = map[string]int{"/home/u/alpha/docs/README.md": 1}
	w.HourlyDistribution[9] = 1
	w.HourlyDistribution[20] = 1

	w.ModelUsage = map[string]extract.ModelUsage{
		"claude-sonnet-4": {Model: "claude-sonnet-4", MessageCount: 2, CostUSD: 1.0},
		"claude-opus-4":   {Model: "claude-opus-4", MessageCount: 1, CostUSD: 0.5},
	}
	w.TotalTokens = extract.TokenTotals{Input: 1500, Output: 150, CacheRead: 300}
	w.TotalSessions = 2
	w.TotalMessages = 6
	w.TotalToolCalls = 6
	w.TotalCostUSD = 1.5
	w.ActiveDates = []string{"2026-01-30", "2026-01-31"}

	w.Todos = map[string][]claude.TodoTask{
		"s1": {
			{ID: "1", Status: "completed", Priority: "high"},
			{ID: "2", Status: "in_progress"},
			{ID: "3", Status: "pending"},
		},
	}
	w.FileHistory = map[string]claude.FileHistorySession{
		"s1": {SessionID: "s1", TotalEdits: 3, Versions: map[string]int{"h1": 2, "h2": 1}},
	}
	return w
}

func calculated(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine(MustCatalog(), sampleWindow(), WithClock(fixedClock))
	_, err := e.CalculateAll()
	require.NoError(t, err)
	require.Empty(t, e.Errors())
	return e
}

func checkValues(t *testing.T, e *Engine, want map[string]any) {
	t.Helper()
	for id, v := range want {
		got, ok := e.Value(id)
		if assert.True(t, ok, id) {
			assert.Equal(t, v, got.Value, id)
		}
	}
}

func TestCalculators_TimeAndActivity(t *testing.T) {
	e := calculated(t)
	checkValues(t, e, map[string]any{
		"D001": 0.0,
		"D002": 1.5,
		"D003": 1.5,
		"D004": 1.2,
		"D006": 1.0,
		"D011": 9,
		"D012": "Friday",
		"D013": 0.5,
		"D015": 0.5,
		"D017": 1.0,
		"D021": 2,
		"D022": 0,
		"D024": 2,
		"D027": 34.0,
	})

	v, _ := e.Value("D001")
	assert.Equal(t, 1, v.WindowDays)
	v, _ = e.Value("D002")
	assert.Equal(t, 7, v.WindowDays)
}

func TestCalculators_ToolUsage(t *testing.T) {
	e := calculated(t)
	checkValues(t, e, map[string]any{
		"D030": "Edit",
		"D031": 1.9183,
		"D033": 3.0,
	})

	v, _ := e.Value("D029")
	assert.Equal(t, map[string]float64{"Read": 0.1667, "Edit": 0.3333, "Write": 0.1667, "Task": 0.3333}, v.Value)
}

func TestCalculators_FileOperations(t *testing.T) {
	e := calculated(t)
	checkValues(t, e, map[string]any{
		"D049": 1,
		"D050": 1,
		"D053": "main.go",
		"D054": "main.go",
		"D055": 0.33,
		"D058": map[string]int{".go": 1, ".md": 1},
		"D061": 0.5,
		"D063": 0.0,
		"D064": 0.0,
		"D065": 3,
		"D066": 3.0,
		"D067": 2,
		"D070": map[string]any{"5": 1, "6": 1},
		"D072": map[string]any{},
		"D073": 0.5,
	})
}

func TestCalculators_AvgFileSizeRead(t *testing.T) {
	w := sampleWindow()
	w.ToolCalls = append(w.ToolCalls,
		claude.ToolCall{ID: "t7", Name: "Read", SessionID: "s1", FilePath: "/home/u/alpha/a.go", Success: true, ResultBytes: 100},
		claude.ToolCall{ID: "t8", Name: "Read", SessionID: "s1", FilePath: "/home/u/alpha/b.go", Success: true, ResultBytes: 301},
		claude.ToolCall{ID: "t9", Name: "Bash", SessionID: "s1", Success: true, ResultBytes: 5000},
	)
	e := NewEngine(MustCatalog(), w, WithClock(fixedClock))
	v, ok := e.CalculateMetric("D064")
	require.True(t, ok)
	assert.Equal(t, 200.5, v.Value)
}

func TestCalculators_ModelsTokensCost(t *testing.T) {
	e := calculated(t)
	checkValues(t, e, map[string]any{
		"D075": 0.3333,
		"D076": 0.6667,
		"D078": 0.5,
		"D079": "claude-sonnet-4",
		"D083": 10.0,
		"D084": int64(1500),
		"D089": 0.2,
		"D090": 20.0,
		"D092": int64(1200),
		"D093": 0.0008,
		"D094": 1.5,
		"D098": 0.75,
		"D105": int64(1100),
		"D107": 2,
		"D108": 0.3333,
		"D109": 600.0,
	})

	v, _ := e.Value("D101")
	assert.Equal(t, map[string]any{"claude-sonnet-4": 0.6667, "claude-opus-4": 0.3333}, v.Value)
}

func TestCalculators_Conversation(t *testing.T) {
	e := calculated(t)
	checkValues(t, e, map[string]any{
		"D110": 4,
		"D111": 1,
		"D112": 0.3333,
		"D113": 1,
		"D116": 0,
		"D117": 1,
		"D118": 0.0,
		"D119": 1,
		"D120": 1,
		"D128": 1.0,
		"D131": 600.0,
		"D132": 800,
		"D133": 2.0,
		"D136": 0.0,
	})

	v, _ := e.Value("D126")
	dist := v.Value.(map[string]any)
	assert.Equal(t, 1, dist["bug"])
	assert.Equal(t, 1, dist["feature"])
	assert.Equal(t, 0, dist["review"])

	v, _ = e.Value("D135")
	assert.Equal(t, map[string]any{"standard": 2}, v.Value)
}

func TestCalculators_TodosAndAgents(t *testing.T) {
	e := calculated(t)
	checkValues(t, e, map[string]any{
		"D143": 3,
		"D144": 1,
		"D145": 0.3333,
		"D146": 1,
		"D147": 1,
		"D148": 0.5,
		"D149": 3.0,
		"D150": 3,
		"D151": 0.3333,
		"D159": 2,
		"D160": 1.0,
		"D161": 50.0,
		"D162": map[string]int{"Explore": 1, "unknown": 1},
		"D163": "Explore",
		"D166": 1,
		"D167": 200.0,
		"D171": 1,
		"D172": 1,
	})
}

func TestCalculators_ProjectsAndErrors(t *testing.T) {
	e := calculated(t)
	checkValues(t, e, map[string]any{
		"D173": 2,
		"D175": "alpha",
		"D179": 2,
		"D180": 1,
		"D181": 1,
		"D182": 0.5,
		"D188": 0.03,
		"D189": 0.1667,
		"D191": 0.5,
		"D194": 0.1667,
		"D195": 1.0,
		"D196": 1.0,
		"D198": 0,
		"D199": 60.0,
		"D203": 0.25,
	})
}
