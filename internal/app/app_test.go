package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackwell-systems/claudemetrics/internal/claude"
	"github.com/blackwell-systems/claudemetrics/internal/config"
	"github.com/blackwell-systems/claudemetrics/internal/extract"
)

func TestNormalizeCategories(t *testing.T) {
	got, err := normalizeCategories([]string{"a", " D ", "J"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "D", "J"}, got)

	got, err = normalizeCategories(nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = normalizeCategories([]string{"K"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown category "K"`)
}

func TestWindowDays(t *testing.T) {
	cfg := &config.Config{WindowDays: 30}
	assert.Equal(t, 30, windowDays(cfg, 0))
	assert.Equal(t, 7, windowDays(cfg, 7))
}

func TestSortMapByValue(t *testing.T) {
	got := sortMapByValue(map[string]int{"Read": 2, "Edit": 5, "Bash": 2})
	require.Len(t, got, 3)
	assert.Equal(t, kv{"Edit", 5}, got[0])
	assert.Equal(t, kv{"Bash", 2}, got[1])
	assert.Equal(t, kv{"Read", 2}, got[2])
}

func testWindow() *extract.Window {
	now := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	w := extract.NewWindow(now, 30)
	w.Sessions = []claude.Session{
		{ID: "aaa111", ProjectPath: "/work/api", StartTime: now.Add(-3 * time.Hour), CostUSD: 2, DurationMs: 60000, MessageCount: 9, ToolCallCount: 1},
		{ID: "bbb222", ProjectPath: "/work/web", StartTime: now.Add(-time.Hour), CostUSD: 1, DurationMs: 120000, MessageCount: 3, ToolCallCount: 4},
		{ID: "aaa333", ProjectPath: "/work/API-gateway", StartTime: now.Add(-2 * time.Hour), CostUSD: 3, DurationMs: 30000, MessageCount: 5, ToolCallCount: 2},
	}
	w.ToolCalls = []claude.ToolCall{
		{SessionID: "bbb222", Name: "Bash", IsError: true},
		{SessionID: "bbb222", Name: "Bash", IsError: true},
		{SessionID: "aaa333", Name: "Read", IsError: true},
		{SessionID: "aaa111", Name: "Read"},
	}
	return w
}

func ids(rows []sessionRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Session.ID
	}
	return out
}

func TestSessionRows_CountsErrors(t *testing.T) {
	rows := sessionRows(testWindow())
	require.Len(t, rows, 3)
	assert.Equal(t, 0, rows[0].ToolErrors)
	assert.Equal(t, 2, rows[1].ToolErrors)
	assert.Equal(t, 1, rows[2].ToolErrors)
	assert.Equal(t, "api", rows[0].projectName())
	assert.Equal(t, "unknown", sessionRow{}.projectName())
}

func TestSortSessions(t *testing.T) {
	tests := []struct {
		key  string
		want []string
	}{
		{"recent", []string{"bbb222", "aaa333", "aaa111"}},
		{"cost", []string{"aaa333", "aaa111", "bbb222"}},
		{"duration", []string{"bbb222", "aaa111", "aaa333"}},
		{"messages", []string{"aaa111", "aaa333", "bbb222"}},
		{"tools", []string{"bbb222", "aaa333", "aaa111"}},
		{"errors", []string{"bbb222", "aaa333", "aaa111"}},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			rows := sessionRows(testWindow())
			require.NoError(t, sortSessions(rows, tt.key))
			assert.Equal(t, tt.want, ids(rows))
		})
	}

	assert.Error(t, sortSessions(sessionRows(testWindow()), "friction"))
}

func TestFilterSessions(t *testing.T) {
	rows := sessionRows(testWindow())
	assert.Equal(t, []string{"aaa111", "aaa333"}, ids(filterSessions(rows, "api")))
	assert.Len(t, filterSessions(rows, ""), 3)
	assert.Empty(t, filterSessions(rows, "mobile"))
}

func TestShortID(t *testing.T) {
	assert.Equal(t, "12345678", shortID("1234567890"))
	assert.Equal(t, "abc", shortID("abc"))
}

func TestCollectSourceChecks(t *testing.T) {
	home := t.TempDir()
	project := filepath.Join(home, "projects", "-work-api")
	require.NoError(t, os.MkdirAll(project, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(project, "s1.jsonl"), []byte("{}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(home, "stats-cache.json"),
		[]byte(`{"version":1,"lastComputedDate":"2026-01-31","dailyActivity":[{"date":"2026-01-31"}]}`), 0o644))

	cfg := &config.Config{ClaudeHome: home, DBPath: filepath.Join(home, "none.db")}
	checks := collectSourceChecks(cfg)
	require.Len(t, checks, 10)

	byName := make(map[string]sourceCheck)
	for _, c := range checks {
		byName[c.Name] = c
	}
	assert.True(t, byName["Claude home directory"].Found)
	assert.True(t, byName["Session transcripts"].Found)
	assert.Equal(t, "1 files in 1 projects", byName["Session transcripts"].Message)
	assert.True(t, byName["Stats cache"].Found)
	assert.Equal(t, "1 days, computed 2026-01-31", byName["Stats cache"].Message)
	assert.False(t, byName["Todo lists"].Found)
	assert.False(t, byName["File history"].Found)
	assert.False(t, byName["Run database"].Found)
	assert.False(t, byName["Prompt history"].Found)
	assert.False(t, byName["Settings"].Found)
	assert.False(t, byName["Plugins"].Found)
	assert.False(t, byName["Custom commands"].Found)
}

func TestCollectSourceChecks_Context(t *testing.T) {
	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, "settings.json"),
		[]byte(`{"hooks":{"Stop":[{"hooks":[{"type":"command","command":"x"}]}]}}`), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(home, "commands"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, "commands", "ship.md"), []byte("ship it"), 0o644))

	byName := make(map[string]sourceCheck)
	for _, c := range collectSourceChecks(&config.Config{ClaudeHome: home, DBPath: filepath.Join(home, "x.db")}) {
		byName[c.Name] = c
	}
	assert.Equal(t, "settings.json, 1 hooks", byName["Settings"].Message)
	assert.Equal(t, "/ship", byName["Custom commands"].Message)
}

func TestCollectSourceChecks_MissingHome(t *testing.T) {
	home := filepath.Join(t.TempDir(), "absent")
	checks := collectSourceChecks(&config.Config{ClaudeHome: home, DBPath: filepath.Join(home, "x.db")})
	for _, c := range checks {
		assert.False(t, c.Found, c.Name)
	}
	assert.True(t, checks[0].Required)
}
