package claude

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTodoFilename(t *testing.T) {
	tests := []struct {
		filename  string
		wantSID   string
		wantAgent string
	}{
		{"abc-123-agent-abc-123.json", "abc-123", "abc-123"},
		{"sess-1-agent-agent-2.json", "sess-1", "agent-2"},
		{"just-a-session.json", "just-a-session", ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			sid, aid := parseTodoFilename(tt.filename)
			assert.Equal(t, tt.wantSID, sid)
			assert.Equal(t, tt.wantAgent, aid)
		})
	}
}

func writeTodoFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestParseAllTodos(t *testing.T) {
	home := t.TempDir()
	dir := filepath.Join(home, "todos")
	writeTodoFile(t, dir, "s2-agent-s2.json", `[{"id":"9","content":"later","status":"pending"}]`)
	writeTodoFile(t, dir, "s1-agent-s1.json",
		`[{"id":"1","content":"Fix the bug","status":"completed"},"stray",{"id":"2","content":"Add tests"}]`)
	writeTodoFile(t, dir, "s3-agent-s3.json", `[]`)
	writeTodoFile(t, dir, "s4-agent-s4.json", `{"not":"a list"}`)
	writeTodoFile(t, dir, "notes.txt", `[{"id":"x"}]`)

	lists, err := ParseAllTodos(home)
	require.NoError(t, err)
	require.Len(t, lists, 2)

	assert.Equal(t, "s1", lists[0].SessionID)
	assert.Equal(t, "s1", lists[0].AgentID)
	require.Len(t, lists[0].Tasks, 2)
	assert.Equal(t, "completed", lists[0].Tasks[0].Status)
	assert.Equal(t, "unknown", lists[0].Tasks[1].Status)
	assert.Equal(t, "s2", lists[1].SessionID)
}

func TestParseAllTodos_MissingDir(t *testing.T) {
	lists, err := ParseAllTodos(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, lists)
}

func TestTodosBySession(t *testing.T) {
	merged := TodosBySession([]SessionTodos{
		{SessionID: "s1", AgentID: "s1", Tasks: []TodoTask{{ID: "1"}}},
		{SessionID: "s1", AgentID: "a2", Tasks: []TodoTask{{ID: "2"}, {ID: "3"}}},
		{SessionID: "s2", Tasks: []TodoTask{{ID: "4"}}},
	})
	assert.Len(t, merged["s1"], 3)
	assert.Len(t, merged["s2"], 1)
}
