package claude

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// todoAgentSep separates the session and agent IDs in a todo file name.
const todoAgentSep = "-agent-"

// ParseAllTodos reads every todo list under <claudeHome>/todos. Files are
// named "<session>-agent-<agent>.json" and hold a JSON array of tasks.
// Unreadable files, non-array files and empty lists are skipped; entries
// that are not objects are dropped from their list. Results are ordered by
// file name.
func ParseAllTodos(claudeHome string) ([]SessionTodos, error) {
	dir := filepath.Join(claudeHome, "todos")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var lists []SessionTodos
	for _, name := range names {
		tasks := readTodoFile(filepath.Join(dir, name))
		if len(tasks) == 0 {
			continue
		}
		sessionID, agentID := parseTodoFilename(name)
		lists = append(lists, SessionTodos{SessionID: sessionID, AgentID: agentID, Tasks: tasks})
	}
	return lists, nil
}

func readTodoFile(path string) []TodoTask {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}

	tasks := make([]TodoTask, 0, len(items))
	for _, item := range items {
		var task TodoTask
		if err := json.Unmarshal(item, &task); err != nil {
			continue
		}
		if task.Status == "" {
			task.Status = "unknown"
		}
		tasks = append(tasks, task)
	}
	return tasks
}

// TodosBySession merges todo lists by session ID. A session with several
// agent files gets the concatenation of their tasks.
func TodosBySession(todos []SessionTodos) map[string][]TodoTask {
	out := make(map[string][]TodoTask)
	for _, st := range todos {
		out[st.SessionID] = append(out[st.SessionID], st.Tasks...)
	}
	return out
}

func parseTodoFilename(name string) (sessionID, agentID string) {
	base := strings.TrimSuffix(name, ".json")
	sessionID, agentID, _ = strings.Cut(base, todoAgentSep)
	return sessionID, agentID
}
