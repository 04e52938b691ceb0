package claude

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// HistoryEntry is one line of ~/.claude/history.jsonl, the prompt history.
type HistoryEntry struct {
	Display   string `json:"display"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
	Project   string `json:"project"`
	SessionID string `json:"sessionId"`

	PastedContents map[string]any `json:"pastedContents,omitempty"`
}

// Time converts the entry's millisecond timestamp.
func (h HistoryEntry) Time() time.Time {
	if h.Timestamp == 0 {
		return time.Time{}
	}
	return time.UnixMilli(h.Timestamp).UTC()
}

// HistorySummary describes the prompt history.
type HistorySummary struct {
	Entries  int       `json:"entries"`
	Projects []string  `json:"projects"`
	First    time.Time `json:"first"`
	Last     time.Time `json:"last"`
	Pasted   int       `json:"pasted"`
}

// ParseHistory reads ~/.claude/history.jsonl. Malformed lines are skipped
// and a missing file yields nil.
func ParseHistory(claudeHome string) ([]HistoryEntry, error) {
	f, err := os.Open(filepath.Join(claudeHome, "history.jsonl"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var entries []HistoryEntry
	br := bufio.NewReaderSize(f, 64*1024)
	for {
		line, err := br.ReadBytes('\n')
		if trimmed := strings.TrimSpace(string(line)); trimmed != "" {
			var e HistoryEntry
			if json.Unmarshal([]byte(trimmed), &e) == nil {
				entries = append(entries, e)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return entries, nil
			}
			return entries, err
		}
	}
}

// SummarizeHistory counts entries, distinct projects and the time range.
func SummarizeHistory(entries []HistoryEntry) HistorySummary {
	s := HistorySummary{Entries: len(entries)}
	projects := make(map[string]bool)
	for _, e := range entries {
		if e.Project != "" && !projects[e.Project] {
			projects[e.Project] = true
			s.Projects = append(s.Projects, e.Project)
		}
		if e.PastedContents != nil {
			s.Pasted++
		}
		t := e.Time()
		if t.IsZero() {
			continue
		}
		if s.First.IsZero() || t.Before(s.First) {
			s.First = t
		}
		if t.After(s.Last) {
			s.Last = t
		}
	}
	sort.Strings(s.Projects)
	return s
}

// Settings is the subset of settings.json the sources check reports on.
type Settings struct {
	Model                 string                 `json:"model,omitempty"`
	AlwaysThinkingEnabled bool                   `json:"alwaysThinkingEnabled"`
	Permissions           Permissions            `json:"permissions"`
	Hooks                 map[string][]HookGroup `json:"hooks,omitempty"`
	EnabledPlugins        map[string]bool        `json:"enabledPlugins,omitempty"`
}

// Permissions is the permissions block of settings.json.
type Permissions struct {
	DefaultMode string   `json:"defaultMode,omitempty"`
	Allow       []string `json:"allow,omitempty"`
	Deny        []string `json:"deny,omitempty"`
}

// HookGroup is the set of hooks registered for one matcher.
type HookGroup struct {
	Matcher string `json:"matcher,omitempty"`
	Hooks   []Hook `json:"hooks"`
}

// Hook is one hook command.
type Hook struct {
	Type    string `json:"type"`
	Command string `json:"command"`
}

// HookCount is the number of hook commands across all events.
func (s *Settings) HookCount() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, groups := range s.Hooks {
		for _, g := range groups {
			n += len(g.Hooks)
		}
	}
	return n
}

// SettingsFiles holds the global and machine-local settings; either may be
// nil when its file is absent.
type SettingsFiles struct {
	Global *Settings `json:"global,omitempty"`
	Local  *Settings `json:"local,omitempty"`
}

// ParseSettings reads settings.json and settings.local.json.
func ParseSettings(claudeHome string) (SettingsFiles, error) {
	var files SettingsFiles
	var err error
	if files.Global, err = readSettings(filepath.Join(claudeHome, "settings.json")); err != nil {
		return files, err
	}
	if files.Local, err = readSettings(filepath.Join(claudeHome, "settings.local.json")); err != nil {
		return files, err
	}
	return files, nil
}

func readSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var s Settings
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Plugin is an installed plugin.
type Plugin struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}

type pluginInstallation struct {
	Scope   string `json:"scope"`
	Version string `json:"version"`
}

// ParsePlugins reads ~/.claude/plugins/installed_plugins.json, sorted by
// name. The file is either {"version":n,"plugins":{name:[install...]}},
// a bare {name:[install...]} map, or a list of plugins. Unrecognized
// content yields nil.
func ParsePlugins(claudeHome string) ([]Plugin, error) {
	data, err := os.ReadFile(filepath.Join(claudeHome, "plugins", "installed_plugins.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var wrapped struct {
		Plugins map[string][]pluginInstallation `json:"plugins"`
	}
	if json.Unmarshal(data, &wrapped) == nil && len(wrapped.Plugins) > 0 {
		return pluginsFromMap(wrapped.Plugins), nil
	}

	var bare map[string][]pluginInstallation
	if json.Unmarshal(data, &bare) == nil {
		return pluginsFromMap(bare), nil
	}

	var list []Plugin
	if json.Unmarshal(data, &list) == nil {
		sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
		return list, nil
	}
	return nil, nil
}

func pluginsFromMap(m map[string][]pluginInstallation) []Plugin {
	plugins := make([]Plugin, 0, len(m))
	for name, installs := range m {
		p := Plugin{Name: name}
		if len(installs) > 0 {
			p.Version = installs[0].Version
		}
		plugins = append(plugins, p)
	}
	sort.Slice(plugins, func(i, j int) bool { return plugins[i].Name < plugins[j].Name })
	return plugins
}

// Command is a custom slash command file under ~/.claude/commands.
type Command struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// ListCommands lists ~/.claude/commands/*.md sorted by name.
func ListCommands(claudeHome string) ([]Command, error) {
	dir := filepath.Join(claudeHome, "commands")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var commands []Command
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}
		c := Command{
			Name: strings.TrimSuffix(entry.Name(), ".md"),
			Path: filepath.Join(dir, entry.Name()),
		}
		if info, err := entry.Info(); err == nil {
			c.Size = info.Size()
		}
		commands = append(commands, c)
	}
	return commands, nil
}
