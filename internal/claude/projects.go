package claude

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ListProjects lists directories under ~/.claude/projects/.
// Each directory represents a project that Claude has been used with.
func ListProjects(claudeHome string) ([]ProjectDir, error) {
	dir := filepath.Join(claudeHome, "projects")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var projects []ProjectDir
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		projects = append(projects, ProjectDir{
			Path:        filepath.Join(dir, entry.Name()),
			Name:        entry.Name(),
			ProjectPath: ProjectPathFromDir(entry.Name()),
		})
	}
	return projects, nil
}

// SessionFiles lists the *.jsonl transcripts directly inside a project
// directory, sorted by name.
func (p ProjectDir) SessionFiles() ([]string, error) {
	entries, err := os.ReadDir(p.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		files = append(files, filepath.Join(p.Path, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
