package claude

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
)

// backupName matches file-history backups, "<hex hash>@v<version>".
var backupName = regexp.MustCompile(`^([0-9a-fA-F]+)@v(\d+)$`)

// ParseAllFileHistory summarizes <claudeHome>/file-history, which holds one
// directory per session of versioned file backups. Only names and sizes are
// read. Sessions without a single backup are omitted.
func ParseAllFileHistory(claudeHome string) ([]FileHistorySession, error) {
	root := filepath.Join(claudeHome, "file-history")
	dirs, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var sessions []FileHistorySession
	for _, d := range dirs {
		if !d.IsDir() {
			continue
		}
		if fh, ok := summarizeBackups(filepath.Join(root, d.Name()), d.Name()); ok {
			sessions = append(sessions, fh)
		}
	}
	return sessions, nil
}

func summarizeBackups(dir, sessionID string) (FileHistorySession, bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return FileHistorySession{}, false
	}

	fh := FileHistorySession{SessionID: sessionID, Versions: make(map[string]int)}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		hash, version, ok := parseVersionedFilename(e.Name())
		if !ok {
			continue
		}
		fh.TotalEdits++
		fh.Versions[hash] = max(fh.Versions[hash], version)
		fh.MaxVersion = max(fh.MaxVersion, version)
		if info, err := e.Info(); err == nil {
			fh.TotalBytes += info.Size()
		}
	}
	fh.UniqueFiles = len(fh.Versions)
	return fh, fh.UniqueFiles > 0
}

func parseVersionedFilename(name string) (hash string, version int, ok bool) {
	m := backupName.FindStringSubmatch(name)
	if m == nil {
		return "", 0, false
	}
	v, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], v, true
}
