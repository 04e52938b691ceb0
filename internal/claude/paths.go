package claude

import (
	"path/filepath"
	"strings"
)

// NormalizePath cleans a file path to a canonical form suitable for comparison.
// It resolves ".." components, removes trailing slashes, and normalizes
// separators. Returns an empty string for empty input.
func NormalizePath(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Clean(path)
}

// ProjectPathFromDir decodes a projects/ folder name such as
// "-home-me-code-app" into the working directory "/home/me/code/app".
// Hyphens inside directory names cannot be told apart from separators.
func ProjectPathFromDir(name string) string {
	name = strings.TrimPrefix(name, "-")
	return "/" + strings.ReplaceAll(name, "-", "/")
}

// DirFromProjectPath is the inverse of ProjectPathFromDir.
func DirFromProjectPath(path string) string {
	return strings.TrimLeft(strings.ReplaceAll(path, "/", "-"), "-")
}
