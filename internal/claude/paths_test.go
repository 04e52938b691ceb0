package claude

import (
	"testing"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"empty string", "", ""},
		{"simple path", "/usr/local/bin", "/usr/local/bin"},
		{"trailing slash", "/usr/local/bin/", "/usr/local/bin"},
		{"double slash", "/usr//local//bin", "/usr/local/bin"},
		{"dot-dot components", "/usr/local/../bin", "/usr/bin"},
		{"dot components", "/usr/./local/./bin", "/usr/local/bin"},
		{"relative path", "foo/bar", "foo/bar"},
		{"relative with dot-dot", "foo/../bar", "bar"},
		{"root", "/", "/"},
		{"just dot", ".", "."},
		{"dot-dot only", "..", ".."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizePath(tc.input)
			if got != tc.expect {
				t.Errorf("NormalizePath(%q) = %q, want %q", tc.input, got, tc.expect)
			}
		})
	}
}

func TestProjectPathFromDir(t *testing.T) {
	tests := []struct {
		dir  string
		want string
	}{
		{"-home-me-code-app", "/home/me/code/app"},
		{"Users-dev-proj", "/Users/dev/proj"},
		{"", "/"},
	}
	for _, tc := range tests {
		if got := ProjectPathFromDir(tc.dir); got != tc.want {
			t.Errorf("ProjectPathFromDir(%q) = %q, want %q", tc.dir, got, tc.want)
		}
	}

	if got := DirFromProjectPath("/home/me/code/app"); got != "home-me-code-app" {
		t.Errorf("DirFromProjectPath = %q", got)
	}
}
