package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".claude"), cfg.ClaudeHome)
	assert.Equal(t, 30, cfg.WindowDays)
	assert.Equal(t, OrderingStrict, cfg.Ordering)
	assert.False(t, cfg.Lenient())
	assert.False(t, cfg.EstimateCost)
	assert.Equal(t, filepath.Join(home, ".config", "claudemetrics", "claudemetrics.db"), cfg.DBPath)
	assert.Equal(t, DefaultOutput, cfg.Output)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
claude_home: /data/claude
window_days: 7
ordering: lenient
estimate_cost: true
db_path: /tmp/metrics.db
output:
  color: false
  sample_size: 5
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/claude", cfg.ClaudeHome)
	assert.Equal(t, 7, cfg.WindowDays)
	assert.True(t, cfg.Lenient())
	assert.True(t, cfg.EstimateCost)
	assert.Equal(t, "/tmp/metrics.db", cfg.DBPath)
	assert.False(t, cfg.Output.Color)
	assert.Equal(t, 80, cfg.Output.Width)
	assert.Equal(t, 5, cfg.Output.SampleSize)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"ordering", "ordering: random\n", "ordering must be"},
		{"window", "window_days: 0\n", "window_days must be at least 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "x", "y"), expandPath("~/x/y"))
	assert.Equal(t, "/abs", expandPath("/abs"))
	assert.Equal(t, "rel/~", expandPath("rel/~"))
}
