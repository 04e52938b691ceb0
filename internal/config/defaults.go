// Package config provides configuration loading and defaults for claudemetrics.
package config

// DefaultClaudeHome is the default location of Claude Code's data directory.
const DefaultClaudeHome = "~/.claude"

// DefaultConfigDir is the default location for claudemetrics configuration.
const DefaultConfigDir = "~/.config/claudemetrics"

// DefaultDBName is the filename for the SQLite database.
const DefaultDBName = "claudemetrics.db"

// DefaultConfigFile is the filename for the YAML config.
const DefaultConfigFile = "config.yaml"

// DefaultWindowDays is how many days back a run looks.
const DefaultWindowDays = 30

// Ordering modes for the calculation engine.
const (
	OrderingStrict  = "strict"
	OrderingLenient = "lenient"
)

// DefaultOrdering rejects dependency cycles and unknown dependencies.
const DefaultOrdering = OrderingStrict

// DefaultOutput holds the default output preferences.
var DefaultOutput = Output{
	Color:      true,
	Width:      80,
	SampleSize: 15,
}
