package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config is the top-level claudemetrics configuration.
type Config struct {
	ClaudeHome string `mapstructure:"claude_home"`
	WindowDays int    `mapstructure:"window_days"`
	Ordering   string `mapstructure:"ordering"`

	// EstimateCost prices messages from the built-in table when the
	// transcript carries no cost.
	EstimateCost bool   `mapstructure:"estimate_cost"`
	DBPath       string `mapstructure:"db_path"`
	Output       Output `mapstructure:"output"`
}

// Output defines output preferences.
type Output struct {
	Color bool `mapstructure:"color"`
	Width int  `mapstructure:"width"`

	// SampleSize caps how many metrics per category the report prints
	// without --detail.
	SampleSize int `mapstructure:"sample_size"`
}

// Lenient reports whether the engine should order metrics leniently.
func (c *Config) Lenient() bool {
	return c.Ordering == OrderingLenient
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Load reads configuration from the given path (or the default location)
// and returns a Config with all defaults applied.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("claude_home", DefaultClaudeHome)
	v.SetDefault("window_days", DefaultWindowDays)
	v.SetDefault("ordering", DefaultOrdering)
	v.SetDefault("estimate_cost", false)
	v.SetDefault("db_path", filepath.Join(DefaultConfigDir, DefaultDBName))
	v.SetDefault("output.color", DefaultOutput.Color)
	v.SetDefault("output.width", DefaultOutput.Width)
	v.SetDefault("output.sample_size", DefaultOutput.SampleSize)

	v.SetEnvPrefix("CLAUDEMETRICS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(expandPath(cfgFile))
	} else {
		v.AddConfigPath(expandPath(DefaultConfigDir))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	// Missing file is not an error.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cfg.ClaudeHome = expandPath(cfg.ClaudeHome)
	cfg.DBPath = expandPath(cfg.DBPath)

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Ordering {
	case OrderingStrict, OrderingLenient:
	default:
		return fmt.Errorf("ordering must be %q or %q, got %q", OrderingStrict, OrderingLenient, c.Ordering)
	}
	if c.WindowDays < 1 {
		return fmt.Errorf("window_days must be at least 1, got %d", c.WindowDays)
	}
	return nil
}

// ConfigDir returns the expanded configuration directory.
func ConfigDir() string {
	return expandPath(DefaultConfigDir)
}
