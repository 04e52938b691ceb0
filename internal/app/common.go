package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/blackwell-systems/claudemetrics/internal/config"
	"github.com/blackwell-systems/claudemetrics/internal/extract"
	"github.com/blackwell-systems/claudemetrics/internal/output"
)

// loadConfig reads the configuration and applies the color settings.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	output.AutoColor(os.Stdout, cfg.Output.Color && !flagNoColor)
	return cfg, nil
}

// verbosef writes a diagnostic line to stderr when --verbose is set.
func verbosef(format string, args ...any) {
	if !flagVerbose {
		return
	}
	fmt.Fprintf(os.Stderr, output.StyleMuted.Render("· "+format)+"\n", args...)
}

// writeJSON encodes v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// windowDays returns the --days flag when set, else the configured window.
func windowDays(cfg *config.Config, flagDays int) int {
	if flagDays > 0 {
		return flagDays
	}
	return cfg.WindowDays
}

// buildWindow runs the extractor and reports skipped files in verbose mode.
func buildWindow(cfg *config.Config, days int) (*extract.Window, error) {
	start := time.Now()
	ex := extract.New(extract.Options{
		ClaudeHome:   cfg.ClaudeHome,
		Days:         days,
		EstimateCost: cfg.EstimateCost,
		Progress: func(stage, status string) {
			if status != extract.StatusStarted {
				verbosef("extract %s: %s", stage, status)
			}
		},
	})
	w, err := ex.Extract()
	if err != nil {
		return nil, err
	}
	for _, s := range ex.Skipped {
		verbosef("skipped %s", s)
	}
	verbosef("extracted %d sessions in %s", w.TotalSessions, time.Since(start).Round(time.Millisecond))
	return w, nil
}
