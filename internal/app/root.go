// Package app contains the Cobra command tree for claudemetrics.
package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var appVersion = "dev"

// SetVersion sets the application version (called from main with ldflags value).
func SetVersion(v string) {
	appVersion = v
	rootCmd.Version = v
}

var (
	flagNoColor bool
	flagJSON    bool
	flagVerbose bool
	flagConfig  string
)

var rootCmd = &cobra.Command{
	Use:   "claudemetrics",
	Short: "Derived metrics over local Claude Code history",
	Long: `claudemetrics reads Claude Code's local transcripts and caches,
folds a trailing window of activity into one snapshot, and computes a
catalog of 203 derived metrics across ten categories (time, tools, files,
models and cost, conversation, context, todos, agents, projects, errors).

Runs can be saved to a local SQLite database and compared over time.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("claudemetrics", appVersion)
		fmt.Println()
		fmt.Println("Use a subcommand:")
		fmt.Println("  sources   Check which Claude data sources are available")
		fmt.Println("  extract   Build the time window and summarize what it holds")
		fmt.Println("  sessions  List reconstructed sessions in the window")
		fmt.Println("  metrics   Calculate, list, and report derived metrics")
		fmt.Println("  history   Show saved runs and metric trends")
		return nil
	},
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file path (default: ~/.config/claudemetrics/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "Enable verbose output")
}
