package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/claudemetrics/internal/claude"
	"github.com/blackwell-systems/claudemetrics/internal/config"
	"github.com/blackwell-systems/claudemetrics/internal/output"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Check which Claude data sources are available",
	Long: `Check each data source the extractor reads: the Claude home
directory, session transcripts, the stats cache, todo lists and
file-history backups. Prompt history, settings, plugins, custom commands
and the run database are listed for context. Missing optional sources
are reported but never fail extraction.`,
	RunE: runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

// sourceCheck holds the result of a single source check.
type sourceCheck struct {
	Name     string `json:"name"`
	Found    bool   `json:"found"`
	Required bool   `json:"required"`
	Message  string `json:"message"`
}

// sourcesOutput is the JSON-serializable result of the sources command.
type sourcesOutput struct {
	Checks []sourceCheck `json:"checks"`
	Found  int           `json:"found"`
	Total  int           `json:"total"`
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	checks := collectSourceChecks(cfg)

	found := 0
	for _, c := range checks {
		if c.Found {
			found++
		}
	}

	if flagJSON {
		return writeJSON(os.Stdout, sourcesOutput{Checks: checks, Found: found, Total: len(checks)})
	}

	fmt.Println(output.Section("Sources"))
	fmt.Println()
	for _, c := range checks {
		renderSourceCheck(c)
	}
	fmt.Println()
	summary := fmt.Sprintf("%d/%d sources available", found, len(checks))
	if found == len(checks) {
		fmt.Printf(" %s\n\n", output.StyleSuccess.Render(summary))
	} else {
		fmt.Printf(" %s\n\n", output.StyleWarning.Render(summary))
	}
	return nil
}

func collectSourceChecks(cfg *config.Config) []sourceCheck {
	return []sourceCheck{
		checkClaudeHome(cfg.ClaudeHome),
		checkTranscripts(cfg.ClaudeHome),
		checkStatsCache(cfg.ClaudeHome),
		checkTodos(cfg.ClaudeHome),
		checkFileHistory(cfg.ClaudeHome),
		checkHistory(cfg.ClaudeHome),
		checkSettings(cfg.ClaudeHome),
		checkPlugins(cfg.ClaudeHome),
		checkCommands(cfg.ClaudeHome),
		checkDatabase(cfg.DBPath),
	}
}

func renderSourceCheck(c sourceCheck) {
	var indicator string
	switch {
	case c.Found:
		indicator = output.StyleSuccess.Render("✓")
	case c.Required:
		indicator = output.StyleError.Render("✗")
	default:
		indicator = output.StyleWarning.Render("-")
	}
	label := output.StyleBold.Render(c.Name)
	detail := output.StyleMuted.Render(c.Message)
	fmt.Printf("  %s  %-30s %s\n", indicator, label, detail)
}

func checkClaudeHome(claudeHome string) sourceCheck {
	c := sourceCheck{Name: "Claude home directory", Required: true}
	info, err := os.Stat(claudeHome)
	switch {
	case err != nil:
		c.Message = fmt.Sprintf("not found: %s", claudeHome)
	case !info.IsDir():
		c.Message = fmt.Sprintf("path exists but is not a directory: %s", claudeHome)
	default:
		c.Found = true
		c.Message = claudeHome
	}
	return c
}

func checkTranscripts(claudeHome string) sourceCheck {
	c := sourceCheck{Name: "Session transcripts", Required: true}
	projects, err := claude.ListProjects(claudeHome)
	if err != nil {
		c.Message = fmt.Sprintf("error listing projects: %v", err)
		return c
	}
	files := 0
	for _, p := range projects {
		fs, err := p.SessionFiles()
		if err != nil {
			continue
		}
		files += len(fs)
	}
	if files == 0 {
		c.Message = "no transcripts under projects/"
		return c
	}
	c.Found = true
	c.Message = fmt.Sprintf("%s files in %d projects", output.Count(int64(files)), len(projects))
	return c
}

func checkStatsCache(claudeHome string) sourceCheck {
	c := sourceCheck{Name: "Stats cache"}
	sc, err := claude.ParseStatsCache(claudeHome)
	switch {
	case err != nil:
		c.Message = fmt.Sprintf("parse error: %v", err)
	case sc == nil:
		c.Message = "stats-cache.json not found"
	default:
		c.Found = true
		c.Message = fmt.Sprintf("%d days, computed %s", len(sc.DailyActivity), sc.LastComputedDate)
	}
	return c
}

func checkTodos(claudeHome string) sourceCheck {
	c := sourceCheck{Name: "Todo lists"}
	todos, err := claude.ParseAllTodos(claudeHome)
	switch {
	case err != nil:
		c.Message = fmt.Sprintf("error reading todos: %v", err)
	case len(todos) == 0:
		c.Message = "no todo lists found"
	default:
		c.Found = true
		c.Message = fmt.Sprintf("%d lists", len(todos))
	}
	return c
}

func checkFileHistory(claudeHome string) sourceCheck {
	c := sourceCheck{Name: "File history"}
	sessions, err := claude.ParseAllFileHistory(claudeHome)
	if err != nil {
		c.Message = fmt.Sprintf("error reading file-history: %v", err)
		return c
	}
	if len(sessions) == 0 {
		c.Message = "no backups found"
		return c
	}
	var bytes int64
	for _, s := range sessions {
		bytes += s.TotalBytes
	}
	c.Found = true
	c.Message = fmt.Sprintf("%d sessions, %s", len(sessions), output.Bytes(uint64(bytes)))
	return c
}

func checkHistory(claudeHome string) sourceCheck {
	c := sourceCheck{Name: "Prompt history"}
	entries, err := claude.ParseHistory(claudeHome)
	switch {
	case err != nil:
		c.Message = fmt.Sprintf("error reading history.jsonl: %v", err)
	case len(entries) == 0:
		c.Message = "history.jsonl not found or empty"
	default:
		h := claude.SummarizeHistory(entries)
		c.Found = true
		c.Message = fmt.Sprintf("%s prompts across %d projects, last %s",
			output.Count(int64(h.Entries)), len(h.Projects), output.Ago(h.Last))
	}
	return c
}

func checkSettings(claudeHome string) sourceCheck {
	c := sourceCheck{Name: "Settings"}
	files, err := claude.ParseSettings(claudeHome)
	if err != nil {
		c.Message = fmt.Sprintf("parse error: %v", err)
		return c
	}
	var found []string
	hooks := 0
	if files.Global != nil {
		found = append(found, "settings.json")
		hooks += files.Global.HookCount()
	}
	if files.Local != nil {
		found = append(found, "settings.local.json")
		hooks += files.Local.HookCount()
	}
	if len(found) == 0 {
		c.Message = "no settings files"
		return c
	}
	c.Found = true
	c.Message = fmt.Sprintf("%s, %d hooks", strings.Join(found, " + "), hooks)
	return c
}

func checkPlugins(claudeHome string) sourceCheck {
	c := sourceCheck{Name: "Plugins"}
	plugins, err := claude.ParsePlugins(claudeHome)
	switch {
	case err != nil:
		c.Message = fmt.Sprintf("error reading plugins: %v", err)
	case len(plugins) == 0:
		c.Message = "no plugins installed"
	default:
		c.Found = true
		c.Message = fmt.Sprintf("%d installed", len(plugins))
	}
	return c
}

func checkCommands(claudeHome string) sourceCheck {
	c := sourceCheck{Name: "Custom commands"}
	cmds, err := claude.ListCommands(claudeHome)
	switch {
	case err != nil:
		c.Message = fmt.Sprintf("error reading commands: %v", err)
	case len(cmds) == 0:
		c.Message = "no commands defined"
	default:
		names := make([]string, len(cmds))
		for i, cmd := range cmds {
			names[i] = "/" + cmd.Name
		}
		c.Found = true
		c.Message = strings.Join(names, " ")
	}
	return c
}

func checkDatabase(dbPath string) sourceCheck {
	c := sourceCheck{Name: "Run database"}
	info, err := os.Stat(dbPath)
	if err != nil {
		c.Message = fmt.Sprintf("not found at %s (run 'claudemetrics metrics calculate --save' to create)", filepath.Clean(dbPath))
		return c
	}
	c.Found = true
	c.Message = fmt.Sprintf("%s (%s)", dbPath, output.Bytes(uint64(info.Size())))
	return c
}
