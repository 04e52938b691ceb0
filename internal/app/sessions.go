package app

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/claudemetrics/internal/claude"
	"github.com/blackwell-systems/claudemetrics/internal/extract"
	"github.com/blackwell-systems/claudemetrics/internal/output"
)

var (
	sessionsFlagSort    string
	sessionsFlagProject string
	sessionsFlagDays    int
	sessionsFlagLimit   int
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions [session-id]",
	Short: "List reconstructed sessions in the window",
	Long: `Browse the sessions reconstructed from transcripts in the trailing
window.

Examples:
  claudemetrics sessions                        # most recent first
  claudemetrics sessions --sort cost            # most expensive first
  claudemetrics sessions --project api          # filter by project name
  claudemetrics sessions --days 7 --limit 5     # last 7 days, top 5
  claudemetrics sessions abc12345               # inspect one session by ID prefix`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSessions,
}

func init() {
	sessionsCmd.Flags().StringVar(&sessionsFlagSort, "sort", "recent", "Sort by: recent, cost, duration, messages, tools, errors")
	sessionsCmd.Flags().StringVar(&sessionsFlagProject, "project", "", "Filter to sessions matching project name or path")
	sessionsCmd.Flags().IntVar(&sessionsFlagDays, "days", 0, "Number of days to look back (default: window_days from config)")
	sessionsCmd.Flags().IntVar(&sessionsFlagLimit, "limit", 15, "Maximum sessions to display")
	rootCmd.AddCommand(sessionsCmd)
}

// sessionRow pairs a session with its tool error count.
type sessionRow struct {
	Session    claude.Session `json:"session"`
	ToolErrors int            `json:"tool_errors"`
}

func (s sessionRow) projectName() string {
	if s.Session.ProjectPath == "" {
		return "unknown"
	}
	return filepath.Base(s.Session.ProjectPath)
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	w, err := buildWindow(cfg, windowDays(cfg, sessionsFlagDays))
	if err != nil {
		return err
	}

	if len(args) == 1 {
		return runInspect(args[0], w)
	}

	rows := filterSessions(sessionRows(w), sessionsFlagProject)
	if len(rows) == 0 {
		fmt.Println(" No sessions found matching filters.")
		return nil
	}
	if err := sortSessions(rows, sessionsFlagSort); err != nil {
		return err
	}
	if sessionsFlagLimit > 0 && len(rows) > sessionsFlagLimit {
		rows = rows[:sessionsFlagLimit]
	}

	if flagJSON {
		return writeJSON(os.Stdout, rows)
	}
	renderSessions(rows, sessionsFlagSort)
	return nil
}

func sessionRows(w *extract.Window) []sessionRow {
	errs := make(map[string]int)
	for _, tc := range w.ToolCalls {
		if tc.IsError {
			errs[tc.SessionID]++
		}
	}
	rows := make([]sessionRow, 0, len(w.Sessions))
	for _, s := range w.Sessions {
		rows = append(rows, sessionRow{Session: s, ToolErrors: errs[s.ID]})
	}
	return rows
}

func filterSessions(rows []sessionRow, project string) []sessionRow {
	if project == "" {
		return rows
	}
	needle := strings.ToLower(project)
	var out []sessionRow
	for _, r := range rows {
		if strings.Contains(strings.ToLower(r.Session.ProjectPath), needle) {
			out = append(out, r)
		}
	}
	return out
}

func sortSessions(rows []sessionRow, key string) error {
	var less func(a, b sessionRow) bool
	switch key {
	case "recent":
		less = func(a, b sessionRow) bool { return a.Session.StartTime.After(b.Session.StartTime) }
	case "cost":
		less = func(a, b sessionRow) bool { return a.Session.CostUSD > b.Session.CostUSD }
	case "duration":
		less = func(a, b sessionRow) bool { return a.Session.DurationMs > b.Session.DurationMs }
	case "messages":
		less = func(a, b sessionRow) bool { return a.Session.MessageCount > b.Session.MessageCount }
	case "tools":
		less = func(a, b sessionRow) bool { return a.Session.ToolCallCount > b.Session.ToolCallCount }
	case "errors":
		less = func(a, b sessionRow) bool { return a.ToolErrors > b.ToolErrors }
	default:
		return fmt.Errorf("unknown sort key %q", key)
	}
	sort.SliceStable(rows, func(i, j int) bool { return less(rows[i], rows[j]) })
	return nil
}

// runInspect finds a session by full ID or prefix and renders a detailed view.
func runInspect(prefix string, w *extract.Window) error {
	var matches []sessionRow
	for _, r := range sessionRows(w) {
		if strings.HasPrefix(r.Session.ID, prefix) {
			matches = append(matches, r)
		}
	}
	switch len(matches) {
	case 0:
		return fmt.Errorf("no session in the last %d days matches %q", w.Days, prefix)
	case 1:
	default:
		return fmt.Errorf("%d sessions match %q; use a longer prefix", len(matches), prefix)
	}
	r := matches[0]

	tools := make(map[string]int)
	for _, tc := range w.ToolCalls {
		if tc.SessionID == r.Session.ID {
			tools[tc.Name]++
		}
	}

	if flagJSON {
		return writeJSON(os.Stdout, map[string]any{"session": r.Session, "tool_errors": r.ToolErrors, "tools": tools})
	}

	s := r.Session
	fmt.Println(output.Section("Session " + s.ID))
	printField("Project", s.ProjectPath)
	printField("Started", s.StartTime.Format("2006-01-02 15:04"))
	printField("Duration", (time.Duration(s.DurationMs) * time.Millisecond).Round(time.Second).String())
	printField("Messages", fmt.Sprintf("%d (%d user, %d assistant)", s.MessageCount, s.UserMessageCount, s.AssistantMessageCount))
	printField("Tool calls", fmt.Sprintf("%d (%d errors)", s.ToolCallCount, r.ToolErrors))
	printField("Model", s.Model)
	printField("Branches", strings.Join(s.GitBranches, ", "))
	printField("Cost", fmt.Sprintf("$%.4f", s.CostUSD))
	printField("Tokens in/out", fmt.Sprintf("%s / %s", output.Count(s.TotalInputTokens), output.Count(s.TotalOutputTokens)))
	printField("Compactions", fmt.Sprintf("%d", s.CompactionCount))
	fmt.Println()

	if len(tools) > 0 {
		fmt.Println(output.Section("Tools"))
		for _, kv := range sortMapByValue(tools) {
			printField(kv.key, output.Count(int64(kv.value)))
		}
		fmt.Println()
	}
	return nil
}

func renderSessions(rows []sessionRow, sortKey string) {
	fmt.Println(output.Section("Sessions"))
	fmt.Println()
	fmt.Printf(" %s  sorted by %s\n\n",
		output.StyleMuted.Render(fmt.Sprintf("%d sessions", len(rows))),
		output.StyleBold.Render(sortKey))

	tbl := output.NewTable("Date", "ID", "Project", "Duration", "Messages", "Tools", "Errors", "Cost", "Model")
	var totalCost float64
	var totalDuration int64
	for _, r := range rows {
		s := r.Session
		errs := fmt.Sprintf("%d", r.ToolErrors)
		if r.ToolErrors > 5 {
			errs = output.StyleWarning.Render(errs)
		}
		agent := ""
		if s.IsAgent {
			agent = " (agent)"
		}
		tbl.AddRow(
			s.StartTime.Format("Jan 02 15:04"),
			shortID(s.ID),
			r.projectName()+agent,
			fmt.Sprintf("%dm", s.DurationMs/60000),
			fmt.Sprintf("%d", s.MessageCount),
			fmt.Sprintf("%d", s.ToolCallCount),
			errs,
			fmt.Sprintf("$%.2f", s.CostUSD),
			s.Model,
		)
		totalCost += s.CostUSD
		totalDuration += s.DurationMs
	}
	tbl.Print()

	fmt.Println()
	fmt.Printf(" %s\n", output.StyleBold.Render(fmt.Sprintf(
		"Totals: $%.2f cost · %.0fm avg duration",
		totalCost, float64(totalDuration)/float64(len(rows))/60000,
	)))
	fmt.Println()
	fmt.Printf(" %s\n", output.StyleMuted.Render("Use --sort cost|duration|messages|tools|errors to reorder"))
	fmt.Printf(" %s\n", output.StyleMuted.Render("Use claudemetrics sessions <session-id> to inspect a session"))
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
