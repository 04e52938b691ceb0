package app

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/claudemetrics/internal/metrics"
	"github.com/blackwell-systems/claudemetrics/internal/output"
	"github.com/blackwell-systems/claudemetrics/internal/store"
)

var (
	historyLimit  int
	historyShow   string
	historyMetric string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show saved runs and metric trends",
	Long: `List runs saved with 'metrics calculate --save' and how headline
metrics moved between them.

Examples:
  claudemetrics history                 # recent runs and headline trends
  claudemetrics history --limit 3
  claudemetrics history --show 12       # every value of run #12 (ID or UUID)
  claudemetrics history --metric D094   # one metric across runs`,
	RunE: runHistory,
}

// headlineMetrics are the metrics shown in the history timeline.
var headlineMetrics = []string{"D001", "D031", "D084", "D094", "D110", "D173", "D189"}

// historyLowerIsBetter marks headline metrics where a decrease is an
// improvement.
var historyLowerIsBetter = map[string]bool{"D094": true, "D189": true}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of recent runs to include")
	historyCmd.Flags().StringVar(&historyShow, "show", "", "Show all values of one run (ID or UUID)")
	historyCmd.Flags().StringVar(&historyMetric, "metric", "", "Show one metric across runs")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()

	catalog, err := metrics.NewCatalog()
	if err != nil {
		return fmt.Errorf("building catalog: %w", err)
	}

	switch {
	case historyShow != "":
		return showRun(db, catalog, historyShow)
	case historyMetric != "":
		return showMetricHistory(db, catalog, historyMetric, historyLimit)
	default:
		return renderHistory(db, catalog, historyLimit)
	}
}

func findRun(db *store.DB, ref string) (*store.Run, error) {
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		run, err := db.GetRun(id)
		if err != nil || run != nil {
			return run, err
		}
	}
	return db.GetRunByUUID(ref)
}

func showRun(db *store.DB, catalog *metrics.Catalog, ref string) error {
	run, err := findRun(db, ref)
	if err != nil {
		return fmt.Errorf("loading run %s: %w", ref, err)
	}
	if run == nil {
		return fmt.Errorf("no run %q", ref)
	}
	values, err := db.GetRunValues(run.ID)
	if err != nil {
		return fmt.Errorf("loading values for run #%d: %w", run.ID, err)
	}
	errs, err := db.GetRunErrors(run.ID)
	if err != nil {
		return fmt.Errorf("loading errors for run #%d: %w", run.ID, err)
	}

	if flagJSON {
		return writeJSON(os.Stdout, map[string]any{"run": run, "metrics": values, "errors": errs})
	}

	fmt.Println(output.Section(fmt.Sprintf("Run #%d", run.ID)))
	printField("UUID", run.UUID)
	printField("Saved", fmt.Sprintf("%s (%s)", run.CreatedAt.Local().Format("2006-01-02 15:04"), output.Ago(run.CreatedAt)))
	printField("Window", fmt.Sprintf("%s → %s (%d days)", run.WindowStart.Format("2006-01-02"), run.WindowEnd.Format("2006-01-02"), run.WindowDays))
	printField("Ordering", run.Ordering)
	printField("Calculated", output.Count(int64(run.TotalCalculated)))
	printField("Errors", output.Count(int64(run.TotalErrors)))
	fmt.Println()

	tbl := output.NewTable("ID", "Metric", "Value")
	for _, v := range values {
		name, unit := v.MetricID, ""
		if d, ok := catalog.Get(v.MetricID); ok {
			name, unit = d.Name, d.Unit
		}
		tbl.AddRow(v.MetricID, name, output.Value(v.Value, unit))
	}
	tbl.Print()
	fmt.Println()

	for _, e := range errs {
		fmt.Printf(" %s %s %s\n",
			output.StyleBold.Render(e.MetricID),
			output.StyleError.Render(e.Kind),
			output.StyleMuted.Render(e.Message))
	}
	return nil
}

func showMetricHistory(db *store.DB, catalog *metrics.Catalog, id string, limit int) error {
	d, ok := catalog.Get(id)
	if !ok {
		return fmt.Errorf("unknown metric %q", id)
	}
	points, err := db.MetricHistory(id, limit)
	if err != nil {
		return fmt.Errorf("loading history for %s: %w", id, err)
	}

	if flagJSON {
		return writeJSON(os.Stdout, map[string]any{"metric": d, "history": points})
	}

	fmt.Println(output.Section(fmt.Sprintf("%s %s", d.ID, d.Name)))
	if len(points) == 0 {
		fmt.Println(" No numeric values saved for this metric.")
		return nil
	}
	tbl := output.NewTable("Run", "Saved", "Value", "Change")
	for i, p := range points {
		change := ""
		if i > 0 {
			change = output.TrendArrow(p.Value-points[i-1].Value, !historyLowerIsBetter[id])
		}
		tbl.AddRow(fmt.Sprintf("#%d", p.RunID), output.Ago(p.CreatedAt), output.Value(p.Value, d.Unit), change)
	}
	tbl.Print()
	return nil
}

// renderHistory shows the recent runs and a headline metric timeline.
func renderHistory(db *store.DB, catalog *metrics.Catalog, n int) error {
	runs, err := db.ListRuns(n)
	if err != nil {
		return fmt.Errorf("loading runs: %w", err)
	}

	if flagJSON {
		return writeJSON(os.Stdout, map[string]any{"runs": runs})
	}

	if len(runs) == 0 {
		fmt.Println(" No runs found. Run 'claudemetrics metrics calculate --save' to create one.")
		return nil
	}

	// Oldest first, left to right.
	for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
		runs[i], runs[j] = runs[j], runs[i]
	}

	fmt.Println(output.Section("Runs"))
	runTbl := output.NewTable("Run", "Saved", "Window", "Calculated", "Errors")
	for _, r := range runs {
		errs := fmt.Sprintf("%d", r.TotalErrors)
		if r.TotalErrors > 0 {
			errs = output.StyleWarning.Render(errs)
		}
		runTbl.AddRow(fmt.Sprintf("#%d", r.ID), output.Ago(r.CreatedAt), fmt.Sprintf("%dd", r.WindowDays),
			fmt.Sprintf("%d", r.TotalCalculated), errs)
	}
	runTbl.Print()
	fmt.Println()

	timeline := make([]map[string]float64, len(runs))
	for i, r := range runs {
		values, err := db.GetRunValues(r.ID)
		if err != nil {
			return fmt.Errorf("loading metrics for run #%d: %w", r.ID, err)
		}
		m := make(map[string]float64)
		for _, v := range values {
			if v.Numeric != nil {
				m[v.MetricID] = *v.Numeric
			}
		}
		timeline[i] = m
	}

	fmt.Println(output.Section("Headline metrics"))
	headers := []string{"Metric"}
	for _, r := range runs {
		headers = append(headers, fmt.Sprintf("#%d %s", r.ID, r.CreatedAt.Local().Format("Jan 02")))
	}
	headers = append(headers, "Trend")
	tbl := output.NewTable(headers...)

	for _, id := range headlineMetrics {
		label := id
		if d, ok := catalog.Get(id); ok {
			label = d.Name
		}
		row := []string{label}
		var first, last float64
		seen := 0
		for _, m := range timeline {
			v, ok := m[id]
			if !ok {
				row = append(row, "-")
				continue
			}
			if seen == 0 {
				first = v
			}
			last = v
			seen++
			row = append(row, output.Value(v, ""))
		}
		trend := ""
		if seen >= 2 {
			trend = output.TrendArrow(last-first, !historyLowerIsBetter[id])
		}
		row = append(row, trend)
		tbl.AddRow(row...)
	}
	tbl.Print()
	return nil
}
