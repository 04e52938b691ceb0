package app

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/claudemetrics/internal/config"
	"github.com/blackwell-systems/claudemetrics/internal/extract"
	"github.com/blackwell-systems/claudemetrics/internal/metrics"
	"github.com/blackwell-systems/claudemetrics/internal/output"
	"github.com/blackwell-systems/claudemetrics/internal/store"
)

var (
	metricsDays       int
	metricsCategories []string
	metricsOutputFile string
	metricsLenient    bool
	metricsSave       bool
	metricsDetail     bool
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Calculate, list, and report derived metrics",
	Long: `Compute the catalog of derived metrics over the trailing window.

Metrics are grouped into categories A through J. A metric that fails is
recorded with its error and never stops the others.`,
}

var metricsCalculateCmd = &cobra.Command{
	Use:   "calculate",
	Short: "Calculate metrics and write them as JSON",
	Long: `Calculate every metric (or those of the given categories plus their
dependencies) and write the run as JSON to stdout or --output.

Examples:
  claudemetrics metrics calculate
  claudemetrics metrics calculate --category A --category D
  claudemetrics metrics calculate --days 7 --output week.json --save`,
	RunE: runMetricsCalculate,
}

var metricsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the metric catalog",
	RunE:  runMetricsList,
}

var metricsReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Calculate metrics and print them grouped by category",
	RunE:  runMetricsReport,
}

func init() {
	for _, c := range []*cobra.Command{metricsCalculateCmd, metricsReportCmd} {
		c.Flags().IntVar(&metricsDays, "days", 0, "Number of days to analyze (default: window_days from config)")
		c.Flags().BoolVar(&metricsLenient, "lenient", false, "Order dependencies leniently instead of rejecting cycles")
		c.Flags().StringSliceVar(&metricsCategories, "category", nil, "Limit to categories (A-J); repeatable")
	}
	metricsCalculateCmd.Flags().StringVarP(&metricsOutputFile, "output", "o", "", "Write JSON to this file instead of stdout")
	metricsCalculateCmd.Flags().BoolVar(&metricsSave, "save", false, "Save the run to the database")
	metricsReportCmd.Flags().BoolVar(&metricsDetail, "detail", false, "Show every metric instead of a sample per category")
	metricsListCmd.Flags().StringSliceVar(&metricsCategories, "category", nil, "Limit to categories (A-J); repeatable")

	metricsCmd.AddCommand(metricsCalculateCmd, metricsListCmd, metricsReportCmd)
	rootCmd.AddCommand(metricsCmd)
}

// normalizeCategories upper-cases the --category values and rejects
// unknown letters.
func normalizeCategories(raw []string) ([]string, error) {
	var out []string
	for _, c := range raw {
		c = strings.ToUpper(strings.TrimSpace(c))
		if _, ok := metrics.CategoryNames[c]; !ok {
			return nil, fmt.Errorf("unknown category %q (want one of %s)", c, strings.Join(metrics.Categories, ", "))
		}
		out = append(out, c)
	}
	return out, nil
}

// runEngine builds the window and evaluates the requested categories. An
// ordering failure is returned alongside the engine so callers can still
// report the metrics marked as failed.
func runEngine(cfg *config.Config, days int, categories []string) (*metrics.Engine, error) {
	catalog, err := metrics.NewCatalog()
	if err != nil {
		return nil, fmt.Errorf("building catalog: %w", err)
	}

	w, err := buildWindow(cfg, windowDays(cfg, days))
	if err != nil {
		return nil, err
	}

	opts := []metrics.Option{
		metrics.WithProgress(func(id, status string) {
			if status == metrics.StatusError {
				verbosef("metric %s failed", id)
			}
		}),
	}
	if metricsLenient || cfg.Lenient() {
		opts = append(opts, metrics.WithLenientOrdering())
	}
	engine := metrics.NewEngine(catalog, w, opts...)

	if _, err := engine.CalculateAll(categories...); err != nil {
		return engine, fmt.Errorf("ordering metrics: %w", err)
	}
	s := engine.Summary()
	verbosef("calculated %d metrics, %d errors", s.TotalCalculated, s.TotalErrors)
	return engine, nil
}

func runMetricsCalculate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	categories, err := normalizeCategories(metricsCategories)
	if err != nil {
		return err
	}

	engine, runErr := runEngine(cfg, metricsDays, categories)
	if engine == nil {
		return runErr
	}

	out := os.Stdout
	if metricsOutputFile != "" {
		f, err := os.Create(metricsOutputFile)
		if err != nil {
			return fmt.Errorf("creating %s: %w", metricsOutputFile, err)
		}
		defer func() { _ = f.Close() }()
		out = f
	}
	if err := engine.WriteJSON(out); err != nil {
		return err
	}
	if metricsOutputFile != "" {
		s := engine.Summary()
		fmt.Fprintf(os.Stderr, "wrote %d metrics (%d errors) to %s\n", s.TotalCalculated, s.TotalErrors, metricsOutputFile)
	}

	if metricsSave {
		id, err := saveRun(cfg, engine)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "saved run #%d (%s)\n", id, engine.RunID())
	}
	return runErr
}

// saveRun persists the engine's values, errors and window sessions.
func saveRun(cfg *config.Config, engine *metrics.Engine) (int64, error) {
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return 0, fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()

	w := engine.Window()
	ordering := config.OrderingStrict
	if metricsLenient || cfg.Lenient() {
		ordering = config.OrderingLenient
	}
	run := &store.Run{
		UUID:        engine.RunID(),
		WindowStart: w.Start,
		WindowEnd:   w.End,
		WindowDays:  w.Days,
		Ordering:    ordering,
	}
	id, err := db.SaveRun(run, engine.Values(), engine.Errors())
	if err != nil {
		return 0, fmt.Errorf("saving run: %w", err)
	}
	if err := db.SaveSessions(id, w.Sessions); err != nil {
		return 0, fmt.Errorf("saving sessions: %w", err)
	}
	return id, nil
}

func runMetricsList(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}
	categories, err := normalizeCategories(metricsCategories)
	if err != nil {
		return err
	}
	if len(categories) == 0 {
		categories = metrics.Categories
	}

	catalog, err := metrics.NewCatalog()
	if err != nil {
		return fmt.Errorf("building catalog: %w", err)
	}

	var defs []metrics.Definition
	for _, c := range categories {
		defs = append(defs, catalog.ByCategory(c)...)
	}

	if flagJSON {
		return writeJSON(os.Stdout, map[string]any{"metrics": defs, "total": len(defs)})
	}

	for _, c := range categories {
		fmt.Println(output.Section(fmt.Sprintf("%s  %s", c, metrics.CategoryNames[c])))
		tbl := output.NewTable("ID", "Name", "Type", "Depends on")
		for _, d := range catalog.ByCategory(c) {
			tbl.AddRow(d.ID, d.Name, string(d.Type), strings.Join(d.Dependencies, " "))
		}
		tbl.Print()
	}
	fmt.Printf("\n %s\n\n", output.StyleMuted.Render(fmt.Sprintf("%d metrics", len(defs))))
	return nil
}

func runMetricsReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	categories, err := normalizeCategories(metricsCategories)
	if err != nil {
		return err
	}

	engine, runErr := runEngine(cfg, metricsDays, categories)
	if engine == nil {
		return runErr
	}

	if flagJSON {
		if err := engine.WriteJSON(os.Stdout); err != nil {
			return err
		}
		return runErr
	}

	sample := cfg.Output.SampleSize
	if metricsDetail {
		sample = 0
	}
	renderReport(engine, categories, sample, cfg.Output.Width)

	var oe *metrics.OrderError
	if errors.As(runErr, &oe) {
		fmt.Printf(" %s\n\n", output.StyleError.Render(oe.Error()))
	}
	return runErr
}

// windowLine describes a window for report headers.
func windowLine(w *extract.Window) string {
	return fmt.Sprintf("%s → %s (%d days)", w.Start.Format("2006-01-02"), w.End.Format("2006-01-02"), w.Days)
}
