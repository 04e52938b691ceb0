package app

import (
	"fmt"
	"sort"

	"github.com/blackwell-systems/claudemetrics/internal/metrics"
	"github.com/blackwell-systems/claudemetrics/internal/output"
)

// lowerIsBetter lists trended metrics where a falling slope is an
// improvement.
var lowerIsBetter = map[string]bool{
	"D088": true, // token growth
	"D102": true, // cost
}

// renderReport prints the engine's results grouped by category. sample
// caps the rows per category; zero shows everything.
func renderReport(engine *metrics.Engine, categories []string, sample, width int) {
	if len(categories) == 0 {
		categories = metrics.Categories
	}
	catalog := engine.Catalog()
	values := engine.Values()
	results := engine.Results()
	summary := engine.Summary()

	fmt.Println(output.SectionWidth("Metrics report", width-14))
	printField("Window", windowLine(engine.Window()))
	printField("Run", engine.RunID())
	printField("Calculated", output.Count(int64(summary.TotalCalculated)))
	printField("Errors", output.Count(int64(summary.TotalErrors)))
	fmt.Println()

	for _, cat := range categories {
		defs := catalog.ByCategory(cat)
		done := 0
		for _, d := range defs {
			if _, ok := values[d.ID]; ok {
				done++
			}
		}

		title := fmt.Sprintf("%s  %s  %s", cat, metrics.CategoryNames[cat], output.RatioBar(done, len(defs), 10))
		fmt.Println(output.SectionWidth(title, width-14))

		tbl := output.NewTable("ID", "Metric", "Value", "Trend")
		shown := 0
		for _, d := range defs {
			if sample > 0 && shown == sample {
				break
			}
			if r, ok := results[d.ID]; ok && r.Err != nil {
				tbl.AddRow(d.ID, d.Name, output.StyleError.Render(string(r.Err.Kind)), "")
				shown++
				continue
			}
			v, ok := values[d.ID]
			if !ok {
				continue
			}
			trend := ""
			if v.Trend != nil {
				trend = output.TrendArrow(*v.Trend, !lowerIsBetter[d.ID])
			}
			tbl.AddRow(d.ID, d.Name, output.Value(v.Value, d.Unit), trend)
			shown++
		}
		tbl.Print()
		if hidden := len(defs) - shown; hidden > 0 {
			fmt.Printf(" %s\n", output.StyleMuted.Render(fmt.Sprintf("… %d more (use --detail)", hidden)))
		}
		fmt.Println()
	}

	renderErrors(engine.Errors())
}

func renderErrors(errs []metrics.MetricError) {
	if len(errs) == 0 {
		return
	}
	fmt.Println(output.Section("Errors"))
	sort.Slice(errs, func(i, j int) bool { return errs[i].MetricID < errs[j].MetricID })
	for _, e := range errs {
		fmt.Printf(" %s %s %s\n",
			output.StyleBold.Render(e.MetricID),
			output.StyleError.Render(string(e.Kind)),
			output.StyleMuted.Render(e.Message))
	}
	fmt.Println()
}
