package app

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/blackwell-systems/claudemetrics/internal/extract"
	"github.com/blackwell-systems/claudemetrics/internal/output"
)

var extractDays int

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Build the time window and summarize what it holds",
	Long: `Read every session transcript, the stats cache, todo lists and
file-history backups under the Claude home directory, and summarize the
trailing window they produce.

With --json the full window (sessions, messages, tool calls and rollups)
is written to stdout.`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().IntVar(&extractDays, "days", 0, "Number of days to include (default: window_days from config)")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	w, err := buildWindow(cfg, windowDays(cfg, extractDays))
	if err != nil {
		return err
	}

	if flagJSON {
		return writeJSON(os.Stdout, w)
	}
	renderWindow(w)
	return nil
}

func renderWindow(w *extract.Window) {
	fmt.Println(output.Section(fmt.Sprintf("Window: %d days", w.Days)))
	printField("From", w.Start.Format("2006-01-02 15:04"))
	printField("To", w.End.Format("2006-01-02 15:04"))
	printField("Sessions", output.Count(int64(w.TotalSessions)))
	printField("Messages", output.Count(int64(w.TotalMessages)))
	printField("Tool calls", output.Count(int64(w.TotalToolCalls)))
	printField("Active days", fmt.Sprintf("%d", len(w.ActiveDates)))
	printField("Cost", fmt.Sprintf("$%.2f", w.TotalCostUSD))
	fmt.Println()

	fmt.Println(output.Section("Tokens"))
	printField("Input", output.Count(w.TotalTokens.Input))
	printField("Output", output.Count(w.TotalTokens.Output))
	printField("Cache read", output.Count(w.TotalTokens.CacheRead))
	fmt.Println()

	if len(w.ModelUsage) > 0 {
		fmt.Println(output.Section("Models"))
		tbl := output.NewTable("Model", "Messages", "Output tokens", "Cost")
		models := make([]string, 0, len(w.ModelUsage))
		for m := range w.ModelUsage {
			models = append(models, m)
		}
		sort.Strings(models)
		for _, m := range models {
			u := w.ModelUsage[m]
			tbl.AddRow(m, output.Count(int64(u.MessageCount)), output.Count(u.OutputTokens), fmt.Sprintf("$%.2f", u.CostUSD))
		}
		tbl.Print()
		fmt.Println()
	}

	if len(w.ToolCounts) > 0 {
		fmt.Println(output.Section("Top tools"))
		for i, kv := range sortMapByValue(w.ToolCounts) {
			if i == 8 {
				break
			}
			printField(kv.key, output.Count(int64(kv.value)))
		}
		fmt.Println()
	}
}

func printField(label, value string) {
	fmt.Printf(" %s %s\n", output.StyleLabel.Render(label), output.StyleValue.Render(value))
}

type kv struct {
	key   string
	value int
}

// sortMapByValue orders entries by descending value, ties by key.
func sortMapByValue(m map[string]int) []kv {
	out := make([]kv, 0, len(m))
	for k, v := range m {
		out = append(out, kv{k, v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].value != out[j].value {
			return out[i].value > out[j].value
		}
		return out[i].key < out[j].key
	})
	return out
}
