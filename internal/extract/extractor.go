package extract

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/blackwell-systems/claudemetrics/internal/claude"
)

// DefaultDays is the window length used when Options.Days is not positive.
const DefaultDays = 30

// Progress statuses reported to a ProgressFunc.
const (
	StatusStarted = "extracting"
	StatusDone    = "done"
	StatusError   = "error"
)

// ProgressFunc is called inline as each stage and session file is processed.
type ProgressFunc func(stage, status string)

// Options configures an Extractor.
type Options struct {
	// ClaudeHome is the Claude Code data directory (usually ~/.claude).
	ClaudeHome string

	// Days is the trailing window length.
	Days int

	// Now is the end of the window. Zero means time.Now().
	Now time.Time

	// EstimateCost prices records without a recorded cost from their token
	// usage.
	EstimateCost bool

	Progress ProgressFunc
}

// Extractor builds a Window from the files under ClaudeHome.
type Extractor struct {
	opts   Options
	cutoff time.Time
	now    time.Time

	// Skipped lists files that could not be read, with the reason.
	Skipped []string
}

// New returns an Extractor for opts.
func New(opts Options) *Extractor {
	if opts.Days <= 0 {
		opts.Days = DefaultDays
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return &Extractor{
		opts:   opts,
		now:    now,
		cutoff: now.Add(-time.Duration(opts.Days) * 24 * time.Hour),
	}
}

// Cutoff returns the start of the window.
func (e *Extractor) Cutoff() time.Time {
	return e.cutoff
}

// Extract reads every source and returns the window. Unreadable individual
// files are skipped and listed in Skipped; only a failure to enumerate the
// projects directory is returned as an error.
func (e *Extractor) Extract() (*Window, error) {
	w := NewWindow(e.now, e.opts.Days)

	steps := []struct {
		name string
		fn   func(*Window) error
	}{
		{"sessions", e.extractSessions},
		{"stats-cache", e.extractStatsCache},
		{"tool-calls", e.aggregateToolCalls},
		{"file-operations", aggregateFileOperations},
		{"model-usage", aggregateModelUsage},
		{"hourly-distribution", computeHourlyDistribution},
		{"active-dates", computeActiveDates},
		{"daily-activity", fillDailyActivity},
		{"todos", e.attachTodos},
		{"file-history", e.attachFileHistory},
	}
	for _, step := range steps {
		e.progress(step.name, StatusStarted)
		if err := step.fn(w); err != nil {
			e.progress(step.name, StatusError)
			return nil, fmt.Errorf("extracting %s: %w", step.name, err)
		}
		e.progress(step.name, StatusDone)
	}
	return w, nil
}

func (e *Extractor) progress(stage, status string) {
	if e.opts.Progress != nil {
		e.opts.Progress(stage, status)
	}
}

func (e *Extractor) skip(path string, err error) {
	e.Skipped = append(e.Skipped, fmt.Sprintf("%s: %v", path, err))
	e.progress(filepath.Base(path), StatusError)
}

func (e *Extractor) reconstructOptions() claude.ReconstructOptions {
	ro := claude.ReconstructOptions{Cutoff: e.cutoff, Now: e.now}
	if e.opts.EstimateCost {
		ro.EstimateCost = EstimateCost
	}
	return ro
}

// extractSessions reconstructs every transcript under projects/ and keeps
// the ones with in-window messages.
func (e *Extractor) extractSessions(w *Window) error {
	projects, err := claude.ListProjects(e.opts.ClaudeHome)
	if err != nil {
		return err
	}
	ro := e.reconstructOptions()

	for _, p := range projects {
		files, err := p.SessionFiles()
		if err != nil {
			e.skip(p.Path, err)
			continue
		}
		for _, path := range files {
			rc, err := claude.ReconstructSession(path, p.ProjectPath, ro)
			if err != nil {
				e.skip(path, err)
				continue
			}
			if rc == nil {
				continue
			}
			s := rc.Session
			w.Sessions = append(w.Sessions, *s)
			w.Messages = append(w.Messages, rc.Messages...)
			w.TotalSessions++
			w.TotalMessages += s.MessageCount
			w.TotalCostUSD += s.CostUSD
			w.TotalTokens.Input += s.TotalInputTokens
			w.TotalTokens.Output += s.TotalOutputTokens
			w.TotalTokens.CacheRead += s.TotalCacheReadTokens
		}
	}
	return nil
}

// extractStatsCache folds in the daily rows dated on or after the cutoff
// date and the all-time hour counts.
func (e *Extractor) extractStatsCache(w *Window) error {
	stats, err := claude.ParseStatsCache(e.opts.ClaudeHome)
	if err != nil {
		e.skip(filepath.Join(e.opts.ClaudeHome, "stats-cache.json"), err)
		return nil
	}
	if stats == nil {
		return nil
	}

	for _, d := range stats.DailySince(e.cutoff.Format("2006-01-02")) {
		w.DailyActivity = append(w.DailyActivity, DailyActivity{
			Date:          d.Date,
			SessionCount:  d.SessionCount,
			MessageCount:  d.Messages(),
			ToolCallCount: d.Tools(),
			CostUSD:       d.TotalCost,
			InputTokens:   d.InputTokens,
			OutputTokens:  d.OutputTokens,
		})
	}
	for h, n := range stats.Hours() {
		w.HourlyDistribution[h] = n
	}
	return nil
}

// aggregateToolCalls re-reads each in-window session file and collects its
// tool calls.
func (e *Extractor) aggregateToolCalls(w *Window) error {
	ro := e.reconstructOptions()
	for _, s := range w.Sessions {
		if s.SourcePath == "" {
			continue
		}
		rc, err := claude.ReconstructSession(s.SourcePath, s.ProjectPath, ro)
		if err != nil {
			e.skip(s.SourcePath, err)
			continue
		}
		if rc == nil {
			continue
		}
		for _, tc := range rc.ToolCalls {
			w.ToolCalls = append(w.ToolCalls, tc)
			w.ToolCounts[tc.Name]++
			w.TotalToolCalls++
		}
	}
	return nil
}

func aggregateFileOperations(w *Window) error {
	for _, tc := range w.ToolCalls {
		if tc.FilePath == "" {
			continue
		}
		switch tc.Name {
		case "Read":
			w.FilesRead[tc.FilePath]++
		case "Edit":
			w.FilesEdited[tc.FilePath]++
		case "Write":
			w.FilesWritten[tc.FilePath]++
		}
	}
	return nil
}

// aggregateModelUsage splits each session's totals evenly across the models
// it used: integer division for counts, float division for cost.
func aggregateModelUsage(w *Window) error {
	for _, s := range w.Sessions {
		n := len(s.ModelsUsed)
		if n == 0 {
			continue
		}
		for _, model := range s.ModelsUsed {
			mu := w.ModelUsage[model]
			mu.Model = model
			mu.MessageCount += s.MessageCount / n
			mu.InputTokens += s.TotalInputTokens / int64(n)
			mu.OutputTokens += s.TotalOutputTokens / int64(n)
			mu.CacheReadTokens += s.TotalCacheReadTokens / int64(n)
			mu.CostUSD += s.CostUSD / float64(n)
			w.ModelUsage[model] = mu
		}
	}
	return nil
}

// computeHourlyDistribution counts session start hours when the stats cache
// supplied no hour data.
func computeHourlyDistribution(w *Window) error {
	for _, n := range w.HourlyDistribution {
		if n != 0 {
			return nil
		}
	}
	for _, s := range w.Sessions {
		if s.StartTime.IsZero() {
			continue
		}
		w.HourlyDistribution[s.StartTime.Hour()]++
	}
	return nil
}

func computeActiveDates(w *Window) error {
	seen := make(map[string]bool)
	for _, s := range w.Sessions {
		if s.StartTime.IsZero() {
			continue
		}
		seen[s.StartTime.Format("2006-01-02")] = true
	}
	w.ActiveDates = make([]string, 0, len(seen))
	for d := range seen {
		w.ActiveDates = append(w.ActiveDates, d)
	}
	sort.Strings(w.ActiveDates)
	return nil
}

// fillDailyActivity adds rows derived from sessions for active dates the
// stats cache has no row for, then sorts the rows by date.
func fillDailyActivity(w *Window) error {
	have := make(map[string]bool, len(w.DailyActivity))
	for _, d := range w.DailyActivity {
		have[d.Date] = true
	}

	derived := make(map[string]*DailyActivity)
	costs := make(map[string]decimal.Decimal)
	for _, s := range w.Sessions {
		if s.StartTime.IsZero() {
			continue
		}
		date := s.StartTime.Format("2006-01-02")
		if have[date] {
			continue
		}
		d, ok := derived[date]
		if !ok {
			d = &DailyActivity{Date: date}
			derived[date] = d
		}
		d.SessionCount++
		d.MessageCount += s.MessageCount
		d.ToolCallCount += s.ToolCallCount
		d.InputTokens += s.TotalInputTokens
		d.OutputTokens += s.TotalOutputTokens
		d.ActiveHours += float64(s.DurationMs) / 3_600_000.0
		costs[date] = costs[date].Add(decimal.NewFromFloat(s.CostUSD))
	}
	for date, d := range derived {
		d.CostUSD = costs[date].InexactFloat64()
		w.DailyActivity = append(w.DailyActivity, *d)
	}

	sort.SliceStable(w.DailyActivity, func(i, j int) bool {
		return w.DailyActivity[i].Date < w.DailyActivity[j].Date
	})
	return nil
}

// attachTodos keeps the todo lists of in-window sessions.
func (e *Extractor) attachTodos(w *Window) error {
	todos, err := claude.ParseAllTodos(e.opts.ClaudeHome)
	if err != nil {
		e.skip(filepath.Join(e.opts.ClaudeHome, "todos"), err)
		return nil
	}
	inWindow := sessionIDs(w)
	for id, tasks := range claude.TodosBySession(todos) {
		if inWindow[id] {
			w.Todos[id] = tasks
		}
	}
	return nil
}

// attachFileHistory keeps the backup summaries of in-window sessions.
func (e *Extractor) attachFileHistory(w *Window) error {
	history, err := claude.ParseAllFileHistory(e.opts.ClaudeHome)
	if err != nil {
		e.skip(filepath.Join(e.opts.ClaudeHome, "file-history"), err)
		return nil
	}
	inWindow := sessionIDs(w)
	for _, fh := range history {
		if inWindow[fh.SessionID] {
			w.FileHistory[fh.SessionID] = fh
		}
	}
	return nil
}

func sessionIDs(w *Window) map[string]bool {
	ids := make(map[string]bool, len(w.Sessions))
	for _, s := range w.Sessions {
		ids[s.ID] = true
	}
	return ids
}

func round4(v float64) float64 {
	return decimal.NewFromFloat(v).Round(4).InexactFloat64()
}
