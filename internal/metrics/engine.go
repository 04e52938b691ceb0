package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/blackwell-systems/claudemetrics/internal/extract"
)

// Progress statuses passed to a ProgressFunc.
const (
	StatusCalculating = "calculating"
	StatusDone        = "done"
	StatusError       = "error"
)

// ProgressFunc is called inline before and after each metric.
type ProgressFunc func(metricID, status string)

// Option configures an Engine.
type Option func(*Engine)

// WithLenientOrdering orders each category with a bounded scan instead of
// rejecting unorderable dependency graphs.
func WithLenientOrdering() Option {
	return func(e *Engine) { e.lenient = true }
}

// WithProgress installs a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Engine) { e.progress = fn }
}

// WithClock overrides the clock used for value timestamps and "today".
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.clock = now }
}

// WithRunID sets the identifier stamped on the report.
func WithRunID(id string) Option {
	return func(e *Engine) { e.runID = id }
}

// Engine evaluates catalog metrics over one window and caches the results.
// It is not safe for concurrent use.
type Engine struct {
	catalog  *Catalog
	window   *extract.Window
	lenient  bool
	progress ProgressFunc
	clock    func() time.Time
	runID    string

	now     time.Time
	cache   map[string]Value
	results map[string]Result
}

// NewEngine returns an engine for window using catalog.
func NewEngine(catalog *Catalog, window *extract.Window, opts ...Option) *Engine {
	e := &Engine{
		catalog: catalog,
		window:  window,
		clock:   time.Now,
		cache:   make(map[string]Value),
		results: make(map[string]Result),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.runID == "" {
		e.runID = uuid.NewString()
	}
	e.now = e.clock()
	return e
}

// RunID identifies this engine's run.
func (e *Engine) RunID() string { return e.runID }

// Window returns the window the engine evaluates.
func (e *Engine) Window() *extract.Window { return e.window }

// Catalog returns the engine's catalog.
func (e *Engine) Catalog() *Catalog { return e.catalog }

// CalculateAll evaluates every metric of the given categories (all when
// none are given) and returns the cached values. In strict mode an
// unorderable graph is reported as an *OrderError and nothing is computed;
// the affected metrics are recorded as failed.
func (e *Engine) CalculateAll(categories ...string) (map[string]Value, error) {
	cats := orderedCategories(categories)

	if e.lenient {
		for _, cat := range cats {
			order := planLenient(e.catalog.ByCategory(cat), func(id string) bool {
				_, ok := e.cache[id]
				return ok
			})
			for _, id := range order {
				e.evaluate(id)
			}
		}
		return e.Values(), nil
	}

	order, err := planStrict(e.catalog, cats)
	if err != nil {
		if oe, isOrder := err.(*OrderError); isOrder {
			for _, id := range oe.Metrics {
				e.results[id] = failed(id, oe.Kind, oe.Error())
			}
		}
		return e.Values(), err
	}

	requested := make(map[string]bool, len(cats))
	for _, c := range cats {
		requested[c] = true
	}
	for _, id := range order {
		m, _ := e.catalog.metric(id)
		if _, done := e.cache[id]; done && !requested[m.Category] {
			continue
		}
		e.evaluate(id)
	}
	return e.Values(), nil
}

// CalculateMetric returns the value of one metric, computing it and its
// dependencies if needed. Unknown IDs and failed metrics return false.
func (e *Engine) CalculateMetric(id string) (Value, bool) {
	return e.calculateMetric(id, make(map[string]bool))
}

func (e *Engine) calculateMetric(id string, visiting map[string]bool) (Value, bool) {
	if v, ok := e.cache[id]; ok {
		return v, true
	}
	m, ok := e.catalog.metric(id)
	if !ok || visiting[id] {
		return Value{}, false
	}
	visiting[id] = true
	for _, dep := range m.Dependencies {
		if _, ok := e.cache[dep]; !ok {
			e.calculateMetric(dep, visiting)
		}
	}
	e.evaluate(id)
	v, ok := e.cache[id]
	return v, ok
}

func (e *Engine) evaluate(id string) {
	m, ok := e.catalog.metric(id)
	if !ok {
		return
	}
	e.report(id, StatusCalculating)

	v, err := e.run(m)
	if err != nil {
		delete(e.cache, id)
		kind := KindPanic
		if _, isPanic := err.(panicError); !isPanic {
			kind = classify(err)
		}
		e.results[id] = failed(id, kind, err.Error())
		e.report(id, StatusError)
		return
	}

	if f, isFloat := v.Value.(float64); isFloat && !isFinite(f) {
		delete(e.cache, id)
		e.results[id] = failed(id, KindCalculation, fmt.Sprintf("non-finite value %v", f))
		e.report(id, StatusError)
		return
	}
	if v.MetricID == "" {
		v.MetricID = id
	}
	if v.Timestamp.IsZero() {
		v.Timestamp = e.now
	}
	e.cache[id] = v
	e.results[id] = succeeded(v)
	e.report(id, StatusDone)
}

type panicError struct{ value any }

func (p panicError) Error() string { return fmt.Sprintf("panic: %v", p.value) }

func (e *Engine) run(m Metric) (v Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{r}
		}
	}()
	return m.Calc(&Context{
		W:      e.window,
		id:     m.ID,
		now:    e.now,
		engine: e,
	})
}

func (e *Engine) report(id, status string) {
	if e.progress != nil {
		e.progress(id, status)
	}
}

func orderedCategories(requested []string) []string {
	if len(requested) == 0 {
		return Categories
	}
	want := make(map[string]bool, len(requested))
	for _, c := range requested {
		want[c] = true
	}
	var out []string
	for _, c := range Categories {
		if want[c] {
			out = append(out, c)
		}
	}
	return out
}

// Values returns a copy of the cached values.
func (e *Engine) Values() map[string]Value {
	out := make(map[string]Value, len(e.cache))
	for id, v := range e.cache {
		out[id] = v
	}
	return out
}

// Value returns the cached value of a metric.
func (e *Engine) Value(id string) (Value, bool) {
	v, ok := e.cache[id]
	return v, ok
}

// Results returns the outcome of every metric evaluated so far.
func (e *Engine) Results() map[string]Result {
	out := make(map[string]Result, len(e.results))
	for id, r := range e.results {
		out[id] = r
	}
	return out
}

// Errors lists the failed metrics sorted by ID.
func (e *Engine) Errors() []MetricError {
	var out []MetricError
	for _, r := range e.results {
		if r.Err != nil {
			out = append(out, *r.Err)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MetricID < out[j].MetricID })
	return out
}

// MetricsByType returns the cached values whose definition has type t.
func (e *Engine) MetricsByType(t MetricType) map[string]Value {
	out := make(map[string]Value)
	for id, v := range e.cache {
		if d, ok := e.catalog.Get(id); ok && d.Type == t {
			out[id] = v
		}
	}
	return out
}

// CategorySummary lists the calculated metrics of one category.
type CategorySummary struct {
	Count   int      `json:"count"`
	Metrics []string `json:"metrics"`
}

// Summary describes a run.
type Summary struct {
	TotalCalculated int                        `json:"total_calculated"`
	TotalErrors     int                        `json:"total_errors"`
	Categories      map[string]CategorySummary `json:"categories"`
	WindowDays      int                        `json:"window_days"`
	WindowStart     time.Time                  `json:"window_start"`
	WindowEnd       time.Time                  `json:"window_end"`
}

// Summary counts calculated metrics per category.
func (e *Engine) Summary() Summary {
	s := Summary{
		TotalCalculated: len(e.cache),
		TotalErrors:     len(e.Errors()),
		Categories:      make(map[string]CategorySummary),
	}
	if e.window != nil {
		s.WindowDays = e.window.Days
		s.WindowStart = e.window.Start
		s.WindowEnd = e.window.End
	}

	ids := make([]string, 0, len(e.cache))
	for id := range e.cache {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		cat := "?"
		if d, ok := e.catalog.Get(id); ok {
			cat = d.Category
		}
		cs := s.Categories[cat]
		cs.Count++
		cs.Metrics = append(cs.Metrics, id)
		s.Categories[cat] = cs
	}
	return s
}

// Report is the serialized form of a run.
type Report struct {
	RunID       string           `json:"run_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Summary     Summary          `json:"summary"`
	Metrics     map[string]Value `json:"metrics"`
	Errors      []MetricError    `json:"errors"`
}

// Report snapshots the engine's current state.
func (e *Engine) Report() Report {
	errs := e.Errors()
	if errs == nil {
		errs = []MetricError{}
	}
	return Report{
		RunID:       e.runID,
		GeneratedAt: e.clock(),
		Summary:     e.Summary(),
		Metrics:     e.Values(),
		Errors:      errs,
	}
}

// WriteJSON writes the report as indented JSON.
func (e *Engine) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(e.Report()); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}
