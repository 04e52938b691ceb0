// Package metrics defines the derived metric catalog and the engine that
// evaluates it over an extracted window.
package metrics

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// MetricType is the declared shape of a metric's value.
type MetricType string

const (
	Duration      MetricType = "duration"
	Ratio         MetricType = "ratio"
	Int           MetricType = "int"
	Float         MetricType = "float"
	Distribution  MetricType = "distribution"
	Rate          MetricType = "rate"
	Trend         MetricType = "trend"
	CategoryLabel MetricType = "category"
	Compound      MetricType = "compound"
	Sequence      MetricType = "sequence"
	Inverse       MetricType = "inverse"
	Percentage    MetricType = "percentage"
	Binary        MetricType = "binary"
)

// Categories lists the metric categories in evaluation order.
var Categories = []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}

// CategoryNames gives the display name of each category.
var CategoryNames = map[string]string{
	"A": "Time & Activity",
	"B": "Tool Usage",
	"C": "File Operations",
	"D": "Model, Tokens & Cost",
	"E": "Conversation",
	"F": "Context Management",
	"G": "Todos & Plans",
	"H": "Agents",
	"I": "Projects & Branches",
	"J": "Errors",
}

// ExpectedMetrics is the number of metrics in the default catalog.
const ExpectedMetrics = 203

// Registration errors.
var (
	ErrDuplicateMetric   = errors.New("duplicate metric id")
	ErrMissingCalculator = errors.New("metric has no calculator")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrIncompleteCatalog = errors.New("catalog is incomplete")
)

// Definition describes one metric. It carries no computation.
type Definition struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Category     string     `json:"category"`
	Type         MetricType `json:"type"`
	Description  string     `json:"description"`
	Unit         string     `json:"unit,omitempty"`
	Dependencies []string   `json:"dependencies,omitempty"`
}

// CalcFunc computes one metric from the context it is given.
type CalcFunc func(c *Context) (Value, error)

// Metric pairs a definition with its calculator.
type Metric struct {
	Definition
	Calc CalcFunc
}

// Group is the set of metrics of one category.
type Group struct {
	Category string
	Metrics  []Metric
}

// def builds a Definition; the category is filled in at registration.
func def(id, name string, typ MetricType, unit, description string, deps ...string) Definition {
	return Definition{
		ID:           id,
		Name:         name,
		Type:         typ,
		Unit:         unit,
		Description:  description,
		Dependencies: deps,
	}
}

// Catalog is an immutable registry of metrics keyed by ID.
type Catalog struct {
	metrics map[string]Metric
	order   []string
}

// DefaultGroups returns every built-in metric group in category order.
func DefaultGroups() []Group {
	return []Group{
		timeActivityGroup(),
		toolUsageGroup(),
		fileOperationsGroup(),
		modelTokenCostGroup(),
		conversationGroup(),
		contextManagementGroup(),
		todosPlansGroup(),
		agentsGroup(),
		projectsBranchesGroup(),
		errorsGroup(),
	}
}

// NewCatalog builds the built-in catalog and checks that it covers
// D001 through D203.
func NewCatalog() (*Catalog, error) {
	c, err := NewCatalogWith(DefaultGroups()...)
	if err != nil {
		return nil, err
	}
	var missing []string
	for i := 1; i <= ExpectedMetrics; i++ {
		id := fmt.Sprintf("D%03d", i)
		if _, ok := c.metrics[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 || c.Len() != ExpectedMetrics {
		return nil, fmt.Errorf("%w: %d registered, missing %v", ErrIncompleteCatalog, c.Len(), missing)
	}
	return c, nil
}

// MustCatalog is NewCatalog for callers that treat a broken built-in
// catalog as a programming error.
func MustCatalog() *Catalog {
	c, err := NewCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

// NewCatalogWith registers the given groups. It rejects duplicate IDs,
// metrics without a calculator, and unknown categories.
func NewCatalogWith(groups ...Group) (*Catalog, error) {
	c := &Catalog{metrics: make(map[string]Metric)}
	for _, g := range groups {
		if _, ok := CategoryNames[g.Category]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCategory, g.Category)
		}
		for _, m := range g.Metrics {
			if m.Category == "" {
				m.Category = g.Category
			}
			if m.Category != g.Category {
				return nil, fmt.Errorf("%w: %s declares %q inside group %q", ErrUnknownCategory, m.ID, m.Category, g.Category)
			}
			if _, dup := c.metrics[m.ID]; dup {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateMetric, m.ID)
			}
			if m.Calc == nil {
				return nil, fmt.Errorf("%w: %s", ErrMissingCalculator, m.ID)
			}
			c.metrics[m.ID] = m
			c.order = append(c.order, m.ID)
		}
	}
	sort.Strings(c.order)
	return c, nil
}

// Validate reports dependencies that name metrics absent from the catalog.
func (c *Catalog) Validate() error {
	var bad []string
	for _, id := range c.order {
		for _, dep := range c.metrics[id].Dependencies {
			if _, ok := c.metrics[dep]; !ok {
				bad = append(bad, id+"->"+dep)
			}
		}
	}
	if len(bad) > 0 {
		return fmt.Errorf("%w: %s", ErrUnresolvedDependency, strings.Join(bad, ", "))
	}
	return nil
}

// Len returns the number of registered metrics.
func (c *Catalog) Len() int { return len(c.order) }

// Get returns the definition for id.
func (c *Catalog) Get(id string) (Definition, bool) {
	m, ok := c.metrics[id]
	return m.Definition, ok
}

func (c *Catalog) metric(id string) (Metric, bool) {
	m, ok := c.metrics[id]
	return m, ok
}

// All returns every definition sorted by ID.
func (c *Catalog) All() []Definition {
	out := make([]Definition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.metrics[id].Definition)
	}
	return out
}

// ByCategory returns the definitions of one category sorted by ID.
func (c *Catalog) ByCategory(category string) []Definition {
	var out []Definition
	for _, id := range c.order {
		if m := c.metrics[id]; m.Category == category {
			out = append(out, m.Definition)
		}
	}
	return out
}

// ByType returns the definitions with the given declared type.
func (c *Catalog) ByType(t MetricType) []Definition {
	var out []Definition
	for _, id := range c.order {
		if m := c.metrics[id]; m.Type == t {
			out = append(out, m.Definition)
		}
	}
	return out
}

func categoryIndex(cat string) int {
	for i, c := range Categories {
		if c == cat {
			return i
		}
	}
	return len(Categories)
}
