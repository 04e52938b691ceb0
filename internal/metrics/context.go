package metrics

import (
	"fmt"
	"time"

	"github.com/blackwell-systems/claudemetrics/internal/extract"
)

// Context is what a calculator sees: the window and the values computed so
// far in the run.
type Context struct {
	W *extract.Window

	id     string
	now    time.Time
	engine *Engine
}

// ID is the metric being calculated.
func (c *Context) ID() string { return c.id }

// Now is the run's clock reading.
func (c *Context) Now() time.Time { return c.now }

// Value wraps v as the current metric's value over the whole window.
func (c *Context) Value(v any) Value {
	return c.ValueDays(v, 0)
}

// ValueDays wraps v as a value computed over a shorter span. Zero days
// means the whole window.
func (c *Context) ValueDays(v any, days int) Value {
	if days == 0 && c.W != nil {
		days = c.W.Days
	}
	return Value{
		MetricID:   c.id,
		Value:      v,
		Timestamp:  c.now,
		WindowDays: days,
	}
}

// Dep returns a dependency's value, failing when it has not been computed.
func (c *Context) Dep(id string) (any, error) {
	if v, ok := c.engine.cache[id]; ok {
		return v.Value, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrDependency, id)
}

// DepOr returns a dependency's value, or def when it has not been computed.
func (c *Context) DepOr(id string, def any) any {
	if v, ok := c.engine.cache[id]; ok {
		return v.Value
	}
	return def
}

// DepFloat is Dep for numeric dependencies.
func (c *Context) DepFloat(id string) (float64, error) {
	v, err := c.Dep(id)
	if err != nil {
		return 0, err
	}
	f, ok := toFloat(v)
	if !ok {
		return 0, fmt.Errorf("dependency %s is %T, not a number", id, v)
	}
	return f, nil
}

// DepFloatOr is DepOr for numeric dependencies. Non-numeric values also
// yield def.
func (c *Context) DepFloatOr(id string, def float64) float64 {
	v, ok := c.engine.cache[id]
	if !ok {
		return def
	}
	f, isNum := toFloat(v.Value)
	if !isNum {
		return def
	}
	return f
}

// WithBreakdown returns v with a breakdown attached.
func (v Value) WithBreakdown(b map[string]any) Value {
	v.Breakdown = b
	return v
}

// WithMetadata returns v with metadata attached.
func (v Value) WithMetadata(m map[string]any) Value {
	v.Metadata = m
	return v
}

// WithTrend returns v with a trend slope attached.
func (v Value) WithTrend(t float64) Value {
	v.Trend = &t
	return v
}
