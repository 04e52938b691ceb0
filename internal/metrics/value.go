package metrics

import (
	"errors"
	"fmt"
	"time"
)

// Value is the computed result of one metric.
type Value struct {
	MetricID   string         `json:"metric_id"`
	Value      any            `json:"value"`
	Timestamp  time.Time      `json:"timestamp"`
	WindowDays int            `json:"window_days"`
	Breakdown  map[string]any `json:"breakdown,omitempty"`
	Trend      *float64       `json:"trend,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Float returns the value as a float64 when it is numeric.
func (v Value) Float() (float64, bool) {
	return toFloat(v.Value)
}

// ErrorKind classifies a metric failure.
type ErrorKind string

const (
	KindCalculation          ErrorKind = "calculation"
	KindDependency           ErrorKind = "dependency"
	KindNotImplemented       ErrorKind = "not_implemented"
	KindCyclicDependency     ErrorKind = "cyclic_dependency"
	KindUnresolvedDependency ErrorKind = "unresolved_dependency"
	KindPanic                ErrorKind = "panic"
)

// Sentinel errors for dependency handling and ordering.
var (
	ErrDependency           = errors.New("dependency not calculated")
	ErrNotImplemented       = errors.New("not implemented")
	ErrCyclicDependency     = errors.New("cyclic dependency")
	ErrUnresolvedDependency = errors.New("unresolved dependency")
)

// MetricError records why one metric has no value.
type MetricError struct {
	MetricID string    `json:"metric_id"`
	Kind     ErrorKind `json:"kind"`
	Message  string    `json:"error"`
}

func (e *MetricError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.MetricID, e.Kind, e.Message)
}

// Result is either a value or an error for one metric.
type Result struct {
	Value *Value       `json:"value,omitempty"`
	Err   *MetricError `json:"error,omitempty"`
}

// Ok reports whether the metric produced a value.
func (r Result) Ok() bool { return r.Err == nil && r.Value != nil }

func succeeded(v Value) Result { return Result{Value: &v} }

func failed(id string, kind ErrorKind, msg string) Result {
	return Result{Err: &MetricError{MetricID: id, Kind: kind, Message: msg}}
}

// OrderError is returned by strict ordering when the dependency graph
// cannot be ordered.
type OrderError struct {
	Kind    ErrorKind
	Metrics []string
	Missing []string
}

func (e *OrderError) Error() string {
	switch e.Kind {
	case KindCyclicDependency:
		return fmt.Sprintf("cyclic dependency among %v", e.Metrics)
	default:
		return fmt.Sprintf("unresolved dependencies %v required by %v", e.Missing, e.Metrics)
	}
}

func (e *OrderError) Unwrap() error {
	if e.Kind == KindCyclicDependency {
		return ErrCyclicDependency
	}
	return ErrUnresolvedDependency
}

// classify maps a calculator error onto an ErrorKind.
func classify(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrDependency):
		return KindDependency
	case errors.Is(err, ErrNotImplemented):
		return KindNotImplemented
	default:
		return KindCalculation
	}
}
