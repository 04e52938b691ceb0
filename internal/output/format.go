package output

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Count formats an integer with thousands separators.
func Count(n int64) string {
	return humanize.Comma(n)
}

// Bytes formats a byte size, e.g. "1.2 MB".
func Bytes(n uint64) string {
	return humanize.Bytes(n)
}

// Ago formats t relative to now, e.g. "3 hours ago".
func Ago(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.Time(t)
}

// Value formats a metric value for a single table cell. Maps are shown as
// their largest entries, lists by length.
func Value(v any, unit string) string {
	var s string
	switch x := v.(type) {
	case nil:
		return StyleMuted.Render("-")
	case float64:
		s = formatFloat(x)
	case int:
		s = humanize.Comma(int64(x))
	case int64:
		s = humanize.Comma(x)
	case bool:
		s = fmt.Sprintf("%t", x)
	case string:
		return x
	case map[string]any:
		return formatMap(x, 3)
	case map[string]int:
		m := make(map[string]any, len(x))
		for k, n := range x {
			m[k] = n
		}
		return formatMap(m, 3)
	case []string:
		return fmt.Sprintf("[%d items]", len(x))
	case []any:
		return fmt.Sprintf("[%d items]", len(x))
	default:
		return fmt.Sprintf("%v", x)
	}
	if unit != "" && unit != "count" {
		s += " " + unit
	}
	return s
}

func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return humanize.Comma(int64(f))
	}
	return humanize.CommafWithDigits(f, 4)
}

func formatMap(m map[string]any, limit int) string {
	if len(m) == 0 {
		return StyleMuted.Render("{}")
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		a, aok := numeric(m[keys[i]])
		b, bok := numeric(m[keys[j]])
		if aok && bok && a != b {
			return a > b
		}
		return keys[i] < keys[j]
	})

	var parts []string
	for i, k := range keys {
		if i == limit {
			parts = append(parts, fmt.Sprintf("+%d more", len(keys)-limit))
			break
		}
		parts = append(parts, fmt.Sprintf("%s=%s", k, Value(m[k], "")))
	}
	return strings.Join(parts, ", ")
}

func numeric(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}
