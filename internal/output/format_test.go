package output

import (
	"strings"
	"testing"
	"time"
)

func TestValue(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	tests := []struct {
		name string
		v    any
		unit string
		want string
	}{
		{"nil", nil, "", "-"},
		{"whole float", 1234.0, "count", "1,234"},
		{"fraction with unit", 0.5, "ratio", "0.5 ratio"},
		{"rounded float", 1.23456789, "", "1.2346"},
		{"int", 12345, "", "12,345"},
		{"int64 with unit", int64(42), "tokens", "42 tokens"},
		{"bool", true, "", "true"},
		{"sentinel string", "None", "", "None"},
		{"empty map", map[string]any{}, "", "{}"},
		{"map ordered by size", map[string]any{"Read": 3, "Edit": 5, "Bash": 1}, "", "Edit=5, Read=3, Bash=1"},
		{"map truncated", map[string]any{"a": 4, "b": 3, "c": 2, "d": 1}, "", "a=4, b=3, c=2, +1 more"},
		{"int map", map[string]int{"x": 1}, "", "x=1"},
		{"list", []string{"a", "b"}, "", "[2 items]"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Value(tc.v, tc.unit); got != tc.want {
				t.Errorf("Value(%v, %q) = %q, want %q", tc.v, tc.unit, got, tc.want)
			}
		})
	}
}

func TestCountAndBytes(t *testing.T) {
	if got := Count(1234567); got != "1,234,567" {
		t.Errorf("Count = %q, want 1,234,567", got)
	}
	if got := Bytes(1500); got != "1.5 kB" {
		t.Errorf("Bytes = %q, want 1.5 kB", got)
	}
}

func TestAgo(t *testing.T) {
	if got := Ago(time.Time{}); got != "never" {
		t.Errorf("Ago(zero) = %q, want never", got)
	}
	if got := Ago(time.Now().Add(-3 * time.Hour)); !strings.Contains(got, "hours ago") {
		t.Errorf("Ago(-3h) = %q, want hours ago", got)
	}
}

func TestRatioBar(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	if got := RatioBar(5, 10, 10); got != "█████░░░░░ 5/10" {
		t.Errorf("RatioBar(5,10) = %q", got)
	}
	if got := RatioBar(0, 0, 4); got != "░░░░ 0/0" {
		t.Errorf("RatioBar(0,0) = %q", got)
	}
	if got := RatioBar(12, 10, 4); got != "████ 12/10" {
		t.Errorf("RatioBar(12,10) = %q", got)
	}
}

func TestTrendArrow(t *testing.T) {
	SetNoColor(true)
	defer SetNoColor(false)

	tests := []struct {
		delta float64
		want  string
	}{
		{0, "─"},
		{1.5, "▲ +1.50"},
		{-0.25, "▼ -0.25"},
	}
	for _, tc := range tests {
		if got := TrendArrow(tc.delta, true); got != tc.want {
			t.Errorf("TrendArrow(%v) = %q, want %q", tc.delta, got, tc.want)
		}
	}
}
