package metrics

import (
	"math"
	"sort"
	"strconv"
	"time"
)

func safeDivide(num, den float64) float64 {
	return safeDivideOr(num, den, 0)
}

func safeDivideOr(num, den, def float64) float64 {
	if den == 0 {
		return def
	}
	return num / den
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 0 {
		return (s[mid-1] + s[mid]) / 2
	}
	return s[mid]
}

// variance is the population variance; fewer than two values give 0.
func variance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var sum float64
	for _, v := range values {
		sum += (v - m) * (v - m)
	}
	return sum / float64(len(values))
}

func stdDev(values []float64) float64 {
	return math.Sqrt(variance(values))
}

// linearRegressionSlope fits y over x by least squares.
func linearRegressionSlope(points [][2]float64) float64 {
	if len(points) < 2 {
		return 0
	}
	n := float64(len(points))
	var sx, sy, sxy, sx2 float64
	for _, p := range points {
		sx += p[0]
		sy += p[1]
		sxy += p[0] * p[1]
		sx2 += p[0] * p[0]
	}
	den := n*sx2 - sx*sx
	if den == 0 {
		return 0
	}
	return (n*sxy - sx*sy) / den
}

// longestStreak is the longest run of consecutive calendar days.
func longestStreak(days []time.Time) int {
	sorted := uniqueDays(days)
	if len(sorted) == 0 {
		return 0
	}
	best, cur := 1, 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Sub(sorted[i-1]) == 24*time.Hour {
			cur++
			if cur > best {
				best = cur
			}
		} else {
			cur = 1
		}
	}
	return best
}

// currentStreak is the run of consecutive days ending on end; zero when end
// itself has no activity.
func currentStreak(days []time.Time, end time.Time) int {
	sorted := uniqueDays(days)
	if len(sorted) == 0 {
		return 0
	}
	end = truncateDay(end)
	last := len(sorted) - 1
	if !sorted[last].Equal(end) {
		return 0
	}
	streak := 1
	for i := last; i > 0; i-- {
		if sorted[i].Sub(sorted[i-1]) != 24*time.Hour {
			break
		}
		streak++
	}
	return streak
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func uniqueDays(days []time.Time) []time.Time {
	seen := make(map[time.Time]bool, len(days))
	var out []time.Time
	for _, d := range days {
		day := truncateDay(d)
		if !seen[day] {
			seen[day] = true
			out = append(out, day)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// shannonEntropy is the diversity of a count distribution in bits.
func shannonEntropy(dist map[string]int) float64 {
	var total int
	for _, n := range dist {
		total += n
	}
	if total == 0 {
		return 0
	}
	var h float64
	for _, n := range dist {
		if n > 0 {
			p := float64(n) / float64(total)
			h -= p * math.Log2(p)
		}
	}
	return h
}

// countInPeriod sums hourly counts for start <= hour < end.
func countInPeriod(hourly map[int]int, start, end int) int {
	var n int
	for h, c := range hourly {
		if h >= start && h < end {
			n += c
		}
	}
	return n
}

// roundTo rounds half to even at the given number of decimal places.
func roundTo(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.RoundToEven(x*p) / p
}

func isFinite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func sumInts(m map[string]int) int {
	var n int
	for _, v := range m {
		n += v
	}
	return n
}

func sumHourly(m map[int]int) int {
	var n int
	for _, v := range m {
		n += v
	}
	return n
}

// counter is a string tally that remembers first-seen order, so ties in
// max and top-n resolve to the earliest key.
type counter struct {
	keys   []string
	counts map[string]int
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(key string, n int) {
	if _, ok := c.counts[key]; !ok {
		c.keys = append(c.keys, key)
	}
	c.counts[key] += n
}

func (c *counter) inc(key string) { c.add(key, 1) }

func (c *counter) len() int { return len(c.keys) }

func (c *counter) total() int { return sumInts(c.counts) }

// max returns the first key with the highest count.
func (c *counter) max() (string, int, bool) {
	best, bestN, found := "", 0, false
	for _, k := range c.keys {
		if n := c.counts[k]; !found || n > bestN {
			best, bestN, found = k, n, true
		}
	}
	return best, bestN, found
}

// top returns up to n keys by descending count, ties in first-seen order.
func (c *counter) top(n int) []string {
	keys := append([]string(nil), c.keys...)
	sort.SliceStable(keys, func(i, j int) bool { return c.counts[keys[i]] > c.counts[keys[j]] })
	if n >= 0 && len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// topMap is top as a key->count map.
func (c *counter) topMap(n int) map[string]any {
	out := make(map[string]any)
	for _, k := range c.top(n) {
		out[k] = c.counts[k]
	}
	return out
}

func (c *counter) asMap() map[string]int {
	out := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

func (c *counter) asAny() map[string]any {
	out := make(map[string]any, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

// maxKey returns the first key with the highest count in a plain map,
// breaking ties by smallest key.
func maxKey(m map[string]int) (string, int, bool) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best, bestN, found := "", 0, false
	for _, k := range keys {
		if n := m[k]; !found || n > bestN {
			best, bestN, found = k, n, true
		}
	}
	return best, bestN, found
}

func intKeyed[V any](m map[int]V) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[strconv.Itoa(k)] = v
	}
	return out
}

func anyMap[V any](m map[string]V) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyHourly(m map[int]int) map[int]int {
	out := make(map[int]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
