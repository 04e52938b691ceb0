package metrics

import (
	"sort"

	"github.com/blackwell-systems/claudemetrics/internal/claude"
)

func toolUsageGroup() Group {
	return Group{Category: "B", Metrics: []Metric{
		{def("D029", "tool_usage_distribution", Distribution, "", "Breakdown of tool usage by tool name"), toolUsageDistribution},
		{def("D030", "most_used_tool", CategoryLabel, "", "Tool with the highest call count"), mostUsedTool},
		{def("D031", "tool_diversity_index", Float, "", "Shannon entropy of tool usage distribution"), toolDiversityIndex},
		{def("D032", "tool_calls_per_hour", Rate, "calls/hour", "Average tool calls per active hour", "D003"), toolCallsPerHour},
		{def("D033", "tool_calls_per_session", Float, "", "Average tool calls per session"), toolCallsPerSession},
		{def("D034", "tool_calls_per_message", Float, "", "Average tool calls per assistant message"), toolCallsPerMessage},
		{def("D035", "bash_to_edit_ratio", Ratio, "", "Ratio of Bash calls to Edit calls"), bashToEditRatio},
		{def("D036", "daily_tool_call_trend", Trend, "", "Slope of daily tool usage over time"), dailyToolCallTrend},
		{def("D037", "tool_success_rate", Ratio, "", "Proportion of successful tool calls"), toolSuccessRate},
		{def("D038", "bash_error_rate", Ratio, "", "Proportion of Bash calls that fail"), bashErrorRate},
		{def("D039", "edit_success_rate", Ratio, "", "Proportion of Edit calls that succeed"), editSuccessRate},
		{def("D040", "avg_tool_execution_time_b", Duration, "milliseconds", "Mean duration of tool execution"), avgToolExecutionTimeB},
		{def("D041", "tool_timeout_rate", Ratio, "", "Proportion of tool calls that timed out"), toolTimeoutRate},
		{def("D042", "longest_tool_execution", Duration, "milliseconds", "Maximum tool execution duration"), longestToolExecution},
		{def("D043", "tool_retry_rate", Ratio, "", "Proportion of tool calls that were retried"), toolRetryRate},
		{def("D044", "read_before_edit_ratio", Ratio, "", "Proportion of Edit calls preceded by Read on same file"), readBeforeEditRatio},
		{def("D045", "glob_before_read_ratio", Ratio, "", "Proportion of Read calls preceded by Glob"), globBeforeReadRatio},
		{def("D046", "grep_then_read_pattern", Sequence, "", "Frequency of Grep followed by Read sequences"), grepThenReadPattern},
		{def("D047", "tool_sequence_patterns", Distribution, "", "Distribution of common 2-tool sequences"), toolSequencePatterns},
		{def("D048", "tool_co_occurrence", Distribution, "", "Tools frequently used together in same session"), toolCoOccurrence},
	}}
}

// toolCounter tallies tool names in call order.
func toolCounter(calls []claude.ToolCall) *counter {
	c := newCounter()
	for _, tc := range calls {
		c.inc(tc.Name)
	}
	return c
}

func callsNamed(calls []claude.ToolCall, name string) []claude.ToolCall {
	var out []claude.ToolCall
	for _, tc := range calls {
		if tc.Name == name {
			out = append(out, tc)
		}
	}
	return out
}

func countWhere(calls []claude.ToolCall, pred func(claude.ToolCall) bool) int {
	var n int
	for _, tc := range calls {
		if pred(tc) {
			n++
		}
	}
	return n
}

func toolUsageDistribution(c *Context) (Value, error) {
	total := sumInts(c.W.ToolCounts)
	if total == 0 {
		return c.Value(map[string]float64{}), nil
	}
	dist := make(map[string]float64, len(c.W.ToolCounts))
	for tool, n := range c.W.ToolCounts {
		dist[tool] = roundTo(float64(n)/float64(total), 4)
	}
	return c.Value(dist).WithBreakdown(anyMap(c.W.ToolCounts)), nil
}

func mostUsedTool(c *Context) (Value, error) {
	name, _, found := toolCounter(c.W.ToolCalls).max()
	if !found {
		return c.Value("None"), nil
	}
	return c.Value(name), nil
}

func toolDiversityIndex(c *Context) (Value, error) {
	return c.Value(roundTo(shannonEntropy(c.W.ToolCounts), 4)), nil
}

func toolCallsPerHour(c *Context) (Value, error) {
	hours := c.DepFloatOr("D003", 1)
	if hours == 0 {
		hours = 1
	}
	return c.Value(roundTo(float64(c.W.TotalToolCalls)/hours, 2)), nil
}

func toolCallsPerSession(c *Context) (Value, error) {
	return c.Value(roundTo(safeDivide(float64(c.W.TotalToolCalls), float64(len(c.W.Sessions))), 2)), nil
}

func toolCallsPerMessage(c *Context) (Value, error) {
	var assistant int
	for _, s := range c.W.Sessions {
		assistant += s.AssistantMessageCount
	}
	return c.Value(roundTo(safeDivide(float64(c.W.TotalToolCalls), float64(assistant)), 2)), nil
}

func bashToEditRatio(c *Context) (Value, error) {
	ratio := safeDivide(float64(c.W.ToolCounts["Bash"]), float64(c.W.ToolCounts["Edit"]))
	return c.Value(roundTo(ratio, 2)), nil
}

func dailyToolCallTrend(c *Context) (Value, error) {
	daily := make(map[string]int)
	for _, tc := range c.W.ToolCalls {
		daily[tc.Timestamp.UTC().Format("2006-01-02")]++
	}
	if len(daily) < 2 {
		return c.Value(0.0), nil
	}
	dates := make([]string, 0, len(daily))
	for d := range daily {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	points := make([][2]float64, len(dates))
	for i, d := range dates {
		points[i] = [2]float64{float64(i), float64(daily[d])}
	}
	slope := linearRegressionSlope(points)
	return c.Value(roundTo(slope, 4)).WithTrend(slope), nil
}

func toolSuccessRate(c *Context) (Value, error) {
	if len(c.W.ToolCalls) == 0 {
		return c.Value(1.0), nil
	}
	ok := countWhere(c.W.ToolCalls, func(tc claude.ToolCall) bool { return tc.Success })
	return c.Value(roundTo(float64(ok)/float64(len(c.W.ToolCalls)), 4)), nil
}

func bashErrorRate(c *Context) (Value, error) {
	bash := callsNamed(c.W.ToolCalls, "Bash")
	if len(bash) == 0 {
		return c.Value(0.0), nil
	}
	errs := countWhere(bash, func(tc claude.ToolCall) bool { return tc.IsError })
	return c.Value(roundTo(float64(errs)/float64(len(bash)), 4)), nil
}

func editSuccessRate(c *Context) (Value, error) {
	edits := callsNamed(c.W.ToolCalls, "Edit")
	if len(edits) == 0 {
		return c.Value(1.0), nil
	}
	ok := countWhere(edits, func(tc claude.ToolCall) bool { return tc.Success })
	return c.Value(roundTo(float64(ok)/float64(len(edits)), 4)), nil
}

func avgToolExecutionTimeB(c *Context) (Value, error) {
	return c.Value(roundTo(mean(toolDurations(c.W.ToolCalls)), 2)), nil
}

// toolTimeoutRate counts interrupted calls as timeouts.
func toolTimeoutRate(c *Context) (Value, error) {
	if len(c.W.ToolCalls) == 0 {
		return c.Value(0.0), nil
	}
	n := countWhere(c.W.ToolCalls, func(tc claude.ToolCall) bool { return tc.Interrupted })
	return c.Value(roundTo(float64(n)/float64(len(c.W.ToolCalls)), 4)), nil
}

func longestToolExecution(c *Context) (Value, error) {
	var longest int64
	for _, tc := range c.W.ToolCalls {
		if tc.DurationMs != nil && *tc.DurationMs > longest {
			longest = *tc.DurationMs
		}
	}
	return c.Value(longest), nil
}

// toolRetryRate treats repeated calls of one tool on one file as retries.
func toolRetryRate(c *Context) (Value, error) {
	if len(c.W.ToolCalls) == 0 {
		return c.Value(0.0), nil
	}
	pairs := make(map[[2]string]int)
	for _, tc := range c.W.ToolCalls {
		if tc.FilePath != "" {
			pairs[[2]string{tc.Name, tc.FilePath}]++
		}
	}
	var retries int
	for _, n := range pairs {
		if n > 1 {
			retries += n - 1
		}
	}
	return c.Value(roundTo(float64(retries)/float64(len(c.W.ToolCalls)), 4)), nil
}

func readBeforeEditRatio(c *Context) (Value, error) {
	edits := callsNamed(c.W.ToolCalls, "Edit")
	if len(edits) == 0 {
		return c.Value(0.0), nil
	}
	read := make(map[string]bool)
	for _, tc := range c.W.ToolCalls {
		if tc.Name == "Read" && tc.FilePath != "" {
			read[tc.FilePath] = true
		}
	}
	n := countWhere(edits, func(tc claude.ToolCall) bool { return tc.FilePath != "" && read[tc.FilePath] })
	return c.Value(roundTo(float64(n)/float64(len(edits)), 4)), nil
}

func globBeforeReadRatio(c *Context) (Value, error) {
	reads := c.W.ToolCounts["Read"]
	if reads == 0 {
		return c.Value(0.0), nil
	}
	globs := c.W.ToolCounts["Glob"]
	return c.Value(roundTo(float64(min(globs, reads))/float64(reads), 4)), nil
}

func grepThenReadPattern(c *Context) (Value, error) {
	return c.Value(min(c.W.ToolCounts["Grep"], c.W.ToolCounts["Read"])), nil
}

func sortedByTime(calls []claude.ToolCall) []claude.ToolCall {
	out := append([]claude.ToolCall(nil), calls...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

func toolSequencePatterns(c *Context) (Value, error) {
	if len(c.W.ToolCalls) < 2 {
		return c.Value(map[string]any{}), nil
	}
	calls := sortedByTime(c.W.ToolCalls)
	seq := newCounter()
	for i := 1; i < len(calls); i++ {
		seq.inc(calls[i-1].Name + "->" + calls[i].Name)
	}
	top := seq.topMap(10)
	return c.Value(top).WithBreakdown(top), nil
}

func toolCoOccurrence(c *Context) (Value, error) {
	var order []string
	tools := make(map[string]map[string]bool)
	for _, tc := range c.W.ToolCalls {
		if tools[tc.SessionID] == nil {
			tools[tc.SessionID] = make(map[string]bool)
			order = append(order, tc.SessionID)
		}
		tools[tc.SessionID][tc.Name] = true
	}

	pairs := newCounter()
	for _, sid := range order {
		names := make([]string, 0, len(tools[sid]))
		for n := range tools[sid] {
			names = append(names, n)
		}
		sort.Strings(names)
		for i := range names {
			for _, other := range names[i+1:] {
				pairs.inc(names[i] + "+" + other)
			}
		}
	}
	top := pairs.topMap(10)
	return c.Value(top).WithBreakdown(top), nil
}
