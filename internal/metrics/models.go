package metrics

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/blackwell-systems/claudemetrics/internal/extract"
)

func modelTokenCostGroup() Group {
	return Group{Category: "D", Metrics: []Metric{
		{def("D074", "model_usage_distribution", Distribution, "", "Breakdown of usage by model"), modelUsageDistribution},
		{def("D075", "opus_usage_ratio", Ratio, "", "Proportion of messages using Opus models"), opusUsageRatio},
		{def("D076", "sonnet_usage_ratio", Ratio, "", "Proportion of messages using Sonnet models"), sonnetUsageRatio},
		{def("D077", "haiku_usage_ratio", Ratio, "", "Proportion of messages using Haiku models"), haikuUsageRatio},
		{def("D078", "model_switching_frequency", Rate, "switches/session", "Rate of model switches per session"), modelSwitchingFrequency},
		{def("D079", "primary_model", CategoryLabel, "", "Most frequently used model"), primaryModel},
		{def("D080", "model_usage_by_subagent", Distribution, "", "Model distribution for agent sessions"), modelUsageBySubagent},
		{def("D081", "tokens_per_message", Float, "", "Average tokens per message"), tokensPerMessage},
		{def("D082", "tokens_per_session", Float, "", "Average tokens per session"), tokensPerSession},
		{def("D083", "input_output_token_ratio", Ratio, "", "Ratio of input tokens to output tokens"), inputOutputTokenRatio},
		{def("D084", "total_input_tokens", Int, "", "Sum of all input tokens in window"), totalInputTokens},
		{def("D085", "total_output_tokens", Int, "", "Sum of all output tokens in window"), totalOutputTokens},
		{def("D086", "daily_token_consumption", Rate, "tokens/day", "Average tokens consumed per day"), dailyTokenConsumption},
		{def("D087", "weekly_token_consumption", Rate, "tokens", "Tokens consumed in the past week"), weeklyTokenConsumption},
		{def("D088", "token_growth_rate", Trend, "", "Slope of daily token consumption"), tokenGrowthRate},
		{def("D089", "cache_hit_ratio", Ratio, "", "Proportion of input tokens from cache"), cacheHitRatio},
		{def("D090", "cache_efficiency_score", Compound, "", "Composite cache utilization score", "D089"), cacheEfficiencyScore},
		{def("D091", "cache_read_tokens", Int, "", "Total tokens read from cache"), cacheReadTokens},
		{def("D092", "effective_input_tokens", Int, "", "Input tokens minus cached tokens", "D084", "D091"), effectiveInputTokens},
		{def("D093", "cache_savings_usd", Float, "USD", "Estimated savings from cache usage", "D091"), cacheSavingsUSD},
		{def("D094", "total_cost_usd", Float, "USD", "Total API cost in window"), totalCostUSD},
		{def("D095", "daily_cost_usd", Float, "USD", "API cost for today"), dailyCostUSD},
		{def("D096", "weekly_cost_usd", Float, "USD", "API cost for past week"), weeklyCostUSD},
		{def("D097", "monthly_cost_usd", Float, "USD", "API cost for past month (30 days)"), monthlyCostUSD},
		{def("D098", "cost_per_session", Float, "USD", "Average cost per session", "D094"), costPerSession},
		{def("D099", "cost_per_message", Float, "USD", "Average cost per message", "D094"), costPerMessage},
		{def("D100", "cost_per_tool_call", Float, "USD", "Average cost per tool call", "D094"), costPerToolCall},
		{def("D101", "model_cost_distribution", Distribution, "", "Cost breakdown by model"), modelCostDistribution},
		{def("D102", "cost_trend", Trend, "", "Slope of daily cost over time"), costTrend},
		{def("D103", "avg_input_tokens_per_message", Float, "", "Average input tokens per message"), avgInputTokensPerMessage},
		{def("D104", "avg_output_tokens_per_message", Float, "", "Average output tokens per message"), avgOutputTokensPerMessage},
		{def("D105", "max_tokens_single_message", Int, "", "Maximum tokens in a single message"), maxTokensSingleMessage},
		{def("D106", "token_efficiency_ratio", Ratio, "", "Output tokens per input token", "D084", "D085"), tokenEfficiencyRatio},
		{def("D107", "messages_with_thinking", Int, "", "Count of messages using extended thinking"), messagesWithThinking},
		{def("D108", "thinking_usage_ratio", Ratio, "", "Proportion of messages using thinking", "D107"), thinkingUsageRatio},
		{def("D109", "avg_thinking_length", Float, "characters", "Average length of thinking blocks"), avgThinkingLength},
	}}
}

var (
	opusPatterns   = []string{"opus", "claude-opus"}
	sonnetPatterns = []string{"sonnet", "claude-sonnet"}
	haikuPatterns  = []string{"haiku", "claude-haiku"}
)

func isModelFamily(model string, patterns []string) bool {
	if model == "" {
		return false
	}
	lower := strings.ToLower(model)
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// modelOrder lists the window's models by first appearance in the message
// stream, falling back to name order for models with no messages.
func modelOrder(c *Context) []string {
	seen := make(map[string]bool, len(c.W.ModelUsage))
	var out []string
	for _, m := range c.W.Messages {
		if _, ok := c.W.ModelUsage[m.Model]; ok && !seen[m.Model] {
			seen[m.Model] = true
			out = append(out, m.Model)
		}
	}
	var rest []string
	for model := range c.W.ModelUsage {
		if !seen[model] {
			rest = append(rest, model)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

func totalModelMessages(c *Context) int {
	var n int
	for _, u := range c.W.ModelUsage {
		n += u.MessageCount
	}
	return n
}

func modelUsageDistribution(c *Context) (Value, error) {
	total := totalModelMessages(c)
	if total == 0 {
		return c.Value(map[string]any{}), nil
	}
	dist := make(map[string]any, len(c.W.ModelUsage))
	breakdown := make(map[string]any, len(c.W.ModelUsage))
	for model, u := range c.W.ModelUsage {
		dist[model] = roundTo(float64(u.MessageCount)/float64(total), 4)
		breakdown[model] = u.MessageCount
	}
	return c.Value(dist).WithBreakdown(breakdown), nil
}

func familyRatio(c *Context, patterns []string) Value {
	if len(c.W.ModelUsage) == 0 {
		return c.Value(0.0)
	}
	var n int
	for model, u := range c.W.ModelUsage {
		if isModelFamily(model, patterns) {
			n += u.MessageCount
		}
	}
	return c.Value(roundTo(safeDivide(float64(n), float64(totalModelMessages(c))), 4))
}

func opusUsageRatio(c *Context) (Value, error)   { return familyRatio(c, opusPatterns), nil }
func sonnetUsageRatio(c *Context) (Value, error) { return familyRatio(c, sonnetPatterns), nil }
func haikuUsageRatio(c *Context) (Value, error)  { return familyRatio(c, haikuPatterns), nil }

func modelSwitchingFrequency(c *Context) (Value, error) {
	if len(c.W.Sessions) == 0 {
		return c.Value(0.0), nil
	}
	var multi int
	for _, s := range c.W.Sessions {
		if len(s.ModelsUsed) > 1 {
			multi++
		}
	}
	return c.Value(roundTo(float64(multi)/float64(len(c.W.Sessions)), 4)), nil
}

func primaryModel(c *Context) (Value, error) {
	if len(c.W.ModelUsage) == 0 {
		return c.Value("None"), nil
	}
	best, bestN := "", -1
	for _, model := range modelOrder(c) {
		if n := c.W.ModelUsage[model].MessageCount; n > bestN {
			best, bestN = model, n
		}
	}
	return c.Value(best), nil
}

func modelUsageBySubagent(c *Context) (Value, error) {
	counts := make(map[string]int)
	for _, s := range c.W.Sessions {
		if !s.IsAgent {
			continue
		}
		for _, model := range s.ModelsUsed {
			counts[model]++
		}
	}
	if len(counts) == 0 {
		return c.Value(map[string]any{}), nil
	}
	return c.Value(counts).WithBreakdown(anyMap(counts)), nil
}

func (c *Context) ioTokens() float64 {
	return float64(c.W.TotalTokens.Input + c.W.TotalTokens.Output)
}

func tokensPerMessage(c *Context) (Value, error) {
	return c.Value(roundTo(safeDivide(c.ioTokens(), float64(c.W.TotalMessages)), 2)), nil
}

func tokensPerSession(c *Context) (Value, error) {
	return c.Value(roundTo(safeDivide(c.ioTokens(), float64(len(c.W.Sessions))), 2)), nil
}

func inputOutputTokenRatio(c *Context) (Value, error) {
	ratio := safeDivide(float64(c.W.TotalTokens.Input), float64(c.W.TotalTokens.Output))
	return c.Value(roundTo(ratio, 2)), nil
}

func totalInputTokens(c *Context) (Value, error) {
	return c.Value(c.W.TotalTokens.Input), nil
}

func totalOutputTokens(c *Context) (Value, error) {
	return c.Value(c.W.TotalTokens.Output), nil
}

func dailyTokenConsumption(c *Context) (Value, error) {
	return c.Value(roundTo(safeDivide(c.ioTokens(), float64(c.W.Days)), 2)), nil
}

func weeklyTokenConsumption(c *Context) (Value, error) {
	weekAgo := c.Now().Add(-7 * 24 * time.Hour)
	var n int64
	for _, s := range c.W.Sessions {
		if !s.StartTime.IsZero() && !s.StartTime.Before(weekAgo) {
			n += s.TotalInputTokens + s.TotalOutputTokens
		}
	}
	return c.ValueDays(n, 7), nil
}

// dailySlope fits a line through per-day totals in date order.
func dailySlope(daily map[string]float64) (float64, bool) {
	if len(daily) < 2 {
		return 0, false
	}
	dates := make([]string, 0, len(daily))
	for d := range daily {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	points := make([][2]float64, len(dates))
	for i, d := range dates {
		points[i] = [2]float64{float64(i), daily[d]}
	}
	return linearRegressionSlope(points), true
}

func tokenGrowthRate(c *Context) (Value, error) {
	daily := make(map[string]float64)
	for _, s := range c.W.Sessions {
		if !s.StartTime.IsZero() {
			daily[s.StartTime.UTC().Format("2006-01-02")] += float64(s.TotalInputTokens + s.TotalOutputTokens)
		}
	}
	slope, ok := dailySlope(daily)
	if !ok {
		return c.Value(0.0).WithTrend(0), nil
	}
	return c.Value(roundTo(slope, 2)).WithTrend(slope), nil
}

func cacheHitRatio(c *Context) (Value, error) {
	ratio := safeDivide(float64(c.W.TotalTokens.CacheRead), float64(c.W.TotalTokens.Input))
	return c.Value(roundTo(ratio, 4)), nil
}

// cacheEfficiencyScore scales the cache hit ratio to 0-100.
func cacheEfficiencyScore(c *Context) (Value, error) {
	score := min(c.DepFloatOr("D089", 0)*100, 100)
	return c.Value(roundTo(score, 2)), nil
}

func cacheReadTokens(c *Context) (Value, error) {
	return c.Value(c.W.TotalTokens.CacheRead), nil
}

func effectiveInputTokens(c *Context) (Value, error) {
	input := c.DepFloatOr("D084", 0)
	cached := c.DepFloatOr("D091", 0)
	return c.Value(int64(max(0, input-cached))), nil
}

// cacheSavingsUSD prices cached tokens at the difference between the Sonnet
// input and cache read rates.
func cacheSavingsUSD(c *Context) (Value, error) {
	cached := c.DepFloatOr("D091", 0)
	p := extract.DefaultPricing[extract.TierSonnet]
	perMillion := p.InputPerMillion.Sub(p.CacheReadPerMillion)
	savings := decimal.NewFromFloat(cached).Div(decimal.NewFromInt(1_000_000)).Mul(perMillion)
	return c.Value(roundTo(savings.InexactFloat64(), 4)), nil
}

func totalCostUSD(c *Context) (Value, error) {
	return c.Value(roundTo(c.W.TotalCostUSD, 4)), nil
}

func dailyCostUSD(c *Context) (Value, error) {
	today := c.Now().UTC()
	var cost float64
	for _, s := range c.W.Sessions {
		if !s.StartTime.IsZero() && sameDay(s.StartTime.UTC(), today) {
			cost += s.CostUSD
		}
	}
	return c.ValueDays(roundTo(cost, 4), 1), nil
}

func weeklyCostUSD(c *Context) (Value, error) {
	weekAgo := c.Now().Add(-7 * 24 * time.Hour)
	var cost float64
	for _, s := range c.W.Sessions {
		if !s.StartTime.IsZero() && !s.StartTime.Before(weekAgo) {
			cost += s.CostUSD
		}
	}
	return c.ValueDays(roundTo(cost, 4), 7), nil
}

// monthlyCostUSD is the whole window's cost.
func monthlyCostUSD(c *Context) (Value, error) {
	return c.Value(roundTo(c.W.TotalCostUSD, 4)), nil
}

func costPerSession(c *Context) (Value, error) {
	return c.Value(roundTo(safeDivide(c.W.TotalCostUSD, float64(len(c.W.Sessions))), 4)), nil
}

func costPerMessage(c *Context) (Value, error) {
	return c.Value(roundTo(safeDivide(c.W.TotalCostUSD, float64(c.W.TotalMessages)), 6)), nil
}

func costPerToolCall(c *Context) (Value, error) {
	return c.Value(roundTo(safeDivide(c.W.TotalCostUSD, float64(c.W.TotalToolCalls)), 6)), nil
}

func modelCostDistribution(c *Context) (Value, error) {
	var total float64
	for _, u := range c.W.ModelUsage {
		total += u.CostUSD
	}
	if total == 0 {
		return c.Value(map[string]any{}), nil
	}
	dist := make(map[string]any)
	breakdown := make(map[string]any, len(c.W.ModelUsage))
	for model, u := range c.W.ModelUsage {
		if u.CostUSD > 0 {
			dist[model] = roundTo(u.CostUSD/total, 4)
		}
		breakdown[model] = roundTo(u.CostUSD, 4)
	}
	return c.Value(dist).WithBreakdown(breakdown), nil
}

func costTrend(c *Context) (Value, error) {
	daily := make(map[string]float64)
	for _, s := range c.W.Sessions {
		if !s.StartTime.IsZero() {
			daily[s.StartTime.UTC().Format("2006-01-02")] += s.CostUSD
		}
	}
	slope, ok := dailySlope(daily)
	if !ok {
		return c.Value(0.0).WithTrend(0), nil
	}
	return c.Value(roundTo(slope, 4)).WithTrend(slope), nil
}

func avgInputTokensPerMessage(c *Context) (Value, error) {
	avg := safeDivide(float64(c.W.TotalTokens.Input), float64(c.W.TotalMessages))
	return c.Value(roundTo(avg, 2)), nil
}

func avgOutputTokensPerMessage(c *Context) (Value, error) {
	avg := safeDivide(float64(c.W.TotalTokens.Output), float64(c.W.TotalMessages))
	return c.Value(roundTo(avg, 2)), nil
}

func maxTokensSingleMessage(c *Context) (Value, error) {
	var best int64
	for i, m := range c.W.Messages {
		if n := m.InputTokens + m.OutputTokens; i == 0 || n > best {
			best = n
		}
	}
	return c.Value(best), nil
}

func tokenEfficiencyRatio(c *Context) (Value, error) {
	input := c.DepFloatOr("D084", 1)
	if input == 0 {
		input = 1
	}
	output := c.DepFloatOr("D085", 0)
	return c.Value(roundTo(output/input, 4)), nil
}

func messagesWithThinking(c *Context) (Value, error) {
	var n int
	for _, m := range c.W.Messages {
		if m.HasThinking {
			n++
		}
	}
	return c.Value(n), nil
}

func thinkingUsageRatio(c *Context) (Value, error) {
	n := c.DepFloatOr("D107", 0)
	return c.Value(roundTo(safeDivide(n, float64(len(c.W.Messages))), 4)), nil
}

func avgThinkingLength(c *Context) (Value, error) {
	var lengths []float64
	for _, m := range c.W.Messages {
		if m.HasThinking && m.ThinkingLength > 0 {
			lengths = append(lengths, float64(m.ThinkingLength))
		}
	}
	return c.Value(roundTo(mean(lengths), 2)), nil
}
