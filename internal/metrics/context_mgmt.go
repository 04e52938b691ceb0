package metrics

func contextManagementGroup() Group {
	return Group{Category: "F", Metrics: []Metric{
		{def("D137", "thinking_length_trend", Trend, "", "Trend in thinking block length over time"), thinkingLengthTrend},
		{def("D138", "sidechain_exploration_rate", Ratio, "", "Rate of sidechain/alternative exploration in thinking"), sidechainExplorationRate},
		{def("D139", "conversation_compaction_rate", Ratio, "", "Rate of context compaction events"), conversationCompactionRate},
		{def("D140", "context_clearing_frequency", Rate, "per session", "How often context is cleared or managed"), contextClearingFrequency},
		{def("D141", "tokens_cleared_per_compaction", Float, "tokens", "Average tokens cleared per compaction event"), tokensClearedPerCompaction},
		{def("D142", "multi_turn_problem_rate", Ratio, "", "Rate of sessions with complex multi-turn conversations"), multiTurnProblemRate},
	}}
}

// thinkingLengthTrend fits the mean thinking length of each session, in
// session order.
func thinkingLengthTrend(c *Context) (Value, error) {
	if len(c.W.Sessions) < 2 {
		return c.Value(0.0), nil
	}
	lengths := make(map[string][]float64)
	for _, m := range c.W.Messages {
		if m.HasThinking {
			lengths[m.SessionID] = append(lengths[m.SessionID], float64(m.ThinkingLength))
		}
	}
	points := make([][2]float64, len(c.W.Sessions))
	for i, s := range c.W.Sessions {
		points[i] = [2]float64{float64(i), mean(lengths[s.ID])}
	}
	return c.Value(roundTo(linearRegressionSlope(points), 4)), nil
}

func sidechainExplorationRate(c *Context) (Value, error) {
	var thinking, sidechain int
	for _, m := range c.W.Messages {
		if !m.HasThinking {
			continue
		}
		thinking++
		if m.IsSidechain {
			sidechain++
		}
	}
	if thinking == 0 {
		return c.Value(0.0), nil
	}
	return c.Value(roundTo(float64(sidechain)/float64(thinking), 4)), nil
}

func conversationCompactionRate(c *Context) (Value, error) {
	if len(c.W.Sessions) == 0 {
		return c.Value(0.0), nil
	}
	compacted := make(map[string]bool)
	for _, m := range c.W.Messages {
		if m.IsCompactBoundary {
			compacted[m.SessionID] = true
		}
	}
	var n int
	for _, s := range c.W.Sessions {
		if compacted[s.ID] {
			n++
		}
	}
	return c.Value(roundTo(float64(n)/float64(len(c.W.Sessions)), 4)), nil
}

func contextClearingFrequency(c *Context) (Value, error) {
	if len(c.W.Sessions) == 0 {
		return c.Value(0.0), nil
	}
	var events int
	for _, m := range c.W.Messages {
		if m.IsCompactBoundary {
			events++
		}
	}
	return c.Value(roundTo(float64(events)/float64(len(c.W.Sessions)), 2)), nil
}

// tokensClearedPerCompaction averages the pre-compaction token counts that
// were recorded.
func tokensClearedPerCompaction(c *Context) (Value, error) {
	var cleared []float64
	for _, m := range c.W.Messages {
		if m.IsCompactBoundary && m.CompactPreTokens > 0 {
			cleared = append(cleared, float64(m.CompactPreTokens))
		}
	}
	return c.Value(roundTo(mean(cleared), 2)), nil
}

func multiTurnProblemRate(c *Context) (Value, error) {
	if len(c.W.Sessions) == 0 {
		return c.Value(0.0), nil
	}
	var n int
	for _, s := range c.W.Sessions {
		if s.MessageCount > 20 {
			n++
		}
	}
	return c.Value(roundTo(float64(n)/float64(len(c.W.Sessions)), 4)), nil
}
