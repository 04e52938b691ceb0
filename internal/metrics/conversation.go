package metrics

import (
	"regexp"
	"strings"
)

func conversationGroup() Group {
	return Group{Category: "E", Metrics: []Metric{
		{def("D110", "conversation_depth", Int, "", "Maximum message chain length in a session"), conversationDepth},
		{def("D111", "questions_asked_by_user", Int, "", "Number of user messages containing question marks"), questionsAskedByUser},
		{def("D112", "question_ratio", Ratio, "", "Proportion of user messages that are questions", "D111"), questionRatio},
		{def("D113", "commands_given", Int, "", "Count of imperative/directive user messages"), commandsGiven},
		{def("D114", "code_pastes_by_user", Int, "", "Number of user messages containing code blocks or long text"), codePastesByUser},
		{def("D115", "error_reports_by_user", Int, "", "Number of user messages reporting errors"), errorReportsByUser},
		{def("D116", "frustration_indicators", Int, "", "Count of messages indicating user frustration"), frustrationIndicators},
		{def("D117", "gratitude_expressions", Int, "", "Count of messages expressing user satisfaction"), gratitudeExpressions},
		{def("D118", "frustration_gratitude_ratio", Ratio, "", "Ratio of frustration to gratitude expressions", "D116", "D117"), frustrationGratitudeRatio},
		{def("D119", "bug_related_messages", Int, "", "Messages related to bug fixing"), bugRelatedMessages},
		{def("D120", "feature_related_messages", Int, "", "Messages related to feature development"), featureRelatedMessages},
		{def("D121", "refactor_related_messages", Int, "", "Messages related to code refactoring"), refactorRelatedMessages},
		{def("D122", "test_related_messages", Int, "", "Messages related to testing"), testRelatedMessages},
		{def("D123", "docs_related_messages", Int, "", "Messages related to documentation"), docsRelatedMessages},
		{def("D124", "debug_related_messages", Int, "", "Messages related to debugging and investigation"), debugRelatedMessages},
		{def("D125", "review_related_messages", Int, "", "Messages related to code review"), reviewRelatedMessages},
		{def("D126", "topic_distribution", Distribution, "", "Distribution of messages by topic category", "D119", "D120", "D121", "D122", "D123", "D124", "D125"), topicDistribution},
		{def("D127", "topic_trend_over_time", Trend, "", "How topic focus changes over the time window"), topicTrendOverTime},
		{def("D128", "sessions_with_thinking", Ratio, "", "Proportion of sessions containing thinking blocks"), sessionsWithThinking},
		{def("D129", "thinking_blocks_per_session", Float, "", "Average number of thinking blocks per session"), thinkingBlocksPerSession},
		{def("D130", "avg_thinking_length", Float, "characters", "Average character length of thinking blocks"), avgThinkingBlockLength},
		{def("D131", "median_thinking_length", Float, "characters", "Median character length of thinking blocks"), medianThinkingLength},
		{def("D132", "max_thinking_length", Int, "characters", "Longest thinking block encountered"), maxThinkingLength},
		{def("D133", "thinking_token_percentage", Ratio, "", "Proportion of output tokens used for thinking"), thinkingTokenPercentage},
		{def("D134", "ultrathink_trigger_count", Int, "", "Number of times ULTRATHINK mode was triggered"), ultrathinkTriggerCount},
		{def("D135", "thinking_level_distribution", Distribution, "", "Distribution of thinking levels used"), thinkingLevelDistribution},
		{def("D136", "thinking_disabled_rate", Ratio, "", "Rate at which thinking was disabled"), thinkingDisabledRate},
	}}
}

var (
	bugKeywords      = []string{"bug", "error", "fix", "broken", "crash", "fail", "issue"}
	featureKeywords  = []string{"add", "create", "implement", "build", "new", "feature"}
	refactorKeywords = []string{"refactor", "clean", "improve", "optimize", "reorganize"}
	testKeywords     = []string{"test", "pytest", "unittest", "coverage", "spec", "assert"}
	docsKeywords     = []string{"document", "readme", "comment", "docstring", "docs"}
	debugKeywords    = []string{"debug", "why", "trace", "investigate", "inspect", "print"}
	reviewKeywords   = []string{"review", "check", "examine", "look at", "analyze"}
	errorKeywords    = []string{"error", "traceback", "exception", "failed", "stack trace"}

	frustrationPatterns = compileAll(
		`\bwrong\b`, `\bstill not\b`, `\bdoesn't work\b`, `\bnot working\b`,
		`\bfailed\b`, `\bbroken\b`, `\bwhy (isn't|won't|doesn't)\b`,
	)
	gratitudePatterns = compileAll(
		`\bthanks\b`, `\bthank you\b`, `\bperfect\b`, `\bgreat\b`,
		`\bawesome\b`, `\bexcellent\b`, `\bworks\b`, `\bnice\b`,
	)
	commandPatterns = compileAll(
		`^(do|make|create|fix|add|remove|update|change|implement|write|run|build)\s`,
	)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

// userTexts returns the non-empty content of user messages.
func (c *Context) userTexts() []string {
	var out []string
	for _, m := range c.W.Messages {
		if m.Role == "user" && m.Content != "" {
			out = append(out, m.Content)
		}
	}
	return out
}

func countPatternMatches(texts []string, patterns []*regexp.Regexp) int {
	var n int
	for _, t := range texts {
		for _, p := range patterns {
			if p.MatchString(t) {
				n++
				break
			}
		}
	}
	return n
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func countKeywordMatches(texts []string, keywords []string) int {
	var n int
	for _, t := range texts {
		if containsAny(strings.ToLower(t), keywords) {
			n++
		}
	}
	return n
}

func conversationDepth(c *Context) (Value, error) {
	var depth int
	for _, s := range c.W.Sessions {
		depth = max(depth, s.MessageCount)
	}
	return c.Value(depth), nil
}

func questionsAskedByUser(c *Context) (Value, error) {
	var n int
	for _, t := range c.userTexts() {
		if strings.Contains(t, "?") {
			n++
		}
	}
	return c.Value(n), nil
}

func questionRatio(c *Context) (Value, error) {
	questions := c.DepFloatOr("D111", 0)
	return c.Value(roundTo(safeDivide(questions, float64(len(c.userTexts()))), 4)), nil
}

func commandsGiven(c *Context) (Value, error) {
	return c.Value(countPatternMatches(c.userTexts(), commandPatterns)), nil
}

// codePastesByUser counts fenced code or messages over 500 characters.
func codePastesByUser(c *Context) (Value, error) {
	var n int
	for _, t := range c.userTexts() {
		if strings.Contains(t, "```") || len([]rune(t)) > 500 {
			n++
		}
	}
	return c.Value(n), nil
}

func errorReportsByUser(c *Context) (Value, error) {
	return c.Value(countKeywordMatches(c.userTexts(), errorKeywords)), nil
}

func frustrationIndicators(c *Context) (Value, error) {
	return c.Value(countPatternMatches(c.userTexts(), frustrationPatterns)), nil
}

func gratitudeExpressions(c *Context) (Value, error) {
	return c.Value(countPatternMatches(c.userTexts(), gratitudePatterns)), nil
}

func frustrationGratitudeRatio(c *Context) (Value, error) {
	frustration := c.DepFloatOr("D116", 0)
	gratitude := c.DepFloatOr("D117", 1)
	return c.Value(roundTo(safeDivide(frustration, gratitude), 4)), nil
}

func topicCount(keywords []string) CalcFunc {
	return func(c *Context) (Value, error) {
		return c.Value(countKeywordMatches(c.userTexts(), keywords)), nil
	}
}

var (
	bugRelatedMessages      = topicCount(bugKeywords)
	featureRelatedMessages  = topicCount(featureKeywords)
	refactorRelatedMessages = topicCount(refactorKeywords)
	testRelatedMessages     = topicCount(testKeywords)
	docsRelatedMessages     = topicCount(docsKeywords)
	debugRelatedMessages    = topicCount(debugKeywords)
	reviewRelatedMessages   = topicCount(reviewKeywords)
)

var topicMetrics = []struct{ topic, id string }{
	{"bug", "D119"}, {"feature", "D120"}, {"refactor", "D121"}, {"test", "D122"},
	{"docs", "D123"}, {"debug", "D124"}, {"review", "D125"},
}

func topicDistribution(c *Context) (Value, error) {
	dist := make(map[string]any, len(topicMetrics))
	for _, t := range topicMetrics {
		dist[t.topic] = c.DepOr(t.id, 0)
	}
	return c.Value(dist).WithBreakdown(dist), nil
}

// topicTrendOverTime tracks bug-related user messages per session, in
// session order.
func topicTrendOverTime(c *Context) (Value, error) {
	if len(c.W.Sessions) < 2 {
		return c.Value(0.0), nil
	}
	perSession := make(map[string]int)
	for _, m := range c.W.Messages {
		if m.Role == "user" && m.Content != "" && containsAny(strings.ToLower(m.Content), bugKeywords) {
			perSession[m.SessionID]++
		}
	}
	points := make([][2]float64, len(c.W.Sessions))
	for i, s := range c.W.Sessions {
		points[i] = [2]float64{float64(i), float64(perSession[s.ID])}
	}
	return c.Value(roundTo(linearRegressionSlope(points), 4)), nil
}

func sessionsWithThinking(c *Context) (Value, error) {
	if len(c.W.Sessions) == 0 {
		return c.Value(0.0), nil
	}
	thinking := make(map[string]bool)
	for _, m := range c.W.Messages {
		if m.HasThinking {
			thinking[m.SessionID] = true
		}
	}
	var n int
	for _, s := range c.W.Sessions {
		if thinking[s.ID] {
			n++
		}
	}
	return c.Value(roundTo(float64(n)/float64(len(c.W.Sessions)), 4)), nil
}

func thinkingBlocksPerSession(c *Context) (Value, error) {
	if len(c.W.Sessions) == 0 {
		return c.Value(0.0), nil
	}
	var n int
	for _, m := range c.W.Messages {
		if m.HasThinking {
			n++
		}
	}
	return c.Value(roundTo(float64(n)/float64(len(c.W.Sessions)), 2)), nil
}

func (c *Context) thinkingLengths() []float64 {
	var out []float64
	for _, m := range c.W.Messages {
		if m.HasThinking && m.ThinkingLength > 0 {
			out = append(out, float64(m.ThinkingLength))
		}
	}
	return out
}

func avgThinkingBlockLength(c *Context) (Value, error) {
	return c.Value(roundTo(mean(c.thinkingLengths()), 2)), nil
}

func medianThinkingLength(c *Context) (Value, error) {
	return c.Value(roundTo(median(c.thinkingLengths()), 2)), nil
}

func maxThinkingLength(c *Context) (Value, error) {
	var longest int
	for _, m := range c.W.Messages {
		if m.HasThinking {
			longest = max(longest, m.ThinkingLength)
		}
	}
	return c.Value(longest), nil
}

// thinkingTokenPercentage estimates thinking tokens at four characters each.
func thinkingTokenPercentage(c *Context) (Value, error) {
	var output, thinking int64
	for _, m := range c.W.Messages {
		output += m.OutputTokens
		if m.HasThinking {
			thinking += int64(m.ThinkingLength / 4)
		}
	}
	return c.Value(roundTo(safeDivide(float64(thinking), float64(output)), 4)), nil
}

func ultrathinkTriggerCount(c *Context) (Value, error) {
	var n int
	for _, t := range c.userTexts() {
		if strings.Contains(strings.ToUpper(t), "ULTRATHINK") {
			n++
		}
	}
	return c.Value(n), nil
}

func thinkingLevelDistribution(c *Context) (Value, error) {
	levels := make(map[string]int)
	for _, m := range c.W.Messages {
		if !m.HasThinking {
			continue
		}
		level := m.ThinkingLevel
		if level == "" {
			level = "standard"
		}
		levels[level]++
	}
	if len(levels) == 0 {
		levels["none"] = 0
	}
	dist := anyMap(levels)
	return c.Value(dist).WithBreakdown(dist), nil
}

func thinkingDisabledRate(c *Context) (Value, error) {
	var total, disabled int
	for _, m := range c.W.Messages {
		if m.Role != "assistant" {
			continue
		}
		total++
		if m.ThinkingDisabled {
			disabled++
		}
	}
	return c.Value(roundTo(safeDivide(float64(disabled), float64(total)), 4)), nil
}
