package metrics

import (
	"github.com/blackwell-systems/claudemetrics/internal/claude"
)

func agentsGroup() Group {
	return Group{Category: "H", Metrics: []Metric{
		{def("D159", "agent_sessions", Int, "", "Total count of agent sessions"), agentSessions},
		{def("D160", "main_vs_agent_ratio", Ratio, "", "Ratio of main sessions to agent sessions", "D159"), mainVsAgentRatio},
		{def("D161", "agent_usage_percentage", Percentage, "%", "Percentage of sessions using agents"), agentUsagePercentage},
		{def("D162", "subagent_type_distribution", Distribution, "", "Distribution of subagent types used"), subagentTypeDistribution},
		{def("D163", "most_used_subagent", CategoryLabel, "", "Most frequently used subagent type", "D162"), mostUsedSubagent},
		{def("D164", "explore_agent_usage", Int, "", "Count of Explore agent invocations"), exploreAgentUsage},
		{def("D165", "plan_agent_usage", Int, "", "Count of Plan agent invocations"), planAgentUsage},
		{def("D166", "custom_agent_usage", Int, "", "Count of custom/non-built-in agent invocations"), customAgentUsage},
		{def("D167", "tokens_per_agent_task", Float, "tokens", "Average tokens consumed per agent task"), tokensPerAgentTask},
		{def("D168", "tools_per_agent_task", Float, "", "Average tools used per agent task"), toolsPerAgentTask},
		{def("D169", "agent_success_rate", Ratio, "", "Success rate of agent tasks"), agentSuccessRate},
		{def("D170", "agent_resume_rate", Ratio, "", "Rate of agent task resumption"), agentResumeRate},
		{def("D171", "parallel_agent_frequency", Int, "", "Count of parallel agent invocations"), parallelAgentFrequency},
		{def("D172", "agent_depth", Int, "", "Maximum nesting depth of agent spawns"), agentDepth},
	}}
}

var builtinAgents = setOf("Explore", "Plan", "general-purpose", "claude-code-guide", "statusline-setup")

func (c *Context) taskCalls() []claude.ToolCall {
	return callsNamed(c.W.ToolCalls, "Task")
}

func subagentType(tc claude.ToolCall) string {
	if tc.Input.SubagentType == "" {
		return "unknown"
	}
	return tc.Input.SubagentType
}

func agentSessions(c *Context) (Value, error) {
	return c.Value(len(c.taskCalls())), nil
}

// mainVsAgentRatio is zero when no agents were spawned.
func mainVsAgentRatio(c *Context) (Value, error) {
	agents := c.DepFloatOr("D159", 0)
	if agents == 0 {
		return c.Value(0.0), nil
	}
	return c.Value(roundTo(float64(len(c.W.Sessions))/agents, 2)), nil
}

func agentUsagePercentage(c *Context) (Value, error) {
	if len(c.W.Sessions) == 0 {
		return c.Value(0.0), nil
	}
	withAgents := make(map[string]bool)
	for _, tc := range c.taskCalls() {
		withAgents[tc.SessionID] = true
	}
	return c.Value(roundTo(float64(len(withAgents))/float64(len(c.W.Sessions))*100, 2)), nil
}

func subagentTypeDistribution(c *Context) (Value, error) {
	dist := newCounter()
	for _, tc := range c.taskCalls() {
		dist.inc(subagentType(tc))
	}
	return c.Value(dist.asMap()).WithBreakdown(dist.asAny()), nil
}

// mostUsedSubagent reads the type distribution and breaks ties by first
// use.
func mostUsedSubagent(c *Context) (Value, error) {
	dist, _ := c.DepOr("D162", map[string]int{}).(map[string]int)
	if len(dist) == 0 {
		return c.Value("none"), nil
	}
	ordered := newCounter()
	for _, tc := range c.taskCalls() {
		if n, ok := dist[subagentType(tc)]; ok && ordered.counts[subagentType(tc)] == 0 {
			ordered.add(subagentType(tc), n)
		}
	}
	if best, _, found := ordered.max(); found {
		return c.Value(best), nil
	}
	best, _, _ := maxKey(dist)
	return c.Value(best), nil
}

func countSubagent(c *Context, pred func(string) bool) int {
	var n int
	for _, tc := range c.taskCalls() {
		if pred(tc.Input.SubagentType) {
			n++
		}
	}
	return n
}

func exploreAgentUsage(c *Context) (Value, error) {
	return c.Value(countSubagent(c, func(t string) bool { return t == "Explore" })), nil
}

func planAgentUsage(c *Context) (Value, error) {
	return c.Value(countSubagent(c, func(t string) bool { return t == "Plan" })), nil
}

// customAgentUsage counts every Task call whose type is not built in,
// including calls with no type.
func customAgentUsage(c *Context) (Value, error) {
	return c.Value(countSubagent(c, func(t string) bool { return !builtinAgents[t] })), nil
}

func tokensPerAgentTask(c *Context) (Value, error) {
	tasks := c.taskCalls()
	if len(tasks) == 0 {
		return c.Value(0.0), nil
	}
	var total int64
	for _, tc := range tasks {
		total += tc.AgentTotalTokens
	}
	return c.Value(roundTo(float64(total)/float64(len(tasks)), 2)), nil
}

func toolsPerAgentTask(c *Context) (Value, error) {
	tasks := c.taskCalls()
	if len(tasks) == 0 {
		return c.Value(0.0), nil
	}
	var total int
	for _, tc := range tasks {
		total += tc.AgentToolUseCount
	}
	return c.Value(roundTo(float64(total)/float64(len(tasks)), 2)), nil
}

func agentSuccessRate(c *Context) (Value, error) {
	tasks := c.taskCalls()
	if len(tasks) == 0 {
		return c.Value(0.0), nil
	}
	n := countWhere(tasks, func(tc claude.ToolCall) bool { return tc.Success })
	return c.Value(roundTo(float64(n)/float64(len(tasks)), 4)), nil
}

func agentResumeRate(c *Context) (Value, error) {
	tasks := c.taskCalls()
	if len(tasks) == 0 {
		return c.Value(0.0), nil
	}
	n := countWhere(tasks, func(tc claude.ToolCall) bool { return tc.Input.Resume != "" })
	return c.Value(roundTo(float64(n)/float64(len(tasks)), 4)), nil
}

// parallelAgentFrequency counts assistant messages that spawned more than
// one agent.
func parallelAgentFrequency(c *Context) (Value, error) {
	perMessage := make(map[string]int)
	for _, tc := range c.taskCalls() {
		key := tc.MessageUUID
		if key == "" {
			key = tc.SessionID
		}
		perMessage[key]++
	}
	var n int
	for _, count := range perMessage {
		if count > 1 {
			n++
		}
	}
	return c.Value(n), nil
}

func agentDepth(c *Context) (Value, error) {
	var depth int
	for _, tc := range c.taskCalls() {
		depth = max(depth, max(tc.NestingDepth, 1))
	}
	return c.Value(depth), nil
}
