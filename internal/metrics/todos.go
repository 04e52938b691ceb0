package metrics

import (
	"strings"

	"github.com/blackwell-systems/claudemetrics/internal/claude"
)

func todosPlansGroup() Group {
	return Group{Category: "G", Metrics: []Metric{
		{def("D143", "total_todos_created", Int, "", "Total number of todo items created"), totalTodosCreated},
		{def("D144", "completed_todos", Int, "", "Number of todos marked as completed"), completedTodos},
		{def("D145", "overall_completion_rate", Ratio, "", "Overall todo completion rate", "D143", "D144"), overallCompletionRate},
		{def("D146", "in_progress_abandoned", Int, "", "Todos left in progress and never completed"), inProgressAbandoned},
		{def("D147", "pending_never_started", Int, "", "Todos that were never started"), pendingNeverStarted},
		{def("D148", "abandonment_rate", Ratio, "", "Rate of task abandonment", "D144", "D146"), abandonmentRate},
		{def("D149", "avg_tasks_per_session", Float, "", "Average number of tasks per session"), avgTasksPerSession},
		{def("D150", "max_tasks_in_session", Int, "", "Maximum todo count in a single session"), maxTasksInSession},
		{def("D151", "high_priority_ratio", Ratio, "", "Ratio of high priority tasks"), highPriorityRatio},
		{def("D152", "plans_created", Int, "", "Total number of plans created"), plansCreated},
		{def("D153", "avg_plan_size", Float, "bytes", "Average plan file size"), avgPlanSize},
		{def("D154", "plan_complexity_score", Compound, "", "Composite plan complexity score"), planComplexityScore},
		{def("D155", "technologies_per_plan", Float, "", "Average number of technologies referenced per plan"), technologiesPerPlan},
		{def("D156", "action_words_per_plan", Float, "", "Average implementation verbs per plan"), actionWordsPerPlan},
		{def("D157", "plan_approval_rate", Ratio, "", "Rate of plan approval"), planApprovalRate},
		{def("D158", "planning_to_execution_ratio", Ratio, "", "Ratio of planning to actual execution"), planningToExecutionRatio},
	}}
}

var (
	techKeywords = []string{
		"python", "javascript", "typescript", "react", "vue", "angular",
		"node", "django", "flask", "fastapi", "express", "sql", "postgres",
		"mongodb", "redis", "docker", "kubernetes", "aws", "azure", "gcp",
	}
	actionWords = []string{
		"implement", "create", "add", "build", "update", "fix", "refactor",
		"test", "deploy", "configure", "setup", "install", "migrate",
	}
)

type todoStats struct {
	total, completed, inProgress, pending, highPriority int
}

// todoStats tallies the todo lists of the window's sessions. Any status
// other than completed or in_progress counts as pending.
func (c *Context) todoStats() todoStats {
	var st todoStats
	for _, s := range c.W.Sessions {
		for _, t := range c.W.Todos[s.ID] {
			st.total++
			switch t.Status {
			case "completed":
				st.completed++
			case "in_progress":
				st.inProgress++
			default:
				st.pending++
			}
			if t.Priority == "high" {
				st.highPriority++
			}
		}
	}
	return st
}

func (c *Context) sessionTodoCounts() []float64 {
	var out []float64
	for _, s := range c.W.Sessions {
		if n := len(c.W.Todos[s.ID]); n > 0 {
			out = append(out, float64(n))
		}
	}
	return out
}

func totalTodosCreated(c *Context) (Value, error) { return c.Value(c.todoStats().total), nil }
func completedTodos(c *Context) (Value, error)    { return c.Value(c.todoStats().completed), nil }

func overallCompletionRate(c *Context) (Value, error) {
	total := c.DepFloatOr("D143", 0)
	completed := c.DepFloatOr("D144", 0)
	return c.Value(roundTo(safeDivide(completed, total), 4)), nil
}

func inProgressAbandoned(c *Context) (Value, error) { return c.Value(c.todoStats().inProgress), nil }
func pendingNeverStarted(c *Context) (Value, error) { return c.Value(c.todoStats().pending), nil }

func abandonmentRate(c *Context) (Value, error) {
	completed := c.DepFloatOr("D144", 0)
	inProgress := c.DepFloatOr("D146", 0)
	return c.Value(roundTo(safeDivide(inProgress, completed+inProgress), 4)), nil
}

func avgTasksPerSession(c *Context) (Value, error) {
	return c.Value(roundTo(mean(c.sessionTodoCounts()), 2)), nil
}

func maxTasksInSession(c *Context) (Value, error) {
	var best int
	for _, n := range c.sessionTodoCounts() {
		best = max(best, int(n))
	}
	return c.Value(best), nil
}

func highPriorityRatio(c *Context) (Value, error) {
	st := c.todoStats()
	return c.Value(roundTo(safeDivide(float64(st.highPriority), float64(st.total)), 4)), nil
}

func plansCreated(c *Context) (Value, error) {
	return c.Value(len(callsNamed(c.W.ToolCalls, "EnterPlanMode"))), nil
}

// avgPlanSize averages the content size of writes to plan files.
func avgPlanSize(c *Context) (Value, error) {
	var sizes []float64
	for _, tc := range callsNamed(c.W.ToolCalls, "Write") {
		if tc.FilePath == "" || !strings.Contains(strings.ToLower(tc.FilePath), "plan") {
			continue
		}
		if tc.Input.ContentSize > 0 {
			sizes = append(sizes, float64(tc.Input.ContentSize))
		}
	}
	return c.Value(roundTo(mean(sizes), 2)), nil
}

func callsBySession(calls []claude.ToolCall) map[string][]claude.ToolCall {
	out := make(map[string][]claude.ToolCall)
	for _, tc := range calls {
		out[tc.SessionID] = append(out[tc.SessionID], tc)
	}
	return out
}

func hasTool(calls []claude.ToolCall, name string) bool {
	for _, tc := range calls {
		if tc.Name == name {
			return true
		}
	}
	return false
}

// planningSessions returns the sessions that entered plan mode, in order.
func (c *Context) planningSessions() []claude.Session {
	bySession := callsBySession(c.W.ToolCalls)
	var out []claude.Session
	for _, s := range c.W.Sessions {
		if hasTool(bySession[s.ID], "EnterPlanMode") {
			out = append(out, s)
		}
	}
	return out
}

func (c *Context) sessionTexts(sessionID string) []string {
	var out []string
	for _, m := range c.W.Messages {
		if m.SessionID == sessionID && m.Content != "" {
			out = append(out, strings.ToLower(m.Content))
		}
	}
	return out
}

// planComplexityScore averages message count times distinct tools over ten
// across planning sessions.
func planComplexityScore(c *Context) (Value, error) {
	bySession := callsBySession(c.W.ToolCalls)
	var sessions int
	var total float64
	for _, s := range c.planningSessions() {
		tools := make(map[string]bool)
		for _, tc := range bySession[s.ID] {
			tools[tc.Name] = true
		}
		sessions++
		total += float64(s.MessageCount*len(tools)) / 10
	}
	return c.Value(roundTo(safeDivide(total, float64(sessions)), 2)), nil
}

func technologiesPerPlan(c *Context) (Value, error) {
	var counts []float64
	for _, s := range c.planningSessions() {
		found := make(map[string]bool)
		for _, text := range c.sessionTexts(s.ID) {
			for _, tech := range techKeywords {
				if strings.Contains(text, tech) {
					found[tech] = true
				}
			}
		}
		if len(found) > 0 {
			counts = append(counts, float64(len(found)))
		}
	}
	return c.Value(roundTo(mean(counts), 2)), nil
}

func actionWordsPerPlan(c *Context) (Value, error) {
	var counts []float64
	for _, s := range c.planningSessions() {
		var n int
		for _, text := range c.sessionTexts(s.ID) {
			for _, w := range actionWords {
				n += strings.Count(text, w)
			}
		}
		counts = append(counts, float64(n))
	}
	return c.Value(roundTo(mean(counts), 2)), nil
}

func planApprovalRate(c *Context) (Value, error) {
	enter := len(callsNamed(c.W.ToolCalls, "EnterPlanMode"))
	exit := len(callsNamed(c.W.ToolCalls, "ExitPlanMode"))
	return c.Value(roundTo(safeDivide(float64(exit), float64(enter)), 4)), nil
}

// planningToExecutionRatio compares plans to sessions with at least three
// edits or writes.
func planningToExecutionRatio(c *Context) (Value, error) {
	plans := c.DepFloatOr("D152", 0)
	bySession := callsBySession(c.W.ToolCalls)
	var implementations int
	for _, s := range c.W.Sessions {
		var edits int
		for _, tc := range bySession[s.ID] {
			if tc.Name == "Edit" || tc.Name == "Write" {
				edits++
			}
		}
		if edits >= 3 {
			implementations++
		}
	}
	return c.Value(roundTo(safeDivide(plans, float64(implementations)), 4)), nil
}
