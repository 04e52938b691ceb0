package metrics

import (
	"github.com/blackwell-systems/claudemetrics/internal/claude"
)

func errorsGroup() Group {
	return Group{Category: "J", Metrics: []Metric{
		{def("D189", "overall_error_rate", Ratio, "", "Overall tool error rate"), overallErrorRate},
		{def("D190", "bash_error_rate", Ratio, "", "Error rate for Bash tool"), bashFailureRate},
		{def("D191", "edit_conflict_rate", Ratio, "", "Error rate for Edit tool"), editConflictRate},
		{def("D192", "read_failure_rate", Ratio, "", "Error rate for Read tool"), readFailureRate},
		{def("D193", "permission_error_rate", Ratio, "", "Rate of permission-related errors"), permissionErrorRate},
		{def("D194", "api_error_rate", Ratio, "", "Rate of API errors"), apiErrorRate},
		{def("D195", "error_recovery_rate", Ratio, "", "Rate of successful recovery after errors"), errorRecoveryRate},
		{def("D196", "retry_success_rate", Ratio, "", "Success rate of retry attempts"), retrySuccessRate},
		{def("D197", "errors_per_session", Float, "", "Average errors per session"), errorsPerSession},
		{def("D198", "error_clustering", Int, "", "Sessions with multiple errors clustered together"), errorClustering},
		{def("D199", "time_to_recovery", Duration, "seconds", "Average time from error to successful recovery"), timeToRecovery},
		{def("D200", "interrupted_operations", Int, "", "Count of interrupted tool operations"), interruptedOperations},
		{def("D201", "truncated_outputs", Int, "", "Count of truncated tool outputs"), truncatedOutputs},
		{def("D202", "killed_shells", Int, "", "Count of manually killed shell processes"), killedShells},
		{def("D203", "hook_prevention_rate", Ratio, "", "Rate at which hooks prevented continuation"), hookPreventionRate},
	}}
}

var permissionErrorTypes = setOf("permission_denied", "access_denied", "EACCES", "EPERM")

func failedCall(tc claude.ToolCall) bool { return !tc.Success }

func overallErrorRate(c *Context) (Value, error) {
	n := countWhere(c.W.ToolCalls, failedCall)
	return c.Value(roundTo(safeDivide(float64(n), float64(len(c.W.ToolCalls))), 4)), nil
}

func toolFailureRate(c *Context, tool string) Value {
	calls := callsNamed(c.W.ToolCalls, tool)
	n := countWhere(calls, failedCall)
	return c.Value(roundTo(safeDivide(float64(n), float64(len(calls))), 4))
}

func bashFailureRate(c *Context) (Value, error)  { return toolFailureRate(c, "Bash"), nil }
func editConflictRate(c *Context) (Value, error) { return toolFailureRate(c, "Edit"), nil }
func readFailureRate(c *Context) (Value, error)  { return toolFailureRate(c, "Read"), nil }

func permissionErrorRate(c *Context) (Value, error) {
	n := countWhere(c.W.ToolCalls, func(tc claude.ToolCall) bool {
		return !tc.Success && permissionErrorTypes[tc.ErrorType]
	})
	return c.Value(roundTo(safeDivide(float64(n), float64(len(c.W.ToolCalls))), 4)), nil
}

func apiErrorRate(c *Context) (Value, error) {
	var n int
	for _, m := range c.W.Messages {
		if m.IsAPIError {
			n++
		}
	}
	return c.Value(roundTo(safeDivide(float64(n), float64(len(c.W.Messages))), 4)), nil
}

// errorRecoveryRate counts the first success after each run of failures.
func errorRecoveryRate(c *Context) (Value, error) {
	var errs, recoveries int
	failing := false
	for _, tc := range sortedByTime(c.W.ToolCalls) {
		switch {
		case !tc.Success:
			errs++
			failing = true
		case failing:
			recoveries++
			failing = false
		}
	}
	return c.Value(roundTo(safeDivide(float64(recoveries), float64(errs)), 4)), nil
}

// retrySuccessRate treats a call on the same tool and file right after a
// failure as a retry.
func retrySuccessRate(c *Context) (Value, error) {
	calls := sortedByTime(c.W.ToolCalls)
	var retries, succeeded int
	for i := 1; i < len(calls); i++ {
		prev, cur := calls[i-1], calls[i]
		if prev.Name == cur.Name && prev.FilePath == cur.FilePath && !prev.Success {
			retries++
			if cur.Success {
				succeeded++
			}
		}
	}
	return c.Value(roundTo(safeDivide(float64(succeeded), float64(retries)), 4)), nil
}

func errorsPerSession(c *Context) (Value, error) {
	if len(c.W.Sessions) == 0 {
		return c.Value(0.0), nil
	}
	n := countWhere(c.W.ToolCalls, failedCall)
	return c.Value(roundTo(float64(n)/float64(len(c.W.Sessions)), 2)), nil
}

// errorClustering counts sessions with three or more failed calls.
func errorClustering(c *Context) (Value, error) {
	perSession := make(map[string]int)
	for _, tc := range c.W.ToolCalls {
		if !tc.Success {
			perSession[tc.SessionID]++
		}
	}
	var n int
	for _, count := range perSession {
		if count >= 3 {
			n++
		}
	}
	return c.Value(n), nil
}

// timeToRecovery averages the seconds from the latest failure to the next
// success.
func timeToRecovery(c *Context) (Value, error) {
	var times []float64
	var failedAt *claude.ToolCall
	for _, tc := range sortedByTime(c.W.ToolCalls) {
		if tc.Timestamp.IsZero() {
			continue
		}
		switch {
		case !tc.Success:
			failedAt = &tc
		case failedAt != nil:
			if d := tc.Timestamp.Sub(failedAt.Timestamp).Seconds(); d > 0 {
				times = append(times, d)
			}
			failedAt = nil
		}
	}
	return c.Value(roundTo(mean(times), 2)), nil
}

func interruptedOperations(c *Context) (Value, error) {
	return c.Value(countWhere(c.W.ToolCalls, func(tc claude.ToolCall) bool { return tc.Interrupted })), nil
}

func truncatedOutputs(c *Context) (Value, error) {
	return c.Value(countWhere(c.W.ToolCalls, func(tc claude.ToolCall) bool { return tc.Truncated })), nil
}

func killedShells(c *Context) (Value, error) {
	return c.Value(len(callsNamed(c.W.ToolCalls, "KillShell"))), nil
}

func hookPreventionRate(c *Context) (Value, error) {
	var hooks, prevented int
	for _, s := range c.W.Sessions {
		hooks += s.HookCount
		prevented += s.HookPreventedCount
	}
	return c.Value(roundTo(safeDivide(float64(prevented), float64(hooks)), 4)), nil
}
