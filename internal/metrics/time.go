package metrics

import (
	"sort"
	"strconv"
	"time"

	"github.com/blackwell-systems/claudemetrics/internal/claude"
)

func timeActivityGroup() Group {
	return Group{Category: "A", Metrics: []Metric{
		{def("D001", "daily_active_hours", Duration, "hours", "Hours active in coding today"), dailyActiveHours},
		{def("D002", "weekly_active_hours", Duration, "hours", "Hours active this week"), weeklyActiveHours},
		{def("D003", "monthly_active_hours", Duration, "hours", "Hours active this month (30 days)"), monthlyActiveHours},
		{def("D004", "total_thinking_time", Duration, "minutes", "Total extended thinking time used"), totalThinkingTime},
		{def("D005", "avg_response_time", Duration, "seconds", "Average time between user message and assistant response"), avgResponseTime},
		{def("D006", "longest_session_duration", Duration, "hours", "Duration of the longest session"), longestSessionDuration},
		{def("D007", "avg_session_duration", Duration, "hours", "Mean session length"), avgSessionDuration},
		{def("D008", "median_session_duration", Duration, "hours", "Median session length"), medianSessionDuration},
		{def("D009", "total_api_time", Duration, "minutes", "Total time spent in API calls"), totalAPITime},
		{def("D010", "avg_tool_execution_time", Duration, "milliseconds", "Mean tool call duration"), avgToolExecutionTime},
		{def("D011", "peak_activity_hour", CategoryLabel, "hour", "Most active hour of the day (0-23)"), peakActivityHour},
		{def("D012", "peak_productivity_day", CategoryLabel, "weekday", "Most productive day of the week"), peakProductivityDay},
		{def("D013", "morning_activity_ratio", Ratio, "", "Proportion of activity between 6AM-12PM"), morningActivityRatio},
		{def("D014", "afternoon_activity_ratio", Ratio, "", "Proportion of activity between 12PM-6PM"), afternoonActivityRatio},
		{def("D015", "evening_activity_ratio", Ratio, "", "Proportion of activity between 6PM-12AM"), eveningActivityRatio},
		{def("D016", "night_activity_ratio", Ratio, "", "Proportion of activity between 12AM-6AM"), nightActivityRatio},
		{def("D017", "weekday_vs_weekend_ratio", Ratio, "", "Ratio of weekday to weekend activity"), weekdayVsWeekendRatio},
		{def("D018", "session_start_time_variance", Float, "hours", "Variance in daily session start times"), sessionStartTimeVariance},
		{def("D019", "session_start_time_distribution", Distribution, "", "Distribution of session start times by hour"), sessionStartTimeDistribution},
		{def("D020", "session_end_time_distribution", Distribution, "", "Distribution of session end times by hour"), sessionEndTimeDistribution},
		{def("D021", "longest_activity_streak", Int, "days", "Maximum consecutive days with activity"), longestActivityStreak},
		{def("D022", "current_activity_streak", Int, "days", "Current consecutive active days ending today"), currentActivityStreak},
		{def("D023", "weekly_active_days", Int, "days", "Number of days with activity in the past week"), weeklyActiveDays},
		{def("D024", "monthly_active_days", Int, "days", "Number of days with activity in the past month"), monthlyActiveDays},
		{def("D025", "avg_sessions_per_active_day", Float, "", "Average number of sessions per day with activity", "D024"), avgSessionsPerActiveDay},
		{def("D026", "session_frequency", Rate, "sessions/day", "Average sessions per calendar day"), sessionFrequency},
		{def("D027", "inter_session_gap", Duration, "hours", "Average time between consecutive sessions"), interSessionGap},
		{def("D028", "activity_density", Rate, "messages/hour", "Messages per active hour", "D003"), activityDensity},
	}}
}

const msPerHour = 3_600_000.0

var weekdayNames = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// mondayIndex numbers weekdays from Monday = 0.
func mondayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func sessionHours(sessions []claude.Session, keep func(claude.Session) bool) float64 {
	var h float64
	for _, s := range sessions {
		if keep(s) {
			h += float64(s.DurationMs) / msPerHour
		}
	}
	return h
}

func toolDurations(calls []claude.ToolCall) []float64 {
	var out []float64
	for _, tc := range calls {
		if tc.DurationMs != nil {
			out = append(out, float64(*tc.DurationMs))
		}
	}
	return out
}

func dailyActiveHours(c *Context) (Value, error) {
	today := c.Now().UTC()
	h := sessionHours(c.W.Sessions, func(s claude.Session) bool {
		return !s.StartTime.IsZero() && sameDay(s.StartTime.UTC(), today)
	})
	return c.ValueDays(roundTo(h, 2), 1), nil
}

func weeklyActiveHours(c *Context) (Value, error) {
	weekAgo := c.Now().Add(-7 * 24 * time.Hour)
	h := sessionHours(c.W.Sessions, func(s claude.Session) bool {
		return !s.StartTime.IsZero() && !s.StartTime.Before(weekAgo)
	})
	return c.ValueDays(roundTo(h, 2), 7), nil
}

func monthlyActiveHours(c *Context) (Value, error) {
	h := sessionHours(c.W.Sessions, func(claude.Session) bool { return true })
	return c.Value(roundTo(h, 2)), nil
}

// totalThinkingTime estimates minutes of thinking as one minute per
// thousand characters of thinking text.
func totalThinkingTime(c *Context) (Value, error) {
	var minutes float64
	for _, m := range c.W.Messages {
		if m.HasThinking {
			minutes += float64(m.ThinkingLength) / 1000
		}
	}
	return c.Value(roundTo(minutes, 2)), nil
}

// avgResponseTime uses tool execution time as a stand-in for response time.
func avgResponseTime(c *Context) (Value, error) {
	return c.Value(roundTo(mean(toolDurations(c.W.ToolCalls))/1000, 2)), nil
}

func longestSessionDuration(c *Context) (Value, error) {
	if len(c.W.Sessions) == 0 {
		return c.Value(0.0), nil
	}
	var longest int64
	for i, s := range c.W.Sessions {
		if i == 0 || s.DurationMs > longest {
			longest = s.DurationMs
		}
	}
	return c.Value(roundTo(float64(longest)/msPerHour, 2)), nil
}

func sessionDurations(sessions []claude.Session) []float64 {
	out := make([]float64, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, float64(s.DurationMs))
	}
	return out
}

func avgSessionDuration(c *Context) (Value, error) {
	if len(c.W.Sessions) == 0 {
		return c.Value(0.0), nil
	}
	return c.Value(roundTo(mean(sessionDurations(c.W.Sessions))/msPerHour, 2)), nil
}

func medianSessionDuration(c *Context) (Value, error) {
	if len(c.W.Sessions) == 0 {
		return c.Value(0.0), nil
	}
	return c.Value(roundTo(median(sessionDurations(c.W.Sessions))/msPerHour, 2)), nil
}

func totalAPITime(c *Context) (Value, error) {
	var total float64
	for _, d := range toolDurations(c.W.ToolCalls) {
		total += d
	}
	return c.Value(roundTo(total/60000, 2)), nil
}

func avgToolExecutionTime(c *Context) (Value, error) {
	return c.Value(roundTo(mean(toolDurations(c.W.ToolCalls)), 2)), nil
}

func peakActivityHour(c *Context) (Value, error) {
	peak, best := 0, -1
	for h := 0; h < 24; h++ {
		if n := c.W.HourlyDistribution[h]; n > best {
			peak, best = h, n
		}
	}
	return c.Value(peak), nil
}

func peakProductivityDay(c *Context) (Value, error) {
	days := newCounter()
	for _, s := range c.W.Sessions {
		if !s.StartTime.IsZero() {
			days.inc(strconv.Itoa(mondayIndex(s.StartTime)))
		}
	}
	key, _, found := days.max()
	if !found {
		return c.Value(0), nil
	}
	idx, _ := strconv.Atoi(key)
	return c.Value(weekdayNames[idx]).WithBreakdown(days.asAny()), nil
}

func activityRatio(c *Context, start, end int) Value {
	total := sumHourly(c.W.HourlyDistribution)
	n := countInPeriod(c.W.HourlyDistribution, start, end)
	return c.Value(roundTo(safeDivide(float64(n), float64(total)), 4))
}

func morningActivityRatio(c *Context) (Value, error)   { return activityRatio(c, 6, 12), nil }
func afternoonActivityRatio(c *Context) (Value, error) { return activityRatio(c, 12, 18), nil }
func eveningActivityRatio(c *Context) (Value, error)   { return activityRatio(c, 18, 24), nil }
func nightActivityRatio(c *Context) (Value, error)     { return activityRatio(c, 0, 6), nil }

// weekdayVsWeekendRatio is 0 when there were no weekend sessions.
func weekdayVsWeekendRatio(c *Context) (Value, error) {
	var weekday, weekend int
	for _, s := range c.W.Sessions {
		if s.StartTime.IsZero() {
			continue
		}
		if mondayIndex(s.StartTime) < 5 {
			weekday++
		} else {
			weekend++
		}
	}
	if weekend == 0 {
		return c.Value(0.0), nil
	}
	return c.Value(roundTo(float64(weekday)/float64(weekend), 2)), nil
}

func sessionStartTimeVariance(c *Context) (Value, error) {
	var hours []float64
	for _, s := range c.W.Sessions {
		if !s.StartTime.IsZero() {
			hours = append(hours, float64(s.StartTime.Hour())+float64(s.StartTime.Minute())/60)
		}
	}
	return c.Value(roundTo(stdDev(hours), 2)), nil
}

func sessionStartTimeDistribution(c *Context) (Value, error) {
	dist := copyHourly(c.W.HourlyDistribution)
	return c.Value(dist).WithBreakdown(intKeyed(dist)), nil
}

func sessionEndTimeDistribution(c *Context) (Value, error) {
	dist := make(map[int]int)
	for _, s := range c.W.Sessions {
		if !s.EndTime.IsZero() {
			dist[s.EndTime.Hour()]++
		}
	}
	return c.Value(dist).WithBreakdown(intKeyed(dist)), nil
}

func sessionStartDays(sessions []claude.Session) []time.Time {
	var out []time.Time
	for _, s := range sessions {
		if !s.StartTime.IsZero() {
			out = append(out, s.StartTime)
		}
	}
	return out
}

func longestActivityStreak(c *Context) (Value, error) {
	return c.Value(longestStreak(sessionStartDays(c.W.Sessions))), nil
}

func currentActivityStreak(c *Context) (Value, error) {
	return c.Value(currentStreak(sessionStartDays(c.W.Sessions), c.Now().UTC())), nil
}

func activeDays(sessions []claude.Session, since time.Time) int {
	seen := make(map[time.Time]bool)
	for _, s := range sessions {
		if s.StartTime.IsZero() || s.StartTime.Before(since) {
			continue
		}
		seen[truncateDay(s.StartTime)] = true
	}
	return len(seen)
}

func weeklyActiveDays(c *Context) (Value, error) {
	return c.ValueDays(activeDays(c.W.Sessions, c.Now().Add(-7*24*time.Hour)), 7), nil
}

func monthlyActiveDays(c *Context) (Value, error) {
	return c.Value(activeDays(c.W.Sessions, time.Time{})), nil
}

func avgSessionsPerActiveDay(c *Context) (Value, error) {
	days := c.DepFloatOr("D024", 1)
	if days == 0 {
		days = 1
	}
	return c.Value(roundTo(float64(len(c.W.Sessions))/days, 2)), nil
}

func sessionFrequency(c *Context) (Value, error) {
	return c.Value(roundTo(safeDivide(float64(len(c.W.Sessions)), float64(c.W.Days)), 2)), nil
}

// interSessionGap averages the positive gaps between one session's end and
// the next session's start, in hours.
func interSessionGap(c *Context) (Value, error) {
	if len(c.W.Sessions) < 2 {
		return c.Value(0.0), nil
	}
	sorted := append([]claude.Session(nil), c.W.Sessions...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartTime.Before(sorted[j].StartTime) })

	var gaps []float64
	for i := 1; i < len(sorted); i++ {
		if sorted[i].StartTime.IsZero() || sorted[i-1].EndTime.IsZero() {
			continue
		}
		if gap := sorted[i].StartTime.Sub(sorted[i-1].EndTime).Hours(); gap > 0 {
			gaps = append(gaps, gap)
		}
	}
	return c.Value(roundTo(mean(gaps), 2)), nil
}

func activityDensity(c *Context) (Value, error) {
	hours := c.DepFloatOr("D003", 1)
	if hours == 0 {
		hours = 1
	}
	return c.Value(roundTo(float64(c.W.TotalMessages)/hours, 2)), nil
}
