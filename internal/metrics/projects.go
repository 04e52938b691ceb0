package metrics

import (
	"sort"
	"strings"

	"github.com/blackwell-systems/claudemetrics/internal/claude"
)

func projectsBranchesGroup() Group {
	return Group{Category: "I", Metrics: []Metric{
		{def("D173", "total_projects", Int, "", "Total number of unique projects worked on"), totalProjects},
		{def("D174", "sessions_per_project", Distribution, "", "Distribution of sessions across projects"), sessionsPerProject},
		{def("D175", "most_active_project", CategoryLabel, "", "Project with the most sessions", "D174"), mostActiveProject},
		{def("D176", "messages_per_project", Distribution, "", "Distribution of messages across projects"), messagesPerProject},
		{def("D177", "time_per_project", Distribution, "hours", "Active hours distribution across projects"), timePerProject},
		{def("D178", "tools_per_project", Distribution, "", "Tool call distribution across projects"), toolsPerProject},
		{def("D179", "branches_worked_on", Int, "", "Number of unique git branches worked on"), branchesWorkedOn},
		{def("D180", "main_branch_activity", Int, "", "Sessions on main/master branches"), mainBranchActivity},
		{def("D181", "feature_branch_activity", Int, "", "Sessions on feature branches"), featureBranchActivity},
		{def("D182", "branch_switching_frequency", Rate, "per session", "Rate of branch switches per session"), branchSwitchingFrequency},
		{def("D183", "empty_branch_sessions", Int, "", "Sessions without git branch info"), emptyBranchSessions},
		{def("D184", "files_per_project", Distribution, "", "Unique files touched per project"), filesPerProject},
		{def("D185", "tool_diversity_per_project", Distribution, "", "Unique tools used per project"), toolDiversityPerProject},
		{def("D186", "session_depth_per_project", Distribution, "", "Average message depth per project"), sessionDepthPerProject},
		{def("D187", "multi_project_sessions", Int, "", "Sessions spanning multiple projects"), multiProjectSessions},
		{def("D188", "project_switching_frequency", Rate, "per day", "Rate of project context switches"), projectSwitchingFrequency},
	}}
}

var mainBranches = setOf("main", "master")

func projectOf(s claude.Session) string {
	if s.ProjectPath == "" {
		return "unknown"
	}
	return s.ProjectPath
}

// sessionProjects maps each session ID to the project of its first session.
func (c *Context) sessionProjects() map[string]string {
	out := make(map[string]string, len(c.W.Sessions))
	for _, s := range c.W.Sessions {
		if _, ok := out[s.ID]; !ok {
			out[s.ID] = projectOf(s)
		}
	}
	return out
}

func (c *Context) sessionsByStart() []claude.Session {
	sorted := append([]claude.Session(nil), c.W.Sessions...)
	key := func(s claude.Session) int64 {
		if s.StartTime.IsZero() {
			return c.Now().UnixNano()
		}
		return s.StartTime.UnixNano()
	}
	sort.SliceStable(sorted, func(i, j int) bool { return key(sorted[i]) < key(sorted[j]) })
	return sorted
}

func totalProjects(c *Context) (Value, error) {
	projects := make(map[string]bool)
	for _, s := range c.W.Sessions {
		if s.ProjectPath != "" {
			projects[s.ProjectPath] = true
		}
	}
	return c.Value(len(projects)), nil
}

func sessionsPerProject(c *Context) (Value, error) {
	dist := newCounter()
	for _, s := range c.W.Sessions {
		dist.inc(projectOf(s))
	}
	return c.Value(dist.asMap()).WithBreakdown(dist.asAny()), nil
}

// mostActiveProject reports the last path element of the busiest project,
// breaking ties by first session.
func mostActiveProject(c *Context) (Value, error) {
	dist, _ := c.DepOr("D174", map[string]int{}).(map[string]int)
	if len(dist) == 0 {
		return c.Value("none"), nil
	}
	ordered := newCounter()
	for _, s := range c.W.Sessions {
		p := projectOf(s)
		if n, ok := dist[p]; ok && ordered.counts[p] == 0 {
			ordered.add(p, n)
		}
	}
	best, _, found := ordered.max()
	if !found {
		best, _, _ = maxKey(dist)
	}
	if i := strings.LastIndex(best, "/"); i >= 0 {
		best = best[i+1:]
	}
	return c.Value(best), nil
}

func messagesPerProject(c *Context) (Value, error) {
	dist := make(map[string]int)
	for _, s := range c.W.Sessions {
		dist[projectOf(s)] += s.MessageCount
	}
	return c.Value(dist).WithBreakdown(anyMap(dist)), nil
}

func timePerProject(c *Context) (Value, error) {
	hours := make(map[string]float64)
	for _, s := range c.W.Sessions {
		hours[projectOf(s)] += float64(s.DurationMs) / msPerHour
	}
	for p, h := range hours {
		hours[p] = roundTo(h, 2)
	}
	return c.Value(hours).WithBreakdown(anyMap(hours)), nil
}

func toolsPerProject(c *Context) (Value, error) {
	projects := c.sessionProjects()
	dist := make(map[string]int)
	for _, tc := range c.W.ToolCalls {
		if p, ok := projects[tc.SessionID]; ok {
			dist[p]++
		}
	}
	return c.Value(dist).WithBreakdown(anyMap(dist)), nil
}

func branchesWorkedOn(c *Context) (Value, error) {
	branches := make(map[string]bool)
	for _, s := range c.W.Sessions {
		if s.GitBranch != "" {
			branches[s.GitBranch] = true
		}
	}
	return c.Value(len(branches)), nil
}

func mainBranchActivity(c *Context) (Value, error) {
	var n int
	for _, s := range c.W.Sessions {
		if mainBranches[s.GitBranch] {
			n++
		}
	}
	return c.Value(n), nil
}

func featureBranchActivity(c *Context) (Value, error) {
	var n int
	for _, s := range c.W.Sessions {
		if s.GitBranch != "" && !mainBranches[s.GitBranch] {
			n++
		}
	}
	return c.Value(n), nil
}

// countSwitches counts changes to a non-empty value between consecutive
// sessions in start order.
func (c *Context) countSwitches(field func(claude.Session) string) int {
	var switches int
	prev, started := "", false
	for _, s := range c.sessionsByStart() {
		v := field(s)
		if started && v != "" && v != prev {
			switches++
		}
		prev, started = v, true
	}
	return switches
}

func branchSwitchingFrequency(c *Context) (Value, error) {
	if len(c.W.Sessions) == 0 {
		return c.Value(0.0), nil
	}
	n := c.countSwitches(func(s claude.Session) string { return s.GitBranch })
	return c.Value(roundTo(float64(n)/float64(len(c.W.Sessions)), 4)), nil
}

func emptyBranchSessions(c *Context) (Value, error) {
	var n int
	for _, s := range c.W.Sessions {
		if s.GitBranch == "" {
			n++
		}
	}
	return c.Value(n), nil
}

func filesPerProject(c *Context) (Value, error) {
	projects := c.sessionProjects()
	files := make(map[string]map[string]bool)
	for _, tc := range c.W.ToolCalls {
		p, ok := projects[tc.SessionID]
		if !ok || tc.FilePath == "" {
			continue
		}
		if files[p] == nil {
			files[p] = make(map[string]bool)
		}
		files[p][tc.FilePath] = true
	}
	dist := make(map[string]int, len(files))
	for p, set := range files {
		dist[p] = len(set)
	}
	return c.Value(dist).WithBreakdown(anyMap(dist)), nil
}

func toolDiversityPerProject(c *Context) (Value, error) {
	projects := c.sessionProjects()
	tools := make(map[string]map[string]bool)
	for _, tc := range c.W.ToolCalls {
		p, ok := projects[tc.SessionID]
		if !ok {
			continue
		}
		if tools[p] == nil {
			tools[p] = make(map[string]bool)
		}
		tools[p][tc.Name] = true
	}
	dist := make(map[string]int, len(tools))
	for p, set := range tools {
		dist[p] = len(set)
	}
	return c.Value(dist).WithBreakdown(anyMap(dist)), nil
}

func sessionDepthPerProject(c *Context) (Value, error) {
	depths := make(map[string][]float64)
	for _, s := range c.W.Sessions {
		p := projectOf(s)
		depths[p] = append(depths[p], float64(s.MessageCount))
	}
	dist := make(map[string]float64, len(depths))
	for p, d := range depths {
		dist[p] = roundTo(mean(d), 2)
	}
	return c.Value(dist).WithBreakdown(anyMap(dist)), nil
}

// multiProjectSessions treats the first path segment of each touched file
// as its project. Absolute paths all share the empty first segment.
func multiProjectSessions(c *Context) (Value, error) {
	bySession := callsBySession(c.W.ToolCalls)
	var n int
	for _, s := range c.W.Sessions {
		roots := make(map[string]bool)
		for _, tc := range bySession[s.ID] {
			if tc.FilePath == "" {
				continue
			}
			if parts := strings.Split(tc.FilePath, "/"); len(parts) > 1 {
				roots[parts[0]] = true
			}
		}
		if len(roots) > 1 {
			n++
		}
	}
	return c.Value(n), nil
}

func projectSwitchingFrequency(c *Context) (Value, error) {
	if c.W.Days == 0 {
		return c.Value(0.0), nil
	}
	n := c.countSwitches(func(s claude.Session) string { return s.ProjectPath })
	return c.Value(roundTo(float64(n)/float64(c.W.Days), 2)), nil
}
