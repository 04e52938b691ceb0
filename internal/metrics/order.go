package metrics

import (
	"sort"
)

// planStrict returns the metrics of the requested categories plus the
// transitive closure of their dependencies, ordered so that every metric
// follows its dependencies. Ties are broken by category order, then ID.
func planStrict(c *Catalog, categories []string) ([]string, error) {
	want := make(map[string]bool)
	var queue []string
	for _, cat := range categories {
		for _, d := range c.ByCategory(cat) {
			if !want[d.ID] {
				want[d.ID] = true
				queue = append(queue, d.ID)
			}
		}
	}

	var unresolved, missing []string
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		m, _ := c.metric(id)
		for _, dep := range m.Dependencies {
			if _, ok := c.metric(dep); !ok {
				unresolved = append(unresolved, id)
				missing = append(missing, dep)
				continue
			}
			if !want[dep] {
				want[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	if len(missing) > 0 {
		return nil, &OrderError{Kind: KindUnresolvedDependency, Metrics: dedupe(unresolved), Missing: dedupe(missing)}
	}

	indegree := make(map[string]int, len(want))
	dependents := make(map[string][]string)
	for id := range want {
		m, _ := c.metric(id)
		for _, dep := range dedupe(m.Dependencies) {
			indegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	less := func(a, b string) bool {
		ma, _ := c.metric(a)
		mb, _ := c.metric(b)
		if ia, ib := categoryIndex(ma.Category), categoryIndex(mb.Category); ia != ib {
			return ia < ib
		}
		return a < b
	}

	var ready []string
	for id := range want {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]string, 0, len(want))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return less(ready[i], ready[j]) })
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		for _, next := range dependents[id] {
			indegree[next]--
			if indegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	if len(order) < len(want) {
		var cyclic []string
		for id := range want {
			if indegree[id] > 0 {
				cyclic = append(cyclic, id)
			}
		}
		sort.Strings(cyclic)
		return nil, &OrderError{Kind: KindCyclicDependency, Metrics: cyclic}
	}
	return order, nil
}

// planLenient orders one category with a bounded scan: a metric is taken
// once its in-category dependencies are cached or already taken. After
// 2×len passes the rest is appended in declaration order, so cycles and
// missing metrics degrade to dependency errors at calculation time.
func planLenient(defs []Definition, cached func(string) bool) []string {
	inCategory := make(map[string]bool, len(defs))
	for _, d := range defs {
		inCategory[d.ID] = true
	}

	taken := make(map[string]bool, len(defs))
	remaining := append([]Definition(nil), defs...)
	order := make([]string, 0, len(defs))

	maxPasses := len(remaining) * 2
	for pass := 0; len(remaining) > 0 && pass < maxPasses; pass++ {
		var next []Definition
		for _, d := range remaining {
			satisfied := true
			for _, dep := range d.Dependencies {
				if inCategory[dep] && !taken[dep] && !cached(dep) {
					satisfied = false
					break
				}
			}
			if satisfied {
				taken[d.ID] = true
				order = append(order, d.ID)
			} else {
				next = append(next, d)
			}
		}
		remaining = next
	}
	for _, d := range remaining {
		order = append(order, d.ID)
	}
	return order
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
