package metrics

import (
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/blackwell-systems/claudemetrics/internal/claude"
)

func fileOperationsGroup() Group {
	return Group{Category: "C", Metrics: []Metric{
		{def("D049", "unique_files_read", Int, "", "Count of distinct files read"), uniqueFilesRead},
		{def("D050", "unique_files_edited", Int, "", "Count of distinct files edited"), uniqueFilesEdited},
		{def("D051", "file_read_frequency", Distribution, "", "Distribution of read counts per file"), fileReadFrequency},
		{def("D052", "file_edit_frequency", Distribution, "", "Distribution of edit counts per file"), fileEditFrequency},
		{def("D053", "most_read_file", CategoryLabel, "", "File with the most read operations"), mostReadFile},
		{def("D054", "most_edited_file", CategoryLabel, "", "File with the most edit operations"), mostEditedFile},
		{def("D055", "read_to_write_ratio", Ratio, "", "Ratio of read operations to write/edit operations"), readToWriteRatio},
		{def("D056", "new_file_creation_rate", Rate, "files/session", "Rate of new file creation per session"), newFileCreationRate},
		{def("D057", "file_deletion_rate", Rate, "files/session", "Rate of file deletion per session"), fileDeletionRate},
		{def("D058", "file_type_distribution", Distribution, "", "Breakdown of file operations by extension"), fileTypeDistribution},
		{def("D059", "python_file_ratio", Ratio, "", "Proportion of operations on .py files"), pythonFileRatio},
		{def("D060", "javascript_file_ratio", Ratio, "", "Proportion of operations on .js/.ts files"), javascriptFileRatio},
		{def("D061", "markdown_file_ratio", Ratio, "", "Proportion of operations on .md files"), markdownFileRatio},
		{def("D062", "config_file_ratio", Ratio, "", "Proportion of operations on config files"), configFileRatio},
		{def("D063", "test_file_ratio", Ratio, "", "Proportion of operations on test files"), testFileRatio},
		{def("D064", "avg_file_size_read", Float, "bytes", "Average size of files read"), avgFileSizeRead},
		{def("D065", "file_versions_created", Int, "", "Total file version backups created"), fileVersionsCreated},
		{def("D066", "avg_versions_per_file", Float, "", "Average version backups per edited file", "D050", "D065"), avgVersionsPerFile},
		{def("D067", "max_versions_per_file", Int, "", "Maximum versions for any single file"), maxVersionsPerFile},
		{def("D068", "file_churn_rate", Rate, "edits/day", "Rate of file edits per day"), fileChurnRate},
		{def("D069", "file_stability_index", Inverse, "", "Inverse of file churn rate (higher = more stable)", "D068"), fileStabilityIndex},
		{def("D070", "directory_depth_distribution", Distribution, "", "Distribution of file path depths"), directoryDepthDistribution},
		{def("D071", "files_modified_together", Distribution, "", "Files frequently edited in same session"), filesModifiedTogether},
		{def("D072", "file_dependency_graph", Compound, "", "Graph of file read/edit relationships"), fileDependencyGraph},
		{def("D073", "cross_directory_edits", Ratio, "", "Sessions editing files in multiple directories"), crossDirectoryEdits},
	}}
}

var (
	pythonExtensions   = setOf(".py", ".pyw", ".pyx", ".pxd")
	jsExtensions       = setOf(".js", ".jsx", ".ts", ".tsx", ".mjs", ".cjs")
	markdownExtensions = setOf(".md", ".markdown", ".mdx")
	configExtensions   = setOf(".json", ".yaml", ".yml", ".toml", ".ini", ".cfg", ".conf", ".env", ".properties")
	testPatterns       = []string{"test_", "_test", "spec_", "_spec", ".test.", ".spec."}
)

func setOf(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

// extension is the lower-cased suffix of the final path element. A leading
// dot alone (".env") is not a suffix.
func extension(p string) string {
	name := path.Base(p)
	i := strings.LastIndex(name, ".")
	if i <= 0 || i == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[i:])
}

func isTestFile(p string) bool {
	name := strings.ToLower(path.Base(p))
	for _, pat := range testPatterns {
		if strings.Contains(name, pat) {
			return true
		}
	}
	return false
}

// pathDepth counts path elements, with the root of an absolute path as one.
func pathDepth(p string) int {
	n := 0
	if strings.HasPrefix(p, "/") {
		n++
	}
	for _, part := range strings.Split(p, "/") {
		if part != "" && part != "." {
			n++
		}
	}
	return n
}

// fileCounter tallies the file paths of one tool in call order.
func fileCounter(calls []claude.ToolCall, tool string) *counter {
	c := newCounter()
	for _, tc := range calls {
		if tc.Name == tool && tc.FilePath != "" {
			c.inc(tc.FilePath)
		}
	}
	return c
}

func allFiles(w map[string]int, more ...map[string]int) map[string]int {
	out := make(map[string]int)
	for p, n := range w {
		out[p] += n
	}
	for _, m := range more {
		for p, n := range m {
			out[p] += n
		}
	}
	return out
}

func (c *Context) touchedFiles() map[string]int {
	return allFiles(c.W.FilesRead, c.W.FilesEdited, c.W.FilesWritten)
}

func uniqueFilesRead(c *Context) (Value, error) {
	return c.Value(len(c.W.FilesRead)), nil
}

func uniqueFilesEdited(c *Context) (Value, error) {
	return c.Value(len(c.W.FilesEdited)), nil
}

func frequencyBuckets(files map[string]int) map[string]any {
	out := make(map[string]any)
	for _, n := range files {
		bucket := "10+x"
		if n <= 10 {
			bucket = strconv.Itoa(n) + "x"
		}
		prev, _ := out[bucket].(int)
		out[bucket] = prev + 1
	}
	return out
}

func fileReadFrequency(c *Context) (Value, error) {
	if len(c.W.FilesRead) == 0 {
		return c.Value(map[string]any{}), nil
	}
	dist := frequencyBuckets(c.W.FilesRead)
	return c.Value(dist).WithBreakdown(dist), nil
}

func fileEditFrequency(c *Context) (Value, error) {
	if len(c.W.FilesEdited) == 0 {
		return c.Value(map[string]any{}), nil
	}
	dist := frequencyBuckets(c.W.FilesEdited)
	return c.Value(dist).WithBreakdown(dist), nil
}

// mostReadFile reports only the base name of the path.
func mostReadFile(c *Context) (Value, error) {
	p, _, found := fileCounter(c.W.ToolCalls, "Read").max()
	if !found {
		return c.Value("None"), nil
	}
	return c.Value(path.Base(p)), nil
}

func mostEditedFile(c *Context) (Value, error) {
	p, _, found := fileCounter(c.W.ToolCalls, "Edit").max()
	if !found {
		return c.Value("None"), nil
	}
	return c.Value(path.Base(p)), nil
}

func readToWriteRatio(c *Context) (Value, error) {
	reads := sumInts(c.W.FilesRead)
	writes := sumInts(c.W.FilesEdited) + sumInts(c.W.FilesWritten)
	return c.Value(roundTo(safeDivide(float64(reads), float64(writes)), 2)), nil
}

func newFileCreationRate(c *Context) (Value, error) {
	return c.Value(roundTo(safeDivide(float64(len(c.W.FilesWritten)), float64(len(c.W.Sessions))), 2)), nil
}

// fileDeletionRate counts Bash commands that run rm.
func fileDeletionRate(c *Context) (Value, error) {
	n := countWhere(c.W.ToolCalls, func(tc claude.ToolCall) bool {
		return tc.Name == "Bash" && strings.Contains(tc.Input.Command, "rm ")
	})
	return c.Value(roundTo(safeDivide(float64(n), float64(len(c.W.Sessions))), 4)), nil
}

func fileTypeDistribution(c *Context) (Value, error) {
	exts := make(map[string]int)
	for p := range c.touchedFiles() {
		ext := extension(p)
		if ext == "" {
			ext = "no_ext"
		}
		exts[ext]++
	}
	return c.Value(exts).WithBreakdown(anyMap(exts)), nil
}

func fileRatio(c *Context, match func(string) bool) Value {
	files := c.touchedFiles()
	if len(files) == 0 {
		return c.Value(0.0)
	}
	var n int
	for p := range files {
		if match(p) {
			n++
		}
	}
	return c.Value(roundTo(float64(n)/float64(len(files)), 4))
}

func hasExtension(set map[string]bool) func(string) bool {
	return func(p string) bool { return set[extension(p)] }
}

func pythonFileRatio(c *Context) (Value, error) {
	return fileRatio(c, hasExtension(pythonExtensions)), nil
}

func javascriptFileRatio(c *Context) (Value, error) {
	return fileRatio(c, hasExtension(jsExtensions)), nil
}

func markdownFileRatio(c *Context) (Value, error) {
	return fileRatio(c, hasExtension(markdownExtensions)), nil
}

func configFileRatio(c *Context) (Value, error) {
	return fileRatio(c, hasExtension(configExtensions)), nil
}

func testFileRatio(c *Context) (Value, error) {
	return fileRatio(c, isTestFile), nil
}

// avgFileSizeRead averages the content size of Read results that returned
// file content. Windows without any give 0.
func avgFileSizeRead(c *Context) (Value, error) {
	var sizes []float64
	for _, tc := range c.W.ToolCalls {
		if tc.Name == "Read" && tc.ResultBytes > 0 {
			sizes = append(sizes, float64(tc.ResultBytes))
		}
	}
	return c.Value(roundTo(mean(sizes), 2)), nil
}

// fileVersionsCreated counts backup files across in-window sessions.
func fileVersionsCreated(c *Context) (Value, error) {
	var n int
	for _, fh := range c.W.FileHistory {
		n += fh.TotalEdits
	}
	return c.Value(n), nil
}

func avgVersionsPerFile(c *Context) (Value, error) {
	versions := c.DepFloatOr("D065", 0)
	files := c.DepFloatOr("D050", 1)
	if files == 0 {
		files = 1
	}
	return c.Value(roundTo(versions/files, 2)), nil
}

func maxVersionsPerFile(c *Context) (Value, error) {
	var best int
	for _, fh := range c.W.FileHistory {
		for _, v := range fh.Versions {
			best = max(best, v)
		}
	}
	return c.Value(best), nil
}

func fileChurnRate(c *Context) (Value, error) {
	return c.Value(roundTo(safeDivide(float64(sumInts(c.W.FilesEdited)), float64(c.W.Days)), 2)), nil
}

func fileStabilityIndex(c *Context) (Value, error) {
	churn := c.DepFloatOr("D068", 1)
	if churn == 0 {
		churn = 0.001
	}
	return c.Value(roundTo(1/churn, 4)), nil
}

func directoryDepthDistribution(c *Context) (Value, error) {
	depths := make(map[string]int)
	for p := range c.touchedFiles() {
		depths[strconv.Itoa(pathDepth(p))]++
	}
	dist := anyMap(depths)
	return c.Value(dist).WithBreakdown(dist), nil
}

// sessionSets groups a per-call key by session, remembering session order.
func sessionSets(calls []claude.ToolCall, key func(claude.ToolCall) (string, bool)) ([]string, map[string]map[string]bool) {
	var order []string
	sets := make(map[string]map[string]bool)
	for _, tc := range calls {
		k, ok := key(tc)
		if !ok {
			continue
		}
		if sets[tc.SessionID] == nil {
			sets[tc.SessionID] = make(map[string]bool)
			order = append(order, tc.SessionID)
		}
		sets[tc.SessionID][k] = true
	}
	return order, sets
}

func isModification(tc claude.ToolCall) bool {
	return tc.FilePath != "" && (tc.Name == "Edit" || tc.Name == "Write")
}

func filesModifiedTogether(c *Context) (Value, error) {
	order, sets := sessionSets(c.W.ToolCalls, func(tc claude.ToolCall) (string, bool) {
		return path.Base(tc.FilePath), isModification(tc)
	})
	pairs := newCounter()
	for _, sid := range order {
		names := make([]string, 0, len(sets[sid]))
		for n := range sets[sid] {
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

// fileDependencyGraph links the last file read in a session to each
// different file edited after it, counting distinct targets per source.
func fileDependencyGraph(c *Context) (Value, error) {
	lastRead := make(map[string]string)
	targets := make(map[string]map[string]bool)
	for _, tc := range sortedByTime(c.W.ToolCalls) {
		if tc.FilePath == "" {
			continue
		}
		switch tc.Name {
		case "Read":
			lastRead[tc.SessionID] = tc.FilePath
		case "Edit":
			src, ok := lastRead[tc.SessionID]
			if !ok || src == tc.FilePath {
				continue
			}
			from := path.Base(src)
			if targets[from] == nil {
				targets[from] = make(map[string]bool)
			}
			targets[from][path.Base(tc.FilePath)] = true
		}
	}
	graph := make(map[string]any, len(targets))
	for k, v := range targets {
		graph[k] = len(v)
	}
	return c.Value(graph).WithBreakdown(graph), nil
}

func crossDirectoryEdits(c *Context) (Value, error) {
	if len(c.W.Sessions) == 0 {
		return c.Value(0.0), nil
	}
	_, sets := sessionSets(c.W.ToolCalls, func(tc claude.ToolCall) (string, bool) {
		return path.Dir(tc.FilePath), isModification(tc)
	})
	var multi int
	for _, dirs := range sets {
		if len(dirs) > 1 {
			multi++
		}
	}
	return c.Value(roundTo(float64(multi)/float64(len(c.W.Sessions)), 4)), nil
}
