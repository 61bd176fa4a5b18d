package loop

import (
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/c360studio/agentloop/state"
)

// ProgressDetector decides whether a completed turn shows forward progress
// and which files it touched. The default implementation is a heuristic
// over free text; a false negative under-counts progress and can trigger a
// spurious escalation, which is the accepted trade for v1.
type ProgressDetector interface {
	Detect(turn *state.ExecutionTurn) (progressed bool, files []string)
}

// progressTools are tool names whose successful execution counts as
// forward progress on its own.
var progressTools = map[string]bool{
	"file_write":  true,
	"file_edit":   true,
	"file_delete": true,
	"git_add":     true,
	"git_commit":  true,
	"git_push":    true,
	"run_tests":   true,
	"apply_patch": true,
}

// progressMarkers are phrases in model output or tool results that signal
// a concrete change was made.
var progressMarkers = []string{
	"created file",
	"wrote file",
	"updated file",
	"modified file",
	"deleted file",
	"applied patch",
	"tests pass",
	"test passed",
	"all tests passing",
	"committed",
	"fixed the",
	"implemented",
}

// pathPattern matches path-shaped tokens with an extension.
var pathPattern = regexp.MustCompile(`\b[\w./-]+\.\w{1,10}\b`)

// DefaultPathGlobs filters extracted paths to file kinds an execution
// plausibly edits. Doublestar syntax.
var DefaultPathGlobs = []string{
	"**/*.go",
	"**/*.{md,txt}",
	"**/*.{json,yaml,yml,toml}",
	"**/*.{js,ts,tsx,py,rb,rs,java}",
	"**/*.{sh,sql,proto}",
}

// HeuristicDetector is the default ProgressDetector.
type HeuristicDetector struct {
	// PathGlobs filters extracted file paths. Defaults to DefaultPathGlobs.
	PathGlobs []string
}

// NewHeuristicDetector creates a detector with the default path globs.
func NewHeuristicDetector() *HeuristicDetector {
	return &HeuristicDetector{PathGlobs: DefaultPathGlobs}
}

// Detect combines three signals: successful progress-tool calls, textual
// markers, and glob-matched file paths in the response and tool results.
func (d *HeuristicDetector) Detect(turn *state.ExecutionTurn) (bool, []string) {
	progressed := false

	for i, call := range turn.ToolCalls {
		if !progressTools[call.Name] {
			continue
		}
		// A failed tool call is not progress.
		if i < len(turn.ToolResults) && turn.ToolResults[i].Error != "" {
			continue
		}
		progressed = true
	}

	var corpus strings.Builder
	corpus.WriteString(turn.Response)
	for _, r := range turn.ToolResults {
		corpus.WriteString("\n")
		corpus.WriteString(r.Content)
	}
	text := corpus.String()
	lower := strings.ToLower(text)

	for _, marker := range progressMarkers {
		if strings.Contains(lower, marker) {
			progressed = true
			break
		}
	}

	files := d.extractPaths(text)
	if len(files) > 0 && progressed {
		return true, files
	}
	return progressed, nil
}

// extractPaths pulls path-shaped tokens matching the allow-list globs.
func (d *HeuristicDetector) extractPaths(text string) []string {
	globs := d.PathGlobs
	if len(globs) == 0 {
		globs = DefaultPathGlobs
	}

	seen := make(map[string]bool)
	var files []string
	for _, candidate := range pathPattern.FindAllString(text, -1) {
		candidate = strings.TrimPrefix(candidate, "./")
		if seen[candidate] {
			continue
		}
		for _, glob := range globs {
			if ok, err := doublestar.Match(glob, candidate); err == nil && ok {
				seen[candidate] = true
				files = append(files, candidate)
				break
			}
		}
	}
	return files
}
