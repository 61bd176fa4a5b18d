package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/c360studio/semstreams/agentic"

	"github.com/c360studio/agentloop/tools/file"
	"github.com/c360studio/agentloop/tools/git"
)

// Mux routes tool calls by name across several executors. The first
// executor advertising a tool name owns it.
type Mux struct {
	byName []muxEntry
	routes map[string]Executor
}

type muxEntry struct {
	executor Executor
}

// NewMux builds a mux over the given executors.
func NewMux(executors ...Executor) *Mux {
	m := &Mux{routes: make(map[string]Executor)}
	for _, e := range executors {
		m.byName = append(m.byName, muxEntry{executor: e})
		for _, tool := range e.ListTools() {
			if _, taken := m.routes[tool.Name]; taken {
				continue
			}
			m.routes[tool.Name] = e
		}
	}
	return m
}

// NewDefaultMux builds the standard tool set for an execution: file and
// git operations rooted at repoRoot, each wrapped with call recording.
func NewDefaultMux(repoRoot string) *Mux {
	if repoRoot == "" {
		repoRoot = os.Getenv("AGENTLOOP_REPO_PATH")
	}
	if repoRoot == "" {
		var err error
		repoRoot, err = os.Getwd()
		if err != nil {
			repoRoot = "."
		}
	}
	if abs, err := filepath.Abs(repoRoot); err == nil {
		repoRoot = abs
	}

	return NewMux(
		NewRecordingExecutor(file.NewExecutor(repoRoot)),
		NewRecordingExecutor(git.NewExecutor(repoRoot)),
	)
}

// Execute routes the call to the executor owning the tool name.
func (m *Mux) Execute(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	e, ok := m.routes[call.Name]
	if !ok {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("unknown tool: %s", call.Name),
		}, fmt.Errorf("unknown tool: %s", call.Name)
	}
	return e.Execute(ctx, call)
}

// ListTools returns the definitions of every routed tool, in executor
// registration order.
func (m *Mux) ListTools() []agentic.ToolDefinition {
	var defs []agentic.ToolDefinition
	seen := make(map[string]bool)
	for _, entry := range m.byName {
		for _, tool := range entry.executor.ListTools() {
			if seen[tool.Name] {
				continue
			}
			seen[tool.Name] = true
			defs = append(defs, tool)
		}
	}
	return defs
}
