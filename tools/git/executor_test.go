package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/c360studio/semstreams/agentic"
)

// initRepo creates a git repository with one commit in a temp dir.
func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	run := func(args ...string) {
		t.Helper()
		cmd := exec.Command("git", args...)
		cmd.Dir = dir
		if out, err := cmd.CombinedOutput(); err != nil {
			t.Fatalf("git %v failed: %v: %s", args, err, out)
		}
	}

	run("init")
	run("config", "user.email", "test@example.com")
	run("config", "user.name", "Test")

	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte("# test\n"), 0644); err != nil {
		t.Fatalf("write seed file: %v", err)
	}
	run("add", "README.md")
	run("commit", "-m", "chore: initial commit")

	return dir
}

func execTool(t *testing.T, e *Executor, name string, args map[string]any) agentic.ToolResult {
	t.Helper()
	result, _ := e.Execute(context.Background(), agentic.ToolCall{
		ID:        "test-call",
		Name:      name,
		Arguments: args,
	})
	return result
}

func TestGitStatus(t *testing.T) {
	dir := initRepo(t)
	e := NewExecutor(dir)

	t.Run("clean tree", func(t *testing.T) {
		result := execTool(t, e, "git_status", nil)
		if result.Error != "" {
			t.Fatalf("unexpected error: %s", result.Error)
		}
		if result.Content != "Working tree clean" {
			t.Errorf("unexpected content: %q", result.Content)
		}
	})

	t.Run("untracked file", func(t *testing.T) {
		os.WriteFile(filepath.Join(dir, "new.txt"), []byte("x"), 0644)
		result := execTool(t, e, "git_status", nil)
		if !strings.Contains(result.Content, "Untracked:") {
			t.Errorf("expected untracked section, got %q", result.Content)
		}
	})

	t.Run("not a repo", func(t *testing.T) {
		outside := NewExecutor(t.TempDir())
		result := execTool(t, outside, "git_status", nil)
		if result.Error == "" {
			t.Error("expected error outside a repository")
		}
	})
}

func TestGitAdd(t *testing.T) {
	dir := initRepo(t)
	e := NewExecutor(dir)

	os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\n"), 0644)

	t.Run("stages named paths", func(t *testing.T) {
		result := execTool(t, e, "git_add", map[string]any{
			"paths": []any{"a.go"},
		})
		if result.Error != "" {
			t.Fatalf("unexpected error: %s", result.Error)
		}
		if !strings.Contains(result.Content, "a.go") {
			t.Errorf("expected a.go staged, got %q", result.Content)
		}
	})

	t.Run("rejects traversal", func(t *testing.T) {
		result := execTool(t, e, "git_add", map[string]any{
			"paths": []any{"../outside.txt"},
		})
		if result.Error == "" {
			t.Error("expected error for traversal path")
		}
	})

	t.Run("stages modified tracked files by default", func(t *testing.T) {
		os.WriteFile(filepath.Join(dir, "README.md"), []byte("# changed\n"), 0644)
		result := execTool(t, e, "git_add", nil)
		if result.Error != "" {
			t.Fatalf("unexpected error: %s", result.Error)
		}
		if !strings.Contains(result.Content, "README.md") {
			t.Errorf("expected README.md staged, got %q", result.Content)
		}
	})
}

func TestGitBranch(t *testing.T) {
	dir := initRepo(t)
	e := NewExecutor(dir)

	t.Run("creates branch", func(t *testing.T) {
		result := execTool(t, e, "git_branch", map[string]any{"name": "feature/x"})
		if result.Error != "" {
			t.Fatalf("unexpected error: %s", result.Error)
		}
		if !strings.Contains(result.Content, "Created and switched") {
			t.Errorf("unexpected content: %q", result.Content)
		}
	})

	t.Run("switches to existing branch", func(t *testing.T) {
		execTool(t, e, "git_branch", map[string]any{"name": "main-two"})
		result := execTool(t, e, "git_branch", map[string]any{"name": "feature/x"})
		if result.Error != "" {
			t.Fatalf("unexpected error: %s", result.Error)
		}
		if !strings.Contains(result.Content, "Switched to branch") {
			t.Errorf("unexpected content: %q", result.Content)
		}
	})

	t.Run("requires name", func(t *testing.T) {
		result := execTool(t, e, "git_branch", nil)
		if result.Error == "" {
			t.Error("expected error for missing name")
		}
	})
}

func TestGitCommit(t *testing.T) {
	dir := initRepo(t)
	e := NewExecutor(dir)

	t.Run("rejects non-conventional message", func(t *testing.T) {
		result := execTool(t, e, "git_commit", map[string]any{"message": "did stuff"})
		if result.Error == "" {
			t.Error("expected error for non-conventional message")
		}
	})

	t.Run("nothing staged", func(t *testing.T) {
		result := execTool(t, e, "git_commit", map[string]any{"message": "fix: nothing"})
		if result.Error == "" {
			t.Error("expected error with no staged changes")
		}
	})

	t.Run("commits staged changes", func(t *testing.T) {
		os.WriteFile(filepath.Join(dir, "README.md"), []byte("# updated\n"), 0644)
		result := execTool(t, e, "git_commit", map[string]any{
			"message":   "docs: update readme",
			"stage_all": true,
		})
		if result.Error != "" {
			t.Fatalf("unexpected error: %s", result.Error)
		}
		if !strings.Contains(result.Content, "Committed") {
			t.Errorf("unexpected content: %q", result.Content)
		}
	})
}

func TestGitDiff(t *testing.T) {
	dir := initRepo(t)
	e := NewExecutor(dir)

	t.Run("no changes", func(t *testing.T) {
		result := execTool(t, e, "git_diff", nil)
		if result.Error != "" {
			t.Fatalf("unexpected error: %s", result.Error)
		}
		if result.Content != "No changes" {
			t.Errorf("unexpected content: %q", result.Content)
		}
	})

	t.Run("working tree change", func(t *testing.T) {
		os.WriteFile(filepath.Join(dir, "README.md"), []byte("# diffed\n"), 0644)
		result := execTool(t, e, "git_diff", map[string]any{"path": "README.md"})
		if !strings.Contains(result.Content, "diffed") {
			t.Errorf("expected diff output, got %q", result.Content)
		}
	})

	t.Run("rejects traversal path", func(t *testing.T) {
		result := execTool(t, e, "git_diff", map[string]any{"path": "../x"})
		if result.Error == "" {
			t.Error("expected error for traversal path")
		}
	})
}

func TestGitLog(t *testing.T) {
	dir := initRepo(t)
	e := NewExecutor(dir)

	result := execTool(t, e, "git_log", map[string]any{"count": float64(5)})
	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if !strings.Contains(result.Content, "initial commit") {
		t.Errorf("expected the seed commit, got %q", result.Content)
	}
}

func TestValidateConventionalCommit(t *testing.T) {
	valid := []string{
		"feat: add thing",
		"fix(parser): handle empty input",
		"docs: update readme",
		"refactor(core): simplify loop",
	}
	for _, m := range valid {
		if !ValidateConventionalCommit(m) {
			t.Errorf("expected valid: %q", m)
		}
	}

	invalid := []string{
		"did stuff",
		"Feature: add thing",
		"feat:missing space",
		"",
	}
	for _, m := range invalid {
		if ValidateConventionalCommit(m) {
			t.Errorf("expected invalid: %q", m)
		}
	}
}

func TestUnknownTool(t *testing.T) {
	e := NewExecutor(t.TempDir())
	result, err := e.Execute(context.Background(), agentic.ToolCall{
		ID:   "test-call",
		Name: "git_rebase",
	})
	if err == nil {
		t.Error("expected error for unknown tool")
	}
	if result.Error == "" {
		t.Error("expected error in result")
	}
}
