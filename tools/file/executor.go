// Package file provides file operation tools for the execution agent.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/c360studio/semstreams/agentic"
)

// Executor implements file operation tools
type Executor struct {
	repoRoot string
}

// NewExecutor creates a new file executor with the given repository root
func NewExecutor(repoRoot string) *Executor {
	return &Executor{repoRoot: repoRoot}
}

// Execute executes a file tool call
func (e *Executor) Execute(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	switch call.Name {
	case "file_read":
		return e.fileRead(ctx, call)
	case "file_write":
		return e.fileWrite(ctx, call)
	case "file_edit":
		return e.fileEdit(ctx, call)
	case "file_delete":
		return e.fileDelete(ctx, call)
	case "file_list":
		return e.fileList(ctx, call)
	default:
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("unknown tool: %s", call.Name),
		}, fmt.Errorf("unknown tool: %s", call.Name)
	}
}

// ListTools returns the tool definitions for file operations
func (e *Executor) ListTools() []agentic.ToolDefinition {
	return []agentic.ToolDefinition{
		{
			Name:        "file_read",
			Description: "Read the contents of a file",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Path to the file to read (relative to repo root)",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "file_write",
			Description: "Write content to a file (creates parent directories if needed)",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Path to the file to write (relative to repo root)",
					},
					"content": map[string]any{
						"type":        "string",
						"description": "Content to write to the file",
					},
				},
				"required": []string{"path", "content"},
			},
		},
		{
			Name:        "file_edit",
			Description: "Replace an exact text fragment in a file",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Path to the file to edit (relative to repo root)",
					},
					"old_text": map[string]any{
						"type":        "string",
						"description": "Exact text to replace (must appear exactly once)",
					},
					"new_text": map[string]any{
						"type":        "string",
						"description": "Replacement text",
					},
				},
				"required": []string{"path", "old_text", "new_text"},
			},
		},
		{
			Name:        "file_delete",
			Description: "Delete a file",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Path to the file to delete (relative to repo root)",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "file_list",
			Description: "List files in a directory",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]any{
						"type":        "string",
						"description": "Path to the directory to list (relative to repo root)",
					},
					"pattern": map[string]any{
						"type":        "string",
						"description": "Optional glob pattern to filter files (e.g., '*.go')",
					},
				},
				"required": []string{"path"},
			},
		},
	}
}

// fileRead reads the contents of a file
func (e *Executor) fileRead(_ context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	path, ok := call.Arguments["path"].(string)
	if !ok {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  "path argument is required",
		}, nil
	}

	fullPath, err := e.validatePath(path)
	if err != nil {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  err.Error(),
		}, nil
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return agentic.ToolResult{
				CallID: call.ID,
				Error:  fmt.Sprintf("file not found: %s", path),
			}, nil
		}
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("failed to read file: %s", err.Error()),
		}, nil
	}

	return agentic.ToolResult{
		CallID:  call.ID,
		Content: string(content),
	}, nil
}

// fileWrite writes content to a file
func (e *Executor) fileWrite(_ context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	path, ok := call.Arguments["path"].(string)
	if !ok {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  "path argument is required",
		}, nil
	}

	content, ok := call.Arguments["content"].(string)
	if !ok {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  "content argument is required",
		}, nil
	}

	fullPath, err := e.validatePath(path)
	if err != nil {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  err.Error(),
		}, nil
	}

	// Create parent directories if needed
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("failed to create directory: %s", err.Error()),
		}, nil
	}

	if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("failed to write file: %s", err.Error()),
		}, nil
	}

	return agentic.ToolResult{
		CallID:  call.ID,
		Content: fmt.Sprintf("Successfully wrote %d bytes to %s", len(content), path),
	}, nil
}

// fileEdit replaces an exact text fragment. The fragment must appear
// exactly once; zero or multiple occurrences are errors the model can
// act on by re-reading the file.
func (e *Executor) fileEdit(_ context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	path, ok := call.Arguments["path"].(string)
	if !ok {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  "path argument is required",
		}, nil
	}

	oldText, ok := call.Arguments["old_text"].(string)
	if !ok || oldText == "" {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  "old_text argument is required",
		}, nil
	}
	newText, ok := call.Arguments["new_text"].(string)
	if !ok {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  "new_text argument is required",
		}, nil
	}

	fullPath, err := e.validatePath(path)
	if err != nil {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  err.Error(),
		}, nil
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return agentic.ToolResult{
				CallID: call.ID,
				Error:  fmt.Sprintf("file not found: %s", path),
			}, nil
		}
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("failed to read file: %s", err.Error()),
		}, nil
	}

	count := strings.Count(string(content), oldText)
	if count == 0 {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("old_text not found in %s", path),
		}, nil
	}
	if count > 1 {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("old_text appears %d times in %s; provide a unique fragment", count, path),
		}, nil
	}

	updated := strings.Replace(string(content), oldText, newText, 1)
	if err := os.WriteFile(fullPath, []byte(updated), 0644); err != nil {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("failed to write file: %s", err.Error()),
		}, nil
	}

	return agentic.ToolResult{
		CallID:  call.ID,
		Content: fmt.Sprintf("Updated file %s", path),
	}, nil
}

// fileDelete removes a file
func (e *Executor) fileDelete(_ context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	path, ok := call.Arguments["path"].(string)
	if !ok {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  "path argument is required",
		}, nil
	}

	fullPath, err := e.validatePath(path)
	if err != nil {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  err.Error(),
		}, nil
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return agentic.ToolResult{
				CallID: call.ID,
				Error:  fmt.Sprintf("file not found: %s", path),
			}, nil
		}
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("failed to stat path: %s", err.Error()),
		}, nil
	}
	if info.IsDir() {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("path is a directory, not a file: %s", path),
		}, nil
	}

	if err := os.Remove(fullPath); err != nil {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("failed to delete file: %s", err.Error()),
		}, nil
	}

	return agentic.ToolResult{
		CallID:  call.ID,
		Content: fmt.Sprintf("Deleted file %s", path),
	}, nil
}

// fileList lists files in a directory
func (e *Executor) fileList(_ context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	path, ok := call.Arguments["path"].(string)
	if !ok {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  "path argument is required",
		}, nil
	}

	pattern, _ := call.Arguments["pattern"].(string)

	fullPath, err := e.validatePath(path)
	if err != nil {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  err.Error(),
		}, nil
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return agentic.ToolResult{
				CallID: call.ID,
				Error:  fmt.Sprintf("directory not found: %s", path),
			}, nil
		}
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("failed to stat path: %s", err.Error()),
		}, nil
	}

	if !info.IsDir() {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("path is not a directory: %s", path),
		}, nil
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("failed to read directory: %s", err.Error()),
		}, nil
	}

	var files []string
	for _, entry := range entries {
		name := entry.Name()

		if pattern != "" {
			matched, err := filepath.Match(pattern, name)
			if err != nil {
				return agentic.ToolResult{
					CallID: call.ID,
					Error:  fmt.Sprintf("invalid pattern: %s", err.Error()),
				}, nil
			}
			if !matched {
				continue
			}
		}

		if entry.IsDir() {
			name += "/"
		}
		files = append(files, name)
	}

	result, err := json.Marshal(files)
	if err != nil {
		return agentic.ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("failed to marshal result: %s", err.Error()),
		}, nil
	}

	return agentic.ToolResult{
		CallID:  call.ID,
		Content: string(result),
	}, nil
}

// validatePath validates and resolves a path, ensuring it's within the repo root
func (e *Executor) validatePath(path string) (string, error) {
	var fullPath string
	if filepath.IsAbs(path) {
		fullPath = filepath.Clean(path)
	} else {
		fullPath = filepath.Clean(filepath.Join(e.repoRoot, path))
	}

	absPath, err := filepath.Abs(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	absRoot, err := filepath.Abs(e.repoRoot)
	if err != nil {
		return "", fmt.Errorf("failed to resolve repo root: %w", err)
	}

	// Ensure path is within repo root
	if !strings.HasPrefix(absPath, absRoot+string(filepath.Separator)) && absPath != absRoot {
		return "", fmt.Errorf("access denied: path is outside repository root")
	}

	return absPath, nil
}
