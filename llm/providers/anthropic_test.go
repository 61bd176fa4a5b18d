package providers

import (
	"encoding/json"
	"testing"

	"github.com/c360studio/agentloop/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicBuildURL(t *testing.T) {
	p := &AnthropicProvider{}

	assert.Equal(t, "https://api.anthropic.com/v1/messages", p.BuildURL(""))
	assert.Equal(t, "https://proxy.internal/v1/messages", p.BuildURL("https://proxy.internal/"))
}

func TestAnthropicBuildRequestBodyExtractsSystem(t *testing.T) {
	p := &AnthropicProvider{}

	body, err := p.BuildRequestBody("claude-sonnet-4-20250514", []llm.Message{
		{Role: "system", Content: "be careful"},
		{Role: "user", Content: "fix the bug"},
	}, nil, 0, nil, "")
	require.NoError(t, err)

	var req struct {
		System    string `json:"system"`
		MaxTokens int    `json:"max_tokens"`
		Messages  []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(body, &req))

	assert.Equal(t, "be careful", req.System)
	assert.Equal(t, 4096, req.MaxTokens) // default applied
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "user", req.Messages[0].Role)
}

func TestAnthropicBuildRequestBodyTools(t *testing.T) {
	p := &AnthropicProvider{}

	tools := []llm.ToolDefinition{{
		Name:        "file_write",
		Description: "Write a file",
		Parameters:  map[string]any{"type": "object"},
	}}

	body, err := p.BuildRequestBody("claude-sonnet-4-20250514", []llm.Message{
		{Role: "user", Content: "write it"},
	}, nil, 0, tools, llm.ToolChoiceRequired)
	require.NoError(t, err)

	var req struct {
		Tools []struct {
			Name        string         `json:"name"`
			InputSchema map[string]any `json:"input_schema"`
		} `json:"tools"`
		ToolChoice map[string]any `json:"tool_choice"`
	}
	require.NoError(t, json.Unmarshal(body, &req))

	require.Len(t, req.Tools, 1)
	assert.Equal(t, "file_write", req.Tools[0].Name)
	assert.Equal(t, "any", req.ToolChoice["type"])
}

func TestAnthropicBuildRequestBodyToolResult(t *testing.T) {
	p := &AnthropicProvider{}

	body, err := p.BuildRequestBody("claude-sonnet-4-20250514", []llm.Message{
		{Role: "user", Content: "read main.go"},
		{Role: "assistant", ToolCalls: []llm.ToolCall{
			{ID: "toolu_1", Name: "file_read", Arguments: `{"path":"main.go"}`},
		}},
		{Role: "tool", ToolCallID: "toolu_1", Content: "package main"},
	}, nil, 0, nil, "")
	require.NoError(t, err)

	var req struct {
		Messages []struct {
			Role    string `json:"role"`
			Content []struct {
				Type      string `json:"type"`
				ToolUseID string `json:"tool_use_id"`
			} `json:"content"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(body, &req))
	require.Len(t, req.Messages, 3)

	// Assistant tool_use block
	assert.Equal(t, "tool_use", req.Messages[1].Content[0].Type)

	// Tool result travels as a user message with a tool_result block
	assert.Equal(t, "user", req.Messages[2].Role)
	assert.Equal(t, "tool_result", req.Messages[2].Content[0].Type)
	assert.Equal(t, "toolu_1", req.Messages[2].Content[0].ToolUseID)
}

func TestAnthropicParseResponse(t *testing.T) {
	p := &AnthropicProvider{}

	body := []byte(`{
		"id": "msg_1",
		"type": "message",
		"role": "assistant",
		"content": [
			{"type": "text", "text": "I'll run the tests. "},
			{"type": "tool_use", "id": "toolu_2", "name": "run_tests", "input": {"package": "./..."}}
		],
		"model": "claude-sonnet-4-20250514",
		"stop_reason": "tool_use",
		"usage": {"input_tokens": 50, "output_tokens": 25}
	}`)

	resp, err := p.ParseResponse(body, "claude-sonnet-4-20250514")
	require.NoError(t, err)

	assert.Equal(t, "I'll run the tests. ", resp.Content)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "toolu_2", resp.ToolCalls[0].ID)
	assert.Equal(t, "run_tests", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"package":"./..."}`, resp.ToolCalls[0].Arguments)
	assert.Equal(t, 75, resp.Usage.TotalTokens)
	assert.Equal(t, "tool_use", resp.FinishReason)
}
