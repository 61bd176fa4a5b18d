package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/c360studio/agentloop/llm"
	_ "github.com/c360studio/agentloop/llm/providers" // Register providers
	"github.com/c360studio/agentloop/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ladderFor(url string) *model.Ladder {
	return model.NewLadder(
		[]string{"test-tier"},
		map[string]*model.EndpointConfig{
			"test-tier": {
				Provider: "ollama",
				URL:      url,
				Model:    "test-model",
			},
		},
	)
}

func openAISuccess(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-123",
		"object":  "chat.completion",
		"created": 1677652288,
		"model":   "test-model",
		"choices": []map[string]any{
			{
				"index": 0,
				"message": map[string]string{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{
			"prompt_tokens":     10,
			"completion_tokens": 8,
			"total_tokens":      18,
		},
	}
}

func TestClientCompleteSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openAISuccess("Hello! How can I help you?"))
	}))
	defer server.Close()

	client := llm.NewClient(ladderFor(server.URL))

	resp, err := client.Complete(context.Background(), llm.Request{
		Model:    "test-tier",
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello! How can I help you?", resp.Content)
	assert.Equal(t, 18, resp.Usage.TotalTokens)
	assert.NotEmpty(t, resp.RequestID)
}

func TestClientCompleteValidation(t *testing.T) {
	client := llm.NewClient(ladderFor("http://localhost:1"))

	_, err := client.Complete(context.Background(), llm.Request{
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	assert.ErrorContains(t, err, "model is required")

	_, err = client.Complete(context.Background(), llm.Request{Model: "test-tier"})
	assert.ErrorContains(t, err, "at least one message")

	_, err = client.Complete(context.Background(), llm.Request{
		Model:    "unknown-tier",
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	assert.ErrorContains(t, err, "no endpoint configured")
}

func TestClientRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openAISuccess("recovered"))
	}))
	defer server.Close()

	client := llm.NewClient(ladderFor(server.URL), llm.WithRetryConfig(llm.RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 1.0,
		MaxBackoff:        time.Millisecond,
	}))

	resp, err := client.Complete(context.Background(), llm.Request{
		Model:    "test-tier",
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", resp.Content)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientDoesNotRetryFatalErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := llm.NewClient(ladderFor(server.URL), llm.WithRetryConfig(llm.RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 1.0,
		MaxBackoff:        time.Millisecond,
	}))

	_, err := client.Complete(context.Background(), llm.Request{
		Model:    "test-tier",
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.True(t, llm.IsFatal(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestClientMarksEndpointUnhealthyAfterExhaustion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	ladder := ladderFor(server.URL)
	client := llm.NewClient(ladder, llm.WithRetryConfig(llm.RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       time.Millisecond,
		BackoffMultiplier: 1.0,
		MaxBackoff:        time.Millisecond,
	}))

	_, err := client.Complete(context.Background(), llm.Request{
		Model:    "test-tier",
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	require.Error(t, err)
	assert.True(t, llm.IsTransient(err))

	// Exhausting retries trips the circuit breaker for the tier.
	assert.False(t, ladder.IsEndpointAvailable("test-tier"))
}

func TestClientSendsToolCatalog(t *testing.T) {
	var sawTools atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Tools      []any  `json:"tools"`
			ToolChoice string `json:"tool_choice"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Tools) == 1 && req.ToolChoice == "auto" {
			sawTools.Store(true)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(openAISuccess("ok"))
	}))
	defer server.Close()

	client := llm.NewClient(ladderFor(server.URL))

	_, err := client.Complete(context.Background(), llm.Request{
		Model:    "test-tier",
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
		Tools: []llm.ToolDefinition{{
			Name:        "file_read",
			Description: "Read a file",
			Parameters:  map[string]any{"type": "object"},
		}},
	})
	require.NoError(t, err)

	// Tool choice defaults to auto when tools are present.
	assert.True(t, sawTools.Load())
}

func TestTraceContextRoundTrip(t *testing.T) {
	ctx := llm.WithTraceContext(context.Background(), llm.TraceContext{
		ThreadID:    "thread-1",
		ExecutionID: "exec-1",
	})

	tc := llm.GetTraceContext(ctx)
	assert.Equal(t, "thread-1", tc.ThreadID)
	assert.Equal(t, "exec-1", tc.ExecutionID)

	// Absent trace context yields the zero value.
	assert.Equal(t, llm.TraceContext{}, llm.GetTraceContext(context.Background()))
}
