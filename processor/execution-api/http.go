package executionapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/agentloop/llm"
	"github.com/c360studio/agentloop/session"
	"github.com/c360studio/agentloop/state"
)

// RegisterHTTPHandlers registers HTTP handlers for the execution-api component.
// The prefix may or may not include trailing slash.
func (c *Component) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	// Ensure prefix has trailing slash
	if !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}
	mux.HandleFunc(prefix+"executions/", c.handleExecutions)
	mux.HandleFunc(prefix+"sessions/", c.handleGetSession)
	mux.HandleFunc(prefix+"calls/", c.handleGetCalls)
	mux.HandleFunc(prefix+"toolcalls/", c.handleGetToolCalls)
}

// Trajectory represents aggregated data about one execution's LLM interactions.
type Trajectory struct {
	// ThreadID is the conversation thread the execution ran in.
	ThreadID string `json:"thread_id"`

	// ExecutionID is the execution identifier.
	ExecutionID string `json:"execution_id"`

	// Turns is the number of turns the execution reached.
	Turns int `json:"turns"`

	// Confidence is the last computed confidence score (0-100).
	Confidence int `json:"confidence"`

	// Model is the model the execution last ran on.
	Model string `json:"model,omitempty"`

	// ModelCalls is the number of LLM calls made.
	ModelCalls int `json:"model_calls"`

	// ToolCalls is the number of tool calls made.
	ToolCalls int `json:"tool_calls"`

	// TokensIn is the total prompt tokens across all calls.
	TokensIn int `json:"tokens_in"`

	// TokensOut is the total completion tokens across all calls.
	TokensOut int `json:"tokens_out"`

	// DurationMs is the total duration in milliseconds.
	DurationMs int64 `json:"duration_ms"`

	// StartedAt is when the execution started.
	StartedAt time.Time `json:"started_at"`

	// UpdatedAt is when the execution state was last touched.
	UpdatedAt time.Time `json:"updated_at"`

	// Evaluation is the most recent trajectory evaluation for the
	// thread, when a session records one.
	Evaluation *session.TrajectorySummary `json:"evaluation,omitempty"`

	// Entries contains the detailed trajectory entries (only if format=json).
	Entries []TrajectoryEntry `json:"entries,omitempty"`
}

// TrajectoryEntry represents a single event in the trajectory.
type TrajectoryEntry struct {
	// Type is the entry type (model_call, tool_call).
	Type string `json:"type"`

	// Timestamp is when this entry occurred.
	Timestamp time.Time `json:"timestamp"`

	// DurationMs is how long this entry took.
	DurationMs int64 `json:"duration_ms,omitempty"`

	// Model is the model used (for model_call).
	Model string `json:"model,omitempty"`

	// Provider is the provider used (for model_call).
	Provider string `json:"provider,omitempty"`

	// Tier is the ladder tier that was requested (for model_call).
	Tier string `json:"tier,omitempty"`

	// TokensIn is prompt tokens (for model_call).
	TokensIn int `json:"tokens_in,omitempty"`

	// TokensOut is completion tokens (for model_call).
	TokensOut int `json:"tokens_out,omitempty"`

	// FinishReason is why the model stopped (for model_call).
	FinishReason string `json:"finish_reason,omitempty"`

	// Error is any error message.
	Error string `json:"error,omitempty"`

	// Retries is number of retry attempts (for model_call).
	Retries int `json:"retries,omitempty"`

	// MessagesCount is the number of messages sent (for model_call).
	MessagesCount int `json:"messages_count,omitempty"`

	// ResponsePreview is a truncated preview of the response (for model_call).
	ResponsePreview string `json:"response_preview,omitempty"`

	// ToolName is the tool that was executed (for tool_call).
	ToolName string `json:"tool_name,omitempty"`

	// Status is the execution result status (for tool_call: "success", "error").
	Status string `json:"status,omitempty"`

	// ResultPreview is a truncated preview of the tool result (for tool_call).
	ResultPreview string `json:"result_preview,omitempty"`
}

// handleExecutions dispatches GET /executions/{thread_id}[/checkpoint|/trajectory].
func (c *Component) handleExecutions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	threadID, sub := splitResourcePath(r.URL.Path, "/executions/")
	if threadID == "" {
		http.Error(w, "Thread ID required", http.StatusBadRequest)
		return
	}

	switch sub {
	case "":
		c.serveExecutionState(w, r, threadID)
	case "checkpoint":
		c.serveCheckpoint(w, r, threadID)
	case "trajectory":
		c.serveTrajectory(w, r, threadID)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// serveExecutionState returns the durable execution state for a thread.
func (c *Component) serveExecutionState(w http.ResponseWriter, r *http.Request, threadID string) {
	st, err := c.getExecutionState(r.Context(), threadID)
	if err != nil {
		c.logger.Error("Failed to get execution state", "thread_id", threadID, "error", err)
		http.Error(w, "Failed to retrieve execution state", http.StatusInternalServerError)
		return
	}
	if st == nil {
		http.Error(w, "Execution not found", http.StatusNotFound)
		return
	}

	writeJSON(w, c.logger, st)
}

// serveCheckpoint returns the latest checkpointed state for a thread.
func (c *Component) serveCheckpoint(w http.ResponseWriter, r *http.Request, threadID string) {
	bucket, err := c.getStateBucket(r.Context())
	if err != nil {
		c.logger.Error("State bucket unavailable", "error", err)
		http.Error(w, "Failed to retrieve checkpoint", http.StatusInternalServerError)
		return
	}

	st, err := readState(r.Context(), bucket, state.CheckpointKey(threadID))
	if err != nil {
		c.logger.Error("Failed to get checkpoint", "thread_id", threadID, "error", err)
		http.Error(w, "Failed to retrieve checkpoint", http.StatusInternalServerError)
		return
	}
	if st == nil {
		http.Error(w, "Checkpoint not found", http.StatusNotFound)
		return
	}

	writeJSON(w, c.logger, st)
}

// serveTrajectory handles GET /executions/{thread_id}/trajectory?format={summary|json}.
// Returns aggregated trajectory data for the thread's latest execution.
func (c *Component) serveTrajectory(w http.ResponseWriter, r *http.Request, threadID string) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "summary"
	}

	trajectory, err := c.getTrajectory(r.Context(), threadID, format == "json")
	if err != nil {
		c.logger.Error("Failed to get trajectory", "thread_id", threadID, "error", err)
		http.Error(w, "Failed to retrieve trajectory", http.StatusInternalServerError)
		return
	}

	if trajectory == nil {
		http.Error(w, "Execution not found", http.StatusNotFound)
		return
	}

	writeJSON(w, c.logger, trajectory)
}

// handleGetSession handles GET /sessions/{thread_id}.
// Returns the durable session summary for a conversation thread.
func (c *Component) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	threadID := extractIDFromPath(r.URL.Path, "/sessions/")
	if threadID == "" {
		http.Error(w, "Thread ID required", http.StatusBadRequest)
		return
	}

	sess, err := c.getSession(r.Context(), threadID)
	if err != nil {
		c.logger.Error("Failed to get session", "thread_id", threadID, "error", err)
		http.Error(w, "Failed to retrieve session", http.StatusInternalServerError)
		return
	}
	if sess == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	writeJSON(w, c.logger, sess)
}

// handleGetCalls handles GET /calls/{execution_id}.
// Returns the LLM call records recorded for an execution, oldest first.
func (c *Component) handleGetCalls(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	executionID := extractIDFromPath(r.URL.Path, "/calls/")
	if executionID == "" {
		http.Error(w, "Execution ID required", http.StatusBadRequest)
		return
	}

	c.mu.RLock()
	store := c.callStore
	c.mu.RUnlock()
	if store == nil {
		http.Error(w, "Call store unavailable", http.StatusServiceUnavailable)
		return
	}

	records, err := store.GetByExecutionID(r.Context(), executionID)
	if err != nil {
		c.logger.Error("Failed to get LLM calls", "execution_id", executionID, "error", err)
		http.Error(w, "Failed to retrieve LLM calls", http.StatusInternalServerError)
		return
	}

	llm.SortByStartTime(records)
	writeJSON(w, c.logger, records)
}

// handleGetToolCalls handles GET /toolcalls/{execution_id}.
// Returns the tool call records recorded for an execution, oldest first.
func (c *Component) handleGetToolCalls(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	executionID := extractIDFromPath(r.URL.Path, "/toolcalls/")
	if executionID == "" {
		http.Error(w, "Execution ID required", http.StatusBadRequest)
		return
	}

	c.mu.RLock()
	store := c.toolStore
	c.mu.RUnlock()
	if store == nil {
		http.Error(w, "Tool call store unavailable", http.StatusServiceUnavailable)
		return
	}

	records, err := store.GetByExecutionID(r.Context(), executionID)
	if err != nil {
		c.logger.Error("Failed to get tool calls", "execution_id", executionID, "error", err)
		http.Error(w, "Failed to retrieve tool calls", http.StatusInternalServerError)
		return
	}

	llm.SortToolCallsByStartTime(records)
	writeJSON(w, c.logger, records)
}

// getTrajectory retrieves trajectory data for a thread's latest execution.
func (c *Component) getTrajectory(ctx context.Context, threadID string, includeEntries bool) (*Trajectory, error) {
	st, err := c.getExecutionState(ctx, threadID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, nil
	}

	c.mu.RLock()
	callStore := c.callStore
	toolStore := c.toolStore
	c.mu.RUnlock()

	var calls []*llm.CallRecord
	if callStore != nil {
		calls, err = callStore.GetByExecutionID(ctx, st.ExecutionID)
		if err != nil {
			// Log but continue - we can still return execution state
			c.logger.Warn("Failed to get LLM calls", "execution_id", st.ExecutionID, "error", err)
			calls = nil
		}
	}

	var toolCalls []*llm.ToolCallRecord
	if toolStore != nil {
		toolCalls, err = toolStore.GetByExecutionID(ctx, st.ExecutionID)
		if err != nil {
			// Log but continue - tool calls are supplementary
			c.logger.Warn("Failed to get tool calls", "execution_id", st.ExecutionID, "error", err)
			toolCalls = nil
		}
	}

	trajectory := buildTrajectory(st, calls, toolCalls, includeEntries)

	// Attach the thread's last evaluation when a session records one.
	sess, err := c.getSession(ctx, threadID)
	if err != nil {
		c.logger.Warn("Failed to get session for evaluation", "thread_id", threadID, "error", err)
	} else if sess != nil {
		trajectory.Evaluation = sess.LastTrajectory
	}

	return trajectory, nil
}

// getExecutionState reads the durable execution state for a thread.
func (c *Component) getExecutionState(ctx context.Context, threadID string) (*state.ExecutionState, error) {
	bucket, err := c.getStateBucket(ctx)
	if err != nil {
		return nil, err
	}
	return readState(ctx, bucket, threadID)
}

// getSession reads the durable session for a thread.
func (c *Component) getSession(ctx context.Context, threadID string) (*session.Session, error) {
	bucket, err := c.getSessionsBucket(ctx)
	if err != nil {
		return nil, err
	}

	entry, err := bucket.Get(ctx, threadID)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return nil, nil
		}
		return nil, err
	}

	var sess session.Session
	if err := json.Unmarshal(entry.Value(), &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// readState reads and decodes an execution state entry from a bucket.
func readState(ctx context.Context, bucket jetstream.KeyValue, key string) (*state.ExecutionState, error) {
	entry, err := bucket.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return nil, nil
		}
		return nil, err
	}

	var st state.ExecutionState
	if err := json.Unmarshal(entry.Value(), &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// buildTrajectory constructs a Trajectory from execution state, LLM calls, and tool calls.
func buildTrajectory(st *state.ExecutionState, calls []*llm.CallRecord, toolCalls []*llm.ToolCallRecord, includeEntries bool) *Trajectory {
	t := &Trajectory{
		ThreadID:    st.ThreadID,
		ExecutionID: st.ExecutionID,
		Turns:       st.TurnNumber,
		Confidence:  st.ConfidenceScore,
		Model:       st.CurrentModel,
		ModelCalls:  len(calls),
		ToolCalls:   len(toolCalls),
		StartedAt:   st.StartedAt,
		UpdatedAt:   st.UpdatedAt,
	}

	// Aggregate metrics from LLM calls
	for _, call := range calls {
		t.TokensIn += call.PromptTokens
		t.TokensOut += call.CompletionTokens
		t.DurationMs += call.DurationMs
	}

	// Add tool call durations
	for _, tc := range toolCalls {
		t.DurationMs += tc.DurationMs
	}

	// Prefer wall-clock span from the state when available
	if !st.StartedAt.IsZero() && st.UpdatedAt.After(st.StartedAt) {
		t.DurationMs = st.UpdatedAt.Sub(st.StartedAt).Milliseconds()
	}

	// Build entries if requested, interleaving model and tool calls chronologically
	if includeEntries {
		t.Entries = make([]TrajectoryEntry, 0, len(calls)+len(toolCalls))

		// Add model call entries
		for _, call := range calls {
			entry := TrajectoryEntry{
				Type:          "model_call",
				Timestamp:     call.StartedAt,
				DurationMs:    call.DurationMs,
				Model:         call.Model,
				Provider:      call.Provider,
				Tier:          call.Tier,
				TokensIn:      call.PromptTokens,
				TokensOut:     call.CompletionTokens,
				FinishReason:  call.FinishReason,
				Error:         call.Error,
				Retries:       call.Retries,
				MessagesCount: len(call.Messages),
			}

			// Add response preview (truncated)
			if call.Response != "" {
				preview := call.Response
				if len(preview) > 200 {
					preview = preview[:200] + "..."
				}
				entry.ResponsePreview = preview
			}

			t.Entries = append(t.Entries, entry)
		}

		// Add tool call entries
		for _, tc := range toolCalls {
			entry := TrajectoryEntry{
				Type:       "tool_call",
				Timestamp:  tc.StartedAt,
				DurationMs: tc.DurationMs,
				ToolName:   tc.ToolName,
				Status:     tc.Status,
				Error:      tc.Error,
			}

			// Add result preview (truncated)
			if tc.Result != "" {
				preview := tc.Result
				if len(preview) > 200 {
					preview = preview[:200] + "..."
				}
				entry.ResultPreview = preview
			}

			t.Entries = append(t.Entries, entry)
		}

		// Sort all entries chronologically
		sortEntriesByTimestamp(t.Entries)
	}

	return t
}

// sortEntriesByTimestamp sorts trajectory entries chronologically.
func sortEntriesByTimestamp(entries []TrajectoryEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
}

// writeJSON encodes v as the JSON response body.
func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", "error", err)
	}
}

// extractIDFromPath extracts an ID from a path segment.
// Example: extractIDFromPath("/execution-api/sessions/abc123", "/sessions/") returns "abc123"
func extractIDFromPath(path, prefix string) string {
	id, _ := splitResourcePath(path, prefix)
	return id
}

// splitResourcePath extracts an ID and any sub-resource from a path.
// Example: splitResourcePath("/execution-api/executions/t1/trajectory", "/executions/")
// returns ("t1", "trajectory").
func splitResourcePath(path, prefix string) (id, sub string) {
	idx := strings.Index(path, prefix)
	if idx == -1 {
		return "", ""
	}

	remainder := strings.Trim(path[idx+len(prefix):], "/")
	if slashIdx := strings.Index(remainder, "/"); slashIdx != -1 {
		id, sub = remainder[:slashIdx], remainder[slashIdx+1:]
	} else {
		id = remainder
	}

	return strings.TrimSpace(id), strings.Trim(sub, "/")
}
