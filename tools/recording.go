// Package tools provides the tool executors available to executions and
// the recording wrapper that captures each call for trajectory queries.
package tools

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/c360studio/semstreams/agentic"

	"github.com/c360studio/agentloop/llm"
)

// Executor runs tool calls and advertises the tools it implements.
type Executor interface {
	Execute(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error)
	ListTools() []agentic.ToolDefinition
}

// MaxRecordedParamsLength is the max length for serialized parameters stored in a record.
const MaxRecordedParamsLength = 1000

// MaxRecordedResultLength is the max length for result content stored in a record.
const MaxRecordedResultLength = 2000

// RecordingExecutor wraps an Executor and records each call to the global
// ToolCallStore. If the global store is not initialized, calls pass
// through transparently without recording.
type RecordingExecutor struct {
	inner  Executor
	logger *slog.Logger
}

// NewRecordingExecutor wraps an executor with tool call recording.
func NewRecordingExecutor(inner Executor) *RecordingExecutor {
	return &RecordingExecutor{
		inner:  inner,
		logger: slog.Default(),
	}
}

// Execute runs the underlying tool executor and records the call to the ToolCallStore.
func (r *RecordingExecutor) Execute(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error) {
	startedAt := time.Now()

	result, execErr := r.inner.Execute(ctx, call)

	completedAt := time.Now()
	durationMs := completedAt.Sub(startedAt).Milliseconds()

	// Record asynchronously to avoid slowing down tool execution.
	tc := llm.GetTraceContext(ctx)
	go r.recordCall(tc, call, result, execErr, startedAt, completedAt, durationMs)

	return result, execErr
}

// ListTools delegates to the inner executor.
func (r *RecordingExecutor) ListTools() []agentic.ToolDefinition {
	return r.inner.ListTools()
}

// recordCall stores the tool execution record in the global ToolCallStore.
func (r *RecordingExecutor) recordCall(
	tc llm.TraceContext,
	call agentic.ToolCall,
	result agentic.ToolResult,
	execErr error,
	startedAt, completedAt time.Time,
	durationMs int64,
) {
	store := llm.GlobalToolCallStore()
	if store == nil {
		return // Recording disabled - store not initialized
	}

	status := "success"
	var errMsg string
	if execErr != nil {
		status = "error"
		errMsg = execErr.Error()
	} else if result.Error != "" {
		status = "error"
		errMsg = result.Error
	}

	params := truncateJSON(call.Arguments, MaxRecordedParamsLength)

	resultPreview := result.Content
	if len(resultPreview) > MaxRecordedResultLength {
		resultPreview = resultPreview[:MaxRecordedResultLength] + "..."
	}

	record := &llm.ToolCallRecord{
		CallID:      call.ID,
		ExecutionID: tc.ExecutionID,
		ThreadID:    tc.ThreadID,
		ToolName:    call.Name,
		Parameters:  params,
		Result:      resultPreview,
		Status:      status,
		Error:       errMsg,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		DurationMs:  durationMs,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := store.Store(ctx, record); err != nil {
		r.logger.Warn("Failed to record tool call",
			"tool", call.Name,
			"call_id", call.ID,
			"error", err)
	}
}

// truncateJSON marshals a map to JSON and truncates to maxLen.
func truncateJSON(m map[string]any, maxLen int) string {
	if m == nil {
		return "{}"
	}

	data, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}

	s := string(data)
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
