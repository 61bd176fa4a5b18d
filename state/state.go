// Package state holds the mutable execution state for an agentic run and
// the stores that replicate it. One ExecutionState is owned exclusively by
// a single loop controller per conversation thread; stores replicate
// snapshots of it across processes.
package state

import (
	"time"
)

// TurnStatus is the model-reported status of a single turn.
type TurnStatus string

const (
	// StatusContinue means the model wants another turn.
	StatusContinue TurnStatus = "continue"

	// StatusStuck means the model reported it cannot make progress.
	StatusStuck TurnStatus = "stuck"

	// StatusComplete means the model declared the task done.
	StatusComplete TurnStatus = "complete"

	// StatusNeedsClarification means the model is waiting on the human.
	StatusNeedsClarification TurnStatus = "needs_clarification"
)

// TestResult records a single test outcome observed during an execution.
type TestResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
}

// InterruptRecord is the audit entry for a human-issued interrupt.
// Every interrupt is recorded before dispatch, regardless of outcome.
type InterruptRecord struct {
	Type      string    `json:"type"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EscalationEvent records a model switch. Events are append-only; they are
// never mutated or removed once added to the state.
type EscalationEvent struct {
	TurnNumber int       `json:"turn_number"`
	FromModel  string    `json:"from_model"`
	ToModel    string    `json:"to_model"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}

// TokenUsage holds token counters reported by the model endpoint.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ToolInvocation is one requested tool call within a turn.
type ToolInvocation struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ToolOutcome pairs a tool call with its result.
type ToolOutcome struct {
	Name    string `json:"name"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// ExecutionTurn is the immutable record of one round-trip to the model plus
// the tool calls it requested. Turns are appended to an ordered, append-only
// log owned by the controller.
type ExecutionTurn struct {
	// TurnNumber is the 1-based position of this turn in the execution.
	TurnNumber int `json:"turn_number"`

	// Input is the user-visible text that drove this turn.
	Input string `json:"input,omitempty"`

	// ToolCalls are the tool invocations the model requested.
	ToolCalls []ToolInvocation `json:"tool_calls,omitempty"`

	// ToolResults are the outcomes of executing the requested tools.
	ToolResults []ToolOutcome `json:"tool_results,omitempty"`

	// Response is the raw model response text.
	Response string `json:"response"`

	// SelfConfidence is the model's self-reported confidence (0-100).
	// It is taken at face value and is the least trusted scoring signal.
	SelfConfidence int `json:"self_confidence"`

	// Status is the model-reported turn status.
	Status TurnStatus `json:"status"`

	// Model is the model identifier that produced this turn.
	Model string `json:"model"`

	// Usage holds optional token counters for this turn.
	Usage TokenUsage `json:"usage,omitempty"`

	// Timestamp is when the turn completed.
	Timestamp time.Time `json:"timestamp"`
}

// HadToolError reports whether any tool result in this turn carried an error.
func (t *ExecutionTurn) HadToolError() bool {
	for _, r := range t.ToolResults {
		if r.Error != "" {
			return true
		}
	}
	return false
}

// ExecutionState is the mutable state of one execution. It is owned by
// exactly one loop controller; other processes only ever read replicated
// snapshots of it.
type ExecutionState struct {
	// ThreadID identifies the conversation thread this execution runs in.
	ThreadID string `json:"thread_id"`

	// ExecutionID uniquely identifies this execution.
	ExecutionID string `json:"execution_id"`

	// TurnNumber is monotonically non-decreasing within one execution.
	TurnNumber int `json:"turn_number"`

	// ConfidenceScore is the last computed confidence (0-100).
	ConfidenceScore int `json:"confidence_score"`

	// LastError is the most recent turn-level error message, if any.
	LastError string `json:"last_error,omitempty"`

	// ErrorCount is the total number of turn-level errors observed.
	ErrorCount int `json:"error_count"`

	// SameErrorCount counts consecutive identical errors. It resets to 1
	// whenever LastError changes.
	SameErrorCount int `json:"same_error_count"`

	// NoProgressTurns counts turns since forward progress was last
	// detected. It resets to 0 whenever progress evidence is observed.
	NoProgressTurns int `json:"no_progress_turns"`

	// FileChanges is an ordered, deduplicated set of touched file paths.
	FileChanges []string `json:"file_changes,omitempty"`

	// TestResults accumulates test outcomes across the whole execution.
	TestResults []TestResult `json:"test_results,omitempty"`

	// UserInterrupts is the ordered audit log of human interrupts.
	UserInterrupts []InterruptRecord `json:"user_interrupts,omitempty"`

	// UserCorrectionCount counts WRONG-type corrections from the human.
	UserCorrectionCount int `json:"user_correction_count"`

	// Escalations is the append-only history of model switches.
	Escalations []EscalationEvent `json:"escalations,omitempty"`

	// CurrentModel is the model identifier currently in use.
	CurrentModel string `json:"current_model"`

	// StartedAt is when the execution began.
	StartedAt time.Time `json:"started_at"`

	// UpdatedAt is when the state was last mutated.
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates an ExecutionState for the given thread and execution.
func New(threadID, executionID, model string) *ExecutionState {
	now := time.Now()
	return &ExecutionState{
		ThreadID:     threadID,
		ExecutionID:  executionID,
		CurrentModel: model,
		StartedAt:    now,
		UpdatedAt:    now,
	}
}

// AdvanceTurn increments the turn number.
func (s *ExecutionState) AdvanceTurn() {
	s.TurnNumber++
	s.touch()
}

// RecordError tracks a turn-level error and its repetition streak.
// An identical consecutive message increments SameErrorCount by exactly one;
// a different message resets the streak to 1.
func (s *ExecutionState) RecordError(msg string) {
	s.ErrorCount++
	if msg == s.LastError && s.LastError != "" {
		s.SameErrorCount++
	} else {
		s.LastError = msg
		s.SameErrorCount = 1
	}
	s.touch()
}

// MarkProgress records forward-progress evidence, resetting the no-progress
// streak and folding any touched paths into the ordered file-change set.
func (s *ExecutionState) MarkProgress(files ...string) {
	s.NoProgressTurns = 0
	for _, f := range files {
		s.addFileChange(f)
	}
	s.touch()
}

// MarkNoProgress records a turn without forward-progress evidence.
func (s *ExecutionState) MarkNoProgress() {
	s.NoProgressTurns++
	s.touch()
}

// addFileChange appends a path if it has not been seen before.
func (s *ExecutionState) addFileChange(path string) {
	if path == "" {
		return
	}
	for _, existing := range s.FileChanges {
		if existing == path {
			return
		}
	}
	s.FileChanges = append(s.FileChanges, path)
}

// AddTestResults appends observed test outcomes.
func (s *ExecutionState) AddTestResults(results ...TestResult) {
	s.TestResults = append(s.TestResults, results...)
	s.touch()
}

// TestPassRate returns the cumulative pass rate across the execution,
// or the provided default when no tests have run yet.
func (s *ExecutionState) TestPassRate(def float64) float64 {
	if len(s.TestResults) == 0 {
		return def
	}
	passed := 0
	for _, r := range s.TestResults {
		if r.Passed {
			passed++
		}
	}
	return float64(passed) / float64(len(s.TestResults))
}

// RecordInterrupt appends an interrupt to the audit log.
func (s *ExecutionState) RecordInterrupt(typ, message string, at time.Time) {
	s.UserInterrupts = append(s.UserInterrupts, InterruptRecord{
		Type:      typ,
		Message:   message,
		Timestamp: at,
	})
	s.touch()
}

// RecordCorrection counts a WRONG-type user correction.
func (s *ExecutionState) RecordCorrection() {
	s.UserCorrectionCount++
	s.touch()
}

// RecordEscalation appends a model switch event and makes the target model
// current. The event history is never cleared.
func (s *ExecutionState) RecordEscalation(toModel, reason string) {
	s.Escalations = append(s.Escalations, EscalationEvent{
		TurnNumber: s.TurnNumber,
		FromModel:  s.CurrentModel,
		ToModel:    toModel,
		Reason:     reason,
		Timestamp:  time.Now(),
	})
	s.CurrentModel = toModel
	s.touch()
}

// ClearPressure zeroes the escalation-pressure counters so a newly escalated
// model gets a clean runway. Error and escalation history is retained.
func (s *ExecutionState) ClearPressure() {
	s.SameErrorCount = 0
	s.NoProgressTurns = 0
	s.touch()
}

// RelaxPressure lowers the pressure counters by one each, floored at zero.
// Used by the RETRY interrupt.
func (s *ExecutionState) RelaxPressure() {
	if s.SameErrorCount > 0 {
		s.SameErrorCount--
	}
	if s.NoProgressTurns > 0 {
		s.NoProgressTurns--
	}
	s.touch()
}

func (s *ExecutionState) touch() {
	s.UpdatedAt = time.Now()
}
