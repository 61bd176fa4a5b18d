// Package session persists the per-thread memory that outlives a single
// execution: confidence, current model, the reflection window, key
// insights, the last trajectory summary and the escalation history. The
// controller loads the session before turn one and writes it back on every
// terminal transition.
package session

import (
	"time"

	"github.com/c360studio/agentloop/reflection"
	"github.com/c360studio/agentloop/state"
)

// Session is the durable per-thread record. A freshly created session has
// IsNew set; the flag is cleared on the first save after an execution so
// first-contact behavior never depends on comparing timestamps.
type Session struct {
	ThreadID string `json:"thread_id"`

	// ConfidenceScore is the last confidence computed for this thread.
	ConfidenceScore int `json:"confidence_score"`

	// CurrentTurn is the turn number the last execution reached.
	CurrentTurn int `json:"current_turn"`

	// CurrentModel is the ladder tier the thread last ran on. A thread
	// that escalated stays escalated across executions.
	CurrentModel string `json:"current_model"`

	// Reflections is the window of past execution lessons, newest first.
	Reflections []reflection.Reflection `json:"reflections,omitempty"`

	// KeyInsights is the bounded deduplicated insight list, newest first.
	KeyInsights []string `json:"key_insights,omitempty"`

	// LastTrajectory summarizes the most recent trajectory evaluation.
	LastTrajectory *TrajectorySummary `json:"last_trajectory,omitempty"`

	// Escalations is the full escalation history across executions.
	Escalations []state.EscalationEvent `json:"escalations,omitempty"`

	// SubTopics maps sub-topic keys to short free-form notes the model
	// accumulates about the thread.
	SubTopics map[string]string `json:"sub_topics,omitempty"`

	// IsNew is true until the first execution on this thread completes.
	IsNew bool `json:"is_new"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TrajectorySummary is the compact record of the last evaluation kept on
// the session. The full evaluation stays with the execution state.
type TrajectorySummary struct {
	Score            int       `json:"score"`
	CompletionStatus string    `json:"completion_status"`
	HasProgress      bool      `json:"has_progress"`
	Reasoning        string    `json:"reasoning"`
	EvaluatedAt      time.Time `json:"evaluated_at"`
}

// New creates a fresh session for a thread.
func New(threadID string) *Session {
	now := time.Now()
	return &Session{
		ThreadID:  threadID,
		IsNew:     true,
		SubTopics: make(map[string]string),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// RecordReflection folds a finished execution's lesson into the session.
func (s *Session) RecordReflection(r reflection.Reflection) {
	s.Reflections = reflection.AddToHistory(s.Reflections, r)
	s.UpdatedAt = time.Now()
}

// RecordInsight adds a key insight, subject to the dedup window.
func (s *Session) RecordInsight(insight string) {
	s.KeyInsights = reflection.AddKeyInsight(s.KeyInsights, insight)
	s.UpdatedAt = time.Now()
}

// RecordEscalation appends an escalation to the thread history.
func (s *Session) RecordEscalation(ev state.EscalationEvent) {
	s.Escalations = append(s.Escalations, ev)
	s.UpdatedAt = time.Now()
}

// SetSubTopic stores or updates a sub-topic note.
func (s *Session) SetSubTopic(key, note string) {
	if s.SubTopics == nil {
		s.SubTopics = make(map[string]string)
	}
	s.SubTopics[key] = note
	s.UpdatedAt = time.Now()
}

// Touch marks the session as used by a finished execution, updating the
// rolling fields and clearing IsNew.
func (s *Session) Touch(confidence, turn int, model string) {
	s.ConfidenceScore = confidence
	s.CurrentTurn = turn
	s.CurrentModel = model
	s.IsNew = false
	s.UpdatedAt = time.Now()
}

// PromptContext renders the session memory as prompt sections for the
// next execution on the thread.
func (s *Session) PromptContext() string {
	return reflection.FormatHistory(s.Reflections) + "\n" + reflection.FormatInsights(s.KeyInsights)
}
