// Package execution defines the message payloads that start and steer
// executions: task requests consumed by the execution engine and human
// interrupt signals routed into running loops.
package execution

import (
	"encoding/json"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
)

// TaskSubject is the subject execution requests are published to.
const TaskSubject = "agent.task.execution"

// InterruptSubjectPrefix heads interrupt subjects; the thread id follows.
const InterruptSubjectPrefix = "user.interrupt."

// InterruptSubject returns the interrupt subject for a thread.
func InterruptSubject(threadID string) string {
	return InterruptSubjectPrefix + threadID
}

// TaskPayload is a request to run an execution for a conversation thread.
// Published to agent.task.execution; consumed by the execution engine.
type TaskPayload struct {
	// TaskID uniquely identifies this request. It becomes the execution id.
	TaskID string `json:"task_id"`

	// ThreadID is the conversation thread the execution belongs to.
	ThreadID string `json:"thread_id"`

	// Task is the user's request driving the execution.
	Task string `json:"task"`

	// SystemPrompt overrides the default system prompt when set.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// Model is the starting ladder tier (optional, ladder base if empty).
	Model string `json:"model,omitempty"`

	// MaxTurns bounds the execution (optional).
	MaxTurns int `json:"max_turns,omitempty"`

	// Complexity estimates task difficulty on a 1-10 scale and drives the
	// checkpoint interval.
	Complexity int `json:"complexity,omitempty"`

	// UserID is the ID of the user who issued the request.
	UserID string `json:"user_id,omitempty"`

	// ChannelType is the channel type for response routing (cli, slack, http).
	ChannelType string `json:"channel_type,omitempty"`

	// ChannelID is the channel ID for response routing.
	ChannelID string `json:"channel_id,omitempty"`
}

// Schema returns the message type for this payload.
func (p *TaskPayload) Schema() message.Type {
	return TaskType
}

// Validate validates the payload.
func (p *TaskPayload) Validate() error {
	if p.TaskID == "" {
		return &ValidationError{Field: "task_id", Message: "task_id is required"}
	}
	if p.ThreadID == "" {
		return &ValidationError{Field: "thread_id", Message: "thread_id is required"}
	}
	if p.Task == "" {
		return &ValidationError{Field: "task", Message: "task is required"}
	}
	return nil
}

// MarshalJSON marshals the payload to JSON.
func (p *TaskPayload) MarshalJSON() ([]byte, error) {
	type Alias TaskPayload
	return json.Marshal((*Alias)(p))
}

// UnmarshalJSON unmarshals the payload from JSON.
func (p *TaskPayload) UnmarshalJSON(data []byte) error {
	type Alias TaskPayload
	return json.Unmarshal(data, (*Alias)(p))
}

// TaskType is the message type for execution task payloads.
var TaskType = message.Type{
	Domain:   "execution",
	Category: "task",
	Version:  "v1",
}

// ValidationError reports a missing or malformed payload field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func init() {
	_ = component.RegisterPayload(&component.PayloadRegistration{
		Domain:      "execution",
		Category:    "task",
		Version:     "v1",
		Description: "Execution task request payload",
		Factory:     func() any { return &TaskPayload{} },
	})
}
