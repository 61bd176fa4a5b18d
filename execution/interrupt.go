package execution

import (
	"encoding/json"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
)

// InterruptPayload is a human signal aimed at a running execution.
// Published to user.interrupt.<threadID>; the engine parses it into an
// interrupt command and posts it to the thread's mailbox. A payload
// carries either a reaction emoji or a text message, not both.
type InterruptPayload struct {
	// ThreadID is the conversation thread the signal targets.
	ThreadID string `json:"thread_id"`

	// Emoji is a reaction emoji signal.
	Emoji string `json:"emoji,omitempty"`

	// Text is a keyword-prefixed text signal.
	Text string `json:"text,omitempty"`

	// UserID is the ID of the user who issued the signal.
	UserID string `json:"user_id,omitempty"`

	// Timestamp is when the signal was issued.
	Timestamp time.Time `json:"timestamp"`
}

// Schema returns the message type for this payload.
func (p *InterruptPayload) Schema() message.Type {
	return InterruptType
}

// Validate validates the payload.
func (p *InterruptPayload) Validate() error {
	if p.ThreadID == "" {
		return &ValidationError{Field: "thread_id", Message: "thread_id is required"}
	}
	if p.Emoji == "" && p.Text == "" {
		return &ValidationError{Field: "emoji", Message: "emoji or text is required"}
	}
	return nil
}

// MarshalJSON marshals the payload to JSON.
func (p *InterruptPayload) MarshalJSON() ([]byte, error) {
	type Alias InterruptPayload
	return json.Marshal((*Alias)(p))
}

// UnmarshalJSON unmarshals the payload from JSON.
func (p *InterruptPayload) UnmarshalJSON(data []byte) error {
	type Alias InterruptPayload
	return json.Unmarshal(data, (*Alias)(p))
}

// InterruptType is the message type for interrupt payloads.
var InterruptType = message.Type{
	Domain:   "execution",
	Category: "interrupt",
	Version:  "v1",
}

func init() {
	_ = component.RegisterPayload(&component.PayloadRegistration{
		Domain:      "execution",
		Category:    "interrupt",
		Version:     "v1",
		Description: "Human interrupt signal payload",
		Factory:     func() any { return &InterruptPayload{} },
	})
}
