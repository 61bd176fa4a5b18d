// Package notify publishes execution progress events and user-facing
// notices over NATS. Events are fire-and-forget through a bounded buffer:
// a slow or absent broker never stalls the turn loop, it only costs
// visibility.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/semstreams/agentic"
	"github.com/google/uuid"
)

// EventType classifies a progress event.
type EventType string

const (
	EventTurnStart            EventType = "turn_start"
	EventTurnComplete         EventType = "turn_complete"
	EventToolExecution        EventType = "tool_execution"
	EventCheckpoint           EventType = "checkpoint"
	EventEscalation           EventType = "escalation"
	EventClarificationRequest EventType = "clarification_request"
	EventReflection           EventType = "reflection"
	EventCompletion           EventType = "completion"
)

// Event is one progress notification from a running execution.
type Event struct {
	Type        EventType `json:"type"`
	ThreadID    string    `json:"thread_id"`
	ExecutionID string    `json:"execution_id"`
	TurnNumber  int       `json:"turn_number"`
	Confidence  int       `json:"confidence,omitempty"`
	Model       string    `json:"model,omitempty"`
	Tool        string    `json:"tool,omitempty"`
	Message     string    `json:"message,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Publisher is the NATS surface the notifier needs.
type Publisher interface {
	PublishToStream(ctx context.Context, subject string, data []byte) error
}

// DefaultBufferSize bounds how many events can wait for the publisher.
const DefaultBufferSize = 128

// Notifier drains a bounded event buffer to NATS in the background.
type Notifier struct {
	publisher Publisher
	logger    *slog.Logger

	events  chan Event
	dropped atomic.Int64

	closeOnce sync.Once
	done      chan struct{}
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Notifier) {
		n.logger = logger
	}
}

// WithBufferSize sets the event buffer capacity.
func WithBufferSize(size int) Option {
	return func(n *Notifier) {
		if size > 0 {
			n.events = make(chan Event, size)
		}
	}
}

// NewNotifier creates a notifier and starts its background publisher.
func NewNotifier(publisher Publisher, opts ...Option) *Notifier {
	n := &Notifier{
		publisher: publisher,
		logger:    slog.Default(),
		events:    make(chan Event, DefaultBufferSize),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}

	go n.drain()
	return n
}

// Emit queues an event. A full buffer drops the event and counts it.
func (n *Notifier) Emit(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	select {
	case n.events <- ev:
	default:
		n.dropped.Add(1)
		n.logger.Warn("Event buffer full, dropping event",
			"type", ev.Type,
			"thread_id", ev.ThreadID,
			"dropped_total", n.dropped.Load())
	}
}

// Dropped returns how many events were discarded due to a full buffer.
func (n *Notifier) Dropped() int64 {
	return n.dropped.Load()
}

// Close stops the notifier after publishing everything already queued.
func (n *Notifier) Close() {
	n.closeOnce.Do(func() {
		close(n.events)
		<-n.done
	})
}

func (n *Notifier) drain() {
	defer close(n.done)

	for ev := range n.events {
		data, err := json.Marshal(ev)
		if err != nil {
			n.logger.Error("Failed to marshal event",
				"type", ev.Type,
				"error", err)
			continue
		}

		subject := fmt.Sprintf("execution.event.%s", ev.ThreadID)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := n.publisher.PublishToStream(ctx, subject, data); err != nil {
			n.logger.Error("Failed to publish event",
				"subject", subject,
				"type", ev.Type,
				"error", err)
		}
		cancel()
	}
}

// Notice addresses a user-facing message to a chat channel.
type Notice struct {
	ChannelType string
	ChannelID   string
	UserID      string
}

// PublishUserResponse sends a user-facing notice (busy, failure summary,
// completion summary) to the channel the request came from. Unlike Emit
// this is synchronous; the caller decides whether a failure matters.
func (n *Notifier) PublishUserResponse(ctx context.Context, notice Notice, responseType string, content string) error {
	response := agentic.UserResponse{
		ResponseID:  uuid.New().String(),
		ChannelType: notice.ChannelType,
		ChannelID:   notice.ChannelID,
		UserID:      notice.UserID,
		Type:        responseType,
		Content:     content,
		Timestamp:   time.Now(),
	}

	data, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}

	subject := fmt.Sprintf("user.response.%s.%s", notice.ChannelType, notice.ChannelID)
	if err := n.publisher.PublishToStream(ctx, subject, data); err != nil {
		return fmt.Errorf("publish response: %w", err)
	}
	return nil
}
