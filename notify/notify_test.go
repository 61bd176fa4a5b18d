package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/c360studio/semstreams/agentic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// capturingPublisher records published subjects and payloads.
type capturingPublisher struct {
	mu       sync.Mutex
	subjects []string
	payloads [][]byte
	err      error
	block    chan struct{}
}

func (p *capturingPublisher) PublishToStream(_ context.Context, subject string, data []byte) error {
	if p.block != nil {
		<-p.block
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, append([]byte(nil), data...))
	return nil
}

func (p *capturingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.subjects...)
}

func TestNotifierPublishesEvents(t *testing.T) {
	pub := &capturingPublisher{}
	n := NewNotifier(pub)

	n.Emit(Event{
		Type:        EventTurnStart,
		ThreadID:    "thread-1",
		ExecutionID: "exec-1",
		TurnNumber:  1,
	})
	n.Emit(Event{
		Type:       EventEscalation,
		ThreadID:   "thread-1",
		TurnNumber: 3,
		Model:      "sonnet",
	})
	n.Close()

	subjects := pub.published()
	require.Len(t, subjects, 2)
	assert.Equal(t, "execution.event.thread-1", subjects[0])

	assert.Contains(t, string(pub.payloads[0]), `"turn_start"`)
	assert.Contains(t, string(pub.payloads[1]), `"escalation"`)
}

func TestNotifierStampsTimestamp(t *testing.T) {
	pub := &capturingPublisher{}
	n := NewNotifier(pub)

	n.Emit(Event{Type: EventCheckpoint, ThreadID: "thread-1"})
	n.Close()

	require.Len(t, pub.payloads, 1)
	assert.NotContains(t, string(pub.payloads[0]), `"0001-01-01`)
}

func TestNotifierDropsWhenBufferFull(t *testing.T) {
	pub := &capturingPublisher{block: make(chan struct{})}
	n := NewNotifier(pub, WithBufferSize(2))

	// One event is in flight blocking the drainer; two fill the buffer;
	// anything past that must drop without blocking this test.
	for i := 0; i < 6; i++ {
		n.Emit(Event{Type: EventTurnComplete, ThreadID: "thread-1", TurnNumber: i})
	}

	assert.GreaterOrEqual(t, n.Dropped(), int64(3))

	close(pub.block)
	n.Close()
}

func TestNotifierSurvivesPublishErrors(t *testing.T) {
	pub := &capturingPublisher{err: errors.New("nats down")}
	n := NewNotifier(pub)

	// Must not panic or block.
	n.Emit(Event{Type: EventCompletion, ThreadID: "thread-1"})
	n.Close()

	assert.Empty(t, pub.published())
}

func TestCloseIsIdempotent(t *testing.T) {
	pub := &capturingPublisher{}
	n := NewNotifier(pub)

	done := make(chan struct{})
	go func() {
		n.Close()
		n.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}
}

func TestPublishUserResponse(t *testing.T) {
	pub := &capturingPublisher{}
	n := NewNotifier(pub)
	defer n.Close()

	err := n.PublishUserResponse(context.Background(), Notice{
		ChannelType: "slack",
		ChannelID:   "C123",
		UserID:      "U456",
	}, agentic.ResponseTypeStatus, "An execution is already running for this thread.")
	require.NoError(t, err)

	subjects := pub.published()
	require.Len(t, subjects, 1)
	assert.Equal(t, "user.response.slack.C123", subjects[0])

	payload := string(pub.payloads[0])
	assert.True(t, strings.Contains(payload, "already running"))
	assert.Contains(t, payload, `"U456"`)
}

func TestPublishUserResponseError(t *testing.T) {
	pub := &capturingPublisher{err: errors.New("nats down")}
	n := NewNotifier(pub)
	defer n.Close()

	err := n.PublishUserResponse(context.Background(), Notice{
		ChannelType: "slack",
		ChannelID:   "C123",
	}, agentic.ResponseTypeError, "failed")
	assert.ErrorContains(t, err, "publish response")
}
