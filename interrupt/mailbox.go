package interrupt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// BucketInterrupts is the KV bucket carrying pending interrupts.
const BucketInterrupts = "EXECUTION_INTERRUPTS"

// interruptKeyPrefix namespaces pending-interrupt keys by thread.
const interruptKeyPrefix = "INTERRUPT_"

// DefaultMailboxTTL expires unclaimed interrupts. A command the loop never
// observed should not fire on some later execution of the same thread.
const DefaultMailboxTTL = 10 * time.Minute

// Mailbox delivers interrupt commands to a running loop through a KV
// bucket. Any process can post; the loop owning the execution polls at
// turn boundaries and consumes at most one command per turn.
type Mailbox struct {
	bucket jetstream.KeyValue
}

// NewMailbox creates a mailbox over the interrupt bucket, creating the
// bucket if it does not exist.
func NewMailbox(ctx context.Context, js jetstream.JetStream) (*Mailbox, error) {
	bucket, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      BucketInterrupts,
		Description: "Pending human interrupts for running executions",
		Storage:     jetstream.MemoryStorage,
		TTL:         DefaultMailboxTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("create/update interrupt bucket: %w", err)
	}
	return &Mailbox{bucket: bucket}, nil
}

// NewMailboxWithBucket wraps an existing bucket handle. Used in tests.
func NewMailboxWithBucket(bucket jetstream.KeyValue) *Mailbox {
	return &Mailbox{bucket: bucket}
}

// Post stores a pending command for the thread. A newer command replaces
// an unclaimed older one; humans expect the latest signal to win.
func (m *Mailbox) Post(ctx context.Context, threadID string, cmd Command) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal interrupt: %w", err)
	}
	if _, err := m.bucket.Put(ctx, interruptKeyPrefix+threadID, data); err != nil {
		return fmt.Errorf("post interrupt: %w", err)
	}
	return nil
}

// Poll returns the pending command for the thread and consumes it.
// Returns false when no command is pending.
func (m *Mailbox) Poll(ctx context.Context, threadID string) (Command, bool, error) {
	key := interruptKeyPrefix + threadID

	entry, err := m.bucket.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return Command{}, false, nil
		}
		return Command{}, false, fmt.Errorf("poll interrupt: %w", err)
	}

	var cmd Command
	if err := json.Unmarshal(entry.Value(), &cmd); err != nil {
		// A malformed command is consumed and dropped; leaving it in place
		// would wedge every subsequent poll.
		_ = m.bucket.Delete(ctx, key)
		return Command{}, false, fmt.Errorf("decode interrupt: %w", err)
	}

	if err := m.bucket.Delete(ctx, key); err != nil &&
		!errors.Is(err, jetstream.ErrKeyNotFound) && !errors.Is(err, jetstream.ErrKeyDeleted) {
		return Command{}, false, fmt.Errorf("consume interrupt: %w", err)
	}
	return cmd, true, nil
}
