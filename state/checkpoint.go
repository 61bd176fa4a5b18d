package state

import (
	"context"
	"time"
)

// checkpointPrefix namespaces checkpoint snapshots within a state bucket.
const checkpointPrefix = "CHECKPOINT_"

// CheckpointKey returns the bucket key under which a thread's checkpoint
// snapshot is stored.
func CheckpointKey(threadID string) string {
	return checkpointPrefix + threadID
}

// Checkpoint is a point-in-time snapshot of an execution persisted for
// observability and post-crash inspection. No automatic resume is attempted
// from a checkpoint; a new execution starts fresh.
type Checkpoint struct {
	ThreadID    string          `json:"thread_id"`
	ExecutionID string          `json:"execution_id"`
	TurnNumber  int             `json:"turn_number"`
	Model       string          `json:"model"`
	State       *ExecutionState `json:"state"`
	CreatedAt   time.Time       `json:"created_at"`
}

// NewCheckpoint snapshots the given state.
func NewCheckpoint(s *ExecutionState) *Checkpoint {
	cp := *s
	return &Checkpoint{
		ThreadID:    s.ThreadID,
		ExecutionID: s.ExecutionID,
		TurnNumber:  s.TurnNumber,
		Model:       s.CurrentModel,
		State:       &cp,
		CreatedAt:   time.Now(),
	}
}

// SaveCheckpoint persists a checkpoint through the given store under the
// checkpoint namespace for its thread.
func SaveCheckpoint(ctx context.Context, store Store, cp *Checkpoint) error {
	return store.Save(ctx, CheckpointKey(cp.ThreadID), cp.State)
}

// LoadCheckpoint reads the latest checkpointed state for a thread.
func LoadCheckpoint(ctx context.Context, store Store, threadID string) (*ExecutionState, error) {
	return store.Load(ctx, CheckpointKey(threadID))
}

// CheckpointInterval derives how often (in turns) to checkpoint from an
// estimated task complexity on a 1-10 scale: complex tasks checkpoint every
// other turn, simple ones every five.
func CheckpointInterval(complexity int) int {
	switch {
	case complexity >= 8:
		return 2
	case complexity >= 5:
		return 3
	default:
		return 5
	}
}
