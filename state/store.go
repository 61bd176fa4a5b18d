package state

import (
	"context"
	"sync"
)

// Store persists execution state snapshots keyed by conversation thread.
// Implementations tolerate slightly stale reads; the staleness bound is the
// controller's checkpoint interval.
type Store interface {
	// Save writes a snapshot for the thread, replacing any prior snapshot.
	Save(ctx context.Context, threadID string, s *ExecutionState) error

	// Load returns the latest snapshot for the thread.
	// Returns ErrNotFound when no snapshot exists.
	Load(ctx context.Context, threadID string) (*ExecutionState, error)

	// Delete removes the snapshot for the thread, if any.
	Delete(ctx context.Context, threadID string) error
}

// MemoryStore is a process-local Store backed by an explicit registry map.
// It serves as the degraded fallback when the shared store is unreachable
// and as the default backend in tests. The registry is owned by the store
// instance; there is no module-level mutable state.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*ExecutionState
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*ExecutionState),
	}
}

// Save stores a copy of the snapshot.
func (m *MemoryStore) Save(_ context.Context, threadID string, s *ExecutionState) error {
	cp := *s
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[threadID] = &cp
	return nil
}

// Load returns a copy of the stored snapshot.
func (m *MemoryStore) Load(_ context.Context, threadID string) (*ExecutionState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.entries[threadID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *s
	return &cp, nil
}

// Delete removes the snapshot for the thread.
func (m *MemoryStore) Delete(_ context.Context, threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, threadID)
	return nil
}

// Len returns the number of stored snapshots.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
