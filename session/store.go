package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/agentloop/state"
)

// Bucket names for the two session tiers.
const (
	// BucketSessionCache is the low-latency tier (memory storage).
	BucketSessionCache = "EXECUTION_SESSION_CACHE"

	// BucketSessionDurable is the durable tier (file storage).
	BucketSessionDurable = "EXECUTION_SESSIONS"
)

// DefaultCacheTTL bounds how long cached sessions live between loads.
const DefaultCacheTTL = 24 * time.Hour

// Store persists sessions keyed by thread id.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context, threadID string) (*Session, error)
	Delete(ctx context.Context, threadID string) error
}

// MemoryStore is an in-process Store for tests and degraded operation.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

// Save stores a deep copy so callers can keep mutating their session.
func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	if s == nil || s.ThreadID == "" {
		return fmt.Errorf("session with thread id is required")
	}
	copied, err := copySession(s)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ThreadID] = copied
	return nil
}

// Load returns a deep copy of the stored session.
func (m *MemoryStore) Load(_ context.Context, threadID string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[threadID]
	m.mu.RUnlock()

	if !ok {
		return nil, state.ErrNotFound
	}
	return copySession(s)
}

// Delete removes the session. Deleting an absent session is not an error.
func (m *MemoryStore) Delete(_ context.Context, threadID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, threadID)
	return nil
}

func copySession(s *Session) (*Session, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	var copied Session
	if err := json.Unmarshal(data, &copied); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &copied, nil
}

// KVStore is a Store backed by a JetStream KV bucket.
type KVStore struct {
	bucket jetstream.KeyValue
}

// NewKVStore creates a Store over the named bucket, creating the bucket
// if it does not exist.
func NewKVStore(ctx context.Context, js jetstream.JetStream, bucket string, storage jetstream.StorageType, ttl time.Duration) (*KVStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "Per-thread execution sessions",
		Storage:     storage,
		TTL:         ttl,
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("create/update session bucket: %w", err)
	}
	return &KVStore{bucket: kv}, nil
}

// NewKVStoreWithBucket wraps an existing bucket handle. Used in tests.
func NewKVStoreWithBucket(bucket jetstream.KeyValue) *KVStore {
	return &KVStore{bucket: bucket}
}

// Save writes the session as JSON under its thread id.
func (k *KVStore) Save(ctx context.Context, s *Session) error {
	if s == nil || s.ThreadID == "" {
		return fmt.Errorf("session with thread id is required")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if _, err := k.bucket.Put(ctx, s.ThreadID, data); err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// Load reads the session for the thread.
func (k *KVStore) Load(ctx context.Context, threadID string) (*Session, error) {
	entry, err := k.bucket.Get(ctx, threadID)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return nil, state.ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(entry.Value(), &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &s, nil
}

// Delete removes the session for the thread.
func (k *KVStore) Delete(ctx context.Context, threadID string) error {
	if err := k.bucket.Delete(ctx, threadID); err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return nil
		}
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Manager layers a read-through cache over a durable store. Reads hit the
// cache first and repopulate it from durable on a miss; writes go to both,
// and a cache write failure only logs. LoadOrCreate gives the controller a
// session to run with even when both tiers are unreachable.
type Manager struct {
	cache   Store
	durable Store
	logger  *slog.Logger
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a session manager over a cache and a durable store.
// The cache may be nil, in which case all reads and writes go durable.
func NewManager(cache, durable Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		cache:   cache,
		durable: durable,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LoadOrCreate returns the thread's session, creating a fresh one when no
// tier has it. Store errors degrade to a fresh session; losing thread
// memory is recoverable, refusing to run is not.
func (m *Manager) LoadOrCreate(ctx context.Context, threadID string) *Session {
	if m.cache != nil {
		if s, err := m.cache.Load(ctx, threadID); err == nil {
			return s
		}
	}

	s, err := m.durable.Load(ctx, threadID)
	if err != nil {
		if !errors.Is(err, state.ErrNotFound) {
			m.logger.Warn("Session load failed, starting fresh",
				"thread_id", threadID,
				"error", err)
		}
		return New(threadID)
	}

	if m.cache != nil {
		if err := m.cache.Save(ctx, s); err != nil {
			m.logger.Warn("Session cache repopulation failed",
				"thread_id", threadID,
				"error", err)
		}
	}
	return s
}

// Save writes the session to both tiers. The durable write decides the
// returned error.
func (m *Manager) Save(ctx context.Context, s *Session) error {
	if m.cache != nil {
		if err := m.cache.Save(ctx, s); err != nil {
			m.logger.Warn("Session cache write failed",
				"thread_id", s.ThreadID,
				"error", err)
		}
	}
	if err := m.durable.Save(ctx, s); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete removes the session from both tiers.
func (m *Manager) Delete(ctx context.Context, threadID string) error {
	if m.cache != nil {
		if err := m.cache.Delete(ctx, threadID); err != nil {
			m.logger.Warn("Session cache delete failed",
				"thread_id", threadID,
				"error", err)
		}
	}
	return m.durable.Delete(ctx, threadID)
}
