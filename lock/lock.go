// Package lock provides the distributed execution lock that guarantees at
// most one running execution per conversation thread across all processes.
// Locks live in a JetStream KV bucket and carry their expiry in the value;
// a crashed process leaves a lock that expires and can be taken over. When
// the lock store is unreachable the manager degrades to a process-local
// registry, keeping single-process exclusivity instead of failing closed.
package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// BucketLocks is the KV bucket for execution locks and abort flags.
const BucketLocks = "EXECUTION_LOCKS"

// DefaultTTL is how long a lock lives without a refresh. Long enough to
// survive a slow model call, short enough that a crashed owner does not
// block its thread for long.
const DefaultTTL = 5 * time.Minute

// abortKeyPrefix namespaces abort flags within the lock bucket.
const abortKeyPrefix = "ABORT_"

// ErrNotHeld is returned when refreshing or releasing a lock the caller
// does not hold.
var ErrNotHeld = errors.New("lock not held by this execution")

// record is the stored lock value. Expiry travels in the value rather
// than as a bucket TTL so takeover can be decided by comparing clocks.
type record struct {
	ExecutionID string    `json:"execution_id"`
	AcquiredAt  time.Time `json:"acquired_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// abortFlag is the stored abort value. Like lock records it carries its
// own expiry, so a flag raised while no execution is running cannot abort
// the thread's next execution after it goes stale.
type abortFlag struct {
	RaisedAt  time.Time `json:"raised_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Manager acquires, refreshes and releases per-thread execution locks.
type Manager struct {
	bucket jetstream.KeyValue
	ttl    time.Duration
	logger *slog.Logger

	// local mirrors every lock this process holds, healthy or not, so a
	// store outage degrades to single-process exclusivity instead of none.
	localMu sync.Mutex
	local   map[string]record

	// aborts is the in-process abort set, consulted before the shared
	// flag so a local STOP is observable even with the store down.
	abortMu sync.Mutex
	aborts  map[string]time.Time

	degraded atomic.Bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithTTL sets the lock lifetime between refreshes.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a lock manager over the lock bucket, creating the
// bucket if it does not exist.
func NewManager(ctx context.Context, js jetstream.JetStream, opts ...Option) (*Manager, error) {
	m := &Manager{
		ttl:    DefaultTTL,
		logger: slog.Default(),
		local:  make(map[string]record),
		aborts: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(m)
	}

	bucket, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      BucketLocks,
		Description: "Per-thread execution locks and abort flags",
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("create/update lock bucket: %w", err)
	}
	m.bucket = bucket

	return m, nil
}

// NewManagerWithBucket wraps an existing bucket handle. Used in tests.
func NewManagerWithBucket(bucket jetstream.KeyValue, opts ...Option) *Manager {
	m := &Manager{
		bucket: bucket,
		ttl:    DefaultTTL,
		logger: slog.Default(),
		local:  make(map[string]record),
		aborts: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Acquire attempts to take the lock for a thread on behalf of an
// execution. Returns true on success, false when another live execution
// holds the lock. An expired lock is taken over with a revision-guarded
// update so two contenders cannot both win.
func (m *Manager) Acquire(ctx context.Context, threadID, executionID string) (bool, error) {
	now := time.Now()
	rec := record{
		ExecutionID: executionID,
		AcquiredAt:  now,
		ExpiresAt:   now.Add(m.ttl),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("marshal lock record: %w", err)
	}

	if m.bucket == nil {
		return m.acquireLocal(threadID, rec), nil
	}

	// An execution acquired during an outage exists only in the local
	// table; it must block same-process contenders even after the store
	// comes back.
	if other := m.holderLocal(threadID); other != "" && other != executionID {
		return false, nil
	}

	_, err = m.bucket.Create(ctx, threadID, data)
	if err == nil {
		m.markHealthy()
		m.recordLocal(threadID, rec)
		return true, nil
	}
	if !errors.Is(err, jetstream.ErrKeyExists) {
		m.markDegraded(threadID, err)
		return m.acquireLocal(threadID, rec), nil
	}
	m.markHealthy()

	// Key exists: inspect the holder and take over if it expired.
	entry, err := m.bucket.Get(ctx, threadID)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			// Holder released between our Create and Get; retry once.
			_, err = m.bucket.Create(ctx, threadID, data)
			if err == nil {
				m.recordLocal(threadID, rec)
				return true, nil
			}
			if errors.Is(err, jetstream.ErrKeyExists) {
				return false, nil
			}
			return false, fmt.Errorf("acquire lock: %w", err)
		}
		// Create said the key exists, so a holder is out there even though
		// the inspect failed. Treat the lock as taken rather than granting
		// a local one alongside it.
		m.markDegraded(threadID, err)
		return false, nil
	}

	var holder record
	if err := json.Unmarshal(entry.Value(), &holder); err != nil {
		return false, fmt.Errorf("decode lock record: %w", err)
	}

	if now.Before(holder.ExpiresAt) {
		return false, nil
	}

	// Expired: revision-guarded takeover. A concurrent takeover bumps the
	// revision and this update fails, which is the correct outcome.
	if _, err := m.bucket.Update(ctx, threadID, data, entry.Revision()); err != nil {
		return false, nil
	}
	m.recordLocal(threadID, rec)

	m.logger.Info("Took over expired execution lock",
		"thread_id", threadID,
		"previous_execution", holder.ExecutionID,
		"execution_id", executionID)
	return true, nil
}

// Refresh extends the lock lifetime for the holding execution. Returns
// ErrNotHeld when the lock is gone or owned by someone else.
func (m *Manager) Refresh(ctx context.Context, threadID, executionID string) error {
	if m.bucket == nil {
		return m.refreshLocal(threadID, executionID)
	}

	entry, err := m.bucket.Get(ctx, threadID)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return ErrNotHeld
		}
		m.markDegraded(threadID, err)
		return m.refreshLocal(threadID, executionID)
	}

	var holder record
	if err := json.Unmarshal(entry.Value(), &holder); err != nil {
		return fmt.Errorf("decode lock record: %w", err)
	}
	if holder.ExecutionID != executionID {
		return ErrNotHeld
	}

	holder.ExpiresAt = time.Now().Add(m.ttl)
	data, err := json.Marshal(holder)
	if err != nil {
		return fmt.Errorf("marshal lock record: %w", err)
	}
	if _, err := m.bucket.Update(ctx, threadID, data, entry.Revision()); err != nil {
		return fmt.Errorf("refresh lock: %w", err)
	}
	m.recordLocal(threadID, holder)
	return nil
}

// Release frees the lock if the given execution holds it. Releasing a
// lock that is already gone is not an error; release runs on every
// terminal path and must be idempotent. The local entry is cleared no
// matter what the shared store says, so a finished execution never stays
// locked in-process through an outage; the orphaned shared record then
// expires on its own.
func (m *Manager) Release(ctx context.Context, threadID, executionID string) error {
	defer m.releaseLocal(threadID, executionID)

	if m.bucket == nil {
		return nil
	}

	entry, err := m.bucket.Get(ctx, threadID)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return nil
		}
		m.markDegraded(threadID, err)
		return nil
	}

	var holder record
	if err := json.Unmarshal(entry.Value(), &holder); err != nil {
		return fmt.Errorf("decode lock record: %w", err)
	}
	if holder.ExecutionID != executionID {
		// Someone took over after our expiry; their lock is not ours to free.
		return ErrNotHeld
	}

	if err := m.bucket.Delete(ctx, threadID); err != nil &&
		!errors.Is(err, jetstream.ErrKeyNotFound) && !errors.Is(err, jetstream.ErrKeyDeleted) {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}

// Holder returns the execution currently holding the thread's lock.
// Returns empty when the lock is free or expired.
func (m *Manager) Holder(ctx context.Context, threadID string) (string, error) {
	if m.bucket == nil {
		return m.holderLocal(threadID), nil
	}

	entry, err := m.bucket.Get(ctx, threadID)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return "", nil
		}
		m.markDegraded(threadID, err)
		return m.holderLocal(threadID), nil
	}

	var holder record
	if err := json.Unmarshal(entry.Value(), &holder); err != nil {
		return "", fmt.Errorf("decode lock record: %w", err)
	}
	if time.Now().After(holder.ExpiresAt) {
		return "", nil
	}
	return holder.ExecutionID, nil
}

// SignalAbort sets the cooperative abort flag for a thread. The running
// loop observes it at the next turn boundary. The in-process flag is set
// first; the shared flag is best-effort, so a local STOP lands even while
// the store is down. The flag expires with the lock TTL.
func (m *Manager) SignalAbort(ctx context.Context, threadID string) error {
	now := time.Now()
	flag := abortFlag{RaisedAt: now, ExpiresAt: now.Add(m.ttl)}

	m.abortMu.Lock()
	m.aborts[threadID] = flag.ExpiresAt
	m.abortMu.Unlock()

	if m.bucket == nil {
		return nil
	}
	data, err := json.Marshal(flag)
	if err != nil {
		return fmt.Errorf("marshal abort flag: %w", err)
	}
	if _, err := m.bucket.Put(ctx, abortKeyPrefix+threadID, data); err != nil {
		m.markDegraded(threadID, err)
		return nil
	}
	return nil
}

// AbortRequested reports whether a live abort flag is set for the thread,
// checking the in-process set before the shared store. Store errors read
// as no-abort; aborting an execution because the store blinked would be
// worse than one extra turn.
func (m *Manager) AbortRequested(ctx context.Context, threadID string) bool {
	now := time.Now()

	m.abortMu.Lock()
	if expires, ok := m.aborts[threadID]; ok {
		if now.Before(expires) {
			m.abortMu.Unlock()
			return true
		}
		delete(m.aborts, threadID)
	}
	m.abortMu.Unlock()

	if m.bucket == nil {
		return false
	}
	entry, err := m.bucket.Get(ctx, abortKeyPrefix+threadID)
	if err != nil {
		return false
	}
	var flag abortFlag
	if err := json.Unmarshal(entry.Value(), &flag); err != nil || now.After(flag.ExpiresAt) {
		// Stale or undecodable flag; clean it up rather than abort the
		// thread's next execution.
		_ = m.bucket.Delete(ctx, abortKeyPrefix+threadID)
		return false
	}
	return true
}

// ClearAbort removes the abort flag for a thread, local and shared.
func (m *Manager) ClearAbort(ctx context.Context, threadID string) {
	m.abortMu.Lock()
	delete(m.aborts, threadID)
	m.abortMu.Unlock()

	if m.bucket == nil {
		return
	}
	_ = m.bucket.Delete(ctx, abortKeyPrefix+threadID)
}

func (m *Manager) markHealthy() {
	if m.degraded.CompareAndSwap(true, false) {
		m.logger.Info("Lock store reachable again, resuming distributed locks")
	}
}

// markDegraded logs the fall-back once per outage, not once per attempt.
func (m *Manager) markDegraded(threadID string, err error) {
	if m.degraded.CompareAndSwap(false, true) {
		m.logger.Warn("Lock store unreachable, falling back to local locks",
			"thread_id", threadID,
			"error", err)
	}
}

// Local table. Every lock this process holds is mirrored here, so when
// the KV bucket goes away the fallback still sees current holdings and
// cross-process safety returns when the bucket does.

// recordLocal mirrors a lock granted by the shared store.
func (m *Manager) recordLocal(threadID string, rec record) {
	m.localMu.Lock()
	defer m.localMu.Unlock()
	m.local[threadID] = rec
}

func (m *Manager) acquireLocal(threadID string, rec record) bool {
	m.localMu.Lock()
	defer m.localMu.Unlock()

	if held, ok := m.local[threadID]; ok && time.Now().Before(held.ExpiresAt) {
		return held.ExecutionID == rec.ExecutionID
	}
	m.local[threadID] = rec
	return true
}

func (m *Manager) refreshLocal(threadID, executionID string) error {
	m.localMu.Lock()
	defer m.localMu.Unlock()

	held, ok := m.local[threadID]
	if !ok || held.ExecutionID != executionID {
		return ErrNotHeld
	}
	held.ExpiresAt = time.Now().Add(m.ttl)
	m.local[threadID] = held
	return nil
}

func (m *Manager) releaseLocal(threadID, executionID string) {
	m.localMu.Lock()
	defer m.localMu.Unlock()

	if held, ok := m.local[threadID]; ok && held.ExecutionID == executionID {
		delete(m.local, threadID)
	}
}

func (m *Manager) holderLocal(threadID string) string {
	m.localMu.Lock()
	defer m.localMu.Unlock()

	if held, ok := m.local[threadID]; ok && time.Now().Before(held.ExpiresAt) {
		return held.ExecutionID
	}
	return ""
}
