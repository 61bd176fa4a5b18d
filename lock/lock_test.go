package lock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKV implements the subset of jetstream.KeyValue the lock manager
// uses, with real revision semantics. Unused methods panic via the
// embedded nil interface.
type fakeKV struct {
	jetstream.KeyValue

	mu      sync.Mutex
	entries map[string]*fakeEntry
	rev     uint64

	failAll bool
}

type fakeEntry struct {
	jetstream.KeyValueEntry

	key      string
	value    []byte
	revision uint64
}

func (e *fakeEntry) Key() string      { return e.key }
func (e *fakeEntry) Value() []byte    { return e.value }
func (e *fakeEntry) Revision() uint64 { return e.revision }

func newFakeKV() *fakeKV {
	return &fakeKV{entries: make(map[string]*fakeEntry)}
}

var errFakeDown = errors.New("kv unavailable")

func (f *fakeKV) Create(_ context.Context, key string, value []byte, _ ...jetstream.KVCreateOpt) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failAll {
		return 0, errFakeDown
	}
	if _, ok := f.entries[key]; ok {
		return 0, jetstream.ErrKeyExists
	}
	f.rev++
	f.entries[key] = &fakeEntry{key: key, value: value, revision: f.rev}
	return f.rev, nil
}

func (f *fakeKV) Get(_ context.Context, key string) (jetstream.KeyValueEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failAll {
		return nil, errFakeDown
	}
	entry, ok := f.entries[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return entry, nil
}

func (f *fakeKV) Update(_ context.Context, key string, value []byte, revision uint64) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failAll {
		return 0, errFakeDown
	}
	entry, ok := f.entries[key]
	if !ok || entry.revision != revision {
		return 0, fmt.Errorf("wrong last sequence")
	}
	f.rev++
	f.entries[key] = &fakeEntry{key: key, value: value, revision: f.rev}
	return f.rev, nil
}

func (f *fakeKV) Delete(_ context.Context, key string, _ ...jetstream.KVDeleteOpt) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failAll {
		return errFakeDown
	}
	if _, ok := f.entries[key]; !ok {
		return jetstream.ErrKeyNotFound
	}
	delete(f.entries, key)
	return nil
}

func (f *fakeKV) Put(_ context.Context, key string, value []byte) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failAll {
		return 0, errFakeDown
	}
	f.rev++
	f.entries[key] = &fakeEntry{key: key, value: value, revision: f.rev}
	return f.rev, nil
}

func TestAcquireExclusive(t *testing.T) {
	ctx := context.Background()
	m := NewManagerWithBucket(newFakeKV())

	ok, err := m.Acquire(ctx, "thread-1", "exec-a")
	require.NoError(t, err)
	assert.True(t, ok)

	// Second execution on the same thread must be refused.
	ok, err = m.Acquire(ctx, "thread-1", "exec-b")
	require.NoError(t, err)
	assert.False(t, ok)

	// A different thread is independent.
	ok, err = m.Acquire(ctx, "thread-2", "exec-b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAcquireAfterRelease(t *testing.T) {
	ctx := context.Background()
	m := NewManagerWithBucket(newFakeKV())

	ok, err := m.Acquire(ctx, "thread-1", "exec-a")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, m.Release(ctx, "thread-1", "exec-a"))

	ok, err = m.Acquire(ctx, "thread-1", "exec-b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAcquireTakesOverExpiredLock(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	m := NewManagerWithBucket(kv, WithTTL(time.Hour))

	// Plant an already-expired lock from a crashed process.
	stale, _ := json.Marshal(record{
		ExecutionID: "exec-dead",
		AcquiredAt:  time.Now().Add(-2 * time.Hour),
		ExpiresAt:   time.Now().Add(-time.Hour),
	})
	_, err := kv.Put(ctx, "thread-1", stale)
	require.NoError(t, err)

	ok, err := m.Acquire(ctx, "thread-1", "exec-new")
	require.NoError(t, err)
	assert.True(t, ok)

	holder, err := m.Holder(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, "exec-new", holder)
}

func TestRefreshExtendsOnlyOwnLock(t *testing.T) {
	ctx := context.Background()
	m := NewManagerWithBucket(newFakeKV(), WithTTL(time.Minute))

	ok, err := m.Acquire(ctx, "thread-1", "exec-a")
	require.NoError(t, err)
	require.True(t, ok)

	assert.NoError(t, m.Refresh(ctx, "thread-1", "exec-a"))
	assert.ErrorIs(t, m.Refresh(ctx, "thread-1", "exec-b"), ErrNotHeld)
	assert.ErrorIs(t, m.Refresh(ctx, "thread-missing", "exec-a"), ErrNotHeld)
}

func TestReleaseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewManagerWithBucket(newFakeKV())

	ok, err := m.Acquire(ctx, "thread-1", "exec-a")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, m.Release(ctx, "thread-1", "exec-a"))
	require.NoError(t, m.Release(ctx, "thread-1", "exec-a"))
}

func TestReleaseRefusesForeignLock(t *testing.T) {
	ctx := context.Background()
	m := NewManagerWithBucket(newFakeKV())

	ok, err := m.Acquire(ctx, "thread-1", "exec-a")
	require.NoError(t, err)
	require.True(t, ok)

	assert.ErrorIs(t, m.Release(ctx, "thread-1", "exec-b"), ErrNotHeld)

	holder, err := m.Holder(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, "exec-a", holder)
}

func TestAcquireFallsBackWhenStoreUnreachable(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	kv.failAll = true
	m := NewManagerWithBucket(kv)

	// Store down: local table still enforces per-process exclusivity.
	ok, err := m.Acquire(ctx, "thread-1", "exec-a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.Acquire(ctx, "thread-1", "exec-b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReleaseClearsLocalWhenStoreUnreachable(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	kv.failAll = true
	m := NewManagerWithBucket(kv)

	ok, err := m.Acquire(ctx, "thread-1", "exec-a")
	require.NoError(t, err)
	require.True(t, ok)

	// Release during the outage must free the local entry; the thread
	// cannot stay locked in-process until the TTL runs out.
	require.NoError(t, m.Release(ctx, "thread-1", "exec-a"))

	ok, err = m.Acquire(ctx, "thread-1", "exec-b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHealthyAcquireSurvivesOutage(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	m := NewManagerWithBucket(kv)

	ok, err := m.Acquire(ctx, "thread-1", "exec-a")
	require.NoError(t, err)
	require.True(t, ok)

	// Store goes down mid-execution. The holding is mirrored locally, so
	// a same-process contender is still refused.
	kv.failAll = true
	ok, err = m.Acquire(ctx, "thread-1", "exec-b")
	require.NoError(t, err)
	assert.False(t, ok)

	// The holder keeps working through the outage.
	assert.NoError(t, m.Refresh(ctx, "thread-1", "exec-a"))

	holder, err := m.Holder(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, "exec-a", holder)
}

func TestOutageAcquireBlocksAfterRecovery(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	kv.failAll = true
	m := NewManagerWithBucket(kv)

	ok, err := m.Acquire(ctx, "thread-1", "exec-a")
	require.NoError(t, err)
	require.True(t, ok)

	// Store comes back with no record of the locally granted lock. The
	// local table must still refuse a same-process contender.
	kv.failAll = false
	ok, err = m.Acquire(ctx, "thread-1", "exec-b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAbortFlagRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewManagerWithBucket(newFakeKV())

	assert.False(t, m.AbortRequested(ctx, "thread-1"))

	require.NoError(t, m.SignalAbort(ctx, "thread-1"))
	assert.True(t, m.AbortRequested(ctx, "thread-1"))
	assert.False(t, m.AbortRequested(ctx, "thread-2"))

	m.ClearAbort(ctx, "thread-1")
	assert.False(t, m.AbortRequested(ctx, "thread-1"))
}

func TestAbortObservableDuringOutage(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	kv.failAll = true
	m := NewManagerWithBucket(kv)

	// A STOP raised while the store is down still lands in-process.
	require.NoError(t, m.SignalAbort(ctx, "thread-1"))
	assert.True(t, m.AbortRequested(ctx, "thread-1"))

	m.ClearAbort(ctx, "thread-1")
	assert.False(t, m.AbortRequested(ctx, "thread-1"))
}

func TestAbortFlagExpires(t *testing.T) {
	ctx := context.Background()
	m := NewManagerWithBucket(newFakeKV(), WithTTL(5*time.Millisecond))

	require.NoError(t, m.SignalAbort(ctx, "thread-1"))
	time.Sleep(10 * time.Millisecond)

	// A flag raised with no execution running must not abort the
	// thread's next execution once it has gone stale.
	assert.False(t, m.AbortRequested(ctx, "thread-1"))
}

func TestAbortIgnoresLegacyFlagValue(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	m := NewManagerWithBucket(kv)

	_, err := kv.Put(ctx, "ABORT_thread-1", []byte("not json"))
	require.NoError(t, err)

	assert.False(t, m.AbortRequested(ctx, "thread-1"))
}

func TestConcurrentAcquireSingleWinner(t *testing.T) {
	ctx := context.Background()
	m := NewManagerWithBucket(newFakeKV())

	const contenders = 16
	var wins int64
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			ok, err := m.Acquire(ctx, "thread-1", fmt.Sprintf("exec-%d", n))
			if err == nil && ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), wins)
}
