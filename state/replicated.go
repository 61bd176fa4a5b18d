package state

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// durableWriteTimeout bounds each background durable write.
const durableWriteTimeout = 10 * time.Second

// defaultWriteBuffer is the bounded outbound queue size for durable writes.
const defaultWriteBuffer = 64

// Replicated composes a low-latency cache tier and a durable tier behind the
// single Store interface. Writes land on the cache synchronously and are
// forwarded to the durable tier through a bounded queue that never blocks
// the caller; reads hit the cache first and fall through to the durable
// tier, repopulating the cache best-effort.
type Replicated struct {
	cache   Store
	durable Store
	logger  *slog.Logger

	writes  chan durableWrite
	once    sync.Once
	done    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Int64
}

type durableWrite struct {
	threadID string
	snapshot *ExecutionState
	delete   bool
}

// ReplicatedOption configures a Replicated store.
type ReplicatedOption func(*Replicated)

// WithReplicatedLogger sets the logger.
func WithReplicatedLogger(logger *slog.Logger) ReplicatedOption {
	return func(r *Replicated) {
		r.logger = logger
	}
}

// WithWriteBuffer sets the bounded durable-write queue size.
func WithWriteBuffer(n int) ReplicatedOption {
	return func(r *Replicated) {
		if n > 0 {
			r.writes = make(chan durableWrite, n)
		}
	}
}

// NewReplicated creates a replicated store over the given tiers and starts
// its background durable writer.
func NewReplicated(cache, durable Store, opts ...ReplicatedOption) *Replicated {
	r := &Replicated{
		cache:   cache,
		durable: durable,
		logger:  slog.Default(),
		writes:  make(chan durableWrite, defaultWriteBuffer),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}

	r.wg.Add(1)
	go r.drainWrites()

	return r
}

// Save writes to the cache and enqueues a fire-and-forget durable write.
// A durable-queue overflow drops the write and is counted; the caller is
// never blocked on durability.
func (r *Replicated) Save(ctx context.Context, threadID string, s *ExecutionState) error {
	cacheErr := r.cache.Save(ctx, threadID, s)

	cp := *s
	select {
	case r.writes <- durableWrite{threadID: threadID, snapshot: &cp}:
	default:
		r.dropped.Add(1)
		r.logger.Warn("Durable write queue full, dropping snapshot",
			"thread_id", threadID,
			"dropped_total", r.dropped.Load())
	}

	return cacheErr
}

// Load reads from the cache, falling back to the durable tier. A durable hit
// repopulates the cache best-effort.
func (r *Replicated) Load(ctx context.Context, threadID string) (*ExecutionState, error) {
	s, err := r.cache.Load(ctx, threadID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrNotFound) {
		r.logger.Debug("Cache read failed, falling back to durable store",
			"thread_id", threadID,
			"error", err)
	}

	s, err = r.durable.Load(ctx, threadID)
	if err != nil {
		return nil, err
	}

	if cacheErr := r.cache.Save(ctx, threadID, s); cacheErr != nil {
		r.logger.Debug("Cache repopulation failed",
			"thread_id", threadID,
			"error", cacheErr)
	}
	return s, nil
}

// Delete removes the thread from the cache and enqueues a durable delete.
func (r *Replicated) Delete(ctx context.Context, threadID string) error {
	cacheErr := r.cache.Delete(ctx, threadID)

	select {
	case r.writes <- durableWrite{threadID: threadID, delete: true}:
	default:
		r.dropped.Add(1)
	}

	return cacheErr
}

// DroppedWrites returns the number of durable writes dropped due to a full
// queue.
func (r *Replicated) DroppedWrites() int64 {
	return r.dropped.Load()
}

// Close stops the background writer after draining queued writes.
func (r *Replicated) Close() {
	r.once.Do(func() {
		close(r.done)
		r.wg.Wait()
	})
}

// drainWrites applies queued durable writes until Close.
func (r *Replicated) drainWrites() {
	defer r.wg.Done()
	for {
		select {
		case w := <-r.writes:
			r.applyDurable(w)
		case <-r.done:
			// Drain what is already queued, then exit.
			for {
				select {
				case w := <-r.writes:
					r.applyDurable(w)
				default:
					return
				}
			}
		}
	}
}

func (r *Replicated) applyDurable(w durableWrite) {
	ctx, cancel := context.WithTimeout(context.Background(), durableWriteTimeout)
	defer cancel()

	var err error
	if w.delete {
		err = r.durable.Delete(ctx, w.threadID)
	} else {
		err = r.durable.Save(ctx, w.threadID, w.snapshot)
	}
	if err != nil {
		r.logger.Warn("Durable write failed",
			"thread_id", w.threadID,
			"delete", w.delete,
			"error", err)
	}
}
