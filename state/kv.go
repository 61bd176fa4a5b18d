package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// Default bucket names for the two replication tiers.
const (
	// BucketStateCache is the low-latency tier (memory storage).
	BucketStateCache = "EXECUTION_STATE_CACHE"

	// BucketStateDurable is the durable tier (file storage).
	BucketStateDurable = "EXECUTION_STATE"
)

// DefaultCacheTTL bounds how long cache-tier snapshots outlive their
// execution. The durable tier keeps snapshots indefinitely.
const DefaultCacheTTL = 24 * time.Hour

// KVStore is a Store backed by a JetStream KV bucket.
type KVStore struct {
	bucket jetstream.KeyValue
}

// KVStoreConfig describes the bucket a KVStore should use.
type KVStoreConfig struct {
	// Bucket is the KV bucket name.
	Bucket string

	// Storage selects the bucket storage tier.
	Storage jetstream.StorageType

	// TTL expires entries; zero keeps them indefinitely.
	TTL time.Duration

	// History is the number of revisions to retain per key.
	History uint8
}

// NewKVStore creates a Store over the configured KV bucket, creating the
// bucket if it does not exist.
func NewKVStore(ctx context.Context, js jetstream.JetStream, cfg KVStoreConfig) (*KVStore, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if cfg.History == 0 {
		cfg.History = 1
	}

	bucket, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: fmt.Sprintf("Agentloop %s storage", strings.ToLower(cfg.Bucket)),
		Storage:     cfg.Storage,
		TTL:         cfg.TTL,
		History:     cfg.History,
	})
	if err != nil {
		return nil, fmt.Errorf("create/update kv bucket: %w", err)
	}

	return &KVStore{bucket: bucket}, nil
}

// NewKVStoreWithBucket wraps an existing bucket handle. Used in tests.
func NewKVStoreWithBucket(bucket jetstream.KeyValue) *KVStore {
	return &KVStore{bucket: bucket}
}

// Save writes the snapshot as JSON under the thread id.
func (k *KVStore) Save(ctx context.Context, threadID string, s *ExecutionState) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if _, err := k.bucket.Put(ctx, threadID, data); err != nil {
		return fmt.Errorf("put state: %w", err)
	}
	return nil
}

// Load reads the latest snapshot for the thread.
func (k *KVStore) Load(ctx context.Context, threadID string) (*ExecutionState, error) {
	entry, err := k.bucket.Get(ctx, threadID)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get state: %w", err)
	}

	var s ExecutionState
	if err := json.Unmarshal(entry.Value(), &s); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return &s, nil
}

// Delete removes the snapshot for the thread.
func (k *KVStore) Delete(ctx context.Context, threadID string) error {
	if err := k.bucket.Delete(ctx, threadID); err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return nil
		}
		return fmt.Errorf("delete state: %w", err)
	}
	return nil
}
