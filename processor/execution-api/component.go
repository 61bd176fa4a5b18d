// Package executionapi provides HTTP endpoints for querying recorded
// executions. It aggregates data from the execution state, session, LLM
// call, and tool call KV buckets into unified views for debugging and
// observability.
package executionapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/agentloop/llm"
)

// Component implements the execution-api component.
// It provides HTTP endpoints for querying execution state, thread
// sessions, and per-execution LLM and tool call history.
type Component struct {
	name       string
	config     Config
	natsClient *natsclient.Client
	logger     *slog.Logger

	// KV buckets, resolved lazily since the engine may not have
	// created them yet when this component starts.
	stateBucket    jetstream.KeyValue
	sessionsBucket jetstream.KeyValue

	// Call record stores
	callStore *llm.CallStore
	toolStore *llm.ToolCallStore

	// Lifecycle state machine
	// States: 0=stopped, 1=starting, 2=running, 3=stopping
	state     atomic.Int32
	startTime time.Time
	mu        sync.RWMutex
	cancel    context.CancelFunc
}

const (
	stateStopped  = 0
	stateStarting = 1
	stateRunning  = 2
	stateStopping = 3
)

// NewComponent creates a new execution-api component.
func NewComponent(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	var config Config
	if err := json.Unmarshal(rawConfig, &config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Apply defaults
	defaults := DefaultConfig()
	if config.StateBucket == "" {
		config.StateBucket = defaults.StateBucket
	}
	if config.SessionsBucket == "" {
		config.SessionsBucket = defaults.SessionsBucket
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := deps.GetLogger()

	return &Component{
		name:       "execution-api",
		config:     config,
		natsClient: deps.NATSClient,
		logger:     logger,
	}, nil
}

// Initialize prepares the component.
func (c *Component) Initialize() error {
	c.logger.Debug("Initialized execution-api",
		"state_bucket", c.config.StateBucket,
		"sessions_bucket", c.config.SessionsBucket)
	return nil
}

// Start begins the component.
func (c *Component) Start(ctx context.Context) error {
	// Atomically transition from stopped to starting
	if !c.state.CompareAndSwap(stateStopped, stateStarting) {
		currentState := c.state.Load()
		if currentState == stateRunning || currentState == stateStarting {
			return fmt.Errorf("component already running or starting")
		}
		return fmt.Errorf("component in invalid state: %d", currentState)
	}

	// Ensure we transition to stopped if setup fails
	defer func() {
		if c.state.Load() == stateStarting {
			c.state.Store(stateStopped)
		}
	}()

	if c.natsClient == nil {
		return fmt.Errorf("NATS client required")
	}

	// Get JetStream context
	js, err := c.natsClient.JetStream()
	if err != nil {
		return fmt.Errorf("get jetstream: %w", err)
	}

	// Get KV buckets - these may not exist yet, so we'll retry lazily
	// on queries.
	stateBucket, err := js.KeyValue(ctx, c.config.StateBucket)
	if err != nil {
		c.logger.Warn("State bucket not found, will retry on queries",
			"bucket", c.config.StateBucket,
			"error", err)
	}

	sessionsBucket, err := js.KeyValue(ctx, c.config.SessionsBucket)
	if err != nil {
		c.logger.Warn("Sessions bucket not found, will retry on queries",
			"bucket", c.config.SessionsBucket,
			"error", err)
	}

	// Call record stores create their buckets idempotently.
	callStore, err := llm.NewCallStore(ctx, c.natsClient, llm.WithStoreLogger(c.logger))
	if err != nil {
		return fmt.Errorf("create llm call store: %w", err)
	}

	toolStore, err := llm.NewToolCallStore(ctx, c.natsClient, llm.WithToolCallStoreLogger(c.logger))
	if err != nil {
		return fmt.Errorf("create tool call store: %w", err)
	}

	// Create cancellation context
	_, cancel := context.WithCancel(ctx)

	// Update state atomically with lock for complex state
	c.mu.Lock()
	c.stateBucket = stateBucket
	c.sessionsBucket = sessionsBucket
	c.callStore = callStore
	c.toolStore = toolStore
	c.cancel = cancel
	c.startTime = time.Now()
	c.mu.Unlock()

	// Transition to running
	c.state.Store(stateRunning)

	c.logger.Info("execution-api started",
		"state_bucket", c.config.StateBucket,
		"sessions_bucket", c.config.SessionsBucket)

	return nil
}

// Stop gracefully stops the component.
func (c *Component) Stop(_ time.Duration) error {
	// Atomically transition from running to stopping
	if !c.state.CompareAndSwap(stateRunning, stateStopping) {
		currentState := c.state.Load()
		if currentState == stateStopped {
			return nil // Already stopped
		}
		if currentState == stateStopping {
			return nil // Already stopping
		}
		return fmt.Errorf("component in unexpected state: %d", currentState)
	}

	// Get and clear cancel function
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()

	// Cancel context
	if cancel != nil {
		cancel()
	}

	// Transition to stopped
	c.state.Store(stateStopped)

	c.logger.Info("execution-api stopped")

	return nil
}

// Meta returns component metadata.
func (c *Component) Meta() component.Metadata {
	return component.Metadata{
		Name:        "execution-api",
		Type:        "processor",
		Description: "HTTP endpoints for querying execution state, sessions, and call trajectories",
		Version:     "0.1.0",
	}
}

// InputPorts returns configured input port definitions.
func (c *Component) InputPorts() []component.Port {
	return []component.Port{}
}

// OutputPorts returns configured output port definitions.
func (c *Component) OutputPorts() []component.Port {
	return []component.Port{}
}

// ConfigSchema returns the configuration schema.
func (c *Component) ConfigSchema() component.ConfigSchema {
	return executionAPISchema
}

// Health returns the current health status.
func (c *Component) Health() component.HealthStatus {
	state := c.state.Load()
	running := state == stateRunning

	c.mu.RLock()
	startTime := c.startTime
	c.mu.RUnlock()

	status := "stopped"
	switch state {
	case stateStarting:
		status = "starting"
	case stateRunning:
		status = "running"
	case stateStopping:
		status = "stopping"
	}

	return component.HealthStatus{
		Healthy:   running,
		LastCheck: time.Now(),
		Uptime:    time.Since(startTime),
		Status:    status,
	}
}

// DataFlow returns current data flow metrics.
func (c *Component) DataFlow() component.FlowMetrics {
	return component.FlowMetrics{}
}

// getStateBucket gets the execution state bucket, attempting to reconnect if needed.
func (c *Component) getStateBucket(ctx context.Context) (jetstream.KeyValue, error) {
	c.mu.RLock()
	bucket := c.stateBucket
	c.mu.RUnlock()

	if bucket != nil {
		return bucket, nil
	}

	// Upgrade to write lock and check again (double-checked locking)
	c.mu.Lock()
	defer c.mu.Unlock()

	// Check again after acquiring write lock
	if c.stateBucket != nil {
		return c.stateBucket, nil
	}

	// Try to get the bucket (it may have been created since startup)
	js, err := c.natsClient.JetStream()
	if err != nil {
		return nil, fmt.Errorf("get jetstream: %w", err)
	}

	bucket, err = js.KeyValue(ctx, c.config.StateBucket)
	if err != nil {
		return nil, fmt.Errorf("bucket not found: %w", err)
	}

	// Cache it
	c.stateBucket = bucket

	return bucket, nil
}

// getSessionsBucket gets the sessions bucket, attempting to reconnect if needed.
func (c *Component) getSessionsBucket(ctx context.Context) (jetstream.KeyValue, error) {
	c.mu.RLock()
	bucket := c.sessionsBucket
	c.mu.RUnlock()

	if bucket != nil {
		return bucket, nil
	}

	// Upgrade to write lock and check again (double-checked locking)
	c.mu.Lock()
	defer c.mu.Unlock()

	// Check again after acquiring write lock
	if c.sessionsBucket != nil {
		return c.sessionsBucket, nil
	}

	// Try to get the bucket (it may have been created since startup)
	js, err := c.natsClient.JetStream()
	if err != nil {
		return nil, fmt.Errorf("get jetstream: %w", err)
	}

	bucket, err = js.KeyValue(ctx, c.config.SessionsBucket)
	if err != nil {
		return nil, fmt.Errorf("bucket not found: %w", err)
	}

	// Cache it
	c.sessionsBucket = bucket

	return bucket, nil
}
