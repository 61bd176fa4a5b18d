// Package executionengine provides the processor that runs lock-guarded
// multi-turn executions. It consumes task requests, enforces the
// one-execution-per-thread lock, drives a loop controller per accepted
// task and routes human interrupt signals into mailboxes.
package executionengine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/semstreams/agentic"
	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/agentloop/execution"
	"github.com/c360studio/agentloop/interrupt"
	"github.com/c360studio/agentloop/llm"
	"github.com/c360studio/agentloop/lock"
	"github.com/c360studio/agentloop/loop"
	"github.com/c360studio/agentloop/metrics"
	"github.com/c360studio/agentloop/model"
	"github.com/c360studio/agentloop/notify"
	"github.com/c360studio/agentloop/session"
	"github.com/c360studio/agentloop/state"
	"github.com/c360studio/agentloop/tools"
)

// Component implements the execution engine processor.
type Component struct {
	name       string
	config     Config
	natsClient *natsclient.Client
	logger     *slog.Logger

	ladder   *model.Ladder
	client   *llm.Client
	toolExec loop.ToolExecutor
	locks    *lock.Manager
	mailbox  *interrupt.Mailbox
	store    state.Store
	sessions *session.Manager
	notifier *notify.Notifier
	metrics  *metrics.Metrics

	// JetStream consumers
	taskConsumer      jetstream.Consumer
	interruptConsumer jetstream.Consumer
	stream            jetstream.Stream

	// Lifecycle state machine
	// States: 0=stopped, 1=starting, 2=running, 3=stopping
	state      atomic.Int32
	startTime  time.Time
	mu         sync.RWMutex
	cancel     context.CancelFunc
	execCancel context.CancelFunc

	// Running executions
	executions sync.WaitGroup
	activeMu   sync.Mutex
	active     map[string]*loop.Controller

	// Metrics
	tasksReceived    atomic.Int64
	tasksRejected    atomic.Int64
	executionsDone   atomic.Int64
	interruptsRouted atomic.Int64
	lastActivityMu   sync.RWMutex
	lastActivity     time.Time
}

const (
	stateStopped  = 0
	stateStarting = 1
	stateRunning  = 2
	stateStopping = 3
)

// NewComponent creates a new execution engine processor.
func NewComponent(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	var config Config
	if err := json.Unmarshal(rawConfig, &config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Apply defaults
	defaults := DefaultConfig()
	if config.StreamName == "" {
		config.StreamName = defaults.StreamName
	}
	if config.TaskConsumerName == "" {
		config.TaskConsumerName = defaults.TaskConsumerName
	}
	if config.TaskSubject == "" {
		config.TaskSubject = defaults.TaskSubject
	}
	if config.InterruptConsumerName == "" {
		config.InterruptConsumerName = defaults.InterruptConsumerName
	}
	if config.InterruptSubject == "" {
		config.InterruptSubject = defaults.InterruptSubject
	}
	if config.MaxConcurrent == 0 {
		config.MaxConcurrent = defaults.MaxConcurrent
	}
	if config.Ports == nil {
		config.Ports = defaults.Ports
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Component{
		name:       "execution-engine",
		config:     config,
		natsClient: deps.NATSClient,
		logger:     deps.GetLogger(),
		ladder:     model.Global(),
		metrics:    metrics.New(),
		active:     make(map[string]*loop.Controller),
	}, nil
}

// Initialize prepares the component.
func (c *Component) Initialize() error {
	c.logger.Debug("Initialized execution-engine",
		"stream", c.config.StreamName,
		"task_subject", c.config.TaskSubject,
		"interrupt_subject", c.config.InterruptSubject,
		"max_concurrent", c.config.MaxConcurrent)
	return nil
}

// Start begins consuming tasks and interrupts.
func (c *Component) Start(ctx context.Context) error {
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

	js, err := c.natsClient.JetStream()
	if err != nil {
		return fmt.Errorf("get jetstream: %w", err)
	}

	stream, err := js.Stream(ctx, c.config.StreamName)
	if err != nil {
		return fmt.Errorf("get stream %s: %w", c.config.StreamName, err)
	}

	taskConsumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       c.config.TaskConsumerName,
		FilterSubject: c.config.TaskSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       60 * time.Second,
		MaxDeliver:    3,
	})
	if err != nil {
		return fmt.Errorf("create task consumer: %w", err)
	}

	interruptConsumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       c.config.InterruptConsumerName,
		FilterSubject: c.config.InterruptSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    3,
	})
	if err != nil {
		return fmt.Errorf("create interrupt consumer: %w", err)
	}

	locks, err := lock.NewManager(ctx, js, lock.WithLogger(c.logger))
	if err != nil {
		return fmt.Errorf("create lock manager: %w", err)
	}

	mailbox, err := interrupt.NewMailbox(ctx, js)
	if err != nil {
		return fmt.Errorf("create interrupt mailbox: %w", err)
	}

	cacheStore, err := state.NewKVStore(ctx, js, state.KVStoreConfig{
		Bucket:  state.BucketStateCache,
		Storage: jetstream.MemoryStorage,
		TTL:     state.DefaultCacheTTL,
	})
	if err != nil {
		return fmt.Errorf("create state cache bucket: %w", err)
	}
	durableStore, err := state.NewKVStore(ctx, js, state.KVStoreConfig{
		Bucket:  state.BucketStateDurable,
		Storage: jetstream.FileStorage,
	})
	if err != nil {
		return fmt.Errorf("create state durable bucket: %w", err)
	}
	store := state.NewReplicated(cacheStore, durableStore, state.WithReplicatedLogger(c.logger))

	sessionCache, err := session.NewKVStore(ctx, js, session.BucketSessionCache, jetstream.MemoryStorage, session.DefaultCacheTTL)
	if err != nil {
		return fmt.Errorf("create session cache bucket: %w", err)
	}
	sessionDurable, err := session.NewKVStore(ctx, js, session.BucketSessionDurable, jetstream.FileStorage, 0)
	if err != nil {
		return fmt.Errorf("create session durable bucket: %w", err)
	}
	sessions := session.NewManager(sessionCache, sessionDurable, session.WithLogger(c.logger))

	clientOpts := []llm.ClientOption{llm.WithLogger(c.logger)}
	if cs := llm.GlobalCallStore(); cs != nil {
		clientOpts = append(clientOpts, llm.WithCallStore(cs))
	}

	consumeCtx, cancel := context.WithCancel(context.Background())
	// Executions outlive the consume loops during drain; they get their
	// own cancellation.
	execCtx, execCancel := context.WithCancel(context.Background())

	c.mu.Lock()
	c.stream = stream
	c.taskConsumer = taskConsumer
	c.interruptConsumer = interruptConsumer
	c.locks = locks
	c.mailbox = mailbox
	c.store = store
	c.sessions = sessions
	c.client = llm.NewClient(c.ladder, clientOpts...)
	c.toolExec = tools.NewDefaultMux(c.config.RepoRoot)
	c.notifier = notify.NewNotifier(c.natsClient, notify.WithLogger(c.logger))
	c.cancel = cancel
	c.execCancel = execCancel
	c.startTime = time.Now()
	c.mu.Unlock()

	c.state.Store(stateRunning)

	go c.consumeTasks(consumeCtx, execCtx)
	go c.consumeInterrupts(consumeCtx)

	c.logger.Info("Execution engine started",
		"stream", c.config.StreamName,
		"task_subject", c.config.TaskSubject,
		"interrupt_subject", c.config.InterruptSubject)

	return nil
}

// Stop drains running executions and stops the component. Executions
// that do not finish within the timeout are aborted through their
// context; the lock release in the controller still runs.
func (c *Component) Stop(timeout time.Duration) error {
	if !c.state.CompareAndSwap(stateRunning, stateStopping) {
		currentState := c.state.Load()
		if currentState == stateStopped || currentState == stateStopping {
			return nil
		}
		return fmt.Errorf("component in unexpected state: %d", currentState)
	}

	c.mu.Lock()
	cancel := c.cancel
	execCancel := c.execCancel
	notifier := c.notifier
	c.cancel = nil
	c.execCancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	done := make(chan struct{})
	go func() {
		c.executions.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		c.logger.Warn("Drain timeout, aborting remaining executions",
			"remaining", c.activeCount())
		if execCancel != nil {
			execCancel()
		}
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			c.logger.Error("Executions did not stop after abort",
				"remaining", c.activeCount())
		}
	}
	if execCancel != nil {
		execCancel()
	}

	if notifier != nil {
		notifier.Close()
	}

	c.state.Store(stateStopped)

	c.logger.Info("Execution engine stopped",
		"tasks_received", c.tasksReceived.Load(),
		"tasks_rejected", c.tasksRejected.Load(),
		"executions_done", c.executionsDone.Load(),
		"interrupts_routed", c.interruptsRouted.Load())

	return nil
}

// consumeTasks consumes execution task requests.
func (c *Component) consumeTasks(ctx, execCtx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := c.taskConsumer.Fetch(1, jetstream.FetchMaxWait(5*time.Second))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}

		for msg := range msgs.Messages() {
			c.handleTaskMessage(ctx, execCtx, msg)
		}

		if msgs.Error() != nil && ctx.Err() == nil {
			c.logger.Debug("Fetch error", "error", msgs.Error())
		}
	}
}

// handleTaskMessage admits one execution request: parse, capacity check,
// lock, launch. Lock contention is answered with a busy notice and the
// message is consumed; a task is never queued behind a running execution.
func (c *Component) handleTaskMessage(ctx, execCtx context.Context, msg jetstream.Msg) {
	if ctx.Err() != nil {
		if err := msg.Nak(); err != nil {
			c.logger.Warn("Failed to NAK message during shutdown", "error", err)
		}
		return
	}

	c.tasksReceived.Add(1)
	c.updateLastActivity()

	var baseMsg message.BaseMessage
	if err := json.Unmarshal(msg.Data(), &baseMsg); err != nil {
		c.logger.Error("Failed to unmarshal message", "error", err)
		if err := msg.Ack(); err != nil {
			c.logger.Warn("Failed to ACK malformed message", "error", err)
		}
		return
	}

	var task execution.TaskPayload
	payloadBytes, err := json.Marshal(baseMsg.Payload())
	if err == nil {
		err = json.Unmarshal(payloadBytes, &task)
	}
	if err == nil {
		err = task.Validate()
	}
	if err != nil {
		c.logger.Error("Invalid task payload", "error", err)
		if err := msg.Ack(); err != nil {
			c.logger.Warn("Failed to ACK invalid task", "error", err)
		}
		return
	}

	if c.activeCount() >= c.config.MaxConcurrent {
		c.logger.Warn("At capacity, redelivering task",
			"thread_id", task.ThreadID,
			"active", c.activeCount())
		if err := msg.NakWithDelay(10 * time.Second); err != nil {
			c.logger.Warn("Failed to NAK task at capacity", "error", err)
		}
		return
	}

	executionID := task.TaskID
	if executionID == "" {
		executionID = uuid.New().String()
	}

	acquired, err := c.locks.Acquire(ctx, task.ThreadID, executionID)
	if err != nil {
		c.logger.Error("Lock acquire failed",
			"thread_id", task.ThreadID,
			"error", err)
		if err := msg.Nak(); err != nil {
			c.logger.Warn("Failed to NAK task", "error", err)
		}
		return
	}
	if !acquired {
		c.tasksRejected.Add(1)
		c.metrics.LockContention.Inc()
		c.logger.Info("Thread busy, rejecting task",
			"thread_id", task.ThreadID,
			"task_id", task.TaskID)
		c.notifyBusy(ctx, &task)
		if err := msg.Ack(); err != nil {
			c.logger.Warn("Failed to ACK rejected task", "error", err)
		}
		return
	}

	ctrl, err := loop.NewController(loop.Config{
		ThreadID:     task.ThreadID,
		ExecutionID:  executionID,
		Task:         task.Task,
		SystemPrompt: task.SystemPrompt,
		Model:        task.Model,
		MaxTurns:     task.MaxTurns,
		Complexity:   task.Complexity,
	}, loop.Deps{
		Client:     c.client,
		Ladder:     c.ladder,
		Tools:      c.toolExec,
		Store:      c.store,
		Sessions:   c.sessions,
		Locks:      c.locks,
		Interrupts: c.mailbox,
		Notifier:   c.notifier,
		Metrics:    c.metrics,
		Logger:     c.logger,
	})
	if err != nil {
		c.logger.Error("Failed to build controller",
			"thread_id", task.ThreadID,
			"error", err)
		if rerr := c.locks.Release(ctx, task.ThreadID, executionID); rerr != nil {
			c.logger.Warn("Lock release failed", "thread_id", task.ThreadID, "error", rerr)
		}
		if err := msg.Ack(); err != nil {
			c.logger.Warn("Failed to ACK task", "error", err)
		}
		return
	}

	c.registerActive(task.ThreadID, ctrl)
	if err := msg.Ack(); err != nil {
		c.logger.Warn("Failed to ACK task", "error", err)
	}

	c.executions.Add(1)
	go c.runExecution(execCtx, ctrl, &task)

	c.logger.Info("Execution started",
		"thread_id", task.ThreadID,
		"execution_id", executionID,
		"active", c.activeCount())
}

// runExecution drives one controller to completion and reports the
// outcome back to the requesting channel.
func (c *Component) runExecution(ctx context.Context, ctrl *loop.Controller, task *execution.TaskPayload) {
	defer c.executions.Done()
	defer c.unregisterActive(task.ThreadID)

	result, err := ctrl.Run(ctx)
	c.executionsDone.Add(1)
	if err != nil {
		c.logger.Error("Execution failed",
			"thread_id", task.ThreadID,
			"error", err)
		return
	}

	c.notifyResult(ctrl, task, result)
}

// notifyBusy tells the requesting channel the thread already has a
// running execution.
func (c *Component) notifyBusy(ctx context.Context, task *execution.TaskPayload) {
	if task.ChannelType == "" || task.ChannelID == "" {
		return
	}

	content := fmt.Sprintf("An execution is already running for this conversation. "+
		"Send 🛑 or `stop` to interrupt it, or wait for it to finish. (thread %s)", task.ThreadID)
	notice := notify.Notice{
		ChannelType: task.ChannelType,
		ChannelID:   task.ChannelID,
		UserID:      task.UserID,
	}
	if err := c.notifier.PublishUserResponse(ctx, notice, agentic.ResponseTypeStatus, content); err != nil {
		c.logger.Warn("Failed to publish busy notice",
			"thread_id", task.ThreadID,
			"error", err)
	}
}

// notifyResult summarizes a finished execution to the requesting channel.
func (c *Component) notifyResult(ctrl *loop.Controller, task *execution.TaskPayload, result *loop.Result) {
	if task.ChannelType == "" || task.ChannelID == "" {
		return
	}

	responseType := agentic.ResponseTypeResult
	var content string
	switch result.Status {
	case loop.StatusCompleted:
		content = result.FinalResponse
		if content == "" {
			content = "Task complete."
		}
	case loop.StatusStuck:
		responseType = agentic.ResponseTypeError
		content = fmt.Sprintf("Execution got stuck after %d turns: %s", result.Turns, result.Reason)
	case loop.StatusAborted:
		responseType = agentic.ResponseTypeStatus
		content = fmt.Sprintf("Execution stopped after %d turns: %s", result.Turns, result.Reason)
	case loop.StatusMaxTurnsReached:
		responseType = agentic.ResponseTypeError
		content = fmt.Sprintf("Execution %s. Last confidence was %d. "+
			"Re-send the task to continue from the saved session.", result.Reason, result.Confidence)
	default:
		responseType = agentic.ResponseTypeStatus
		content = fmt.Sprintf("Execution finished with status %s: %s", result.Status, result.Reason)
	}

	pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	notice := notify.Notice{
		ChannelType: task.ChannelType,
		ChannelID:   task.ChannelID,
		UserID:      task.UserID,
	}
	if err := c.notifier.PublishUserResponse(pubCtx, notice, responseType, content); err != nil {
		c.logger.Warn("Failed to publish result notice",
			"thread_id", task.ThreadID,
			"status", ctrl.Status(),
			"error", err)
	}
}

// consumeInterrupts consumes interrupt signals and routes them into
// thread mailboxes.
func (c *Component) consumeInterrupts(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgs, err := c.interruptConsumer.Fetch(1, jetstream.FetchMaxWait(5*time.Second))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			continue
		}

		for msg := range msgs.Messages() {
			c.handleInterruptMessage(ctx, msg)
		}

		if msgs.Error() != nil && ctx.Err() == nil {
			c.logger.Debug("Fetch error", "error", msgs.Error())
		}
	}
}

// handleInterruptMessage parses one interrupt signal and posts the
// command to the thread's mailbox. Signals that do not map to a command
// are consumed and ignored.
func (c *Component) handleInterruptMessage(ctx context.Context, msg jetstream.Msg) {
	if ctx.Err() != nil {
		if err := msg.Nak(); err != nil {
			c.logger.Warn("Failed to NAK interrupt during shutdown", "error", err)
		}
		return
	}

	c.updateLastActivity()

	var baseMsg message.BaseMessage
	if err := json.Unmarshal(msg.Data(), &baseMsg); err != nil {
		c.logger.Error("Failed to unmarshal interrupt message", "error", err)
		if err := msg.Ack(); err != nil {
			c.logger.Warn("Failed to ACK malformed interrupt", "error", err)
		}
		return
	}

	var signal execution.InterruptPayload
	payloadBytes, err := json.Marshal(baseMsg.Payload())
	if err == nil {
		err = json.Unmarshal(payloadBytes, &signal)
	}
	if err == nil {
		err = signal.Validate()
	}
	if err != nil {
		c.logger.Error("Invalid interrupt payload", "error", err)
		if err := msg.Ack(); err != nil {
			c.logger.Warn("Failed to ACK invalid interrupt", "error", err)
		}
		return
	}

	cmd, ok := parseSignal(&signal)
	if !ok {
		c.logger.Debug("Signal is not an interrupt command",
			"thread_id", signal.ThreadID,
			"emoji", signal.Emoji)
		if err := msg.Ack(); err != nil {
			c.logger.Warn("Failed to ACK non-command signal", "error", err)
		}
		return
	}

	if err := c.mailbox.Post(ctx, signal.ThreadID, cmd); err != nil {
		c.logger.Error("Failed to post interrupt",
			"thread_id", signal.ThreadID,
			"type", cmd.Type,
			"error", err)
		if err := msg.Nak(); err != nil {
			c.logger.Warn("Failed to NAK interrupt", "error", err)
		}
		return
	}

	// A stop also raises the abort flag so an execution held in another
	// process observes it at its next turn boundary.
	if cmd.Type == interrupt.TypeStop {
		if err := c.locks.SignalAbort(ctx, signal.ThreadID); err != nil {
			c.logger.Warn("Failed to signal abort",
				"thread_id", signal.ThreadID,
				"error", err)
		}
	}

	c.interruptsRouted.Add(1)
	c.logger.Info("Interrupt routed",
		"thread_id", signal.ThreadID,
		"type", cmd.Type,
		"user_id", signal.UserID)

	if err := msg.Ack(); err != nil {
		c.logger.Warn("Failed to ACK interrupt", "error", err)
	}
}

// parseSignal maps an interrupt payload to a command. Emoji wins when
// both forms are present.
func parseSignal(signal *execution.InterruptPayload) (interrupt.Command, bool) {
	at := signal.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	if signal.Emoji != "" {
		return interrupt.ParseReaction(signal.Emoji, at)
	}
	return interrupt.ParseText(signal.Text, at)
}

func (c *Component) registerActive(threadID string, ctrl *loop.Controller) {
	c.activeMu.Lock()
	c.active[threadID] = ctrl
	c.activeMu.Unlock()
}

func (c *Component) unregisterActive(threadID string) {
	c.activeMu.Lock()
	delete(c.active, threadID)
	c.activeMu.Unlock()
}

func (c *Component) activeCount() int {
	c.activeMu.Lock()
	defer c.activeMu.Unlock()
	return len(c.active)
}

// updateLastActivity updates the last activity timestamp.
func (c *Component) updateLastActivity() {
	c.lastActivityMu.Lock()
	c.lastActivity = time.Now()
	c.lastActivityMu.Unlock()
}

func (c *Component) getLastActivity() time.Time {
	c.lastActivityMu.RLock()
	defer c.lastActivityMu.RUnlock()
	return c.lastActivity
}

// Metrics exposes the component's prometheus registry for the service
// HTTP server.
func (c *Component) Metrics() *metrics.Metrics {
	return c.metrics
}

// Meta returns component metadata.
func (c *Component) Meta() component.Metadata {
	return component.Metadata{
		Name:        "execution-engine",
		Type:        "processor",
		Description: "Runs lock-guarded multi-turn executions per conversation thread",
		Version:     "0.1.0",
	}
}

// InputPorts returns configured input port definitions.
func (c *Component) InputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}

	ports := make([]component.Port, len(c.config.Ports.Inputs))
	for i, portDef := range c.config.Ports.Inputs {
		ports[i] = component.Port{
			Name:        portDef.Name,
			Direction:   component.DirectionInput,
			Required:    portDef.Required,
			Description: portDef.Description,
			Config: component.NATSPort{
				Subject: portDef.Subject,
			},
		}
	}
	return ports
}

// OutputPorts returns configured output port definitions.
func (c *Component) OutputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}

	ports := make([]component.Port, len(c.config.Ports.Outputs))
	for i, portDef := range c.config.Ports.Outputs {
		ports[i] = component.Port{
			Name:        portDef.Name,
			Direction:   component.DirectionOutput,
			Required:    portDef.Required,
			Description: portDef.Description,
			Config: component.NATSPort{
				Subject: portDef.Subject,
			},
		}
	}
	return ports
}

// ConfigSchema returns the configuration schema.
func (c *Component) ConfigSchema() component.ConfigSchema {
	return engineSchema
}

// Health returns the component health status.
func (c *Component) Health() component.HealthStatus {
	st := c.state.Load()
	running := st == stateRunning

	c.mu.RLock()
	startTime := c.startTime
	c.mu.RUnlock()

	status := "stopped"
	switch st {
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
	return component.FlowMetrics{
		MessagesPerSecond: 0,
		BytesPerSecond:    0,
		ErrorRate:         0,
		LastActivity:      c.getLastActivity(),
	}
}
