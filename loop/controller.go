// Package loop drives one execution for one conversation thread: the
// turn loop, interrupt handling, escalation, checkpointing and the
// terminal bookkeeping (trajectory evaluation, reflection memory, session
// persistence, lock release).
package loop

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/c360studio/semstreams/agentic"
	"github.com/google/uuid"

	"github.com/c360studio/agentloop/confidence"
	"github.com/c360studio/agentloop/escalate"
	"github.com/c360studio/agentloop/interrupt"
	"github.com/c360studio/agentloop/llm"
	"github.com/c360studio/agentloop/metrics"
	"github.com/c360studio/agentloop/model"
	"github.com/c360studio/agentloop/notify"
	"github.com/c360studio/agentloop/reflection"
	"github.com/c360studio/agentloop/session"
	"github.com/c360studio/agentloop/state"
	"github.com/c360studio/agentloop/trajectory"
)

// Status is the controller's lifecycle state. Terminal states are final;
// a new execution starts fresh, informed only by the persisted session.
type Status string

const (
	StatusStarting        Status = "starting"
	StatusRunning         Status = "running"
	StatusCompleted       Status = "completed"
	StatusStuck           Status = "stuck"
	StatusAborted         Status = "aborted"
	StatusMaxTurnsReached Status = "max_turns_reached"
)

// DefaultMaxTurns bounds an execution when the caller does not.
const DefaultMaxTurns = 20

// MaxConsecutiveHardFailures is the ceiling on back-to-back model call
// failures before the execution is declared stuck.
const MaxConsecutiveHardFailures = 3

// Completer is the model call surface the controller needs.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// LockHandle is the slice of the lock manager the controller uses while
// running. Acquisition happens before the controller exists.
type LockHandle interface {
	Refresh(ctx context.Context, threadID, executionID string) error
	Release(ctx context.Context, threadID, executionID string) error
	AbortRequested(ctx context.Context, threadID string) bool
	ClearAbort(ctx context.Context, threadID string)
}

// InterruptSource delivers pending human interrupts at turn boundaries.
type InterruptSource interface {
	Poll(ctx context.Context, threadID string) (interrupt.Command, bool, error)
}

// Config describes one execution.
type Config struct {
	// ThreadID is the conversation thread this execution belongs to.
	ThreadID string

	// ExecutionID uniquely identifies this execution. Generated when empty.
	ExecutionID string

	// Task is the user's request driving the execution.
	Task string

	// SystemPrompt heads the conversation. A default is used when empty.
	SystemPrompt string

	// Model is the starting ladder tier. Defaults to the ladder base.
	Model string

	// MaxTurns bounds the execution. Defaults to DefaultMaxTurns.
	MaxTurns int

	// Complexity estimates task difficulty on a 1-10 scale and drives the
	// checkpoint interval.
	Complexity int
}

// Deps carries the controller's collaborators. Client and Ladder are
// required; everything else degrades gracefully when absent.
type Deps struct {
	Client     Completer
	Ladder     *model.Ladder
	Tools      ToolExecutor
	Store      state.Store
	Sessions   *session.Manager
	Locks      LockHandle
	Interrupts InterruptSource
	Notifier   *notify.Notifier
	Metrics    *metrics.Metrics
	Detector   ProgressDetector
	Logger     *slog.Logger
}

// Result is the outcome of a finished execution.
type Result struct {
	Status        Status
	Reason        string
	Turns         int
	Confidence    int
	FinalResponse string
	Evaluation    *trajectory.Evaluation
}

// Controller runs the turn loop for one execution. Not safe for
// concurrent use; one controller drives one execution exactly once.
type Controller struct {
	cfg  Config
	deps Deps

	st        *state.ExecutionState
	sess      *session.Session
	turns     []state.ExecutionTurn
	history   []llm.Message
	catalog   []llm.ToolDefinition
	lowStreak int

	hardFailures int
	ckptInterval int
	checkpoints  int
	status       Status
}

// NewController validates config and dependencies and prepares a
// controller in the Starting state.
func NewController(cfg Config, deps Deps) (*Controller, error) {
	if cfg.ThreadID == "" {
		return nil, fmt.Errorf("thread id is required")
	}
	if cfg.Task == "" {
		return nil, fmt.Errorf("task is required")
	}
	if deps.Client == nil {
		return nil, fmt.Errorf("model client is required")
	}
	if deps.Ladder == nil {
		return nil, fmt.Errorf("model ladder is required")
	}

	if cfg.ExecutionID == "" {
		cfg.ExecutionID = uuid.New().String()
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = DefaultMaxTurns
	}
	if cfg.Model == "" {
		cfg.Model = deps.Ladder.Base()
	}
	if deps.Store == nil {
		deps.Store = state.NewMemoryStore()
	}
	if deps.Detector == nil {
		deps.Detector = NewHeuristicDetector()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &Controller{
		cfg:          cfg,
		deps:         deps,
		st:           state.New(cfg.ThreadID, cfg.ExecutionID, cfg.Model),
		catalog:      toolCatalog(deps.Tools),
		ckptInterval: state.CheckpointInterval(cfg.Complexity),
		status:       StatusStarting,
	}, nil
}

// Status returns the controller's current lifecycle state.
func (c *Controller) Status() Status {
	return c.status
}

// State exposes the execution state for observation. The controller
// remains the only writer.
func (c *Controller) State() *state.ExecutionState {
	return c.st
}

// Run executes the turn loop to a terminal state. The lock is released
// on every exit path, including panics unwinding through Run.
func (c *Controller) Run(ctx context.Context) (result *Result, err error) {
	if c.status != StatusStarting {
		return nil, fmt.Errorf("controller already ran (status %s)", c.status)
	}
	c.status = StatusRunning

	if c.deps.Metrics != nil {
		c.deps.Metrics.ActiveExecutions.Inc()
	}
	started := time.Now()

	defer func() {
		if c.deps.Metrics != nil {
			c.deps.Metrics.ActiveExecutions.Dec()
			c.deps.Metrics.ExecutionDuration.Observe(time.Since(started).Seconds())
		}
		if c.deps.Locks != nil {
			// Release must survive a cancelled parent context.
			relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if rerr := c.deps.Locks.Release(relCtx, c.cfg.ThreadID, c.cfg.ExecutionID); rerr != nil {
				c.deps.Logger.Warn("Lock release failed",
					"thread_id", c.cfg.ThreadID,
					"error", rerr)
			}
			c.deps.Locks.ClearAbort(relCtx, c.cfg.ThreadID)
		}
	}()

	ctx, execSpan := startExecutionSpan(ctx, c.cfg.ThreadID, c.cfg.ExecutionID, c.cfg.Model)
	ctx = llm.WithTraceContext(ctx, llm.TraceContext{
		ThreadID:    c.cfg.ThreadID,
		ExecutionID: c.cfg.ExecutionID,
	})

	c.loadSession(ctx)
	c.seedHistory()

	result = c.runLoop(ctx)
	c.finalize(ctx, result)

	endExecutionSpan(execSpan, result.Status, result.Turns, nil)
	return result, nil
}

// loadSession pulls thread memory for prompt seeding.
func (c *Controller) loadSession(ctx context.Context) {
	if c.deps.Sessions == nil {
		c.sess = session.New(c.cfg.ThreadID)
		return
	}
	c.sess = c.deps.Sessions.LoadOrCreate(ctx, c.cfg.ThreadID)

	// A thread that escalated before starts on its escalated tier.
	if c.sess.CurrentModel != "" && c.deps.Ladder.Position(c.sess.CurrentModel) > c.deps.Ladder.Position(c.st.CurrentModel) {
		c.st.CurrentModel = c.sess.CurrentModel
	}
}

const defaultSystemPrompt = `You are an autonomous engineering agent working through a task over multiple turns.
Each turn, decide on the next concrete step and use the available tools to carry it out.
End every response with a JSON object: {"status": "continue|stuck|complete|needs_clarification", "confidence": 0-100}.`

// seedHistory builds the opening conversation: system prompt, thread
// memory, then the task.
func (c *Controller) seedHistory() {
	prompt := c.cfg.SystemPrompt
	if prompt == "" {
		prompt = defaultSystemPrompt
	}

	c.history = []llm.Message{{Role: "system", Content: prompt}}
	if memory := c.sess.PromptContext(); !c.sess.IsNew {
		c.history = append(c.history, llm.Message{Role: "system", Content: memory})
	}
	c.history = append(c.history, llm.Message{Role: "user", Content: c.cfg.Task})
}

// runLoop is the per-turn state machine. It returns the terminal result;
// finalize handles the terminal bookkeeping.
func (c *Controller) runLoop(ctx context.Context) *Result {
	for c.st.TurnNumber < c.cfg.MaxTurns {
		if ctx.Err() != nil {
			return c.terminal(StatusAborted, "context cancelled")
		}
		if c.deps.Locks != nil && c.deps.Locks.AbortRequested(ctx, c.cfg.ThreadID) {
			return c.terminal(StatusAborted, "abort requested")
		}

		c.st.AdvanceTurn()
		turnCtx, turnSpan := startTurnSpan(ctx, c.st.TurnNumber, c.st.CurrentModel)

		c.emit(notify.Event{
			Type:       notify.EventTurnStart,
			TurnNumber: c.st.TurnNumber,
			Confidence: c.st.ConfidenceScore,
			Model:      c.st.CurrentModel,
		})

		forceEscalate, stopped := c.handleInterrupts(turnCtx)
		if stopped {
			endTurnSpan(turnSpan, c.st.ConfidenceScore, "stopped", nil)
			return c.terminal(StatusAborted, "stopped by user")
		}

		if c.deps.Locks != nil {
			if err := c.deps.Locks.Refresh(turnCtx, c.cfg.ThreadID, c.cfg.ExecutionID); err != nil {
				c.deps.Logger.Warn("Lock refresh failed",
					"thread_id", c.cfg.ThreadID,
					"error", err)
			}
		}

		resp, err := c.deps.Client.Complete(turnCtx, llm.Request{
			Model:    c.st.CurrentModel,
			Messages: c.history,
			Tools:    c.catalog,
		})
		if err != nil {
			endTurnSpan(turnSpan, c.st.ConfidenceScore, "error", err)
			if result := c.handleModelFailure(err); result != nil {
				return result
			}
			c.countTurn("error")
			continue
		}
		c.hardFailures = 0
		c.countModelCall("success")

		turn := c.processTurn(turnCtx, resp)
		c.turns = append(c.turns, *turn)

		conf := confidence.Score(c.st, turn)
		c.st.ConfidenceScore = conf

		if turn.Status == state.StatusComplete {
			endTurnSpan(turnSpan, conf, string(turn.Status), nil)
			c.countTurn("completed")
			return c.terminal(StatusCompleted, "task complete")
		}
		if turn.Status == state.StatusNeedsClarification {
			c.emit(notify.Event{
				Type:       notify.EventClarificationRequest,
				TurnNumber: c.st.TurnNumber,
				Confidence: conf,
				Model:      c.st.CurrentModel,
				Message:    turn.Response,
			})
			endTurnSpan(turnSpan, conf, string(turn.Status), nil)
			c.countTurn("aborted")
			return c.terminal(StatusAborted, "waiting for clarification from the user")
		}

		escalated := c.checkEscalation(turn, forceEscalate)

		// The streak the next turn's check sees counts turns completed
		// before the model had a chance to react to this one.
		switch {
		case escalated:
			c.lowStreak = 0
		case conf < confidence.StuckThreshold:
			c.lowStreak++
		default:
			c.lowStreak = 0
		}

		if c.st.TurnNumber%c.ckptInterval == 0 {
			c.writeCheckpoint(turnCtx)
		}

		c.emit(notify.Event{
			Type:       notify.EventTurnComplete,
			TurnNumber: c.st.TurnNumber,
			Confidence: conf,
			Model:      c.st.CurrentModel,
		})
		c.countTurn("continued")
		endTurnSpan(turnSpan, conf, string(turn.Status), nil)
	}

	return c.terminal(StatusMaxTurnsReached,
		fmt.Sprintf("reached the %d turn limit", c.cfg.MaxTurns))
}

// handleInterrupts polls the mailbox and applies at most one command.
func (c *Controller) handleInterrupts(ctx context.Context) (forceEscalate, stopped bool) {
	if c.deps.Interrupts == nil {
		return false, false
	}

	cmd, ok, err := c.deps.Interrupts.Poll(ctx, c.cfg.ThreadID)
	if err != nil {
		c.deps.Logger.Warn("Interrupt poll failed",
			"thread_id", c.cfg.ThreadID,
			"error", err)
		return false, false
	}
	if !ok {
		return false, false
	}

	if c.deps.Metrics != nil {
		c.deps.Metrics.Interrupts.WithLabelValues(string(cmd.Type)).Inc()
	}
	c.deps.Logger.Info("Interrupt received",
		"thread_id", c.cfg.ThreadID,
		"type", cmd.Type,
		"turn", c.st.TurnNumber)

	action, history := interrupt.Dispatch(cmd, c.st, c.history)
	c.history = history

	if action == interrupt.ActionStop {
		return false, true
	}
	return cmd.Type == interrupt.TypeEscalate, false
}

// handleModelFailure applies the per-turn recovery path for a failed
// model call. Returns a terminal result when the consecutive-failure
// ceiling is hit, nil to continue with the next turn.
func (c *Controller) handleModelFailure(err error) *Result {
	c.hardFailures++
	c.st.RecordError(err.Error())
	c.countModelCall("error")

	c.deps.Logger.Error("Model call failed",
		"thread_id", c.cfg.ThreadID,
		"turn", c.st.TurnNumber,
		"consecutive_failures", c.hardFailures,
		"error", err)

	if c.hardFailures >= MaxConsecutiveHardFailures {
		return c.terminal(StatusStuck,
			fmt.Sprintf("model call failed %d times in a row: %v", c.hardFailures, err))
	}

	c.history = append(c.history, llm.Message{
		Role: "user",
		Content: "The previous model call failed before producing a response. " +
			"Continue from the last successful step and keep the next action small.",
	})
	return nil
}

// processTurn turns a model response into an ExecutionTurn: tools are
// executed one by one, failures captured per call, and the conversation
// history extended with the assistant message and tool results.
func (c *Controller) processTurn(ctx context.Context, resp *llm.Response) *state.ExecutionTurn {
	status, selfConfidence := parseTurnMeta(resp.Content)

	turn := &state.ExecutionTurn{
		TurnNumber:     c.st.TurnNumber,
		Response:       resp.Content,
		SelfConfidence: selfConfidence,
		Status:         status,
		Model:          c.st.CurrentModel,
		Usage: state.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
		Timestamp: time.Now(),
	}

	c.history = append(c.history, llm.Message{
		Role:      "assistant",
		Content:   resp.Content,
		ToolCalls: resp.ToolCalls,
	})

	for _, call := range resp.ToolCalls {
		turn.ToolCalls = append(turn.ToolCalls, state.ToolInvocation{
			ID:        call.ID,
			Name:      call.Name,
			Arguments: decodeArguments(call.Arguments),
		})

		outcome := c.executeTool(ctx, call)
		turn.ToolResults = append(turn.ToolResults, outcome)

		content := outcome.Content
		if outcome.Error != "" {
			content = fmt.Sprintf(`{"error": %q, "success": false}`, outcome.Error)
		}
		c.history = append(c.history, llm.Message{
			Role:       "tool",
			Content:    content,
			ToolCallID: call.ID,
		})

		c.emit(notify.Event{
			Type:       notify.EventToolExecution,
			TurnNumber: c.st.TurnNumber,
			Model:      c.st.CurrentModel,
			Tool:       call.Name,
			Message:    outcome.Error,
		})
	}

	if turn.HadToolError() {
		c.st.RecordError(firstToolError(turn))
	}

	progressed, files := c.deps.Detector.Detect(turn)
	if progressed {
		c.st.MarkProgress(files...)
	} else {
		c.st.MarkNoProgress()
	}

	return turn
}

// executeTool runs one tool call. Failures never abort the turn; they
// come back as the call's error outcome.
func (c *Controller) executeTool(ctx context.Context, call llm.ToolCall) state.ToolOutcome {
	if c.deps.Tools == nil {
		return state.ToolOutcome{
			Name:  call.Name,
			Error: "no tool executor configured",
		}
	}

	toolCtx, span := startToolSpan(ctx, call.Name)
	result, err := c.deps.Tools.Execute(toolCtx, agentic.ToolCall{
		ID:        call.ID,
		Name:      call.Name,
		Arguments: decodeArguments(call.Arguments),
	})

	outcome := state.ToolOutcome{
		Name:    call.Name,
		Content: result.Content,
		Error:   result.Error,
	}
	if err != nil && outcome.Error == "" {
		outcome.Error = err.Error()
	}
	endToolSpan(span, outcome.Error != "")
	return outcome
}

// checkEscalation evaluates the triggers and applies a model switch.
// At the top of the ladder a live trigger asks the human for guidance
// instead, and the pressure counters are cleared either way.
func (c *Controller) checkEscalation(turn *state.ExecutionTurn, forced bool) bool {
	dec := escalate.Check(c.st, turn, c.deps.Ladder, c.lowStreak)
	if !dec.Escalate && forced {
		dec = escalate.Decision{
			Escalate:       true,
			Reason:         "User requested escalation",
			SuggestedModel: c.deps.Ladder.NextAvailable(c.st.CurrentModel),
		}
	}
	if !dec.Escalate {
		return false
	}

	if escalate.AtTop(c.deps.Ladder, c.st.CurrentModel) {
		c.emit(notify.Event{
			Type:       notify.EventClarificationRequest,
			TurnNumber: c.st.TurnNumber,
			Confidence: c.st.ConfidenceScore,
			Model:      c.st.CurrentModel,
			Message:    fmt.Sprintf("Already on the strongest model and still struggling (%s). Guidance welcome.", dec.Reason),
		})
		c.history = append(c.history, llm.Message{
			Role: "user",
			Content: "You are already on the most capable model and progress has stalled. " +
				"Summarize what is blocking you and try a different approach.",
		})
		c.st.ClearPressure()
		return true
	}

	from := c.st.CurrentModel
	c.st.RecordEscalation(dec.SuggestedModel, dec.Reason)
	c.st.ClearPressure()

	if c.deps.Metrics != nil {
		c.deps.Metrics.Escalations.WithLabelValues(dec.Reason).Inc()
	}
	c.deps.Logger.Info("Escalating model",
		"thread_id", c.cfg.ThreadID,
		"turn", c.st.TurnNumber,
		"from", from,
		"to", dec.SuggestedModel,
		"reason", dec.Reason)
	c.emit(notify.Event{
		Type:       notify.EventEscalation,
		TurnNumber: c.st.TurnNumber,
		Confidence: c.st.ConfidenceScore,
		Model:      dec.SuggestedModel,
		Message:    dec.Reason,
	})
	return true
}

// writeCheckpoint persists a snapshot. Best-effort; a failed write is
// logged and the loop moves on.
func (c *Controller) writeCheckpoint(ctx context.Context) {
	cp := state.NewCheckpoint(c.st)
	if err := state.SaveCheckpoint(ctx, c.deps.Store, cp); err != nil {
		c.deps.Logger.Warn("Checkpoint write failed",
			"thread_id", c.cfg.ThreadID,
			"turn", c.st.TurnNumber,
			"error", err)
		return
	}
	c.checkpoints++
	if c.deps.Metrics != nil {
		c.deps.Metrics.Checkpoints.Inc()
	}
	c.emit(notify.Event{
		Type:       notify.EventCheckpoint,
		TurnNumber: c.st.TurnNumber,
		Confidence: c.st.ConfidenceScore,
		Model:      c.st.CurrentModel,
	})
}

// terminal records the terminal transition.
func (c *Controller) terminal(status Status, reason string) *Result {
	c.status = status

	result := &Result{
		Status:     status,
		Reason:     reason,
		Turns:      c.st.TurnNumber,
		Confidence: c.st.ConfidenceScore,
	}
	if len(c.turns) > 0 {
		result.FinalResponse = c.turns[len(c.turns)-1].Response
	}
	return result
}

// finalize runs the terminal bookkeeping: abort checkpoint, trajectory
// evaluation, reflection memory, session persistence and the completion
// event. Failures are logged, never propagated; the execution is over.
func (c *Controller) finalize(ctx context.Context, result *Result) {
	// A user-directed abort always leaves a checkpoint behind.
	if result.Status == StatusAborted {
		c.writeCheckpoint(ctx)
	}

	eval := trajectory.Evaluate(c.st, c.turns, c.cfg.MaxTurns)
	result.Evaluation = eval

	refl := reflection.Build(eval)
	c.sess.RecordReflection(refl)
	if refl.KeyInsight != "" {
		c.sess.RecordInsight(refl.KeyInsight)
	}
	c.sess.LastTrajectory = &session.TrajectorySummary{
		Score:            eval.Score,
		CompletionStatus: string(eval.CompletionStatus),
		HasProgress:      eval.HasProgress,
		Reasoning:        eval.Reasoning,
		EvaluatedAt:      time.Now(),
	}
	for _, ev := range c.st.Escalations {
		c.sess.RecordEscalation(ev)
	}
	c.sess.Touch(c.st.ConfidenceScore, c.st.TurnNumber, c.st.CurrentModel)

	if c.deps.Sessions != nil {
		if err := c.deps.Sessions.Save(ctx, c.sess); err != nil {
			c.deps.Logger.Warn("Session save failed",
				"thread_id", c.cfg.ThreadID,
				"error", err)
		}
	}
	if err := c.deps.Store.Save(ctx, c.cfg.ThreadID, c.st); err != nil {
		c.deps.Logger.Warn("Final state save failed",
			"thread_id", c.cfg.ThreadID,
			"error", err)
	}

	c.emit(notify.Event{
		Type:       notify.EventReflection,
		TurnNumber: c.st.TurnNumber,
		Confidence: c.st.ConfidenceScore,
		Model:      c.st.CurrentModel,
		Message:    refl.Summary,
	})
	c.emit(notify.Event{
		Type:       notify.EventCompletion,
		TurnNumber: c.st.TurnNumber,
		Confidence: c.st.ConfidenceScore,
		Model:      c.st.CurrentModel,
		Message:    result.Reason,
	})

	c.deps.Logger.Info("Execution finished",
		"thread_id", c.cfg.ThreadID,
		"execution_id", c.cfg.ExecutionID,
		"status", result.Status,
		"turns", result.Turns,
		"confidence", result.Confidence,
		"trajectory_score", eval.Score)
}

// emit sends a fire-and-forget progress event.
func (c *Controller) emit(ev notify.Event) {
	if c.deps.Notifier == nil {
		return
	}
	ev.ThreadID = c.cfg.ThreadID
	ev.ExecutionID = c.cfg.ExecutionID
	c.deps.Notifier.Emit(ev)
}

func (c *Controller) countTurn(outcome string) {
	if c.deps.Metrics != nil {
		c.deps.Metrics.Turns.WithLabelValues(outcome).Inc()
	}
}

func (c *Controller) countModelCall(outcome string) {
	if c.deps.Metrics != nil {
		c.deps.Metrics.ModelCalls.WithLabelValues(c.st.CurrentModel, outcome).Inc()
	}
}

// turnMeta is the trailing status object the system prompt asks for.
type turnMeta struct {
	Status     string `json:"status"`
	Confidence int    `json:"confidence"`
}

// parseTurnMeta extracts the model-reported status and confidence from
// the response text. Absent or malformed metadata reads as a continuing
// turn with neutral confidence.
func parseTurnMeta(content string) (state.TurnStatus, int) {
	status := state.StatusContinue
	selfConfidence := 50

	raw := llm.ExtractJSON(content)
	if raw == "" {
		return status, selfConfidence
	}

	var meta turnMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return status, selfConfidence
	}

	switch state.TurnStatus(meta.Status) {
	case state.StatusContinue, state.StatusStuck, state.StatusComplete, state.StatusNeedsClarification:
		status = state.TurnStatus(meta.Status)
	}
	if meta.Confidence > 0 && meta.Confidence <= 100 {
		selfConfidence = meta.Confidence
	}
	return status, selfConfidence
}

// firstToolError returns the first tool error message in the turn.
func firstToolError(turn *state.ExecutionTurn) string {
	for _, r := range turn.ToolResults {
		if r.Error != "" {
			return r.Error
		}
	}
	return ""
}
