package interrupt

import (
	"fmt"

	"github.com/c360studio/agentloop/llm"
	"github.com/c360studio/agentloop/state"
)

// Action is what the loop does with a dispatched interrupt.
type Action string

const (
	// ActionStop ends or pauses the execution.
	ActionStop Action = "stop"

	// ActionClarify continues with new guidance in the model context.
	ActionClarify Action = "clarify"

	// ActionRetry rewinds the last assistant turn and tries again.
	ActionRetry Action = "retry"

	// ActionContinue proceeds with no change.
	ActionContinue Action = "continue"
)

// Dispatch maps a command to a loop action, applying its state and
// conversation-history effects. The command is always recorded in the
// audit log first, regardless of outcome. The returned history replaces
// the caller's; only RETRY, CLARIFY and WRONG modify it.
func Dispatch(cmd Command, s *state.ExecutionState, history []llm.Message) (Action, []llm.Message) {
	s.RecordInterrupt(string(cmd.Type), cmd.Message, cmd.Timestamp)

	switch cmd.Type {
	case TypeStop:
		return ActionStop, history

	case TypeClarify:
		if cmd.Message == "" {
			// Nothing to clarify with; pause and wait for the human.
			return ActionStop, history
		}
		history = append(history, llm.Message{
			Role:    "user",
			Content: fmt.Sprintf("Clarification from the user: %s", cmd.Message),
		})
		return ActionClarify, history

	case TypeRetry:
		history = popLastAssistant(history)
		s.RelaxPressure()
		return ActionRetry, history

	case TypeContinue:
		return ActionContinue, history

	case TypeWrong:
		s.RecordCorrection()
		correction := "The user says the current approach is wrong. Stop, reconsider the approach, and explain the corrected plan before proceeding."
		if cmd.Message != "" {
			correction = fmt.Sprintf("The user says the current approach is wrong: %s. Adjust course accordingly.", cmd.Message)
		}
		history = append(history, llm.Message{Role: "user", Content: correction})
		return ActionClarify, history

	case TypeEscalate:
		// The model switch itself is the loop's job.
		return ActionContinue, history

	default:
		return ActionContinue, history
	}
}

// popLastAssistant removes the most recent assistant message, if any.
func popLastAssistant(history []llm.Message) []llm.Message {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == "assistant" {
			return append(history[:i:i], history[i+1:]...)
		}
	}
	return history
}
