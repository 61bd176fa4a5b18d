package interrupt

import (
	"strings"
	"testing"
	"time"

	"github.com/c360studio/agentloop/llm"
	"github.com/c360studio/agentloop/state"
)

func testHistory() []llm.Message {
	return []llm.Message{
		{Role: "system", Content: "You are a coding agent."},
		{Role: "user", Content: "Add a retry flag."},
		{Role: "assistant", Content: "I'll add the flag to the CLI."},
	}
}

func TestDispatchStop(t *testing.T) {
	s := state.New("thread-1", "exec-1", "claude-haiku")

	action, history := Dispatch(Command{Type: TypeStop, Timestamp: time.Now()}, s, testHistory())
	if action != ActionStop {
		t.Errorf("action = %v, want stop", action)
	}
	if len(history) != 3 {
		t.Errorf("history length = %d, want unchanged", len(history))
	}
	if len(s.UserInterrupts) != 1 {
		t.Error("interrupt not recorded in audit log")
	}
}

func TestDispatchClarify(t *testing.T) {
	s := state.New("thread-1", "exec-1", "claude-haiku")

	// With a message the loop continues with new context.
	action, history := Dispatch(Command{Type: TypeClarify, Message: "use sqlite"}, s, testHistory())
	if action != ActionClarify {
		t.Errorf("action = %v, want clarify", action)
	}
	if len(history) != 4 {
		t.Fatalf("history length = %d, want 4", len(history))
	}
	last := history[len(history)-1]
	if last.Role != "user" || !strings.Contains(last.Content, "use sqlite") {
		t.Errorf("injected message = %+v", last)
	}

	// Without a message the loop pauses for the human.
	action, _ = Dispatch(Command{Type: TypeClarify}, s, testHistory())
	if action != ActionStop {
		t.Errorf("empty clarify action = %v, want stop", action)
	}
}

func TestDispatchRetry(t *testing.T) {
	s := state.New("thread-1", "exec-1", "claude-haiku")
	s.RecordError("boom")
	s.RecordError("boom")
	s.MarkNoProgress()
	s.MarkNoProgress()

	action, history := Dispatch(Command{Type: TypeRetry}, s, testHistory())
	if action != ActionRetry {
		t.Errorf("action = %v, want retry", action)
	}

	// The most recent assistant turn is popped.
	for _, msg := range history {
		if msg.Role == "assistant" {
			t.Errorf("assistant message still present: %+v", msg)
		}
	}

	// Pressure counters relax by one each, floored at zero.
	if s.SameErrorCount != 1 || s.NoProgressTurns != 1 {
		t.Errorf("pressure = %d/%d, want 1/1", s.SameErrorCount, s.NoProgressTurns)
	}
}

func TestDispatchContinue(t *testing.T) {
	s := state.New("thread-1", "exec-1", "claude-haiku")

	action, history := Dispatch(Command{Type: TypeContinue}, s, testHistory())
	if action != ActionContinue {
		t.Errorf("action = %v, want continue", action)
	}
	if len(history) != 3 {
		t.Error("CONTINUE must not modify history")
	}
	if s.UserCorrectionCount != 0 {
		t.Error("CONTINUE must not count as a correction")
	}
}

func TestDispatchWrong(t *testing.T) {
	s := state.New("thread-1", "exec-1", "claude-haiku")

	action, history := Dispatch(Command{Type: TypeWrong, Message: "check migrations/"}, s, testHistory())
	if action != ActionClarify {
		t.Errorf("action = %v, want clarify", action)
	}
	if s.UserCorrectionCount != 1 {
		t.Errorf("UserCorrectionCount = %d, want 1", s.UserCorrectionCount)
	}
	last := history[len(history)-1]
	if !strings.Contains(last.Content, "check migrations/") {
		t.Errorf("correction not injected: %q", last.Content)
	}
}

func TestDispatchEscalate(t *testing.T) {
	s := state.New("thread-1", "exec-1", "claude-haiku")

	action, _ := Dispatch(Command{Type: TypeEscalate}, s, testHistory())
	if action != ActionContinue {
		t.Errorf("action = %v, want continue", action)
	}
	// The dispatch never switches models itself.
	if s.CurrentModel != "claude-haiku" {
		t.Errorf("model changed to %q", s.CurrentModel)
	}
}

func TestDispatchAlwaysAudits(t *testing.T) {
	s := state.New("thread-1", "exec-1", "claude-haiku")

	for _, typ := range []Type{TypeStop, TypeClarify, TypeRetry, TypeContinue, TypeWrong, TypeEscalate} {
		Dispatch(Command{Type: typ}, s, nil)
	}
	if len(s.UserInterrupts) != 6 {
		t.Errorf("audit log = %d entries, want 6", len(s.UserInterrupts))
	}
}
