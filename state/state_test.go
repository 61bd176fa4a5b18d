package state

import (
	"testing"
	"time"
)

func TestRecordErrorStreaks(t *testing.T) {
	s := New("thread-1", "exec-1", "claude-haiku")

	s.RecordError("compile failed")
	if s.SameErrorCount != 1 {
		t.Errorf("first error: SameErrorCount = %d, want 1", s.SameErrorCount)
	}

	s.RecordError("compile failed")
	if s.SameErrorCount != 2 {
		t.Errorf("identical repeat: SameErrorCount = %d, want 2", s.SameErrorCount)
	}

	s.RecordError("tests failed")
	if s.SameErrorCount != 1 {
		t.Errorf("changed error: SameErrorCount = %d, want 1", s.SameErrorCount)
	}
	if s.LastError != "tests failed" {
		t.Errorf("LastError = %q, want %q", s.LastError, "tests failed")
	}
	if s.ErrorCount != 3 {
		t.Errorf("ErrorCount = %d, want 3", s.ErrorCount)
	}
}

func TestMarkProgressResetsStreakAndDedupesFiles(t *testing.T) {
	s := New("thread-1", "exec-1", "claude-haiku")

	s.MarkNoProgress()
	s.MarkNoProgress()
	if s.NoProgressTurns != 2 {
		t.Fatalf("NoProgressTurns = %d, want 2", s.NoProgressTurns)
	}

	s.MarkProgress("main.go", "main.go", "util.go", "")
	if s.NoProgressTurns != 0 {
		t.Errorf("NoProgressTurns = %d, want 0 after progress", s.NoProgressTurns)
	}
	if len(s.FileChanges) != 2 {
		t.Fatalf("FileChanges = %v, want 2 unique paths", s.FileChanges)
	}
	if s.FileChanges[0] != "main.go" || s.FileChanges[1] != "util.go" {
		t.Errorf("FileChanges order = %v, want [main.go util.go]", s.FileChanges)
	}
}

func TestPressureCounters(t *testing.T) {
	s := New("thread-1", "exec-1", "claude-haiku")
	s.RecordError("x")
	s.RecordError("x")
	s.RecordError("x")
	s.MarkNoProgress()

	s.RelaxPressure()
	if s.SameErrorCount != 2 || s.NoProgressTurns != 0 {
		t.Errorf("after relax: same=%d noprog=%d, want 2/0", s.SameErrorCount, s.NoProgressTurns)
	}

	// Relax never goes below zero.
	s.RelaxPressure()
	s.RelaxPressure()
	s.RelaxPressure()
	if s.SameErrorCount != 0 || s.NoProgressTurns != 0 {
		t.Errorf("relax floor: same=%d noprog=%d, want 0/0", s.SameErrorCount, s.NoProgressTurns)
	}

	s.RecordError("x")
	s.MarkNoProgress()
	s.ClearPressure()
	if s.SameErrorCount != 0 || s.NoProgressTurns != 0 {
		t.Errorf("after clear: same=%d noprog=%d, want 0/0", s.SameErrorCount, s.NoProgressTurns)
	}
	if s.ErrorCount == 0 {
		t.Error("ClearPressure must not erase error history")
	}
}

func TestTestPassRate(t *testing.T) {
	s := New("thread-1", "exec-1", "claude-haiku")

	if got := s.TestPassRate(0.5); got != 0.5 {
		t.Errorf("empty pass rate = %v, want default 0.5", got)
	}

	s.AddTestResults(
		TestResult{Name: "TestA", Passed: true},
		TestResult{Name: "TestB", Passed: true},
		TestResult{Name: "TestC", Passed: false},
		TestResult{Name: "TestD", Passed: true},
	)
	if got := s.TestPassRate(0.5); got != 0.75 {
		t.Errorf("pass rate = %v, want 0.75", got)
	}
}

func TestRecordEscalationKeepsHistory(t *testing.T) {
	s := New("thread-1", "exec-1", "claude-haiku")
	s.TurnNumber = 4

	s.RecordEscalation("claude-sonnet", "Same error repeated")
	s.RecordEscalation("claude-opus", "No progress")

	if s.CurrentModel != "claude-opus" {
		t.Errorf("CurrentModel = %q, want claude-opus", s.CurrentModel)
	}
	if len(s.Escalations) != 2 {
		t.Fatalf("escalation history = %d entries, want 2", len(s.Escalations))
	}
	if s.Escalations[0].FromModel != "claude-haiku" || s.Escalations[0].ToModel != "claude-sonnet" {
		t.Errorf("first event = %+v", s.Escalations[0])
	}
	if s.Escalations[1].FromModel != "claude-sonnet" {
		t.Errorf("second event from = %q, want claude-sonnet", s.Escalations[1].FromModel)
	}
}

func TestHadToolError(t *testing.T) {
	turn := &ExecutionTurn{
		ToolResults: []ToolOutcome{
			{Name: "file_write", Content: "ok"},
			{Name: "run_tests", Error: "2 tests failed"},
		},
	}
	if !turn.HadToolError() {
		t.Error("HadToolError() = false, want true")
	}

	clean := &ExecutionTurn{ToolResults: []ToolOutcome{{Name: "file_read", Content: "data"}}}
	if clean.HadToolError() {
		t.Error("HadToolError() = true for clean turn")
	}
}

func TestRecordInterruptAudit(t *testing.T) {
	s := New("thread-1", "exec-1", "claude-haiku")
	now := time.Now()

	s.RecordInterrupt("STOP", "", now)
	s.RecordInterrupt("WRONG", "use the other branch", now)

	if len(s.UserInterrupts) != 2 {
		t.Fatalf("audit log = %d entries, want 2", len(s.UserInterrupts))
	}
	if s.UserInterrupts[1].Message != "use the other branch" {
		t.Errorf("message = %q", s.UserInterrupts[1].Message)
	}
}
