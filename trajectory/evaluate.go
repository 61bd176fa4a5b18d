// Package trajectory scores a finished execution from its full turn
// sequence. The evaluation is heuristic and deterministic, independent of
// the per-turn confidence model, and feeds the reflection memory that
// informs the next execution on the same thread.
package trajectory

import (
	"fmt"
	"math"
	"strings"

	"github.com/c360studio/agentloop/state"
)

// CompletionStatus summarizes how the execution ended.
type CompletionStatus string

const (
	// StatusCompleted means the model declared the task done.
	StatusCompleted CompletionStatus = "completed"

	// StatusFailed means the execution ended stuck.
	StatusFailed CompletionStatus = "failed"

	// StatusPartial means the execution ended without a clear outcome.
	StatusPartial CompletionStatus = "partial"
)

// Evaluation is the scored summary of one execution.
type Evaluation struct {
	// Score is the overall 10-100 trajectory score.
	Score int `json:"score"`

	// Reasoning is a short human-readable summary of the scoring.
	Reasoning string `json:"reasoning"`

	// HasProgress reports whether the execution made meaningful progress.
	HasProgress bool `json:"has_progress"`

	// Issues lists detected problems, one fixed message per finding.
	Issues []string `json:"issues,omitempty"`

	// Suggestions lists improvements for the next execution.
	Suggestions []string `json:"suggestions,omitempty"`

	// CompletionStatus is how the execution ended.
	CompletionStatus CompletionStatus `json:"completion_status"`

	// Sub-scores, each 0-100.
	TaskCompletion int `json:"task_completion"`
	CodeQuality    int `json:"code_quality"`
	Efficiency     int `json:"efficiency"`
}

// Weights for combining sub-scores into the overall score.
const (
	weightCompletion = 0.5
	weightQuality    = 0.3
	weightEfficiency = 0.2
)

// Evaluate scores a closed turn sequence. maxTurns is the turn budget the
// execution ran under; it anchors the efficiency score.
func Evaluate(s *state.ExecutionState, turns []state.ExecutionTurn, maxTurns int) *Evaluation {
	status := completionStatus(turns)
	errorCount := countErrors(turns)

	completion := scoreCompletion(status, s, turns)
	quality := scoreQuality(errorCount, len(turns))
	efficiency := scoreEfficiency(len(turns), maxTurns, errorCount)

	return finalize(status, completion, quality, efficiency, errorCount, turns, maxTurns)
}

// EvaluateDesign scores a pure-design trajectory, one that produced prose
// rather than tool executions. Code quality is replaced by design-quality
// heuristics and efficiency uses an ideal-turn-count curve instead of the
// budget ratio.
func EvaluateDesign(s *state.ExecutionState, turns []state.ExecutionTurn) *Evaluation {
	status := completionStatus(turns)
	errorCount := countErrors(turns)

	completion := scoreCompletion(status, s, turns)
	quality := scoreDesignQuality(turns)
	efficiency := scoreDesignEfficiency(len(turns))

	return finalize(status, completion, quality, efficiency, errorCount, turns, 0)
}

func completionStatus(turns []state.ExecutionTurn) CompletionStatus {
	if len(turns) == 0 {
		return StatusPartial
	}
	switch turns[len(turns)-1].Status {
	case state.StatusComplete:
		return StatusCompleted
	case state.StatusStuck:
		return StatusFailed
	default:
		return StatusPartial
	}
}

// countErrors counts stuck turns plus tool results carrying an error.
func countErrors(turns []state.ExecutionTurn) int {
	n := 0
	for _, turn := range turns {
		if turn.Status == state.StatusStuck {
			n++
		}
		for _, r := range turn.ToolResults {
			if r.Error != "" {
				n++
			}
		}
	}
	return n
}

func scoreCompletion(status CompletionStatus, s *state.ExecutionState, turns []state.ExecutionTurn) int {
	switch status {
	case StatusCompleted:
		return 100
	case StatusFailed:
		return 20
	}

	usedTools := false
	for _, turn := range turns {
		if len(turn.ToolCalls) > 0 {
			usedTools = true
			break
		}
	}
	if usedTools || len(s.FileChanges) > 0 {
		return 60
	}
	return 30
}

func scoreQuality(errorCount, turnCount int) int {
	if turnCount == 0 {
		return 40
	}
	rate := float64(errorCount) / float64(turnCount)
	switch {
	case rate == 0:
		return 100
	case rate < 0.2:
		return 80
	case rate < 0.4:
		return 60
	default:
		return 40
	}
}

func scoreEfficiency(turnCount, maxTurns, errorCount int) int {
	if maxTurns <= 0 {
		maxTurns = 1
	}
	score := 100 - int(50*float64(turnCount)/float64(maxTurns)) - 10*errorCount
	return clampInt(score, 20, 100)
}

// Design-quality vocabulary. Reasoning that weighs alternatives scores
// higher; reasoning that hedges scores lower.
var (
	designSignals = []string{"trade-off", "tradeoff", "alternative", "constraint", "instead of", "compared to"}
	hedgeSignals  = []string{"unclear", "contradiction", "not sure", "ambiguous"}
)

func scoreDesignQuality(turns []state.ExecutionTurn) int {
	var text strings.Builder
	for _, turn := range turns {
		text.WriteString(strings.ToLower(turn.Response))
		text.WriteByte('\n')
	}
	body := text.String()

	score := 60
	for _, signal := range designSignals {
		if strings.Contains(body, signal) {
			score += 10
		}
	}
	for _, hedge := range hedgeSignals {
		if strings.Contains(body, hedge) {
			score -= 15
		}
	}
	return clampInt(score, 20, 100)
}

// scoreDesignEfficiency prefers 3-8 turns: fewer suggests a shallow pass,
// more suggests churn.
func scoreDesignEfficiency(turnCount int) int {
	switch {
	case turnCount >= 3 && turnCount <= 8:
		return 100
	case turnCount < 3:
		return clampInt(60+20*turnCount, 20, 100)
	default:
		return clampInt(100-10*(turnCount-8), 20, 100)
	}
}

func finalize(status CompletionStatus, completion, quality, efficiency, errorCount int, turns []state.ExecutionTurn, maxTurns int) *Evaluation {
	weighted := weightCompletion*float64(completion) +
		weightQuality*float64(quality) +
		weightEfficiency*float64(efficiency)
	score := clampInt(int(math.Round(weighted)), 10, 100)

	eval := &Evaluation{
		Score:            score,
		HasProgress:      score > 40 && status != StatusFailed,
		CompletionStatus: status,
		TaskCompletion:   completion,
		CodeQuality:      quality,
		Efficiency:       efficiency,
	}

	eval.Reasoning = fmt.Sprintf(
		"%s after %d turns with %d errors: completion %d, quality %d, efficiency %d",
		status, len(turns), errorCount, completion, quality, efficiency)

	if status == StatusFailed {
		eval.Issues = append(eval.Issues, "Execution ended stuck without completing the task")
		eval.Suggestions = append(eval.Suggestions, "Break the task into smaller steps before the next attempt")
	}
	if errorCount > 3 {
		eval.Issues = append(eval.Issues, fmt.Sprintf("High error count: %d errors across %d turns", errorCount, len(turns)))
		eval.Suggestions = append(eval.Suggestions, "Verify assumptions with read-only tools before making changes")
	}
	if maxTurns > 0 && len(turns) >= maxTurns {
		eval.Issues = append(eval.Issues, "Execution consumed the entire turn budget")
		eval.Suggestions = append(eval.Suggestions, "Start with an explicit plan to reduce turn count")
	}
	if emptyOutput(turns) {
		eval.Issues = append(eval.Issues, "Execution produced no output")
		eval.Suggestions = append(eval.Suggestions, "Ensure the task prompt asks for a concrete deliverable")
	}
	if score < 40 {
		eval.Issues = append(eval.Issues, "Overall trajectory score is low")
		eval.Suggestions = append(eval.Suggestions, "Consider starting the next attempt on a stronger model")
	}

	return eval
}

func emptyOutput(turns []state.ExecutionTurn) bool {
	for _, turn := range turns {
		if strings.TrimSpace(turn.Response) != "" || len(turn.ToolCalls) > 0 {
			return false
		}
	}
	return true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
