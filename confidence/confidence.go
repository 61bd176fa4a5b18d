// Package confidence scores a single execution turn from its observable
// evidence. Scoring is a pure function of the state and the turn; it has no
// side effects and no dependencies on the loop.
package confidence

import (
	"math"

	"github.com/c360studio/agentloop/state"
)

// Signal weights. The model's self-report gets the largest weight but is the
// least trusted input; the remaining weights favor observable evidence.
const (
	weightSelfReport  = 0.4
	weightToolSuccess = 0.2
	weightErrorStreak = 0.2
	weightTestPass    = 0.1
	weightProgress    = 0.1

	correctionPenaltyStep = 0.15
	correctionPenaltyCap  = 0.3

	defaultTestPassRate = 0.5

	// StuckThreshold is the confidence floor below which a turn counts
	// toward the low-confidence streak.
	StuckThreshold = 30

	// stuckStreak is how many consecutive low-confidence turns mark the
	// execution as stuck.
	stuckStreak = 2

	// progressDecayTurns is the no-progress streak length at which the
	// progress signal bottoms out.
	progressDecayTurns = 5
)

// Score combines the turn's evidence into a 0-100 confidence value.
// Each signal is normalized to [0,1] before weighting; user corrections
// apply a flat penalty after the weighted sum.
func Score(s *state.ExecutionState, turn *state.ExecutionTurn) int {
	selfReport := clamp01(float64(turn.SelfConfidence) / 100)

	sum := weightSelfReport*selfReport +
		weightToolSuccess*toolSuccessRate(turn) +
		weightErrorStreak*(1-errorRepetitionPenalty(s)) +
		weightTestPass*s.TestPassRate(defaultTestPassRate) +
		weightProgress*progressRate(s)

	sum -= math.Min(correctionPenaltyStep*float64(s.UserCorrectionCount), correctionPenaltyCap)

	score := int(math.Round(sum * 100))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// IsStuck reports whether the execution should be treated as stuck: the
// current confidence is below the threshold and the low streak has lasted
// at least two turns.
func IsStuck(confidence, consecutiveLowStreak int) bool {
	return confidence < StuckThreshold && consecutiveLowStreak >= stuckStreak
}

// toolSuccessRate is the fraction of this turn's tool calls that produced
// a result without an error. A turn without tool calls scores 1.0.
func toolSuccessRate(turn *state.ExecutionTurn) float64 {
	if len(turn.ToolResults) == 0 {
		return 1.0
	}
	ok := 0
	for _, r := range turn.ToolResults {
		if r.Error == "" {
			ok++
		}
	}
	return float64(ok) / float64(len(turn.ToolResults))
}

// errorRepetitionPenalty grows with consecutive identical errors relative to
// how far into the execution we are, saturating at 1.
func errorRepetitionPenalty(s *state.ExecutionState) float64 {
	if s.TurnNumber == 0 {
		return 0
	}
	return math.Min(2*float64(s.SameErrorCount)/float64(s.TurnNumber), 1.0)
}

// progressRate decays linearly with the no-progress streak, bottoming out
// after progressDecayTurns turns without forward evidence.
func progressRate(s *state.ExecutionState) float64 {
	if s.NoProgressTurns == 0 {
		return 1.0
	}
	return math.Max(0, 1-float64(s.NoProgressTurns)/progressDecayTurns)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
