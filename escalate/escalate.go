// Package escalate decides when an execution should move to a stronger
// model. The decision is a pure function of the execution state and the
// ladder; applying it (switching models, clearing pressure) is the loop
// controller's job.
package escalate

import (
	"fmt"

	"github.com/c360studio/agentloop/model"
	"github.com/c360studio/agentloop/state"
)

// Trigger thresholds, checked in priority order.
const (
	// LowConfidenceStreak is the consecutive-low-confidence turn count
	// that triggers escalation.
	LowConfidenceStreak = 2

	// SameErrorThreshold is the identical-error streak that triggers
	// escalation.
	SameErrorThreshold = 3

	// NoProgressThreshold is the no-progress streak that triggers
	// escalation.
	NoProgressThreshold = 5
)

// Decision is the outcome of a trigger check for one turn.
type Decision struct {
	// Escalate reports whether any trigger fired.
	Escalate bool

	// Reason describes the first trigger that fired.
	Reason string

	// SuggestedModel is the tier to escalate to. Equal to the current
	// model when the ladder is already at the top.
	SuggestedModel string
}

// Check evaluates the escalation triggers for the turn just completed.
// Triggers are checked in priority order and only the first match is
// reported: persistent low confidence, then a repeated identical error,
// then a stalled execution, then a model-reported stuck status.
func Check(s *state.ExecutionState, turn *state.ExecutionTurn, ladder *model.Ladder, lowConfidenceStreak int) Decision {
	reason := ""
	switch {
	case lowConfidenceStreak >= LowConfidenceStreak:
		reason = fmt.Sprintf("Low confidence for %d consecutive turns", lowConfidenceStreak)
	case s.SameErrorCount >= SameErrorThreshold:
		reason = fmt.Sprintf("Same error repeated %d times: %s", s.SameErrorCount, s.LastError)
	case s.NoProgressTurns >= NoProgressThreshold:
		reason = fmt.Sprintf("No progress for %d turns", s.NoProgressTurns)
	case turn.Status == state.StatusStuck:
		reason = "Model reported it is stuck"
	default:
		return Decision{SuggestedModel: s.CurrentModel}
	}

	return Decision{
		Escalate:       true,
		Reason:         reason,
		SuggestedModel: ladder.NextAvailable(s.CurrentModel),
	}
}

// AtTop reports whether the current model has nowhere left to escalate.
// When a trigger fires at the top of the ladder the loop keeps the model
// and asks the human for guidance instead.
func AtTop(ladder *model.Ladder, current string) bool {
	return ladder.IsTop(current)
}
