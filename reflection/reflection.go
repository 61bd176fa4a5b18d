// Package reflection maintains the memory an execution leaves behind for
// the next one on the same thread: a short window of past reflections and
// a bounded list of key insights, both rendered into prompt-ready text.
package reflection

import (
	"fmt"
	"strings"
	"time"

	"github.com/c360studio/agentloop/trajectory"
)

const (
	// HistoryLimit is the number of reflections kept, newest first.
	HistoryLimit = 5

	// InsightLimit is the number of key insights kept, newest first.
	InsightLimit = 20

	// dedupPrefixLen is how many leading characters decide whether two
	// insights say the same thing.
	dedupPrefixLen = 20
)

// Reflection is one execution's lesson, distilled from its trajectory.
type Reflection struct {
	// Summary is the prose lesson for the next attempt.
	Summary string `json:"summary"`

	// WhatWorked names the part of the approach worth repeating.
	WhatWorked string `json:"what_worked,omitempty"`

	// WhatFailed names what went wrong.
	WhatFailed string `json:"what_failed,omitempty"`

	// RootCause is the primary reason behind WhatFailed.
	RootCause string `json:"root_cause,omitempty"`

	// StrategyChange is what the next attempt should do differently.
	StrategyChange string `json:"strategy_change,omitempty"`

	// KeyInsight is the single takeaway promoted into the thread's
	// insight list.
	KeyInsight string `json:"key_insight,omitempty"`

	// Score is the trajectory score of the execution that produced it.
	Score int `json:"score"`

	// Completed reports whether that execution finished its task.
	Completed bool `json:"completed"`

	// CreatedAt is when the reflection was produced.
	CreatedAt time.Time `json:"created_at"`
}

// AddToHistory prepends a reflection and truncates to the history limit.
// Insertion is unconditional; even a near-duplicate lesson reflects a real
// repeated outcome.
func AddToHistory(existing []Reflection, r Reflection) []Reflection {
	history := append([]Reflection{r}, existing...)
	if len(history) > HistoryLimit {
		history = history[:HistoryLimit]
	}
	return history
}

// AddKeyInsight prepends an insight and truncates to the insight limit.
// The insert is skipped when an existing entry starts with the same
// leading characters, case-insensitively. Soft deduplication: rephrasings
// of the same point tend to share an opening.
func AddKeyInsight(existing []string, insight string) []string {
	insight = strings.TrimSpace(insight)
	if insight == "" {
		return existing
	}

	newPrefix := insightPrefix(insight)
	for _, have := range existing {
		if insightPrefix(have) == newPrefix {
			return existing
		}
	}

	insights := append([]string{insight}, existing...)
	if len(insights) > InsightLimit {
		insights = insights[:InsightLimit]
	}
	return insights
}

func insightPrefix(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	runes := []rune(s)
	if len(runes) > dedupPrefixLen {
		runes = runes[:dedupPrefixLen]
	}
	return string(runes)
}

// FormatHistory renders the reflection window as a prompt section.
// An empty history renders a fixed first-attempt placeholder so the
// section is never silently absent from the prompt.
func FormatHistory(history []Reflection) string {
	var b strings.Builder
	b.WriteString("## Previous attempts\n")

	if len(history) == 0 {
		b.WriteString("This is the first attempt at this task.\n")
		return b.String()
	}

	for i, r := range history {
		outcome := "did not complete"
		if r.Completed {
			outcome = "completed"
		}
		fmt.Fprintf(&b, "%d. (score %d, %s) %s\n", i+1, r.Score, outcome, r.Summary)
		if r.WhatFailed != "" {
			fmt.Fprintf(&b, "   Failed: %s\n", r.WhatFailed)
		}
		if r.StrategyChange != "" {
			fmt.Fprintf(&b, "   Next: %s\n", r.StrategyChange)
		}
	}
	return b.String()
}

// FormatInsights renders the key insights as a prompt section, with a
// fixed placeholder when none have accumulated yet.
func FormatInsights(insights []string) string {
	var b strings.Builder
	b.WriteString("## Key insights\n")

	if len(insights) == 0 {
		b.WriteString("No insights recorded yet.\n")
		return b.String()
	}

	for _, insight := range insights {
		fmt.Fprintf(&b, "- %s\n", insight)
	}
	return b.String()
}

// Build distills a trajectory evaluation into a reflection for the next
// attempt.
func Build(eval *trajectory.Evaluation) Reflection {
	var summary strings.Builder
	summary.WriteString(eval.Reasoning)
	if len(eval.Issues) > 0 {
		summary.WriteString(" Issues: ")
		summary.WriteString(strings.Join(eval.Issues, "; "))
		summary.WriteString(".")
	}
	if len(eval.Suggestions) > 0 {
		summary.WriteString(" Next time: ")
		summary.WriteString(strings.Join(eval.Suggestions, "; "))
		summary.WriteString(".")
	}

	r := Reflection{
		Summary:   summary.String(),
		Score:     eval.Score,
		Completed: eval.CompletionStatus == trajectory.StatusCompleted,
		CreatedAt: time.Now(),
	}

	switch {
	case r.Completed:
		r.WhatWorked = fmt.Sprintf("The approach completed the task (completion %d, quality %d)",
			eval.TaskCompletion, eval.CodeQuality)
	case eval.HasProgress:
		r.WhatWorked = fmt.Sprintf("Made measurable progress without finishing (score %d)", eval.Score)
	}

	if len(eval.Issues) > 0 {
		r.WhatFailed = strings.Join(eval.Issues, "; ")
		r.RootCause = eval.Issues[0]
	} else if !r.Completed {
		r.WhatFailed = "Execution ended without a clear outcome"
	}

	if len(eval.Suggestions) > 0 {
		r.StrategyChange = strings.Join(eval.Suggestions, "; ")
		r.KeyInsight = eval.Suggestions[0]
	}

	return r
}
