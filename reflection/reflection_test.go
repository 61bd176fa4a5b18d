package reflection

import (
	"fmt"
	"strings"
	"testing"

	"github.com/c360studio/agentloop/trajectory"
)

func TestAddToHistoryWindow(t *testing.T) {
	var history []Reflection
	for i := 1; i <= 8; i++ {
		history = AddToHistory(history, Reflection{
			Summary: fmt.Sprintf("attempt %d", i),
			Score:   i * 10,
		})
	}

	if len(history) != HistoryLimit {
		t.Fatalf("history length = %d, want %d", len(history), HistoryLimit)
	}
	// Newest first.
	if history[0].Summary != "attempt 8" {
		t.Errorf("newest = %q, want attempt 8", history[0].Summary)
	}
	if history[HistoryLimit-1].Summary != "attempt 4" {
		t.Errorf("oldest retained = %q, want attempt 4", history[HistoryLimit-1].Summary)
	}
}

func TestAddToHistoryAllowsDuplicates(t *testing.T) {
	history := AddToHistory(nil, Reflection{Summary: "same lesson"})
	history = AddToHistory(history, Reflection{Summary: "same lesson"})

	if len(history) != 2 {
		t.Errorf("history length = %d, want 2; repeated lessons are real data", len(history))
	}
}

func TestAddKeyInsightDedup(t *testing.T) {
	insights := AddKeyInsight(nil, "Always run the tests before committing changes")

	// Same 20-char prefix, different tail and case: skipped.
	insights = AddKeyInsight(insights, "ALWAYS RUN THE TESTS twice on CI")
	if len(insights) != 1 {
		t.Fatalf("insights length = %d, want 1 after soft-dup insert", len(insights))
	}

	// Different prefix: inserted, newest first.
	insights = AddKeyInsight(insights, "Prefer small diffs over sweeping rewrites")
	if len(insights) != 2 {
		t.Fatalf("insights length = %d, want 2", len(insights))
	}
	if !strings.HasPrefix(insights[0], "Prefer small diffs") {
		t.Errorf("newest insight = %q", insights[0])
	}
}

func TestAddKeyInsightLimit(t *testing.T) {
	var insights []string
	for i := 0; i < InsightLimit+5; i++ {
		insights = AddKeyInsight(insights, fmt.Sprintf("insight number %02d with unique prefix", i))
	}
	if len(insights) != InsightLimit {
		t.Errorf("insights length = %d, want %d", len(insights), InsightLimit)
	}
}

func TestAddKeyInsightIgnoresEmpty(t *testing.T) {
	insights := AddKeyInsight(nil, "   ")
	if len(insights) != 0 {
		t.Errorf("blank insight was stored: %v", insights)
	}
}

func TestFormatHistoryPlaceholder(t *testing.T) {
	out := FormatHistory(nil)
	if !strings.Contains(out, "first attempt") {
		t.Errorf("empty history must render a placeholder, got %q", out)
	}

	out = FormatHistory([]Reflection{{Summary: "split the work earlier", Score: 55}})
	if !strings.Contains(out, "split the work earlier") || !strings.Contains(out, "score 55") {
		t.Errorf("formatted history = %q", out)
	}
}

func TestFormatHistoryIncludesLessonDetail(t *testing.T) {
	out := FormatHistory([]Reflection{{
		Summary:        "ran out of turns",
		Score:          40,
		WhatFailed:     "Execution consumed the entire turn budget",
		StrategyChange: "Start with an explicit plan",
	}})

	if !strings.Contains(out, "Failed: Execution consumed the entire turn budget") {
		t.Errorf("missing failure line: %q", out)
	}
	if !strings.Contains(out, "Next: Start with an explicit plan") {
		t.Errorf("missing strategy line: %q", out)
	}
}

func TestFormatInsightsPlaceholder(t *testing.T) {
	out := FormatInsights(nil)
	if !strings.Contains(out, "No insights") {
		t.Errorf("empty insights must render a placeholder, got %q", out)
	}

	out = FormatInsights([]string{"check the schema first"})
	if !strings.Contains(out, "- check the schema first") {
		t.Errorf("formatted insights = %q", out)
	}
}

func TestBuild(t *testing.T) {
	eval := &trajectory.Evaluation{
		Score:            35,
		Reasoning:        "failed after 12 turns with 6 errors",
		CompletionStatus: trajectory.StatusFailed,
		Issues:           []string{"High error count"},
		Suggestions:      []string{"Verify assumptions first"},
	}

	r := Build(eval)
	if r.Completed {
		t.Error("Completed = true for a failed evaluation")
	}
	if r.Score != 35 {
		t.Errorf("Score = %d, want 35", r.Score)
	}
	for _, want := range []string{"failed after 12 turns", "High error count", "Verify assumptions first"} {
		if !strings.Contains(r.Summary, want) {
			t.Errorf("Summary missing %q: %q", want, r.Summary)
		}
	}
	if r.WhatFailed != "High error count" {
		t.Errorf("WhatFailed = %q", r.WhatFailed)
	}
	if r.RootCause != "High error count" {
		t.Errorf("RootCause = %q", r.RootCause)
	}
	if r.StrategyChange != "Verify assumptions first" {
		t.Errorf("StrategyChange = %q", r.StrategyChange)
	}
	if r.KeyInsight != "Verify assumptions first" {
		t.Errorf("KeyInsight = %q", r.KeyInsight)
	}
	if r.WhatWorked != "" {
		t.Errorf("WhatWorked = %q for a failed run with no progress", r.WhatWorked)
	}
}

func TestBuildCompleted(t *testing.T) {
	eval := &trajectory.Evaluation{
		Score:            85,
		Reasoning:        "completed after 4 turns with 0 errors",
		CompletionStatus: trajectory.StatusCompleted,
		HasProgress:      true,
		TaskCompletion:   100,
		CodeQuality:      80,
	}

	r := Build(eval)
	if !r.Completed {
		t.Error("Completed = false for a completed evaluation")
	}
	if !strings.Contains(r.WhatWorked, "completed the task") {
		t.Errorf("WhatWorked = %q", r.WhatWorked)
	}
	if r.WhatFailed != "" || r.RootCause != "" {
		t.Errorf("failure fields set on a clean run: %q / %q", r.WhatFailed, r.RootCause)
	}
	if r.KeyInsight != "" {
		t.Errorf("KeyInsight = %q with no suggestions", r.KeyInsight)
	}
}

func TestBuildMultipleIssues(t *testing.T) {
	eval := &trajectory.Evaluation{
		Score:            30,
		Reasoning:        "partial after 10 turns with 5 errors",
		CompletionStatus: trajectory.StatusPartial,
		Issues:           []string{"High error count", "Overall trajectory score is low"},
		Suggestions:      []string{"Verify assumptions first", "Start on a stronger model"},
	}

	r := Build(eval)
	if r.WhatFailed != "High error count; Overall trajectory score is low" {
		t.Errorf("WhatFailed = %q", r.WhatFailed)
	}
	if r.RootCause != "High error count" {
		t.Errorf("RootCause = %q, want the first issue", r.RootCause)
	}
	if r.StrategyChange != "Verify assumptions first; Start on a stronger model" {
		t.Errorf("StrategyChange = %q", r.StrategyChange)
	}
	if r.KeyInsight != "Verify assumptions first" {
		t.Errorf("KeyInsight = %q, want the first suggestion", r.KeyInsight)
	}
}
