package model

import (
	"testing"
)

func testLadder() *Ladder {
	return NewLadder(
		[]string{"claude-haiku", "claude-sonnet", "claude-opus"},
		map[string]*EndpointConfig{
			"claude-haiku":  {Provider: "anthropic", Model: "claude-haiku-3-5-20241022"},
			"claude-sonnet": {Provider: "anthropic", Model: "claude-sonnet-4-20250514"},
			"claude-opus":   {Provider: "anthropic", Model: "claude-opus-4-5-20251101"},
		},
	)
}

func TestLadderNext(t *testing.T) {
	l := testLadder()

	tests := []struct {
		current string
		want    string
	}{
		{"claude-haiku", "claude-sonnet"},
		{"claude-sonnet", "claude-opus"},
		{"claude-opus", "claude-opus"}, // top is idempotent
		{"unknown-model", "unknown-model"},
	}
	for _, tt := range tests {
		if got := l.Next(tt.current); got != tt.want {
			t.Errorf("Next(%q) = %q, want %q", tt.current, got, tt.want)
		}
	}
}

func TestLadderClimbsBottomToTop(t *testing.T) {
	l := testLadder()

	current := l.Base()
	steps := 0
	for !l.IsTop(current) {
		current = l.Next(current)
		steps++
		if steps > len(l.Tiers()) {
			t.Fatal("ladder walk did not terminate")
		}
	}

	if want := len(l.Tiers()) - 1; steps != want {
		t.Errorf("climbed in %d steps, want %d", steps, want)
	}
	if current != "claude-opus" {
		t.Errorf("top = %q, want claude-opus", current)
	}
}

func TestLadderIsTop(t *testing.T) {
	l := testLadder()

	if l.IsTop("claude-haiku") {
		t.Error("IsTop(base) = true")
	}
	if !l.IsTop("claude-opus") {
		t.Error("IsTop(top) = false")
	}
	// Off-ladder models have nothing to escalate to.
	if !l.IsTop("gpt-oss") {
		t.Error("IsTop(off-ladder) = false")
	}
}

func TestLadderPosition(t *testing.T) {
	l := testLadder()

	if got := l.Position("claude-sonnet"); got != 1 {
		t.Errorf("Position(claude-sonnet) = %d, want 1", got)
	}
	if got := l.Position("nope"); got != -1 {
		t.Errorf("Position(nope) = %d, want -1", got)
	}
}

func TestLadderEndpoint(t *testing.T) {
	l := testLadder()

	ep := l.Endpoint("claude-sonnet")
	if ep == nil {
		t.Fatal("Endpoint(claude-sonnet) = nil")
	}
	if ep.Provider != "anthropic" {
		t.Errorf("provider = %q", ep.Provider)
	}
	if l.Endpoint("missing") != nil {
		t.Error("Endpoint(missing) != nil")
	}
}

func TestLadderNextAvailableSkipsUnhealthy(t *testing.T) {
	l := testLadder()

	// Trip the circuit for the middle tier.
	for i := 0; i < DefaultHealthConfig().FailureThreshold; i++ {
		l.MarkEndpointFailure("claude-sonnet")
	}

	if got := l.NextAvailable("claude-haiku"); got != "claude-opus" {
		t.Errorf("NextAvailable = %q, want claude-opus", got)
	}

	// Recovery closes the circuit again.
	l.MarkEndpointSuccess("claude-sonnet")
	if got := l.NextAvailable("claude-haiku"); got != "claude-sonnet" {
		t.Errorf("after recovery NextAvailable = %q, want claude-sonnet", got)
	}
}

func TestLadderNextAvailableFallsBackWhenAllUnhealthy(t *testing.T) {
	l := testLadder()

	for _, tier := range []string{"claude-sonnet", "claude-opus"} {
		for i := 0; i < DefaultHealthConfig().FailureThreshold; i++ {
			l.MarkEndpointFailure(tier)
		}
	}

	// Everything above is down; still suggest the plain next tier.
	if got := l.NextAvailable("claude-haiku"); got != "claude-sonnet" {
		t.Errorf("NextAvailable = %q, want claude-sonnet", got)
	}
}
