// Package model provides the model-escalation ladder for agentic executions.
// Instead of hardcoding a single model, the loop starts on the weakest tier
// and the ladder resolves each escalation to the next stronger model, with
// per-endpoint health tracking so unavailable endpoints can be skipped.
package model

import (
	"encoding/json"
	"sync"
)

// EndpointConfig defines an available model endpoint.
type EndpointConfig struct {
	// Provider is the model provider (anthropic, ollama, openai).
	Provider string `json:"provider" yaml:"provider"`

	// URL is the API endpoint URL (for non-Anthropic providers).
	URL string `json:"url,omitempty" yaml:"url,omitempty"`

	// Model is the actual model identifier to send to the provider.
	Model string `json:"model" yaml:"model"`

	// MaxTokens is the context window size.
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// Ladder holds the ordered escalation tiers, weakest first, and the endpoint
// configuration for each tier. It is safe for concurrent use; the config
// watcher may swap tiers while executions read them.
type Ladder struct {
	mu        sync.RWMutex
	tiers     []string
	endpoints map[string]*EndpointConfig
	health    *healthState
}

// NewLadder creates a ladder from ordered tiers and their endpoints.
func NewLadder(tiers []string, endpoints map[string]*EndpointConfig) *Ladder {
	return &Ladder{
		tiers:     append([]string(nil), tiers...),
		endpoints: endpoints,
	}
}

// NewDefaultLadder returns the built-in three-tier ladder.
// Used when no configuration is provided.
func NewDefaultLadder() *Ladder {
	return NewLadder(
		[]string{"claude-haiku", "claude-sonnet", "claude-opus"},
		map[string]*EndpointConfig{
			"claude-haiku": {
				Provider:  "anthropic",
				Model:     "claude-haiku-3-5-20241022",
				MaxTokens: 200000,
			},
			"claude-sonnet": {
				Provider:  "anthropic",
				Model:     "claude-sonnet-4-20250514",
				MaxTokens: 200000,
			},
			"claude-opus": {
				Provider:  "anthropic",
				Model:     "claude-opus-4-5-20251101",
				MaxTokens: 200000,
			},
		},
	)
}

// Base returns the weakest tier, where every execution starts.
func (l *Ladder) Base() string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.tiers) == 0 {
		return ""
	}
	return l.tiers[0]
}

// Next returns the tier above current. At the top of the ladder, or for a
// model not on the ladder, current is returned unchanged.
func (l *Ladder) Next(current string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i, tier := range l.tiers {
		if tier == current && i+1 < len(l.tiers) {
			return l.tiers[i+1]
		}
	}
	return current
}

// IsTop reports whether current is the strongest tier. Models not on the
// ladder count as top; there is nothing to escalate to.
func (l *Ladder) IsTop(current string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i, tier := range l.tiers {
		if tier == current {
			return i == len(l.tiers)-1
		}
	}
	return true
}

// Position returns the zero-based tier index of current, or -1 if the model
// is not on the ladder.
func (l *Ladder) Position(current string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i, tier := range l.tiers {
		if tier == current {
			return i
		}
	}
	return -1
}

// Tiers returns a copy of the ordered tier list.
func (l *Ladder) Tiers() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return append([]string(nil), l.tiers...)
}

// Endpoint returns the endpoint configuration for a tier name.
// Returns nil if the tier is not configured.
func (l *Ladder) Endpoint(name string) *EndpointConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return l.endpoints[name]
}

// SetEndpoint updates or adds an endpoint configuration.
func (l *Ladder) SetEndpoint(name string, cfg *EndpointConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.endpoints == nil {
		l.endpoints = make(map[string]*EndpointConfig)
	}
	l.endpoints[name] = cfg
}

// SetTiers atomically replaces the tier order.
func (l *Ladder) SetTiers(tiers []string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.tiers = append([]string(nil), tiers...)
}

// ListEndpoints returns all configured endpoint names.
func (l *Ladder) ListEndpoints() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.endpoints))
	for name := range l.endpoints {
		names = append(names, name)
	}
	return names
}

// MarshalJSON implements json.Marshaler for the ladder.
func (l *Ladder) MarshalJSON() ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return json.Marshal(struct {
		Tiers     []string                   `json:"tiers"`
		Endpoints map[string]*EndpointConfig `json:"endpoints"`
	}{
		Tiers:     l.tiers,
		Endpoints: l.endpoints,
	})
}

// UnmarshalJSON implements json.Unmarshaler for the ladder.
func (l *Ladder) UnmarshalJSON(data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var tmp struct {
		Tiers     []string                   `json:"tiers"`
		Endpoints map[string]*EndpointConfig `json:"endpoints"`
	}
	if err := json.Unmarshal(data, &tmp); err != nil {
		return err
	}

	l.tiers = tmp.Tiers
	l.endpoints = tmp.Endpoints
	return nil
}
