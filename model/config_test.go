package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ladderYAML = `tiers:
  - local-qwen
  - claude-sonnet
  - claude-opus
endpoints:
  local-qwen:
    provider: ollama
    url: http://localhost:11434/v1
    model: qwen2.5-coder:14b
    max_tokens: 128000
  claude-sonnet:
    provider: anthropic
    model: claude-sonnet-4-20250514
  claude-opus:
    provider: anthropic
    model: claude-opus-4-5-20251101
`

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ladder.yaml")
	require.NoError(t, os.WriteFile(path, []byte(ladderYAML), 0o644))

	l, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "local-qwen", l.Base())
	assert.Equal(t, []string{"local-qwen", "claude-sonnet", "claude-opus"}, l.Tiers())

	ep := l.Endpoint("local-qwen")
	require.NotNil(t, ep)
	assert.Equal(t, "ollama", ep.Provider)
	assert.Equal(t, 128000, ep.MaxTokens)
}

func TestLoadFromFileMissing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLadderConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LadderConfig
		wantErr bool
	}{
		{
			name: "valid",
			cfg: LadderConfig{
				Tiers:     []string{"a", "b"},
				Endpoints: map[string]*EndpointConfig{"a": {Model: "a"}, "b": {Model: "b"}},
			},
		},
		{
			name:    "no tiers",
			cfg:     LadderConfig{},
			wantErr: true,
		},
		{
			name: "duplicate tier",
			cfg: LadderConfig{
				Tiers:     []string{"a", "a"},
				Endpoints: map[string]*EndpointConfig{"a": {Model: "a"}},
			},
			wantErr: true,
		},
		{
			name: "tier without endpoint",
			cfg: LadderConfig{
				Tiers:     []string{"a", "b"},
				Endpoints: map[string]*EndpointConfig{"a": {Model: "a"}},
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestApplyConfigRejectsInvalid(t *testing.T) {
	l := testLadder()
	before := l.Tiers()

	err := l.ApplyConfig(&LadderConfig{Tiers: []string{"x"}})
	require.Error(t, err)

	// Previous ladder stays in effect.
	assert.Equal(t, before, l.Tiers())
}

func TestApplyConfigSwapsTiers(t *testing.T) {
	l := testLadder()

	err := l.ApplyConfig(&LadderConfig{
		Tiers: []string{"small", "big"},
		Endpoints: map[string]*EndpointConfig{
			"small": {Provider: "ollama", Model: "llama3.2"},
			"big":   {Provider: "anthropic", Model: "claude-opus-4-5-20251101"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "small", l.Base())
	assert.Equal(t, "big", l.Next("small"))
	assert.True(t, l.IsTop("big"))
}
