package main

import (
	"os"
	"testing"

	"github.com/c360studio/semstreams/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDefaultConfig(t *testing.T) {
	cfg, err := buildDefaultConfig("/tmp/repo")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	engine, ok := cfg.Components["execution-engine"]
	require.True(t, ok, "execution-engine component config missing")
	assert.True(t, engine.Enabled)
	assert.Contains(t, string(engine.Config), "/tmp/repo")

	api, ok := cfg.Components["execution-api"]
	require.True(t, ok, "execution-api component config missing")
	assert.True(t, api.Enabled)

	agent, ok := cfg.Streams["AGENT"]
	require.True(t, ok, "AGENT stream config missing")
	assert.Contains(t, agent.Subjects, "agent.task.>")
	assert.Contains(t, agent.Subjects, "user.interrupt.>")
	assert.Contains(t, agent.Subjects, "user.response.>")
}

func TestEnsureServiceManagerConfig(t *testing.T) {
	cfg, err := buildDefaultConfig(".")
	require.NoError(t, err)

	ensureServiceManagerConfig(cfg)

	sm, ok := cfg.Services["service-manager"]
	require.True(t, ok, "service-manager config missing")
	assert.True(t, sm.Enabled)
	assert.Contains(t, string(sm.Config), "8080")
}

// TestExpandEnvWithDefaults verifies that environment variable expansion
// properly handles ${VAR:-default} syntax in config files.
func TestExpandEnvWithDefaults(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		env      map[string]string
		expected string
	}{
		{
			name:     "default used when var unset",
			input:    `${LLM_API_URL:-http://localhost:11434}/v1`,
			env:      map[string]string{},
			expected: `http://localhost:11434/v1`,
		},
		{
			name:     "env value used when set",
			input:    `${LLM_API_URL:-http://localhost:11434}/v1`,
			env:      map[string]string{"LLM_API_URL": "http://prod:8080"},
			expected: `http://prod:8080/v1`,
		},
		{
			name:     "multiple vars with defaults",
			input:    `nats://${NATS_HOST:-localhost}:${NATS_PORT:-4222}`,
			env:      map[string]string{},
			expected: `nats://localhost:4222`,
		},
		{
			name:     "partial env set",
			input:    `nats://${NATS_HOST:-localhost}:${NATS_PORT:-4222}`,
			env:      map[string]string{"NATS_HOST": "nats.prod"},
			expected: `nats://nats.prod:4222`,
		},
		{
			name:     "simple var without default",
			input:    `${SIMPLE_VAR}`,
			env:      map[string]string{"SIMPLE_VAR": "value"},
			expected: `value`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			envVars := []string{"LLM_API_URL", "NATS_HOST", "NATS_PORT", "SIMPLE_VAR"}
			for _, v := range envVars {
				os.Unsetenv(v)
			}

			for k, v := range tt.env {
				require.NoError(t, os.Setenv(k, v))
			}

			result := config.ExpandEnvWithDefaults(tt.input)

			assert.Equal(t, tt.expected, result, "expansion mismatch for input: %s", tt.input)
		})
	}
}
