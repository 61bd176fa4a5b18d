package executionapi

import (
	"fmt"
	"reflect"

	"github.com/c360studio/semstreams/component"

	"github.com/c360studio/agentloop/session"
	"github.com/c360studio/agentloop/state"
)

// executionAPISchema defines the configuration schema.
var executionAPISchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Config holds configuration for the execution-api component.
type Config struct {
	// StateBucket is the KV bucket name for durable execution state.
	StateBucket string `json:"state_bucket" schema:"type:string,description:KV bucket for durable execution state,category:basic,default:EXECUTION_STATE"`

	// SessionsBucket is the KV bucket name for durable thread sessions.
	SessionsBucket string `json:"sessions_bucket" schema:"type:string,description:KV bucket for durable thread sessions,category:basic,default:EXECUTION_SESSIONS"`

	// Ports contains input/output port definitions.
	Ports *component.PortConfig `json:"ports,omitempty" schema:"type:ports,description:Input/output port definitions,category:basic"`
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		StateBucket:    state.BucketStateDurable,
		SessionsBucket: session.BucketSessionDurable,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.StateBucket == "" {
		return fmt.Errorf("state_bucket is required")
	}
	if c.SessionsBucket == "" {
		return fmt.Errorf("sessions_bucket is required")
	}
	return nil
}
