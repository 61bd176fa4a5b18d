package executionengine

import (
	"fmt"
	"reflect"

	"github.com/c360studio/semstreams/component"
)

// engineSchema defines the configuration schema.
var engineSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Config holds configuration for the execution engine component.
type Config struct {
	// StreamName is the JetStream stream carrying execution traffic.
	StreamName string `json:"stream_name" schema:"type:string,description:JetStream stream for execution tasks and interrupts,category:basic,default:AGENT"`

	// TaskConsumerName is the durable consumer name for task consumption.
	TaskConsumerName string `json:"task_consumer_name" schema:"type:string,description:Durable consumer name for execution tasks,category:basic,default:execution-engine"`

	// TaskSubject is the subject execution requests arrive on.
	TaskSubject string `json:"task_subject" schema:"type:string,description:Subject for execution task requests,category:basic,default:agent.task.execution"`

	// InterruptConsumerName is the durable consumer name for interrupts.
	InterruptConsumerName string `json:"interrupt_consumer_name" schema:"type:string,description:Durable consumer name for interrupt signals,category:basic,default:execution-engine-interrupts"`

	// InterruptSubject is the subject pattern interrupt signals arrive on.
	InterruptSubject string `json:"interrupt_subject" schema:"type:string,description:Subject pattern for interrupt signals,category:basic,default:user.interrupt.>"`

	// MaxConcurrent caps the number of executions running at once.
	MaxConcurrent int `json:"max_concurrent" schema:"type:int,description:Maximum concurrent executions,category:basic,default:8"`

	// RepoRoot is the working tree tool calls operate on.
	RepoRoot string `json:"repo_root" schema:"type:string,description:Repository root for tool execution,category:basic"`

	// Ports contains input/output port definitions.
	Ports *component.PortConfig `json:"ports,omitempty" schema:"type:ports,description:Input/output port definitions,category:basic"`
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		StreamName:            "AGENT",
		TaskConsumerName:      "execution-engine",
		TaskSubject:           "agent.task.execution",
		InterruptConsumerName: "execution-engine-interrupts",
		InterruptSubject:      "user.interrupt.>",
		MaxConcurrent:         8,
		Ports: &component.PortConfig{
			Inputs: []component.PortDefinition{
				{
					Name:        "execution-tasks",
					Type:        "jetstream",
					Subject:     "agent.task.execution",
					StreamName:  "AGENT",
					Description: "Receive execution task requests",
					Required:    true,
				},
				{
					Name:        "interrupt-signals",
					Type:        "jetstream",
					Subject:     "user.interrupt.>",
					StreamName:  "AGENT",
					Description: "Receive human interrupt signals",
					Required:    false,
				},
			},
			Outputs: []component.PortDefinition{
				{
					Name:        "execution-events",
					Type:        "nats",
					Subject:     "execution.event.>",
					Description: "Publish execution progress events",
					Required:    false,
				},
				{
					Name:        "user-responses",
					Type:        "nats",
					Subject:     "user.response.>",
					Description: "Publish user-facing notices",
					Required:    false,
				},
			},
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.StreamName == "" {
		return fmt.Errorf("stream_name is required")
	}
	if c.TaskConsumerName == "" {
		return fmt.Errorf("task_consumer_name is required")
	}
	if c.TaskSubject == "" {
		return fmt.Errorf("task_subject is required")
	}
	if c.InterruptConsumerName == "" {
		return fmt.Errorf("interrupt_consumer_name is required")
	}
	if c.InterruptSubject == "" {
		return fmt.Errorf("interrupt_subject is required")
	}
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("max_concurrent must be positive")
	}
	return nil
}
