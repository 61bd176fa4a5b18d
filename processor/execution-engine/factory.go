package executionengine

import (
	"fmt"

	"github.com/c360studio/semstreams/component"
)

// RegistryInterface defines the minimal interface needed for registration.
type RegistryInterface interface {
	RegisterWithConfig(component.RegistrationConfig) error
}

// Register registers the execution engine component with the given registry.
func Register(registry RegistryInterface) error {
	if registry == nil {
		return fmt.Errorf("registry cannot be nil")
	}
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "execution-engine",
		Factory:     NewComponent,
		Schema:      engineSchema,
		Type:        "processor",
		Protocol:    "execution",
		Domain:      "agentloop",
		Description: "Runs lock-guarded multi-turn executions per conversation thread",
		Version:     "0.1.0",
	})
}
