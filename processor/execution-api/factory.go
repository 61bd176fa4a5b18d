package executionapi

import (
	"fmt"

	"github.com/c360studio/semstreams/component"
)

// RegistryInterface defines the minimal interface needed for registration.
type RegistryInterface interface {
	RegisterWithConfig(component.RegistrationConfig) error
}

// Register registers the execution-api component with the given registry.
func Register(registry RegistryInterface) error {
	if registry == nil {
		return fmt.Errorf("registry cannot be nil")
	}
	return registry.RegisterWithConfig(component.RegistrationConfig{
		Name:        "execution-api",
		Factory:     NewComponent,
		Schema:      executionAPISchema,
		Type:        "processor",
		Protocol:    "http",
		Domain:      "agentloop",
		Description: "HTTP endpoints for querying execution state, sessions, and call trajectories",
		Version:     "0.1.0",
	})
}
