package loop

import (
	"context"
	"encoding/json"

	"github.com/c360studio/semstreams/agentic"

	"github.com/c360studio/agentloop/llm"
)

// ToolExecutor runs tool calls requested by the model. Implementations
// return errors inside the ToolResult; a returned Go error additionally
// marks the call failed but never aborts the turn.
type ToolExecutor interface {
	Execute(ctx context.Context, call agentic.ToolCall) (agentic.ToolResult, error)
	ListTools() []agentic.ToolDefinition
}

// toolCatalog converts the executor's definitions into the model request
// format. A nil executor yields an empty catalog.
func toolCatalog(tools ToolExecutor) []llm.ToolDefinition {
	if tools == nil {
		return nil
	}

	defs := tools.ListTools()
	catalog := make([]llm.ToolDefinition, 0, len(defs))
	for _, def := range defs {
		catalog = append(catalog, llm.ToolDefinition{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  def.Parameters,
		})
	}
	return catalog
}

// decodeArguments parses a tool call's JSON argument string. Malformed
// arguments come back as an empty map; the executor reports the missing
// fields in its result.
func decodeArguments(raw string) map[string]any {
	args := make(map[string]any)
	if raw == "" {
		return args
	}
	_ = json.Unmarshal([]byte(raw), &args)
	return args
}
