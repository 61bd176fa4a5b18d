package llm

// ToolDefinition describes a tool offered to the model in a request.
type ToolDefinition struct {
	// Name is the tool identifier the model uses to call it.
	Name string `json:"name"`

	// Description tells the model what the tool does.
	Description string `json:"description"`

	// Parameters is a JSON Schema object describing the arguments.
	Parameters map[string]any `json:"parameters"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	// ID identifies the call so its result can be correlated.
	ID string `json:"id"`

	// Name is the tool to invoke.
	Name string `json:"name"`

	// Arguments is the raw JSON argument object from the model.
	Arguments string `json:"arguments"`
}

// Tool-choice modes for a request.
const (
	// ToolChoiceAuto lets the model decide whether to call tools.
	ToolChoiceAuto = "auto"

	// ToolChoiceNone forbids tool calls for this request.
	ToolChoiceNone = "none"

	// ToolChoiceRequired forces the model to call at least one tool.
	ToolChoiceRequired = "required"
)
