package tools

import "context"

// ToolExecutor executes tool calls on behalf of an agent dispatcher.
type ToolExecutor interface {
	// CanExecute checks if this executor handles the given tool name.
	CanExecute(toolName string) bool

	// Execute runs the tool and returns the result. The result is total
	// for well-formed calls: execution failures surface in the output
	// text, not as errors.
	Execute(ctx context.Context, call ToolCall) (*ToolResult, error)
}

// ToolCall represents a dispatcher's request to invoke a tool.
type ToolCall struct {
	// ID is the unique call identifier assigned by the dispatcher.
	ID string

	// Name is the tool name.
	Name string

	// Arguments is either a JSON object payload or a raw code string.
	Arguments string
}

// ToolResult represents the output of a tool execution.
type ToolResult struct {
	// CallID matches the originating ToolCall.ID.
	CallID string

	// Output is the textual result.
	Output string

	// IsError indicates that the output is an error message about the
	// call itself (malformed arguments), not about the executed code.
	IsError bool
}
