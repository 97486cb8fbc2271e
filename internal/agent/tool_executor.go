package agent

import "context"

// ToolExecutor abstracts tool dispatch for the ReAct controller. The real
// implementation (internal/tools) dispatches to the nine fixed tools;
// tests substitute a stub.
type ToolExecutor interface {
	// Execute runs a single tool call and returns its result. Tool-level
	// failures (unknown column, authorization, bad arguments) are reported
	// as a ToolResult with IsError set, never as the returned error — the
	// returned error is reserved for conditions the controller itself must
	// react to (a cancelled context).
	Execute(ctx context.Context, call ToolCall) (*ToolResult, error)

	// ListTools returns the tool definitions available this conversation.
	ListTools(ctx context.Context) ([]ToolDefinition, error)
}

// ToolDefinition describes one tool available to the LLM.
type ToolDefinition struct {
	Name        string
	Description string
	ArgsHelp    string // human-readable positional-argument usage, e.g. "table_id|columns"
}

// ToolCall is the LLM's request to invoke a tool.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // pipe-delimited positional arguments, spec.md §4.4
}

// ToolResult is the output of a tool execution.
type ToolResult struct {
	CallID  string
	Name    string
	Content string
	IsError bool
}
