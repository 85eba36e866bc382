// Package tools exposes code execution as a tool callable by an agent
// dispatcher. It defines the ToolCall/ToolResult contract, a Provider
// that binds tool calls to per-conversation interpreters, and a
// context-scoped collector for side outputs (rendered image references)
// produced during a call.
package tools
