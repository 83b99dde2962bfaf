// Package toolcall implements the Tool-Call Dispatcher: it parses one LLM
// structured reply into a typed sequence of tool invocations, validates
// parameters, executes them in order, and aggregates a user-visible chat
// payload (spec.md §4.5). Grounded on the "class with async methods"
// re-architecture note in spec.md §9 and the teacher's
// internal/jobs/runtime/registry.go dispatch-table discipline.
package toolcall

import "context"

// ToolCall is one entry of the LLM's structured reply (spec.md §6).
type ToolCall struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Operation  string                 `json:"operation"`
	Parameters map[string]interface{} `json:"parameters"`
	Priority   *int                   `json:"priority,omitempty"`
}

// structuredReply is the wire envelope the dispatcher parses.
type structuredReply struct {
	ToolCalls []ToolCall `json:"toolCalls"`
}

// ToolResult is one per-call outcome reported back to the caller.
type ToolResult struct {
	ToolID   string                 `json:"toolId"`
	Type     string                 `json:"type"`
	Success  bool                   `json:"success"`
	Result   map[string]interface{} `json:"result,omitempty"`
	Error    string                 `json:"error,omitempty"`
	Duration int64                  `json:"duration"`
}

// DispatchResult aggregates the outcome of one dispatch (spec.md §4.5).
type DispatchResult struct {
	Success        bool         `json:"success"`
	ChatContent    string       `json:"chatContent"`
	ToolResults    []ToolResult `json:"toolResults"`
	FilesCreated   []string     `json:"filesCreated"`
	FilesModified  []string     `json:"filesModified"`
	Errors         []string     `json:"errors"`
	ExecutionTime  int64        `json:"executionTime"`
}

// Context carries everything a Tool.Execute needs beyond its own
// parameters: the job/session identifiers for audit logging and the
// prefix-routed targets (workspace, client router) a handler may reach.
// Mirrors the Ctx/Tx shape of internal/platform/dbctx.Context.
type Context struct {
	Ctx       context.Context
	JobID     string
	AgentID   string
	Workspace interface{}
	Client    interface{}
}
