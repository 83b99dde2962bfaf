package tools

import (
	"fmt"
	"time"

	"github.com/relaycore/agentcore/internal/toolcall"
	"github.com/relaycore/agentcore/internal/workspace"
)

// TerminalTool implements terminal_execute{command, cwd?, timeout?},
// prefix-routed between the server sandbox and the desktop agent
// (spec.md §4.5/§4.6).
type TerminalTool struct {
	server *workspace.Terminal
	client ClientTerminal
}

type ClientTerminal interface {
	ExecuteTerminal(ctx toolcall.Context, agentID, command, cwd string, timeout time.Duration) (*workspace.TerminalResult, error)
}

func NewTerminalTool(server *workspace.Terminal, client ClientTerminal) *TerminalTool {
	return &TerminalTool{server: server, client: client}
}

func (t *TerminalTool) Name() string { return "terminal_execute" }

func (t *TerminalTool) Validate(params map[string]interface{}) error {
	cmd, ok := params["command"].(string)
	if !ok || cmd == "" {
		return fmt.Errorf("validation: command is required")
	}
	return nil
}

func (t *TerminalTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	command, _ := call.Parameters["command"].(string)
	cwd, _ := call.Parameters["cwd"].(string)
	var timeout time.Duration
	if v, ok := call.Parameters["timeout"].(float64); ok {
		timeout = time.Duration(v) * time.Millisecond
	}

	routed, err := toolcall.ParsePrefix(firstNonEmpty(cwd, "server:."))
	if err != nil {
		return nil, err
	}

	var result *workspace.TerminalResult
	switch routed.Target {
	case toolcall.TargetClient:
		if t.client == nil {
			return nil, fmt.Errorf("execution: no desktop agent connected")
		}
		result, err = t.client.ExecuteTerminal(ctx, ctx.AgentID, command, routed.Path, timeout)
	default:
		result, err = t.server.Execute(ctx.Ctx, command, routed.Path, timeout)
	}
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"stdout":   result.Stdout,
		"stderr":   result.Stderr,
		"exitCode": result.ExitCode,
		"timedOut": result.TimedOut,
	}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
