package tools

import (
	"context"
	"testing"
	"time"

	"github.com/relaycore/agentcore/internal/toolcall"
	"github.com/relaycore/agentcore/internal/workspace"
)

type fakeClientTerminal struct {
	result *workspace.TerminalResult
	err    error

	gotAgentID string
	gotCommand string
	gotCwd     string
}

func (f *fakeClientTerminal) ExecuteTerminal(ctx toolcall.Context, agentID, command, cwd string, timeout time.Duration) (*workspace.TerminalResult, error) {
	f.gotAgentID, f.gotCommand, f.gotCwd = agentID, command, cwd
	return f.result, f.err
}

func TestTerminalToolValidateRequiresCommand(t *testing.T) {
	tool := NewTerminalTool(nil, nil)
	if err := tool.Validate(map[string]interface{}{"command": "ls"}); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := tool.Validate(map[string]interface{}{}); err == nil {
		t.Fatalf("Validate: expected error for missing command")
	}
}

func TestTerminalToolExecuteDefaultsToServer(t *testing.T) {
	root := t.TempDir()
	server := workspace.NewTerminal(root, time.Second)
	tool := NewTerminalTool(server, nil)

	call := toolcall.ToolCall{Type: "terminal_execute", Parameters: map[string]interface{}{"command": "echo hi"}}
	out, err := tool.Execute(toolcall.Context{Ctx: context.Background()}, call)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out["stdout"] != "hi\n" {
		t.Fatalf("Execute: unexpected stdout %v", out["stdout"])
	}
	if out["exitCode"] != 0 {
		t.Fatalf("Execute: unexpected exitCode %v", out["exitCode"])
	}
}

func TestTerminalToolExecuteRoutesToClient(t *testing.T) {
	client := &fakeClientTerminal{result: &workspace.TerminalResult{Stdout: "from client", ExitCode: 0}}
	tool := NewTerminalTool(nil, client)

	call := toolcall.ToolCall{Type: "terminal_execute", Parameters: map[string]interface{}{
		"command": "ls",
		"cwd":     "client:/home/user",
	}}
	out, err := tool.Execute(toolcall.Context{Ctx: context.Background(), AgentID: "agent-1"}, call)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out["stdout"] != "from client" {
		t.Fatalf("Execute: unexpected stdout %v", out["stdout"])
	}
	if client.gotAgentID != "agent-1" {
		t.Fatalf("Execute: expected agent id forwarded, got %q", client.gotAgentID)
	}
	if client.gotCwd != "/home/user" {
		t.Fatalf("Execute: expected client-stripped cwd, got %q", client.gotCwd)
	}
}

func TestTerminalToolExecuteFailsWithoutConnectedClient(t *testing.T) {
	tool := NewTerminalTool(nil, nil)
	call := toolcall.ToolCall{Type: "terminal_execute", Parameters: map[string]interface{}{
		"command": "ls",
		"cwd":     "client:/tmp",
	}}
	if _, err := tool.Execute(toolcall.Context{Ctx: context.Background()}, call); err == nil {
		t.Fatalf("Execute: expected error when no desktop agent is connected")
	}
}
