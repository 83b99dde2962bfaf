package tools

import (
	"testing"

	"github.com/relaycore/agentcore/internal/toolcall"
)

func TestChatToolValidateRequiresContent(t *testing.T) {
	tool := NewChatTool()
	if err := tool.Validate(map[string]interface{}{}); err == nil {
		t.Fatalf("Validate: expected error for missing content")
	}
	if err := tool.Validate(map[string]interface{}{"content": ""}); err == nil {
		t.Fatalf("Validate: expected error for empty content")
	}
	if err := tool.Validate(map[string]interface{}{"content": "hi"}); err != nil {
		t.Fatalf("Validate: unexpected error: %v", err)
	}
}

func TestChatToolExecuteEchoesContent(t *testing.T) {
	tool := NewChatTool()
	call := toolcall.ToolCall{Type: "send_chat", Parameters: map[string]interface{}{"content": "hello"}}

	out, err := tool.Execute(toolcall.Context{}, call)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out["content"] != "hello" {
		t.Fatalf("Execute: expected content %q, got %v", "hello", out["content"])
	}
}

func TestChatToolName(t *testing.T) {
	if got := NewChatTool().Name(); got != "send_chat" {
		t.Fatalf("Name: expected %q, got %q", "send_chat", got)
	}
}
