package tools

import (
	"context"
	"testing"

	"github.com/relaycore/agentcore/internal/generator"
	"github.com/relaycore/agentcore/internal/toolcall"
)

func TestDebugEchoToolReportsUnseenBeforeAnyGenerate(t *testing.T) {
	recorder := generator.NewRecorder(generator.NewMock("mock"))
	tool := NewDebugEchoTool(recorder)

	out, err := tool.Execute(toolcall.Context{}, toolcall.ToolCall{Type: "debug_echo"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out["seen"] != false {
		t.Fatalf("Execute: expected seen=false before any Generate call, got %v", out["seen"])
	}
}

func TestDebugEchoToolReportsLastRoundTrip(t *testing.T) {
	inner := generator.NewMock("mock").WithFixedResponse("42", 2, 3)
	recorder := generator.NewRecorder(inner)
	if _, err := recorder.Generate(context.Background(), generator.Request{SystemPrompt: "sys", Prompt: "what is the answer"}); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	tool := NewDebugEchoTool(recorder)
	out, err := tool.Execute(toolcall.Context{}, toolcall.ToolCall{Type: "debug_echo"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out["seen"] != true || out["completion"] != "42" || out["systemPrompt"] != "sys" {
		t.Fatalf("Execute: unexpected result %+v", out)
	}
	if out["inputTokens"] != 2 || out["outputTokens"] != 3 {
		t.Fatalf("Execute: expected tokens 2/3, got %v/%v", out["inputTokens"], out["outputTokens"])
	}
}
