package tools

import (
	"context"
	"testing"

	"github.com/relaycore/agentcore/internal/toolcall"
)

func TestInMemoryEditorBuffersLoadAndGet(t *testing.T) {
	buffers := NewInMemoryEditorBuffers()
	if _, ok := buffers.Get("scratch.txt"); ok {
		t.Fatalf("Get: expected no buffer before any Load")
	}
	buffers.Load("scratch.txt", "hello")
	content, ok := buffers.Get("scratch.txt")
	if !ok || content != "hello" {
		t.Fatalf("Get: expected %q, got %q (ok=%v)", "hello", content, ok)
	}
}

func TestEditorLoadToolValidateRequiresPath(t *testing.T) {
	tool := NewEditorLoadTool(NewInMemoryEditorBuffers(), NewFileGetTool(nil, nil, NewInMemoryEditorBuffers()))
	if err := tool.Validate(map[string]interface{}{}); err == nil {
		t.Fatalf("Validate: expected error for missing path")
	}
}

func TestEditorLoadToolRejectsNonEditorPath(t *testing.T) {
	tool := NewEditorLoadTool(NewInMemoryEditorBuffers(), NewFileGetTool(nil, nil, NewInMemoryEditorBuffers()))
	_, err := tool.Execute(toolcall.Context{Ctx: context.Background()}, toolcall.ToolCall{
		Parameters: map[string]interface{}{"path": "server:a.txt"},
	})
	if err == nil {
		t.Fatalf("Execute: expected error for a non-editor: path")
	}
}

func TestEditorLoadToolLoadsFromServerSource(t *testing.T) {
	store := newLocalStore(t)
	seedBuffers := NewInMemoryEditorBuffers()
	getter := NewFileGetTool(store, nil, seedBuffers)
	if _, err := NewFilePutTool(store, nil, nil, seedBuffers).Execute(toolcall.Context{Ctx: context.Background()}, toolcall.ToolCall{
		Parameters: map[string]interface{}{"path": "main.go", "content": "package main"},
	}); err != nil {
		t.Fatalf("seed write: %v", err)
	}

	buffers := NewInMemoryEditorBuffers()
	tool := NewEditorLoadTool(buffers, getter)
	out, err := tool.Execute(toolcall.Context{Ctx: context.Background()}, toolcall.ToolCall{
		Parameters: map[string]interface{}{"path": "editor:server:main.go"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out["content"] != "package main" {
		t.Fatalf("Execute: expected loaded content %q, got %v", "package main", out["content"])
	}
	if buffered, ok := buffers.Get("main.go"); !ok || buffered != "package main" {
		t.Fatalf("Execute: expected buffer main.go populated, got %q (ok=%v)", buffered, ok)
	}
}

func TestEditorLoadToolFallsBackToExistingBuffer(t *testing.T) {
	buffers := NewInMemoryEditorBuffers()
	buffers.Load("scratch.txt", "already here")
	tool := NewEditorLoadTool(buffers, NewFileGetTool(nil, nil, NewInMemoryEditorBuffers()))

	out, err := tool.Execute(toolcall.Context{Ctx: context.Background()}, toolcall.ToolCall{
		Parameters: map[string]interface{}{"path": "editor:scratch.txt"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out["content"] != "already here" {
		t.Fatalf("Execute: expected existing buffer content, got %v", out["content"])
	}
}
