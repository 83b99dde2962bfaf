package tools

import (
	"context"
	"errors"
	"testing"

	"github.com/relaycore/agentcore/internal/retrieval"
	"github.com/relaycore/agentcore/internal/toolcall"
	"github.com/relaycore/agentcore/internal/workspace"
)

type fakeClientReader struct {
	content []byte
	err     error
}

func (f *fakeClientReader) ReadFile(toolcall.Context, string, string) ([]byte, error) {
	return f.content, f.err
}

type fakeClientWriter struct {
	written map[string][]byte
	err     error
}

func (f *fakeClientWriter) WriteFile(_ toolcall.Context, _, path string, content []byte) error {
	if f.err != nil {
		return f.err
	}
	if f.written == nil {
		f.written = map[string][]byte{}
	}
	f.written[path] = content
	return nil
}

type recordingIngester struct {
	paths []string
}

func (r *recordingIngester) Ingest(_ context.Context, path string, _ []byte, _ string) error {
	r.paths = append(r.paths, path)
	return nil
}

func newLocalStore(t *testing.T) workspace.Store {
	t.Helper()
	store, err := workspace.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore: %v", err)
	}
	return store
}

func TestFilePutAndGetRoundTripServerPath(t *testing.T) {
	store := newLocalStore(t)
	put := NewFilePutTool(store, nil, nil, nil)
	get := NewFileGetTool(store, nil, nil)

	putCall := toolcall.ToolCall{Type: "file_put", Parameters: map[string]interface{}{
		"path": "notes/a.txt", "content": "hello world", "mimeType": "text/plain",
	}}
	out, err := put.Execute(toolcall.Context{Ctx: context.Background()}, putCall)
	if err != nil {
		t.Fatalf("FilePutTool.Execute: %v", err)
	}
	if out["created"] != true {
		t.Fatalf("FilePutTool.Execute: expected created=true on first write, got %v", out["created"])
	}

	getCall := toolcall.ToolCall{Type: "file_get", Parameters: map[string]interface{}{"path": "notes/a.txt"}}
	getOut, err := get.Execute(toolcall.Context{Ctx: context.Background()}, getCall)
	if err != nil {
		t.Fatalf("FileGetTool.Execute: %v", err)
	}
	if getOut["content"] != "hello world" {
		t.Fatalf("FileGetTool.Execute: expected %q, got %v", "hello world", getOut["content"])
	}
}

func TestFilePutOverwriteReportsNotCreated(t *testing.T) {
	store := newLocalStore(t)
	put := NewFilePutTool(store, nil, nil, nil)
	ctx := toolcall.Context{Ctx: context.Background()}
	call := toolcall.ToolCall{Type: "file_put", Parameters: map[string]interface{}{"path": "a.txt", "content": "v1"}}

	if _, err := put.Execute(ctx, call); err != nil {
		t.Fatalf("Execute #1: %v", err)
	}
	call.Parameters["content"] = "v2"
	out, err := put.Execute(ctx, call)
	if err != nil {
		t.Fatalf("Execute #2: %v", err)
	}
	if out["created"] != false {
		t.Fatalf("Execute #2: expected created=false on overwrite, got %v", out["created"])
	}
}

func TestFilePutIngestsTextContent(t *testing.T) {
	store := newLocalStore(t)
	ingester := &recordingIngester{}
	put := NewFilePutTool(store, nil, ingester, nil)
	call := toolcall.ToolCall{Type: "file_put", Parameters: map[string]interface{}{
		"path": "notes/a.txt", "content": "hello", "mimeType": "text/plain",
	}}

	if _, err := put.Execute(toolcall.Context{Ctx: context.Background()}, call); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(ingester.paths) != 1 || ingester.paths[0] != "notes/a.txt" {
		t.Fatalf("Execute: expected one ingest of notes/a.txt, got %v", ingester.paths)
	}
}

func TestFileGetValidateRejectsMissingPath(t *testing.T) {
	tool := NewFileGetTool(newLocalStore(t), nil, nil)
	if err := tool.Validate(map[string]interface{}{}); err == nil {
		t.Fatalf("Validate: expected error for missing path")
	}
}

func TestFileGetDelegatesToClientForClientPrefix(t *testing.T) {
	client := &fakeClientReader{content: []byte("from desktop")}
	tool := NewFileGetTool(newLocalStore(t), client, nil)

	out, err := tool.Execute(toolcall.Context{Ctx: context.Background(), AgentID: "agent-1"}, toolcall.ToolCall{
		Parameters: map[string]interface{}{"path": "client:src/app.ts"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out["content"] != "from desktop" {
		t.Fatalf("Execute: expected content from client reader, got %v", out["content"])
	}
}

func TestFileGetClientPrefixWithoutClientFails(t *testing.T) {
	tool := NewFileGetTool(newLocalStore(t), nil, nil)
	_, err := tool.Execute(toolcall.Context{Ctx: context.Background()}, toolcall.ToolCall{
		Parameters: map[string]interface{}{"path": "client:src/app.ts"},
	})
	if err == nil {
		t.Fatalf("Execute: expected error when no desktop agent is connected")
	}
}

func TestFilePutDelegatesToClientWriter(t *testing.T) {
	writer := &fakeClientWriter{}
	tool := NewFilePutTool(newLocalStore(t), writer, nil, nil)

	_, err := tool.Execute(toolcall.Context{Ctx: context.Background(), AgentID: "agent-1"}, toolcall.ToolCall{
		Parameters: map[string]interface{}{"path": "client:src/app.ts", "content": "body"},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if string(writer.written["src/app.ts"]) != "body" {
		t.Fatalf("Execute: expected client writer to receive body, got %v", writer.written)
	}
}

func TestFilePutClientWriterErrorPropagates(t *testing.T) {
	writer := &fakeClientWriter{err: errors.New("disconnected")}
	tool := NewFilePutTool(newLocalStore(t), writer, nil, nil)

	_, err := tool.Execute(toolcall.Context{Ctx: context.Background()}, toolcall.ToolCall{
		Parameters: map[string]interface{}{"path": "client:a.txt", "content": "x"},
	})
	if err == nil {
		t.Fatalf("Execute: expected the client writer's error to propagate")
	}
}

func TestFileIngestToolForcesIngestRegardlessOfMime(t *testing.T) {
	store := newLocalStore(t)
	ctx := toolcall.Context{Ctx: context.Background()}
	if _, err := NewFilePutTool(store, nil, nil, nil).Execute(ctx, toolcall.ToolCall{
		Parameters: map[string]interface{}{"path": "data.bin", "content": "binary-ish", "mimeType": "application/octet-stream"},
	}); err != nil {
		t.Fatalf("seed write: %v", err)
	}

	ingester := &recordingIngester{}
	ingest := NewFileIngestTool(store, ingester)
	out, err := ingest.Execute(ctx, toolcall.ToolCall{Parameters: map[string]interface{}{"path": "data.bin"}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out["ingested"] != true {
		t.Fatalf("Execute: expected ingested=true, got %v", out["ingested"])
	}
	if len(ingester.paths) != 1 || ingester.paths[0] != "data.bin" {
		t.Fatalf("Execute: expected forced ingest of data.bin, got %v", ingester.paths)
	}
}

func TestNoopIngesterIsDefaultWhenNilPassed(t *testing.T) {
	var _ retrieval.Ingester = retrieval.NoopIngester{}
}

func TestFilePutAndGetRoundTripEditorBuffer(t *testing.T) {
	buffers := NewInMemoryEditorBuffers()
	put := NewFilePutTool(nil, nil, nil, buffers)
	get := NewFileGetTool(nil, nil, buffers)
	ctx := toolcall.Context{Ctx: context.Background()}

	if _, err := put.Execute(ctx, toolcall.ToolCall{Parameters: map[string]interface{}{
		"path": "editor:scratch.txt", "content": "buffered",
	}}); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	out, err := get.Execute(ctx, toolcall.ToolCall{Parameters: map[string]interface{}{"path": "editor:scratch.txt"}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out["content"] != "buffered" {
		t.Fatalf("Execute: expected %q, got %v", "buffered", out["content"])
	}
}

func TestFileGetEditorPrefixWithoutBufferFails(t *testing.T) {
	get := NewFileGetTool(nil, nil, NewInMemoryEditorBuffers())
	_, err := get.Execute(toolcall.Context{Ctx: context.Background()}, toolcall.ToolCall{
		Parameters: map[string]interface{}{"path": "editor:missing.txt"},
	})
	if err == nil {
		t.Fatalf("Execute: expected error for unloaded editor buffer")
	}
}
