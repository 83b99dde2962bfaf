package tools

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/relaycore/agentcore/internal/retrieval"
	"github.com/relaycore/agentcore/internal/toolcall"
	"github.com/relaycore/agentcore/internal/workspace"
)

// textMimePrefixes identifies file_put payloads worth a best-effort
// retrieval-index ingest (spec.md §4.5).
var textMimePrefixes = []string{"text/", "application/json", "application/xml"}

func isTextMime(mime string) bool {
	if mime == "" {
		return true
	}
	for _, p := range textMimePrefixes {
		if strings.HasPrefix(mime, p) {
			return true
		}
	}
	return false
}

// FileGetTool implements file_get{path, encoding?}: reads from the server
// workspace or delegates client:/editor: targets (spec.md §4.6).
type FileGetTool struct {
	server  workspace.Store
	client  ClientReader
	buffers EditorBuffers
}

// ClientReader is the subset of the Client Router a files tool needs; kept
// narrow so this package doesn't import clientrouter directly.
type ClientReader interface {
	ReadFile(ctx toolcall.Context, agentID, path string) ([]byte, error)
}

func NewFileGetTool(server workspace.Store, client ClientReader, buffers EditorBuffers) *FileGetTool {
	return &FileGetTool{server: server, client: client, buffers: buffers}
}

func (t *FileGetTool) Name() string { return "file_get" }

func (t *FileGetTool) Validate(params map[string]interface{}) error {
	path, ok := params["path"].(string)
	if !ok || path == "" {
		return fmt.Errorf("validation: path is required")
	}
	_, err := toolcall.ParsePrefix(path)
	return err
}

func (t *FileGetTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	rawPath, _ := call.Parameters["path"].(string)
	routed, err := toolcall.ParsePrefix(rawPath)
	if err != nil {
		return nil, err
	}

	var content []byte
	switch routed.Target {
	case toolcall.TargetServer:
		content, err = t.server.Read(ctx.Ctx, toolcall.SanitizeServerPath(routed.Path))
	case toolcall.TargetClient:
		if t.client == nil {
			return nil, fmt.Errorf("execution: no desktop agent connected")
		}
		content, err = t.client.ReadFile(ctx, ctx.AgentID, routed.Path)
	case toolcall.TargetEditor:
		buf, ok := t.buffers.Get(routed.Path)
		if !ok {
			return nil, fmt.Errorf("execution: no editor buffer loaded for %q", routed.Path)
		}
		content = []byte(buf)
	}
	if err != nil {
		return nil, err
	}

	encoding, _ := call.Parameters["encoding"].(string)
	if encoding == "base64" {
		return map[string]interface{}{"path": rawPath, "content": base64.StdEncoding.EncodeToString(content), "encoding": "base64"}, nil
	}
	return map[string]interface{}{"path": rawPath, "content": string(content)}, nil
}

// FilePutTool implements file_put{path, content, mimeType?, permissions?,
// summary?}: writes to the server workspace or delegates client:/editor:
// targets, and best-effort ingests text content into retrieval.
type FilePutTool struct {
	server   workspace.Store
	client   ClientWriter
	ingester retrieval.Ingester
	buffers  EditorBuffers
}

type ClientWriter interface {
	WriteFile(ctx toolcall.Context, agentID, path string, content []byte) error
}

func NewFilePutTool(server workspace.Store, client ClientWriter, ingester retrieval.Ingester, buffers EditorBuffers) *FilePutTool {
	if ingester == nil {
		ingester = retrieval.NoopIngester{}
	}
	return &FilePutTool{server: server, client: client, ingester: ingester, buffers: buffers}
}

func (t *FilePutTool) Name() string { return "file_put" }

func (t *FilePutTool) Validate(params map[string]interface{}) error {
	path, ok := params["path"].(string)
	if !ok || path == "" {
		return fmt.Errorf("validation: path is required")
	}
	if _, ok := params["content"].(string); !ok {
		return fmt.Errorf("validation: content is required")
	}
	_, err := toolcall.ParsePrefix(path)
	return err
}

func (t *FilePutTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	rawPath, _ := call.Parameters["path"].(string)
	content, _ := call.Parameters["content"].(string)
	mimeType, _ := call.Parameters["mimeType"].(string)

	routed, err := toolcall.ParsePrefix(rawPath)
	if err != nil {
		return nil, err
	}

	created := true
	switch routed.Target {
	case toolcall.TargetServer:
		path := toolcall.SanitizeServerPath(routed.Path)
		created, err = t.server.Write(ctx.Ctx, path, []byte(content), mimeType)
		if err == nil && isTextMime(mimeType) {
			if ingestErr := t.ingester.Ingest(ctx.Ctx, path, []byte(content), mimeType); ingestErr != nil {
				// Best-effort: the ingest error is discarded and never fails
				// the tool call itself (spec.md §4.5).
				_ = ingestErr
			}
		}
	case toolcall.TargetClient:
		if t.client == nil {
			return nil, fmt.Errorf("execution: no desktop agent connected")
		}
		err = t.client.WriteFile(ctx, ctx.AgentID, routed.Path, []byte(content))
	case toolcall.TargetEditor:
		t.buffers.Load(routed.Path, content)
		if isTextMime(mimeType) {
			if ingestErr := t.ingester.Ingest(ctx.Ctx, routed.Path, []byte(content), mimeType); ingestErr != nil {
				_ = ingestErr
			}
		}
	}
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"path": rawPath, "created": created}, nil
}

// FileIngestTool implements file_ingest{path}: reads the server workspace
// copy of path and forces a retrieval ingest regardless of MIME type.
type FileIngestTool struct {
	server   workspace.Store
	ingester retrieval.Ingester
}

func NewFileIngestTool(server workspace.Store, ingester retrieval.Ingester) *FileIngestTool {
	if ingester == nil {
		ingester = retrieval.NoopIngester{}
	}
	return &FileIngestTool{server: server, ingester: ingester}
}

func (t *FileIngestTool) Name() string { return "file_ingest" }

func (t *FileIngestTool) Validate(params map[string]interface{}) error {
	path, ok := params["path"].(string)
	if !ok || path == "" {
		return fmt.Errorf("validation: path is required")
	}
	return nil
}

func (t *FileIngestTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	rawPath, _ := call.Parameters["path"].(string)
	routed, err := toolcall.ParsePrefix(rawPath)
	if err != nil {
		return nil, err
	}
	path := toolcall.SanitizeServerPath(routed.Path)
	content, err := t.server.Read(ctx.Ctx, path)
	if err != nil {
		return nil, err
	}
	if err := t.ingester.Ingest(ctx.Ctx, path, content, ""); err != nil {
		return nil, fmt.Errorf("execution: ingest failed: %w", err)
	}
	return map[string]interface{}{"path": rawPath, "ingested": true}, nil
}
