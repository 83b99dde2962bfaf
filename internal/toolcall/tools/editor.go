package tools

import (
	"fmt"

	"github.com/relaycore/agentcore/internal/toolcall"
)

// EditorBuffers is the in-browser editor canvas's server-side mirror: a
// minimal keyed store of buffer id -> content, populated by editor_load
// and editor-targeted file_put calls.
type EditorBuffers interface {
	Load(bufferID, content string)
	Get(bufferID string) (string, bool)
}

// EditorLoadTool implements editor_load{path}: loads content into the
// in-browser editor via the editor: target (spec.md §4.5/§4.6).
type EditorLoadTool struct {
	buffers EditorBuffers
	getter  FileGetter
}

// FileGetter is the narrow file_get capability editor_load reuses to
// resolve a nested editor:server:/editor:client: source.
type FileGetter interface {
	Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error)
}

func NewEditorLoadTool(buffers EditorBuffers, getter FileGetter) *EditorLoadTool {
	return &EditorLoadTool{buffers: buffers, getter: getter}
}

func (t *EditorLoadTool) Name() string { return "editor_load" }

func (t *EditorLoadTool) Validate(params map[string]interface{}) error {
	path, ok := params["path"].(string)
	if !ok || path == "" {
		return fmt.Errorf("validation: path is required")
	}
	return nil
}

func (t *EditorLoadTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	rawPath, _ := call.Parameters["path"].(string)
	routed, err := toolcall.ParsePrefix(rawPath)
	if err != nil {
		return nil, err
	}
	if routed.Target != toolcall.TargetEditor {
		return nil, fmt.Errorf("validation: editor_load requires an editor: path")
	}

	var content string
	if routed.EditorSource == toolcall.TargetServer || routed.EditorSource == toolcall.TargetClient {
		sourcePath := string(routed.EditorSource) + ":" + routed.Path
		out, err := t.getter.Execute(ctx, toolcall.ToolCall{
			ID: call.ID, Type: "file_get", Parameters: map[string]interface{}{"path": sourcePath},
		})
		if err != nil {
			return nil, err
		}
		content, _ = out["content"].(string)
	} else if existing, ok := t.buffers.Get(routed.Path); ok {
		content = existing
	}

	t.buffers.Load(routed.Path, content)
	return map[string]interface{}{"bufferId": routed.Path, "content": content}, nil
}
