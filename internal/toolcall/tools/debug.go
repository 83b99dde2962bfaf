package tools

import (
	"github.com/relaycore/agentcore/internal/generator"
	"github.com/relaycore/agentcore/internal/toolcall"
)

// DebugEchoTool implements debug_echo{}: returns the last system prompt,
// prompt, and completion the Generator saw, for inspecting prompt assembly
// without re-running a job (spec.md §4.5).
type DebugEchoTool struct {
	recorder *generator.Recorder
}

func NewDebugEchoTool(r *generator.Recorder) *DebugEchoTool {
	return &DebugEchoTool{recorder: r}
}

func (t *DebugEchoTool) Name() string                                 { return "debug_echo" }
func (t *DebugEchoTool) Validate(params map[string]interface{}) error { return nil }

func (t *DebugEchoTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	req, resp, ok := t.recorder.Last()
	if !ok {
		return map[string]interface{}{"seen": false}, nil
	}
	return map[string]interface{}{
		"seen":         true,
		"systemPrompt": req.SystemPrompt,
		"prompt":       req.Prompt,
		"completion":   resp.Text,
		"inputTokens":  resp.InputTokens,
		"outputTokens": resp.OutputTokens,
	}, nil
}
