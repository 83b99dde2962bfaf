// Package tools holds the per-family Tool implementations registered into
// a toolcall.Registry at startup (spec.md §4.5's catalog table).
package tools

import (
	"fmt"

	"github.com/relaycore/agentcore/internal/toolcall"
)

// ChatTool implements send_chat, the only mechanism to surface model text
// to the user (spec.md §4.5).
type ChatTool struct{}

func NewChatTool() *ChatTool { return &ChatTool{} }

func (t *ChatTool) Name() string { return "send_chat" }

func (t *ChatTool) Validate(params map[string]interface{}) error {
	content, ok := params["content"].(string)
	if !ok || content == "" {
		return fmt.Errorf("validation: content is required")
	}
	return nil
}

func (t *ChatTool) Execute(_ toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	content, _ := call.Parameters["content"].(string)
	return map[string]interface{}{"content": content}, nil
}
