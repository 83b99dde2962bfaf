package clientrouter

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/relaycore/agentcore/internal/toolcall"
	"github.com/relaycore/agentcore/internal/workspace"
)

// Convenience wrappers (spec.md §4.7): thin typed shells over SendCommand.
// These also satisfy the narrow ClientReader/ClientWriter/ClientTerminal
// interfaces the toolcall/tools handlers depend on, so a *Router can be
// wired directly into NewFileGetTool/NewFilePutTool/NewTerminalTool.

func (r *Router) ReadFile(ctx toolcall.Context, agentID, path string) ([]byte, error) {
	result, err := r.SendCommand(ctx.Ctx, "readFile", map[string]interface{}{"path": path}, agentID)
	if err != nil {
		return nil, err
	}
	content, _ := result["content"].(string)
	if encoded, _ := result["encoding"].(string); encoded == "base64" {
		return base64.StdEncoding.DecodeString(content)
	}
	return []byte(content), nil
}

func (r *Router) WriteFile(ctx toolcall.Context, agentID, path string, content []byte) error {
	_, err := r.SendCommand(ctx.Ctx, "writeFile", map[string]interface{}{
		"path":    path,
		"content": string(content),
	}, agentID)
	return err
}

func (r *Router) ListFiles(ctx toolcall.Context, agentID, path string) ([]string, error) {
	result, err := r.SendCommand(ctx.Ctx, "listFiles", map[string]interface{}{"path": path}, agentID)
	if err != nil {
		return nil, err
	}
	raw, _ := result["files"].([]interface{})
	files := make([]string, 0, len(raw))
	for _, f := range raw {
		if s, ok := f.(string); ok {
			files = append(files, s)
		}
	}
	return files, nil
}

func (r *Router) ExecuteTerminal(ctx toolcall.Context, agentID, command, cwd string, timeout time.Duration) (*workspace.TerminalResult, error) {
	payload := map[string]interface{}{"command": command, "cwd": cwd}
	if timeout > 0 {
		payload["timeoutMs"] = timeout.Milliseconds()
	}
	result, err := r.SendCommand(ctx.Ctx, "executeTerminal", payload, agentID)
	if err != nil {
		return nil, err
	}
	out := &workspace.TerminalResult{}
	out.Stdout, _ = result["stdout"].(string)
	out.Stderr, _ = result["stderr"].(string)
	if code, ok := result["exitCode"].(float64); ok {
		out.ExitCode = int(code)
	}
	out.TimedOut, _ = result["timedOut"].(bool)
	return out, nil
}

func (r *Router) OpenInEditor(ctx toolcall.Context, agentID, path string) error {
	_, err := r.SendCommand(ctx.Ctx, "openInEditor", map[string]interface{}{"path": path}, agentID)
	return err
}

// Screenshot returns PNG bytes captured on the agent's desktop.
func (r *Router) Screenshot(ctx toolcall.Context, agentID string) ([]byte, error) {
	result, err := r.SendCommand(ctx.Ctx, "screenshot", map[string]interface{}{}, agentID)
	if err != nil {
		return nil, err
	}
	encoded, ok := result["image"].(string)
	if !ok {
		return nil, fmt.Errorf("clientrouter: screenshot response missing image")
	}
	return base64.StdEncoding.DecodeString(encoded)
}
