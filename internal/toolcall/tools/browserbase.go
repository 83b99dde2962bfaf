package tools

import (
	"fmt"

	"github.com/relaycore/agentcore/internal/toolcall"
)

// browserbaseClient thin-wraps the Browserbase session API: create a
// remote browser session, then drive it (spec.md §4.5's leaf-adapter note).
type browserbaseClient struct {
	client    *searchClient
	apiKey    string
	projectID string
}

func newBrowserbaseClient(apiKey, projectID string, perSecond float64) *browserbaseClient {
	return &browserbaseClient{client: newSearchClient(perSecond), apiKey: apiKey, projectID: projectID}
}

func (b *browserbaseClient) headers() map[string]string {
	return map[string]string{"X-BB-API-Key": b.apiKey}
}

func (b *browserbaseClient) ensureConfigured() error {
	if b.apiKey == "" || b.projectID == "" {
		return fmt.Errorf("execution: browserbase not configured (missing API key or project id)")
	}
	return nil
}

// BrowserbaseLoadTool implements browserbase_load{url}: opens url in a
// fresh remote session and returns the session id plus rendered content.
type BrowserbaseLoadTool struct{ bb *browserbaseClient }

func NewBrowserbaseLoadTool(apiKey, projectID string, perSecond float64) *BrowserbaseLoadTool {
	return &BrowserbaseLoadTool{bb: newBrowserbaseClient(apiKey, projectID, perSecond)}
}

func (t *BrowserbaseLoadTool) Name() string { return "browserbase_load" }

func (t *BrowserbaseLoadTool) Validate(params map[string]interface{}) error {
	_, err := requireString(params, "url")
	return err
}

func (t *BrowserbaseLoadTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	if err := t.bb.ensureConfigured(); err != nil {
		return nil, err
	}
	targetURL, _ := call.Parameters["url"].(string)

	var session map[string]interface{}
	body := map[string]interface{}{"projectId": t.bb.projectID}
	if err := t.bb.client.postJSON(ctx.Ctx, "https://api.browserbase.com/v1/sessions", t.bb.headers(), body, &session); err != nil {
		return nil, err
	}
	sessionID, _ := session["id"].(string)

	var nav map[string]interface{}
	navBody := map[string]interface{}{"url": targetURL}
	navURL := fmt.Sprintf("https://api.browserbase.com/v1/sessions/%s/navigate", sessionID)
	if err := t.bb.client.postJSON(ctx.Ctx, navURL, t.bb.headers(), navBody, &nav); err != nil {
		return nil, err
	}
	return map[string]interface{}{"sessionId": sessionID, "url": targetURL, "result": nav}, nil
}

// BrowserbaseScreenshotTool implements browserbase_screenshot{sessionId}.
type BrowserbaseScreenshotTool struct{ bb *browserbaseClient }

func NewBrowserbaseScreenshotTool(apiKey, projectID string, perSecond float64) *BrowserbaseScreenshotTool {
	return &BrowserbaseScreenshotTool{bb: newBrowserbaseClient(apiKey, projectID, perSecond)}
}

func (t *BrowserbaseScreenshotTool) Name() string { return "browserbase_screenshot" }

func (t *BrowserbaseScreenshotTool) Validate(params map[string]interface{}) error {
	_, err := requireString(params, "sessionId")
	return err
}

func (t *BrowserbaseScreenshotTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	if err := t.bb.ensureConfigured(); err != nil {
		return nil, err
	}
	sessionID, _ := call.Parameters["sessionId"].(string)

	var out map[string]interface{}
	url := fmt.Sprintf("https://api.browserbase.com/v1/sessions/%s/screenshot", sessionID)
	if err := t.bb.client.getJSON(ctx.Ctx, url, t.bb.headers(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// BrowserbaseActionTool implements browserbase_action{sessionId, action,
// selector?, value?}: click/type/scroll primitives against a live session.
type BrowserbaseActionTool struct{ bb *browserbaseClient }

func NewBrowserbaseActionTool(apiKey, projectID string, perSecond float64) *BrowserbaseActionTool {
	return &BrowserbaseActionTool{bb: newBrowserbaseClient(apiKey, projectID, perSecond)}
}

func (t *BrowserbaseActionTool) Name() string { return "browserbase_action" }

func (t *BrowserbaseActionTool) Validate(params map[string]interface{}) error {
	if _, err := requireString(params, "sessionId"); err != nil {
		return err
	}
	_, err := requireString(params, "action")
	return err
}

func (t *BrowserbaseActionTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	if err := t.bb.ensureConfigured(); err != nil {
		return nil, err
	}
	sessionID, _ := call.Parameters["sessionId"].(string)
	action, _ := call.Parameters["action"].(string)
	selector, _ := call.Parameters["selector"].(string)
	value, _ := call.Parameters["value"].(string)

	body := map[string]interface{}{"action": action, "selector": selector, "value": value}
	url := fmt.Sprintf("https://api.browserbase.com/v1/sessions/%s/actions", sessionID)

	var out map[string]interface{}
	if err := t.bb.client.postJSON(ctx.Ctx, url, t.bb.headers(), body, &out); err != nil {
		return nil, err
	}
	return out, nil
}
