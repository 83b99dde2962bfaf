package tools

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/relaycore/agentcore/internal/platform/httpx"
	"github.com/relaycore/agentcore/internal/toolcall"
)

var allowedHTTPMethods = map[string]bool{
	http.MethodGet: true, http.MethodPost: true, http.MethodPut: true,
	http.MethodPatch: true, http.MethodDelete: true, http.MethodHead: true,
	http.MethodOptions: true,
}

// APICallTool implements api_call{url, method, headers?, body?}: a generic
// outbound HTTP call, one of the only two code-execution-adjacent tools
// alongside terminal_execute (SPEC_FULL.md §5 Open Question 3).
type APICallTool struct {
	client *http.Client
}

func NewAPICallTool(timeout time.Duration) *APICallTool {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &APICallTool{client: &http.Client{Timeout: timeout}}
}

func (t *APICallTool) Name() string { return "api_call" }

func (t *APICallTool) Validate(params map[string]interface{}) error {
	url, ok := params["url"].(string)
	if !ok || url == "" {
		return fmt.Errorf("validation: url is required")
	}
	method, ok := params["method"].(string)
	if !ok || !allowedHTTPMethods[strings.ToUpper(method)] {
		return fmt.Errorf("validation: method must be one of GET/POST/PUT/PATCH/DELETE/HEAD/OPTIONS")
	}
	return nil
}

func (t *APICallTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	url, _ := call.Parameters["url"].(string)
	method := strings.ToUpper(call.Parameters["method"].(string))

	var bodyReader io.Reader
	if method != http.MethodGet && method != http.MethodHead {
		if body, ok := call.Parameters["body"].(string); ok {
			bodyReader = bytes.NewBufferString(body)
		}
	}

	req, err := http.NewRequestWithContext(ctx.Ctx, method, url, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("validation: %w", err)
	}
	if headers, ok := call.Parameters["headers"].(map[string]interface{}); ok {
		for k, v := range headers {
			if s, ok := v.(string); ok {
				req.Header.Set(k, s)
			}
		}
	}

	var resp *http.Response
	for attempt := 0; attempt < 3; attempt++ {
		resp, err = t.client.Do(req)
		if err == nil && !httpx.IsRetryableHTTPStatus(resp.StatusCode) {
			break
		}
		if err != nil && !httpx.IsRetryableError(err) {
			break
		}
		if resp != nil {
			resp.Body.Close()
		}
		if attempt < 2 {
			time.Sleep(httpx.JitterSleep(time.Duration(attempt+1) * 200 * time.Millisecond))
		}
	}
	if err != nil {
		return nil, fmt.Errorf("execution: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return map[string]interface{}{
		"status": resp.StatusCode,
		"body":   string(respBody),
	}, nil
}
