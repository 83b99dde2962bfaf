package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/relaycore/agentcore/internal/toolcall"
)

// providerLimiter rate-limits outbound calls to one external search/scrape
// provider (spec.md §2's domain stack note: golang.org/x/time/rate here).
type providerLimiter struct {
	limiter *rate.Limiter
}

func newProviderLimiter(perSecond float64) *providerLimiter {
	if perSecond <= 0 {
		perSecond = 5
	}
	return &providerLimiter{limiter: rate.NewLimiter(rate.Limit(perSecond), 1)}
}

func (p *providerLimiter) wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// searchClient is the thin HTTP surface every search/scrape tool shares;
// providers are opaque leaf adapters per spec.md §1 — only their contract
// with the dispatcher is specified, not their internals.
type searchClient struct {
	http    *http.Client
	limiter *providerLimiter
}

func newSearchClient(perSecond float64) *searchClient {
	return &searchClient{
		http:    &http.Client{},
		limiter: newProviderLimiter(perSecond),
	}
}

func (c *searchClient) getJSON(ctx context.Context, url string, headers map[string]string, out interface{}) error {
	if err := c.limiter.wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execution: %w", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("execution: provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func (c *searchClient) postJSON(ctx context.Context, url string, headers map[string]string, body interface{}, out interface{}) error {
	if err := c.limiter.wait(ctx); err != nil {
		return err
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(raw)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execution: %w", err)
	}
	defer resp.Body.Close()
	respRaw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("execution: provider returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respRaw)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(respRaw, out)
}

func requireQuery(params map[string]interface{}) (string, error) {
	q, ok := params["query"].(string)
	if !ok || strings.TrimSpace(q) == "" {
		return "", fmt.Errorf("validation: query is required")
	}
	return q, nil
}

// DuckDuckGoSearchTool implements duckduckgo_search{query}: the one
// search provider that needs no API key (instant-answer API).
type DuckDuckGoSearchTool struct {
	client *searchClient
}

func NewDuckDuckGoSearchTool(perSecond float64) *DuckDuckGoSearchTool {
	return &DuckDuckGoSearchTool{client: newSearchClient(perSecond)}
}

func (t *DuckDuckGoSearchTool) Name() string { return "duckduckgo_search" }

func (t *DuckDuckGoSearchTool) Validate(params map[string]interface{}) error {
	_, err := requireQuery(params)
	return err
}

func (t *DuckDuckGoSearchTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	query, _ := call.Parameters["query"].(string)
	url := "https://api.duckduckgo.com/?format=json&no_html=1&q=" + url.QueryEscape(query)

	var out map[string]interface{}
	if err := t.client.getJSON(ctx.Ctx, url, nil, &out); err != nil {
		return nil, err
	}
	return map[string]interface{}{"query": query, "result": out}, nil
}

// web_search / search alias DuckDuckGo as the default zero-config provider;
// google_search thin-wraps the Programmable Search Engine JSON API when a
// key/cx pair is configured, falling back to the same contract shape.
type WebSearchTool struct {
	delegate *DuckDuckGoSearchTool
}

func NewWebSearchTool(perSecond float64) *WebSearchTool {
	return &WebSearchTool{delegate: NewDuckDuckGoSearchTool(perSecond)}
}

func (t *WebSearchTool) Name() string                                 { return "web_search" }
func (t *WebSearchTool) Validate(params map[string]interface{}) error { return t.delegate.Validate(params) }
func (t *WebSearchTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	return t.delegate.Execute(ctx, call)
}

type SearchTool struct {
	delegate *DuckDuckGoSearchTool
}

func NewSearchTool(perSecond float64) *SearchTool {
	return &SearchTool{delegate: NewDuckDuckGoSearchTool(perSecond)}
}

func (t *SearchTool) Name() string                                 { return "search" }
func (t *SearchTool) Validate(params map[string]interface{}) error { return t.delegate.Validate(params) }
func (t *SearchTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	return t.delegate.Execute(ctx, call)
}

// GoogleSearchTool implements google_search{query} via the Programmable
// Search Engine JSON API.
type GoogleSearchTool struct {
	client *searchClient
	apiKey string
	cx     string
}

func NewGoogleSearchTool(apiKey, cx string, perSecond float64) *GoogleSearchTool {
	return &GoogleSearchTool{client: newSearchClient(perSecond), apiKey: apiKey, cx: cx}
}

func (t *GoogleSearchTool) Name() string { return "google_search" }

func (t *GoogleSearchTool) Validate(params map[string]interface{}) error {
	_, err := requireQuery(params)
	return err
}

func (t *GoogleSearchTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	if t.apiKey == "" || t.cx == "" {
		return nil, fmt.Errorf("execution: google_search not configured (missing API key or search engine id)")
	}
	query, _ := call.Parameters["query"].(string)
	url := fmt.Sprintf("https://www.googleapis.com/customsearch/v1?key=%s&cx=%s&q=%s",
		t.apiKey, t.cx, url.QueryEscape(query))

	var out map[string]interface{}
	if err := t.client.getJSON(ctx.Ctx, url, nil, &out); err != nil {
		return nil, err
	}
	return map[string]interface{}{"query": query, "result": out}, nil
}

// TavilySearchTool implements tavily_search{query}.
type TavilySearchTool struct {
	client *searchClient
	apiKey string
}

func NewTavilySearchTool(apiKey string, perSecond float64) *TavilySearchTool {
	return &TavilySearchTool{client: newSearchClient(perSecond), apiKey: apiKey}
}

func (t *TavilySearchTool) Name() string { return "tavily_search" }

func (t *TavilySearchTool) Validate(params map[string]interface{}) error {
	_, err := requireQuery(params)
	return err
}

func (t *TavilySearchTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	if t.apiKey == "" {
		return nil, fmt.Errorf("execution: tavily_search not configured (missing TAVILY_API_KEY)")
	}
	query, _ := call.Parameters["query"].(string)

	var out map[string]interface{}
	body := map[string]interface{}{"api_key": t.apiKey, "query": query}
	if err := t.client.postJSON(ctx.Ctx, "https://api.tavily.com/search", nil, body, &out); err != nil {
		return nil, err
	}
	return map[string]interface{}{"query": query, "result": out}, nil
}

// PerplexitySearchTool implements perplexity_search{query}: a chat-style
// answer-with-citations completion against Perplexity's API.
type PerplexitySearchTool struct {
	client *searchClient
	apiKey string
}

func NewPerplexitySearchTool(apiKey string, perSecond float64) *PerplexitySearchTool {
	return &PerplexitySearchTool{client: newSearchClient(perSecond), apiKey: apiKey}
}

func (t *PerplexitySearchTool) Name() string { return "perplexity_search" }

func (t *PerplexitySearchTool) Validate(params map[string]interface{}) error {
	_, err := requireQuery(params)
	return err
}

func (t *PerplexitySearchTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	if t.apiKey == "" {
		return nil, fmt.Errorf("execution: perplexity_search not configured (missing PERPLEXITY_API_KEY)")
	}
	query, _ := call.Parameters["query"].(string)

	body := map[string]interface{}{
		"model":    "sonar",
		"messages": []map[string]string{{"role": "user", "content": query}},
	}
	headers := map[string]string{"Authorization": "Bearer " + t.apiKey}

	var out map[string]interface{}
	if err := t.client.postJSON(ctx.Ctx, "https://api.perplexity.ai/chat/completions", headers, body, &out); err != nil {
		return nil, err
	}
	return map[string]interface{}{"query": query, "result": out}, nil
}

// BrowserScrapeTool implements browser_scrape{url}: a plain GET fetch of
// page content, distinct from browserbase_* (which drives a real browser
// session).
type BrowserScrapeTool struct {
	client *searchClient
}

func NewBrowserScrapeTool(perSecond float64) *BrowserScrapeTool {
	return &BrowserScrapeTool{client: newSearchClient(perSecond)}
}

func (t *BrowserScrapeTool) Name() string { return "browser_scrape" }

func (t *BrowserScrapeTool) Validate(params map[string]interface{}) error {
	url, ok := params["url"].(string)
	if !ok || url == "" {
		return fmt.Errorf("validation: url is required")
	}
	return nil
}

func (t *BrowserScrapeTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	rawURL, _ := call.Parameters["url"].(string)
	if err := t.client.limiter.wait(ctx.Ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx.Ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("validation: %w", err)
	}
	resp, err := t.client.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execution: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	return map[string]interface{}{"url": rawURL, "status": resp.StatusCode, "body": string(body)}, nil
}
