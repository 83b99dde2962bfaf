package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/relaycore/agentcore/internal/toolcall"
)

func TestSearchClientGetJSONDecodesSuccessResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Test") != "yes" {
			t.Fatalf("getJSON: expected header to be forwarded")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"answer":"42"}`))
	}))
	defer srv.Close()

	c := newSearchClient(0)
	var out map[string]interface{}
	if err := c.getJSON(context.Background(), srv.URL, map[string]string{"X-Test": "yes"}, &out); err != nil {
		t.Fatalf("getJSON: %v", err)
	}
	if out["answer"] != "42" {
		t.Fatalf("getJSON: unexpected result %v", out)
	}
}

func TestSearchClientGetJSONNonOKStatusFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte("slow down"))
	}))
	defer srv.Close()

	c := newSearchClient(0)
	var out map[string]interface{}
	if err := c.getJSON(context.Background(), srv.URL, nil, &out); err == nil {
		t.Fatalf("getJSON: expected error for a non-2xx response")
	}
}

func TestSearchClientPostJSONSendsBodyAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer xyz" {
			t.Fatalf("postJSON: expected Authorization header forwarded")
		}
		var got map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("postJSON: decode request body: %v", err)
		}
		if got["query"] != "cats" {
			t.Fatalf("postJSON: unexpected request body %v", got)
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := newSearchClient(0)
	var out map[string]interface{}
	err := c.postJSON(context.Background(), srv.URL, map[string]string{"Authorization": "Bearer xyz"}, map[string]interface{}{"query": "cats"}, &out)
	if err != nil {
		t.Fatalf("postJSON: %v", err)
	}
	if out["ok"] != true {
		t.Fatalf("postJSON: unexpected result %v", out)
	}
}

func TestDuckDuckGoSearchToolValidate(t *testing.T) {
	tool := NewDuckDuckGoSearchTool(0)
	if err := tool.Validate(map[string]interface{}{"query": "go routines"}); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := tool.Validate(map[string]interface{}{}); err == nil {
		t.Fatalf("Validate: expected error for missing query")
	}
	if err := tool.Validate(map[string]interface{}{"query": "  "}); err == nil {
		t.Fatalf("Validate: expected error for blank query")
	}
}

func TestWebSearchAndSearchToolDelegateToDuckDuckGo(t *testing.T) {
	for _, tool := range []toolcall.Tool{NewWebSearchTool(0), NewSearchTool(0)} {
		if err := tool.Validate(map[string]interface{}{"query": "x"}); err != nil {
			t.Fatalf("%s Validate: %v", tool.Name(), err)
		}
		if err := tool.Validate(map[string]interface{}{}); err == nil {
			t.Fatalf("%s Validate: expected error for missing query", tool.Name())
		}
	}
	if NewWebSearchTool(0).Name() != "web_search" {
		t.Fatalf("WebSearchTool: unexpected name")
	}
	if NewSearchTool(0).Name() != "search" {
		t.Fatalf("SearchTool: unexpected name")
	}
}

func TestGoogleSearchToolExecuteRequiresConfiguration(t *testing.T) {
	tool := NewGoogleSearchTool("", "", 0)
	if err := tool.Validate(map[string]interface{}{"query": "x"}); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	ctx := toolcall.Context{Ctx: context.Background()}
	call := toolcall.ToolCall{Type: "google_search", Parameters: map[string]interface{}{"query": "x"}}
	if _, err := tool.Execute(ctx, call); err == nil {
		t.Fatalf("Execute: expected error when api key/cx are unset")
	}
}

func TestTavilySearchToolExecuteRequiresAPIKey(t *testing.T) {
	tool := NewTavilySearchTool("", 0)
	ctx := toolcall.Context{Ctx: context.Background()}
	call := toolcall.ToolCall{Type: "tavily_search", Parameters: map[string]interface{}{"query": "x"}}
	if _, err := tool.Execute(ctx, call); err == nil {
		t.Fatalf("Execute: expected error when TAVILY_API_KEY is unset")
	}
}

func TestPerplexitySearchToolExecuteRequiresAPIKey(t *testing.T) {
	tool := NewPerplexitySearchTool("", 0)
	ctx := toolcall.Context{Ctx: context.Background()}
	call := toolcall.ToolCall{Type: "perplexity_search", Parameters: map[string]interface{}{"query": "x"}}
	if _, err := tool.Execute(ctx, call); err == nil {
		t.Fatalf("Execute: expected error when PERPLEXITY_API_KEY is unset")
	}
}

func TestBrowserScrapeToolValidateRequiresURL(t *testing.T) {
	tool := NewBrowserScrapeTool(0)
	if err := tool.Validate(map[string]interface{}{"url": "https://example.com"}); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if err := tool.Validate(map[string]interface{}{}); err == nil {
		t.Fatalf("Validate: expected error for missing url")
	}
}

func TestBrowserScrapeToolExecuteFetchesGivenURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>hello</html>"))
	}))
	defer srv.Close()

	tool := NewBrowserScrapeTool(0)
	ctx := toolcall.Context{Ctx: context.Background()}
	call := toolcall.ToolCall{Type: "browser_scrape", Parameters: map[string]interface{}{"url": srv.URL}}

	out, err := tool.Execute(ctx, call)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out["status"] != http.StatusOK {
		t.Fatalf("Execute: unexpected status %v", out["status"])
	}
	if out["body"] != "<html>hello</html>" {
		t.Fatalf("Execute: unexpected body %v", out["body"])
	}
}
