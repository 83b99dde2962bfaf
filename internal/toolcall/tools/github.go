package tools

import (
	"fmt"
	"net/url"

	"github.com/relaycore/agentcore/internal/toolcall"
)

// githubClient thin-wraps the GitHub REST API (no SDK in the corpus for
// this; a generic authenticated JSON client mirrors api_call's shape).
type githubClient struct {
	client *searchClient
	token  string
}

func newGitHubClient(token string, perSecond float64) *githubClient {
	return &githubClient{client: newSearchClient(perSecond), token: token}
}

func (g *githubClient) headers() map[string]string {
	h := map[string]string{"Accept": "application/vnd.github+json"}
	if g.token != "" {
		h["Authorization"] = "Bearer " + g.token
	}
	return h
}

func requireString(params map[string]interface{}, field string) (string, error) {
	v, ok := params[field].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("validation: %s is required", field)
	}
	return v, nil
}

// GitHubRepoTool implements github_repo{owner, repo}.
type GitHubRepoTool struct{ gh *githubClient }

func NewGitHubRepoTool(token string, perSecond float64) *GitHubRepoTool {
	return &GitHubRepoTool{gh: newGitHubClient(token, perSecond)}
}

func (t *GitHubRepoTool) Name() string { return "github_repo" }

func (t *GitHubRepoTool) Validate(params map[string]interface{}) error {
	if _, err := requireString(params, "owner"); err != nil {
		return err
	}
	_, err := requireString(params, "repo")
	return err
}

func (t *GitHubRepoTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	owner, _ := call.Parameters["owner"].(string)
	repo, _ := call.Parameters["repo"].(string)
	url := fmt.Sprintf("https://api.github.com/repos/%s/%s", owner, repo)

	var out map[string]interface{}
	if err := t.gh.client.getJSON(ctx.Ctx, url, t.gh.headers(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GitHubFileReadTool implements github_file_read{owner, repo, path, ref?}.
type GitHubFileReadTool struct{ gh *githubClient }

func NewGitHubFileReadTool(token string, perSecond float64) *GitHubFileReadTool {
	return &GitHubFileReadTool{gh: newGitHubClient(token, perSecond)}
}

func (t *GitHubFileReadTool) Name() string { return "github_file_read" }

func (t *GitHubFileReadTool) Validate(params map[string]interface{}) error {
	for _, f := range []string{"owner", "repo", "path"} {
		if _, err := requireString(params, f); err != nil {
			return err
		}
	}
	return nil
}

func (t *GitHubFileReadTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	owner, _ := call.Parameters["owner"].(string)
	repo, _ := call.Parameters["repo"].(string)
	path, _ := call.Parameters["path"].(string)
	ref, _ := call.Parameters["ref"].(string)

	url := fmt.Sprintf("https://api.github.com/repos/%s/%s/contents/%s", owner, repo, path)
	if ref != "" {
		url += "?ref=" + ref
	}

	var out map[string]interface{}
	if err := t.gh.client.getJSON(ctx.Ctx, url, t.gh.headers(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GitHubCodeSearchTool implements github_code_search{query}.
type GitHubCodeSearchTool struct{ gh *githubClient }

func NewGitHubCodeSearchTool(token string, perSecond float64) *GitHubCodeSearchTool {
	return &GitHubCodeSearchTool{gh: newGitHubClient(token, perSecond)}
}

func (t *GitHubCodeSearchTool) Name() string { return "github_code_search" }

func (t *GitHubCodeSearchTool) Validate(params map[string]interface{}) error {
	_, err := requireQuery(params)
	return err
}

func (t *GitHubCodeSearchTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	query, _ := call.Parameters["query"].(string)
	url := "https://api.github.com/search/code?q=" + url.QueryEscape(query)

	var out map[string]interface{}
	if err := t.gh.client.getJSON(ctx.Ctx, url, t.gh.headers(), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GitHubIssuesTool implements github_issues{owner, repo, state?}.
type GitHubIssuesTool struct{ gh *githubClient }

func NewGitHubIssuesTool(token string, perSecond float64) *GitHubIssuesTool {
	return &GitHubIssuesTool{gh: newGitHubClient(token, perSecond)}
}

func (t *GitHubIssuesTool) Name() string { return "github_issues" }

func (t *GitHubIssuesTool) Validate(params map[string]interface{}) error {
	if _, err := requireString(params, "owner"); err != nil {
		return err
	}
	_, err := requireString(params, "repo")
	return err
}

func (t *GitHubIssuesTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	owner, _ := call.Parameters["owner"].(string)
	repo, _ := call.Parameters["repo"].(string)
	state, _ := call.Parameters["state"].(string)
	if state == "" {
		state = "open"
	}
	url := fmt.Sprintf("https://api.github.com/repos/%s/%s/issues?state=%s", owner, repo, state)

	var out []map[string]interface{}
	if err := t.gh.client.getJSON(ctx.Ctx, url, t.gh.headers(), &out); err != nil {
		return nil, err
	}
	return map[string]interface{}{"issues": out}, nil
}

// GitHubPullsTool implements github_pulls{owner, repo, state?}.
type GitHubPullsTool struct{ gh *githubClient }

func NewGitHubPullsTool(token string, perSecond float64) *GitHubPullsTool {
	return &GitHubPullsTool{gh: newGitHubClient(token, perSecond)}
}

func (t *GitHubPullsTool) Name() string { return "github_pulls" }

func (t *GitHubPullsTool) Validate(params map[string]interface{}) error {
	if _, err := requireString(params, "owner"); err != nil {
		return err
	}
	_, err := requireString(params, "repo")
	return err
}

func (t *GitHubPullsTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	owner, _ := call.Parameters["owner"].(string)
	repo, _ := call.Parameters["repo"].(string)
	state, _ := call.Parameters["state"].(string)
	if state == "" {
		state = "open"
	}
	url := fmt.Sprintf("https://api.github.com/repos/%s/%s/pulls?state=%s", owner, repo, state)

	var out []map[string]interface{}
	if err := t.gh.client.getJSON(ctx.Ctx, url, t.gh.headers(), &out); err != nil {
		return nil, err
	}
	return map[string]interface{}{"pulls": out}, nil
}

// GitHubCommitsTool implements github_commits{owner, repo, sha?}.
type GitHubCommitsTool struct{ gh *githubClient }

func NewGitHubCommitsTool(token string, perSecond float64) *GitHubCommitsTool {
	return &GitHubCommitsTool{gh: newGitHubClient(token, perSecond)}
}

func (t *GitHubCommitsTool) Name() string { return "github_commits" }

func (t *GitHubCommitsTool) Validate(params map[string]interface{}) error {
	if _, err := requireString(params, "owner"); err != nil {
		return err
	}
	_, err := requireString(params, "repo")
	return err
}

func (t *GitHubCommitsTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	owner, _ := call.Parameters["owner"].(string)
	repo, _ := call.Parameters["repo"].(string)
	sha, _ := call.Parameters["sha"].(string)

	url := fmt.Sprintf("https://api.github.com/repos/%s/%s/commits", owner, repo)
	if sha != "" {
		url += "?sha=" + sha
	}

	var out []map[string]interface{}
	if err := t.gh.client.getJSON(ctx.Ctx, url, t.gh.headers(), &out); err != nil {
		return nil, err
	}
	return map[string]interface{}{"commits": out}, nil
}

// GitHubUserTool implements github_user{username}.
type GitHubUserTool struct{ gh *githubClient }

func NewGitHubUserTool(token string, perSecond float64) *GitHubUserTool {
	return &GitHubUserTool{gh: newGitHubClient(token, perSecond)}
}

func (t *GitHubUserTool) Name() string { return "github_user" }

func (t *GitHubUserTool) Validate(params map[string]interface{}) error {
	_, err := requireString(params, "username")
	return err
}

func (t *GitHubUserTool) Execute(ctx toolcall.Context, call toolcall.ToolCall) (map[string]interface{}, error) {
	username, _ := call.Parameters["username"].(string)
	url := "https://api.github.com/users/" + username

	var out map[string]interface{}
	if err := t.gh.client.getJSON(ctx.Ctx, url, t.gh.headers(), &out); err != nil {
		return nil, err
	}
	return out, nil
}
