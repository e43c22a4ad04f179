package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/autodocwriter/autodoc/internal/model"
)

// DefaultCommitsPerPage matches the backend's own default page size.
const DefaultCommitsPerPage = 20

// RepositoryPage is the answer of FetchRepositories.
type RepositoryPage struct {
	Total        int
	Repositories []model.Repository
}

// GenerateInput selects the commit to document and how.
type GenerateInput struct {
	RepoFullName string
	CommitSHA    string
	Style        model.Style // empty lets the backend pick
	Complexity   *int        // nil lets the backend pick
	Force        bool
}

// GenerateResult is the backend's answer to a generate call. Slots the
// backend did not produce are empty.
type GenerateResult struct {
	CommitSHA      string `json:"commit_sha"`
	CommitShortSHA string `json:"commit_short_sha"`
	RepoName       string `json:"repo_name"`
	RepoFullName   string `json:"repo_full_name"`
	GeneratedAt    string `json:"generated_at"`
	PlainText      string `json:"plain_text"`
	ResearchStyle  string `json:"research_style"`
	LaTeX          string `json:"latex"`
}

// FetchCurrentUser returns the profile of the token's owner.
//
// HTTP: GET /api/v1/auth/me
func (c *Client) FetchCurrentUser(ctx context.Context) (*model.User, error) {
	var u model.User
	if err := c.request(ctx, http.MethodGet, "/api/v1/auth/me", nil, &u); err != nil {
		return nil, fmt.Errorf("api: fetching current user: %w", err)
	}
	return &u, nil
}

// FetchRepositories lists the user's repositories.
//
// HTTP: GET /api/v1/repos[?include_commit_count=true]
func (c *Client) FetchRepositories(ctx context.Context, includeCommitCount bool) (*RepositoryPage, error) {
	path := "/api/v1/repos"
	if includeCommitCount {
		q := url.Values{}
		q.Set("include_commit_count", "true")
		path += "?" + q.Encode()
	}

	var resp repositoryListDTO
	if err := c.request(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("api: fetching repositories: %w", err)
	}

	repos := make([]model.Repository, 0, len(resp.Repos))
	for _, r := range resp.Repos {
		repos = append(repos, r.toModel())
	}
	total := resp.TotalRepos
	if total == 0 {
		total = len(repos)
	}
	return &RepositoryPage{Total: total, Repositories: repos}, nil
}

// ToggleRepoMonitoring switches monitoring of repoName on or off.
//
// HTTP: PATCH /api/v1/repos/{name}/toggle  body {"is_active": bool}
func (c *Client) ToggleRepoMonitoring(ctx context.Context, repoName string, isActive bool) error {
	path := "/api/v1/repos/" + url.PathEscape(repoName) + "/toggle"
	body := map[string]bool{"is_active": isActive}
	if err := c.request(ctx, http.MethodPatch, path, body, nil); err != nil {
		return fmt.Errorf("api: toggling monitoring of %s: %w", repoName, err)
	}
	return nil
}

// FetchCommits lists recent commits, of one repository when repoFullName is
// set, across monitored repositories otherwise.
//
// HTTP: GET /api/v1/commits?repo_full_name=&per_page=&include_stats=
func (c *Client) FetchCommits(ctx context.Context, repoFullName string, perPage int, includeStats bool) ([]model.Commit, error) {
	if perPage <= 0 {
		perPage = DefaultCommitsPerPage
	}

	q := url.Values{}
	if repoFullName != "" {
		q.Set("repo_full_name", repoFullName)
	}
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("include_stats", strconv.FormatBool(includeStats))

	var resp commitListDTO
	if err := c.request(ctx, http.MethodGet, "/api/v1/commits?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("api: fetching commits: %w", err)
	}

	commits := make([]model.Commit, 0, len(resp.Commits))
	for _, cm := range resp.Commits {
		commits = append(commits, cm.toModel(repoFullName))
	}
	return commits, nil
}

// GenerateDocs asks the backend to document one commit.
//
// HTTP: POST /api/v1/docs/generate
func (c *Client) GenerateDocs(ctx context.Context, in GenerateInput) (*GenerateResult, error) {
	body := generateRequestDTO{
		RepoFullName: in.RepoFullName,
		CommitSHA:    in.CommitSHA,
		Style:        string(in.Style),
		Complexity:   in.Complexity,
		Force:        in.Force,
	}

	var res GenerateResult
	if err := c.request(ctx, http.MethodPost, "/api/v1/docs/generate", body, &res); err != nil {
		return nil, fmt.Errorf("api: generating docs for %s@%s: %w", in.RepoFullName, in.CommitSHA, err)
	}
	return &res, nil
}

// FetchActivity returns the user's AI generation history.
//
// HTTP: GET /api/v1/ai/history
func (c *Client) FetchActivity(ctx context.Context) ([]model.Activity, error) {
	var items []model.Activity
	if err := c.request(ctx, http.MethodGet, "/api/v1/ai/history", nil, &items); err != nil {
		return nil, fmt.Errorf("api: fetching activity: %w", err)
	}
	if items == nil {
		items = []model.Activity{}
	}
	return items, nil
}

// GeneratePreview documents a pasted code snippet without touching any
// repository.
//
// HTTP: POST /api/v1/ai/preview  body {"code": ..., "style": ...}
func (c *Client) GeneratePreview(ctx context.Context, code, style string) (string, error) {
	if style == "" {
		style = "standard"
	}
	body := map[string]string{"code": code, "style": style}

	var resp previewDTO
	if err := c.request(ctx, http.MethodPost, "/api/v1/ai/preview", body, &resp); err != nil {
		return "", fmt.Errorf("api: generating preview: %w", err)
	}
	if resp.AIResponse != "" {
		return resp.AIResponse, nil
	}
	return resp.Documentation, nil
}
