package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/autodocwriter/autodoc/internal/api"
	"github.com/autodocwriter/autodoc/internal/library"
	"github.com/autodocwriter/autodoc/internal/model"
	"github.com/autodocwriter/autodoc/internal/service"
	"github.com/autodocwriter/autodoc/internal/view"
)

// CommitHandler serves the commits page and the generate action.
type CommitHandler struct {
	logger *slog.Logger
}

// NewCommitHandler creates a CommitHandler.
func NewCommitHandler(logger *slog.Logger) *CommitHandler {
	return &CommitHandler{logger: logger}
}

// CommitsPage is the commits view-model.
type CommitsPage struct {
	Repo         string             `json:"repo,omitempty"`
	Query        string             `json:"query,omitempty"`
	Repositories []model.Repository `json:"repositories"`
	Commits      []model.Commit     `json:"commits"`
	Stats        view.CommitStats   `json:"stats"`
}

// HandleList renders the latest commits, optionally of one repository. The
// repository picker and the commit list load concurrently; change statistics
// are only requested for a single repository.
//
// HTTP: GET /commits?repo=&q=
func (h *CommitHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	p, err := profileOf(r)
	if err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	repo := strings.TrimSpace(q.Get("repo"))
	search := strings.TrimSpace(q.Get("q"))

	var (
		repos   *api.RepositoryPage
		commits []model.Commit
	)
	// Same fan-out as the dashboard (see view.BuildDashboard). ctx is
	// cancelled by the first failure and by the client going away.
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		repos, err = p.API.FetchRepositories(ctx, false)
		return err
	})
	g.Go(func() error {
		var err error
		commits, err = p.API.FetchCommits(ctx, repo, view.CommitsPerPage, repo != "")
		return err
	})
	if err := g.Wait(); err != nil {
		h.logger.Warn("commits failed to load",
			slog.String("repo", repo),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	// The search is local: the backend has no query parameter for it.
	filtered := view.FilterCommits(commits, search)
	writeJSON(w, http.StatusOK, CommitsPage{
		Repo:         repo,
		Query:        search,
		Repositories: repos.Repositories,
		Commits:      filtered,
		Stats:        view.SummarizeCommits(filtered),
	})
}

// HandleGenerate documents one commit and stores it as the latest document.
//
// HTTP: POST /commits/generate
//
//	{"repoFullName": "alice/alpha", "commitSha": "abc1234", "style": "latex", "complexity": 70}
func (h *CommitHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	p, err := profileOf(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req service.GenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	// Services are per request: they bind the profile's API client and
	// storage, and are cheap to build.
	svc := service.NewDocsService(p.API, library.New(p.KV, h.logger), h.logger)
	doc, err := svc.Generate(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
