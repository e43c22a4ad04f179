package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/autodocwriter/autodoc/internal/library"
	"github.com/autodocwriter/autodoc/internal/model"
	"github.com/autodocwriter/autodoc/internal/view"
)

// RepositoryHandler serves the repositories page and its two actions.
type RepositoryHandler struct {
	logger *slog.Logger
}

// NewRepositoryHandler creates a RepositoryHandler.
func NewRepositoryHandler(logger *slog.Logger) *RepositoryHandler {
	return &RepositoryHandler{logger: logger}
}

// RepositoriesPage is the repositories view-model.
type RepositoriesPage struct {
	Query        view.RepoQuery        `json:"query"`
	Total        int                   `json:"total"`
	Counts       view.RepositoryCounts `json:"counts"`
	Repositories []model.Repository    `json:"repositories"`
}

// HandleList renders the filtered repository list with commit counts.
//
// HTTP: GET /repositories?q=&filter=all|active|inactive&sort=recent|name
func (h *RepositoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	p, err := profileOf(r)
	if err != nil {
		writeError(w, err)
		return
	}

	page, err := p.API.FetchRepositories(r.Context(), true)
	if err != nil {
		h.logger.Warn("repositories failed to load", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	pinned, err := library.New(p.KV, h.logger).PinnedRepos(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	query := view.ParseRepoQuery(q.Get("q"), q.Get("filter"), q.Get("sort"))
	repos := view.ApplyPins(page.Repositories, pinned)

	writeJSON(w, http.StatusOK, RepositoriesPage{
		Query:        query,
		Total:        page.Total,
		Counts:       view.CountRepositories(repos),
		Repositories: view.FilterRepositories(repos, query),
	})
}

// ToggleResponse is the repository after a toggle attempt.
type ToggleResponse struct {
	Repository model.Repository `json:"repository"`
	Error      string           `json:"error,omitempty"`
	Message    string           `json:"message,omitempty"`
}

// HandleToggle switches monitoring of one repository. The flag is flipped
// before the backend answers; on failure it is flipped back and the answer
// is 502 carrying the reverted repository and the backend's message.
//
// HTTP: POST /repositories/{name}/toggle
func (h *RepositoryHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	p, err := profileOf(r)
	if err != nil {
		writeError(w, err)
		return
	}
	name := chi.URLParam(r, "name")

	page, err := p.API.FetchRepositories(r.Context(), false)
	if err != nil {
		writeError(w, err)
		return
	}

	list := view.NewRepoList(page.Repositories)
	repo, err := list.Toggle(r.Context(), p.API, name)
	if err != nil {
		if _, found := list.Find(name); !found {
			writeError(w, err)
			return
		}
		h.logger.Warn("monitoring toggle reverted",
			slog.String("repo", name),
			slog.String("error", err.Error()),
		)
		status, body := errorBody(err)
		writeJSON(w, status, ToggleResponse{Repository: repo, Error: body.Error, Message: body.Message})
		return
	}

	h.logger.Info("monitoring toggled",
		slog.String("repo", repo.FullName),
		slog.Bool("active", repo.IsMonitored),
	)
	writeJSON(w, http.StatusOK, ToggleResponse{Repository: repo})
}

// HandlePin pins or unpins a repository in this browser.
//
// HTTP: POST /repositories/{id}/pin
func (h *RepositoryHandler) HandlePin(w http.ResponseWriter, r *http.Request) {
	p, err := profileOf(r)
	if err != nil {
		writeError(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	pinned, err := library.New(p.KV, h.logger).TogglePin(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "pinned": pinned})
}
