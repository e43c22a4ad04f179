// Package handler contains the page handlers of the front server.
//
// Each page is rendered as a JSON view-model. Handlers only glue HTTP to the
// lower layers: they read the browser profile from the request context,
// call the API client, library or services bound to that profile, and write
// the result or the error.
package handler

import (
	"log/slog"
	"net/http"

	"github.com/autodocwriter/autodoc/internal/library"
	"github.com/autodocwriter/autodoc/internal/view"
)

// PageHandler serves the welcome, dashboard and help pages.
type PageHandler struct {
	logger *slog.Logger
}

// NewPageHandler creates a PageHandler.
func NewPageHandler(logger *slog.Logger) *PageHandler {
	return &PageHandler{logger: logger}
}

// Feature is a line of the welcome page.
type Feature struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// WelcomePage is the public landing page.
type WelcomePage struct {
	Title    string    `json:"title"`
	Tagline  string    `json:"tagline"`
	LoginURL string    `json:"loginUrl"`
	Features []Feature `json:"features"`
}

var welcomeFeatures = []Feature{
	{"Connect GitHub", "Sign in with GitHub and pick the repositories to monitor."},
	{"Document commits", "Generate documentation for any commit with one click."},
	{"Three styles", "Plain text, research-style Markdown and LaTeX from the same commit."},
	{"Export", "Download the result as .md, .tex or .txt."},
}

// HandleWelcome renders the public landing page.
//
// HTTP: GET /
func (h *PageHandler) HandleWelcome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, WelcomePage{
		Title:    "AutoDoc Writer",
		Tagline:  "AI documentation for every commit",
		LoginURL: "/auth/login",
		Features: welcomeFeatures,
	})
}

// HandleDashboard renders repository counts, pinned repositories, recent
// commits with their statistics and the latest generated document.
//
// HTTP: GET /dashboard
func (h *PageHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	p, err := profileOf(r)
	if err != nil {
		writeError(w, err)
		return
	}

	lib := library.New(p.KV, h.logger)
	pinned, err := lib.PinnedRepos(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	latest, _, err := lib.LatestDocumentation(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	d, err := view.BuildDashboard(r.Context(), p.API, p.Session.Snapshot().User, pinned, latest)
	if err != nil {
		h.logger.Warn("dashboard failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// FAQ is one help entry.
type FAQ struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

var helpFAQ = []FAQ{
	{
		"How do I start monitoring a repository?",
		"Open Repositories and switch monitoring on. New commits of monitored repositories show up under Commits.",
	},
	{
		"Which documentation styles are there?",
		"Plain text for quick reading, a research-style write-up in Markdown, and LaTeX ready for papers.",
	},
	{
		"Why is my documentation gone?",
		"Only the latest generation is kept. Clearing the cache in Settings removes it; save documents you want to keep to the vault.",
	},
	{
		"What does text complexity change?",
		"It is sent with every generation. Lower values ask for simpler wording, higher values for more technical depth.",
	},
	{
		"How do I sign out?",
		"Use Logout. Your token and cached profile are removed from this browser.",
	},
}

// HandleHelp renders the FAQ. It needs no session.
//
// HTTP: GET /help
func (h *PageHandler) HandleHelp(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"faq": helpFAQ})
}
