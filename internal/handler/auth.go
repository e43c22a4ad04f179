package handler

import (
	"log/slog"
	"net/http"

	"github.com/autodocwriter/autodoc/internal/middleware"
	"github.com/autodocwriter/autodoc/internal/storage"
)

// callbackTokenParams are read in order; older backends send the token
// under the later names.
var callbackTokenParams = []string{"token", "access_token", "github_token"}

// AuthHandler runs the browser side of the GitHub OAuth flow. The backend
// owns the exchange; the client only redirects there and receives the token
// on the callback route.
type AuthHandler struct {
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(logger *slog.Logger) *AuthHandler {
	return &AuthHandler{logger: logger}
}

// HandleLogin marks the session as loading and sends the browser to the
// backend's login endpoint.
//
// HTTP: GET /auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	p, err := profileOf(r)
	if err != nil {
		writeError(w, err)
		return
	}
	http.Redirect(w, r, p.Session.Login(), http.StatusTemporaryRedirect)
}

// HandleCallback is the terminal step of the OAuth redirect.
//
// HTTP: GET /auth/callback?token=...&username=...
//
// With a token: the token is stored and resolved, the username cached, and
// the browser sent to the dashboard. The redirect drops the query string so
// the token does not stay in the address bar. Without a token the
// authorization failed or was denied and the browser goes back to "/".
func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	p, err := profileOf(r)
	if err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	var token string
	for _, name := range callbackTokenParams {
		if token = q.Get(name); token != "" {
			break
		}
	}

	if token == "" {
		h.logger.Info("auth callback without token", slog.String("error", q.Get("error")))
		// a fresh mount leaves the login-loading state
		if err := p.Session.Hydrate(r.Context()); err != nil {
			h.logger.Warn("failed to remount session", slog.String("error", err.Error()))
		}
		http.Redirect(w, r, middleware.PublicRoute, http.StatusSeeOther)
		return
	}

	if err := p.Session.SetAuthToken(r.Context(), token); err != nil {
		h.logger.Error("failed to store auth token", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	if username := q.Get("username"); username != "" {
		if err := p.KV.Set(r.Context(), storage.KeyUsername, username); err != nil {
			h.logger.Warn("failed to store username", slog.String("error", err.Error()))
		}
	}

	h.logger.Info("auth callback accepted", slog.String("username", q.Get("username")))
	http.Redirect(w, r, middleware.AuthenticatedRoute, http.StatusSeeOther)
}

// HandleLogout purges the session and returns to "/".
//
// HTTP: POST /auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	p, err := profileOf(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := p.Session.Logout(r.Context()); err != nil {
		h.logger.Error("logout failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	http.Redirect(w, r, middleware.PublicRoute, http.StatusSeeOther)
}

// MeResponse is the session as seen by the browser.
type MeResponse struct {
	Authenticated bool   `json:"authenticated"`
	IsLoading     bool   `json:"isLoading"`
	Status        string `json:"status"`
	Username      string `json:"username,omitempty"`
	Name          string `json:"name,omitempty"`
	Avatar        string `json:"avatar,omitempty"`
	Email         string `json:"email,omitempty"`
}

// HandleMe reports the session state. It never redirects, so the browser can
// poll it while the session resolves.
//
// HTTP: GET /api/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	p, err := profileOf(r)
	if err != nil {
		writeError(w, err)
		return
	}

	snap := p.Session.Snapshot()
	resp := MeResponse{
		Authenticated: snap.IsAuthenticated(),
		IsLoading:     snap.IsLoading,
		Status:        snap.Status.String(),
	}
	if snap.User != nil {
		resp.Username = snap.User.Username
		resp.Name = snap.User.DisplayName()
		resp.Avatar = snap.User.Avatar
		resp.Email = snap.User.Email
	}
	writeJSON(w, http.StatusOK, resp)
}
