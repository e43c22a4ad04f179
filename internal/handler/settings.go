package handler

import (
	"log/slog"
	"net/http"

	"github.com/autodocwriter/autodoc/internal/library"
	"github.com/autodocwriter/autodoc/internal/model"
)

// SettingsHandler serves the settings page.
type SettingsHandler struct {
	logger *slog.Logger
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{logger: logger}
}

// SettingsPage is the profile card and the editable preferences.
type SettingsPage struct {
	User        *model.User       `json:"user"`
	Preferences model.Preferences `json:"preferences"`
}

// HandleGet renders the settings page.
//
// HTTP: GET /settings
func (h *SettingsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := profileOf(r)
	if err != nil {
		writeError(w, err)
		return
	}

	prefs, err := library.New(p.KV, h.logger).Preferences(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SettingsPage{User: p.Session.Snapshot().User, Preferences: prefs})
}

// HandleUpdate stores the preferences. Fields missing from the body keep
// their current value.
//
// HTTP: PUT /settings
func (h *SettingsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	p, err := profileOf(r)
	if err != nil {
		writeError(w, err)
		return
	}

	lib := library.New(p.KV, h.logger)
	prefs, err := lib.Preferences(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if err := decodeJSON(w, r, &prefs); err != nil {
		writeError(w, err)
		return
	}
	if err := lib.SavePreferences(r.Context(), prefs); err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("preferences saved",
		slog.String("format", string(prefs.DefaultFormat)),
		slog.Int("complexity", prefs.TextComplexity),
	)
	writeJSON(w, http.StatusOK, SettingsPage{User: p.Session.Snapshot().User, Preferences: prefs})
}

// HandleClearCache drops the latest generated document.
//
// HTTP: DELETE /settings/cache
func (h *SettingsHandler) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	p, err := profileOf(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := library.New(p.KV, h.logger).ClearLatestDocumentation(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
