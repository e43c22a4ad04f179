package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/autodocwriter/autodoc/internal/library"
	"github.com/autodocwriter/autodoc/internal/model"
)

// VaultHandler manages saved documents. The vault keeps copies of single
// styles so they survive the next generation.
type VaultHandler struct {
	logger *slog.Logger
}

// NewVaultHandler creates a VaultHandler.
func NewVaultHandler(logger *slog.Logger) *VaultHandler {
	return &VaultHandler{logger: logger}
}

// HandleList returns the saved documents, newest first.
//
// HTTP: GET /vault
func (h *VaultHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	p, err := profileOf(r)
	if err != nil {
		writeError(w, err)
		return
	}

	docs, err := library.New(p.KV, h.logger).SavedDocs(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

type saveRequest struct {
	Style model.Style `json:"style"`
}

// HandleSave copies one style of the latest document into the vault. The
// style defaults to the user's preferred format. Saving the same text twice
// answers 409.
//
// HTTP: POST /vault  body {"style": "research"}
func (h *VaultHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	p, err := profileOf(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req saveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	lib := library.New(p.KV, h.logger)
	if req.Style == "" {
		prefs, err := lib.Preferences(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		req.Style = prefs.DefaultFormat
	}

	latest, _, err := lib.LatestDocumentation(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	saved, err := lib.SaveDoc(r.Context(), latest, req.Style)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// HandleDelete removes one saved document.
//
// HTTP: DELETE /vault/{id}
func (h *VaultHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	p, err := profileOf(r)
	if err != nil {
		writeError(w, err)
		return
	}

	id := chi.URLParam(r, "id")
	if err := library.New(p.KV, h.logger).DeleteSavedDoc(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	h.logger.Info("saved document deleted", slog.String("id", id))
	w.WriteHeader(http.StatusNoContent)
}
