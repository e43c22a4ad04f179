package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/autodocwriter/autodoc/internal/apperror"
)

// maxPreviewCode bounds pasted code in characters.
const maxPreviewCode = 100_000

// PlaygroundHandler documents pasted code without a repository.
type PlaygroundHandler struct {
	logger *slog.Logger
}

// NewPlaygroundHandler creates a PlaygroundHandler.
func NewPlaygroundHandler(logger *slog.Logger) *PlaygroundHandler {
	return &PlaygroundHandler{logger: logger}
}

// PreviewRequest is the body of a preview call.
type PreviewRequest struct {
	Code  string `json:"code"`
	Style string `json:"style,omitempty"`
}

// PreviewResponse carries the generated text.
type PreviewResponse struct {
	Style         string `json:"style"`
	Documentation string `json:"documentation"`
}

// HandlePreview sends the code to the backend's preview endpoint.
//
// HTTP: POST /playground/preview
//
//	{"code": "def add(a, b): return a + b", "style": "concise"}
func (h *PlaygroundHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	p, err := profileOf(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req PreviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid preview request body", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		writeError(w, apperror.ValidationFailed("code", "code cannot be empty"))
		return
	}
	if utf8.RuneCountInString(req.Code) > maxPreviewCode {
		writeError(w, apperror.ValidationFailed("code",
			fmt.Sprintf("code must be at most %d characters", maxPreviewCode)))
		return
	}
	if req.Style == "" {
		req.Style = "standard"
	}

	h.logger.Info("generating preview",
		slog.String("style", req.Style),
		slog.Int("chars", len(req.Code)),
	)
	text, err := p.API.GeneratePreview(r.Context(), req.Code, req.Style)
	if err != nil {
		h.logger.Error("preview failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PreviewResponse{Style: req.Style, Documentation: text})
}
