package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/autodocwriter/autodoc/internal/apperror"
	"github.com/autodocwriter/autodoc/internal/export"
	"github.com/autodocwriter/autodoc/internal/library"
	"github.com/autodocwriter/autodoc/internal/model"
	"github.com/autodocwriter/autodoc/internal/service"
)

// DocumentationHandler serves the documentation viewer and the export page.
type DocumentationHandler struct {
	logger *slog.Logger
}

// NewDocumentationHandler creates a DocumentationHandler.
func NewDocumentationHandler(logger *slog.Logger) *DocumentationHandler {
	return &DocumentationHandler{logger: logger}
}

// Tab is one style of the viewer with the format its download button uses.
type Tab struct {
	Style     model.Style   `json:"style"`
	Available bool          `json:"available"`
	Download  export.Format `json:"download"`
}

// DocumentationPage is the viewer view-model.
type DocumentationPage struct {
	Documentation *model.Documentation `json:"documentation"`
	Tabs          []Tab                `json:"tabs"`
}

var viewerTabs = []model.Style{model.StylePlainText, model.StyleResearch, model.StyleLaTeX}

// HandleDocumentation renders the latest generated document. 404 is the
// empty state that points the user at the commits page.
//
// HTTP: GET /documentation
func (h *DocumentationHandler) HandleDocumentation(w http.ResponseWriter, r *http.Request) {
	p, err := profileOf(r)
	if err != nil {
		writeError(w, err)
		return
	}

	doc, ok, err := library.New(p.KV, h.logger).LatestDocumentation(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeError(w, apperror.NotFound("documentation", "latest"))
		return
	}

	tabs := make([]Tab, 0, len(viewerTabs))
	for _, style := range viewerTabs {
		tabs = append(tabs, Tab{
			Style:     style,
			Available: doc.Text(style) != "",
			Download:  export.ForTab(style),
		})
	}
	writeJSON(w, http.StatusOK, DocumentationPage{Documentation: doc, Tabs: tabs})
}

type regenerateRequest struct {
	Style model.Style `json:"style"`
	Force bool        `json:"force"`
}

// HandleRegenerate generates the stored document's commit again.
//
// HTTP: POST /documentation/regenerate
func (h *DocumentationHandler) HandleRegenerate(w http.ResponseWriter, r *http.Request) {
	p, err := profileOf(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req regenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	svc := service.NewDocsService(p.API, library.New(p.KV, h.logger), h.logger)
	doc, err := svc.Regenerate(r.Context(), req.Style, req.Force)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// ExportPage lists the download formats.
type ExportPage struct {
	Documentation *model.Documentation `json:"documentation"`
	Options       []export.Option      `json:"options"`
}

// HandleExportOptions renders the export page. Without a document every
// option is unavailable.
//
// HTTP: GET /export
func (h *DocumentationHandler) HandleExportOptions(w http.ResponseWriter, r *http.Request) {
	p, err := profileOf(r)
	if err != nil {
		writeError(w, err)
		return
	}

	doc, _, err := library.New(p.KV, h.logger).LatestDocumentation(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ExportPage{Documentation: doc, Options: export.Options(doc)})
}

// HandleExport downloads one format of the latest document.
//
// HTTP: GET /export/{format}
func (h *DocumentationHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	p, err := profileOf(r)
	if err != nil {
		writeError(w, err)
		return
	}

	f, err := export.ParseFormat(chi.URLParam(r, "format"))
	if err != nil {
		writeError(w, err)
		return
	}
	doc, _, err := library.New(p.KV, h.logger).LatestDocumentation(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	file, err := export.Render(doc, f)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("documentation exported",
		slog.String("format", string(f)),
		slog.String("file", file.Name),
	)
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(file.Content))
}
