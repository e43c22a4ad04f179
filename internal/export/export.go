// Package export selects the stored documentation text for each download
// format and names the file.
package export

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/autodocwriter/autodoc/internal/apperror"
	"github.com/autodocwriter/autodoc/internal/model"
)

// Format is a download format.
type Format string

const (
	Markdown Format = "markdown"
	LaTeX    Format = "latex"
	Text     Format = "txt"
)

// Formats lists the formats in display order.
var Formats = []Format{Markdown, LaTeX, Text}

type spec struct {
	label       string
	style       model.Style
	extension   string
	contentType string
}

var specs = map[Format]spec{
	Markdown: {"Markdown", model.StyleResearch, "md", "text/markdown; charset=utf-8"},
	LaTeX:    {"LaTeX", model.StyleLaTeX, "tex", "application/x-tex; charset=utf-8"},
	Text:     {"Plain Text", model.StylePlainText, "txt", "text/plain; charset=utf-8"},
}

// ParseFormat accepts a format name, case-insensitively. "md", "tex" and
// "text" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md":
		return Markdown, nil
	case "latex", "tex":
		return LaTeX, nil
	case "txt", "text", "plaintext":
		return Text, nil
	}
	return "", apperror.ValidationFailed("format", fmt.Sprintf("unsupported export format %q", s))
}

// Style is the documentation slot the format exports.
func (f Format) Style() model.Style { return specs[f].style }

// Extension is the file extension without the dot.
func (f Format) Extension() string { return specs[f].extension }

// ContentType is the MIME type of the download.
func (f Format) ContentType() string { return specs[f].contentType }

// Label is the human-readable name.
func (f Format) Label() string { return specs[f].label }

// Option describes one format for the export page.
type Option struct {
	Format    Format `json:"format"`
	Label     string `json:"label"`
	Extension string `json:"extension"`
	Available bool   `json:"available"`
}

// Options lists every format and whether doc has text for it.
func Options(doc *model.Documentation) []Option {
	opts := make([]Option, 0, len(Formats))
	for _, f := range Formats {
		opts = append(opts, Option{
			Format:    f,
			Label:     f.Label(),
			Extension: f.Extension(),
			Available: doc != nil && doc.Text(f.Style()) != "",
		})
	}
	return opts
}

// File is a rendered download.
type File struct {
	Name        string
	ContentType string
	Content     string
}

// Render returns the download for doc in format f. Returns
// apperror.ErrNotFound when the slot was never generated.
func Render(doc *model.Documentation, f Format) (*File, error) {
	if doc == nil {
		return nil, apperror.NotFound("documentation", "latest")
	}
	content := doc.Text(f.Style())
	if content == "" {
		return nil, apperror.NotFound("documentation", string(f))
	}
	return &File{
		Name:        FileName(doc, f),
		ContentType: f.ContentType(),
		Content:     content,
	}, nil
}

// ForTab maps a documentation viewer tab to its download format.
func ForTab(style model.Style) Format {
	switch style {
	case model.StyleResearch:
		return Markdown
	case model.StyleLaTeX:
		return LaTeX
	default:
		return Text
	}
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName is "<repo>-<sha>.<ext>", or "documentation.<ext>" when the
// document carries neither.
func FileName(doc *model.Documentation, f Format) string {
	parts := make([]string, 0, 2)
	if doc != nil {
		if name := unsafeName.ReplaceAllString(doc.RepoName, "-"); strings.Trim(name, "-") != "" {
			parts = append(parts, strings.Trim(name, "-"))
		}
		if sha := unsafeName.ReplaceAllString(doc.CommitSHA, ""); sha != "" {
			parts = append(parts, sha)
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "documentation")
	}
	return strings.Join(parts, "-") + "." + f.Extension()
}
