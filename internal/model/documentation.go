package model

import "time"

// Style names one of the three text slots a generation can fill.
type Style string

const (
	StylePlainText Style = "plainText"
	StyleResearch  Style = "research"
	StyleLaTeX     Style = "latex"
)

// Valid reports whether s is one of the known styles.
func (s Style) Valid() bool {
	switch s {
	case StylePlainText, StyleResearch, StyleLaTeX:
		return true
	}
	return false
}

// Documentation is the result of a generate call. It is persisted verbatim
// under the latest_documentation storage key, so the JSON field names are
// part of the stored format.
type Documentation struct {
	CommitSHA     string `json:"commitSha"`
	CommitFullSHA string `json:"commitFullSha"`
	RepoName      string `json:"repoName"`
	RepoFullName  string `json:"repoFullName"`
	GeneratedAt   string `json:"generatedAt"`
	PlainText     string `json:"plainText,omitempty"`
	ResearchStyle string `json:"researchStyle,omitempty"`
	LaTeX         string `json:"latex,omitempty"`
}

// Text returns the slot for style.
func (d *Documentation) Text(style Style) string {
	switch style {
	case StyleResearch:
		return d.ResearchStyle
	case StyleLaTeX:
		return d.LaTeX
	default:
		return d.PlainText
	}
}

// SameCommit reports whether d and other describe the same commit of the
// same repository.
func (d *Documentation) SameCommit(other *Documentation) bool {
	if d == nil || other == nil {
		return false
	}
	return d.CommitFullSHA == other.CommitFullSHA && d.RepoFullName == other.RepoFullName
}

// SavedDoc is an entry of the saved_docs vault.
type SavedDoc struct {
	ID           string    `json:"id"`
	RepoName     string    `json:"repoName"`
	RepoFullName string    `json:"repoFullName"`
	CommitSHA    string    `json:"commitSha"`
	Style        Style     `json:"style"`
	Content      string    `json:"content"`
	SavedAt      time.Time `json:"savedAt"`
}
