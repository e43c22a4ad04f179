package api

// DTOs (DATA TRANSFER OBJECTS):
// The backend speaks snake_case JSON with optional fields; the rest of the
// client works on internal/model types with every field filled. The *DTO
// structs below mirror the wire format one to one, and toModel converts:
//
//	backend JSON ──json.Unmarshal──▶ repositoryDTO ──toModel──▶ model.Repository
//
// Pointer fields (*string, *bool, *int) tell "absent or null" apart from
// the zero value. A repository with "is_active": false is not monitored; a
// repository without the field keeps the model default.

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/autodocwriter/autodoc/internal/format"
	"github.com/autodocwriter/autodoc/internal/model"
)

const (
	defaultDescription = "No description provided."
	defaultLanguage    = "Unknown"
	defaultAuthor      = "Unknown"
	shortSHALength     = 7
)

// flexString decodes a JSON string or number. GitHub ids arrive as numbers,
// commit ids as strings.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// repositoryDTO is one entry of GET /api/v1/repos.
type repositoryDTO struct {
	ID          flexString `json:"id"`
	Name        string     `json:"name"`
	FullName    string     `json:"full_name"`
	Description *string    `json:"description"`
	Language    *string    `json:"language"`
	LastUpdated string     `json:"last_updated"`
	IsActive    *bool      `json:"is_active"`
	Stars       *int       `json:"stars"`
	Commits     *int       `json:"commits"`
	URL         string     `json:"url"`
}

type repositoryListDTO struct {
	TotalRepos int             `json:"total_repos"`
	Repos      []repositoryDTO `json:"repos"`
}

type commitFileDTO struct {
	Filename  string `json:"filename"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// commitDTO is one entry of GET /api/v1/commits.
type commitDTO struct {
	ID               flexString      `json:"id"`
	SHA              string          `json:"sha"`
	FullSHA          string          `json:"full_sha"`
	Message          string          `json:"message"`
	Author           string          `json:"author"`
	AuthorAvatar     string          `json:"author_avatar"`
	RepoName         string          `json:"repo_name"`
	RepoFullName     string          `json:"repo_full_name"`
	Timestamp        string          `json:"timestamp"`
	FilesChanged     int             `json:"files_changed"`
	Additions        int             `json:"additions"`
	Deletions        int             `json:"deletions"`
	HasDocumentation bool            `json:"has_documentation"`
	Files            []commitFileDTO `json:"files"`
}

type commitListDTO struct {
	Commits []commitDTO `json:"commits"`
}

// generateRequestDTO is the body of POST /api/v1/docs/generate. omitempty
// drops style and complexity when unset so the backend applies its own
// defaults.
type generateRequestDTO struct {
	RepoFullName string `json:"repo_full_name"`
	CommitSHA    string `json:"commit_sha"`
	Style        string `json:"style,omitempty"`
	Complexity   *int   `json:"complexity,omitempty"`
	Force        bool   `json:"force"`
}

// previewDTO accepts both field names the preview endpoint has used.
type previewDTO struct {
	AIResponse    string `json:"ai_response"`
	Documentation string `json:"documentation"`
}

// toModel fills the display defaults ("No description provided.",
// "Unknown") and formats the update time for display.
func (r repositoryDTO) toModel() model.Repository {
	fullName := firstNonEmpty(r.FullName, r.Name)

	repo := model.Repository{
		ID:          firstNonEmpty(string(r.ID), r.FullName, r.Name),
		Name:        r.Name,
		FullName:    fullName,
		Description: defaultDescription,
		Language:    defaultLanguage,
		LastUpdated: format.RelativeTime(r.LastUpdated),
		Commits:     r.Commits,
		URL:         r.URL,
	}
	// "octo/alpha" → "alpha"
	if repo.Name == "" {
		repo.Name = lastSegment(fullName)
	}
	if r.Description != nil && *r.Description != "" {
		repo.Description = *r.Description
	}
	if r.Language != nil && *r.Language != "" {
		repo.Language = *r.Language
	}
	repo.LanguageColor = format.LanguageColor(repo.Language)
	if r.IsActive != nil {
		repo.IsMonitored = *r.IsActive
	}
	if r.Stars != nil {
		repo.Stars = *r.Stars
	}
	return repo
}

// toModel maps a commit; repoFilter fills repoFullName when the backend
// omits it, which it does for single-repository listings.
func (c commitDTO) toModel(repoFilter string) model.Commit {
	fullSHA := firstNonEmpty(c.FullSHA, string(c.ID))
	sha := c.SHA
	if sha == "" {
		sha = shortSHA(fullSHA)
	}
	repoFullName := firstNonEmpty(c.RepoFullName, repoFilter)

	// never nil, so the JSON view shows [] and not null
	files := make([]model.CommitFile, 0, len(c.Files))
	for _, f := range c.Files {
		files = append(files, model.CommitFile{Filename: f.Filename, Additions: f.Additions, Deletions: f.Deletions})
	}

	return model.Commit{
		ID:               firstNonEmpty(string(c.ID), c.FullSHA),
		SHA:              sha,
		FullSHA:          fullSHA,
		Message:          c.Message,
		Author:           firstNonEmpty(c.Author, defaultAuthor),
		AuthorAvatar:     c.AuthorAvatar,
		RepoName:         firstNonEmpty(c.RepoName, lastSegment(repoFullName)),
		RepoFullName:     repoFullName,
		Timestamp:        format.RelativeTime(c.Timestamp),
		FilesChanged:     c.FilesChanged,
		Additions:        c.Additions,
		Deletions:        c.Deletions,
		HasDocumentation: c.HasDocumentation,
		Files:            files,
	}
}

// firstNonEmpty returns the first value that is not "", or "".
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func lastSegment(fullName string) string {
	if i := strings.LastIndex(fullName, "/"); i >= 0 {
		return fullName[i+1:]
	}
	return fullName
}

func shortSHA(sha string) string {
	if len(sha) > shortSHALength {
		return sha[:shortSHALength]
	}
	return sha
}
