// Package service holds the client workflows that span several components.
//
// DocsService is the generation workflow:
//
//	validate → preferences → backend generate → merge with stored doc → persist
//
// It takes its collaborators as interfaces so the handlers, the CLI and the
// tests can each pass what they have.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/autodocwriter/autodoc/internal/api"
	"github.com/autodocwriter/autodoc/internal/apperror"
	"github.com/autodocwriter/autodoc/internal/model"
)

// Generator is the backend call. *api.Client satisfies it.
type Generator interface {
	GenerateDocs(ctx context.Context, in api.GenerateInput) (*api.GenerateResult, error)
}

// DocStore is where the generated document lives. *library.Library
// satisfies it.
type DocStore interface {
	LatestDocumentation(ctx context.Context) (*model.Documentation, bool, error)
	SaveLatestDocumentation(ctx context.Context, doc *model.Documentation) error
	Preferences(ctx context.Context) (model.Preferences, error)
}

// GenerateRequest selects a commit and how to document it. Zero values mean
// "use the default".
type GenerateRequest struct {
	RepoFullName string      `json:"repoFullName"`
	CommitSHA    string      `json:"commitSha"`
	Style        model.Style `json:"style,omitempty"`
	Complexity   *int        `json:"complexity,omitempty"`
	Force        bool        `json:"force,omitempty"`
}

// DocsService runs generations for one profile.
type DocsService struct {
	gen    Generator
	docs   DocStore
	logger *slog.Logger
	now    func() time.Time
}

// NewDocsService creates a DocsService.
func NewDocsService(gen Generator, docs DocStore, logger *slog.Logger) *DocsService {
	return &DocsService{gen: gen, docs: docs, logger: logger, now: time.Now}
}

// Generate documents one commit and stores the result as the latest
// documentation.
//
// When no style or complexity is given the user's preferred ones are sent.
// With the cache preference off every generation is forced.
func (s *DocsService) Generate(ctx context.Context, req GenerateRequest) (*model.Documentation, error) {
	req.RepoFullName = strings.TrimSpace(req.RepoFullName)
	req.CommitSHA = strings.TrimSpace(req.CommitSHA)

	if req.RepoFullName == "" {
		return nil, apperror.ValidationFailed("repoFullName", "repository is required")
	}
	if req.CommitSHA == "" {
		return nil, apperror.ValidationFailed("commitSha", "commit SHA is required")
	}
	if req.Style != "" && !req.Style.Valid() {
		return nil, apperror.ValidationFailed("style", fmt.Sprintf("unknown style %q", req.Style))
	}
	if req.Complexity != nil && (*req.Complexity < 0 || *req.Complexity > model.MaxTextComplexity) {
		return nil, apperror.ValidationFailed("complexity",
			fmt.Sprintf("complexity must be between 0 and %d", model.MaxTextComplexity))
	}

	prefs, err := s.docs.Preferences(ctx)
	if err != nil {
		return nil, err
	}
	complexity := prefs.TextComplexity
	if req.Complexity != nil {
		complexity = *req.Complexity
	}
	// One style per call; the backend would otherwise produce all of them.
	style := req.Style
	if style == "" {
		style = prefs.DefaultFormat
	}

	res, err := s.gen.GenerateDocs(ctx, api.GenerateInput{
		RepoFullName: req.RepoFullName,
		CommitSHA:    req.CommitSHA,
		Style:        style,
		Complexity:   &complexity,
		Force:        req.Force || !prefs.CacheEnabled,
	})
	if err != nil {
		s.logger.Warn("documentation generation failed",
			slog.String("repo", req.RepoFullName),
			slog.String("commit", req.CommitSHA),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	next := s.toDocumentation(req, res)

	prev, ok, err := s.docs.LatestDocumentation(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		next = Merge(prev, next)
	}

	if err := s.docs.SaveLatestDocumentation(ctx, next); err != nil {
		return nil, fmt.Errorf("saving generated documentation: %w", err)
	}

	s.logger.Info("documentation generated",
		slog.String("repo", next.RepoFullName),
		slog.String("commit", next.CommitSHA),
	)
	return next, nil
}

// Regenerate re-runs the generation for the stored document's commit.
// Returns apperror.ErrNotFound when nothing was generated yet.
func (s *DocsService) Regenerate(ctx context.Context, style model.Style, force bool) (*model.Documentation, error) {
	prev, ok, err := s.docs.LatestDocumentation(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperror.NotFound("documentation", "latest")
	}
	return s.Generate(ctx, GenerateRequest{
		RepoFullName: prev.RepoFullName,
		CommitSHA:    prev.CommitFullSHA,
		Style:        style,
		Force:        force,
	})
}

// toDocumentation fills what the backend left out from the request:
//
//	commit SHA  response full SHA, else the requested one
//	short SHA   response short SHA, else the first 7 characters
//	repo name   response name, else the part after the last "/"
//	timestamp   response time, else now (RFC 3339, UTC)
func (s *DocsService) toDocumentation(req GenerateRequest, res *api.GenerateResult) *model.Documentation {
	fullSHA := firstNonEmpty(res.CommitSHA, req.CommitSHA)
	shortSHA := res.CommitShortSHA
	if shortSHA == "" {
		shortSHA = fullSHA
		if len(shortSHA) > 7 {
			shortSHA = shortSHA[:7]
		}
	}
	repoFullName := firstNonEmpty(res.RepoFullName, req.RepoFullName)
	repoName := res.RepoName
	if repoName == "" {
		repoName = repoFullName[strings.LastIndex(repoFullName, "/")+1:]
	}

	return &model.Documentation{
		CommitSHA:     shortSHA,
		CommitFullSHA: fullSHA,
		RepoName:      repoName,
		RepoFullName:  repoFullName,
		GeneratedAt:   firstNonEmpty(res.GeneratedAt, s.now().UTC().Format(time.RFC3339)),
		PlainText:     res.PlainText,
		ResearchStyle: res.ResearchStyle,
		LaTeX:         res.LaTeX,
	}
}

// Merge fills the slots next left empty from prev, but only when both
// describe the same commit of the same repository. next is returned.
//
//	prev (abc1234): plain="A"  research="B"  latex=""
//	next (abc1234): plain=""   research=""   latex="C"
//	result:         plain="A"  research="B"  latex="C"
//
// For a different commit next is kept as is, so its empty slots stay empty.
func Merge(prev, next *model.Documentation) *model.Documentation {
	if !prev.SameCommit(next) {
		return next
	}
	if next.PlainText == "" {
		next.PlainText = prev.PlainText
	}
	if next.ResearchStyle == "" {
		next.ResearchStyle = prev.ResearchStyle
	}
	if next.LaTeX == "" {
		next.LaTeX = prev.LaTeX
	}
	return next
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
