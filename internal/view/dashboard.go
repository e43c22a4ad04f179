package view

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/autodocwriter/autodoc/internal/api"
	"github.com/autodocwriter/autodoc/internal/model"
)

// DashboardRecentCommits is how many commits the dashboard lists.
const DashboardRecentCommits = 5

// DashboardSource is the part of the API the dashboard reads.
type DashboardSource interface {
	FetchRepositories(ctx context.Context, includeCommitCount bool) (*api.RepositoryPage, error)
	FetchCommits(ctx context.Context, repoFullName string, perPage int, includeStats bool) ([]model.Commit, error)
}

// Dashboard is the landing page after login.
type Dashboard struct {
	User          *model.User         `json:"user"`
	Repositories  RepositoryCounts    `json:"repositories"`
	PinnedRepos   []model.Repository  `json:"pinnedRepos"`
	RecentCommits []model.Commit      `json:"recentCommits"`
	CommitStats   CommitStats         `json:"commitStats"`
	LatestDoc     *DocumentationBadge `json:"latestDocumentation,omitempty"`
}

// DocumentationBadge is the dashboard summary of the stored document.
type DocumentationBadge struct {
	RepoFullName string        `json:"repoFullName"`
	CommitSHA    string        `json:"commitSha"`
	GeneratedAt  string        `json:"generatedAt"`
	Styles       []model.Style `json:"styles"`
}

// BuildDashboard fetches repositories and recent commits concurrently. Either
// failure fails the whole dashboard.
//
// ERRGROUP:
// errgroup.WithContext returns a group and a derived context. Each g.Go
// runs in its own goroutine; g.Wait blocks until all of them return and
// yields the first non-nil error. That first error also cancels gctx, so
// the other request is abandoned instead of finishing for nothing.
//
//	        ┌─ FetchRepositories ─┐
//	ctx ────┤                     ├── g.Wait → both results, or the first error
//	        └─ FetchCommits ──────┘
//
// Each goroutine writes only its own variable, and g.Wait happens before
// the reads below, so no mutex is needed.
func BuildDashboard(ctx context.Context, src DashboardSource, user *model.User, pinned []string, latest *model.Documentation) (*Dashboard, error) {
	var (
		page    *api.RepositoryPage
		commits []model.Commit
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		page, err = src.FetchRepositories(gctx, false)
		return err
	})
	g.Go(func() error {
		var err error
		commits, err = src.FetchCommits(gctx, "", CommitsPerPage, false)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("view: building dashboard: %w", err)
	}

	repos := ApplyPins(page.Repositories, pinned)
	pinnedRepos := make([]model.Repository, 0, len(pinned))
	for _, r := range repos {
		if r.Pinned {
			pinnedRepos = append(pinnedRepos, r)
		}
	}

	// Re-slicing shares the backing array; the dashboard only reads it.
	recent := commits
	if len(recent) > DashboardRecentCommits {
		recent = recent[:DashboardRecentCommits]
	}

	d := &Dashboard{
		User:          user,
		Repositories:  CountRepositories(repos),
		PinnedRepos:   pinnedRepos,
		RecentCommits: recent,
		CommitStats:   SummarizeCommits(commits),
	}
	// total_repos counts repositories the listing did not return
	if page.Total > d.Repositories.Total {
		d.Repositories.Total = page.Total
	}
	if latest != nil {
		d.LatestDoc = Badge(latest)
	}
	return d, nil
}

// Badge summarises doc: which styles it has text for.
func Badge(doc *model.Documentation) *DocumentationBadge {
	b := &DocumentationBadge{
		RepoFullName: doc.RepoFullName,
		CommitSHA:    doc.CommitSHA,
		GeneratedAt:  doc.GeneratedAt,
		Styles:       []model.Style{},
	}
	for _, s := range []model.Style{model.StylePlainText, model.StyleResearch, model.StyleLaTeX} {
		if doc.Text(s) != "" {
			b.Styles = append(b.Styles, s)
		}
	}
	return b
}
