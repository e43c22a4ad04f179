// Package view builds the page view-models from API results: filtering,
// sorting, pinning and the optimistic monitoring toggle.
package view

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/autodocwriter/autodoc/internal/apperror"
	"github.com/autodocwriter/autodoc/internal/model"
)

// StatusFilter narrows the repository list by monitoring state.
type StatusFilter string

const (
	FilterAll      StatusFilter = "all"
	FilterActive   StatusFilter = "active"
	FilterInactive StatusFilter = "inactive"
)

// SortOrder orders the repository list.
type SortOrder string

const (
	SortRecent SortOrder = "recent" // backend order
	SortName   SortOrder = "name"
)

// RepoQuery is what the repositories page was asked for.
type RepoQuery struct {
	Search string       `json:"search"`
	Status StatusFilter `json:"filter"`
	Sort   SortOrder    `json:"sort"`
}

// ParseRepoQuery normalizes raw query parameters. Unknown values fall back
// to "all" and "recent".
func ParseRepoQuery(search, filter, sort string) RepoQuery {
	q := RepoQuery{Search: strings.TrimSpace(search), Status: FilterAll, Sort: SortRecent}
	switch StatusFilter(strings.ToLower(filter)) {
	case FilterActive:
		q.Status = FilterActive
	case FilterInactive:
		q.Status = FilterInactive
	}
	if SortOrder(strings.ToLower(sort)) == SortName {
		q.Sort = SortName
	}
	return q
}

// Matches reports whether repo passes the search and status filters.
// Search is a case-insensitive substring match on name or description.
func (q RepoQuery) Matches(repo model.Repository) bool {
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		if !strings.Contains(strings.ToLower(repo.Name), needle) &&
			!strings.Contains(strings.ToLower(repo.Description), needle) {
			return false
		}
	}
	switch q.Status {
	case FilterActive:
		return repo.IsMonitored
	case FilterInactive:
		return !repo.IsMonitored
	}
	return true
}

// ApplyPins marks the repositories whose ID is in pinned.
func ApplyPins(repos []model.Repository, pinned []string) []model.Repository {
	out := slices.Clone(repos)
	for i := range out {
		out[i].Pinned = slices.Contains(pinned, out[i].ID)
	}
	return out
}

// FilterRepositories filters, sorts and puts pinned repositories first.
// The input is not modified.
func FilterRepositories(repos []model.Repository, q RepoQuery) []model.Repository {
	out := make([]model.Repository, 0, len(repos))
	for _, r := range repos {
		if q.Matches(r) {
			out = append(out, r)
		}
	}

	if q.Sort == SortName {
		slices.SortStableFunc(out, func(a, b model.Repository) int {
			return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		})
	}

	slices.SortStableFunc(out, func(a, b model.Repository) int {
		switch {
		case a.Pinned == b.Pinned:
			return 0
		case a.Pinned:
			return -1
		default:
			return 1
		}
	})
	return out
}

// RepositoryCounts summarises a repository list.
type RepositoryCounts struct {
	Total    int `json:"total"`
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
	Pinned   int `json:"pinned"`
}

// CountRepositories counts repos by state.
func CountRepositories(repos []model.Repository) RepositoryCounts {
	c := RepositoryCounts{Total: len(repos)}
	for _, r := range repos {
		if r.IsMonitored {
			c.Active++
		} else {
			c.Inactive++
		}
		if r.Pinned {
			c.Pinned++
		}
	}
	return c
}

// =========================================================================
// OPTIMISTIC TOGGLE
// =========================================================================

// Toggler switches backend monitoring. *api.Client satisfies it.
type Toggler interface {
	ToggleRepoMonitoring(ctx context.Context, repoName string, isActive bool) error
}

// RepoList is a displayed repository list. Reads and the optimistic toggle
// are safe for concurrent use.
type RepoList struct {
	mu    sync.RWMutex
	repos []model.Repository
}

// NewRepoList holds a copy of repos.
func NewRepoList(repos []model.Repository) *RepoList {
	return &RepoList{repos: slices.Clone(repos)}
}

// Find returns the displayed repository whose name or ID is key.
func (l *RepoList) Find(key string) (model.Repository, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i := l.indexLocked(key)
	if i < 0 {
		return model.Repository{}, false
	}
	return l.repos[i], true
}

// Toggle flips IsMonitored of the repository named key at once, then asks
// the backend. When the backend call fails the flag is flipped back and the
// error returned. The returned repository is the displayed state after the
// call.
//
// OPTIMISTIC UPDATE:
//
//	1. flip the flag under the lock       the page shows the new state now
//	2. call the backend without the lock  other reads are not blocked
//	3. on error flip it back              the page shows the old state again
func (l *RepoList) Toggle(ctx context.Context, t Toggler, key string) (model.Repository, error) {
	l.mu.Lock()
	i := l.indexLocked(key)
	if i < 0 {
		l.mu.Unlock()
		return model.Repository{}, apperror.NotFound("repository", key)
	}
	l.repos[i].IsMonitored = !l.repos[i].IsMonitored
	repo := l.repos[i]
	l.mu.Unlock()

	err := t.ToggleRepoMonitoring(ctx, repo.Name, repo.IsMonitored)

	l.mu.Lock()
	defer l.mu.Unlock()
	// look the repository up again by ID: the lock was released for the call
	if i = l.indexLocked(repo.ID); i < 0 {
		return repo, err
	}
	if err != nil {
		l.repos[i].IsMonitored = !repo.IsMonitored
		return l.repos[i], fmt.Errorf("view: toggling %s: %w", repo.Name, err)
	}
	return l.repos[i], nil
}

// indexLocked finds key by ID, short name or full name. The caller holds l.mu.
func (l *RepoList) indexLocked(key string) int {
	return slices.IndexFunc(l.repos, func(r model.Repository) bool {
		return r.ID == key || r.Name == key || r.FullName == key
	})
}
