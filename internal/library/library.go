// Package library manages the documents and settings a profile keeps in its
// local storage: the single latest-documentation slot, pinned repositories,
// the saved-docs vault and the user's preferences.
//
// Every value is plain JSON under a fixed key. A slot holding something that
// does not decode is treated as empty, the same way a fresh profile is.
package library

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/autodocwriter/autodoc/internal/apperror"
	"github.com/autodocwriter/autodoc/internal/model"
	"github.com/autodocwriter/autodoc/internal/storage"
)

// MaxSavedDocs bounds the vault; the oldest entries fall off first.
const MaxSavedDocs = 50

// Library reads and writes one profile's document slots.
type Library struct {
	kv     storage.KV
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Library over kv.
func New(kv storage.KV, logger *slog.Logger) *Library {
	return &Library{kv: kv, logger: logger, now: time.Now}
}

// =========================================================================
// LATEST DOCUMENTATION
// =========================================================================

// LatestDocumentation returns the stored document. ok is false when nothing
// was generated yet, the cache was cleared, or the slot is unreadable.
func (l *Library) LatestDocumentation(ctx context.Context) (*model.Documentation, bool, error) {
	var doc model.Documentation
	ok, err := storage.GetJSON(ctx, l.kv, storage.KeyLatestDocumentation, &doc)
	if err != nil {
		return nil, false, fmt.Errorf("library: reading latest documentation: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return &doc, true, nil
}

// SaveLatestDocumentation replaces the stored document.
func (l *Library) SaveLatestDocumentation(ctx context.Context, doc *model.Documentation) error {
	if err := storage.SetJSON(ctx, l.kv, storage.KeyLatestDocumentation, doc); err != nil {
		return fmt.Errorf("library: writing latest documentation: %w", err)
	}
	return nil
}

// ClearLatestDocumentation empties the slot. Clearing an empty slot is fine.
func (l *Library) ClearLatestDocumentation(ctx context.Context) error {
	if err := l.kv.Remove(ctx, storage.KeyLatestDocumentation); err != nil {
		return fmt.Errorf("library: clearing latest documentation: %w", err)
	}
	l.logger.Info("documentation cache cleared")
	return nil
}

// =========================================================================
// PINNED REPOSITORIES
// =========================================================================

// PinnedRepos returns the IDs of pinned repositories in pin order.
func (l *Library) PinnedRepos(ctx context.Context) ([]string, error) {
	var ids []string
	if _, err := storage.GetJSON(ctx, l.kv, storage.KeyPinnedRepos, &ids); err != nil {
		return nil, fmt.Errorf("library: reading pinned repos: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// TogglePin pins id when it is not pinned and unpins it otherwise. It
// returns the new state.
func (l *Library) TogglePin(ctx context.Context, id string) (bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return false, apperror.ValidationFailed("id", "repository ID is required")
	}

	ids, err := l.PinnedRepos(ctx)
	if err != nil {
		return false, err
	}

	// pins keep their order; a new pin goes last
	pinned := !slices.Contains(ids, id)
	if pinned {
		ids = append(ids, id)
	} else {
		ids = slices.DeleteFunc(ids, func(v string) bool { return v == id })
	}

	if err := storage.SetJSON(ctx, l.kv, storage.KeyPinnedRepos, ids); err != nil {
		return false, fmt.Errorf("library: writing pinned repos: %w", err)
	}
	return pinned, nil
}

// =========================================================================
// VAULT
// =========================================================================

// SavedDocs lists the vault, newest first.
func (l *Library) SavedDocs(ctx context.Context) ([]model.SavedDoc, error) {
	var docs []model.SavedDoc
	if _, err := storage.GetJSON(ctx, l.kv, storage.KeySavedDocs, &docs); err != nil {
		return nil, fmt.Errorf("library: reading saved docs: %w", err)
	}
	if docs == nil {
		docs = []model.SavedDoc{}
	}
	return docs, nil
}

// SaveDoc stores one style of doc in the vault. Saving text that is already
// in the vault returns apperror.ErrConflict.
func (l *Library) SaveDoc(ctx context.Context, doc *model.Documentation, style model.Style) (*model.SavedDoc, error) {
	if doc == nil {
		return nil, apperror.NotFound("documentation", "latest")
	}
	if !style.Valid() {
		return nil, apperror.ValidationFailed("style", fmt.Sprintf("unknown style %q", style))
	}
	content := doc.Text(style)
	if content == "" {
		return nil, apperror.ValidationFailed("style", fmt.Sprintf("no %s documentation has been generated", style))
	}

	docs, err := l.SavedDocs(ctx)
	if err != nil {
		return nil, err
	}

	// The same text of the same commit is kept once.
	if i := slices.IndexFunc(docs, func(d model.SavedDoc) bool {
		return d.RepoFullName == doc.RepoFullName &&
			d.CommitSHA == doc.CommitSHA &&
			d.Style == style &&
			d.Content == content
	}); i >= 0 {
		return nil, apperror.Conflict("saved doc", docs[i].ID)
	}

	saved := model.SavedDoc{
		ID:           xid.New().String(),
		RepoName:     doc.RepoName,
		RepoFullName: doc.RepoFullName,
		CommitSHA:    doc.CommitSHA,
		Style:        style,
		Content:      content,
		SavedAt:      l.now().UTC(),
	}

	// newest first, then drop the oldest beyond the cap
	docs = append([]model.SavedDoc{saved}, docs...)
	if len(docs) > MaxSavedDocs {
		docs = docs[:MaxSavedDocs]
	}

	if err := storage.SetJSON(ctx, l.kv, storage.KeySavedDocs, docs); err != nil {
		return nil, fmt.Errorf("library: writing saved docs: %w", err)
	}

	l.logger.Info("documentation saved to vault",
		slog.String("id", saved.ID),
		slog.String("repo", saved.RepoFullName),
		slog.String("style", string(style)),
	)
	return &saved, nil
}

// DeleteSavedDoc removes one vault entry. Returns apperror.ErrNotFound when
// id is not in the vault.
func (l *Library) DeleteSavedDoc(ctx context.Context, id string) error {
	docs, err := l.SavedDocs(ctx)
	if err != nil {
		return err
	}

	i := slices.IndexFunc(docs, func(d model.SavedDoc) bool { return d.ID == id })
	if i < 0 {
		return apperror.NotFound("saved doc", id)
	}
	docs = slices.Delete(docs, i, i+1)

	if err := storage.SetJSON(ctx, l.kv, storage.KeySavedDocs, docs); err != nil {
		return fmt.Errorf("library: writing saved docs: %w", err)
	}
	return nil
}

// =========================================================================
// PREFERENCES
// =========================================================================

// Preferences returns the stored preferences, or the defaults.
func (l *Library) Preferences(ctx context.Context) (model.Preferences, error) {
	prefs := model.DefaultPreferences()
	if _, err := storage.GetJSON(ctx, l.kv, storage.KeyPreferences, &prefs); err != nil {
		return model.DefaultPreferences(), fmt.Errorf("library: reading preferences: %w", err)
	}
	if !prefs.DefaultFormat.Valid() {
		prefs.DefaultFormat = model.StylePlainText
	}
	return prefs, nil
}

// SavePreferences validates and stores prefs.
func (l *Library) SavePreferences(ctx context.Context, prefs model.Preferences) error {
	if !prefs.DefaultFormat.Valid() {
		return apperror.ValidationFailed("defaultFormat", fmt.Sprintf("unknown format %q", prefs.DefaultFormat))
	}
	if prefs.TextComplexity < 0 || prefs.TextComplexity > model.MaxTextComplexity {
		return apperror.ValidationFailed("textComplexity",
			fmt.Sprintf("text complexity must be between 0 and %d", model.MaxTextComplexity))
	}

	if err := storage.SetJSON(ctx, l.kv, storage.KeyPreferences, prefs); err != nil {
		return fmt.Errorf("library: writing preferences: %w", err)
	}
	return nil
}
