package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/autodocwriter/autodoc/internal/storage"
)

// newTestDB returns a fresh in-memory database closed at test end.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// =========================================================================
// GET / SET
// =========================================================================

func TestSetThenGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.SetItem(ctx, "p1", storage.KeyAuthToken, "abc123"); err != nil {
		t.Fatalf("SetItem() error = %v", err)
	}

	got, ok, err := db.GetItem(ctx, "p1", storage.KeyAuthToken)
	if err != nil {
		t.Fatalf("GetItem() error = %v", err)
	}
	if !ok {
		t.Fatal("GetItem() ok = false, want true")
	}
	if got != "abc123" {
		t.Errorf("GetItem() = %q, want %q", got, "abc123")
	}
}

func TestGetMissingKey(t *testing.T) {
	db := newTestDB(t)

	got, ok, err := db.GetItem(context.Background(), "p1", storage.KeyUsername)
	if err != nil {
		t.Fatalf("GetItem() error = %v", err)
	}
	if ok || got != "" {
		t.Errorf("GetItem() = (%q, %v), want (\"\", false)", got, ok)
	}
}

func TestSetOverwrites(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_ = db.SetItem(ctx, "p1", storage.KeyLatestDocumentation, `{"commitSha":"a"}`)
	_ = db.SetItem(ctx, "p1", storage.KeyLatestDocumentation, `{"commitSha":"b"}`)

	got, _, _ := db.GetItem(ctx, "p1", storage.KeyLatestDocumentation)
	if got != `{"commitSha":"b"}` {
		t.Errorf("GetItem() = %q, want the second write", got)
	}
}

func TestProfilesAreIsolated(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	_ = db.SetItem(ctx, "alice-browser", storage.KeyAuthToken, "token-a")
	_ = db.SetItem(ctx, "bob-browser", storage.KeyAuthToken, "token-b")

	a, _, _ := db.GetItem(ctx, "alice-browser", storage.KeyAuthToken)
	b, _, _ := db.GetItem(ctx, "bob-browser", storage.KeyAuthToken)
	if a != "token-a" || b != "token-b" {
		t.Errorf("tokens = (%q, %q), want (token-a, token-b)", a, b)
	}
}

// =========================================================================
// REMOVE
// =========================================================================

func TestRemoveItems(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	for _, k := range storage.AuthKeys {
		_ = db.SetItem(ctx, "p1", k, "v")
	}
	_ = db.SetItem(ctx, "p1", storage.KeyPinnedRepos, "[1]")
	_ = db.SetItem(ctx, "p2", storage.KeyAuthToken, "other")

	if err := db.RemoveItems(ctx, "p1", storage.AuthKeys...); err != nil {
		t.Fatalf("RemoveItems() error = %v", err)
	}

	for _, k := range storage.AuthKeys {
		if _, ok, _ := db.GetItem(ctx, "p1", k); ok {
			t.Errorf("key %q still present after RemoveItems", k)
		}
	}
	if _, ok, _ := db.GetItem(ctx, "p1", storage.KeyPinnedRepos); !ok {
		t.Error("RemoveItems() removed a key it was not asked to remove")
	}
	if _, ok, _ := db.GetItem(ctx, "p2", storage.KeyAuthToken); !ok {
		t.Error("RemoveItems() touched another profile")
	}
}

func TestRemoveNoKeys(t *testing.T) {
	db := newTestDB(t)
	if err := db.RemoveItems(context.Background(), "p1"); err != nil {
		t.Errorf("RemoveItems() with no keys error = %v", err)
	}
}

// =========================================================================
// PERSISTENCE
// =========================================================================

func TestValuesSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autodoc.db")
	ctx := context.Background()

	db, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := db.SetItem(ctx, "p1", storage.KeyAuthToken, "persisted"); err != nil {
		t.Fatalf("SetItem() error = %v", err)
	}
	db.Close()

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("New() on reopen error = %v", err)
	}
	defer reopened.Close()

	got, ok, err := reopened.GetItem(ctx, "p1", storage.KeyAuthToken)
	if err != nil || !ok || got != "persisted" {
		t.Errorf("GetItem() after reopen = (%q, %v, %v), want (persisted, true, nil)", got, ok, err)
	}
}

func TestScopedJSONHelpers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	kv := storage.Scoped(db, "p1")

	if err := storage.SetJSON(ctx, kv, storage.KeyPinnedRepos, []string{"alpha", "beta"}); err != nil {
		t.Fatalf("SetJSON() error = %v", err)
	}

	var pinned []string
	ok, err := storage.GetJSON(ctx, kv, storage.KeyPinnedRepos, &pinned)
	if err != nil || !ok {
		t.Fatalf("GetJSON() = (%v, %v), want (true, nil)", ok, err)
	}
	if len(pinned) != 2 || pinned[0] != "alpha" || pinned[1] != "beta" {
		t.Errorf("GetJSON() decoded %v", pinned)
	}

	// Corrupt values read as an empty slot.
	_ = kv.Set(ctx, storage.KeySavedDocs, "{not json")
	var docs []any
	ok, err = storage.GetJSON(ctx, kv, storage.KeySavedDocs, &docs)
	if err != nil || ok {
		t.Errorf("GetJSON() on corrupt value = (%v, %v), want (false, nil)", ok, err)
	}
}
