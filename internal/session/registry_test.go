package session

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autodocwriter/autodoc/internal/api"
	"github.com/autodocwriter/autodoc/internal/storage"
)

func TestRegistryBindsTokenPerProfile(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Header.Get("Authorization") {
		case "Bearer token-alice":
			_, _ = io.WriteString(w, `{"username":"alice"}`)
		case "Bearer token-bob":
			_, _ = io.WriteString(w, `{"username":"bob"}`)
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Not authenticated"}`)
		}
	}))
	defer backend.Close()

	ctx := context.Background()
	mem := storage.NewMemory()
	require.NoError(t, mem.SetItem(ctx, "browser-a", storage.KeyAuthToken, "token-alice"))
	require.NoError(t, mem.SetItem(ctx, "browser-b", storage.KeyAuthToken, "token-bob"))

	reg := NewRegistry(mem, api.New(backend.URL), discard)
	defer reg.Close()

	a, err := reg.Get(ctx, "browser-a")
	require.NoError(t, err)
	b, err := reg.Get(ctx, "browser-b")
	require.NoError(t, err)
	anon, err := reg.Get(ctx, "browser-c")
	require.NoError(t, err)

	snapA := waitSettled(t, a.Session)
	snapB := waitSettled(t, b.Session)
	snapC := waitSettled(t, anon.Session)

	require.NotNil(t, snapA.User)
	require.NotNil(t, snapB.User)
	assert.Equal(t, "alice", snapA.User.Username)
	assert.Equal(t, "bob", snapB.User.Username)
	assert.False(t, snapC.IsAuthenticated())
	assert.Equal(t, backend.URL+"/api/v1/auth/login", anon.Session.Login())

	again, err := reg.Get(ctx, "browser-a")
	require.NoError(t, err)
	assert.Same(t, a, again)
}

func TestRegistryClose(t *testing.T) {
	reg := NewRegistry(storage.NewMemory(), api.New(""), discard)

	p, err := reg.Get(context.Background(), "p1")
	require.NoError(t, err)
	task := &stubTask{}
	p.Session.EnsureTask("activity", func() Stopper { return task })

	reg.Close()
	assert.Equal(t, 1, task.stopped)

	_, err = reg.Get(context.Background(), "p1")
	assert.ErrorIs(t, err, ErrClosed)
}
