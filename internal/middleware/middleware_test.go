package middleware_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autodocwriter/autodoc/internal/api"
	"github.com/autodocwriter/autodoc/internal/auth"
	"github.com/autodocwriter/autodoc/internal/middleware"
	"github.com/autodocwriter/autodoc/internal/model"
	"github.com/autodocwriter/autodoc/internal/session"
	"github.com/autodocwriter/autodoc/internal/storage"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fetcherFunc func(ctx context.Context) (*model.User, error)

func (f fetcherFunc) FetchCurrentUser(ctx context.Context) (*model.User, error) { return f(ctx) }

// profileIn builds a profile whose session is in the requested state.
func profileIn(t *testing.T, state string) *session.Profile {
	t.Helper()
	kv := storage.Scoped(storage.NewMemory(), "p1")
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	fetch := fetcherFunc(func(ctx context.Context) (*model.User, error) {
		token, _, _ := kv.Get(ctx, storage.KeyAuthToken)
		switch token {
		case "good":
			return &model.User{Username: "alice"}, nil
		case "slow":
			<-release
		}
		return nil, errors.New("rejected")
	})

	store := session.New(kv, fetch, "http://backend/api/v1/auth/login", discard)
	t.Cleanup(store.Close)

	ctx := context.Background()
	switch state {
	case "authenticated":
		require.NoError(t, store.SetAuthToken(ctx, "good"))
	case "invalid":
		require.NoError(t, store.SetAuthToken(ctx, "bad"))
	case "loading":
		require.NoError(t, store.SetAuthToken(ctx, "slow"))
	case "anonymous":
		require.NoError(t, store.Hydrate(ctx))
	}

	if state != "loading" {
		wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		_, err := store.Wait(wctx)
		require.NoError(t, err)
	}
	return &session.Profile{ID: "p1", KV: kv, Session: store}
}

func serve(h http.Handler, p *session.Profile, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if p != nil {
		req = req.WithContext(middleware.WithProfile(req.Context(), p))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

var page = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	_, _ = io.WriteString(w, "page")
})

// =========================================================================
// GUARDS
// =========================================================================

func TestProtectedRoute(t *testing.T) {
	tests := []struct {
		state    string
		status   int
		location string
	}{
		{"loading", http.StatusAccepted, ""},
		{"anonymous", http.StatusSeeOther, "/"},
		{"invalid", http.StatusSeeOther, "/"},
		{"authenticated", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			rr := serve(middleware.ProtectedRoute(page), profileIn(t, tt.state), "/dashboard")

			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.location, rr.Header().Get("Location"))
			if tt.status != http.StatusOK {
				assert.NotContains(t, rr.Body.String(), "page", "children rendered")
			}
			if tt.status == http.StatusAccepted {
				assert.JSONEq(t, `{"status":"loading"}`, rr.Body.String())
				assert.Equal(t, "1", rr.Header().Get("Retry-After"))
			}
		})
	}
}

func TestProtectedRouteWithoutProfile(t *testing.T) {
	rr := serve(middleware.ProtectedRoute(page), nil, "/dashboard")
	assert.Equal(t, http.StatusSeeOther, rr.Code)
}

func TestAuthRedirect(t *testing.T) {
	tests := []struct {
		state    string
		status   int
		location string
	}{
		{"loading", http.StatusAccepted, ""},
		{"anonymous", http.StatusOK, ""},
		{"authenticated", http.StatusSeeOther, "/dashboard"},
	}

	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			rr := serve(middleware.AuthRedirect(page), profileIn(t, tt.state), "/")
			assert.Equal(t, tt.status, rr.Code)
			assert.Equal(t, tt.location, rr.Header().Get("Location"))
		})
	}
}

// =========================================================================
// PROFILE COOKIE
// =========================================================================

func newProfileChain(t *testing.T) (http.Handler, *session.Registry) {
	t.Helper()
	tokens, err := auth.NewProfileTokens("test-secret-0123456789")
	require.NoError(t, err)

	reg := session.NewRegistry(storage.NewMemory(), api.New("http://127.0.0.1:1"), discard)
	t.Cleanup(reg.Close)

	h := middleware.Profile(tokens, reg, middleware.CookieOptions{}, discard)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := middleware.ProfileFromContext(r.Context())
			require.True(t, ok)
			_, _ = io.WriteString(w, p.ID)
		}),
	)
	return h, reg
}

func TestProfileIssuesCookie(t *testing.T) {
	h, _ := newProfileChain(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, auth.ProfileCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	firstID := rr.Body.String()
	assert.NotEmpty(t, firstID)

	// the cookie brings the browser back to the same profile
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, firstID, rr.Body.String())
	assert.Empty(t, rr.Result().Cookies(), "valid cookie is not reissued")
}

func TestProfileRejectsForgedCookie(t *testing.T) {
	h, _ := newProfileChain(t)

	other, err := auth.NewProfileTokens("another-secret-0123456789")
	require.NoError(t, err)
	forged, err := other.Issue("victim-profile")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.ProfileCookieName, Value: forged})
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.NotEqual(t, "victim-profile", rr.Body.String())
	assert.Len(t, rr.Result().Cookies(), 1)
}

func TestProfileUnavailableAfterClose(t *testing.T) {
	h, reg := newProfileChain(t)
	reg.Close()

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

// =========================================================================
// LOGGER
// =========================================================================

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	h := middleware.Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = io.WriteString(w, "short and stout")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/help", nil))

	line := buf.String()
	assert.True(t, strings.Contains(line, "status=418"), line)
	assert.True(t, strings.Contains(line, "path=/help"), line)
	assert.True(t, strings.Contains(line, "bytes=15"), line)
}
