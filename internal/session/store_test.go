package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/autodocwriter/autodoc/internal/apperror"
	"github.com/autodocwriter/autodoc/internal/model"
	"github.com/autodocwriter/autodoc/internal/storage"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// tokenFetcher answers immediately: tokens starting with "good" resolve to a
// user named after the token, anything else is rejected.
type tokenFetcher struct {
	kv    storage.KV
	mu    sync.Mutex
	calls int
}

func (f *tokenFetcher) FetchCurrentUser(ctx context.Context) (*model.User, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	token, _, _ := f.kv.Get(ctx, storage.KeyAuthToken)
	if !strings.HasPrefix(token, "good") {
		return nil, apperror.Upstream(401, "Invalid token")
	}
	return &model.User{Username: token, Name: "Name " + token, Avatar: "https://avatars/" + token}, nil
}

func (f *tokenFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type reply struct {
	user *model.User
	err  error
}

// scriptedFetcher blocks each call until the test sends its reply. It
// ignores cancellation so stale replies really arrive.
type scriptedFetcher struct {
	mu      sync.Mutex
	replies []chan reply
	started chan int
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{started: make(chan int, 16)}
}

func (f *scriptedFetcher) FetchCurrentUser(context.Context) (*model.User, error) {
	ch := make(chan reply)
	f.mu.Lock()
	f.replies = append(f.replies, ch)
	n := len(f.replies) - 1
	f.mu.Unlock()

	f.started <- n
	r := <-ch
	return r.user, r.err
}

func (f *scriptedFetcher) reply(n int, r reply) {
	f.mu.Lock()
	ch := f.replies[n]
	f.mu.Unlock()
	ch <- r
}

func newKV() storage.KV {
	return storage.Scoped(storage.NewMemory(), "p1")
}

func waitSettled(t *testing.T, s *Store) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := s.Wait(ctx)
	require.NoError(t, err)
	return snap
}

func TestHydrateWithoutToken(t *testing.T) {
	kv := newKV()
	f := &tokenFetcher{kv: kv}
	s := New(kv, f, "http://backend/api/v1/auth/login", discard)
	defer s.Close()

	require.NoError(t, s.Hydrate(context.Background()))

	snap := s.Snapshot()
	assert.Equal(t, Unauthenticated, snap.Status)
	assert.False(t, snap.IsLoading)
	assert.False(t, snap.IsAuthenticated())
	assert.Equal(t, 0, f.Calls())
}

func TestHydrateResolvesStoredToken(t *testing.T) {
	ctx := context.Background()
	kv := newKV()
	require.NoError(t, kv.Set(ctx, storage.KeyAuthToken, "good-alice"))
	f := &tokenFetcher{kv: kv}
	s := New(kv, f, "", discard)
	defer s.Close()

	require.NoError(t, s.Hydrate(ctx))
	snap := waitSettled(t, s)

	assert.Equal(t, Authenticated, snap.Status)
	require.NotNil(t, snap.User)
	assert.Equal(t, "good-alice", snap.User.Username)
	assert.Equal(t, 1, f.Calls())

	name, _, _ := kv.Get(ctx, storage.KeyName)
	assert.Equal(t, "Name good-alice", name)

	// mounting again does not refetch
	require.NoError(t, s.Hydrate(ctx))
	assert.Equal(t, 1, f.Calls())
}

func TestRejectedTokenPurgesAuthKeys(t *testing.T) {
	ctx := context.Background()
	kv := newKV()
	require.NoError(t, kv.Set(ctx, storage.KeyAuthToken, "expired"))
	require.NoError(t, kv.Set(ctx, storage.KeyUsername, "alice"))
	require.NoError(t, kv.Set(ctx, storage.KeyName, "Alice"))
	require.NoError(t, kv.Set(ctx, storage.KeyAvatar, "https://avatars/alice"))
	require.NoError(t, kv.Set(ctx, storage.KeyLatestDocumentation, `{"commitSha":"a"}`))

	s := New(kv, &tokenFetcher{kv: kv}, "", discard)
	defer s.Close()

	require.NoError(t, s.Hydrate(ctx))
	snap := waitSettled(t, s)

	assert.Equal(t, Unauthenticated, snap.Status)
	assert.False(t, snap.IsAuthenticated())
	for _, key := range storage.AuthKeys {
		_, ok, err := kv.Get(ctx, key)
		require.NoError(t, err)
		assert.False(t, ok, "%s should be purged", key)
	}
	_, ok, _ := kv.Get(ctx, storage.KeyLatestDocumentation)
	assert.True(t, ok, "documentation cache is not an auth key")
}

func TestSetAuthToken(t *testing.T) {
	ctx := context.Background()
	kv := newKV()
	s := New(kv, &tokenFetcher{kv: kv}, "", discard)
	defer s.Close()

	require.NoError(t, s.SetAuthToken(ctx, "good-bob"))
	stored, _, _ := kv.Get(ctx, storage.KeyAuthToken)
	assert.Equal(t, "good-bob", stored)

	snap := waitSettled(t, s)
	assert.True(t, snap.IsAuthenticated())

	require.NoError(t, s.SetAuthToken(ctx, ""))
	snap = s.Snapshot()
	assert.Equal(t, Unauthenticated, snap.Status)
	_, ok, _ := kv.Get(ctx, storage.KeyAuthToken)
	assert.False(t, ok)
}

func TestStaleResolutionIsDiscarded(t *testing.T) {
	ctx := context.Background()
	kv := newKV()
	f := newScriptedFetcher()
	s := New(kv, f, "", discard)
	defer s.Close()

	require.NoError(t, s.SetAuthToken(ctx, "token-a"))
	<-f.started
	require.NoError(t, s.SetAuthToken(ctx, "token-b"))
	<-f.started

	f.reply(1, reply{user: &model.User{Username: "bob"}})
	snap := waitSettled(t, s)
	require.NotNil(t, snap.User)
	assert.Equal(t, "bob", snap.User.Username)

	// token-a's late failure must neither log bob out nor purge token-b
	f.reply(0, reply{err: errors.New("401")})
	assert.Never(t, func() bool {
		return !s.Snapshot().IsAuthenticated()
	}, 100*time.Millisecond, 5*time.Millisecond)

	stored, ok, _ := kv.Get(ctx, storage.KeyAuthToken)
	assert.True(t, ok)
	assert.Equal(t, "token-b", stored)
}

func TestStaleSuccessIsDiscarded(t *testing.T) {
	ctx := context.Background()
	kv := newKV()
	f := newScriptedFetcher()
	s := New(kv, f, "", discard)
	defer s.Close()

	require.NoError(t, s.SetAuthToken(ctx, "token-a"))
	<-f.started
	require.NoError(t, s.SetAuthToken(ctx, "token-b"))
	<-f.started

	f.reply(0, reply{user: &model.User{Username: "alice"}})
	assert.Never(t, func() bool {
		return s.Snapshot().IsAuthenticated()
	}, 100*time.Millisecond, 5*time.Millisecond)

	f.reply(1, reply{user: &model.User{Username: "bob"}})
	snap := waitSettled(t, s)
	require.NotNil(t, snap.User)
	assert.Equal(t, "bob", snap.User.Username)
}

func TestLoginMarksLoadingUntilMounted(t *testing.T) {
	kv := newKV()
	s := New(kv, &tokenFetcher{kv: kv}, "http://backend/api/v1/auth/login", discard)
	defer s.Close()

	assert.Equal(t, "http://backend/api/v1/auth/login", s.Login())
	assert.True(t, s.Snapshot().IsLoading)

	// coming back without a token is a fresh mount
	require.NoError(t, s.Hydrate(context.Background()))
	assert.False(t, s.Snapshot().IsLoading)
}

func TestAbandonedLoginFromAuthenticatedSession(t *testing.T) {
	ctx := context.Background()
	kv := newKV()
	f := &tokenFetcher{kv: kv}
	s := New(kv, f, "http://backend/api/v1/auth/login", discard)
	defer s.Close()

	require.NoError(t, s.SetAuthToken(ctx, "good-alice"))
	require.True(t, waitSettled(t, s).IsAuthenticated())

	// signing in again and never coming back
	s.Login()
	assert.True(t, s.Snapshot().IsLoading)

	require.NoError(t, s.Hydrate(ctx))
	snap := waitSettled(t, s)
	assert.False(t, snap.IsLoading)
	assert.Equal(t, Authenticated, snap.Status)
	require.NotNil(t, snap.User)
	assert.Equal(t, "good-alice", snap.User.Username)
	assert.Equal(t, 2, f.Calls(), "the stored token is resolved again")
}

func TestAbandonedLoginWithoutStoredToken(t *testing.T) {
	ctx := context.Background()
	kv := newKV()
	s := New(kv, &tokenFetcher{kv: kv}, "", discard)
	defer s.Close()

	require.NoError(t, s.SetAuthToken(ctx, "good-alice"))
	waitSettled(t, s)

	// the token disappears from storage while a login is pending
	require.NoError(t, kv.Remove(ctx, storage.KeyAuthToken))
	s.Login()
	require.NoError(t, s.Hydrate(ctx))

	snap := s.Snapshot()
	assert.False(t, snap.IsLoading)
	assert.Equal(t, Unauthenticated, snap.Status)
}

type stubTask struct {
	mu      sync.Mutex
	stopped int
}

func (t *stubTask) Stop() {
	t.mu.Lock()
	t.stopped++
	t.mu.Unlock()
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	kv := newKV()
	s := New(kv, &tokenFetcher{kv: kv}, "", discard)
	defer s.Close()

	require.NoError(t, s.SetAuthToken(ctx, "good-carol"))
	waitSettled(t, s)

	task := &stubTask{}
	got := s.EnsureTask("activity", func() Stopper { return task })
	assert.Same(t, task, got)
	again := s.EnsureTask("activity", func() Stopper { t.Fatal("second start"); return nil })
	assert.Same(t, task, again)

	require.NoError(t, s.Logout(ctx))

	snap := s.Snapshot()
	assert.Equal(t, Unauthenticated, snap.Status)
	assert.False(t, snap.IsLoading)
	assert.Equal(t, 1, task.stopped)
	for _, key := range storage.AuthKeys {
		_, ok, _ := kv.Get(ctx, key)
		assert.False(t, ok, "%s should be purged", key)
	}
}

func TestRejectedTokenStopsTasks(t *testing.T) {
	ctx := context.Background()
	kv := newKV()
	s := New(kv, &tokenFetcher{kv: kv}, "", discard)
	defer s.Close()

	require.NoError(t, s.SetAuthToken(ctx, "good-dave"))
	waitSettled(t, s)

	task := &stubTask{}
	s.EnsureTask("activity", func() Stopper { return task })

	require.NoError(t, s.SetAuthToken(ctx, "bad-token"))
	snap := waitSettled(t, s)
	assert.Equal(t, Unauthenticated, snap.Status)

	task.mu.Lock()
	stopped := task.stopped
	task.mu.Unlock()
	assert.Equal(t, 1, stopped)

	// the next visit starts a fresh task
	fresh := &stubTask{}
	assert.Same(t, fresh, s.EnsureTask("activity", func() Stopper { return fresh }))
}

func TestEmptyUserIsRejected(t *testing.T) {
	tests := []struct {
		name string
		user *model.User
	}{
		{"null body", nil},
		{"empty object", &model.User{}},
		{"no username", &model.User{Name: "Alice"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			kv := newKV()
			f := newScriptedFetcher()
			s := New(kv, f, "", discard)
			defer s.Close()

			require.NoError(t, s.SetAuthToken(ctx, "token"))
			n := <-f.started
			f.reply(n, reply{user: tt.user})

			snap := waitSettled(t, s)
			assert.False(t, snap.IsAuthenticated())
			assert.Equal(t, Unauthenticated, snap.Status)
			_, ok, _ := kv.Get(ctx, storage.KeyAuthToken)
			assert.False(t, ok, "the token is purged")
		})
	}
}

func TestWaitHonoursContext(t *testing.T) {
	f := newScriptedFetcher()
	kv := newKV()
	s := New(kv, f, "", discard)
	defer func() {
		s.Close()
		f.reply(0, reply{err: errors.New("closed")})
	}()

	require.NoError(t, s.SetAuthToken(context.Background(), "token"))
	<-f.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	snap, err := s.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, snap.IsLoading)
	assert.Equal(t, Resolving, snap.Status)
}

// Whatever sequence of token changes, logouts, abandoned logins and mounts happens, once the
// store settles it is authenticated iff it holds a user, and it holds a user
// iff the stored token is one the backend accepts.
func TestSessionInvariants(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		kv := newKV()
		s := New(kv, &tokenFetcher{kv: kv}, "", discard)
		defer s.Close()

		ops := rapid.SliceOfN(rapid.IntRange(0, 5), 1, 20).Draw(rt, "ops")
		for i, op := range ops {
			switch op {
			case 0:
				_ = s.SetAuthToken(ctx, "good-"+rapid.StringMatching(`[a-z]{1,5}`).Draw(rt, "name"))
			case 1:
				_ = s.SetAuthToken(ctx, "bad")
			case 2:
				_ = s.SetAuthToken(ctx, "")
			case 3:
				_ = s.Logout(ctx)
			case 4:
				_ = s.Hydrate(ctx)
			case 5:
				// a login that never returns, then a remount
				s.Login()
				_ = s.Hydrate(ctx)
			}

			wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
			snap, err := s.Wait(wctx)
			cancel()
			if err != nil {
				rt.Fatalf("op %d: Wait() error = %v", i, err)
			}

			if snap.IsAuthenticated() != (snap.User != nil) {
				rt.Fatalf("op %d: IsAuthenticated() disagrees with User", i)
			}
			if snap.IsAuthenticated() != (snap.Status == Authenticated) {
				rt.Fatalf("op %d: status %v with user %v", i, snap.Status, snap.User)
			}

			token, _, _ := kv.Get(ctx, storage.KeyAuthToken)
			if snap.IsAuthenticated() != strings.HasPrefix(token, "good") {
				rt.Fatalf("op %d: authenticated=%v with stored token %q", i, snap.IsAuthenticated(), token)
			}
		}
	})
}
