// Package session is the Auth Session Store: the single source of truth for
// "is there a valid session" for one browser profile.
//
// STATE MACHINE:
//
//	Unauthenticated ──token stored──▶ Resolving ──user fetched──▶ Authenticated
//	       ▲                              │
//	       │                              └─fetch failed─▶ Invalid
//	       └──────────── logout / purge ◀─────────────────────┘
//
// Invalid is never observable: the failed token and the cached profile keys
// are purged in the same step and the store lands in Unauthenticated.
//
// IsLoading is separate from the status. It is up while Resolving and after
// Login until the browser comes back; a mount (Hydrate) with nothing in
// flight clears it by reading the token again.
//
// Every token change starts exactly one current-user fetch. Fetches carry a
// generation number; a fetch that finishes after a newer token change is
// discarded instead of overwriting the newer state.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/autodocwriter/autodoc/internal/model"
	"github.com/autodocwriter/autodoc/internal/storage"
)

// errEmptyUser marks a current-user answer that carried no profile.
var errEmptyUser = errors.New("session: backend returned no user")

// Status is the externally visible state of a Store.
type Status int

const (
	Unauthenticated Status = iota
	Resolving
	Authenticated
)

func (s Status) String() string {
	switch s {
	case Resolving:
		return "resolving"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// MarshalText renders the status by name in JSON view-models.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is a copy of the session state at one instant.
type Snapshot struct {
	Token     string      `json:"-"`
	User      *model.User `json:"user"`
	IsLoading bool        `json:"isLoading"`
	Status    Status      `json:"status"`
}

// IsAuthenticated is true iff a resolved user is held. A token alone never
// counts.
func (s Snapshot) IsAuthenticated() bool {
	return s.User != nil
}

// UserFetcher resolves the user behind the stored token. *api.Client bound
// to the profile's token source satisfies it.
type UserFetcher interface {
	FetchCurrentUser(ctx context.Context) (*model.User, error)
}

// Stopper is a background task bound to the session lifetime.
type Stopper interface {
	Stop()
}

// Store holds the session of one profile.
type Store struct {
	kv       storage.KV
	fetcher  UserFetcher
	loginURL string
	logger   *slog.Logger

	// life bounds every resolution; cancelled by Close.
	life     context.Context
	lifeStop context.CancelFunc

	mu         sync.Mutex
	snap       Snapshot
	generation uint64
	cancel     context.CancelFunc // cancels the in-flight resolution
	settled    chan struct{}      // closed while not loading
	tasks      map[string]Stopper
}

// New creates a Store in Unauthenticated. Call Hydrate to read the stored
// token.
func New(kv storage.KV, fetcher UserFetcher, loginURL string, logger *slog.Logger) *Store {
	life, stop := context.WithCancel(context.Background())
	settled := make(chan struct{})
	close(settled)
	return &Store{
		kv:       kv,
		fetcher:  fetcher,
		loginURL: loginURL,
		logger:   logger,
		life:     life,
		lifeStop: stop,
		settled:  settled,
		tasks:    make(map[string]Stopper),
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := s.snap
	if snap.User != nil {
		u := *snap.User
		snap.User = &u
	}
	return snap
}

// Hydrate mounts the session from storage. A store that is resolving or
// authenticated is left alone; otherwise the stored token is read again and,
// when present, resolved.
//
// A login that was started but never came back leaves the store loading with
// nothing in flight. Mounting such a store re-reads the token as well, so an
// abandoned sign-in never pins the session in its loading state.
func (s *Store) Hydrate(ctx context.Context) error {
	s.mu.Lock()
	mount := s.needsMountLocked()
	s.mu.Unlock()
	if !mount {
		return nil
	}

	token, ok, err := s.kv.Get(ctx, storage.KeyAuthToken)
	if err != nil {
		return fmt.Errorf("session: reading stored token: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.needsMountLocked() {
		// a callback won the race
		return nil
	}
	if !ok || token == "" {
		s.enterUnauthenticatedLocked()
		return nil
	}
	s.resolveLocked(token)
	return nil
}

// needsMountLocked reports whether Hydrate has work to do: either nothing is
// held yet, or a login left the loading flag up without a resolution behind
// it.
func (s *Store) needsMountLocked() bool {
	if s.snap.Status == Unauthenticated {
		return true
	}
	return s.snap.IsLoading && s.cancel == nil
}

// Login marks the session as loading and returns the URL the caller must
// redirect to. Control comes back through the callback route.
func (s *Store) Login() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLoadingLocked(true)
	return s.loginURL
}

// SetAuthToken stores token and resolves it. An empty token removes the
// stored one and leaves the session Unauthenticated.
func (s *Store) SetAuthToken(ctx context.Context, token string) error {
	// The write happens under the lock so a failing resolution of the
	// previous token cannot purge the new one.
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" {
		if err := s.kv.Remove(ctx, storage.KeyAuthToken); err != nil {
			return fmt.Errorf("session: removing token: %w", err)
		}
		s.invalidateLocked()
		s.enterUnauthenticatedLocked()
		return nil
	}

	if err := s.kv.Set(ctx, storage.KeyAuthToken, token); err != nil {
		return fmt.Errorf("session: storing token: %w", err)
	}
	s.resolveLocked(token)
	return nil
}

// Logout purges every auth key, stops the session's tasks and forces
// Unauthenticated before returning.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.invalidateLocked()
	s.enterUnauthenticatedLocked()
	tasks := s.takeTasksLocked()
	s.mu.Unlock()

	stopAll(tasks)

	if err := s.kv.Remove(ctx, storage.AuthKeys...); err != nil {
		return fmt.Errorf("session: purging auth keys: %w", err)
	}
	s.logger.Info("session logged out")
	return nil
}

// Wait blocks until the session is not loading, then returns its state.
func (s *Store) Wait(ctx context.Context) (Snapshot, error) {
	for {
		s.mu.Lock()
		settled := s.settled
		loading := s.snap.IsLoading
		s.mu.Unlock()

		if !loading {
			return s.Snapshot(), nil
		}
		select {
		case <-settled:
		case <-ctx.Done():
			return s.Snapshot(), ctx.Err()
		}
	}
}

// EnsureTask returns the task registered under name, starting it with start
// when there is none. Tasks are stopped on Logout, on Close and when the
// stored token is rejected.
func (s *Store) EnsureTask(name string, start func() Stopper) Stopper {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[name]; ok {
		return t
	}
	t := start()
	s.tasks[name] = t
	return t
}

// Close stops the session's tasks and abandons any in-flight resolution.
// Stored state is kept.
func (s *Store) Close() {
	s.mu.Lock()
	s.invalidateLocked()
	tasks := s.takeTasksLocked()
	s.mu.Unlock()

	stopAll(tasks)
	s.lifeStop()
}

// resolveLocked enters Resolving for token and starts its fetch.
func (s *Store) resolveLocked(token string) {
	s.invalidateLocked()
	gen := s.generation

	s.snap.Token = token
	s.snap.User = nil
	s.snap.Status = Resolving
	s.setLoadingLocked(true)

	ctx, cancel := context.WithCancel(s.life)
	s.cancel = cancel

	go s.resolve(ctx, gen)
}

func (s *Store) resolve(ctx context.Context, gen uint64) {
	user, err := s.fetcher.FetchCurrentUser(ctx)

	if err == nil && (user == nil || user.Username == "") {
		// A 2xx without a profile does not identify anyone.
		err = errEmptyUser
	}

	if err != nil {
		s.mu.Lock()
		if gen != s.generation {
			s.mu.Unlock()
			return
		}
		// Invalid: purge while still holding the generation so a newer
		// token cannot be written in between and then removed.
		s.logger.Warn("stored token rejected", slog.String("error", err.Error()))
		if rmErr := s.kv.Remove(ctx, storage.AuthKeys...); rmErr != nil {
			s.logger.Error("failed to purge auth keys", slog.String("error", rmErr.Error()))
		}
		s.cancel()
		s.cancel = nil
		s.enterUnauthenticatedLocked()
		tasks := s.takeTasksLocked()
		s.mu.Unlock()

		// teardown stops the same tasks Logout does
		stopAll(tasks)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	s.cacheProfileLocked(ctx, user)
	s.cancel()
	s.cancel = nil
	s.snap.User = user
	s.snap.Status = Authenticated
	s.setLoadingLocked(false)

	s.logger.Info("session authenticated", slog.String("username", user.Username))
}

// cacheProfileLocked mirrors the user's display fields into storage.
func (s *Store) cacheProfileLocked(ctx context.Context, user *model.User) {
	fields := map[string]string{
		storage.KeyUsername: user.Username,
		storage.KeyName:     user.Name,
		storage.KeyAvatar:   user.Avatar,
	}
	for key, value := range fields {
		if value == "" {
			continue
		}
		if err := s.kv.Set(ctx, key, value); err != nil {
			s.logger.Warn("failed to cache profile field",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
}

// invalidateLocked makes any in-flight resolution stale.
func (s *Store) invalidateLocked() {
	s.generation++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Store) enterUnauthenticatedLocked() {
	s.snap.Token = ""
	s.snap.User = nil
	s.snap.Status = Unauthenticated
	s.setLoadingLocked(false)
}

// setLoadingLocked flips IsLoading and keeps the settled channel in step:
// open while loading, closed otherwise.
func (s *Store) setLoadingLocked(loading bool) {
	was := s.snap.IsLoading
	s.snap.IsLoading = loading
	switch {
	case loading && !was:
		s.settled = make(chan struct{})
	case !loading && was:
		close(s.settled)
	}
}

func (s *Store) takeTasksLocked() []Stopper {
	tasks := make([]Stopper, 0, len(s.tasks))
	for name, t := range s.tasks {
		tasks = append(tasks, t)
		delete(s.tasks, name)
	}
	return tasks
}

func stopAll(tasks []Stopper) {
	for _, t := range tasks {
		t.Stop()
	}
}
