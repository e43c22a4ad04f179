package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/autodocwriter/autodoc/internal/api"
	"github.com/autodocwriter/autodoc/internal/auth"
	"github.com/autodocwriter/autodoc/internal/storage"
)

// ErrClosed is returned by Get after Close.
var ErrClosed = errors.New("session: registry closed")

// Profile is everything the client keeps for one browser: its storage, an
// API client that sends its token, and its session store.
type Profile struct {
	ID      string
	KV      storage.KV
	API     *api.Client
	Session *Store
}

// Registry maps profile IDs to their Profile, creating them on first use.
//
// ONE STORE PER BROWSER:
// The web server serves many browsers; each one must see only its own token
// and documents. The registry keeps a single *Profile per ID for the life of
// the process:
//
//	profile ID ──▶ Profile{KV: storage scoped to ID, API: client with ID's token, Session}
//
// A Session holds in-memory state (the resolved user, running poll tasks),
// so two requests of the same browser must share it. Get returns the same
// pointer every time.
type Registry struct {
	backend storage.Backend
	client  *api.Client
	logger  *slog.Logger

	mu       sync.Mutex // guards profiles and closed
	profiles map[string]*Profile
	closed   bool
}

// NewRegistry creates a Registry. client is copied per profile and bound to
// that profile's stored token.
func NewRegistry(backend storage.Backend, client *api.Client, logger *slog.Logger) *Registry {
	return &Registry{
		backend:  backend,
		client:   client,
		logger:   logger,
		profiles: make(map[string]*Profile),
	}
}

// Get returns the profile for id and mounts its session. Mounting a session
// that is already resolving or authenticated does nothing.
func (r *Registry) Get(ctx context.Context, id string) (*Profile, error) {
	p, err := r.profile(id)
	if err != nil {
		return nil, err
	}
	if err := p.Session.Hydrate(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *Registry) profile(id string) (*Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if p, ok := r.profiles[id]; ok {
		return p, nil
	}

	kv := storage.Scoped(r.backend, id)
	client := r.client.WithTokenSource(auth.StorageTokenSource(kv))
	logger := r.logger.With(slog.String("profile", id))

	p := &Profile{
		ID:      id,
		KV:      kv,
		API:     client,
		Session: New(kv, client, client.LoginURL(), logger),
	}
	r.profiles[id] = p
	return p, nil
}

// Close stops every profile's tasks and resolutions. Get fails afterwards.
func (r *Registry) Close() {
	r.mu.Lock()
	profiles := make([]*Profile, 0, len(r.profiles))
	for _, p := range r.profiles {
		profiles = append(profiles, p)
	}
	r.closed = true
	r.mu.Unlock()

	for _, p := range profiles {
		p.Session.Close()
	}
}
