// Package activity keeps a polled copy of the backend's AI generation
// history for one session.
//
// OWNERSHIP:
// A Feed is started by the first visit to the activity page and registered
// on the session with Store.EnsureTask. Later visits read the same Feed's
// Snapshot. The session stops it on logout, on a rejected token and on
// shutdown, so no poll outlives the session that started it.
package activity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/autodocwriter/autodoc/internal/apperror"
	"github.com/autodocwriter/autodoc/internal/format"
	"github.com/autodocwriter/autodoc/internal/model"
	"github.com/autodocwriter/autodoc/internal/poll"
)

// DefaultInterval is how often the feed re-fetches.
const DefaultInterval = 2 * time.Second

// Fetcher returns the activity history. *api.Client satisfies it.
type Fetcher interface {
	FetchActivity(ctx context.Context) ([]model.Activity, error)
}

// Item is an Activity with a display time.
type Item struct {
	model.Activity
	When string `json:"when"`
}

// Snapshot is the feed as last fetched.
type Snapshot struct {
	Items     []Item    `json:"items"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
	Polling   bool      `json:"polling"`
}

// Feed polls a Fetcher and keeps the latest answer. A failed fetch keeps the
// previous items and records the error message.
type Feed struct {
	fetcher Fetcher
	logger  *slog.Logger

	mu    sync.Mutex
	snap  Snapshot
	task  *poll.Task
	ready chan struct{}
	first sync.Once
}

// New creates a stopped Feed.
func New(fetcher Fetcher, logger *slog.Logger) *Feed {
	return &Feed{
		fetcher: fetcher,
		logger:  logger,
		snap:    Snapshot{Items: []Item{}},
		ready:   make(chan struct{}),
	}
}

// Start begins polling every interval. Starting a running feed does nothing.
func (f *Feed) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.task != nil {
		return
	}
	f.task = poll.Start(ctx, interval, f.Refresh)
	f.snap.Polling = true
}

// Stop ends polling and waits for an in-flight fetch to finish.
func (f *Feed) Stop() {
	// task.Stop waits for Refresh, which takes f.mu; release it first.
	f.mu.Lock()
	task := f.task
	f.task = nil
	f.snap.Polling = false
	f.mu.Unlock()

	if task != nil {
		task.Stop()
	}
}

// Refresh fetches once.
func (f *Feed) Refresh(ctx context.Context) {
	items, err := f.fetcher.FetchActivity(ctx)
	now := time.Now()

	// The fetch runs without the lock so Snapshot never waits on the
	// network.
	f.mu.Lock()
	defer f.mu.Unlock()
	// Deferred calls run last-in first-out: ready closes while f.mu is
	// still held, after the snapshot below is written.
	defer f.first.Do(func() { close(f.ready) })

	if err != nil {
		// cancelled by Stop: not a backend failure
		if ctx.Err() != nil {
			return
		}
		f.logger.Warn("activity fetch failed", slog.String("error", err.Error()))
		f.snap.Error = apperror.Message(err)
		return
	}

	converted := make([]Item, 0, len(items))
	for _, a := range items {
		converted = append(converted, Item{Activity: a, When: format.RelativeTimeFrom(a.Timestamp, now)})
	}
	f.snap.Items = converted
	f.snap.Error = ""
	f.snap.UpdatedAt = now
}

// Ready is closed once the first fetch has completed.
func (f *Feed) Ready() <-chan struct{} {
	return f.ready
}

// Snapshot returns the latest state.
func (f *Feed) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	// Copying the struct copies the slice header only; copy the items too so
	// callers never share memory with the next Refresh.
	snap := f.snap
	snap.Items = make([]Item, len(f.snap.Items))
	copy(snap.Items, f.snap.Items)
	return snap
}
