package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/autodocwriter/autodoc/internal/activity"
	"github.com/autodocwriter/autodoc/internal/session"
)

// activityTask is the session task name of the activity poll.
const activityTask = "activity"

// firstFetchWait bounds how long the first request waits for the feed.
const firstFetchWait = 3 * time.Second

// ActivityHandler serves the activity feed. The first visit starts a poll
// bound to the session; Logout stops it.
type ActivityHandler struct {
	ctx      context.Context
	interval time.Duration
	logger   *slog.Logger
}

// NewActivityHandler creates an ActivityHandler. Polls started by it end
// when ctx is cancelled.
func NewActivityHandler(ctx context.Context, interval time.Duration, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{ctx: ctx, interval: interval, logger: logger}
}

// HandleActivity renders the feed as last polled.
//
// HTTP: GET /activity
func (h *ActivityHandler) HandleActivity(w http.ResponseWriter, r *http.Request) {
	p, err := profileOf(r)
	if err != nil {
		writeError(w, err)
		return
	}

	feed := p.Session.EnsureTask(activityTask, func() session.Stopper {
		f := activity.New(p.API, h.logger.With(slog.String("profile", p.ID)))
		f.Start(h.ctx, h.interval)
		return f
	}).(*activity.Feed)

	select {
	case <-feed.Ready():
	case <-time.After(firstFetchWait):
	case <-r.Context().Done():
		return
	}
	writeJSON(w, http.StatusOK, feed.Snapshot())
}
