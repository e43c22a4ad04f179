// Package poll runs a function on a fixed interval until it is stopped.
//
// LIFECYCLE OF A TASK:
//
//	Start ──▶ fn ──▶ wait for tick ──▶ fn ──▶ ... ──▶ Stop / ctx done ──▶ done closed
//
// Two channels drive it. The context tells the goroutine to finish; the done
// channel tells the caller that it has finished. Stop uses both, so when it
// returns no fn call is running any more and none will start. Callers can
// then release whatever fn touches (a session, a database) without a race.
package poll

import (
	"context"
	"sync"
	"time"
)

// Task is a running poll loop.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Start calls fn immediately and then every interval until Stop is called or
// ctx is cancelled. Ticks never overlap: a slow fn delays the next one.
func Start(ctx context.Context, interval time.Duration, fn func(context.Context)) *Task {
	ctx, cancel := context.WithCancel(ctx)
	t := &Task{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			fn(ctx)
			// A ticker drops ticks nobody receives, so a fn that runs longer
			// than interval is followed by at most one immediate call.
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// select picks randomly among ready cases; re-check so a
				// cancelled task never calls fn once more.
				if ctx.Err() != nil {
					return
				}
			}
		}
	}()

	return t
}

// Stop cancels the loop and returns once fn has returned for the last time.
// It is safe to call more than once and from several goroutines.
func (t *Task) Stop() {
	// sync.Once: concurrent Stops cancel once and all wait on done.
	t.once.Do(t.cancel)
	<-t.done
}

// Done is closed when the loop has exited.
func (t *Task) Done() <-chan struct{} {
	return t.done
}
