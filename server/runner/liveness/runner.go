package liveness

import (
	"context"
	"log/slog"
	"time"

	"github.com/olivesarenice/telegram-rag/plugin/ai/timeout"
)

// DefaultInterval is the time between two store polls.
const DefaultInterval = 300 * time.Second

// NoteCounter counts stored notes.
type NoteCounter interface {
	CountNotes(ctx context.Context) (int, error)
}

// Runner polls the note store periodically so idle connections stay warm and
// outages show up in the logs.
type Runner struct {
	store    NoteCounter
	interval time.Duration
}

// NewRunner creates a liveness runner. A non-positive interval uses DefaultInterval.
func NewRunner(store NoteCounter, interval time.Duration) *Runner {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Runner{
		store:    store,
		interval: interval,
	}
}

// Run polls once on start, then every interval until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) {
	r.RunOnce(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.RunOnce(ctx)
		case <-ctx.Done():
			slog.Info("liveness runner stopped")
			return
		}
	}
}

// RunOnce polls the store once. Failures are logged, never returned.
func (r *Runner) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, timeout.StoreTimeout)
	defer cancel()

	count, err := r.store.CountNotes(ctx)
	if err != nil {
		slog.Error("liveness check failed", "error", err)
		return
	}
	slog.Info("liveness check", "notes", count)
}
