package syncq

import (
	"context"
	"log/slog"
)

// Flusher delivers the pending activity suffix, reporting how many records
// went out. *Queue is the canonical implementation; wrappers can layer
// counting or retry policy on top.
type Flusher interface {
	Flush(ctx context.Context) (int, error)
}

// FlusherFunc adapts a function to the [Flusher] interface.
type FlusherFunc func(ctx context.Context) (int, error)

// Flush implements [Flusher].
func (f FlusherFunc) Flush(ctx context.Context) (int, error) {
	return f(ctx)
}

// Worker drains connectivity-restored signals and flushes the queue for
// signals carrying the configured tag. Other tags are ignored.
type Worker struct {
	flusher Flusher
	tag     string
	signals chan string
	logger  *slog.Logger
}

// NewWorker builds a Worker around f. The tag defaults to "sync-activities".
func NewWorker(f Flusher, tag string, logger *slog.Logger) *Worker {
	if tag == "" {
		tag = "sync-activities"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		flusher: f,
		tag:     tag,
		signals: make(chan string, 8),
		logger:  logger.With("component", "syncq.worker"),
	}
}

// Signal reports a connectivity-restored event with the given tag. It never
// blocks; a full buffer drops the signal, since a later one triggers the same
// whole-log flush.
func (w *Worker) Signal(tag string) {
	select {
	case w.signals <- tag:
	default:
	}
}

// Run consumes signals until ctx is canceled. Flush failures are logged and
// left for the next signal; the queue applies no backoff of its own.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case tag := <-w.signals:
			if tag != w.tag {
				continue
			}
			if _, err := w.flusher.Flush(ctx); err != nil {
				w.logger.Warn("sync flush failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
