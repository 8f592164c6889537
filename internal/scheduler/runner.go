package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var ErrBusy = errors.New("scheduler: job already running")

// Job is one unit of scheduled work.
type Job func(ctx context.Context, at time.Time) error

// Runner executes a Job with at most one execution in flight, whether it was
// triggered by the engine or on demand.
type Runner struct {
	job     Job
	log     *slog.Logger
	mu      sync.Mutex
	skipped atomic.Uint64
}

// NewRunner returns a Runner for job; job may be nil when only Exclusive is used.
func NewRunner(job Job, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Runner{job: job, log: logger}
}

// Trigger runs the job now unless another execution is in progress, in which
// case it returns ErrBusy without waiting.
func (r *Runner) Trigger(ctx context.Context, at time.Time) error {
	return r.Exclusive(ctx, func(ctx context.Context) error {
		if r.job == nil {
			return nil
		}
		return r.job(ctx, at)
	})
}

// Exclusive runs fn under the same single-execution guard as the job.
func (r *Runner) Exclusive(ctx context.Context, fn func(context.Context) error) error {
	if !r.mu.TryLock() {
		r.skipped.Add(1)
		return ErrBusy
	}
	defer r.mu.Unlock()
	return fn(ctx)
}

func (r *Runner) Skipped() uint64 { return r.skipped.Load() }

// Run drives the job from the engine's ticks until ctx ends or the engine
// stops. Job errors are logged; the next tick is the retry.
func (r *Runner) Run(ctx context.Context, engine *Engine) error {
	if err := engine.Start(); err != nil {
		return err
	}
	defer engine.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case tick, ok := <-engine.C():
			if !ok {
				return ErrStopped
			}
			err := r.Trigger(ctx, tick.At)
			switch {
			case errors.Is(err, ErrBusy):
				r.log.Warn("scheduled run skipped, previous run still active", "at", tick.At)
			case err != nil:
				r.log.Error("scheduled run failed", "at", tick.At, "error", err)
			}
		}
	}
}
