package scheduler

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrInvalidInterval = errors.New("scheduler: invalid interval")
	ErrStopped         = errors.New("scheduler: engine stopped")
)

// Tick is one cadence boundary.
type Tick struct {
	At time.Time
}

// Engine emits a Tick at every multiple of its interval. Ticks are never
// queued: when the consumer is still busy the tick is dropped and counted,
// so a missed minute is simply skipped.
type Engine struct {
	interval time.Duration
	mu       sync.Mutex
	out      chan Tick
	stopCh   chan struct{}
	doneCh   chan struct{}
	started  bool
	stopped  bool
	dropped  atomic.Uint64
	emitted  atomic.Uint64

	// Now defaults to time.Now.
	Now func() time.Time
}

func NewEngine(interval time.Duration) (*Engine, error) {
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	return &Engine{
		interval: interval,
		out:      make(chan Tick, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		Now:      time.Now,
	}, nil
}

func (e *Engine) C() <-chan Tick {
	return e.out
}

func (e *Engine) Interval() time.Duration { return e.interval }

func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return ErrStopped
	}
	if e.started {
		return nil
	}
	e.started = true
	go e.loop()
	return nil
}

func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.started || e.stopped {
		e.stopped = true
		e.mu.Unlock()
		return
	}
	e.stopped = true
	close(e.stopCh)
	e.mu.Unlock()
	<-e.doneCh
}

func (e *Engine) Dropped() uint64 { return e.dropped.Load() }

func (e *Engine) Emitted() uint64 { return e.emitted.Load() }

// Next returns the first interval boundary strictly after t.
func (e *Engine) Next(t time.Time) time.Time {
	return t.Truncate(e.interval).Add(e.interval)
}

func (e *Engine) loop() {
	defer close(e.doneCh)
	defer close(e.out)

	var timer *time.Timer
	for {
		now := e.Now()
		next := e.Next(now)
		timer = resetTimer(timer, next.Sub(now))

		select {
		case <-timer.C:
			select {
			case e.out <- Tick{At: next}:
				e.emitted.Add(1)
			default:
				e.dropped.Add(1)
			}
		case <-e.stopCh:
			stopTimer(timer)
			return
		}
	}
}

func resetTimer(timer *time.Timer, d time.Duration) *time.Timer {
	if d < 0 {
		d = 0
	}
	if timer == nil {
		return time.NewTimer(d)
	}
	stopTimer(timer)
	timer.Reset(d)
	return timer
}

func stopTimer(timer *time.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
}
