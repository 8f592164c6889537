package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrExhausted = errors.New("retry: attempts exhausted")

// Policy is a capped exponential backoff. Attempt n (1-based) that fails is
// followed by a wait of Base*2^(n-1), never more than Cap.
type Policy struct {
	MaxAttempts int
	Base        time.Duration
	Cap         time.Duration
}

var (
	Generic      = Policy{MaxAttempts: 5, Base: 2 * time.Second, Cap: 30 * time.Second}
	Connectivity = Policy{MaxAttempts: 5, Base: 5 * time.Second, Cap: 60 * time.Second}
)

func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 || p.Base <= 0 {
		return 0
	}
	d := p.Base
	for i := 1; i < attempt; i++ {
		d *= 2
		if p.Cap > 0 && d >= p.Cap {
			return p.Cap
		}
	}
	if p.Cap > 0 && d > p.Cap {
		return p.Cap
	}
	return d
}

type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Supervisor runs an operation until it succeeds, the context ends, or the
// policy chosen for the latest error runs out of attempts.
type Supervisor struct {
	Generic        Policy
	Connectivity   Policy
	IsConnectivity func(error) bool
	Clock          Clock
	// OnRetry, when set, observes every failed attempt that will be retried.
	OnRetry func(attempt int, wait time.Duration, err error)
}

func NewSupervisor(isConnectivity func(error) bool) *Supervisor {
	return &Supervisor{
		Generic:        Generic,
		Connectivity:   Connectivity,
		IsConnectivity: isConnectivity,
		Clock:          systemClock{},
	}
}

func (s *Supervisor) policyFor(err error) Policy {
	if s.IsConnectivity != nil && s.IsConnectivity(err) {
		return s.Connectivity
	}
	return s.Generic
}

func (s *Supervisor) Do(ctx context.Context, op func(context.Context) error) error {
	clock := s.Clock
	if clock == nil {
		clock = systemClock{}
	}
	for attempt := 1; ; attempt++ {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		policy := s.policyFor(err)
		if attempt >= policy.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempt, err)
		}
		wait := policy.Delay(attempt)
		if s.OnRetry != nil {
			s.OnRetry(attempt, wait, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clock.After(wait):
		}
	}
}
