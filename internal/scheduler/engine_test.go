package scheduler

import (
	"testing"
	"time"
)

func TestEngineEmitsOnIntervalBoundaries(t *testing.T) {
	engine, err := NewEngine(20 * time.Millisecond)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := engine.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer engine.Stop()

	first := waitTick(t, engine.C(), time.Second)
	second := waitTick(t, engine.C(), time.Second)
	if !second.At.After(first.At) {
		t.Fatalf("ticks out of order: %v then %v", first.At, second.At)
	}
	for _, tick := range []Tick{first, second} {
		if !tick.At.Equal(tick.At.Truncate(20 * time.Millisecond)) {
			t.Fatalf("tick not aligned to interval: %v", tick.At)
		}
	}
}

func TestEngineDropsTicksWhenConsumerIsSlow(t *testing.T) {
	engine, err := NewEngine(5 * time.Millisecond)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if err := engine.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer engine.Stop()

	time.Sleep(120 * time.Millisecond)
	if engine.Dropped() == 0 {
		t.Fatalf("expected dropped ticks > 0, got %d", engine.Dropped())
	}
	if engine.Emitted() != 1 {
		t.Fatalf("expected exactly one buffered tick, got %d", engine.Emitted())
	}
}

func TestNewEngineValidatesInterval(t *testing.T) {
	if _, err := NewEngine(0); err != ErrInvalidInterval {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestNextIsStrictlyAfter(t *testing.T) {
	engine, _ := NewEngine(time.Minute)
	on := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	if got := engine.Next(on); !got.Equal(on.Add(time.Minute)) {
		t.Fatalf("unexpected next for boundary: %v", got)
	}
	if got := engine.Next(on.Add(59 * time.Second)); !got.Equal(on.Add(time.Minute)) {
		t.Fatalf("unexpected next mid-minute: %v", got)
	}
}

func TestStopBeforeStartPreventsStart(t *testing.T) {
	engine, _ := NewEngine(time.Minute)
	engine.Stop()
	if err := engine.Start(); err != ErrStopped {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func waitTick(t *testing.T, ch <-chan Tick, timeout time.Duration) Tick {
	t.Helper()
	select {
	case tick := <-ch:
		return tick
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for tick")
		return Tick{}
	}
}
