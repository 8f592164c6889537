package docstore

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/sandeepkv93/ritualcal/internal/model"
)

func TestClientMarksLocalWritesPending(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	block := make(chan struct{})
	var blocking atomic.Bool
	blocking.Store(true)
	mem.Fail = func(op, id string) error {
		if op == "mutate" && blocking.Load() {
			<-block
		}
		return nil
	}
	client := NewClient(New(mem), nil)
	ch, fn := collect()
	unsubscribe, err := client.Subscribe(ctx, "cal", fn, nil)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsubscribe()
	waitSnapshot(t, ch, func(s Snapshot) bool { return !s.Exists })

	rules := []model.Entry{{ID: "r1", Text: "Walk"}}
	done := make(chan error, 1)
	go func() { done <- client.Set(ctx, "cal", Patch{Rules: &rules}) }()

	pending := waitSnapshot(t, ch, func(s Snapshot) bool { return s.Metadata.HasPendingWrites })
	if len(pending.Document.Rules) != 1 || !pending.Exists {
		t.Fatalf("pending snapshot missing local write: %#v", pending)
	}

	blocking.Store(false)
	close(block)
	if err := <-done; err != nil {
		t.Fatalf("set: %v", err)
	}
	acked := waitSnapshot(t, ch, func(s Snapshot) bool { return !s.Metadata.HasPendingWrites && s.Exists })
	if len(acked.Document.Rules) != 1 {
		t.Fatalf("acknowledged snapshot lost the write: %#v", acked)
	}
	if client.Pending("cal") != 0 {
		t.Fatalf("expected no pending writes, got %d", client.Pending("cal"))
	}
}

func TestClientQueuesOfflineWritesForReplay(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	var offline atomic.Bool
	offline.Store(true)
	mem.Fail = func(op, id string) error {
		if op == "mutate" && offline.Load() {
			return fmt.Errorf("%w: network down", ErrUnavailable)
		}
		return nil
	}
	client := NewClient(New(mem), nil)

	rules := []model.Entry{{ID: "r1", Text: "Walk"}}
	if err := client.Set(ctx, "cal", Patch{Rules: &rules}); !IsConnectivity(err) {
		t.Fatalf("expected connectivity error, got %v", err)
	}
	if client.Pending("cal") != 1 {
		t.Fatalf("expected write to stay queued, got %d", client.Pending("cal"))
	}
	if err := client.Replay(ctx); !IsConnectivity(err) {
		t.Fatalf("expected replay to stop while offline, got %v", err)
	}

	offline.Store(false)
	if err := client.Replay(ctx); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if client.Pending("cal") != 0 {
		t.Fatalf("expected queue drained, got %d", client.Pending("cal"))
	}
	doc, err := client.Get(ctx, "cal")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(doc.Rules) != 1 {
		t.Fatalf("replayed write missing: %#v", doc)
	}
}

func TestClientDropsRejectedWrites(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	mem.Fail = func(op, id string) error {
		if op == "mutate" {
			return ErrPermissionDenied
		}
		return nil
	}
	client := NewClient(New(mem), nil)
	rules := []model.Entry{{ID: "r1", Text: "Walk"}}
	if err := client.Set(ctx, "cal", Patch{Rules: &rules}); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if client.Pending("cal") != 0 {
		t.Fatal("rejected write must not stay pending")
	}
}
