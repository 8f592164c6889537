package reminder

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sandeepkv93/ritualcal/internal/docstore"
	"github.com/sandeepkv93/ritualcal/internal/model"
	"github.com/sandeepkv93/ritualcal/internal/push"
)

type recordingSender struct {
	mu      sync.Mutex
	batches [][]push.Message
	codes   map[string]string
	err     error
}

func (s *recordingSender) SendBatch(_ context.Context, msgs []push.Message) ([]push.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, msgs)
	if s.err != nil {
		return nil, s.err
	}
	out := make([]push.Result, 0, len(msgs))
	for _, m := range msgs {
		code := s.codes[m.Token]
		out = append(out, push.Result{Token: m.Token, Success: code == "", ErrorCode: code})
	}
	return out, nil
}

type storePruner struct{ store docstore.Store }

func (p storePruner) Prune(ctx context.Context, id string, tokens []string) error {
	return p.store.Update(ctx, id, docstore.Patch{RemoveTokens: tokens})
}

func seed(t *testing.T, store docstore.Store, id string, p docstore.Patch) {
	t.Helper()
	if err := store.Set(context.Background(), id, p); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func newSweeper(store docstore.Store, sender push.Sender) *Sweeper {
	return &Sweeper{
		Store:       store,
		Sender:      sender,
		Pruner:      storePruner{store},
		Location:    time.UTC,
		BroadcastAt: "19:00",
		Messages:    NewSeededMessages(7, 7),
	}
}

func TestSweepDeliversDueReminderToEveryToken(t *testing.T) {
	store := docstore.New(docstore.NewMemory())
	daily := []model.Record{{ID: "d1", Name: "Meditate", Reminder: true, Time: "08:00", StartDate: "2024-01-01"}}
	seed(t, store, "cal", docstore.Patch{Daily: &daily, AddTokens: []string{"a", "b"}})
	sender := &recordingSender{}

	report, err := newSweeper(store, sender).Run(context.Background(), time.Date(2024, 1, 2, 8, 0, 30, 0, time.UTC))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Fired != 1 || report.Sent != 2 || report.Broadcasts != 0 {
		t.Fatalf("unexpected report: %#v", report)
	}
	if len(sender.batches) != 1 || len(sender.batches[0]) != 2 {
		t.Fatalf("expected one batch for both tokens, got %#v", sender.batches)
	}
	msg := sender.batches[0][0]
	if msg.Title != ReminderTitle || msg.Calendar != "cal" || msg.Data["taskId"] != "d1" {
		t.Fatalf("unexpected message: %#v", msg)
	}
	if sender.batches[0][1].Body != msg.Body {
		t.Fatal("every device should receive the same body")
	}
}

func TestSweepSkipsCalendarsWithoutTokens(t *testing.T) {
	store := docstore.New(docstore.NewMemory())
	daily := []model.Record{{ID: "d1", Name: "Meditate", Reminder: true, Time: "19:00", StartDate: "2024-01-01"}}
	seed(t, store, "empty", docstore.Patch{Daily: &daily})
	sender := &recordingSender{}

	report, err := newSweeper(store, sender).Run(context.Background(), time.Date(2024, 1, 2, 19, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Calendars != 1 || report.Skipped != 1 || len(sender.batches) != 0 {
		t.Fatalf("unexpected report %#v batches %d", report, len(sender.batches))
	}
	doc, _ := store.Get(context.Background(), "empty")
	if doc.LastBroadcastDate != "" {
		t.Fatalf("no marker should be written for a calendar without tokens, got %q", doc.LastBroadcastDate)
	}
}

func TestSweepPrunesOnlyPermanentlyInvalidTokens(t *testing.T) {
	store := docstore.New(docstore.NewMemory())
	weekly := []model.Record{{ID: "w1", Name: "Laundry", Reminder: true, Time: "09:15", Day: "friday"}}
	seed(t, store, "cal", docstore.Patch{Weekly: &weekly, AddTokens: []string{"good", "gone", "flaky"}})
	sender := &recordingSender{codes: map[string]string{
		"gone":  "messaging/" + push.CodeNotRegistered,
		"flaky": push.CodeUnavailable,
	}}

	report, err := newSweeper(store, sender).Run(context.Background(), time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Sent != 1 || report.Failed != 2 || report.Pruned != 1 {
		t.Fatalf("unexpected report: %#v", report)
	}
	doc, err := store.Get(context.Background(), "cal")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(doc.Tokens) != 2 || doc.Tokens[0] != "good" || doc.Tokens[1] != "flaky" {
		t.Fatalf("unexpected tokens after prune: %v", doc.Tokens)
	}
}

func TestSweepBroadcastsAtMostOncePerDay(t *testing.T) {
	store := docstore.New(docstore.NewMemory())
	seed(t, store, "cal", docstore.Patch{AddTokens: []string{"a"}})
	sender := &recordingSender{}
	sweeper := newSweeper(store, sender)
	evening := time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC)

	first, err := sweeper.Run(context.Background(), evening)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := sweeper.Run(context.Background(), evening.Add(20*time.Second))
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if first.Broadcasts != 1 || second.Broadcasts != 0 || len(sender.batches) != 1 {
		t.Fatalf("expected a single broadcast, got %#v then %#v (%d batches)", first, second, len(sender.batches))
	}
	if sender.batches[0][0].Title != BroadcastTitle {
		t.Fatalf("unexpected broadcast title %q", sender.batches[0][0].Title)
	}
	doc, _ := store.Get(context.Background(), "cal")
	if doc.LastBroadcastDate != "2024-03-01" {
		t.Fatalf("expected marker for today, got %q", doc.LastBroadcastDate)
	}

	next, err := sweeper.Run(context.Background(), evening.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("next day run: %v", err)
	}
	if next.Broadcasts != 1 {
		t.Fatalf("expected broadcast on the next day, got %#v", next)
	}
}

func TestSweepReleasesBroadcastClaimWhenBatchFails(t *testing.T) {
	store := docstore.New(docstore.NewMemory())
	seed(t, store, "cal", docstore.Patch{AddTokens: []string{"a"}})
	sender := &recordingSender{err: errors.New("gateway down")}

	report, err := newSweeper(store, sender).Run(context.Background(), time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Broadcasts != 0 || report.Failed != 1 {
		t.Fatalf("unexpected report: %#v", report)
	}
	doc, _ := store.Get(context.Background(), "cal")
	if doc.LastBroadcastDate != "" {
		t.Fatalf("marker should be released after a failed batch, got %q", doc.LastBroadcastDate)
	}
}

func TestSweepAbortsWhenCalendarsCannotBeListed(t *testing.T) {
	mem := docstore.NewMemory()
	store := docstore.New(mem)
	seed(t, store, "cal", docstore.Patch{AddTokens: []string{"a"}})
	mem.Fail = func(op, _ string) error {
		if op == "list" {
			return docstore.ErrUnavailable
		}
		return nil
	}
	sender := &recordingSender{}

	_, err := newSweeper(store, sender).Run(context.Background(), time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC))
	if !errors.Is(err, docstore.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if len(sender.batches) != 0 {
		t.Fatal("nothing should be sent when the sweep aborts")
	}
}
