package reminder

import (
	"io"
	"log/slog"
	"time"

	"github.com/sandeepkv93/ritualcal/internal/model"
)

// ListSource yields the current in-memory lists.
type ListSource interface {
	Lists() model.Lists
}

// BroadcastLedger remembers the last day the broadcast was shown locally.
type BroadcastLedger interface {
	LastBroadcastShown() (model.Date, error)
	SetLastBroadcastShown(model.Date) error
}

// Notification is one locally shown reminder.
type Notification struct {
	TaskID string
	Kind   model.Kind
	Title  string
	Body   string
}

// Fallback runs the matcher against client-local time. It is used when the
// server-side path cannot be confirmed, and keeps its own broadcast ledger
// so the evening message shows at most once a day per device.
type Fallback struct {
	Source      ListSource
	Ledger      BroadcastLedger
	Notifier    Notifier
	Location    *time.Location
	BroadcastAt model.ClockTime
	Policy      Policy
	Messages    *Messages
	Logger      *slog.Logger
}

// Tick evaluates the minute containing at and returns what was shown.
func (f *Fallback) Tick(at time.Time) []Notification {
	log := f.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if f.Messages == nil {
		f.Messages = NewMessages()
	}
	notifier := f.Notifier
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	now := ResolveNow(at, f.Location)

	var shown []Notification
	for _, due := range Match(f.Source.Lists(), now, f.Policy) {
		title, body := f.Messages.Reminder(due.Name)
		if err := notifier.Notify(title, body); err != nil {
			log.Debug("desktop notification failed", "task", due.TaskID, "error", err)
		}
		shown = append(shown, Notification{TaskID: due.TaskID, Kind: due.Kind, Title: title, Body: body})
	}

	broadcastAt := f.BroadcastAt
	if broadcastAt == "" {
		broadcastAt = DefaultBroadcastTime
	}
	if f.Ledger == nil {
		return shown
	}
	last, err := f.Ledger.LastBroadcastShown()
	if err != nil {
		log.Error("read broadcast ledger", "error", err)
		return shown
	}
	if !BroadcastDue(now, broadcastAt, last) {
		return shown
	}
	if err := f.Ledger.SetLastBroadcastShown(now.Date); err != nil {
		log.Error("write broadcast ledger", "error", err)
		return shown
	}
	title, body := f.Messages.Broadcast()
	if err := notifier.Notify(title, body); err != nil {
		log.Debug("desktop notification failed", "error", err)
	}
	return append(shown, Notification{Title: title, Body: body})
}
