package reminder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/sandeepkv93/ritualcal/internal/docstore"
	"github.com/sandeepkv93/ritualcal/internal/model"
	"github.com/sandeepkv93/ritualcal/internal/push"
)

// Pruner removes tokens the transport reported as permanently invalid.
type Pruner interface {
	Prune(ctx context.Context, calendarID string, tokens []string) error
}

// Report summarises one sweep.
type Report struct {
	Calendars  int `json:"calendars"`
	Skipped    int `json:"skipped"`
	Fired      int `json:"fired"`
	Sent       int `json:"sent"`
	Failed     int `json:"failed"`
	Pruned     int `json:"pruned"`
	Broadcasts int `json:"broadcasts"`
}

// Sweeper runs the server-side reminder pass over every calendar.
type Sweeper struct {
	Store       docstore.Store
	Sender      push.Sender
	Pruner      Pruner
	Location    *time.Location
	BroadcastAt model.ClockTime
	Policy      Policy
	Messages    *Messages
	Logger      *slog.Logger
}

func (s *Sweeper) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s.Logger
}

// Run performs the sweep for the minute containing at. Failing to list the
// calendars aborts the sweep before anything is sent; delivery failures for
// single calendars are logged and counted.
func (s *Sweeper) Run(ctx context.Context, at time.Time) (Report, error) {
	var report Report
	docs, err := s.Store.List(ctx)
	if err != nil {
		return report, fmt.Errorf("list calendars: %w", err)
	}
	messages := s.Messages
	if messages == nil {
		messages = NewMessages()
	}
	broadcastAt := s.BroadcastAt
	if broadcastAt == "" {
		broadcastAt = DefaultBroadcastTime
	}
	now := ResolveNow(at, s.Location)
	log := s.logger()

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Calendars++
		if len(doc.Tokens) == 0 {
			report.Skipped++
			continue
		}
		cal := &calendarRun{sweeper: s, messages: messages, doc: doc, tokens: slices.Clone(doc.Tokens), report: &report, log: log.With("calendar", doc.ID)}

		lists, problems := doc.Lists(s.Location)
		for _, p := range problems {
			cal.log.Debug("skipping malformed task", "error", p)
		}
		for _, due := range Match(lists, now, s.Policy) {
			report.Fired++
			title, body := messages.Reminder(due.Name)
			if err := cal.deliver(ctx, title, body, map[string]string{"taskId": due.TaskID, "kind": string(due.Kind)}); err != nil {
				cal.log.Error("reminder delivery failed", "task", due.TaskID, "error", err)
			}
		}
		if BroadcastDue(now, broadcastAt, doc.LastBroadcastDate) {
			cal.broadcast(ctx, now.Date)
		}
	}

	log.Info("reminder sweep finished",
		"date", now.Date, "time", now.Clock,
		"calendars", report.Calendars, "skipped", report.Skipped, "fired", report.Fired,
		"sent", report.Sent, "failed", report.Failed, "pruned", report.Pruned, "broadcasts", report.Broadcasts)
	return report, nil
}

type calendarRun struct {
	sweeper  *Sweeper
	messages *Messages
	doc      model.Document
	tokens   []string
	report   *Report
	log      *slog.Logger
}

// deliver fans one notification out to every live token and prunes the
// tokens reported invalid.
func (c *calendarRun) deliver(ctx context.Context, title, body string, data map[string]string) error {
	if len(c.tokens) == 0 {
		return nil
	}
	msgs := make([]push.Message, 0, len(c.tokens))
	for _, tok := range c.tokens {
		msgs = append(msgs, push.Message{Token: tok, Title: title, Body: body, Calendar: c.doc.ID, Data: data})
	}
	results, err := c.sweeper.Sender.SendBatch(ctx, msgs)
	if err != nil {
		c.report.Failed += len(msgs)
		return err
	}
	for _, r := range results {
		if r.Success {
			c.report.Sent++
		} else {
			c.report.Failed++
		}
	}

	invalid := push.InvalidTokens(results)
	if len(invalid) == 0 || c.sweeper.Pruner == nil {
		return nil
	}
	if err := c.sweeper.Pruner.Prune(ctx, c.doc.ID, invalid); err != nil {
		c.log.Error("prune invalid tokens failed", "count", len(invalid), "error", err)
		return nil
	}
	c.report.Pruned += len(invalid)
	c.tokens = slices.DeleteFunc(c.tokens, func(tok string) bool { return slices.Contains(invalid, tok) })
	return nil
}

// broadcast claims today's marker before sending so that overlapping sweeps
// deliver it once. A batch that cannot be attempted releases the claim.
func (c *calendarRun) broadcast(ctx context.Context, today model.Date) {
	store := c.sweeper.Store
	err := store.Update(ctx, c.doc.ID, docstore.ClaimBroadcast(today))
	switch {
	case errors.Is(err, docstore.ErrPrecondition):
		return
	case err != nil:
		c.log.Error("claim broadcast failed", "error", err)
		return
	}

	title, body := c.messages.Broadcast()
	if err := c.deliver(ctx, title, body, map[string]string{"kind": "broadcast"}); err != nil {
		c.log.Error("broadcast delivery failed", "error", err)
		prev := c.doc.LastBroadcastDate
		if rerr := store.Update(context.WithoutCancel(ctx), c.doc.ID, docstore.Patch{LastBroadcastDate: &prev}); rerr != nil {
			c.log.Error("release broadcast claim failed", "error", rerr)
		}
		return
	}
	c.report.Broadcasts++
}
