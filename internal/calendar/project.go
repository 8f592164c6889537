package calendar

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sandeepkv93/ritualcal/internal/model"
)

// MaxWindowDays bounds one projection.
const MaxWindowDays = 366

const recurringDefaultTime model.ClockTime = "00:00"

var (
	ErrWindow  = errors.New("calendar: invalid projection window")
	ErrEventID = errors.New("calendar: malformed event id")
)

type Event struct {
	ID        string          `json:"id"`
	TaskID    string          `json:"taskId"`
	Kind      model.Kind      `json:"kind"`
	Title     string          `json:"title"`
	Date      model.Date      `json:"date"`
	Time      model.ClockTime `json:"time,omitempty"`
	AllDay    bool            `json:"allDay"`
	Completed bool            `json:"completed"`
	Class     string          `json:"className"`
}

// Project expands every scheduled task into one event per occurrence in the
// inclusive range [from, to].
func Project(l model.Lists, from, to model.Date) ([]Event, error) {
	if !from.Valid() || !to.Valid() || to.Before(from) {
		return nil, fmt.Errorf("%w: %q..%q", ErrWindow, from, to)
	}
	days := int(to.In(time.UTC).Sub(from.In(time.UTC)).Hours()/24) + 1
	if days > MaxWindowDays {
		return nil, fmt.Errorf("%w: %d days exceeds %d", ErrWindow, days, MaxWindowDays)
	}

	var out []Event
	for _, t := range l.Daily {
		if !t.Active {
			continue
		}
		first := from
		if first.Before(t.StartDate) {
			first = t.StartDate
		}
		for d := first; !d.After(to); d = d.AddDays(1) {
			if t.OccursOn(d) {
				out = append(out, newEvent(t, d))
			}
		}
	}
	for _, t := range l.Weekly {
		if !t.Day.IsValid() {
			continue
		}
		first, _ := t.OccurrenceInWeek(from)
		if first.Before(from) {
			first = first.AddDays(7)
		}
		for d := first; !d.After(to); d = d.AddDays(7) {
			out = append(out, newEvent(t, d))
		}
	}
	for _, t := range l.Master {
		if !t.CreatedDate.Before(from) && !t.CreatedDate.After(to) {
			out = append(out, newEvent(t, t.CreatedDate))
		}
	}
	sortEvents(out)
	return out, nil
}

// Window returns the range of days starting at from.
func Window(from model.Date, days int) (model.Date, model.Date) {
	if days < 1 {
		days = 1
	}
	if days > MaxWindowDays {
		days = MaxWindowDays
	}
	return from, from.AddDays(days - 1)
}

func newEvent(t model.Occurrence, d model.Date) Event {
	ev := Event{
		ID:        EventID(t.TaskKind(), t.TaskID(), d),
		TaskID:    t.TaskID(),
		Kind:      t.TaskKind(),
		Title:     t.Title(),
		Date:      d,
		Completed: t.IsComplete(d),
	}
	at := taskTime(t)
	switch {
	case at != "":
		ev.Time = at
	case t.TaskKind() == model.KindMaster:
		ev.AllDay = true
	default:
		ev.Time = recurringDefaultTime
	}
	ev.Class = "event-" + string(ev.Kind)
	if ev.Completed {
		ev.Class += " completed"
	}
	return ev
}

func taskTime(t model.Occurrence) model.ClockTime {
	switch v := t.(type) {
	case model.DailyTask:
		return validTime(v.Time)
	case model.WeeklyTask:
		return validTime(v.Time)
	case model.MasterTask:
		return validTime(v.Time)
	}
	return ""
}

func validTime(c model.ClockTime) model.ClockTime {
	if c.Valid() {
		return c
	}
	return ""
}

var kindOrder = map[model.Kind]int{model.KindDaily: 0, model.KindWeekly: 1, model.KindMaster: 2}

func sortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.AllDay != b.AllDay {
			return a.AllDay
		}
		if a.Time != b.Time {
			return a.Time < b.Time
		}
		if kindOrder[a.Kind] != kindOrder[b.Kind] {
			return kindOrder[a.Kind] < kindOrder[b.Kind]
		}
		return a.Title < b.Title
	})
}

// EventID encodes the occurrence an event stands for, so a click can be
// routed back to a task and date.
func EventID(kind model.Kind, taskID string, d model.Date) string {
	return string(kind) + ":" + taskID + ":" + string(d)
}

func ParseEventID(id string) (model.Kind, string, model.Date, error) {
	first := strings.Index(id, ":")
	last := strings.LastIndex(id, ":")
	if first <= 0 || last <= first+1 {
		return "", "", "", fmt.Errorf("%w: %q", ErrEventID, id)
	}
	kind, err := model.ParseKind(id[:first])
	if err != nil || !kind.Scheduled() {
		return "", "", "", fmt.Errorf("%w: %q", ErrEventID, id)
	}
	d, err := model.ParseDate(id[last+1:])
	if err != nil {
		return "", "", "", fmt.Errorf("%w: %q", ErrEventID, id)
	}
	return kind, id[first+1 : last], d, nil
}

// MonthGrid returns the six Monday-first weeks that cover the month of d.
func MonthGrid(d model.Date) [6][7]model.Date {
	var grid [6][7]model.Date
	t := d.In(time.UTC)
	if t.IsZero() {
		return grid
	}
	first := model.DateOf(time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC))
	offset := (int(first.Weekday().TimeWeekday()) + 6) % 7
	start := first.AddDays(-offset)
	for w := 0; w < 6; w++ {
		for i := 0; i < 7; i++ {
			grid[w][i] = start.AddDays(w*7 + i)
		}
	}
	return grid
}

// ByDate groups events by their date.
func ByDate(events []Event) map[model.Date][]Event {
	out := make(map[model.Date][]Event)
	for _, ev := range events {
		out[ev.Date] = append(out[ev.Date], ev)
	}
	return out
}
