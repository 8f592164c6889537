package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidKind  = errors.New("model: invalid list kind")
	ErrInactiveTask = errors.New("model: task is inactive")
	ErrNoOccurrence = errors.New("model: task has no occurrence on date")
	ErrReminderTime = errors.New("model: reminder requires a time")
	ErrReminderDay  = errors.New("model: weekly reminder requires a weekday")
	errMissingID    = errors.New("model: task id is required")
	errMissingName  = errors.New("model: task name is required")
	errMissingDate  = errors.New("model: master task created_date is required")
	errMissingEntry = errors.New("model: entry text is required")
)

type Kind string

const (
	KindDaily  Kind = "daily"
	KindWeekly Kind = "weekly"
	KindMaster Kind = "master"
	KindRules  Kind = "rules"
	KindBans   Kind = "bans"
)

// Kinds lists every list kind in display order.
var Kinds = []Kind{KindDaily, KindWeekly, KindMaster, KindRules, KindBans}

func ParseKind(raw string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(raw)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, raw)
	}
	return k, nil
}

func (k Kind) IsValid() bool {
	switch k {
	case KindDaily, KindWeekly, KindMaster, KindRules, KindBans:
		return true
	default:
		return false
	}
}

// Scheduled reports whether tasks of this kind produce dated occurrences.
func (k Kind) Scheduled() bool {
	return k == KindDaily || k == KindWeekly || k == KindMaster
}

// Occurrence is the view shared by every scheduled task variant.
type Occurrence interface {
	TaskID() string
	TaskKind() Kind
	Title() string
	OccursOn(d Date) bool
	IsComplete(d Date) bool
	ReminderTime() (ClockTime, bool)
}

type Base struct {
	ID          string
	Name        string
	Description string
	Reminder    bool
	Time        ClockTime
}

func (b Base) TaskID() string { return b.ID }

func (b Base) Title() string { return b.Name }

// ReminderTime returns the time of day a reminder fires, if any.
func (b Base) ReminderTime() (ClockTime, bool) {
	if !b.Reminder || !b.Time.Valid() {
		return "", false
	}
	return b.Time, true
}

func (b Base) validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return errMissingID
	}
	if strings.TrimSpace(b.Name) == "" {
		return errMissingName
	}
	if b.Reminder && !b.Time.Valid() {
		return fmt.Errorf("%w: %q", ErrReminderTime, b.Time)
	}
	if b.Time != "" && !b.Time.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidClock, b.Time)
	}
	return nil
}

type DailyTask struct {
	Base
	StartDate  Date
	Active     bool
	Completion Completion
}

func (t DailyTask) TaskKind() Kind { return KindDaily }

// OccursOn reports whether t has an occurrence on d. A task decoded without
// any recoverable start date has no floor.
func (t DailyTask) OccursOn(d Date) bool {
	if !t.Active || !d.Valid() {
		return false
	}
	return !d.Before(t.StartDate)
}

func (t DailyTask) IsComplete(d Date) bool {
	return t.Active && t.Completion.Has(d)
}

// ToggleCompletion flips the completion of the occurrence on d.
func (t *DailyTask) ToggleCompletion(d Date) error {
	if !d.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidDate, d)
	}
	if !t.Active {
		return fmt.Errorf("%w: %s", ErrInactiveTask, t.ID)
	}
	if !t.OccursOn(d) {
		return fmt.Errorf("%w: %s on %s", ErrNoOccurrence, t.ID, d)
	}
	t.Completion.Toggle(d)
	return nil
}

func (t DailyTask) Validate() error {
	if err := t.validate(); err != nil {
		return err
	}
	if t.StartDate != "" && !t.StartDate.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidDate, t.StartDate)
	}
	return nil
}

type WeeklyTask struct {
	Base
	Day        Weekday
	Completion Completion
}

func (t WeeklyTask) TaskKind() Kind { return KindWeekly }

func (t WeeklyTask) OccursOn(d Date) bool {
	return t.Day.IsValid() && d.Valid() && d.Weekday() == t.Day
}

func (t WeeklyTask) IsComplete(d Date) bool {
	return t.Completion.Has(d)
}

func (t *WeeklyTask) ToggleCompletion(d Date) error {
	if !d.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidDate, d)
	}
	if !t.OccursOn(d) {
		return fmt.Errorf("%w: %s on %s", ErrNoOccurrence, t.ID, d)
	}
	t.Completion.Toggle(d)
	return nil
}

// OccurrenceInWeek returns the date of this task's occurrence in the ISO week
// (Monday first) containing d.
func (t WeeklyTask) OccurrenceInWeek(d Date) (Date, bool) {
	if !t.Day.IsValid() || !d.Valid() {
		return "", false
	}
	offset := (int(d.Weekday().TimeWeekday()) + 6) % 7
	monday := d.AddDays(-offset)
	target := (int(t.Day.TimeWeekday()) + 6) % 7
	return monday.AddDays(target), true
}

func (t WeeklyTask) Validate() error {
	if err := t.validate(); err != nil {
		return err
	}
	if t.Reminder && !t.Day.IsValid() {
		return fmt.Errorf("%w: %q", ErrReminderDay, t.Day)
	}
	if t.Day != "" && !t.Day.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidWeekday, t.Day)
	}
	return nil
}

type MasterTask struct {
	Base
	CreatedDate Date
	Completed   bool
	CompletedAt *time.Time
}

func (t MasterTask) TaskKind() Kind { return KindMaster }

func (t MasterTask) OccursOn(d Date) bool {
	return d.Valid() && d == t.CreatedDate
}

// IsComplete ignores d: a master task has a single occurrence.
func (t MasterTask) IsComplete(Date) bool {
	return t.Completed
}

func (t *MasterTask) ToggleCompletion(now time.Time) {
	if t.Completed {
		t.Completed = false
		t.CompletedAt = nil
		return
	}
	at := now.UTC()
	t.Completed = true
	t.CompletedAt = &at
}

func (t MasterTask) Validate() error {
	if err := t.validate(); err != nil {
		return err
	}
	if !t.CreatedDate.Valid() {
		return errMissingDate
	}
	return nil
}

// Entry is a plain-text rule or ban.
type Entry struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

func (e Entry) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return errMissingID
	}
	if strings.TrimSpace(e.Text) == "" {
		return errMissingEntry
	}
	return nil
}

// Lists is the full set of task lists held by one calendar.
type Lists struct {
	Daily  []DailyTask
	Weekly []WeeklyTask
	Master []MasterTask
	Rules  []Entry
	Bans   []Entry
}

// Scheduled returns every task that can produce occurrences, in list order.
func (l Lists) Scheduled() []Occurrence {
	out := make([]Occurrence, 0, len(l.Daily)+len(l.Weekly)+len(l.Master))
	for _, t := range l.Daily {
		out = append(out, t)
	}
	for _, t := range l.Weekly {
		out = append(out, t)
	}
	for _, t := range l.Master {
		out = append(out, t)
	}
	return out
}

// Clone returns a deep copy so callers can mutate without aliasing.
func (l Lists) Clone() Lists {
	out := Lists{
		Daily:  make([]DailyTask, len(l.Daily)),
		Weekly: make([]WeeklyTask, len(l.Weekly)),
		Master: make([]MasterTask, len(l.Master)),
		Rules:  append([]Entry(nil), l.Rules...),
		Bans:   append([]Entry(nil), l.Bans...),
	}
	for i, t := range l.Daily {
		t.Completion = t.Completion.clone()
		out.Daily[i] = t
	}
	for i, t := range l.Weekly {
		t.Completion = t.Completion.clone()
		out.Weekly[i] = t
	}
	for i, t := range l.Master {
		if t.CompletedAt != nil {
			at := *t.CompletedAt
			t.CompletedAt = &at
		}
		out.Master[i] = t
	}
	return out
}

func (l Lists) Len(kind Kind) int {
	switch kind {
	case KindDaily:
		return len(l.Daily)
	case KindWeekly:
		return len(l.Weekly)
	case KindMaster:
		return len(l.Master)
	case KindRules:
		return len(l.Rules)
	case KindBans:
		return len(l.Bans)
	default:
		return 0
	}
}
