package taskstore

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sandeepkv93/ritualcal/internal/model"
)

var (
	ErrNotFound     = errors.New("taskstore: task not found")
	ErrNotScheduled = errors.New("taskstore: kind has no schedule")
	ErrNotDaily     = errors.New("taskstore: only daily tasks can be activated")
	ErrEmptyText    = errors.New("taskstore: entry text is empty")
)

// Draft carries the user-editable fields of a scheduled task.
type Draft struct {
	Name        string
	Description string
	Reminder    bool
	Time        model.ClockTime
	Day         model.Weekday
}

func (d Draft) base(id string) model.Base {
	return model.Base{
		ID:          id,
		Name:        strings.TrimSpace(d.Name),
		Description: strings.TrimSpace(d.Description),
		Reminder:    d.Reminder,
		Time:        d.Time,
	}
}

// Store owns the five lists of one calendar. All reads return copies, so
// callers can hand them to the projector or matcher without holding a lock.
type Store struct {
	mu    sync.RWMutex
	lists model.Lists
	loc   *time.Location

	NewID func() string
	Now   func() time.Time
}

func New(loc *time.Location) *Store {
	if loc == nil {
		loc = time.UTC
	}
	return &Store{
		loc:   loc,
		NewID: newTaskID,
		Now:   time.Now,
	}
}

// newTaskID returns a time-ordered id so list order matches creation order.
func newTaskID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func (s *Store) Location() *time.Location { return s.loc }

func (s *Store) Today() model.Date {
	return model.DateOf(s.Now().In(s.loc))
}

func (s *Store) Lists() model.Lists {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lists.Clone()
}

// Replace swaps in a full set of lists, as delivered by a remote snapshot or
// the local cache.
func (s *Store) Replace(l model.Lists) {
	s.mu.Lock()
	s.lists = l.Clone()
	s.mu.Unlock()
}

func (s *Store) Create(kind model.Kind, d Draft) (string, error) {
	id := s.NewID()
	today := s.Today()
	s.mu.Lock()
	defer s.mu.Unlock()
	switch kind {
	case model.KindDaily:
		t := model.DailyTask{Base: d.base(id), StartDate: today, Active: true}
		if err := t.Validate(); err != nil {
			return "", err
		}
		s.lists.Daily = append(s.lists.Daily, t)
	case model.KindWeekly:
		t := model.WeeklyTask{Base: d.base(id), Day: d.Day}
		if err := t.Validate(); err != nil {
			return "", err
		}
		s.lists.Weekly = append(s.lists.Weekly, t)
	case model.KindMaster:
		t := model.MasterTask{Base: d.base(id), CreatedDate: today}
		if err := t.Validate(); err != nil {
			return "", err
		}
		s.lists.Master = append(s.lists.Master, t)
	case model.KindRules, model.KindBans:
		e := model.Entry{ID: id, Text: strings.TrimSpace(d.Name)}
		if e.Text == "" {
			return "", ErrEmptyText
		}
		s.appendEntry(kind, e)
	default:
		return "", fmt.Errorf("%w: %q", model.ErrInvalidKind, kind)
	}
	return id, nil
}

func (s *Store) appendEntry(kind model.Kind, e model.Entry) {
	if kind == model.KindRules {
		s.lists.Rules = append(s.lists.Rules, e)
		return
	}
	s.lists.Bans = append(s.lists.Bans, e)
}

// Update replaces the editable fields of a task, keeping its id, dates and
// completion history.
func (s *Store) Update(kind model.Kind, id string, d Draft) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch kind {
	case model.KindDaily:
		i := indexOf(s.lists.Daily, id, func(t model.DailyTask) string { return t.ID })
		if i < 0 {
			return notFound(kind, id)
		}
		t := s.lists.Daily[i]
		t.Base = d.base(id)
		if err := t.Validate(); err != nil {
			return err
		}
		s.lists.Daily[i] = t
	case model.KindWeekly:
		i := indexOf(s.lists.Weekly, id, func(t model.WeeklyTask) string { return t.ID })
		if i < 0 {
			return notFound(kind, id)
		}
		t := s.lists.Weekly[i]
		t.Base = d.base(id)
		t.Day = d.Day
		if err := t.Validate(); err != nil {
			return err
		}
		s.lists.Weekly[i] = t
	case model.KindMaster:
		i := indexOf(s.lists.Master, id, func(t model.MasterTask) string { return t.ID })
		if i < 0 {
			return notFound(kind, id)
		}
		t := s.lists.Master[i]
		t.Base = d.base(id)
		if err := t.Validate(); err != nil {
			return err
		}
		s.lists.Master[i] = t
	case model.KindRules, model.KindBans:
		text := strings.TrimSpace(d.Name)
		if text == "" {
			return ErrEmptyText
		}
		entries := s.entries(kind)
		i := indexOf(entries, id, func(e model.Entry) string { return e.ID })
		if i < 0 {
			return notFound(kind, id)
		}
		entries[i].Text = text
	default:
		return fmt.Errorf("%w: %q", model.ErrInvalidKind, kind)
	}
	return nil
}

func (s *Store) Delete(kind model.Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ok bool
	switch kind {
	case model.KindDaily:
		s.lists.Daily, ok = without(s.lists.Daily, id, func(t model.DailyTask) string { return t.ID })
	case model.KindWeekly:
		s.lists.Weekly, ok = without(s.lists.Weekly, id, func(t model.WeeklyTask) string { return t.ID })
	case model.KindMaster:
		s.lists.Master, ok = without(s.lists.Master, id, func(t model.MasterTask) string { return t.ID })
	case model.KindRules:
		s.lists.Rules, ok = without(s.lists.Rules, id, func(e model.Entry) string { return e.ID })
	case model.KindBans:
		s.lists.Bans, ok = without(s.lists.Bans, id, func(e model.Entry) string { return e.ID })
	default:
		return fmt.Errorf("%w: %q", model.ErrInvalidKind, kind)
	}
	if !ok {
		return notFound(kind, id)
	}
	return nil
}

// Toggle flips completion of the occurrence on date. Master tasks ignore the
// date and record the current time.
func (s *Store) Toggle(kind model.Kind, id string, date model.Date) error {
	now := s.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	switch kind {
	case model.KindDaily:
		i := indexOf(s.lists.Daily, id, func(t model.DailyTask) string { return t.ID })
		if i < 0 {
			return notFound(kind, id)
		}
		return s.lists.Daily[i].ToggleCompletion(date)
	case model.KindWeekly:
		i := indexOf(s.lists.Weekly, id, func(t model.WeeklyTask) string { return t.ID })
		if i < 0 {
			return notFound(kind, id)
		}
		return s.lists.Weekly[i].ToggleCompletion(date)
	case model.KindMaster:
		i := indexOf(s.lists.Master, id, func(t model.MasterTask) string { return t.ID })
		if i < 0 {
			return notFound(kind, id)
		}
		s.lists.Master[i].ToggleCompletion(now)
		return nil
	case model.KindRules, model.KindBans:
		return fmt.Errorf("%w: %s", ErrNotScheduled, kind)
	default:
		return fmt.Errorf("%w: %q", model.ErrInvalidKind, kind)
	}
}

func (s *Store) SetActive(id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.lists.Daily, id, func(t model.DailyTask) string { return t.ID })
	if i < 0 {
		if s.kindOf(id) != "" {
			return fmt.Errorf("%w: %s", ErrNotDaily, id)
		}
		return notFound(model.KindDaily, id)
	}
	s.lists.Daily[i].Active = active
	return nil
}

// KindOf reports which list holds id, or "" when no list does.
func (s *Store) KindOf(id string) model.Kind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.kindOf(id)
}

func (s *Store) kindOf(id string) model.Kind {
	switch {
	case indexOf(s.lists.Daily, id, func(t model.DailyTask) string { return t.ID }) >= 0:
		return model.KindDaily
	case indexOf(s.lists.Weekly, id, func(t model.WeeklyTask) string { return t.ID }) >= 0:
		return model.KindWeekly
	case indexOf(s.lists.Master, id, func(t model.MasterTask) string { return t.ID }) >= 0:
		return model.KindMaster
	case indexOf(s.lists.Rules, id, func(e model.Entry) string { return e.ID }) >= 0:
		return model.KindRules
	case indexOf(s.lists.Bans, id, func(e model.Entry) string { return e.ID }) >= 0:
		return model.KindBans
	}
	return ""
}

func (s *Store) entries(kind model.Kind) []model.Entry {
	if kind == model.KindRules {
		return s.lists.Rules
	}
	return s.lists.Bans
}

func notFound(kind model.Kind, id string) error {
	return fmt.Errorf("%w: %s %q", ErrNotFound, kind, id)
}

func indexOf[T any](items []T, id string, key func(T) string) int {
	for i, item := range items {
		if key(item) == id {
			return i
		}
	}
	return -1
}

func without[T any](items []T, id string, key func(T) string) ([]T, bool) {
	i := indexOf(items, id, key)
	if i < 0 {
		return items, false
	}
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...), true
}
