package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

var (
	ErrInvalidDate    = errors.New("model: invalid date")
	ErrInvalidClock   = errors.New("model: invalid time of day")
	ErrInvalidWeekday = errors.New("model: invalid weekday")
)

// Date is a local calendar date in YYYY-MM-DD form. Well-formed dates order
// lexicographically, so plain string comparison is chronological.
type Date string

func ParseDate(raw string) (Date, error) {
	raw = strings.TrimSpace(raw)
	t, err := time.Parse(DateLayout, raw)
	if err != nil || t.Format(DateLayout) != raw {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, raw)
	}
	return Date(raw), nil
}

// DateOf returns the calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// legacyDate accepts either a plain date or an ISO timestamp and truncates it
// to its date part.
func legacyDate(raw string) (Date, bool) {
	raw = strings.TrimSpace(raw)
	if len(raw) < len(DateLayout) {
		return "", false
	}
	d, err := ParseDate(raw[:len(DateLayout)])
	if err != nil {
		return "", false
	}
	return d, true
}

func (d Date) Valid() bool {
	_, err := ParseDate(string(d))
	return err == nil
}

func (d Date) String() string { return string(d) }

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	t, err := time.ParseInLocation(DateLayout, string(d), loc)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (d Date) AddDays(n int) Date {
	t := d.In(time.UTC)
	if t.IsZero() {
		return d
	}
	return DateOf(t.AddDate(0, 0, n))
}

func (d Date) Weekday() Weekday {
	t := d.In(time.UTC)
	if t.IsZero() {
		return ""
	}
	return WeekdayOf(t.Weekday())
}

func (d Date) ISOWeek() (year, week int) {
	return d.In(time.UTC).ISOWeek()
}

func (d Date) Before(other Date) bool { return d < other }

func (d Date) After(other Date) bool { return d > other }

// SameISOWeek reports whether both dates fall in the same ISO-8601 week.
func (d Date) SameISOWeek(other Date) bool {
	if !d.Valid() || !other.Valid() {
		return false
	}
	y1, w1 := d.ISOWeek()
	y2, w2 := other.ISOWeek()
	return y1 == y2 && w1 == w2
}

// ClockTime is a zero-padded 24h time of day, HH:MM.
type ClockTime string

func ParseClock(raw string) (ClockTime, error) {
	raw = strings.TrimSpace(raw)
	t, err := time.Parse(ClockLayout, raw)
	if err != nil || t.Format(ClockLayout) != raw {
		return "", fmt.Errorf("%w: %q", ErrInvalidClock, raw)
	}
	return ClockTime(raw), nil
}

func ClockOf(t time.Time) ClockTime {
	return ClockTime(t.Format(ClockLayout))
}

func (c ClockTime) Valid() bool {
	_, err := ParseClock(string(c))
	return err == nil
}

func (c ClockTime) String() string { return string(c) }

type Weekday string

const (
	Sunday    Weekday = "sunday"
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
)

var weekdays = [...]Weekday{Sunday, Monday, Tuesday, Wednesday, Thursday, Friday, Saturday}

func WeekdayOf(d time.Weekday) Weekday {
	return weekdays[d]
}

func ParseWeekday(raw string) (Weekday, error) {
	norm := strings.ToLower(strings.TrimSpace(raw))
	for _, w := range weekdays {
		if norm == string(w) || (len(norm) == 3 && strings.HasPrefix(string(w), norm)) {
			return w, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidWeekday, raw)
}

func (w Weekday) IsValid() bool {
	for _, known := range weekdays {
		if w == known {
			return true
		}
	}
	return false
}

func (w Weekday) TimeWeekday() time.Weekday {
	for i, known := range weekdays {
		if w == known {
			return time.Weekday(i)
		}
	}
	return -1
}
