package model

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrMalformedRecord = errors.New("model: malformed task record")

// Record is the stored shape of one task in a calendar document. Optional
// fields are present or absent depending on the list kind; the legacy
// completed/completedDate pair is kept for clients that predate
// completedDates.
type Record struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	Reminder       bool     `json:"reminder"`
	Time           string   `json:"time,omitempty"`
	Day            string   `json:"day,omitempty"`
	StartDate      string   `json:"startDate,omitempty"`
	CreatedDate    string   `json:"createdDate,omitempty"`
	IsActive       *bool    `json:"isActive,omitempty"`
	Completed      bool     `json:"completed"`
	CompletedDate  string   `json:"completedDate,omitempty"`
	CompletedDates []string `json:"completedDates,omitempty"`
}

// Document is one calendar's shared state.
type Document struct {
	ID                string    `json:"-"`
	Daily             []Record  `json:"daily"`
	Weekly            []Record  `json:"weekly"`
	Master            []Record  `json:"master"`
	Rules             []Entry   `json:"rules"`
	Bans              []Entry   `json:"bans"`
	Tokens            []string  `json:"fcmTokens"`
	LastUpdated       time.Time `json:"lastUpdated"`
	LastBroadcastDate Date      `json:"lastReminderNotificationDate,omitempty"`
}

// UnmarshalJSON accepts both the object form and the bare string form older
// clients wrote for rules and bans.
func (e *Entry) UnmarshalJSON(raw []byte) error {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		e.ID = ""
		e.Text = text
		return nil
	}
	type plain Entry
	var p plain
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	*e = Entry(p)
	return nil
}

func decodeBase(r Record) (Base, error) {
	b := Base{
		ID:          strings.TrimSpace(r.ID),
		Name:        r.Name,
		Description: r.Description,
		Reminder:    r.Reminder,
	}
	if b.ID == "" {
		return Base{}, fmt.Errorf("%w: missing id", ErrMalformedRecord)
	}
	var err error
	if r.Time != "" {
		if c, perr := ParseClock(r.Time); perr == nil {
			b.Time = c
		} else {
			err = perr
		}
	}
	if b.Reminder && b.Time == "" {
		b.Reminder = false
		if err == nil {
			err = fmt.Errorf("%w: %s", ErrReminderTime, b.ID)
		}
	}
	return b, err
}

// migrateCompletion seeds the completion set from the legacy single date
// when completedDates is absent. Applying it twice is harmless.
func migrateCompletion(r Record) Completion {
	if r.CompletedDates != nil {
		dates := make([]Date, 0, len(r.CompletedDates))
		for _, raw := range r.CompletedDates {
			if d, ok := legacyDate(raw); ok {
				dates = append(dates, d)
			}
		}
		return NewCompletion(dates...)
	}
	if d, ok := legacyDate(r.CompletedDate); ok {
		return NewCompletion(d)
	}
	return Completion{}
}

// creationDateFromID recovers the creation date of tasks whose id is a
// millisecond unix timestamp or a version 7 UUID.
func creationDateFromID(id string, loc *time.Location) (Date, bool) {
	if u, err := uuid.Parse(id); err == nil {
		if u.Version() != 7 {
			return "", false
		}
		ms := int64(binary.BigEndian.Uint64(u[:8]) >> 16)
		return DateOf(time.UnixMilli(ms).In(loc)), true
	}
	ms, err := strconv.ParseInt(id, 10, 64)
	if err != nil || ms <= 0 {
		return "", false
	}
	return DateOf(time.UnixMilli(ms).In(loc)), true
}

// DecodeDaily converts a stored record, migrating legacy completion data. A
// non-nil error alongside a usable task reports a field that was dropped.
func DecodeDaily(r Record, loc *time.Location) (DailyTask, error) {
	b, err := decodeBase(r)
	if b.ID == "" {
		return DailyTask{}, err
	}
	t := DailyTask{Base: b, Active: true, Completion: migrateCompletion(r)}
	if r.IsActive != nil {
		t.Active = *r.IsActive
	}
	switch {
	case r.StartDate != "":
		if d, ok := legacyDate(r.StartDate); ok {
			t.StartDate = d
		}
	default:
		if d, ok := creationDateFromID(b.ID, loc); ok {
			t.StartDate = d
		} else if d, ok := t.Completion.Earliest(); ok {
			t.StartDate = d
		} else if err == nil {
			err = fmt.Errorf("%w: daily task %s has no start date", ErrMalformedRecord, b.ID)
		}
	}
	return t, err
}

func DecodeWeekly(r Record) (WeeklyTask, error) {
	b, err := decodeBase(r)
	if b.ID == "" {
		return WeeklyTask{}, err
	}
	t := WeeklyTask{Base: b, Completion: migrateCompletion(r)}
	if r.Day != "" {
		if w, perr := ParseWeekday(r.Day); perr == nil {
			t.Day = w
		} else if err == nil {
			err = perr
		}
	}
	if t.Reminder && t.Day == "" {
		t.Reminder = false
		if err == nil {
			err = fmt.Errorf("%w: %s", ErrReminderDay, t.ID)
		}
	}
	return t, err
}

func DecodeMaster(r Record, loc *time.Location) (MasterTask, error) {
	b, err := decodeBase(r)
	if b.ID == "" {
		return MasterTask{}, err
	}
	t := MasterTask{Base: b, Completed: r.Completed}
	if d, ok := legacyDate(r.CreatedDate); ok {
		t.CreatedDate = d
	} else if d, ok := creationDateFromID(b.ID, loc); ok {
		t.CreatedDate = d
	}
	if t.Completed && r.CompletedDate != "" {
		if at, perr := time.Parse(time.RFC3339Nano, r.CompletedDate); perr == nil {
			at = at.UTC()
			t.CompletedAt = &at
		} else if d, ok := legacyDate(r.CompletedDate); ok {
			at := d.In(time.UTC)
			t.CompletedAt = &at
		}
	}
	return t, err
}

func encodeBase(b Base) Record {
	r := Record{ID: b.ID, Name: b.Name, Description: b.Description, Reminder: b.Reminder}
	if b.Time != "" {
		r.Time = string(b.Time)
	}
	return r
}

func encodeCompletion(r *Record, c Completion) {
	if c.Len() == 0 {
		return
	}
	r.CompletedDates = make([]string, 0, c.Len())
	for _, d := range c.dates {
		r.CompletedDates = append(r.CompletedDates, string(d))
	}
}

// EncodeDaily writes the legacy mirror from the most recent completion.
func EncodeDaily(t DailyTask) Record {
	r := encodeBase(t.Base)
	active := t.Active
	r.IsActive = &active
	r.StartDate = string(t.StartDate)
	encodeCompletion(&r, t.Completion)
	if latest, ok := t.Completion.Latest(); ok {
		r.Completed = true
		r.CompletedDate = string(latest)
	}
	return r
}

// EncodeWeekly writes the legacy mirror only while the latest completion is in
// the ISO week of today, so the flag reads as reset once a new week starts.
func EncodeWeekly(t WeeklyTask, today Date) Record {
	r := encodeBase(t.Base)
	r.Day = string(t.Day)
	encodeCompletion(&r, t.Completion)
	if latest, ok := t.Completion.Latest(); ok && latest.SameISOWeek(today) {
		r.Completed = true
		r.CompletedDate = string(latest)
	}
	return r
}

func EncodeMaster(t MasterTask) Record {
	r := encodeBase(t.Base)
	r.CreatedDate = string(t.CreatedDate)
	r.Completed = t.Completed
	if t.Completed && t.CompletedAt != nil {
		r.CompletedDate = t.CompletedAt.UTC().Format(time.RFC3339Nano)
	}
	return r
}

// Lists decodes the document's task lists. Records that cannot be used at
// all are skipped; every problem is reported in the returned slice.
func (d Document) Lists(loc *time.Location) (Lists, []error) {
	if loc == nil {
		loc = time.UTC
	}
	var problems []error
	out := Lists{
		Daily:  make([]DailyTask, 0, len(d.Daily)),
		Weekly: make([]WeeklyTask, 0, len(d.Weekly)),
		Master: make([]MasterTask, 0, len(d.Master)),
		Rules:  make([]Entry, 0, len(d.Rules)),
		Bans:   make([]Entry, 0, len(d.Bans)),
	}
	seen := make(map[string]bool)
	keep := func(kind Kind, id string, err error) bool {
		if err != nil {
			problems = append(problems, fmt.Errorf("%s %q: %w", kind, id, err))
		}
		if id == "" {
			return false
		}
		key := string(kind) + "/" + id
		if seen[key] {
			problems = append(problems, fmt.Errorf("%w: duplicate %s id %q", ErrMalformedRecord, kind, id))
			return false
		}
		seen[key] = true
		return true
	}
	for _, r := range d.Daily {
		t, err := DecodeDaily(r, loc)
		if keep(KindDaily, t.ID, err) {
			out.Daily = append(out.Daily, t)
		}
	}
	for _, r := range d.Weekly {
		t, err := DecodeWeekly(r)
		if keep(KindWeekly, t.ID, err) {
			out.Weekly = append(out.Weekly, t)
		}
	}
	for _, r := range d.Master {
		t, err := DecodeMaster(r, loc)
		if keep(KindMaster, t.ID, err) {
			out.Master = append(out.Master, t)
		}
	}
	out.Rules = decodeEntries(KindRules, d.Rules, &problems)
	out.Bans = decodeEntries(KindBans, d.Bans, &problems)
	return out, problems
}

// decodeEntries assigns positional ids to bare-string entries so they can be
// addressed for edit and delete.
func decodeEntries(kind Kind, in []Entry, problems *[]error) []Entry {
	out := make([]Entry, 0, len(in))
	for i, e := range in {
		if strings.TrimSpace(e.Text) == "" {
			*problems = append(*problems, fmt.Errorf("%s[%d]: %w", kind, i, errMissingEntry))
			continue
		}
		if e.ID == "" {
			e.ID = fmt.Sprintf("%s-%d", kind, i+1)
		}
		out = append(out, e)
	}
	return out
}

// EncodeLists fills the five list fields of a document from l.
func EncodeLists(l Lists, today Date) Document {
	doc := Document{
		Daily:  make([]Record, 0, len(l.Daily)),
		Weekly: make([]Record, 0, len(l.Weekly)),
		Master: make([]Record, 0, len(l.Master)),
		Rules:  append([]Entry{}, l.Rules...),
		Bans:   append([]Entry{}, l.Bans...),
	}
	for _, t := range l.Daily {
		doc.Daily = append(doc.Daily, EncodeDaily(t))
	}
	for _, t := range l.Weekly {
		doc.Weekly = append(doc.Weekly, EncodeWeekly(t, today))
	}
	for _, t := range l.Master {
		doc.Master = append(doc.Master, EncodeMaster(t))
	}
	return doc
}
