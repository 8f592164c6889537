package reminder

import (
	"time"

	"github.com/sandeepkv93/ritualcal/internal/model"
)

// DefaultBroadcastTime is the local time of the evening broadcast.
const DefaultBroadcastTime model.ClockTime = "19:00"

// Now is one matching instant, resolved in the target timezone.
type Now struct {
	Date    model.Date
	Clock   model.ClockTime
	Weekday model.Weekday
}

func ResolveNow(t time.Time, loc *time.Location) Now {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return Now{
		Date:    model.DateOf(local),
		Clock:   model.ClockOf(local),
		Weekday: model.WeekdayOf(local.Weekday()),
	}
}

// Policy holds the completion-sensitive matching switches. The zero value
// fires daily and master reminders whether or not they are complete.
type Policy struct {
	DailySkipCompleted  bool
	MasterSkipCompleted bool
}

// Due is a task whose reminder fires at the matched minute.
type Due struct {
	TaskID string
	Kind   model.Kind
	Name   string
}

// Match returns the tasks whose reminder fires at now. Times compare for
// exact equality; a missed minute is never caught up.
func Match(lists model.Lists, now Now, policy Policy) []Due {
	var out []Due
	for _, t := range lists.Daily {
		if !fires(t.Base, now) || !t.OccursOn(now.Date) {
			continue
		}
		if policy.DailySkipCompleted && t.IsComplete(now.Date) {
			continue
		}
		out = append(out, Due{TaskID: t.ID, Kind: model.KindDaily, Name: t.Name})
	}
	for _, t := range lists.Weekly {
		if !fires(t.Base, now) || t.Day != now.Weekday {
			continue
		}
		out = append(out, Due{TaskID: t.ID, Kind: model.KindWeekly, Name: t.Name})
	}
	for _, t := range lists.Master {
		if !fires(t.Base, now) || t.CreatedDate != now.Date {
			continue
		}
		if policy.MasterSkipCompleted && t.Completed {
			continue
		}
		out = append(out, Due{TaskID: t.ID, Kind: model.KindMaster, Name: t.Name})
	}
	return out
}

func fires(b model.Base, now Now) bool {
	at, ok := b.ReminderTime()
	return ok && at == now.Clock
}

// BroadcastDue reports whether the evening broadcast should go out at now
// given the date it was last sent.
func BroadcastDue(now Now, at model.ClockTime, last model.Date) bool {
	return now.Clock == at && last != now.Date
}
