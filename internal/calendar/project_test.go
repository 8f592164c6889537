package calendar

import (
	"errors"
	"testing"

	"github.com/sandeepkv93/ritualcal/internal/model"
)

func fixtureLists() model.Lists {
	return model.Lists{
		Daily: []model.DailyTask{
			{Base: model.Base{ID: "d1", Name: "Read", Time: "08:00"}, StartDate: "2024-03-03", Active: true, Completion: model.NewCompletion("2024-03-04")},
			{Base: model.Base{ID: "d2", Name: "Paused"}, StartDate: "2024-01-01", Active: false},
		},
		Weekly: []model.WeeklyTask{
			{Base: model.Base{ID: "w1", Name: "Gym"}, Day: model.Monday},
		},
		Master: []model.MasterTask{
			{Base: model.Base{ID: "m1", Name: "Taxes"}, CreatedDate: "2024-03-05", Completed: true},
			{Base: model.Base{ID: "m2", Name: "Old"}, CreatedDate: "2024-02-01"},
		},
	}
}

func TestProjectExpandsOccurrences(t *testing.T) {
	events, err := Project(fixtureLists(), "2024-03-01", "2024-03-14")
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	count := map[string]int{}
	for _, ev := range events {
		count[ev.TaskID]++
	}
	if count["d1"] != 12 || count["w1"] != 2 || count["m1"] != 1 {
		t.Fatalf("unexpected occurrence counts: %v", count)
	}
	if count["d2"] != 0 || count["m2"] != 0 {
		t.Fatalf("inactive or out-of-window tasks projected: %v", count)
	}
	for i := 1; i < len(events); i++ {
		if events[i].Date < events[i-1].Date {
			t.Fatalf("events not sorted by date at %d", i)
		}
	}
}

func TestProjectEventStyling(t *testing.T) {
	events, err := Project(fixtureLists(), "2024-03-04", "2024-03-05")
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	byID := map[string]Event{}
	for _, ev := range events {
		byID[ev.ID] = ev
	}
	read := byID[EventID(model.KindDaily, "d1", "2024-03-04")]
	if !read.Completed || read.Time != "08:00" || read.Class != "event-daily completed" {
		t.Fatalf("unexpected daily event: %#v", read)
	}
	gym := byID[EventID(model.KindWeekly, "w1", "2024-03-04")]
	if gym.Time != "00:00" || gym.AllDay || gym.Completed {
		t.Fatalf("unexpected weekly event: %#v", gym)
	}
	taxes := byID[EventID(model.KindMaster, "m1", "2024-03-05")]
	if !taxes.AllDay || !taxes.Completed {
		t.Fatalf("unexpected master event: %#v", taxes)
	}
}

func TestProjectRejectsBadWindows(t *testing.T) {
	if _, err := Project(model.Lists{}, "2024-03-05", "2024-03-01"); !errors.Is(err, ErrWindow) {
		t.Fatalf("expected ErrWindow for reversed range, got %v", err)
	}
	if _, err := Project(model.Lists{}, "2024-01-01", "2025-01-01"); !errors.Is(err, ErrWindow) {
		t.Fatalf("expected ErrWindow for 367 days, got %v", err)
	}
	if _, err := Project(model.Lists{}, "2024-01-01", "2024-12-31"); err != nil {
		t.Fatalf("366 days must be allowed: %v", err)
	}
}

func TestEventIDRoundTrip(t *testing.T) {
	kind, taskID, date, err := ParseEventID(EventID(model.KindWeekly, "0190f1e2-aaaa", "2024-03-04"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if kind != model.KindWeekly || taskID != "0190f1e2-aaaa" || date != "2024-03-04" {
		t.Fatalf("unexpected parse: %s %s %s", kind, taskID, date)
	}
	for _, bad := range []string{"", "daily", "rules:r1:2024-03-04", "daily::2024-03-04", "daily:x:2024-13-01"} {
		if _, _, _, err := ParseEventID(bad); !errors.Is(err, ErrEventID) {
			t.Fatalf("expected ErrEventID for %q, got %v", bad, err)
		}
	}
}

func TestMonthGridStartsOnMonday(t *testing.T) {
	grid := MonthGrid("2024-03-15")
	if grid[0][0] != "2024-02-26" {
		t.Fatalf("unexpected grid start: %s", grid[0][0])
	}
	if grid[0][4] != "2024-03-01" || grid[5][6] != "2024-04-07" {
		t.Fatalf("unexpected grid cells: %s %s", grid[0][4], grid[5][6])
	}
}
