package reminder

import (
	"strings"
	"testing"
	"time"

	"github.com/sandeepkv93/ritualcal/internal/model"
)

func at(t *testing.T, date, clock string) Now {
	t.Helper()
	d, err := model.ParseDate(date)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return Now{Date: d, Clock: model.ClockTime(clock), Weekday: d.Weekday()}
}

func base(id, name, clock string) model.Base {
	return model.Base{ID: id, Name: name, Reminder: true, Time: model.ClockTime(clock)}
}

func TestResolveNowUsesLocation(t *testing.T) {
	moscow, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	now := ResolveNow(time.Date(2024, 3, 4, 22, 30, 0, 0, time.UTC), moscow)
	if now.Date != "2024-03-05" || now.Clock != "01:30" || now.Weekday != model.Tuesday {
		t.Fatalf("unexpected now: %#v", now)
	}
}

func TestMatchRules(t *testing.T) {
	daily := model.DailyTask{Base: base("d1", "Meditate", "08:00"), StartDate: "2024-01-01", Active: true}
	weekly := model.WeeklyTask{Base: base("w1", "Laundry", "08:00"), Day: model.Wednesday}
	master := model.MasterTask{Base: base("m1", "Call mom", "08:00"), CreatedDate: "2024-03-01"}

	tests := []struct {
		name  string
		lists model.Lists
		now   Now
		want  []string
	}{
		{"daily fires at its minute", model.Lists{Daily: []model.DailyTask{daily}}, at(t, "2024-01-02", "08:00"), []string{"d1"}},
		{"daily silent a minute later", model.Lists{Daily: []model.DailyTask{daily}}, at(t, "2024-01-02", "08:01"), nil},
		{"daily silent before start", model.Lists{Daily: []model.DailyTask{daily}}, at(t, "2023-12-31", "08:00"), nil},
		{"weekly fires on its weekday", model.Lists{Weekly: []model.WeeklyTask{weekly}}, at(t, "2024-03-06", "08:00"), []string{"w1"}},
		{"weekly silent on other weekday", model.Lists{Weekly: []model.WeeklyTask{weekly}}, at(t, "2024-03-05", "08:00"), nil},
		{"master fires on creation day", model.Lists{Master: []model.MasterTask{master}}, at(t, "2024-03-01", "08:00"), []string{"m1"}},
		{"master silent the next day", model.Lists{Master: []model.MasterTask{master}}, at(t, "2024-03-02", "08:00"), nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Match(tc.lists, tc.now, Policy{})
			if len(got) != len(tc.want) {
				t.Fatalf("expected %v, got %#v", tc.want, got)
			}
			for i, id := range tc.want {
				if got[i].TaskID != id {
					t.Fatalf("expected %v, got %#v", tc.want, got)
				}
			}
		})
	}
}

func TestMatchIgnoresTasksWithoutReminder(t *testing.T) {
	daily := model.DailyTask{Base: base("d1", "Meditate", "08:00"), StartDate: "2024-01-01", Active: true}
	daily.Reminder = false
	inactive := model.DailyTask{Base: base("d2", "Run", "08:00"), StartDate: "2024-01-01"}
	got := Match(model.Lists{Daily: []model.DailyTask{daily, inactive}}, at(t, "2024-01-02", "08:00"), Policy{})
	if len(got) != 0 {
		t.Fatalf("expected no matches, got %#v", got)
	}
}

func TestMatchCompletionPolicy(t *testing.T) {
	daily := model.DailyTask{Base: base("d1", "Meditate", "08:00"), StartDate: "2024-01-01", Active: true, Completion: model.NewCompletion("2024-01-02")}
	master := model.MasterTask{Base: base("m1", "Call mom", "08:00"), CreatedDate: "2024-01-02", Completed: true}
	lists := model.Lists{Daily: []model.DailyTask{daily}, Master: []model.MasterTask{master}}
	now := at(t, "2024-01-02", "08:00")

	if got := Match(lists, now, Policy{}); len(got) != 2 {
		t.Fatalf("default policy should fire regardless of completion, got %#v", got)
	}
	if got := Match(lists, now, Policy{DailySkipCompleted: true, MasterSkipCompleted: true}); len(got) != 0 {
		t.Fatalf("skip policy should suppress completed tasks, got %#v", got)
	}
	if got := Match(lists, at(t, "2024-01-03", "08:00"), Policy{DailySkipCompleted: true}); len(got) != 1 || got[0].TaskID != "d1" {
		t.Fatalf("completion on another date must not suppress, got %#v", got)
	}
}

func TestBroadcastDue(t *testing.T) {
	now := at(t, "2024-03-01", "19:00")
	if !BroadcastDue(now, "19:00", "2024-02-29") {
		t.Fatal("expected broadcast due when last sent yesterday")
	}
	if !BroadcastDue(now, "19:00", "") {
		t.Fatal("expected broadcast due when never sent")
	}
	if BroadcastDue(now, "19:00", "2024-03-01") {
		t.Fatal("broadcast must not repeat on the same day")
	}
	if BroadcastDue(at(t, "2024-03-01", "19:01"), "19:00", "") {
		t.Fatal("broadcast must only fire at its minute")
	}
}

func TestMessagesAreDrawnFromPools(t *testing.T) {
	m := NewSeededMessages(1, 2)
	for range 20 {
		title, body := m.Reminder("Stretch")
		if title != ReminderTitle || !strings.Contains(body, "Stretch") {
			t.Fatalf("unexpected reminder message %q / %q", title, body)
		}
		title, body = m.Broadcast()
		if title != BroadcastTitle || body == "" {
			t.Fatalf("unexpected broadcast message %q / %q", title, body)
		}
	}
}
