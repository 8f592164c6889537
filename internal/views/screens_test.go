package views

import (
	"strings"
	"testing"

	"github.com/sandeepkv93/ritualcal/internal/calendar"
	"github.com/sandeepkv93/ritualcal/internal/model"
)

func TestRenderMonthListsFocusAgenda(t *testing.T) {
	focus := model.Date("2024-03-06")
	events := map[model.Date][]calendar.Event{
		focus: {
			{ID: "daily:d1:2024-03-06", Kind: model.KindDaily, Title: "Meditate", Date: focus, Time: "07:00", Completed: true},
			{ID: "master:m1:2024-03-06", Kind: model.KindMaster, Title: "Dentist", Date: focus, AllDay: true},
		},
	}
	out := RenderMonth(MonthData{Focus: focus, Today: "2024-03-05", Grid: calendar.MonthGrid(focus), Events: events})
	for _, want := range []string{"March 2024", "Mo  Tu", "[x] 07:00", "all-day", "Dentist"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in month view:\n%s", want, out)
		}
	}
}

func TestRenderTaskListMarksSelectionAndState(t *testing.T) {
	out := RenderTaskList(TaskListData{
		Title: "daily",
		Rows: []TaskRowData{
			{ID: "a", Name: "Run", Schedule: "07:30", Reminder: true, Description: "5k"},
			{ID: "b", Name: "Stretch", Done: true},
		},
		Selected: 0,
	})
	if !strings.Contains(out, "> [ ] 1. Run @07:30") || !strings.Contains(out, "5k") {
		t.Fatalf("unexpected task list:\n%s", out)
	}
	if !strings.Contains(out, "[x]") {
		t.Fatalf("expected completed marker:\n%s", out)
	}
}

func TestEntriesMarkdownNumbersEntries(t *testing.T) {
	md := EntriesMarkdown("Rules", []model.Entry{{ID: "1", Text: "Sleep early"}, {ID: "2", Text: "Drink water"}})
	if !strings.Contains(md, "1. Sleep early\n2. Drink water") {
		t.Fatalf("unexpected markdown:\n%s", md)
	}
	if !strings.Contains(EntriesMarkdown("Bans", nil), "Nothing here yet") {
		t.Fatal("expected empty placeholder")
	}
}
