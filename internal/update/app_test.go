package update

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/ritualcal/internal/model"
	"github.com/sandeepkv93/ritualcal/internal/reminder"
	"github.com/sandeepkv93/ritualcal/internal/taskstore"
)

var fixedNow = time.Date(2024, 3, 4, 7, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	titles []string
}

func (n *recordingNotifier) Notify(title, body string) error {
	n.titles = append(n.titles, title)
	return nil
}

type memoryLedger struct {
	last model.Date
}

func (l *memoryLedger) LastBroadcastShown() (model.Date, error) { return l.last, nil }

func (l *memoryLedger) SetLastBroadcastShown(d model.Date) error {
	l.last = d
	return nil
}

func newTestModel(t *testing.T) (Model, *recordingNotifier) {
	t.Helper()
	store := taskstore.New(time.UTC)
	n := 0
	store.NewID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
	store.Now = func() time.Time { return fixedNow }
	notifier := &recordingNotifier{}
	m := NewModel(Deps{
		Store: store,
		Fallback: &reminder.Fallback{
			Source:   store,
			Ledger:   &memoryLedger{},
			Notifier: notifier,
			Location: time.UTC,
			Messages: reminder.NewSeededMessages(1, 2),
		},
		Now: func() time.Time { return fixedNow },
	})
	return m, notifier
}

func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, _ := m.Update(msg)
	return updated.(Model)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func runCommand(t *testing.T, m Model, line string) Model {
	t.Helper()
	m = send(t, m, runes("/"))
	if !m.Palette.Active {
		t.Fatal("expected palette to open")
	}
	m = send(t, m, runes(line))
	return send(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

func TestNewModelDefaults(t *testing.T) {
	m, _ := newTestModel(t)
	if m.CurrentView != ViewDaily {
		t.Fatalf("expected default view %q, got %q", ViewDaily, m.CurrentView)
	}
	if m.Calendar.Focus != "2024-03-04" {
		t.Fatalf("expected calendar focus on today, got %q", m.Calendar.Focus)
	}
	if m.Keys.Quit != "q" {
		t.Fatalf("expected quit key q, got %q", m.Keys.Quit)
	}
}

func TestUpdateKeySwitchesView(t *testing.T) {
	m, _ := newTestModel(t)
	m = send(t, m, runes("6"))
	if m.CurrentView != ViewCalendar {
		t.Fatalf("expected calendar view, got %q", m.CurrentView)
	}
	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.CurrentView != ViewDaily {
		t.Fatalf("expected tab to wrap to daily, got %q", m.CurrentView)
	}
	m = send(t, m, runes("4"))
	if m.CurrentView != ViewRules {
		t.Fatalf("expected rules view, got %q", m.CurrentView)
	}
}

func TestUpdateSwitchViewMsg(t *testing.T) {
	m, _ := newTestModel(t)
	m = send(t, m, SwitchViewMsg{View: ViewWeekly})
	if m.CurrentView != ViewWeekly {
		t.Fatalf("expected weekly view, got %q", m.CurrentView)
	}
	m = send(t, m, SwitchViewMsg{View: View("Unknown")})
	if m.CurrentView != ViewWeekly {
		t.Fatalf("expected view unchanged for unknown view, got %q", m.CurrentView)
	}
}

func TestUpdateStatusAndError(t *testing.T) {
	m, _ := newTestModel(t)
	m = send(t, m, SetStatusMsg{Text: "ready"})
	if m.Status.Text != "ready" || m.Status.IsError {
		t.Fatalf("unexpected status: %+v", m.Status)
	}

	m = send(t, m, AppErrorMsg{Err: errors.New("boom")})
	if m.LastError == nil || m.LastError.Error() != "boom" {
		t.Fatalf("expected last error boom, got: %v", m.LastError)
	}
	if !m.Status.IsError || m.Status.Text != "boom" {
		t.Fatalf("unexpected error status: %+v", m.Status)
	}

	m = send(t, m, ClearStatusMsg{})
	if m.Status.Text != "" || m.Status.IsError {
		t.Fatalf("expected cleared status, got: %+v", m.Status)
	}
}

func TestPaletteAddToggleAndDelete(t *testing.T) {
	m, _ := newTestModel(t)
	m = runCommand(t, m, "add weekly Laundry day:monday time:09:00 remind | whites")
	if m.Status.IsError {
		t.Fatalf("add failed: %s", m.Status.Text)
	}
	if m.CurrentView != ViewWeekly || len(m.Lists.Weekly) != 1 {
		t.Fatalf("expected weekly task in weekly view, got view %q lists %+v", m.CurrentView, m.Lists.Weekly)
	}
	task := m.Lists.Weekly[0]
	if task.Name != "Laundry" || task.Description != "whites" || task.Day != model.Monday || !task.Reminder {
		t.Fatalf("unexpected weekly task: %+v", task)
	}

	m = send(t, m, runes(" "))
	if !m.Lists.Weekly[0].IsComplete("2024-03-04") {
		t.Fatal("expected this week's occurrence to be complete")
	}

	m = runCommand(t, m, "edit weekly 1 Big laundry")
	if got := m.Lists.Weekly[0]; got.Name != "Big laundry" || got.Description != "whites" || got.Time != "09:00" {
		t.Fatalf("edit should keep untouched fields: %+v", got)
	}

	m = runCommand(t, m, "delete weekly 1")
	if len(m.Lists.Weekly) != 0 {
		t.Fatalf("expected weekly list empty, got %+v", m.Lists.Weekly)
	}
}

func TestPaletteReportsBadReference(t *testing.T) {
	m, _ := newTestModel(t)
	m = runCommand(t, m, "toggle daily 3")
	if !m.Status.IsError || !strings.Contains(m.Status.Text, "no item 3") {
		t.Fatalf("expected reference error, got %+v", m.Status)
	}
	if m.Palette.Active {
		t.Fatal("palette should close after running a command")
	}
}

func TestPaletteEntriesAndShare(t *testing.T) {
	m, _ := newTestModel(t)
	m = runCommand(t, m, "rule Phone stays outside the bedroom")
	if m.CurrentView != ViewRules || len(m.Lists.Rules) != 1 {
		t.Fatalf("expected rule added, got view %q rules %+v", m.CurrentView, m.Lists.Rules)
	}
	if m.Lists.Rules[0].Text != "Phone stays outside the bedroom" {
		t.Fatalf("rule text changed: %q", m.Lists.Rules[0].Text)
	}

	m = runCommand(t, m, "show share")
	if !m.Status.IsError {
		t.Fatalf("expected share to fail without a calendar, got %+v", m.Status)
	}
}

func TestDailyPauseAndResume(t *testing.T) {
	m, _ := newTestModel(t)
	m = runCommand(t, m, "add daily Stretch")
	m = send(t, m, runes("a"))
	if m.Lists.Daily[0].Active {
		t.Fatal("expected daily task paused")
	}
	m = send(t, m, runes("a"))
	if !m.Lists.Daily[0].Active {
		t.Fatal("expected daily task resumed")
	}
}

func TestMinuteTickRunsFallback(t *testing.T) {
	m, notifier := newTestModel(t)
	m = runCommand(t, m, "add daily Stretch time:07:00 remind")
	m = send(t, m, MinuteTickMsg{At: fixedNow})
	if len(notifier.titles) != 1 || notifier.titles[0] != reminder.ReminderTitle {
		t.Fatalf("expected one reminder notification, got %v", notifier.titles)
	}
	last := m.Notifications[len(m.Notifications)-1]
	if last.Level != "reminder" || !strings.Contains(last.Body, "Stretch") {
		t.Fatalf("unexpected notification: %+v", last)
	}

	m = send(t, m, MinuteTickMsg{At: fixedNow.Add(time.Minute)})
	if len(notifier.titles) != 1 {
		t.Fatalf("07:01 must not fire again, got %v", notifier.titles)
	}
}

func TestCalendarNavigation(t *testing.T) {
	m, _ := newTestModel(t)
	m = send(t, m, runes("6"))
	m = send(t, m, runes("l"))
	if m.Calendar.Focus != "2024-03-05" {
		t.Fatalf("expected next day, got %q", m.Calendar.Focus)
	}
	m = send(t, m, runes("]"))
	if m.Calendar.Focus != "2024-04-05" {
		t.Fatalf("expected next month, got %q", m.Calendar.Focus)
	}
	m = send(t, m, runes("t"))
	if m.Calendar.Focus != "2024-03-04" {
		t.Fatalf("expected today, got %q", m.Calendar.Focus)
	}
	if !strings.Contains(m.View(), "March 2024") {
		t.Fatal("expected month title in calendar view")
	}
}

func TestAddMonthsClampsDay(t *testing.T) {
	if got := addMonths("2024-01-31", 1); got != "2024-02-29" {
		t.Fatalf("expected 2024-02-29, got %q", got)
	}
	if got := addMonths("2024-03-31", -1); got != "2024-02-29" {
		t.Fatalf("expected 2024-02-29, got %q", got)
	}
}

func TestSyncKeyWithoutController(t *testing.T) {
	m, _ := newTestModel(t)
	m = send(t, m, runes("S"))
	if !m.Status.IsError || m.Syncing {
		t.Fatalf("expected sync to be unavailable, got %+v", m.Status)
	}
}
