package update

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/ritualcal/internal/commands"
	"github.com/sandeepkv93/ritualcal/internal/model"
	"github.com/sandeepkv93/ritualcal/internal/taskstore"
	"github.com/sandeepkv93/ritualcal/internal/views"
)

// taskIDs lists the ids of kind in display order.
func (m Model) taskIDs(kind model.Kind) []string {
	var ids []string
	switch kind {
	case model.KindDaily:
		for _, t := range m.Lists.Daily {
			ids = append(ids, t.ID)
		}
	case model.KindWeekly:
		for _, t := range m.Lists.Weekly {
			ids = append(ids, t.ID)
		}
	case model.KindMaster:
		for _, t := range m.Lists.Master {
			ids = append(ids, t.ID)
		}
	case model.KindRules:
		for _, e := range m.Lists.Rules {
			ids = append(ids, e.ID)
		}
	case model.KindBans:
		for _, e := range m.Lists.Bans {
			ids = append(ids, e.ID)
		}
	}
	return ids
}

// resolve maps a 1-based position or an id onto a task id of kind.
func (m Model) resolve(kind model.Kind, ref string) (string, error) {
	ids := m.taskIDs(kind)
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(ids) {
			return "", &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("%s has no item %d", kind, n)}
		}
		return ids[n-1], nil
	}
	for _, id := range ids {
		if id == ref {
			return id, nil
		}
	}
	return "", &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("%s has no item %q", kind, ref)}
}

// draftOf returns the editable fields of an existing task.
func (m Model) draftOf(kind model.Kind, id string) taskstore.Draft {
	fromBase := func(b model.Base) taskstore.Draft {
		return taskstore.Draft{Name: b.Name, Description: b.Description, Reminder: b.Reminder, Time: b.Time}
	}
	switch kind {
	case model.KindDaily:
		for _, t := range m.Lists.Daily {
			if t.ID == id {
				return fromBase(t.Base)
			}
		}
	case model.KindWeekly:
		for _, t := range m.Lists.Weekly {
			if t.ID == id {
				d := fromBase(t.Base)
				d.Day = t.Day
				return d
			}
		}
	case model.KindMaster:
		for _, t := range m.Lists.Master {
			if t.ID == id {
				return fromBase(t.Base)
			}
		}
	case model.KindRules, model.KindBans:
		entries := m.Lists.Rules
		if kind == model.KindBans {
			entries = m.Lists.Bans
		}
		for _, e := range entries {
			if e.ID == id {
				return taskstore.Draft{Name: e.Text}
			}
		}
	}
	return taskstore.Draft{}
}

// toggleDate picks the occurrence a toggle without an explicit date targets.
func (m Model) toggleDate(kind model.Kind, id string) model.Date {
	today := m.today()
	if kind != model.KindWeekly {
		return today
	}
	for _, t := range m.Lists.Weekly {
		if t.ID == id {
			if d, ok := t.OccurrenceInWeek(today); ok {
				return d
			}
		}
	}
	return today
}

func (m Model) taskRows(kind model.Kind) []views.TaskRowData {
	today := m.today()
	var rows []views.TaskRowData
	switch kind {
	case model.KindDaily:
		for _, t := range m.Lists.Daily {
			rows = append(rows, views.TaskRowData{
				ID: t.ID, Name: t.Name, Description: t.Description, Schedule: string(t.Time),
				Reminder: t.Reminder, Done: t.IsComplete(today), Inactive: !t.Active,
			})
		}
	case model.KindWeekly:
		for _, t := range m.Lists.Weekly {
			schedule := strings.TrimSpace(shortDay(t.Day) + " " + string(t.Time))
			occurrence, _ := t.OccurrenceInWeek(today)
			rows = append(rows, views.TaskRowData{
				ID: t.ID, Name: t.Name, Description: t.Description, Schedule: schedule,
				Reminder: t.Reminder, Done: t.IsComplete(occurrence),
			})
		}
	case model.KindMaster:
		for _, t := range m.Lists.Master {
			schedule := strings.TrimSpace(string(t.CreatedDate) + " " + string(t.Time))
			rows = append(rows, views.TaskRowData{
				ID: t.ID, Name: t.Name, Description: t.Description, Schedule: schedule,
				Reminder: t.Reminder, Done: t.Completed,
			})
		}
	}
	return rows
}

func shortDay(w model.Weekday) string {
	if len(w) < 3 {
		return string(w)
	}
	return string(w[:3])
}

func (m Model) handleListKey(msg tea.KeyMsg) Model {
	kind := viewKinds[m.CurrentView]
	ids := m.taskIDs(kind)
	cursor := m.Cursor[m.CurrentView]
	switch msg.String() {
	case "j", "down":
		if cursor < len(ids)-1 {
			m.Cursor[m.CurrentView] = cursor + 1
		}
		return m
	case "k", "up":
		if cursor > 0 {
			m.Cursor[m.CurrentView] = cursor - 1
		}
		return m
	}
	if len(ids) == 0 {
		return m
	}
	id := ids[cursor]

	var err error
	var done string
	switch msg.String() {
	case " ", "enter":
		if !kind.Scheduled() {
			return m
		}
		date := m.toggleDate(kind, id)
		err = m.apply(func(s *taskstore.Store) error { return s.Toggle(kind, id, date) })
		done = "toggled completion"
	case "a":
		if kind != model.KindDaily {
			return m
		}
		active := true
		for _, t := range m.Lists.Daily {
			if t.ID == id {
				active = !t.Active
			}
		}
		err = m.apply(func(s *taskstore.Store) error { return s.SetActive(id, active) })
		done = map[bool]string{true: "resumed", false: "paused"}[active]
	case "x", "delete":
		err = m.apply(func(s *taskstore.Store) error { return s.Delete(kind, id) })
		done = "deleted"
	default:
		return m
	}
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		m.LastError = err
		return m
	}
	m.Status = StatusBar{Text: done}
	return m
}

func (m Model) renderListView() string {
	kind := viewKinds[m.CurrentView]
	if !kind.Scheduled() {
		return views.RenderEntries(string(m.CurrentView), kindEntries(m.Lists, kind))
	}
	actions := "[j/k]move [space]done [x]delete"
	if kind == model.KindDaily {
		actions += " [a]pause/resume"
	}
	return views.RenderTaskList(views.TaskListData{
		Title:    strings.ToLower(string(m.CurrentView)),
		Rows:     m.taskRows(kind),
		Selected: m.Cursor[m.CurrentView],
		Actions:  actions,
	})
}

func kindEntries(l model.Lists, kind model.Kind) []model.Entry {
	if kind == model.KindBans {
		return l.Bans
	}
	return l.Rules
}
