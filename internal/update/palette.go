package update

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/ritualcal/internal/commands"
	"github.com/sandeepkv93/ritualcal/internal/model"
	"github.com/sandeepkv93/ritualcal/internal/taskstore"
)

func (m Model) handlePaletteKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "esc":
		m.closePalette()
		m.Status = StatusBar{Text: "command palette closed"}
	case "enter":
		m.Palette.Input = m.commandInput.Value()
		m = m.executePaletteCommand()
	default:
		if msg.Type == tea.KeyRunes {
			m.commandInput.SetValue(m.commandInput.Value() + string(msg.Runes))
		} else {
			m.commandInput, _ = m.commandInput.Update(msg)
		}
		m.Palette.Input = m.commandInput.Value()
	}
	return m
}

func (m *Model) closePalette() {
	m.Palette = CommandPaletteState{}
	m.commandInput.SetValue("")
	m.commandInput.Blur()
}

func (m Model) executePaletteCommand() Model {
	raw := strings.TrimSpace(m.Palette.Input)
	m.closePalette()
	cmd, err := commands.Parse(raw)
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m
	}

	res, err := commands.Execute(cmd, commands.Handlers{
		Add: func(a commands.AddArgs) (commands.Result, error) {
			d := mergeFields(taskstore.Draft{}, a.Fields)
			err := m.apply(func(s *taskstore.Store) error {
				_, err := s.Create(a.Kind, d)
				return err
			})
			if err != nil {
				return commands.Result{}, err
			}
			m.CurrentView = viewOf(a.Kind)
			m.Cursor[m.CurrentView] = max(m.Lists.Len(a.Kind)-1, 0)
			return commands.Result{Message: fmt.Sprintf("added to %s: %s", a.Kind, d.Name)}, nil
		},
		Edit: func(e commands.EditArgs) (commands.Result, error) {
			id, err := m.resolve(e.Kind, e.Ref)
			if err != nil {
				return commands.Result{}, err
			}
			d := mergeFields(m.draftOf(e.Kind, id), e.Fields)
			if err := m.apply(func(s *taskstore.Store) error { return s.Update(e.Kind, id, d) }); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("updated %s item %s", e.Kind, e.Ref)}, nil
		},
		Toggle: func(t commands.ToggleArgs) (commands.Result, error) {
			id, err := m.resolve(t.Kind, t.Ref)
			if err != nil {
				return commands.Result{}, err
			}
			date := t.Date
			if date == "" {
				date = m.toggleDate(t.Kind, id)
			}
			if err := m.apply(func(s *taskstore.Store) error { return s.Toggle(t.Kind, id, date) }); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("toggled %s item %s for %s", t.Kind, t.Ref, date)}, nil
		},
		Delete: func(d commands.DeleteArgs) (commands.Result, error) {
			id, err := m.resolve(d.Kind, d.Ref)
			if err != nil {
				return commands.Result{}, err
			}
			if err := m.apply(func(s *taskstore.Store) error { return s.Delete(d.Kind, id) }); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: fmt.Sprintf("deleted %s item %s", d.Kind, d.Ref)}, nil
		},
		Activate: func(a commands.ActivateArgs) (commands.Result, error) {
			id, err := m.resolve(model.KindDaily, a.Ref)
			if err != nil {
				return commands.Result{}, err
			}
			if err := m.apply(func(s *taskstore.Store) error { return s.SetActive(id, a.Active) }); err != nil {
				return commands.Result{}, err
			}
			verb := "paused"
			if a.Active {
				verb = "resumed"
			}
			return commands.Result{Message: fmt.Sprintf("%s daily item %s", verb, a.Ref)}, nil
		},
		Entry: func(e commands.EntryArgs) (commands.Result, error) {
			err := m.apply(func(s *taskstore.Store) error {
				_, err := s.Create(e.Kind, taskstore.Draft{Name: e.Text})
				return err
			})
			if err != nil {
				return commands.Result{}, err
			}
			m.CurrentView = viewOf(e.Kind)
			return commands.Result{Message: fmt.Sprintf("added to %s", e.Kind)}, nil
		},
		Show: func(s commands.ShowArgs) (commands.Result, error) {
			switch s.Subject {
			case commands.SubjectCalendar:
				m.CurrentView = ViewCalendar
				return commands.Result{Message: "showing calendar"}, nil
			case commands.SubjectHelp:
				m.HelpVisible = true
				return commands.Result{Message: "help shown"}, nil
			case commands.SubjectShare:
				link := m.shareLink()
				if link == "" {
					return commands.Result{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: "no calendar connected"}
				}
				return commands.Result{Message: "share link: " + link}, nil
			}
			kind, err := model.ParseKind(s.Subject)
			if err != nil {
				return commands.Result{}, err
			}
			m.CurrentView = viewOf(kind)
			return commands.Result{Message: "showing " + string(kind)}, nil
		},
	})
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		m.LastError = err
		return m
	}
	m.Status = StatusBar{Text: res.Message}
	m.notify("Command", res.Message, "info")
	return m
}

func mergeFields(d taskstore.Draft, f commands.Fields) taskstore.Draft {
	if f.Name != "" {
		d.Name = f.Name
	}
	if f.Description != nil {
		d.Description = *f.Description
	}
	if f.Time != nil {
		d.Time = *f.Time
	}
	if f.Day != nil {
		d.Day = *f.Day
	}
	if f.Reminder != nil {
		d.Reminder = *f.Reminder
	}
	return d
}
