package update

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/ritualcal/internal/views"
)

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{minuteTickCmd(m.deps.Now())}
	if m.deps.Changes != nil {
		cmds = append(cmds, waitForChangeCmd(m.deps.Changes))
	}
	return tea.Batch(cmds...)
}

func waitForChangeCmd(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return ListsChangedMsg{}
	}
}

// minuteTickCmd fires at the start of the next wall-clock minute.
func minuteTickCmd(now time.Time) tea.Cmd {
	wait := now.Truncate(time.Minute).Add(time.Minute).Sub(now)
	return tea.Tick(wait, func(at time.Time) tea.Msg { return MinuteTickMsg{At: at} })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if m.Palette.Active {
			return m.handlePaletteKey(typed), nil
		}
		keyStr := typed.String()
		switch keyStr {
		case "ctrl+c", m.Keys.Quit:
			m.Quitting = true
			return m, tea.Quit
		case "/":
			m.Palette = CommandPaletteState{Active: true}
			m.commandInput.SetValue("")
			m.commandInput.Focus()
			m.Status = StatusBar{Text: "command palette active"}
			return m, nil
		case m.Keys.Help:
			m.HelpVisible = !m.HelpVisible
			return m, nil
		case m.Keys.Next:
			m.CurrentView = tabs[(m.tabIndex()+1)%len(tabs)]
			return m, nil
		case m.Keys.Sync:
			return m.startReplay()
		case "1", "2", "3", "4", "5", "6":
			m.CurrentView = tabs[int(keyStr[0]-'1')]
			return m, nil
		}
		if m.CurrentView == ViewCalendar {
			return m.handleCalendarKey(typed), nil
		}
		return m.handleListKey(typed), nil
	case ListsChangedMsg:
		m.refresh()
		if m.deps.Changes == nil {
			return m, nil
		}
		return m, waitForChangeCmd(m.deps.Changes)
	case MinuteTickMsg:
		m = m.onMinute(typed.At)
		return m, tea.Batch(minuteTickCmd(typed.At), m.resetWeekCmd())
	case ReplayDoneMsg:
		m.Syncing = false
		m.refresh()
		if typed.Err != nil {
			m.Status = StatusBar{Text: fmt.Sprintf("sync failed: %v", typed.Err), IsError: true}
			m.LastError = typed.Err
			return m, nil
		}
		m.Status = StatusBar{Text: "sync complete"}
		return m, nil
	case spinner.TickMsg:
		if m.Syncing {
			var cmd tea.Cmd
			m.syncSpinner, cmd = m.syncSpinner.Update(typed)
			return m, cmd
		}
	case SwitchViewMsg:
		if m.isKnownView(typed.View) {
			m.CurrentView = typed.View
		}
		return m, nil
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		m.notify("Status", typed.Text, levelFromError(typed.IsError))
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		m.LastError = typed.Err
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
			m.notify("Error", typed.Err.Error(), "error")
		}
		return m, nil
	}
	return m, nil
}

func (m Model) View() string {
	if m.Quitting {
		return ""
	}
	status := ""
	if m.Status.Text != "" {
		if m.Status.IsError {
			status = "status: error: " + m.Status.Text
		} else {
			status = "status: " + m.Status.Text
		}
	}

	main := ""
	if m.CurrentView == ViewCalendar {
		main = m.renderCalendarView()
	} else {
		main = m.renderListView()
	}
	side := strings.TrimSpace(strings.Join([]string{
		views.RenderCommandPalette(m.Palette.Active, m.commandInput.Value()),
		m.renderHelpIfVisible(),
	}, "\n"))

	notification := ""
	if n := len(m.Notifications); n > 0 {
		last := m.Notifications[n-1]
		notification = views.RenderNotification(last.Level, last.Title+": "+last.Body)
	}
	if m.Syncing {
		notification = strings.TrimSpace(notification + "\nsync: " + m.syncSpinner.View() + " running")
	}

	names := make([]string, len(tabs))
	for i, v := range tabs {
		names[i] = fmt.Sprintf("%d %s", i+1, v)
	}
	header := "ritualcal | " + string(m.today())
	if id := m.calendarID(); id != "" {
		header += " | calendar: " + id
	}
	return views.RenderApp(views.AppData{
		Header:       header,
		Tabs:         views.RenderTabs(names, m.tabIndex()),
		MainPane:     main,
		SidePane:     side,
		StatusLine:   status,
		Notification: notification,
		Footer:       fmt.Sprintf("keys: 1-6 views | %s next | / cmd | %s sync | %s help | %s quit", m.Keys.Next, m.Keys.Sync, m.Keys.Help, m.Keys.Quit),
	})
}

func (m Model) tabIndex() int {
	for i, v := range tabs {
		if v == m.CurrentView {
			return i
		}
	}
	return 0
}

func (m Model) isKnownView(v View) bool {
	for _, known := range tabs {
		if known == v {
			return true
		}
	}
	return false
}
