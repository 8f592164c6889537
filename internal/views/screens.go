package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/sandeepkv93/ritualcal/internal/calendar"
	"github.com/sandeepkv93/ritualcal/internal/model"
)

type TaskRowData struct {
	ID          string
	Name        string
	Description string
	Schedule    string
	Reminder    bool
	Done        bool
	Inactive    bool
}

type TaskListData struct {
	Title    string
	Rows     []TaskRowData
	Selected int
	Actions  string
}

type MonthData struct {
	Focus  model.Date
	Today  model.Date
	Grid   [6][7]model.Date
	Events map[model.Date][]calendar.Event
}

type HelpPanelData struct {
	CurrentView string
	Bindings    []string
	HelpView    string
}

var (
	doneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Strikethrough(true)
	inactiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	todayStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	focusStyle    = lipgloss.NewStyle().Reverse(true)
	outsideStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	kindStyles    = map[model.Kind]lipgloss.Style{
		model.KindDaily:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		model.KindWeekly: lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		model.KindMaster: lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
	}
)

func RenderTaskList(data TaskListData) string {
	var b strings.Builder
	b.WriteString(data.Title + ":\n")
	if data.Actions != "" {
		b.WriteString("actions: " + data.Actions + "\n")
	}
	if len(data.Rows) == 0 {
		b.WriteString("  (empty)")
		return b.String()
	}
	for i, row := range data.Rows {
		cursor := " "
		if i == data.Selected {
			cursor = ">"
		}
		check := "[ ]"
		if row.Done {
			check = "[x]"
		}
		line := fmt.Sprintf("%d. %s", i+1, row.Name)
		switch {
		case row.Inactive:
			line = inactiveStyle.Render(line + " (paused)")
		case row.Done:
			line = doneStyle.Render(line)
		}
		b.WriteString(fmt.Sprintf("%s %s %s", cursor, check, line))
		if row.Schedule != "" {
			b.WriteString(" @" + row.Schedule)
		}
		if row.Reminder {
			b.WriteString(" 🔔")
		}
		b.WriteString("\n")
		if i == data.Selected && row.Description != "" {
			b.WriteString("      " + row.Description + "\n")
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// EntriesMarkdown formats rules or bans as a numbered markdown list.
func EntriesMarkdown(title string, entries []model.Entry) string {
	var b strings.Builder
	b.WriteString("## " + title + "\n\n")
	if len(entries) == 0 {
		b.WriteString("_Nothing here yet._\n")
		return b.String()
	}
	for i, e := range entries {
		b.WriteString(fmt.Sprintf("%d. %s\n", i+1, e.Text))
	}
	return b.String()
}

func RenderEntries(title string, entries []model.Entry) string {
	return RenderMarkdown(EntriesMarkdown(title, entries))
}

// RenderMonth draws a Monday-first month grid followed by the agenda of the
// focused day.
func RenderMonth(data MonthData) string {
	var b strings.Builder
	focus := data.Focus.In(time.UTC)
	b.WriteString(fmt.Sprintf("%s %d\n", focus.Month(), focus.Year()))
	b.WriteString(" Mo  Tu  We  Th  Fr  Sa  Su\n")
	for _, week := range data.Grid {
		cells := make([]string, 0, 7)
		for _, d := range week {
			cells = append(cells, dayCell(d, data))
		}
		b.WriteString(strings.Join(cells, " ") + "\n")
	}

	b.WriteString(fmt.Sprintf("\n%s:\n", data.Focus))
	events := data.Events[data.Focus]
	if len(events) == 0 {
		b.WriteString("  (no rituals)")
		return b.String()
	}
	for _, ev := range events {
		when := string(ev.Time)
		if ev.AllDay {
			when = "all-day"
		}
		check := "[ ]"
		if ev.Completed {
			check = "[x]"
		}
		style, ok := kindStyles[ev.Kind]
		if !ok {
			style = lipgloss.NewStyle()
		}
		b.WriteString(fmt.Sprintf("  %s %-7s %s\n", check, when, style.Render(ev.Title)))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func dayCell(d model.Date, data MonthData) string {
	t := d.In(time.UTC)
	label := fmt.Sprintf("%2d", t.Day())
	marker := " "
	if evs := data.Events[d]; len(evs) > 0 {
		marker = "•"
		if allComplete(evs) {
			marker = "✓"
		}
	}
	cell := label + marker
	switch {
	case d == data.Focus:
		return focusStyle.Render(cell)
	case d == data.Today:
		return todayStyle.Render(cell)
	case t.Month() != data.Focus.In(time.UTC).Month():
		return outsideStyle.Render(cell)
	default:
		return cell
	}
}

func allComplete(evs []calendar.Event) bool {
	for _, ev := range evs {
		if !ev.Completed {
			return false
		}
	}
	return true
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return fmt.Sprintf("command: /%s", input)
}

func RenderNotification(level string, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return fmt.Sprintf("notification: [%s] %s", strings.ToUpper(level), body)
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help:\nglobal:\n%s view:\n%s\n%s",
		strings.ToLower(data.CurrentView),
		strings.Join(data.Bindings, "\n"),
		data.HelpView,
	)
}
