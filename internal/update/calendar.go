package update

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/ritualcal/internal/model"
	"github.com/sandeepkv93/ritualcal/internal/views"
)

func (m Model) handleCalendarKey(msg tea.KeyMsg) Model {
	focus := m.Calendar.Focus
	switch msg.String() {
	case "h", "left":
		focus = focus.AddDays(-1)
	case "l", "right":
		focus = focus.AddDays(1)
	case "k", "up":
		focus = focus.AddDays(-7)
	case "j", "down":
		focus = focus.AddDays(7)
	case "[":
		focus = addMonths(focus, -1)
	case "]":
		focus = addMonths(focus, 1)
	case "t":
		focus = m.today()
	default:
		return m
	}
	m.Calendar.Focus = focus
	return m
}

func (m Model) renderCalendarView() string {
	grid, events := m.monthEvents()
	return views.RenderMonth(views.MonthData{
		Focus:  m.Calendar.Focus,
		Today:  m.today(),
		Grid:   grid,
		Events: events,
	})
}

// addMonths moves by whole months, clamping to the last day of the target
// month so Jan 31 goes to Feb 28/29 rather than rolling into March.
func addMonths(d model.Date, n int) model.Date {
	t := d.In(time.UTC)
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	last := first.AddDate(0, 1, -1).Day()
	day := min(t.Day(), last)
	return model.DateOf(first.AddDate(0, 0, day-1))
}
