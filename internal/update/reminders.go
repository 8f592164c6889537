package update

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const replayTimeout = 15 * time.Second

// onMinute runs the local reminder fallback for the minute that just began.
func (m Model) onMinute(at time.Time) Model {
	if m.deps.Fallback == nil {
		return m
	}
	shown := m.deps.Fallback.Tick(at)
	for _, n := range shown {
		m.notify(n.Title, n.Body, "reminder")
	}
	if len(shown) > 0 {
		last := shown[len(shown)-1]
		m.Status = StatusBar{Text: last.Body}
	}
	return m
}

// resetWeekCmd clears weekly completions once a new ISO week starts.
func (m Model) resetWeekCmd() tea.Cmd {
	if m.deps.Sync == nil {
		return nil
	}
	ctrl := m.deps.Sync
	today := m.today()
	return func() tea.Msg {
		reset, err := ctrl.ResetWeek(today)
		if err != nil {
			return AppErrorMsg{Err: fmt.Errorf("weekly reset: %w", err)}
		}
		if reset {
			return SetStatusMsg{Text: "new week: weekly tasks reset"}
		}
		return nil
	}
}

func (m Model) startReplay() (Model, tea.Cmd) {
	if m.deps.Sync == nil {
		m.Status = StatusBar{Text: "sync unavailable: no calendar connected", IsError: true}
		return m, nil
	}
	if m.Syncing {
		return m, nil
	}
	m.Syncing = true
	m.Status = StatusBar{Text: "sync started"}
	ctrl := m.deps.Sync
	replay := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), replayTimeout)
		defer cancel()
		return ReplayDoneMsg{Err: ctrl.Replay(ctx)}
	}
	return m, tea.Batch(m.syncSpinner.Tick, replay)
}
