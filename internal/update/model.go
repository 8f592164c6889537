package update

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"

	"github.com/sandeepkv93/ritualcal/internal/calendar"
	"github.com/sandeepkv93/ritualcal/internal/model"
	"github.com/sandeepkv93/ritualcal/internal/reminder"
	"github.com/sandeepkv93/ritualcal/internal/taskstore"
)

type View string

const (
	ViewDaily    View = "Daily"
	ViewWeekly   View = "Weekly"
	ViewMaster   View = "Master"
	ViewRules    View = "Rules"
	ViewBans     View = "Bans"
	ViewCalendar View = "Calendar"
)

var tabs = []View{ViewDaily, ViewWeekly, ViewMaster, ViewRules, ViewBans, ViewCalendar}

var viewKinds = map[View]model.Kind{
	ViewDaily:  model.KindDaily,
	ViewWeekly: model.KindWeekly,
	ViewMaster: model.KindMaster,
	ViewRules:  model.KindRules,
	ViewBans:   model.KindBans,
}

func viewOf(kind model.Kind) View {
	for v, k := range viewKinds {
		if k == kind {
			return v
		}
	}
	return ViewDaily
}

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Next     string
	Calendar string
	Help     string
	Sync     string
	Quit     string
}

// Controller owns writes to the task store. The sync engine implements it.
type Controller interface {
	Apply(mutate func(*taskstore.Store) error) error
	CalendarID() string
	ResetWeek(today model.Date) (bool, error)
	Replay(ctx context.Context) error
}

type Deps struct {
	Store *taskstore.Store
	Sync  Controller
	// Changes is signalled whenever the store was replaced from outside.
	Changes  <-chan struct{}
	Fallback *reminder.Fallback
	// ShareURL is the base of the shareable calendar link.
	ShareURL string
	Logger   *slog.Logger
	Now      func() time.Time
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

type CalendarState struct {
	Focus model.Date
}

type Notification struct {
	Title string
	Body  string
	Level string
	At    time.Time
}

type Model struct {
	CurrentView   View
	Lists         model.Lists
	Cursor        map[View]int
	Calendar      CalendarState
	Palette       CommandPaletteState
	HelpVisible   bool
	Notifications []Notification
	Status        StatusBar
	Keys          GlobalKeyMap
	Quitting      bool
	LastError     error
	Syncing       bool

	deps         Deps
	log          *slog.Logger
	commandInput textinput.Model
	syncSpinner  spinner.Model
	helpModel    help.Model
}

type SwitchViewMsg struct {
	View View
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

// ListsChangedMsg reports that a remote snapshot replaced the store.
type ListsChangedMsg struct{}

type MinuteTickMsg struct {
	At time.Time
}

type ReplayDoneMsg struct {
	Err error
}

func NewModel(deps Deps) Model {
	if deps.Store == nil {
		deps.Store = taskstore.New(time.UTC)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	m := Model{
		CurrentView: ViewDaily,
		Lists:       deps.Store.Lists(),
		Cursor:      make(map[View]int),
		Keys: GlobalKeyMap{
			Next:     "tab",
			Calendar: "6",
			Help:     "?",
			Sync:     "S",
			Quit:     "q",
		},
		deps: deps,
		log:  logger,
	}
	m.Calendar.Focus = m.today()
	m.initBubbleComponents()
	return m
}

func (m *Model) initBubbleComponents() {
	m.commandInput = textinput.New()
	m.commandInput.Prompt = "/"
	m.commandInput.CharLimit = 256
	m.commandInput.Width = 56

	m.syncSpinner = spinner.New()
	m.syncSpinner.Spinner = spinner.Dot

	m.helpModel = help.New()
}

func (m Model) today() model.Date {
	return model.DateOf(m.deps.Now().In(m.deps.Store.Location()))
}

func (m *Model) refresh() {
	m.Lists = m.deps.Store.Lists()
	for v, kind := range viewKinds {
		if n := m.Lists.Len(kind); m.Cursor[v] >= n {
			m.Cursor[v] = max(n-1, 0)
		}
	}
}

// apply routes a mutation through the controller when present so it is
// persisted and synced; without one the store is mutated directly.
func (m *Model) apply(mutate func(*taskstore.Store) error) error {
	var err error
	if m.deps.Sync != nil {
		err = m.deps.Sync.Apply(mutate)
	} else {
		err = mutate(m.deps.Store)
	}
	m.refresh()
	return err
}

func (m Model) calendarID() string {
	if m.deps.Sync == nil {
		return ""
	}
	return m.deps.Sync.CalendarID()
}

func (m Model) shareLink() string {
	id := m.calendarID()
	if id == "" {
		return ""
	}
	base := strings.TrimSpace(m.deps.ShareURL)
	if base == "" {
		base = "ritualcal://open"
	}
	return base + "?c=" + id
}

func (m *Model) notify(title, body, level string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	m.Notifications = append(m.Notifications, Notification{
		Title: title,
		Body:  body,
		Level: level,
		At:    m.deps.Now().UTC(),
	})
	if len(m.Notifications) > 40 {
		m.Notifications = m.Notifications[len(m.Notifications)-40:]
	}
}

func (m Model) monthEvents() ([6][7]model.Date, map[model.Date][]calendar.Event) {
	grid := calendar.MonthGrid(m.Calendar.Focus)
	events, err := calendar.Project(m.Lists, grid[0][0], grid[5][6])
	if err != nil {
		m.log.Warn("calendar projection failed", "error", err)
		return grid, nil
	}
	return grid, calendar.ByDate(events)
}

func levelFromError(isErr bool) string {
	if isErr {
		return "error"
	}
	return "info"
}
