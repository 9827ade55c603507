package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sweeney/habit-tracker/internal/dispatch"
	"github.com/sweeney/habit-tracker/internal/stats"
	"github.com/sweeney/habit-tracker/internal/ui"
)

// Backend is the part of *dispatch.Dispatcher the board drives.
type Backend interface {
	State() stats.State
	Config() stats.Config
	Dispatch(ctx context.Context, a stats.Action, now time.Time) dispatch.Outcome
	Advance(ctx context.Context, now time.Time) dispatch.Outcome
}

type boardRow struct {
	label  string
	action stats.Action
	done   func(stats.DailyFlags, stats.WeeklyFlags, stats.State) bool
}

var boardRows = []boardRow{
	{"Morning prayer", stats.Action{Type: stats.ActionLogMorningPrayer},
		func(d stats.DailyFlags, _ stats.WeeklyFlags, _ stats.State) bool { return d.MorningPrayer }},
	{"Evening prayer", stats.Action{Type: stats.ActionLogEveningPrayer},
		func(d stats.DailyFlags, _ stats.WeeklyFlags, _ stats.State) bool { return d.EveningPrayer }},
	{"Scripture", stats.Action{Type: stats.ActionLogScripture},
		func(d stats.DailyFlags, _ stats.WeeklyFlags, _ stats.State) bool { return d.Scripture }},
	{"Service", stats.Action{Type: stats.ActionLogService}, nil},
	{"Kindness", stats.Action{Type: stats.ActionLogKindness}, nil},
	{"Church", stats.LogWeekly(stats.WeeklyChurch),
		func(_ stats.DailyFlags, w stats.WeeklyFlags, _ stats.State) bool { return w.Church }},
	{"Mutual", stats.LogWeekly(stats.WeeklyMutual),
		func(_ stats.DailyFlags, w stats.WeeklyFlags, _ stats.State) bool { return w.Mutual }},
	{"Temple", stats.LogWeekly(stats.WeeklyTemple),
		func(_ stats.DailyFlags, w stats.WeeklyFlags, _ stats.State) bool { return w.Temple }},
	{"Go to sleep", stats.Action{Type: stats.ActionStartSleep},
		func(_ stats.DailyFlags, _ stats.WeeklyFlags, s stats.State) bool { return s.Sleep.Open() }},
	{"Wake up", stats.Action{Type: stats.ActionEndSleep},
		func(_ stats.DailyFlags, _ stats.WeeklyFlags, s stats.State) bool { return !s.Sleep.Open() }},
}

type boardModel struct {
	ctx     context.Context
	backend Backend
	now     func() time.Time

	width  int
	height int

	state    stats.State
	at       time.Time
	selected int

	lastLog string
	loaded  bool
}

type loadedMsg struct {
	state stats.State
	at    time.Time
}

type dispatchedMsg struct {
	out dispatch.Outcome
}

func newBoardModel(ctx context.Context, b Backend, now func() time.Time) boardModel {
	return boardModel{
		ctx:     ctx,
		backend: b,
		now:     now,
		lastLog: "Loaded.",
	}
}

func (m boardModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m boardModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		now := m.now()
		out := m.backend.Advance(m.ctx, now)
		return loadedMsg{state: out.State, at: now}
	}
}

func (m boardModel) dispatchCmd(a stats.Action) tea.Cmd {
	return func() tea.Msg {
		return dispatchedMsg{out: m.backend.Dispatch(m.ctx, a, m.now())}
	}
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case loadedMsg:
		m.loaded = true
		m.state = msg.state
		m.at = msg.at
		m.lastLog = fmt.Sprintf("Refreshed at %s.", msg.at.Format("15:04:05"))
		return m, nil
	case dispatchedMsg:
		m.state = msg.out.State
		m.at = msg.out.At
		m.lastLog = describe(msg.out)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			m.lastLog = "Refreshing..."
			return m, m.loadCmd()
		case "up", "k":
			if m.selected > 0 {
				m.selected--
			}
			return m, nil
		case "down", "j":
			if m.selected < len(boardRows)-1 {
				m.selected++
			}
			return m, nil
		case "enter", " ":
			row := boardRows[m.selected]
			m.lastLog = fmt.Sprintf("Logging %s...", strings.ToLower(row.label))
			return m, m.dispatchCmd(row.action)
		}
	}
	return m, nil
}

func describe(out dispatch.Outcome) string {
	if len(out.Events) > 0 {
		msgs := make([]string, 0, len(out.Events))
		for _, ev := range out.Events {
			msgs = append(msgs, ev.Message())
		}
		return strings.Join(msgs, " ")
	}
	if !out.Applied {
		return fmt.Sprintf("%s: already logged.", out.Action)
	}
	return fmt.Sprintf("%s: health %.1f, coins %d.", out.Action, out.State.Health, out.State.Coins)
}

func (m boardModel) View() string {
	if !m.loaded {
		return "Habit Tracker | loading...\n"
	}
	return m.renderHeader() + "\n\n" + m.renderRows() + "\n" + m.renderFooter()
}

func (m boardModel) renderHeader() string {
	cfg := m.backend.Config()
	s := m.state
	bar := ui.ProgressBar(s.Health, cfg.LevelTrigger, 30)
	header := fmt.Sprintf("Habit Tracker | Level %d | Health %.1f %s | Coins %d",
		s.SkillLevel, s.Health, bar, s.Coins)
	if len(s.Badges) > 0 {
		header += fmt.Sprintf(" | Badges %d", len(s.Badges))
	}
	return header
}

func (m boardModel) renderRows() string {
	day := m.state.Day(stats.DayKeyFor(m.at))
	week := m.state.Week(stats.WeekKeyFor(m.at))

	var out []string
	for i, row := range boardRows {
		cursor := "  "
		if i == m.selected {
			cursor = "> "
		}
		mark := "[ ]"
		switch {
		case row.done == nil:
			mark = fmt.Sprintf("[%d]", day.KindnessCount)
		case row.done(day, week, m.state):
			mark = "[x]"
		}
		out = append(out, fmt.Sprintf("%s%s %s", cursor, mark, row.label))
	}
	return strings.Join(out, "\n")
}

func (m boardModel) renderFooter() string {
	return "\n" + m.lastLog + "\n" + "enter: log  r: refresh  q: quit"
}
