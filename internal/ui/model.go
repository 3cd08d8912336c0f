package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rovshanmuradov/topbags/internal/ranking"
	"github.com/rovshanmuradov/topbags/internal/types"
	"github.com/rovshanmuradov/topbags/internal/ui/component"
	"github.com/rovshanmuradov/topbags/internal/ui/style"
)

// SnapshotSource returns the latest stored snapshot. *state.Store implements it.
type SnapshotSource interface {
	Latest() (types.Snapshot, bool)
}

// Refresher schedules an out-of-band batch run. *aggregator.Poller implements it.
type Refresher interface {
	Trigger()
}

// Options wires a Model.
type Options struct {
	Source    SnapshotSource
	Refresher Refresher
	Logs      component.LogSource
	Updates   <-chan tea.Msg
	Metric    ranking.Metric
	SOLPrice  float64
}

// Model is the leaderboard screen.
type Model struct {
	source    SnapshotSource
	refresher Refresher
	updates   <-chan tea.Msg

	keys    KeyMap
	help    help.Model
	spinner spinner.Model
	header  *component.StatusHeader
	podium  *component.Podium
	table   *component.Table
	logs    *component.CompactLogViewer

	metric     ranking.Metric
	board      ranking.Board
	snap       types.Snapshot
	hasSnap    bool
	refreshing bool
	lastErr    error
	solPrice   float64

	width  int
	height int
}

// NewModel creates the leaderboard model.
func NewModel(opts Options) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(style.Cyan)

	metric := opts.Metric
	if metric == "" {
		metric = ranking.MarketCap
	}

	m := &Model{
		source:    opts.Source,
		refresher: opts.Refresher,
		updates:   opts.Updates,
		keys:      DefaultKeyMap(),
		help:      help.New(),
		spinner:   sp,
		header:    component.NewStatusHeader(),
		podium:    component.NewPodium(),
		table: component.NewTable(
			component.TableColumn{Header: "#", Width: 5, Align: lipgloss.Right},
			component.TableColumn{Header: "Token", Align: lipgloss.Left},
			component.TableColumn{Header: "Symbol", Width: 10, Align: lipgloss.Left},
			component.TableColumn{Header: "Market Cap", Width: 14, Align: lipgloss.Right},
			component.TableColumn{Header: "Earnings", Width: 14, Align: lipgloss.Right},
			component.TableColumn{Header: "Price", Width: 14, Align: lipgloss.Right},
		),
		logs:     component.NewCompactLogViewer(opts.Logs),
		metric:   metric,
		solPrice: opts.SOLPrice,
		width:    100,
		height:   30,
	}

	if m.source != nil {
		if snap, ok := m.source.Latest(); ok {
			m.setSnapshot(snap)
		} else {
			m.refreshing = true
		}
	}
	m.resize()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickClock(), ListenUpdates(m.updates))
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case SnapshotMsg:
		m.setSnapshot(msg.Snapshot)
		m.refreshing = false
		m.lastErr = nil
		return m, ListenUpdates(m.updates)

	case RefreshStartedMsg:
		m.refreshing = true
		return m, ListenUpdates(m.updates)

	case RefreshFailedMsg:
		m.refreshing = false
		m.lastErr = msg.Err
		if m.lastErr == nil {
			m.lastErr = fmt.Errorf("refresh failed after %d attempts", msg.Attempts)
		}
		return m, ListenUpdates(m.updates)

	case SOLPriceMsg:
		m.solPrice = msg.Price
		return m, ListenUpdates(m.updates)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case clockMsg:
		return m, tickClock()
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()

	case key.Matches(msg, m.keys.ToggleMetric):
		m.SetMetric(m.metric.Other())

	case key.Matches(msg, m.keys.Refresh):
		if m.refresher != nil {
			m.refreshing = true
			m.refresher.Trigger()
		}

	case key.Matches(msg, m.keys.Up):
		m.table.MoveUp()

	case key.Matches(msg, m.keys.Down):
		m.table.MoveDown()

	case key.Matches(msg, m.keys.ToggleLogs):
		m.logs.SetVisible(!m.logs.IsVisible())
		m.resize()

	case key.Matches(msg, m.keys.ToggleDebug):
		m.logs.ToggleDebug()
	}
	return nil
}

// SetMetric re-ranks the current snapshot by metric.
func (m *Model) SetMetric(metric ranking.Metric) {
	m.metric = metric
	m.rebuild()
}

// Metric returns the active ranking metric.
func (m *Model) Metric() ranking.Metric {
	return m.metric
}

// Board returns the board currently on screen.
func (m *Model) Board() ranking.Board {
	return m.board
}

func (m *Model) setSnapshot(snap types.Snapshot) {
	m.snap = snap
	m.hasSnap = true
	m.rebuild()
}

func (m *Model) rebuild() {
	m.board = ranking.NewBoard(m.snap.Records, m.metric, m.snap.UpdatedAt)
	m.podium.SetBoard(m.board)

	rows := make([][]string, 0, len(m.board.List))
	for _, e := range m.board.List {
		rows = append(rows, []string{
			fmt.Sprintf("%d", e.Rank),
			e.Token.Name,
			e.Token.Symbol,
			component.FormatUSD(e.Token.MarketCapUSD),
			component.FormatUSD(e.Token.TotalEarningsUSD),
			component.FormatPrice(e.Token.PriceUSD),
		})
	}
	m.table.SetRows(rows)
}

func (m *Model) resize() {
	inner := m.width - 4
	m.header.SetWidth(inner)
	m.podium.SetWidth(inner)
	m.help.Width = inner

	if m.logs.IsVisible() {
		m.logs.SetSize(inner, 8)
	}

	// header, tabs, podium cards, help
	used := m.header.GetHeight() + 2 + 7 + 3 + m.logs.GetHeight()
	m.table.SetSize(inner, m.height-used)
}

// View implements tea.Model.
func (m *Model) View() string {
	m.header.SetStatus(component.HeaderStatus{
		Loaded:     len(m.snap.Records),
		Requested:  m.snap.Requested,
		SOLPrice:   m.solPrice,
		UpdatedAt:  m.snap.UpdatedAt,
		Refreshing: m.refreshing,
		Spinner:    m.spinner.View(),
		Err:        m.lastErr,
	})

	sections := []string{m.header.View(), m.renderTabs()}

	switch {
	case !m.hasSnap:
		sections = append(sections, style.MutedStyle.Render(m.spinner.View()+" Loading leaderboard..."))
	case m.board.Total == 0:
		sections = append(sections, style.WarningStyle.Render("No tokens with market data"))
	default:
		sections = append(sections, m.podium.View())
		if len(m.board.List) > 0 {
			sections = append(sections, m.table.View())
		}
	}

	if m.lastErr != nil {
		sections = append(sections, style.ErrorStyle.Render("Last refresh failed: "+m.lastErr.Error()))
	}
	if m.logs.IsVisible() {
		sections = append(sections, m.logs.View())
	}
	sections = append(sections, style.HelpStyle.Render(m.help.View(m.keys)))

	return style.ContainerStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m *Model) renderTabs() string {
	tabs := make([]string, 0, 2)
	for _, metric := range []ranking.Metric{ranking.MarketCap, ranking.Earnings} {
		if metric == m.metric {
			tabs = append(tabs, style.TabActiveStyle.Render(metric.Label()))
		} else {
			tabs = append(tabs, style.TabStyle.Render(metric.Label()))
		}
	}
	since := ""
	if !m.snap.UpdatedAt.IsZero() {
		since = style.MutedStyle.Render("  as of " + m.snap.UpdatedAt.Local().Format(time.Kitchen))
	}
	return strings.Join(tabs, " ") + since + "\n"
}
