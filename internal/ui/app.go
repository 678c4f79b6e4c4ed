package ui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/nimbus/internal/prefs"
	"github.com/five82/nimbus/internal/state"
	"github.com/five82/nimbus/internal/weather"
)

// View represents the current active view.
type View int

const (
	ViewCities View = iota
	ViewLogs
)

// Dispatcher is the set of user intents the UI can issue.
type Dispatcher interface {
	Search(ctx context.Context, input string) error
	Remove(id weather.CityID)
	ToggleFavorite(id weather.CityID) error
	ToggleUnit(ctx context.Context) error
	ClearError()
	Snapshot() state.Snapshot
}

// Suggester offers city names while the user types.
type Suggester interface {
	Suggest(ctx context.Context, partial string) ([]weather.Suggestion, error)
}

// Options configures the UI.
type Options struct {
	Context    context.Context
	Dispatcher Dispatcher
	Suggester  Suggester // nil disables suggestions
	PollTick   time.Duration
	ThemeName  string
	PrefsPath  string
	LogPath    string
	Logger     *slog.Logger
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx        context.Context
	dispatcher Dispatcher
	suggester  Suggester
	logger     *slog.Logger
	prefsPath  string
	logPath    string
	pollTick   time.Duration

	// UI state
	keys        keyMap
	help        help.Model
	spinner     spinner.Model
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool

	// Data state
	snapshot    state.Snapshot
	lastUpdated time.Time

	// City list state
	selected   int
	selectedID weather.CityID

	// Search input and suggestions
	search searchState

	// Detail modal, nil when closed
	modal Modal

	// Help overlay
	showHelp bool

	// Log state
	logViewport viewport.Model
	logLevel    slog.Level
	logErr      string
	logLoadedAt time.Time

	// Transient action failure shown in the header
	notice string
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick == 0 {
		pollTick = DefaultUIInterval
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Nightfox"
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	m := Model{
		ctx:         ctx,
		dispatcher:  opts.Dispatcher,
		suggester:   opts.Suggester,
		logger:      logger.With("component", "ui"),
		prefsPath:   opts.PrefsPath,
		logPath:     opts.LogPath,
		pollTick:    pollTick,
		keys:        DefaultKeyMap(),
		help:        help.New(),
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot)),
		currentView: ViewCities,
		search:      newSearchState(),
		logViewport: viewport.New(0, 0),
		logLevel:    slog.LevelInfo,
	}
	m.applyTheme(GetTheme(themeName))
	return m
}

// applyTheme switches the palette and restyles the bubbles components.
func (m *Model) applyTheme(t Theme) {
	m.theme = t
	styles := t.Styles()

	m.spinner.Style = styles.AccentText

	m.help.Styles.ShortKey = styles.AccentText
	m.help.Styles.ShortDesc = styles.MutedText
	m.help.Styles.ShortSeparator = styles.FaintText
	m.help.Styles.FullKey = lipgloss.NewStyle().Foreground(lipgloss.Color(t.Warning))
	m.help.Styles.FullDesc = styles.Text
	m.help.Styles.FullSeparator = styles.FaintText
	m.help.Styles.Ellipsis = styles.FaintText

	m.search.input.PromptStyle = styles.AccentText
	m.search.input.TextStyle = styles.Text
	m.search.input.PlaceholderStyle = styles.FaintText
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(m.pollTick),
		m.spinner.Tick,
	}
	// Fetch snapshot immediately on start
	if m.dispatcher != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.dispatcher))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.help.Width = msg.Width
		m.resizeLogViewport()
		m.refreshModal()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case snapshotMsg:
		m.snapshot = state.Snapshot(msg)
		m.lastUpdated = time.Now()
		m.syncSelection()
		m.refreshModal()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case actionDoneMsg:
		return m.handleActionDone(msg)

	case suggestTickMsg:
		return m.handleSuggestTick(msg)

	case suggestionsMsg:
		m.handleSuggestions(msg)
		return m, nil

	case logsMsg:
		m.handleLogs(msg)
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	// Show help overlay if active
	if m.showHelp {
		return m.renderHelp()
	}

	// Show detail modal if open
	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}

	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// Handle help overlay
	if m.showHelp {
		// Any key closes help
		m.showHelp = false
		return m, nil
	}

	if m.search.active {
		return m.handleSearchKey(msg)
	}

	if m.modal != nil {
		return m.handleModalKey(msg)
	}

	// Global keys
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.cycleTheme()
		return m, nil
	}

	// View-specific keys
	switch m.currentView {
	case ViewLogs:
		return m.handleLogsKey(msg)
	default:
		return m.handleCitiesKey(msg)
	}
}

// handleCitiesKey processes keyboard input for the city list.
func (m Model) handleCitiesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Search):
		return m, m.startSearch()

	case key.Matches(msg, m.keys.ViewLogs):
		m.currentView = ViewLogs
		return m, loadLogsCmd(m.logPath, m.logLevel)

	case key.Matches(msg, m.keys.ToggleUnit):
		return m, toggleUnitCmd(m.ctx, m.dispatcher, m.prefsPath)

	case key.Matches(msg, m.keys.ClearError):
		m.notice = ""
		m.dispatcher.ClearError()
		return m, fetchSnapshotCmd(m.dispatcher)

	case key.Matches(msg, m.keys.Escape):
		m.notice = ""
		return m, nil
	}

	count := len(m.snapshot.Cities)
	if count == 0 {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Down):
		m.moveSelection(1)
	case key.Matches(msg, m.keys.Up):
		m.moveSelection(-1)
	case key.Matches(msg, m.keys.Top):
		m.moveSelection(-count)
	case key.Matches(msg, m.keys.Bottom):
		m.moveSelection(count)

	case key.Matches(msg, m.keys.OpenDetail):
		m.openDetail(m.selectedID)

	case key.Matches(msg, m.keys.ToggleFavorite):
		return m, toggleFavoriteCmd(m.dispatcher, m.selectedID)

	case key.Matches(msg, m.keys.Remove):
		m.dispatcher.Remove(m.selectedID)
		return m, fetchSnapshotCmd(m.dispatcher)
	}

	return m, nil
}

// handleModalKey gives the detail modal its keys. Favorite toggling works
// from inside the modal.
func (m Model) handleModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ToggleFavorite) {
		if d, ok := m.modal.(*detailModal); ok {
			return m, toggleFavoriteCmd(m.dispatcher, d.id)
		}
	}
	modal, cmd, closed := m.modal.Update(msg, m.keys)
	if closed {
		m.modal = nil
		return m, cmd
	}
	m.modal = modal
	return m, cmd
}

// cycleTheme switches to the next theme and remembers the choice.
func (m *Model) cycleTheme() {
	m.applyTheme(GetTheme(NextTheme(m.theme.Name)))
	m.refreshModal()
	if m.prefsPath == "" {
		return
	}
	name := m.theme.Name
	if err := prefs.Update(m.prefsPath, func(p *prefs.Prefs) { p.Theme = name }); err != nil {
		m.logger.Warn("save theme failed", "error", err)
	}
}

// moveSelection shifts the selected card by delta, clamped to the list.
func (m *Model) moveSelection(delta int) {
	cities := m.snapshot.Cities
	if len(cities) == 0 {
		return
	}
	m.selected = clamp(m.selected+delta, 0, len(cities)-1)
	m.selectedID = cities[m.selected].ID
}

// syncSelection keeps the selection on the same city across reorders, and
// falls back to the nearest index when that city is gone.
func (m *Model) syncSelection() {
	cities := m.snapshot.Cities
	if len(cities) == 0 {
		m.selected = 0
		m.selectedID = 0
		return
	}
	for i, rec := range cities {
		if rec.ID == m.selectedID {
			m.selected = i
			return
		}
	}
	m.selected = clamp(m.selected, 0, len(cities)-1)
	m.selectedID = cities[m.selected].ID
}

// handleTick processes the polling tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	// Fetch latest snapshot
	if m.dispatcher != nil {
		cmds = append(cmds, fetchSnapshotCmd(m.dispatcher))
	}

	// Follow the log file while the log view is open
	if m.currentView == ViewLogs && time.Since(m.logLoadedAt) >= LogRefreshInterval {
		m.logLoadedAt = time.Now()
		cmds = append(cmds, loadLogsCmd(m.logPath, m.logLevel))
	}

	// Schedule next tick
	cmds = append(cmds, tickCmd(m.pollTick))

	return m, tea.Batch(cmds...)
}

// handleActionDone records a failed action and refreshes the snapshot.
// Search failures already reach the header through the snapshot error.
func (m Model) handleActionDone(msg actionDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.logger.Debug("action failed", "action", msg.action, "error", msg.err)
		if msg.action != actionSearch {
			m.notice = msg.action + ": " + weather.Message(msg.err)
		}
	}
	if m.dispatcher == nil {
		return m, nil
	}
	return m, fetchSnapshotCmd(m.dispatcher)
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder

	// Header line 1: logo + status
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	// Header line 2: command bar
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")

	// Main content
	b.WriteString(m.renderContent())

	return b.String()
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	if m.search.active {
		return m.renderSearch()
	}
	switch m.currentView {
	case ViewLogs:
		return m.renderLogs()
	default:
		return m.renderCards()
	}
}

// contentHeight is the space below the two header lines.
func (m Model) contentHeight() int {
	return max(m.height-2, 1)
}

// Messages

type tickMsg time.Time

type snapshotMsg state.Snapshot

const (
	actionSearch   = "search"
	actionFavorite = "favorite"
	actionUnit     = "unit"
)

type actionDoneMsg struct {
	action string
	err    error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchSnapshotCmd(d Dispatcher) tea.Cmd {
	return func() tea.Msg {
		return snapshotMsg(d.Snapshot())
	}
}

func searchCmd(ctx context.Context, d Dispatcher, query string) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{action: actionSearch, err: d.Search(ctx, query)}
	}
}

func toggleFavoriteCmd(d Dispatcher, id weather.CityID) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{action: actionFavorite, err: d.ToggleFavorite(id)}
	}
}

// toggleUnitCmd switches units and saves the new unit even when some
// refetches failed, since the switch itself has happened.
func toggleUnitCmd(ctx context.Context, d Dispatcher, prefsPath string) tea.Cmd {
	return func() tea.Msg {
		err := d.ToggleUnit(ctx)
		if prefsPath != "" {
			unit := d.Snapshot().Unit
			if saveErr := prefs.Update(prefsPath, func(p *prefs.Prefs) { p.Unit = string(unit) }); saveErr != nil && err == nil {
				err = saveErr
			}
		}
		return actionDoneMsg{action: actionUnit, err: err}
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	programOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if opts.Context != nil {
		programOpts = append(programOpts, tea.WithContext(opts.Context))
	}
	p := tea.NewProgram(m, programOpts...)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && opts.Context != nil && opts.Context.Err() != nil {
		return nil
	}
	return err
}
