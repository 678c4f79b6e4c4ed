package ui

import (
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/nimbus/internal/logtail"
)

// logLevels is the cycle order of the level filter.
var logLevels = []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError}

type logsMsg struct {
	entries []logtail.Entry
	err     error
}

func loadLogsCmd(path string, level slog.Level) tea.Cmd {
	return func() tea.Msg {
		if path == "" {
			return logsMsg{}
		}
		lines, err := logtail.Read(path, LogLineLimit)
		if err != nil {
			return logsMsg{err: err}
		}
		return logsMsg{entries: logtail.Filter(lines, level)}
	}
}

// handleLogsKey processes keyboard input for the log view.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape), key.Matches(msg, m.keys.ViewLogs):
		m.currentView = ViewCities
		return m, nil

	case key.Matches(msg, m.keys.CycleLevel):
		m.logLevel = nextLevel(m.logLevel)
		return m, loadLogsCmd(m.logPath, m.logLevel)

	case key.Matches(msg, m.keys.Top):
		m.logViewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.logViewport, cmd = m.logViewport.Update(msg)
	return m, cmd
}

func nextLevel(current slog.Level) slog.Level {
	for i, l := range logLevels {
		if l == current {
			return logLevels[(i+1)%len(logLevels)]
		}
	}
	return slog.LevelInfo
}

func (m *Model) resizeLogViewport() {
	m.logViewport.Width = max(m.width, 1)
	m.logViewport.Height = m.contentHeight()
}

// handleLogs replaces the log view content and keeps following the tail
// when the view was already at the bottom.
func (m *Model) handleLogs(msg logsMsg) {
	if msg.err != nil {
		m.logErr = msg.err.Error()
		return
	}
	m.logErr = ""

	follow := m.logViewport.AtBottom() || m.logViewport.TotalLineCount() == 0
	m.logViewport.SetContent(m.formatEntries(msg.entries))
	if follow {
		m.logViewport.GotoBottom()
	}
}

func (m Model) formatEntries(entries []logtail.Entry) string {
	styles := m.theme.Styles()
	if len(entries) == 0 {
		if m.logPath == "" {
			return styles.FaintText.Render("Logging is disabled (log_file is empty).")
		}
		return styles.FaintText.Render("No log lines at " + levelName(m.logLevel) + " or above.")
	}

	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, formatEntry(e, styles))
	}
	return strings.Join(lines, "\n")
}

func formatEntry(e logtail.Entry, styles Styles) string {
	if !e.Parsed {
		return styles.MutedText.Render(e.Raw)
	}

	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(styles.FaintText.Render(e.Time.Local().Format("15:04:05")))
		b.WriteString(" ")
	}
	b.WriteString(levelStyle(e.Level, styles).Render(padRight(levelName(e.Level), 5)))
	b.WriteString(" ")
	b.WriteString(styles.Text.Render(e.Message))
	for _, a := range e.Attrs {
		b.WriteString(" ")
		b.WriteString(styles.FaintText.Render(a.Key + "="))
		b.WriteString(styles.MutedText.Render(a.Value))
	}
	return b.String()
}

func levelStyle(l slog.Level, styles Styles) lipgloss.Style {
	switch {
	case l >= slog.LevelError:
		return styles.DangerText
	case l >= slog.LevelWarn:
		return styles.WarningText
	case l >= slog.LevelInfo:
		return styles.InfoText
	default:
		return styles.FaintText
	}
}

// renderLogs renders the log view.
func (m Model) renderLogs() string {
	if m.logErr != "" {
		styles := m.theme.Styles()
		return styles.DangerText.Render("Cannot read log: ") + styles.MutedText.Render(m.logErr)
	}
	return m.logViewport.View()
}
