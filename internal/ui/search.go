package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/nimbus/internal/dashboard"
	"github.com/five82/nimbus/internal/weather"
)

// searchState holds the city search prompt. seq increases on every edit so
// lookups scheduled for older input can be recognised and dropped.
type searchState struct {
	active      bool
	input       textinput.Model
	seq         int
	suggestions []weather.Suggestion
	cursor      int // -1 when no suggestion is highlighted
	err         string
}

func newSearchState() searchState {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "City name, e.g. Lisbon or Portland, US"
	ti.CharLimit = dashboard.MaxQueryLength
	return searchState{input: ti, cursor: -1}
}

// reset clears the prompt and invalidates any pending lookup.
func (s *searchState) reset() {
	s.active = false
	s.input.Reset()
	s.input.Blur()
	s.seq++
	s.suggestions = nil
	s.cursor = -1
	s.err = ""
}

// query is what enter submits: the highlighted suggestion or the typed text.
func (s searchState) query() string {
	if s.cursor >= 0 && s.cursor < len(s.suggestions) {
		return s.suggestions[s.cursor].Label()
	}
	return strings.TrimSpace(s.input.Value())
}

type suggestTickMsg struct {
	seq   int
	query string
}

type suggestionsMsg struct {
	seq   int
	items []weather.Suggestion
	err   error
}

func (m *Model) startSearch() tea.Cmd {
	m.search.reset()
	m.search.active = true
	return m.search.input.Focus()
}

// handleSearchKey processes keyboard input while the search prompt is open.
func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Escape):
		m.search.reset()
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		query := m.search.query()
		m.search.reset()
		if query == "" || m.dispatcher == nil {
			return m, nil
		}
		return m, searchCmd(m.ctx, m.dispatcher, query)

	case key.Matches(msg, m.keys.NextSuggestion):
		if n := len(m.search.suggestions); n > 0 {
			m.search.cursor = min(m.search.cursor+1, n-1)
		}
		return m, nil

	case key.Matches(msg, m.keys.PrevSuggestion):
		if m.search.cursor >= 0 {
			m.search.cursor--
		}
		return m, nil

	case key.Matches(msg, m.keys.AcceptSuggestion):
		if m.search.cursor >= 0 && m.search.cursor < len(m.search.suggestions) {
			m.search.input.SetValue(m.search.suggestions[m.search.cursor].Label())
			m.search.input.CursorEnd()
			m.search.cursor = -1
		}
		return m, nil
	}

	before := m.search.input.Value()
	var cmd tea.Cmd
	m.search.input, cmd = m.search.input.Update(msg)
	if m.search.input.Value() == before {
		return m, cmd
	}

	m.search.seq++
	m.search.suggestions = nil
	m.search.cursor = -1
	m.search.err = ""

	query := strings.TrimSpace(m.search.input.Value())
	if m.suggester == nil || len([]rune(query)) < SuggestMinRunes {
		return m, cmd
	}
	return m, tea.Batch(cmd, suggestDebounceCmd(m.search.seq, query))
}

// handleSuggestTick issues the lookup if no keystroke arrived since the tick
// was scheduled.
func (m Model) handleSuggestTick(msg suggestTickMsg) (tea.Model, tea.Cmd) {
	if !m.search.active || msg.seq != m.search.seq || m.suggester == nil {
		return m, nil
	}
	return m, suggestCmd(m.ctx, m.suggester, msg.seq, msg.query)
}

// handleSuggestions stores lookup results that still match the input.
func (m *Model) handleSuggestions(msg suggestionsMsg) {
	if !m.search.active || msg.seq != m.search.seq {
		return
	}
	if msg.err != nil {
		m.logger.Debug("suggestions failed", "error", msg.err)
		m.search.err = weather.Message(msg.err)
		return
	}
	m.search.suggestions = msg.items
	m.search.cursor = -1
}

func suggestDebounceCmd(seq int, query string) tea.Cmd {
	return tea.Tick(SuggestDebounce, func(time.Time) tea.Msg {
		return suggestTickMsg{seq: seq, query: query}
	})
}

func suggestCmd(ctx context.Context, s Suggester, seq int, query string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, SuggestTimeout)
		defer cancel()
		items, err := s.Suggest(ctx, query)
		return suggestionsMsg{seq: seq, items: items, err: err}
	}
}

// renderSearch renders the prompt with its suggestion list.
func (m Model) renderSearch() string {
	styles := m.theme.Styles()
	var b strings.Builder

	b.WriteString(styles.Text.Bold(true).Render("Add a city"))
	b.WriteString("\n\n")
	b.WriteString(m.search.input.View())
	b.WriteString("\n\n")

	switch {
	case m.search.err != "":
		b.WriteString(styles.WarningText.Render(m.search.err))
	case len(m.search.suggestions) == 0:
		hint := fmt.Sprintf("Type at least %d letters for suggestions", SuggestMinRunes)
		if m.suggester == nil {
			hint = "Press enter to search"
		}
		b.WriteString(styles.FaintText.Render(hint))
	default:
		for i, s := range m.search.suggestions {
			line := fmt.Sprintf("  %s", s.Label())
			style := styles.MutedText
			if i == m.search.cursor {
				line = fmt.Sprintf("› %s", s.Label())
				style = styles.Selected
			}
			b.WriteString(style.Render(line))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n\n")
	b.WriteString(styles.FaintText.Render("enter search · tab accept · up/down choose · esc cancel"))

	width := min(max(m.width-4, 20), 72)
	return styles.BorderFocus.Padding(1, 2).Width(width).Render(b.String())
}
