package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/nimbus/internal/dashboard"
	"github.com/five82/nimbus/internal/state"
)

// cardColumns is how many cards fit side by side.
func (m Model) cardColumns() int {
	return max(m.width/CardWidth, 1)
}

// renderCards lays the cities out as a grid, scrolled so the selected card
// stays visible.
func (m Model) renderCards() string {
	styles := m.theme.Styles()
	cards := dashboard.Cards(m.snapshot)

	if len(cards) == 0 {
		return m.renderEmpty(styles)
	}

	cols := m.cardColumns()
	visibleRows := max(m.contentHeight()/CardHeight, 1)
	selectedRow := m.selected / cols
	firstRow := max(selectedRow-visibleRows+1, 0)

	var rows []string
	for start := firstRow * cols; start < len(cards) && len(rows) < visibleRows; start += cols {
		end := min(start+cols, len(cards))
		tiles := make([]string, 0, end-start)
		for i := start; i < end; i++ {
			tiles = append(tiles, m.renderCard(cards[i], i == m.selected, styles))
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, tiles...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) renderEmpty(styles Styles) string {
	var msg string
	switch {
	case m.snapshot.Loading:
		msg = m.spinner.View() + " " + styles.MutedText.Render("Loading weather...")
	default:
		msg = styles.MutedText.Render("No cities yet. Press ") +
			styles.AccentText.Render("/") +
			styles.MutedText.Render(" to search.")
	}
	return lipgloss.Place(m.width, m.contentHeight(), lipgloss.Center, lipgloss.Center, msg)
}

// renderCard renders one city tile:
//
//	★ Lisbon, PT          fresh
//	☀ 21°C  clear sky
//	humidity 40%  wind 3.2 m/s
func (m Model) renderCard(c dashboard.Card, selected bool, styles Styles) string {
	inner := CardWidth - 4 // border plus horizontal padding

	star := "  "
	if c.Favorite {
		star = styles.Favorite.Render("★") + " "
	}
	badge := m.phaseBadge(c.Phase, styles)
	title := truncate(c.Title, inner-lipgloss.Width(star)-lipgloss.Width(badge)-1)
	gap := max(inner-lipgloss.Width(star)-lipgloss.Width(title)-lipgloss.Width(badge), 1)
	line1 := star + styles.Text.Bold(true).Render(title) + strings.Repeat(" ", gap) + badge

	temp := styles.Text.Bold(true).Render(c.Temperature)
	line2 := c.Glyph + " " + temp + "  " + styles.MutedText.Render(truncate(c.Description, inner-lipgloss.Width(c.Glyph)-lipgloss.Width(c.Temperature)-3))

	line3 := styles.FaintText.Render(fmt.Sprintf("humidity %s  wind %s", c.Humidity, c.Wind))

	box := styles.Border
	if selected {
		box = styles.BorderFocus
	}
	return box.Padding(0, 1).Width(CardWidth - 2).Render(strings.Join([]string{line1, line2, line3}, "\n"))
}

// phaseBadge labels a card. A fetch in progress shows the spinner.
func (m Model) phaseBadge(phase state.Phase, styles Styles) string {
	if phase == state.PhaseFetching {
		return m.spinner.View()
	}
	return styles.PhaseStyle(phase).Render(phase.String())
}
