package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/nimbus/internal/dashboard"
	"github.com/five82/nimbus/internal/state"
	"github.com/five82/nimbus/internal/weather"
)

// detailModal shows one city with charts and the daily forecast. Its content
// is rebuilt from every snapshot so a refetch or unit switch shows up live.
type detailModal struct {
	id       weather.CityID
	rec      weather.Record
	phase    state.Phase
	viewport viewport.Model
}

func newDetailModal(rec weather.Record, phase state.Phase) *detailModal {
	return &detailModal{
		id:       rec.ID,
		rec:      rec,
		phase:    phase,
		viewport: viewport.New(0, 0),
	}
}

// openDetail opens the modal for id when it is cached.
func (m *Model) openDetail(id weather.CityID) {
	rec, ok := m.snapshot.City(id)
	if !ok {
		return
	}
	m.modal = newDetailModal(rec, m.snapshot.Phase(id))
	m.refreshModal()
}

// refreshModal feeds the latest record to an open detail modal and closes it
// when the city is no longer cached.
func (m *Model) refreshModal() {
	d, ok := m.modal.(*detailModal)
	if !ok {
		return
	}
	rec, found := m.snapshot.City(d.id)
	if !found {
		m.modal = nil
		return
	}
	d.rec = rec
	d.phase = m.snapshot.Phase(d.id)
	d.layout(m.theme, m.width, m.height)
}

// frameSize returns the modal's outer width and height for the terminal.
func frameSize(width, height int) (int, int) {
	return min(max(width-4, 30), DetailMaxWidth), max(height-2, 8)
}

// layout sizes the viewport and renders the content into it.
func (d *detailModal) layout(theme Theme, width, height int) {
	w, h := frameSize(width, height)
	// border 2 + padding 2 on each axis, one line for the footer hint
	d.viewport.Width = max(w-6, 10)
	d.viewport.Height = max(h-5, 3)
	d.viewport.SetContent(renderDetail(dashboard.Detail(d.rec), dashboard.ChartSeries(d.rec, ChartPoints), d.phase, theme, d.viewport.Width))
}

// Update implements Modal.
func (d *detailModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(k, keys.Escape), key.Matches(k, keys.Confirm), key.Matches(k, keys.Quit):
			return d, nil, true
		}
	}
	var cmd tea.Cmd
	d.viewport, cmd = d.viewport.Update(msg)
	return d, cmd, false
}

// View implements Modal.
func (d *detailModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	w, _ := frameSize(width, height)

	hint := styles.FaintText.Render("j/k scroll · f favorite · esc close")
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(theme.Accent)).
		Padding(1, 2).
		Width(w - 2).
		Render(d.viewport.View() + "\n" + hint)

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box,
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(theme.Background)),
	)
}

// renderDetail lays out the current conditions, the three trend charts and
// the per-day summaries.
func renderDetail(v dashboard.DetailView, charts dashboard.Charts, phase state.Phase, theme Theme, width int) string {
	styles := theme.Styles()
	var b strings.Builder

	// Title line
	title := v.Glyph + " " + styles.Text.Bold(true).Render(v.Title)
	if v.Favorite {
		title += " " + styles.Favorite.Render("★")
	}
	b.WriteString(title + "  " + styles.PhaseStyle(phase).Render(phase.String()))
	b.WriteString("\n")
	b.WriteString(styles.MutedText.Render(v.Description))
	b.WriteString("\n\n")

	// Conditions grid
	cell := func(label, value string) string {
		return styles.FaintText.Render(padRight(label, 12)) + styles.Text.Render(padRight(value, 14))
	}
	b.WriteString(cell("Temperature", v.Temperature) + cell("Feels like", v.FeelsLike) + "\n")
	b.WriteString(cell("Humidity", v.Humidity) + cell("Pressure", v.Pressure) + "\n")
	b.WriteString(cell("Wind", v.Wind) + cell("Visibility", v.Visibility) + "\n")
	if !v.FetchedAt.IsZero() {
		b.WriteString(cell("Updated", v.FetchedAt.Local().Format("15:04:05")) + "\n")
	}
	b.WriteString("\n")

	// Charts
	chartWidth := max(width-2, 8)
	b.WriteString(renderSeries(charts.Temperature, theme.ChartWarm, false, chartWidth, styles))
	b.WriteString("\n\n")
	b.WriteString(renderSeries(charts.Precipitation, theme.ChartWet, true, chartWidth, styles))
	b.WriteString("\n\n")
	b.WriteString(renderSeries(charts.Wind, theme.ChartWind, false, chartWidth, styles))
	b.WriteString("\n\n")

	// Daily forecast
	b.WriteString(styles.AccentText.Bold(true).Render("Forecast"))
	b.WriteString("\n")
	if len(v.Days) == 0 {
		b.WriteString(styles.FaintText.Render("no forecast"))
		return b.String()
	}
	for _, day := range v.Days {
		low := dashboard.FormatTemperature(day.Min, v.Unit)
		high := dashboard.FormatTemperature(day.Max, v.Unit)
		b.WriteString(styles.MutedText.Render(padRight(day.Date.Format("Mon 02"), 9)))
		b.WriteString(weather.IconGlyph(day.Icon) + " ")
		b.WriteString(styles.Text.Render(padRight(fmt.Sprintf("%s / %s", low, high), 16)))
		b.WriteString(styles.InfoText.Render(fmt.Sprintf("%.1f mm", day.Precipitation)))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
