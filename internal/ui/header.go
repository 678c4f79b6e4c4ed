package ui

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/five82/nimbus/internal/dashboard"
)

// renderHeader renders the status bar with all information.
func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)
	status := dashboard.StatusOf(m.snapshot)
	compact := m.width < LayoutCompactWidth

	var parts []string

	// Logo
	parts = append(parts, bg.Render("nimbus", styles.Logo))

	// Unit
	parts = append(parts,
		bg.Render("Units:", styles.MutedText)+bg.Space()+
			bg.Render(status.UnitLabel, styles.AccentText),
	)

	// City and favorite counts
	parts = append(parts,
		bg.Render("Cities:", styles.MutedText)+bg.Space()+
			bg.Render(fmt.Sprintf("%d", status.Cities), styles.Text)+
			bg.Spaces(2)+bg.Render("★", styles.Favorite)+bg.Space()+
			bg.Render(fmt.Sprintf("%d", status.Favorites), styles.Text),
	)

	// Activity
	if status.Busy {
		parts = append(parts, m.spinner.View()+bg.Space()+bg.Render("fetching", styles.InfoText))
	}

	// Timestamp with relative time
	if ts := formatUpdated(status.UpdatedAt, time.Now()); ts != "" {
		parts = append(parts, bg.Render(ts, styles.MutedText))
	}

	maxErr := 80
	if compact {
		maxErr = 40
	}

	// Error indicator
	if status.Error != "" {
		parts = append(parts,
			bg.Render("ERROR", styles.DangerText)+bg.Space()+
				bg.Render(truncate(status.Error, maxErr), styles.DangerText),
		)
	}

	// Transient action failures (favorite save, unit switch)
	if m.notice != "" {
		parts = append(parts,
			bg.Render("!", styles.WarningText.Bold(true))+bg.Space()+
				bg.Render(truncate(m.notice, maxErr), styles.WarningText),
		)
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

// formatUpdated formats the last change time with a relative indicator.
func formatUpdated(updated, now time.Time) string {
	if updated.IsZero() {
		return ""
	}

	since := now.Sub(updated)
	out := updated.Format("15:04:05")

	switch {
	case since < time.Minute:
		out += " (now)"
	case since < time.Hour:
		out += fmt.Sprintf(" (%dm ago)", int(since.Minutes()))
	case since < 24*time.Hour:
		out += fmt.Sprintf(" (%dh ago)", int(since.Hours()))
	}
	return out
}

// renderCommandBar renders the key hints for the current view.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles()
	bg := NewBgStyle(m.theme.Surface)

	if m.currentView == ViewLogs && !m.search.active {
		type cmd struct{ key, desc string }
		commands := []cmd{
			{"v", "Level " + levelName(m.logLevel)},
			{"j/k", "Scroll"},
			{"esc", "Cities"},
			{"?", "More"},
		}
		colon := bg.Sep(":")
		segments := make([]string, 0, len(commands)+1)
		for _, c := range commands {
			segments = append(segments,
				bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
		}
		segments = append(segments,
			bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))
		return styles.Footer.Width(m.width).Render(bg.Join(segments, "  "))
	}

	return styles.Footer.Width(m.width).Render(m.help.View(m.keys))
}

func levelName(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERROR"
	case l >= slog.LevelWarn:
		return "WARN"
	case l >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
