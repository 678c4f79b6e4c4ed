// Package ui provides the terminal user interface for nimbus.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. Model holds all view state; Update handles
// key presses and messages from commands; View renders with lipgloss using
// the active Theme. The UI never touches the state.Manager directly: it
// reads snapshots and issues intents through the Dispatcher interface.
//
// # Package Structure
//
//   - app.go: Model, Update/View, polling tick and action commands
//   - keys.go: key bindings (bubbles/key), also feeding bubbles/help
//   - header.go: status line and command bar
//   - cards.go: the city grid
//   - search.go: search prompt with debounced suggestions
//   - detail.go: detail modal with charts and daily forecast
//   - chart.go: sparklines and bar charts
//   - logs.go: log file viewer with a level filter
//   - help.go: help overlay
//   - theme.go: palettes and lipgloss styles
//
// # Event Flow
//
//  1. A tick every 250ms fetches a snapshot from the Dispatcher.
//  2. Keys become commands (search, favorite, unit) that run off the
//     event loop and report back with actionDoneMsg.
//  3. Every snapshot re-renders the cards and any open detail modal.
//
// # Suggestions
//
// Each edit of the search input bumps a sequence number and schedules a
// tea.Tick carrying it. When the tick arrives with an outdated sequence the
// lookup is skipped; results for an outdated sequence are dropped as well.
// This gives a debounce without timers to cancel.
//
// # Key Bindings
//
//   - / or s: Search for a city
//   - j/k: Move selection
//   - enter: Open details
//   - f: Toggle favorite
//   - x: Remove city
//   - u: Switch °C/°F
//   - c: Clear error
//   - l: Log view (v cycles the level)
//   - T: Cycle theme
//   - ?: Help
//   - q or Ctrl+C: Quit
package ui
