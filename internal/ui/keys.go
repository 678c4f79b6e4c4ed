package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Escape     key.Binding

	// View switching
	ViewLogs key.Binding

	// City actions
	Search         key.Binding
	OpenDetail     key.Binding
	ToggleFavorite key.Binding
	Remove         key.Binding
	ToggleUnit     key.Binding
	ClearError     key.Binding

	// Navigation
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding

	// Logs actions
	CycleLevel key.Binding

	// Search/input
	Confirm          key.Binding
	AcceptSuggestion key.Binding
	PrevSuggestion   key.Binding
	NextSuggestion   key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		// Global
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back"),
		),

		// View switching
		ViewLogs: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "Logs"),
		),

		// City actions
		Search: key.NewBinding(
			key.WithKeys("/", "s"),
			key.WithHelp("/", "Search city"),
		),
		OpenDetail: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Details"),
		),
		ToggleFavorite: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Favorite"),
		),
		Remove: key.NewBinding(
			key.WithKeys("x", "delete"),
			key.WithHelp("x", "Remove"),
		),
		ToggleUnit: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "°C/°F"),
		),
		ClearError: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Clear error"),
		),

		// Navigation
		Up: key.NewBinding(
			key.WithKeys("k", "up", "left"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down", "right"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),

		// Logs actions
		CycleLevel: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "Cycle level"),
		),

		// Search/input
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
		AcceptSuggestion: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Accept suggestion"),
		),
		PrevSuggestion: key.NewBinding(
			key.WithKeys("up", "ctrl+p"),
			key.WithHelp("up", "Previous suggestion"),
		),
		NextSuggestion: key.NewBinding(
			key.WithKeys("down", "ctrl+n"),
			key.WithHelp("down", "Next suggestion"),
		),
	}
}

// ShortHelp returns key bindings for the command bar.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Search, k.OpenDetail, k.ToggleFavorite, k.Remove, k.ToggleUnit, k.ViewLogs, k.Help, k.Quit}
}

// FullHelp returns key bindings for the help overlay.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		// Navigation
		{k.Up, k.Down, k.Top, k.Bottom, k.Escape},
		// Cities
		{k.Search, k.OpenDetail, k.ToggleFavorite, k.Remove, k.ToggleUnit, k.ClearError},
		// Search
		{k.Confirm, k.AcceptSuggestion, k.PrevSuggestion, k.NextSuggestion},
		// General
		{k.ViewLogs, k.CycleLevel, k.CycleTheme, k.Help, k.Quit},
	}
}
