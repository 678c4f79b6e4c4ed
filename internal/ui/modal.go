package ui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Modal is an overlay that takes all input until it closes.
// Update returns the modal to keep, a command, and true once the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}
