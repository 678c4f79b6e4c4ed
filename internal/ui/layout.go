package ui

import "time"

// Terminal width thresholds for responsive layouts.
const (
	// LayoutCompactWidth is the threshold below which compact mode is used.
	LayoutCompactWidth = 100

	// CardWidth is the outer width of one city card, border included.
	CardWidth = 34

	// CardHeight is the outer height of one city card, border included.
	CardHeight = 5

	// DetailMaxWidth caps the detail modal on wide terminals.
	DetailMaxWidth = 96

	// ChartPoints is the number of forecast points shown in charts (24 h).
	ChartPoints = 8
)

// Log display limits.
const (
	// LogLineLimit is the maximum number of log lines read per refresh.
	LogLineLimit = 2000
)

// Timing constants.
const (
	// SuggestDebounce is the pause after the last keystroke before a
	// suggestion lookup is issued.
	SuggestDebounce = 300 * time.Millisecond

	// SuggestTimeout bounds one suggestion lookup.
	SuggestTimeout = 5 * time.Second

	// SuggestMinRunes is the shortest input that triggers suggestions.
	SuggestMinRunes = 2

	// LogRefreshInterval is how often the log view rereads the file.
	LogRefreshInterval = time.Second

	// DefaultUIInterval is the default snapshot polling interval.
	DefaultUIInterval = 250 * time.Millisecond
)
