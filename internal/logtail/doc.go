// Package logtail reads the tail of the nimbus log file for the in-app log
// view.
//
// # Reading Log Files
//
// Read uses a ring buffer of size maxLines so only the last lines of a large
// file are kept in memory. A missing file yields no lines and no error.
//
//	lines, err := logtail.Read(cfg.LogFile, 400)
//
// # Parsing
//
// nimbus logs through slog.TextHandler, so every line is a sequence of
// key=value pairs with quoted values where needed:
//
//	time=2025-03-01T12:00:00.000Z level=INFO msg="fetch finished" component=state request_id=...
//
// Parse turns such a line into an Entry with time, level, message and the
// remaining attributes in order. Lines in any other format are kept as Raw
// with Parsed false so the view can still show them. Filter drops entries
// below a minimum level.
package logtail
