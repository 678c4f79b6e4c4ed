package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Attr is one key=value pair of a log line, in order of appearance.
type Attr struct {
	Key   string
	Value string
}

// Entry is a parsed slog text line.
type Entry struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Attrs   []Attr
	Raw     string
	Parsed  bool // false when the line is not in key=value form
}

// Attr returns the value of key, or "".
func (e Entry) Attr(key string) string {
	for _, a := range e.Attrs {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

// Parse splits a line written by slog.TextHandler. Lines in any other format
// come back with Parsed false and Level INFO.
func Parse(line string) Entry {
	entry := Entry{Raw: line, Level: slog.LevelInfo}
	pairs, ok := splitPairs(line)
	if !ok {
		return entry
	}
	for _, p := range pairs {
		switch p.Key {
		case slog.TimeKey:
			if t, err := time.Parse(time.RFC3339Nano, p.Value); err == nil {
				entry.Time = t
			}
		case slog.LevelKey:
			var lvl slog.Level
			if err := lvl.UnmarshalText([]byte(p.Value)); err == nil {
				entry.Level = lvl
			}
		case slog.MessageKey:
			entry.Message = p.Value
		default:
			entry.Attrs = append(entry.Attrs, p)
		}
	}
	entry.Parsed = true
	return entry
}

// Filter keeps the lines at or above min.
func Filter(lines []string, min slog.Level) []Entry {
	out := make([]Entry, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		e := Parse(line)
		if e.Level >= min {
			out = append(out, e)
		}
	}
	return out
}

func splitPairs(line string) ([]Attr, bool) {
	var pairs []Attr
	rest := strings.TrimSpace(line)
	for rest != "" {
		eq := strings.IndexByte(rest, '=')
		if eq <= 0 || strings.ContainsAny(rest[:eq], " \t\"") {
			return nil, false
		}
		key := rest[:eq]
		rest = rest[eq+1:]

		var value string
		if strings.HasPrefix(rest, `"`) {
			end := closingQuote(rest)
			if end < 0 {
				return nil, false
			}
			unquoted, err := strconv.Unquote(rest[:end+1])
			if err != nil {
				return nil, false
			}
			value = unquoted
			rest = rest[end+1:]
		} else {
			sp := strings.IndexByte(rest, ' ')
			if sp < 0 {
				sp = len(rest)
			}
			value = rest[:sp]
			rest = rest[sp:]
		}
		pairs = append(pairs, Attr{Key: key, Value: value})
		rest = strings.TrimLeft(rest, " ")
	}
	return pairs, len(pairs) > 0
}

// closingQuote returns the index of the quote ending the string that starts
// at s[0], honouring backslash escapes.
func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}
