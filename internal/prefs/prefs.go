// Package prefs handles nimbus user preferences persistence.
// Preferences are stored in ~/.config/nimbus/prefs.toml and hold the theme,
// the last unit system and the favorite city ids.
package prefs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/nimbus/internal/weather"
)

// Prefs holds user preferences for nimbus.
type Prefs struct {
	Theme     string  `toml:"theme"`
	Unit      string  `toml:"unit,omitempty"`
	Favorites []int64 `toml:"favorites"`
}

const (
	defaultPrefsPath = "~/.config/nimbus/prefs.toml"
	defaultTheme     = "Nightfox"
)

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// guards read-modify-write cycles on the same file within this process
var writeMu sync.Mutex

// Load reads preferences from the given path, falling back to defaults if
// missing. The returned Prefs is always usable. A non-nil error only reports
// that a present file could not be read back and wraps
// weather.ErrPersistenceCorrupt.
func Load(path string) (Prefs, error) {
	prefs := Prefs{Theme: defaultTheme}

	resolved, err := resolvePath(path)
	if err != nil {
		return prefs, nil
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return prefs, nil
		}
		return prefs, fmt.Errorf("%w: open %s: %v", weather.ErrPersistenceCorrupt, resolved, err)
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return prefs, fmt.Errorf("%w: read %s: %v", weather.ErrPersistenceCorrupt, resolved, err)
	}

	var loaded Prefs
	if err := toml.Unmarshal(bytes, &loaded); err != nil {
		return Prefs{Theme: defaultTheme}, fmt.Errorf("%w: parse %s: %v", weather.ErrPersistenceCorrupt, resolved, err)
	}

	if strings.TrimSpace(loaded.Theme) == "" {
		loaded.Theme = defaultTheme
	}
	loaded.Favorites = normalizeIDs(loaded.Favorites)
	return loaded, nil
}

// Save writes preferences to the given path, creating directories as needed.
// The file is replaced atomically so a crash never leaves a partial write.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	p.Favorites = normalizeIDs(p.Favorites)
	bytes, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".prefs-*.toml")
	if err != nil {
		return fmt.Errorf("create temp prefs: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(bytes); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close prefs: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod prefs: %w", err)
	}
	if err := os.Rename(tmpName, resolved); err != nil {
		return fmt.Errorf("replace prefs: %w", err)
	}
	return nil
}

// Update loads the current preferences, applies fn and saves the result.
// Keys fn does not touch are preserved.
func Update(path string, fn func(*Prefs)) error {
	writeMu.Lock()
	defer writeMu.Unlock()

	p, _ := Load(path)
	fn(&p)
	return Save(path, p)
}

// FavoriteIDs converts the persisted ids into city ids.
func (p Prefs) FavoriteIDs() []weather.CityID {
	out := make([]weather.CityID, 0, len(p.Favorites))
	for _, id := range p.Favorites {
		out = append(out, weather.CityID(id))
	}
	return out
}

func normalizeIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id > 0 {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
