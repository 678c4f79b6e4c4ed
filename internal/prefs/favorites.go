package prefs

import (
	"io"
	"log/slog"

	"github.com/five82/nimbus/internal/weather"
)

// FavoritesFile is the durable favorites store backed by the favorites key of
// the prefs file.
type FavoritesFile struct {
	path   string
	logger *slog.Logger
}

// NewFavoritesFile returns a store for path (empty uses the default prefs path).
func NewFavoritesFile(path string, logger *slog.Logger) *FavoritesFile {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &FavoritesFile{path: path, logger: logger.With("component", "favorites")}
}

// Load returns the persisted favorite ids. An unreadable file yields an empty
// set; the problem is logged, not returned.
func (f *FavoritesFile) Load() []weather.CityID {
	p, err := Load(f.path)
	if err != nil {
		f.logger.Warn("favorites degraded to empty set", "path", f.path, "error", err)
		return nil
	}
	return p.FavoriteIDs()
}

// Save overwrites the persisted set with ids.
func (f *FavoritesFile) Save(ids []weather.CityID) error {
	raw := make([]int64, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, int64(id))
	}
	return Update(f.path, func(p *Prefs) {
		p.Favorites = raw
	})
}
