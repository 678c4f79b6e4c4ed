package state

import (
	"cmp"
	"slices"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/five82/nimbus/internal/weather"
)

// Snapshot is a point-in-time copy of the Manager's state. Nothing in it is
// shared with the Manager.
type Snapshot struct {
	Cities    []weather.Record // display order
	Phases    map[weather.CityID]Phase
	Unit      weather.Unit
	Loading   bool // a fetch is running and nothing is cached yet
	Busy      bool // any fetch is running
	LastError string
	UpdatedAt time.Time
}

// Phase returns the phase of id, Absent when unknown.
func (s Snapshot) Phase(id weather.CityID) Phase {
	return s.Phases[id]
}

// City looks up a cached record by id.
func (s Snapshot) City(id weather.CityID) (weather.Record, bool) {
	for _, rec := range s.Cities {
		if rec.ID == id {
			return rec, true
		}
	}
	return weather.Record{}, false
}

// sortRecords orders favorites first, then by name using a case-insensitive
// collation so accented names sort next to their plain spelling.
func sortRecords(recs []weather.Record) {
	col := collate.New(language.Und, collate.IgnoreCase)
	slices.SortStableFunc(recs, func(a, b weather.Record) int {
		if a.Favorite != b.Favorite {
			if a.Favorite {
				return -1
			}
			return 1
		}
		if c := col.CompareString(a.Name, b.Name); c != 0 {
			return c
		}
		if c := col.CompareString(a.Country, b.Country); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
