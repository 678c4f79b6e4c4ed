// Package state owns the client-side city cache for nimbus.
//
// # Overview
//
// The Manager is the single place where weather records live. It fetches
// through a Gateway, merges the persisted favorite set, deduplicates rapid
// repeat searches, refetches everything when the unit system changes, and
// hands the UI immutable snapshots.
//
// # Phases
//
// Every cache entry carries an explicit phase driven by one transition table
// (see phase.go):
//
//	Absent ──store──→ Fresh ──expire/invalidate──→ Stale ──store──→ Fresh
//	   ↑                 │                            │
//	   └─────remove──────┴──────────remove────────────┘
//
// Fetching overlays the record phase while a by-id request for the entry is
// in flight. A failed fetch leaves the record phase untouched, so the entry
// falls back to whatever it was before.
//
// A Fresh record refuses a new result. That is the dedup rule: two searches
// for the same city within the staleness window keep the first answer.
// Expiry is evaluated lazily against FetchedAt whenever the entry is looked
// at.
//
// # Concurrency
//
// The Manager guards its maps with one mutex that is never held across a
// gateway call. Any number of RequestCity calls may run at once.
//
// Results are fenced per city id with a monotonically increasing sequence:
//
//   - RemoveCity raises the fence past every request already started, so a
//     removed city is not resurrected by a late response.
//   - A by-id request raises the fence to its own sequence, so an older
//     request for the same id loses.
//   - A commit raises the fence to its sequence.
//   - A result fetched under a unit other than the current one is dropped.
//
// RequestCity reports what happened through an Outcome.
//
// # Favorites
//
// The favorite set is kept separately from the cache. It is loaded once at
// construction and saved in full on every toggle. A successful fetch marks a
// record favorite when its id is in the set or the record it replaces was
// already a favorite. Removing a city does not unfavorite it.
//
// # Snapshots
//
// Snapshot returns ordered copies of every record together with per-id
// phases, the unit, loading and busy flags and the last error message. The
// UI may keep and read a snapshot without locking.
package state
