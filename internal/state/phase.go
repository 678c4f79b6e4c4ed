package state

// Phase is the tagged state of one cache entry.
type Phase uint8

const (
	PhaseAbsent Phase = iota
	PhaseFetching
	PhaseFresh
	PhaseStale
)

func (p Phase) String() string {
	switch p {
	case PhaseFetching:
		return "fetching"
	case PhaseFresh:
		return "fresh"
	case PhaseStale:
		return "stale"
	default:
		return "absent"
	}
}

// event drives the record phase of an entry.
type event uint8

const (
	evStore      event = iota // a fetch result is committed
	evExpire                  // FetchedAt fell outside the staleness window
	evInvalidate              // the unit system changed
	evRemove                  // the user removed the city
)

// transitions is the record-phase table. A missing cell means the event is
// rejected in that phase; in particular a Fresh record refuses evStore, which
// is the dedup policy for rapid repeated searches.
//
// Fetching is not stored here: it overlays the record phase while at least
// one by-id request for the entry is in flight, and a failed fetch simply
// leaves the record phase where it was.
var transitions = map[Phase]map[event]Phase{
	PhaseAbsent: {
		evStore:  PhaseFresh,
		evRemove: PhaseAbsent,
	},
	PhaseFresh: {
		evExpire:     PhaseStale,
		evInvalidate: PhaseStale,
		evRemove:     PhaseAbsent,
	},
	PhaseStale: {
		evStore:      PhaseFresh,
		evInvalidate: PhaseStale,
		evRemove:     PhaseAbsent,
	},
}

// next returns the phase after ev, or false when ev is not accepted in from.
func next(from Phase, ev event) (Phase, bool) {
	to, ok := transitions[from][ev]
	return to, ok
}
