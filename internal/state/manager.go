package state

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/five82/nimbus/internal/weather"
)

// DefaultStalenessWindow is how long a fetched record counts as fresh.
const DefaultStalenessWindow = 60 * time.Second

// refetchLimit bounds the number of concurrent gateway calls issued by a
// single bootstrap, refresh or unit switch.
const refetchLimit = 8

// ErrEmptyQuery is returned by RequestCity for a query that names nothing.
var ErrEmptyQuery = errors.New("empty city query")

// Gateway fetches one city's current conditions and forecast.
type Gateway interface {
	Fetch(ctx context.Context, q weather.Query, unit weather.Unit) (weather.Record, error)
}

// FavoritesStore is the durable favorite id set.
type FavoritesStore interface {
	Load() []weather.CityID
	Save(ids []weather.CityID) error
}

// Outcome reports what happened to a fetch result.
type Outcome uint8

const (
	OutcomeCommitted Outcome = iota
	OutcomeDiscarded         // a fresh record was already cached
	OutcomeFenced            // superseded, removed, or fetched under another unit
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCommitted:
		return "committed"
	case OutcomeDiscarded:
		return "discarded"
	case OutcomeFenced:
		return "fenced"
	default:
		return "failed"
	}
}

// Options configures a Manager.
type Options struct {
	Gateway         Gateway
	Favorites       FavoritesStore
	Unit            weather.Unit
	StalenessWindow time.Duration
	Now             func() time.Time
	Logger          *slog.Logger
}

type entry struct {
	record   weather.Record
	phase    Phase // Absent, Fresh or Stale
	inflight int   // by-id requests for this entry
}

func (e *entry) visiblePhase() Phase {
	if e.inflight > 0 {
		return PhaseFetching
	}
	return e.phase
}

// Manager owns the city cache. It is safe for concurrent use; the mutex is
// never held while the gateway is called.
type Manager struct {
	gateway   Gateway
	favStore  FavoritesStore
	window    time.Duration
	now       func() time.Time
	logger    *slog.Logger
	saveMu    sync.Mutex // orders favorite saves
	mu        sync.Mutex
	unit      weather.Unit
	entries   map[weather.CityID]*entry
	favorites map[weather.CityID]struct{}
	fences    map[weather.CityID]uint64 // lowest sequence allowed to commit
	seq       uint64
	inflight  int
	lastErr   string
	updatedAt time.Time
}

// NewManager builds a Manager and loads the persisted favorites. It does not
// fetch anything; call Bootstrap for that.
func NewManager(opts Options) (*Manager, error) {
	if opts.Gateway == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	unit := opts.Unit
	if unit == "" {
		unit = weather.Metric
	}
	if !unit.Valid() {
		return nil, fmt.Errorf("invalid unit %q", opts.Unit)
	}
	window := opts.StalenessWindow
	if window <= 0 {
		window = DefaultStalenessWindow
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	m := &Manager{
		gateway:   opts.Gateway,
		favStore:  opts.Favorites,
		window:    window,
		now:       now,
		logger:    logger.With("component", "state"),
		unit:      unit,
		entries:   make(map[weather.CityID]*entry),
		favorites: make(map[weather.CityID]struct{}),
		fences:    make(map[weather.CityID]uint64),
	}
	if m.favStore != nil {
		for _, id := range m.favStore.Load() {
			m.favorites[id] = struct{}{}
		}
	}
	return m, nil
}

// RequestCity fetches q under the current unit and merges the result into the
// cache. The returned error is the gateway failure, if any; the same failure
// is also recorded as the last error.
func (m *Manager) RequestCity(ctx context.Context, q weather.Query) (Outcome, error) {
	if q.IsZero() {
		return OutcomeFailed, ErrEmptyQuery
	}

	m.mu.Lock()
	m.seq++
	seq := m.seq
	unit := m.unit
	m.inflight++
	m.lastErr = ""
	if q.ID != 0 {
		e, ok := m.entries[q.ID]
		if !ok {
			e = &entry{phase: PhaseAbsent}
			m.entries[q.ID] = e
		}
		e.inflight++
		m.raiseFence(q.ID, seq)
	}
	m.updatedAt = m.now()
	m.mu.Unlock()

	reqID := uuid.NewString()
	started := time.Now()
	log := m.logger.With("request_id", reqID, "query", q.String(), "unit", string(unit))
	log.Debug("fetch started", "seq", seq)

	rec, err := m.gateway.Fetch(ctx, q, unit)

	m.mu.Lock()
	m.inflight--
	if q.ID != 0 {
		m.finishByID(q.ID)
	}
	m.updatedAt = m.now()

	if err != nil {
		m.lastErr = weather.Message(err)
		m.mu.Unlock()
		log.Warn("fetch failed", "error", err, "duration", time.Since(started))
		return OutcomeFailed, err
	}

	outcome, retry := m.commit(seq, unit, rec)
	m.mu.Unlock()
	log.Info("fetch finished", "city_id", int64(rec.ID), "outcome", outcome.String(), "duration", time.Since(started))
	if retry {
		// The unit changed while this city was being fetched and nothing
		// newer has claimed it, so fetch it again under the new unit.
		log.Debug("refetching under new unit", "city_id", int64(rec.ID))
		return m.RequestCity(ctx, weather.ByID(rec.ID))
	}
	return outcome, nil
}

// commit applies a successful result. retry is set when the result was
// fenced only because the unit changed while it was in flight. Callers hold
// m.mu.
func (m *Manager) commit(seq uint64, unit weather.Unit, rec weather.Record) (outcome Outcome, retry bool) {
	if seq < m.fences[rec.ID] {
		return OutcomeFenced, false
	}
	if unit != m.unit {
		return OutcomeFenced, rec.ID != 0
	}
	if rec.Unit != m.unit {
		return OutcomeFenced, false
	}

	e, ok := m.entries[rec.ID]
	if !ok {
		e = &entry{phase: PhaseAbsent}
	}
	current := m.expire(e)
	to, accepted := next(current, evStore)
	if !accepted {
		return OutcomeDiscarded, false
	}

	_, stored := m.favorites[rec.ID]
	rec = rec.Clone()
	rec.Favorite = stored || (current != PhaseAbsent && e.record.Favorite)
	e.record = rec
	e.phase = to
	m.entries[rec.ID] = e
	m.raiseFence(rec.ID, seq)
	return OutcomeCommitted, false
}

// finishByID drops the in-flight mark of a by-id request. An entry created
// only to show Fetching disappears again if nothing was stored.
func (m *Manager) finishByID(id weather.CityID) {
	e, ok := m.entries[id]
	if !ok {
		return
	}
	if e.inflight > 0 {
		e.inflight--
	}
	if e.inflight == 0 && e.phase == PhaseAbsent {
		delete(m.entries, id)
	}
}

// expire moves a Fresh record to Stale once it left the window.
func (m *Manager) expire(e *entry) Phase {
	if e.phase == PhaseFresh && m.now().Sub(e.record.FetchedAt) > m.window {
		if to, ok := next(e.phase, evExpire); ok {
			e.phase = to
		}
	}
	return e.phase
}

func (m *Manager) raiseFence(id weather.CityID, seq uint64) {
	if seq > m.fences[id] {
		m.fences[id] = seq
	}
}

// RemoveCity deletes id from the cache. Fetches for id that are already in
// flight will not re-insert it. Removing an unknown id is a no-op.
func (m *Manager) RemoveCity(id weather.CityID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[id]; ok {
		if to, ok := next(e.phase, evRemove); ok {
			e.phase = to
		}
		delete(m.entries, id)
	}
	m.raiseFence(id, m.seq+1)
	m.updatedAt = m.now()
}

// ToggleFavorite flips the favorite flag of a cached city and persists the
// whole favorite set. Unknown ids are ignored. A persistence failure is
// returned but the in-memory toggle stands.
func (m *Manager) ToggleFavorite(id weather.CityID) error {
	m.saveMu.Lock()
	defer m.saveMu.Unlock()

	m.mu.Lock()
	e, ok := m.entries[id]
	if !ok || e.phase == PhaseAbsent {
		m.mu.Unlock()
		return nil
	}
	e.record.Favorite = !e.record.Favorite
	if e.record.Favorite {
		m.favorites[id] = struct{}{}
	} else {
		delete(m.favorites, id)
	}
	ids := m.favoriteIDsLocked()
	m.updatedAt = m.now()
	m.mu.Unlock()

	if m.favStore == nil {
		return nil
	}
	if err := m.favStore.Save(ids); err != nil {
		m.logger.Error("save favorites failed", "error", err)
		return fmt.Errorf("save favorites: %w", err)
	}
	return nil
}

// SetUnit switches the unit system. Every cached city is invalidated and
// refetched once under the new unit; SetUnit returns when all refetches have
// completed. The first refetch error, if any, is returned.
func (m *Manager) SetUnit(ctx context.Context, unit weather.Unit) error {
	if !unit.Valid() {
		return fmt.Errorf("invalid unit %q", unit)
	}
	return m.switchUnit(ctx, func(weather.Unit) weather.Unit { return unit })
}

// ToggleUnit switches to the other unit system. Two toggles always flip
// twice, however close together they arrive.
func (m *Manager) ToggleUnit(ctx context.Context) error {
	return m.switchUnit(ctx, weather.Unit.Other)
}

// switchUnit picks the target from the current unit and invalidates the
// cache in one critical section, then refetches outside the lock.
func (m *Manager) switchUnit(ctx context.Context, target func(weather.Unit) weather.Unit) error {
	m.mu.Lock()
	unit := target(m.unit)
	if unit == m.unit {
		m.mu.Unlock()
		return nil
	}
	ids := m.setUnitLocked(unit)
	m.mu.Unlock()

	m.logger.Info("unit changed", "unit", string(unit), "refetch", len(ids))
	return m.refetch(ctx, ids)
}

// setUnitLocked stores unit and invalidates every entry, returning the ids
// to refetch in order. Callers hold m.mu.
func (m *Manager) setUnitLocked(unit weather.Unit) []weather.CityID {
	m.unit = unit
	ids := make([]weather.CityID, 0, len(m.entries))
	for id, e := range m.entries {
		if to, ok := next(e.phase, evInvalidate); ok {
			e.phase = to
		}
		ids = append(ids, id)
	}
	m.updatedAt = m.now()
	slices.Sort(ids)
	return ids
}

// Bootstrap fetches every persisted favorite by id.
func (m *Manager) Bootstrap(ctx context.Context) error {
	m.mu.Lock()
	ids := m.favoriteIDsLocked()
	m.mu.Unlock()

	if len(ids) == 0 {
		return nil
	}
	m.logger.Info("bootstrapping favorites", "count", len(ids))
	return m.refetch(ctx, ids)
}

// Refresh refetches every cached city whose record went stale. Fresh records
// and cities already being fetched are skipped.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	var ids []weather.CityID
	for id, e := range m.entries {
		if e.inflight == 0 && m.expire(e) == PhaseStale {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()

	if len(ids) == 0 {
		return nil
	}
	slices.Sort(ids)
	m.logger.Debug("refreshing stale cities", "count", len(ids))
	return m.refetch(ctx, ids)
}

func (m *Manager) refetch(ctx context.Context, ids []weather.CityID) error {
	var g errgroup.Group
	g.SetLimit(refetchLimit)
	for _, id := range ids {
		g.Go(func() error {
			_, err := m.RequestCity(ctx, weather.ByID(id))
			return err
		})
	}
	return g.Wait()
}

// ClearError drops the last error.
func (m *Manager) ClearError() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastErr = ""
}

// Unit returns the current unit system.
func (m *Manager) Unit() weather.Unit {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.unit
}

// Favorites returns the favorite id set, sorted.
func (m *Manager) Favorites() []weather.CityID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.favoriteIDsLocked()
}

func (m *Manager) favoriteIDsLocked() []weather.CityID {
	ids := make([]weather.CityID, 0, len(m.favorites))
	for id := range m.favorites {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// OrderedCities returns copies of the cached records, favorites first and
// then by name.
func (m *Manager) OrderedCities() []weather.Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orderedLocked()
}

func (m *Manager) orderedLocked() []weather.Record {
	out := make([]weather.Record, 0, len(m.entries))
	for _, e := range m.entries {
		if e.phase == PhaseAbsent {
			continue
		}
		out = append(out, e.record.Clone())
	}
	sortRecords(out)
	return out
}

// Snapshot returns an immutable view of the cache.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	phases := make(map[weather.CityID]Phase, len(m.entries))
	for id, e := range m.entries {
		m.expire(e)
		phases[id] = e.visiblePhase()
	}
	cities := m.orderedLocked()
	return Snapshot{
		Cities:    cities,
		Phases:    phases,
		Unit:      m.unit,
		Loading:   m.inflight > 0 && len(cities) == 0,
		Busy:      m.inflight > 0,
		LastError: m.lastErr,
		UpdatedAt: m.updatedAt,
	}
}
