package state

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/five82/nimbus/internal/prefs"
	"github.com/five82/nimbus/internal/weather"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type call struct {
	query weather.Query
	unit  weather.Unit
}

// fakeGateway resolves names through a fixed table. Temperature encodes the
// call number so tests can tell results apart.
type fakeGateway struct {
	mu     sync.Mutex
	clock  *fakeClock
	cities map[string]weather.CityID
	names  map[weather.CityID]string
	fail   map[weather.CityID]error
	block  map[weather.CityID]chan struct{}
	calls  []call
}

func newGateway(clock *fakeClock) *fakeGateway {
	g := &fakeGateway{
		clock:  clock,
		cities: map[string]weather.CityID{},
		names:  map[weather.CityID]string{},
		fail:   map[weather.CityID]error{},
		block:  map[weather.CityID]chan struct{}{},
	}
	g.add(1, "Austin")
	g.add(2, "Boston")
	g.add(3, "Zurich")
	return g
}

func (g *fakeGateway) add(id weather.CityID, name string) {
	g.cities[name] = id
	g.names[id] = name
}

func (g *fakeGateway) Fetch(ctx context.Context, q weather.Query, unit weather.Unit) (weather.Record, error) {
	g.mu.Lock()
	g.calls = append(g.calls, call{query: q, unit: unit})
	n := len(g.calls)
	id := q.ID
	if id == 0 {
		id = g.cities[q.Name]
	}
	err := g.fail[id]
	wait := g.block[id]
	g.mu.Unlock()

	if wait != nil {
		select {
		case <-wait:
		case <-ctx.Done():
			return weather.Record{}, ctx.Err()
		}
	}
	if id == 0 {
		return weather.Record{}, weather.NewFetchError(weather.KindNotFound, 404, "city not found", nil)
	}
	if err != nil {
		return weather.Record{}, err
	}
	return weather.Record{
		ID:        id,
		Name:      g.names[id],
		Country:   "XX",
		Current:   weather.Conditions{Temperature: float64(n), Description: "clear"},
		Forecast:  []weather.ForecastPoint{{Time: g.clock.Now(), Temperature: float64(n)}},
		Unit:      unit,
		FetchedAt: g.clock.Now(),
	}, nil
}

func (g *fakeGateway) setFail(id weather.CityID, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail[id] = err
}

func (g *fakeGateway) hold(id weather.CityID) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch := make(chan struct{})
	g.block[id] = ch
	return ch
}

func (g *fakeGateway) callsFor(id weather.CityID) []call {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []call
	for _, c := range g.calls {
		if c.query.ID == id || g.cities[c.query.Name] == id {
			out = append(out, c)
		}
	}
	return out
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type memFavorites struct {
	mu    sync.Mutex
	ids   []weather.CityID
	err   error
	saves int
}

func (f *memFavorites) Load() []weather.CityID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]weather.CityID(nil), f.ids...)
}

func (f *memFavorites) Save(ids []weather.CityID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.err != nil {
		return f.err
	}
	f.ids = append([]weather.CityID(nil), ids...)
	return nil
}

type harness struct {
	clock *fakeClock
	gw    *fakeGateway
	favs  *memFavorites
	m     *Manager
}

func newHarness(t *testing.T, favorites ...weather.CityID) *harness {
	t.Helper()
	clock := newClock()
	gw := newGateway(clock)
	favs := &memFavorites{ids: favorites}
	m, err := NewManager(Options{Gateway: gw, Favorites: favs, Now: clock.Now})
	require.NoError(t, err)
	return &harness{clock: clock, gw: gw, favs: favs, m: m}
}

func (h *harness) request(t *testing.T, name string) Outcome {
	t.Helper()
	out, err := h.m.RequestCity(context.Background(), weather.ByName(name))
	require.NoError(t, err)
	return out
}

func names(recs []weather.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Name)
	}
	return out
}

func TestRequestCity_FavoriteMergesStoreAndPrevious(t *testing.T) {
	h := newHarness(t, 2)

	h.request(t, "Austin")
	h.request(t, "Boston")

	snap := h.m.Snapshot()
	austin, ok := snap.City(1)
	require.True(t, ok)
	assert.False(t, austin.Favorite, "not in store, no previous record")
	boston, ok := snap.City(2)
	require.True(t, ok)
	assert.True(t, boston.Favorite, "in store")

	// Previously favorited record keeps the flag after a stale refetch even
	// when the store no longer lists it.
	require.NoError(t, h.m.ToggleFavorite(1))
	h.favs.mu.Lock()
	h.favs.ids = nil
	h.favs.mu.Unlock()
	h.m.mu.Lock()
	delete(h.m.favorites, 1)
	h.m.mu.Unlock()

	h.clock.Advance(61 * time.Second)
	assert.Equal(t, OutcomeCommitted, h.request(t, "Austin"))
	austin, _ = h.m.Snapshot().City(1)
	assert.True(t, austin.Favorite)
}

func TestRequestCity_RepeatWithinWindowKeepsFirst(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, OutcomeCommitted, h.request(t, "Austin"))
	first := h.m.OrderedCities()

	h.clock.Advance(10 * time.Second)
	assert.Equal(t, OutcomeDiscarded, h.request(t, "Austin"))

	got := h.m.OrderedCities()
	require.Len(t, got, 1)
	assert.Equal(t, first, got)
	assert.Len(t, h.gw.callsFor(1), 2)
}

func TestRequestCity_StaleRecordIsReplaced(t *testing.T) {
	h := newHarness(t)

	h.request(t, "Austin")
	before := h.m.OrderedCities()[0]

	h.clock.Advance(60*time.Second + time.Millisecond)
	assert.Equal(t, PhaseStale, h.m.Snapshot().Phase(1))
	assert.Equal(t, OutcomeCommitted, h.request(t, "Austin"))

	after := h.m.OrderedCities()
	require.Len(t, after, 1)
	assert.True(t, after[0].FetchedAt.After(before.FetchedAt))
	assert.NotEqual(t, before.Current.Temperature, after[0].Current.Temperature)
	assert.Equal(t, PhaseFresh, h.m.Snapshot().Phase(1))
}

func TestRequestCity_ExactlyAtWindowIsStillFresh(t *testing.T) {
	h := newHarness(t)

	h.request(t, "Austin")
	h.clock.Advance(60 * time.Second)
	assert.Equal(t, OutcomeDiscarded, h.request(t, "Austin"))
}

func TestSetUnit_RefetchesEachCachedCityOnce(t *testing.T) {
	h := newHarness(t)
	h.request(t, "Austin")
	h.request(t, "Boston")
	before := h.gw.callCount()

	require.NoError(t, h.m.SetUnit(context.Background(), weather.Imperial))

	assert.Equal(t, before+2, h.gw.callCount())
	for _, id := range []weather.CityID{1, 2} {
		calls := h.gw.callsFor(id)
		last := calls[len(calls)-1]
		assert.Equal(t, weather.ByID(id), last.query)
		assert.Equal(t, weather.Imperial, last.unit)
	}

	snap := h.m.Snapshot()
	assert.Equal(t, weather.Imperial, snap.Unit)
	require.Len(t, snap.Cities, 2)
	for _, rec := range snap.Cities {
		assert.Equal(t, weather.Imperial, rec.Unit, rec.Name)
		assert.Equal(t, PhaseFresh, snap.Phase(rec.ID))
	}
}

func TestSetUnit_SameUnitIsNoop(t *testing.T) {
	h := newHarness(t)
	h.request(t, "Austin")

	require.NoError(t, h.m.SetUnit(context.Background(), weather.Metric))
	assert.Equal(t, 1, h.gw.callCount())

	assert.Error(t, h.m.SetUnit(context.Background(), weather.Unit("kelvin")))
}

func TestSetUnit_FailedRefetchLeavesStaleRecord(t *testing.T) {
	h := newHarness(t)
	h.request(t, "Austin")
	h.gw.setFail(1, weather.NewFetchError(weather.KindNetwork, 0, "", errors.New("down")))

	err := h.m.ToggleUnit(context.Background())
	require.ErrorIs(t, err, weather.ErrNetwork)

	snap := h.m.Snapshot()
	require.Len(t, snap.Cities, 1)
	assert.Equal(t, weather.Metric, snap.Cities[0].Unit)
	assert.Equal(t, PhaseStale, snap.Phase(1))
	assert.Equal(t, weather.GenericFailureMessage, snap.LastError)
}

func TestOrderedCities_FavoritesFirstThenName(t *testing.T) {
	h := newHarness(t, 1, 2)

	h.request(t, "Zurich")
	h.request(t, "Boston")
	h.request(t, "Austin")

	assert.Equal(t, []string{"Austin", "Boston", "Zurich"}, names(h.m.OrderedCities()))

	require.NoError(t, h.m.ToggleFavorite(3))
	assert.Equal(t, []string{"Austin", "Boston", "Zurich"}, names(h.m.OrderedCities()))

	require.NoError(t, h.m.ToggleFavorite(1))
	assert.Equal(t, []string{"Boston", "Zurich", "Austin"}, names(h.m.OrderedCities()))
}

func TestSortRecords_CaseAndAccentInsensitive(t *testing.T) {
	recs := []weather.Record{
		{ID: 1, Name: "zagreb"},
		{ID: 2, Name: "Århus"},
		{ID: 3, Name: "Bern"},
		{ID: 4, Name: "amsterdam"},
	}
	sortRecords(recs)
	assert.Equal(t, []string{"amsterdam", "Århus", "Bern", "zagreb"}, names(recs))
}

func TestRemoveCity(t *testing.T) {
	h := newHarness(t)
	h.request(t, "Austin")
	h.request(t, "Boston")

	h.m.RemoveCity(1)
	assert.Equal(t, []string{"Boston"}, names(h.m.OrderedCities()))
	assert.Equal(t, PhaseAbsent, h.m.Snapshot().Phase(1))

	assert.NotPanics(t, func() { h.m.RemoveCity(1) })
	assert.NotPanics(t, func() { h.m.RemoveCity(999) })
	assert.Equal(t, []string{"Boston"}, names(h.m.OrderedCities()))

	// A new search after removal inserts again.
	assert.Equal(t, OutcomeCommitted, h.request(t, "Austin"))
}

func TestRemoveCity_InFlightResultIsFenced(t *testing.T) {
	h := newHarness(t)
	release := h.gw.hold(1)

	done := make(chan Outcome)
	go func() {
		out, _ := h.m.RequestCity(context.Background(), weather.ByID(1))
		done <- out
	}()

	require.Eventually(t, func() bool { return h.gw.callCount() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, PhaseFetching, h.m.Snapshot().Phase(1))

	h.m.RemoveCity(1)
	close(release)

	assert.Equal(t, OutcomeFenced, <-done)
	assert.Empty(t, h.m.OrderedCities())
	assert.Equal(t, PhaseAbsent, h.m.Snapshot().Phase(1))
}

func TestRequestCity_OlderByIDRequestLoses(t *testing.T) {
	h := newHarness(t)
	release := h.gw.hold(1)

	first := make(chan Outcome)
	go func() {
		out, _ := h.m.RequestCity(context.Background(), weather.ByID(1))
		first <- out
	}()
	require.Eventually(t, func() bool { return h.gw.callCount() == 1 }, time.Second, time.Millisecond)

	h.gw.mu.Lock()
	delete(h.gw.block, 1)
	h.gw.mu.Unlock()

	out, err := h.m.RequestCity(context.Background(), weather.ByID(1))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, out)

	close(release)
	assert.Equal(t, OutcomeFenced, <-first)

	recs := h.m.OrderedCities()
	require.Len(t, recs, 1)
	assert.InDelta(t, 2, recs[0].Current.Temperature, 0.001)
}

func TestRequestCity_SearchDuringUnitSwitchIsRefetched(t *testing.T) {
	h := newHarness(t)
	release := h.gw.hold(3)

	type result struct {
		out Outcome
		err error
	}
	done := make(chan result)
	go func() {
		out, err := h.m.RequestCity(context.Background(), weather.ByName("Zurich"))
		done <- result{out, err}
	}()
	require.Eventually(t, func() bool { return h.gw.callCount() == 1 }, time.Second, time.Millisecond)

	require.NoError(t, h.m.SetUnit(context.Background(), weather.Imperial))
	close(release)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, OutcomeCommitted, res.out)

	recs := h.m.OrderedCities()
	require.Len(t, recs, 1)
	assert.Equal(t, "Zurich", recs[0].Name)
	assert.Equal(t, weather.Imperial, recs[0].Unit)
	assert.Empty(t, h.m.Snapshot().LastError)

	calls := h.gw.callsFor(3)
	require.Len(t, calls, 2)
	assert.Equal(t, weather.Metric, calls[0].unit)
	assert.Equal(t, weather.ByID(3), calls[1].query)
	assert.Equal(t, weather.Imperial, calls[1].unit)
}

func TestRequestCity_RemovedDuringUnitSwitchStaysRemoved(t *testing.T) {
	h := newHarness(t)
	h.request(t, "Zurich")
	release := h.gw.hold(3)

	done := make(chan Outcome)
	go func() {
		out, _ := h.m.RequestCity(context.Background(), weather.ByID(3))
		done <- out
	}()
	require.Eventually(t, func() bool { return h.gw.callCount() == 2 }, time.Second, time.Millisecond)

	h.m.RemoveCity(3)
	require.NoError(t, h.m.SetUnit(context.Background(), weather.Imperial))
	close(release)

	assert.Equal(t, OutcomeFenced, <-done)
	assert.Empty(t, h.m.OrderedCities())
	assert.Len(t, h.gw.callsFor(3), 2)
}

func TestToggleUnit_ConcurrentTogglesBothApply(t *testing.T) {
	h := newHarness(t)
	h.request(t, "Austin")

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, h.m.ToggleUnit(context.Background()))
		}()
	}
	wg.Wait()

	assert.Equal(t, weather.Metric, h.m.Unit())
	recs := h.m.OrderedCities()
	require.Len(t, recs, 1)
	assert.Equal(t, weather.Metric, recs[0].Unit)
}

func TestToggleFavorite_PersistsThroughPrefsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs.toml")
	clock := newClock()
	gw := newGateway(clock)

	m, err := NewManager(Options{Gateway: gw, Favorites: prefs.NewFavoritesFile(path, nil), Now: clock.Now})
	require.NoError(t, err)
	_, err = m.RequestCity(context.Background(), weather.ByName("Austin"))
	require.NoError(t, err)

	require.NoError(t, m.ToggleFavorite(1))
	assert.Equal(t, []weather.CityID{1}, prefs.NewFavoritesFile(path, nil).Load())

	require.NoError(t, m.ToggleFavorite(1))
	assert.Empty(t, prefs.NewFavoritesFile(path, nil).Load())
}

func TestToggleFavorite_UnknownIDIsNoop(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.m.ToggleFavorite(42))
	assert.Zero(t, h.favs.saves)
}

func TestToggleFavorite_SaveFailureKeepsToggle(t *testing.T) {
	h := newHarness(t)
	h.request(t, "Austin")
	h.favs.err = errors.New("disk full")

	err := h.m.ToggleFavorite(1)
	require.Error(t, err)
	rec, _ := h.m.Snapshot().City(1)
	assert.True(t, rec.Favorite)
	assert.Equal(t, []weather.CityID{1}, h.m.Favorites())
}

func TestRemoveCity_DoesNotUnfavorite(t *testing.T) {
	h := newHarness(t, 1)
	h.request(t, "Austin")

	h.m.RemoveCity(1)
	assert.Equal(t, []weather.CityID{1}, h.m.Favorites())

	h.request(t, "Austin")
	rec, ok := h.m.Snapshot().City(1)
	require.True(t, ok)
	assert.True(t, rec.Favorite)
}

func TestRequestCity_FailureIsNonDestructive(t *testing.T) {
	h := newHarness(t)
	h.request(t, "Austin")
	before := h.m.OrderedCities()

	h.clock.Advance(2 * time.Minute)
	h.gw.setFail(1, weather.NewFetchError(weather.KindUpstream, 500, "Internal error", nil))

	out, err := h.m.RequestCity(context.Background(), weather.ByName("Austin"))
	require.ErrorIs(t, err, weather.ErrUpstream)
	assert.Equal(t, OutcomeFailed, out)

	assert.Equal(t, before, h.m.OrderedCities())
	snap := h.m.Snapshot()
	assert.Equal(t, "Internal error", snap.LastError)
	assert.Equal(t, PhaseStale, snap.Phase(1))

	// The next fetch clears the error when it starts.
	h.gw.setFail(1, nil)
	h.request(t, "Austin")
	assert.Empty(t, h.m.Snapshot().LastError)
}

func TestRequestCity_NotFoundSetsError(t *testing.T) {
	h := newHarness(t)

	_, err := h.m.RequestCity(context.Background(), weather.ByName("Atlantis"))
	require.ErrorIs(t, err, weather.ErrNotFound)

	snap := h.m.Snapshot()
	assert.Equal(t, "city not found", snap.LastError)
	assert.Empty(t, snap.Cities)

	h.m.ClearError()
	assert.Empty(t, h.m.Snapshot().LastError)
}

func TestRequestCity_EmptyQueryMakesNoCall(t *testing.T) {
	h := newHarness(t)

	_, err := h.m.RequestCity(context.Background(), weather.ByName("   "))
	require.ErrorIs(t, err, ErrEmptyQuery)
	assert.Zero(t, h.gw.callCount())
}

func TestSnapshot_LoadingOnlyWhileCacheEmpty(t *testing.T) {
	h := newHarness(t)
	release := h.gw.hold(1)

	done := make(chan struct{})
	go func() {
		_, _ = h.m.RequestCity(context.Background(), weather.ByName("Austin"))
		close(done)
	}()
	require.Eventually(t, func() bool { return h.gw.callCount() == 1 }, time.Second, time.Millisecond)

	snap := h.m.Snapshot()
	assert.True(t, snap.Loading)
	assert.True(t, snap.Busy)

	close(release)
	<-done

	snap = h.m.Snapshot()
	assert.False(t, snap.Loading)
	assert.False(t, snap.Busy)
}

func TestBootstrap_FetchesFavoritesByID(t *testing.T) {
	h := newHarness(t, 3, 1)

	require.NoError(t, h.m.Bootstrap(context.Background()))

	snap := h.m.Snapshot()
	assert.Equal(t, []string{"Austin", "Zurich"}, names(snap.Cities))
	for _, rec := range snap.Cities {
		assert.True(t, rec.Favorite)
	}
	assert.Equal(t, []call{{query: weather.ByID(1), unit: weather.Metric}}, h.gw.callsFor(1))
}

func TestBootstrap_FailedFavoriteLeavesNoEntry(t *testing.T) {
	h := newHarness(t, 1)
	h.gw.setFail(1, weather.NewFetchError(weather.KindNetwork, 0, "", nil))

	require.Error(t, h.m.Bootstrap(context.Background()))
	snap := h.m.Snapshot()
	assert.Empty(t, snap.Cities)
	assert.Equal(t, PhaseAbsent, snap.Phase(1))
	assert.Equal(t, []weather.CityID{1}, h.m.Favorites())
}

func TestRefresh_OnlyStaleEntries(t *testing.T) {
	h := newHarness(t)
	h.request(t, "Austin")
	h.clock.Advance(45 * time.Second)
	h.request(t, "Boston")
	h.clock.Advance(20 * time.Second)

	require.NoError(t, h.m.Refresh(context.Background()))

	assert.Len(t, h.gw.callsFor(1), 2)
	assert.Len(t, h.gw.callsFor(2), 1)

	require.NoError(t, h.m.Refresh(context.Background()))
	assert.Len(t, h.gw.callsFor(1), 2)
}

func TestSnapshot_IsIndependentCopy(t *testing.T) {
	h := newHarness(t)
	h.request(t, "Austin")

	snap := h.m.Snapshot()
	snap.Cities[0].Name = "mutated"
	snap.Cities[0].Forecast[0].Temperature = -100
	snap.Phases[1] = PhaseStale

	again := h.m.Snapshot()
	assert.Equal(t, "Austin", again.Cities[0].Name)
	assert.InDelta(t, 1, again.Cities[0].Forecast[0].Temperature, 0.001)
	assert.Equal(t, PhaseFresh, again.Phase(1))
}

func TestRequestCity_ConcurrentSearchesKeepOneRecord(t *testing.T) {
	h := newHarness(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = h.m.RequestCity(context.Background(), weather.ByName("Boston"))
		}()
	}
	wg.Wait()

	recs := h.m.OrderedCities()
	require.Len(t, recs, 1)
	assert.Equal(t, weather.CityID(2), recs[0].ID)
	assert.False(t, h.m.Snapshot().Busy)
}

func TestNewManager_Validation(t *testing.T) {
	_, err := NewManager(Options{})
	require.Error(t, err)

	_, err = NewManager(Options{Gateway: newGateway(newClock()), Unit: "kelvin"})
	require.Error(t, err)

	m, err := NewManager(Options{Gateway: newGateway(newClock())})
	require.NoError(t, err)
	assert.Equal(t, weather.Metric, m.Unit())
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		from Phase
		ev   event
		to   Phase
		ok   bool
	}{
		{PhaseAbsent, evStore, PhaseFresh, true},
		{PhaseFresh, evStore, 0, false},
		{PhaseFresh, evExpire, PhaseStale, true},
		{PhaseFresh, evInvalidate, PhaseStale, true},
		{PhaseStale, evStore, PhaseFresh, true},
		{PhaseStale, evExpire, 0, false},
		{PhaseAbsent, evInvalidate, 0, false},
		{PhaseStale, evRemove, PhaseAbsent, true},
	}
	for _, tt := range tests {
		t.Run(tt.from.String(), func(t *testing.T) {
			to, ok := next(tt.from, tt.ev)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.to, to)
			}
		})
	}
}
