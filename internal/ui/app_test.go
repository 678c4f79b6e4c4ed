package ui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/nimbus/internal/prefs"
	"github.com/five82/nimbus/internal/state"
	"github.com/five82/nimbus/internal/weather"
)

type fakeDispatcher struct {
	mu        sync.Mutex
	snap      state.Snapshot
	searches  []string
	removed   []weather.CityID
	favorited []weather.CityID
	cleared   int
	favErr    error
}

func (f *fakeDispatcher) Search(_ context.Context, input string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, input)
	return nil
}

func (f *fakeDispatcher) Remove(id weather.CityID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, id)
}

func (f *fakeDispatcher) ToggleFavorite(id weather.CityID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.favorited = append(f.favorited, id)
	return f.favErr
}

func (f *fakeDispatcher) ToggleUnit(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap.Unit = f.snap.Unit.Other()
	return nil
}

func (f *fakeDispatcher) ClearError() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
}

func (f *fakeDispatcher) Snapshot() state.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap
}

type fakeSuggester struct {
	mu      sync.Mutex
	queries []string
	items   []weather.Suggestion
}

func (f *fakeSuggester) Suggest(_ context.Context, partial string) ([]weather.Suggestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, partial)
	return f.items, nil
}

func record(id weather.CityID, name string, favorite bool) weather.Record {
	return weather.Record{
		ID:        id,
		Name:      name,
		Country:   "US",
		Unit:      weather.Metric,
		Favorite:  favorite,
		FetchedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Current:   weather.Conditions{Temperature: 20.4, Description: "clear sky", Icon: "01d", Humidity: 40, WindSpeed: 3.2},
	}
}

func sampleSnapshot() state.Snapshot {
	return state.Snapshot{
		Cities: []weather.Record{record(1, "Austin", true), record(2, "Boston", false)},
		Phases: map[weather.CityID]state.Phase{1: state.PhaseFresh, 2: state.PhaseStale},
		Unit:   weather.Metric,
	}
}

type harness struct {
	t         *testing.T
	model     Model
	disp      *fakeDispatcher
	suggest   *fakeSuggester
	prefsPath string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:         t,
		disp:      &fakeDispatcher{snap: sampleSnapshot()},
		suggest:   &fakeSuggester{items: []weather.Suggestion{{Name: "Oslo", Country: "NO"}, {Name: "Osaka", Country: "JP"}}},
		prefsPath: filepath.Join(t.TempDir(), "prefs.toml"),
	}
	h.model = New(Options{Dispatcher: h.disp, Suggester: h.suggest, PrefsPath: h.prefsPath, ThemeName: "Nightfox"})
	h.send(tea.WindowSizeMsg{Width: 120, Height: 40})
	h.send(snapshotMsg(h.disp.Snapshot()))
	return h
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	h.t.Helper()
	next, cmd := h.model.Update(msg)
	h.model = next.(Model)
	return cmd
}

func (h *harness) press(keys ...string) tea.Cmd {
	h.t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		cmd = h.send(keyMsg(k))
	}
	return cmd
}

// run executes cmd and feeds its message back into the model.
func (h *harness) run(cmd tea.Cmd) tea.Msg {
	h.t.Helper()
	require.NotNil(h.t, cmd)
	msg := cmd()
	h.send(msg)
	return msg
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
}

func TestSelection_FollowsCityAcrossReorder(t *testing.T) {
	h := newHarness(t)
	h.press("j")
	assert.Equal(t, weather.CityID(2), h.model.selectedID)

	snap := sampleSnapshot()
	snap.Cities = []weather.Record{record(2, "Boston", true), record(1, "Austin", false)}
	h.send(snapshotMsg(snap))
	assert.Equal(t, 0, h.model.selected)
	assert.Equal(t, weather.CityID(2), h.model.selectedID)

	snap.Cities = snap.Cities[1:]
	h.send(snapshotMsg(snap))
	assert.Equal(t, weather.CityID(1), h.model.selectedID, "removed city falls back to a neighbour")
}

func TestFavoriteAndRemoveKeys(t *testing.T) {
	h := newHarness(t)
	h.press("j")
	h.run(h.press("f"))
	h.run(h.press("x"))

	assert.Equal(t, []weather.CityID{2}, h.disp.favorited)
	assert.Equal(t, []weather.CityID{2}, h.disp.removed)
}

func TestFavoriteFailure_ShowsNotice(t *testing.T) {
	h := newHarness(t)
	h.disp.favErr = errors.New("disk full")

	h.run(h.press("f"))
	assert.Contains(t, h.model.notice, "favorite")
	assert.Contains(t, h.model.notice, "disk full")

	h.press("c")
	assert.Empty(t, h.model.notice)
	assert.Equal(t, 1, h.disp.cleared)
}

func TestUnitKey_SavesUnitToPrefs(t *testing.T) {
	h := newHarness(t)
	h.run(h.press("u"))

	p, err := prefs.Load(h.prefsPath)
	require.NoError(t, err)
	assert.Equal(t, "imperial", p.Unit)
	assert.Empty(t, h.model.notice)
}

func TestThemeKey_SavesThemeToPrefs(t *testing.T) {
	h := newHarness(t)
	h.press("T")
	assert.Equal(t, "Kanagawa", h.model.theme.Name)

	p, err := prefs.Load(h.prefsPath)
	require.NoError(t, err)
	assert.Equal(t, "Kanagawa", p.Theme)
}

func TestSearch_DebounceDropsOutdatedInput(t *testing.T) {
	h := newHarness(t)
	h.press("/")
	require.True(t, h.model.search.active)

	h.press("O")
	assert.Empty(t, h.model.search.suggestions)
	h.press("s")
	seq := h.model.search.seq
	assert.Equal(t, "Os", h.model.search.input.Value())

	// A tick scheduled for an earlier keystroke does nothing.
	assert.Nil(t, h.send(suggestTickMsg{seq: seq - 1, query: "O"}))

	cmd := h.send(suggestTickMsg{seq: seq, query: "Os"})
	msg := cmd()
	assert.Equal(t, []string{"Os"}, h.suggest.queries)

	// Results that arrive after another keystroke are ignored.
	h.press("l")
	h.send(msg)
	assert.Empty(t, h.model.search.suggestions)

	h.send(suggestionsMsg{seq: h.model.search.seq, items: h.suggest.items})
	assert.Len(t, h.model.search.suggestions, 2)
}

func TestSearch_EnterSubmitsHighlightedSuggestion(t *testing.T) {
	h := newHarness(t)
	h.press("/", "O", "s")
	h.send(suggestionsMsg{seq: h.model.search.seq, items: h.suggest.items})

	h.press("down", "down")
	cmd := h.press("enter")
	assert.False(t, h.model.search.active)
	h.run(cmd)

	assert.Equal(t, []string{"Osaka, JP"}, h.disp.searches)
}

func TestSearch_TabAcceptsThenEnterSubmitsText(t *testing.T) {
	h := newHarness(t)
	h.press("/", "O", "s")
	h.send(suggestionsMsg{seq: h.model.search.seq, items: h.suggest.items})

	h.press("down", "tab")
	assert.Equal(t, "Oslo, NO", h.model.search.input.Value())

	h.run(h.press("enter"))
	assert.Equal(t, []string{"Oslo, NO"}, h.disp.searches)
}

func TestSearch_EscCancelsAndBlankEnterDoesNothing(t *testing.T) {
	h := newHarness(t)
	h.press("/", "B", "e")
	seq := h.model.search.seq
	h.press("esc")
	assert.False(t, h.model.search.active)

	h.send(suggestionsMsg{seq: seq, items: h.suggest.items})
	assert.Empty(t, h.model.search.suggestions)

	h.press("/")
	assert.Nil(t, h.press("enter"))
	assert.Empty(t, h.disp.searches)
}

func TestSearch_TypedQKeepsSearching(t *testing.T) {
	h := newHarness(t)
	h.press("/", "q")
	assert.True(t, h.model.search.active)
	assert.Equal(t, "q", h.model.search.input.Value())
}

func TestDetailModal_ClosesWhenCityRemoved(t *testing.T) {
	h := newHarness(t)
	h.press("enter")
	require.NotNil(t, h.model.modal)
	assert.Contains(t, h.model.View(), "Austin")

	snap := sampleSnapshot()
	snap.Cities = snap.Cities[1:]
	h.send(snapshotMsg(snap))
	assert.Nil(t, h.model.modal)
}

func TestDetailModal_FavoriteAndClose(t *testing.T) {
	h := newHarness(t)
	h.press("j", "enter")
	require.NotNil(t, h.model.modal)

	h.run(h.press("f"))
	assert.Equal(t, []weather.CityID{2}, h.disp.favorited)
	require.NotNil(t, h.model.modal)

	h.press("esc")
	assert.Nil(t, h.model.modal)
}

func TestView_RendersCardsAndHeader(t *testing.T) {
	h := newHarness(t)
	out := h.model.View()
	for _, want := range []string{"nimbus", "°C", "Austin, US", "Boston, US", "20°C", "fresh", "stale"} {
		assert.Contains(t, out, want)
	}
}

func TestView_EmptyListHint(t *testing.T) {
	h := newHarness(t)
	h.send(snapshotMsg(state.Snapshot{Unit: weather.Metric}))
	assert.Contains(t, h.model.View(), "No cities yet")
}

func TestLogsView_FiltersByLevel(t *testing.T) {
	h := newHarness(t)
	h.model.logPath = filepath.Join(t.TempDir(), "nimbus.log")
	lines := strings.Join([]string{
		`time=2026-03-01T12:00:00Z level=DEBUG msg="cache hit" city=Austin`,
		`time=2026-03-01T12:00:01Z level=WARN msg="fetch failed" city=Boston`,
	}, "\n")
	require.NoError(t, os.WriteFile(h.model.logPath, []byte(lines), 0o600))

	h.run(h.press("l"))
	assert.Equal(t, ViewLogs, h.model.currentView)
	out := h.model.View()
	assert.Contains(t, out, "fetch failed")
	assert.NotContains(t, out, "cache hit")

	h.run(h.press("v")) // INFO -> WARN
	h.run(h.press("v")) // WARN -> ERROR
	assert.Contains(t, h.model.View(), "No log lines at ERROR")

	h.press("esc")
	assert.Equal(t, ViewCities, h.model.currentView)
}

func TestHelpOverlay_AnyKeyCloses(t *testing.T) {
	h := newHarness(t)
	h.press("?")
	assert.True(t, h.model.showHelp)
	assert.Contains(t, h.model.View(), "Keyboard Shortcuts")

	h.press("j")
	assert.False(t, h.model.showHelp)
	assert.Equal(t, 0, h.model.selected, "closing key is not forwarded")
}

func TestFormatUpdated(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.Local)
	cases := []struct {
		at   time.Time
		want string
	}{
		{time.Time{}, ""},
		{now.Add(-10 * time.Second), "11:59:50 (now)"},
		{now.Add(-5 * time.Minute), "11:55:00 (5m ago)"},
		{now.Add(-3 * time.Hour), "09:00:00 (3h ago)"},
	}
	for _, tc := range cases {
		if got := formatUpdated(tc.at, now); got != tc.want {
			t.Fatalf("formatUpdated(%v) = %q, want %q", tc.at, got, tc.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("  Reykjavík  ", 20); got != "Reykjavík" {
		t.Fatalf("truncate = %q, want Reykjavík", got)
	}
	if got := truncate("Thiruvananthapuram", 8); got != "Thiru..." {
		t.Fatalf("truncate = %q, want Thiru...", got)
	}
	if got := truncate("abc", 0); got != "" {
		t.Fatalf("truncate zero limit = %q, want empty", got)
	}
}
