package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/nimbus/internal/prefs"
	"github.com/five82/nimbus/internal/weather"
)

func TestPrintRecord(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	rec := weather.Record{
		ID:      2267057,
		Name:    "Lisbon",
		Country: "PT",
		Unit:    weather.Metric,
		Current: weather.Conditions{
			Temperature: 21.6, FeelsLike: 20.2, Humidity: 40, Pressure: 1012,
			WindSpeed: 3.25, Visibility: 10000, Description: "clear sky", Icon: "01d",
		},
		Forecast: []weather.ForecastPoint{
			{Time: start, Temperature: 18, Precipitation: 0, WindSpeed: 2},
			{Time: start.Add(3 * time.Hour), Temperature: 22.4, Precipitation: 1.25, WindSpeed: 4},
		},
	}

	var buf bytes.Buffer
	printRecord(&buf, rec)
	out := buf.String()

	for _, want := range []string{
		"Lisbon, PT",
		"Temperature 22°C (feels like 20°C)",
		"Pressure 1012 hPa",
		"Visibility 10.0 km",
		"Next 24 h",
		"Mon 12:00",
		"1.2 mm",
	} {
		assert.Contains(t, out, want)
	}
}

func TestFavoritesCommand(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(home, "prefs.toml")

	run := func() string {
		t.Helper()
		root := rootCommand()
		var out bytes.Buffer
		root.SetOut(&out)
		root.SetArgs([]string{"favorites", "--prefs", path, "--config", filepath.Join(home, "none.toml")})
		require.NoError(t, root.Execute())
		return strings.TrimSpace(out.String())
	}

	assert.Equal(t, "no favorites", run())

	require.NoError(t, prefs.Save(path, prefs.Prefs{Favorites: []int64{5128581, 2643743}}))
	assert.Equal(t, "2643743\n5128581", run())
}

func TestCurrentCommand_RequiresCity(t *testing.T) {
	root := rootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"current"})
	assert.Error(t, root.Execute())
}
