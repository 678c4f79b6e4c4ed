package dashboard

import (
	"fmt"
	"math"
	"time"

	"github.com/five82/nimbus/internal/state"
	"github.com/five82/nimbus/internal/weather"
)

// Status is the header line data.
type Status struct {
	Unit      weather.Unit
	UnitLabel string
	Loading   bool
	Busy      bool
	Error     string
	Cities    int
	Favorites int
	UpdatedAt time.Time
}

// StatusOf summarises a snapshot.
func StatusOf(snap state.Snapshot) Status {
	st := Status{
		Unit:      snap.Unit,
		UnitLabel: snap.Unit.TemperatureLabel(),
		Loading:   snap.Loading,
		Busy:      snap.Busy,
		Error:     snap.LastError,
		Cities:    len(snap.Cities),
		UpdatedAt: snap.UpdatedAt,
	}
	for _, rec := range snap.Cities {
		if rec.Favorite {
			st.Favorites++
		}
	}
	return st
}

// Card is one city tile in the list.
type Card struct {
	ID          weather.CityID
	Title       string
	Temperature string
	Description string
	Glyph       string
	Humidity    string
	Wind        string
	Favorite    bool
	Phase       state.Phase
	FetchedAt   time.Time
}

// Cards returns the tiles in display order.
func Cards(snap state.Snapshot) []Card {
	cards := make([]Card, 0, len(snap.Cities))
	for _, rec := range snap.Cities {
		cards = append(cards, Card{
			ID:          rec.ID,
			Title:       rec.DisplayName(),
			Temperature: FormatTemperature(rec.Current.Temperature, rec.Unit),
			Description: rec.Current.Description,
			Glyph:       weather.IconGlyph(rec.Current.Icon),
			Humidity:    fmt.Sprintf("%d%%", rec.Current.Humidity),
			Wind:        FormatSpeed(rec.Current.WindSpeed, rec.Unit),
			Favorite:    rec.Favorite,
			Phase:       snap.Phase(rec.ID),
			FetchedAt:   rec.FetchedAt,
		})
	}
	return cards
}

// DaySummary aggregates the forecast points of one calendar day.
type DaySummary struct {
	Date          time.Time
	Min           float64
	Max           float64
	Precipitation float64 // mm
	Icon          string  // icon of the point closest to midday
}

// DetailView is the modal content for one city.
type DetailView struct {
	ID          weather.CityID
	Title       string
	Description string
	Glyph       string
	Temperature string
	FeelsLike   string
	Humidity    string
	Pressure    string
	Visibility  string
	Wind        string
	Favorite    bool
	FetchedAt   time.Time
	Days        []DaySummary
	Unit        weather.Unit
}

// Detail builds the modal view of rec.
func Detail(rec weather.Record) DetailView {
	c := rec.Current
	return DetailView{
		ID:          rec.ID,
		Title:       rec.DisplayName(),
		Description: c.Description,
		Glyph:       weather.IconGlyph(c.Icon),
		Temperature: FormatTemperature(c.Temperature, rec.Unit),
		FeelsLike:   FormatTemperature(c.FeelsLike, rec.Unit),
		Humidity:    fmt.Sprintf("%d%%", c.Humidity),
		Pressure:    fmt.Sprintf("%d hPa", c.Pressure),
		Visibility:  FormatVisibility(c.Visibility),
		Wind:        FormatSpeed(c.WindSpeed, rec.Unit),
		Favorite:    rec.Favorite,
		FetchedAt:   rec.FetchedAt,
		Days:        Daily(rec.Forecast),
		Unit:        rec.Unit,
	}
}

// Daily groups forecast points by calendar day in the zone of each point.
// The gateway stamps points with the city's UTC offset.
func Daily(points []weather.ForecastPoint) []DaySummary {
	var (
		days    []DaySummary
		noonGap []time.Duration
	)
	for _, p := range points {
		y, m, d := p.Time.Date()
		date := time.Date(y, m, d, 0, 0, 0, 0, p.Time.Location())
		gap := absDuration(p.Time.Sub(date.Add(12 * time.Hour)))

		last := len(days) - 1
		if last < 0 || !days[last].Date.Equal(date) {
			days = append(days, DaySummary{
				Date:          date,
				Min:           p.Temperature,
				Max:           p.Temperature,
				Precipitation: p.Precipitation,
				Icon:          p.Icon,
			})
			noonGap = append(noonGap, gap)
			continue
		}
		day := &days[last]
		day.Min = math.Min(day.Min, p.Temperature)
		day.Max = math.Max(day.Max, p.Temperature)
		day.Precipitation += p.Precipitation
		if gap < noonGap[last] {
			day.Icon = p.Icon
			noonGap[last] = gap
		}
	}
	return days
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

// Series is one chart line.
type Series struct {
	Label  string
	Unit   string
	Times  []time.Time
	Values []float64
}

// Max returns the largest value, 0 for an empty series.
func (s Series) Max() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	out := s.Values[0]
	for _, v := range s.Values[1:] {
		out = math.Max(out, v)
	}
	return out
}

// Min returns the smallest value, 0 for an empty series.
func (s Series) Min() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	out := s.Values[0]
	for _, v := range s.Values[1:] {
		out = math.Min(out, v)
	}
	return out
}

// Charts holds the three forecast trend series.
type Charts struct {
	Temperature   Series
	Precipitation Series
	Wind          Series
}

// ChartSeries extracts trend series from the forecast. limit caps the number
// of points; zero or negative keeps all.
func ChartSeries(rec weather.Record, limit int) Charts {
	points := rec.Forecast
	if limit > 0 && len(points) > limit {
		points = points[:limit]
	}
	ch := Charts{
		Temperature:   Series{Label: "Temperature", Unit: rec.Unit.TemperatureLabel()},
		Precipitation: Series{Label: "Precipitation", Unit: "mm"},
		Wind:          Series{Label: "Wind", Unit: rec.Unit.SpeedLabel()},
	}
	for _, p := range points {
		ch.Temperature.Times = append(ch.Temperature.Times, p.Time)
		ch.Temperature.Values = append(ch.Temperature.Values, p.Temperature)
		ch.Precipitation.Times = append(ch.Precipitation.Times, p.Time)
		ch.Precipitation.Values = append(ch.Precipitation.Values, p.Precipitation)
		ch.Wind.Times = append(ch.Wind.Times, p.Time)
		ch.Wind.Values = append(ch.Wind.Values, p.WindSpeed)
	}
	return ch
}

// FormatTemperature rounds to whole degrees and appends the unit label.
func FormatTemperature(v float64, unit weather.Unit) string {
	return fmt.Sprintf("%d%s", int(math.Round(v)), unit.TemperatureLabel())
}

// FormatSpeed keeps one decimal.
func FormatSpeed(v float64, unit weather.Unit) string {
	return fmt.Sprintf("%.1f %s", v, unit.SpeedLabel())
}

// FormatVisibility converts metres to kilometres with one decimal.
func FormatVisibility(metres int) string {
	return fmt.Sprintf("%.1f km", math.Round(float64(metres)/100)/10)
}
