package owm

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/five82/nimbus/internal/weather"
)

// Fetch resolves q under unit and returns current conditions plus the 5-day
// forecast. Both lookups run concurrently and both must succeed.
func (c *Client) Fetch(ctx context.Context, q weather.Query, unit weather.Unit) (weather.Record, error) {
	if q.IsZero() {
		return weather.Record{}, weather.NewFetchError(weather.KindNotFound, 0, "city name is required", nil)
	}
	if !unit.Valid() {
		unit = weather.Metric
	}

	params := locationParams(q, unit)

	var (
		current  CurrentResponse
		forecast ForecastResponse
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.get(gctx, "/data/2.5/weather", params, &current)
	})
	g.Go(func() error {
		return c.get(gctx, "/data/2.5/forecast", params, &forecast)
	})
	if err := g.Wait(); err != nil {
		return weather.Record{}, err
	}

	rec := buildRecord(current, forecast, unit, c.now())
	if rec.ID == 0 {
		return weather.Record{}, weather.NewFetchError(weather.KindUpstream, 0, "", nil)
	}
	return rec, nil
}

// Suggest returns up to five geocoding candidates for a partial city name.
// Inputs shorter than two characters yield nothing without a request.
func (c *Client) Suggest(ctx context.Context, partial string) ([]weather.Suggestion, error) {
	query := strings.TrimSpace(partial)
	if utf8.RuneCountInString(query) < 2 {
		return nil, nil
	}
	key := strings.ToLower(query)
	if cached, ok := c.suggestions.Get(key); ok {
		return cloneSuggestions(cached.([]weather.Suggestion)), nil
	}

	values := url.Values{}
	values.Set("q", query)
	values.Set("limit", strconv.Itoa(suggestionLimit))

	var payload []GeoResult
	if err := c.get(ctx, "/geo/1.0/direct", values, &payload); err != nil {
		return nil, err
	}

	out := make([]weather.Suggestion, 0, len(payload))
	for _, r := range payload {
		if len(out) == suggestionLimit {
			break
		}
		out = append(out, weather.Suggestion{
			Name:    r.Name,
			State:   r.State,
			Country: r.Country,
			Lat:     r.Lat,
			Lon:     r.Lon,
		})
	}
	c.suggestions.SetDefault(key, out)
	return cloneSuggestions(out), nil
}

func locationParams(q weather.Query, unit weather.Unit) url.Values {
	values := url.Values{}
	if q.ID != 0 {
		values.Set("id", q.ID.String())
	} else {
		values.Set("q", strings.TrimSpace(q.Name))
	}
	values.Set("units", unit.String())
	return values
}

func cloneSuggestions(in []weather.Suggestion) []weather.Suggestion {
	if len(in) == 0 {
		return nil
	}
	dup := make([]weather.Suggestion, len(in))
	copy(dup, in)
	return dup
}
