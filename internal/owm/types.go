package owm

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/five82/nimbus/internal/weather"
)

// conditionPayload is the weather[] element shared by both endpoints.
type conditionPayload struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

// CurrentResponse mirrors /data/2.5/weather.
type CurrentResponse struct {
	ID      int64              `json:"id"`
	Name    string             `json:"name"`
	Dt      int64              `json:"dt"`
	Weather []conditionPayload `json:"weather"`
	Main    struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Pressure  int     `json:"pressure"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Visibility int `json:"visibility"`
	Wind       struct {
		Speed float64 `json:"speed"`
		Deg   int     `json:"deg"`
	} `json:"wind"`
	Sys struct {
		Country string `json:"country"`
	} `json:"sys"`
}

// volumePayload covers the optional rain/snow objects.
type volumePayload struct {
	OneHour   float64 `json:"1h"`
	ThreeHour float64 `json:"3h"`
}

// ForecastResponse mirrors /data/2.5/forecast.
type ForecastResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  int     `json:"humidity"`
		} `json:"main"`
		Weather []conditionPayload `json:"weather"`
		Wind    struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Rain *volumePayload `json:"rain"`
		Snow *volumePayload `json:"snow"`
	} `json:"list"`
	City struct {
		ID       int64  `json:"id"`
		Name     string `json:"name"`
		Country  string `json:"country"`
		Timezone int    `json:"timezone"` // seconds east of UTC
	} `json:"city"`
}

// GeoResult mirrors one element of /geo/1.0/direct.
type GeoResult struct {
	Name    string  `json:"name"`
	State   string  `json:"state"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// errorResponse is the body OpenWeatherMap sends with non-2xx statuses.
// cod is a string on some endpoints and a number on others.
type errorResponse struct {
	Cod     json.RawMessage `json:"cod"`
	Message string          `json:"message"`
}

func upstreamMessage(body []byte) string {
	var payload errorResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Message)
}

func (v *volumePayload) amount() float64 {
	if v == nil {
		return 0
	}
	if v.ThreeHour > 0 {
		return v.ThreeHour
	}
	return v.OneHour
}

func firstCondition(items []conditionPayload) conditionPayload {
	if len(items) == 0 {
		return conditionPayload{}
	}
	return items[0]
}

// cityZone is the fixed zone for a UTC offset in seconds. A zero offset
// stays UTC.
func cityZone(offset int) *time.Location {
	if offset == 0 {
		return time.UTC
	}
	return time.FixedZone("", offset)
}

// buildRecord normalizes the two payloads into a Record. Favorite is left unset.
func buildRecord(cur CurrentResponse, fc ForecastResponse, unit weather.Unit, fetchedAt time.Time) weather.Record {
	cond := firstCondition(cur.Weather)

	id := weather.CityID(cur.ID)
	if id == 0 {
		id = weather.CityID(fc.City.ID)
	}
	name := strings.TrimSpace(cur.Name)
	if name == "" {
		name = fc.City.Name
	}
	country := cur.Sys.Country
	if country == "" {
		country = fc.City.Country
	}

	zone := cityZone(fc.City.Timezone)
	points := make([]weather.ForecastPoint, 0, len(fc.List))
	for _, entry := range fc.List {
		points = append(points, weather.ForecastPoint{
			Time:          time.Unix(entry.Dt, 0).In(zone),
			Temperature:   entry.Main.Temp,
			FeelsLike:     entry.Main.FeelsLike,
			Precipitation: entry.Rain.amount() + entry.Snow.amount(),
			WindSpeed:     entry.Wind.Speed,
			Humidity:      entry.Main.Humidity,
			Icon:          firstCondition(entry.Weather).Icon,
		})
	}

	return weather.Record{
		ID:      id,
		Name:    name,
		Country: country,
		Current: weather.Conditions{
			Temperature: cur.Main.Temp,
			FeelsLike:   cur.Main.FeelsLike,
			Humidity:    cur.Main.Humidity,
			Pressure:    cur.Main.Pressure,
			WindSpeed:   cur.Wind.Speed,
			Visibility:  cur.Visibility,
			Description: cond.Description,
			Icon:        cond.Icon,
		},
		Forecast:  points,
		Unit:      unit,
		FetchedAt: fetchedAt,
	}
}
