package weather

import (
	"strconv"
	"strings"
	"time"
)

// CityID is the stable identifier OpenWeatherMap assigns to a resolved city.
type CityID int64

// String renders the id the way the upstream API expects it in the id= parameter.
func (id CityID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Query addresses a city either by free-text name or by a known CityID.
// Exactly one of Name and ID is meaningful; ID wins when set.
type Query struct {
	Name string
	ID   CityID
}

// ByName returns a name query with surrounding whitespace removed.
func ByName(name string) Query {
	return Query{Name: strings.TrimSpace(name)}
}

// ByID returns a query for an already resolved city.
func ByID(id CityID) Query {
	return Query{ID: id}
}

// IsZero reports whether the query addresses nothing.
func (q Query) IsZero() bool {
	return q.ID == 0 && strings.TrimSpace(q.Name) == ""
}

// String is used in logs.
func (q Query) String() string {
	if q.ID != 0 {
		return "id:" + q.ID.String()
	}
	return q.Name
}

// Conditions describes the weather right now.
type Conditions struct {
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feelsLike"`
	Humidity    int     `json:"humidity"`    // percent
	Pressure    int     `json:"pressure"`    // hPa
	WindSpeed   float64 `json:"windSpeed"`   // m/s or mph depending on Unit
	Visibility  int     `json:"visibility"`  // metres, independent of Unit
	Description string  `json:"description"`
	Icon        string  `json:"icon"`
}

// ForecastPoint is one entry of the 3-hourly forecast.
type ForecastPoint struct {
	Time          time.Time `json:"time"`
	Temperature   float64   `json:"temperature"`
	FeelsLike     float64   `json:"feelsLike"`
	Precipitation float64   `json:"precipitation"` // mm of rain or snow over the interval
	WindSpeed     float64   `json:"windSpeed"`
	Humidity      int       `json:"humidity"`
	Icon          string    `json:"icon"`
}

// Record is everything the dashboard knows about one city.
type Record struct {
	ID        CityID          `json:"id"`
	Name      string          `json:"name"`
	Country   string          `json:"country"`
	Current   Conditions      `json:"current"`
	Forecast  []ForecastPoint `json:"forecast"`
	Unit      Unit            `json:"unit"`
	FetchedAt time.Time       `json:"fetchedAt"`
	Favorite  bool            `json:"favorite"`
}

// Clone returns a copy that shares no slices with r.
func (r Record) Clone() Record {
	dup := r
	if r.Forecast != nil {
		dup.Forecast = make([]ForecastPoint, len(r.Forecast))
		copy(dup.Forecast, r.Forecast)
	}
	return dup
}

// DisplayName joins the city name and country code when both are known.
func (r Record) DisplayName() string {
	if r.Country == "" {
		return r.Name
	}
	return r.Name + ", " + r.Country
}

// Suggestion is a geocoding candidate offered while the user types.
type Suggestion struct {
	Name    string  `json:"name"`
	State   string  `json:"state,omitempty"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Label formats the suggestion as a search query: "City, State, Country".
func (s Suggestion) Label() string {
	parts := []string{s.Name}
	if strings.TrimSpace(s.State) != "" {
		parts = append(parts, s.State)
	}
	if strings.TrimSpace(s.Country) != "" {
		parts = append(parts, s.Country)
	}
	return strings.Join(parts, ", ")
}
