package weather

import (
	"fmt"
	"strings"
)

// Unit is the measurement system a Record was fetched under.
type Unit string

const (
	Metric   Unit = "metric"
	Imperial Unit = "imperial"
)

// ParseUnit accepts the upstream spelling plus a few common aliases.
func ParseUnit(value string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "metric", "c", "celsius", "si":
		return Metric, nil
	case "imperial", "f", "fahrenheit", "us":
		return Imperial, nil
	default:
		return "", fmt.Errorf("unknown unit system %q", value)
	}
}

// Valid reports whether u is one of the supported systems.
func (u Unit) Valid() bool {
	return u == Metric || u == Imperial
}

// Other returns the opposite unit system.
func (u Unit) Other() Unit {
	if u == Imperial {
		return Metric
	}
	return Imperial
}

// TemperatureLabel is the suffix shown after a temperature value.
func (u Unit) TemperatureLabel() string {
	if u == Imperial {
		return "°F"
	}
	return "°C"
}

// SpeedLabel is the suffix shown after a wind speed value.
func (u Unit) SpeedLabel() string {
	if u == Imperial {
		return "mph"
	}
	return "m/s"
}

// String returns the wire spelling used by the units= parameter.
func (u Unit) String() string {
	if u == "" {
		return string(Metric)
	}
	return string(u)
}
