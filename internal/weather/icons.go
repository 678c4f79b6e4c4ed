package weather

import "strings"

// IconCode is the two-digit OpenWeatherMap condition group without the day/night suffix.
type IconCode string

const (
	IconClearSky     IconCode = "01"
	IconFewClouds    IconCode = "02"
	IconScattered    IconCode = "03"
	IconBroken       IconCode = "04"
	IconShowers      IconCode = "09"
	IconRain         IconCode = "10"
	IconThunderstorm IconCode = "11"
	IconSnow         IconCode = "13"
	IconMist         IconCode = "50"
	IconUnknown      IconCode = "unknown"
)

var iconGlyphs = map[IconCode]string{
	IconClearSky:     "☀",
	IconFewClouds:    "🌤",
	IconScattered:    "⛅",
	IconBroken:       "☁",
	IconShowers:      "🌧",
	IconRain:         "🌦",
	IconThunderstorm: "⛈",
	IconSnow:         "❄",
	IconMist:         "🌫",
}

// NormalizeIcon strips the d/n suffix from an upstream icon token ("10n" -> "10").
func NormalizeIcon(token string) IconCode {
	token = strings.TrimSpace(token)
	if len(token) < 2 {
		return IconUnknown
	}
	code := IconCode(token[:2])
	if _, ok := iconGlyphs[code]; !ok {
		return IconUnknown
	}
	return code
}

// IconGlyph returns a single-cell-ish symbol for the icon token.
func IconGlyph(token string) string {
	if glyph, ok := iconGlyphs[NormalizeIcon(token)]; ok {
		return glyph
	}
	return "?"
}

// IsNight reports whether the token carries the night suffix.
func IsNight(token string) bool {
	return strings.HasSuffix(strings.TrimSpace(token), "n")
}
