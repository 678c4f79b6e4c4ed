// Package owm provides an HTTP client for the OpenWeatherMap API.
//
// # Overview
//
// The client backs two features of the dashboard:
//
//   - Fetch: the remote weather gateway. It looks up current conditions
//     (/data/2.5/weather) and the 3-hourly forecast (/data/2.5/forecast) for one
//     city under one unit system and normalizes both into a weather.Record.
//   - Suggest: city-name autocomplete through the geocoding endpoint
//     (/geo/1.0/direct), limited to five candidates.
//
// # Request Handling
//
// All requests:
//   - Use context for cancellation and timeout control
//   - Set Accept: application/json and User-Agent: nimbus/0.1
//   - Wait on a token-bucket limiter sized for the free tier (60 per minute)
//   - Pass through a circuit breaker that opens after five consecutive
//     transport or 5xx failures
//
// 4xx responses do not count against the breaker; a mistyped city name should
// never lock the user out.
//
// # Error Handling
//
// Every failure is a *weather.FetchError:
//
//   - 404: KindNotFound with the upstream message ("city not found")
//   - other non-2xx or an undecodable body: KindUpstream
//   - dial errors, timeouts, an open breaker: KindNetwork
//
// When the upstream body carries no message the generic
// weather.GenericFailureMessage is used.
//
// # Caching
//
// The client does not cache weather; package state owns that policy.
// Suggestions are cached per lowercased query for ten minutes because
// autocomplete repeats the same prefixes constantly.
package owm
