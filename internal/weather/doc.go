// Package weather holds the domain vocabulary shared by the gateway, the state
// manager and the UI: city records, forecast points, unit systems, icon codes and
// the fetch error taxonomy.
//
// Nothing in here performs I/O. The OpenWeatherMap client lives in package owm
// and the cache lives in package state.
//
// # Errors
//
// Every failed lookup is reported as a *FetchError whose Kind is one of
// KindNotFound, KindNetwork or KindUpstream. The sentinels ErrNotFound,
// ErrNetwork and ErrUpstream match through errors.Is:
//
//	if errors.Is(err, weather.ErrNotFound) {
//		// tell the user the city does not exist
//	}
//
// ErrPersistenceCorrupt is only ever logged; a corrupt favorites file degrades to
// an empty set.
package weather
