// Package config loads the nimbus configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/nimbus/config.toml (default)
//  3. If the config file doesn't exist, fall back to defaults
//  4. Fields missing or empty in the file keep their defaults
//  5. OPENWEATHER_API_KEY, NIMBUS_UNITS and NIMBUS_BASE_URL override the file
//
// LoadDotEnv can be called first to populate the environment from a .env file
// in the working directory.
//
// # TOML Format
//
//	api_key = "..."
//	base_url = "https://api.openweathermap.org"
//	units = "metric"            # or "imperial"
//	request_timeout = "10s"
//	refresh_interval = "5m"
//	staleness_window = "60s"
//	requests_per_minute = 60
//	log_file = "~/.local/state/nimbus/nimbus.log"
//	prefs_path = "~/.config/nimbus/prefs.toml"
//
// Durations use Go duration syntax. Tilde expansion is performed on paths.
//
// # Error Handling
//
// Load returns errors for unreadable files, TOML syntax errors and values that
// do not parse (bad durations, unknown units). A missing api key is not a
// Load error, since commands such as "nimbus favorites" never reach the
// network; Validate reports it.
package config
