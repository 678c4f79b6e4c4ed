// Package app provides the orchestration layer for the nimbus application.
//
// # Overview
//
// This package wires together configuration, logging, the OpenWeatherMap
// client, the state manager and the UI. It is the composition root where all
// dependencies are initialized and connected.
//
// # Architecture
//
//  1. Load .env, then ~/.config/nimbus/config.toml, then apply flags
//  2. Validate the configuration (an api key is required)
//  3. Open the rotating log file
//  4. Load preferences (theme, last unit, favorites)
//  5. Build the owm.Client and the state.Manager on top of it
//  6. Start the periodic refresher and bootstrap favorites in the background
//  7. Start the TUI and block until the user exits or the context cancels
//
// # Components
//
//   - app.go: Setup, Run and unit resolution
//   - logging.go: slog text handler on a lumberjack rotating file
//   - refresher.go: gocron job that refetches stale cities
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       ├─────> Setup()              config, logger, client, manager
//	       ├─────> Refresher.Start()    every refresh_interval: Manager.Refresh
//	       ├─────> Manager.Bootstrap()  goroutine, favorites by id
//	       └─────> ui.Run()             TUI (blocks)
//
// # Unit Selection
//
// The startup unit comes from the --units flag, then NIMBUS_UNITS, then the
// unit last saved in prefs, then the config file.
//
// # Error Handling
//
// Fatal errors (returned from Run): a malformed config file, a missing api
// key, an unwritable log directory. Fetch failures during refresh or
// bootstrap are logged and surface in the UI through the snapshot's last
// error; they never stop the program.
package app
