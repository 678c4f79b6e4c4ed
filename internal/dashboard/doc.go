// Package dashboard is the surface between the UI and the state manager:
// a Dispatcher for user intents and pure view functions over snapshots.
package dashboard
