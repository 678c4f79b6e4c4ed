package dashboard

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/five82/nimbus/internal/state"
	"github.com/five82/nimbus/internal/weather"
)

// MaxQueryLength is the longest search input, in runes, that is sent upstream.
const MaxQueryLength = 100

var validate = validator.New()

type searchRequest struct {
	Query string `validate:"required,max=100"`
}

// Core is the part of state.Manager the dispatcher drives.
type Core interface {
	RequestCity(ctx context.Context, q weather.Query) (state.Outcome, error)
	RemoveCity(id weather.CityID)
	ToggleFavorite(id weather.CityID) error
	ToggleUnit(ctx context.Context) error
	ClearError()
	Snapshot() state.Snapshot
}

// Dispatcher turns user intents into Manager calls.
type Dispatcher struct {
	core Core
}

// NewDispatcher wraps core.
func NewDispatcher(core Core) *Dispatcher {
	return &Dispatcher{core: core}
}

// Search looks up a city by name. Blank or over-long input is ignored without
// a call and without an error. A failed lookup is returned and also lands in
// the snapshot's LastError.
func (d *Dispatcher) Search(ctx context.Context, input string) error {
	req := searchRequest{Query: strings.TrimSpace(input)}
	if err := validate.Struct(req); err != nil {
		return nil
	}
	_, err := d.core.RequestCity(ctx, weather.ByName(req.Query))
	return err
}

// Remove drops a city from the dashboard.
func (d *Dispatcher) Remove(id weather.CityID) {
	d.core.RemoveCity(id)
}

// ToggleFavorite flips and persists the favorite flag.
func (d *Dispatcher) ToggleFavorite(id weather.CityID) error {
	return d.core.ToggleFavorite(id)
}

// ToggleUnit switches metric/imperial and waits for the refetch.
func (d *Dispatcher) ToggleUnit(ctx context.Context) error {
	return d.core.ToggleUnit(ctx)
}

// ClearError dismisses the error banner.
func (d *Dispatcher) ClearError() {
	d.core.ClearError()
}

// Snapshot returns the current state for rendering.
func (d *Dispatcher) Snapshot() state.Snapshot {
	return d.core.Snapshot()
}
