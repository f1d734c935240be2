package pedals

import (
	"context"
	"fmt"
	"log/slog"
)

// Handler consumes the raw value of one bound axis.
type Handler func(raw float64)

type binding struct {
	device string
	axis   int
}

// Dispatcher routes events to handlers via a (device, axis) table
// built once at startup. It is not safe to Register after Run.
type Dispatcher struct {
	logger *slog.Logger
	table  map[binding]Handler
}

// NewDispatcher returns an empty Dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{logger: logger, table: map[binding]Handler{}}
}

// Register binds a handler to one axis of one device. Binding the
// same (device, axis) twice is a configuration error.
func (d *Dispatcher) Register(device string, axis int, h Handler) error {
	key := binding{device: device, axis: axis}
	if _, exists := d.table[key]; exists {
		return fmt.Errorf("axis %d of device %q is already bound", axis, device)
	}
	d.table[key] = h
	return nil
}

// Dispatch routes one event. Returns false when no handler is bound.
func (d *Dispatcher) Dispatch(ev Event) bool {
	h, ok := d.table[binding{device: ev.Device, axis: ev.Axis}]
	if !ok {
		d.logger.Debug("unbound axis event dropped", "device", ev.Device, "axis", ev.Axis, "value", ev.Value)
		return false
	}
	h(ev.Value)
	return true
}

// Run dispatches events until ctx is canceled or the channel closes.
func (d *Dispatcher) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			d.Dispatch(ev)
		}
	}
}
