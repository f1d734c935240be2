// Package pedals delivers axis-change events from a physical pedal
// device and routes them to handlers through an explicit registration
// table.
package pedals

import (
	"context"
	"fmt"
	"time"
)

// Event is one axis-change observation. Value is the raw reading
// scaled to [-1,1].
type Event struct {
	Device string
	Axis   int
	Value  float64
	Time   time.Time
}

// Source produces axis-change events for one physical device.
type Source interface {
	// Events starts delivery and returns the event channel. The
	// channel is closed when ctx is canceled or the device goes away.
	Events(ctx context.Context) (<-chan Event, error)
}

// Bindings names the physical device and maps its axes to the three
// logical pedal inputs.
type Bindings struct {
	Device         string `help:"Pedal device identifier: GUID, uniq id, or name substring" env:"RUDDERWALK_DEVICE"`
	Profile        string `help:"Input profile name" default:"Default" env:"RUDDERWALK_PROFILE"`
	RudderAxis     int    `help:"Physical axis carrying rudder deflection (1-8)" default:"6" env:"RUDDERWALK_RUDDER_AXIS"`
	LeftBrakeAxis  int    `help:"Physical axis carrying the left toe brake (1-8)" default:"2" env:"RUDDERWALK_LEFT_BRAKE_AXIS"`
	RightBrakeAxis int    `help:"Physical axis carrying the right toe brake (1-8)" default:"1" env:"RUDDERWALK_RIGHT_BRAKE_AXIS"`
}

// Validate checks axis ranges and that no two pedals share an axis.
func (b *Bindings) Validate() error {
	axes := map[string]int{
		"rudder":      b.RudderAxis,
		"left brake":  b.LeftBrakeAxis,
		"right brake": b.RightBrakeAxis,
	}
	seen := map[int]string{}
	for name, a := range axes {
		if a < 1 || a > 8 {
			return fmt.Errorf("%s axis %d out of range [1,8]", name, a)
		}
		if other, dup := seen[a]; dup {
			return fmt.Errorf("%s and %s are bound to the same axis %d", name, other, a)
		}
		seen[a] = name
	}
	return nil
}
