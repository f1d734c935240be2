package cmd

import "log/slog"

// Devices lists candidate pedal devices with their identifiers, for
// use with --input.device.
type Devices struct{}

func (d *Devices) Run(logger *slog.Logger) error {
	return listDevices(logger)
}
