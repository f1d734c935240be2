//go:build !linux

package cmd

import (
	"fmt"
	"log/slog"
	"runtime"
)

func listDevices(*slog.Logger) error {
	return fmt.Errorf("device discovery is not supported on %s", runtime.GOOS)
}
