//go:build !linux

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"

	"rudderwalk/pedals"
)

type unsupportedSource struct{}

func (unsupportedSource) Events(context.Context) (<-chan pedals.Event, error) {
	return nil, fmt.Errorf("pedal input is not supported on %s", runtime.GOOS)
}

func newSource(string, bool, *slog.Logger) pedals.Source {
	return unsupportedSource{}
}
