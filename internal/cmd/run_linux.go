package cmd

import (
	"log/slog"

	"rudderwalk/pedals"
)

func newSource(match string, grab bool, logger *slog.Logger) pedals.Source {
	return pedals.NewEvdevSource(match, grab, logger)
}
