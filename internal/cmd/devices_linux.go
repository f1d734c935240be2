package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"rudderwalk/pedals"
)

func listDevices(logger *slog.Logger) error {
	devices, err := pedals.ListDevices()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		logger.Warn("no devices with absolute axes found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PATH\tNAME\tUNIQ")
	for _, d := range devices {
		fmt.Fprintf(w, "%s\t%s\t%s\n", d.Path, d.Name, d.Uniq)
	}
	return w.Flush()
}
