// Package watcher applies tuning changes from the config file to a
// running engine, so settings edited in an external UI take effect
// without restarting.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"rudderwalk/treadmill"

	"github.com/fsnotify/fsnotify"
	toml "github.com/pelletier/go-toml"
	yaml "gopkg.in/yaml.v3"
)

// tuningFile mirrors the optional [tuning] section of the config
// file. Pointer fields distinguish "absent" from zero so a partial
// file only overrides what it names.
type tuningFile struct {
	Tuning tuningKeys `toml:"tuning" yaml:"tuning" json:"tuning"`
}

type tuningKeys struct {
	ForwardAxis   *int     `toml:"forward-axis" yaml:"forward-axis" json:"forward-axis"`
	LateralAxis   *int     `toml:"lateral-axis" yaml:"lateral-axis" json:"lateral-axis"`
	Sensitivity   *float64 `toml:"sensitivity" yaml:"sensitivity" json:"sensitivity"`
	DecayRate     *float64 `toml:"decay-rate" yaml:"decay-rate" json:"decay-rate"`
	SprintEnabled *bool    `toml:"sprint-enabled" yaml:"sprint-enabled" json:"sprint-enabled"`
	RunThreshold  *float64 `toml:"run-threshold" yaml:"run-threshold" json:"run-threshold"`
	RunDuration   *string  `toml:"run-duration" yaml:"run-duration" json:"run-duration"`
	RunButton     *int     `toml:"run-button" yaml:"run-button" json:"run-button"`
	ToeBrakeMode  *int     `toml:"toe-brake-mode" yaml:"toe-brake-mode" json:"toe-brake-mode"`
	CrouchButton  *int     `toml:"crouch-button" yaml:"crouch-button" json:"crouch-button"`
}

// LoadTuning reads the tuning section of path over base and validates
// the result. Format is chosen by file extension; JSON decodes via
// the YAML decoder, which accepts it.
func LoadTuning(path string, base treadmill.Settings) (treadmill.Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, err
	}

	var tf tuningFile
	switch filepath.Ext(path) {
	case ".toml":
		err = toml.Unmarshal(data, &tf)
	default:
		err = yaml.Unmarshal(data, &tf)
	}
	if err != nil {
		return base, fmt.Errorf("parse %s: %w", path, err)
	}

	s := base
	k := tf.Tuning
	if k.ForwardAxis != nil {
		s.ForwardAxis = *k.ForwardAxis
	}
	if k.LateralAxis != nil {
		s.LateralAxis = *k.LateralAxis
	}
	if k.Sensitivity != nil {
		s.Sensitivity = *k.Sensitivity
	}
	if k.DecayRate != nil {
		s.DecayRate = *k.DecayRate
	}
	if k.SprintEnabled != nil {
		s.SprintEnabled = *k.SprintEnabled
	}
	if k.RunThreshold != nil {
		s.RunThreshold = *k.RunThreshold
	}
	if k.RunDuration != nil {
		d, err := time.ParseDuration(*k.RunDuration)
		if err != nil {
			return base, fmt.Errorf("run-duration: %w", err)
		}
		s.RunDuration = d
	}
	if k.RunButton != nil {
		s.RunButton = *k.RunButton
	}
	if k.ToeBrakeMode != nil {
		s.ToeBrakeMode = treadmill.ToeBrakeMode(*k.ToeBrakeMode)
	}
	if k.CrouchButton != nil {
		s.CrouchButton = *k.CrouchButton
	}

	if err := s.Validate(); err != nil {
		return base, err
	}
	return s, nil
}

// Watch re-applies the file's tuning to the engine whenever it
// changes, until ctx is canceled. Invalid edits are logged and
// skipped; the engine keeps its last good settings.
func Watch(ctx context.Context, path string, engine *treadmill.Engine, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// watch the directory: editors and config UIs replace the file
	// instead of writing in place
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(path)
	logger.Info("watching config for tuning changes", "path", target)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			s, err := LoadTuning(target, engine.Settings())
			if err != nil {
				logger.Warn("ignoring tuning reload", "path", target, "error", err)
				continue
			}
			if err := engine.UpdateSettings(s); err != nil {
				logger.Warn("ignoring tuning reload", "path", target, "error", err)
				continue
			}
			logger.Info("tuning reloaded", "path", target)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "error", err)
		}
	}
}
