// Package config defines the top-level CLI grammar.
package config

import "rudderwalk/internal/cmd"

// LogConfig controls log output for all commands.
type LogConfig struct {
	Level string `help:"Log level (trace, debug, info, warn, error)" default:"info" env:"RUDDERWALK_LOG_LEVEL"`
	File  string `help:"Also write logs to this file" env:"RUDDERWALK_LOG_FILE"`
}

// CLI is the root command line structure parsed by kong.
type CLI struct {
	Log LogConfig `embed:"" prefix:"log."`

	Config string `help:"Path to a configuration file" type:"path" env:"RUDDERWALK_CONFIG"`

	Run       cmd.Run           `cmd:"" default:"withargs" help:"Translate pedal input into virtual joystick motion"`
	Devices   cmd.Devices       `cmd:"" help:"List candidate pedal devices"`
	ConfigCmd cmd.ConfigCommand `cmd:"" name:"config" help:"Configuration utilities"`
}
