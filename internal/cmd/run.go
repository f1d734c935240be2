// Package cmd holds the kong command implementations.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"rudderwalk/feeder"
	"rudderwalk/joystick"
	"rudderwalk/pedals"
	"rudderwalk/treadmill"
	"rudderwalk/watcher"

	"golang.org/x/sync/errgroup"
	"golang.org/x/term"
)

// ConfigFilePath carries the user-specified config file into commands
// that need it (the tuning watcher). Empty when no file was given.
type ConfigFilePath string

// FeedConfig is the connection to the virtual gamepad feed server.
type FeedConfig struct {
	Addr           string        `help:"Feed server address" default:"127.0.0.1:3242" env:"RUDDERWALK_FEED_ADDR"`
	Device         int           `help:"Virtual device slot to claim" default:"1" env:"RUDDERWALK_FEED_DEVICE"`
	Password       string        `help:"Feed server password" env:"RUDDERWALK_FEED_PASSWORD"`
	AskPassword    bool          `help:"Prompt for the feed server password instead of passing it as a flag"`
	ConnectTimeout time.Duration `help:"Feed server dial timeout" default:"3s" env:"RUDDERWALK_FEED_TIMEOUT"`
}

// Run is the main command: pedal events in, joystick reports out.
type Run struct {
	Input  pedals.Bindings    `embed:"" prefix:"input."`
	Tuning treadmill.Settings `embed:"" prefix:"tuning."`
	Feed   FeedConfig         `embed:"" prefix:"feed."`

	Grab        bool `help:"Grab the pedal device for exclusive use" env:"RUDDERWALK_GRAB"`
	WatchConfig bool `help:"Re-apply tuning when the config file changes" default:"true" negatable:"" env:"RUDDERWALK_WATCH_CONFIG"`
}

// Run is called by kong when the run command is executed.
func (r *Run) Run(logger *slog.Logger, cfgPath ConfigFilePath) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return r.start(ctx, logger, string(cfgPath))
}

func (r *Run) start(ctx context.Context, logger *slog.Logger, cfgPath string) error {
	if r.Input.Device == "" {
		return errors.New("no pedal device configured; run 'rudderwalk devices' and set --input.device")
	}
	if err := r.Input.Validate(); err != nil {
		return fmt.Errorf("input bindings: %w", err)
	}
	if err := r.Tuning.Validate(); err != nil {
		return fmt.Errorf("tuning: %w", err)
	}

	password := r.Feed.Password
	if r.Feed.AskPassword {
		p, err := promptPassword()
		if err != nil {
			return err
		}
		password = p
	}

	client := feeder.NewWithConfig(r.Feed.Addr, &feeder.Config{
		DialTimeout:  r.Feed.ConnectTimeout,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		Password:     password,
	})

	pong, err := client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("feed server unreachable at %s: %w", r.Feed.Addr, err)
	}
	logger.Info("connected to feed server", "addr", r.Feed.Addr, "server", pong.Server, "version", pong.Version)

	dev, err := client.DeviceAdd(ctx, r.Feed.Device, joystick.DeviceType)
	if err != nil {
		return fmt.Errorf("claiming device slot %d: %w", r.Feed.Device, err)
	}
	defer func() {
		if _, err := client.DeviceRemove(context.Background(), dev.Id); err != nil {
			logger.Warn("releasing device slot failed", "slot", dev.Id, "error", err)
		}
	}()

	stream, err := client.OpenFeed(ctx, dev.Id)
	if err != nil {
		return fmt.Errorf("opening feed stream: %w", err)
	}
	defer stream.Close()
	logger.Info("virtual joystick ready", "slot", dev.Id)

	engine := treadmill.New(r.Tuning, joystick.NewFeed(stream), logger)
	defer engine.Stop()

	dispatcher := pedals.NewDispatcher(logger)
	for _, b := range []struct {
		axis    int
		handler pedals.Handler
	}{
		{r.Input.RudderAxis, engine.HandleRudder},
		{r.Input.LeftBrakeAxis, engine.HandleLeftBrake},
		{r.Input.RightBrakeAxis, engine.HandleRightBrake},
	} {
		if err := dispatcher.Register(r.Input.Device, b.axis, b.handler); err != nil {
			return err
		}
	}

	source := newSource(r.Input.Device, r.Grab, logger)
	events, err := source.Events(ctx)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := dispatcher.Run(gctx, events)
		if errors.Is(err, context.Canceled) || gctx.Err() != nil {
			return nil
		}
		if err == nil {
			// event channel closed with the context still live: device unplugged
			return errors.New("pedal device disconnected")
		}
		return err
	})
	if r.WatchConfig && cfgPath != "" {
		g.Go(func() error {
			err := watcher.Watch(gctx, cfgPath, engine, logger)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Debug("tuning watcher disabled", "watch", r.WatchConfig, "config", cfgPath)
	}

	logger.Info("rudderwalk running",
		"device", r.Input.Device,
		"profile", r.Input.Profile,
		"toe_brake_mode", r.Tuning.ToeBrakeMode.String(),
	)
	return g.Wait()
}

func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("cannot prompt for password: stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, "feed server password: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}
