//go:build linux

package pedals

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/holoplot/go-evdev"
	"golang.org/x/sys/unix"
)

// axisCodes maps logical axis numbers 1..8 to evdev ABS codes, in the
// conventional joystick order.
var axisCodes = [8]evdev.EvCode{
	evdev.ABS_X,
	evdev.ABS_Y,
	evdev.ABS_Z,
	evdev.ABS_RX,
	evdev.ABS_RY,
	evdev.ABS_RZ,
	evdev.ABS_THROTTLE,
	evdev.ABS_RUDDER,
}

func axisFromCode(code evdev.EvCode) (int, bool) {
	for i, c := range axisCodes {
		if c == code {
			return i + 1, true
		}
	}
	return 0, false
}

// EvdevSource reads axis events from a Linux evdev device matched by
// GUID, uniq id, or name substring.
type EvdevSource struct {
	match  string
	grab   bool
	logger *slog.Logger
}

// NewEvdevSource returns a source for the device matching match.
// With grab set the device is taken for exclusive use so the raw
// pedal axes stay invisible to other consumers.
func NewEvdevSource(match string, grab bool, logger *slog.Logger) *EvdevSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &EvdevSource{match: match, grab: grab, logger: logger}
}

// DeviceInfo describes one available evdev device.
type DeviceInfo struct {
	Path string
	Name string
	Uniq string
}

// ListDevices enumerates evdev devices that expose absolute axes.
func ListDevices() ([]DeviceInfo, error) {
	paths, err := filepath.Glob("/dev/input/event*")
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	var out []DeviceInfo
	for _, p := range paths {
		dev, err := evdev.Open(p)
		if err != nil {
			continue
		}
		name, _ := dev.Name()
		uniq, _ := dev.UniqueID()
		abs, err := dev.AbsInfos()
		_ = dev.Close()
		if err != nil || len(abs) == 0 {
			continue
		}
		out = append(out, DeviceInfo{
			Path: p,
			Name: strings.Trim(name, "\x00"),
			Uniq: strings.Trim(uniq, "\x00"),
		})
	}
	return out, nil
}

func matches(info DeviceInfo, match string) bool {
	m := strings.ToLower(match)
	if m == "" {
		return false
	}
	if strings.EqualFold(info.Uniq, match) {
		return true
	}
	return strings.Contains(strings.ToLower(info.Name), m)
}

// find locates the matching device node, waiting for it to appear.
func (s *EvdevSource) find(ctx context.Context) (DeviceInfo, error) {
	for {
		devices, err := ListDevices()
		if err != nil {
			return DeviceInfo{}, err
		}
		for _, info := range devices {
			if !matches(info, s.match) {
				continue
			}
			// the node can exist before udev grants access
			if err := unix.Access(info.Path, unix.R_OK); err != nil {
				s.logger.Debug("device found but not readable yet", "path", info.Path, "error", err)
				continue
			}
			return info, nil
		}
		select {
		case <-ctx.Done():
			return DeviceInfo{}, ctx.Err()
		case <-time.After(time.Second):
		}
	}
}

// Events opens the device and starts the read loop. A lost device is
// waited for and reopened; the channel closes only when ctx ends.
func (s *EvdevSource) Events(ctx context.Context) (<-chan Event, error) {
	dev, absInfos, err := s.open(ctx)
	if err != nil {
		return nil, err
	}

	events := make(chan Event, 64)
	go func() {
		defer close(events)
		for {
			s.readAll(ctx, dev, absInfos, events)
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("pedal device lost, waiting for it to return", "device", s.match)
			dev, absInfos, err = s.open(ctx)
			if err != nil {
				return
			}
		}
	}()
	return events, nil
}

// open waits for the matching device node and opens it for reading.
func (s *EvdevSource) open(ctx context.Context) (*evdev.InputDevice, map[evdev.EvCode]evdev.AbsInfo, error) {
	info, err := s.find(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("locating pedal device %q: %w", s.match, err)
	}

	dev, err := evdev.Open(info.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening pedal device %s: %w", info.Path, err)
	}

	absInfos, err := dev.AbsInfos()
	if err != nil {
		_ = dev.Close()
		return nil, nil, fmt.Errorf("querying axis ranges of %s: %w", info.Path, err)
	}

	if s.grab {
		if err := dev.Grab(); err != nil {
			s.logger.Warn("grabbing device for exclusive use failed", "path", info.Path, "error", err)
		}
	}
	s.logger.Info("reading pedal events", "path", info.Path, "name", info.Name)
	return dev, absInfos, nil
}

// readAll pumps events from one open device until it fails or ctx
// ends. The device is always closed on return.
func (s *EvdevSource) readAll(ctx context.Context, dev *evdev.InputDevice, absInfos map[evdev.EvCode]evdev.AbsInfo, events chan<- Event) {
	// unblocks ReadOne on cancellation; stopped so a stale fd is
	// never closed after a reopen
	stop := context.AfterFunc(ctx, func() { _ = dev.Close() })
	defer stop()

	for {
		ev, err := dev.ReadOne()
		if err != nil {
			if stop() {
				_ = dev.Close()
				if ctx.Err() == nil {
					s.logger.Warn("pedal device read failed", "device", s.match, "error", err)
				}
			}
			return
		}
		if ev.Type != evdev.EV_ABS {
			continue
		}
		axis, ok := axisFromCode(ev.Code)
		if !ok {
			continue
		}
		abs, ok := absInfos[ev.Code]
		if !ok {
			continue
		}
		select {
		case events <- Event{
			Device: s.match,
			Axis:   axis,
			Value:  scaleAbs(ev.Value, abs),
			Time:   time.Unix(int64(ev.Time.Sec), int64(ev.Time.Usec)*1000),
		}:
		case <-ctx.Done():
			return
		}
	}
}

// scaleAbs maps a raw absolute value into [-1,1] using the device's
// reported range.
func scaleAbs(value int32, abs evdev.AbsInfo) float64 {
	span := abs.Maximum - abs.Minimum
	if span <= 0 {
		return 0
	}
	return 2*float64(value-abs.Minimum)/float64(span) - 1
}
