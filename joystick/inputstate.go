// Package joystick models the emulated joystick the feed server
// presents downstream: eight axes and thirty-two buttons, encoded into
// a fixed 20-byte input report.
package joystick

import (
	"encoding/binary"
	"fmt"
	"io"
)

// InputState is the current state of the virtual joystick.
// Axes hold normalized values in [-1, 1]; Buttons is a bitfield with
// bit N-1 representing button N.
type InputState struct {
	Axes    [NumAxes]float64
	Buttons uint32
}

// SetAxis sets axis idx (1-based, 1..8) to v, clamped to [-1, 1].
func (s *InputState) SetAxis(idx int, v float64) error {
	if idx < 1 || idx > NumAxes {
		return fmt.Errorf("axis index %d out of range [1,%d]", idx, NumAxes)
	}
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	s.Axes[idx-1] = v
	return nil
}

// SetButton sets button idx (1-based, 1..32) to pressed.
func (s *InputState) SetButton(idx int, pressed bool) error {
	if idx < 1 || idx > NumButtons {
		return fmt.Errorf("button index %d out of range [1,%d]", idx, NumButtons)
	}
	mask := uint32(1) << (idx - 1)
	if pressed {
		s.Buttons |= mask
	} else {
		s.Buttons &^= mask
	}
	return nil
}

// Pressed reports whether button idx (1-based) is held.
func (s *InputState) Pressed(idx int) bool {
	if idx < 1 || idx > NumButtons {
		return false
	}
	return s.Buttons&(uint32(1)<<(idx-1)) != 0
}

// BuildReport encodes the state into the 20-byte input report.
// Layout (byte indices):
//
//	 0-15: axes 1..8 as little-endian int16, -1..1 scaled to ±32767
//	16-19: buttons, little-endian uint32, bit 0 = button 1
func (s *InputState) BuildReport() []byte {
	b := make([]byte, ReportSize)
	for i, v := range s.Axes {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(int16(v*axisScale)))
	}
	binary.LittleEndian.PutUint32(b[NumAxes*2:], s.Buttons)
	return b
}

// MarshalBinary encodes the state to ReportSize bytes.
func (s *InputState) MarshalBinary() ([]byte, error) {
	return s.BuildReport(), nil
}

// UnmarshalBinary decodes ReportSize bytes into the state.
func (s *InputState) UnmarshalBinary(data []byte) error {
	if len(data) < ReportSize {
		return io.ErrUnexpectedEOF
	}
	for i := range s.Axes {
		s.Axes[i] = float64(int16(binary.LittleEndian.Uint16(data[i*2:]))) / axisScale
	}
	s.Buttons = binary.LittleEndian.Uint32(data[NumAxes*2:])
	return nil
}
