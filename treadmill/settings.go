package treadmill

import (
	"fmt"
	"time"
)

// ToeBrakeMode selects what pressing both toe brakes at once does.
type ToeBrakeMode int

const (
	// ModeCrouch toggles the crouch button on the both-brakes release edge.
	ModeCrouch ToeBrakeMode = 0
	// ModeBackward reverses the forward axis while both brakes are held.
	ModeBackward ToeBrakeMode = 1
)

func (m ToeBrakeMode) String() string {
	switch m {
	case ModeCrouch:
		return "crouch"
	case ModeBackward:
		return "backward"
	default:
		return fmt.Sprintf("ToeBrakeMode(%d)", int(m))
	}
}

// Settings is the tunable surface of the treadmill engine. Values are
// range-checked by Validate; the kong tags expose them as flags and
// config file keys.
type Settings struct {
	ForwardAxis   int           `help:"Virtual axis for forward/backward movement (1-8)" default:"2" env:"RUDDERWALK_FORWARD_AXIS"`
	LateralAxis   int           `help:"Virtual axis for left/right movement (1-8)" default:"1" env:"RUDDERWALK_LATERAL_AXIS"`
	Sensitivity   float64       `help:"Gain applied to rudder deflection deltas" default:"0.8" env:"RUDDERWALK_SENSITIVITY"`
	DecayRate     float64       `help:"Per-tick velocity decay ratio (friction)" default:"0.95" env:"RUDDERWALK_DECAY_RATE"`
	SprintEnabled bool          `help:"Hold the run button while velocity stays high" default:"true" negatable:"" env:"RUDDERWALK_SPRINT"`
	RunThreshold  float64       `help:"Velocity that arms the sprint hold" default:"0.7" env:"RUDDERWALK_RUN_THRESHOLD"`
	RunDuration   time.Duration `help:"Time velocity must stay above the threshold before sprinting" default:"200ms" env:"RUDDERWALK_RUN_DURATION"`
	RunButton     int           `help:"Virtual button held while sprinting (1-32)" default:"1" env:"RUDDERWALK_RUN_BUTTON"`
	ToeBrakeMode  ToeBrakeMode  `help:"Both-brakes behavior: 0=crouch toggle, 1=backward walk" default:"0" env:"RUDDERWALK_TOE_BRAKE_MODE"`
	CrouchButton  int           `help:"Virtual button toggled by crouch (1-32)" default:"2" env:"RUDDERWALK_CROUCH_BUTTON"`
}

// DefaultSettings returns the settings kong would produce with no
// flags or config present.
func DefaultSettings() Settings {
	return Settings{
		ForwardAxis:   2,
		LateralAxis:   1,
		Sensitivity:   0.8,
		DecayRate:     0.95,
		SprintEnabled: true,
		RunThreshold:  0.7,
		RunDuration:   200 * time.Millisecond,
		RunButton:     1,
		ToeBrakeMode:  ModeCrouch,
		CrouchButton:  2,
	}
}

// Validate checks every setting against its allowed range. Kong calls
// this after parsing; the watcher calls it before applying a reload.
func (s *Settings) Validate() error {
	if s.ForwardAxis < 1 || s.ForwardAxis > 8 {
		return fmt.Errorf("forward axis %d out of range [1,8]", s.ForwardAxis)
	}
	if s.LateralAxis < 1 || s.LateralAxis > 8 {
		return fmt.Errorf("lateral axis %d out of range [1,8]", s.LateralAxis)
	}
	if s.Sensitivity < 0.01 || s.Sensitivity > 5.0 {
		return fmt.Errorf("sensitivity %.3f out of range [0.01,5.0]", s.Sensitivity)
	}
	if s.DecayRate < 0.1 || s.DecayRate > 0.99 {
		return fmt.Errorf("decay rate %.3f out of range [0.1,0.99]", s.DecayRate)
	}
	if s.RunThreshold < 0.1 || s.RunThreshold > 0.95 {
		return fmt.Errorf("run threshold %.3f out of range [0.1,0.95]", s.RunThreshold)
	}
	if s.RunDuration < 100*time.Millisecond || s.RunDuration > time.Second {
		return fmt.Errorf("run duration %s out of range [100ms,1s]", s.RunDuration)
	}
	if s.RunButton < 1 || s.RunButton > 32 {
		return fmt.Errorf("run button %d out of range [1,32]", s.RunButton)
	}
	if s.ToeBrakeMode != ModeCrouch && s.ToeBrakeMode != ModeBackward {
		return fmt.Errorf("toe brake mode %d must be 0 (crouch) or 1 (backward)", int(s.ToeBrakeMode))
	}
	if s.CrouchButton < 1 || s.CrouchButton > 32 {
		return fmt.Errorf("crouch button %d out of range [1,32]", s.CrouchButton)
	}
	return nil
}
