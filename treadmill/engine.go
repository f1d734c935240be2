// Package treadmill converts rudder pedal motion into emulated
// walking controls: rudder deflection accumulates a decaying forward
// velocity, toe brakes steer sideways, and two derived button outputs
// implement a sprint hold and a crouch toggle.
package treadmill

import (
	"log/slog"
	"math"
	"sync"
	"time"
)

const (
	// tickInterval is the decay driver period.
	tickInterval = 20 * time.Millisecond
	// velocityEpsilon is the floor below which velocity snaps to zero.
	velocityEpsilon = 0.01
	// rudderDeadzone rejects sensor noise on the rudder axis.
	rudderDeadzone = 0.001
	// brakeThreshold is the minimum normalized toe brake value that
	// counts as pressed.
	brakeThreshold = 0.1
)

// Output is the virtual device the engine writes to. Both methods
// may fail transiently (device gone); the engine logs and carries on.
type Output interface {
	SetAxis(idx int, v float64) error
	SetButton(idx int, pressed bool) error
}

// Normalize maps a raw axis reading in [-1,1] to a magnitude in [0,1].
func Normalize(raw float64) float64 {
	return (raw + 1) / 2
}

// Engine is the treadmill state machine. One instance owns all shared
// state; a single mutex guards every read-modify-write so event
// handlers and the decay driver never interleave mid-transition.
type Engine struct {
	mu       sync.Mutex
	settings Settings
	out      Output
	logger   *slog.Logger
	clock    func() time.Time
	tick     time.Duration

	velocity      float64
	lastRudderPos float64
	leftBrake     float64
	rightBrake    float64

	bothBrakesPressed bool
	crouching         bool

	sprint              sprintState
	aboveThresholdSince time.Time

	decayRunning bool
	decayStop    chan struct{}
	decayDone    sync.WaitGroup
}

// New returns an Engine writing to out. Settings must have been
// validated.
func New(settings Settings, out Output, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		settings: settings,
		out:      out,
		logger:   logger,
		clock:    time.Now,
		tick:     tickInterval,
	}
}

// HandleRudder processes one rudder axis event with a raw value in
// [-1,1]. Deflection deltas above the deadzone add to velocity; the
// decay driver is started lazily once velocity is above zero.
func (e *Engine) HandleRudder(raw float64) {
	e.mu.Lock()
	now := e.clock()

	delta := math.Abs(raw - e.lastRudderPos)
	e.lastRudderPos = raw
	if delta > rudderDeadzone {
		e.velocity = math.Min(1.0, e.velocity+delta*e.settings.Sensitivity)
	}

	e.applyForward()
	e.updateSprint(now)

	var stop chan struct{}
	if e.velocity > 0 && !e.decayRunning {
		e.decayRunning = true
		e.decayStop = make(chan struct{})
		stop = e.decayStop
		e.decayDone.Add(1)
	}
	e.mu.Unlock()

	if stop != nil {
		go e.decayLoop(stop)
	}
}

// HandleLeftBrake processes one left toe brake event (raw in [-1,1]).
func (e *Engine) HandleLeftBrake(raw float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.leftBrake = Normalize(raw)
	e.resolveBrakes(e.clock())
}

// HandleRightBrake processes one right toe brake event (raw in [-1,1]).
func (e *Engine) HandleRightBrake(raw float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rightBrake = Normalize(raw)
	e.resolveBrakes(e.clock())
}

// UpdateSettings swaps the engine's tuning at runtime.
func (e *Engine) UpdateSettings(s Settings) error {
	if err := s.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings = s
	return nil
}

// Settings returns a copy of the current tuning.
func (e *Engine) Settings() Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// Snapshot describes the externally observable engine state.
type Snapshot struct {
	Velocity  float64
	Sprinting bool
	Crouching bool
}

// State returns a consistent snapshot of the engine state.
func (e *Engine) State() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Velocity:  e.velocity,
		Sprinting: e.sprint == sprintHolding,
		Crouching: e.crouching,
	}
}

// Stop signals the decay driver to exit and waits for it. Safe to
// call with no driver running, and safe to call more than once.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.decayStop != nil {
		close(e.decayStop)
		e.decayStop = nil
	}
	e.mu.Unlock()
	e.decayDone.Wait()
}

// decayTick ages velocity one step and re-evaluates the outputs.
// Returns true when velocity has reached zero and the driver is done.
func (e *Engine) decayTick() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.velocity *= e.settings.DecayRate
	if e.velocity < velocityEpsilon {
		e.velocity = 0
	}
	e.applyForward()
	e.updateSprint(e.clock())
	return e.velocity == 0
}

// decayLoop runs until velocity hits zero or stop is closed. The
// lateral axis is never touched here: the brake handlers own it.
func (e *Engine) decayLoop(stop <-chan struct{}) {
	defer e.decayDone.Done()
	e.logger.Debug("decay driver started")

	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	running := true
	for running {
		select {
		case <-stop:
			running = false
		case <-ticker.C:
			if e.decayTick() {
				running = false
			}
		}
	}

	e.decayFinish()
	e.logger.Debug("decay driver stopped")
}

// decayFinish resets the forward axis, conditionally releases the
// sprint hold, and clears the driver lifecycle flags.
func (e *Engine) decayFinish() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.writeAxis(e.settings.ForwardAxis, 0)
	if e.sprint == sprintHolding &&
		e.leftBrake <= brakeThreshold && e.rightBrake <= brakeThreshold &&
		!e.crouching {
		e.sprint = sprintIdle
		e.aboveThresholdSince = time.Time{}
		e.writeButton(e.settings.RunButton, false)
		e.logger.Info("sprint hold off", "reason", "velocity zero")
	}
	e.decayRunning = false
	e.decayStop = nil
}

// applyForward recomputes and writes the forward axis value.
// Caller holds the mutex.
func (e *Engine) applyForward() {
	v := e.velocity
	if v <= velocityEpsilon {
		e.writeAxis(e.settings.ForwardAxis, 0)
		return
	}
	if e.bothBrakesPressed && e.settings.ToeBrakeMode == ModeBackward {
		v = -v
	}
	e.writeAxis(e.settings.ForwardAxis, v)
}

// writeAxis pushes one axis value, logging and swallowing failures.
// The next event or tick re-issues the write, which is retry enough.
func (e *Engine) writeAxis(idx int, v float64) {
	if err := e.out.SetAxis(idx, v); err != nil {
		e.logger.Error("virtual axis write failed", "axis", idx, "value", v, "error", err)
	}
}

// writeButton pushes one button state, logging and swallowing failures.
func (e *Engine) writeButton(idx int, pressed bool) {
	if err := e.out.SetButton(idx, pressed); err != nil {
		e.logger.Error("virtual button write failed", "button", idx, "pressed", pressed, "error", err)
	}
}
