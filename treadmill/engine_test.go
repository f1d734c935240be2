package treadmill

import (
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOutput records every write. Safe for concurrent use so the
// decay goroutine can race event handlers in tests.
type fakeOutput struct {
	mu      sync.Mutex
	axes    map[int]float64
	buttons map[int]bool

	axisWrites []int
}

func newFakeOutput() *fakeOutput {
	return &fakeOutput{axes: map[int]float64{}, buttons: map[int]bool{}}
}

func (f *fakeOutput) SetAxis(idx int, v float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.axes[idx] = v
	f.axisWrites = append(f.axisWrites, idx)
	return nil
}

func (f *fakeOutput) SetButton(idx int, pressed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.buttons[idx] = pressed
	return nil
}

func (f *fakeOutput) axis(idx int) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.axes[idx]
}

func (f *fakeOutput) axisWritten(idx int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, w := range f.axisWrites {
		if w == idx {
			return true
		}
	}
	return false
}

func (f *fakeOutput) button(idx int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.buttons[idx]
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// newTestEngine builds an engine with a fake clock and a tick period
// long enough that the decay driver never fires on its own.
func newTestEngine(t *testing.T, s Settings) (*Engine, *fakeOutput, *fakeClock) {
	t.Helper()
	require.NoError(t, s.Validate())
	out := newFakeOutput()
	clk := &fakeClock{t: time.Unix(1000, 0)}
	e := New(s, out, slog.Default())
	e.clock = clk.now
	e.tick = time.Hour
	t.Cleanup(e.Stop)
	return e, out, clk
}

// pushVelocity feeds alternating rudder swings until velocity reaches
// at least target.
func pushVelocity(e *Engine, target float64) {
	pos := 0.0
	for e.State().Velocity < target {
		if pos == 0 {
			pos = 0.5
		} else {
			pos = 0
		}
		e.HandleRudder(pos)
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, 0.0, Normalize(-1))
	assert.Equal(t, 0.5, Normalize(0))
	assert.Equal(t, 1.0, Normalize(1))
	assert.InDelta(t, 0.9, Normalize(0.8), 1e-9)
}

func TestVelocityStaysBounded(t *testing.T) {
	e, _, _ := newTestEngine(t, DefaultSettings())

	positions := []float64{-1, 1, -1, 1, 0.25, -0.8, 0.9, -1, 1, -1}
	for _, p := range positions {
		e.HandleRudder(p)
		v := e.State().Velocity
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
	assert.Equal(t, 1.0, e.State().Velocity, "large swings must saturate at 1")
}

func TestRudderDeadzoneRejectsNoise(t *testing.T) {
	e, _, _ := newTestEngine(t, DefaultSettings())

	e.HandleRudder(0.0005)
	assert.Zero(t, e.State().Velocity)

	// lastRudderPos still updated: repeated noise never accumulates
	e.HandleRudder(0.0009)
	assert.Zero(t, e.State().Velocity)
}

func TestDecayStep(t *testing.T) {
	e, out, _ := newTestEngine(t, DefaultSettings())

	e.HandleRudder(0.625) // delta 0.625 * 0.8 = 0.5
	require.InDelta(t, 0.5, e.State().Velocity, 1e-9)

	done := e.decayTick()
	assert.False(t, done)
	assert.InDelta(t, 0.475, e.State().Velocity, 1e-9)
	assert.InDelta(t, 0.475, out.axis(2), 1e-9)

	// two consecutive ticks strictly decrease velocity
	e.decayTick()
	assert.InDelta(t, 0.475*0.95, e.State().Velocity, 1e-9)
}

func TestDecaySnapsToZeroBelowEpsilon(t *testing.T) {
	e, out, _ := newTestEngine(t, DefaultSettings())

	e.HandleRudder(0.0125) // velocity 0.01
	require.InDelta(t, 0.01, e.State().Velocity, 1e-9)

	done := e.decayTick()
	assert.True(t, done)
	assert.Equal(t, 0.0, e.State().Velocity)
	assert.Equal(t, 0.0, out.axis(2))
}

func TestSingleDecayDriver(t *testing.T) {
	e, _, _ := newTestEngine(t, DefaultSettings())

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e.HandleRudder(float64(i%10) / 10)
		}(i)
	}
	wg.Wait()

	e.mu.Lock()
	running := e.decayRunning
	stop := e.decayStop
	e.mu.Unlock()
	assert.True(t, running)
	require.NotNil(t, stop)

	// Stop must tear the single driver down exactly once; a second
	// driver would make the wait hang or the close panic.
	e.Stop()
	e.mu.Lock()
	assert.False(t, e.decayRunning)
	assert.Nil(t, e.decayStop)
	e.mu.Unlock()
}

func TestDecayLoopRunsToZero(t *testing.T) {
	s := DefaultSettings()
	s.DecayRate = 0.5
	e, out, _ := newTestEngine(t, s)
	e.tick = time.Millisecond

	e.HandleRudder(1.0)
	require.Greater(t, e.State().Velocity, 0.7)

	deadline := time.After(2 * time.Second)
	for e.State().Velocity > 0 {
		select {
		case <-deadline:
			t.Fatal("velocity did not decay to zero")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// allow the driver to run its exit path
	assert.Eventually(t, func() bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		return !e.decayRunning
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0.0, out.axis(2))
}

func TestScenarioASprintHold(t *testing.T) {
	e, out, clk := newTestEngine(t, DefaultSettings())

	e.HandleRudder(0.5) // velocity 0.4
	assert.False(t, out.button(1))
	e.HandleRudder(-0.5) // velocity 0.4 + 0.8 -> 1.0 clamp; stays above 0.7
	assert.False(t, out.button(1), "dwell not elapsed yet")

	clk.advance(250 * time.Millisecond)
	e.HandleRudder(-0.48) // keeps velocity high, re-evaluates sprint
	assert.True(t, out.button(1), "sprint button held after dwell above threshold")
	assert.True(t, e.State().Sprinting)
}

func TestSprintNeverHoldsWithoutDwell(t *testing.T) {
	e, out, clk := newTestEngine(t, DefaultSettings())

	pushVelocity(e, 0.7)
	clk.advance(100 * time.Millisecond) // less than RunDuration
	e.HandleRudder(0.9)
	assert.False(t, out.button(1))
	assert.Equal(t, sprintPending, e.sprint)
}

func TestSprintPendingResetsBelowThreshold(t *testing.T) {
	e, out, clk := newTestEngine(t, DefaultSettings())

	pushVelocity(e, 0.7)
	require.Equal(t, sprintPending, e.sprint)

	// decay below threshold while pending
	for e.State().Velocity >= 0.7 {
		e.decayTick()
	}
	assert.Equal(t, sprintIdle, e.sprint)
	assert.False(t, out.button(1))

	// a fresh climb must dwell again from scratch
	pushVelocity(e, 0.7)
	clk.advance(150 * time.Millisecond)
	e.HandleRudder(0.9)
	assert.False(t, out.button(1))
}

func TestSprintDisabledShortCircuit(t *testing.T) {
	s := DefaultSettings()
	s.SprintEnabled = false
	e, out, clk := newTestEngine(t, s)

	pushVelocity(e, 0.9)
	clk.advance(time.Second)
	e.HandleRudder(0.9)
	assert.False(t, out.button(1))
	assert.Equal(t, sprintIdle, e.sprint)
}

func TestScenarioBCrouchToggle(t *testing.T) {
	e, out, _ := newTestEngine(t, DefaultSettings()) // ToeBrakeMode crouch

	// both brakes to 0.9 normalized (raw 0.8), observed in sequence
	e.HandleLeftBrake(0.8)
	e.HandleRightBrake(0.8)
	assert.False(t, out.button(2), "rising edge has no output effect")
	assert.True(t, e.bothBrakesPressed)

	// both released (normalized 0.05 each)
	e.HandleLeftBrake(-0.9)
	e.HandleRightBrake(-0.9)
	assert.True(t, out.button(2), "crouch toggles on at the release edge")
	assert.True(t, e.State().Crouching)

	// press and release again toggles back off
	e.HandleLeftBrake(0.8)
	e.HandleRightBrake(0.8)
	e.HandleLeftBrake(-0.9)
	assert.False(t, out.button(2))
	assert.False(t, e.State().Crouching)
}

func TestScenarioCBackwardWalk(t *testing.T) {
	s := DefaultSettings()
	s.ToeBrakeMode = ModeBackward
	e, out, _ := newTestEngine(t, s)

	e.HandleRudder(0.625) // velocity 0.5
	require.InDelta(t, 0.5, e.State().Velocity, 1e-9)

	e.HandleLeftBrake(0.8)
	e.HandleRightBrake(0.8)
	assert.InDelta(t, -0.5, out.axis(2), 1e-9, "forward output reversed while both brakes held")

	// releasing both brakes walks forward again, and must not toggle
	// crouch in backward mode
	e.HandleLeftBrake(-1)
	e.HandleRightBrake(-1)
	assert.InDelta(t, 0.5, out.axis(2), 1e-9)
	assert.False(t, out.button(2))
	assert.False(t, e.State().Crouching)
}

func TestScenarioDSprintReleaseOnDecayExit(t *testing.T) {
	e, out, clk := newTestEngine(t, DefaultSettings())

	pushVelocity(e, 0.8)
	clk.advance(250 * time.Millisecond)
	e.HandleRudder(0.9)
	require.True(t, out.button(1))

	for !e.decayTick() {
	}
	e.decayFinish()

	assert.Equal(t, 0.0, out.axis(2), "forward axis reset on driver exit")
	assert.False(t, out.button(1), "sprint released on driver exit")
	assert.Equal(t, sprintIdle, e.sprint)
}

func TestScenarioELateralLeftOnly(t *testing.T) {
	e, out, _ := newTestEngine(t, DefaultSettings())

	e.HandleLeftBrake(0.8) // normalized 0.9
	assert.InDelta(t, -0.9, out.axis(1), 1e-9)
	assert.False(t, e.bothBrakesPressed)

	// release: lateral returns to 0
	e.HandleLeftBrake(-1)
	assert.Equal(t, 0.0, out.axis(1))
}

func TestLateralRightOnly(t *testing.T) {
	e, out, _ := newTestEngine(t, DefaultSettings())

	e.HandleRightBrake(0.5) // normalized 0.75
	assert.InDelta(t, 0.75, out.axis(1), 1e-9)
}

func TestLateralSuppressedWhileBothPressed(t *testing.T) {
	e, out, _ := newTestEngine(t, DefaultSettings())

	e.HandleLeftBrake(0.8)
	require.InDelta(t, -0.9, out.axis(1), 1e-9)

	e.HandleRightBrake(0.8)
	assert.InDelta(t, -0.9, out.axis(1), 1e-9, "lateral untouched while both brakes held")

	// a harder left press while both are held still writes nothing
	e.HandleLeftBrake(0.95)
	assert.InDelta(t, -0.9, out.axis(1), 1e-9)
}

func TestSprintHeldByLateralInput(t *testing.T) {
	e, out, clk := newTestEngine(t, DefaultSettings())

	pushVelocity(e, 0.8)
	clk.advance(250 * time.Millisecond)
	e.HandleRudder(0.9)
	require.True(t, out.button(1))

	// strafe left, then decay velocity below the threshold
	e.HandleLeftBrake(0.8)
	for e.State().Velocity >= 0.7 {
		e.decayTick()
	}
	assert.True(t, out.button(1), "lateral input keeps the sprint hold")

	// releasing the brake lets the next evaluation drop the hold
	e.HandleLeftBrake(-1)
	assert.False(t, out.button(1))
	assert.Equal(t, sprintIdle, e.sprint)
}

func TestCrouchForcesSprintOff(t *testing.T) {
	e, out, clk := newTestEngine(t, DefaultSettings())

	pushVelocity(e, 0.8)
	clk.advance(250 * time.Millisecond)
	e.HandleRudder(0.9)
	require.True(t, out.button(1))

	// both-brake press and release while holding: crouch on, sprint off
	e.HandleLeftBrake(0.8)
	e.HandleRightBrake(0.8)
	e.HandleLeftBrake(-1)
	e.HandleRightBrake(-1)

	assert.True(t, out.button(2))
	assert.False(t, out.button(1))
	assert.Equal(t, sprintIdle, e.sprint)
	assert.True(t, e.State().Crouching)

	// while crouching, the sprint machine stays frozen
	clk.advance(time.Second)
	e.HandleRudder(-0.9)
	assert.False(t, out.button(1))
}

func TestDecayDriverNeverWritesLateral(t *testing.T) {
	e, out, _ := newTestEngine(t, DefaultSettings())

	e.HandleRudder(0.625)
	for !e.decayTick() {
	}
	e.decayFinish()
	assert.False(t, out.axisWritten(1), "lateral axis is owned by the brake handlers")
}

func TestUpdateSettingsValidates(t *testing.T) {
	e, _, _ := newTestEngine(t, DefaultSettings())

	bad := DefaultSettings()
	bad.DecayRate = 1.5
	assert.Error(t, e.UpdateSettings(bad))

	good := DefaultSettings()
	good.Sensitivity = 2.0
	require.NoError(t, e.UpdateSettings(good))
	assert.Equal(t, 2.0, e.Settings().Sensitivity)
}

func TestOutputFailuresAreSwallowed(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())
	e := New(s, failingOutput{}, slog.Default())
	clk := &fakeClock{t: time.Unix(1000, 0)}
	e.clock = clk.now
	e.tick = time.Hour
	t.Cleanup(e.Stop)

	// none of these may panic or abort despite every write failing
	e.HandleRudder(0.8)
	e.HandleLeftBrake(0.8)
	e.HandleRightBrake(0.8)
	e.HandleLeftBrake(-1)
	e.decayTick()
	assert.Greater(t, e.State().Velocity, 0.0)
}

type failingOutput struct{}

func (failingOutput) SetAxis(int, float64) error { return assert.AnError }
func (failingOutput) SetButton(int, bool) error  { return assert.AnError }
