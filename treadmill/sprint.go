package treadmill

import "time"

// sprintState is the sprint-hold machine state.
type sprintState int

const (
	// sprintIdle: velocity below the run threshold, button released.
	sprintIdle sprintState = iota
	// sprintPending: above the threshold, dwell timer running.
	sprintPending
	// sprintHolding: run button held.
	sprintHolding
)

func (s sprintState) String() string {
	switch s {
	case sprintIdle:
		return "idle"
	case sprintPending:
		return "pending"
	case sprintHolding:
		return "holding"
	default:
		return "unknown"
	}
}

// updateSprint advances the sprint-hold machine. Runs on every
// velocity- or brake-affecting event and on every decay tick.
// Caller holds the mutex.
//
// While the feature is disabled or crouch is active no transition
// happens and the button is left untouched; crouch entry releases the
// button itself (see toggleCrouch).
func (e *Engine) updateSprint(now time.Time) {
	if !e.settings.SprintEnabled || e.crouching {
		return
	}

	switch e.sprint {
	case sprintIdle:
		if e.velocity >= e.settings.RunThreshold {
			e.sprint = sprintPending
			e.aboveThresholdSince = now
		}

	case sprintPending:
		if e.velocity < e.settings.RunThreshold {
			e.sprint = sprintIdle
			e.aboveThresholdSince = time.Time{}
		} else if now.Sub(e.aboveThresholdSince) >= e.settings.RunDuration {
			e.sprint = sprintHolding
			e.writeButton(e.settings.RunButton, true)
			e.logger.Info("sprint hold on", "velocity", e.velocity)
		}

	case sprintHolding:
		// Lateral brake input while velocity has decayed counts as
		// active strafing and keeps the hold.
		if e.velocity < e.settings.RunThreshold &&
			e.leftBrake <= brakeThreshold && e.rightBrake <= brakeThreshold {
			e.sprint = sprintIdle
			e.aboveThresholdSince = time.Time{}
			e.writeButton(e.settings.RunButton, false)
			e.logger.Info("sprint hold off", "velocity", e.velocity)
		}
	}
}
