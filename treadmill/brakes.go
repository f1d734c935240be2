package treadmill

import "time"

// resolveBrakes runs after every toe brake event: it re-detects the
// both-brakes edge, rewrites the lateral axis, and re-evaluates the
// forward axis and sprint machine. Caller holds the mutex.
func (e *Engine) resolveBrakes(now time.Time) {
	both := e.leftBrake > brakeThreshold && e.rightBrake > brakeThreshold

	switch {
	case both && !e.bothBrakesPressed:
		e.bothBrakesPressed = true
	case !both && e.bothBrakesPressed:
		e.bothBrakesPressed = false
		if e.settings.ToeBrakeMode == ModeCrouch {
			e.toggleCrouch()
		}
	}

	e.applyLateral()
	e.applyForward()
	e.updateSprint(now)
}

// applyLateral writes the lateral axis from the current brake values.
// Both brakes pressed suppresses lateral output entirely (that input
// means backward walk or crouch, not strafing). Caller holds the mutex.
func (e *Engine) applyLateral() {
	switch {
	case e.bothBrakesPressed:
		// suppressed
	case e.leftBrake > brakeThreshold:
		e.writeAxis(e.settings.LateralAxis, -e.leftBrake)
	case e.rightBrake > brakeThreshold:
		e.writeAxis(e.settings.LateralAxis, e.rightBrake)
	default:
		e.writeAxis(e.settings.LateralAxis, 0)
	}
}

// toggleCrouch flips the crouch state on a both-brakes release edge.
// Entering crouch forces the sprint machine off; the two outputs are
// never held together. Caller holds the mutex.
func (e *Engine) toggleCrouch() {
	e.crouching = !e.crouching
	e.writeButton(e.settings.CrouchButton, e.crouching)
	e.logger.Info("crouch toggled", "crouching", e.crouching)

	if e.crouching && e.sprint != sprintIdle {
		if e.sprint == sprintHolding {
			e.writeButton(e.settings.RunButton, false)
			e.logger.Info("sprint hold off", "reason", "crouch")
		}
		e.sprint = sprintIdle
		e.aboveThresholdSince = time.Time{}
	}
}
