package joystick

const (
	// NumAxes is the number of analog axes the virtual joystick exposes.
	NumAxes = 8
	// NumButtons is the number of buttons the virtual joystick exposes.
	NumButtons = 32
	// ReportSize is the fixed size of one input report in bytes:
	// 8 axes as int16 plus a 32-bit button field.
	ReportSize = NumAxes*2 + 4

	// DeviceType is the slot type requested from the feed server.
	DeviceType = "joystick"

	axisScale = 32767
)
