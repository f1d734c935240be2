package joystick

import (
	"encoding"
	"sync"
)

// ReportWriter accepts marshaled input reports. *feeder.FeedStream
// implements it.
type ReportWriter interface {
	WriteBinary(v encoding.BinaryMarshaler) error
}

// Feed keeps the virtual joystick's InputState and pushes a full
// report through a ReportWriter after every change. It satisfies the
// treadmill engine's Output interface.
type Feed struct {
	mu    sync.Mutex
	state InputState
	w     ReportWriter
}

// NewFeed returns a Feed writing reports to w.
func NewFeed(w ReportWriter) *Feed {
	return &Feed{w: w}
}

// SetAxis updates one axis and pushes a report.
func (f *Feed) SetAxis(idx int, v float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.state.SetAxis(idx, v); err != nil {
		return err
	}
	return f.push()
}

// SetButton updates one button and pushes a report.
func (f *Feed) SetButton(idx int, pressed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.state.SetButton(idx, pressed); err != nil {
		return err
	}
	return f.push()
}

// State returns a copy of the current joystick state.
func (f *Feed) State() InputState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Feed) push() error {
	st := f.state
	return f.w.WriteBinary(&st)
}
