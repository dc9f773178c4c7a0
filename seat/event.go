package seat

import (
	"deedles.dev/wlcomp/pointer"
	"deedles.dev/ximage/geom"
)

// Event is an input event produced by a backend.
type Event interface {
	event()
}

// Motion is relative pointer motion in device units.
type Motion struct {
	Time  uint32
	Delta geom.Point[float64]
}

// MotionAbsolute places the pointer at a global logical position.
type MotionAbsolute struct {
	Time     uint32
	Position geom.Point[float64]
}

type Button struct {
	Time    uint32
	Button  pointer.Button
	Pressed bool
}

// AxisOrientation matches wl_pointer.axis.
type AxisOrientation uint32

const (
	AxisVertical AxisOrientation = iota
	AxisHorizontal
)

// Axis is a scroll event. Value is in surface-local units and
// Discrete counts wheel clicks, if any.
type Axis struct {
	Time        uint32
	Orientation AxisOrientation
	Value       float64
	Discrete    int32
}

type Key struct {
	Time    uint32
	Code    uint32
	Pressed bool
}

type TouchDownEvent struct {
	Time     uint32
	ID       int32
	Position geom.Point[float64]
}

type TouchUpEvent struct {
	Time uint32
	ID   int32
}

type TouchMotionEvent struct {
	Time     uint32
	ID       int32
	Position geom.Point[float64]
}

type TouchFrame struct{}

// FocusLost indicates that the backend stopped receiving keyboard
// input, so every held key should be considered released.
type FocusLost struct{}

func (Motion) event()           {}
func (MotionAbsolute) event()   {}
func (Button) event()           {}
func (Axis) event()             {}
func (Key) event()              {}
func (TouchDownEvent) event()   {}
func (TouchUpEvent) event()     {}
func (TouchMotionEvent) event() {}
func (TouchFrame) event()       {}
func (FocusLost) event()        {}
