// Package pointer defines the button codes sent in wl_pointer.button
// events.
package pointer

// Button is a Linux input event code for a pointer button.
type Button uint32

// From linux/input-event-codes.h.
const (
	ButtonLeft Button = 0x110 + iota
	ButtonRight
	ButtonMiddle
	ButtonSide
	ButtonExtra
	ButtonForward
	ButtonBack
	ButtonTask
)

var buttonNames = [...]string{
	ButtonLeft - ButtonLeft:    "left",
	ButtonRight - ButtonLeft:   "right",
	ButtonMiddle - ButtonLeft:  "middle",
	ButtonSide - ButtonLeft:    "side",
	ButtonExtra - ButtonLeft:   "extra",
	ButtonForward - ButtonLeft: "forward",
	ButtonBack - ButtonLeft:    "back",
	ButtonTask - ButtonLeft:    "task",
}

func (b Button) String() string {
	if (b < ButtonLeft) || (b > ButtonTask) {
		return "unknown"
	}
	return buttonNames[b-ButtonLeft]
}

// Mirror swaps the primary and secondary buttons, as for a
// left-handed pointer. Other buttons are returned unchanged.
func (b Button) Mirror() Button {
	switch b {
	case ButtonLeft:
		return ButtonRight
	case ButtonRight:
		return ButtonLeft
	}
	return b
}
