// Package seat tracks input focus and device state for a single
// Wayland seat.
package seat

import (
	"math"

	"deedles.dev/wlcomp/internal/handle"
	"deedles.dev/wlcomp/internal/set"
	"deedles.dev/wlcomp/pointer"
	"deedles.dev/ximage/geom"
)

// Class is a kind of input device.
type Class int

const (
	Pointer Class = iota
	Keyboard
	Touch
	numClasses
)

func (c Class) String() string {
	switch c {
	case Pointer:
		return "pointer"
	case Keyboard:
		return "keyboard"
	case Touch:
		return "touch"
	}
	return "unknown"
}

// Change describes a focus transition. Old and New are equal when
// nothing changed.
type Change struct {
	Class Class
	Old   handle.Handle
	New   handle.Handle
}

// Changed reports whether the focus actually moved.
func (c Change) Changed() bool {
	return c.Old != c.New
}

// Config holds the user-adjustable input settings.
type Config struct {
	LeftHanded    bool
	NaturalScroll bool

	// AccelSpeed is in the range [-1, 1]. Zero leaves relative motion
	// untouched.
	AccelSpeed float64

	// RepeatRate is in characters per second. RepeatDelay is in
	// milliseconds.
	RepeatRate  int32
	RepeatDelay int32
}

// DefaultConfig returns the settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		RepeatRate:  25,
		RepeatDelay: 400,
	}
}

// TouchPoint is an active touch contact.
type TouchPoint struct {
	ID       int32
	Position geom.Point[float64]
	Focus    handle.Handle
}

// Seat is the focus and device state of a seat. It is not safe for
// concurrent use.
type Seat struct {
	name  string
	alive func(handle.Handle) bool

	focus    [numClasses]handle.Handle
	position geom.Point[float64]
	buttons  set.Set[pointer.Button]
	keys     set.Set[uint32]
	mods     Modifiers
	touches  map[int32]*TouchPoint
	config   Config
	grab     *Grab

	bindings  []Binding
	swallowed set.Set[uint32]
}

// New returns a seat called name. alive reports whether a focused
// handle still refers to a live surface.
func New(name string, alive func(handle.Handle) bool) *Seat {
	return &Seat{
		name:      name,
		alive:     alive,
		buttons:   set.New[pointer.Button](),
		keys:      set.New[uint32](),
		touches:   make(map[int32]*TouchPoint),
		config:    DefaultConfig(),
		bindings:  DefaultBindings(),
		swallowed: set.New[uint32](),
	}
}

func (s *Seat) Name() string {
	return s.name
}

// Focus returns the current focus of the given class. A focus whose
// surface has died is dropped.
func (s *Seat) Focus(c Class) (handle.Handle, bool) {
	h := s.focus[c]
	if h.IsZero() {
		return h, false
	}
	if (s.alive != nil) && !s.alive(h) {
		s.focus[c] = handle.Handle{}
		return handle.Handle{}, false
	}
	return h, true
}

// SetFocus moves the focus of the given class to h. A zero h clears
// the focus.
func (s *Seat) SetFocus(c Class, h handle.Handle) Change {
	old, _ := s.Focus(c)
	if (s.alive != nil) && !h.IsZero() && !s.alive(h) {
		h = handle.Handle{}
	}
	s.focus[c] = h
	return Change{Class: c, Old: old, New: h}
}

// Release clears every focus for which match returns true and
// returns the resulting transitions. Touch points focused on matching
// handles are dropped.
func (s *Seat) Release(match func(handle.Handle) bool) (changes []Change) {
	for c := range numClasses {
		h := s.focus[c]
		if !h.IsZero() && match(h) {
			changes = append(changes, s.SetFocus(c, handle.Handle{}))
		}
	}
	for id, tp := range s.touches {
		if match(tp.Focus) {
			delete(s.touches, id)
		}
	}
	if (s.grab != nil) && s.grab.Contains(match) {
		s.grab = nil
	}
	return changes
}

// Config returns the current input settings.
func (s *Seat) Config() Config {
	return s.config
}

// SetConfig replaces the input settings. It takes effect with the
// next event.
func (s *Seat) SetConfig(c Config) {
	s.config = c
}

// Position returns the pointer position in global logical
// coordinates.
func (s *Seat) Position() geom.Point[float64] {
	return s.position
}

// Warp moves the pointer to p after passing it through clamp, if
// clamp is not nil.
func (s *Seat) Warp(p geom.Point[float64], clamp func(geom.Point[float64]) geom.Point[float64]) geom.Point[float64] {
	if clamp != nil {
		p = clamp(p)
	}
	s.position = p
	return p
}

// Move moves the pointer by a relative device delta, applying the
// configured acceleration.
func (s *Seat) Move(delta geom.Point[float64], clamp func(geom.Point[float64]) geom.Point[float64]) geom.Point[float64] {
	return s.Warp(s.position.Add(delta.Mul(s.AccelFactor())), clamp)
}

// AccelFactor returns the multiplier applied to relative motion.
func (s *Seat) AccelFactor() float64 {
	speed := math.Max(-1, math.Min(1, s.config.AccelSpeed))
	return 1 + speed
}

// Button records a button event and returns the button as it should
// be reported to clients. changed is false for repeated presses or
// releases of buttons that were not down.
func (s *Seat) Button(b pointer.Button, pressed bool) (mapped pointer.Button, changed bool) {
	mapped = b
	if s.config.LeftHanded {
		mapped = b.Mirror()
	}

	if pressed == s.buttons.Has(mapped) {
		return mapped, false
	}
	if pressed {
		s.buttons.Add(mapped)
	} else {
		s.buttons.Delete(mapped)
	}
	return mapped, true
}

// ButtonsDown returns the number of buttons currently held.
func (s *Seat) ButtonsDown() int {
	return len(s.buttons)
}

// Scroll returns v adjusted for the natural scrolling setting.
func (s *Seat) Scroll(v float64) float64 {
	if s.config.NaturalScroll {
		return -v
	}
	return v
}

// TouchDown starts a touch contact.
func (s *Seat) TouchDown(id int32, p geom.Point[float64], focus handle.Handle) *TouchPoint {
	tp := &TouchPoint{ID: id, Position: p, Focus: focus}
	s.touches[id] = tp
	return tp
}

// TouchMotion moves an existing contact.
func (s *Seat) TouchMotion(id int32, p geom.Point[float64]) (*TouchPoint, bool) {
	tp, ok := s.touches[id]
	if !ok {
		return nil, false
	}
	tp.Position = p
	return tp, true
}

// TouchUp ends a touch contact and returns it.
func (s *Seat) TouchUp(id int32) (*TouchPoint, bool) {
	tp, ok := s.touches[id]
	if ok {
		delete(s.touches, id)
	}
	return tp, ok
}

// Touches returns the number of active contacts.
func (s *Seat) Touches() int {
	return len(s.touches)
}
