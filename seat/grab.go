package seat

import "deedles.dev/wlcomp/internal/handle"

// Grab restricts pointer and keyboard focus to a set of surfaces,
// such as a popup chain.
type Grab struct {
	// Owner is the client holding the grab.
	Owner any

	// Surfaces returns the surfaces that may receive input during the
	// grab.
	Surfaces func() []handle.Handle

	// Dismiss is called when the grab is broken by input outside of
	// it.
	Dismiss func()
}

// Allows reports whether h may receive focus while g is active.
func (g *Grab) Allows(h handle.Handle) bool {
	if g == nil {
		return true
	}
	for _, s := range g.Surfaces() {
		if s == h {
			return true
		}
	}
	return false
}

// Contains reports whether any surface of the grab satisfies match.
func (g *Grab) Contains(match func(handle.Handle) bool) bool {
	for _, s := range g.Surfaces() {
		if match(s) {
			return true
		}
	}
	return false
}

// Grab starts g, replacing any grab already active. The replaced grab
// is dismissed.
func (s *Seat) Grab(g *Grab) {
	old := s.grab
	s.grab = g
	if (old != nil) && (old != g) && (old.Dismiss != nil) {
		old.Dismiss()
	}
}

// Ungrab ends the active grab without dismissing it.
func (s *Seat) Ungrab() {
	s.grab = nil
}

// Grabbed returns the active grab, if any.
func (s *Seat) Grabbed() *Grab {
	return s.grab
}

// Allows reports whether h may currently receive focus.
func (s *Seat) Allows(h handle.Handle) bool {
	return s.grab.Allows(h)
}

// Press handles a button press at a surface that may lie outside of
// the active grab. If it does, the grab is broken and dismissed. It
// reports whether a grab was dismissed.
func (s *Seat) Press(h handle.Handle) bool {
	g := s.grab
	if (g == nil) || g.Allows(h) {
		return false
	}
	s.grab = nil
	if g.Dismiss != nil {
		g.Dismiss()
	}
	return true
}
