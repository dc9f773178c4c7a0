// Package space holds the arrangement of mapped windows and popups.
// It is the single source of truth for both painting order and
// input hit-testing.
package space

import (
	"errors"
	"image"

	"deedles.dev/wlcomp/internal/handle"
	"deedles.dev/wlcomp/internal/xslices"
	"deedles.dev/wlcomp/region"
)

// ID identifies a window or popup. IDs are never reused.
type ID uint64

// Window is a top-level surface placed in the Space.
type Window struct {
	id ID

	// Surface refers to the surface that provides the window's
	// contents. The Space does not own it.
	Surface handle.Handle

	// Client identifies the client that created the window.
	Client any

	Title string
	AppID string

	Minimized  bool
	Maximized  bool
	Fullscreen bool
	Activated  bool

	// InputRegion limits hit-testing, in window-local coordinates. A
	// nil region accepts input everywhere inside the geometry.
	InputRegion *region.Region

	// Restore holds the geometry to return to when leaving the
	// maximized or fullscreen state.
	Restore image.Rectangle

	geometry image.Rectangle
	mapped   bool
	painted  image.Rectangle
	dirty    bool
	pending  []image.Rectangle
	popups   []ID
}

func (w *Window) ID() ID {
	return w.id
}

// Mapped reports whether the window is currently in the Space.
func (w *Window) Mapped() bool {
	return w.mapped
}

// Geometry returns the window's last assigned geometry.
func (w *Window) Geometry() image.Rectangle {
	return w.geometry
}

func (w *Window) accepts(p image.Point) bool {
	if !p.In(w.geometry) {
		return false
	}
	if w.InputRegion == nil {
		return true
	}
	return w.InputRegion.Contains(p.Sub(w.geometry.Min))
}

// Space is the ordered model of mapped windows. It is not safe for
// concurrent use.
type Space struct {
	alive   func(handle.Handle) bool
	windows []*Window
	popups  map[ID]*Popup
	nextID  ID
	damage  []image.Rectangle
}

// New returns an empty Space. alive is used during Refresh to detect
// windows whose surface has been destroyed.
func New(alive func(handle.Handle) bool) *Space {
	return &Space{
		alive:  alive,
		popups: make(map[ID]*Popup),
	}
}

func (s *Space) newID() ID {
	s.nextID++
	return s.nextID
}

// NewWindow creates an unmapped window for surface.
func (s *Space) NewWindow(surface handle.Handle, owner any) *Window {
	return &Window{
		id:      s.newID(),
		Surface: surface,
		Client:  owner,
	}
}

// Map places w at pos on top of every other window. Mapping an
// already mapped window moves it instead.
func (s *Space) Map(w *Window, pos image.Point) {
	if w.mapped {
		s.Move(w, pos)
		return
	}

	w.mapped = true
	w.geometry = image.Rectangle{Min: pos, Max: pos.Add(w.geometry.Size())}
	w.dirty = true
	s.windows = append(s.windows, w)
}

// Unmap removes w and all of its popups from the Space. It returns
// the popups that were closed as a result.
func (s *Space) Unmap(w *Window) []*Popup {
	if !w.mapped {
		return nil
	}

	closed := s.closeChildren(w.popups)
	w.popups = nil

	s.windows = xslices.Remove(s.windows, w)
	w.mapped = false
	s.AddDamage(w.painted, w.geometry)
	w.painted = image.Rectangle{}
	w.dirty = false
	w.pending = nil
	return closed
}

// Move changes the position of w, keeping its size.
func (s *Space) Move(w *Window, pos image.Point) {
	s.SetGeometry(w, image.Rectangle{Min: pos, Max: pos.Add(w.geometry.Size())})
}

// Resize changes the size of w, keeping its position.
func (s *Space) Resize(w *Window, size image.Point) {
	s.SetGeometry(w, image.Rectangle{Min: w.geometry.Min, Max: w.geometry.Min.Add(size)})
}

// SetGeometry sets the position and size of w.
func (s *Space) SetGeometry(w *Window, r image.Rectangle) {
	if r == w.geometry {
		return
	}
	w.geometry = r
	if w.mapped {
		w.dirty = true
	}
}

// Raise moves w to the top of the paint order.
func (s *Space) Raise(w *Window) {
	if !w.mapped {
		return
	}
	if s.windows[len(s.windows)-1] == w {
		return
	}
	xslices.MoveToEnd(s.windows, w)
	w.dirty = true
}

// Elements returns the mapped windows in paint order, bottom-most
// first.
func (s *Space) Elements() []*Window {
	r := make([]*Window, len(s.windows))
	copy(r, s.windows)
	return r
}

// Visible returns the windows that should be painted, in paint
// order.
func (s *Space) Visible() []*Window {
	return xslices.Filter(s.windows, func(w *Window) bool { return !w.Minimized })
}

// GeometryOf returns the geometry of w if it is mapped.
func (s *Space) GeometryOf(w *Window) (image.Rectangle, bool) {
	if !w.mapped {
		return image.Rectangle{}, false
	}
	return w.geometry, true
}

// Windows returns the mapped windows belonging to owner.
func (s *Space) Windows(owner any) []*Window {
	return xslices.Filter(s.windows, func(w *Window) bool { return w.Client == owner })
}

// Commit records that the surface of w has new contents. damage is in
// window-local coordinates. The change takes effect on the next
// Refresh.
func (s *Space) Commit(w *Window, damage ...image.Rectangle) {
	if !w.mapped {
		return
	}
	w.pending = append(w.pending, damage...)
}

// AddDamage records damage in global coordinates.
func (s *Space) AddDamage(rects ...image.Rectangle) {
	for _, r := range rects {
		if !r.Empty() {
			s.damage = append(s.damage, r)
		}
	}
}

// TakeDamage returns the damage accumulated by Refresh and resets it.
func (s *Space) TakeDamage() []image.Rectangle {
	d := s.damage
	s.damage = nil
	return d
}

// Refresh brings derived state up to date. Windows whose surfaces
// are gone are unmapped, and every change since the last Refresh is
// turned into damage. Calling it again without an intervening
// mutation does nothing.
func (s *Space) Refresh() {
	for _, w := range s.Elements() {
		if (s.alive != nil) && !s.alive(w.Surface) {
			s.Unmap(w)
		}
	}
	for id, p := range s.popups {
		if (s.alive != nil) && !s.alive(p.Surface) {
			if _, ok := s.popups[id]; ok {
				s.ClosePopup(id)
			}
		}
	}

	for _, w := range s.windows {
		if w.dirty {
			s.AddDamage(w.painted, w.geometry)
			s.damagePopups(w.popups)
			w.painted = w.geometry
			w.dirty = false
			w.pending = nil
			continue
		}

		for _, d := range w.pending {
			s.AddDamage(d.Add(w.geometry.Min).Intersect(w.geometry))
		}
		w.pending = nil
	}

	for _, p := range s.popups {
		if !p.dirty && (len(p.pending) == 0) {
			continue
		}
		g := s.PopupGeometry(p)
		if p.dirty {
			s.AddDamage(p.painted, g)
		} else {
			for _, d := range p.pending {
				s.AddDamage(d.Add(g.Min).Intersect(g))
			}
		}
		p.painted = g
		p.dirty = false
		p.pending = nil
	}
}

func (s *Space) damagePopups(ids []ID) {
	for _, id := range ids {
		p, ok := s.popups[id]
		if !ok {
			continue
		}
		p.dirty = true
		s.damagePopups(p.children)
	}
}

// Hit is the result of a successful hit-test.
type Hit struct {
	Window *Window
	Popup  *Popup

	// Surface is the surface under the point.
	Surface handle.Handle

	// Local is the point relative to the surface's origin.
	Local image.Point
}

// WindowAt returns the top-most window whose input region contains p.
// Popups are not considered.
func (s *Space) WindowAt(p image.Point) (*Window, bool) {
	for i := len(s.windows) - 1; i >= 0; i-- {
		w := s.windows[i]
		if w.Minimized {
			continue
		}
		if w.accepts(p) {
			return w, true
		}
	}
	return nil, false
}

// SurfaceAt returns the top-most surface under p, considering popups
// before the windows that own them.
func (s *Space) SurfaceAt(p image.Point) (Hit, bool) {
	for i := len(s.windows) - 1; i >= 0; i-- {
		w := s.windows[i]
		if w.Minimized {
			continue
		}

		popups := s.WindowPopups(w)
		for j := len(popups) - 1; j >= 0; j-- {
			pp := popups[j]
			g := s.PopupGeometry(pp)
			if pp.accepts(p, g) {
				return Hit{Window: w, Popup: pp, Surface: pp.Surface, Local: p.Sub(g.Min)}, true
			}
		}

		if w.accepts(p) {
			return Hit{Window: w, Surface: w.Surface, Local: p.Sub(w.geometry.Min)}, true
		}
	}
	return Hit{}, false
}

// ErrNoParent is returned when a popup's parent is not in the Space.
var ErrNoParent = errors.New("popup parent is not mapped")

// Place returns the default position for a new window: origin if no
// mapped window starts there, otherwise the first free position
// found by stepping diagonally by gap.
func (s *Space) Place(origin image.Point, gap int) image.Point {
	if gap <= 0 {
		return origin
	}

	taken := make(map[image.Point]struct{}, len(s.windows))
	for _, w := range s.windows {
		taken[w.geometry.Min] = struct{}{}
	}

	p := origin
	for {
		if _, ok := taken[p]; !ok {
			return p
		}
		p = p.Add(image.Pt(gap, gap))
	}
}
