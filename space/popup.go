package space

import (
	"image"

	"deedles.dev/wlcomp/internal/handle"
	"deedles.dev/wlcomp/internal/xslices"
	"deedles.dev/wlcomp/region"
)

// Popup is a transient surface positioned relative to a window or to
// another popup.
type Popup struct {
	id     ID
	parent ID
	window *Window

	Surface handle.Handle

	// Offset is the position of the popup relative to its parent's
	// origin.
	Offset image.Point
	Size   image.Point

	InputRegion *region.Region

	children []ID
	painted  image.Rectangle
	dirty    bool
	pending  []image.Rectangle
}

func (p *Popup) ID() ID {
	return p.id
}

// Parent returns the ID of the window or popup that p is attached
// to.
func (p *Popup) Parent() ID {
	return p.parent
}

// Window returns the top-level window that p ultimately belongs to.
func (p *Popup) Window() *Window {
	return p.window
}

func (p *Popup) accepts(pt image.Point, g image.Rectangle) bool {
	if !pt.In(g) {
		return false
	}
	if p.InputRegion == nil {
		return true
	}
	return p.InputRegion.Contains(pt.Sub(g.Min))
}

// AddPopup attaches a new popup to parent, which must be a mapped
// window or an open popup.
func (s *Space) AddPopup(parent ID, surface handle.Handle, offset, size image.Point) (*Popup, error) {
	p := &Popup{
		id:      s.newID(),
		parent:  parent,
		Surface: surface,
		Offset:  offset,
		Size:    size,
		dirty:   true,
	}

	if pp, ok := s.popups[parent]; ok {
		p.window = pp.window
		pp.children = append(pp.children, p.id)
		s.popups[p.id] = p
		return p, nil
	}

	w := s.windowByID(parent)
	if w == nil {
		return nil, ErrNoParent
	}
	p.window = w
	w.popups = append(w.popups, p.id)
	s.popups[p.id] = p
	return p, nil
}

// Popup returns the open popup with the given ID.
func (s *Space) Popup(id ID) (*Popup, bool) {
	p, ok := s.popups[id]
	return p, ok
}

// ClosePopup closes the popup with the given ID along with every
// popup nested under it. The closed popups are returned, innermost
// first.
func (s *Space) ClosePopup(id ID) []*Popup {
	p, ok := s.popups[id]
	if !ok {
		return nil
	}

	if pp, ok := s.popups[p.parent]; ok {
		pp.children = xslices.Remove(pp.children, id)
	} else if p.window != nil {
		p.window.popups = xslices.Remove(p.window.popups, id)
	}
	return s.closeChildren([]ID{id})
}

func (s *Space) closeChildren(ids []ID) (closed []*Popup) {
	for _, id := range ids {
		p, ok := s.popups[id]
		if !ok {
			continue
		}
		closed = append(closed, s.closeChildren(p.children)...)
		p.children = nil
		delete(s.popups, id)
		s.AddDamage(p.painted)
		closed = append(closed, p)
	}
	return closed
}

// MovePopup changes the position and size of a popup relative to its
// parent.
func (s *Space) MovePopup(p *Popup, offset, size image.Point) {
	if (p.Offset == offset) && (p.Size == size) {
		return
	}
	p.Offset = offset
	p.Size = size
	p.dirty = true
	s.damagePopups(p.children)
}

// CommitPopup records new contents for p. damage is in popup-local
// coordinates.
func (s *Space) CommitPopup(p *Popup, damage ...image.Rectangle) {
	if _, ok := s.popups[p.id]; !ok {
		return
	}
	p.pending = append(p.pending, damage...)
}

// PopupGeometry returns the global geometry of p.
func (s *Space) PopupGeometry(p *Popup) image.Rectangle {
	origin := p.Offset
	parent := p.parent
	for {
		if pp, ok := s.popups[parent]; ok {
			origin = origin.Add(pp.Offset)
			parent = pp.parent
			continue
		}
		if p.window != nil {
			origin = origin.Add(p.window.geometry.Min)
		}
		break
	}
	return image.Rectangle{Min: origin, Max: origin.Add(p.Size)}
}

// WindowPopups returns the open popups of w in paint order, parents
// before children.
func (s *Space) WindowPopups(w *Window) []*Popup {
	var r []*Popup
	var walk func([]ID)
	walk = func(ids []ID) {
		for _, id := range ids {
			p, ok := s.popups[id]
			if !ok {
				continue
			}
			r = append(r, p)
			walk(p.children)
		}
	}
	walk(w.popups)
	return r
}

func (s *Space) windowByID(id ID) *Window {
	for _, w := range s.windows {
		if w.id == id {
			return w
		}
	}
	return nil
}
