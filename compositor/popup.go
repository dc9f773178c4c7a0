package compositor

import (
	"image"

	"deedles.dev/wlcomp/internal/handle"
	"deedles.dev/wlcomp/internal/xslices"
	"deedles.dev/wlcomp/proto/xdg"
	"deedles.dev/wlcomp/region"
	"deedles.dev/wlcomp/seat"
	"deedles.dev/wlcomp/server"
	"deedles.dev/wlcomp/space"
	"deedles.dev/wlcomp/wire"
)

var popupInterface = server.NewInterface(xdg.PopupInterface, xdg.PopupVersion, xdg.PopupRequests, xdg.PopupEvents)

func init() {
	positionerInterface.
		Destructor(xdg.PositionerDestroy, nil).
		Handle(xdg.PositionerSetSize, positionerSetSize).
		Handle(xdg.PositionerSetAnchorRect, positionerSetAnchorRect).
		Handle(xdg.PositionerSetAnchor, positionerSetAnchor).
		Handle(xdg.PositionerSetGravity, positionerSetGravity).
		Handle(xdg.PositionerSetConstraintAdjustment, positionerSetConstraintAdjustment).
		Handle(xdg.PositionerSetOffset, positionerSetOffset).
		Handle(xdg.PositionerSetReactive, positionerSetReactive).
		Handle(xdg.PositionerSetParentSize, nil).
		Handle(xdg.PositionerSetParentConfigure, nil)
	popupInterface.
		Destructor(xdg.PopupDestroy, popupDestroy).
		Handle(xdg.PopupGrab, popupGrab).
		Handle(xdg.PopupReposition, popupReposition)
}

// edgeDirs gives the direction of each anchor and gravity value from
// the center of a rectangle.
var edgeDirs = [...]image.Point{
	xdg.PositionerAnchorNone:        {0, 0},
	xdg.PositionerAnchorTop:         {0, -1},
	xdg.PositionerAnchorBottom:      {0, 1},
	xdg.PositionerAnchorLeft:        {-1, 0},
	xdg.PositionerAnchorRight:       {1, 0},
	xdg.PositionerAnchorTopLeft:     {-1, -1},
	xdg.PositionerAnchorBottomLeft:  {-1, 1},
	xdg.PositionerAnchorTopRight:    {1, -1},
	xdg.PositionerAnchorBottomRight: {1, 1},
}

// positioner holds the rules for placing a popup relative to its
// parent's window geometry.
type positioner struct {
	size       image.Point
	anchorRect image.Rectangle
	anchorSet  bool
	anchor     image.Point
	gravity    image.Point
	adjust     xdg.PositionerConstraintAdjustment
	offset     image.Point
	reactive   bool
}

func (p *positioner) complete() bool {
	return (p.size.X > 0) && (p.size.Y > 0) && p.anchorSet
}

func axisPoint(min, max, dir int) int {
	switch dir {
	case -1:
		return min
	case 1:
		return max
	}
	return min + (max-min)/2
}

func axisOffset(size, dir int) int {
	switch dir {
	case -1:
		return -size
	case 1:
		return 0
	}
	return -size / 2
}

// rect returns the popup's geometry relative to the parent's origin
// for the given anchor and gravity directions, before any constraint
// adjustment.
func (p *positioner) rect(anchor, gravity image.Point) image.Rectangle {
	a := p.anchorRect
	pt := image.Pt(
		axisPoint(a.Min.X, a.Max.X, anchor.X),
		axisPoint(a.Min.Y, a.Max.Y, anchor.Y),
	).Add(p.offset)
	min := pt.Add(image.Pt(axisOffset(p.size.X, gravity.X), axisOffset(p.size.Y, gravity.Y)))
	return image.Rectangle{Min: min, Max: min.Add(p.size)}
}

// place computes the popup's geometry relative to the parent's
// origin, adjusted to fit within bounds, which is also relative to
// the parent's origin. Adjustments are tried in the order flip,
// slide, resize for each axis.
func (p *positioner) place(bounds image.Rectangle) image.Rectangle {
	r := p.rect(p.anchor, p.gravity)
	if bounds.Empty() || r.In(bounds) {
		return r
	}

	if (p.adjust&xdg.PositionerConstraintAdjustmentFlipX != 0) && overflowsX(r, bounds) {
		anchor := image.Pt(-p.anchor.X, p.anchor.Y)
		gravity := image.Pt(-p.gravity.X, p.gravity.Y)
		if f := p.rect(anchor, gravity); !overflowsX(f, bounds) {
			r.Min.X, r.Max.X = f.Min.X, f.Max.X
		}
	}
	if (p.adjust&xdg.PositionerConstraintAdjustmentFlipY != 0) && overflowsY(r, bounds) {
		anchor := image.Pt(p.anchor.X, -p.anchor.Y)
		gravity := image.Pt(p.gravity.X, -p.gravity.Y)
		if f := p.rect(anchor, gravity); !overflowsY(f, bounds) {
			r.Min.Y, r.Max.Y = f.Min.Y, f.Max.Y
		}
	}

	if p.adjust&xdg.PositionerConstraintAdjustmentSlideX != 0 {
		r.Min.X, r.Max.X = slide(r.Min.X, r.Max.X, bounds.Min.X, bounds.Max.X)
	}
	if p.adjust&xdg.PositionerConstraintAdjustmentSlideY != 0 {
		r.Min.Y, r.Max.Y = slide(r.Min.Y, r.Max.Y, bounds.Min.Y, bounds.Max.Y)
	}

	if p.adjust&xdg.PositionerConstraintAdjustmentResizeX != 0 {
		r.Min.X, r.Max.X = max(r.Min.X, bounds.Min.X), min(r.Max.X, bounds.Max.X)
	}
	if p.adjust&xdg.PositionerConstraintAdjustmentResizeY != 0 {
		r.Min.Y, r.Max.Y = max(r.Min.Y, bounds.Min.Y), min(r.Max.Y, bounds.Max.Y)
	}
	if r.Empty() {
		return p.rect(p.anchor, p.gravity)
	}
	return r
}

func overflowsX(r, bounds image.Rectangle) bool {
	return (r.Min.X < bounds.Min.X) || (r.Max.X > bounds.Max.X)
}

func overflowsY(r, bounds image.Rectangle) bool {
	return (r.Min.Y < bounds.Min.Y) || (r.Max.Y > bounds.Max.Y)
}

// slide shifts the span [min, max) into [lo, hi). If it does not fit,
// its start is aligned with lo.
func slide(min, max, lo, hi int) (int, int) {
	if max > hi {
		d := max - hi
		min, max = min-d, max-d
	}
	if min < lo {
		d := lo - min
		min, max = min+d, max+d
	}
	return min, max
}

func positionerSetSize(obj *server.Object, msg *wire.MessageBuffer) error {
	w, h := msg.ReadInt(), msg.ReadInt()
	if err := msg.Err(); err != nil {
		return err
	}
	if (w <= 0) || (h <= 0) {
		return obj.Error(uint32(xdg.PositionerErrorInvalidInput), "invalid size %vx%v", w, h)
	}
	obj.Data.(*positioner).size = image.Pt(int(w), int(h))
	return nil
}

func positionerSetAnchorRect(obj *server.Object, msg *wire.MessageBuffer) error {
	x, y := msg.ReadInt(), msg.ReadInt()
	w, h := msg.ReadInt(), msg.ReadInt()
	if err := msg.Err(); err != nil {
		return err
	}
	if (w < 0) || (h < 0) {
		return obj.Error(uint32(xdg.PositionerErrorInvalidInput), "invalid anchor size %vx%v", w, h)
	}

	p := obj.Data.(*positioner)
	p.anchorRect = image.Rect(int(x), int(y), int(x+w), int(y+h))
	p.anchorSet = true
	return nil
}

func readEdge(obj *server.Object, msg *wire.MessageBuffer) (image.Point, error) {
	v := msg.ReadUint()
	if err := msg.Err(); err != nil {
		return image.Point{}, err
	}
	if int(v) >= len(edgeDirs) {
		return image.Point{}, obj.Error(uint32(xdg.PositionerErrorInvalidInput), "invalid anchor or gravity %v", v)
	}
	return edgeDirs[v], nil
}

func positionerSetAnchor(obj *server.Object, msg *wire.MessageBuffer) error {
	dir, err := readEdge(obj, msg)
	if err != nil {
		return err
	}
	obj.Data.(*positioner).anchor = dir
	return nil
}

func positionerSetGravity(obj *server.Object, msg *wire.MessageBuffer) error {
	dir, err := readEdge(obj, msg)
	if err != nil {
		return err
	}
	obj.Data.(*positioner).gravity = dir
	return nil
}

func positionerSetConstraintAdjustment(obj *server.Object, msg *wire.MessageBuffer) error {
	adjust := xdg.PositionerConstraintAdjustment(msg.ReadUint())
	if err := msg.Err(); err != nil {
		return err
	}
	obj.Data.(*positioner).adjust = adjust
	return nil
}

func positionerSetOffset(obj *server.Object, msg *wire.MessageBuffer) error {
	x, y := msg.ReadInt(), msg.ReadInt()
	if err := msg.Err(); err != nil {
		return err
	}
	obj.Data.(*positioner).offset = image.Pt(int(x), int(y))
	return nil
}

func positionerSetReactive(obj *server.Object, msg *wire.MessageBuffer) error {
	obj.Data.(*positioner).reactive = true
	return nil
}

type popup struct {
	xs     *xdgSurface
	obj    *server.Object
	parent *xdgSurface
	pos    positioner
	node   *space.Popup

	// token is the reposition token to answer with the next
	// configure, if any.
	token    uint32
	hasToken bool
}

func (p *popup) comp() *Compositor {
	return p.xs.surface.comp
}

// parentNode returns the space ID of the popup's parent and the
// global position of its origin.
func (c *Compositor) parentNode(parent *xdgSurface) (space.ID, image.Point, bool) {
	switch r := parent.role.(type) {
	case *toplevel:
		if !r.window.Mapped() {
			return 0, image.Point{}, false
		}
		return r.window.ID(), r.window.Geometry().Min, true
	case *popup:
		if (r.node == nil) || !c.popupOpen(r.node) {
			return 0, image.Point{}, false
		}
		return r.node.ID(), c.space.PopupGeometry(r.node).Min, true
	}
	return 0, image.Point{}, false
}

func (c *Compositor) popupOpen(node *space.Popup) bool {
	_, ok := c.space.Popup(node.ID())
	return ok
}

// popupGeometry places the popup relative to its parent, constrained to
// the output that the parent is on.
func (c *Compositor) popupGeometry(p *popup, origin image.Point) image.Rectangle {
	var bounds image.Rectangle
	if out, ok := c.outputs.At(origin); ok {
		bounds = out.Geometry().Sub(origin)
	} else if outs := c.outputs.Outputs(); len(outs) > 0 {
		bounds = outs[0].Geometry().Sub(origin)
	}
	return p.pos.place(bounds)
}

func (c *Compositor) addPopup(p *popup) error {
	parentID, origin, ok := c.parentNode(p.parent)
	if !ok {
		return p.xs.base.obj.Error(uint32(xdg.WmBaseErrorInvalidPopupParent), "popup parent %v is not mapped", p.parent.obj)
	}

	g := c.popupGeometry(p, origin)
	node, err := c.space.AddPopup(parentID, p.xs.surface.handle, g.Min, g.Size())
	if err != nil {
		return p.xs.base.obj.Error(uint32(xdg.WmBaseErrorInvalidPopupParent), "%v", err)
	}

	// Nothing is shown or hit until the first buffer arrives.
	node.InputRegion = region.New()

	p.node = node
	c.popups[node.ID()] = p
	return nil
}

func (p *popup) sendConfigure() {
	if p.hasToken {
		p.obj.Event(xdg.PopupEventRepositioned, func(msg *wire.MessageBuilder) {
			msg.WriteUint(p.token)
		})
		p.hasToken = false
	}

	p.obj.Event(xdg.PopupEventConfigure, func(msg *wire.MessageBuilder) {
		msg.WriteInt(int32(p.node.Offset.X))
		msg.WriteInt(int32(p.node.Offset.Y))
		msg.WriteInt(int32(p.node.Size.X))
		msg.WriteInt(int32(p.node.Size.Y))
	})
	p.xs.configure()
}

func (p *popup) initialConfigure() {
	if (p.node == nil) || !p.comp().popupOpen(p.node) {
		return
	}
	p.sendConfigure()
}

func (p *popup) commit(damage []image.Rectangle) error {
	ready, err := p.xs.commit()
	if !ready || (err != nil) {
		return err
	}

	c := p.comp()
	s := p.xs.surface
	if (p.node == nil) || !c.popupOpen(p.node) {
		return nil
	}

	if s.image == nil {
		p.node.InputRegion = region.New()
		c.space.MovePopup(p.node, p.node.Offset, p.node.Size)
		c.space.AddDamage(c.space.PopupGeometry(p.node))
		return nil
	}

	p.node.InputRegion = s.input
	c.space.MovePopup(p.node, p.node.Offset, s.size)
	c.space.CommitPopup(p.node, damage...)
	return nil
}

func (p *popup) surfaceDestroyed() {
	p.close()
}

func popupDestroy(obj *server.Object, msg *wire.MessageBuffer) error {
	p := obj.Data.(*popup)
	c := p.comp()
	if (p.node != nil) && c.popupOpen(p.node) {
		for _, other := range c.popups {
			if (other != p) && (other.node != nil) && (other.node.Parent() == p.node.ID()) {
				return p.xs.base.obj.Error(uint32(xdg.WmBaseErrorNotTheTopmostPopup), "%v destroyed before its child popups", obj)
			}
		}
	}
	return nil
}

func (p *popup) destroy() {
	p.close()
	p.xs.role = nil
	if p.xs.surface.role == p {
		p.xs.surface.role = nil
	}
}

// close removes the popup and its children from the space. Children
// are told that they were dismissed.
func (p *popup) close() {
	c := p.comp()
	if p.node == nil {
		return
	}
	node := p.node
	p.node = nil

	for _, closed := range c.space.ClosePopup(node.ID()) {
		c.popupClosed(closed)
	}
	delete(c.popups, node.ID())
}

// popupClosed cleans up after a popup node that has been removed from
// the space, telling its client unless the client destroyed it.
func (c *Compositor) popupClosed(node *space.Popup) {
	p, ok := c.popups[node.ID()]
	if !ok {
		return
	}
	delete(c.popups, node.ID())

	if p.node != nil {
		p.node = nil
		p.obj.Event(xdg.PopupEventPopupDone, nil)
	}

	c.grabs = xslices.Remove(c.grabs, p)
	if (len(c.grabs) == 0) && (c.seat.Grabbed() == c.popupGrab) {
		c.seat.Ungrab()
	}

	if h, ok := c.seat.Focus(seat.Keyboard); ok && (h == node.Surface) {
		c.focusAfterPopup(node)
	}
	c.frameDue = true
}

// focusAfterPopup gives keyboard focus back to what was under a
// closed popup.
func (c *Compositor) focusAfterPopup(node *space.Popup) {
	if len(c.grabs) > 0 {
		c.focusSurface(c.grabs[len(c.grabs)-1].xs.surface)
		return
	}
	if w := node.Window(); (w != nil) && w.Mapped() {
		if s, ok := c.surfaces.Get(w.Surface); ok {
			c.focusSurface(s)
			return
		}
	}
	c.focusTopmost()
}

func popupGrab(obj *server.Object, msg *wire.MessageBuffer) error {
	_ = msg.ReadObject()
	_ = msg.ReadUint()
	if err := msg.Err(); err != nil {
		return err
	}

	p := obj.Data.(*popup)
	c := p.comp()
	if p.xs.surface.image != nil {
		return obj.Error(uint32(xdg.PopupErrorInvalidGrab), "grab requested after %v was mapped", obj)
	}
	if (p.node == nil) || !c.popupOpen(p.node) {
		p.obj.Event(xdg.PopupEventPopupDone, nil)
		return nil
	}

	if len(c.grabs) > 0 {
		top := c.grabs[len(c.grabs)-1]
		if (top.obj.Client() != obj.Client()) || (top.xs != p.parent) {
			return p.xs.base.obj.Error(uint32(xdg.WmBaseErrorNotTheTopmostPopup), "%v is not a child of the topmost grabbing popup", obj)
		}
	}

	c.grabs = append(c.grabs, p)
	if c.seat.Grabbed() != c.popupGrab {
		c.popupGrab = &seat.Grab{
			Owner:    obj.Client(),
			Surfaces: c.grabSurfaces,
			Dismiss:  c.dismissGrabs,
		}
		c.seat.Grab(c.popupGrab)
	}
	c.focusSurface(p.xs.surface)
	return nil
}

// grabSurfaces returns the surfaces of the client holding the popup
// grab.
func (c *Compositor) grabSurfaces() []handle.Handle {
	if len(c.grabs) == 0 {
		return nil
	}
	owner := c.grabs[0].obj.Client()

	var r []handle.Handle
	for s := range c.live {
		if s.obj.Client() == owner {
			r = append(r, s.handle)
		}
	}
	return r
}

// dismissGrabs closes every grabbing popup, topmost first.
func (c *Compositor) dismissGrabs() {
	for len(c.grabs) > 0 {
		p := c.grabs[len(c.grabs)-1]
		c.grabs = c.grabs[:len(c.grabs)-1]
		if p.node == nil {
			continue
		}
		node := p.node
		for _, closed := range c.space.ClosePopup(node.ID()) {
			c.popupClosed(closed)
		}
	}
	c.popupGrab = nil
	c.frameDue = true
}

func popupReposition(obj *server.Object, msg *wire.MessageBuffer) error {
	posID := msg.ReadObject()
	token := msg.ReadUint()
	if err := msg.Err(); err != nil {
		return err
	}

	posObj, err := obj.Client().Lookup(posID, positionerInterface)
	if err != nil {
		return err
	}
	pos := *posObj.Data.(*positioner)
	if !pos.complete() {
		return obj.Error(uint32(xdg.WmBaseErrorInvalidPositioner), "incomplete positioner %v", posObj)
	}

	p := obj.Data.(*popup)
	c := p.comp()
	p.pos = pos
	p.token = token
	p.hasToken = true
	if (p.node == nil) || !c.popupOpen(p.node) {
		return nil
	}

	_, origin, ok := c.parentNode(p.parent)
	if !ok {
		return nil
	}
	g := c.popupGeometry(p, origin)
	c.space.MovePopup(p.node, g.Min, g.Size())
	if p.xs.configured {
		p.sendConfigure()
	}
	return nil
}
