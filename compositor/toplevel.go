package compositor

import (
	"image"

	"deedles.dev/wlcomp/output"
	"deedles.dev/wlcomp/proto/xdg"
	"deedles.dev/wlcomp/seat"
	"deedles.dev/wlcomp/server"
	"deedles.dev/wlcomp/space"
	"deedles.dev/wlcomp/wire"
)

var toplevelInterface = server.NewInterface(xdg.ToplevelInterface, xdg.ToplevelVersion, xdg.ToplevelRequests, xdg.ToplevelEvents)

func init() {
	toplevelInterface.
		Destructor(xdg.ToplevelDestroy, nil).
		Handle(xdg.ToplevelSetParent, toplevelSetParent).
		Handle(xdg.ToplevelSetTitle, toplevelSetTitle).
		Handle(xdg.ToplevelSetAppId, toplevelSetAppID).
		Handle(xdg.ToplevelShowWindowMenu, nil).
		Handle(xdg.ToplevelMove, toplevelMove).
		Handle(xdg.ToplevelResize, toplevelResize).
		Handle(xdg.ToplevelSetMaxSize, toplevelSetMaxSize).
		Handle(xdg.ToplevelSetMinSize, toplevelSetMinSize).
		Handle(xdg.ToplevelSetMaximized, toplevelSetMaximized).
		Handle(xdg.ToplevelUnsetMaximized, toplevelUnsetMaximized).
		Handle(xdg.ToplevelSetFullscreen, toplevelSetFullscreen).
		Handle(xdg.ToplevelUnsetFullscreen, toplevelUnsetFullscreen).
		Handle(xdg.ToplevelSetMinimized, toplevelSetMinimized)
}

type toplevel struct {
	xs     *xdgSurface
	obj    *server.Object
	window *space.Window
	parent *toplevel

	minSize image.Point
	maxSize image.Point

	// output is the output that the window is maximized or
	// fullscreened on.
	output string
}

func (t *toplevel) comp() *Compositor {
	return t.xs.surface.comp
}

// size returns the size that the window should be configured to, or
// the zero point to let the client decide.
func (t *toplevel) size() image.Point {
	c := t.comp()
	w := t.window
	if w.Maximized || w.Fullscreen {
		if out, ok := c.outputs.Get(t.output); ok {
			return out.LogicalSize()
		}
	}
	if w.Mapped() {
		return w.Geometry().Size()
	}
	return image.Point{}
}

// configure sends a complete configure sequence with the window's
// current state.
func (t *toplevel) configure(size image.Point, resizing bool) {
	w := t.window
	var states []uint32
	if w.Maximized {
		states = append(states, uint32(xdg.ToplevelStateMaximized))
	}
	if w.Fullscreen {
		states = append(states, uint32(xdg.ToplevelStateFullscreen))
	}
	if resizing {
		states = append(states, uint32(xdg.ToplevelStateResizing))
	}
	if w.Activated {
		states = append(states, uint32(xdg.ToplevelStateActivated))
	}

	t.obj.Event(xdg.ToplevelEventConfigure, func(msg *wire.MessageBuilder) {
		msg.WriteInt(int32(size.X))
		msg.WriteInt(int32(size.Y))
		msg.WriteUints(states)
	})
	t.xs.configure()
}

// reconfigure tells the client about a change of state. Nothing is
// sent before the initial configure, which will include the change.
func (t *toplevel) reconfigure() {
	if !t.xs.configured {
		return
	}
	t.configure(t.size(), false)
}

func (t *toplevel) initialConfigure() {
	t.configure(t.size(), false)
}

func (t *toplevel) commit(damage []image.Rectangle) error {
	ready, err := t.xs.commit()
	if !ready || (err != nil) {
		return err
	}

	c := t.comp()
	s := t.xs.surface
	w := t.window
	w.InputRegion = s.input

	if s.image == nil {
		if w.Mapped() {
			c.unmapWindow(w)
			t.xs.reset()
		}
		return nil
	}

	if !w.Mapped() {
		c.space.Resize(w, s.size)
		w.Minimized = false
		c.space.Map(w, c.placement(t))
		c.focusWindow(w)
		return nil
	}

	g := w.Geometry()
	if m := c.move; (m != nil) && (m.window == w) && (m.edges != 0) {
		g = m.resized(s.size)
	}
	c.space.SetGeometry(w, image.Rectangle{Min: g.Min, Max: g.Min.Add(s.size)})
	c.space.Commit(w, damage...)
	return nil
}

// placement returns the position at which to map t.
func (c *Compositor) placement(t *toplevel) image.Point {
	if t.window.Maximized || t.window.Fullscreen {
		if out, ok := c.outputs.Get(t.output); ok {
			return out.Position
		}
	}

	var origin image.Point
	if outs := c.outputs.Outputs(); len(outs) > 0 {
		origin = outs[0].Geometry().Min
	}
	return c.space.Place(origin, c.config.Appearance.WindowGap)
}

// outputOf returns the output that a window belongs to: the one
// containing the center of its geometry, or the first output.
func (c *Compositor) outputOf(w *space.Window) (*output.Output, bool) {
	g := w.Geometry()
	center := g.Min.Add(g.Size().Div(2))
	if out, ok := c.outputs.At(center); ok {
		return out, true
	}
	outs := c.outputs.Outputs()
	if len(outs) == 0 {
		return nil, false
	}
	return outs[0], true
}

func (t *toplevel) surfaceDestroyed() {
	t.comp().unmapWindow(t.window)
}

func (t *toplevel) destroy() {
	c := t.comp()
	c.unmapWindow(t.window)
	if c.move != nil && c.move.window == t.window {
		c.move = nil
	}
	t.xs.role = nil
	if t.xs.surface.role == t {
		t.xs.surface.role = nil
	}
	t.xs.reset()
}

// toplevelOf returns the toplevel role of the window's surface.
func (c *Compositor) toplevelOf(w *space.Window) (*toplevel, bool) {
	s, ok := c.surfaces.Get(w.Surface)
	if !ok {
		return nil, false
	}
	t, ok := s.role.(*toplevel)
	return t, ok
}

func toplevelSetParent(obj *server.Object, msg *wire.MessageBuffer) error {
	id := msg.ReadObject()
	if err := msg.Err(); err != nil {
		return err
	}

	pobj, err := obj.Client().LookupNullable(id, toplevelInterface)
	if err != nil {
		return err
	}

	t := obj.Data.(*toplevel)
	t.parent = nil
	if pobj != nil {
		t.parent = pobj.Data.(*toplevel)
	}
	return nil
}

func toplevelSetTitle(obj *server.Object, msg *wire.MessageBuffer) error {
	title := msg.ReadString()
	if err := msg.Err(); err != nil {
		return err
	}
	obj.Data.(*toplevel).window.Title = title
	return nil
}

func toplevelSetAppID(obj *server.Object, msg *wire.MessageBuffer) error {
	id := msg.ReadString()
	if err := msg.Err(); err != nil {
		return err
	}
	obj.Data.(*toplevel).window.AppID = id
	return nil
}

func toplevelSetMaxSize(obj *server.Object, msg *wire.MessageBuffer) error {
	w, h := msg.ReadInt(), msg.ReadInt()
	if err := msg.Err(); err != nil {
		return err
	}
	if (w < 0) || (h < 0) {
		return obj.Error(uint32(xdg.WmBaseErrorInvalidSurfaceState), "invalid max size %vx%v", w, h)
	}
	obj.Data.(*toplevel).maxSize = image.Pt(int(w), int(h))
	return nil
}

func toplevelSetMinSize(obj *server.Object, msg *wire.MessageBuffer) error {
	w, h := msg.ReadInt(), msg.ReadInt()
	if err := msg.Err(); err != nil {
		return err
	}
	if (w < 0) || (h < 0) {
		return obj.Error(uint32(xdg.WmBaseErrorInvalidSurfaceState), "invalid min size %vx%v", w, h)
	}
	obj.Data.(*toplevel).minSize = image.Pt(int(w), int(h))
	return nil
}

// constrain limits size to the toplevel's minimum and maximum sizes.
// A zero limit in either dimension is no limit.
func (t *toplevel) constrain(size image.Point) image.Point {
	size.X = max(size.X, t.minSize.X, 1)
	size.Y = max(size.Y, t.minSize.Y, 1)
	if t.maxSize.X > 0 {
		size.X = min(size.X, t.maxSize.X)
	}
	if t.maxSize.Y > 0 {
		size.Y = min(size.Y, t.maxSize.Y)
	}
	return size
}

func toplevelSetMaximized(obj *server.Object, msg *wire.MessageBuffer) error {
	t := obj.Data.(*toplevel)
	t.setMaximized(true)
	return nil
}

func toplevelUnsetMaximized(obj *server.Object, msg *wire.MessageBuffer) error {
	t := obj.Data.(*toplevel)
	t.setMaximized(false)
	return nil
}

func (t *toplevel) setMaximized(maximized bool) {
	w := t.window
	if w.Maximized == maximized {
		t.reconfigure()
		return
	}
	t.setState(func() { w.Maximized = maximized }, "")
}

func toplevelSetFullscreen(obj *server.Object, msg *wire.MessageBuffer) error {
	id := msg.ReadObject()
	if err := msg.Err(); err != nil {
		return err
	}

	oobj, err := obj.Client().LookupNullable(id, outputInterface)
	if err != nil {
		return err
	}

	var name string
	if oobj != nil {
		if og, ok := oobj.Data.(*outputGlobal); ok {
			name = og.out.Name
		}
	}

	t := obj.Data.(*toplevel)
	t.setFullscreen(true, name)
	return nil
}

func toplevelUnsetFullscreen(obj *server.Object, msg *wire.MessageBuffer) error {
	t := obj.Data.(*toplevel)
	t.setFullscreen(false, "")
	return nil
}

func (t *toplevel) setFullscreen(fullscreen bool, name string) {
	w := t.window
	if (w.Fullscreen == fullscreen) && (name == "" || name == t.output) {
		t.reconfigure()
		return
	}
	t.setState(func() { w.Fullscreen = fullscreen }, name)
}

// setState changes the maximized or fullscreen state of the window
// through f. Entering either state from a normal window saves its
// geometry, and leaving both restores it.
func (t *toplevel) setState(f func(), name string) {
	c := t.comp()
	w := t.window

	wasNormal := !w.Maximized && !w.Fullscreen
	f()
	isNormal := !w.Maximized && !w.Fullscreen

	if (wasNormal || name != "") && !isNormal {
		if wasNormal && w.Mapped() {
			w.Restore = w.Geometry()
		}
		t.output = name
		if _, ok := c.outputs.Get(name); !ok {
			t.output = ""
			if out, ok := c.outputOf(w); ok {
				t.output = out.Name
			}
		}
	}

	if !w.Mapped() {
		t.reconfigure()
		return
	}

	if isNormal {
		t.output = ""
		size := w.Restore.Size()
		if w.Restore.Empty() {
			size = w.Geometry().Size()
		}
		c.space.Move(w, w.Restore.Min)
		t.configure(size, false)
	} else if out, ok := c.outputs.Get(t.output); ok {
		c.space.Move(w, out.Position)
		c.space.Raise(w)
		t.reconfigure()
	}
	c.frameDue = true
}

func toplevelSetMinimized(obj *server.Object, msg *wire.MessageBuffer) error {
	t := obj.Data.(*toplevel)
	c := t.comp()
	w := t.window
	if !w.Mapped() || w.Minimized {
		return nil
	}

	w.Minimized = true
	c.space.AddDamage(c.windowBounds(w))
	if h, ok := c.seat.Focus(seat.Keyboard); ok && (h == w.Surface) {
		c.focusTopmost()
	}
	return nil
}

func toplevelMove(obj *server.Object, msg *wire.MessageBuffer) error {
	_ = msg.ReadObject()
	serial := msg.ReadUint()
	if err := msg.Err(); err != nil {
		return err
	}

	t := obj.Data.(*toplevel)
	t.comp().startMove(t, serial, 0)
	return nil
}

func toplevelResize(obj *server.Object, msg *wire.MessageBuffer) error {
	_ = msg.ReadObject()
	serial := msg.ReadUint()
	edges := xdg.ToplevelResizeEdge(msg.ReadUint())
	if err := msg.Err(); err != nil {
		return err
	}
	if edges > xdg.ToplevelResizeEdgeBottomRight {
		return obj.Error(uint32(xdg.WmBaseErrorInvalidSurfaceState), "invalid resize edge %v", uint32(edges))
	}

	t := obj.Data.(*toplevel)
	t.comp().startMove(t, serial, edges)
	return nil
}

// moveGrab is an interactive move or resize of a window that follows
// the pointer until every button is released.
type moveGrab struct {
	window *space.Window
	top    *toplevel
	edges  xdg.ToplevelResizeEdge

	start    image.Point
	geometry image.Rectangle
}

func (c *Compositor) startMove(t *toplevel, serial uint32, edges xdg.ToplevelResizeEdge) {
	w := t.window
	if !w.Mapped() || w.Fullscreen || (c.seat.ButtonsDown() == 0) {
		return
	}
	if h, ok := c.seat.Focus(seat.Pointer); !ok || (h != w.Surface) {
		return
	}

	if w.Maximized {
		w.Maximized = false
		t.output = ""
		if !w.Restore.Empty() {
			c.space.Resize(w, w.Restore.Size())
		}
	}

	c.move = &moveGrab{
		window:   w,
		top:      t,
		edges:    edges,
		start:    floorPoint(c.seat.Position()),
		geometry: w.Geometry(),
	}
	if edges != 0 {
		t.configure(w.Geometry().Size(), true)
	}
}

func (m *moveGrab) hasEdge(e xdg.ToplevelResizeEdge) bool {
	return m.edges&e == e
}

// update moves or resizes the window for a new pointer position.
func (c *Compositor) updateMove(p image.Point) {
	m := c.move
	delta := p.Sub(m.start)

	if m.edges == 0 {
		c.space.Move(m.window, m.geometry.Min.Add(delta))
		return
	}

	size := m.geometry.Size()
	if m.hasEdge(xdg.ToplevelResizeEdgeLeft) {
		size.X -= delta.X
	}
	if m.hasEdge(xdg.ToplevelResizeEdgeRight) {
		size.X += delta.X
	}
	if m.hasEdge(xdg.ToplevelResizeEdgeTop) {
		size.Y -= delta.Y
	}
	if m.hasEdge(xdg.ToplevelResizeEdgeBottom) {
		size.Y += delta.Y
	}
	m.top.configure(m.top.constrain(size), true)
}

// resized returns the window geometry for a new size, keeping the
// edges opposite to the ones being dragged in place.
func (m *moveGrab) resized(size image.Point) image.Rectangle {
	r := image.Rectangle{Min: m.geometry.Min, Max: m.geometry.Min.Add(size)}
	if m.hasEdge(xdg.ToplevelResizeEdgeLeft) {
		r.Min.X = m.geometry.Max.X - size.X
		r.Max.X = m.geometry.Max.X
	}
	if m.hasEdge(xdg.ToplevelResizeEdgeTop) {
		r.Min.Y = m.geometry.Max.Y - size.Y
		r.Max.Y = m.geometry.Max.Y
	}
	return r
}

func (c *Compositor) endMove() {
	m := c.move
	c.move = nil
	if (m.edges != 0) && m.window.Mapped() {
		m.top.configure(m.window.Geometry().Size(), false)
	}
}

// closeWindow asks the client of w to close it.
func (c *Compositor) closeWindow(w *space.Window) {
	t, ok := c.toplevelOf(w)
	if !ok {
		return
	}
	t.obj.Event(xdg.ToplevelEventClose, nil)
}
