package compositor

import (
	"image"
	"math"

	"deedles.dev/wlcomp/internal/handle"
	"deedles.dev/wlcomp/proto/wl"
	"deedles.dev/wlcomp/seat"
	"deedles.dev/wlcomp/server"
	"deedles.dev/wlcomp/space"
	"deedles.dev/wlcomp/wire"
	"deedles.dev/ximage/geom"
	"github.com/sirupsen/logrus"
)

// pointerState is the compositor's side of the pointer: which cursor
// to draw and where it was last drawn.
type pointerState struct {
	// serial is the serial of the last wl_pointer.enter.
	serial uint32

	// cursor is the surface set by the focused client, if
	// clientCursor is set. A nil cursor hides the pointer.
	cursor       *surface
	hotspot      image.Point
	clientCursor bool

	painted image.Rectangle
	dirty   bool
}

func floorPoint(p geom.Point[float64]) image.Point {
	return image.Pt(int(math.Floor(p.X)), int(math.Floor(p.Y)))
}

func (c *Compositor) focused(class seat.Class) (*surface, bool) {
	h, ok := c.seat.Focus(class)
	if !ok {
		return nil, false
	}
	return c.surfaces.Get(h)
}

func (c *Compositor) pointerFocus() (*surface, bool) {
	return c.focused(seat.Pointer)
}

func (c *Compositor) keyboardFocus() (*surface, bool) {
	return c.focused(seat.Keyboard)
}

// local converts a global position into coordinates relative to s.
func (c *Compositor) local(s *surface, p geom.Point[float64]) geom.Point[float64] {
	o, _ := s.origin()
	return p.Sub(geom.PConv[float64](geom.FromImagePoint(o)))
}

// surfaceAt returns the surface under p that may currently receive
// input.
func (c *Compositor) surfaceAt(p geom.Point[float64]) (*surface, space.Hit, bool) {
	hit, ok := c.space.SurfaceAt(floorPoint(p))
	if !ok || !c.seat.Allows(hit.Surface) {
		return nil, hit, false
	}
	s, ok := c.surfaces.Get(hit.Surface)
	return s, hit, ok
}

// windowOf returns the window that a surface belongs to, if any.
func (c *Compositor) windowOf(s *surface) *space.Window {
	switch r := s.role.(type) {
	case *toplevel:
		return r.window
	case *popup:
		if r.node != nil {
			return r.node.Window()
		}
	}
	return nil
}

func (c *Compositor) input(ev seat.Event) {
	switch ev := ev.(type) {
	case seat.Motion:
		c.seat.Move(ev.Delta, c.outputs.Clamp)
		c.pointerMotion(ev.Time)
	case seat.MotionAbsolute:
		c.seat.Warp(ev.Position, c.outputs.Clamp)
		c.pointerMotion(ev.Time)
	case seat.Button:
		c.pointerButton(ev)
	case seat.Axis:
		c.pointerAxis(ev)
	case seat.Key:
		c.key(ev)
	case seat.TouchDownEvent:
		c.touchDown(ev)
	case seat.TouchMotionEvent:
		c.touchMotion(ev)
	case seat.TouchUpEvent:
		c.touchUp(ev)
	case seat.TouchFrame:
		c.touchFrame()
	case seat.FocusLost:
		c.seat.ClearKeys()
		c.refocusKeyboard()
	default:
		logrus.Debugf("unhandled input event %T", ev)
	}
}

func (c *Compositor) sendPointerEnter(obj *server.Object, s *surface, serial uint32) {
	l := c.local(s, c.seat.Position())
	obj.Event(wl.PointerEventEnter, func(msg *wire.MessageBuilder) {
		msg.WriteUint(serial)
		msg.WriteObject(s.obj)
		msg.WriteFixed(wire.FixedFloat(l.X))
		msg.WriteFixed(wire.FixedFloat(l.Y))
	})
	pointerFrame(obj)
}

func pointerFrame(obj *server.Object) {
	if obj.Since(5) {
		obj.Event(wl.PointerEventFrame, nil)
	}
}

// setPointerFocus moves the pointer focus to s, which may be nil.
func (c *Compositor) setPointerFocus(s *surface) {
	var h handle.Handle
	if s != nil {
		h = s.handle
	}

	old, _ := c.pointerFocus()
	change := c.seat.SetFocus(seat.Pointer, h)
	if !change.Changed() {
		return
	}

	serial := c.server.NextSerial()
	if (old != nil) && old.obj.Alive() {
		for _, obj := range stateOf(old.obj).pointers {
			obj.Event(wl.PointerEventLeave, func(msg *wire.MessageBuilder) {
				msg.WriteUint(serial)
				msg.WriteObject(old.obj)
			})
			pointerFrame(obj)
		}
	}

	c.pointer.serial = serial
	c.pointer.clientCursor = false
	c.pointer.dirty = true
	if s != nil {
		for _, obj := range stateOf(s.obj).pointers {
			c.sendPointerEnter(obj, s, serial)
		}
	}
}

// repick updates the pointer focus after the space has changed under
// a pointer that has not moved.
func (c *Compositor) repick() {
	if (c.seat.ButtonsDown() > 0) || (c.drag != nil) || (c.move != nil) {
		return
	}
	s, _, _ := c.surfaceAt(c.seat.Position())
	c.setPointerFocus(s)
}

func (c *Compositor) pointerMotion(time uint32) {
	pos := c.seat.Position()
	c.pointer.dirty = true

	if c.move != nil {
		c.updateMove(floorPoint(pos))
		return
	}
	if c.drag != nil {
		c.dragMotion(time)
		return
	}

	// While buttons are held the focused surface keeps receiving
	// motion, even outside of it.
	if _, ok := c.pointerFocus(); !ok || (c.seat.ButtonsDown() == 0) {
		s, _, _ := c.surfaceAt(pos)
		c.setPointerFocus(s)
	}

	s, ok := c.pointerFocus()
	if !ok {
		return
	}
	l := c.local(s, pos)
	for _, obj := range stateOf(s.obj).pointers {
		obj.Event(wl.PointerEventMotion, func(msg *wire.MessageBuilder) {
			msg.WriteUint(time)
			msg.WriteFixed(wire.FixedFloat(l.X))
			msg.WriteFixed(wire.FixedFloat(l.Y))
		})
		pointerFrame(obj)
	}
}

func (c *Compositor) pointerButton(ev seat.Button) {
	b, changed := c.seat.Button(ev.Button, ev.Pressed)
	if !changed {
		return
	}

	if ev.Pressed {
		s, hit, ok := c.surfaceAt(c.seat.Position())
		var h handle.Handle
		if ok {
			h = s.handle
		} else if hh, hok := c.space.SurfaceAt(floorPoint(c.seat.Position())); hok {
			h = hh.Surface
		}

		// A click that breaks a popup grab is not delivered.
		if c.seat.Press(h) {
			c.seat.Button(ev.Button, false)
			c.repick()
			return
		}
		if ok && (hit.Popup == nil) && (c.seat.ButtonsDown() == 1) {
			c.focusWindow(hit.Window)
		}
	}

	if c.drag != nil {
		if !ev.Pressed && (c.seat.ButtonsDown() == 0) {
			c.dropDrag()
			c.repick()
		}
		return
	}

	if s, ok := c.pointerFocus(); ok {
		serial := c.server.NextSerial()
		state := wl.PointerButtonStateReleased
		if ev.Pressed {
			state = wl.PointerButtonStatePressed
		}
		for _, obj := range stateOf(s.obj).pointers {
			obj.Event(wl.PointerEventButton, func(msg *wire.MessageBuilder) {
				msg.WriteUint(serial)
				msg.WriteUint(ev.Time)
				msg.WriteUint(uint32(b))
				msg.WriteUint(uint32(state))
			})
			pointerFrame(obj)
		}
	}

	if !ev.Pressed && (c.seat.ButtonsDown() == 0) {
		if c.move != nil {
			c.endMove()
		}
		c.repick()
	}
}

func (c *Compositor) pointerAxis(ev seat.Axis) {
	s, ok := c.pointerFocus()
	if !ok || (c.drag != nil) {
		return
	}

	v := c.seat.Scroll(ev.Value)
	discrete := ev.Discrete
	if v != ev.Value {
		discrete = -discrete
	}
	axis := wl.PointerAxisVerticalScroll
	if ev.Orientation == seat.AxisHorizontal {
		axis = wl.PointerAxisHorizontalScroll
	}
	source := wl.PointerAxisSourceContinuous
	if discrete != 0 {
		source = wl.PointerAxisSourceWheel
	}

	for _, obj := range stateOf(s.obj).pointers {
		if obj.Since(5) {
			obj.Event(wl.PointerEventAxisSource, func(msg *wire.MessageBuilder) {
				msg.WriteUint(uint32(source))
			})
			if discrete != 0 {
				obj.Event(wl.PointerEventAxisDiscrete, func(msg *wire.MessageBuilder) {
					msg.WriteUint(uint32(axis))
					msg.WriteInt(discrete)
				})
			}
		}
		obj.Event(wl.PointerEventAxis, func(msg *wire.MessageBuilder) {
			msg.WriteUint(ev.Time)
			msg.WriteUint(uint32(axis))
			msg.WriteFixed(wire.FixedFloat(v))
		})
		pointerFrame(obj)
	}
}

func (c *Compositor) key(ev seat.Key) {
	action, deliver := c.seat.Intercept(ev.Code, ev.Pressed)
	if action != seat.ActionNone {
		c.runAction(action)
	}

	if s, ok := c.keyboardFocus(); ok && deliver {
		serial := c.server.NextSerial()
		state := wl.KeyboardKeyStateReleased
		if ev.Pressed {
			state = wl.KeyboardKeyStatePressed
		}
		for _, obj := range stateOf(s.obj).keyboards {
			obj.Event(wl.KeyboardEventKey, func(msg *wire.MessageBuilder) {
				msg.WriteUint(serial)
				msg.WriteUint(ev.Time)
				msg.WriteUint(ev.Code)
				msg.WriteUint(uint32(state))
			})
		}
	}

	c.updateModifiers()
}

func (c *Compositor) updateModifiers() {
	mods := [2]seat.Modifiers{c.seat.Depressed(), c.seat.Locked()}
	if mods == c.sentMods {
		return
	}
	c.sentMods = mods

	s, ok := c.keyboardFocus()
	if !ok {
		return
	}
	serial := c.server.NextSerial()
	for _, obj := range stateOf(s.obj).keyboards {
		c.sendModifiers(obj, serial)
	}
}

func (c *Compositor) sendModifiers(obj *server.Object, serial uint32) {
	depressed, locked := c.seat.Depressed(), c.seat.Locked()
	obj.Event(wl.KeyboardEventModifiers, func(msg *wire.MessageBuilder) {
		msg.WriteUint(serial)
		msg.WriteUint(uint32(depressed))
		msg.WriteUint(0)
		msg.WriteUint(uint32(locked))
		msg.WriteUint(0)
	})
}

func (c *Compositor) sendKeyboardEnter(obj *server.Object, s *surface, serial uint32) {
	keys := c.seat.Keys()
	obj.Event(wl.KeyboardEventEnter, func(msg *wire.MessageBuilder) {
		msg.WriteUint(serial)
		msg.WriteObject(s.obj)
		msg.WriteUints(keys)
	})
}

func (c *Compositor) sendKeyboardLeave(s *surface, serial uint32) {
	if !s.obj.Alive() {
		return
	}
	for _, obj := range stateOf(s.obj).keyboards {
		obj.Event(wl.KeyboardEventLeave, func(msg *wire.MessageBuilder) {
			msg.WriteUint(serial)
			msg.WriteObject(s.obj)
		})
	}
}

// refocusKeyboard sends leave and enter to the focused surface so that
// its client sees the current set of held keys.
func (c *Compositor) refocusKeyboard() {
	c.updateModifiers()

	s, ok := c.keyboardFocus()
	if !ok {
		return
	}
	c.sendKeyboardLeave(s, c.server.NextSerial())
	serial := c.server.NextSerial()
	for _, obj := range stateOf(s.obj).keyboards {
		c.sendKeyboardEnter(obj, s, serial)
		c.sendModifiers(obj, serial)
	}
}

// focusSurface gives the keyboard focus to s. A nil s clears the
// focus. Surfaces outside of an active grab cannot take the focus.
func (c *Compositor) focusSurface(s *surface) {
	var h handle.Handle
	if s != nil {
		h = s.handle
		if !c.seat.Allows(h) {
			return
		}
	}

	old, _ := c.keyboardFocus()
	change := c.seat.SetFocus(seat.Keyboard, h)
	if !change.Changed() {
		return
	}

	serial := c.server.NextSerial()
	if old != nil {
		c.sendKeyboardLeave(old, serial)
	}

	var w *space.Window
	if s != nil {
		for _, obj := range stateOf(s.obj).keyboards {
			c.sendKeyboardEnter(obj, s, serial)
			c.sendModifiers(obj, serial)
		}
		c.ping(s.obj.Client())
		c.offerSelection(s.obj.Client())
		w = c.windowOf(s)
	}
	c.activate(w)
}

// activate marks w as the active window, deactivating the previous
// one. w may be nil.
func (c *Compositor) activate(w *space.Window) {
	if w == c.active {
		return
	}

	if old := c.active; old != nil {
		old.Activated = false
		if t, ok := c.toplevelOf(old); ok {
			t.reconfigure()
		}
		if old.Mapped() {
			c.space.AddDamage(c.windowBounds(old))
		}
	}

	c.active = w
	if w != nil {
		w.Activated = true
		if t, ok := c.toplevelOf(w); ok {
			t.reconfigure()
		}
		if w.Mapped() {
			c.space.AddDamage(c.windowBounds(w))
		}
	}
	c.frameDue = true
}

// focusWindow raises w and gives its surface the keyboard focus.
func (c *Compositor) focusWindow(w *space.Window) {
	if (w == nil) || !w.Mapped() {
		return
	}
	s, ok := c.surfaces.Get(w.Surface)
	if !ok || !c.seat.Allows(s.handle) {
		return
	}

	c.space.Raise(w)
	c.focusSurface(s)
}

// focusTopmost focuses the top-most window that is not minimized, or
// clears the focus if there is none.
func (c *Compositor) focusTopmost() {
	elems := c.space.Elements()
	for i := len(elems) - 1; i >= 0; i-- {
		w := elems[i]
		if w.Minimized {
			continue
		}
		if s, ok := c.surfaces.Get(w.Surface); ok && s.obj.Alive() {
			c.focusWindow(w)
			return
		}
	}
	c.focusSurface(nil)
}

// windowBounds returns the area covered by w including its border.
func (c *Compositor) windowBounds(w *space.Window) image.Rectangle {
	g := w.Geometry()
	if w.Fullscreen {
		return g
	}
	return g.Inset(-c.config.Appearance.BorderWidth)
}

// unmapWindow removes w from the space and moves input focus away
// from it.
func (c *Compositor) unmapWindow(w *space.Window) {
	if !w.Mapped() {
		return
	}

	bounds := c.windowBounds(w)
	for _, p := range c.space.Unmap(w) {
		c.popupClosed(p)
	}
	c.space.AddDamage(bounds)

	if c.active == w {
		c.active = nil
		w.Activated = false
	}
	if (c.move != nil) && (c.move.window == w) {
		c.move = nil
	}
	if h, ok := c.seat.Focus(seat.Pointer); ok && (h == w.Surface) {
		c.setPointerFocus(nil)
	}
	if h, ok := c.seat.Focus(seat.Keyboard); ok && (h == w.Surface) {
		c.focusTopmost()
	}
	c.frameDue = true
}

func (c *Compositor) touchDown(ev seat.TouchDownEvent) {
	if !c.config.Input.Touch.Enabled {
		return
	}

	s, hit, ok := c.surfaceAt(ev.Position)
	if !ok {
		c.seat.TouchDown(ev.ID, ev.Position, handle.Handle{})
		return
	}
	c.seat.TouchDown(ev.ID, ev.Position, s.handle)
	if hit.Popup == nil {
		c.focusWindow(hit.Window)
	}

	cs := stateOf(s.obj)
	serial := c.server.NextSerial()
	l := c.local(s, ev.Position)
	for _, obj := range cs.touches {
		obj.Event(wl.TouchEventDown, func(msg *wire.MessageBuilder) {
			msg.WriteUint(serial)
			msg.WriteUint(ev.Time)
			msg.WriteObject(s.obj)
			msg.WriteInt(ev.ID)
			msg.WriteFixed(wire.FixedFloat(l.X))
			msg.WriteFixed(wire.FixedFloat(l.Y))
		})
	}
	c.touched.Add(cs)
}

func (c *Compositor) touchMotion(ev seat.TouchMotionEvent) {
	tp, ok := c.seat.TouchMotion(ev.ID, ev.Position)
	if !ok {
		return
	}
	s, ok := c.surfaces.Get(tp.Focus)
	if !ok {
		return
	}

	cs := stateOf(s.obj)
	l := c.local(s, ev.Position)
	for _, obj := range cs.touches {
		obj.Event(wl.TouchEventMotion, func(msg *wire.MessageBuilder) {
			msg.WriteUint(ev.Time)
			msg.WriteInt(ev.ID)
			msg.WriteFixed(wire.FixedFloat(l.X))
			msg.WriteFixed(wire.FixedFloat(l.Y))
		})
	}
	c.touched.Add(cs)
}

func (c *Compositor) touchUp(ev seat.TouchUpEvent) {
	tp, ok := c.seat.TouchUp(ev.ID)
	if !ok {
		return
	}
	s, ok := c.surfaces.Get(tp.Focus)
	if !ok {
		return
	}

	cs := stateOf(s.obj)
	serial := c.server.NextSerial()
	for _, obj := range cs.touches {
		obj.Event(wl.TouchEventUp, func(msg *wire.MessageBuilder) {
			msg.WriteUint(serial)
			msg.WriteUint(ev.Time)
			msg.WriteInt(ev.ID)
		})
	}
	c.touched.Add(cs)
}

func (c *Compositor) touchFrame() {
	for cs := range c.touched {
		for _, obj := range cs.touches {
			obj.Event(wl.TouchEventFrame, nil)
		}
	}
	clear(c.touched)
}
