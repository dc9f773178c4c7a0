package compositor

import (
	"fmt"
	"image"
	"os"

	"deedles.dev/wlcomp/config"
	"deedles.dev/wlcomp/internal/xslices"
	"deedles.dev/wlcomp/proto/wl"
	"deedles.dev/wlcomp/server"
	"deedles.dev/wlcomp/shm"
	"deedles.dev/wlcomp/wire"
	"github.com/sirupsen/logrus"
)

var (
	seatInterface     = server.NewInterface(wl.SeatInterface, wl.SeatVersion, wl.SeatRequests, wl.SeatEvents)
	pointerInterface  = server.NewInterface(wl.PointerInterface, wl.PointerVersion, wl.PointerRequests, wl.PointerEvents)
	keyboardInterface = server.NewInterface(wl.KeyboardInterface, wl.KeyboardVersion, wl.KeyboardRequests, wl.KeyboardEvents)
	touchInterface    = server.NewInterface(wl.TouchInterface, wl.TouchVersion, wl.TouchRequests, wl.TouchEvents)
)

func init() {
	seatInterface.
		Handle(wl.SeatGetPointer, seatGetPointer).
		Handle(wl.SeatGetKeyboard, seatGetKeyboard).
		Handle(wl.SeatGetTouch, seatGetTouch).
		Destructor(wl.SeatRelease, nil)
	pointerInterface.
		Handle(wl.PointerSetCursor, pointerSetCursor).
		Destructor(wl.PointerRelease, nil)
	keyboardInterface.
		Destructor(wl.KeyboardRelease, nil)
	touchInterface.
		Destructor(wl.TouchRelease, nil)
}

func (c *Compositor) capabilities() wl.SeatCapability {
	caps := wl.SeatCapabilityPointer | wl.SeatCapabilityKeyboard
	if c.config.Input.Touch.Enabled {
		caps |= wl.SeatCapabilityTouch
	}
	return caps
}

func (c *Compositor) bindSeat(obj *server.Object) error {
	track(&stateOf(obj).seats, obj)

	c.sendCapabilities(obj)
	if obj.Since(2) {
		obj.Event(wl.SeatEventName, func(msg *wire.MessageBuilder) {
			msg.WriteString(c.seat.Name())
		})
	}
	return nil
}

func (c *Compositor) sendCapabilities(obj *server.Object) {
	caps := c.capabilities()
	obj.Event(wl.SeatEventCapabilities, func(msg *wire.MessageBuilder) {
		msg.WriteUint(uint32(caps))
	})
}

// track adds a device object to list and removes it again when it is
// destroyed.
func track(list *[]*server.Object, obj *server.Object) {
	*list = append(*list, obj)
	obj.OnDestroy(func() { *list = xslices.Remove(*list, obj) })
}

func seatGetPointer(obj *server.Object, msg *wire.MessageBuffer) error {
	id := msg.ReadObject()
	if err := msg.Err(); err != nil {
		return err
	}

	pobj, err := obj.Client().NewObject(id, pointerInterface, obj.Version())
	if err != nil {
		return err
	}
	cs := stateOf(obj)
	track(&cs.pointers, pobj)

	c := cs.comp
	if s, ok := c.pointerFocus(); ok && (s.obj.Client() == obj.Client()) {
		c.sendPointerEnter(pobj, s, c.pointer.serial)
	}
	return nil
}

func seatGetKeyboard(obj *server.Object, msg *wire.MessageBuffer) error {
	id := msg.ReadObject()
	if err := msg.Err(); err != nil {
		return err
	}

	kobj, err := obj.Client().NewObject(id, keyboardInterface, obj.Version())
	if err != nil {
		return err
	}
	cs := stateOf(obj)
	track(&cs.keyboards, kobj)

	c := cs.comp
	c.sendKeymap(kobj)
	c.sendRepeatInfo(kobj)
	if s, ok := c.keyboardFocus(); ok && (s.obj.Client() == obj.Client()) {
		serial := c.server.NextSerial()
		c.sendKeyboardEnter(kobj, s, serial)
		c.sendModifiers(kobj, serial)
	}
	return nil
}

func seatGetTouch(obj *server.Object, msg *wire.MessageBuffer) error {
	id := msg.ReadObject()
	if err := msg.Err(); err != nil {
		return err
	}

	tobj, err := obj.Client().NewObject(id, touchInterface, obj.Version())
	if err != nil {
		return err
	}
	cs := stateOf(obj)
	track(&cs.touches, tobj)
	return nil
}

// cursorRole is the role of a surface used as a pointer image.
type cursorRole struct {
	comp *Compositor
	s    *surface
}

func (r *cursorRole) commit(damage []image.Rectangle) error {
	c := r.comp
	if c.pointer.cursor == r.s {
		c.pointer.hotspot = c.pointer.hotspot.Sub(r.s.delta)
		c.pointer.dirty = true
	}
	return nil
}

func (r *cursorRole) surfaceDestroyed() {}

func pointerSetCursor(obj *server.Object, msg *wire.MessageBuffer) error {
	_ = msg.ReadUint()
	surfID := msg.ReadObject()
	hx, hy := msg.ReadInt(), msg.ReadInt()
	if err := msg.Err(); err != nil {
		return err
	}

	sobj, err := obj.Client().LookupNullable(surfID, surfaceInterface)
	if err != nil {
		return err
	}

	c := compositorOf(obj)
	focus, ok := c.pointerFocus()
	if !ok || (focus.obj.Client() != obj.Client()) {
		return nil
	}

	var s *surface
	if sobj != nil {
		s = sobj.Data.(*surface)
		switch s.role.(type) {
		case nil:
			s.role = &cursorRole{comp: c, s: s}
		case *cursorRole:
		default:
			return obj.Error(uint32(wl.PointerErrorRole), "%v already has another role", sobj)
		}
	}

	c.pointer.cursor = s
	c.pointer.hotspot = image.Pt(int(hx), int(hy))
	c.pointer.clientCursor = true
	c.pointer.dirty = true
	return nil
}

// keymapSource returns the text of the keymap described by the
// configuration, or nil if there should be none.
func keymapSource(cfg *config.Keyboard) ([]byte, error) {
	if cfg.Keymap != "" {
		data, err := os.ReadFile(cfg.Keymap)
		if err != nil {
			return nil, fmt.Errorf("read keymap: %w", err)
		}
		return data, nil
	}
	if cfg.Layout == "" {
		return nil, nil
	}

	symbols := "pc+" + cfg.Layout
	if cfg.Variant != "" {
		symbols += "(" + cfg.Variant + ")"
	}
	symbols += "+inet(evdev)"

	km := fmt.Sprintf(`xkb_keymap {
	xkb_keycodes { include "evdev+aliases(qwerty)" };
	xkb_types { include "complete" };
	xkb_compat { include "complete" };
	xkb_symbols { include %q };
};
`, symbols)
	return []byte(km), nil
}

// loadKeymap replaces the keymap sent to keyboards. If the configured
// keymap cannot be loaded, clients are told that there is no keymap.
func (c *Compositor) loadKeymap(cfg *config.Keyboard) {
	if c.keymap != nil {
		c.keymap.Close()
		c.keymap, c.keymapSize = nil, 0
	}

	data, err := keymapSource(cfg)
	if err != nil {
		logrus.WithError(err).Warnln("load keymap")
		return
	}
	if data == nil {
		return
	}

	data = append(data, 0)
	file, err := shm.CreateWith("wlcomp-keymap", data)
	if err != nil {
		logrus.WithError(err).Warnln("share keymap")
		return
	}
	c.keymap = file
	c.keymapSize = uint32(len(data))
}

func (c *Compositor) sendKeymap(obj *server.Object) {
	if c.keymap == nil {
		null, err := os.Open(os.DevNull)
		if err != nil {
			logrus.WithError(err).Warnln("open null keymap")
			return
		}
		defer null.Close()

		obj.Event(wl.KeyboardEventKeymap, func(msg *wire.MessageBuilder) {
			msg.WriteUint(uint32(wl.KeyboardKeymapFormatNoKeymap))
			msg.WriteFile(null)
			msg.WriteUint(0)
		})
		return
	}

	obj.Event(wl.KeyboardEventKeymap, func(msg *wire.MessageBuilder) {
		msg.WriteUint(uint32(wl.KeyboardKeymapFormatXkbV1))
		msg.WriteFile(c.keymap)
		msg.WriteUint(c.keymapSize)
	})
}

func (c *Compositor) sendRepeatInfo(obj *server.Object) {
	if !obj.Since(4) {
		return
	}

	cfg := c.seat.Config()
	obj.Event(wl.KeyboardEventRepeatInfo, func(msg *wire.MessageBuilder) {
		msg.WriteInt(cfg.RepeatRate)
		msg.WriteInt(cfg.RepeatDelay)
	})
}
