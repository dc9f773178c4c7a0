package backend

import (
	"fmt"
	"image"

	"deedles.dev/wlcomp/output"
	"deedles.dev/wlcomp/pointer"
	"deedles.dev/wlcomp/seat"
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/sirupsen/logrus"
)

// X11 runs the compositor nested inside an X11 session, with one
// window per output.
type X11 struct {
	opts Options
	xu   *xgbutil.XUtil
	host Host

	deleteWindow xproto.Atom
	cursor       xproto.Cursor
	windows      map[xproto.Window]*x11Output
	byName       map[string]*x11Output
}

type x11Output struct {
	win  xproto.Window
	gc   xproto.Gcontext
	name string
}

const x11EventMask = xproto.EventMaskExposure |
	xproto.EventMaskKeyPress |
	xproto.EventMaskKeyRelease |
	xproto.EventMaskButtonPress |
	xproto.EventMaskButtonRelease |
	xproto.EventMaskPointerMotion |
	xproto.EventMaskStructureNotify |
	xproto.EventMaskFocusChange

// NewX11 connects to the X server named by $DISPLAY.
func NewX11(opts Options) (*X11, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connect to X server: %w", err)
	}

	deleteWindow, err := xprop.Atm(xu, "WM_DELETE_WINDOW")
	if err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("intern WM_DELETE_WINDOW: %w", err)
	}

	return &X11{
		opts:         opts.withDefaults(),
		xu:           xu,
		deleteWindow: deleteWindow,
		windows:      make(map[xproto.Window]*x11Output),
		byName:       make(map[string]*x11Output),
	}, nil
}

func (x *X11) Name() string {
	return "x11"
}

func (x *X11) Start(host Host) error {
	x.host = host

	cursor, err := x.blankCursor()
	if err != nil {
		return err
	}
	x.cursor = cursor

	for i := 1; i <= x.opts.Outputs; i++ {
		name := fmt.Sprintf("X11-%v", i)
		xo, err := x.createWindow(name)
		if err != nil {
			return err
		}
		x.windows[xo.win] = xo
		x.byName[name] = xo

		host.AddOutput(&output.Output{
			Name:        name,
			Description: "X11 window",
			Make:        "wlcomp",
			Model:       "x11",
			Mode:        output.Mode{Size: x.opts.Size, Refresh: x.opts.Refresh},
			Scale:       1,
		})
	}

	go x.events()
	return nil
}

// blankCursor creates an invisible cursor so that only the
// compositor's own cursor shows inside of the windows.
func (x *X11) blankCursor() (xproto.Cursor, error) {
	conn := x.xu.Conn()

	pix, err := xproto.NewPixmapId(conn)
	if err != nil {
		return 0, err
	}
	err = xproto.CreatePixmapChecked(conn, 1, pix, xproto.Drawable(x.xu.RootWin()), 1, 1).Check()
	if err != nil {
		return 0, fmt.Errorf("create cursor pixmap: %w", err)
	}
	defer xproto.FreePixmap(conn, pix)

	cursor, err := xproto.NewCursorId(conn)
	if err != nil {
		return 0, err
	}
	err = xproto.CreateCursorChecked(conn, cursor, pix, pix, 0, 0, 0, 0, 0, 0, 0, 0).Check()
	if err != nil {
		return 0, fmt.Errorf("create cursor: %w", err)
	}
	return cursor, nil
}

func (x *X11) createWindow(name string) (*x11Output, error) {
	conn := x.xu.Conn()
	screen := x.xu.Screen()

	win, err := xproto.NewWindowId(conn)
	if err != nil {
		return nil, err
	}

	// Values are ordered by their mask bits.
	err = xproto.CreateWindowChecked(
		conn,
		screen.RootDepth,
		win,
		x.xu.RootWin(),
		0, 0,
		uint16(x.opts.Size.X), uint16(x.opts.Size.Y),
		0,
		xproto.WindowClassInputOutput,
		screen.RootVisual,
		xproto.CwBackPixel|xproto.CwEventMask|xproto.CwCursor,
		[]uint32{0, x11EventMask, uint32(x.cursor)},
	).Check()
	if err != nil {
		return nil, fmt.Errorf("create window for %v: %w", name, err)
	}

	err = ewmh.WmNameSet(x.xu, win, "wlcomp - "+name)
	if err != nil {
		logrus.WithError(err).WithField("output", name).Warnln("set window title")
	}
	err = icccm.WmProtocolsSet(x.xu, win, []string{"WM_DELETE_WINDOW"})
	if err != nil {
		logrus.WithError(err).WithField("output", name).Warnln("set WM_PROTOCOLS")
	}

	gc, err := xproto.NewGcontextId(conn)
	if err != nil {
		return nil, err
	}
	err = xproto.CreateGCChecked(conn, gc, xproto.Drawable(win), 0, nil).Check()
	if err != nil {
		return nil, fmt.Errorf("create graphics context for %v: %w", name, err)
	}

	xproto.MapWindow(conn, win)
	return &x11Output{win: win, gc: gc, name: name}, nil
}

// events runs until the connection is closed.
func (x *X11) events() {
	conn := x.xu.Conn()
	for {
		ev, xerr := conn.WaitForEvent()
		switch {
		case (ev == nil) && (xerr == nil):
			return
		case xerr != nil:
			logrus.WithField("error", xerr).Debugln("X11 error")
			continue
		}

		ok := x.host.Post(func() error {
			x.handle(ev)
			return nil
		})
		if !ok {
			return
		}
	}
}

func (x *X11) handle(ev xgb.Event) {
	switch ev := ev.(type) {
	case xproto.KeyPressEvent:
		x.host.Input(seat.Key{Time: uint32(ev.Time), Code: uint32(ev.Detail) - 8, Pressed: true})

	case xproto.KeyReleaseEvent:
		x.host.Input(seat.Key{Time: uint32(ev.Time), Code: uint32(ev.Detail) - 8})

	case xproto.ButtonPressEvent:
		x.button(uint32(ev.Time), ev.Detail, true)

	case xproto.ButtonReleaseEvent:
		x.button(uint32(ev.Time), ev.Detail, false)

	case xproto.MotionNotifyEvent:
		xo, ok := x.windows[ev.Event]
		if !ok {
			return
		}
		o, ok := x.host.Output(xo.name)
		if !ok {
			return
		}
		pos := o.FromBuffer(image.Pt(int(ev.EventX), int(ev.EventY)))
		x.host.Input(seat.MotionAbsolute{Time: uint32(ev.Time), Position: pos})
	case xproto.ExposeEvent:
		if ev.Count != 0 {
			return
		}
		if xo, ok := x.windows[ev.Window]; ok {
			x.damageOutput(xo.name)
		}

	case xproto.ConfigureNotifyEvent:
		xo, ok := x.windows[ev.Window]
		if !ok {
			return
		}
		size := image.Pt(int(ev.Width), int(ev.Height))
		if o, ok := x.host.Output(xo.name); !ok || (o.Mode.Size == size) {
			return
		}
		x.host.UpdateOutput(xo.name, func(o *output.Output) {
			o.Mode.Size = size
		})

	case xproto.ClientMessageEvent:
		if xproto.Atom(ev.Data.Data32[0]) != x.deleteWindow {
			return
		}
		xo, ok := x.windows[ev.Window]
		if !ok {
			return
		}
		x.destroy(xo)
		x.host.RemoveOutput(xo.name)
		if len(x.windows) == 0 {
			x.host.Stop()
		}

	case xproto.FocusOutEvent:
		x.host.Input(seat.FocusLost{})
	}
}

func (x *X11) damageOutput(name string) {
	if o, ok := x.host.Output(name); ok {
		x.host.Damage(o.Geometry())
	}
}

func (x *X11) button(time uint32, detail xproto.Button, pressed bool) {
	if b, ok := xButton(detail); ok {
		x.host.Input(seat.Button{Time: time, Button: b, Pressed: pressed})
		return
	}

	if !pressed {
		return
	}
	if ev, ok := xAxis(time, detail); ok {
		x.host.Input(ev)
	}
}

// xButton maps an X11 core button to a Linux button code.
func xButton(detail xproto.Button) (pointer.Button, bool) {
	switch detail {
	case 1:
		return pointer.ButtonLeft, true
	case 2:
		return pointer.ButtonMiddle, true
	case 3:
		return pointer.ButtonRight, true
	case 8:
		return pointer.ButtonSide, true
	case 9:
		return pointer.ButtonExtra, true
	}
	return 0, false
}

// scrollStep is the distance scrolled by one wheel click.
const scrollStep = 15

// xAxis maps the X11 core scroll buttons to an axis event.
func xAxis(time uint32, detail xproto.Button) (seat.Axis, bool) {
	switch detail {
	case 4:
		return seat.Axis{Time: time, Orientation: seat.AxisVertical, Value: -scrollStep, Discrete: -1}, true
	case 5:
		return seat.Axis{Time: time, Orientation: seat.AxisVertical, Value: scrollStep, Discrete: 1}, true
	case 6:
		return seat.Axis{Time: time, Orientation: seat.AxisHorizontal, Value: -scrollStep, Discrete: -1}, true
	case 7:
		return seat.Axis{Time: time, Orientation: seat.AxisHorizontal, Value: scrollStep, Discrete: 1}, true
	}
	return seat.Axis{}, false
}

// Present uploads frame to the output's window, splitting it into as
// many requests as the server's maximum request length requires.
func (x *X11) Present(out *output.Output, frame image.Image) error {
	xo, ok := x.byName[out.Name]
	if !ok {
		return fmt.Errorf("no window for output %v", out.Name)
	}

	conn := x.xu.Conn()
	img := argb8888(frame)
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if (w == 0) || (h == 0) {
		return nil
	}

	const putImageHeader = 28
	limit := int(xproto.Setup(conn).MaximumRequestLength)*4 - putImageHeader
	rows := max(1, limit/(4*w))
	for y := 0; y < h; y += rows {
		n := min(rows, h-y)
		data := img.Pix[y*img.Stride : (y+n)*img.Stride]
		xproto.PutImage(
			conn,
			xproto.ImageFormatZPixmap,
			xproto.Drawable(xo.win),
			xo.gc,
			uint16(w), uint16(n),
			0, int16(y),
			0,
			x.xu.Screen().RootDepth,
			data,
		)
	}
	return nil
}

func (x *X11) destroy(xo *x11Output) {
	conn := x.xu.Conn()
	xproto.FreeGC(conn, xo.gc)
	xproto.DestroyWindow(conn, xo.win)
	delete(x.windows, xo.win)
	delete(x.byName, xo.name)
}

func (x *X11) Close() error {
	for _, xo := range x.windows {
		x.destroy(xo)
	}
	if x.cursor != 0 {
		xproto.FreeCursor(x.xu.Conn(), x.cursor)
	}
	x.xu.Conn().Close()
	return nil
}
