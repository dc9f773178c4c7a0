package compositor

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"deedles.dev/wlcomp/backend"
	"deedles.dev/wlcomp/client"
	"deedles.dev/wlcomp/config"
	"deedles.dev/wlcomp/pointer"
	"deedles.dev/wlcomp/proto/wl"
	"deedles.dev/wlcomp/proto/xdg"
	"deedles.dev/wlcomp/render"
	"deedles.dev/wlcomp/seat"
	"deedles.dev/wlcomp/wire"
	"deedles.dev/ximage/geom"
)

type testCompositor struct {
	*Compositor
	backend *backend.Headless
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.General.Terminal = ""
	cfg.General.Launcher = ""
	return cfg
}

func newTestCompositor(t *testing.T, cfg *config.Config, path string) *testCompositor {
	t.Helper()

	lis, err := wire.Listen(filepath.Join(t.TempDir(), "wayland-test"))
	if err != nil {
		t.Fatal(err)
	}

	be := backend.NewHeadless(backend.Options{Size: image.Pt(640, 480)})
	c, err := New(Options{
		Config:     cfg,
		ConfigPath: path,
		Backend:    be,
		Listener:   lis,
	})
	if err != nil {
		t.Fatal(err)
	}
	return &testCompositor{Compositor: c, backend: be}
}

func startCompositor(t *testing.T) *testCompositor {
	t.Helper()
	return startCompositorWith(t, testConfig(), "")
}

func startCompositorWith(t *testing.T, cfg *config.Config, path string) *testCompositor {
	t.Helper()

	c := newTestCompositor(t, cfg, path)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := c.Run(ctx)
		if err != nil {
			t.Errorf("run: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return c
}

// eventually polls cond on the compositor's loop until it returns
// true.
func (c *testCompositor) eventually(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var ok bool
		err := c.do(func() error {
			ok = cond()
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func (c *testCompositor) check(t *testing.T, f func() error) {
	t.Helper()
	err := c.do(f)
	if err != nil {
		t.Fatal(err)
	}
}

type testClient struct {
	t       *testing.T
	display *client.Display

	compositor *client.Object
	shm        *client.Object
	wmBase     *client.Object
	seat       *client.Object
}

func connect(t *testing.T, c *testCompositor) *testClient {
	t.Helper()

	d, err := client.DialPath(c.lis.Path())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })

	reg, err := d.Registry()
	if err != nil {
		t.Fatal(err)
	}
	err = d.RoundTrip()
	if err != nil {
		t.Fatal(err)
	}

	tc := testClient{t: t, display: d}
	bind := func(iface string, version uint32) *client.Object {
		obj, err := reg.Bind(iface, version)
		if err != nil {
			t.Fatalf("bind %v: %v", iface, err)
		}
		return obj
	}
	tc.compositor = bind(wl.CompositorInterface, 4)
	tc.shm = bind(wl.ShmInterface, 1)
	tc.wmBase = bind(xdg.WmBaseInterface, 3)
	tc.seat = bind(wl.SeatInterface, 5)

	tc.wmBase.On(xdg.WmBaseEventPing, func(msg *wire.MessageBuffer) {
		serial := msg.ReadUint()
		tc.wmBase.Request(xdg.WmBasePong, func(msg *wire.MessageBuilder) {
			msg.WriteUint(serial)
		})
	})

	tc.roundTrip()
	return &tc
}

func (tc *testClient) roundTrip() {
	tc.t.Helper()
	err := tc.display.RoundTrip()
	if err != nil {
		tc.t.Fatal(err)
	}
}

func (tc *testClient) create(parent *client.Object, op uint16, iface string, args func(*wire.MessageBuilder)) *client.Object {
	tc.t.Helper()
	obj, err := parent.Create(op, iface, args)
	if err != nil {
		tc.t.Fatal(err)
	}
	return obj
}

func (tc *testClient) request(obj *client.Object, op uint16, args func(*wire.MessageBuilder)) {
	tc.t.Helper()
	err := obj.Request(op, args)
	if err != nil {
		tc.t.Fatal(err)
	}
}

type testWindow struct {
	surface  *client.Object
	xdg      *client.Object
	toplevel *client.Object
	buffer   *client.Buffer

	configured bool
	serial     uint32
	size       image.Point
	states     []byte
}

// newWindow creates a toplevel without committing anything.
func (tc *testClient) newWindow() *testWindow {
	tc.t.Helper()

	var win testWindow
	win.surface = tc.create(tc.compositor, wl.CompositorCreateSurface, wl.SurfaceInterface, nil)
	win.xdg = tc.create(tc.wmBase, xdg.WmBaseGetXdgSurface, xdg.SurfaceInterface, func(msg *wire.MessageBuilder) {
		msg.WriteObject(win.surface)
	})
	win.xdg.On(xdg.SurfaceEventConfigure, func(msg *wire.MessageBuffer) {
		win.serial = msg.ReadUint()
		win.configured = true
	})
	win.toplevel = tc.create(win.xdg, xdg.SurfaceGetToplevel, xdg.ToplevelInterface, nil)
	win.toplevel.On(xdg.ToplevelEventConfigure, func(msg *wire.MessageBuffer) {
		win.size = image.Pt(int(msg.ReadInt()), int(msg.ReadInt()))
		win.states = msg.ReadArray()
	})
	return &win
}

func (tc *testClient) attach(win *testWindow, w, h int32, c color.Color) {
	tc.t.Helper()

	buf, err := client.NewBuffer(tc.shm, w, h)
	if err != nil {
		tc.t.Fatal(err)
	}
	buf.Fill(image.NewUniform(c))
	win.buffer = buf

	tc.request(win.surface, wl.SurfaceAttach, func(msg *wire.MessageBuilder) {
		msg.WriteObject(buf.Object)
		msg.WriteInt(0)
		msg.WriteInt(0)
	})
}

// mapWindow creates a toplevel and goes through the initial configure
// sequence until it is mapped with a w by h buffer.
func (tc *testClient) mapWindow(w, h int32) *testWindow {
	tc.t.Helper()

	win := tc.newWindow()
	tc.request(win.surface, wl.SurfaceCommit, nil)
	tc.roundTrip()
	if !win.configured {
		tc.t.Fatal("no configure after the initial commit")
	}

	tc.request(win.xdg, xdg.SurfaceAckConfigure, func(msg *wire.MessageBuilder) {
		msg.WriteUint(win.serial)
	})
	tc.attach(win, w, h, color.RGBA{R: 0xFF, A: 0xFF})
	tc.request(win.surface, wl.SurfaceCommit, nil)
	tc.roundTrip()
	return win
}

func hasState(states []byte, state xdg.ToplevelState) bool {
	for i := 0; i+4 <= len(states); i += 4 {
		v := uint32(states[i]) | uint32(states[i+1])<<8 | uint32(states[i+2])<<16 | uint32(states[i+3])<<24
		if v == uint32(state) {
			return true
		}
	}
	return false
}

func TestMapToplevel(t *testing.T) {
	c := startCompositor(t)
	tc := connect(t, c)

	win := tc.mapWindow(200, 100)
	tc.roundTrip()
	if !hasState(win.states, xdg.ToplevelStateActivated) {
		t.Fatalf("mapped window was not activated: %v", win.states)
	}

	c.check(t, func() error {
		elems := c.space.Elements()
		if len(elems) != 1 {
			t.Errorf("expected 1 window but got %v", len(elems))
			return nil
		}
		w := elems[0]
		if size := w.Geometry().Size(); size != image.Pt(200, 100) {
			t.Errorf("expected size (200,100) but got %v", size)
		}
		if !w.Activated {
			t.Error("window is not activated")
		}
		if c.active != w {
			t.Error("window is not the active window")
		}

		s, ok := c.keyboardFocus()
		if !ok {
			t.Error("no keyboard focus")
			return nil
		}
		if s.obj.ID() != win.surface.ID() {
			t.Errorf("keyboard focus on %v, expected %v", s.obj, win.surface)
		}
		return nil
	})
}

func TestRoleConflict(t *testing.T) {
	c := startCompositor(t)
	tc := connect(t, c)

	win := tc.newWindow()
	tc.create(tc.wmBase, xdg.WmBaseGetXdgSurface, xdg.SurfaceInterface, func(msg *wire.MessageBuilder) {
		msg.WriteObject(win.surface)
	})

	err := tc.display.RoundTrip()
	var perr *client.ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("expected a protocol error but got %v", err)
	}
	if (perr.Object != tc.wmBase.ID()) || (perr.Code != uint32(xdg.WmBaseErrorRole)) {
		t.Fatalf("unexpected error: %v", perr)
	}
}

func TestProtocolErrorIsolation(t *testing.T) {
	c := startCompositor(t)
	good := connect(t, c)
	bad := connect(t, c)

	win := bad.newWindow()
	bad.create(bad.wmBase, xdg.WmBaseGetXdgSurface, xdg.SurfaceInterface, func(msg *wire.MessageBuilder) {
		msg.WriteObject(win.surface)
	})
	err := bad.display.RoundTrip()
	var perr *client.ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("expected a protocol error but got %v", err)
	}

	good.mapWindow(120, 80)
	good.roundTrip()
	c.eventually(t, func() bool {
		elems := c.space.Elements()
		return (len(elems) == 1) && (elems[0].Geometry().Size() == image.Pt(120, 80))
	})
	c.eventually(t, func() bool { return len(c.server.Clients()) == 1 })
}

func TestBufferBeforeConfigure(t *testing.T) {
	c := startCompositor(t)
	tc := connect(t, c)

	win := tc.newWindow()
	tc.attach(win, 50, 50, color.White)
	tc.request(win.surface, wl.SurfaceCommit, nil)

	err := tc.display.RoundTrip()
	var perr *client.ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("expected a protocol error but got %v", err)
	}
	if (perr.Object != win.xdg.ID()) || (perr.Code != uint32(xdg.SurfaceErrorUnconfiguredBuffer)) {
		t.Fatalf("unexpected error: %v", perr)
	}
}

func TestCommitWithoutRole(t *testing.T) {
	c := startCompositor(t)
	tc := connect(t, c)

	win := &testWindow{
		surface: tc.create(tc.compositor, wl.CompositorCreateSurface, wl.SurfaceInterface, nil),
	}
	tc.attach(win, 30, 30, color.White)
	tc.request(win.surface, wl.SurfaceCommit, nil)
	tc.roundTrip()

	c.check(t, func() error {
		if n := len(c.space.Elements()); n != 0 {
			t.Errorf("surface without a role produced %v windows", n)
		}
		return nil
	})

	// Giving the same surface a toplevel role maps exactly one window.
	tc.request(win.surface, wl.SurfaceAttach, func(msg *wire.MessageBuilder) {
		msg.WriteObject(nil)
		msg.WriteInt(0)
		msg.WriteInt(0)
	})
	tc.request(win.surface, wl.SurfaceCommit, nil)
	win.xdg = tc.create(tc.wmBase, xdg.WmBaseGetXdgSurface, xdg.SurfaceInterface, func(msg *wire.MessageBuilder) {
		msg.WriteObject(win.surface)
	})
	win.xdg.On(xdg.SurfaceEventConfigure, func(msg *wire.MessageBuffer) {
		win.serial = msg.ReadUint()
		win.configured = true
	})
	win.toplevel = tc.create(win.xdg, xdg.SurfaceGetToplevel, xdg.ToplevelInterface, nil)
	tc.request(win.surface, wl.SurfaceCommit, nil)
	tc.roundTrip()
	if !win.configured {
		t.Fatal("no configure after the initial commit")
	}
	tc.request(win.xdg, xdg.SurfaceAckConfigure, func(msg *wire.MessageBuilder) {
		msg.WriteUint(win.serial)
	})
	tc.attach(win, 30, 30, color.White)
	tc.request(win.surface, wl.SurfaceCommit, nil)
	tc.roundTrip()

	c.check(t, func() error {
		elems := c.space.Elements()
		if len(elems) != 1 {
			t.Errorf("expected 1 window but got %v", len(elems))
			return nil
		}
		if p := elems[0].Geometry().Min; p != image.Pt(0, 0) {
			t.Errorf("window placed at %v", p)
		}
		return nil
	})
}

func TestDisconnect(t *testing.T) {
	c := startCompositor(t)
	tc := connect(t, c)

	var entered bool
	ptr := tc.create(tc.seat, wl.SeatGetPointer, wl.PointerInterface, nil)
	ptr.On(wl.PointerEventEnter, func(msg *wire.MessageBuffer) { entered = true })

	tc.mapWindow(100, 100)
	c.eventually(t, func() bool { return len(c.space.Elements()) == 1 })

	c.backend.Inject(seat.MotionAbsolute{Position: geom.Pt(50.0, 50.0)})
	err := tc.display.WaitFor(func() bool { return entered })
	if err != nil {
		t.Fatal(err)
	}

	tc.display.Close()
	c.eventually(t, func() bool {
		_, keyboard := c.keyboardFocus()
		_, pointer := c.pointerFocus()
		return (len(c.space.Elements()) == 0) && !keyboard && !pointer && (c.active == nil)
	})
}

func TestStacking(t *testing.T) {
	c := startCompositor(t)
	first := connect(t, c)
	second := connect(t, c)

	var entered uint32
	ptr := second.create(second.seat, wl.SeatGetPointer, wl.PointerInterface, nil)
	ptr.On(wl.PointerEventEnter, func(msg *wire.MessageBuffer) {
		msg.ReadUint()
		entered = msg.ReadObject()
	})

	firstWin := first.mapWindow(200, 200)
	secondWin := second.mapWindow(200, 200)

	c.check(t, func() error {
		elems := c.space.Elements()
		if len(elems) != 2 {
			t.Errorf("expected 2 windows but got %v", len(elems))
			return nil
		}
		if p := elems[0].Geometry().Min; p != image.Pt(0, 0) {
			t.Errorf("first window placed at %v", p)
		}
		if p := elems[1].Geometry().Min; p != image.Pt(8, 8) {
			t.Errorf("second window placed at %v", p)
		}

		hit, ok := c.space.SurfaceAt(image.Pt(100, 100))
		if !ok || (hit.Window != elems[1]) {
			t.Errorf("overlap hit %v, expected the topmost window", hit.Window)
		}
		if hit.Local != image.Pt(92, 92) {
			t.Errorf("expected local point (92,92) but got %v", hit.Local)
		}
		return nil
	})

	c.backend.Inject(seat.MotionAbsolute{Position: geom.Pt(100.0, 100.0)})
	err := second.display.WaitFor(func() bool { return entered != 0 })
	if err != nil {
		t.Fatal(err)
	}
	if entered != secondWin.surface.ID() {
		t.Fatalf("pointer entered %v, expected %v", entered, secondWin.surface.ID())
	}

	// Clicking the exposed corner of the lower window raises it.
	c.backend.Inject(seat.MotionAbsolute{Position: geom.Pt(2.0, 2.0)})
	c.backend.Inject(seat.Button{Button: pointer.ButtonLeft, Pressed: true})
	c.backend.Inject(seat.Button{Button: pointer.ButtonLeft, Pressed: false})
	c.check(t, func() error {
		elems := c.space.Elements()
		top := elems[len(elems)-1]
		s, ok := c.surfaces.Get(top.Surface)
		if !ok || (s.obj.ID() != firstWin.surface.ID()) || (s.obj.Client() != top.Client) {
			t.Error("clicked window was not raised")
		}
		if c.active != top {
			t.Error("clicked window was not activated")
		}
		return nil
	})
}

func TestFrameCallback(t *testing.T) {
	c := startCompositor(t)
	tc := connect(t, c)
	win := tc.mapWindow(64, 64)

	var done bool
	cb := tc.create(win.surface, wl.SurfaceFrame, wl.CallbackInterface, nil)
	cb.On(wl.CallbackEventDone, func(*wire.MessageBuffer) { done = true })

	tc.attach(win, 64, 64, color.RGBA{B: 0xFF, A: 0xFF})
	tc.request(win.surface, wl.SurfaceDamage, func(msg *wire.MessageBuilder) {
		msg.WriteInt(0)
		msg.WriteInt(0)
		msg.WriteInt(64)
		msg.WriteInt(64)
	})
	tc.request(win.surface, wl.SurfaceCommit, nil)

	err := tc.display.WaitFor(func() bool { return done })
	if err != nil {
		t.Fatal(err)
	}

	c.eventually(t, func() bool {
		frame, ok := c.backend.Frame("HEADLESS-1")
		if !ok {
			return false
		}
		r, g, b, _ := frame.At(10, 10).RGBA()
		return (r == 0) && (g == 0) && (b == 0xFFFF)
	})
}

func TestPopupConfigure(t *testing.T) {
	c := startCompositor(t)
	tc := connect(t, c)
	parent := tc.mapWindow(200, 200)

	pos := tc.create(tc.wmBase, xdg.WmBaseCreatePositioner, xdg.PositionerInterface, nil)
	tc.request(pos, xdg.PositionerSetSize, func(msg *wire.MessageBuilder) {
		msg.WriteInt(50)
		msg.WriteInt(40)
	})
	tc.request(pos, xdg.PositionerSetAnchorRect, func(msg *wire.MessageBuilder) {
		msg.WriteInt(0)
		msg.WriteInt(0)
		msg.WriteInt(10)
		msg.WriteInt(10)
	})
	tc.request(pos, xdg.PositionerSetAnchor, func(msg *wire.MessageBuilder) {
		msg.WriteUint(uint32(xdg.PositionerAnchorBottomRight))
	})
	tc.request(pos, xdg.PositionerSetGravity, func(msg *wire.MessageBuilder) {
		msg.WriteUint(uint32(xdg.PositionerGravityBottomRight))
	})

	surface := tc.create(tc.compositor, wl.CompositorCreateSurface, wl.SurfaceInterface, nil)
	xs := tc.create(tc.wmBase, xdg.WmBaseGetXdgSurface, xdg.SurfaceInterface, func(msg *wire.MessageBuilder) {
		msg.WriteObject(surface)
	})
	var configured bool
	xs.On(xdg.SurfaceEventConfigure, func(msg *wire.MessageBuffer) {
		msg.ReadUint()
		configured = true
	})

	popup := tc.create(xs, xdg.SurfaceGetPopup, xdg.PopupInterface, func(msg *wire.MessageBuilder) {
		msg.WriteObject(parent.xdg)
		msg.WriteObject(pos)
	})
	var geometry image.Rectangle
	popup.On(xdg.PopupEventConfigure, func(msg *wire.MessageBuffer) {
		x, y := int(msg.ReadInt()), int(msg.ReadInt())
		w, h := int(msg.ReadInt()), int(msg.ReadInt())
		geometry = image.Rect(x, y, x+w, y+h)
	})

	tc.request(surface, wl.SurfaceCommit, nil)
	tc.roundTrip()
	if !configured {
		t.Fatal("popup was not configured")
	}
	if expected := image.Rect(10, 10, 60, 50); geometry != expected {
		t.Fatalf("expected popup geometry %v but got %v", expected, geometry)
	}
}

func TestReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compositor.toml")
	cfg := testConfig()
	err := cfg.Save(path)
	if err != nil {
		t.Fatal(err)
	}

	c := startCompositorWith(t, cfg, path)
	tc := connect(t, c)
	tc.mapWindow(100, 100)

	cfg.Appearance.BackgroundColor = "#102030FF"
	cfg.Input.Pointer.LeftHanded = true
	err = cfg.Save(path)
	if err != nil {
		t.Fatal(err)
	}
	err = c.Reload()
	if err != nil {
		t.Fatal(err)
	}

	tc.roundTrip()
	c.check(t, func() error {
		if !c.seat.Config().LeftHanded {
			t.Error("left_handed was not applied")
		}
		if n := len(c.server.Clients()); n != 1 {
			t.Errorf("expected 1 client but got %v", n)
		}
		if n := len(c.space.Elements()); n != 1 {
			t.Errorf("expected 1 window but got %v", n)
		}
		return nil
	})

	bg, err := render.ParseColor(cfg.Appearance.BackgroundColor)
	if err != nil {
		t.Fatal(err)
	}
	c.eventually(t, func() bool {
		frame, ok := c.backend.Frame("HEADLESS-1")
		return ok && (frame.ARGB8888At(600, 400) == bg.ARGB8888())
	})
}

func TestReloadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "compositor.toml")
	cfg := testConfig()
	err := cfg.Save(path)
	if err != nil {
		t.Fatal(err)
	}

	c := startCompositorWith(t, cfg, path)
	tc := connect(t, c)
	tc.mapWindow(50, 50)

	err = os.WriteFile(path, []byte("general = [unterminated"), 0644)
	if err != nil {
		t.Fatal(err)
	}
	err = c.Reload()
	if err == nil {
		t.Fatal("reload of a broken file succeeded")
	}

	tc.roundTrip()
	c.check(t, func() error {
		if n := len(c.space.Elements()); n != 1 {
			t.Errorf("expected 1 window but got %v", n)
		}
		if c.config.Appearance.BackgroundColor != cfg.Appearance.BackgroundColor {
			t.Errorf("configuration changed to %q", c.config.Appearance.BackgroundColor)
		}
		return nil
	})
}

func TestStop(t *testing.T) {
	c := newTestCompositor(t, testConfig(), "")

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	deadline := time.Now().Add(5 * time.Second)
	for !c.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("compositor did not start")
		}
		time.Sleep(10 * time.Millisecond)
	}

	c.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after stop")
	}

	if c.IsRunning() {
		t.Fatal("still running after stop")
	}
	if err := c.do(func() error { return nil }); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped but got %v", err)
	}
}
