// Package compositor ties the protocol server, the window space, the
// seat and the renderer together into a running Wayland compositor.
//
// Everything in the package runs on a single event loop goroutine.
// Other goroutines only ever hand work to the loop through Post.
package compositor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"deedles.dev/wlcomp/backend"
	"deedles.dev/wlcomp/config"
	"deedles.dev/wlcomp/cursor"
	"deedles.dev/wlcomp/internal/ev"
	"deedles.dev/wlcomp/internal/handle"
	"deedles.dev/wlcomp/internal/set"
	"deedles.dev/wlcomp/output"
	"deedles.dev/wlcomp/render"
	"deedles.dev/wlcomp/seat"
	"deedles.dev/wlcomp/server"
	"deedles.dev/wlcomp/space"
	"deedles.dev/wlcomp/wire"
	"github.com/sirupsen/logrus"
)

// ErrStopped is returned when work is handed to a compositor that is
// no longer running its loop.
var ErrStopped = errors.New("compositor stopped")

// Options configure a new Compositor.
type Options struct {
	// Config is the initial configuration. If it is nil, the
	// defaults are used.
	Config *config.Config

	// ConfigPath is the file that Reload reads. If it is empty, the
	// XDG configuration directories are searched.
	ConfigPath string

	// Backend presents frames and produces input. If it is nil, a
	// single headless output is used.
	Backend backend.Backend

	// Listener accepts clients. If it is nil, a socket is created in
	// the runtime directory with the first free wayland-N name.
	Listener *wire.Listener

	// Hardware creates the accelerated renderer. If it is nil, only
	// the software renderer is available.
	Hardware func() render.Renderer
}

// Compositor is a running Wayland compositor.
type Compositor struct {
	opts       Options
	config     config.Config
	configPath string
	start      time.Time

	lis      *wire.Listener
	queue    *ev.Queue
	server   *server.Server
	outputs  output.Manager
	space    *space.Space
	seat     *seat.Seat
	renderer render.Renderer
	backend  backend.Backend
	cursors  *cursor.Theme

	// keymap is a sealed memfd holding the xkb keymap sent to
	// keyboards, or nil if clients are told that there is none.
	keymap     *os.File
	keymapSize uint32

	surfaces handle.Arena[*surface]
	live     set.Set[*surface]
	popups   map[space.ID]*popup

	outputGlobals map[string]*outputGlobal
	next          map[string]time.Time
	frameDue      bool
	frames        []*server.Object

	pointer   pointerState
	active    *space.Window
	sentMods  [2]seat.Modifiers
	grabs     []*popup
	popupGrab *seat.Grab
	move      *moveGrab
	selection *dataSource
	drag      *drag
	touched   set.Set[*clientState]

	// dragPainted is where the drag icon was last drawn.
	dragPainted image.Rectangle

	running atomic.Bool
	done    chan struct{}
	close   sync.Once
}

// New creates a compositor and starts listening for clients. Clients
// are not served until Run is called.
func New(opts Options) (*Compositor, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if opts.Backend == nil {
		opts.Backend = backend.NewHeadless(backend.Options{})
	}

	lis := opts.Listener
	if lis == nil {
		var err error
		lis, err = wire.ListenAuto()
		if err != nil {
			return nil, fmt.Errorf("listen: %w", err)
		}
	}

	c := Compositor{
		opts:          opts,
		config:        *cfg,
		configPath:    opts.ConfigPath,
		start:         time.Now(),
		lis:           lis,
		queue:         new(ev.Queue),
		backend:       opts.Backend,
		live:          set.New[*surface](),
		popups:        make(map[space.ID]*popup),
		outputGlobals: make(map[string]*outputGlobal),
		next:          make(map[string]time.Time),
		touched:       set.New[*clientState](),
		done:          make(chan struct{}),
	}
	c.space = space.New(c.surfaces.Valid)
	c.seat = seat.New("seat0", c.surfaces.Valid)

	r, err := c.selectRenderer(cfg.General.RendererBackend())
	if err != nil {
		lis.Close()
		return nil, err
	}
	c.renderer = r

	c.server = server.New(lis, c.queue, newTable(), (*serverListener)(&c))
	c.outputs.Listen(c.outputEvent)
	c.applyConfig(cfg, true)
	c.addGlobals()

	return &c, nil
}

func (c *Compositor) selectRenderer(pref render.Backend) (render.Renderer, error) {
	var hw render.Renderer
	if c.opts.Hardware != nil {
		hw = c.opts.Hardware()
	}
	r, err := render.Select(pref, hw)
	if err != nil {
		return nil, err
	}
	logrus.WithField("renderer", r.Name()).Infoln("renderer ready")
	return r, nil
}

func (c *Compositor) addGlobals() {
	c.server.AddGlobal(compositorInterface, compositorInterface.Version, nil)
	c.server.AddGlobal(shmInterface, shmInterface.Version, bindShm)
	c.server.AddGlobal(seatInterface, seatInterface.Version, c.bindSeat)
	c.server.AddGlobal(dataDeviceManagerInterface, dataDeviceManagerInterface.Version, nil)
	c.server.AddGlobal(wmBaseInterface, wmBaseInterface.Version, bindWmBase)
	c.server.AddGlobal(xdgOutputManagerInterface, xdgOutputManagerInterface.Version, nil)
}

// Socket returns the name of the socket that clients connect to, as
// it should appear in WAYLAND_DISPLAY.
func (c *Compositor) Socket() string {
	return c.lis.Name()
}

// Run starts the backend and runs the event loop until ctx is
// canceled or Stop is called. A frame that is being drawn when either
// happens is finished first.
func (c *Compositor) Run(ctx context.Context) error {
	defer c.shutdown()

	err := c.backend.Start((*host)(c))
	if err != nil {
		return fmt.Errorf("start %v backend: %w", c.backend.Name(), err)
	}

	c.running.Store(true)
	logrus.WithFields(logrus.Fields{
		"socket":   c.Socket(),
		"backend":  c.backend.Name(),
		"renderer": c.renderer.Name(),
	}).Infoln("compositor running")

	timer := time.NewTimer(time.Hour)
	defer timer.Stop()

	for {
		c.cycle(time.Now())
		c.schedule(timer)

		select {
		case <-ctx.Done():
			return nil
		case <-c.done:
			return nil
		case ev := <-c.queue.Get():
			err := c.queue.Drain(ev).Flush()
			if err != nil {
				logrus.WithError(err).Errorln("handle events")
			}
		case <-timer.C:
		}
	}
}

// cycle runs once after every batch of events. Every commit of the
// batch has already been applied, so the space is refreshed exactly
// once before anything is drawn.
func (c *Compositor) cycle(now time.Time) {
	c.updateCursor()
	c.updateDragIcon()
	c.space.Refresh()

	damage := c.space.TakeDamage()
	if len(damage) > 0 {
		c.renderer.AddDamage(damage...)
		c.frameDue = true
		c.updateSurfaceOutputs()
		c.repick()
	}

	c.renderDue(now)
	c.server.Flush()
}

func (c *Compositor) schedule(timer *time.Timer) {
	if !c.frameDue {
		timer.Stop()
		return
	}

	var next time.Time
	for _, t := range c.next {
		if next.IsZero() || t.Before(next) {
			next = t
		}
	}
	timer.Reset(max(time.Until(next), 0))
}

func (c *Compositor) shutdown() {
	c.running.Store(false)
	c.Stop()
	c.queue.Stop()

	err := errors.Join(
		c.server.Close(),
		c.backend.Close(),
		c.renderer.Close(),
	)
	if c.keymap != nil {
		c.keymap.Close()
	}
	if err != nil {
		logrus.WithError(err).Warnln("shut down")
	}
}

// Stop causes Run to return after the current iteration of the loop.
// It may be called from any goroutine.
func (c *Compositor) Stop() {
	c.close.Do(func() {
		c.running.Store(false)
		close(c.done)
	})
}

// IsRunning reports whether the loop is running and has not been
// asked to stop.
func (c *Compositor) IsRunning() bool {
	return c.running.Load()
}

// Post queues f to run on the event loop. It may be called from any
// goroutine and reports false if the compositor has shut down.
func (c *Compositor) Post(f func() error) bool {
	return c.queue.Post(f)
}

// do runs f on the loop and waits for it to finish. It must not be
// called from the loop itself.
func (c *Compositor) do(f func() error) error {
	errc := make(chan error, 1)
	ok := c.queue.Post(func() error {
		errc <- f()
		return nil
	})
	if !ok {
		return ErrStopped
	}

	select {
	case err := <-errc:
		return err
	case <-c.done:
		select {
		case err := <-errc:
			return err
		default:
			return ErrStopped
		}
	}
}

// Reload rereads the configuration file and applies it without
// disconnecting clients. It may be called from any goroutine except
// the loop's and waits for the loop to apply the change.
func (c *Compositor) Reload() error {
	return c.do(c.reload)
}

func (c *Compositor) reload() error {
	var cfg *config.Config
	var err error
	if c.configPath != "" {
		cfg, err = config.LoadFile(c.configPath)
	} else {
		cfg, c.configPath, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}

	c.applyConfig(cfg, false)
	logrus.WithField("path", c.configPath).Infoln("configuration reloaded")
	return nil
}

// now returns the timestamp used in input and frame events.
func (c *Compositor) now() uint32 {
	return uint32(time.Since(c.start).Milliseconds())
}

type serverListener Compositor

func (lis *serverListener) Client(sc *server.Client) {
	sc.Data = &clientState{comp: (*Compositor)(lis), client: sc}
	logrus.WithField("client", sc).Infoln("client connected")
}

func (lis *serverListener) ClientRemove(sc *server.Client) {
	c := (*Compositor)(lis)

	// The client's objects are already destroyed, which unmapped its
	// windows. Anything left over is cleaned up here.
	for _, w := range c.space.Windows(sc) {
		c.unmapWindow(w)
	}
	c.seat.Release(func(h handle.Handle) bool {
		s, ok := c.surfaces.Get(h)
		return !ok || (s.obj.Client() == sc)
	})
	if cs, ok := sc.Data.(*clientState); ok {
		c.touched.Delete(cs)
	}
	c.endClientDrag(sc)
	c.frameDue = true

	logrus.WithField("client", sc).Infoln("client disconnected")
}

// clientState is the compositor's state for a single client.
type clientState struct {
	comp   *Compositor
	client *server.Client

	pointers    []*server.Object
	keyboards   []*server.Object
	touches     []*server.Object
	dataDevices []*server.Object
	shells      []*server.Object
	seats       []*server.Object
}

func stateOf(obj *server.Object) *clientState {
	return obj.Client().Data.(*clientState)
}

func compositorOf(obj *server.Object) *Compositor {
	return stateOf(obj).comp
}
