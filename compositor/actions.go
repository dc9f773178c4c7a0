package compositor

import (
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"deedles.dev/wlcomp/config"
	"deedles.dev/wlcomp/cursor"
	"deedles.dev/wlcomp/output"
	"deedles.dev/wlcomp/render"
	"deedles.dev/wlcomp/seat"
	"deedles.dev/wlcomp/server"
	"github.com/adrg/xdg"
	"github.com/gogpu/gg"
	"github.com/sirupsen/logrus"
)

// newTable returns the interfaces that clients may create objects
// of.
func newTable() server.Table {
	table := make(server.Table)
	table.Register(
		compositorInterface,
		surfaceInterface,
		regionInterface,
		shmInterface,
		shmPoolInterface,
		bufferInterface,
		outputInterface,
		xdgOutputManagerInterface,
		xdgOutputInterface,
		seatInterface,
		pointerInterface,
		keyboardInterface,
		touchInterface,
		dataDeviceManagerInterface,
		dataSourceInterface,
		dataDeviceInterface,
		dataOfferInterface,
		wmBaseInterface,
		positionerInterface,
		xdgSurfaceInterface,
		toplevelInterface,
		popupInterface,
	)
	return table
}

// applyConfig makes cfg the active configuration. The initial call
// comes from New, before any client or output exists. Later calls
// update everything that already depends on the old configuration.
func (c *Compositor) applyConfig(cfg *config.Config, initial bool) {
	old := c.config
	c.config = *cfg

	logrus.SetLevel(cfg.General.Level())
	c.seat.SetConfig(cfg.SeatConfig())
	c.seat.SetBindings(cfg.Bindings())

	if initial || (old.Appearance.CursorTheme != cfg.Appearance.CursorTheme) || (old.Appearance.CursorSize != cfg.Appearance.CursorSize) {
		theme, err := cursor.Load(cfg.Appearance.CursorTheme, cfg.Appearance.CursorSize)
		if err != nil {
			logrus.WithError(err).Warnln("using the built-in cursor")
		}
		c.cursors = theme
		c.pointer.dirty = true
	}

	if initial || (old.Input.Keyboard != cfg.Input.Keyboard) {
		c.loadKeymap(&c.config.Input.Keyboard)
	}

	if !initial {
		if old.General.RendererBackend() != cfg.General.RendererBackend() {
			c.switchRenderer(cfg.General.RendererBackend())
		}
		c.reapplyOutputs()
		c.resendInputConfig(old.Input.Keyboard != cfg.Input.Keyboard)
	}

	_, _, bg := cfg.Appearance.Colors()
	c.renderer.SetClearColor(bg)
	c.renderer.AddDamage(c.outputs.Bounds())
	c.space.AddDamage(c.outputs.Bounds())
	c.frameDue = true
}

func (c *Compositor) switchRenderer(pref render.Backend) {
	r, err := c.selectRenderer(pref)
	if err != nil {
		logrus.WithError(err).Errorln("switch renderer")
		return
	}

	err = c.renderer.Close()
	if err != nil {
		logrus.WithError(err).WithField("renderer", c.renderer.Name()).Warnln("close renderer")
	}
	c.renderer = r
}

// reapplyOutputs applies the output configuration to every output
// again. Outputs that are now disabled are removed.
func (c *Compositor) reapplyOutputs() {
	for _, out := range c.outputs.Outputs() {
		name := out.Name
		enabled := true
		c.outputs.Update(name, func(o *output.Output) {
			enabled = c.config.Apply(o)
		})
		if !enabled {
			c.outputs.Remove(name)
			logrus.WithField("output", name).Infoln("output disabled by configuration")
		}
	}
}

// resendInputConfig tells every client about changed seat
// capabilities, repeat settings and, if keymap is set, the keymap.
func (c *Compositor) resendInputConfig(keymap bool) {
	for _, sc := range c.server.Clients() {
		cs, ok := sc.Data.(*clientState)
		if !ok {
			continue
		}
		for _, obj := range cs.seats {
			c.sendCapabilities(obj)
		}
		for _, obj := range cs.keyboards {
			if keymap {
				c.sendKeymap(obj)
			}
			c.sendRepeatInfo(obj)
		}
	}
}

func (c *Compositor) runAction(a seat.Action) {
	logrus.WithField("action", a).Debugln("key binding")

	switch a {
	case seat.ActionQuit:
		c.Stop()

	case seat.ActionReload:
		err := c.reload()
		if err != nil {
			logrus.WithError(err).Errorln("reload")
		}

	case seat.ActionClose:
		if c.active != nil {
			c.closeWindow(c.active)
		}

	case seat.ActionFullscreen:
		if c.active == nil {
			return
		}
		if t, ok := c.toplevelOf(c.active); ok {
			t.setFullscreen(!c.active.Fullscreen, "")
		}

	case seat.ActionTerminal:
		c.spawn(c.config.General.Terminal)

	case seat.ActionLauncher:
		c.spawn(c.config.General.Launcher)

	case seat.ActionScreenshot:
		c.screenshot()
	}
}

// spawn runs command through the shell as a client of the
// compositor.
func (c *Compositor) spawn(command string) {
	if command == "" {
		logrus.Warnln("no command configured")
		return
	}

	cmd := exec.Command("sh", "-c", command)
	cmd.Env = append(os.Environ(), "WAYLAND_DISPLAY="+c.Socket())
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	err := cmd.Start()
	if err != nil {
		logrus.WithError(err).WithField("command", command).Errorln("spawn")
		return
	}
	logrus.WithFields(logrus.Fields{
		"command": command,
		"pid":     cmd.Process.Pid,
	}).Infoln("spawned")

	go func() {
		err := cmd.Wait()
		if err != nil {
			logrus.WithError(err).WithField("command", command).Debugln("spawned process exited")
		}
	}()
}

// screenshot saves the latest frame of every output. The frames are
// copied on the loop and encoded in the background.
func (c *Compositor) screenshot() {
	type shot struct {
		name string
		img  image.Image
	}

	var shots []shot
	for _, out := range c.outputs.Outputs() {
		frame := c.renderer.Frame(out.Name)
		if frame == nil {
			continue
		}
		shots = append(shots, shot{
			name: out.Name,
			img:  render.TransformImage(frame, out.Transform.Invert()),
		})
	}
	if len(shots) == 0 {
		return
	}

	dir := xdg.UserDirs.Pictures
	stamp := time.Now().Format("20060102-150405")
	go func() {
		for _, s := range shots {
			path := filepath.Join(dir, fmt.Sprintf("wlcomp-%v-%v.png", stamp, s.name))
			err := writePNG(path, s.img)
			if err != nil {
				logrus.WithError(err).WithField("output", s.name).Errorln("save screenshot")
				continue
			}
			logrus.WithField("path", path).Infoln("screenshot saved")
		}
	}()
}

func writePNG(path string, img image.Image) error {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return err
	}

	err = gg.FromImage(img).SavePNG(path)
	if err != nil {
		return fmt.Errorf("write %v: %w", path, err)
	}
	return nil
}
