package compositor

import (
	"image"
	"time"

	"deedles.dev/wlcomp/cursor"
	"deedles.dev/wlcomp/output"
	"deedles.dev/wlcomp/render"
	"deedles.dev/wlcomp/server"
	"github.com/sirupsen/logrus"
)

// interval returns the minimum time between two frames of out.
func (c *Compositor) interval(out *output.Output) time.Duration {
	iv := out.FrameInterval()
	if rate := c.config.Performance.MaxRenderRate; rate > 0 {
		iv = max(iv, time.Second/time.Duration(rate))
	}
	return iv
}

// renderDue draws every output whose next frame is due. Frame
// callbacks are answered once no output is left waiting.
func (c *Compositor) renderDue(now time.Time) {
	if !c.frameDue {
		return
	}

	var scene *render.Scene
	pending := false
	for _, out := range c.outputs.Outputs() {
		if now.Before(c.next[out.Name]) {
			pending = true
			continue
		}

		if scene == nil {
			scene = c.scene()
		}
		c.renderOutput(scene, out)
		c.next[out.Name] = now.Add(c.interval(out))
	}

	c.frameDue = pending
	if !pending {
		c.frameDone()
	}
}

// renderOutput draws and presents a single frame. Failures are
// logged and the frame is skipped so that other outputs carry on.
func (c *Compositor) renderOutput(scene *render.Scene, out *output.Output) {
	if !c.config.Performance.DamageTracking {
		c.renderer.AddDamage(out.Geometry())
	}

	drawn, err := c.renderer.RenderFrame(scene, out)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"output":   out.Name,
			"renderer": c.renderer.Name(),
		}).Errorln("render frame")
		return
	}
	if !drawn {
		return
	}

	err = c.backend.Present(out, c.renderer.Frame(out.Name))
	if err != nil {
		logrus.WithError(err).WithField("output", out.Name).Errorln("present frame")
	}
}

func (c *Compositor) frameDone() {
	if len(c.frames) == 0 {
		return
	}

	t := c.now()
	for _, cb := range c.frames {
		server.Done(cb, t)
	}
	clear(c.frames)
	c.frames = c.frames[:0]
}

// scene snapshots the space in paint order. Windows and popups that
// have never received a buffer are left out.
func (c *Compositor) scene() *render.Scene {
	active, inactive, _ := c.config.Appearance.Colors()
	scene := render.Scene{
		BorderWidth:    c.config.Appearance.BorderWidth,
		ActiveBorder:   active,
		InactiveBorder: inactive,
	}

	for _, w := range c.space.Visible() {
		s, ok := c.surfaces.Get(w.Surface)
		if !ok || (s.image == nil) {
			continue
		}
		scene.Elements = append(scene.Elements, render.Element{
			ID:       uint64(w.ID()),
			Geometry: w.Geometry(),
			Buffer:   s.image,
			Border:   !w.Fullscreen,
			Active:   w.Activated,
		})

		for _, p := range c.space.WindowPopups(w) {
			ps, ok := c.surfaces.Get(p.Surface)
			if !ok || (ps.image == nil) {
				continue
			}
			scene.Elements = append(scene.Elements, render.Element{
				ID:       uint64(p.ID()),
				Geometry: c.space.PopupGeometry(p),
				Buffer:   ps.image,
			})
		}
	}

	if e, ok := c.dragIconElement(); ok {
		scene.Elements = append(scene.Elements, e)
	}

	if img, pos, ok := c.cursorImage(); ok {
		scene.Cursor = &render.CursorElement{Image: img, Position: pos}
	}

	return &scene
}

// cursorImage returns the image to draw for the pointer and the
// global position of its top-left corner.
func (c *Compositor) cursorImage() (image.Image, image.Point, bool) {
	if c.outputs.Len() == 0 {
		return nil, image.Point{}, false
	}

	pos := floorPoint(c.seat.Position())
	if _, ok := c.pointerFocus(); ok && c.pointer.clientCursor {
		s := c.pointer.cursor
		if (s == nil) || (s.image == nil) {
			return nil, image.Point{}, false
		}
		return s.image, pos.Sub(c.pointer.hotspot), true
	}

	img := c.cursors.Get(cursor.DefaultName, time.Since(c.start))
	return img.Image, pos.Sub(img.Hot), true
}

// updateCursor damages the area under the old and new cursor
// positions whenever the cursor moves or changes.
func (c *Compositor) updateCursor() {
	var r image.Rectangle
	if img, pos, ok := c.cursorImage(); ok {
		b := img.Bounds()
		r = image.Rectangle{Min: pos, Max: pos.Add(b.Size())}
	}

	if (r == c.pointer.painted) && !c.pointer.dirty {
		return
	}
	c.space.AddDamage(c.pointer.painted, r)
	c.pointer.painted = r
	c.pointer.dirty = false
}
