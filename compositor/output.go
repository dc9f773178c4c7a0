package compositor

import (
	"image"
	"time"

	"deedles.dev/wlcomp/internal/set"
	"deedles.dev/wlcomp/internal/xslices"
	"deedles.dev/wlcomp/output"
	"deedles.dev/wlcomp/proto/wl"
	"deedles.dev/wlcomp/proto/xdgoutput"
	"deedles.dev/wlcomp/server"
	"deedles.dev/wlcomp/wire"
	"deedles.dev/ximage/geom"
	"github.com/sirupsen/logrus"
)

var (
	outputInterface           = server.NewInterface(wl.OutputInterface, wl.OutputVersion, wl.OutputRequests, wl.OutputEvents)
	xdgOutputManagerInterface = server.NewInterface(xdgoutput.OutputManagerInterface, xdgoutput.OutputManagerVersion, xdgoutput.OutputManagerRequests, xdgoutput.OutputManagerEvents)
	xdgOutputInterface        = server.NewInterface(xdgoutput.OutputInterface, xdgoutput.OutputVersion, xdgoutput.OutputRequests, xdgoutput.OutputEvents)
)

func init() {
	outputInterface.
		Destructor(wl.OutputRelease, nil)
	xdgOutputManagerInterface.
		Destructor(xdgoutput.OutputManagerDestroy, nil).
		Handle(xdgoutput.OutputManagerGetXdgOutput, xdgOutputManagerGetXdgOutput)
	xdgOutputInterface.
		Destructor(xdgoutput.OutputDestroy, nil)
}

// outputGlobal is the wl_output global of a single output along with
// every object bound to it.
type outputGlobal struct {
	out       *output.Output
	global    *server.Global
	resources []*server.Object
	xdg       []*server.Object
}

// resourcesOf returns the wl_output objects of the given client.
func (og *outputGlobal) resourcesOf(c *server.Client) []*server.Object {
	return xslices.Filter(og.resources, func(obj *server.Object) bool { return obj.Client() == c })
}

func (c *Compositor) outputEvent(ev output.Event) {
	out := ev.Output
	switch ev.Kind {
	case output.Added:
		og := &outputGlobal{out: out}
		og.global = c.server.AddGlobal(outputInterface, outputInterface.Version, func(obj *server.Object) error {
			obj.Data = og
			og.resources = append(og.resources, obj)
			obj.OnDestroy(func() { og.resources = xslices.Remove(og.resources, obj) })
			sendOutput(obj, og.out)
			return nil
		})
		c.outputGlobals[out.Name] = og
		c.next[out.Name] = time.Time{}

		if c.outputs.Len() == 1 {
			center := out.Geometry().Min.Add(out.LogicalSize().Div(2))
			c.seat.Warp(geom.PConv[float64](geom.FromImagePoint(center)), nil)
		}
		logrus.WithField("output", out).Infoln("output added")

	case output.Removed:
		og, ok := c.outputGlobals[out.Name]
		if !ok {
			return
		}
		for s := range c.live {
			if s.outputs.Has(out.Name) {
				s.leave(og)
			}
		}
		c.server.RemoveGlobal(og.global)
		delete(c.outputGlobals, out.Name)
		delete(c.next, out.Name)
		c.renderer.RemoveOutput(out.Name)
		c.seat.Warp(c.seat.Position(), c.outputs.Clamp)
		logrus.WithField("output", out.Name).Infoln("output removed")

	case output.Changed:
		og, ok := c.outputGlobals[out.Name]
		if !ok {
			return
		}
		for _, obj := range og.resources {
			sendOutput(obj, out)
		}
		for _, obj := range og.xdg {
			sendXdgOutput(obj, out)
		}
		logrus.WithField("output", out).Debugln("output changed")
	}

	c.space.AddDamage(c.outputs.Bounds())
	c.frameDue = true
}

func sendOutput(obj *server.Object, out *output.Output) {
	obj.Event(wl.OutputEventGeometry, func(msg *wire.MessageBuilder) {
		msg.WriteInt(int32(out.Position.X))
		msg.WriteInt(int32(out.Position.Y))
		msg.WriteInt(int32(out.PhysicalSize.X))
		msg.WriteInt(int32(out.PhysicalSize.Y))
		msg.WriteInt(out.Subpixel)
		msg.WriteString(out.Make)
		msg.WriteString(out.Model)
		msg.WriteInt(int32(out.Transform))
	})
	obj.Event(wl.OutputEventMode, func(msg *wire.MessageBuilder) {
		msg.WriteUint(uint32(wl.OutputModeCurrent | wl.OutputModePreferred))
		msg.WriteInt(int32(out.Mode.Size.X))
		msg.WriteInt(int32(out.Mode.Size.Y))
		msg.WriteInt(out.Mode.Refresh)
	})
	if obj.Since(2) {
		obj.Event(wl.OutputEventScale, func(msg *wire.MessageBuilder) {
			msg.WriteInt(out.IntegerScale())
		})
	}
	if obj.Since(4) {
		obj.Event(wl.OutputEventName, func(msg *wire.MessageBuilder) {
			msg.WriteString(out.Name)
		})
		obj.Event(wl.OutputEventDescription, func(msg *wire.MessageBuilder) {
			msg.WriteString(out.Description)
		})
	}
	if obj.Since(2) {
		obj.Event(wl.OutputEventDone, nil)
	}
}

func sendXdgOutput(obj *server.Object, out *output.Output) {
	g := out.Geometry()
	obj.Event(xdgoutput.OutputEventLogicalPosition, func(msg *wire.MessageBuilder) {
		msg.WriteInt(int32(g.Min.X))
		msg.WriteInt(int32(g.Min.Y))
	})
	obj.Event(xdgoutput.OutputEventLogicalSize, func(msg *wire.MessageBuilder) {
		msg.WriteInt(int32(g.Dx()))
		msg.WriteInt(int32(g.Dy()))
	})
	if obj.Since(2) {
		obj.Event(xdgoutput.OutputEventName, func(msg *wire.MessageBuilder) {
			msg.WriteString(out.Name)
		})
		obj.Event(xdgoutput.OutputEventDescription, func(msg *wire.MessageBuilder) {
			msg.WriteString(out.Description)
		})
	}
	obj.Event(xdgoutput.OutputEventDone, nil)
}

func xdgOutputManagerGetXdgOutput(obj *server.Object, msg *wire.MessageBuffer) error {
	id := msg.ReadObject()
	outID := msg.ReadObject()
	if err := msg.Err(); err != nil {
		return err
	}

	xo, err := obj.Client().NewObject(id, xdgOutputInterface, obj.Version())
	if err != nil {
		return err
	}

	outObj, err := obj.Client().Lookup(outID, outputInterface)
	if err != nil {
		return err
	}
	og, ok := outObj.Data.(*outputGlobal)
	if !ok {
		// Bound after the output was removed.
		xo.Event(xdgoutput.OutputEventDone, nil)
		return nil
	}

	og.xdg = append(og.xdg, xo)
	xo.OnDestroy(func() { og.xdg = xslices.Remove(og.xdg, xo) })
	sendXdgOutput(xo, og.out)
	return nil
}

// surfaceRect returns the global area covered by a surface that is
// part of the space.
func (c *Compositor) surfaceRect(s *surface) (image.Rectangle, bool) {
	switch r := s.role.(type) {
	case *toplevel:
		return c.space.GeometryOf(r.window)
	case *popup:
		if (r.node == nil) || (s.image == nil) {
			return image.Rectangle{}, false
		}
		if _, ok := c.space.Popup(r.node.ID()); !ok {
			return image.Rectangle{}, false
		}
		return c.space.PopupGeometry(r.node), true
	}
	return image.Rectangle{}, false
}

// updateSurfaceOutputs sends wl_surface.enter and leave as surfaces
// move between outputs.
func (c *Compositor) updateSurfaceOutputs() {
	for s := range c.live {
		r, ok := c.surfaceRect(s)
		now := set.New[string]()
		if ok {
			for name, og := range c.outputGlobals {
				if r.Overlaps(og.out.Geometry()) {
					now.Add(name)
				}
			}
		}

		for name := range s.outputs {
			if !now.Has(name) {
				if og, ok := c.outputGlobals[name]; ok {
					s.leave(og)
				} else {
					s.outputs.Delete(name)
				}
			}
		}
		for name := range now {
			if !s.outputs.Has(name) {
				s.enter(c.outputGlobals[name])
			}
		}
	}
}
