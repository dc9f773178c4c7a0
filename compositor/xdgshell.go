package compositor

import (
	"image"
	"slices"

	"deedles.dev/wlcomp/proto/xdg"
	"deedles.dev/wlcomp/server"
	"deedles.dev/wlcomp/wire"
	"github.com/sirupsen/logrus"
)

var (
	wmBaseInterface     = server.NewInterface(xdg.WmBaseInterface, xdg.WmBaseVersion, xdg.WmBaseRequests, xdg.WmBaseEvents)
	positionerInterface = server.NewInterface(xdg.PositionerInterface, xdg.PositionerVersion, xdg.PositionerRequests, xdg.PositionerEvents)
	xdgSurfaceInterface = server.NewInterface(xdg.SurfaceInterface, xdg.SurfaceVersion, xdg.SurfaceRequests, xdg.SurfaceEvents)
)

func init() {
	wmBaseInterface.
		Destructor(xdg.WmBaseDestroy, wmBaseDestroy).
		Handle(xdg.WmBaseCreatePositioner, wmBaseCreatePositioner).
		Handle(xdg.WmBaseGetXdgSurface, wmBaseGetXdgSurface).
		Handle(xdg.WmBasePong, wmBasePong)
	xdgSurfaceInterface.
		Destructor(xdg.SurfaceDestroy, xdgSurfaceDestroy).
		Handle(xdg.SurfaceGetToplevel, xdgSurfaceGetToplevel).
		Handle(xdg.SurfaceGetPopup, xdgSurfaceGetPopup).
		Handle(xdg.SurfaceSetWindowGeometry, xdgSurfaceSetWindowGeometry).
		Handle(xdg.SurfaceAckConfigure, xdgSurfaceAckConfigure)
}

type wmBase struct {
	obj      *server.Object
	surfaces int

	// ping is the serial of an unanswered ping, or zero.
	ping uint32
}

func bindWmBase(obj *server.Object) error {
	base := &wmBase{obj: obj}
	obj.Data = base

	track(&stateOf(obj).shells, obj)
	return nil
}

func wmBaseDestroy(obj *server.Object, msg *wire.MessageBuffer) error {
	base := obj.Data.(*wmBase)
	if base.surfaces > 0 {
		return obj.Error(uint32(xdg.WmBaseErrorDefunctSurfaces), "%v xdg_surface objects still exist", base.surfaces)
	}
	return nil
}

func wmBaseCreatePositioner(obj *server.Object, msg *wire.MessageBuffer) error {
	id := msg.ReadObject()
	if err := msg.Err(); err != nil {
		return err
	}

	pobj, err := obj.Client().NewObject(id, positionerInterface, obj.Version())
	if err != nil {
		return err
	}
	pobj.Data = new(positioner)
	return nil
}

func wmBasePong(obj *server.Object, msg *wire.MessageBuffer) error {
	serial := msg.ReadUint()
	if err := msg.Err(); err != nil {
		return err
	}

	base := obj.Data.(*wmBase)
	if serial == base.ping {
		base.ping = 0
	}
	return nil
}

// ping checks that a client is still responsive. A client that has
// not answered the previous ping by the time of the next one is
// logged.
func (c *Compositor) ping(sc *server.Client) {
	cs, ok := sc.Data.(*clientState)
	if !ok {
		return
	}

	for _, obj := range cs.shells {
		base := obj.Data.(*wmBase)
		if base.ping != 0 {
			logrus.WithField("client", sc).Debugln("client did not answer ping")
		}
		base.ping = c.server.NextSerial()
		obj.Event(xdg.WmBaseEventPing, func(msg *wire.MessageBuilder) {
			msg.WriteUint(base.ping)
		})
	}
}

func wmBaseGetXdgSurface(obj *server.Object, msg *wire.MessageBuffer) error {
	id := msg.ReadObject()
	surfID := msg.ReadObject()
	if err := msg.Err(); err != nil {
		return err
	}

	sobj, err := obj.Client().Lookup(surfID, surfaceInterface)
	if err != nil {
		return err
	}
	s := sobj.Data.(*surface)
	if (s.xdg != nil) || (s.role != nil) {
		return obj.Error(uint32(xdg.WmBaseErrorRole), "%v already has a role", sobj)
	}

	xobj, err := obj.Client().NewObject(id, xdgSurfaceInterface, obj.Version())
	if err != nil {
		return err
	}
	if s.image != nil {
		return xobj.Error(uint32(xdg.SurfaceErrorUnconfiguredBuffer), "%v already has a buffer", sobj)
	}

	base := obj.Data.(*wmBase)
	xs := &xdgSurface{
		obj:     xobj,
		base:    base,
		surface: s,
	}
	base.surfaces++
	s.xdg = xs

	xobj.Data = xs
	xobj.OnDestroy(func() {
		base.surfaces--
		if s.xdg == xs {
			s.xdg = nil
		}
	})
	return nil
}

// xdgRole is a role that is assigned through an xdg_surface.
type xdgRole interface {
	role

	// initialConfigure sends the configure sequence that answers the
	// surface's first commit.
	initialConfigure()
}

type xdgSurface struct {
	obj     *server.Object
	base    *wmBase
	surface *surface
	role    xdgRole

	// configured is set once the initial configure has been sent, and
	// acked once the client has acknowledged any configure.
	configured bool
	acked      bool
	sent       []uint32

	geometry        image.Rectangle
	pendingGeometry image.Rectangle
	geometrySet     bool
}

func xdgSurfaceDestroy(obj *server.Object, msg *wire.MessageBuffer) error {
	xs := obj.Data.(*xdgSurface)
	if xs.role != nil {
		return xs.base.obj.Error(uint32(xdg.WmBaseErrorDefunctSurfaces), "%v destroyed before its role object", obj)
	}
	return nil
}

func xdgSurfaceSetWindowGeometry(obj *server.Object, msg *wire.MessageBuffer) error {
	r := readRect(msg)
	if err := msg.Err(); err != nil {
		return err
	}
	if r.Empty() {
		return obj.Error(uint32(xdg.WmBaseErrorInvalidSurfaceState), "invalid window geometry %v", r)
	}

	xs := obj.Data.(*xdgSurface)
	xs.pendingGeometry = r
	xs.geometrySet = true
	return nil
}

func xdgSurfaceAckConfigure(obj *server.Object, msg *wire.MessageBuffer) error {
	serial := msg.ReadUint()
	if err := msg.Err(); err != nil {
		return err
	}

	xs := obj.Data.(*xdgSurface)
	i := slices.Index(xs.sent, serial)
	if i < 0 {
		return xs.base.obj.Error(uint32(xdg.WmBaseErrorInvalidSurfaceState), "invalid configure serial %v", serial)
	}
	xs.sent = xs.sent[i+1:]
	xs.acked = true
	return nil
}

// configure sends xdg_surface.configure, completing a configure
// sequence started by the role.
func (xs *xdgSurface) configure() {
	serial := xs.surface.comp.server.NextSerial()
	xs.sent = append(xs.sent, serial)
	xs.configured = true
	xs.obj.Event(xdg.SurfaceEventConfigure, func(msg *wire.MessageBuilder) {
		msg.WriteUint(serial)
	})
}

// commit does the work shared by every xdg role on commit. It reports
// whether the role should act on the commit.
func (xs *xdgSurface) commit() (bool, error) {
	if xs.geometrySet {
		xs.geometry = xs.pendingGeometry
		xs.geometrySet = false
	}

	if !xs.configured {
		if xs.surface.image != nil {
			return false, xs.obj.Error(uint32(xdg.SurfaceErrorUnconfiguredBuffer), "buffer committed before the initial configure")
		}
		xs.role.initialConfigure()
		return false, nil
	}
	if (xs.surface.image != nil) && !xs.acked {
		return false, xs.obj.Error(uint32(xdg.SurfaceErrorUnconfiguredBuffer), "buffer committed before a configure was acknowledged")
	}
	return true, nil
}

// reset returns the surface to its unconfigured state after it has
// been unmapped.
func (xs *xdgSurface) reset() {
	xs.configured = false
	xs.acked = false
	xs.sent = nil
}

func xdgSurfaceGetToplevel(obj *server.Object, msg *wire.MessageBuffer) error {
	id := msg.ReadObject()
	if err := msg.Err(); err != nil {
		return err
	}

	xs := obj.Data.(*xdgSurface)
	if xs.role != nil {
		return obj.Error(uint32(xdg.SurfaceErrorAlreadyConstructed), "%v already has a role object", obj)
	}
	if xs.surface.role != nil {
		return xs.base.obj.Error(uint32(xdg.WmBaseErrorRole), "%v already has a role", xs.surface.obj)
	}

	tobj, err := obj.Client().NewObject(id, toplevelInterface, obj.Version())
	if err != nil {
		return err
	}

	c := xs.surface.comp
	t := &toplevel{
		xs:     xs,
		obj:    tobj,
		window: c.space.NewWindow(xs.surface.handle, obj.Client()),
	}
	xs.role = t
	xs.surface.role = t

	tobj.Data = t
	tobj.OnDestroy(t.destroy)
	return nil
}

func xdgSurfaceGetPopup(obj *server.Object, msg *wire.MessageBuffer) error {
	id := msg.ReadObject()
	parentID := msg.ReadObject()
	posID := msg.ReadObject()
	if err := msg.Err(); err != nil {
		return err
	}

	xs := obj.Data.(*xdgSurface)
	if xs.role != nil {
		return obj.Error(uint32(xdg.SurfaceErrorAlreadyConstructed), "%v already has a role object", obj)
	}
	if xs.surface.role != nil {
		return xs.base.obj.Error(uint32(xdg.WmBaseErrorRole), "%v already has a role", xs.surface.obj)
	}

	client := obj.Client()
	pobj, err := client.LookupNullable(parentID, xdgSurfaceInterface)
	if err != nil {
		return err
	}
	posObj, err := client.Lookup(posID, positionerInterface)
	if err != nil {
		return err
	}

	popObj, err := client.NewObject(id, popupInterface, obj.Version())
	if err != nil {
		return err
	}

	pos := *posObj.Data.(*positioner)
	if !pos.complete() {
		return xs.base.obj.Error(uint32(xdg.WmBaseErrorInvalidPositioner), "incomplete positioner %v", posObj)
	}
	if pobj == nil {
		return xs.base.obj.Error(uint32(xdg.WmBaseErrorInvalidPopupParent), "popups must have a parent")
	}

	c := xs.surface.comp
	parent := pobj.Data.(*xdgSurface)
	p := &popup{
		xs:     xs,
		obj:    popObj,
		parent: parent,
		pos:    pos,
	}
	err = c.addPopup(p)
	if err != nil {
		return err
	}
	xs.role = p
	xs.surface.role = p

	popObj.Data = p
	popObj.OnDestroy(p.destroy)
	return nil
}
