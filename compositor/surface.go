package compositor

import (
	"image"

	"deedles.dev/wlcomp/internal/handle"
	"deedles.dev/wlcomp/internal/set"
	"deedles.dev/wlcomp/output"
	"deedles.dev/wlcomp/proto/wl"
	"deedles.dev/wlcomp/region"
	"deedles.dev/wlcomp/render"
	"deedles.dev/wlcomp/server"
	"deedles.dev/wlcomp/shm"
	"deedles.dev/wlcomp/wire"
)

var (
	compositorInterface = server.NewInterface(wl.CompositorInterface, wl.CompositorVersion, wl.CompositorRequests, wl.CompositorEvents)
	surfaceInterface    = server.NewInterface(wl.SurfaceInterface, wl.SurfaceVersion, wl.SurfaceRequests, wl.SurfaceEvents)
	regionInterface     = server.NewInterface(wl.RegionInterface, wl.RegionVersion, wl.RegionRequests, wl.RegionEvents)
)

func init() {
	compositorInterface.
		Handle(wl.CompositorCreateSurface, compositorCreateSurface).
		Handle(wl.CompositorCreateRegion, compositorCreateRegion)
	surfaceInterface.
		Destructor(wl.SurfaceDestroy, nil).
		Handle(wl.SurfaceAttach, surfaceAttach).
		Handle(wl.SurfaceDamage, surfaceDamage).
		Handle(wl.SurfaceFrame, surfaceFrame).
		Handle(wl.SurfaceSetOpaqueRegion, surfaceSetOpaqueRegion).
		Handle(wl.SurfaceSetInputRegion, surfaceSetInputRegion).
		Handle(wl.SurfaceCommit, surfaceCommit).
		Handle(wl.SurfaceSetBufferTransform, surfaceSetBufferTransform).
		Handle(wl.SurfaceSetBufferScale, surfaceSetBufferScale).
		Handle(wl.SurfaceDamageBuffer, surfaceDamageBuffer)
	regionInterface.
		Destructor(wl.RegionDestroy, nil).
		Handle(wl.RegionAdd, regionAdd).
		Handle(wl.RegionSubtract, regionSubtract)
}

// role is the part of a surface's behavior that depends on what it is
// being used for.
type role interface {
	// commit is called after the surface's pending state has been
	// applied. damage is in surface-local coordinates.
	commit(damage []image.Rectangle) error

	// surfaceDestroyed is called when the surface goes away while it
	// still has the role.
	surfaceDestroyed()
}

// surfaceState is the double-buffered state of a surface.
type surfaceState struct {
	attached bool
	buffer   *server.Object
	offset   image.Point

	damage       []image.Rectangle
	bufferDamage []image.Rectangle
	frames       []*server.Object

	opaque    *region.Region
	opaqueSet bool
	input     *region.Region
	inputSet  bool

	scale        int32
	transform    output.Transform
	transformSet bool
}

type surface struct {
	comp   *Compositor
	obj    *server.Object
	handle handle.Handle

	pending surfaceState

	// image holds the committed contents in surface orientation and
	// buffer pixels. size is the surface's size in logical pixels.
	image     image.Image
	size      image.Point
	delta     image.Point
	scale     int32
	transform output.Transform
	opaque    *region.Region
	input     *region.Region

	role    role
	xdg     *xdgSurface
	outputs set.Set[string]
}

func compositorCreateSurface(obj *server.Object, msg *wire.MessageBuffer) error {
	id := msg.ReadObject()
	if err := msg.Err(); err != nil {
		return err
	}

	sobj, err := obj.Client().NewObject(id, surfaceInterface, obj.Version())
	if err != nil {
		return err
	}

	c := compositorOf(obj)
	s := &surface{
		comp:    c,
		obj:     sobj,
		scale:   1,
		outputs: set.New[string](),
	}
	s.handle = c.surfaces.Insert(s)
	c.live.Add(s)

	sobj.Data = s
	sobj.OnDestroy(s.destroy)
	return nil
}

func compositorCreateRegion(obj *server.Object, msg *wire.MessageBuffer) error {
	id := msg.ReadObject()
	if err := msg.Err(); err != nil {
		return err
	}

	robj, err := obj.Client().NewObject(id, regionInterface, 1)
	if err != nil {
		return err
	}
	robj.Data = region.New()
	return nil
}

func readRect(msg *wire.MessageBuffer) image.Rectangle {
	x, y := msg.ReadInt(), msg.ReadInt()
	w, h := msg.ReadInt(), msg.ReadInt()
	return image.Rect(int(x), int(y), int(x+w), int(y+h))
}

func regionAdd(obj *server.Object, msg *wire.MessageBuffer) error {
	r := readRect(msg)
	if err := msg.Err(); err != nil {
		return err
	}
	obj.Data.(*region.Region).Add(r)
	return nil
}

func regionSubtract(obj *server.Object, msg *wire.MessageBuffer) error {
	r := readRect(msg)
	if err := msg.Err(); err != nil {
		return err
	}
	obj.Data.(*region.Region).Subtract(r)
	return nil
}

// lookupRegion returns a copy of the region with the given ID. A null
// ID yields a nil region.
func lookupRegion(c *server.Client, id uint32) (*region.Region, error) {
	obj, err := c.LookupNullable(id, regionInterface)
	if (err != nil) || (obj == nil) {
		return nil, err
	}
	return obj.Data.(*region.Region).Clone(), nil
}

func surfaceAttach(obj *server.Object, msg *wire.MessageBuffer) error {
	bufID := msg.ReadObject()
	x, y := msg.ReadInt(), msg.ReadInt()
	if err := msg.Err(); err != nil {
		return err
	}

	buf, err := obj.Client().LookupNullable(bufID, bufferInterface)
	if err != nil {
		return err
	}

	s := obj.Data.(*surface)
	s.pending.attached = true
	s.pending.buffer = buf
	s.pending.offset = image.Pt(int(x), int(y))
	return nil
}

func surfaceDamage(obj *server.Object, msg *wire.MessageBuffer) error {
	r := readRect(msg)
	if err := msg.Err(); err != nil {
		return err
	}

	s := obj.Data.(*surface)
	s.pending.damage = append(s.pending.damage, r)
	return nil
}

func surfaceDamageBuffer(obj *server.Object, msg *wire.MessageBuffer) error {
	r := readRect(msg)
	if err := msg.Err(); err != nil {
		return err
	}

	s := obj.Data.(*surface)
	s.pending.bufferDamage = append(s.pending.bufferDamage, r)
	return nil
}

func surfaceFrame(obj *server.Object, msg *wire.MessageBuffer) error {
	id := msg.ReadObject()
	if err := msg.Err(); err != nil {
		return err
	}

	cb, err := obj.Client().NewObject(id, server.CallbackInterface, 1)
	if err != nil {
		return err
	}

	s := obj.Data.(*surface)
	s.pending.frames = append(s.pending.frames, cb)
	return nil
}

func surfaceSetOpaqueRegion(obj *server.Object, msg *wire.MessageBuffer) error {
	id := msg.ReadObject()
	if err := msg.Err(); err != nil {
		return err
	}

	r, err := lookupRegion(obj.Client(), id)
	if err != nil {
		return err
	}

	s := obj.Data.(*surface)
	s.pending.opaque = r
	s.pending.opaqueSet = true
	return nil
}

func surfaceSetInputRegion(obj *server.Object, msg *wire.MessageBuffer) error {
	id := msg.ReadObject()
	if err := msg.Err(); err != nil {
		return err
	}

	r, err := lookupRegion(obj.Client(), id)
	if err != nil {
		return err
	}

	s := obj.Data.(*surface)
	s.pending.input = r
	s.pending.inputSet = true
	return nil
}

func surfaceSetBufferTransform(obj *server.Object, msg *wire.MessageBuffer) error {
	t := output.Transform(msg.ReadInt())
	if err := msg.Err(); err != nil {
		return err
	}
	if !t.Valid() {
		return obj.Error(uint32(wl.SurfaceErrorInvalidTransform), "invalid buffer transform %v", uint32(t))
	}

	s := obj.Data.(*surface)
	s.pending.transform = t
	s.pending.transformSet = true
	return nil
}

func surfaceSetBufferScale(obj *server.Object, msg *wire.MessageBuffer) error {
	scale := msg.ReadInt()
	if err := msg.Err(); err != nil {
		return err
	}
	if scale < 1 {
		return obj.Error(uint32(wl.SurfaceErrorInvalidScale), "invalid buffer scale %v", scale)
	}

	obj.Data.(*surface).pending.scale = scale
	return nil
}

func surfaceCommit(obj *server.Object, msg *wire.MessageBuffer) error {
	return obj.Data.(*surface).commit()
}

// commit makes the pending state current.
func (s *surface) commit() error {
	c := s.comp
	p := &s.pending
	defer func() { *p = surfaceState{} }()

	if p.scale > 0 {
		s.scale = p.scale
	}
	if p.transformSet {
		s.transform = p.transform
	}
	if p.opaqueSet {
		s.opaque = p.opaque
	}
	if p.inputSet {
		s.input = p.input
	}

	oldSize := s.size
	s.delta = p.offset
	if p.attached {
		err := s.attach(p.buffer)
		if err != nil {
			return err
		}
	}
	if s.image != nil {
		b := s.transform.Size(s.image.Bounds().Size())
		s.size = b.Div(int(s.scale))
	}

	if len(p.frames) > 0 {
		c.frames = append(c.frames, p.frames...)
		c.frameDue = true
	}

	damage := s.surfaceDamage(p, s.size != oldSize)
	if s.role == nil {
		return nil
	}
	return s.role.commit(damage)
}

// attach snapshots buf and releases it right away, so that the
// client may reuse it for the next frame.
func (s *surface) attach(buf *server.Object) error {
	if buf == nil {
		s.image = nil
		s.size = image.Point{}
		return nil
	}

	b := buf.Data.(*shm.Buffer)
	img, err := b.Snapshot()
	if err != nil {
		return buf.Error(uint32(wl.ShmErrorInvalidFd), "%v", err)
	}
	buf.Event(wl.BufferEventRelease, nil)

	s.image = img
	if s.transform != output.TransformNormal {
		s.image = render.TransformImage(img, s.transform.Invert())
	}
	return nil
}

// surfaceDamage converts the pending damage into surface-local
// logical coordinates. A new buffer without any damage, or a change
// of size, damages the whole surface.
func (s *surface) surfaceDamage(p *surfaceState, resized bool) []image.Rectangle {
	full := []image.Rectangle{{Max: s.size}}
	if resized {
		return full
	}
	if p.attached && (len(p.damage) == 0) && (len(p.bufferDamage) == 0) {
		return full
	}
	if (len(p.bufferDamage) > 0) && (s.transform != output.TransformNormal) {
		return full
	}

	damage := make([]image.Rectangle, 0, len(p.damage)+len(p.bufferDamage))
	for _, r := range p.damage {
		r = r.Intersect(full[0])
		if !r.Empty() {
			damage = append(damage, r)
		}
	}
	scale := int(s.scale)
	for _, r := range p.bufferDamage {
		r = image.Rect(
			r.Min.X/scale,
			r.Min.Y/scale,
			(r.Max.X+scale-1)/scale,
			(r.Max.Y+scale-1)/scale,
		).Intersect(full[0])
		if !r.Empty() {
			damage = append(damage, r)
		}
	}
	return damage
}

func (s *surface) destroy() {
	c := s.comp
	if s.role != nil {
		s.role.surfaceDestroyed()
	}
	if c.pointer.cursor == s {
		c.pointer.cursor = nil
		c.pointer.dirty = true
	}

	c.surfaces.Remove(s.handle)
	c.live.Delete(s)
	c.frameDue = true
}

func (s *surface) enter(og *outputGlobal) {
	s.outputs.Add(og.out.Name)
	for _, obj := range og.resourcesOf(s.obj.Client()) {
		s.obj.Event(wl.SurfaceEventEnter, func(msg *wire.MessageBuilder) {
			msg.WriteObject(obj)
		})
	}
}

func (s *surface) leave(og *outputGlobal) {
	s.outputs.Delete(og.out.Name)
	for _, obj := range og.resourcesOf(s.obj.Client()) {
		s.obj.Event(wl.SurfaceEventLeave, func(msg *wire.MessageBuilder) {
			msg.WriteObject(obj)
		})
	}
}

// origin returns the global position of the surface's top-left
// corner, if it is part of the space.
func (s *surface) origin() (image.Point, bool) {
	r, ok := s.comp.surfaceRect(s)
	return r.Min, ok
}
