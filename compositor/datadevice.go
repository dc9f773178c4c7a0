package compositor

import (
	"image"
	"slices"

	"deedles.dev/wlcomp/proto/wl"
	"deedles.dev/wlcomp/render"
	"deedles.dev/wlcomp/server"
	"deedles.dev/wlcomp/wire"
	"github.com/sirupsen/logrus"
)

var (
	dataDeviceManagerInterface = server.NewInterface(wl.DataDeviceManagerInterface, wl.DataDeviceManagerVersion, wl.DataDeviceManagerRequests, wl.DataDeviceManagerEvents)
	dataSourceInterface        = server.NewInterface(wl.DataSourceInterface, wl.DataSourceVersion, wl.DataSourceRequests, wl.DataSourceEvents)
	dataDeviceInterface        = server.NewInterface(wl.DataDeviceInterface, wl.DataDeviceVersion, wl.DataDeviceRequests, wl.DataDeviceEvents)
	dataOfferInterface         = server.NewInterface(wl.DataOfferInterface, wl.DataOfferVersion, wl.DataOfferRequests, wl.DataOfferEvents)
)

func init() {
	dataDeviceManagerInterface.
		Handle(wl.DataDeviceManagerCreateDataSource, dataDeviceManagerCreateDataSource).
		Handle(wl.DataDeviceManagerGetDataDevice, dataDeviceManagerGetDataDevice)
	dataSourceInterface.
		Destructor(wl.DataSourceDestroy, nil).
		Handle(wl.DataSourceOffer, dataSourceOffer).
		Handle(wl.DataSourceSetActions, dataSourceSetActions)
	dataDeviceInterface.
		Destructor(wl.DataDeviceRelease, nil).
		Handle(wl.DataDeviceStartDrag, dataDeviceStartDrag).
		Handle(wl.DataDeviceSetSelection, dataDeviceSetSelection)
	dataOfferInterface.
		Destructor(wl.DataOfferDestroy, dataOfferDestroy).
		Handle(wl.DataOfferAccept, dataOfferAccept).
		Handle(wl.DataOfferReceive, dataOfferReceive).
		Handle(wl.DataOfferFinish, dataOfferFinish).
		Handle(wl.DataOfferSetActions, dataOfferSetActions)
}

// dragIconID identifies the drag icon to the renderer. It sits just
// below the cursor's ID.
const dragIconID = render.CursorID - 1

const allDndActions = wl.DataDeviceManagerDndActionCopy |
	wl.DataDeviceManagerDndActionMove |
	wl.DataDeviceManagerDndActionAsk

type dataSource struct {
	comp    *Compositor
	obj     *server.Object
	mimes   []string
	actions wl.DataDeviceManagerDndAction

	// used is set once the source has been handed to set_selection
	// or start_drag. It may not be used again.
	used bool
}

type dataOffer struct {
	obj    *server.Object
	source *dataSource
	dnd    bool

	mime      string
	actions   wl.DataDeviceManagerDndAction
	preferred wl.DataDeviceManagerDndAction
	action    wl.DataDeviceManagerDndAction
	dropped   bool
	finished  bool
}

func (o *dataOffer) sourceAlive() bool {
	return (o.source != nil) && o.source.obj.Alive()
}

// drag is an active drag-and-drop operation.
type drag struct {
	source *dataSource
	client *server.Client
	origin *surface
	icon   *surface

	// iconOffset is the position of the icon relative to the pointer.
	iconOffset image.Point

	focus  *surface
	offers []*dataOffer
}

func dataDeviceManagerCreateDataSource(obj *server.Object, msg *wire.MessageBuffer) error {
	id := msg.ReadObject()
	if err := msg.Err(); err != nil {
		return err
	}

	sobj, err := obj.Client().NewObject(id, dataSourceInterface, obj.Version())
	if err != nil {
		return err
	}

	c := compositorOf(obj)
	src := &dataSource{comp: c, obj: sobj}
	sobj.Data = src
	sobj.OnDestroy(func() { c.sourceDestroyed(src) })
	return nil
}

func dataDeviceManagerGetDataDevice(obj *server.Object, msg *wire.MessageBuffer) error {
	id := msg.ReadObject()
	_ = msg.ReadObject()
	if err := msg.Err(); err != nil {
		return err
	}

	dobj, err := obj.Client().NewObject(id, dataDeviceInterface, obj.Version())
	if err != nil {
		return err
	}
	cs := stateOf(obj)
	track(&cs.dataDevices, dobj)

	c := cs.comp
	if s, ok := c.keyboardFocus(); ok && (s.obj.Client() == obj.Client()) {
		c.sendSelection(dobj)
	}
	return nil
}

func dataSourceOffer(obj *server.Object, msg *wire.MessageBuffer) error {
	mime := msg.ReadString()
	if err := msg.Err(); err != nil {
		return err
	}

	src := obj.Data.(*dataSource)
	if !slices.Contains(src.mimes, mime) {
		src.mimes = append(src.mimes, mime)
	}
	return nil
}

func dataSourceSetActions(obj *server.Object, msg *wire.MessageBuffer) error {
	actions := wl.DataDeviceManagerDndAction(msg.ReadUint())
	if err := msg.Err(); err != nil {
		return err
	}

	src := obj.Data.(*dataSource)
	if actions&^allDndActions != 0 {
		return obj.Error(uint32(wl.DataSourceErrorInvalidActionMask), "invalid action mask %v", uint32(actions))
	}
	if src.used {
		return obj.Error(uint32(wl.DataSourceErrorInvalidSource), "actions set after %v was used", obj)
	}
	src.actions = actions
	return nil
}

// lookupSource returns the source with the given ID, which may be
// null. A source may only be used once.
func lookupSource(obj *server.Object, id uint32) (*dataSource, error) {
	sobj, err := obj.Client().LookupNullable(id, dataSourceInterface)
	if (err != nil) || (sobj == nil) {
		return nil, err
	}
	src := sobj.Data.(*dataSource)
	if src.used {
		return nil, sobj.Error(uint32(wl.DataSourceErrorInvalidSource), "%v has already been used", sobj)
	}
	return src, nil
}

func dataDeviceSetSelection(obj *server.Object, msg *wire.MessageBuffer) error {
	srcID := msg.ReadObject()
	_ = msg.ReadUint()
	if err := msg.Err(); err != nil {
		return err
	}

	src, err := lookupSource(obj, srcID)
	if err != nil {
		return err
	}

	c := compositorOf(obj)
	if s, ok := c.keyboardFocus(); !ok || (s.obj.Client() != obj.Client()) {
		// Only the focused client may take the selection.
		if src != nil {
			src.obj.Event(wl.DataSourceEventCancelled, nil)
		}
		return nil
	}
	c.setSelection(src)
	return nil
}

func (c *Compositor) setSelection(src *dataSource) {
	if c.selection == src {
		return
	}
	if old := c.selection; old != nil {
		old.obj.Event(wl.DataSourceEventCancelled, nil)
	}

	c.selection = src
	if src != nil {
		src.used = true
	}
	if s, ok := c.keyboardFocus(); ok {
		c.offerSelection(s.obj.Client())
	}
}

// offerSelection sends the current selection to every data device of
// a client.
func (c *Compositor) offerSelection(sc *server.Client) {
	cs, ok := sc.Data.(*clientState)
	if !ok {
		return
	}
	for _, dev := range cs.dataDevices {
		c.sendSelection(dev)
	}
}

func (c *Compositor) sendSelection(dev *server.Object) {
	var offer *server.Object
	if o := c.newOffer(dev, c.selection, false); o != nil {
		offer = o.obj
	}
	dev.Event(wl.DataDeviceEventSelection, func(msg *wire.MessageBuilder) {
		msg.WriteObject(offer)
	})
}

// newOffer introduces a new wl_data_offer for src to the client of
// dev. It returns nil if src is nil.
func (c *Compositor) newOffer(dev *server.Object, src *dataSource, dnd bool) *dataOffer {
	if src == nil {
		return nil
	}

	obj := dev.Client().NewServerObject(dataOfferInterface, dev.Version())
	o := &dataOffer{obj: obj, source: src, dnd: dnd}
	obj.Data = o

	dev.Event(wl.DataDeviceEventDataOffer, func(msg *wire.MessageBuilder) {
		msg.WriteObject(obj)
	})
	for _, mime := range src.mimes {
		obj.Event(wl.DataOfferEventOffer, func(msg *wire.MessageBuilder) {
			msg.WriteString(mime)
		})
	}
	if dnd && obj.Since(3) {
		obj.Event(wl.DataOfferEventSourceActions, func(msg *wire.MessageBuilder) {
			msg.WriteUint(uint32(src.actions))
		})
	}
	return o
}

func (c *Compositor) sourceDestroyed(src *dataSource) {
	if c.selection == src {
		c.selection = nil
		if s, ok := c.keyboardFocus(); ok {
			c.offerSelection(s.obj.Client())
		}
	}
	if (c.drag != nil) && (c.drag.source == src) {
		c.dragLeave()
		c.drag = nil
		c.frameDue = true
	}
}

func dataOfferAccept(obj *server.Object, msg *wire.MessageBuffer) error {
	_ = msg.ReadUint()
	mime := msg.ReadString()
	if err := msg.Err(); err != nil {
		return err
	}

	o := obj.Data.(*dataOffer)
	if o.finished {
		return obj.Error(uint32(wl.DataOfferErrorInvalidOffer), "%v is already finished", obj)
	}
	o.mime = mime
	if o.dnd && o.sourceAlive() {
		o.source.obj.Event(wl.DataSourceEventTarget, func(msg *wire.MessageBuilder) {
			msg.WriteString(mime)
		})
	}
	return nil
}

func dataOfferReceive(obj *server.Object, msg *wire.MessageBuffer) error {
	mime := msg.ReadString()
	file := msg.ReadFile()
	if err := msg.Err(); err != nil {
		if file != nil {
			file.Close()
		}
		return err
	}
	defer file.Close()

	o := obj.Data.(*dataOffer)
	if o.finished {
		return obj.Error(uint32(wl.DataOfferErrorInvalidOffer), "%v is already finished", obj)
	}
	if !o.sourceAlive() {
		return nil
	}
	o.source.obj.Event(wl.DataSourceEventSend, func(msg *wire.MessageBuilder) {
		msg.WriteString(mime)
		msg.WriteFile(file)
	})
	return nil
}

func dataOfferDestroy(obj *server.Object, msg *wire.MessageBuffer) error {
	o := obj.Data.(*dataOffer)
	if o.dropped && !o.finished && o.sourceAlive() && obj.Since(3) {
		o.source.obj.Event(wl.DataSourceEventCancelled, nil)
	}
	return nil
}

func dataOfferFinish(obj *server.Object, msg *wire.MessageBuffer) error {
	o := obj.Data.(*dataOffer)
	if !o.dnd || !o.dropped || o.finished {
		return obj.Error(uint32(wl.DataOfferErrorInvalidFinish), "finish on %v outside of a finished drop", obj)
	}
	if o.action == wl.DataDeviceManagerDndActionNone {
		return obj.Error(uint32(wl.DataOfferErrorInvalidFinish), "finish on %v without an action", obj)
	}

	o.finished = true
	if o.sourceAlive() && o.source.obj.Since(3) {
		o.source.obj.Event(wl.DataSourceEventDndFinished, nil)
	}
	return nil
}

func dataOfferSetActions(obj *server.Object, msg *wire.MessageBuffer) error {
	actions := wl.DataDeviceManagerDndAction(msg.ReadUint())
	preferred := wl.DataDeviceManagerDndAction(msg.ReadUint())
	if err := msg.Err(); err != nil {
		return err
	}

	o := obj.Data.(*dataOffer)
	if actions&^allDndActions != 0 {
		return obj.Error(uint32(wl.DataOfferErrorInvalidActionMask), "invalid action mask %v", uint32(actions))
	}
	if (preferred&^allDndActions != 0) || (preferred&(preferred-1) != 0) || (preferred&^actions != 0) {
		return obj.Error(uint32(wl.DataOfferErrorInvalidAction), "invalid preferred action %v", uint32(preferred))
	}
	if !o.dnd || o.finished {
		return obj.Error(uint32(wl.DataOfferErrorInvalidOffer), "actions set on %v outside of a drag", obj)
	}

	o.actions = actions
	o.preferred = preferred
	o.updateAction()
	return nil
}

// chooseAction picks the action of a drag given what the source and
// destination support and what the destination prefers.
func chooseAction(source, dest, preferred wl.DataDeviceManagerDndAction) wl.DataDeviceManagerDndAction {
	both := source & dest
	if both&preferred != 0 {
		return preferred
	}
	for _, a := range []wl.DataDeviceManagerDndAction{
		wl.DataDeviceManagerDndActionCopy,
		wl.DataDeviceManagerDndActionMove,
		wl.DataDeviceManagerDndActionAsk,
	} {
		if both&a != 0 {
			return a
		}
	}
	return wl.DataDeviceManagerDndActionNone
}

func (o *dataOffer) updateAction() {
	if !o.sourceAlive() {
		return
	}

	action := chooseAction(o.source.actions, o.actions, o.preferred)
	if action == o.action {
		return
	}
	o.action = action

	if o.obj.Since(3) {
		o.obj.Event(wl.DataOfferEventAction, func(msg *wire.MessageBuilder) {
			msg.WriteUint(uint32(action))
		})
	}
	if o.source.obj.Since(3) {
		o.source.obj.Event(wl.DataSourceEventAction, func(msg *wire.MessageBuilder) {
			msg.WriteUint(uint32(action))
		})
	}
}

// acceptable reports whether a drop on the offer would succeed.
func (o *dataOffer) acceptable() bool {
	if o.mime == "" {
		return false
	}
	if o.obj.Since(3) && o.source.obj.Since(3) {
		return o.action != wl.DataDeviceManagerDndActionNone
	}
	return true
}

func dataDeviceStartDrag(obj *server.Object, msg *wire.MessageBuffer) error {
	srcID := msg.ReadObject()
	originID := msg.ReadObject()
	iconID := msg.ReadObject()
	_ = msg.ReadUint()
	if err := msg.Err(); err != nil {
		return err
	}

	client := obj.Client()
	src, err := lookupSource(obj, srcID)
	if err != nil {
		return err
	}
	oobj, err := client.Lookup(originID, surfaceInterface)
	if err != nil {
		return err
	}
	iobj, err := client.LookupNullable(iconID, surfaceInterface)
	if err != nil {
		return err
	}

	c := compositorOf(obj)
	var icon *surface
	if iobj != nil {
		icon = iobj.Data.(*surface)
		switch icon.role.(type) {
		case nil:
			icon.role = &dragIconRole{comp: c, s: icon}
		case *dragIconRole:
		default:
			return obj.Error(uint32(wl.DataDeviceErrorRole), "%v already has another role", iobj)
		}
	}

	origin := oobj.Data.(*surface)
	focus, ok := c.pointerFocus()
	if (c.drag != nil) || !ok || (focus.obj.Client() != client) || (c.seat.ButtonsDown() == 0) {
		if src != nil {
			src.obj.Event(wl.DataSourceEventCancelled, nil)
		}
		return nil
	}

	if src != nil {
		src.used = true
	}
	c.drag = &drag{
		source: src,
		client: client,
		origin: origin,
		icon:   icon,
	}
	c.setPointerFocus(nil)
	c.dragMotion(c.now())
	logrus.WithField("client", client).Debugln("drag started")
	return nil
}

// dragTarget returns the surface that a drag should be offered to at
// the pointer's position.
func (c *Compositor) dragTarget() *surface {
	s, _, ok := c.surfaceAt(c.seat.Position())
	if !ok {
		return nil
	}
	// Drags without a source stay within their client.
	if (c.drag.source == nil) && (s.obj.Client() != c.drag.client) {
		return nil
	}
	return s
}

func (c *Compositor) dragMotion(time uint32) {
	d := c.drag
	if (d.focus != nil) && !d.focus.obj.Alive() {
		d.focus = nil
		d.offers = nil
	}

	if s := c.dragTarget(); s != d.focus {
		c.dragLeave()
		c.dragEnter(s)
	}
	if d.focus == nil {
		return
	}

	l := c.local(d.focus, c.seat.Position())
	for _, dev := range stateOf(d.focus.obj).dataDevices {
		dev.Event(wl.DataDeviceEventMotion, func(msg *wire.MessageBuilder) {
			msg.WriteUint(time)
			msg.WriteFixed(wire.FixedFloat(l.X))
			msg.WriteFixed(wire.FixedFloat(l.Y))
		})
	}
}

func (c *Compositor) dragEnter(s *surface) {
	d := c.drag
	d.focus = s
	if s == nil {
		return
	}

	serial := c.server.NextSerial()
	l := c.local(s, c.seat.Position())
	for _, dev := range stateOf(s.obj).dataDevices {
		var offer *server.Object
		if o := c.newOffer(dev, d.source, true); o != nil {
			d.offers = append(d.offers, o)
			offer = o.obj
		}
		dev.Event(wl.DataDeviceEventEnter, func(msg *wire.MessageBuilder) {
			msg.WriteUint(serial)
			msg.WriteObject(s.obj)
			msg.WriteFixed(wire.FixedFloat(l.X))
			msg.WriteFixed(wire.FixedFloat(l.Y))
			msg.WriteObject(offer)
		})
	}
}

func (c *Compositor) dragLeave() {
	d := c.drag
	s := d.focus
	d.focus = nil
	d.offers = nil
	if (s == nil) || !s.obj.Alive() {
		return
	}

	for _, dev := range stateOf(s.obj).dataDevices {
		dev.Event(wl.DataDeviceEventLeave, nil)
	}
	if d.source != nil {
		d.source.obj.Event(wl.DataSourceEventTarget, func(msg *wire.MessageBuilder) {
			msg.WriteString("")
		})
	}
}

// dropDrag ends the drag when the last button is released.
func (c *Compositor) dropDrag() {
	d := c.drag
	c.frameDue = true

	accepted := d.focus != nil
	if d.source != nil {
		accepted = accepted && slices.ContainsFunc(d.offers, (*dataOffer).acceptable)
	}
	if !accepted {
		c.dragLeave()
		c.drag = nil
		if d.source != nil {
			d.source.obj.Event(wl.DataSourceEventCancelled, nil)
		}
		return
	}

	for _, dev := range stateOf(d.focus.obj).dataDevices {
		dev.Event(wl.DataDeviceEventDrop, nil)
	}
	for _, o := range d.offers {
		o.dropped = true
	}
	if (d.source != nil) && d.source.obj.Since(3) {
		d.source.obj.Event(wl.DataSourceEventDndDropPerformed, nil)
	}

	// The offers stay valid after the drop, so the source is not
	// told about the leave.
	s := d.focus
	d.focus = nil
	for _, dev := range stateOf(s.obj).dataDevices {
		dev.Event(wl.DataDeviceEventLeave, nil)
	}
	c.drag = nil
}

// endClientDrag cancels a drag started by a client that has gone
// away.
func (c *Compositor) endClientDrag(sc *server.Client) {
	if (c.drag == nil) || (c.drag.client != sc) {
		return
	}
	c.dragLeave()
	c.drag = nil
	c.frameDue = true
}

// dragIconRole is the role of a surface used as a drag icon.
type dragIconRole struct {
	comp *Compositor
	s    *surface
}

func (r *dragIconRole) commit(damage []image.Rectangle) error {
	c := r.comp
	d := c.drag
	if (d == nil) || (d.icon != r.s) {
		return nil
	}

	d.iconOffset = d.iconOffset.Add(r.s.delta)
	if e, ok := c.dragIconElement(); ok {
		c.space.AddDamage(e.Geometry)
	}
	return nil
}

func (r *dragIconRole) surfaceDestroyed() {
	c := r.comp
	if (c.drag != nil) && (c.drag.icon == r.s) {
		c.drag.icon = nil
	}
}

func (c *Compositor) dragIconElement() (render.Element, bool) {
	d := c.drag
	if (d == nil) || (d.icon == nil) || (d.icon.image == nil) {
		return render.Element{}, false
	}

	pos := floorPoint(c.seat.Position()).Add(d.iconOffset)
	return render.Element{
		ID:       dragIconID,
		Geometry: image.Rectangle{Min: pos, Max: pos.Add(d.icon.size)},
		Buffer:   d.icon.image,
	}, true
}

// updateDragIcon damages the old and new areas of the drag icon
// whenever it moves.
func (c *Compositor) updateDragIcon() {
	var r image.Rectangle
	if e, ok := c.dragIconElement(); ok {
		r = e.Geometry
	}
	if r == c.dragPainted {
		return
	}
	c.space.AddDamage(c.dragPainted, r)
	c.dragPainted = r
}
