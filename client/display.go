// Package client is a minimal Wayland client. It speaks the wire
// protocol directly and leaves the meaning of requests and events to
// its user, which makes it suitable for tools and for driving a
// compositor in tests.
package client

import (
	"errors"
	"fmt"
	"io"
	"time"

	"deedles.dev/wlcomp/proto/wl"
	"deedles.dev/wlcomp/wire"
)

// ErrTimeout is returned when no event arrives in time.
var ErrTimeout = errors.New("timed out waiting for an event")

// ProtocolError is a fatal error sent by the compositor.
type ProtocolError struct {
	Object  uint32
	Code    uint32
	Message string
}

func (err *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error %v on object %v: %v", err.Code, err.Object, err.Message)
}

// Display is a connection to a compositor. It is not safe for
// concurrent use. Events are only handled while Dispatch or RoundTrip
// is running.
type Display struct {
	// Timeout limits how long Dispatch waits for an event.
	Timeout time.Duration

	conn    *wire.Conn
	msgs    chan *wire.MessageBuffer
	readErr error

	obj     *Object
	objects map[uint32]*Object
	nextID  uint32
	err     error
}

// Dial connects to the compositor named by the environment.
func Dial() (*Display, error) {
	conn, err := wire.Dial()
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	return Connect(conn), nil
}

// DialPath connects to the socket at path.
func DialPath(path string) (*Display, error) {
	conn, err := wire.DialPath(path)
	if err != nil {
		return nil, fmt.Errorf("dial %v: %w", path, err)
	}
	return Connect(conn), nil
}

// Connect returns a Display that talks over conn.
func Connect(conn *wire.Conn) *Display {
	d := Display{
		Timeout: 5 * time.Second,
		conn:    conn,
		msgs:    make(chan *wire.MessageBuffer, 64),
		objects: make(map[uint32]*Object),
		nextID:  1,
	}
	d.obj = d.NewObject(wl.DisplayInterface)
	d.obj.On(wl.DisplayEventError, d.handleError)
	d.obj.On(wl.DisplayEventDeleteId, d.handleDeleteID)

	go d.read()
	return &d
}

func (d *Display) read() {
	defer close(d.msgs)
	for {
		msg, err := wire.ReadMessage(d.conn)
		if err != nil {
			d.readErr = err
			return
		}
		d.msgs <- msg
	}
}

func (d *Display) handleError(msg *wire.MessageBuffer) {
	d.err = &ProtocolError{
		Object:  msg.ReadObject(),
		Code:    msg.ReadUint(),
		Message: msg.ReadString(),
	}
}

func (d *Display) handleDeleteID(msg *wire.MessageBuffer) {
	id := msg.ReadUint()
	if obj, ok := d.objects[id]; ok {
		obj.deleted = true
		delete(d.objects, id)
	}
}

// Close closes the connection.
func (d *Display) Close() error {
	return d.conn.Close()
}

// Err returns the protocol error sent by the compositor, if any.
func (d *Display) Err() error {
	return d.err
}

// Object returns the wl_display object.
func (d *Display) Object() *Object {
	return d.obj
}

// NewObject allocates a new client-side object. It is up to the
// caller to create it on the server with a request.
func (d *Display) NewObject(iface string) *Object {
	obj := &Object{
		display:  d,
		id:       d.nextID,
		iface:    iface,
		handlers: make(map[uint16]func(*wire.MessageBuffer)),
	}
	d.objects[obj.id] = obj
	d.nextID++
	return obj
}

// Adopt starts tracking an object created by the server, such as a
// wl_data_offer, so that its events can be handled.
func (d *Display) Adopt(id uint32, iface string) *Object {
	obj := &Object{
		display:  d,
		id:       id,
		iface:    iface,
		handlers: make(map[uint16]func(*wire.MessageBuffer)),
	}
	d.objects[id] = obj
	return obj
}

// Lookup returns the object with the given ID.
func (d *Display) Lookup(id uint32) (*Object, bool) {
	obj, ok := d.objects[id]
	return obj, ok
}

// Dispatch waits for a single event and handles it.
func (d *Display) Dispatch() error {
	timer := time.NewTimer(d.Timeout)
	defer timer.Stop()

	select {
	case msg, ok := <-d.msgs:
		if !ok {
			if d.err != nil {
				return d.err
			}
			if d.readErr != nil {
				return d.readErr
			}
			return io.EOF
		}
		d.dispatch(msg)
		return d.err
	case <-timer.C:
		return ErrTimeout
	}
}

func (d *Display) dispatch(msg *wire.MessageBuffer) {
	obj, ok := d.objects[msg.Sender()]
	if !ok {
		return
	}
	if h := obj.handlers[msg.Op()]; h != nil {
		h(msg)
	}
}

// RoundTrip handles events until the compositor has processed every
// request sent so far.
func (d *Display) RoundTrip() error {
	done := false
	cb, err := d.obj.Create(wl.DisplaySync, wl.CallbackInterface, nil)
	if err != nil {
		return err
	}
	cb.On(wl.CallbackEventDone, func(*wire.MessageBuffer) { done = true })

	for !done {
		err := d.Dispatch()
		if err != nil {
			return err
		}
	}
	return d.err
}

// WaitFor handles events until cond returns true.
func (d *Display) WaitFor(cond func() bool) error {
	for !cond() {
		err := d.Dispatch()
		if err != nil {
			return err
		}
	}
	return nil
}

// Object is a protocol object on the client side.
type Object struct {
	display  *Display
	id       uint32
	iface    string
	handlers map[uint16]func(*wire.MessageBuffer)
	deleted  bool
}

func (obj *Object) ID() uint32 {
	return obj.id
}

func (obj *Object) MethodName(op uint16) string {
	return fmt.Sprintf("%v#%v", obj.iface, op)
}

func (obj *Object) String() string {
	return fmt.Sprintf("%v@%v", obj.iface, obj.id)
}

func (obj *Object) Interface() string {
	return obj.iface
}

// Deleted reports whether the compositor has released the object's
// ID.
func (obj *Object) Deleted() bool {
	return obj.deleted
}

// On sets the handler of the event with the given opcode, replacing
// any previous handler.
func (obj *Object) On(op uint16, h func(*wire.MessageBuffer)) *Object {
	obj.handlers[op] = h
	return obj
}

// Request sends a request from the object. build writes its
// arguments.
func (obj *Object) Request(op uint16, build func(*wire.MessageBuilder)) error {
	msg := wire.NewMessage(obj, op)
	if build != nil {
		build(msg)
	}
	err := msg.Build(obj.display.conn)
	if err != nil {
		return fmt.Errorf("send %v: %w", obj.MethodName(op), err)
	}
	return nil
}

// Create sends a request whose first argument is the ID of a new
// object and returns that object. args writes the remaining
// arguments.
func (obj *Object) Create(op uint16, iface string, args func(*wire.MessageBuilder)) (*Object, error) {
	child := obj.display.NewObject(iface)
	err := obj.Request(op, func(msg *wire.MessageBuilder) {
		msg.WriteUint(child.id)
		if args != nil {
			args(msg)
		}
	})
	if err != nil {
		delete(obj.display.objects, child.id)
		return nil, err
	}
	return child, nil
}
