package server

import (
	"fmt"

	"deedles.dev/wlcomp/internal/debug"
	"deedles.dev/wlcomp/wire"
)

// Object is a protocol object owned by a client.
type Object struct {
	id      uint32
	iface   *Interface
	version uint32
	client  *Client

	// Data holds the compositor's state for the object.
	Data any

	destroy   []func()
	destroyed bool
}

func (obj *Object) ID() uint32 {
	return obj.id
}

func (obj *Object) Interface() *Interface {
	return obj.iface
}

// Version returns the version the object was bound or created with.
func (obj *Object) Version() uint32 {
	return obj.version
}

// Since reports whether the object's version is at least v.
func (obj *Object) Since(v uint32) bool {
	return obj.version >= v
}

func (obj *Object) Client() *Client {
	return obj.client
}

// MethodName returns the name of the event with the given opcode.
func (obj *Object) MethodName(op uint16) string {
	return obj.iface.eventName(op)
}

func (obj *Object) String() string {
	if obj == nil {
		return "nil"
	}
	return fmt.Sprintf("%v#%v", obj.iface.Name, obj.id)
}

// Alive reports whether the object has not yet been destroyed.
func (obj *Object) Alive() bool {
	return (obj != nil) && !obj.destroyed
}

// OnDestroy registers f to be called when the object is destroyed,
// either by request or because its client went away. Hooks run in
// reverse order of registration.
func (obj *Object) OnDestroy(f func()) {
	obj.destroy = append(obj.destroy, f)
}

// Event queues an event from the object. build writes the event's
// arguments. Events to destroyed objects are dropped.
func (obj *Object) Event(op uint16, build func(*wire.MessageBuilder)) {
	if obj.destroyed {
		return
	}

	msg := wire.NewMessage(obj, op)
	if build != nil {
		build(msg)
	}
	obj.client.send(msg)
}

// Error returns a ProtocolError raised against the object.
func (obj *Object) Error(code uint32, format string, args ...any) *ProtocolError {
	return &ProtocolError{
		Object:  obj,
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Destroy destroys the object from the server side.
func (obj *Object) Destroy() {
	obj.client.Destroy(obj)
}

type requestNames struct {
	*Object
}

func (obj requestNames) MethodName(op uint16) string {
	return obj.iface.requestName(op)
}

func (obj *Object) trace(msg *wire.MessageBuffer) {
	if !debug.Enabled() {
		return
	}
	debug.Printf("[%v] %v", obj.client, msg.Debug(requestNames{obj}))
}
