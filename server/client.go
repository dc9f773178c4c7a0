package server

import (
	"errors"
	"fmt"
	"io"
	"net"

	"deedles.dev/wlcomp/internal/debug"
	"deedles.dev/wlcomp/internal/objstore"
	"deedles.dev/wlcomp/proto/wl"
	"deedles.dev/wlcomp/wire"
	"github.com/sirupsen/logrus"
)

// OutgoingLimit is the number of events that may be waiting to be
// written to a client before it is considered unresponsive and
// disconnected.
const OutgoingLimit = 4096

// Client is a connected Wayland client. Except where noted, its
// methods must only be called from the event loop.
type Client struct {
	server *Server
	conn   *wire.Conn
	pid    int32

	objects    *objstore.Store[*Object]
	display    *Object
	registries []*Object

	pending []*wire.MessageBuilder
	out     chan *wire.MessageBuilder
	failed  bool
	closed  bool

	// Data holds the compositor's per-client state.
	Data any
}

func newClient(server *Server, conn *wire.Conn) *Client {
	c := Client{
		server:  server,
		conn:    conn,
		objects: objstore.New[*Object](),
		out:     make(chan *wire.MessageBuilder, OutgoingLimit),
	}
	c.pid, _ = conn.PeerPID()

	c.display = &Object{
		id:      1,
		iface:   displayInterface,
		version: 1,
		client:  &c,
	}
	c.objects.Add(1, c.display)

	go c.read()
	go c.write()

	return &c
}

func (c *Client) String() string {
	return fmt.Sprintf("client(%v)", c.pid)
}

// PID returns the process ID of the client, or 0 if it is unknown.
func (c *Client) PID() int32 {
	return c.pid
}

// Server returns the server that accepted the client.
func (c *Client) Server() *Server {
	return c.server
}

// Closed reports whether the client has been disconnected.
func (c *Client) Closed() bool {
	return c.closed
}

func (c *Client) read() {
	for {
		msg, err := wire.ReadMessage(c.conn)
		if err != nil {
			c.server.queue.Post(func() error {
				c.disconnect(err)
				return nil
			})
			return
		}

		ok := c.server.queue.Post(func() error {
			c.dispatch(msg)
			return nil
		})
		if !ok {
			return
		}
	}
}

func (c *Client) write() {
	defer c.conn.Close()

	var failed bool
	for msg := range c.out {
		if failed {
			msg.Discard()
			continue
		}

		debug.Printf("[%v]  -> %v", c, msg)
		err := msg.Build(c.conn)
		if err != nil {
			failed = true
			c.server.queue.Post(func() error {
				c.disconnect(fmt.Errorf("write: %w", err))
				return nil
			})
		}
	}
}

func (c *Client) disconnect(err error) {
	if c.closed {
		return
	}

	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		logrus.WithField("client", c).Debugln("client disconnected")
	} else {
		logrus.WithError(err).WithField("client", c).Warnln("dropping client")
	}
	c.Close()
}

func (c *Client) dispatch(msg *wire.MessageBuffer) {
	if c.closed {
		return
	}

	obj, ok := c.objects.Get(msg.Sender())
	if !ok {
		c.fail(c.display.Error(uint32(wl.DisplayErrorInvalidObject), "invalid object %v", msg.Sender()))
		return
	}
	if int(msg.Op()) >= len(obj.iface.Requests) {
		c.fail(c.display.Error(uint32(wl.DisplayErrorInvalidMethod), "invalid method %v for %v", msg.Op(), obj))
		return
	}

	req := obj.iface.Requests[msg.Op()]
	var err error
	if req.Handler != nil {
		err = req.Handler(obj, msg)
	}
	obj.trace(msg)

	if err == nil {
		err = msg.Err()
	}
	if err != nil {
		c.handlerError(obj, req, err)
		return
	}

	if req.Destructor {
		c.Destroy(obj)
	}
}

func (c *Client) handlerError(obj *Object, req Request, err error) {
	var perr *ProtocolError
	if errors.As(err, &perr) {
		c.fail(perr)
		return
	}

	if errors.Is(err, io.ErrUnexpectedEOF) {
		c.fail(c.display.Error(uint32(wl.DisplayErrorInvalidMethod), "invalid arguments for %v.%v", obj, req.Name))
		return
	}

	logrus.WithError(err).WithFields(logrus.Fields{
		"client":  c,
		"object":  obj,
		"request": req.Name,
	}).Errorln("request failed")
	c.fail(c.display.Error(uint32(wl.DisplayErrorImplementation), "%v.%v: %v", obj, req.Name, err))
}

// fail sends err to the client and disconnects it.
func (c *Client) fail(err *ProtocolError) {
	logrus.WithField("client", c).Warnln(err)

	c.display.Event(wl.DisplayEventError, func(msg *wire.MessageBuilder) {
		msg.WriteObject(err.Object)
		msg.WriteUint(err.Code)
		msg.WriteString(err.Message)
	})
	c.Close()
}

// Get returns the object with the given ID.
func (c *Client) Get(id uint32) (*Object, bool) {
	return c.objects.Get(id)
}

// Lookup returns the object with the given ID, which must be an
// instance of iface. Anything else is a protocol error.
func (c *Client) Lookup(id uint32, iface *Interface) (*Object, error) {
	obj, ok := c.objects.Get(id)
	if !ok {
		return nil, c.display.Error(uint32(wl.DisplayErrorInvalidObject), "invalid object %v", id)
	}
	if obj.iface != iface {
		return nil, c.display.Error(uint32(wl.DisplayErrorInvalidObject), "%v is not a %v", obj, iface.Name)
	}
	return obj, nil
}

// LookupNullable is like Lookup but returns a nil object for a null
// ID.
func (c *Client) LookupNullable(id uint32, iface *Interface) (*Object, error) {
	if id == 0 {
		return nil, nil
	}
	return c.Lookup(id, iface)
}

// NewObject creates a new object at the client-chosen id. An id that
// is zero, in the server's range or already in use is a protocol
// error.
func (c *Client) NewObject(id uint32, iface *Interface, version uint32) (*Object, error) {
	if (id == 0) || objstore.IsServerID(id) || c.objects.Has(id) {
		return nil, c.display.Error(uint32(wl.DisplayErrorInvalidObject), "invalid new id %v for %v", id, iface.Name)
	}

	obj := Object{
		id:      id,
		iface:   iface,
		version: version,
		client:  c,
	}
	c.objects.Add(id, &obj)
	return &obj, nil
}

// NewServerObject creates an object with an ID from the server's
// range, such as a wl_data_offer.
func (c *Client) NewServerObject(iface *Interface, version uint32) *Object {
	obj := Object{
		iface:   iface,
		version: version,
		client:  c,
	}
	obj.id = c.objects.Add(0, &obj)
	return &obj
}

// Destroy destroys obj and, for client-created objects, tells the
// client that its ID may be reused.
func (c *Client) Destroy(obj *Object) {
	if obj.destroyed {
		return
	}
	obj.destroyed = true

	for i := len(obj.destroy) - 1; i >= 0; i-- {
		obj.destroy[i]()
	}
	obj.destroy = nil

	c.objects.Delete(obj.id)
	c.removeRegistry(obj)
	if c.closed || objstore.IsServerID(obj.id) {
		return
	}
	c.display.Event(wl.DisplayEventDeleteId, func(msg *wire.MessageBuilder) {
		msg.WriteUint(obj.id)
	})
}

// Objects returns the number of live objects belonging to the client.
func (c *Client) Objects() int {
	return c.objects.Len()
}

func (c *Client) send(msg *wire.MessageBuilder) {
	if c.failed || (c.closed && (msg.Sender() != c.display)) {
		msg.Discard()
		return
	}
	c.pending = append(c.pending, msg)
}

// Flush hands queued events to the client's writer. It never blocks.
// If the writer has fallen too far behind, the client is scheduled
// for disconnection.
func (c *Client) Flush() {
	if c.failed {
		return
	}

	for i, msg := range c.pending {
		select {
		case c.out <- msg:
		default:
			for _, msg := range c.pending[i:] {
				msg.Discard()
			}
			c.pending = nil
			c.failed = true
			c.server.queue.Post(func() error {
				c.disconnect(errors.New("outgoing event queue full"))
				return nil
			})
			return
		}
	}
	clear(c.pending)
	c.pending = c.pending[:0]
}

// Close disconnects the client. Every object is destroyed, newest
// first, before the server's Listener is told that the client is
// gone. Events already queued, such as a protocol error, are still
// written.
func (c *Client) Close() {
	if c.closed {
		return
	}
	c.closed = true

	for _, obj := range c.objects.Reverse() {
		c.Destroy(obj)
	}

	c.server.removeClient(c)

	c.Flush()
	close(c.out)
}
