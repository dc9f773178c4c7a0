// Package server implements the server side of the Wayland protocol:
// accepting clients, tracking their objects and dispatching their
// requests through a table of interfaces.
package server

import (
	"errors"
	"net"
	"sync"

	"deedles.dev/wlcomp/internal/ev"
	"deedles.dev/wlcomp/internal/xslices"
	"deedles.dev/wlcomp/wire"
	"github.com/sirupsen/logrus"
)

// Listener is notified of clients connecting and disconnecting. Its
// methods are called on the event loop.
type Listener interface {
	Client(c *Client)
	ClientRemove(c *Client)
}

// Server accepts clients from a socket and feeds their requests into
// an event queue. Everything except Close must be called from the
// goroutine that flushes that queue.
type Server struct {
	listener Listener
	table    Table
	lis      *wire.Listener
	queue    *ev.Queue

	clients []*Client
	globals []*Global
	name    uint32
	serial  uint32

	done  chan struct{}
	close sync.Once
}

// New returns a Server that accepts connections from lis and posts
// work to queue. The core interfaces wl_display, wl_registry and
// wl_callback are added to table.
func New(lis *wire.Listener, queue *ev.Queue, table Table, listener Listener) *Server {
	table.Register(displayInterface, registryInterface, CallbackInterface)

	server := Server{
		listener: listener,
		table:    table,
		lis:      lis,
		queue:    queue,
		done:     make(chan struct{}),
	}
	if lis != nil {
		go server.listen()
	}

	return &server
}

func (server *Server) listen() {
	for {
		c, err := server.lis.AcceptUnix()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}

			logrus.WithError(err).Warnln("accept client")
			select {
			case <-server.done:
				return
			default:
				continue
			}
		}

		ok := server.queue.Post(func() error {
			server.AddClient(wire.NewConn(c))
			return nil
		})
		if !ok {
			c.Close()
			return
		}
	}
}

// AddClient starts serving conn as a new client.
func (server *Server) AddClient(conn *wire.Conn) *Client {
	c := newClient(server, conn)
	server.clients = append(server.clients, c)
	logrus.WithField("client", c).Debugln("client connected")

	if server.listener != nil {
		server.listener.Client(c)
	}
	return c
}

func (server *Server) removeClient(c *Client) {
	server.clients = xslices.Remove(server.clients, c)
	if server.listener != nil {
		server.listener.ClientRemove(c)
	}
}

// Clients returns the connected clients in connection order.
func (server *Server) Clients() []*Client {
	r := make([]*Client, len(server.clients))
	copy(r, server.clients)
	return r
}

// Table returns the server's interface table.
func (server *Server) Table() Table {
	return server.table
}

// NextSerial returns a new event serial.
func (server *Server) NextSerial() uint32 {
	server.serial++
	return server.serial
}

// Flush hands the queued events of every client to its writer.
func (server *Server) Flush() {
	for _, c := range server.clients {
		c.Flush()
	}
}

// Close stops accepting new clients and disconnects the existing
// ones.
func (server *Server) Close() error {
	var err error
	server.close.Do(func() {
		close(server.done)
		if server.lis != nil {
			err = server.lis.Close()
		}
		for _, c := range server.Clients() {
			c.Close()
		}
	})
	return err
}
