package server_test

import (
	"net"
	"os"
	"slices"
	"testing"
	"time"

	"deedles.dev/wlcomp/internal/ev"
	"deedles.dev/wlcomp/proto/wl"
	"deedles.dev/wlcomp/server"
	"deedles.dev/wlcomp/wire"
	"golang.org/x/sys/unix"
)

type sender uint32

func (obj sender) ID() uint32                  { return uint32(obj) }
func (obj sender) MethodName(op uint16) string { return "request" }

type listener struct {
	added   []*server.Client
	removed []*server.Client
}

func (lis *listener) Client(c *server.Client)       { lis.added = append(lis.added, c) }
func (lis *listener) ClientRemove(c *server.Client) { lis.removed = append(lis.removed, c) }

type harness struct {
	t      *testing.T
	queue  *ev.Queue
	server *server.Server
	lis    listener
	conn   *wire.Conn
	msgs   chan *wire.MessageBuffer
	nextID uint32
}

func newHarness(t *testing.T, table server.Table) *harness {
	t.Helper()

	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	conn := func(fd int) *wire.Conn {
		file := os.NewFile(uintptr(fd), "socket")
		defer file.Close()
		c, err := net.FileConn(file)
		if err != nil {
			t.Fatalf("file conn: %v", err)
		}
		return wire.NewConn(c.(*net.UnixConn))
	}

	h := harness{
		t:      t,
		queue:  new(ev.Queue),
		conn:   conn(fds[0]),
		msgs:   make(chan *wire.MessageBuffer, 128),
		nextID: 2,
	}
	h.server = server.New(nil, h.queue, table, &h.lis)
	h.server.AddClient(conn(fds[1]))
	t.Cleanup(func() {
		h.server.Close()
		h.conn.Close()
		h.queue.Stop()
	})

	go func() {
		defer close(h.msgs)
		for {
			msg, err := wire.ReadMessage(h.conn)
			if err != nil {
				return
			}
			h.msgs <- msg
		}
	}()

	return &h
}

func (h *harness) newID() uint32 {
	id := h.nextID
	h.nextID++
	return id
}

func (h *harness) send(id uint32, op uint16, build func(*wire.MessageBuilder)) {
	h.t.Helper()

	msg := wire.NewMessage(sender(id), op)
	if build != nil {
		build(msg)
	}
	err := msg.Build(h.conn)
	if err != nil {
		h.t.Fatalf("send: %v", err)
	}
}

// roundtrip sends wl_display.sync and runs the event loop until the
// callback fires or the connection closes, returning every other
// message received in the meantime.
func (h *harness) roundtrip() (msgs []*wire.MessageBuffer, open bool) {
	h.t.Helper()

	cb := h.newID()
	h.send(1, wl.DisplaySync, func(msg *wire.MessageBuilder) { msg.WriteUint(cb) })

	timeout := time.After(5 * time.Second)
	for {
		select {
		case e := <-h.queue.Get():
			h.queue.Drain(e).Flush()
			h.server.Flush()
		case msg, ok := <-h.msgs:
			if !ok {
				return msgs, false
			}
			if (msg.Sender() == cb) && (msg.Op() == wl.CallbackEventDone) {
				return msgs, true
			}
			msgs = append(msgs, msg)
		case <-timeout:
			h.t.Fatal("timed out waiting for roundtrip")
		}
	}
}

func (h *harness) getRegistry() (uint32, map[string]uint32) {
	h.t.Helper()

	registry := h.newID()
	h.send(1, wl.DisplayGetRegistry, func(msg *wire.MessageBuilder) { msg.WriteUint(registry) })
	msgs, _ := h.roundtrip()

	globals := make(map[string]uint32)
	for _, msg := range msgs {
		if (msg.Sender() != registry) || (msg.Op() != wl.RegistryEventGlobal) {
			continue
		}
		name := msg.ReadUint()
		iface := msg.ReadString()
		msg.ReadUint()
		globals[iface] = name
	}
	return registry, globals
}

func findError(msgs []*wire.MessageBuffer) (code uint32, ok bool) {
	for _, msg := range msgs {
		if (msg.Sender() == 1) && (msg.Op() == wl.DisplayEventError) {
			msg.ReadObject()
			return msg.ReadUint(), true
		}
	}
	return 0, false
}

func TestRegistry(t *testing.T) {
	table := make(server.Table)
	iface := server.NewInterface("test_global", 3, []string{"destroy"}, nil)
	table.Register(iface)
	h := newHarness(t, table)

	var boundVersion uint32
	h.server.AddGlobal(iface, 3, func(obj *server.Object) error {
		boundVersion = obj.Version()
		return nil
	})

	registry, globals := h.getRegistry()
	name, ok := globals["test_global"]
	if !ok {
		t.Fatalf("global not advertised: %v", globals)
	}

	h.send(registry, wl.RegistryBind, func(msg *wire.MessageBuilder) {
		msg.WriteUint(name)
		msg.WriteNewID(wire.NewID{Interface: "test_global", Version: 7, ID: h.newID()})
	})
	_, open := h.roundtrip()
	if !open {
		t.Fatal("valid bind closed the connection")
	}
	if boundVersion != 3 {
		t.Fatalf("bound version: %v", boundVersion)
	}

	h.send(registry, wl.RegistryBind, func(msg *wire.MessageBuilder) {
		msg.WriteUint(name + 100)
		msg.WriteNewID(wire.NewID{Interface: "test_global", Version: 1, ID: h.newID()})
	})
	msgs, open := h.roundtrip()
	if open {
		t.Fatal("invalid bind left the connection open")
	}
	code, ok := findError(msgs)
	if !ok || (code != uint32(wl.DisplayErrorInvalidObject)) {
		t.Fatalf("error: %v %v", code, ok)
	}
	if len(h.lis.removed) != 1 {
		t.Fatalf("listener saw %v removals", len(h.lis.removed))
	}
}

func TestGlobalRemove(t *testing.T) {
	table := make(server.Table)
	iface := server.NewInterface("test_global", 1, nil, nil)
	h := newHarness(t, table)

	g := h.server.AddGlobal(iface, 1, nil)
	registry, _ := h.getRegistry()

	h.server.RemoveGlobal(g)
	msgs, _ := h.roundtrip()

	var removed bool
	for _, msg := range msgs {
		if (msg.Sender() == registry) && (msg.Op() == wl.RegistryEventGlobalRemove) {
			removed = msg.ReadUint() == g.Name()
		}
	}
	if !removed {
		t.Fatal("global_remove not sent")
	}
}

func TestInvalidObject(t *testing.T) {
	h := newHarness(t, make(server.Table))

	h.send(55, 0, nil)
	msgs, open := h.roundtrip()
	if open {
		t.Fatal("connection still open")
	}
	code, ok := findError(msgs)
	if !ok || (code != uint32(wl.DisplayErrorInvalidObject)) {
		t.Fatalf("error: %v %v", code, ok)
	}
}

func TestInvalidMethod(t *testing.T) {
	h := newHarness(t, make(server.Table))

	h.send(1, 9, nil)
	msgs, _ := h.roundtrip()
	code, ok := findError(msgs)
	if !ok || (code != uint32(wl.DisplayErrorInvalidMethod)) {
		t.Fatalf("error: %v %v", code, ok)
	}
}

func TestProtocolError(t *testing.T) {
	table := make(server.Table)
	iface := server.NewInterface("test_global", 1, []string{"explode"}, nil)
	iface.Handle(0, func(obj *server.Object, msg *wire.MessageBuffer) error {
		return obj.Error(42, "boom")
	})
	table.Register(iface)
	h := newHarness(t, table)
	h.server.AddGlobal(iface, 1, nil)

	registry, globals := h.getRegistry()
	id := h.newID()
	h.send(registry, wl.RegistryBind, func(msg *wire.MessageBuilder) {
		msg.WriteUint(globals["test_global"])
		msg.WriteNewID(wire.NewID{Interface: "test_global", Version: 1, ID: id})
	})
	h.send(id, 0, nil)

	msgs, open := h.roundtrip()
	if open {
		t.Fatal("connection still open")
	}
	code, ok := findError(msgs)
	if !ok || (code != 42) {
		t.Fatalf("error: %v %v", code, ok)
	}
}

func TestDestroy(t *testing.T) {
	table := make(server.Table)
	iface := server.NewInterface("test_global", 1, []string{"destroy"}, nil)
	iface.Destructor(0, nil)
	table.Register(iface)
	h := newHarness(t, table)

	var order []string
	h.server.AddGlobal(iface, 1, func(obj *server.Object) error {
		obj.OnDestroy(func() { order = append(order, "first") })
		obj.OnDestroy(func() { order = append(order, "second") })
		return nil
	})

	registry, globals := h.getRegistry()
	id := h.newID()
	h.send(registry, wl.RegistryBind, func(msg *wire.MessageBuilder) {
		msg.WriteUint(globals["test_global"])
		msg.WriteNewID(wire.NewID{Interface: "test_global", Version: 1, ID: id})
	})
	h.send(id, 0, nil)

	msgs, open := h.roundtrip()
	if !open {
		t.Fatal("destroy closed the connection")
	}
	if !slices.Equal(order, []string{"second", "first"}) {
		t.Fatalf("hook order: %v", order)
	}

	var deleted bool
	for _, msg := range msgs {
		if (msg.Sender() == 1) && (msg.Op() == wl.DisplayEventDeleteId) && (msg.ReadUint() == id) {
			deleted = true
		}
	}
	if !deleted {
		t.Fatal("delete_id not sent")
	}
}

func TestDisconnectDestroysObjects(t *testing.T) {
	table := make(server.Table)
	iface := server.NewInterface("test_global", 1, nil, nil)
	table.Register(iface)
	h := newHarness(t, table)

	var destroyed []uint32
	h.server.AddGlobal(iface, 1, func(obj *server.Object) error {
		obj.OnDestroy(func() { destroyed = append(destroyed, obj.ID()) })
		return nil
	})

	registry, globals := h.getRegistry()
	first, second := h.newID(), h.newID()
	for _, id := range []uint32{first, second} {
		h.send(registry, wl.RegistryBind, func(msg *wire.MessageBuilder) {
			msg.WriteUint(globals["test_global"])
			msg.WriteNewID(wire.NewID{Interface: "test_global", Version: 1, ID: id})
		})
	}
	h.roundtrip()

	c := h.server.Clients()[0]
	c.Close()
	if !slices.Equal(destroyed, []uint32{second, first}) {
		t.Fatalf("destroy order: %v", destroyed)
	}
	if len(h.server.Clients()) != 0 {
		t.Fatal("client still registered")
	}
	if (len(h.lis.removed) != 1) || (h.lis.removed[0] != c) {
		t.Fatal("listener not told about removal")
	}
}
