package server

import (
	"deedles.dev/wlcomp/internal/xslices"
	"deedles.dev/wlcomp/proto/wl"
	"deedles.dev/wlcomp/wire"
)

var (
	displayInterface  = NewInterface(wl.DisplayInterface, wl.DisplayVersion, wl.DisplayRequests, wl.DisplayEvents)
	registryInterface = NewInterface(wl.RegistryInterface, wl.RegistryVersion, wl.RegistryRequests, wl.RegistryEvents)

	// CallbackInterface is wl_callback, used by wl_display.sync and
	// wl_surface.frame.
	CallbackInterface = NewInterface(wl.CallbackInterface, wl.CallbackVersion, wl.CallbackRequests, wl.CallbackEvents)
)

func init() {
	displayInterface.
		Handle(wl.DisplaySync, displaySync).
		Handle(wl.DisplayGetRegistry, displayGetRegistry)
	registryInterface.
		Handle(wl.RegistryBind, registryBind)
}

// BindFunc initializes an object newly bound to a global.
type BindFunc func(obj *Object) error

// Global is an object advertised through wl_registry.
type Global struct {
	name    uint32
	iface   *Interface
	version uint32
	bind    BindFunc
	removed bool

	// Data is available to the bind function.
	Data any
}

// Name returns the numeric name that clients bind the global with.
func (g *Global) Name() uint32 {
	return g.name
}

func (g *Global) Interface() *Interface {
	return g.iface
}

// AddGlobal advertises a new global to every client. version is the
// highest version that bind supports.
func (server *Server) AddGlobal(iface *Interface, version uint32, bind BindFunc) *Global {
	server.name++
	g := Global{
		name:    server.name,
		iface:   iface,
		version: version,
		bind:    bind,
	}
	server.globals = append(server.globals, &g)

	for _, c := range server.clients {
		for _, r := range c.registries {
			sendGlobal(r, &g)
		}
	}
	return &g
}

// RemoveGlobal withdraws g. Clients that bind it after this are given
// an inert object.
func (server *Server) RemoveGlobal(g *Global) {
	if g.removed {
		return
	}
	g.removed = true
	server.globals = xslices.Remove(server.globals, g)

	for _, c := range server.clients {
		for _, r := range c.registries {
			r.Event(wl.RegistryEventGlobalRemove, func(msg *wire.MessageBuilder) {
				msg.WriteUint(g.name)
			})
		}
	}
}

// Globals returns the currently advertised globals.
func (server *Server) Globals() []*Global {
	r := make([]*Global, len(server.globals))
	copy(r, server.globals)
	return r
}

func sendGlobal(registry *Object, g *Global) {
	registry.Event(wl.RegistryEventGlobal, func(msg *wire.MessageBuilder) {
		msg.WriteUint(g.name)
		msg.WriteString(g.iface.Name)
		msg.WriteUint(g.version)
	})
}

// Done sends wl_callback.done and destroys the callback.
func Done(callback *Object, data uint32) {
	callback.Event(wl.CallbackEventDone, func(msg *wire.MessageBuilder) {
		msg.WriteUint(data)
	})
	callback.Destroy()
}

func displaySync(obj *Object, msg *wire.MessageBuffer) error {
	id := msg.ReadObject()
	if err := msg.Err(); err != nil {
		return err
	}

	cb, err := obj.client.NewObject(id, CallbackInterface, 1)
	if err != nil {
		return err
	}
	Done(cb, obj.client.server.NextSerial())
	return nil
}

func displayGetRegistry(obj *Object, msg *wire.MessageBuffer) error {
	id := msg.ReadObject()
	if err := msg.Err(); err != nil {
		return err
	}

	c := obj.client
	registry, err := c.NewObject(id, registryInterface, 1)
	if err != nil {
		return err
	}
	c.registries = append(c.registries, registry)

	for _, g := range c.server.globals {
		sendGlobal(registry, g)
	}
	return nil
}

func (c *Client) removeRegistry(obj *Object) {
	if obj.iface == registryInterface {
		c.registries = xslices.Remove(c.registries, obj)
	}
}

func registryBind(obj *Object, msg *wire.MessageBuffer) error {
	name := msg.ReadUint()
	id := msg.ReadNewID()
	if err := msg.Err(); err != nil {
		return err
	}

	c := obj.client
	var g *Global
	for _, global := range c.server.globals {
		if global.name == name {
			g = global
			break
		}
	}
	if g == nil {
		iface, ok := c.server.table.Lookup(id.Interface)
		if !ok || (name > c.server.name) {
			return c.display.Error(uint32(wl.DisplayErrorInvalidObject), "invalid global %v (%v)", id.Interface, name)
		}

		// The global was removed after the client saw it.
		_, err := c.NewObject(id.ID, iface, max(id.Version, 1))
		return err
	}

	if id.Interface != g.iface.Name {
		return c.display.Error(uint32(wl.DisplayErrorInvalidObject), "invalid interface for global %v: have %v, wanted %v", name, id.Interface, g.iface.Name)
	}
	if id.Version == 0 {
		return c.display.Error(uint32(wl.DisplayErrorInvalidObject), "invalid version 0 for global %v (%v)", g.iface.Name, name)
	}

	bound, err := c.NewObject(id.ID, g.iface, min(id.Version, g.version))
	if err != nil {
		return err
	}
	if g.bind == nil {
		return nil
	}
	return g.bind(bound)
}
