package client

import (
	"fmt"
	"slices"

	"deedles.dev/wlcomp/proto/wl"
	"deedles.dev/wlcomp/wire"
	"golang.org/x/exp/maps"
)

// Global is a global advertised by the compositor.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// Registry tracks the compositor's globals.
type Registry struct {
	obj     *Object
	globals map[uint32]Global

	// Added and Removed, if set, are called as globals come and go.
	Added   func(Global)
	Removed func(Global)
}

// Registry creates a wl_registry. The initial set of globals is
// available after the next RoundTrip.
func (d *Display) Registry() (*Registry, error) {
	obj, err := d.obj.Create(wl.DisplayGetRegistry, wl.RegistryInterface, nil)
	if err != nil {
		return nil, err
	}

	r := Registry{
		obj:     obj,
		globals: make(map[uint32]Global),
	}
	obj.On(wl.RegistryEventGlobal, func(msg *wire.MessageBuffer) {
		g := Global{
			Name:      msg.ReadUint(),
			Interface: msg.ReadString(),
			Version:   msg.ReadUint(),
		}
		r.globals[g.Name] = g
		if r.Added != nil {
			r.Added(g)
		}
	})
	obj.On(wl.RegistryEventGlobalRemove, func(msg *wire.MessageBuffer) {
		name := msg.ReadUint()
		g, ok := r.globals[name]
		if !ok {
			return
		}
		delete(r.globals, name)
		if r.Removed != nil {
			r.Removed(g)
		}
	})
	return &r, nil
}

// Globals returns every known global, ordered by name.
func (r *Registry) Globals() []Global {
	names := maps.Keys(r.globals)
	slices.Sort(names)

	globals := make([]Global, 0, len(names))
	for _, name := range names {
		globals = append(globals, r.globals[name])
	}
	return globals
}

// Find returns the first global with the given interface.
func (r *Registry) Find(iface string) (Global, bool) {
	for _, g := range r.Globals() {
		if g.Interface == iface {
			return g, true
		}
	}
	return Global{}, false
}

// Bind creates an object for the global with the given interface at
// the lower of version and the advertised version.
func (r *Registry) Bind(iface string, version uint32) (*Object, error) {
	g, ok := r.Find(iface)
	if !ok {
		return nil, fmt.Errorf("no %v global", iface)
	}
	return r.BindGlobal(g, min(version, g.Version))
}

// BindGlobal binds a specific global.
func (r *Registry) BindGlobal(g Global, version uint32) (*Object, error) {
	obj := r.obj.display.NewObject(g.Interface)
	err := r.obj.Request(wl.RegistryBind, func(msg *wire.MessageBuilder) {
		msg.WriteUint(g.Name)
		msg.WriteString(g.Interface)
		msg.WriteUint(version)
		msg.WriteUint(obj.id)
	})
	if err != nil {
		delete(r.obj.display.objects, obj.id)
		return nil, err
	}
	return obj, nil
}
