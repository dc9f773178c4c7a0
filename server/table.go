package server

import "deedles.dev/wlcomp/wire"

// Handler handles a single request. It decodes the request's
// arguments from msg itself. Returning a *ProtocolError sends it to
// the client before disconnecting it. Any other error also
// disconnects the client.
type Handler func(obj *Object, msg *wire.MessageBuffer) error

// Request describes one request of an interface.
type Request struct {
	Name    string
	Handler Handler

	// Destructor requests destroy their object after the handler
	// returns successfully.
	Destructor bool
}

// Interface describes a protocol interface as implemented by the
// server. Requests are indexed by opcode.
type Interface struct {
	Name     string
	Version  uint32
	Requests []Request
	Events   []string
}

// NewInterface returns an Interface whose requests are named from
// names, in opcode order, and have no handlers yet.
func NewInterface(name string, version uint32, requests, events []string) *Interface {
	iface := Interface{
		Name:     name,
		Version:  version,
		Requests: make([]Request, len(requests)),
		Events:   events,
	}
	for i, n := range requests {
		iface.Requests[i].Name = n
	}
	return &iface
}

// Handle sets the handler for the request with opcode op.
func (iface *Interface) Handle(op uint16, h Handler) *Interface {
	iface.Requests[op].Handler = h
	return iface
}

// Destructor marks the request with opcode op as a destructor and
// sets its handler, which may be nil.
func (iface *Interface) Destructor(op uint16, h Handler) *Interface {
	iface.Requests[op].Handler = h
	iface.Requests[op].Destructor = true
	return iface
}

func (iface *Interface) requestName(op uint16) string {
	if int(op) >= len(iface.Requests) {
		return "unknown"
	}
	return iface.Requests[op].Name
}

func (iface *Interface) eventName(op uint16) string {
	if int(op) >= len(iface.Events) {
		return "unknown"
	}
	return iface.Events[op]
}

// Table maps interface names to their implementations.
type Table map[string]*Interface

// Register adds iface to the table, replacing any previous entry with
// the same name.
func (t Table) Register(ifaces ...*Interface) {
	for _, iface := range ifaces {
		t[iface.Name] = iface
	}
}

// Lookup returns the interface with the given name.
func (t Table) Lookup(name string) (*Interface, bool) {
	iface, ok := t[name]
	return iface, ok
}
