// Package wire defines types helpful for dealing with the Wayland
// wire protocol. It is used by both the compositor's dispatcher and
// the small test client.
package wire

import "deedles.dev/wlcomp/internal/bin"

// MaxFDs is the largest number of file descriptors that libwayland
// will attach to a single sendmsg call.
const MaxFDs = 28

// MaxMessageSize is the largest message that the size field of the
// header allows.
const MaxMessageSize = 1<<16 - 1

// Object represents a Wayland protocol object.
type Object interface {
	// ID returns the object's ID within its connection.
	ID() uint32

	// MethodName returns the name of the request or event with the
	// given opcode. It is used only for debugging output.
	MethodName(op uint16) string
}

// NewID is the untyped new_id argument used by wl_registry.bind.
type NewID struct {
	Interface string
	Version   uint32
	ID        uint32
}

func padding(n uint32) uint32 {
	return bin.Padding(n)
}
