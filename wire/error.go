package wire

import (
	"fmt"
)

// UnknownOpError is returned when a message arrives with an opcode
// that its target's interface does not define.
type UnknownOpError struct {
	Interface string
	Type      string
	Op        uint16
}

func (err UnknownOpError) Error() string {
	return fmt.Sprintf("unknown %v opcode for %v: %v", err.Type, err.Interface, err.Op)
}

// UnknownSenderIDError is returned by an attempt to dispatch an
// incoming message that indicates a method call on an object that
// the connection doesn't know about.
type UnknownSenderIDError struct {
	Msg *MessageBuffer
}

func (err UnknownSenderIDError) Error() string {
	return fmt.Sprintf("unknown sender object ID: %v", err.Msg.Sender())
}

// InvalidSizeError is returned by ReadMessage when a header declares
// a size that cannot be correct.
type InvalidSizeError struct {
	Size uint16
}

func (err InvalidSizeError) Error() string {
	return fmt.Sprintf("invalid message size: %v", err.Size)
}
