package server

import (
	"errors"
	"fmt"
)

// ErrClosed is returned when an operation is attempted on a client or
// server that has already been closed.
var ErrClosed = errors.New("closed")

// ProtocolError is a fatal error caused by a client violating the
// protocol. It is reported through wl_display.error.
type ProtocolError struct {
	Object  *Object
	Code    uint32
	Message string
}

func (err *ProtocolError) Error() string {
	return fmt.Sprintf("%v: error %v: %v", err.Object, err.Code, err.Message)
}
