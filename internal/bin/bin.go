// Package bin contains utilities for dealing with binary representations.
package bin

import (
	"io"
	"unsafe"
)

// Bytes returns the host-order bytes of v.
func Bytes[T ~int32 | ~uint32](v T) [4]byte {
	return *(*[4]byte)(unsafe.Pointer(&v))
}

// Value reinterprets host-order bytes as a T.
func Value[T ~int32 | ~uint32](data [4]byte) T {
	return *(*T)(unsafe.Pointer(&data))
}

// Read reads a single host-order value from r.
func Read[T ~int32 | ~uint32](r io.Reader) (T, error) {
	var data [4]byte
	_, err := io.ReadFull(r, data[:])
	if err != nil {
		return 0, err
	}

	return Value[T](data), nil
}

// Write writes v to w in host order.
func Write[T ~int32 | ~uint32](w io.Writer, v T) error {
	data := Bytes(v)
	n, err := w.Write(data[:])
	if (err == nil) && (n < len(data)) {
		return io.ErrShortWrite
	}
	return err
}

// Padding returns the number of bytes needed to pad n to a 32-bit
// boundary.
func Padding(n uint32) uint32 {
	return (4 - (n & 0x3)) & 0x3
}

// Uint32s reinterprets a byte slice as a slice of host-order uint32
// values. Trailing bytes that do not form a complete value are
// ignored.
func Uint32s(data []byte) []uint32 {
	if len(data) < 4 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&data[0])), len(data)/4)
}
