package render

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"deedles.dev/wlcomp/shm/shmimage"
)

// ErrParse is wrapped by every error returned from ParseColor.
var ErrParse = errors.New("malformed color")

// ParseError describes a color string that could not be parsed.
type ParseError struct {
	Input  string
	Reason string
}

func (err *ParseError) Error() string {
	return fmt.Sprintf("parse color %q: %v", err.Input, err.Reason)
}

func (err *ParseError) Unwrap() error {
	return ErrParse
}

// Color is a non-premultiplied RGBA color.
type Color struct {
	R, G, B, A uint8
}

// ParseColor parses a color written as RRGGBBAA, optionally preceded
// by '#'.
func ParseColor(str string) (Color, error) {
	hex := strings.TrimPrefix(str, "#")
	if len(hex) != 8 {
		return Color{}, &ParseError{Input: str, Reason: "expected 8 hex digits"}
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, &ParseError{Input: str, Reason: "invalid hex digit"}
	}

	return Color{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}

// MustParseColor is like ParseColor but panics on error.
func MustParseColor(str string) Color {
	c, err := ParseColor(str)
	if err != nil {
		panic(err)
	}
	return c
}

// String returns c as uppercase RRGGBBAA.
func (c Color) String() string {
	return fmt.Sprintf("%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}

func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Color) UnmarshalText(text []byte) error {
	v, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func (c Color) RGBA() (r, g, b, a uint32) {
	a = uint32(c.A) * 0x101
	r = uint32(c.R) * 0x101 * a / 0xFFFF
	g = uint32(c.G) * 0x101 * a / 0xFFFF
	b = uint32(c.B) * 0x101 * a / 0xFFFF
	return
}

// ARGB8888 converts c to the pixel format of software frames.
func (c Color) ARGB8888() shmimage.ARGB8888Color {
	return shmimage.NewARGB8888Color(c.R, c.G, c.B, c.A)
}
