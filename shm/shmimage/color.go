package shmimage

import "image/color"

// ARGB8888Color is a pixel in the wl_shm ARGB8888 format, with
// non-premultiplied components.
type ARGB8888Color uint32

func NewARGB8888Color(r, g, b, a uint8) ARGB8888Color {
	return ARGB8888Color((uint32(a) << 24) | (uint32(r) << 16) | (uint32(g) << 8) | uint32(b))
}

func (c ARGB8888Color) RGBA() (r, g, b, a uint32) {
	a = uint32(c.A()) * 0xFFFF / 0xFF
	r = uint32(c.R()) * a / 0xFF
	g = uint32(c.G()) * a / 0xFF
	b = uint32(c.B()) * a / 0xFF
	return
}

func (c ARGB8888Color) R() uint8 {
	return uint8((c & 0x00FF0000) >> 16)
}

func (c ARGB8888Color) G() uint8 {
	return uint8((c & 0x0000FF00) >> 8)
}

func (c ARGB8888Color) B() uint8 {
	return uint8(c & 0x000000FF)
}

func (c ARGB8888Color) A() uint8 {
	return uint8((c & 0xFF000000) >> 24)
}

// Opaque returns c with its alpha forced to 0xFF, as XRGB8888 pixels
// are interpreted.
func (c ARGB8888Color) Opaque() ARGB8888Color {
	return c | 0xFF000000
}

// Over composites c over dst.
func (c ARGB8888Color) Over(dst ARGB8888Color) ARGB8888Color {
	sa := uint32(c.A())
	switch sa {
	case 0xFF:
		return c
	case 0:
		return dst
	}

	da := uint32(dst.A()) * (0xFF - sa) / 0xFF
	oa := sa + da
	if oa == 0 {
		return 0
	}
	mix := func(s, d uint8) uint8 {
		return uint8((uint32(s)*sa + uint32(d)*da) / oa)
	}
	return NewARGB8888Color(mix(c.R(), dst.R()), mix(c.G(), dst.G()), mix(c.B(), dst.B()), uint8(oa))
}

var ARGB8888Model color.Model = color.ModelFunc(argb8888Model)

func argb8888Model(c color.Color) color.Color {
	switch c := c.(type) {
	case ARGB8888Color:
		return c
	case color.NRGBA:
		return NewARGB8888Color(c.R, c.G, c.B, c.A)
	default:
		r, g, b, a := c.RGBA()
		if a == 0 {
			return ARGB8888Color(0)
		}
		r = r * 0xFF / a
		g = g * 0xFF / a
		b = b * 0xFF / a
		a = a * 0xFF / 0xFFFF
		return NewARGB8888Color(uint8(r), uint8(g), uint8(b), uint8(a))
	}
}
