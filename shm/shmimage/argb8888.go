// Package shmimage implements image types laid out the way wl_shm
// buffers are, so that they can be shared with clients and display
// backends without conversion.
package shmimage

import (
	"image"
	"image/color"
	"image/draw"

	"deedles.dev/wlcomp/internal/bin"
)

// ARGB8888 is an in-memory image whose At method returns
// ARGB8888Color values. Pixels are stored as host-order 32-bit words,
// which is byte order B, G, R, A on little-endian machines.
type ARGB8888 struct {
	// Pix holds the image's pixels. The pixel at (x, y) starts at
	// Pix[(y-Rect.Min.Y)*Stride + (x-Rect.Min.X)*4].
	Pix []uint8
	// Stride is the Pix stride (in bytes) between vertically adjacent pixels.
	Stride int
	// Rect is the image's bounds.
	Rect image.Rectangle
}

// NewARGB8888 returns a new ARGB8888 image with the given bounds.
func NewARGB8888(r image.Rectangle) *ARGB8888 {
	return &ARGB8888{
		Pix:    make([]uint8, r.Dx()*r.Dy()*4),
		Stride: 4 * r.Dx(),
		Rect:   r,
	}
}

func (p *ARGB8888) Bounds() image.Rectangle { return p.Rect }

func (p *ARGB8888) ColorModel() color.Model { return ARGB8888Model }

func (p *ARGB8888) At(x, y int) color.Color {
	return p.ARGB8888At(x, y)
}

func (p *ARGB8888) ARGB8888At(x, y int) ARGB8888Color {
	if !(image.Point{x, y}.In(p.Rect)) {
		return ARGB8888Color(0)
	}
	i := p.PixOffset(x, y)
	s := p.Pix[i : i+4 : i+4]
	return bin.Value[ARGB8888Color](*(*[4]byte)(s))
}

// PixOffset returns the index of the first element of Pix that corresponds to
// the pixel at (x, y).
func (p *ARGB8888) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*4
}

func (p *ARGB8888) Set(x, y int, c color.Color) {
	p.SetARGB8888(x, y, ARGB8888Model.Convert(c).(ARGB8888Color))
}

func (p *ARGB8888) SetARGB8888(x, y int, c ARGB8888Color) {
	if !(image.Point{x, y}.In(p.Rect)) {
		return
	}
	i := p.PixOffset(x, y)
	ca := bin.Bytes(c)
	copy(p.Pix[i:i+4:i+4], ca[:])
}

// Fill sets every pixel of p inside r to c.
func (p *ARGB8888) Fill(r image.Rectangle, c ARGB8888Color) {
	r = r.Intersect(p.Rect)
	if r.Empty() {
		return
	}

	ca := bin.Bytes(c)
	row := p.Pix[p.PixOffset(r.Min.X, r.Min.Y):]
	for i := 0; i < r.Dx()*4; i += 4 {
		copy(row[i:i+4], ca[:])
	}
	first := row[:r.Dx()*4]
	for y := r.Min.Y + 1; y < r.Max.Y; y++ {
		copy(p.Pix[p.PixOffset(r.Min.X, y):], first)
	}
}

// Blend composites c over every pixel of p inside r.
func (p *ARGB8888) Blend(r image.Rectangle, c ARGB8888Color) {
	if c.A() == 0xFF {
		p.Fill(r, c)
		return
	}

	r = r.Intersect(p.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			p.SetARGB8888(x, y, c.Over(p.ARGB8888At(x, y)))
		}
	}
}

// SubImage returns an image representing the portion of the image p visible
// through r. The returned value shares pixels with the original image.
func (p *ARGB8888) SubImage(r image.Rectangle) draw.Image {
	r = r.Intersect(p.Rect)
	if r.Empty() {
		return &ARGB8888{}
	}
	i := p.PixOffset(r.Min.X, r.Min.Y)
	return &ARGB8888{
		Pix:    p.Pix[i:],
		Stride: p.Stride,
		Rect:   r,
	}
}
