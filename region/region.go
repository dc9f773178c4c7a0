// Package region implements sets of pixels described as unions of
// rectangles, as used for wl_region and surface damage.
package region

import "image"

// Region is a union of non-overlapping rectangles. The zero value is
// an empty region.
type Region struct {
	rects []image.Rectangle
}

// New returns a region covering rects.
func New(rects ...image.Rectangle) *Region {
	var r Region
	for _, rect := range rects {
		r.Add(rect)
	}
	return &r
}

// Add extends the region to cover rect.
func (r *Region) Add(rect image.Rectangle) {
	rect = rect.Canon()
	if rect.Empty() {
		return
	}

	pieces := []image.Rectangle{rect}
	for _, existing := range r.rects {
		var next []image.Rectangle
		for _, p := range pieces {
			next = appendDifference(next, p, existing)
		}
		pieces = next
		if len(pieces) == 0 {
			return
		}
	}
	r.rects = append(r.rects, pieces...)
}

// Subtract removes rect from the region.
func (r *Region) Subtract(rect image.Rectangle) {
	rect = rect.Canon()
	if rect.Empty() {
		return
	}

	next := make([]image.Rectangle, 0, len(r.rects))
	for _, existing := range r.rects {
		next = appendDifference(next, existing, rect)
	}
	r.rects = next
}

// appendDifference appends the parts of a that are not in b to dst.
func appendDifference(dst []image.Rectangle, a, b image.Rectangle) []image.Rectangle {
	in := a.Intersect(b)
	if in.Empty() {
		return append(dst, a)
	}

	if a.Min.Y < in.Min.Y {
		dst = append(dst, image.Rect(a.Min.X, a.Min.Y, a.Max.X, in.Min.Y))
	}
	if in.Max.Y < a.Max.Y {
		dst = append(dst, image.Rect(a.Min.X, in.Max.Y, a.Max.X, a.Max.Y))
	}
	if a.Min.X < in.Min.X {
		dst = append(dst, image.Rect(a.Min.X, in.Min.Y, in.Min.X, in.Max.Y))
	}
	if in.Max.X < a.Max.X {
		dst = append(dst, image.Rect(in.Max.X, in.Min.Y, a.Max.X, in.Max.Y))
	}
	return dst
}

// Contains reports whether p lies inside the region.
func (r *Region) Contains(p image.Point) bool {
	if r == nil {
		return false
	}
	for _, rect := range r.rects {
		if p.In(rect) {
			return true
		}
	}
	return false
}

// Empty reports whether the region covers no pixels.
func (r *Region) Empty() bool {
	return (r == nil) || (len(r.rects) == 0)
}

// Bounds returns the smallest rectangle containing the region.
func (r *Region) Bounds() (b image.Rectangle) {
	if r == nil {
		return b
	}
	for _, rect := range r.rects {
		b = b.Union(rect)
	}
	return b
}

// Rects returns the rectangles that make up the region. The caller
// must not modify the returned slice.
func (r *Region) Rects() []image.Rectangle {
	if r == nil {
		return nil
	}
	return r.rects
}

// Translate returns a copy of the region moved by p.
func (r *Region) Translate(p image.Point) *Region {
	if r == nil {
		return nil
	}
	rects := make([]image.Rectangle, len(r.rects))
	for i, rect := range r.rects {
		rects[i] = rect.Add(p)
	}
	return &Region{rects: rects}
}

// Clone returns an independent copy of the region.
func (r *Region) Clone() *Region {
	return r.Translate(image.Point{})
}

// Intersect returns the part of the region inside clip.
func (r *Region) Intersect(clip image.Rectangle) *Region {
	if r == nil {
		return nil
	}
	var out Region
	for _, rect := range r.rects {
		if in := rect.Intersect(clip); !in.Empty() {
			out.rects = append(out.rects, in)
		}
	}
	return &out
}
