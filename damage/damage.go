// Package damage tracks the regions of an output that need to be
// redrawn.
package damage

import (
	"image"

	"deedles.dev/wlcomp/output"
)

// DefaultMaxRects is the number of rectangles above which damage is
// collapsed into its bounding box.
const DefaultMaxRects = 32

// Tracker accumulates damage for a single output. It is tied to the
// output's buffer size, scale, and transform; when any of those
// change, a new Tracker must be created, which starts out fully
// damaged.
type Tracker struct {
	out   output.Output
	full  bool
	rects []image.Rectangle

	// MaxRects overrides DefaultMaxRects if non-zero.
	MaxRects int
}

// NewTracker returns a Tracker for a buffer of the given size, scale,
// and transform.
func NewTracker(size image.Point, scale float64, transform output.Transform) *Tracker {
	return &Tracker{
		out: output.Output{
			Mode:      output.Mode{Size: size},
			Scale:     scale,
			Transform: transform,
		},
		full: true,
	}
}

// NewTrackerFor returns a Tracker matching o.
func NewTrackerFor(o *output.Output) *Tracker {
	return NewTracker(o.Mode.Size, o.Scale, o.Transform)
}

// Matches reports whether the tracker was created for the given
// parameters.
func (t *Tracker) Matches(size image.Point, scale float64, transform output.Transform) bool {
	return (t.out.Mode.Size == size) && (t.out.Scale == scale) && (t.out.Transform == transform)
}

// MatchesOutput is Matches using o's current parameters.
func (t *Tracker) MatchesOutput(o *output.Output) bool {
	return t.Matches(o.Mode.Size, o.Scale, o.Transform)
}

// Bounds returns the full buffer rectangle.
func (t *Tracker) Bounds() image.Rectangle {
	return image.Rectangle{Max: t.out.Mode.Size}
}

// Add records damage. The rectangles are in output-local logical
// coordinates.
func (t *Tracker) Add(rects ...image.Rectangle) {
	if t.full {
		return
	}
	for _, r := range rects {
		br := t.out.BufferRect(r)
		if br.Empty() {
			continue
		}
		t.rects = append(t.rects, br)
	}
}

// AddFull marks the whole buffer as damaged.
func (t *Tracker) AddFull() {
	t.full = true
	t.rects = nil
}

// Pending reports whether any damage has accumulated.
func (t *Tracker) Pending() bool {
	return t.full || (len(t.rects) > 0)
}

// Take returns the accumulated damage in buffer pixels and resets the
// tracker. An empty result means that nothing needs to be drawn.
func (t *Tracker) Take() []image.Rectangle {
	defer func() {
		t.full = false
		t.rects = nil
	}()

	if t.full {
		b := t.Bounds()
		if b.Empty() {
			return nil
		}
		return []image.Rectangle{b}
	}

	max := t.MaxRects
	if max <= 0 {
		max = DefaultMaxRects
	}
	return Simplify(t.rects, max)
}

// Simplify merges overlapping and contained rectangles. If more than
// max remain, their bounding box is returned instead.
func Simplify(rects []image.Rectangle, max int) []image.Rectangle {
	out := make([]image.Rectangle, 0, len(rects))
	for _, r := range rects {
		if !r.Empty() {
			out = append(out, r)
		}
	}

	for merged := true; merged; {
		merged = false
		for i := 0; i < len(out); i++ {
			for j := i + 1; j < len(out); j++ {
				if !out[i].Overlaps(out[j]) {
					continue
				}
				out[i] = out[i].Union(out[j])
				out = append(out[:j], out[j+1:]...)
				merged = true
				j--
			}
		}
	}

	if len(out) > max {
		var b image.Rectangle
		for _, r := range out {
			b = b.Union(r)
		}
		return []image.Rectangle{b}
	}
	return out
}
