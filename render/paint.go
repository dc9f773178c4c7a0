package render

import (
	"image"

	"deedles.dev/wlcomp/damage"
	"deedles.dev/wlcomp/output"
)

// Outputs keeps the damage trackers of a renderer, one per output.
// It is shared by the backends so that they agree on what to redraw.
type Outputs struct {
	outputs map[string]*outputState
}

type outputState struct {
	tracker  *damage.Tracker
	geometry image.Rectangle
}

// AddDamage records global damage on every known output that it
// touches.
func (o *Outputs) AddDamage(rects ...image.Rectangle) {
	for _, st := range o.outputs {
		for _, r := range rects {
			r = r.Intersect(st.geometry)
			if r.Empty() {
				continue
			}
			st.tracker.Add(r.Sub(st.geometry.Min))
		}
	}
}

// Begin returns the regions of out's canvas that need to be redrawn.
// realloc is true if the output's frame must be recreated because it
// is new or its size, scale or transform changed, in which case the
// whole canvas is returned.
func (o *Outputs) Begin(out *output.Output) (rects []image.Rectangle, realloc bool) {
	if o.outputs == nil {
		o.outputs = make(map[string]*outputState)
	}

	st, ok := o.outputs[out.Name]
	if !ok || !st.tracker.MatchesOutput(out) {
		st = &outputState{tracker: damage.NewTrackerFor(out)}
		o.outputs[out.Name] = st
		realloc = true
	}
	if st.geometry != out.Geometry() {
		st.geometry = out.Geometry()
		st.tracker.AddFull()
	}

	buffer := out.Mode.Size
	inv := out.Transform.Invert()
	for _, r := range st.tracker.Take() {
		rects = append(rects, inv.Rect(r, buffer))
	}
	return rects, realloc
}

// Remove forgets the named output.
func (o *Outputs) Remove(name string) {
	delete(o.outputs, name)
}

// Painter is the set of drawing primitives a backend provides.
// Coordinates are canvas pixels.
type Painter interface {
	// Clip restricts subsequent drawing to r.
	Clip(r image.Rectangle)

	// Clear replaces the pixels of r with c.
	Clear(r image.Rectangle, c Color)

	// Fill blends c over the pixels of r.
	Fill(r image.Rectangle, c Color)

	// DrawImage scales src to fill dst and blends it over the
	// canvas.
	DrawImage(dst image.Rectangle, src image.Image)
}

// Paint redraws the damaged canvas regions of out from scene. It
// returns the IDs of the elements that touch the damage, in scene
// order, followed by CursorID if the cursor was drawn.
func Paint(p Painter, scene *Scene, out *output.Output, rects []image.Rectangle, clear Color) []uint64 {
	toCanvas := func(r image.Rectangle) image.Rectangle {
		return out.ScaleRect(r.Sub(out.Position))
	}

	drawn := make([]bool, len(scene.Elements))
	var cursor bool
	for _, d := range rects {
		p.Clip(d)
		p.Clear(d, clear)

		for i, e := range scene.Elements {
			bounds := toCanvas(scene.Bounds(e))
			if !bounds.Overlaps(d) {
				continue
			}
			drawn[i] = true

			g := toCanvas(e.Geometry)
			if e.Buffer != nil {
				p.DrawImage(g, e.Buffer)
			}
			if bounds != g {
				c := scene.InactiveBorder
				if e.Active {
					c = scene.ActiveBorder
				}
				for _, r := range borderRects(bounds, g) {
					p.Fill(r, c)
				}
			}
		}

		if cur := scene.Cursor; (cur != nil) && (cur.Image != nil) {
			size := cur.Image.Bounds().Size()
			r := toCanvas(image.Rectangle{Min: cur.Position, Max: cur.Position.Add(size)})
			if r.Overlaps(d) {
				cursor = true
				p.DrawImage(r, cur.Image)
			}
		}
	}

	var order []uint64
	for i, e := range scene.Elements {
		if drawn[i] {
			order = append(order, e.ID)
		}
	}
	if cursor {
		order = append(order, CursorID)
	}
	return order
}

// borderRects returns the parts of outer that are not in inner.
func borderRects(outer, inner image.Rectangle) []image.Rectangle {
	return []image.Rectangle{
		image.Rect(outer.Min.X, outer.Min.Y, outer.Max.X, inner.Min.Y),
		image.Rect(outer.Min.X, inner.Max.Y, outer.Max.X, outer.Max.Y),
		image.Rect(outer.Min.X, inner.Min.Y, inner.Min.X, inner.Max.Y),
		image.Rect(inner.Max.X, inner.Min.Y, outer.Max.X, inner.Max.Y),
	}
}
