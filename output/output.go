// Package output tracks the compositor's physical displays.
package output

import (
	"errors"
	"fmt"
	"image"
	"math"
	"time"

	"deedles.dev/ximage/geom"
	"golang.org/x/exp/slices"
)

// DefaultRefresh is the refresh rate, in mHz, assumed for outputs
// that do not report one.
const DefaultRefresh = 60000

// Mode is a display mode.
type Mode struct {
	// Size is the size of the mode in physical pixels.
	Size image.Point

	// Refresh is the refresh rate in mHz.
	Refresh int32
}

// Output describes a physical display.
type Output struct {
	Name         string
	Description  string
	Make         string
	Model        string
	Position     image.Point
	Mode         Mode
	Scale        float64
	Transform    Transform
	PhysicalSize image.Point
	Subpixel     int32
}

func (o *Output) String() string {
	return fmt.Sprintf("%v (%vx%v@%v, scale %v, %v)", o.Name, o.Mode.Size.X, o.Mode.Size.Y, o.Mode.Refresh, o.Scale, o.Transform)
}

func (o *Output) scale() float64 {
	if o.Scale <= 0 {
		return 1
	}
	return o.Scale
}

// CanvasSize returns the size in pixels of the output's contents in
// their logical orientation, before the transform is applied.
func (o *Output) CanvasSize() image.Point {
	return o.Transform.Size(o.Mode.Size)
}

// LogicalSize returns the size of the output in the global
// coordinate space.
func (o *Output) LogicalSize() image.Point {
	sz := geom.PConv[float64](geom.FromImagePoint(o.CanvasSize())).Div(o.scale())
	return image.Pt(int(math.Ceil(sz.X)), int(math.Ceil(sz.Y)))
}

// Geometry returns the rectangle that the output covers in the global
// coordinate space.
func (o *Output) Geometry() image.Rectangle {
	return image.Rectangle{Min: o.Position, Max: o.Position.Add(o.LogicalSize())}
}

// IntegerScale returns the scale advertised through wl_output.scale,
// which only supports whole numbers.
func (o *Output) IntegerScale() int32 {
	return int32(math.Ceil(o.scale()))
}

// ScaleRect converts r from output-local logical coordinates into
// canvas pixels, rounding outward so that partially covered pixels
// are included.
func (o *Output) ScaleRect(r image.Rectangle) image.Rectangle {
	s := o.scale()
	fr := geom.RConv[float64](geom.FromImageRect(r))
	return image.Rect(
		int(math.Floor(fr.Min.X*s)),
		int(math.Floor(fr.Min.Y*s)),
		int(math.Ceil(fr.Max.X*s)),
		int(math.Ceil(fr.Max.Y*s)),
	)
}

// BufferRect converts r from output-local logical coordinates into
// pixels of the output's buffer, applying both scale and transform.
// The result is clipped to the buffer.
func (o *Output) BufferRect(r image.Rectangle) image.Rectangle {
	canvas := o.CanvasSize()
	sr := o.ScaleRect(r).Intersect(image.Rectangle{Max: canvas})
	if sr.Empty() {
		return image.Rectangle{}
	}
	return o.Transform.Rect(sr, canvas)
}

// FromBuffer converts a pixel position in the output's buffer, such
// as a pointer position reported by a nested backend, into global
// logical coordinates.
func (o *Output) FromBuffer(p image.Point) geom.Point[float64] {
	canvas := o.Transform.Invert().Point(p, o.Mode.Size)
	local := geom.PConv[float64](geom.FromImagePoint(canvas)).Div(o.scale())
	return local.Add(geom.PConv[float64](geom.FromImagePoint(o.Position)))
}

// FrameInterval returns the time between vertical blanks.
func (o *Output) FrameInterval() time.Duration {
	refresh := o.Mode.Refresh
	if refresh <= 0 {
		refresh = DefaultRefresh
	}
	return time.Duration(int64(time.Second) * 1000 / int64(refresh))
}

// EventKind says what happened to an output.
type EventKind int

const (
	Added EventKind = iota
	Removed
	Changed
)

// Event is delivered to Manager listeners.
type Event struct {
	Kind   EventKind
	Output *Output
}

// ErrDuplicateName is returned when adding an output whose name is
// already in use.
var ErrDuplicateName = errors.New("duplicate output name")

// Manager owns the set of outputs.
type Manager struct {
	outputs   []*Output
	listeners []func(Event)
}

// Listen registers f to be called whenever an output is added,
// removed, or changed.
func (m *Manager) Listen(f func(Event)) {
	m.listeners = append(m.listeners, f)
}

func (m *Manager) notify(ev Event) {
	for _, f := range m.listeners {
		f(ev)
	}
}

// Add adds o at its configured position.
func (m *Manager) Add(o *Output) error {
	if _, ok := m.Get(o.Name); ok {
		return fmt.Errorf("%v: %w", o.Name, ErrDuplicateName)
	}

	m.outputs = append(m.outputs, o)
	m.notify(Event{Kind: Added, Output: o})
	return nil
}

// AddAuto adds o to the right of every existing output.
func (m *Manager) AddAuto(o *Output) error {
	o.Position = image.Pt(m.Bounds().Max.X, 0)
	return m.Add(o)
}

// Remove removes the named output.
func (m *Manager) Remove(name string) (*Output, bool) {
	i := slices.IndexFunc(m.outputs, func(o *Output) bool { return o.Name == name })
	if i < 0 {
		return nil, false
	}

	o := m.outputs[i]
	m.outputs = slices.Delete(m.outputs, i, i+1)
	m.notify(Event{Kind: Removed, Output: o})
	return o, true
}

// Get returns the named output.
func (m *Manager) Get(name string) (*Output, bool) {
	for _, o := range m.outputs {
		if o.Name == name {
			return o, true
		}
	}
	return nil, false
}

// Update calls f to modify the named output and then notifies
// listeners of the change.
func (m *Manager) Update(name string, f func(*Output)) bool {
	o, ok := m.Get(name)
	if !ok {
		return false
	}

	f(o)
	m.notify(Event{Kind: Changed, Output: o})
	return true
}

// Outputs returns the outputs in the order they were added.
func (m *Manager) Outputs() []*Output {
	return slices.Clone(m.outputs)
}

// Len returns the number of outputs.
func (m *Manager) Len() int {
	return len(m.outputs)
}

// Bounds returns the union of every output's geometry.
func (m *Manager) Bounds() (r image.Rectangle) {
	for _, o := range m.outputs {
		r = r.Union(o.Geometry())
	}
	return r
}

// At returns the output that contains p.
func (m *Manager) At(p image.Point) (*Output, bool) {
	for _, o := range m.outputs {
		if p.In(o.Geometry()) {
			return o, true
		}
	}
	return nil, false
}

// Clamp returns the point closest to p that lies on some output.
func (m *Manager) Clamp(p geom.Point[float64]) geom.Point[float64] {
	if len(m.outputs) == 0 {
		return p
	}

	var best geom.Point[float64]
	bestDist := math.Inf(1)
	for _, o := range m.outputs {
		g := geom.RConv[float64](geom.FromImageRect(o.Geometry()))
		c := geom.Pt(
			math.Max(g.Min.X, math.Min(p.X, g.Max.X-1)),
			math.Max(g.Min.Y, math.Min(p.Y, g.Max.Y-1)),
		)
		d := c.Sub(p)
		dist := d.X*d.X + d.Y*d.Y
		if dist < bestDist {
			best, bestDist = c, dist
		}
	}
	return best
}
