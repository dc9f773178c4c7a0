package render

import (
	"encoding/binary"
	"image"
	"image/draw"

	"deedles.dev/wlcomp/output"
	"deedles.dev/wlcomp/shm/shmimage"
	"deedles.dev/ximage/format"
	xdraw "golang.org/x/image/draw"
)

// Software renders into ARGB8888 images in system memory.
type Software struct {
	outputs Outputs
	frames  map[string]*softFrame
	clear   Color
	order   []uint64
}

type softFrame struct {
	canvas *shmimage.ARGB8888
	buffer *shmimage.ARGB8888
}

// NewSoftware returns a software renderer that clears to the default
// background color.
func NewSoftware() *Software {
	return &Software{
		frames: make(map[string]*softFrame),
		clear:  DefaultBackground,
	}
}

// DefaultBackground is the color drawn behind all windows unless
// configured otherwise.
var DefaultBackground = Color{R: 0x1E, G: 0x1E, B: 0x1E, A: 0xFF}

func (s *Software) Name() string {
	return "software"
}

func (s *Software) Init() error {
	return nil
}

func (s *Software) AddDamage(rects ...image.Rectangle) {
	s.outputs.AddDamage(rects...)
}

func (s *Software) SetClearColor(c Color) {
	if c == s.clear {
		return
	}
	s.clear = c
	for name := range s.frames {
		s.outputs.Remove(name)
	}
}

func (s *Software) RenderFrame(scene *Scene, out *output.Output) (bool, error) {
	rects, realloc := s.outputs.Begin(out)
	f, ok := s.frames[out.Name]
	if realloc || !ok {
		f = newSoftFrame(out)
		s.frames[out.Name] = f
	}

	s.order = nil
	if len(rects) == 0 {
		return false, nil
	}

	s.order = Paint(&softPainter{img: f.canvas}, scene, out, rects, s.clear)
	if f.buffer != f.canvas {
		for _, r := range rects {
			transformRect(f.buffer, f.canvas, r, out.Transform)
		}
	}
	return true, nil
}

// Clear replaces every pixel of out's frame with c.
func (s *Software) Clear(out *output.Output, c Color) {
	s.draw(out, image.Rectangle{Max: out.CanvasSize()}, c)
}

// DrawRect replaces the pixels of the w by h rectangle at (x, y) in
// out's canvas with c. The parts outside the canvas are dropped.
func (s *Software) DrawRect(out *output.Output, x, y, w, h int, c Color) {
	s.draw(out, image.Rect(x, y, x+w, y+h), c)
}

func (s *Software) draw(out *output.Output, r image.Rectangle, c Color) {
	f, ok := s.frames[out.Name]
	if !ok || (f.canvas.Rect.Size() != out.CanvasSize()) {
		f = newSoftFrame(out)
		s.frames[out.Name] = f
	}

	r = r.Intersect(f.canvas.Rect)
	if r.Empty() {
		return
	}
	p := softPainter{img: f.canvas}
	p.Clip(r)
	p.Clear(r, c)
	if f.buffer != f.canvas {
		transformRect(f.buffer, f.canvas, r, out.Transform)
	}
}

func newSoftFrame(out *output.Output) *softFrame {
	canvas := shmimage.NewARGB8888(image.Rectangle{Max: out.CanvasSize()})
	f := softFrame{canvas: canvas, buffer: canvas}
	if out.Transform != output.TransformNormal {
		f.buffer = shmimage.NewARGB8888(image.Rectangle{Max: out.Mode.Size})
	}
	return &f
}

// Frame returns the named output's frame. The returned image is
// reused by later frames.
func (s *Software) Frame(name string) image.Image {
	f, ok := s.frames[name]
	if !ok {
		return nil
	}
	return f.buffer
}

func (s *Software) DrawOrder() []uint64 {
	return s.order
}

func (s *Software) RemoveOutput(name string) {
	s.outputs.Remove(name)
	delete(s.frames, name)
}

func (s *Software) Close() error {
	clear(s.frames)
	return nil
}

// transformRect copies the canvas pixels in r into dst, applying t.
func transformRect(dst, canvas *shmimage.ARGB8888, r image.Rectangle, t output.Transform) {
	size := canvas.Rect.Size()
	r = r.Intersect(canvas.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			p := t.Point(image.Pt(x, y), size)
			dst.SetARGB8888(p.X, p.Y, canvas.ARGB8888At(x, y))
		}
	}
}

// TransformImage returns a copy of src in the buffer orientation of
// an output with transform t.
func TransformImage(src image.Image, t output.Transform) *shmimage.ARGB8888 {
	b := src.Bounds()
	canvas, ok := src.(*shmimage.ARGB8888)
	if !ok || (b.Min != image.Point{}) {
		canvas = shmimage.NewARGB8888(image.Rectangle{Max: b.Size()})
		draw.Draw(canvas, canvas.Rect, src, b.Min, draw.Src)
	}

	dst := shmimage.NewARGB8888(image.Rectangle{Max: t.Size(b.Size())})
	transformRect(dst, canvas, canvas.Rect, t)
	return dst
}

type softPainter struct {
	img  *shmimage.ARGB8888
	clip image.Rectangle
}

func (p *softPainter) Clip(r image.Rectangle) {
	p.clip = r.Intersect(p.img.Rect)
}

func (p *softPainter) Clear(r image.Rectangle, c Color) {
	p.img.Fill(r.Intersect(p.clip), c.ARGB8888())
}

func (p *softPainter) Fill(r image.Rectangle, c Color) {
	p.img.Blend(r.Intersect(p.clip), c.ARGB8888())
}

func (p *softPainter) DrawImage(dst image.Rectangle, src image.Image) {
	area := dst.Intersect(p.clip)
	if area.Empty() {
		return
	}

	sb := src.Bounds()
	if sb.Size() == dst.Size() {
		at := pixelReader(src)
		if at != nil {
			off := sb.Min.Sub(dst.Min)
			for y := area.Min.Y; y < area.Max.Y; y++ {
				for x := area.Min.X; x < area.Max.X; x++ {
					c := at(x+off.X, y+off.Y)
					p.img.SetARGB8888(x, y, c.Over(p.img.ARGB8888At(x, y)))
				}
			}
			return
		}
	}

	xdraw.NearestNeighbor.Scale(p.img.SubImage(area), dst, src, sb, xdraw.Over, nil)
}

// pixelReader returns a function that reads pixels from src without
// going through color.Color, or nil if src has no such fast path.
func pixelReader(src image.Image) func(x, y int) shmimage.ARGB8888Color {
	switch src := src.(type) {
	case *shmimage.ARGB8888:
		return src.ARGB8888At
	case *format.Image:
		switch src.Format {
		case format.ARGB8888:
			return func(x, y int) shmimage.ARGB8888Color {
				i := src.PixOffset(x, y)
				return shmimage.ARGB8888Color(binary.LittleEndian.Uint32(src.Pix[i:]))
			}
		case format.XRGB8888:
			return func(x, y int) shmimage.ARGB8888Color {
				i := src.PixOffset(x, y)
				return shmimage.ARGB8888Color(binary.LittleEndian.Uint32(src.Pix[i:])).Opaque()
			}
		}
	}
	return nil
}
