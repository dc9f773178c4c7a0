// Package accel provides a renderer that draws through gg, which
// offloads rasterization to the GPU when one is available.
package accel

import (
	"fmt"
	"image"
	"log/slog"

	"deedles.dev/wlcomp/output"
	"deedles.dev/wlcomp/render"
	"deedles.dev/wlcomp/shm/shmimage"
	"github.com/gogpu/gg"
	_ "github.com/gogpu/gg/gpu"
	"github.com/sirupsen/logrus"
)

// Renderer is a render.Renderer backed by one gg.Context per output.
type Renderer struct {
	outputs  render.Outputs
	contexts map[string]*gg.Context
	frames   map[string]*shmimage.ARGB8888
	clear    render.Color
	order    []uint64

	// images caches the converted form of client buffers between
	// frames.
	images map[image.Image]*gg.ImageBuf
}

// New returns a Renderer. It does not check for a GPU until Init is
// called.
func New() *Renderer {
	return &Renderer{
		contexts: make(map[string]*gg.Context),
		frames:   make(map[string]*shmimage.ARGB8888),
		clear:    render.DefaultBackground,
		images:   make(map[image.Image]*gg.ImageBuf),
	}
}

func (r *Renderer) Name() string {
	return "accel"
}

func (r *Renderer) Init() error {
	gg.SetLogger(slog.New(slog.NewTextHandler(logrus.StandardLogger().Out, nil)))

	if gg.Accelerator() == nil {
		return fmt.Errorf("%w: no GPU accelerator registered", render.ErrBackendUnavailable)
	}

	err := trial()
	if err != nil {
		return fmt.Errorf("%w: trial frame: %v", render.ErrBackendUnavailable, err)
	}
	return nil
}

// trial draws a tiny frame the way RenderFrame does. Some adapters
// accept the context but fail once an image is flushed.
func trial() error {
	ctx := gg.NewContext(2, 2)
	defer ctx.Close()

	p := painter{ctx: ctx, images: make(map[image.Image]*gg.ImageBuf)}
	p.Clip(image.Rect(0, 0, 2, 2))
	p.Fill(image.Rect(0, 0, 2, 2), render.DefaultBackground)
	p.DrawImage(image.Rect(0, 0, 1, 1), shmimage.NewARGB8888(image.Rect(0, 0, 1, 1)))
	if p.err != nil {
		return p.err
	}
	return ctx.FlushGPU()
}

func (r *Renderer) AddDamage(rects ...image.Rectangle) {
	r.outputs.AddDamage(rects...)
}

func (r *Renderer) SetClearColor(c render.Color) {
	if c == r.clear {
		return
	}
	r.clear = c
	for name := range r.contexts {
		r.outputs.Remove(name)
	}
}

func (r *Renderer) RenderFrame(scene *render.Scene, out *output.Output) (bool, error) {
	rects, realloc := r.outputs.Begin(out)
	ctx, ok := r.contexts[out.Name]
	if realloc || !ok {
		if ok {
			ctx.Close()
		}
		size := out.CanvasSize()
		ctx = gg.NewContext(size.X, size.Y)
		r.contexts[out.Name] = ctx
	}

	r.order = nil
	if len(rects) == 0 {
		return false, nil
	}

	p := painter{ctx: ctx, images: r.images}
	r.order = render.Paint(&p, scene, out, rects, r.clear)
	if p.err != nil {
		return true, fmt.Errorf("draw frame for %v: %w", out.Name, p.err)
	}
	err := ctx.FlushGPU()
	if err != nil {
		return true, fmt.Errorf("flush frame for %v: %w", out.Name, err)
	}

	r.frames[out.Name] = render.TransformImage(ctx.Image(), out.Transform)
	r.pruneImages(scene)
	return true, nil
}

func (r *Renderer) pruneImages(scene *render.Scene) {
	live := make(map[image.Image]struct{}, len(scene.Elements))
	for _, e := range scene.Elements {
		live[e.Buffer] = struct{}{}
	}
	if scene.Cursor != nil {
		live[scene.Cursor.Image] = struct{}{}
	}
	for img := range r.images {
		if _, ok := live[img]; !ok {
			delete(r.images, img)
		}
	}
}

func (r *Renderer) Frame(name string) image.Image {
	f, ok := r.frames[name]
	if !ok {
		return nil
	}
	return f
}

func (r *Renderer) DrawOrder() []uint64 {
	return r.order
}

func (r *Renderer) RemoveOutput(name string) {
	r.outputs.Remove(name)
	if ctx, ok := r.contexts[name]; ok {
		ctx.Close()
		delete(r.contexts, name)
	}
	delete(r.frames, name)
}

func (r *Renderer) Close() error {
	for name, ctx := range r.contexts {
		ctx.Close()
		delete(r.contexts, name)
	}
	clear(r.frames)
	clear(r.images)
	return nil
}

type painter struct {
	ctx    *gg.Context
	images map[image.Image]*gg.ImageBuf
	clip   image.Rectangle
	err    error
}

func (p *painter) Clip(r image.Rectangle) {
	p.clip = r.Intersect(image.Rect(0, 0, p.ctx.Width(), p.ctx.Height()))
	p.ctx.ResetClip()
	p.ctx.ClipRect(float64(p.clip.Min.X), float64(p.clip.Min.Y), float64(p.clip.Dx()), float64(p.clip.Dy()))
}

func (p *painter) Clear(r image.Rectangle, c render.Color) {
	p.Fill(r, c)
}

func (p *painter) Fill(r image.Rectangle, c render.Color) {
	r = r.Intersect(p.clip)
	if r.Empty() || (p.err != nil) {
		return
	}

	p.ctx.SetColor(c)
	p.ctx.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
	p.err = p.ctx.Fill()
}

// DrawImage draws the part of src that lands inside the clip. gg does
// not clip images, so the source rectangle is cut down instead.
func (p *painter) DrawImage(dst image.Rectangle, src image.Image) {
	area := dst.Intersect(p.clip)
	if area.Empty() {
		return
	}

	buf, ok := p.images[src]
	if !ok {
		buf = gg.ImageBufFromImage(src)
		p.images[src] = buf
	}

	sb := src.Bounds()
	sx := func(x int) int { return (x - dst.Min.X) * sb.Dx() / dst.Dx() }
	sy := func(y int) int { return (y - dst.Min.Y) * sb.Dy() / dst.Dy() }
	sr := image.Rect(sx(area.Min.X), sy(area.Min.Y), sx(area.Max.X), sy(area.Max.Y))
	if sr.Empty() {
		return
	}

	p.ctx.DrawImageEx(buf, gg.DrawImageOptions{
		X:             float64(area.Min.X),
		Y:             float64(area.Min.Y),
		DstWidth:      float64(area.Dx()),
		DstHeight:     float64(area.Dy()),
		SrcRect:       &sr,
		Interpolation: gg.InterpNearest,
		Opacity:       1,
		BlendMode:     gg.BlendNormal,
	})
}
