package render_test

import (
	"errors"
	"image"
	"slices"
	"testing"

	"deedles.dev/wlcomp/output"
	"deedles.dev/wlcomp/render"
	"deedles.dev/wlcomp/shm/shmimage"
)

var (
	red  = shmimage.NewARGB8888Color(0xFF, 0, 0, 0xFF)
	blue = shmimage.NewARGB8888Color(0, 0, 0xFF, 0xFF)
)

func solid(w, h int, c shmimage.ARGB8888Color) *shmimage.ARGB8888 {
	img := shmimage.NewARGB8888(image.Rect(0, 0, w, h))
	img.Fill(img.Rect, c)
	return img
}

func pixel(t *testing.T, r render.Renderer, name string, x, y int) shmimage.ARGB8888Color {
	t.Helper()

	img, ok := r.Frame(name).(*shmimage.ARGB8888)
	if !ok {
		t.Fatalf("frame for %q is %T", name, r.Frame(name))
	}
	return img.ARGB8888At(x, y)
}

func testOutput(w, h int) *output.Output {
	return &output.Output{
		Name:  "test",
		Mode:  output.Mode{Size: image.Pt(w, h)},
		Scale: 1,
	}
}

func TestSoftwareDamage(t *testing.T) {
	r := render.NewSoftware()
	out := testOutput(4, 4)
	buf := solid(2, 2, red)
	scene := render.Scene{
		Elements: []render.Element{{ID: 1, Geometry: image.Rect(1, 1, 3, 3), Buffer: buf}},
	}

	drawn, err := r.RenderFrame(&scene, out)
	if err != nil {
		t.Fatal(err)
	}
	if !drawn {
		t.Fatal("first frame was not drawn")
	}
	if c := pixel(t, r, "test", 0, 0); c != render.DefaultBackground.ARGB8888() {
		t.Fatalf("background: %08X", uint32(c))
	}
	if c := pixel(t, r, "test", 2, 2); c != red {
		t.Fatalf("element: %08X", uint32(c))
	}
	if order := r.DrawOrder(); !slices.Equal(order, []uint64{1}) {
		t.Fatalf("draw order: %v", order)
	}

	drawn, err = r.RenderFrame(&scene, out)
	if err != nil {
		t.Fatal(err)
	}
	if drawn {
		t.Fatal("frame without damage was drawn")
	}

	buf.Fill(buf.Rect, blue)
	r.AddDamage(image.Rect(1, 1, 2, 2))
	drawn, err = r.RenderFrame(&scene, out)
	if err != nil {
		t.Fatal(err)
	}
	if !drawn {
		t.Fatal("damaged frame was not drawn")
	}
	if c := pixel(t, r, "test", 1, 1); c != blue {
		t.Fatalf("damaged pixel: %08X", uint32(c))
	}
	if c := pixel(t, r, "test", 2, 2); c != red {
		t.Fatalf("undamaged pixel: %08X", uint32(c))
	}
}

func TestSoftwareDamageOffset(t *testing.T) {
	r := render.NewSoftware()
	out := testOutput(4, 4)
	out.Position = image.Pt(100, 0)

	var scene render.Scene
	r.RenderFrame(&scene, out)

	r.AddDamage(image.Rect(0, 0, 50, 50))
	drawn, _ := r.RenderFrame(&scene, out)
	if drawn {
		t.Fatal("damage outside of the output caused a redraw")
	}

	r.AddDamage(image.Rect(90, 0, 101, 1))
	drawn, _ = r.RenderFrame(&scene, out)
	if !drawn {
		t.Fatal("damage on the output did not cause a redraw")
	}
}

func TestSoftwareOrder(t *testing.T) {
	r := render.NewSoftware()
	out := testOutput(8, 8)
	scene := render.Scene{
		Elements: []render.Element{
			{ID: 3, Geometry: image.Rect(0, 0, 4, 4), Buffer: solid(4, 4, red)},
			{ID: 1, Geometry: image.Rect(2, 2, 6, 6), Buffer: solid(4, 4, blue)},
			{ID: 2, Geometry: image.Rect(20, 20, 24, 24), Buffer: solid(4, 4, blue)},
		},
		Cursor: &render.CursorElement{Image: solid(1, 1, red), Position: image.Pt(3, 3)},
	}

	_, err := r.RenderFrame(&scene, out)
	if err != nil {
		t.Fatal(err)
	}
	if order := r.DrawOrder(); !slices.Equal(order, []uint64{3, 1, render.CursorID}) {
		t.Fatalf("draw order: %v", order)
	}
	if c := pixel(t, r, "test", 3, 3); c != red {
		t.Fatalf("cursor: %08X", uint32(c))
	}
	if c := pixel(t, r, "test", 2, 2); c != blue {
		t.Fatalf("overlap: %08X", uint32(c))
	}
}

func TestSoftwareBorder(t *testing.T) {
	r := render.NewSoftware()
	r.SetClearColor(render.Color{A: 0xFF})
	out := testOutput(6, 6)
	active := render.Color{G: 0xFF, A: 0xFF}
	scene := render.Scene{
		Elements: []render.Element{
			{ID: 1, Geometry: image.Rect(1, 1, 3, 3), Buffer: solid(2, 2, red), Border: true, Active: true},
		},
		BorderWidth:    1,
		ActiveBorder:   active,
		InactiveBorder: render.Color{B: 0xFF, A: 0xFF},
	}

	r.RenderFrame(&scene, out)
	if c := pixel(t, r, "test", 0, 0); c != active.ARGB8888() {
		t.Fatalf("border: %08X", uint32(c))
	}
	if c := pixel(t, r, "test", 3, 2); c != active.ARGB8888() {
		t.Fatalf("border: %08X", uint32(c))
	}
	if c := pixel(t, r, "test", 1, 1); c != red {
		t.Fatalf("contents: %08X", uint32(c))
	}
	if c := pixel(t, r, "test", 5, 5); c != shmimage.NewARGB8888Color(0, 0, 0, 0xFF) {
		t.Fatalf("background: %08X", uint32(c))
	}
}

func TestSoftwareScale(t *testing.T) {
	r := render.NewSoftware()
	out := testOutput(8, 8)
	out.Scale = 2
	scene := render.Scene{
		Elements: []render.Element{{ID: 1, Geometry: image.Rect(1, 1, 2, 2), Buffer: solid(1, 1, red)}},
	}

	r.RenderFrame(&scene, out)
	for _, p := range []image.Point{{2, 2}, {3, 3}} {
		if c := pixel(t, r, "test", p.X, p.Y); c != red {
			t.Fatalf("%v: %08X", p, uint32(c))
		}
	}
	if c := pixel(t, r, "test", 4, 4); c == red {
		t.Fatal("element drawn outside of its scaled geometry")
	}
}

func TestSoftwareTransform(t *testing.T) {
	r := render.NewSoftware()
	out := testOutput(2, 4)
	out.Transform = output.Transform90
	scene := render.Scene{
		Elements: []render.Element{{ID: 1, Geometry: image.Rect(0, 0, 1, 1), Buffer: solid(1, 1, red)}},
	}

	r.RenderFrame(&scene, out)
	frame := r.Frame("test")
	if b := frame.Bounds(); b != image.Rect(0, 0, 2, 4) {
		t.Fatalf("frame bounds: %v", b)
	}
	if c := pixel(t, r, "test", 1, 0); c != red {
		t.Fatalf("transformed pixel: %08X", uint32(c))
	}
	if c := pixel(t, r, "test", 0, 0); c == red {
		t.Fatal("untransformed pixel was drawn")
	}
}

func TestTransformImage(t *testing.T) {
	src := solid(3, 2, blue)
	src.SetARGB8888(0, 0, red)

	dst := render.TransformImage(src, output.Transform180)
	if dst.Rect != image.Rect(0, 0, 3, 2) {
		t.Fatalf("bounds: %v", dst.Rect)
	}
	if c := dst.ARGB8888At(2, 1); c != red {
		t.Fatalf("rotated pixel: %08X", uint32(c))
	}

	dst = render.TransformImage(src, output.Transform270)
	if dst.Rect != image.Rect(0, 0, 2, 3) {
		t.Fatalf("bounds: %v", dst.Rect)
	}
}

func TestSoftwareRemoveOutput(t *testing.T) {
	r := render.NewSoftware()
	r.RenderFrame(&render.Scene{}, testOutput(2, 2))
	r.RemoveOutput("test")
	if r.Frame("test") != nil {
		t.Fatal("frame survived output removal")
	}
}

type fakeRenderer struct {
	*render.Software
	err error
}

func (r fakeRenderer) Name() string { return "fake" }
func (r fakeRenderer) Init() error  { return r.err }

func TestSelect(t *testing.T) {
	tests := []struct {
		name string
		pref render.Backend
		err  error
		want string
	}{
		{name: "Software", pref: render.BackendSoftware, want: "software"},
		{name: "Hardware", pref: render.BackendAuto, want: "fake"},
		{name: "Unavailable", pref: render.BackendAuto, err: render.ErrBackendUnavailable, want: "software"},
		{name: "Failed", pref: render.BackendHardware, err: errors.New("broken"), want: "software"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r, err := render.Select(test.pref, fakeRenderer{Software: render.NewSoftware(), err: test.err})
			if err != nil {
				t.Fatal(err)
			}
			if r.Name() != test.want {
				t.Fatalf("selected %q, expected %q", r.Name(), test.want)
			}
		})
	}

	r, err := render.Select(render.BackendAuto, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Name() != "software" {
		t.Fatalf("selected %q without a hardware backend", r.Name())
	}
}

func TestParseBackend(t *testing.T) {
	b, err := render.ParseBackend("")
	if (err != nil) || (b != render.BackendAuto) {
		t.Fatalf("empty: %q, %v", b, err)
	}
	b, err = render.ParseBackend("Software")
	if (err != nil) || (b != render.BackendSoftware) {
		t.Fatalf("software: %q, %v", b, err)
	}
	_, err = render.ParseBackend("vulkan")
	if err == nil {
		t.Fatal("unknown backend accepted")
	}
}

// scan checks every pixel of the named frame against want.
func scan(t *testing.T, r *render.Software, name string, want func(x, y int) shmimage.ARGB8888Color) {
	t.Helper()

	img := r.Frame(name).(*shmimage.ARGB8888)
	for y := img.Rect.Min.Y; y < img.Rect.Max.Y; y++ {
		for x := img.Rect.Min.X; x < img.Rect.Max.X; x++ {
			if c, w := img.ARGB8888At(x, y), want(x, y); c != w {
				t.Fatalf("pixel (%v,%v): expected %08X but got %08X", x, y, uint32(w), uint32(c))
			}
		}
	}
}

func TestSoftwareClear(t *testing.T) {
	r := render.NewSoftware()
	out := testOutput(8, 6)
	r.DrawRect(out, 1, 1, 3, 3, render.Color{R: 0xFF, A: 0xFF})

	c := render.Color{R: 0x10, G: 0x20, B: 0x30, A: 0x80}
	r.Clear(out, c)
	scan(t, r, "test", func(x, y int) shmimage.ARGB8888Color { return c.ARGB8888() })
}

func TestSoftwareDrawRect(t *testing.T) {
	bg := render.Color{A: 0xFF}
	fg := render.Color{G: 0xFF, A: 0xFF}

	tests := []struct {
		name       string
		x, y, w, h int
		inside     image.Rectangle
	}{
		{name: "Inside", x: 1, y: 2, w: 3, h: 2, inside: image.Rect(1, 2, 4, 4)},
		{name: "ClippedRight", x: 5, y: 4, w: 10, h: 10, inside: image.Rect(5, 4, 8, 6)},
		{name: "ClippedLeft", x: -2, y: -2, w: 4, h: 3, inside: image.Rect(0, 0, 2, 1)},
		{name: "Outside", x: 20, y: 20, w: 2, h: 2},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			r := render.NewSoftware()
			out := testOutput(8, 6)
			r.Clear(out, bg)
			r.DrawRect(out, test.x, test.y, test.w, test.h, fg)

			scan(t, r, "test", func(x, y int) shmimage.ARGB8888Color {
				if image.Pt(x, y).In(test.inside) {
					return fg.ARGB8888()
				}
				return bg.ARGB8888()
			})
		})
	}
}

func TestSoftwareDrawRectTransformed(t *testing.T) {
	r := render.NewSoftware()
	out := testOutput(4, 2)
	out.Transform = output.Transform90
	fg := render.Color{B: 0xFF, A: 0xFF}

	r.Clear(out, render.Color{A: 0xFF})
	r.DrawRect(out, 0, 0, 1, 1, fg)

	var found int
	img := r.Frame("test").(*shmimage.ARGB8888)
	for y := img.Rect.Min.Y; y < img.Rect.Max.Y; y++ {
		for x := img.Rect.Min.X; x < img.Rect.Max.X; x++ {
			if img.ARGB8888At(x, y) == fg.ARGB8888() {
				found++
			}
		}
	}
	if found != 1 {
		t.Fatalf("expected 1 drawn pixel in the buffer but found %v", found)
	}
}

type nopPainter struct{}

func (nopPainter) Clip(image.Rectangle)                   {}
func (nopPainter) Clear(image.Rectangle, render.Color)    {}
func (nopPainter) Fill(image.Rectangle, render.Color)     {}
func (nopPainter) DrawImage(image.Rectangle, image.Image) {}

func TestPaintOrderFollowsScene(t *testing.T) {
	out := testOutput(8, 8)
	scene := render.Scene{
		Elements: []render.Element{
			{ID: 1, Geometry: image.Rect(6, 6, 8, 8)},
			{ID: 2, Geometry: image.Rect(0, 0, 2, 2)},
			{ID: 3, Geometry: image.Rect(3, 3, 4, 4)},
		},
		Cursor: &render.CursorElement{Image: solid(1, 1, red)},
	}

	damage := []image.Rectangle{image.Rect(0, 0, 2, 2), image.Rect(6, 6, 8, 8)}
	order := render.Paint(nopPainter{}, &scene, out, damage, render.DefaultBackground)
	if !slices.Equal(order, []uint64{1, 2, render.CursorID}) {
		t.Fatalf("draw order: %v", order)
	}
}
