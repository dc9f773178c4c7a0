package accel_test

import (
	"errors"
	"image"
	"testing"

	"deedles.dev/wlcomp/output"
	"deedles.dev/wlcomp/render"
	"deedles.dev/wlcomp/render/accel"
	"deedles.dev/wlcomp/shm/shmimage"
)

func TestRenderer(t *testing.T) {
	r := accel.New()
	err := r.Init()
	if errors.Is(err, render.ErrBackendUnavailable) {
		t.Skip(err)
	}
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	red := shmimage.NewARGB8888Color(0xFF, 0, 0, 0xFF)
	buf := shmimage.NewARGB8888(image.Rect(0, 0, 4, 4))
	buf.Fill(buf.Rect, red)

	out := &output.Output{Name: "test", Mode: output.Mode{Size: image.Pt(16, 16)}, Scale: 1}
	scene := render.Scene{
		Elements: []render.Element{{ID: 7, Geometry: image.Rect(4, 4, 8, 8), Buffer: buf}},
	}

	drawn, err := r.RenderFrame(&scene, out)
	if err != nil {
		t.Fatal(err)
	}
	if !drawn {
		t.Fatal("first frame was not drawn")
	}
	if order := r.DrawOrder(); (len(order) != 1) || (order[0] != 7) {
		t.Fatalf("draw order: %v", order)
	}

	frame := r.Frame("test").(*shmimage.ARGB8888)
	if c := frame.ARGB8888At(5, 5); c != red {
		t.Fatalf("element pixel: %08X", uint32(c))
	}
	if c := frame.ARGB8888At(0, 0); c != render.DefaultBackground.ARGB8888() {
		t.Fatalf("background pixel: %08X", uint32(c))
	}

	drawn, _ = r.RenderFrame(&scene, out)
	if drawn {
		t.Fatal("frame without damage was drawn")
	}
}

func TestRendererMatchesSoftware(t *testing.T) {
	hw := accel.New()
	err := hw.Init()
	if errors.Is(err, render.ErrBackendUnavailable) {
		t.Skip(err)
	}
	if err != nil {
		t.Fatal(err)
	}
	defer hw.Close()
	sw := render.NewSoftware()

	out := &output.Output{Name: "test", Mode: output.Mode{Size: image.Pt(32, 32)}, Scale: 1}
	scene := render.Scene{
		Elements: []render.Element{
			{ID: 1, Geometry: image.Rect(0, 0, 10, 10)},
			{ID: 2, Geometry: image.Rect(50, 50, 60, 60)},
			{ID: 3, Geometry: image.Rect(8, 8, 20, 20), Border: true},
		},
		BorderWidth: 2,
	}

	for _, r := range []render.Renderer{hw, sw} {
		_, err := r.RenderFrame(&scene, out)
		if err != nil {
			t.Fatalf("%v: %v", r.Name(), err)
		}
	}

	h, s := hw.DrawOrder(), sw.DrawOrder()
	if len(h) != len(s) {
		t.Fatalf("draw orders differ: %v != %v", h, s)
	}
	for i := range h {
		if h[i] != s[i] {
			t.Fatalf("draw orders differ: %v != %v", h, s)
		}
	}
}
