package output

import (
	"image"
	"testing"
	"time"
)

func TestLogicalSize(t *testing.T) {
	tests := []struct {
		name string
		out  Output
		size image.Point
	}{
		{
			name: "Plain",
			out:  Output{Mode: Mode{Size: image.Pt(1920, 1080)}, Scale: 1},
			size: image.Pt(1920, 1080),
		},
		{
			name: "Fractional",
			out:  Output{Mode: Mode{Size: image.Pt(2560, 1440)}, Scale: 1.5},
			size: image.Pt(1707, 960),
		},
		{
			name: "Rotated",
			out:  Output{Mode: Mode{Size: image.Pt(1920, 1080)}, Scale: 2, Transform: Transform90},
			size: image.Pt(540, 960),
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if sz := test.out.LogicalSize(); sz != test.size {
				t.Fatalf("got %v, expected %v", sz, test.size)
			}
		})
	}
}

func TestTransformInverse(t *testing.T) {
	canvas := image.Pt(40, 30)
	r := image.Rect(3, 4, 13, 9)

	for tr := TransformNormal; tr <= TransformFlipped270; tr++ {
		buf := tr.Size(canvas)
		mapped := tr.Rect(r, canvas)
		if !mapped.In(image.Rectangle{Max: buf}) {
			t.Errorf("%v: %v escapes %v", tr, mapped, buf)
		}
		back := tr.Invert().Rect(mapped, buf)
		if back != r {
			t.Errorf("%v: round trip gave %v", tr, back)
		}
	}
}

func TestBufferRect(t *testing.T) {
	o := Output{Mode: Mode{Size: image.Pt(200, 100)}, Scale: 2}

	r := o.BufferRect(image.Rect(10, 10, 20, 20))
	if r != image.Rect(20, 20, 40, 40) {
		t.Fatalf("scaled: %v", r)
	}

	r = o.BufferRect(image.Rect(90, 40, 200, 200))
	if r != image.Rect(180, 80, 200, 100) {
		t.Fatalf("clipped: %v", r)
	}
}

func TestManagerAutoLayout(t *testing.T) {
	var m Manager
	var events []EventKind
	m.Listen(func(ev Event) { events = append(events, ev.Kind) })

	a := &Output{Name: "A", Mode: Mode{Size: image.Pt(100, 100)}, Scale: 1}
	b := &Output{Name: "B", Mode: Mode{Size: image.Pt(200, 100)}, Scale: 2}
	m.AddAuto(a)
	m.AddAuto(b)

	if b.Position != image.Pt(100, 0) {
		t.Fatalf("second output at %v", b.Position)
	}
	if m.Bounds() != image.Rect(0, 0, 200, 100) {
		t.Fatalf("bounds: %v", m.Bounds())
	}
	if err := m.Add(&Output{Name: "A"}); err == nil {
		t.Fatal("duplicate name accepted")
	}

	o, ok := m.At(image.Pt(150, 20))
	if !ok || (o != b) {
		t.Fatalf("at: %v", o)
	}

	m.Remove("A")
	if m.Len() != 1 {
		t.Fatalf("len: %v", m.Len())
	}
	if len(events) != 3 || events[2] != Removed {
		t.Fatalf("events: %v", events)
	}
}

func TestFrameInterval(t *testing.T) {
	o := Output{Mode: Mode{Refresh: 50000}}
	if d := o.FrameInterval(); d != 20*time.Millisecond {
		t.Fatalf("interval: %v", d)
	}
}

func TestFromBuffer(t *testing.T) {
	o := Output{Position: image.Pt(100, 0), Mode: Mode{Size: image.Pt(200, 100)}, Scale: 2}
	if p := o.FromBuffer(image.Pt(50, 20)); (p.X != 125) || (p.Y != 10) {
		t.Fatalf("scaled: %v", p)
	}

	o = Output{Mode: Mode{Size: image.Pt(100, 200)}, Scale: 1, Transform: Transform90}
	if p := o.FromBuffer(image.Pt(99, 0)); (p.X != 0) || (p.Y != 0) {
		t.Fatalf("rotated: %v", p)
	}
}
