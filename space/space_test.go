package space_test

import (
	"image"
	"slices"
	"testing"

	"deedles.dev/wlcomp/internal/handle"
	"deedles.dev/wlcomp/region"
	"deedles.dev/wlcomp/space"
)

type fixture struct {
	surfaces handle.Arena[string]
	space    *space.Space
}

func newFixture() *fixture {
	var f fixture
	f.space = space.New(f.surfaces.Valid)
	return &f
}

func (f *fixture) window(name string, size image.Point) *space.Window {
	w := f.space.NewWindow(f.surfaces.Insert(name), name)
	w.Title = name
	f.space.Resize(w, size)
	return w
}

func titles(ws []*space.Window) []string {
	r := make([]string, 0, len(ws))
	for _, w := range ws {
		r = append(r, w.Title)
	}
	return r
}

func TestElementsOrder(t *testing.T) {
	f := newFixture()
	a := f.window("a", image.Pt(10, 10))
	b := f.window("b", image.Pt(10, 10))
	c := f.window("c", image.Pt(10, 10))
	f.space.Map(a, image.Pt(0, 0))
	f.space.Map(b, image.Pt(5, 5))
	f.space.Map(c, image.Pt(50, 50))

	got := titles(f.space.Elements())
	if !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Fatalf("order: %v", got)
	}

	f.space.Raise(a)
	got = titles(f.space.Elements())
	if !slices.Equal(got, []string{"b", "c", "a"}) {
		t.Fatalf("order after raise: %v", got)
	}
}

func TestGeometryOf(t *testing.T) {
	f := newFixture()
	w := f.window("w", image.Pt(100, 50))

	_, ok := f.space.GeometryOf(w)
	if ok {
		t.Fatal("unmapped window has geometry")
	}

	f.space.Map(w, image.Pt(10, 20))
	f.space.Move(w, image.Pt(30, 40))
	f.space.Resize(w, image.Pt(200, 100))

	g, ok := f.space.GeometryOf(w)
	if !ok {
		t.Fatal("mapped window has no geometry")
	}
	if g != image.Rect(30, 40, 230, 140) {
		t.Fatalf("geometry: %v", g)
	}

	f.space.SetGeometry(w, image.Rect(1, 2, 3, 4))
	g, _ = f.space.GeometryOf(w)
	if g != image.Rect(1, 2, 3, 4) {
		t.Fatalf("geometry after SetGeometry: %v", g)
	}
}

func TestHitTest(t *testing.T) {
	f := newFixture()
	a := f.window("a", image.Pt(100, 100))
	b := f.window("b", image.Pt(100, 100))
	f.space.Map(a, image.Pt(0, 0))
	f.space.Map(b, image.Pt(50, 50))

	tests := []struct {
		name string
		p    image.Point
		want string
	}{
		{name: "OnlyA", p: image.Pt(10, 10), want: "a"},
		{name: "Overlap", p: image.Pt(75, 75), want: "b"},
		{name: "OnlyB", p: image.Pt(140, 140), want: "b"},
		{name: "Nothing", p: image.Pt(500, 500), want: ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var got string
			w, ok := f.space.WindowAt(test.p)
			if ok {
				got = w.Title
			}
			if got != test.want {
				t.Fatalf("WindowAt(%v) = %q, want %q", test.p, got, test.want)
			}
		})
	}

	f.space.Unmap(b)
	w, ok := f.space.WindowAt(image.Pt(75, 75))
	if !ok || (w != a) {
		t.Fatal("unmapped window still hit")
	}
	if slices.Contains(f.space.Elements(), b) {
		t.Fatal("unmapped window still in elements")
	}
}

func TestInputRegion(t *testing.T) {
	f := newFixture()
	a := f.window("a", image.Pt(100, 100))
	b := f.window("b", image.Pt(100, 100))
	f.space.Map(a, image.Pt(0, 0))
	f.space.Map(b, image.Pt(0, 0))
	b.InputRegion = region.New(image.Rect(0, 0, 10, 10), image.Rect(90, 90, 100, 100))

	w, _ := f.space.WindowAt(image.Pt(5, 5))
	if w != b {
		t.Fatalf("expected b inside its input region, got %v", w.Title)
	}
	w, _ = f.space.WindowAt(image.Pt(50, 50))
	if w != a {
		t.Fatalf("expected a outside b's input region, got %v", w.Title)
	}
}

func TestMinimized(t *testing.T) {
	f := newFixture()
	w := f.window("w", image.Pt(10, 10))
	f.space.Map(w, image.Pt(0, 0))
	w.Minimized = true

	_, ok := f.space.WindowAt(image.Pt(5, 5))
	if ok {
		t.Fatal("minimized window was hit")
	}
	if len(f.space.Visible()) != 0 {
		t.Fatal("minimized window is visible")
	}
}

func TestRefresh(t *testing.T) {
	f := newFixture()
	w := f.window("w", image.Pt(10, 10))
	f.space.Map(w, image.Pt(0, 0))

	f.space.Refresh()
	d := f.space.TakeDamage()
	if !slices.Equal(d, []image.Rectangle{image.Rect(0, 0, 10, 10)}) {
		t.Fatalf("map damage: %v", d)
	}

	f.space.Refresh()
	if d := f.space.TakeDamage(); len(d) != 0 {
		t.Fatalf("second refresh produced damage: %v", d)
	}

	f.space.Commit(w, image.Rect(2, 2, 4, 4))
	f.space.Move(w, image.Pt(20, 0))
	f.space.Refresh()
	d = f.space.TakeDamage()
	if !slices.Equal(d, []image.Rectangle{image.Rect(0, 0, 10, 10), image.Rect(20, 0, 30, 10)}) {
		t.Fatalf("move damage: %v", d)
	}

	f.space.Commit(w, image.Rect(2, 2, 4, 4), image.Rect(8, 8, 20, 20))
	f.space.Refresh()
	d = f.space.TakeDamage()
	if !slices.Equal(d, []image.Rectangle{image.Rect(22, 2, 24, 4), image.Rect(28, 8, 30, 10)}) {
		t.Fatalf("commit damage: %v", d)
	}
}

func TestRefreshDeadSurface(t *testing.T) {
	f := newFixture()
	w := f.window("w", image.Pt(10, 10))
	f.space.Map(w, image.Pt(0, 0))
	f.space.Refresh()
	f.space.TakeDamage()

	f.surfaces.Remove(w.Surface)
	f.space.Refresh()
	if w.Mapped() {
		t.Fatal("window with dead surface still mapped")
	}
	if d := f.space.TakeDamage(); len(d) == 0 {
		t.Fatal("removing window produced no damage")
	}
}

func TestPopups(t *testing.T) {
	f := newFixture()
	w := f.window("w", image.Pt(100, 100))
	f.space.Map(w, image.Pt(10, 10))

	p1, err := f.space.AddPopup(w.ID(), f.surfaces.Insert("p1"), image.Pt(50, 50), image.Pt(100, 20))
	if err != nil {
		t.Fatal(err)
	}
	p2, err := f.space.AddPopup(p1.ID(), f.surfaces.Insert("p2"), image.Pt(100, 0), image.Pt(40, 40))
	if err != nil {
		t.Fatal(err)
	}

	if g := f.space.PopupGeometry(p2); g != image.Rect(160, 60, 200, 100) {
		t.Fatalf("nested popup geometry: %v", g)
	}

	hit, ok := f.space.SurfaceAt(image.Pt(70, 70))
	if !ok || (hit.Popup != p1) || (hit.Local != image.Pt(10, 10)) {
		t.Fatalf("popup hit: %+v", hit)
	}
	hit, ok = f.space.SurfaceAt(image.Pt(20, 20))
	if !ok || (hit.Popup != nil) || (hit.Window != w) {
		t.Fatalf("window hit: %+v", hit)
	}

	closed := f.space.ClosePopup(p1.ID())
	if (len(closed) != 2) || (closed[0] != p2) || (closed[1] != p1) {
		t.Fatalf("closed: %v", closed)
	}
	if _, ok := f.space.Popup(p2.ID()); ok {
		t.Fatal("nested popup still open")
	}

	_, err = f.space.AddPopup(12345, f.surfaces.Insert("orphan"), image.Point{}, image.Pt(1, 1))
	if err == nil {
		t.Fatal("popup without parent was accepted")
	}
}

func TestUnmapClosesPopups(t *testing.T) {
	f := newFixture()
	w := f.window("w", image.Pt(100, 100))
	f.space.Map(w, image.Pt(0, 0))
	p, _ := f.space.AddPopup(w.ID(), f.surfaces.Insert("p"), image.Pt(10, 10), image.Pt(10, 10))

	closed := f.space.Unmap(w)
	if (len(closed) != 1) || (closed[0] != p) {
		t.Fatalf("closed: %v", closed)
	}
}

func TestPlace(t *testing.T) {
	f := newFixture()
	origin := image.Pt(100, 0)

	if p := f.space.Place(origin, 32); p != origin {
		t.Fatalf("first placement: %v", p)
	}

	a := f.window("a", image.Pt(10, 10))
	f.space.Map(a, f.space.Place(origin, 32))
	b := f.window("b", image.Pt(10, 10))
	f.space.Map(b, f.space.Place(origin, 32))

	if g, _ := f.space.GeometryOf(b); g.Min != image.Pt(132, 32) {
		t.Fatalf("cascaded placement: %v", g.Min)
	}
}
