package compositor

import (
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"deedles.dev/wlcomp/config"
	"deedles.dev/wlcomp/proto/wl"
	"deedles.dev/wlcomp/proto/xdg"
)

func TestPositionerPlace(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 100)

	tests := []struct {
		name       string
		anchorRect image.Rectangle
		anchor     image.Point
		gravity    image.Point
		adjust     xdg.PositionerConstraintAdjustment
		bounds     image.Rectangle
		expected   image.Rectangle
	}{
		{
			name:       "Fits",
			anchorRect: image.Rect(10, 10, 20, 20),
			anchor:     image.Pt(1, 1),
			gravity:    image.Pt(1, 1),
			bounds:     bounds,
			expected:   image.Rect(20, 20, 40, 40),
		},
		{
			name:       "Centered",
			anchorRect: image.Rect(40, 40, 60, 60),
			bounds:     bounds,
			expected:   image.Rect(40, 40, 60, 60),
		},
		{
			name:       "NoAdjustment",
			anchorRect: image.Rect(90, 10, 100, 20),
			anchor:     image.Pt(1, 0),
			gravity:    image.Pt(1, 0),
			bounds:     bounds,
			expected:   image.Rect(100, 5, 120, 25),
		},
		{
			name:       "FlipX",
			anchorRect: image.Rect(90, 10, 100, 20),
			anchor:     image.Pt(1, 0),
			gravity:    image.Pt(1, 0),
			adjust:     xdg.PositionerConstraintAdjustmentFlipX,
			bounds:     bounds,
			expected:   image.Rect(70, 5, 90, 25),
		},
		{
			name:       "SlideX",
			anchorRect: image.Rect(90, 10, 100, 20),
			anchor:     image.Pt(1, 0),
			gravity:    image.Pt(1, 0),
			adjust:     xdg.PositionerConstraintAdjustmentSlideX,
			bounds:     bounds,
			expected:   image.Rect(80, 5, 100, 25),
		},
		{
			name:       "ResizeX",
			anchorRect: image.Rect(85, 10, 95, 20),
			anchor:     image.Pt(1, 0),
			gravity:    image.Pt(1, 0),
			adjust:     xdg.PositionerConstraintAdjustmentResizeX,
			bounds:     bounds,
			expected:   image.Rect(95, 5, 100, 25),
		},
		{
			name:       "FlipY",
			anchorRect: image.Rect(10, 90, 20, 100),
			anchor:     image.Pt(0, 1),
			gravity:    image.Pt(0, 1),
			adjust:     xdg.PositionerConstraintAdjustmentFlipY,
			bounds:     bounds,
			expected:   image.Rect(5, 70, 25, 90),
		},
		{
			name:       "EmptyResizeUnadjusted",
			anchorRect: image.Rect(90, 10, 100, 20),
			anchor:     image.Pt(1, 0),
			gravity:    image.Pt(1, 0),
			adjust:     xdg.PositionerConstraintAdjustmentResizeX,
			bounds:     bounds,
			expected:   image.Rect(100, 5, 120, 25),
		},
		{
			name:       "NoBounds",
			anchorRect: image.Rect(90, 10, 100, 20),
			anchor:     image.Pt(1, 0),
			gravity:    image.Pt(1, 0),
			adjust:     xdg.PositionerConstraintAdjustmentSlideX,
			expected:   image.Rect(100, 5, 120, 25),
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p := positioner{
				size:       image.Pt(20, 20),
				anchorRect: test.anchorRect,
				anchorSet:  true,
				anchor:     test.anchor,
				gravity:    test.gravity,
				adjust:     test.adjust,
			}
			r := p.place(test.bounds)
			if r != test.expected {
				t.Fatalf("expected %v but got %v", test.expected, r)
			}
		})
	}
}

func TestPositionerOffset(t *testing.T) {
	p := positioner{
		size:       image.Pt(30, 10),
		anchorRect: image.Rect(0, 0, 10, 10),
		anchorSet:  true,
		anchor:     image.Pt(1, 1),
		gravity:    image.Pt(1, 1),
		offset:     image.Pt(5, -2),
	}
	r := p.place(image.Rect(0, 0, 200, 200))
	expected := image.Rect(15, 8, 45, 18)
	if r != expected {
		t.Fatalf("expected %v but got %v", expected, r)
	}
}

func TestPositionerComplete(t *testing.T) {
	var p positioner
	if p.complete() {
		t.Fatal("empty positioner reported complete")
	}
	p.size = image.Pt(1, 1)
	if p.complete() {
		t.Fatal("positioner without an anchor rectangle reported complete")
	}
	p.anchorSet = true
	if !p.complete() {
		t.Fatal("positioner with size and anchor rectangle reported incomplete")
	}
}

func TestSlide(t *testing.T) {
	tests := []struct {
		min, max, lo, hi int
		emin, emax       int
	}{
		{min: 10, max: 20, lo: 0, hi: 100, emin: 10, emax: 20},
		{min: 90, max: 120, lo: 0, hi: 100, emin: 70, emax: 100},
		{min: -10, max: 10, lo: 0, hi: 100, emin: 0, emax: 20},
		{min: -10, max: 200, lo: 0, hi: 100, emin: 0, emax: 210},
	}

	for _, test := range tests {
		min, max := slide(test.min, test.max, test.lo, test.hi)
		if (min != test.emin) || (max != test.emax) {
			t.Fatalf("slide(%v, %v, %v, %v): expected (%v, %v) but got (%v, %v)",
				test.min, test.max, test.lo, test.hi,
				test.emin, test.emax,
				min, max,
			)
		}
	}
}

func TestChooseAction(t *testing.T) {
	const (
		none = wl.DataDeviceManagerDndActionNone
		cp   = wl.DataDeviceManagerDndActionCopy
		mv   = wl.DataDeviceManagerDndActionMove
		ask  = wl.DataDeviceManagerDndActionAsk
	)

	tests := []struct {
		name                    string
		source, dest, preferred wl.DataDeviceManagerDndAction
		expected                wl.DataDeviceManagerDndAction
	}{
		{"Preferred", cp | mv, cp | mv, mv, mv},
		{"PreferredUnsupported", cp, cp | mv, mv, cp},
		{"Disjoint", cp, mv, mv, none},
		{"CopyFirst", cp | mv | ask, cp | mv | ask, none, cp},
		{"Ask", cp | ask, ask, none, ask},
		{"Nothing", none, cp, cp, none},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			a := chooseAction(test.source, test.dest, test.preferred)
			if a != test.expected {
				t.Fatalf("expected %v but got %v", test.expected, a)
			}
		})
	}
}

func TestKeymapSource(t *testing.T) {
	km, err := keymapSource(&config.Keyboard{Layout: "de", Variant: "nodeadkeys"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(km), `include "pc+de(nodeadkeys)+inet(evdev)"`) {
		t.Fatalf("unexpected keymap:\n%s", km)
	}

	km, err = keymapSource(&config.Keyboard{})
	if err != nil {
		t.Fatal(err)
	}
	if km != nil {
		t.Fatalf("expected no keymap but got\n%s", km)
	}

	path := filepath.Join(t.TempDir(), "keymap.xkb")
	err = os.WriteFile(path, []byte("xkb_keymap {};"), 0644)
	if err != nil {
		t.Fatal(err)
	}
	km, err = keymapSource(&config.Keyboard{Layout: "us", Keymap: path})
	if err != nil {
		t.Fatal(err)
	}
	if string(km) != "xkb_keymap {};" {
		t.Fatalf("expected the file's keymap but got %q", km)
	}

	_, err = keymapSource(&config.Keyboard{Keymap: filepath.Join(t.TempDir(), "missing")})
	if err == nil {
		t.Fatal("expected an error for a missing keymap file")
	}
}
