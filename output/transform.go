package output

import (
	"fmt"
	"image"

	"deedles.dev/wlcomp/proto/wl"
)

// Transform describes how an output's buffer is rotated and flipped
// relative to its logical orientation. The values match
// wl_output.transform.
type Transform uint32

const (
	TransformNormal     = Transform(wl.OutputTransformNormal)
	Transform90         = Transform(wl.OutputTransform90)
	Transform180        = Transform(wl.OutputTransform180)
	Transform270        = Transform(wl.OutputTransform270)
	TransformFlipped    = Transform(wl.OutputTransformFlipped)
	TransformFlipped90  = Transform(wl.OutputTransformFlipped90)
	TransformFlipped180 = Transform(wl.OutputTransformFlipped180)
	TransformFlipped270 = Transform(wl.OutputTransformFlipped270)
)

// TransformFromRotation converts a rotation in degrees, as written in
// configuration files, into a Transform.
func TransformFromRotation(degrees int, flipped bool) (Transform, error) {
	var t Transform
	switch degrees {
	case 0:
		t = TransformNormal
	case 90:
		t = Transform90
	case 180:
		t = Transform180
	case 270:
		t = Transform270
	default:
		return 0, fmt.Errorf("invalid rotation: %v", degrees)
	}
	if flipped {
		t |= TransformFlipped
	}
	return t, nil
}

// Valid reports whether t is one of the eight defined transforms.
func (t Transform) Valid() bool {
	return t <= TransformFlipped270
}

func (t Transform) rotates() bool {
	return t&Transform90 != 0
}

// Size returns the size that a rectangle of size sz has after being
// transformed.
func (t Transform) Size(sz image.Point) image.Point {
	if t.rotates() {
		return image.Pt(sz.Y, sz.X)
	}
	return sz
}

// Invert returns the transform that undoes t.
func (t Transform) Invert() Transform {
	if t.rotates() && (t&TransformFlipped == 0) {
		return t ^ Transform180
	}
	return t
}

// Rect maps r, which lies in an untransformed container of the given
// size, into the transformed container.
func (t Transform) Rect(r image.Rectangle, container image.Point) image.Rectangle {
	x, y := r.Min.X, r.Min.Y
	w, h := r.Dx(), r.Dy()
	cw, ch := container.X, container.Y

	var dx, dy int
	switch t {
	case TransformNormal:
		dx, dy = x, y
	case Transform90:
		dx, dy = ch-y-h, x
	case Transform180:
		dx, dy = cw-x-w, ch-y-h
	case Transform270:
		dx, dy = y, cw-x-w
	case TransformFlipped:
		dx, dy = cw-x-w, y
	case TransformFlipped90:
		dx, dy = ch-y-h, cw-x-w
	case TransformFlipped180:
		dx, dy = x, ch-y-h
	case TransformFlipped270:
		dx, dy = y, x
	}

	if t.rotates() {
		w, h = h, w
	}
	return image.Rect(dx, dy, dx+w, dy+h)
}

// Point maps the pixel at p in an untransformed container of the
// given size into the transformed container.
func (t Transform) Point(p image.Point, container image.Point) image.Point {
	return t.Rect(image.Rectangle{Min: p, Max: p.Add(image.Pt(1, 1))}, container).Min
}

func (t Transform) String() string {
	switch t {
	case TransformNormal:
		return "normal"
	case Transform90:
		return "90"
	case Transform180:
		return "180"
	case Transform270:
		return "270"
	case TransformFlipped:
		return "flipped"
	case TransformFlipped90:
		return "flipped-90"
	case TransformFlipped180:
		return "flipped-180"
	case TransformFlipped270:
		return "flipped-270"
	}
	return fmt.Sprintf("Transform(%d)", uint32(t))
}
