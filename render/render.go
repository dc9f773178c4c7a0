// Package render draws the compositor's scene into per-output frames.
// Two backends implement Renderer: a software rasterizer that is
// always available and a GPU-assisted one in the accel subpackage.
package render

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"deedles.dev/wlcomp/output"
	"github.com/sirupsen/logrus"
)

// ErrBackendUnavailable is returned by Init when a backend cannot run
// on the current system.
var ErrBackendUnavailable = errors.New("renderer backend unavailable")

// CursorID is the ID recorded in a draw order for the cursor.
const CursorID = ^uint64(0)

// Renderer draws scenes into frames for outputs.
type Renderer interface {
	// Name identifies the backend in logs.
	Name() string

	// Init prepares the backend. It returns an error wrapping
	// ErrBackendUnavailable if the backend cannot be used.
	Init() error

	// AddDamage records regions, in global logical coordinates, that
	// must be redrawn on every output they touch.
	AddDamage(rects ...image.Rectangle)

	// RenderFrame redraws the damaged parts of out's frame. It
	// reports whether anything was drawn.
	RenderFrame(scene *Scene, out *output.Output) (bool, error)

	// Frame returns the most recent frame drawn for the named output
	// in the output's buffer orientation.
	Frame(name string) image.Image

	// DrawOrder returns the IDs of the elements painted by the most
	// recent RenderFrame, bottom-most first.
	DrawOrder() []uint64

	SetClearColor(c Color)
	RemoveOutput(name string)
	Close() error
}

// Element is a single surface to draw.
type Element struct {
	ID uint64

	// Geometry is where the element is drawn, in global logical
	// coordinates. Buffer is scaled to fill it.
	Geometry image.Rectangle
	Buffer   image.Image

	// Border requests a window border, drawn outside of Geometry in
	// the active or inactive color.
	Border bool
	Active bool
}

// CursorElement is the pointer image.
type CursorElement struct {
	Image image.Image

	// Position is the global logical position of the image's top-left
	// corner.
	Position image.Point
}

// Scene is everything that should appear on screen, in paint order.
type Scene struct {
	Elements []Element
	Cursor   *CursorElement

	BorderWidth    int
	ActiveBorder   Color
	InactiveBorder Color
}

// Bounds returns the global area covered by e, including its border.
func (s *Scene) Bounds(e Element) image.Rectangle {
	if !e.Border || (s.BorderWidth <= 0) {
		return e.Geometry
	}
	return e.Geometry.Inset(-s.BorderWidth)
}

// Backend is a renderer preference.
type Backend string

const (
	BackendAuto     Backend = "auto"
	BackendHardware Backend = "hardware"
	BackendSoftware Backend = "software"
)

// ParseBackend validates a backend name from configuration.
func ParseBackend(str string) (Backend, error) {
	switch b := Backend(strings.ToLower(str)); b {
	case BackendAuto, BackendHardware, BackendSoftware:
		return b, nil
	case "":
		return BackendAuto, nil
	}
	return "", fmt.Errorf("unknown renderer backend %q", str)
}

// Select initializes a renderer according to pref. hardware may be
// nil if no hardware backend was built in. Any preference other than
// software falls back to the software renderer if the hardware one
// fails to initialize for any reason.
func Select(pref Backend, hardware Renderer) (Renderer, error) {
	if (pref != BackendSoftware) && (hardware != nil) {
		err := hardware.Init()
		if err == nil {
			return hardware, nil
		}
		hardware.Close()

		log := logrus.WithError(err).WithField("renderer", hardware.Name())
		if errors.Is(err, ErrBackendUnavailable) {
			log.Infoln("falling back to software rendering")
		} else {
			log.Warnln("hardware renderer failed, falling back to software rendering")
		}
	}

	sw := NewSoftware()
	err := sw.Init()
	if err != nil {
		return nil, fmt.Errorf("initialize software renderer: %w", err)
	}
	return sw, nil
}
