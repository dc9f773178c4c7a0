// Package backend presents rendered frames and produces input
// events. A backend owns the outputs it creates and reports them to a
// Host, which is normally the compositor.
package backend

import (
	"fmt"
	"image"
	"image/draw"
	"os"

	"deedles.dev/wlcomp/output"
	"deedles.dev/wlcomp/seat"
	"deedles.dev/wlcomp/shm/shmimage"
	"github.com/sirupsen/logrus"
)

// Host receives outputs and input from a backend. Except for Post,
// its methods must only be called on the host's event loop.
type Host interface {
	// Post queues ev to run on the event loop.
	Post(ev func() error) bool

	AddOutput(o *output.Output)
	Output(name string) (*output.Output, bool)
	UpdateOutput(name string, f func(*output.Output))
	RemoveOutput(name string)

	// Damage requests a redraw of a region in global logical
	// coordinates.
	Damage(r image.Rectangle)

	Input(ev seat.Event)

	// Stop asks the host to shut down, such as when the last nested
	// window is closed.
	Stop()
}

// Backend presents frames on a set of outputs.
type Backend interface {
	Name() string

	// Start creates the backend's outputs and begins delivering
	// input. It is called on the host's event loop.
	Start(host Host) error

	// Present displays frame, which is in out's buffer orientation.
	Present(out *output.Output, frame image.Image) error

	Close() error
}

// Options configure the outputs that a backend creates.
type Options struct {
	Outputs int
	Size    image.Point

	// Refresh is in mHz.
	Refresh int32
}

func (opts Options) withDefaults() Options {
	if opts.Outputs <= 0 {
		opts.Outputs = 1
	}
	if opts.Size.X <= 0 || opts.Size.Y <= 0 {
		opts.Size = image.Pt(1280, 720)
	}
	if opts.Refresh <= 0 {
		opts.Refresh = output.DefaultRefresh
	}
	return opts
}

// Open returns the named backend. "auto" uses X11 if a display is
// available and falls back to headless otherwise.
func Open(name string, opts Options) (Backend, error) {
	opts = opts.withDefaults()

	switch name {
	case "headless":
		return NewHeadless(opts), nil

	case "x11":
		return NewX11(opts)

	case "auto", "":
		if os.Getenv("DISPLAY") == "" {
			return NewHeadless(opts), nil
		}
		x, err := NewX11(opts)
		if err != nil {
			logrus.WithError(err).Warnln("X11 unavailable, running headless")
			return NewHeadless(opts), nil
		}
		return x, nil
	}

	return nil, fmt.Errorf("unknown backend %q", name)
}

// argb8888 returns img as an ARGB8888 image whose origin is (0, 0),
// converting it if necessary.
func argb8888(img image.Image) *shmimage.ARGB8888 {
	if img, ok := img.(*shmimage.ARGB8888); ok && (img.Rect.Min == image.Point{}) {
		return img
	}

	b := img.Bounds()
	dst := shmimage.NewARGB8888(image.Rectangle{Max: b.Size()})
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	return dst
}

func cloneARGB8888(src *shmimage.ARGB8888) *shmimage.ARGB8888 {
	dst := shmimage.NewARGB8888(src.Rect)
	w := 4 * src.Rect.Dx()
	for y := src.Rect.Min.Y; y < src.Rect.Max.Y; y++ {
		copy(dst.Pix[dst.PixOffset(src.Rect.Min.X, y):][:w], src.Pix[src.PixOffset(src.Rect.Min.X, y):][:w])
	}
	return dst
}
