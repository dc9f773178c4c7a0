// Package cursor provides the images drawn for the pointer when no
// client has set its own cursor surface.
package cursor

import (
	"errors"
	"fmt"
	"image"
	"time"

	"deedles.dev/wlcomp/shm/shmimage"
	"deedles.dev/ximage/xcursor"
)

// DefaultName is the cursor shown over the desktop and over surfaces
// that have not set a cursor.
const DefaultName = "left_ptr"

// DefaultSize is the nominal cursor size used when none is
// configured.
const DefaultSize = 24

var fallbackNames = []string{DefaultName, "default", "arrow"}

// Image is a single cursor frame.
type Image struct {
	Image image.Image

	// Hot is the position within Image that tracks the pointer.
	Hot image.Point

	// Delay is how long the frame is shown in an animated cursor.
	Delay time.Duration
}

// Bounds returns the rectangle covered by the cursor when the pointer
// is at p.
func (img Image) Bounds(p image.Point) image.Rectangle {
	return img.Image.Bounds().Sub(img.Image.Bounds().Min).Add(p.Sub(img.Hot))
}

// Theme is a set of named cursors at a chosen size.
type Theme struct {
	theme *xcursor.Theme
	size  int
}

// Load loads the named Xcursor theme. If the theme cannot be found,
// the returned Theme still works but only provides the built-in
// arrow, and the error says why.
func Load(name string, size int) (*Theme, error) {
	if size <= 0 {
		size = DefaultSize
	}

	theme, err := xcursor.LoadTheme(name)
	if err != nil {
		return &Theme{size: size}, fmt.Errorf("load cursor theme %q: %w", name, err)
	}
	if len(theme.Cursors) == 0 {
		return &Theme{size: size}, fmt.Errorf("cursor theme %q: %w", name, ErrNoCursors)
	}
	return &Theme{theme: theme, size: size}, nil
}

// LoadDir loads a theme from a single directory of cursor files.
func LoadDir(path string, size int) (*Theme, error) {
	if size <= 0 {
		size = DefaultSize
	}

	theme, err := xcursor.LoadThemeFromDir(path)
	if err != nil {
		return &Theme{size: size}, fmt.Errorf("load cursor directory %q: %w", path, err)
	}
	return &Theme{theme: theme, size: size}, nil
}

// ErrNoCursors is returned when a theme contains no usable cursors.
var ErrNoCursors = errors.New("no cursors")

// Name returns the name of the loaded theme, or "" if only the
// built-in cursor is available.
func (t *Theme) Name() string {
	if t.theme == nil {
		return ""
	}
	return t.theme.Name
}

// Size returns the nominal size that frames are picked for.
func (t *Theme) Size() int {
	return t.size
}

// Frames returns the frames of the named cursor closest to the
// theme's size. Unknown names fall back to the default cursor and
// finally to the built-in arrow.
func (t *Theme) Frames(name string) []Image {
	if t.theme != nil {
		for _, n := range append([]string{name}, fallbackNames...) {
			c, ok := t.theme.Cursors[n]
			if !ok || (len(c.Images) == 0) {
				continue
			}

			images := c.Images[c.BestSize(t.size)]
			frames := make([]Image, 0, len(images))
			for _, img := range images {
				frames = append(frames, Image{Image: img.Image, Hot: img.Hot, Delay: img.Delay})
			}
			return frames
		}
	}

	return []Image{Fallback()}
}

// Get returns the frame of the named cursor to show at time since
// the animation began.
func (t *Theme) Get(name string, since time.Duration) Image {
	frames := t.Frames(name)
	if len(frames) == 1 {
		return frames[0]
	}

	var total time.Duration
	for _, f := range frames {
		total += f.Delay
	}
	if total <= 0 {
		return frames[0]
	}

	since %= total
	for _, f := range frames {
		if since < f.Delay {
			return f
		}
		since -= f.Delay
	}
	return frames[len(frames)-1]
}

var arrow = []string{
	"X...........",
	"XX..........",
	"XWX.........",
	"XWWX........",
	"XWWWX.......",
	"XWWWWX......",
	"XWWWWWX.....",
	"XWWWWWWX....",
	"XWWWWWWWX...",
	"XWWWWWWWWX..",
	"XWWWWWWWWWX.",
	"XWWWWWWXXXXX",
	"XWWWXWWX....",
	"XWWXXWWX....",
	"XWX..XWWX...",
	"XX...XWWX...",
	"X.....XWWX..",
	".......XX...",
}

// Fallback returns a built-in arrow used when no theme is available.
func Fallback() Image {
	black := shmimage.NewARGB8888Color(0, 0, 0, 0xFF)
	white := shmimage.NewARGB8888Color(0xFF, 0xFF, 0xFF, 0xFF)

	img := shmimage.NewARGB8888(image.Rect(0, 0, len(arrow[0]), len(arrow)))
	for y, row := range arrow {
		for x, c := range row {
			switch c {
			case 'X':
				img.SetARGB8888(x, y, black)
			case 'W':
				img.SetARGB8888(x, y, white)
			}
		}
	}
	return Image{Image: img}
}
