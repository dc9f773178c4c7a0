package backend

import (
	"fmt"
	"image"

	"deedles.dev/wlcomp/output"
	"deedles.dev/wlcomp/seat"
	"deedles.dev/wlcomp/shm/shmimage"
)

// Headless is a backend without a display. Presented frames are kept
// in memory, and input is injected by calling Inject.
type Headless struct {
	opts   Options
	host   Host
	frames map[string]*shmimage.ARGB8888
	counts map[string]int
}

func NewHeadless(opts Options) *Headless {
	return &Headless{
		opts:   opts.withDefaults(),
		frames: make(map[string]*shmimage.ARGB8888),
		counts: make(map[string]int),
	}
}

func (h *Headless) Name() string {
	return "headless"
}

func (h *Headless) Start(host Host) error {
	h.host = host
	for i := 1; i <= h.opts.Outputs; i++ {
		host.AddOutput(&output.Output{
			Name:        fmt.Sprintf("HEADLESS-%v", i),
			Description: "Headless output",
			Make:        "wlcomp",
			Model:       "headless",
			Mode:        output.Mode{Size: h.opts.Size, Refresh: h.opts.Refresh},
			Scale:       1,
		})
	}
	return nil
}

func (h *Headless) Present(out *output.Output, frame image.Image) error {
	h.frames[out.Name] = cloneARGB8888(argb8888(frame))
	h.counts[out.Name]++
	return nil
}

// Frame returns a copy of the last frame presented on the named
// output.
func (h *Headless) Frame(name string) (*shmimage.ARGB8888, bool) {
	f, ok := h.frames[name]
	return f, ok
}

// Presented returns the number of frames presented on the named
// output.
func (h *Headless) Presented(name string) int {
	return h.counts[name]
}

// Inject delivers ev to the host as if it came from a device. It may
// be called from any goroutine.
func (h *Headless) Inject(ev seat.Event) bool {
	return h.host.Post(func() error {
		h.host.Input(ev)
		return nil
	})
}

func (h *Headless) Close() error {
	clear(h.frames)
	return nil
}
