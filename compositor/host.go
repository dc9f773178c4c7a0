package compositor

import (
	"image"

	"deedles.dev/wlcomp/output"
	"deedles.dev/wlcomp/seat"
	"github.com/sirupsen/logrus"
)

// host is the view of the compositor given to its backend.
type host Compositor

func (h *host) Post(ev func() error) bool {
	return h.queue.Post(ev)
}

func (h *host) AddOutput(o *output.Output) {
	c := (*Compositor)(h)

	if !c.config.Apply(o) {
		logrus.WithField("output", o.Name).Infoln("output disabled by configuration")
		return
	}

	add := c.outputs.AddAuto
	if c.config.Positioned(o.Name) {
		add = c.outputs.Add
	}
	err := add(o)
	if err != nil {
		logrus.WithError(err).WithField("output", o.Name).Errorln("add output")
	}
}

func (h *host) Output(name string) (*output.Output, bool) {
	return h.outputs.Get(name)
}

func (h *host) UpdateOutput(name string, f func(*output.Output)) {
	h.outputs.Update(name, f)
}

func (h *host) RemoveOutput(name string) {
	h.outputs.Remove(name)
}

func (h *host) Damage(r image.Rectangle) {
	h.space.AddDamage(r)
}

func (h *host) Input(ev seat.Event) {
	(*Compositor)(h).input(ev)
}

func (h *host) Stop() {
	(*Compositor)(h).Stop()
}
