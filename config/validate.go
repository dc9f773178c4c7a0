package config

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"deedles.dev/wlcomp/output"
	"deedles.dev/wlcomp/render"
	"deedles.dev/wlcomp/seat"
	"github.com/sirupsen/logrus"
)

// FieldError is a problem with a single setting.
type FieldError struct {
	Field string
	Err   error
}

func (err *FieldError) Error() string {
	return fmt.Sprintf("%v: %v", err.Field, err.Err)
}

func (err *FieldError) Unwrap() error {
	return err.Err
}

// Backends lists the values allowed for General.Backend.
var Backends = []string{"auto", "x11", "headless"}

// Validate checks every setting and returns all of the problems
// found, joined.
func (cfg *Config) Validate() error {
	var errs []error
	check := func(field string, err error) {
		if err != nil {
			errs = append(errs, &FieldError{Field: field, Err: err})
		}
	}
	checkf := func(field string, ok bool, format string, args ...any) {
		if !ok {
			check(field, fmt.Errorf(format, args...))
		}
	}

	g := cfg.General
	checkf("general.backend", oneOf(g.Backend, Backends), "unknown backend %q", g.Backend)
	_, err := render.ParseBackend(g.Renderer)
	check("general.renderer", err)
	_, err = logrus.ParseLevel(g.LogLevel)
	check("general.log_level", err)

	checkf("outputs.scale", cfg.Outputs.Scale > 0, "scale must be positive")
	checkf("outputs.refresh_rate", cfg.Outputs.RefreshRate >= 0, "refresh rate must not be negative")
	for i, o := range cfg.Outputs.Outputs {
		field := fmt.Sprintf("outputs.outputs[%v]", i)
		checkf(field+".name", o.Name != "", "name is required")
		checkf(field+".resolution", validPair(o.Resolution, 1), "resolution must be two positive numbers")
		checkf(field+".position", validPair(o.Position, -1<<30), "position must be two numbers")
		checkf(field+".scale", o.Scale >= 0, "scale must not be negative")
		checkf(field+".refresh_rate", o.RefreshRate >= 0, "refresh rate must not be negative")
		_, err := output.TransformFromRotation(o.Rotation, o.Flipped)
		check(field+".rotation", err)
	}

	kb := cfg.Input.Keyboard
	checkf("input.keyboard.repeat_delay", kb.RepeatDelay >= 0, "repeat delay must not be negative")
	checkf("input.keyboard.repeat_rate", kb.RepeatRate >= 0, "repeat rate must not be negative")
	p := cfg.Input.Pointer
	checkf("input.pointer.accel_speed", (p.AccelSpeed >= -1) && (p.AccelSpeed <= 1), "acceleration speed must be between -1 and 1")
	checkf("input.pointer.accel_profile", oneOf(p.AccelProfile, []string{"flat", "adaptive"}), "unknown acceleration profile %q", p.AccelProfile)
	tp := cfg.Input.Touchpad
	checkf("input.touchpad.accel_speed", (tp.AccelSpeed >= -1) && (tp.AccelSpeed <= 1), "acceleration speed must be between -1 and 1")
	checkf("input.touchpad.scroll_method", oneOf(tp.ScrollMethod, []string{"two_finger", "edge", "none"}), "unknown scroll method %q", tp.ScrollMethod)

	a := cfg.Appearance
	checkf("appearance.window_gap", a.WindowGap >= 0, "window gap must not be negative")
	checkf("appearance.border_width", a.BorderWidth >= 0, "border width must not be negative")
	checkf("appearance.cursor_size", a.CursorSize > 0, "cursor size must be positive")
	_, err = render.ParseColor(a.BorderColorActive)
	check("appearance.border_color_active", err)
	_, err = render.ParseColor(a.BorderColorInactive)
	check("appearance.border_color_inactive", err)
	_, err = render.ParseColor(a.BackgroundColor)
	check("appearance.background_color", err)

	checkf("performance.max_render_rate", cfg.Performance.MaxRenderRate >= 0, "render rate must not be negative")

	for i, kb := range cfg.Keybindings {
		_, err := seat.ParseBinding(kb.Keys, kb.Action)
		check(fmt.Sprintf("keybindings[%v]", i), err)
	}

	return errors.Join(errs...)
}

func oneOf(v string, options []string) bool {
	for _, o := range options {
		if strings.EqualFold(v, o) {
			return true
		}
	}
	return false
}

func validPair(v []int, min int) bool {
	if len(v) == 0 {
		return true
	}
	return (len(v) == 2) && (v[0] >= min) && (v[1] >= min)
}

// Colors returns the parsed appearance colors. It assumes that the
// configuration has been validated.
func (a Appearance) Colors() (active, inactive, background render.Color) {
	parse := func(str string, def render.Color) render.Color {
		c, err := render.ParseColor(str)
		if err != nil {
			return def
		}
		return c
	}
	return parse(a.BorderColorActive, render.MustParseColor("0078D4FF")),
		parse(a.BorderColorInactive, render.MustParseColor("808080FF")),
		parse(a.BackgroundColor, render.DefaultBackground)
}

// RendererBackend returns the configured renderer preference.
func (g General) RendererBackend() render.Backend {
	b, err := render.ParseBackend(g.Renderer)
	if err != nil {
		return render.BackendAuto
	}
	return b
}

// Level returns the configured log level, defaulting to info.
func (g General) Level() logrus.Level {
	l, err := logrus.ParseLevel(g.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return l
}

// SeatConfig returns the input settings in the form used by the seat.
func (cfg *Config) SeatConfig() seat.Config {
	return seat.Config{
		LeftHanded:    cfg.Input.Pointer.LeftHanded,
		NaturalScroll: cfg.Input.Pointer.NaturalScroll,
		AccelSpeed:    cfg.Input.Pointer.AccelSpeed,
		RepeatRate:    int32(cfg.Input.Keyboard.RepeatRate),
		RepeatDelay:   int32(cfg.Input.Keyboard.RepeatDelay),
	}
}

// Bindings returns the configured key bindings followed by the
// built-in ones. Invalid bindings are skipped.
func (cfg *Config) Bindings() []seat.Binding {
	var bindings []seat.Binding
	for _, kb := range cfg.Keybindings {
		b, err := seat.ParseBinding(kb.Keys, kb.Action)
		if err != nil {
			continue
		}
		bindings = append(bindings, b)
	}
	return append(bindings, seat.DefaultBindings()...)
}

// Apply changes out according to the configuration for outputs in
// general and for out's name in particular. It reports false if the
// output is disabled.
func (cfg *Config) Apply(out *output.Output) bool {
	out.Scale = cfg.Outputs.Scale
	if cfg.Outputs.RefreshRate > 0 {
		out.Mode.Refresh = int32(cfg.Outputs.RefreshRate * 1000)
	}

	o, ok := cfg.Output(out.Name)
	if !ok {
		return true
	}
	if o.Disabled {
		return false
	}

	if len(o.Resolution) == 2 {
		out.Mode.Size = image.Pt(o.Resolution[0], o.Resolution[1])
	}
	if len(o.Position) == 2 {
		out.Position = image.Pt(o.Position[0], o.Position[1])
	}
	if o.Scale > 0 {
		out.Scale = o.Scale
	}
	if o.RefreshRate > 0 {
		out.Mode.Refresh = int32(o.RefreshRate * 1000)
	}
	if t, err := output.TransformFromRotation(o.Rotation, o.Flipped); err == nil {
		out.Transform = t
	}
	return true
}

// Positioned reports whether the configuration places the named
// output explicitly.
func (cfg *Config) Positioned(name string) bool {
	o, ok := cfg.Output(name)
	return ok && (len(o.Position) == 2)
}
