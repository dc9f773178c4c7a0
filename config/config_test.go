package config_test

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"deedles.dev/wlcomp/config"
	"deedles.dev/wlcomp/output"
	"deedles.dev/wlcomp/render"
	"deedles.dev/wlcomp/seat"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	err := os.WriteFile(path, []byte(data), 0644)
	if err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults are invalid: %v", err)
	}

	active, inactive, bg := cfg.Appearance.Colors()
	if active.String() != "0078D4FF" {
		t.Fatalf("active border: %v", active)
	}
	if inactive.String() != "808080FF" {
		t.Fatalf("inactive border: %v", inactive)
	}
	if bg.String() != "1E1E1EFF" {
		t.Fatalf("background: %v", bg)
	}
}

func TestLoadMissing(t *testing.T) {
	cfg, err := config.LoadFile(filepath.Join(t.TempDir(), "compositor.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Appearance.WindowGap != 8 {
		t.Fatalf("window gap: %v", cfg.Appearance.WindowGap)
	}
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "compositor.toml", `
[general]
renderer = "software"

[appearance]
window_gap = 16
background_color = "#102030FF"

[input.pointer]
left_handed = true
accel_speed = 0.5

[[outputs.outputs]]
name = "X11-1"
resolution = [800, 600]
rotation = 90

[[keybindings]]
keys = "logo+shift+e"
action = "quit"
`)

	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.General.RendererBackend() != render.BackendSoftware {
		t.Fatalf("renderer: %q", cfg.General.Renderer)
	}
	if cfg.General.Backend != "auto" {
		t.Fatalf("unset backend lost its default: %q", cfg.General.Backend)
	}
	if cfg.Appearance.WindowGap != 16 {
		t.Fatalf("window gap: %v", cfg.Appearance.WindowGap)
	}
	if cfg.Appearance.BorderWidth != 2 {
		t.Fatalf("unset border width lost its default: %v", cfg.Appearance.BorderWidth)
	}
	if _, _, bg := cfg.Appearance.Colors(); bg.String() != "102030FF" {
		t.Fatalf("background: %v", bg)
	}

	sc := cfg.SeatConfig()
	if !sc.LeftHanded || (sc.AccelSpeed != 0.5) || (sc.RepeatRate != 25) {
		t.Fatalf("seat config: %+v", sc)
	}

	b := cfg.Bindings()
	if (b[0].Action != seat.ActionQuit) || (b[0].Mods != seat.ModLogo|seat.ModShift) {
		t.Fatalf("configured binding: %v", b[0])
	}
	if len(b) != len(seat.DefaultBindings())+1 {
		t.Fatalf("%v bindings", len(b))
	}

	out := output.Output{Name: "X11-1", Mode: output.Mode{Size: image.Pt(1920, 1080)}}
	if !cfg.Apply(&out) {
		t.Fatal("output disabled")
	}
	if (out.Mode.Size != image.Pt(800, 600)) || (out.Transform != output.Transform90) || (out.Scale != 1) {
		t.Fatalf("applied output: %v", &out)
	}
	if cfg.Positioned("X11-1") {
		t.Fatal("output without position reported as positioned")
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "compositor.yaml", `
general:
  log_level: debug
outputs:
  scale: 2
  outputs:
    - name: HEADLESS-1
      position: [100, 0]
    - name: HEADLESS-2
      disabled: true
performance:
  damage_tracking: false
`)

	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.General.LogLevel != "debug" {
		t.Fatalf("log level: %q", cfg.General.LogLevel)
	}
	if cfg.Performance.DamageTracking {
		t.Fatal("damage tracking still enabled")
	}
	if !cfg.Input.Touch.Enabled {
		t.Fatal("unset touch setting lost its default")
	}

	out := output.Output{Name: "HEADLESS-1"}
	cfg.Apply(&out)
	if (out.Position != image.Pt(100, 0)) || (out.Scale != 2) {
		t.Fatalf("applied output: %v", &out)
	}
	if !cfg.Positioned("HEADLESS-1") {
		t.Fatal("positioned output not reported")
	}
	if cfg.Apply(&output.Output{Name: "HEADLESS-2"}) {
		t.Fatal("disabled output enabled")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
		field  string
	}{
		{"Backend", func(c *config.Config) { c.General.Backend = "drm" }, "general.backend"},
		{"Renderer", func(c *config.Config) { c.General.Renderer = "vulkan" }, "general.renderer"},
		{"LogLevel", func(c *config.Config) { c.General.LogLevel = "loud" }, "general.log_level"},
		{"Scale", func(c *config.Config) { c.Outputs.Scale = 0 }, "outputs.scale"},
		{"Color", func(c *config.Config) { c.Appearance.BackgroundColor = "blue" }, "appearance.background_color"},
		{"Accel", func(c *config.Config) { c.Input.Pointer.AccelSpeed = 2 }, "input.pointer.accel_speed"},
		{"Rotation", func(c *config.Config) {
			c.Outputs.Outputs = []config.Output{{Name: "a", Rotation: 45}}
		}, "outputs.outputs[0].rotation"},
		{"Resolution", func(c *config.Config) {
			c.Outputs.Outputs = []config.Output{{Name: "a", Resolution: []int{800}}}
		}, "outputs.outputs[0].resolution"},
		{"Binding", func(c *config.Config) {
			c.Keybindings = []config.Keybinding{{Keys: "logo+q", Action: "explode"}}
		}, "keybindings[0]"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cfg := config.Default()
			test.modify(cfg)

			err := cfg.Validate()
			var ferr *config.FieldError
			if !errors.As(err, &ferr) {
				t.Fatalf("expected a field error, got %v", err)
			}
			if ferr.Field != test.field {
				t.Fatalf("error for %q, expected %q", ferr.Field, test.field)
			}
		})
	}
}

func TestLoadInvalid(t *testing.T) {
	path := writeFile(t, "compositor.toml", "[appearance]\nborder_color_active = \"nope\"\n")
	_, err := config.LoadFile(path)
	if !errors.Is(err, render.ErrParse) {
		t.Fatalf("expected a color parse error, got %v", err)
	}

	path = writeFile(t, "compositor.ini", "")
	_, err = config.LoadFile(path)
	if err == nil {
		t.Fatal("unknown format accepted")
	}
}

func TestSave(t *testing.T) {
	cfg := config.Default()
	cfg.Appearance.WindowGap = 3
	cfg.Outputs.Outputs = []config.Output{{Name: "X11-1", Position: []int{0, 0}, Scale: 1.5}}
	cfg.Keybindings = []config.Keybinding{{Keys: "logo+t", Action: "terminal"}}

	path := filepath.Join(t.TempDir(), "nested", "compositor.toml")
	err := cfg.Save(path)
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := config.LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Appearance.WindowGap != 3 {
		t.Fatalf("window gap: %v", loaded.Appearance.WindowGap)
	}
	o, ok := loaded.Output("X11-1")
	if !ok || (o.Scale != 1.5) {
		t.Fatalf("output: %+v", o)
	}
	if (len(loaded.Keybindings) != 1) || (loaded.Keybindings[0].Action != "terminal") {
		t.Fatalf("keybindings: %+v", loaded.Keybindings)
	}
}
