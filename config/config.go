// Package config loads the compositor's configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

// RelPath is the location of the configuration file relative to the
// XDG configuration directories.
const RelPath = "wlcomp/compositor.toml"

// Config is the complete compositor configuration.
type Config struct {
	General     General      `toml:"general" yaml:"general"`
	Outputs     Outputs      `toml:"outputs" yaml:"outputs"`
	Input       Input        `toml:"input" yaml:"input"`
	Appearance  Appearance   `toml:"appearance" yaml:"appearance"`
	Performance Performance  `toml:"performance" yaml:"performance"`
	Keybindings []Keybinding `toml:"keybindings,omitempty" yaml:"keybindings,omitempty"`
}

type General struct {
	Vsync bool `toml:"vsync" yaml:"vsync"`

	// Backend selects how outputs are presented: "auto", "x11" or
	// "headless".
	Backend string `toml:"backend" yaml:"backend"`

	// Renderer is "auto", "hardware" or "software".
	Renderer string `toml:"renderer" yaml:"renderer"`

	LogLevel string `toml:"log_level" yaml:"log_level"`

	// Terminal and Launcher are the commands run by the terminal and
	// launcher key bindings.
	Terminal string `toml:"terminal" yaml:"terminal"`
	Launcher string `toml:"launcher" yaml:"launcher"`
}

type Outputs struct {
	// Scale and RefreshRate apply to outputs without their own
	// settings. A RefreshRate of 0 uses the output's native rate.
	Scale       float64  `toml:"scale" yaml:"scale"`
	RefreshRate int      `toml:"refresh_rate" yaml:"refresh_rate"`
	Outputs     []Output `toml:"outputs,omitempty" yaml:"outputs,omitempty"`
}

// Output overrides the settings of the output with the given name.
// Zero values leave the corresponding setting alone.
type Output struct {
	Name        string  `toml:"name" yaml:"name"`
	Disabled    bool    `toml:"disabled" yaml:"disabled"`
	Resolution  []int   `toml:"resolution,omitempty" yaml:"resolution,omitempty"`
	Position    []int   `toml:"position,omitempty" yaml:"position,omitempty"`
	Scale       float64 `toml:"scale" yaml:"scale"`
	RefreshRate int     `toml:"refresh_rate" yaml:"refresh_rate"`
	Rotation    int     `toml:"rotation" yaml:"rotation"`
	Flipped     bool    `toml:"flipped" yaml:"flipped"`
}

type Input struct {
	Keyboard Keyboard `toml:"keyboard" yaml:"keyboard"`
	Pointer  Pointer  `toml:"pointer" yaml:"pointer"`
	Touchpad Touchpad `toml:"touchpad" yaml:"touchpad"`
	Touch    Touch    `toml:"touch" yaml:"touch"`
}

type Keyboard struct {
	Layout  string `toml:"layout" yaml:"layout"`
	Variant string `toml:"variant" yaml:"variant"`
	Options string `toml:"options" yaml:"options"`

	// Keymap is the path of an xkb keymap to send to clients. If it
	// is empty, one is built from Layout and Variant. If those are
	// empty as well, clients are told that there is no keymap and
	// interpret raw key codes themselves.
	Keymap string `toml:"keymap" yaml:"keymap"`

	// RepeatDelay is in milliseconds and RepeatRate in keys per
	// second.
	RepeatDelay int `toml:"repeat_delay" yaml:"repeat_delay"`
	RepeatRate  int `toml:"repeat_rate" yaml:"repeat_rate"`
}

type Pointer struct {
	AccelProfile  string  `toml:"accel_profile" yaml:"accel_profile"`
	AccelSpeed    float64 `toml:"accel_speed" yaml:"accel_speed"`
	NaturalScroll bool    `toml:"natural_scroll" yaml:"natural_scroll"`
	LeftHanded    bool    `toml:"left_handed" yaml:"left_handed"`
}

type Touchpad struct {
	TapToClick          bool    `toml:"tap_to_click" yaml:"tap_to_click"`
	TwoFingerRightClick bool    `toml:"two_finger_right_click" yaml:"two_finger_right_click"`
	NaturalScroll       bool    `toml:"natural_scroll" yaml:"natural_scroll"`
	DisableWhileTyping  bool    `toml:"disable_while_typing" yaml:"disable_while_typing"`
	ScrollMethod        string  `toml:"scroll_method" yaml:"scroll_method"`
	AccelSpeed          float64 `toml:"accel_speed" yaml:"accel_speed"`
}

type Touch struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Output  string `toml:"output" yaml:"output"`
}

type Appearance struct {
	WindowGap   int `toml:"window_gap" yaml:"window_gap"`
	BorderWidth int `toml:"border_width" yaml:"border_width"`

	// Colors are written as RRGGBBAA with an optional leading '#'.
	BorderColorActive   string `toml:"border_color_active" yaml:"border_color_active"`
	BorderColorInactive string `toml:"border_color_inactive" yaml:"border_color_inactive"`
	BackgroundColor     string `toml:"background_color" yaml:"background_color"`

	CursorTheme string `toml:"cursor_theme" yaml:"cursor_theme"`
	CursorSize  int    `toml:"cursor_size" yaml:"cursor_size"`
}

type Performance struct {
	// MaxRenderRate caps frames per second per output. 0 means no
	// cap beyond the output's refresh rate.
	MaxRenderRate int `toml:"max_render_rate" yaml:"max_render_rate"`

	// DamageTracking disabled redraws every output completely on
	// every frame.
	DamageTracking bool `toml:"damage_tracking" yaml:"damage_tracking"`
}

// Keybinding binds a key combination, such as "logo+shift+q", to an
// action. Configured bindings take precedence over the built-in ones.
type Keybinding struct {
	Keys   string `toml:"keys" yaml:"keys"`
	Action string `toml:"action" yaml:"action"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		General: General{
			Vsync:    true,
			Backend:  "auto",
			Renderer: "auto",
			LogLevel: "info",
			Terminal: "foot",
			Launcher: "fuzzel",
		},
		Outputs: Outputs{
			Scale: 1,
		},
		Input: Input{
			Keyboard: Keyboard{
				Layout:      "us",
				RepeatDelay: 400,
				RepeatRate:  25,
			},
			Pointer: Pointer{
				AccelProfile: "adaptive",
			},
			Touchpad: Touchpad{
				TapToClick:          true,
				TwoFingerRightClick: true,
				NaturalScroll:       true,
				DisableWhileTyping:  true,
				ScrollMethod:        "two_finger",
			},
			Touch: Touch{
				Enabled: true,
			},
		},
		Appearance: Appearance{
			WindowGap:           8,
			BorderWidth:         2,
			BorderColorActive:   "#0078D4FF",
			BorderColorInactive: "#808080FF",
			BackgroundColor:     "#1E1E1EFF",
			CursorTheme:         "default",
			CursorSize:          24,
		},
		Performance: Performance{
			DamageTracking: true,
		},
	}
}

// DefaultPath returns the path that Save writes to when not given
// one.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, RelPath)
}

// Load finds the configuration file in the XDG configuration
// directories and loads it. If there is none, the defaults are
// returned along with an empty path.
func Load() (cfg *Config, path string, err error) {
	path, err = xdg.SearchConfigFile(RelPath)
	if err != nil {
		return Default(), "", nil
	}

	cfg, err = LoadFile(path)
	return cfg, path, err
}

// LoadFile loads the configuration from path. Settings missing from
// the file keep their default values. The format is chosen by the
// file's extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml", "":
		err = toml.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %v: %w", path, err)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config %v: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration as TOML. If path is empty, it writes
// to the user's XDG configuration directory.
func (cfg *Config) Save(path string) error {
	if path == "" {
		p, err := xdg.ConfigFile(RelPath)
		if err != nil {
			return fmt.Errorf("config path: %w", err)
		}
		path = p
	}

	data, err := toml.Marshal(*cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	err = os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	err = os.WriteFile(path, data, 0644)
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Output returns the settings for the named output.
func (cfg *Config) Output(name string) (Output, bool) {
	for _, o := range cfg.Outputs.Outputs {
		if o.Name == name {
			return o, true
		}
	}
	return Output{}, false
}
