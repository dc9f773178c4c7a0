package seat

import (
	"fmt"
	"strings"
)

// Action is a compositor command triggered by a key binding.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionReload
	ActionClose
	ActionFullscreen
	ActionTerminal
	ActionLauncher
	ActionScreenshot
)

var actionNames = map[Action]string{
	ActionQuit:       "quit",
	ActionReload:     "reload",
	ActionClose:      "close",
	ActionFullscreen: "fullscreen",
	ActionTerminal:   "terminal",
	ActionLauncher:   "launcher",
	ActionScreenshot: "screenshot",
}

func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return "none"
}

// ParseAction returns the action with the given name.
func ParseAction(str string) (Action, error) {
	for a, n := range actionNames {
		if strings.EqualFold(n, str) {
			return a, nil
		}
	}
	return ActionNone, fmt.Errorf("unknown action %q", str)
}

// Binding maps a key with an exact set of modifiers to an action.
// Lock state is ignored when matching.
type Binding struct {
	Mods   Modifiers
	Key    uint32
	Action Action
}

func (b Binding) String() string {
	if b.Mods == 0 {
		return fmt.Sprintf("%v -> %v", b.Key, b.Action)
	}
	return fmt.Sprintf("%v+%v -> %v", b.Mods, b.Key, b.Action)
}

// DefaultBindings returns the built-in key bindings.
func DefaultBindings() []Binding {
	return []Binding{
		{Mods: ModLogo | ModShift, Key: KeyQ, Action: ActionQuit},
		{Mods: ModLogo | ModShift, Key: KeyR, Action: ActionReload},
		{Mods: ModLogo, Key: KeyQ, Action: ActionClose},
		{Mods: ModLogo, Key: KeyF, Action: ActionFullscreen},
		{Mods: ModLogo, Key: KeyEnter, Action: ActionTerminal},
		{Mods: ModLogo, Key: KeyD, Action: ActionLauncher},
		{Key: KeySysRq, Action: ActionScreenshot},
	}
}

// SetBindings replaces the key bindings.
func (s *Seat) SetBindings(b []Binding) {
	s.bindings = b
}

// Bindings returns the current key bindings.
func (s *Seat) Bindings() []Binding {
	return s.bindings
}

// Intercept records a key event and decides whether it is consumed
// by the compositor. A press matching a binding returns its action
// and the key's release is swallowed as well. deliver is false for
// every consumed event.
func (s *Seat) Intercept(code uint32, pressed bool) (action Action, deliver bool) {
	changed, _ := s.Key(code, pressed)
	if !changed {
		return ActionNone, false
	}

	if !pressed {
		if s.swallowed.Has(code) {
			s.swallowed.Delete(code)
			return ActionNone, false
		}
		return ActionNone, true
	}

	mods := s.Depressed()
	for _, b := range s.bindings {
		if (b.Key == code) && (b.Mods == mods) {
			s.swallowed.Add(code)
			return b.Action, false
		}
	}
	return ActionNone, true
}
