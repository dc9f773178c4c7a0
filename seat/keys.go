package seat

import (
	"fmt"
	"strings"
)

// Key codes from linux/input-event-codes.h that the compositor
// interprets itself.
const (
	KeyEsc        uint32 = 1
	KeyQ          uint32 = 16
	KeyR          uint32 = 19
	KeyEnter      uint32 = 28
	KeyLeftCtrl   uint32 = 29
	KeyD          uint32 = 32
	KeyF          uint32 = 33
	KeyLeftShift  uint32 = 42
	KeyRightShift uint32 = 54
	KeyLeftAlt    uint32 = 56
	KeyCapsLock   uint32 = 58
	KeyRightCtrl  uint32 = 97
	KeySysRq      uint32 = 99
	KeyRightAlt   uint32 = 100
	KeyLeftMeta   uint32 = 125
	KeyRightMeta  uint32 = 126
)

// Modifiers is a bitmask of modifier state using the masks of the
// default xkb keymap.
type Modifiers uint32

const (
	ModShift Modifiers = 1 << 0
	ModLock  Modifiers = 1 << 1
	ModCtrl  Modifiers = 1 << 2
	ModAlt   Modifiers = 1 << 3
	ModLogo  Modifiers = 1 << 6
)

var modNames = []struct {
	mod  Modifiers
	name string
}{
	{ModLogo, "Logo"},
	{ModCtrl, "Ctrl"},
	{ModAlt, "Alt"},
	{ModShift, "Shift"},
	{ModLock, "Lock"},
}

func (m Modifiers) String() string {
	var parts []string
	for _, n := range modNames {
		if m&n.mod != 0 {
			parts = append(parts, n.name)
		}
	}
	return strings.Join(parts, "+")
}

// ParseModifiers parses a list of modifier names separated by '+'.
func ParseModifiers(str string) (m Modifiers, err error) {
	if str == "" {
		return 0, nil
	}
outer:
	for _, part := range strings.Split(str, "+") {
		part = strings.TrimSpace(part)
		for _, n := range modNames {
			if strings.EqualFold(part, n.name) {
				m |= n.mod
				continue outer
			}
		}
		switch strings.ToLower(part) {
		case "super", "mod4", "win":
			m |= ModLogo
		case "control":
			m |= ModCtrl
		case "mod1":
			m |= ModAlt
		default:
			return 0, fmt.Errorf("unknown modifier %q", part)
		}
	}
	return m, nil
}

func modifierFor(code uint32) Modifiers {
	switch code {
	case KeyLeftShift, KeyRightShift:
		return ModShift
	case KeyLeftCtrl, KeyRightCtrl:
		return ModCtrl
	case KeyLeftAlt, KeyRightAlt:
		return ModAlt
	case KeyLeftMeta, KeyRightMeta:
		return ModLogo
	}
	return 0
}

// Modifiers returns the current modifier state.
func (s *Seat) Modifiers() Modifiers {
	return s.mods
}

// Depressed returns the held modifiers, excluding locks.
func (s *Seat) Depressed() Modifiers {
	return s.mods &^ ModLock
}

// Locked returns the locked modifiers.
func (s *Seat) Locked() Modifiers {
	return s.mods & ModLock
}

// Keys returns the keys currently held.
func (s *Seat) Keys() []uint32 {
	return s.keys.Slice()
}

// Key records a key event. changed reports whether the key state
// changed, and modsChanged whether the modifier state changed as a
// result.
func (s *Seat) Key(code uint32, pressed bool) (changed, modsChanged bool) {
	if pressed == s.keys.Has(code) {
		return false, false
	}

	old := s.mods
	if pressed {
		s.keys.Add(code)
		if code == KeyCapsLock {
			s.mods ^= ModLock
		}
	} else {
		s.keys.Delete(code)
	}

	if m := modifierFor(code); m != 0 {
		s.mods &^= m
		for k := range s.keys {
			if modifierFor(k) == m {
				s.mods |= m
				break
			}
		}
	}

	return true, s.mods != old
}

// ClearKeys releases every held key, such as when the backend loses
// keyboard focus.
func (s *Seat) ClearKeys() {
	for k := range s.keys {
		s.keys.Delete(k)
	}
	s.mods &= ModLock
	for k := range s.swallowed {
		s.swallowed.Delete(k)
	}
}

var keyNames = map[string]uint32{
	"esc": KeyEsc, "escape": KeyEsc,
	"backspace": 14, "tab": 15,
	"enter": KeyEnter, "return": KeyEnter,
	"space": 57,
	"print": KeySysRq, "sysrq": KeySysRq,
	"up": 103, "left": 105, "right": 106, "down": 108,
	"f11": 87, "f12": 88,
}

func init() {
	rows := []struct {
		start uint32
		keys  string
	}{
		{2, "1234567890"},
		{16, "qwertyuiop"},
		{30, "asdfghjkl"},
		{44, "zxcvbnm"},
	}
	for _, row := range rows {
		for i, c := range row.keys {
			keyNames[string(c)] = row.start + uint32(i)
		}
	}
	for i := uint32(0); i < 10; i++ {
		keyNames[fmt.Sprintf("f%v", i+1)] = 59 + i
	}
}

// ParseKey returns the key code for a key name such as "q", "enter"
// or "f5".
func ParseKey(str string) (uint32, error) {
	code, ok := keyNames[strings.ToLower(strings.TrimSpace(str))]
	if !ok {
		return 0, fmt.Errorf("unknown key %q", str)
	}
	return code, nil
}

// ParseBinding parses a binding written as modifiers followed by a
// key, all separated by '+', such as "logo+shift+q".
func ParseBinding(keys string, action string) (Binding, error) {
	a, err := ParseAction(action)
	if err != nil {
		return Binding{}, err
	}

	mods, key := "", keys
	if i := strings.LastIndexByte(keys, '+'); i >= 0 {
		mods, key = keys[:i], keys[i+1:]
	}

	m, err := ParseModifiers(mods)
	if err != nil {
		return Binding{}, fmt.Errorf("binding %q: %w", keys, err)
	}
	code, err := ParseKey(key)
	if err != nil {
		return Binding{}, fmt.Errorf("binding %q: %w", keys, err)
	}
	return Binding{Mods: m, Key: code, Action: a}, nil
}
