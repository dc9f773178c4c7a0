// Package handle implements generational handles into an arena. A
// Handle names a value without keeping it alive: once the value is
// removed, every Handle to it stops resolving, even if its slot is
// later reused.
package handle

import "fmt"

// Handle is a non-owning reference into an Arena. The zero Handle
// never resolves.
type Handle struct {
	index uint32
	gen   uint32
}

// IsZero reports whether h is the zero Handle.
func (h Handle) IsZero() bool {
	return h.gen == 0
}

func (h Handle) String() string {
	if h.IsZero() {
		return "handle(none)"
	}
	return fmt.Sprintf("handle(%v:%v)", h.index, h.gen)
}

type slot[T any] struct {
	v    T
	gen  uint32
	live bool
}

// Arena owns values addressed by Handles. The zero value is ready to
// use.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	n     int
}

// Insert stores v and returns a new Handle to it.
func (a *Arena[T]) Insert(v T) Handle {
	var i uint32
	if len(a.free) > 0 {
		i = a.free[len(a.free)-1]
		a.free = a.free[:len(a.free)-1]
	} else {
		a.slots = append(a.slots, slot[T]{})
		i = uint32(len(a.slots) - 1)
	}

	s := &a.slots[i]
	s.gen++
	s.v = v
	s.live = true
	a.n++

	return Handle{index: i, gen: s.gen}
}

func (a *Arena[T]) slot(h Handle) *slot[T] {
	if h.IsZero() || (int(h.index) >= len(a.slots)) {
		return nil
	}
	s := &a.slots[h.index]
	if !s.live || (s.gen != h.gen) {
		return nil
	}
	return s
}

// Get returns the value h refers to.
func (a *Arena[T]) Get(h Handle) (v T, ok bool) {
	s := a.slot(h)
	if s == nil {
		return v, false
	}
	return s.v, true
}

// Valid reports whether h still refers to a live value.
func (a *Arena[T]) Valid(h Handle) bool {
	return a.slot(h) != nil
}

// Remove deletes the value h refers to, invalidating every copy of
// h.
func (a *Arena[T]) Remove(h Handle) (v T, ok bool) {
	s := a.slot(h)
	if s == nil {
		return v, false
	}

	v = s.v
	var zero T
	s.v = zero
	s.live = false
	a.free = append(a.free, h.index)
	a.n--
	return v, true
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int {
	return a.n
}
