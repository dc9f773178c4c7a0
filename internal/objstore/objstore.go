// Package objstore implements a per-client protocol object namespace.
package objstore

import "sort"

// ServerIDStart is the first ID in the range reserved for objects
// created by the server.
const ServerIDStart = 0xff000000

type entry[T any] struct {
	v   T
	seq uint64
}

type Store[T any] struct {
	objects map[uint32]entry[T]
	nextID  uint32
	seq     uint64
}

func New[T any]() *Store[T] {
	return &Store[T]{
		objects: make(map[uint32]entry[T]),
		nextID:  ServerIDStart,
	}
}

// Add stores v under id. If id is zero, a new server-side ID is
// allocated. It returns the ID that was used.
func (s *Store[T]) Add(id uint32, v T) uint32 {
	if id == 0 {
		for s.Has(s.nextID) {
			s.nextID++
		}
		id = s.nextID
		s.nextID++
	}

	s.seq++
	s.objects[id] = entry[T]{v: v, seq: s.seq}
	return id
}

func (s *Store[T]) Has(id uint32) bool {
	_, ok := s.objects[id]
	return ok
}

func (s *Store[T]) Get(id uint32) (v T, ok bool) {
	e, ok := s.objects[id]
	return e.v, ok
}

func (s *Store[T]) Delete(id uint32) {
	delete(s.objects, id)
}

func (s *Store[T]) Len() int {
	return len(s.objects)
}

// Reverse returns every stored object, most recently added first.
func (s *Store[T]) Reverse() []T {
	entries := make([]entry[T], 0, len(s.objects))
	for _, e := range s.objects {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq > entries[j].seq })

	r := make([]T, 0, len(entries))
	for _, e := range entries {
		r = append(r, e.v)
	}
	return r
}

// IsServerID reports whether id lies in the server's allocation range.
func IsServerID(id uint32) bool {
	return id >= ServerIDStart
}
