package xslices

func Filter[T any, S ~[]T](s S, f func(T) bool) (r S) {
	r = make(S, 0, len(s))
	for _, v := range s {
		if f(v) {
			r = append(r, v)
		}
	}
	return r
}

// Remove returns s with the first element equal to v removed. It
// modifies s in place.
func Remove[T comparable, S ~[]T](s S, v T) S {
	for i, e := range s {
		if e == v {
			copy(s[i:], s[i+1:])
			var zero T
			s[len(s)-1] = zero
			return s[:len(s)-1]
		}
	}
	return s
}

// MoveToEnd moves the first element equal to v to the end of s,
// preserving the relative order of the rest. It reports whether v
// was found.
func MoveToEnd[T comparable, S ~[]T](s S, v T) bool {
	for i, e := range s {
		if e == v {
			copy(s[i:], s[i+1:])
			s[len(s)-1] = v
			return true
		}
	}
	return false
}
