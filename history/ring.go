// Package history provides the bounded, most-recent-kept buffer shared by
// the kernel timeline, per-component render histories, and plugins that need
// the same eviction policy.
package history

// Ring is a bounded append-only sequence. When an append exceeds the
// capacity the oldest entry is dropped. A capacity of zero keeps nothing.
//
// Ring is not safe for concurrent use; owners guard it with their own lock.
type Ring[T any] struct {
	buf   []T
	start int
	size  int
}

// New creates a ring with the given capacity. Negative capacities are
// treated as zero.
func New[T any](capacity int) *Ring[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// Append adds v as the newest entry, evicting the oldest if full.
func (r *Ring[T]) Append(v T) {
	if len(r.buf) == 0 {
		return
	}
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = v
		r.size++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// Len returns the number of entries currently held.
func (r *Ring[T]) Len() int {
	return r.size
}

// Cap returns the current capacity.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

// Items returns a copy of all entries, oldest first, or nil when empty.
func (r *Ring[T]) Items() []T {
	if r.size == 0 {
		return nil
	}
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Last returns a copy of the most recent n entries, oldest first within the
// window. If n exceeds the current length the whole buffer is returned.
func (r *Ring[T]) Last(n int) []T {
	if n < 0 {
		n = 0
	}
	if n > r.size {
		n = r.size
	}
	if n == 0 {
		return nil
	}
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = r.buf[(r.start+r.size-n+i)%len(r.buf)]
	}
	return out
}

// SetCap resizes the ring to the new capacity, keeping the most recent
// entries when shrinking.
func (r *Ring[T]) SetCap(capacity int) {
	if capacity < 0 {
		capacity = 0
	}
	if capacity == len(r.buf) {
		return
	}
	kept := r.Last(capacity)
	r.buf = make([]T, capacity)
	copy(r.buf, kept)
	r.start = 0
	r.size = len(kept)
}

// Clear removes all entries without changing the capacity.
func (r *Ring[T]) Clear() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.start = 0
	r.size = 0
}
