package utils

// Ring is a fixed-capacity FIFO used for the rolling conversation window.
// Pushing onto a full ring drops the oldest entry.
type Ring[T any] struct {
	items []T
	cap   int
}

func NewRing[T any](capacity int) *Ring[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring[T]{cap: capacity}
}

func (r *Ring[T]) Push(item T) {
	r.items = append(r.items, item)
	if len(r.items) > r.cap {
		r.items = r.items[len(r.items)-r.cap:]
	}
}

// Items returns the entries oldest-first. The slice is a copy.
func (r *Ring[T]) Items() []T {
	out := make([]T, len(r.items))
	copy(out, r.items)
	return out
}

func (r *Ring[T]) Len() int {
	return len(r.items)
}

func (r *Ring[T]) Cap() int {
	return r.cap
}
