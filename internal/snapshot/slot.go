// Package snapshot holds the latest result of a reconciliation loop so that
// HTTP handlers can read it without coordinating with the loop.
package snapshot

import (
	"sync/atomic"
	"time"
)

// Slot is a single-writer, many-reader holder of an immutable value.
//
// Writers must not modify a value after storing it, and readers must not
// modify what Load returns. Replacement is atomic: a reader sees either the
// previous value or the new one, never a partial update.
type Slot[T any] struct {
	ptr     atomic.Pointer[T]
	updated atomic.Int64 // unix nanos of the last Store
	stores  atomic.Uint64
}

// New returns an empty slot.
func New[T any]() *Slot[T] {
	return &Slot[T]{}
}

// Store publishes v as the current value.
func (s *Slot[T]) Store(v *T) {
	s.ptr.Store(v)
	s.updated.Store(time.Now().UnixNano())
	s.stores.Add(1)
}

// Load returns the current value, or nil before the first Store.
func (s *Slot[T]) Load() *T {
	return s.ptr.Load()
}

// Ready reports whether a value has been stored at least once.
func (s *Slot[T]) Ready() bool {
	return s.ptr.Load() != nil
}

// UpdatedAt returns when the current value was stored (zero if never).
func (s *Slot[T]) UpdatedAt() time.Time {
	ns := s.updated.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// Generation counts how many values have been stored.
func (s *Slot[T]) Generation() uint64 {
	return s.stores.Load()
}
