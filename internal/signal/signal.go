// internal/signal/signal.go

// Package signal provides a single-slot, overwrite-latest handoff cell between
// one producing task and one consuming task.
package signal

import (
	"context"
	"sync"
)

// Signal holds at most one value. A new value replaces an unconsumed one;
// nothing is ever queued. The zero value is not usable, call New.
type Signal[T any] struct {
	mu  sync.Mutex
	val T
	set bool

	// wake carries at most one pending wakeup; allocated once in New.
	wake chan struct{}
}

// New creates an empty signal.
func New[T any]() *Signal[T] {
	return &Signal[T]{wake: make(chan struct{}, 1)}
}

// Signal stores v and wakes the parked waiter, if any.
func (s *Signal[T]) Signal(v T) {
	s.mu.Lock()
	s.val = v
	s.set = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
		// a wakeup is already pending
	}
}

// Wait parks until a value is present and returns it.
// The cell stays occupied until Reset.
func (s *Signal[T]) Wait(ctx context.Context) (T, error) {
	for {
		if v, ok := s.Peek(); ok {
			return v, nil
		}

		select {
		case <-s.wake:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Peek returns the current value without waiting.
func (s *Signal[T]) Peek() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.val, s.set
}

// Pending reports whether the cell is occupied.
func (s *Signal[T]) Pending() bool {
	_, ok := s.Peek()
	return ok
}

// Reset empties the cell. Resetting an empty cell is a no-op.
func (s *Signal[T]) Reset() {
	s.mu.Lock()
	var zero T
	s.val = zero
	s.set = false
	s.mu.Unlock()

	select {
	case <-s.wake:
	default:
	}
}
