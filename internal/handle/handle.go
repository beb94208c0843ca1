// ABOUTME: Ownership-tracked wrappers around native resources
// ABOUTME: Guarantees each device or file handle is released exactly once
package handle

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// ErrClosed is returned when a released handle is used
var ErrClosed = errors.New("handle already closed")

// Handle owns a single native resource until Close is called
type Handle[T any] struct {
	name    string
	value   T
	release func(T) error
	closed  atomic.Bool
}

// New takes ownership of value. release runs at most once, on the first Close.
func New[T any](name string, value T, release func(T) error) *Handle[T] {
	return &Handle[T]{
		name:    name,
		value:   value,
		release: release,
	}
}

// Name returns the handle label used in errors
func (h *Handle[T]) Name() string {
	return h.name
}

// Get returns the owned value, or false once the handle is closed
func (h *Handle[T]) Get() (T, bool) {
	if h.closed.Load() {
		var zero T
		return zero, false
	}
	return h.value, true
}

// MustGet returns the owned value or ErrClosed
func (h *Handle[T]) MustGet() (T, error) {
	v, ok := h.Get()
	if !ok {
		return v, fmt.Errorf("%s: %w", h.name, ErrClosed)
	}
	return v, nil
}

// Closed reports whether the handle has been released
func (h *Handle[T]) Closed() bool {
	return h.closed.Load()
}

// Close releases the resource. Subsequent calls return nil.
func (h *Handle[T]) Close() error {
	if !h.closed.CompareAndSwap(false, true) {
		return nil
	}
	if h.release == nil {
		return nil
	}
	if err := h.release(h.value); err != nil {
		return fmt.Errorf("release %s: %w", h.name, err)
	}
	return nil
}

// Group releases a set of handles in reverse acquisition order
type Group struct {
	mu      sync.Mutex
	closers []interface{ Close() error }
}

// Add registers c to be closed by Group.Close
func (g *Group) Add(c interface{ Close() error }) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.closers = append(g.closers, c)
}

// Close closes every registered handle, last added first, and joins the errors
func (g *Group) Close() error {
	g.mu.Lock()
	closers := g.closers
	g.closers = nil
	g.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
