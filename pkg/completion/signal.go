// Package completion provides a one-shot signal a session raises when it has
// finished and that any number of goroutines can block on.
package completion

import (
	"context"
	"sync"
)

// Signal moves from pending to fired at most once and never resets.
// The zero value is not usable; create one with New.
type Signal struct {
	once sync.Once
	done chan struct{}

	mu  sync.Mutex
	err error
}

// New returns a pending signal.
func New() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Fire marks the signal as fired and wakes every waiter. It reports whether
// this call did the firing; later calls return false and change nothing.
func (s *Signal) Fire() bool {
	return s.FireWithError(nil)
}

// FireWithError fires the signal and records why the session ended. Only the
// first call's error is kept.
func (s *Signal) FireWithError(err error) bool {
	fired := false
	s.once.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.done)
		fired = true
	})
	return fired
}

// Fired reports whether the signal has fired.
func (s *Signal) Fired() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Done returns a channel closed when the signal fires.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// Err returns the error passed to FireWithError, nil before firing.
func (s *Signal) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Wait blocks until the signal fires or ctx ends. It returns the recorded
// session error, or ctx.Err() when the context ended first.
func (s *Signal) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
