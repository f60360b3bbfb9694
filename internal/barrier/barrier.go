// Package barrier provides a reusable generational barrier: a fixed number
// of parties advance in lock-step, and exactly one action runs at every
// generation boundary.
package barrier

import (
	"context"
	"errors"
	"sync"
)

// ErrBroken is returned by Await once any party has given up on the
// barrier. A broken barrier stays broken.
var ErrBroken = errors.New("barrier broken")

type generation[T any] struct {
	done   chan struct{}
	value  T
	broken bool
}

// Barrier synchronizes a fixed set of parties. When the last party of a
// generation arrives, the action runs once on that party's goroutine,
// every waiting party is released with the action's result, and the
// barrier resets for the next generation.
type Barrier[T any] struct {
	action  func() T
	gen     *generation[T]
	parties int
	arrived int
	mu      sync.Mutex
}

// New creates a barrier for the given number of parties. parties must be
// at least 1.
func New[T any](parties int, action func() T) *Barrier[T] {
	if parties < 1 {
		panic("barrier: parties must be >= 1")
	}
	return &Barrier[T]{
		action:  action,
		parties: parties,
		gen:     &generation[T]{done: make(chan struct{})},
	}
}

// Parties returns the number of parties required to trip the barrier.
func (b *Barrier[T]) Parties() int { return b.parties }

// Await blocks until all parties have called Await for the current
// generation, then returns the value computed by the action. If ctx is
// cancelled while waiting the barrier is broken and ctx's error returned;
// the other parties get ErrBroken.
func (b *Barrier[T]) Await(ctx context.Context) (T, error) {
	var zero T

	b.mu.Lock()
	g := b.gen
	if g.broken {
		b.mu.Unlock()
		return zero, ErrBroken
	}

	b.arrived++
	if b.arrived == b.parties {
		// Waiters are parked on g.done, so the action sees no concurrent
		// party activity.
		if b.action != nil {
			g.value = b.action()
		}
		b.arrived = 0
		b.gen = &generation[T]{done: make(chan struct{})}
		close(g.done)
		b.mu.Unlock()
		return g.value, nil
	}
	b.mu.Unlock()

	select {
	case <-g.done:
		if g.broken {
			return zero, ErrBroken
		}
		return g.value, nil
	case <-ctx.Done():
		if b.breakIfCurrent(g) {
			return zero, ctx.Err()
		}
		// The generation tripped concurrently with cancellation.
		if g.broken {
			return zero, ErrBroken
		}
		return g.value, nil
	}
}

// breakIfCurrent breaks g if it is still the pending generation and
// reports whether it did.
func (b *Barrier[T]) breakIfCurrent(g *generation[T]) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.gen != g {
		return false
	}
	if !g.broken {
		g.broken = true
		close(g.done)
	}
	return true
}

// Break marks the barrier broken and releases every waiting party with
// ErrBroken. It is safe to call more than once.
func (b *Barrier[T]) Break() {
	b.mu.Lock()
	defer b.mu.Unlock()

	g := b.gen
	if g.broken {
		return
	}
	g.broken = true
	close(g.done)
}

// Broken reports whether the barrier has been broken.
func (b *Barrier[T]) Broken() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen.broken
}
