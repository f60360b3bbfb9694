// Package event carries engine progress to passive observers as named
// property changes.
package event

import (
	"sync"
	"time"
)

// Property names an observable piece of engine state.
type Property int

const (
	// State fires on phase transitions. Old and New hold the phases.
	State Property = iota + 1
	// ByteCounter fires when the cumulative copied byte count advances.
	// Old and New are int64.
	ByteCounter
	// File fires when a directory is scanned or a file enters copying or
	// checking. Old is nil, New is the path string.
	File
)

var propertyNames = [...]string{
	State:       "state",
	ByteCounter: "byte_counter",
	File:        "file",
}

func (p Property) String() string {
	if p > 0 && int(p) < len(propertyNames) {
		return propertyNames[p]
	}
	return "unknown"
}

// Change is a single property change.
type Change struct {
	Timestamp time.Time
	Old       any
	New       any
	Property  Property
}

// Listener receives changes synchronously on the goroutine that fired
// them. Listeners must not block and must not call back into the bus.
type Listener func(Change)

type subscription struct {
	fn Listener
}

// Bus is a registry of listeners keyed by property. The zero value is
// ready to use.
type Bus struct {
	listeners map[Property][]*subscription
	mu        sync.RWMutex
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers l for changes of p and returns a function that
// detaches it.
func (b *Bus) Subscribe(p Property, l Listener) (unsubscribe func()) {
	sub := &subscription{fn: l}

	b.mu.Lock()
	if b.listeners == nil {
		b.listeners = make(map[Property][]*subscription)
	}
	b.listeners[p] = append(b.listeners[p], sub)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(p, sub) })
	}
}

func (b *Bus) remove(p Property, sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.listeners[p]
	for i, s := range subs {
		if s == sub {
			// Copy so that a concurrent Fire iterating the old slice is unaffected.
			next := make([]*subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			b.listeners[p] = next
			return
		}
	}
}

// Fire delivers a change of p to its listeners. Nothing is delivered when
// the old and new values are equal and non-nil.
func (b *Bus) Fire(p Property, oldValue, newValue any) {
	if b == nil {
		return
	}
	if oldValue != nil && newValue != nil && equal(oldValue, newValue) {
		return
	}

	b.mu.RLock()
	subs := b.listeners[p]
	b.mu.RUnlock()
	if len(subs) == 0 {
		return
	}

	c := Change{Property: p, Old: oldValue, New: newValue, Timestamp: time.Now()}
	for _, s := range subs {
		s.fn(c)
	}
}

// Forward subscribes ch to the given properties (all of them when none are
// named). Sends never block: a change is dropped when ch is full. The
// returned function detaches every subscription.
func (b *Bus) Forward(ch chan<- Change, props ...Property) (unsubscribe func()) {
	if len(props) == 0 {
		props = []Property{State, ByteCounter, File}
	}

	unsubs := make([]func(), 0, len(props))
	for _, p := range props {
		unsubs = append(unsubs, b.Subscribe(p, func(c Change) {
			select {
			case ch <- c:
			default:
			}
		}))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func equal(a, b any) (eq bool) {
	defer func() {
		// Non-comparable dynamic types are never considered equal.
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}
