// Package digestcache stores source digests across copy invocations so
// unchanged sources are not hashed twice.
//
// Entries are never invalidated by modification time: a digest recorded
// for a path stays authoritative for the lifetime of the cache.
package digestcache

import (
	"bytes"
	"sync"
)

// Map is an in-memory cache keyed by absolute source path. It is safe for
// concurrent use.
type Map struct {
	entries map[string][]byte
	mu      sync.RWMutex
}

// NewMap creates an empty cache.
func NewMap() *Map {
	return &Map{entries: make(map[string][]byte)}
}

// Get returns the digest recorded for path.
func (m *Map) Get(path string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.entries[path]
	if !ok {
		return nil, false
	}
	return bytes.Clone(d), true
}

// Put records the digest for path.
func (m *Map) Put(path string, digest []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	m.entries[path] = bytes.Clone(digest)
}

// Len returns the number of entries.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Clear removes all entries.
func (m *Map) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string][]byte)
}

func (m *Map) snapshot() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]byte, len(m.entries))
	for k, v := range m.entries {
		out[k] = v
	}
	return out
}
