// Package locks provides a per-key mutex used to serialize writes to a
// single asset or account without a global lock. Player trades and the tick
// engine share one KeyedMutex so a trade and a scheduled price update on the
// same asset can never interleave, while unrelated assets proceed in
// parallel.
package locks

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// KeyedMutex serializes callers holding the same key.
// The zero value is not usable; call NewKeyedMutex.
type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*entry)}
}

// Lock blocks until the key is free and returns the matching unlock func.
// Entries are reference-counted and removed when the last holder unlocks,
// so the map does not grow with the number of distinct keys ever seen.
func (m *KeyedMutex) Lock(key string) (unlock func()) {
	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		e = &entry{}
		m.entries[key] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		m.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(m.entries, key)
		}
		m.mu.Unlock()
	}
}
