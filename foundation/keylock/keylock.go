// Package keylock provides mutual exclusion scoped to a string key.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// Locker hands out one mutex per key. Entries are released once no
// goroutine holds or waits on them, so the map only grows with the
// number of keys in flight.
type Locker struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New constructs a Locker ready for use.
func New() *Locker {
	return &Locker{
		entries: make(map[string]*entry),
	}
}

// Lock blocks until the caller holds the lock for key. The returned
// function releases it.
func (l *Locker) Lock(key string) func() {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.entries, key)
		}
		l.mu.Unlock()
	}
}

// Len reports how many keys currently have a holder or waiter.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.entries)
}
