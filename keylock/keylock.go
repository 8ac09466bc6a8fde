// Package keylock provides named mutual exclusion for serializing
// mutations of the same entity (one guild, one war pair) while leaving
// unrelated entities free to proceed concurrently.
package keylock

import "sync"

// KeyLock hands out one mutex per key. Mutexes are retained for the
// process lifetime; the key space is bounded by live guild and pair ids.
type KeyLock struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an empty KeyLock.
func New() *KeyLock {
	return &KeyLock{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the mutex for key and returns its unlock function.
func (k *KeyLock) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
