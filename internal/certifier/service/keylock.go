package service

import "sync"

// keyLocks provides per-certificate mutual exclusion for the mutating paths.
// Two concurrent writes for the same id serialise their ledger-then-store
// sequences instead of interleaving them; writes for different ids proceed
// independently. Entries are reference-counted and freed when idle.
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*keyLock)}
}

// lock acquires the lock for id and returns the matching unlock func.
func (k *keyLocks) lock(id string) func() {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &keyLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
