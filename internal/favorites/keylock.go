package favorites

import "sync"

// keyLock hands out one mutex per movie id. Entries are dropped once nobody
// holds or waits on them.
type keyLock struct {
	mu    sync.Mutex
	locks map[int]*keyLockEntry
}

type keyLockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyLock() *keyLock {
	return &keyLock{locks: make(map[int]*keyLockEntry)}
}

func (l *keyLock) Lock(key int) (unlock func()) {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &keyLockEntry{}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

func (l *keyLock) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.locks)
}
