package application

import "sync"

// NoopLocker is the default BranchLocker: no mutual exclusion. Matches the
// engine's documented behavior of leaving per-branch serialization to the
// caller.
type NoopLocker struct{}

// Lock returns immediately with a no-op release.
func (NoopLocker) Lock(string) (release func()) {
	return func() {}
}

// KeyedLocker is an in-process BranchLocker holding one mutex per branch
// id. Suitable for single-process deployments that want strict per-branch
// write ordering.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewKeyedLocker creates an empty KeyedLocker.
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the per-branch mutex, creating it on first use. Mutexes
// are never evicted; the map grows with the number of distinct branches.
func (l *KeyedLocker) Lock(branchID string) (release func()) {
	l.mu.Lock()
	m, ok := l.locks[branchID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[branchID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
