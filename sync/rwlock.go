package sync

import (
	stdsync "sync"
	"sync/atomic"
)

// RWLock is a shared/exclusive lock that knows whether it is held. Tree
// files use it so reservation paths can check their caller holds the file
// exclusively. It cannot say which goroutine holds it.
type RWLock struct {
	mu        stdsync.RWMutex
	shared    atomic.Int32
	exclusive atomic.Bool
	acquired  atomic.Uint64
	contended atomic.Uint64
}

// RLock takes the lock shared.
func (l *RWLock) RLock() {
	l.mu.RLock()
	l.shared.Add(1)
}

// RUnlock drops a shared hold.
func (l *RWLock) RUnlock() {
	l.shared.Add(-1)
	l.mu.RUnlock()
}

// Lock takes the lock exclusively, counting the acquisitions that had to
// wait for another holder.
func (l *RWLock) Lock() {
	if !l.mu.TryLock() {
		l.contended.Add(1)
		l.mu.Lock()
	}
	l.acquired.Add(1)
	l.exclusive.Store(true)
}

// Unlock drops the exclusive hold.
func (l *RWLock) Unlock() {
	l.exclusive.Store(false)
	l.mu.Unlock()
}

// HeldExclusive reports whether the lock is held exclusively.
func (l *RWLock) HeldExclusive() bool {
	return l.exclusive.Load()
}

// SharedHolders reports the current number of shared holders.
func (l *RWLock) SharedHolders() int32 {
	return l.shared.Load()
}

// Acquisitions reports how many exclusive holds were taken, and how many
// of them waited.
func (l *RWLock) Acquisitions() (total, contended uint64) {
	return l.acquired.Load(), l.contended.Load()
}
