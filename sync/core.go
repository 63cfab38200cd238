package sync

import (
	stdsync "sync"
	"sync/atomic"
)

// SpinMutex is a mutex with basic counters. The zero value is unlocked.
type SpinMutex struct {
	mu    stdsync.Mutex
	waits int64
	exits int64
}

// Lock acquires the mutex.
func (m *SpinMutex) Lock() {
	atomic.AddInt64(&m.waits, 1)
	m.mu.Lock()
}

// Unlock releases the mutex.
func (m *SpinMutex) Unlock() {
	atomic.AddInt64(&m.exits, 1)
	m.mu.Unlock()
}

// Waits reports how many times Lock has been entered.
func (m *SpinMutex) Waits() int64 {
	return atomic.LoadInt64(&m.waits)
}

// Exits reports how many times Unlock has been called.
func (m *SpinMutex) Exits() int64 {
	return atomic.LoadInt64(&m.exits)
}

// ResetStats resets the mutex counters.
func (m *SpinMutex) ResetStats() {
	atomic.StoreInt64(&m.waits, 0)
	atomic.StoreInt64(&m.exits, 0)
}
