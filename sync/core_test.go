package sync

import (
	stdsync "sync"
	"testing"
)

func TestSpinMutexCounters(t *testing.T) {
	m := &SpinMutex{}
	m.Lock()
	m.Unlock()
	if got := m.Waits(); got != 1 {
		t.Fatalf("spin waits=%d", got)
	}
	if got := m.Exits(); got != 1 {
		t.Fatalf("exits=%d", got)
	}
	m.ResetStats()
	if got := m.Waits(); got != 0 {
		t.Fatalf("spin waits=%d", got)
	}
	if got := m.Exits(); got != 0 {
		t.Fatalf("exits=%d", got)
	}
}

func TestSpinMutexConcurrent(t *testing.T) {
	var m SpinMutex
	var wg stdsync.WaitGroup
	counter := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Lock()
				counter++
				m.Unlock()
			}
		}()
	}
	wg.Wait()
	if counter != 800 {
		t.Fatalf("counter=%d", counter)
	}
	if m.Waits() != 800 || m.Exits() != 800 {
		t.Fatalf("waits=%d exits=%d", m.Waits(), m.Exits())
	}
}
