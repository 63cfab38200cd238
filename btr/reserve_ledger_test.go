package btr

import (
	"fmt"
	stdsync "sync"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/wilhasse/hfs-go/ut"
)

func TestLedgerInsertAndRemove(t *testing.T) {
	l := NewLedger(nil, nil)
	owner := NewOwnerID()
	var h ReserveHandle

	require.False(t, l.Insert(1, owner, 5, &h))
	require.Equal(t, HandleOwning, h.State())
	require.Equal(t, TreeID(1), h.Tree())
	require.Equal(t, owner, h.Owner())
	require.Equal(t, int32(5), h.Reserved())
	require.Equal(t, 1, l.Len())

	got, ok := l.Lookup(1, owner)
	require.True(t, ok)
	require.Equal(t, Reservation{Tree: 1, Owner: owner, Reserved: 5}, got)

	require.Equal(t, int32(5), l.Remove(1, owner, &h))
	require.Equal(t, HandleEmpty, h.State())
	require.Equal(t, ReserveHandle{}, h)
	require.Equal(t, 0, l.Len())

	// Released handles are inert.
	require.Equal(t, int32(0), l.Remove(1, owner, &h))
	require.Equal(t, LedgerStats{Inserts: 1, Deletes: 1}, l.Stats())
}

func TestLedgerMerge(t *testing.T) {
	l := NewLedger(nil, nil)
	owner := NewOwnerID()
	var first, second ReserveHandle

	require.False(t, l.Insert(1, owner, 3, &first))
	require.True(t, l.Insert(1, owner, 4, &second))
	require.Equal(t, HandleMergedAway, second.State())
	require.Equal(t, int32(7), first.Reserved())
	require.Equal(t, 1, l.Len())

	require.Equal(t, int32(0), l.Remove(1, owner, &second))
	require.Equal(t, int32(7), l.Remove(1, owner, &first))
	require.Equal(t, LedgerStats{Inserts: 1, Deletes: 1, Merges: 1}, l.Stats())
}

func TestLedgerReinsertSameHandle(t *testing.T) {
	l := NewLedger(nil, nil)
	owner := NewOwnerID()
	var h ReserveHandle

	l.Insert(1, owner, 3, &h)
	require.True(t, l.Insert(1, owner, 2, &h))
	require.Equal(t, HandleOwning, h.State())
	require.Equal(t, int32(5), h.Reserved())
	require.Equal(t, int32(5), l.Remove(1, owner, &h))
	require.Equal(t, 0, l.Len())
}

func TestLedgerOwnersAndTreesStayApart(t *testing.T) {
	l := NewLedger(nil, nil)
	a, b := NewOwnerID(), NewOwnerID()
	var ha, hb, hc ReserveHandle

	require.False(t, l.Insert(1, a, 3, &ha))
	require.False(t, l.Insert(1, b, 4, &hb))
	require.False(t, l.Insert(2, a, 5, &hc))
	require.Equal(t, 3, l.Len())

	require.Equal(t, int32(3), l.Remove(1, a, &ha))
	got, ok := l.Lookup(1, b)
	require.True(t, ok)
	require.Equal(t, int32(4), got.Reserved)
	got, ok = l.Lookup(2, a)
	require.True(t, ok)
	require.Equal(t, int32(5), got.Reserved)
}

func TestLedgerAddAllocated(t *testing.T) {
	l := NewLedger(nil, nil)
	owner := NewOwnerID()
	var h ReserveHandle

	// No record: nothing happens.
	l.AddAllocated(1, owner, 2)
	require.Equal(t, 0, l.Len())

	l.Insert(1, owner, 6, &h)
	l.AddAllocated(1, owner, 2)
	l.AddAllocated(1, owner, 1)
	l.AddAllocated(1, NewOwnerID(), 9)
	require.Equal(t, int32(3), h.Allocated())
	got, _ := l.Lookup(1, owner)
	require.Equal(t, int32(3), got.Allocated)
}

func TestLedgerRemoveByOtherOwnerIsFatal(t *testing.T) {
	ut.DbgReset()
	defer ut.DbgReset()

	l := NewLedger(nil, nil)
	owner := NewOwnerID()
	var h ReserveHandle
	l.Insert(1, owner, 3, &h)

	requireAssertionPanic(t, func() { l.Remove(1, NewOwnerID(), &h) })
	requireAssertionPanic(t, func() { l.Remove(2, owner, &h) })
	require.True(t, ut.DbgStopThreads())

	// The lock was released by the panics and the record is intact.
	require.Equal(t, int32(3), l.Remove(1, owner, &h))
}

func TestLedgerHandleReuseIsFatal(t *testing.T) {
	ut.DbgReset()
	defer ut.DbgReset()

	l := NewLedger(nil, nil)
	owner := NewOwnerID()
	var h ReserveHandle
	l.Insert(1, owner, 3, &h)

	requireAssertionPanic(t, func() { l.Insert(2, owner, 1, &h) })

	// A copy of an owning handle is not the record.
	stale := h
	requireAssertionPanic(t, func() { l.Insert(1, owner, 1, &stale) })
	requireAssertionPanic(t, func() { l.Remove(1, owner, &stale) })
	require.Equal(t, int32(3), h.Reserved())
}

func TestLedgerConcurrentOwners(t *testing.T) {
	l := NewLedger(nil, nil)
	const workers = 16
	const rounds = 100

	var wg stdsync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(tree TreeID) {
			defer wg.Done()
			owner := NewOwnerID()
			for i := 0; i < rounds; i++ {
				var h, extra ReserveHandle
				l.Insert(tree, owner, 2, &h)
				l.Insert(tree, owner, 1, &extra)
				l.AddAllocated(tree, owner, 1)
				if got := l.Remove(tree, owner, &h); got != 3 {
					panic(fmt.Sprintf("owner %s released %d nodes", owner, got))
				}
			}
		}(TreeID(w % 3))
	}
	wg.Wait()
	require.Equal(t, LedgerStats{
		Inserts: workers * rounds,
		Deletes: workers * rounds,
		Merges:  workers * rounds,
	}, l.Stats())
}

func requireAssertionPanic(t *testing.T, fn func()) {
	t.Helper()
	var recovered any
	func() {
		defer func() { recovered = recover() }()
		fn()
	}()
	err, ok := recovered.(error)
	require.True(t, ok, "expected an assertion panic, got %v", recovered)
	require.True(t, errors.IsAssertionFailure(err), "not an assertion failure: %v", err)
}
