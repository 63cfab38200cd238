package btr

import (
	"math"

	"github.com/wilhasse/hfs-go/sync"
	"github.com/wilhasse/hfs-go/ut"
)

type reserveKey struct {
	tree  TreeID
	owner OwnerID
}

// Reservation is a snapshot of one ledger record.
type Reservation struct {
	Tree      TreeID
	Owner     OwnerID
	Reserved  int32
	Allocated int32
}

// LedgerStats counts ledger activity since creation.
type LedgerStats struct {
	Inserts uint64
	Deletes uint64
	Merges  uint64
	Entries int
}

// Ledger tracks outstanding reservations by (tree, owner). Its lock is
// never held while calling into trees or volumes.
type Ledger struct {
	mu      sync.SpinMutex
	entries map[reserveKey]*ReserveHandle
	stats   LedgerStats
	log     Logger
	metrics *Metrics
}

// NewLedger creates an empty ledger.
func NewLedger(log Logger, metrics *Metrics) *Ledger {
	if log == nil {
		log = nopLogger{}
	}
	return &Ledger{
		entries: map[reserveKey]*ReserveHandle{},
		log:     log,
		metrics: metrics,
	}
}

// Insert records count nodes for (tree, owner). If the pair already has a
// record the count is added to it and h is tagged merged-away, unless h is
// that record. Otherwise h becomes the record. It reports whether the count
// was merged.
func (l *Ledger) Insert(tree TreeID, owner OwnerID, count int32, h *ReserveHandle) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if h.state == HandleOwning && (h.tree != tree || h.owner != owner) {
		l.log.Errorf("btr: handle for tree %d owner %s reused for tree %d owner %s", h.tree, h.owner, tree, owner)
		ut.Fatalf("btr: handle already owns tree %d owner %s", h.tree, h.owner)
	}
	key := reserveKey{tree: tree, owner: owner}
	cur, ok := l.entries[key]
	if h.state == HandleOwning && cur != h {
		l.log.Errorf("btr: owning handle for tree %d owner %s is not the ledger record", tree, owner)
		ut.Fatalf("btr: ledger record mismatch for tree %d", tree)
	}
	if ok {
		ut.Assertf(int64(cur.reserved)+int64(count) <= math.MaxInt32,
			"btr: record for tree %d owner %s overflows at %d + %d", tree, owner, cur.reserved, count)
		cur.reserved += count
		if cur != h {
			h.mergedAway()
		}
		l.stats.Merges++
		l.metrics.merged()
		return true
	}
	h.install(tree, owner, count)
	l.entries[key] = h
	l.stats.Inserts++
	l.metrics.inserted()
	return false
}

// Remove unlinks h and returns the nodes it held. A handle that never became
// a record, or was already released, yields 0. A record whose tree or owner
// differ from the caller's is a fatal violation.
func (l *Ledger) Remove(tree TreeID, owner OwnerID, h *ReserveHandle) int32 {
	l.mu.Lock()
	defer l.mu.Unlock()

	if h.state != HandleOwning {
		return 0
	}
	if h.owner != owner || h.tree != tree {
		l.log.Errorf("btr: invalid reserve handle: tree %d owner %s released by tree %d owner %s",
			h.tree, h.owner, tree, owner)
		ut.Fatalf("btr: invalid reserve handle for tree %d", tree)
	}
	key := reserveKey{tree: tree, owner: owner}
	if cur := l.entries[key]; cur != h {
		l.log.Errorf("btr: reserve handle for tree %d owner %s is not the ledger record", tree, owner)
		ut.Fatalf("btr: ledger record mismatch for tree %d", tree)
	}
	delete(l.entries, key)
	count := h.reserved
	h.clear()
	l.stats.Deletes++
	l.metrics.deleted()
	return count
}

// AddAllocated adds count to the allocated counter of the (tree, owner)
// record. It does nothing when the pair has no record.
func (l *Ledger) AddAllocated(tree TreeID, owner OwnerID, count int32) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cur, ok := l.entries[reserveKey{tree: tree, owner: owner}]; ok {
		cur.allocated += count
	}
}

// Lookup returns a snapshot of the (tree, owner) record.
func (l *Ledger) Lookup(tree TreeID, owner OwnerID) (Reservation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cur, ok := l.entries[reserveKey{tree: tree, owner: owner}]
	if !ok {
		return Reservation{}, false
	}
	return Reservation{
		Tree:      cur.tree,
		Owner:     cur.owner,
		Reserved:  cur.reserved,
		Allocated: cur.allocated,
	}, true
}

// Len returns the number of outstanding records.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Stats returns the ledger counters.
func (l *Ledger) Stats() LedgerStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	stats := l.stats
	stats.Entries = len(l.entries)
	return stats
}
