package btr

import (
	"context"
	"math"
	"sync/atomic"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/wilhasse/hfs-go/fsp"
	"github.com/wilhasse/hfs-go/ut"
)

// ErrOutOfSpace is returned when the volume is at or below its protected
// reserve and the batch would only add keys.
var ErrOutOfSpace = errors.New("btr: out of space")

// ReserveConfig configures a NodeReserve.
type ReserveConfig struct {
	Policy fsp.ReservePolicy
	// Extender grows tree files. Defaults to VolumeExtender.
	Extender TreeExtender
	Log      Logger
	// Registerer receives the reserve metrics when set.
	Registerer prometheus.Registerer
}

// ReserveStats summarizes node reserve activity.
type ReserveStats struct {
	LedgerStats
	Extensions uint64
	OutOfSpace uint64
}

// NodeReserve guarantees that B-tree mutations find enough free nodes for
// every split they can cause, and tracks per-owner holds on those nodes.
// One NodeReserve serves every tree of a storage engine.
type NodeReserve struct {
	policy     fsp.ReservePolicy
	extender   TreeExtender
	log        Logger
	ledger     *Ledger
	metrics    *Metrics
	extensions atomic.Uint64
	outOfSpace atomic.Uint64
}

// NewNodeReserve builds the service. It panics if ReserveHandle does not
// have the layout agreed with the catalog layer.
func NewNodeReserve(cfg ReserveConfig) (*NodeReserve, error) {
	ut.CheckLayout("btr.ReserveHandle", unsafe.Sizeof(ReserveHandle{}), ReserveHandleSize)
	ut.CheckLayout("btr.ReserveHandle alignment", unsafe.Alignof(ReserveHandle{}), ReserveHandleAlign)

	if cfg.Policy.Percent > 100 {
		return nil, errors.Newf("btr: reserve percent %d out of range", cfg.Policy.Percent)
	}
	if cfg.Extender == nil {
		cfg.Extender = VolumeExtender{}
	}
	if cfg.Log == nil {
		cfg.Log = nopLogger{}
	}
	metrics, err := NewMetrics(cfg.Registerer)
	if err != nil {
		return nil, err
	}
	return &NodeReserve{
		policy:   cfg.Policy,
		extender: cfg.Extender,
		log:      cfg.Log,
		ledger:   NewLedger(cfg.Log, metrics),
		metrics:  metrics,
	}, nil
}

// ReserveSpace makes sure t has enough unreserved free nodes for ops,
// growing the tree file when it does not. With a handle, the nodes are
// pinned to the owner carried by ctx until ReleaseReserve. Without one the
// call only provisions capacity; the caller must keep the tree locked until
// its mutation is done. The tree file lock must be held.
func (nr *NodeReserve) ReserveSpace(ctx context.Context, t *Tree, ops Ops, h *ReserveHandle) error {
	t.RequireLocked()

	var owner OwnerID
	if h != nil {
		var ok bool
		if owner, ok = OwnerFromContext(ctx); !ok {
			nr.log.Errorf("btr: persistent reserve on tree %d without an owner", t.ID)
			ut.Fatalf("btr: persistent reserve on tree %d without an owner", t.ID)
		}
	}

	required := RequiredNodes(int(t.Depth), ops.Inserts(), ops.Deletes())
	if required > math.MaxInt32 {
		return errors.Newf("btr: batch of %d inserts and %d deletes needs %d nodes",
			ops.Inserts(), ops.Deletes(), required)
	}
	if h != nil {
		if err := nr.checkPinnable(t, owner, required); err != nil {
			return err
		}
	}
	if err := nr.ensureSpace(t, required, ops); err != nil {
		return err
	}
	if h == nil {
		return nil
	}
	t.ReservedNodes += uint32(required)
	merged := nr.ledger.Insert(t.ID, owner, int32(required), h)
	nr.log.Debugf("btr: reserved %d nodes on tree %d for %s (merged %t, reserved %d, free %d)",
		required, t.ID, owner, merged, t.ReservedNodes, t.FreeNodes)
	return nil
}

// checkPinnable fails when pinning required more nodes would overflow the
// tree's reserved count or the owner's existing record.
func (nr *NodeReserve) checkPinnable(t *Tree, owner OwnerID, required int64) error {
	if uint64(t.ReservedNodes)+uint64(required) > math.MaxUint32 {
		return errors.Newf("btr: tree %d has %d nodes reserved, cannot pin %d more",
			t.ID, t.ReservedNodes, required)
	}
	if rec, ok := nr.ledger.Lookup(t.ID, owner); ok && int64(rec.Reserved)+required > math.MaxInt32 {
		return errors.Newf("btr: owner %s holds %d nodes on tree %d, cannot pin %d more",
			owner, rec.Reserved, t.ID, required)
	}
	return nil
}

// ReleaseReserve drops the hold recorded in h and returns its nodes to the
// tree. Handles that were merged into another record, or already released,
// are ignored. The tree file lock must be held.
func (nr *NodeReserve) ReleaseReserve(ctx context.Context, t *Tree, h *ReserveHandle) {
	t.RequireLocked()
	if h == nil {
		return
	}
	owner, _ := OwnerFromContext(ctx)
	count := nr.ledger.Remove(t.ID, owner, h)
	if count == 0 {
		return
	}
	ut.Assertf(uint32(count) <= t.ReservedNodes,
		"btr: tree %d releases %d nodes but only %d are reserved", t.ID, count, t.ReservedNodes)
	t.ReservedNodes -= uint32(count)
	nr.log.Debugf("btr: released %d nodes on tree %d for %s (reserved %d)",
		count, t.ID, owner, t.ReservedNodes)
}

// UpdateReserve records nodes allocated by the owner carried in ctx against
// its hold on t. Owners without a hold are ignored.
func (nr *NodeReserve) UpdateReserve(ctx context.Context, t *Tree, nodes int) {
	owner, ok := OwnerFromContext(ctx)
	if !ok {
		return
	}
	nr.ledger.AddAllocated(t.ID, owner, int32(nodes))
}

// Ledger returns the reservation ledger.
func (nr *NodeReserve) Ledger() *Ledger {
	return nr.ledger
}

// Stats returns the reserve counters.
func (nr *NodeReserve) Stats() ReserveStats {
	return ReserveStats{
		LedgerStats: nr.ledger.Stats(),
		Extensions:  nr.extensions.Load(),
		OutOfSpace:  nr.outOfSpace.Load(),
	}
}
