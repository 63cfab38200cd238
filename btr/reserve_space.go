package btr

import (
	"math"

	"github.com/cockroachdb/errors"
)

// ensureSpace grows t until it has required unreserved free nodes. Growth
// may not eat into the volume's protected reserve for batches that only
// insert. Batches with deletes may, because a delete can still split nodes
// while pushing keys up. t.ClumpSize may be lowered for the extension and
// is always restored.
func (nr *NodeReserve) ensureSpace(t *Tree, required int64, ops Ops) error {
	avail := t.Available()
	if avail >= required {
		return nil
	}
	vol := t.Volume
	if vol == nil {
		return errors.Newf("btr: tree %d has no volume", t.ID)
	}
	blockSize := uint64(vol.BlockSize())

	freeBlocks, low := nr.policy.NetFreeBlocks(vol)
	if low && ops.InsertOnly() {
		return nr.refuse(t, required, avail, "volume at protected reserve")
	}

	clumpSize := t.ClumpSize
	defer func() { t.ClumpSize = clumpSize }()

	if clumpSize/blockSize > uint64(freeBlocks) {
		reqBlocks := uint64(required-avail) * uint64(t.NodeSize) / blockSize
		if reqBlocks > uint64(freeBlocks) && ops.InsertOnly() {
			return nr.refuse(t, required, avail, "tree growth exceeds free blocks")
		}
		t.ClumpSize = uint64(freeBlocks) * blockSize
	}

	total := required + int64(t.TotalNodes) - avail
	if total > int64(t.CalcMapBits()) {
		// Room for a new map node.
		total++
	}
	if total > math.MaxUint32 {
		return errors.Newf("btr: tree %d cannot address %d nodes", t.ID, total)
	}
	if err := nr.extender.ExtendTree(t, uint32(total)); err != nil {
		nr.log.Infof("btr: extending tree %d to %d nodes failed: %v", t.ID, total, err)
		return err
	}
	nr.extensions.Add(1)
	nr.metrics.extended()
	if avail := t.Available(); avail < required {
		nr.log.Errorf("btr: tree %d has %d nodes available after extension, need %d", t.ID, avail, required)
		return errors.Newf("btr: tree %d extension left %d nodes available, need %d", t.ID, avail, required)
	}
	nr.log.Debugf("btr: extended tree %d to %d nodes (%d free)", t.ID, t.TotalNodes, t.FreeNodes)
	return nil
}

func (nr *NodeReserve) refuse(t *Tree, required, avail int64, why string) error {
	nr.outOfSpace.Add(1)
	nr.metrics.refused()
	nr.log.Infof("btr: tree %d needs %d nodes, %d available: %s", t.ID, required, avail, why)
	return ErrOutOfSpace
}
