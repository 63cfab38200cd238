package cat

import (
	"context"

	"github.com/wilhasse/hfs-go/btr"
)

// Operation counts for the common catalog calls.
var (
	OpsCreate = btr.MakeOps(2, 0)
	OpsDelete = btr.MakeOps(0, 2)
	OpsRename = btr.MakeOps(4, 4)
	OpsLink   = btr.MakeOps(1, 0)
)

// Preflight reserves the nodes ops can consume on tree and pins them to the
// owner carried by ctx.
func Preflight(ctx context.Context, nr *btr.NodeReserve, tree *btr.Tree, ops btr.Ops, cookie *Cookie) error {
	tree.Lock.Lock()
	defer tree.Lock.Unlock()
	return nr.ReserveSpace(ctx, tree, ops, &cookie.handle)
}

// Postflight releases whatever Preflight pinned.
func Postflight(ctx context.Context, nr *btr.NodeReserve, tree *btr.Tree, cookie *Cookie) {
	tree.Lock.Lock()
	defer tree.Lock.Unlock()
	nr.ReleaseReserve(ctx, tree, &cookie.handle)
}

// AllocNodes takes n nodes from tree for a split and reports them against
// the caller's reservation.
func AllocNodes(ctx context.Context, nr *btr.NodeReserve, tree *btr.Tree, n uint32) error {
	tree.Lock.Lock()
	err := tree.AllocNodes(n)
	tree.Lock.Unlock()
	if err != nil {
		return err
	}
	nr.UpdateReserve(ctx, tree, int(n))
	return nil
}
