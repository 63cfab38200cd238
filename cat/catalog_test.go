package cat

import (
	"context"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
	"github.com/wilhasse/hfs-go/btr"
	"github.com/wilhasse/hfs-go/fsp"
)

func newCatalogTree(t *testing.T) (*btr.NodeReserve, *btr.Tree) {
	t.Helper()
	vol, err := fsp.NewVolume(4096, 512)
	require.NoError(t, err)
	tree, err := btr.NewTree(4, vol, 4096, 4*4096)
	require.NoError(t, err)
	tree.SetDepth(2)
	nr, err := btr.NewNodeReserve(btr.ReserveConfig{Policy: fsp.DefaultReservePolicy})
	require.NoError(t, err)
	return nr, tree
}

func TestCookieSize(t *testing.T) {
	require.Equal(t, uintptr(CookieSize), unsafe.Sizeof(Cookie{}))
}

func TestPreflightPostflight(t *testing.T) {
	nr, tree := newCatalogTree(t)
	owner := btr.NewOwnerID()
	ctx := btr.WithOwner(context.Background(), owner)

	var cookie Cookie
	require.NoError(t, Preflight(ctx, nr, tree, OpsCreate, &cookie))
	require.True(t, cookie.Held())
	// Depth 2: one root split plus one per insert.
	require.Equal(t, int32(3), cookie.Reserved())
	require.Equal(t, uint32(3), tree.ReservedNodes)

	require.NoError(t, AllocNodes(ctx, nr, tree, 1))
	got, ok := nr.Ledger().Lookup(tree.ID, owner)
	require.True(t, ok)
	require.Equal(t, int32(1), got.Allocated)

	Postflight(ctx, nr, tree, &cookie)
	require.False(t, cookie.Held())
	require.Equal(t, uint32(0), tree.ReservedNodes)
	require.False(t, tree.Lock.HeldExclusive())
}

func TestNestedPreflightMerges(t *testing.T) {
	nr, tree := newCatalogTree(t)
	ctx := btr.WithOwner(context.Background(), btr.NewOwnerID())

	var outer, inner Cookie
	require.NoError(t, Preflight(ctx, nr, tree, OpsRename, &outer))
	require.NoError(t, Preflight(ctx, nr, tree, OpsLink, &inner))
	require.False(t, inner.Held())
	require.Equal(t, int32(5+2), outer.Reserved())

	Postflight(ctx, nr, tree, &inner)
	require.Equal(t, uint32(7), tree.ReservedNodes)
	Postflight(ctx, nr, tree, &outer)
	require.Equal(t, uint32(0), tree.ReservedNodes)
}

func TestAllocNodesWithoutFreeNodes(t *testing.T) {
	nr, tree := newCatalogTree(t)
	ctx := btr.WithOwner(context.Background(), btr.NewOwnerID())
	require.Error(t, AllocNodes(ctx, nr, tree, tree.FreeNodes+1))
}
