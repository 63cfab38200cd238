package btr

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/wilhasse/hfs-go/fsp"
)

// TreeExtender grows a tree file so it holds at least totalNodes nodes.
type TreeExtender interface {
	ExtendTree(t *Tree, totalNodes uint32) error
}

// TreeExtenderFunc adapts a function to TreeExtender.
type TreeExtenderFunc func(t *Tree, totalNodes uint32) error

// ExtendTree calls f.
func (f TreeExtenderFunc) ExtendTree(t *Tree, totalNodes uint32) error {
	return f(t, totalNodes)
}

// VolumeExtender grows trees from their volume's free blocks, one clump at a
// time when the volume allows it.
type VolumeExtender struct{}

// ExtendTree implements TreeExtender. totalNodes may include one node for a
// new map node; when the new size needs more map nodes than that, the tree
// grows by the difference so the free nodes asked for survive.
func (VolumeExtender) ExtendTree(t *Tree, totalNodes uint32) error {
	if totalNodes <= t.TotalNodes {
		return nil
	}
	if t.Volume == nil {
		return errors.Newf("btr: tree %d has no volume", t.ID)
	}
	want, err := withMapNodes(t, totalNodes)
	if err != nil {
		return err
	}
	nodeSize := uint64(t.NodeSize)
	minBytes := uint64(want-t.TotalNodes) * nodeSize
	growBytes := max(minBytes, t.ClumpSize)

	ext, err := allocTreeBytes(t.Volume, growBytes, nodeSize)
	if errors.Is(err, fsp.ErrNoSpace) && growBytes > minBytes {
		ext, err = allocTreeBytes(t.Volume, minBytes, nodeSize)
	}
	if err != nil {
		return errors.Wrapf(err, "btr: extend tree %d to %d nodes", t.ID, totalNodes)
	}
	added := nodesInExtent(ext, t.Volume.BlockSize(), t.NodeSize)
	t.Extents = append(t.Extents, ext)
	t.TotalNodes += added
	t.FreeNodes += added
	t.addMapNodes()
	return nil
}

// withMapNodes returns totalNodes plus the map nodes beyond the first that a
// tree of that size needs.
func withMapNodes(t *Tree, totalNodes uint32) (uint32, error) {
	want := uint64(totalNodes)
	for {
		next := uint64(totalNodes)
		if maps := t.mapNodesFor(uint32(want)); maps > t.MapNodes+1 {
			next += uint64(maps - t.MapNodes - 1)
		}
		if next > math.MaxUint32 {
			return 0, errors.Newf("btr: tree %d cannot address %d nodes", t.ID, next)
		}
		if next == want {
			return uint32(want), nil
		}
		want = next
	}
}
