package btr

import (
	"github.com/cockroachdb/errors"
	"github.com/wilhasse/hfs-go/fsp"
	"github.com/wilhasse/hfs-go/sync"
	"github.com/wilhasse/hfs-go/ut"
)

// TreeID identifies a B-tree file on its volume.
type TreeID uint32

const (
	MinNodeSize = 512
	MaxNodeSize = 32768
)

// Node layout sizes used for map capacity.
const (
	nodeDescriptorSize = 14
	headerRecSize      = 106
	userDataRecSize    = 128
	// Descriptor, header record, user data record and four record offsets.
	headerNodeOverhead = nodeDescriptorSize + headerRecSize + userDataRecSize + 8
	// Descriptor, two record offsets and a pad word.
	mapNodeOverhead = nodeDescriptorSize + 6
)

// Tree is the control block of one B-tree file. The counters are guarded by
// Lock, which callers hold exclusively across any reservation call.
type Tree struct {
	ID    TreeID
	Depth uint16
	// NodeSize is the size of a tree node in bytes.
	NodeSize      uint32
	TotalNodes    uint32
	FreeNodes     uint32
	ReservedNodes uint32
	// MapNodes counts map nodes beyond the header node's map record.
	MapNodes uint32
	// ClumpSize is the growth increment hint in bytes.
	ClumpSize uint64
	Volume    *fsp.Volume
	Extents   []fsp.Extent
	Lock      sync.RWLock
}

// NewTree creates a tree file on vol whose initial size is one clump,
// holding at least the header node.
func NewTree(id TreeID, vol *fsp.Volume, nodeSize uint32, clumpSize uint64) (*Tree, error) {
	if vol == nil {
		return nil, errors.New("btr: tree needs a volume")
	}
	if nodeSize < MinNodeSize || nodeSize > MaxNodeSize || nodeSize&(nodeSize-1) != 0 {
		return nil, errors.Newf("btr: invalid node size %d", nodeSize)
	}
	t := &Tree{
		ID:        id,
		NodeSize:  nodeSize,
		ClumpSize: clumpSize,
		Volume:    vol,
	}
	bytes := max(clumpSize, uint64(nodeSize))
	ext, err := allocTreeBytes(vol, bytes, uint64(nodeSize))
	if err != nil {
		return nil, errors.Wrapf(err, "btr: create tree %d", id)
	}
	t.Extents = append(t.Extents, ext)
	t.TotalNodes = nodesInExtent(ext, vol.BlockSize(), nodeSize)
	// Node 0 is the header node.
	t.FreeNodes = t.TotalNodes - 1
	t.addMapNodes()
	return t, nil
}

// Available returns the free nodes not pinned by any reservation. It can be
// negative while holders consume nodes they reserved.
func (t *Tree) Available() int64 {
	return int64(t.FreeNodes) - int64(t.ReservedNodes)
}

// CalcMapBits returns how many nodes the header map record and the map
// nodes can address.
func (t *Tree) CalcMapBits() uint32 {
	bits := uint64(t.NodeSize-headerNodeOverhead) * 8
	bits += uint64(t.MapNodes) * uint64(t.NodeSize-mapNodeOverhead) * 8
	if bits > uint64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(bits)
}

// mapNodesFor returns how many map nodes a tree of total nodes needs.
func (t *Tree) mapNodesFor(total uint32) uint32 {
	bits := uint64(t.NodeSize-headerNodeOverhead) * 8
	perNode := uint64(t.NodeSize-mapNodeOverhead) * 8
	var n uint32
	for uint64(total) > bits {
		n++
		bits += perNode
	}
	return n
}

// AllocNodes takes n free nodes, as a split would.
func (t *Tree) AllocNodes(n uint32) error {
	if n > t.FreeNodes {
		return errors.Newf("btr: tree %d has %d free nodes, need %d", t.ID, t.FreeNodes, n)
	}
	t.FreeNodes -= n
	return nil
}

// FreeNodesBack returns n nodes to the free pool, as a merge would.
func (t *Tree) FreeNodesBack(n uint32) error {
	if uint64(t.FreeNodes)+uint64(n) > uint64(t.usableNodes()) {
		return errors.Newf("btr: tree %d cannot free %d nodes, %d of %d free",
			t.ID, n, t.FreeNodes, t.usableNodes())
	}
	t.FreeNodes += n
	return nil
}

// SetDepth records the tree height after a root split or collapse.
func (t *Tree) SetDepth(depth uint16) {
	t.Depth = depth
}

// RequireLocked fails when the tree file lock is not held exclusively.
func (t *Tree) RequireLocked() {
	ut.Assertf(t.Lock.HeldExclusive(), "btr: tree %d file lock not held", t.ID)
}

// usableNodes is the node count excluding the header and map nodes.
func (t *Tree) usableNodes() uint32 {
	return t.TotalNodes - 1 - t.MapNodes
}

func (t *Tree) addMapNodes() {
	for t.TotalNodes > t.CalcMapBits() && t.FreeNodes > 0 {
		t.FreeNodes--
		t.MapNodes++
	}
}

func allocTreeBytes(vol *fsp.Volume, bytes, nodeSize uint64) (fsp.Extent, error) {
	blockSize := uint64(vol.BlockSize())
	// Both sizes are powers of two, so the larger is a multiple of the smaller.
	unit := max(nodeSize, blockSize)
	bytes = (bytes + unit - 1) / unit * unit
	blocks := bytes / blockSize
	if blocks > uint64(^uint32(0)) {
		return fsp.Extent{}, errors.Newf("btr: %d bytes exceeds volume addressing", bytes)
	}
	return vol.Allocate(uint32(blocks))
}

func nodesInExtent(ext fsp.Extent, blockSize, nodeSize uint32) uint32 {
	return uint32(uint64(ext.Count) * uint64(blockSize) / uint64(nodeSize))
}
