package btr

// HandleState tags what a ReserveHandle currently represents.
type HandleState uint8

const (
	// HandleEmpty holds no reservation.
	HandleEmpty HandleState = iota
	// HandleOwning is the ledger record for its (tree, owner) pair.
	HandleOwning
	// HandleMergedAway had its count folded into an existing record.
	HandleMergedAway
)

func (s HandleState) String() string {
	switch s {
	case HandleEmpty:
		return "empty"
	case HandleOwning:
		return "owning"
	case HandleMergedAway:
		return "merged"
	default:
		return "invalid"
	}
}

// ReserveHandleSize and ReserveHandleAlign are the layout agreed with the
// catalog layer, which embeds a ReserveHandle in its opaque cookie.
const (
	ReserveHandleSize  = 32
	ReserveHandleAlign = 4
)

// ReserveHandle is caller-owned storage for one reservation. When it
// becomes the owning record the ledger points at it directly, so it must
// not be copied or reused until ReleaseReserve has run.
type ReserveHandle struct {
	owner     OwnerID
	tree      TreeID
	reserved  int32
	allocated int32
	state     HandleState
}

// State returns the handle's tag.
func (h *ReserveHandle) State() HandleState {
	return h.state
}

// Tree returns the tree the handle was installed for.
func (h *ReserveHandle) Tree() TreeID {
	return h.tree
}

// Owner returns the owner the handle was installed for.
func (h *ReserveHandle) Owner() OwnerID {
	return h.owner
}

// Reserved returns the nodes pinned by an owning handle.
func (h *ReserveHandle) Reserved() int32 {
	return h.reserved
}

// Allocated returns the nodes reported as consumed through UpdateReserve.
func (h *ReserveHandle) Allocated() int32 {
	return h.allocated
}

func (h *ReserveHandle) install(tree TreeID, owner OwnerID, count int32) {
	*h = ReserveHandle{
		owner:    owner,
		tree:     tree,
		reserved: count,
		state:    HandleOwning,
	}
}

func (h *ReserveHandle) mergedAway() {
	*h = ReserveHandle{state: HandleMergedAway}
}

func (h *ReserveHandle) clear() {
	*h = ReserveHandle{}
}
