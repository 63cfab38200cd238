package btr

// Ops packs a batch of B-tree operations: the insert count in the low 16
// bits and the delete count in the high 16 bits.
type Ops uint32

// MakeOps packs an operation batch.
func MakeOps(inserts, deletes uint16) Ops {
	return Ops(uint32(deletes)<<16 | uint32(inserts))
}

// Inserts returns the number of inserts in the batch.
func (o Ops) Inserts() int {
	return int(o & 0xffff)
}

// Deletes returns the number of deletes in the batch.
func (o Ops) Deletes() int {
	return int(o >> 16)
}

// InsertOnly reports whether the batch adds keys without removing any.
func (o Ops) InsertOnly() bool {
	return o.Inserts() > 0 && o.Deletes() == 0
}

// RequiredNodes returns how many nodes a batch can consume on a tree of the
// given height. One node covers a root split. Each delete can push a new
// first key up every index level, splitting each; each insert can split its
// leaf and every level above it. Heights below 2 count as 2.
func RequiredNodes(height, inserts, deletes int) int64 {
	if height < 2 {
		height = 2
	}
	return 1 + int64(deletes)*int64(height-2) + int64(inserts)*int64(height-1)
}
