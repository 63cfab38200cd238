package fsp

import (
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrNoSpace is returned when the volume cannot satisfy an allocation.
var ErrNoSpace = errors.New("fsp: no space left on volume")

// Extent is a contiguous run of allocation blocks.
type Extent struct {
	Start uint32
	Count uint32
}

// End returns the block number one past the extent.
func (e Extent) End() uint32 {
	return e.Start + e.Count
}

type extent struct {
	bitmap []byte
	used   uint32
}

// Volume is a block allocator over fixed-size extents, each tracked by a
// bitmap of used blocks. It is safe for concurrent use.
type Volume struct {
	mu          sync.Mutex
	blockSize   uint32
	totalBlocks uint32
	freeBlocks  uint32
	extents     []*extent
}

// NewVolume creates a volume of totalBlocks blocks of blockSize bytes.
func NewVolume(blockSize, totalBlocks uint32) (*Volume, error) {
	if blockSize < MinBlockSize || blockSize > MaxBlockSize || blockSize&(blockSize-1) != 0 {
		return nil, errors.Newf("fsp: invalid block size %d", blockSize)
	}
	if totalBlocks == 0 {
		return nil, errors.New("fsp: volume must have at least one block")
	}
	count := extentCountForBlocks(totalBlocks)
	vol := &Volume{
		blockSize:   blockSize,
		totalBlocks: totalBlocks,
		freeBlocks:  totalBlocks,
		extents:     make([]*extent, count),
	}
	for i := range vol.extents {
		vol.extents[i] = newExtent()
	}
	return vol, nil
}

// BlockSize returns the allocation block size in bytes.
func (v *Volume) BlockSize() uint32 {
	return v.blockSize
}

// AllocLimit returns the number of allocatable blocks on the volume.
func (v *Volume) AllocLimit() uint32 {
	return v.totalBlocks
}

// FreeBlocks returns the number of unallocated blocks.
func (v *Volume) FreeBlocks() uint32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.freeBlocks
}

// Allocate reserves count contiguous blocks using first fit.
func (v *Volume) Allocate(count uint32) (Extent, error) {
	if count == 0 {
		return Extent{}, errors.New("fsp: zero-length allocation")
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	if count > v.freeBlocks {
		return Extent{}, errors.Wrapf(ErrNoSpace, "need %d blocks, %d free", count, v.freeBlocks)
	}
	var run, start uint32
	for blk := uint32(0); blk < v.totalBlocks; blk++ {
		if v.blockUsed(blk) {
			run = 0
			continue
		}
		if run == 0 {
			start = blk
		}
		run++
		if run == count {
			for b := start; b < start+count; b++ {
				v.markBlock(b, true)
			}
			v.freeBlocks -= count
			return Extent{Start: start, Count: count}, nil
		}
	}
	return Extent{}, errors.Wrapf(ErrNoSpace, "no contiguous run of %d blocks", count)
}

// Release returns an extent to the free pool.
func (v *Volume) Release(ext Extent) error {
	if ext.Count == 0 {
		return nil
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	if ext.End() > v.totalBlocks || ext.End() < ext.Start {
		return errors.Newf("fsp: extent [%d,%d) outside volume of %d blocks",
			ext.Start, ext.End(), v.totalBlocks)
	}
	for blk := ext.Start; blk < ext.End(); blk++ {
		if !v.blockUsed(blk) {
			return errors.Newf("fsp: block %d released twice", blk)
		}
	}
	for blk := ext.Start; blk < ext.End(); blk++ {
		v.markBlock(blk, false)
	}
	v.freeBlocks += ext.Count
	return nil
}

// Validate checks that the extent bitmaps agree with the free block count.
func (v *Volume) Validate() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	var used uint32
	for idx, ext := range v.extents {
		if got := extentUsedCount(ext.bitmap); got != ext.used {
			return errors.Newf("fsp: extent %d bitmap has %d used blocks, counter %d", idx, got, ext.used)
		}
		used += ext.used
	}
	if used+v.freeBlocks != v.totalBlocks {
		return errors.Newf("fsp: %d used + %d free != %d total", used, v.freeBlocks, v.totalBlocks)
	}
	return nil
}

func (v *Volume) blockUsed(blk uint32) bool {
	ext := v.extents[blk/ExtentBlocks]
	off := blk % ExtentBlocks
	return ext.bitmap[off/8]&byte(1<<(off%8)) != 0
}

func (v *Volume) markBlock(blk uint32, used bool) bool {
	return extentMark(v.extents[blk/ExtentBlocks], blk%ExtentBlocks, used)
}

func extentCountForBlocks(blocks uint32) uint32 {
	if blocks == 0 {
		return 0
	}
	return (blocks + ExtentBlocks - 1) / ExtentBlocks
}

func newExtent() *extent {
	return &extent{bitmap: make([]byte, extentBitmapBytes)}
}

func extentMark(ext *extent, off uint32, used bool) bool {
	if ext == nil || off >= ExtentBlocks {
		return false
	}
	byteIdx := off / 8
	mask := byte(1 << (off % 8))
	before := ext.bitmap[byteIdx] & mask
	if used {
		if before != 0 {
			return false
		}
		ext.bitmap[byteIdx] |= mask
		ext.used++
		return true
	}
	if before == 0 {
		return false
	}
	ext.bitmap[byteIdx] &^= mask
	if ext.used > 0 {
		ext.used--
	}
	return true
}

func extentUsedCount(bitmap []byte) uint32 {
	var count uint32
	for i := uint32(0); i < ExtentBlocks; i++ {
		if bitmap[i/8]&byte(1<<(i%8)) != 0 {
			count++
		}
	}
	return count
}
