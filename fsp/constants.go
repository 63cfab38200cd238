package fsp

// ExtentBlocks is the number of volume blocks tracked by one extent bitmap.
const ExtentBlocks = 64

const extentBitmapBytes = (ExtentBlocks + 7) / 8

// MinBlockSize and MaxBlockSize bound the allocation block size of a volume.
const (
	MinBlockSize = 512
	MaxBlockSize = 1 << 20
)
