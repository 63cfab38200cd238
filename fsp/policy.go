package fsp

// ReservePolicy describes the volume margin that ordinary B-tree growth
// must leave untouched for low-disk-space conformance behavior.
type ReservePolicy struct {
	// Percent of the allocatable blocks to protect.
	Percent uint32
	// MaxReserveBytes caps the protected margin.
	MaxReserveBytes uint64
}

// DefaultReservePolicy protects the smaller of 5% of the volume and 10 MiB.
var DefaultReservePolicy = ReservePolicy{
	Percent:         5,
	MaxReserveBytes: 10 << 20,
}

// ProtectedBlocks returns the protected reserve in blocks.
func (p ReservePolicy) ProtectedBlocks(allocLimit, blockSize uint32) uint32 {
	rsrv := uint32(uint64(allocLimit) * uint64(p.Percent) / 100)
	var ceiling uint32
	switch {
	case blockSize == 0:
		return rsrv
	case uint64(blockSize) > p.MaxReserveBytes:
		ceiling = 1
	default:
		ceiling = uint32(p.MaxReserveBytes / uint64(blockSize))
	}
	return min(rsrv, ceiling)
}

// NetFreeBlocks returns the free blocks left above the protected reserve and
// whether the volume is already at or below that reserve.
func (p ReservePolicy) NetFreeBlocks(vol *Volume) (net uint32, low bool) {
	rsrv := p.ProtectedBlocks(vol.AllocLimit(), vol.BlockSize())
	free := vol.FreeBlocks()
	if free <= rsrv {
		return 0, true
	}
	return free - rsrv, false
}
