package vfat

// Partition describes the logical view of a volume on an underlying
// device: where it starts, how many logical sectors it holds, and how big
// a logical sector is.
//
// Start is in physical device sectors; NumSectors and SectorSize define
// the logical address space. SectorSize must be an integer multiple of the
// device's physical sector size, which NewCachedPartition enforces.
type Partition struct {
	// Start the physical sector where the partition begins
	Start uint64
	// NumSectors the number of logical sectors in the partition
	NumSectors uint64
	// SectorSize the size, in bytes, of a logical sector
	SectorSize int
}
