// Package blockdevice defines the sector-addressed device capability that
// the partition and volume layers consume, along with a memory-backed
// implementation.
//
// A Device exposes a flat array of fixed-size sectors. Reads and writes
// operate on one sector at a time and report the number of bytes moved, so
// callers can detect short transfers.
package blockdevice

import (
	"errors"
	"fmt"
)

// DefaultSectorSize is the sector size assumed when a device does not
// report its own. Both disk images and the vast majority of real block
// devices use 512-byte logical sectors.
const DefaultSectorSize = 512

// Device is a sector-addressed block device.
//
// ReadSector and WriteSector transfer up to min(len(b), SectorSize()) bytes
// between the given sector and b, returning the number of bytes moved. A
// transfer of fewer bytes than requested with a nil error indicates a short
// sector, e.g. a truncated image file.
type Device interface {
	SectorSize() int
	ReadSector(sector uint64, b []byte) (int, error)
	WriteSector(sector uint64, b []byte) (int, error)
}

// OutOfRangeError is returned when a requested sector lies beyond the end
// of the device.
type OutOfRangeError struct {
	Sector  uint64
	Sectors uint64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("sector %d out of range, device has %d sectors", e.Sector, e.Sectors)
}

// ErrReadOnlyDevice is returned by WriteSector on devices opened read-only.
var ErrReadOnlyDevice = errors.New("device is read-only")
