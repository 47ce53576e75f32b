package vfat

import (
	"errors"
	"fmt"
)

// ErrBadSignature is returned when a BPB's trailing magic or extended boot
// signature byte is invalid.
var ErrBadSignature = errors.New("invalid BPB signature")

// OutOfRangeError reports a logical sector address beyond the partition's
// declared sector count.
type OutOfRangeError struct {
	sector     uint64
	numSectors uint64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("logical sector %d out of range, partition has %d sectors", e.sector, e.numSectors)
}

// Sector returns the requested out-of-range logical sector.
func (e *OutOfRangeError) Sector() uint64 {
	return e.sector
}

// NumSectors returns the partition's declared logical sector count.
func (e *OutOfRangeError) NumSectors() uint64 {
	return e.numSectors
}

func NewOutOfRangeError(sector, numSectors uint64) *OutOfRangeError {
	return &OutOfRangeError{
		sector:     sector,
		numSectors: numSectors,
	}
}
