// Package mbr provides parsing of the legacy Master Boot Record: the
// 512-byte boot sector at the front of a disk, holding bootstrap code, a
// disk identifier and a four-entry partition table.
package mbr

import (
	"errors"
	"fmt"
	"io"

	"github.com/blockfs/go-blockfs/blockdevice"
)

const (
	mbrSize               = 512
	bootstrapSize         = 436
	diskIDStart           = 436
	diskIDSize            = 10
	partitionEntriesStart = 446
	partitionEntryCount   = 4
	signatureStart        = 510
)

// Table is a decoded Master Boot Record.
type Table struct {
	// Bootstrap opaque boot code region, preserved for re-encoding
	Bootstrap [bootstrapSize]byte
	// DiskID opaque disk identifier, preserved for re-encoding
	DiskID [diskIDSize]byte
	// Partitions the four entries of the partition table, in table order
	Partitions []*Partition
}

// Read reads and decodes the Master Boot Record from physical sector 0 of
// the device.
//
// Returns ErrBadSignature if the trailing magic is not 0x55 0xaa, and an
// UnknownBootIndicatorError for the first partition entry whose boot
// indicator byte is neither 0x00 nor 0x80.
func Read(d blockdevice.Device) (*Table, error) {
	b := make([]byte, mbrSize)
	n, err := d.ReadSector(0, b)
	if err != nil {
		return nil, fmt.Errorf("error reading MBR from device: %w", err)
	}
	if n < mbrSize {
		return nil, fmt.Errorf("error reading MBR from device: read %d bytes of %d: %w", n, mbrSize, io.ErrUnexpectedEOF)
	}
	return tableFromBytes(b)
}

// tableFromBytes decodes a 512-byte MBR sector. Validation order: buffer
// length, trailing signature, then each partition entry's boot indicator
// in table order, stopping at the first bad one.
func tableFromBytes(b []byte) (*Table, error) {
	if len(b) != mbrSize {
		return nil, fmt.Errorf("data for partition was %d bytes instead of expected %d", len(b), mbrSize)
	}
	if b[signatureStart] != 0x55 || b[signatureStart+1] != 0xaa {
		return nil, ErrBadSignature
	}

	table := &Table{
		Partitions: make([]*Partition, partitionEntryCount),
	}
	copy(table.Bootstrap[:], b[:bootstrapSize])
	copy(table.DiskID[:], b[diskIDStart:diskIDStart+diskIDSize])

	for i := 0; i < partitionEntryCount; i++ {
		start := partitionEntriesStart + i*partitionEntrySize
		entry := b[start : start+partitionEntrySize]
		if indicator := entry[0]; indicator != 0x00 && indicator != bootableIndicator {
			return nil, NewUnknownBootIndicatorError(i, indicator)
		}
		table.Partitions[i] = partitionFromBytes(entry)
	}
	return table, nil
}

// ToBytes re-encodes the table into its 512-byte on-disk form. A table
// decoded by Read round-trips byte for byte.
func (t *Table) ToBytes() []byte {
	b := make([]byte, mbrSize)
	copy(b[:bootstrapSize], t.Bootstrap[:])
	copy(b[diskIDStart:], t.DiskID[:])
	for i, p := range t.Partitions {
		if p == nil {
			continue
		}
		copy(b[partitionEntriesStart+i*partitionEntrySize:], p.toBytes())
	}
	b[signatureStart] = 0x55
	b[signatureStart+1] = 0xaa
	return b
}

// FAT32Partition returns the first entry in table order whose type is one
// of the FAT32 partition types, or nil if no entry matches.
func (t *Table) FAT32Partition() *Partition {
	for _, p := range t.Partitions {
		if p == nil {
			continue
		}
		if p.Type == Fat32CHS || p.Type == Fat32LBA {
			return p
		}
	}
	return nil
}

// Type report the type of table, always the string "mbr"
func (t *Table) Type() string {
	return "mbr"
}

// Equal check if another table is equal to this one, ignoring CHS geometry
// on the partition entries
func (t *Table) Equal(o *Table) bool {
	if o == nil {
		return t == nil
	}
	if t.Bootstrap != o.Bootstrap || t.DiskID != o.DiskID {
		return false
	}
	if len(t.Partitions) != len(o.Partitions) {
		return false
	}
	for i, p := range t.Partitions {
		if p == nil {
			if o.Partitions[i] != nil {
				return false
			}
			continue
		}
		if !p.Equal(o.Partitions[i]) {
			return false
		}
	}
	return true
}

// ErrBadSignature is returned when the trailing MBR magic is not 0x55 0xaa.
var ErrBadSignature = errors.New("invalid MBR Signature")
