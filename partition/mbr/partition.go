package mbr

import (
	"bytes"
	"encoding/binary"
)

// Type constants for the GetPartitionType and SetPartitionType calls
type Type byte

// List of partition types
const (
	Empty       Type = 0x00
	Fat12       Type = 0x01
	XenixRoot   Type = 0x02
	XenixUsr    Type = 0x03
	Fat16       Type = 0x04
	ExtendedCHS Type = 0x05
	Fat16b      Type = 0x06
	NTFS        Type = 0x07
	Fat32CHS    Type = 0x0b
	Fat32LBA    Type = 0x0c
	Fat16bLBA   Type = 0x0e
	ExtendedLBA Type = 0x0f
	Linux       Type = 0x83
	LinuxLVM    Type = 0x8e
	LinuxRaid   Type = 0xfd
)

const (
	partitionEntrySize = 16
	// bootableIndicator is the only legal nonzero boot indicator byte
	bootableIndicator byte = 0x80
)

// Partition is a single partition entry from the MBR partition table.
//
// The cylinder-head-sector start and end addresses are legacy and carried
// only so a parsed entry re-encodes byte for byte; all addressing in this
// library uses the LBA fields.
type Partition struct {
	Bootable      bool
	StartHead     uint8
	StartSector   uint8
	StartCylinder uint16
	Type          Type
	EndHead       uint8
	EndSector     uint8
	EndCylinder   uint16
	// Start first LBA sector of the partition
	Start uint32
	// Size number of sectors in the partition
	Size uint32
}

// partitionFromBytes decodes a 16-byte partition entry. The caller is
// responsible for validating the boot indicator byte.
func partitionFromBytes(b []byte) *Partition {
	startHead, startSector, startCylinder := chsFromBytes(b[1:4])
	endHead, endSector, endCylinder := chsFromBytes(b[5:8])
	return &Partition{
		Bootable:      b[0] == bootableIndicator,
		StartHead:     startHead,
		StartSector:   startSector,
		StartCylinder: startCylinder,
		Type:          Type(b[4]),
		EndHead:       endHead,
		EndSector:     endSector,
		EndCylinder:   endCylinder,
		Start:         binary.LittleEndian.Uint32(b[8:12]),
		Size:          binary.LittleEndian.Uint32(b[12:16]),
	}
}

// chsFromBytes unpacks a 3-byte CHS address: a head byte followed by a
// little-endian 16-bit field holding the 6-bit sector and 10-bit cylinder.
func chsFromBytes(b []byte) (head, sector uint8, cylinder uint16) {
	head = b[0]
	packed := binary.LittleEndian.Uint16(b[1:3])
	sector = uint8(packed & 0x3f)
	cylinder = packed >> 6
	return head, sector, cylinder
}

func chsToBytes(b []byte, head, sector uint8, cylinder uint16) {
	b[0] = head
	binary.LittleEndian.PutUint16(b[1:3], uint16(sector&0x3f)|cylinder<<6)
}

// toBytes encodes the partition entry into its 16-byte on-disk form.
func (p *Partition) toBytes() []byte {
	b := make([]byte, partitionEntrySize)
	if p.Bootable {
		b[0] = bootableIndicator
	}
	chsToBytes(b[1:4], p.StartHead, p.StartSector, p.StartCylinder)
	b[4] = byte(p.Type)
	chsToBytes(b[5:8], p.EndHead, p.EndSector, p.EndCylinder)
	binary.LittleEndian.PutUint32(b[8:12], p.Start)
	binary.LittleEndian.PutUint32(b[12:16], p.Size)
	return b
}

// Equal compares if another partition is equal to this one, ignoring CHS
// start and end geometry
func (p *Partition) Equal(o *Partition) bool {
	if o == nil {
		return p == nil
	}
	return p.Bootable == o.Bootable &&
		p.Type == o.Type &&
		p.Start == o.Start &&
		p.Size == o.Size
}

// PartitionEqualBytes compares if the bytes for 2 partitions are equal,
// ignoring CHS start and end geometry
func PartitionEqualBytes(b1, b2 []byte) bool {
	if (b1 == nil && b2 != nil) || (b2 == nil && b1 != nil) {
		return false
	}
	if b1 == nil && b2 == nil {
		return true
	}
	if len(b1) != partitionEntrySize || len(b2) != partitionEntrySize {
		return false
	}
	return b1[0] == b2[0] &&
		b1[4] == b2[4] &&
		bytes.Equal(b1[8:12], b2[8:12]) &&
		bytes.Equal(b1[12:16], b2[12:16])
}
