// Package vfat provides parsing of the FAT32 volume descriptor (the
// extended BIOS Parameter Block) and a caching, address-translating block
// device that sits between a raw disk and a FAT32 filesystem driver.
package vfat

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/blockfs/go-blockfs/blockdevice"
)

const (
	bpbSize            = 512
	bpbReservedSize    = 12
	bpbVolumeLabelSize = 11
	bpbFSTypeSize      = 8
	bpbBootCodeSize    = 420
)

// BiosParameterBlock is a decoded FAT32 extended BIOS Parameter Block, the
// first sector of a FAT32 volume. All fields are carried so a decoded
// block re-encodes byte for byte.
type BiosParameterBlock struct {
	JumpInstruction      [3]byte
	OEMName              [8]byte
	BytesPerSector       uint16
	SectorsPerCluster    uint8
	ReservedSectors      uint16
	FATCount             uint8
	RootDirectoryEntries uint16
	// TotalSectors16 legacy 16-bit volume sector count; authoritative
	// when nonzero, see LogicalSectorCount
	TotalSectors16  uint16
	MediaType       uint8
	SectorsPerFAT16 uint16
	SectorsPerTrack uint16
	Heads           uint16
	HiddenSectors   uint32
	// TotalSectors32 extended 32-bit volume sector count, used when
	// TotalSectors16 is zero
	TotalSectors32       uint32
	SectorsPerFAT        uint32
	MirrorFlags          uint16
	Version              uint16
	RootDirectoryCluster uint32
	FSInformationSector  uint16
	BackupBootSector     uint16
	Reserved             [bpbReservedSize]byte
	DriveNumber          uint8
	ReservedFlags        uint8
	// ExtendedBootSignature must be 0x28 or 0x29
	ExtendedBootSignature uint8
	VolumeSerialNumber    uint32
	VolumeLabel           [bpbVolumeLabelSize]byte
	FileSystemType        [bpbFSTypeSize]byte
	BootCode              [bpbBootCodeSize]byte
}

// ReadBPB reads and decodes the BIOS Parameter Block from the given sector
// of the device, normally the first sector of a FAT32 partition.
//
// Returns ErrBadSignature if the trailing magic is not 0x55 0xaa or the
// extended boot signature byte is neither 0x28 nor 0x29.
func ReadBPB(d blockdevice.Device, sector uint64) (*BiosParameterBlock, error) {
	b := make([]byte, bpbSize)
	n, err := d.ReadSector(sector, b)
	if err != nil {
		return nil, fmt.Errorf("error reading BPB from sector %d: %w", sector, err)
	}
	if n < bpbSize {
		return nil, fmt.Errorf("error reading BPB from sector %d: read %d bytes of %d: %w", sector, n, bpbSize, io.ErrUnexpectedEOF)
	}
	return bpbFromBytes(b)
}

// bpbFromBytes decodes a 512-byte BPB sector. All multi-byte fields are
// little-endian.
func bpbFromBytes(b []byte) (*BiosParameterBlock, error) {
	if len(b) != bpbSize {
		return nil, fmt.Errorf("cannot read BPB from invalid byte slice, must be precisely %d bytes, was %d", bpbSize, len(b))
	}
	if b[510] != 0x55 || b[511] != 0xaa {
		return nil, fmt.Errorf("%w: magic bytes 0x%02x 0x%02x", ErrBadSignature, b[510], b[511])
	}
	if b[66] != 0x28 && b[66] != 0x29 {
		return nil, fmt.Errorf("%w: extended boot signature 0x%02x", ErrBadSignature, b[66])
	}

	bpb := &BiosParameterBlock{
		BytesPerSector:        binary.LittleEndian.Uint16(b[11:13]),
		SectorsPerCluster:     b[13],
		ReservedSectors:       binary.LittleEndian.Uint16(b[14:16]),
		FATCount:              b[16],
		RootDirectoryEntries:  binary.LittleEndian.Uint16(b[17:19]),
		TotalSectors16:        binary.LittleEndian.Uint16(b[19:21]),
		MediaType:             b[21],
		SectorsPerFAT16:       binary.LittleEndian.Uint16(b[22:24]),
		SectorsPerTrack:       binary.LittleEndian.Uint16(b[24:26]),
		Heads:                 binary.LittleEndian.Uint16(b[26:28]),
		HiddenSectors:         binary.LittleEndian.Uint32(b[28:32]),
		TotalSectors32:        binary.LittleEndian.Uint32(b[32:36]),
		SectorsPerFAT:         binary.LittleEndian.Uint32(b[36:40]),
		MirrorFlags:           binary.LittleEndian.Uint16(b[40:42]),
		Version:               binary.LittleEndian.Uint16(b[42:44]),
		RootDirectoryCluster:  binary.LittleEndian.Uint32(b[44:48]),
		FSInformationSector:   binary.LittleEndian.Uint16(b[48:50]),
		BackupBootSector:      binary.LittleEndian.Uint16(b[50:52]),
		DriveNumber:           b[64],
		ReservedFlags:         b[65],
		ExtendedBootSignature: b[66],
		VolumeSerialNumber:    binary.LittleEndian.Uint32(b[67:71]),
	}
	copy(bpb.JumpInstruction[:], b[0:3])
	copy(bpb.OEMName[:], b[3:11])
	copy(bpb.Reserved[:], b[52:64])
	copy(bpb.VolumeLabel[:], b[71:82])
	copy(bpb.FileSystemType[:], b[82:90])
	copy(bpb.BootCode[:], b[90:510])
	return bpb, nil
}

// ToBytes re-encodes the block into its 512-byte on-disk form. A block
// decoded by ReadBPB round-trips byte for byte.
func (bpb *BiosParameterBlock) ToBytes() []byte {
	b := make([]byte, bpbSize)
	copy(b[0:3], bpb.JumpInstruction[:])
	copy(b[3:11], bpb.OEMName[:])
	binary.LittleEndian.PutUint16(b[11:13], bpb.BytesPerSector)
	b[13] = bpb.SectorsPerCluster
	binary.LittleEndian.PutUint16(b[14:16], bpb.ReservedSectors)
	b[16] = bpb.FATCount
	binary.LittleEndian.PutUint16(b[17:19], bpb.RootDirectoryEntries)
	binary.LittleEndian.PutUint16(b[19:21], bpb.TotalSectors16)
	b[21] = bpb.MediaType
	binary.LittleEndian.PutUint16(b[22:24], bpb.SectorsPerFAT16)
	binary.LittleEndian.PutUint16(b[24:26], bpb.SectorsPerTrack)
	binary.LittleEndian.PutUint16(b[26:28], bpb.Heads)
	binary.LittleEndian.PutUint32(b[28:32], bpb.HiddenSectors)
	binary.LittleEndian.PutUint32(b[32:36], bpb.TotalSectors32)
	binary.LittleEndian.PutUint32(b[36:40], bpb.SectorsPerFAT)
	binary.LittleEndian.PutUint16(b[40:42], bpb.MirrorFlags)
	binary.LittleEndian.PutUint16(b[42:44], bpb.Version)
	binary.LittleEndian.PutUint32(b[44:48], bpb.RootDirectoryCluster)
	binary.LittleEndian.PutUint16(b[48:50], bpb.FSInformationSector)
	binary.LittleEndian.PutUint16(b[50:52], bpb.BackupBootSector)
	copy(b[52:64], bpb.Reserved[:])
	b[64] = bpb.DriveNumber
	b[65] = bpb.ReservedFlags
	b[66] = bpb.ExtendedBootSignature
	binary.LittleEndian.PutUint32(b[67:71], bpb.VolumeSerialNumber)
	copy(b[71:82], bpb.VolumeLabel[:])
	copy(b[82:90], bpb.FileSystemType[:])
	copy(b[90:510], bpb.BootCode[:])
	b[510] = 0x55
	b[511] = 0xaa
	return b
}

// LogicalSectorCount resolves the two alternative volume sector count
// fields into one canonical count: the legacy 16-bit field when nonzero,
// the 32-bit field otherwise.
func (bpb *BiosParameterBlock) LogicalSectorCount() uint32 {
	if bpb.TotalSectors16 > 0 {
		return uint32(bpb.TotalSectors16)
	}
	return bpb.TotalSectors32
}
