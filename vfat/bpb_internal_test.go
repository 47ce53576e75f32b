package vfat

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// GetValidBPBBytes builds the 512-byte BPB of a small FAT32 volume in the
// shape mkfs.fat produces.
func GetValidBPBBytes() []byte {
	b := make([]byte, 512)
	copy(b[0:3], []byte{0xeb, 0x58, 0x90})
	copy(b[3:11], "mkfs.fat")
	binary.LittleEndian.PutUint16(b[11:13], 512)  // bytes per sector
	b[13] = 1                                     // sectors per cluster
	binary.LittleEndian.PutUint16(b[14:16], 32)   // reserved sectors
	b[16] = 2                                     // FAT count
	b[21] = 0xf8                                  // media type
	binary.LittleEndian.PutUint16(b[24:26], 32)   // sectors per track
	binary.LittleEndian.PutUint16(b[26:28], 64)   // heads
	binary.LittleEndian.PutUint32(b[28:32], 2048) // hidden sectors
	binary.LittleEndian.PutUint32(b[32:36], 262144)
	binary.LittleEndian.PutUint32(b[36:40], 2017) // sectors per FAT
	binary.LittleEndian.PutUint32(b[44:48], 2)    // root cluster
	binary.LittleEndian.PutUint16(b[48:50], 1)    // FS information sector
	binary.LittleEndian.PutUint16(b[50:52], 6)    // backup boot sector
	b[64] = 0x80
	b[66] = 0x29
	binary.LittleEndian.PutUint32(b[67:71], 0x12345678)
	copy(b[71:82], "NO NAME    ")
	copy(b[82:90], "FAT32   ")
	for i := 90; i < 510; i++ {
		b[i] = byte(i % 251)
	}
	b[510] = 0x55
	b[511] = 0xaa
	return b
}

// GetValidBPB returns the decoded form of GetValidBPBBytes.
func GetValidBPB() *BiosParameterBlock {
	bpb := &BiosParameterBlock{
		JumpInstruction:       [3]byte{0xeb, 0x58, 0x90},
		BytesPerSector:        512,
		SectorsPerCluster:     1,
		ReservedSectors:       32,
		FATCount:              2,
		MediaType:             0xf8,
		SectorsPerTrack:       32,
		Heads:                 64,
		HiddenSectors:         2048,
		TotalSectors32:        262144,
		SectorsPerFAT:         2017,
		RootDirectoryCluster:  2,
		FSInformationSector:   1,
		BackupBootSector:      6,
		DriveNumber:           0x80,
		ExtendedBootSignature: 0x29,
		VolumeSerialNumber:    0x12345678,
	}
	copy(bpb.OEMName[:], "mkfs.fat")
	copy(bpb.VolumeLabel[:], "NO NAME    ")
	copy(bpb.FileSystemType[:], "FAT32   ")
	for i := range bpb.BootCode {
		bpb.BootCode[i] = byte((i + 90) % 251)
	}
	return bpb
}

func TestBPBFromBytes(t *testing.T) {
	t.Run("mismatched length", func(t *testing.T) {
		b := make([]byte, 511, 512)
		bpb, err := bpbFromBytes(b)
		if bpb != nil {
			t.Error("should return nil bpb")
		}
		expected := "cannot read BPB from invalid byte slice"
		if err == nil || !strings.HasPrefix(err.Error(), expected) {
			t.Errorf("error type %v instead of expected %s", err, expected)
		}
	})
	t.Run("invalid magic", func(t *testing.T) {
		b := GetValidBPBBytes()
		b[510] = 0x00
		bpb, err := bpbFromBytes(b)
		if bpb != nil {
			t.Error("should return nil bpb")
		}
		if !errors.Is(err, ErrBadSignature) {
			t.Errorf("error was %v instead of expected %v", err, ErrBadSignature)
		}
	})
	t.Run("invalid extended boot signature", func(t *testing.T) {
		for _, sig := range []byte{0x00, 0x27, 0x2a, 0xff} {
			b := GetValidBPBBytes()
			b[66] = sig
			bpb, err := bpbFromBytes(b)
			if bpb != nil {
				t.Errorf("signature 0x%02x: should return nil bpb", sig)
			}
			if !errors.Is(err, ErrBadSignature) {
				t.Errorf("signature 0x%02x: error was %v instead of expected %v", sig, err, ErrBadSignature)
			}
		}
	})
	t.Run("both legal signatures accepted", func(t *testing.T) {
		for _, sig := range []byte{0x28, 0x29} {
			b := GetValidBPBBytes()
			b[66] = sig
			bpb, err := bpbFromBytes(b)
			if err != nil {
				t.Errorf("signature 0x%02x: returned non-nil error: %v", sig, err)
			}
			if bpb == nil {
				t.Fatalf("signature 0x%02x: returned nil bpb", sig)
			}
		}
	})
	t.Run("valid data", func(t *testing.T) {
		bpb, err := bpbFromBytes(GetValidBPBBytes())
		if err != nil {
			t.Fatalf("returned non-nil error: %v", err)
		}
		if diff := cmp.Diff(GetValidBPB(), bpb); diff != "" {
			t.Errorf("mismatched BPB (-want +got):\n%s", diff)
		}
	})
}

func TestBPBToBytes(t *testing.T) {
	b := GetValidBPBBytes()
	bpb, err := bpbFromBytes(b)
	if err != nil {
		t.Fatalf("error parsing valid BPB: %v", err)
	}
	out := bpb.ToBytes()
	if !bytes.Equal(out, b) {
		t.Error("re-encoded BPB did not match input bytes")
	}
}

func TestLogicalSectorCount(t *testing.T) {
	t.Run("32-bit field when 16-bit field is zero", func(t *testing.T) {
		bpb := GetValidBPB()
		if got := bpb.LogicalSectorCount(); got != 262144 {
			t.Errorf("got %d instead of 262144", got)
		}
	})
	t.Run("16-bit field authoritative when nonzero", func(t *testing.T) {
		bpb := GetValidBPB()
		bpb.TotalSectors16 = 40000
		if got := bpb.LogicalSectorCount(); got != 40000 {
			t.Errorf("got %d instead of 40000", got)
		}
	})
}
