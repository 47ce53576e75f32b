package mbr

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"testing"
)

const (
	testPartitionStart = uint32(2048)
	testPartitionSize  = uint32(262144)
)

// GetValidMBRBytes builds a 512-byte MBR with a bootable FAT32 partition
// in entry 0, a Linux partition in entry 1, and empty entries 2 and 3.
func GetValidMBRBytes() []byte {
	b := make([]byte, 512)
	for i := 0; i < bootstrapSize; i++ {
		b[i] = byte(i)
	}
	copy(b[diskIDStart:], []byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x01, 0x02, 0x03, 0x04, 0x05})

	e0 := b[partitionEntriesStart:]
	e0[0] = 0x80
	chsToBytes(e0[1:4], 0x20, 0x21, 0x00)
	e0[4] = byte(Fat32LBA)
	chsToBytes(e0[5:8], 0xfe, 0x3f, 0x3ff)
	binary.LittleEndian.PutUint32(e0[8:12], testPartitionStart)
	binary.LittleEndian.PutUint32(e0[12:16], testPartitionSize)

	e1 := b[partitionEntriesStart+partitionEntrySize:]
	e1[4] = byte(Linux)
	binary.LittleEndian.PutUint32(e1[8:12], testPartitionStart+testPartitionSize)
	binary.LittleEndian.PutUint32(e1[12:16], 131072)

	b[signatureStart] = 0x55
	b[signatureStart+1] = 0xaa
	return b
}

// GetValidTable returns the decoded form of GetValidMBRBytes.
func GetValidTable() *Table {
	table := &Table{}
	b := GetValidMBRBytes()
	copy(table.Bootstrap[:], b[:bootstrapSize])
	copy(table.DiskID[:], b[diskIDStart:diskIDStart+diskIDSize])
	table.Partitions = []*Partition{
		{
			Bootable:    true,
			StartHead:   0x20,
			StartSector: 0x21,
			Type:        Fat32LBA,
			EndHead:     0xfe,
			EndSector:   0x3f,
			EndCylinder: 0x3ff,
			Start:       testPartitionStart,
			Size:        testPartitionSize,
		},
		{
			Type:  Linux,
			Start: testPartitionStart + testPartitionSize,
			Size:  131072,
		},
		{Type: Empty},
		{Type: Empty},
	}
	return table
}

func TestTableFromBytes(t *testing.T) {
	t.Run("short byte slice", func(t *testing.T) {
		b := make([]byte, 512-1)
		_, _ = rand.Read(b)
		table, err := tableFromBytes(b)
		if table != nil {
			t.Error("should return nil table")
		}
		if err == nil {
			t.Fatal("should not return nil error")
		}
		expected := fmt.Sprintf("data for partition was %d bytes", len(b))
		if !strings.HasPrefix(err.Error(), expected) {
			t.Errorf("error type %s instead of expected %s", err.Error(), expected)
		}
	})
	t.Run("invalid MBR Signature", func(t *testing.T) {
		b := GetValidMBRBytes()
		b[511] = 0x00
		table, err := tableFromBytes(b)
		if table != nil {
			t.Error("should return nil table")
		}
		if !errors.Is(err, ErrBadSignature) {
			t.Errorf("error was %v instead of expected %v", err, ErrBadSignature)
		}
	})
	t.Run("unknown boot indicator", func(t *testing.T) {
		for i := 0; i < 4; i++ {
			b := GetValidMBRBytes()
			b[partitionEntriesStart+i*partitionEntrySize] = 0x01
			table, err := tableFromBytes(b)
			if table != nil {
				t.Errorf("%d: should return nil table", i)
			}
			var ubErr *UnknownBootIndicatorError
			if !errors.As(err, &ubErr) {
				t.Fatalf("%d: error was %v instead of UnknownBootIndicatorError", i, err)
			}
			if ubErr.Index() != i {
				t.Errorf("%d: error reported index %d", i, ubErr.Index())
			}
			if ubErr.Indicator() != 0x01 {
				t.Errorf("%d: error reported indicator 0x%02x", i, ubErr.Indicator())
			}
		}
	})
	t.Run("validation stops at first bad entry", func(t *testing.T) {
		b := GetValidMBRBytes()
		b[partitionEntriesStart+1*partitionEntrySize] = 0x7f
		b[partitionEntriesStart+3*partitionEntrySize] = 0x01
		_, err := tableFromBytes(b)
		var ubErr *UnknownBootIndicatorError
		if !errors.As(err, &ubErr) {
			t.Fatalf("error was %v instead of UnknownBootIndicatorError", err)
		}
		if ubErr.Index() != 1 {
			t.Errorf("error reported index %d instead of first bad entry 1", ubErr.Index())
		}
	})
	t.Run("valid table", func(t *testing.T) {
		b := GetValidMBRBytes()
		table, err := tableFromBytes(b)
		if err != nil {
			t.Fatalf("returned non-nil error: %v", err)
		}
		if table == nil {
			t.Fatal("should not return nil table")
		}
		expected := GetValidTable()
		if !table.Equal(expected) {
			t.Errorf("actual table was %v instead of expected %v", table, expected)
		}
	})
}

func TestTableToBytes(t *testing.T) {
	b := GetValidMBRBytes()
	table, err := tableFromBytes(b)
	if err != nil {
		t.Fatalf("error parsing valid MBR: %v", err)
	}
	out := table.ToBytes()
	if !bytes.Equal(out, b) {
		t.Error("re-encoded MBR did not match input bytes")
	}
}

func TestPartitionDecodedFields(t *testing.T) {
	b := GetValidMBRBytes()
	table, err := tableFromBytes(b)
	if err != nil {
		t.Fatalf("error parsing valid MBR: %v", err)
	}
	p := table.Partitions[0]
	entry := b[partitionEntriesStart : partitionEntriesStart+partitionEntrySize]
	if got := binary.LittleEndian.Uint32(entry[8:12]); p.Start != got {
		t.Errorf("Start %d did not match raw bytes %d", p.Start, got)
	}
	if got := binary.LittleEndian.Uint32(entry[12:16]); p.Size != got {
		t.Errorf("Size %d did not match raw bytes %d", p.Size, got)
	}
	if byte(p.Type) != entry[4] {
		t.Errorf("Type 0x%02x did not match raw byte 0x%02x", byte(p.Type), entry[4])
	}
	if !p.Bootable {
		t.Error("entry 0 should be bootable")
	}
}
