package vfat_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/blockfs/go-blockfs/testhelper"
	"github.com/blockfs/go-blockfs/vfat"
)

func TestReadBPB(t *testing.T) {
	t.Run("error reading device", func(t *testing.T) {
		d := &testhelper.DeviceImpl{
			Reader: func(sector uint64, b []byte) (int, error) {
				return 0, errors.New("read failed")
			},
		}
		bpb, err := vfat.ReadBPB(d, 2048)
		if bpb != nil {
			t.Error("should return nil bpb")
		}
		expected := "error reading BPB from sector 2048"
		if err == nil || !strings.HasPrefix(err.Error(), expected) {
			t.Errorf("error type %v instead of expected %s", err, expected)
		}
	})
	t.Run("short read", func(t *testing.T) {
		d := &testhelper.DeviceImpl{
			Reader: func(sector uint64, b []byte) (int, error) {
				return 200, nil
			},
		}
		bpb, err := vfat.ReadBPB(d, 2048)
		if bpb != nil {
			t.Error("should return nil bpb")
		}
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Errorf("error was %v instead of wrapped %v", err, io.ErrUnexpectedEOF)
		}
	})
	t.Run("reads the requested sector", func(t *testing.T) {
		var requested uint64
		d := &testhelper.DeviceImpl{
			Reader: func(sector uint64, b []byte) (int, error) {
				requested = sector
				return copy(b, vfat.GetValidBPBBytes()), nil
			},
		}
		bpb, err := vfat.ReadBPB(d, 2048)
		if err != nil {
			t.Fatalf("returned non-nil error: %v", err)
		}
		if requested != 2048 {
			t.Errorf("read sector %d instead of 2048", requested)
		}
		if d.Reads != 1 {
			t.Errorf("read %d sectors instead of 1", d.Reads)
		}
		if bpb.BytesPerSector != 512 || bpb.RootDirectoryCluster != 2 {
			t.Errorf("decoded unexpected geometry: %+v", bpb)
		}
	})
}
