package testhelper

import (
	"fmt"

	"github.com/blockfs/go-blockfs/blockdevice"
)

type sectorReader func(sector uint64, b []byte) (int, error)
type sectorWriter func(sector uint64, b []byte) (int, error)

// DeviceImpl implements blockdevice.Device, used for testing to stub out
// devices and count sector accesses.
type DeviceImpl struct {
	SectorSz int
	Reader   sectorReader
	Writer   sectorWriter
	// Reads counts ReadSector calls, including failed ones
	Reads int
	// Writes counts WriteSector calls, including failed ones
	Writes int
}

// SectorSize returns the configured size, or blockdevice.DefaultSectorSize
// when unset.
func (d *DeviceImpl) SectorSize() int {
	if d.SectorSz == 0 {
		return blockdevice.DefaultSectorSize
	}
	return d.SectorSz
}

func (d *DeviceImpl) ReadSector(sector uint64, b []byte) (int, error) {
	d.Reads++
	if d.Reader == nil {
		return 0, fmt.Errorf("DeviceImpl has no Reader")
	}
	return d.Reader(sector, b)
}

func (d *DeviceImpl) WriteSector(sector uint64, b []byte) (int, error) {
	d.Writes++
	if d.Writer == nil {
		return 0, fmt.Errorf("DeviceImpl has no Writer")
	}
	return d.Writer(sector, b)
}

// blockdevice.Device interface guard
var _ blockdevice.Device = (*DeviceImpl)(nil)
