package blockdevice

import "fmt"

// MemDevice is a Device backed by an in-memory byte slice. It is used for
// decompressed disk images, which cannot be written back to their source,
// and for tests.
type MemDevice struct {
	data       []byte
	sectorSize int
	readOnly   bool
}

// NewMemDevice returns a read-write MemDevice over b with the given sector
// size. b is used directly, not copied. A sectorSize of 0 means
// DefaultSectorSize.
func NewMemDevice(b []byte, sectorSize int) (*MemDevice, error) {
	return newMemDevice(b, sectorSize, false)
}

// NewMemDeviceReadOnly returns a MemDevice over b whose WriteSector always
// fails with ErrReadOnlyDevice.
func NewMemDeviceReadOnly(b []byte, sectorSize int) (*MemDevice, error) {
	return newMemDevice(b, sectorSize, true)
}

func newMemDevice(b []byte, sectorSize int, readOnly bool) (*MemDevice, error) {
	if sectorSize == 0 {
		sectorSize = DefaultSectorSize
	}
	if sectorSize < 0 {
		return nil, fmt.Errorf("invalid sector size %d", sectorSize)
	}
	return &MemDevice{data: b, sectorSize: sectorSize, readOnly: readOnly}, nil
}

func (d *MemDevice) SectorSize() int {
	return d.sectorSize
}

// Sectors returns the number of sectors on the device, counting a trailing
// partial sector as one.
func (d *MemDevice) Sectors() uint64 {
	return uint64((len(d.data) + d.sectorSize - 1) / d.sectorSize)
}

// ReadSector copies up to min(len(b), SectorSize()) bytes from the given
// sector into b. A sector truncated by the end of the data yields a short
// read with a nil error.
func (d *MemDevice) ReadSector(sector uint64, b []byte) (int, error) {
	start, end, err := d.span(sector)
	if err != nil {
		return 0, err
	}
	return copy(b, d.data[start:end]), nil
}

// WriteSector copies up to min(len(b), SectorSize()) bytes from b into the
// given sector.
func (d *MemDevice) WriteSector(sector uint64, b []byte) (int, error) {
	if d.readOnly {
		return 0, ErrReadOnlyDevice
	}
	start, end, err := d.span(sector)
	if err != nil {
		return 0, err
	}
	return copy(d.data[start:end], b), nil
}

// span returns the byte range covered by sector, capped at the end of the
// data.
func (d *MemDevice) span(sector uint64) (start, end int, err error) {
	offset := sector * uint64(d.sectorSize)
	if offset >= uint64(len(d.data)) {
		return 0, 0, &OutOfRangeError{Sector: sector, Sectors: d.Sectors()}
	}
	start = int(offset)
	end = start + d.sectorSize
	if end > len(d.data) {
		end = len(d.data)
	}
	return start, end, nil
}
