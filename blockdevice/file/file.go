// Package file implements blockdevice.Device on top of files and disk
// images, including read-only access to xz- and lz4-compressed images.
package file

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pierrec/lz4"
	"github.com/ulikunitz/xz"

	"github.com/blockfs/go-blockfs/blockdevice"
)

// File is the minimal handle a Device needs for read access.
type File interface {
	io.ReaderAt
	io.Closer
}

// WritableFile is a File that also supports writes.
type WritableFile interface {
	File
	io.WriterAt
}

// Device is a blockdevice.Device backed by a file or disk image.
type Device struct {
	file       File
	writable   io.WriterAt
	size       int64
	sectorSize int
}

// New returns a Device over f covering size bytes. If f also implements
// io.WriterAt the device is writable, otherwise WriteSector fails with
// blockdevice.ErrReadOnlyDevice. A sectorSize of 0 means
// blockdevice.DefaultSectorSize.
func New(f File, size int64, sectorSize int) (*Device, error) {
	if sectorSize == 0 {
		sectorSize = blockdevice.DefaultSectorSize
	}
	if sectorSize < 0 {
		return nil, fmt.Errorf("invalid sector size %d", sectorSize)
	}
	if size < 0 {
		return nil, fmt.Errorf("invalid device size %d", size)
	}
	d := &Device{file: f, size: size, sectorSize: sectorSize}
	if w, ok := f.(io.WriterAt); ok {
		d.writable = w
	}
	return d, nil
}

// Open opens the file or block device at path as a Device with the default
// sector size.
func Open(path string, readOnly bool) (*Device, error) {
	if path == "" {
		return nil, errors.New("must pass device or file name")
	}
	mode := os.O_RDONLY
	if !readOnly {
		mode = os.O_RDWR
	}
	f, err := os.OpenFile(path, mode, 0o600)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("could not stat %s: %w", path, err)
	}
	var file File = f
	if readOnly {
		// drop the WriterAt so New builds a read-only device
		file = struct {
			io.ReaderAt
			io.Closer
		}{f, f}
	}
	return New(file, info.Size(), blockdevice.DefaultSectorSize)
}

var (
	xzMagic  = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	lz4Magic = []byte{0x04, 0x22, 0x4d, 0x18}
)

// OpenImage opens a disk image at path. Raw images are opened read-write
// and their size must be a multiple of the sector size. Images compressed
// with xz or lz4 are detected by their frame magic, decompressed into
// memory, and served read-only.
func OpenImage(path string) (blockdevice.Device, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open image %s: %w", path, err)
	}
	magic := make([]byte, 6)
	n, err := f.ReadAt(magic, 0)
	if err != nil && err != io.EOF {
		f.Close()
		return nil, fmt.Errorf("could not read image header %s: %w", path, err)
	}
	magic = magic[:n]

	switch {
	case bytes.HasPrefix(magic, xzMagic):
		defer f.Close()
		r, err := xz.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("could not read xz image %s: %w", path, err)
		}
		return memDeviceFromStream(r, path)
	case bytes.HasPrefix(magic, lz4Magic):
		defer f.Close()
		return memDeviceFromStream(lz4.NewReader(f), path)
	}
	f.Close()

	d, err := Open(path, false)
	if err != nil {
		return nil, err
	}
	if d.size%int64(d.sectorSize) != 0 {
		d.Close()
		return nil, fmt.Errorf("invalid image size %d, expected a multiple of %d", d.size, d.sectorSize)
	}
	return d, nil
}

func memDeviceFromStream(r io.Reader, path string) (blockdevice.Device, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("could not decompress image %s: %w", path, err)
	}
	if int64(len(b))%blockdevice.DefaultSectorSize != 0 {
		return nil, fmt.Errorf("invalid decompressed image size %d, expected a multiple of %d", len(b), blockdevice.DefaultSectorSize)
	}
	return blockdevice.NewMemDeviceReadOnly(b, blockdevice.DefaultSectorSize)
}

func (d *Device) SectorSize() int {
	return d.sectorSize
}

// Sectors returns the number of sectors on the device, counting a trailing
// partial sector as one.
func (d *Device) Sectors() uint64 {
	return uint64((d.size + int64(d.sectorSize) - 1) / int64(d.sectorSize))
}

// ReadSector reads up to min(len(b), SectorSize()) bytes from the given
// sector. A sector truncated by the end of the file yields a short read
// with a nil error.
func (d *Device) ReadSector(sector uint64, b []byte) (int, error) {
	offset, limit, err := d.span(sector, len(b))
	if err != nil {
		return 0, err
	}
	n, err := d.file.ReadAt(b[:limit], offset)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

// WriteSector writes up to min(len(b), SectorSize()) bytes to the given
// sector.
func (d *Device) WriteSector(sector uint64, b []byte) (int, error) {
	if d.writable == nil {
		return 0, blockdevice.ErrReadOnlyDevice
	}
	offset, limit, err := d.span(sector, len(b))
	if err != nil {
		return 0, err
	}
	return d.writable.WriteAt(b[:limit], offset)
}

func (d *Device) Close() error {
	return d.file.Close()
}

// span returns the byte offset of sector and how many bytes of a
// bufLen-byte transfer fit within the sector and the device.
func (d *Device) span(sector uint64, bufLen int) (offset int64, limit int, err error) {
	off := sector * uint64(d.sectorSize)
	if off >= uint64(d.size) {
		return 0, 0, &blockdevice.OutOfRangeError{Sector: sector, Sectors: d.Sectors()}
	}
	offset = int64(off)
	limit = bufLen
	if limit > d.sectorSize {
		limit = d.sectorSize
	}
	if rest := d.size - offset; int64(limit) > rest {
		limit = int(rest)
	}
	return offset, limit, nil
}

// blockdevice.Device interface guard
var _ blockdevice.Device = (*Device)(nil)
