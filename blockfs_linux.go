//go:build linux
// +build linux

package blockfs

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

const (
	blksszGet = 0x1268
	blkbszGet = 0x80081270
)

// sectorSizes asks the kernel for the logical and physical sector sizes
// of a block device.
func sectorSizes(f *os.File) (logical, physical int, err error) {
	fd := int(f.Fd())
	logical, err = unix.IoctlGetInt(fd, blksszGet)
	if err != nil {
		return 0, 0, fmt.Errorf("unable to get device logical sector size: %v", err)
	}
	physical, err = unix.IoctlGetInt(fd, blkbszGet)
	if err != nil {
		return 0, 0, fmt.Errorf("unable to get device physical sector size: %v", err)
	}
	return logical, physical, nil
}
