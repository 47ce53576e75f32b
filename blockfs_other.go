//go:build !linux
// +build !linux

package blockfs

import (
	"os"

	"github.com/blockfs/go-blockfs/blockdevice"
)

// sectorSizes returns the default sector size on platforms where we cannot
// ask the kernel.
//
//nolint:unparam // signature shared with the linux implementation
func sectorSizes(_ *os.File) (logical, physical int, err error) {
	return blockdevice.DefaultSectorSize, blockdevice.DefaultSectorSize, nil
}
