// Package blockfs implements the block-device layers underneath a FAT32
// filesystem driver: Master Boot Record and BIOS Parameter Block parsing,
// and a caching, address-translating partition device.
//
// This does not mount any disks or filesystems through the operating
// system; it works on the bytes directly, whether from a block device in
// /dev or a disk image.
//
// Some examples:
//
// 1. Inspect the partition table of a disk image.
//
//	dev, err := blockfs.Open("/tmp/disk.img")
//	table, err := mbr.Read(dev)
//	for i, p := range table.Partitions {
//		fmt.Printf("%d: type %02x start %d size %d\n", i, p.Type, p.Start, p.Size)
//	}
//
// 2. Mount the first FAT32 partition of an image as a cached logical
// device and read its first logical sector.
//
//	dev, err := blockfs.Open("/tmp/disk.img")
//	volume, err := blockfs.Mount(dev)
//	buf := make([]byte, volume.SectorSize())
//	n, err := volume.ReadSector(0, buf)
package blockfs

import (
	"errors"
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/blockfs/go-blockfs/blockdevice"
	"github.com/blockfs/go-blockfs/blockdevice/file"
	"github.com/blockfs/go-blockfs/partition/mbr"
	"github.com/blockfs/go-blockfs/vfat"
)

// Open opens the disk image or block device at path.
//
// Regular files are treated as disk images; xz- and lz4-compressed images
// are detected and served read-only from memory. OS block devices report
// the sector size the kernel knows for them, where the platform supports
// asking.
func Open(path string) (blockdevice.Device, error) {
	if path == "" {
		return nil, errors.New("must pass device name")
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("provided device %s does not exist", path)
	}
	if err != nil {
		return nil, fmt.Errorf("could not stat device %s: %w", path, err)
	}

	mode := info.Mode()
	switch {
	case mode.IsRegular():
		return file.OpenImage(path)
	case mode&os.ModeDevice != 0:
		f, err := os.OpenFile(path, os.O_RDWR|os.O_EXCL, 0o600)
		if err != nil {
			return nil, fmt.Errorf("could not open device %s exclusively: %w", path, err)
		}
		size, err := f.Seek(0, io.SeekEnd)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("could not get size of device %s: %w", path, err)
		}
		logical, physical, err := sectorSizes(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("unable to get sector sizes for device %s: %w", path, err)
		}
		log.WithFields(log.Fields{
			"device":   path,
			"logical":  logical,
			"physical": physical,
		}).Debug("detected device sector sizes")
		return file.New(f, size, logical)
	default:
		return nil, fmt.Errorf("device %s is neither a block device nor a regular file", path)
	}
}

// Mount assembles the cached logical view of the first FAT32 partition on
// d: it parses the MBR, finds the first FAT32 partition entry, parses the
// volume's BIOS Parameter Block, and wraps d in a vfat.CachedPartition for
// a filesystem driver to sit on.
//
// Any parse failure aborts the mount; there is no partial mount.
func Mount(d blockdevice.Device, opts ...vfat.CachedPartitionOption) (*vfat.CachedPartition, error) {
	table, err := mbr.Read(d)
	if err != nil {
		return nil, fmt.Errorf("error reading partition table: %w", err)
	}
	part := table.FAT32Partition()
	if part == nil {
		return nil, errors.New("no FAT32 partition in partition table")
	}
	log.WithFields(log.Fields{
		"start": part.Start,
		"size":  part.Size,
		"type":  fmt.Sprintf("%#02x", byte(part.Type)),
	}).Debug("found FAT32 partition")

	bpb, err := vfat.ReadBPB(d, uint64(part.Start))
	if err != nil {
		return nil, fmt.Errorf("error reading BPB at sector %d: %w", part.Start, err)
	}
	log.WithFields(log.Fields{
		"bytesPerSector":    bpb.BytesPerSector,
		"sectorsPerCluster": bpb.SectorsPerCluster,
		"sectorsPerFAT":     bpb.SectorsPerFAT,
		"rootCluster":       bpb.RootDirectoryCluster,
		"logicalSectors":    bpb.LogicalSectorCount(),
	}).Debug("parsed BIOS parameter block")

	partition := vfat.Partition{
		Start:      uint64(part.Start),
		NumSectors: uint64(bpb.LogicalSectorCount()),
		SectorSize: int(bpb.BytesPerSector),
	}
	return vfat.NewCachedPartition(d, partition, opts...)
}
