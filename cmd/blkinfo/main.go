// Command blkinfo prints the partition table and FAT32 volume geometry of
// a disk image or block device, and can hex-dump logical sectors of the
// mounted volume.
package main

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/blockfs/go-blockfs"
	"github.com/blockfs/go-blockfs/partition/mbr"
	"github.com/blockfs/go-blockfs/util"
	"github.com/blockfs/go-blockfs/vfat"
)

var (
	flagDebug  bool
	flagSector int64
)

func main() {
	cmd := &cobra.Command{
		Use:   "blkinfo <image-or-device>",
		Short: "inspect the MBR partition table and FAT32 volume of a disk",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if flagDebug {
				log.SetLevel(log.DebugLevel)
			}
			return run(args[0])
		},
		SilenceUsage: true,
	}
	cmd.Flags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	cmd.Flags().Int64Var(&flagSector, "sector", -1, "hex-dump the given logical sector of the FAT32 volume")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(path string) error {
	dev, err := blockfs.Open(path)
	if err != nil {
		return err
	}

	table, err := mbr.Read(dev)
	if err != nil {
		return fmt.Errorf("error reading partition table: %w", err)
	}
	fmt.Printf("disk id: %x\n", table.DiskID)
	fmt.Println("partitions:")
	for i, p := range table.Partitions {
		boot := " "
		if p.Bootable {
			boot = "*"
		}
		fmt.Printf("  %d %s type %#02x  start %-10d size %d\n", i, boot, byte(p.Type), p.Start, p.Size)
	}

	part := table.FAT32Partition()
	if part == nil {
		fmt.Println("no FAT32 partition")
		return nil
	}

	bpb, err := vfat.ReadBPB(dev, uint64(part.Start))
	if err != nil {
		return fmt.Errorf("error reading BPB: %w", err)
	}
	fmt.Printf("FAT32 volume at sector %d:\n", part.Start)
	fmt.Printf("  OEM name:            %s\n", strings.TrimRight(string(bpb.OEMName[:]), " \x00"))
	fmt.Printf("  volume label:        %s\n", strings.TrimRight(string(bpb.VolumeLabel[:]), " \x00"))
	fmt.Printf("  volume serial:       %08x\n", bpb.VolumeSerialNumber)
	fmt.Printf("  bytes/sector:        %d\n", bpb.BytesPerSector)
	fmt.Printf("  sectors/cluster:     %d\n", bpb.SectorsPerCluster)
	fmt.Printf("  reserved sectors:    %d\n", bpb.ReservedSectors)
	fmt.Printf("  FAT copies:          %d\n", bpb.FATCount)
	fmt.Printf("  sectors/FAT:         %d\n", bpb.SectorsPerFAT)
	fmt.Printf("  root cluster:        %d\n", bpb.RootDirectoryCluster)
	fmt.Printf("  logical sectors:     %d\n", bpb.LogicalSectorCount())

	if flagSector < 0 {
		return nil
	}

	volume, err := blockfs.Mount(dev)
	if err != nil {
		return err
	}
	buf := make([]byte, volume.SectorSize())
	n, err := volume.ReadSector(uint64(flagSector), buf)
	if err != nil {
		return fmt.Errorf("error reading logical sector %d: %w", flagSector, err)
	}
	fmt.Printf("logical sector %d:\n", flagSector)
	fmt.Print(util.DumpByteSlice(buf[:n]))
	return nil
}
