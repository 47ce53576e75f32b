package vfat

import (
	"fmt"
	"io"
	"sort"

	"github.com/blockfs/go-blockfs/blockdevice"
)

// cacheEntry holds one logical sector's bytes, plus whether they have
// diverged from the device since they were loaded.
type cacheEntry struct {
	data  []byte
	dirty bool
}

// CachedPartition translates logical, partition-relative sector addresses
// to physical addresses on an underlying device, and serves all reads and
// writes through an in-memory write-back sector cache. It implements
// blockdevice.Device itself, so a filesystem driver can sit on top of it
// without knowing about the translation.
//
// A logical sector may span several physical sectors; Factor reports the
// ratio. Each logical sector is loaded from the device at most once for as
// long as it stays cached, and writes touch the device only through Flush,
// FlushSector, or eviction from a bounded cache.
//
// CachedPartition is not safe for concurrent use; callers that share one
// across goroutines must serialize access externally.
type CachedPartition struct {
	device    blockdevice.Device
	partition Partition
	cache     map[uint64]*cacheEntry
	// lru is nil unless the cache was bounded with WithCacheLimit
	lru *lru
}

// CachedPartitionOption adjusts a CachedPartition at construction.
type CachedPartitionOption func(*CachedPartition)

// WithCacheLimit bounds the cache to at most maxSectors logical sectors.
// Inserting beyond the bound evicts the least recently used sector,
// writing it back to the device first if it is dirty. Without this option
// the cache is unbounded and entries live until the CachedPartition is
// discarded. NewCachedPartition rejects limits below one sector.
func WithCacheLimit(maxSectors int) CachedPartitionOption {
	return func(c *CachedPartition) {
		c.lru = newLRU(maxSectors)
	}
}

// NewCachedPartition returns a CachedPartition over device for the logical
// volume described by partition.
//
// The partition's logical sector size must be at least the device's
// physical sector size and an exact integer multiple of it; anything else
// is a configuration error reported here, not at first access.
func NewCachedPartition(device blockdevice.Device, partition Partition, opts ...CachedPartitionOption) (*CachedPartition, error) {
	physical := device.SectorSize()
	if physical <= 0 {
		return nil, fmt.Errorf("device reports invalid sector size %d", physical)
	}
	if partition.SectorSize < physical {
		return nil, fmt.Errorf("logical sector size %d smaller than device sector size %d", partition.SectorSize, physical)
	}
	if partition.SectorSize%physical != 0 {
		return nil, fmt.Errorf("logical sector size %d not a multiple of device sector size %d", partition.SectorSize, physical)
	}
	c := &CachedPartition{
		device:    device,
		partition: partition,
		cache:     map[uint64]*cacheEntry{},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.lru != nil && c.lru.maxSectors < 1 {
		return nil, fmt.Errorf("cache limit must be at least 1 sector, was %d", c.lru.maxSectors)
	}
	return c, nil
}

// Factor returns the number of physical device sectors that make up one
// logical sector.
func (c *CachedPartition) Factor() uint64 {
	return uint64(c.partition.SectorSize / c.device.SectorSize())
}

// translate maps a logical sector to the first physical sector backing it.
func (c *CachedPartition) translate(sector uint64) (uint64, error) {
	if sector >= c.partition.NumSectors {
		return 0, NewOutOfRangeError(sector, c.partition.NumSectors)
	}
	return c.partition.Start + sector*c.Factor(), nil
}

// load reads the physical sectors backing one logical sector into a
// freshly allocated buffer, lowest physical sector first. The buffer is
// owned by this call alone; nothing is shared across calls.
func (c *CachedPartition) load(sector uint64) ([]byte, error) {
	physical, err := c.translate(sector)
	if err != nil {
		return nil, err
	}
	pss := c.device.SectorSize()
	buf := make([]byte, c.partition.SectorSize)
	for i := uint64(0); i < c.Factor(); i++ {
		chunk := buf[int(i)*pss : int(i+1)*pss]
		n, err := c.device.ReadSector(physical+i, chunk)
		if err != nil {
			return nil, fmt.Errorf("error reading physical sector %d: %w", physical+i, err)
		}
		if n < pss {
			return nil, fmt.Errorf("read %d bytes of %d from physical sector %d: %w", n, pss, physical+i, io.ErrUnexpectedEOF)
		}
	}
	return buf, nil
}

// entry returns the cache entry for a logical sector, loading it from the
// device on first access. A failed load inserts nothing, so a later retry
// loads again.
func (c *CachedPartition) entry(sector uint64) (*cacheEntry, error) {
	if e, ok := c.cache[sector]; ok {
		if c.lru != nil {
			c.lru.touch(sector)
		}
		return e, nil
	}
	data, err := c.load(sector)
	if err != nil {
		return nil, err
	}
	e := &cacheEntry{data: data}
	c.cache[sector] = e
	if c.lru != nil {
		c.lru.insert(sector)
		if victim, ok := c.lru.evictable(); ok {
			if err := c.evict(victim); err != nil {
				return nil, fmt.Errorf("error evicting logical sector %d: %w", victim, err)
			}
		}
	}
	return e, nil
}

// evict writes a dirty victim back to the device and drops it from the
// cache. If the write-back fails the victim stays cached and the cache
// stays over its bound until a later insert retries.
func (c *CachedPartition) evict(victim uint64) error {
	e, ok := c.cache[victim]
	if !ok {
		c.lru.remove(victim)
		return nil
	}
	if e.dirty {
		if err := c.writeBack(victim, e); err != nil {
			return err
		}
		e.dirty = false
	}
	delete(c.cache, victim)
	c.lru.remove(victim)
	return nil
}

// writeBack writes one logical sector's cached bytes to the physical
// sectors backing it, lowest physical sector first. The entry's dirty flag
// is left for the caller to clear.
func (c *CachedPartition) writeBack(sector uint64, e *cacheEntry) error {
	physical, err := c.translate(sector)
	if err != nil {
		return err
	}
	pss := c.device.SectorSize()
	for i := uint64(0); i < c.Factor(); i++ {
		chunk := e.data[int(i)*pss : int(i+1)*pss]
		n, err := c.device.WriteSector(physical+i, chunk)
		if err != nil {
			return fmt.Errorf("error writing physical sector %d: %w", physical+i, err)
		}
		if n < pss {
			return fmt.Errorf("wrote %d bytes of %d to physical sector %d: %w", n, pss, physical+i, io.ErrShortWrite)
		}
	}
	return nil
}

// Sector returns a read-only view of the cached bytes for a logical
// sector, loading it from the device on first access. The returned slice
// is owned by the cache and valid until the sector is evicted; callers
// that intend to modify it must use SectorForWrite instead.
func (c *CachedPartition) Sector(sector uint64) ([]byte, error) {
	e, err := c.entry(sector)
	if err != nil {
		return nil, err
	}
	return e.data, nil
}

// SectorForWrite returns a mutable view of the cached bytes for a logical
// sector and marks the sector dirty, on the assumption that the caller
// will modify it. Callers that only need to look use Sector.
func (c *CachedPartition) SectorForWrite(sector uint64) ([]byte, error) {
	e, err := c.entry(sector)
	if err != nil {
		return nil, err
	}
	e.dirty = true
	return e.data, nil
}

// SectorSize returns the logical sector size of the partition, satisfying
// blockdevice.Device for the layer above.
func (c *CachedPartition) SectorSize() int {
	return c.partition.SectorSize
}

// ReadSector copies up to min(len(b), SectorSize()) bytes of the given
// logical sector into b, serving from the cache after the first load.
func (c *CachedPartition) ReadSector(sector uint64, b []byte) (int, error) {
	s, err := c.Sector(sector)
	if err != nil {
		return 0, err
	}
	return copy(b, s), nil
}

// WriteSector copies up to min(len(b), SectorSize()) bytes from b into the
// cached logical sector, marking it dirty. The device is not touched;
// call Flush to persist.
func (c *CachedPartition) WriteSector(sector uint64, b []byte) (int, error) {
	s, err := c.SectorForWrite(sector)
	if err != nil {
		return 0, err
	}
	return copy(s, b), nil
}

// Flush writes every dirty cached sector back to the device in ascending
// logical sector order and marks them clean. On error the failed sector
// and all later ones stay dirty, so Flush can be retried.
func (c *CachedPartition) Flush() error {
	dirty := make([]uint64, 0, len(c.cache))
	for sector, e := range c.cache {
		if e.dirty {
			dirty = append(dirty, sector)
		}
	}
	sort.Slice(dirty, func(i, j int) bool { return dirty[i] < dirty[j] })
	for _, sector := range dirty {
		e := c.cache[sector]
		if err := c.writeBack(sector, e); err != nil {
			return fmt.Errorf("error flushing logical sector %d: %w", sector, err)
		}
		e.dirty = false
	}
	return nil
}

// FlushSector writes one cached sector back to the device if it is cached
// and dirty; otherwise it does nothing.
func (c *CachedPartition) FlushSector(sector uint64) error {
	e, ok := c.cache[sector]
	if !ok || !e.dirty {
		return nil
	}
	if err := c.writeBack(sector, e); err != nil {
		return fmt.Errorf("error flushing logical sector %d: %w", sector, err)
	}
	e.dirty = false
	return nil
}

// CachedSectors returns how many logical sectors are currently cached.
func (c *CachedPartition) CachedSectors() int {
	return len(c.cache)
}

// blockdevice.Device interface guard
var _ blockdevice.Device = (*CachedPartition)(nil)
