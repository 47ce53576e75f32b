package vfat

// lru tracks cached logical sectors in least-recently-used order, for
// CachedPartitions constructed with a cache limit. The list is doubly
// linked through a sentinel root: most recently used at root.next, least
// recently used at root.prev.
type lruSector struct {
	prev, next *lruSector
	sector     uint64
}

type lru struct {
	root       lruSector
	sectors    map[uint64]*lruSector
	maxSectors int
}

func newLRU(maxSectors int) *lru {
	l := &lru{
		sectors:    make(map[uint64]*lruSector, maxSectors),
		maxSectors: maxSectors,
	}
	l.root.prev = &l.root
	l.root.next = &l.root
	return l
}

// push links e in at the most recently used end.
func (l *lru) push(e *lruSector) {
	e.prev = &l.root
	e.next = l.root.next
	e.prev.next = e
	e.next.prev = e
}

// unlink removes e from the list.
func (l *lru) unlink(e *lruSector) {
	e.prev.next = e.next
	e.next.prev = e.prev
	e.prev = nil
	e.next = nil
}

// insert records sector as most recently used.
func (l *lru) insert(sector uint64) {
	e := &lruSector{sector: sector}
	l.sectors[sector] = e
	l.push(e)
}

// touch marks an already-tracked sector as most recently used.
func (l *lru) touch(sector uint64) {
	if e, ok := l.sectors[sector]; ok {
		l.unlink(e)
		l.push(e)
	}
}

// remove drops sector from the list entirely.
func (l *lru) remove(sector uint64) {
	if e, ok := l.sectors[sector]; ok {
		l.unlink(e)
		delete(l.sectors, sector)
	}
}

// evictable returns the least recently used sector when the list is over
// its bound.
func (l *lru) evictable() (uint64, bool) {
	if len(l.sectors) <= l.maxSectors {
		return 0, false
	}
	return l.root.prev.sector, true
}
