// Package bufferpool caches disk pages in fixed frames, evicting via an
// LRU replacer when every frame is in use. It is the Go-idiom
// re-expression of the teacher's storage_engine/bufferpool package: same
// pin/unpin/fetch/new/delete/flush surface and the same habit of wrapping
// underlying errors with fmt.Errorf, but driven by an injected replacer
// instead of a hand-rolled access-order slice, and never evicting a pinned
// frame or scanning frames directly the way an earlier, buggy revision of
// the reference implementation does.
package bufferpool

import (
	"fmt"
	"sync"

	"storagecore/internal/dblog"
	"storagecore/storage_engine/page"
	"storagecore/storage_engine/replacer"
)

// Disk is the narrow collaborator a pool needs from a disk manager —
// mirrors the teacher's pattern of depending on a small interface
// (WALFlushedLSNGetter) rather than a concrete type.
type Disk interface {
	ReadPage(id page.ID, buf *[page.Size]byte) error
	WritePage(id page.ID, buf *[page.Size]byte) error
}

// Pool is a single buffer pool instance: a fixed array of frames, a
// page-id → frame-id map, a free list, and an LRU replacer for frames that
// are in use but currently unpinned.
type Pool struct {
	mu       sync.Mutex
	frames   []page.Frame
	table    map[page.ID]page.FrameID
	free     []page.FrameID
	replacer *replacer.LRU
	disk     Disk

	nextPageID   page.ID
	numInstances int
	instanceIdx  int
}

// New returns a standalone single-instance pool of the given frame
// capacity, backed by disk for misses and flushes.
func New(capacity int, disk Disk) *Pool {
	return newInstance(capacity, disk, 1, 0)
}

func newInstance(capacity int, disk Disk, numInstances, instanceIdx int) *Pool {
	frames := make([]page.Frame, capacity)
	free := make([]page.FrameID, capacity)
	for i := range frames {
		frames[i].Reset()
		free[i] = page.FrameID(i)
	}
	return &Pool{
		frames:       frames,
		table:        make(map[page.ID]page.FrameID, capacity),
		free:         free,
		replacer:     replacer.New(capacity),
		disk:         disk,
		nextPageID:   page.ID(instanceIdx),
		numInstances: numInstances,
		instanceIdx:  instanceIdx,
	}
}

// PoolSize returns the frame capacity of this instance.
func (p *Pool) PoolSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

// victimFrame picks a frame to (re)use: the free list first, then the
// replacer. Returns false if every frame is pinned.
func (p *Pool) victimFrame() (page.FrameID, bool) {
	if n := len(p.free); n > 0 {
		fid := p.free[n-1]
		p.free = p.free[:n-1]
		return fid, true
	}
	return p.replacer.Victim()
}

// evict prepares frame fid for reuse: flushing it if dirty and removing
// its old page-id mapping. fid must not be pinned. The table mapping is
// dropped even on a flush failure — the caller is about to overwrite or
// free fid either way, and leaving p.table pointing at a frame the caller
// no longer owns would let a later fetch of the old page id silently
// return whatever page ends up reusing fid.
func (p *Pool) evict(fid page.FrameID) error {
	fr := &p.frames[fid]
	if fr.PageID == page.Invalid {
		return nil
	}
	oldID := fr.PageID
	if fr.IsDirty {
		dblog.Log.WithFields(dblog.Fields{"page_id": oldID, "frame_id": fid}).Debug("bufferpool: evict flush")
		if err := p.disk.WritePage(oldID, &fr.Data); err != nil {
			delete(p.table, oldID)
			return fmt.Errorf("bufferpool: flush page %d during eviction: %w", oldID, err)
		}
		fr.IsDirty = false
	}
	delete(p.table, oldID)
	return nil
}

func (p *Pool) allocatePageID() page.ID {
	id := p.nextPageID
	p.nextPageID += page.ID(p.numInstances)
	return id
}

// NewPage allocates a fresh page id, assigns it a frame (evicting if
// necessary), and returns the pinned, zeroed frame.
func (p *Pool) NewPage() (*page.Frame, page.ID, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fid, ok := p.victimFrame()
	if !ok {
		return nil, page.Invalid, false
	}
	if err := p.evict(fid); err != nil {
		dblog.Log.WithError(err).Error("bufferpool: new_page eviction failed")
		p.free = append(p.free, fid)
		return nil, page.Invalid, false
	}

	id := p.allocatePageID()
	fr := &p.frames[fid]
	fr.Reset()
	fr.PageID = id
	fr.PinCount = 1
	p.table[id] = fid

	dblog.Log.WithFields(dblog.Fields{"page_id": id, "frame_id": fid}).Debug("bufferpool: new_page")
	return fr, id, true
}

// FetchPage returns the frame for id, pinning it. Pages not already cached
// are loaded from disk into a free or evicted frame.
func (p *Pool) FetchPage(id page.ID) (*page.Frame, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if fid, ok := p.table[id]; ok {
		fr := &p.frames[fid]
		fr.PinCount++
		p.replacer.Pin(fid)
		dblog.Log.WithFields(dblog.Fields{"page_id": id}).Debug("bufferpool: hit")
		return fr, true
	}

	dblog.Log.WithFields(dblog.Fields{"page_id": id}).Debug("bufferpool: miss")
	fid, ok := p.victimFrame()
	if !ok {
		return nil, false
	}
	if err := p.evict(fid); err != nil {
		dblog.Log.WithError(err).Error("bufferpool: fetch_page eviction failed")
		p.free = append(p.free, fid)
		return nil, false
	}

	fr := &p.frames[fid]
	fr.Reset()
	if err := p.disk.ReadPage(id, &fr.Data); err != nil {
		dblog.Log.WithError(err).Error("bufferpool: fetch_page read failed")
		p.free = append(p.free, fid)
		return nil, false
	}
	fr.PageID = id
	fr.PinCount = 1
	p.table[id] = fid
	return fr, true
}

// UnpinPage releases one pin on id. dirty is sticky: once a frame has been
// unpinned with dirty=true it stays dirty until flushed, even if a later
// unpin passes dirty=false.
func (p *Pool) UnpinPage(id page.ID, dirty bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	fid, ok := p.table[id]
	if !ok {
		dblog.Log.WithError(ErrPageNotFound).WithFields(dblog.Fields{"page_id": id}).Error("bufferpool: unpin_page")
		return false
	}
	fr := &p.frames[fid]
	if fr.PinCount == 0 {
		return false
	}
	if dirty {
		fr.IsDirty = true
	}
	fr.PinCount--
	if fr.PinCount == 0 {
		p.replacer.Unpin(fid)
	}
	return true
}

// DeletePage removes id from the pool, flushing it first if dirty. Returns
// false only if the page is still pinned; deleting an id the pool doesn't
// have is a no-op success.
func (p *Pool) DeletePage(id page.ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	fid, ok := p.table[id]
	if !ok {
		return true
	}
	fr := &p.frames[fid]
	if fr.PinCount > 0 {
		dblog.Log.WithError(ErrPagePinned).WithFields(dblog.Fields{"page_id": id}).Error("bufferpool: delete_page")
		return false
	}
	if fr.IsDirty {
		if err := p.disk.WritePage(id, &fr.Data); err != nil {
			dblog.Log.WithError(err).Error("bufferpool: delete_page flush failed")
		}
	}
	delete(p.table, id)
	p.replacer.Pin(fid) // make sure it isn't sitting in the replacer
	fr.Reset()
	p.free = append(p.free, fid)
	return true
}

// FlushPage writes id to disk unconditionally if it is present in the
// pool, clearing its dirty flag.
func (p *Pool) FlushPage(id page.ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	fid, ok := p.table[id]
	if !ok {
		dblog.Log.WithError(ErrPageNotFound).WithFields(dblog.Fields{"page_id": id}).Error("bufferpool: flush_page")
		return false
	}
	fr := &p.frames[fid]
	if err := p.disk.WritePage(id, &fr.Data); err != nil {
		dblog.Log.WithError(err).Error("bufferpool: flush_page failed")
		return false
	}
	fr.IsDirty = false
	return true
}

// FlushAllPages writes every cached page to disk.
func (p *Pool) FlushAllPages() {
	p.mu.Lock()
	defer p.mu.Unlock()

	dblog.Log.WithFields(dblog.Fields{"count": len(p.table)}).Debug("bufferpool: flush_all")
	for id, fid := range p.table {
		fr := &p.frames[fid]
		if err := p.disk.WritePage(id, &fr.Data); err != nil {
			dblog.Log.WithError(err).Error("bufferpool: flush_all page failed")
			continue
		}
		fr.IsDirty = false
	}
}
