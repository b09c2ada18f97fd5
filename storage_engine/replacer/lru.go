// Package replacer implements the buffer pool's eviction policy: an O(1)
// LRU replacer over unpinned frames, grounded on the victim/pin/unpin
// semantics of original_source's lru_replacer.cpp (list + lookup map)
// rather than its container types — this module uses the standard
// library's container/list the way the teacher's own code favors stdlib
// data structures over hand-rolled ones.
package replacer

import (
	"container/list"
	"sync"

	"storagecore/storage_engine/page"
)

// LRU tracks frames that are currently unpinned and eligible for eviction.
// The most recently unpinned frame sits at the front of the list; Victim
// always evicts from the back (least recently unpinned).
type LRU struct {
	mu    sync.Mutex
	order *list.List
	index map[page.FrameID]*list.Element
}

// New returns an LRU replacer. capacity is informational only: the
// replacer never holds more entries than the pool has frames, so nothing
// is enforced beyond what the caller already guarantees by construction.
func New(capacity int) *LRU {
	return &LRU{
		order: list.New(),
		index: make(map[page.FrameID]*list.Element, capacity),
	}
}

// Victim evicts and returns the least-recently-unpinned frame, if any.
func (l *LRU) Victim() (page.FrameID, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	back := l.order.Back()
	if back == nil {
		return 0, false
	}
	fid := back.Value.(page.FrameID)
	l.order.Remove(back)
	delete(l.index, fid)
	return fid, true
}

// Pin removes a frame from eviction consideration. A no-op if the frame
// isn't tracked (already pinned, or never unpinned).
func (l *LRU) Pin(fid page.FrameID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	elem, ok := l.index[fid]
	if !ok {
		return
	}
	l.order.Remove(elem)
	delete(l.index, fid)
}

// Unpin makes a frame eligible for eviction. A no-op if the frame is
// already tracked.
func (l *LRU) Unpin(fid page.FrameID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.index[fid]; ok {
		return
	}
	l.index[fid] = l.order.PushFront(fid)
}

// Size returns the number of frames currently eligible for eviction.
func (l *LRU) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.order.Len()
}
