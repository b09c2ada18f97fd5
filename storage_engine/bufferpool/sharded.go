package bufferpool

import (
	"sync"

	"storagecore/storage_engine/page"
)

// Sharded routes pages across N single-instance pools by page id ownership
// (id % N), computed arithmetically rather than cached in a lookup map —
// the reference implementation's ParallelBufferPoolManager populates a
// page-id → instance-index map lazily on first access, which leaves a
// page's owner unrecoverable after a crash or before the map has been
// populated; arithmetic routing needs no such cache and is always correct.
type Sharded struct {
	mu         sync.Mutex
	instances  []*Pool
	startIndex int
}

// NewSharded builds a sharded pool of numInstances single instances, each
// with perInstanceCapacity frames, all backed by the same disk manager —
// mirroring the reference ParallelBufferPoolManager's single shared
// DiskManager across instances.
func NewSharded(numInstances, perInstanceCapacity int, disk Disk) *Sharded {
	instances := make([]*Pool, numInstances)
	for i := range instances {
		instances[i] = newInstance(perInstanceCapacity, disk, numInstances, i)
	}
	return &Sharded{instances: instances}
}

func (s *Sharded) owner(id page.ID) *Pool {
	return s.instances[int(id)%len(s.instances)]
}

// NewPage round-robins across instances starting where the last successful
// allocation left off, so load spreads evenly instead of always hammering
// instance zero.
func (s *Sharded) NewPage() (*page.Frame, page.ID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.instances)
	for i := 0; i < n; i++ {
		idx := (s.startIndex + i) % n
		if fr, id, ok := s.instances[idx].NewPage(); ok {
			s.startIndex = (idx + 1) % n
			return fr, id, true
		}
	}
	return nil, page.Invalid, false
}

// FetchPage delegates to id's owning instance.
func (s *Sharded) FetchPage(id page.ID) (*page.Frame, bool) {
	return s.owner(id).FetchPage(id)
}

// UnpinPage delegates to id's owning instance.
func (s *Sharded) UnpinPage(id page.ID, dirty bool) bool {
	return s.owner(id).UnpinPage(id, dirty)
}

// DeletePage delegates to id's owning instance.
func (s *Sharded) DeletePage(id page.ID) bool {
	return s.owner(id).DeletePage(id)
}

// FlushPage delegates to id's owning instance.
func (s *Sharded) FlushPage(id page.ID) bool {
	return s.owner(id).FlushPage(id)
}

// FlushAllPages flushes every instance.
func (s *Sharded) FlushAllPages() {
	for _, inst := range s.instances {
		inst.FlushAllPages()
	}
}

// PoolSize returns the combined frame capacity of every instance.
func (s *Sharded) PoolSize() int {
	total := 0
	for _, inst := range s.instances {
		total += inst.PoolSize()
	}
	return total
}
