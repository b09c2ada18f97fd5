package bufferpool

import "storagecore/storage_engine/page"

// Guard turns a fetched or newly-allocated frame's manual Unpin discipline
// into scoped acquisition with a guaranteed single release: the caller
// defers g.Done(dirty) once instead of threading an UnpinPage call through
// every return path by hand.
type Guard struct {
	pool  BufferPool
	id    page.ID
	frame *page.Frame
	done  bool
}

// FetchGuard fetches id and wraps it in a Guard.
func FetchGuard(pool BufferPool, id page.ID) (*Guard, bool) {
	fr, ok := pool.FetchPage(id)
	if !ok {
		return nil, false
	}
	return &Guard{pool: pool, id: id, frame: fr}, true
}

// NewGuard allocates a fresh page and wraps it in a Guard.
func NewGuard(pool BufferPool) (*Guard, page.ID, bool) {
	fr, id, ok := pool.NewPage()
	if !ok {
		return nil, page.Invalid, false
	}
	return &Guard{pool: pool, id: id, frame: fr}, id, true
}

// Frame returns the pinned frame.
func (g *Guard) Frame() *page.Frame {
	return g.frame
}

// PageID returns the id of the pinned page.
func (g *Guard) PageID() page.ID {
	return g.id
}

// Done unpins the page, marking it dirty if dirty is true. Safe to call
// more than once; only the first call has an effect.
func (g *Guard) Done(dirty bool) {
	if g.done {
		return
	}
	g.pool.UnpinPage(g.id, dirty)
	g.done = true
}
