package bufferpool

import "errors"

// Sentinel errors used at the call sites described below. Pool operations
// report failure as a plain bool (see BufferPool) rather than an error,
// matching the teacher's own storage_engine/bufferpool surface, so the pool
// logs ErrPageNotFound and ErrPagePinned via dblog.Log.WithError instead of
// returning them to the caller.
var (
	// ErrPageNotFound is logged when UnpinPage or FlushPage names a page
	// id the pool has no record of.
	ErrPageNotFound = errors.New("bufferpool: page not found")

	// ErrPagePinned is logged when DeletePage targets a page that still
	// has outstanding pins.
	ErrPagePinned = errors.New("bufferpool: page is pinned")

	// ErrPoolExhausted is returned by higher layers such as hash.NewIndex
	// when a NewPage call fails for want of a usable frame. The pool itself
	// never returns it; NewPage and FetchPage report that case as false.
	ErrPoolExhausted = errors.New("bufferpool: no free frames available")
)
