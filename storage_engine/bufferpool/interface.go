package bufferpool

import "storagecore/storage_engine/page"

// BufferPool is the single capability set shared by the single-instance
// pool and the sharded pool, so the hash index (and any other caller) can
// be written against either without caring which it got. Mirrors the
// teacher's habit of depending on the narrowest interface a collaborator
// needs (see WALFlushedLSNGetter in the teacher's bufferpool package).
type BufferPool interface {
	// NewPage allocates a fresh page, pins it once, and returns its frame.
	NewPage() (*page.Frame, page.ID, bool)

	// FetchPage returns the frame holding id, pinning it once more. It
	// loads the page from disk if it isn't already cached.
	FetchPage(id page.ID) (*page.Frame, bool)

	// UnpinPage releases one pin on id. dirty, if true, stickily marks the
	// frame dirty even if a later caller unpins with dirty=false.
	UnpinPage(id page.ID, dirty bool) bool

	// DeletePage removes id from the pool if it is present and unpinned.
	DeletePage(id page.ID) bool

	// FlushPage writes id to disk if present, regardless of dirty state.
	FlushPage(id page.ID) bool

	// FlushAllPages writes every page currently in the pool to disk.
	FlushAllPages()

	// PoolSize returns the total frame capacity across all instances.
	PoolSize() int
}
