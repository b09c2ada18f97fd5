package hash

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"

	"storagecore/internal/dblog"
	"storagecore/storage_engine/bufferpool"
	"storagecore/storage_engine/page"
)

// Txn is a no-op transaction hook. This core has no transaction manager;
// the parameter exists so the public surface matches the reference
// implementation's insert/remove/get_value signatures, and so a caller
// above this core can thread a real transaction handle through later
// without an API break.
type Txn = any

// HashFunc maps a key to a 32-bit hash. The index only ever consults its
// low GlobalDepth bits, so collisions above that range are harmless.
type HashFunc func(Key) uint32

func defaultHash(k Key) uint32 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(k))
	return uint32(xxhash.Sum64(buf[:]))
}

// Index is an extendible hash index backed by a buffer pool: one
// directory page and a growing set of bucket pages, all pool-managed
// pages rather than heap-resident structures.
type Index struct {
	mu        sync.RWMutex
	pool      bufferpool.BufferPool
	dirPageID page.ID
	cmp       Comparator
	hash      HashFunc
}

// NewIndex allocates a fresh directory page and its single initial bucket,
// both via pool.NewPage, and returns a ready-to-use index.
func NewIndex(pool bufferpool.BufferPool, cmp Comparator) (*Index, error) {
	dirFrame, dirID, ok := pool.NewPage()
	if !ok {
		return nil, bufferpool.ErrPoolExhausted
	}
	bucketFrame, bucketID, ok := pool.NewPage()
	if !ok {
		pool.UnpinPage(dirID, false)
		pool.DeletePage(dirID)
		return nil, bufferpool.ErrPoolExhausted
	}

	dir := AsDirectoryPage(dirFrame.Data[:])
	dir.Reset()
	dir.SetLocalDepth(0, 0)
	dir.SetBucketPageID(0, bucketID)
	AsBucketPage(bucketFrame.Data[:]).Reset()

	pool.UnpinPage(dirID, true)
	pool.UnpinPage(bucketID, true)

	return &Index{pool: pool, dirPageID: dirID, cmp: cmp, hash: defaultHash}, nil
}

func (h *Index) keyToDirIndex(k Key, dir *DirectoryPage) uint32 {
	return h.hash(k) & dir.GlobalDepthMask()
}

func (h *Index) directory() (*bufferpool.Guard, *DirectoryPage) {
	g, ok := bufferpool.FetchGuard(h.pool, h.dirPageID)
	if !ok {
		panic("hash: directory page missing from pool")
	}
	return g, AsDirectoryPage(g.Frame().Data[:])
}

func (h *Index) bucket(id page.ID) (*bufferpool.Guard, *BucketPage) {
	g, ok := bufferpool.FetchGuard(h.pool, id)
	if !ok {
		panic("hash: bucket page missing from pool")
	}
	return g, AsBucketPage(g.Frame().Data[:])
}

// GetValue returns every value stored under k.
func (h *Index) GetValue(_ Txn, k Key) ([]Value, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	dirGuard, dir := h.directory()
	idx := h.keyToDirIndex(k, dir)
	bucketID := dir.BucketPageID(idx)

	bucketGuard, bucket := h.bucket(bucketID)
	var result []Value
	found := bucket.Get(k, h.cmp, &result)
	bucketGuard.Done(false)
	dirGuard.Done(false)
	return result, found
}

// Insert adds (k, v), splitting buckets and growing the directory as
// needed. Returns false if the pair is already present, or if the
// directory has reached MaxDepth and the target bucket is still full
// (see ErrDepthExceeded).
func (h *Index) Insert(_ Txn, k Key, v Value) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	for {
		dirGuard, dir := h.directory()
		idx := h.keyToDirIndex(k, dir)
		bucketID := dir.BucketPageID(idx)

		bucketGuard, bucket := h.bucket(bucketID)
		if !bucket.IsFull() {
			ok := bucket.Insert(k, v, h.cmp)
			if !ok {
				dblog.Log.WithError(ErrDuplicatePair).WithFields(dblog.Fields{"bucket": bucketID}).
					Debug("hash: insert")
			}
			bucketGuard.Done(ok)
			dirGuard.Done(false)
			return ok
		}
		dblog.Log.WithError(ErrBucketFull).WithFields(dblog.Fields{"bucket": bucketID}).
			Debug("hash: insert triggers split")
		bucketGuard.Done(false)
		dirGuard.Done(false)

		if !h.splitBucket(k) {
			return false
		}
		// Loop around: the key's directory slot may now point at a
		// different (less full) bucket.
	}
}

// splitBucket splits the bucket owning k, growing the directory first if
// every slot sharing that bucket is already at the current global depth.
// Returns false if the directory is already at MaxDepth and cannot grow.
func (h *Index) splitBucket(k Key) bool {
	dirGuard, dir := h.directory()
	idx := h.keyToDirIndex(k, dir)

	if dir.LocalDepth(idx) == uint8(dir.GlobalDepth()) {
		if dir.GlobalDepth() >= MaxDepth {
			dblog.Log.WithError(ErrDepthExceeded).WithFields(dblog.Fields{"slot": idx}).
				Error("hash: split_bucket cannot grow directory further")
			dirGuard.Done(false)
			return false
		}
		dir.IncrGlobalDepth()
		dir.Grow()
		idx = h.keyToDirIndex(k, dir)
	}

	newLocalDepth := dir.LocalDepth(idx) + 1
	imageIdx := idx ^ (uint32(1) << (newLocalDepth - 1))
	origBucketID := dir.BucketPageID(idx)

	newFrame, newBucketID, ok := h.pool.NewPage()
	if !ok {
		dblog.Log.Error("hash: split_bucket could not allocate a new bucket page")
		dirGuard.Done(false)
		return false
	}

	mask := (uint32(1) << newLocalDepth) - 1
	origLow := idx & mask
	for i := uint32(0); i < dir.Size(); i++ {
		if i&mask == origLow {
			dir.SetBucketPageID(i, origBucketID)
			dir.SetLocalDepth(i, newLocalDepth)
		} else if i&mask == imageIdx&mask {
			dir.SetBucketPageID(i, newBucketID)
			dir.SetLocalDepth(i, newLocalDepth)
		}
	}

	origGuard, origBucket := h.bucket(origBucketID)
	type entry struct {
		k Key
		v Value
	}
	var entries []entry
	for i := 0; i < BucketCapacity; i++ {
		if origBucket.IsReadable(i) {
			entries = append(entries, entry{origBucket.KeyAt(i), origBucket.ValueAt(i)})
		}
	}
	origBucket.Reset()

	newBucket := AsBucketPage(newFrame.Data[:])
	newBucket.Reset()
	for _, e := range entries {
		if h.hash(e.k)&mask == origLow {
			origBucket.Insert(e.k, e.v, h.cmp)
		} else {
			newBucket.Insert(e.k, e.v, h.cmp)
		}
	}

	dblog.Log.WithFields(dblog.Fields{"orig": origBucketID, "new": newBucketID, "depth": newLocalDepth}).
		Debug("hash: split")

	origGuard.Done(true)
	h.pool.UnpinPage(newBucketID, true)
	dirGuard.Done(true)
	return true
}

// Remove deletes the (k, v) pair, merging the bucket with its split-image
// sibling (and shrinking the directory) if the removal empties it.
func (h *Index) Remove(_ Txn, k Key, v Value) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	dirGuard, dir := h.directory()
	idx := h.keyToDirIndex(k, dir)
	bucketID := dir.BucketPageID(idx)

	bucketGuard, bucket := h.bucket(bucketID)
	removed := bucket.Remove(k, v, h.cmp)
	empty := bucket.IsEmpty()
	bucketGuard.Done(removed)
	dirGuard.Done(false)

	if removed && empty {
		h.merge(idx)
	}
	return removed
}

// merge attempts to fold the bucket at idx into its split-image sibling,
// shrinking the directory as far as possible afterward, then recursing if
// the merge leaves the sibling itself empty.
func (h *Index) merge(idx uint32) {
	dirGuard, dir := h.directory()

	if dir.LocalDepth(idx) == 0 {
		dirGuard.Done(false)
		return
	}

	bucketID := dir.BucketPageID(idx)
	bucketGuard, bucket := h.bucket(bucketID)
	stillEmpty := bucket.IsEmpty()
	bucketGuard.Done(false)
	if !stillEmpty {
		dirGuard.Done(false)
		return
	}

	imageIdx := dir.SplitImageIndex(idx)
	if dir.LocalDepth(imageIdx) != dir.LocalDepth(idx) {
		dirGuard.Done(false)
		return
	}

	imageBucketID := dir.BucketPageID(imageIdx)
	newDepth := dir.LocalDepth(idx) - 1
	for i := uint32(0); i < dir.Size(); i++ {
		if id := dir.BucketPageID(i); id == bucketID || id == imageBucketID {
			dir.SetBucketPageID(i, imageBucketID)
			dir.SetLocalDepth(i, newDepth)
		}
	}
	h.pool.DeletePage(bucketID)

	dblog.Log.WithFields(dblog.Fields{"freed": bucketID, "kept": imageBucketID, "depth": newDepth}).
		Debug("hash: merge")

	for dir.CanShrink() {
		dir.DecrGlobalDepth()
		dblog.Log.WithFields(dblog.Fields{"global_depth": dir.GlobalDepth()}).Debug("hash: shrink")
	}

	imageStillEmpty := false
	if imgFrame, ok := h.pool.FetchPage(imageBucketID); ok {
		imageStillEmpty = AsBucketPage(imgFrame.Data[:]).IsEmpty()
		h.pool.UnpinPage(imageBucketID, false)
	}

	next := idx
	if imageIdx < idx {
		next = imageIdx
	}
	// Shrinking never rewrites array bytes, only the global-depth field,
	// so a stale index from before a shrink still mirrors the live slot it
	// was last written from; masking to the current live range keeps the
	// recursive call valid regardless.
	next %= dir.Size()

	dirGuard.Done(true)

	if imageStillEmpty {
		h.merge(next)
	}
}

// GetGlobalDepth returns the directory's current global depth.
func (h *Index) GetGlobalDepth() uint32 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	g, dir := h.directory()
	depth := dir.GlobalDepth()
	g.Done(false)
	return depth
}

// VerifyIntegrity checks the directory's invariants (see
// DirectoryPage.VerifyIntegrity).
func (h *Index) VerifyIntegrity() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	g, dir := h.directory()
	err := dir.VerifyIntegrity()
	g.Done(false)
	return err
}
