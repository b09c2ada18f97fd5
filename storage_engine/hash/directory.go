package hash

import (
	"encoding/binary"
	"fmt"

	"storagecore/storage_engine/page"
)

// MaxDepth bounds how many bits of a key's hash the directory can ever
// address, so its slot arrays have a fixed, page-resident size:
// 2^MaxDepth slots. 9 keeps the directory's footprint (4 + 512 + 512*4
// bytes) comfortably inside one page.
const MaxDepth = 9

const maxSlots = 1 << MaxDepth

const (
	globalDepthOffset = 0
	localDepthsOffset = globalDepthOffset + 4
	bucketIDsOffset   = localDepthsOffset + maxSlots // one byte per slot
)

// DirectoryPage is a typed view over a page-sized byte buffer holding the
// extendible hash table's directory: global depth, one local depth per
// slot, and one bucket page id per slot.
type DirectoryPage struct {
	data []byte
}

// AsDirectoryPage wraps buf as a directory page.
func AsDirectoryPage(buf []byte) *DirectoryPage {
	return &DirectoryPage{data: buf}
}

// GlobalDepth returns the number of low hash bits currently used to index
// the directory.
func (d *DirectoryPage) GlobalDepth() uint32 {
	return binary.LittleEndian.Uint32(d.data[globalDepthOffset : globalDepthOffset+4])
}

func (d *DirectoryPage) setGlobalDepth(v uint32) {
	binary.LittleEndian.PutUint32(d.data[globalDepthOffset:globalDepthOffset+4], v)
}

// LocalDepth returns the local depth of slot i.
func (d *DirectoryPage) LocalDepth(i uint32) uint8 {
	return d.data[localDepthsOffset+int(i)]
}

// SetLocalDepth sets the local depth of slot i.
func (d *DirectoryPage) SetLocalDepth(i uint32, depth uint8) {
	d.data[localDepthsOffset+int(i)] = depth
}

func bucketIDOffset(i uint32) int { return bucketIDsOffset + int(i)*4 }

// BucketPageID returns the bucket page id slot i currently points at.
func (d *DirectoryPage) BucketPageID(i uint32) page.ID {
	off := bucketIDOffset(i)
	return page.ID(int32(binary.LittleEndian.Uint32(d.data[off : off+4])))
}

// SetBucketPageID repoints slot i at id.
func (d *DirectoryPage) SetBucketPageID(i uint32, id page.ID) {
	off := bucketIDOffset(i)
	binary.LittleEndian.PutUint32(d.data[off:off+4], uint32(int32(id)))
}

// GlobalDepthMask is the bitmask of the global depth's low bits: a key's
// directory slot is hash(key) & GlobalDepthMask().
func (d *DirectoryPage) GlobalDepthMask() uint32 {
	return (uint32(1) << d.GlobalDepth()) - 1
}

// LocalDepthMask is the bitmask of slot i's local depth's low bits.
func (d *DirectoryPage) LocalDepthMask(i uint32) uint32 {
	return (uint32(1) << d.LocalDepth(i)) - 1
}

// Size is the number of live directory slots, 2^global_depth.
func (d *DirectoryPage) Size() uint32 {
	return uint32(1) << d.GlobalDepth()
}

// SplitImageIndex returns the index of the sibling slot that shares i's
// bucket before a split at i's local depth: flip the one bit a split adds.
func (d *DirectoryPage) SplitImageIndex(i uint32) uint32 {
	return i ^ (uint32(1) << (d.LocalDepth(i) - 1))
}

// IncrGlobalDepth doubles the directory's live range.
func (d *DirectoryPage) IncrGlobalDepth() {
	d.setGlobalDepth(d.GlobalDepth() + 1)
}

// DecrGlobalDepth halves the directory's live range.
func (d *DirectoryPage) DecrGlobalDepth() {
	d.setGlobalDepth(d.GlobalDepth() - 1)
}

// Grow mirrors the low half of the live slot array into the newly-live
// high half; call after IncrGlobalDepth.
func (d *DirectoryPage) Grow() {
	size := d.Size()
	half := size / 2
	for i := uint32(0); i < half; i++ {
		d.SetLocalDepth(half+i, d.LocalDepth(i))
		d.SetBucketPageID(half+i, d.BucketPageID(i))
	}
}

// CanShrink reports whether every live slot has a local depth strictly
// less than the global depth — i.e. no slot actually needs the top bit of
// the current global depth, so the directory can be halved.
func (d *DirectoryPage) CanShrink() bool {
	gd := d.GlobalDepth()
	if gd == 0 {
		return false
	}
	for i := uint32(0); i < d.Size(); i++ {
		if uint32(d.LocalDepth(i)) == gd {
			return false
		}
	}
	return true
}

// Reset clears the directory to depth zero with no entries.
func (d *DirectoryPage) Reset() {
	for i := range d.data {
		d.data[i] = 0
	}
}

// VerifyIntegrity checks the directory invariants: every slot's local
// depth is at most the global depth, every slot agrees with the rest of
// its local-depth cohort (i & LocalDepthMask(i)) on which bucket it names,
// and every pair of slots that share a bucket page id also share a local
// depth.
func (d *DirectoryPage) VerifyIntegrity() error {
	gd := d.GlobalDepth()
	owners := make(map[page.ID]uint8, d.Size())
	for i := uint32(0); i < d.Size(); i++ {
		ld := d.LocalDepth(i)
		if ld > uint8(gd) {
			return fmt.Errorf("hash: slot %d local depth %d exceeds global depth %d", i, ld, gd)
		}
		id := d.BucketPageID(i)

		cohortHead := i & d.LocalDepthMask(i)
		if headID := d.BucketPageID(cohortHead); headID != id {
			return fmt.Errorf("hash: slot %d bucket %d disagrees with its local-depth cohort head %d (bucket %d)",
				i, id, cohortHead, headID)
		}

		if prev, ok := owners[id]; ok && prev != ld {
			return fmt.Errorf("hash: bucket %d shared by slots with differing local depths (%d vs %d)", id, prev, ld)
		}
		owners[id] = ld
	}
	return nil
}
