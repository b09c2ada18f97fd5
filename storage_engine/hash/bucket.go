// Package hash implements an extendible hash index directly over buffer
// pool pages: a directory page (global depth, per-slot local depth,
// slot → bucket-page-id) and a fixed-capacity bucket page per slot (a
// slotted key/value array with occupied/readable bitmaps).
//
// Key and Value are fixed at int64 here, matching the only fully-exercised
// instantiation of the reference implementation's templated bucket page
// (HashTableBucketPage<int, int, IntComparator>) — the reference's other
// instantiations carry a generic-key/RID pair belonging to the tuple-index
// layer this core's spec scopes out. A pluggable Comparator is threaded
// through Get/Insert/Remove anyway, mirroring the reference signature, even
// though the default numeric comparator is the only one this core ships.
package hash

import "encoding/binary"

// Key and Value are the hash index's fixed key/value types.
type Key int64
type Value int64

// Comparator orders two keys: negative if a<b, zero if equal, positive if
// a>b. Bucket lookups only need the zero case, but the signature mirrors
// the reference implementation's KeyComparator template parameter.
type Comparator func(a, b Key) int

// IntComparator is the natural ordering on Key, the only comparator this
// core needs.
func IntComparator(a, b Key) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

const (
	slotSize = 16 // 8 bytes key + 8 bytes value, little-endian

	// BucketCapacity is the largest slot count whose occupied bitmap,
	// readable bitmap, and key/value array together still fit in one
	// page: 2*ceil(B/8) + B*slotSize <= pageSize. B=252 is exact:
	// 2*32 + 252*16 == 4096.
	BucketCapacity = 252

	bitmapBytes  = (BucketCapacity + 7) / 8
	occupiedBase = 0
	readableBase = occupiedBase + bitmapBytes
	arrayBase    = readableBase + bitmapBytes
)

// BucketPage is a typed view over a page-sized byte buffer. It never
// copies the underlying bytes — all reads and writes go straight through
// to the frame the buffer pool owns.
type BucketPage struct {
	data []byte
}

// AsBucketPage wraps buf (expected to be page.Size bytes) as a bucket page.
func AsBucketPage(buf []byte) *BucketPage {
	return &BucketPage{data: buf}
}

func bitIndex(i int) (byteIdx int, mask byte) {
	// MSB-first within the byte, matching the reference implementation's
	// (c >> (7-offset)) & 1 convention.
	return i / 8, 1 << uint(7-i%8)
}

func (b *BucketPage) testBit(base, i int) bool {
	byteIdx, mask := bitIndex(i)
	return b.data[base+byteIdx]&mask != 0
}

func (b *BucketPage) setBit(base, i int) {
	byteIdx, mask := bitIndex(i)
	b.data[base+byteIdx] |= mask
}

func (b *BucketPage) clearBit(base, i int) {
	byteIdx, mask := bitIndex(i)
	b.data[base+byteIdx] &^= mask
}

// IsOccupied reports whether slot i has ever held an entry (set on first
// write, cleared only by Reset — distinguishes "never used" from
// "soft-deleted").
func (b *BucketPage) IsOccupied(i int) bool { return b.testBit(occupiedBase, i) }

func (b *BucketPage) setOccupied(i int)   { b.setBit(occupiedBase, i) }
func (b *BucketPage) unsetOccupied(i int) { b.clearBit(occupiedBase, i) }

// IsReadable reports whether slot i currently holds a live entry.
func (b *BucketPage) IsReadable(i int) bool { return b.testBit(readableBase, i) }

func (b *BucketPage) setReadable(i int)   { b.setBit(readableBase, i) }
func (b *BucketPage) unsetReadable(i int) { b.clearBit(readableBase, i) }

func slotOffset(i int) int { return arrayBase + i*slotSize }

// KeyAt returns the key stored at slot i, regardless of readability.
func (b *BucketPage) KeyAt(i int) Key {
	off := slotOffset(i)
	return Key(binary.LittleEndian.Uint64(b.data[off : off+8]))
}

// ValueAt returns the value stored at slot i, regardless of readability.
func (b *BucketPage) ValueAt(i int) Value {
	off := slotOffset(i)
	return Value(binary.LittleEndian.Uint64(b.data[off+8 : off+16]))
}

func (b *BucketPage) setSlot(i int, k Key, v Value) {
	off := slotOffset(i)
	binary.LittleEndian.PutUint64(b.data[off:off+8], uint64(k))
	binary.LittleEndian.PutUint64(b.data[off+8:off+16], uint64(v))
}

// Get appends every value stored under k to out, returning true if at
// least one was found.
func (b *BucketPage) Get(k Key, cmp Comparator, out *[]Value) bool {
	found := false
	for i := 0; i < BucketCapacity; i++ {
		if b.IsReadable(i) && cmp(b.KeyAt(i), k) == 0 {
			*out = append(*out, b.ValueAt(i))
			found = true
		}
	}
	return found
}

// Insert adds (k, v) into the first free slot. Returns false if the exact
// pair is already present (readable) or the bucket has no free slot.
func (b *BucketPage) Insert(k Key, v Value, cmp Comparator) bool {
	for i := 0; i < BucketCapacity; i++ {
		if b.IsReadable(i) && cmp(b.KeyAt(i), k) == 0 && b.ValueAt(i) == v {
			return false
		}
	}
	for i := 0; i < BucketCapacity; i++ {
		if !b.IsReadable(i) {
			b.setSlot(i, k, v)
			b.setOccupied(i)
			b.setReadable(i)
			return true
		}
	}
	return false
}

// Remove soft-deletes the first slot holding the exact (k, v) pair,
// leaving the key/value bytes in place — only the readable bit clears.
func (b *BucketPage) Remove(k Key, v Value, cmp Comparator) bool {
	for i := 0; i < BucketCapacity; i++ {
		if b.IsReadable(i) && cmp(b.KeyAt(i), k) == 0 && b.ValueAt(i) == v {
			b.RemoveAt(i)
			return true
		}
	}
	return false
}

// RemoveAt soft-deletes slot i unconditionally.
func (b *BucketPage) RemoveAt(i int) {
	b.unsetReadable(i)
}

// IsFull reports whether every slot is currently readable.
func (b *BucketPage) IsFull() bool {
	return b.NumReadable() == BucketCapacity
}

// IsEmpty reports whether no slot is currently readable.
func (b *BucketPage) IsEmpty() bool {
	return b.NumReadable() == 0
}

// NumReadable counts the currently-live slots.
func (b *BucketPage) NumReadable() int {
	n := 0
	for i := 0; i < BucketCapacity; i++ {
		if b.IsReadable(i) {
			n++
		}
	}
	return n
}

// Reset clears every bitmap and slot, leaving an empty bucket.
func (b *BucketPage) Reset() {
	for i := range b.data {
		b.data[i] = 0
	}
}
