package hash

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storagecore/storage_engine/bufferpool"
	"storagecore/storage_engine/disk"
)

func newTestIndex(t *testing.T, poolCapacity int) *Index {
	t.Helper()
	dir := t.TempDir()
	d, err := disk.NewManager(filepath.Join(dir, "index_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { d.ShutDown() })

	pool := bufferpool.New(poolCapacity, d)
	idx, err := NewIndex(pool, IntComparator)
	require.NoError(t, err)
	return idx
}

// S1: smoke — insert then immediately get back what was inserted.
func TestIndexSmoke(t *testing.T) {
	idx := newTestIndex(t, 50)

	require.True(t, idx.Insert(nil, 1, 100))
	values, found := idx.GetValue(nil, 1)
	require.True(t, found)
	assert.Equal(t, []Value{100}, values)

	_, found = idx.GetValue(nil, 2)
	assert.False(t, found, "expected a never-inserted key to miss")
}

// S2: duplicate — re-inserting the exact same (k, v) pair is rejected, but
// a second value under the same key is accepted (non-unique key index).
func TestIndexDuplicate(t *testing.T) {
	idx := newTestIndex(t, 50)

	require.True(t, idx.Insert(nil, 1, 100))
	assert.False(t, idx.Insert(nil, 1, 100), "exact duplicate pair must be rejected")
	require.True(t, idx.Insert(nil, 1, 200))

	values, found := idx.GetValue(nil, 1)
	require.True(t, found)
	assert.ElementsMatch(t, []Value{100, 200}, values)
}

// S3: capacity split — filling past one bucket's capacity must grow the
// directory and split, and every inserted key must remain retrievable.
func TestIndexCapacitySplit(t *testing.T) {
	idx := newTestIndex(t, 200)

	const n = BucketCapacity * 3
	for i := 0; i < n; i++ {
		require.True(t, idx.Insert(nil, Key(i), Value(i)), "insert %d", i)
	}
	assert.Greater(t, idx.GetGlobalDepth(), uint32(0), "expected directory to have grown")

	for i := 0; i < n; i++ {
		values, found := idx.GetValue(nil, Key(i))
		require.True(t, found, "key %d should be retrievable after splits", i)
		assert.Contains(t, values, Value(i))
	}
	require.NoError(t, idx.VerifyIntegrity())
}

// S4: grow/shrink — removing every key back out should let the directory
// merge and shrink back toward depth zero, and integrity must hold
// throughout.
func TestIndexGrowShrink(t *testing.T) {
	idx := newTestIndex(t, 200)

	const n = BucketCapacity * 2
	for i := 0; i < n; i++ {
		require.True(t, idx.Insert(nil, Key(i), Value(i)))
	}
	grown := idx.GetGlobalDepth()
	require.Greater(t, grown, uint32(0))

	for i := 0; i < n; i++ {
		require.True(t, idx.Remove(nil, Key(i), Value(i)), "remove %d", i)
		require.NoError(t, idx.VerifyIntegrity())
	}

	assert.Less(t, idx.GetGlobalDepth(), grown, "expected directory to shrink back down")
	for i := 0; i < n; i++ {
		_, found := idx.GetValue(nil, Key(i))
		assert.False(t, found, "key %d should be gone after removal", i)
	}
}

func TestIndexRemoveMissingPairIsNoop(t *testing.T) {
	idx := newTestIndex(t, 50)
	require.True(t, idx.Insert(nil, 1, 100))
	assert.False(t, idx.Remove(nil, 1, 999), "removing a value that was never inserted should fail")
	values, found := idx.GetValue(nil, 1)
	require.True(t, found)
	assert.Equal(t, []Value{100}, values)
}
