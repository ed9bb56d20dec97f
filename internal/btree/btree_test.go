package btree

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wrightcameron/genebank-btree/internal/node"
)

func openTemp(t *testing.T, degree uint32, useCache bool) *BTree {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tree.data")
	bt, err := Open(degree, path, useCache, 16, true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = bt.Close() })
	return bt
}

func TestOpenTruncateStartsEmpty(t *testing.T) {
	bt := openTemp(t, 2, false)
	require.EqualValues(t, 0, bt.GetSize())
	require.EqualValues(t, 0, bt.GetHeight())
	require.EqualValues(t, 1, bt.GetNumberOfNodes())

	sorted, err := bt.InOrderTraversal()
	require.NoError(t, err)
	require.Empty(t, sorted)
}

func TestDegreeZeroResolvesToPageSizeDefault(t *testing.T) {
	bt := openTemp(t, 0, false)
	require.EqualValues(t, 102, bt.GetDegree())
}

func TestInsertAndSearchSingleKey(t *testing.T) {
	bt := openTemp(t, 2, false)
	key := node.TreeObject{Sequence: 42, Frequency: 1}
	require.NoError(t, bt.Insert(key))

	found, ok, err := bt.Search(node.TreeObject{Sequence: 42})
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 1, found.Frequency)

	_, ok, err = bt.Search(node.TreeObject{Sequence: 7})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDuplicateInsertIncrementsFrequencyInPlace(t *testing.T) {
	bt := openTemp(t, 2, false)
	key := node.TreeObject{Sequence: 9, Frequency: 1}
	require.NoError(t, bt.Insert(key))
	require.NoError(t, bt.Insert(node.TreeObject{Sequence: 9, Frequency: 1}))
	require.NoError(t, bt.Insert(node.TreeObject{Sequence: 9, Frequency: 1}))

	found, ok, err := bt.Search(node.TreeObject{Sequence: 9})
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 3, found.Frequency)
	require.EqualValues(t, 1, bt.GetSize(), "duplicates must not grow the key count")
}

// TestEmptyTreeAtDegreeOne reproduces spec.md S1: open with degree=1,
// truncate; expect height=0, size=0, number_of_nodes=1.
func TestEmptyTreeAtDegreeOne(t *testing.T) {
	bt := openTemp(t, 1, false)
	require.EqualValues(t, 0, bt.GetSize())
	require.EqualValues(t, 0, bt.GetHeight())
	require.EqualValues(t, 1, bt.GetNumberOfNodes())
}

// TestRootSplitAtDegreeThree reproduces spec.md S3: degree=3, insert
// [59, 23, 7, 97, 73, 67] in that order; expect size=6, height=1,
// sorted sequences = [7, 23, 59, 67, 73, 97].
func TestRootSplitAtDegreeThree(t *testing.T) {
	bt := openTemp(t, 3, false)
	for _, seq := range []uint64{59, 23, 7, 97, 73, 67} {
		require.NoError(t, bt.Insert(node.TreeObject{Sequence: seq, Frequency: 1}))
	}
	require.EqualValues(t, 6, bt.GetSize())
	require.EqualValues(t, 1, bt.GetHeight())

	sorted, err := bt.InOrderTraversal()
	require.NoError(t, err)
	want := []uint64{7, 23, 59, 67, 73, 97}
	require.Len(t, sorted, len(want))
	for i, seq := range want {
		require.Equal(t, seq, sorted[i].Sequence)
	}
}

// TestMultiLevelAtDegreeThree reproduces spec.md S4: degree=3, insert
// [59, 23, 7, 97, 73, 67, 19, 79, 61, 41]; expect size=10, height=1,
// sorted = [7, 19, 23, 41, 59, 61, 67, 73, 79, 97]. It then continues
// into S5: inserting 74 forces a level-2 split; expect size=11, with
// 74 landing at sorted position 8.
func TestMultiLevelAtDegreeThree(t *testing.T) {
	bt := openTemp(t, 3, false)
	for _, seq := range []uint64{59, 23, 7, 97, 73, 67, 19, 79, 61, 41} {
		require.NoError(t, bt.Insert(node.TreeObject{Sequence: seq, Frequency: 1}))
	}
	require.EqualValues(t, 10, bt.GetSize())
	require.EqualValues(t, 1, bt.GetHeight())

	sorted, err := bt.InOrderTraversal()
	require.NoError(t, err)
	want := []uint64{7, 19, 23, 41, 59, 61, 67, 73, 79, 97}
	require.Len(t, sorted, len(want))
	for i, seq := range want {
		require.Equal(t, seq, sorted[i].Sequence)
	}

	// S5 — forced level-2 split.
	require.NoError(t, bt.Insert(node.TreeObject{Sequence: 74, Frequency: 1}))
	require.EqualValues(t, 11, bt.GetSize())

	sorted, err = bt.InOrderTraversal()
	require.NoError(t, err)
	require.Len(t, sorted, 11)
	require.EqualValues(t, 74, sorted[8].Sequence)
}

// TestAscendingAtDegreeTwo reproduces spec.md S6: degree=2, insert 0..9
// in ascending order; expect size=10, height=2, sorted = [0..9].
func TestAscendingAtDegreeTwo(t *testing.T) {
	bt := openTemp(t, 2, false)
	for seq := uint64(0); seq < 10; seq++ {
		require.NoError(t, bt.Insert(node.TreeObject{Sequence: seq, Frequency: 1}))
	}
	require.EqualValues(t, 10, bt.GetSize())
	require.EqualValues(t, 2, bt.GetHeight())

	sorted, err := bt.InOrderTraversal()
	require.NoError(t, err)
	require.Len(t, sorted, 10)
	for i := range sorted {
		require.EqualValues(t, i, sorted[i].Sequence)
	}
}

// TestDuplicatesAtDegreeTwo reproduces spec.md S7: degree=2, insert the
// value 1 ten times; expect size=1, height=0, sorted=[1], and the
// stored frequency equals 10.
func TestDuplicatesAtDegreeTwo(t *testing.T) {
	bt := openTemp(t, 2, false)
	for i := 0; i < 10; i++ {
		require.NoError(t, bt.Insert(node.TreeObject{Sequence: 1, Frequency: 1}))
	}
	require.EqualValues(t, 1, bt.GetSize())
	require.EqualValues(t, 0, bt.GetHeight())

	sorted, err := bt.InOrderTraversal()
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, []uint64{sorted[0].Sequence})
	require.EqualValues(t, 10, sorted[0].Frequency)
}

func TestInsertForcesRootSplitAtDegreeTwo(t *testing.T) {
	// Degree 2: a node is full at 2t-1 = 3 keys. The 4th distinct insert
	// must split the root and grow the tree's height.
	bt := openTemp(t, 2, false)
	for _, seq := range []uint64{10, 20, 30, 40} {
		require.NoError(t, bt.Insert(node.TreeObject{Sequence: seq, Frequency: 1}))
	}
	require.EqualValues(t, 1, bt.GetHeight())
	require.EqualValues(t, 4, bt.GetSize())

	for _, seq := range []uint64{10, 20, 30, 40} {
		found, ok, err := bt.Search(node.TreeObject{Sequence: seq})
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, seq, found.Sequence)
	}
}

func TestInOrderTraversalIsSorted(t *testing.T) {
	bt := openTemp(t, 3, false)
	input := []uint64{50, 10, 90, 30, 70, 20, 60, 80, 40, 5, 100, 15}
	for _, seq := range input {
		require.NoError(t, bt.Insert(node.TreeObject{Sequence: seq, Frequency: 1}))
	}

	sorted, err := bt.InOrderTraversal()
	require.NoError(t, err)
	require.Len(t, sorted, len(input))
	for i := 1; i < len(sorted); i++ {
		require.Less(t, sorted[i-1].Sequence, sorted[i].Sequence)
	}
}

func TestManyInsertsBuildAMultiLevelTree(t *testing.T) {
	bt := openTemp(t, 2, false)
	const n = 500
	for i := uint64(0); i < n; i++ {
		// Insert out of order so both leaf and internal splits exercise.
		seq := (i * 7919) % n
		require.NoError(t, bt.Insert(node.TreeObject{Sequence: seq, Frequency: 1}))
	}
	require.EqualValues(t, n, bt.GetSize())
	require.Greater(t, bt.GetHeight(), uint32(0))

	sorted, err := bt.InOrderTraversal()
	require.NoError(t, err)
	require.Len(t, sorted, n)
	for i := 1; i < len(sorted); i++ {
		require.Less(t, sorted[i-1].Sequence, sorted[i].Sequence)
	}
}

func TestCachedAndUncachedTreesAgree(t *testing.T) {
	uncached := openTemp(t, 2, false)
	cached := openTemp(t, 2, true)

	for _, seq := range []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10} {
		key := node.TreeObject{Sequence: seq, Frequency: 1}
		require.NoError(t, uncached.Insert(key))
		require.NoError(t, cached.Insert(key))
	}

	a, err := uncached.InOrderTraversal()
	require.NoError(t, err)
	b, err := cached.InOrderTraversal()
	require.NoError(t, err)
	require.Equal(t, a, b)
}

func TestReopenWithoutTruncateRecoversCounters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.data")
	bt, err := Open(2, path, false, 0, true)
	require.NoError(t, err)
	for _, seq := range []uint64{1, 2, 3, 4, 5, 6} {
		require.NoError(t, bt.Insert(node.TreeObject{Sequence: seq, Frequency: 1}))
	}
	wantSize := bt.GetSize()
	wantHeight := bt.GetHeight()
	require.NoError(t, bt.Close())

	reopened, err := Open(2, path, false, 0, false)
	require.NoError(t, err)
	defer reopened.Close()

	require.Equal(t, wantSize, reopened.GetSize())
	require.Equal(t, wantHeight, reopened.GetHeight())

	found, ok, err := reopened.Search(node.TreeObject{Sequence: 3})
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 1, found.Frequency)

	require.NoError(t, reopened.Insert(node.TreeObject{Sequence: 3, Frequency: 1}))
	found, ok, err = reopened.Search(node.TreeObject{Sequence: 3})
	require.NoError(t, err)
	require.True(t, ok)
	require.EqualValues(t, 2, found.Frequency)
}
