package cache

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wrightcameron/genebank-btree/internal/node"
)

func TestGetMissReturnsNil(t *testing.T) {
	c := New(2)
	require.Nil(t, c.Get(1))
}

func TestPutThenGet(t *testing.T) {
	c := New(2)
	n := &node.Node{Offset: 8, IsLeaf: true}
	c.Put(n)

	got := c.Get(8)
	require.NotNil(t, got)
	require.Same(t, n, got)
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2)
	a := &node.Node{Offset: 1}
	b := &node.Node{Offset: 2}
	d := &node.Node{Offset: 3}

	c.Put(a)
	c.Put(b)
	// Touch a so b becomes the least-recently-used entry.
	c.Get(1)
	c.Put(d) // capacity 2: evicts b

	require.NotNil(t, c.Get(1))
	require.Nil(t, c.Get(2))
	require.NotNil(t, c.Get(3))
}

func TestPutExistingOffsetIsNoOp(t *testing.T) {
	c := New(2)
	a := &node.Node{Offset: 1, NumberOfKeys: 1}
	c.Put(a)

	other := &node.Node{Offset: 1, NumberOfKeys: 99}
	c.Put(other)

	got := c.Get(1)
	require.Same(t, a, got)
	require.EqualValues(t, 1, got.NumberOfKeys)
}

func TestZeroCapacityNeverCaches(t *testing.T) {
	c := New(0)
	c.Put(&node.Node{Offset: 1})
	require.Nil(t, c.Get(1))
}

func TestClearEmptiesCache(t *testing.T) {
	c := New(2)
	c.Put(&node.Node{Offset: 1})
	c.Put(&node.Node{Offset: 2})
	c.Clear()
	require.Nil(t, c.Get(1))
	require.Nil(t, c.Get(2))
}
