// Package btree implements a disk-based, counting B-tree keyed by packed
// DNA k-mers. It runs the classic CLRS insert/search/split/in-order
// traversal algorithms on top of internal/pager (byte-exact node
// serialization) and, optionally, internal/cache (an LRU read
// accelerator). Duplicate keys never grow the tree: a repeated insert
// increments the existing entry's frequency in place.
package btree

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/wrightcameron/genebank-btree/internal/cache"
	"github.com/wrightcameron/genebank-btree/internal/node"
	"github.com/wrightcameron/genebank-btree/internal/pager"
)

// DefaultPageSize is the disk block size used to resolve the degree=0
// "auto" sentinel.
const DefaultPageSize = 4096

// BTree is a disk-based B-tree of degree t: every non-root node holds
// between t-1 and 2t-1 keys.
type BTree struct {
	degree        uint32
	height        uint32
	numberOfNodes uint32
	numberOfKeys  uint32
	rootOffset    uint32

	pager  *pager.Pager
	cache  *cache.Cache
	logger *zap.SugaredLogger
}

// SetLogger attaches a logger used for debug-level tracing of node
// reads, writes, and splits. A nil logger (the default) disables tracing.
func (t *BTree) SetLogger(logger *zap.SugaredLogger) {
	t.logger = logger
}

// Open opens (or creates, if truncate is true) the B-tree file at path.
//
// degree == 0 selects the largest degree whose fixed node record still
// fits a 4096-byte page (see pager.BestDegreeForPageSize) — the
// reference value is 102.
//
// When truncate is true any existing file at path is discarded and a
// fresh empty tree (a single empty root node) is written. Otherwise the
// existing file's metadata header and root are loaded, and the tree's
// key count, node count, and height are recomputed by walking the tree.
func Open(degree uint32, path string, useCache bool, cacheSize int, truncate bool) (*BTree, error) {
	if degree == 0 {
		degree = pager.BestDegreeForPageSize(DefaultPageSize)
	}

	if truncate {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("btree: truncate %s: %w", path, err)
		}
	}

	pg, err := pager.Open(path, degree)
	if err != nil {
		return nil, err
	}

	t := &BTree{degree: degree, pager: pg}
	if useCache {
		t.cache = cache.New(cacheSize)
	}

	if truncate {
		root := node.New()
		root.Offset = pager.StartingOffset
		if err := t.writeNode(root); err != nil {
			return nil, err
		}
		if err := pg.WriteMetadata(pager.StartingOffset, degree); err != nil {
			return nil, err
		}
		t.rootOffset = pager.StartingOffset
		t.numberOfNodes = 1
		return t, nil
	}

	rootOffset, err := pg.GetRootOffset()
	if err != nil {
		return nil, fmt.Errorf("btree: open %s: %w", path, err)
	}
	t.rootOffset = rootOffset
	if err := pg.SeedAppendCursorFromFile(); err != nil {
		return nil, err
	}
	if err := t.recomputeCounters(); err != nil {
		return nil, err
	}
	return t, nil
}

// Close closes the underlying pager file.
func (t *BTree) Close() error {
	return t.pager.Close()
}

func (t *BTree) maximumKeys() uint32 {
	return 2*t.degree - 1
}

// GetSize returns the number of distinct keys stored in the tree.
func (t *BTree) GetSize() uint32 { return t.numberOfKeys }

// GetHeight returns the tree's current height (0 for a single-node tree).
func (t *BTree) GetHeight() uint32 { return t.height }

// GetDegree returns the tree's degree t.
func (t *BTree) GetDegree() uint32 { return t.degree }

// GetNumberOfNodes returns the number of node records ever allocated.
func (t *BTree) GetNumberOfNodes() uint32 { return t.numberOfNodes }

// Search returns the stored TreeObject for key's Sequence, if present.
func (t *BTree) Search(key node.TreeObject) (node.TreeObject, bool, error) {
	root, err := t.readNode(t.rootOffset)
	if err != nil {
		return node.TreeObject{}, false, err
	}
	return t.searchNode(root, key)
}

func (t *BTree) searchNode(n *node.Node, key node.TreeObject) (node.TreeObject, bool, error) {
	index := 0
	for index < len(n.Keys) && key.Sequence > n.Keys[index].Sequence {
		index++
	}
	if index < len(n.Keys) && key.Sequence == n.Keys[index].Sequence {
		return n.Keys[index], true, nil
	}
	if n.IsLeaf {
		return node.TreeObject{}, false, nil
	}
	child, err := t.readNode(n.ChildrenPtrs[index])
	if err != nil {
		return node.TreeObject{}, false, err
	}
	return t.searchNode(child, key)
}

// Insert inserts key, or — if a TreeObject with the same Sequence
// already exists — increments its stored frequency in place.
func (t *BTree) Insert(key node.TreeObject) error {
	root, err := t.readNode(t.rootOffset)
	if err != nil {
		return err
	}

	if uint32(len(root.Keys)) != t.maximumKeys() {
		return t.insertNonFull(root, key)
	}

	// Root is full: grow the tree by one level. The old root becomes the
	// sole child of a fresh, empty root, which is then split.
	t.height++
	oldRootOffset := root.Offset

	newRoot := node.New()
	newRoot.IsLeaf = false
	newRoot.AddChildPtr(oldRootOffset)
	newRoot.Offset = t.pager.AppendCursor()
	if err := t.writeNode(newRoot); err != nil {
		return err
	}
	if err := t.pager.WriteMetadata(newRoot.Offset, t.degree); err != nil {
		return err
	}
	t.rootOffset = newRoot.Offset
	t.numberOfNodes++

	if err := t.splitChild(newRoot, 0); err != nil {
		return err
	}
	return t.insertNonFull(newRoot, key)
}

// insertNonFull descends from n (known not to be full) inserting key,
// splitting full children as it goes.
func (t *BTree) insertNonFull(n *node.Node, key node.TreeObject) error {
	index := len(n.Keys)

	if n.IsLeaf {
		for index > 0 && key.Sequence < n.Keys[index-1].Sequence {
			index--
		}
		if index > 0 && key.Sequence == n.Keys[index-1].Sequence {
			n.Keys[index-1].IncrementFrequency()
		} else {
			n.Keys = insertTreeObjectAt(n.Keys, index, key)
			n.NumberOfKeys++
			t.numberOfKeys++
		}
		return t.writeNode(n)
	}

	for index >= 1 && key.Sequence < n.Keys[index-1].Sequence {
		index--
	}
	if index >= 1 && key.Sequence == n.Keys[index-1].Sequence {
		n.Keys[index-1].IncrementFrequency()
		return t.writeNode(n)
	}

	index++
	childOffset := n.ChildrenPtrs[index-1]
	child, err := t.readNode(childOffset)
	if err != nil {
		return err
	}
	if uint32(len(child.Keys)) == t.maximumKeys() {
		if err := t.splitChild(n, uint32(index-1)); err != nil {
			return err
		}
		// The promoted median may itself be the key being inserted.
		if key.Sequence == n.Keys[index-1].Sequence {
			n.Keys[index-1].IncrementFrequency()
			return t.writeNode(n)
		}
		if key.Sequence > n.Keys[index-1].Sequence {
			index++
		}
		// The child at this position changed shape during the split;
		// reload it before recursing.
		childOffset = n.ChildrenPtrs[index-1]
		child, err = t.readNode(childOffset)
		if err != nil {
			return err
		}
	}
	return t.insertNonFull(child, key)
}

// splitChild splits the full child of parent at children_ptrs[index]
// (called y) into y and a new sibling z, promoting y's median key into
// parent. parent must not itself be full.
func (t *BTree) splitChild(parent *node.Node, index uint32) error {
	y, err := t.readNode(parent.ChildrenPtrs[index])
	if err != nil {
		return err
	}

	degree := t.degree
	z := node.New()
	z.Offset = t.pager.AppendCursor()
	z.IsLeaf = y.IsLeaf

	// y is full: 2t-1 keys, indices [0, 2t-2]. z takes the upper t-1
	// keys [t, 2t-2]; the median y.Keys[t-1] is promoted to parent.
	z.Keys = append(z.Keys, y.Keys[degree:]...)
	z.NumberOfKeys = uint32(len(z.Keys))
	y.Keys = y.Keys[:degree]

	if !y.IsLeaf {
		z.ChildrenPtrs = append(z.ChildrenPtrs, y.ChildrenPtrs[degree:]...)
		y.ChildrenPtrs = y.ChildrenPtrs[:degree]
	}

	medianKey := y.Keys[degree-1]
	y.Keys = y.Keys[:degree-1]
	y.NumberOfKeys = degree - 1

	parent.NumberOfKeys++
	parent.ChildrenPtrs = insertUint32At(parent.ChildrenPtrs, int(index)+1, z.Offset)
	parent.Keys = insertTreeObjectAt(parent.Keys, int(index), medianKey)

	if err := t.writeNode(y); err != nil {
		return err
	}
	if err := t.writeNode(z); err != nil {
		return err
	}
	if err := t.writeNode(parent); err != nil {
		return err
	}
	t.numberOfNodes++
	if t.logger != nil {
		t.logger.Debugw("split child", "parent_offset", parent.Offset, "y_offset", y.Offset, "z_offset", z.Offset)
	}
	return nil
}

// InOrderTraversal returns every stored TreeObject in ascending Sequence
// order. An empty or metadata-less file yields an empty slice, not an
// error — this is the "empty tree" case from the error handling design.
func (t *BTree) InOrderTraversal() ([]node.TreeObject, error) {
	rootOffset, err := t.pager.GetRootOffset()
	if err != nil {
		return []node.TreeObject{}, nil
	}
	sorted := make([]node.TreeObject, 0, t.numberOfKeys)
	if err := t.traverse(rootOffset, &sorted); err != nil {
		return nil, err
	}
	return sorted, nil
}

func (t *BTree) traverse(offset uint32, sorted *[]node.TreeObject) error {
	n, err := t.readNode(offset)
	if err != nil {
		return err
	}
	for i := 0; i < len(n.Keys); i++ {
		if !n.IsLeaf {
			if err := t.traverse(n.ChildrenPtrs[i], sorted); err != nil {
				return err
			}
		}
		*sorted = append(*sorted, n.Keys[i])
	}
	if !n.IsLeaf && len(n.ChildrenPtrs) > 0 {
		if err := t.traverse(n.ChildrenPtrs[len(n.ChildrenPtrs)-1], sorted); err != nil {
			return err
		}
	}
	return nil
}

// recomputeCounters walks the freshly opened tree (a full in-order
// traversal, a full node count, and a descent to the leftmost leaf) to
// derive the observed key count, node count, and height, none of which
// survive a reopen in the on-disk format.
func (t *BTree) recomputeCounters() error {
	keys, err := t.InOrderTraversal()
	if err != nil {
		return err
	}
	t.numberOfKeys = uint32(len(keys))

	nodeCount, err := t.countNodes(t.rootOffset)
	if err != nil {
		return err
	}
	t.numberOfNodes = nodeCount

	height := uint32(0)
	offset := t.rootOffset
	for {
		n, err := t.readNode(offset)
		if err != nil {
			return err
		}
		if n.IsLeaf || len(n.ChildrenPtrs) == 0 {
			break
		}
		offset = n.ChildrenPtrs[0]
		height++
	}
	t.height = height
	return nil
}

// countNodes walks every node reachable from offset, returning the total.
func (t *BTree) countNodes(offset uint32) (uint32, error) {
	n, err := t.readNode(offset)
	if err != nil {
		return 0, err
	}
	count := uint32(1)
	for _, childOffset := range n.ChildrenPtrs {
		childCount, err := t.countNodes(childOffset)
		if err != nil {
			return 0, err
		}
		count += childCount
	}
	return count, nil
}

// readNode reads a node either from the cache (if enabled) or the pager,
// populating the cache on a miss.
func (t *BTree) readNode(offset uint32) (*node.Node, error) {
	if t.cache != nil {
		if n := t.cache.Get(offset); n != nil {
			return n, nil
		}
	}
	n, err := t.pager.Read(offset)
	if err != nil {
		return nil, err
	}
	if t.logger != nil {
		t.logger.Debugw("read node", "offset", offset, "cached", false)
	}
	if t.cache != nil {
		t.cache.Put(n)
	}
	return n, nil
}

// writeNode persists n through the pager, then through the cache if one
// is enabled, so both stay consistent with what's on disk.
func (t *BTree) writeNode(n *node.Node) error {
	if err := t.pager.Write(n); err != nil {
		return err
	}
	if t.logger != nil {
		t.logger.Debugw("write node", "offset", n.Offset, "num_keys", n.NumberOfKeys, "is_leaf", n.IsLeaf)
	}
	if t.cache != nil {
		t.cache.Put(n)
	}
	return nil
}

func insertTreeObjectAt(s []node.TreeObject, index int, v node.TreeObject) []node.TreeObject {
	s = append(s, node.TreeObject{})
	copy(s[index+1:], s[index:])
	s[index] = v
	return s
}

func insertUint32At(s []uint32, index int, v uint32) []uint32 {
	s = append(s, 0)
	copy(s[index+1:], s[index:])
	s[index] = v
	return s
}
