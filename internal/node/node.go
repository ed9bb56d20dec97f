// Package node defines the in-memory shapes shared by the pager, the node
// cache, and the B-tree: a TreeObject key-value pair and the Node that
// holds an ordered run of them plus child offsets.
//
// Kept separate from both internal/pager and internal/btree so that
// neither has to import the other just to talk about a node.
package node

// TreeObject is a single key-value entry in a B-tree node: a packed k-mer
// (sequence) and the number of times it has been observed (frequency).
// Ordering and equality are defined on Sequence alone.
type TreeObject struct {
	Sequence  uint64
	Frequency uint64
}

// Less reports whether o sorts strictly before other by Sequence.
func (o TreeObject) Less(other TreeObject) bool {
	return o.Sequence < other.Sequence
}

// Equal reports whether o and other share the same Sequence.
func (o TreeObject) Equal(other TreeObject) bool {
	return o.Sequence == other.Sequence
}

// IncrementFrequency bumps the occurrence count by one, in place.
func (o *TreeObject) IncrementFrequency() {
	o.Frequency++
}

// Node is one B-tree node, addressed by its own byte Offset in the
// backing file. Offset never changes for the life of the node; it is
// the node's identity, not a pointer into a separate allocator.
type Node struct {
	Offset       uint32
	IsLeaf       bool
	NumberOfKeys uint32
	Keys         []TreeObject
	ChildrenPtrs []uint32
}

// New returns an empty leaf node with no assigned offset.
func New() *Node {
	return &Node{IsLeaf: true}
}

// NumberOfChildren reports len(ChildrenPtrs): 0 for a leaf, NumberOfKeys+1
// for an internal node.
func (n *Node) NumberOfChildren() uint32 {
	return uint32(len(n.ChildrenPtrs))
}

// AddChildPtr appends a child offset to the node.
func (n *Node) AddChildPtr(offset uint32) {
	n.ChildrenPtrs = append(n.ChildrenPtrs, offset)
}

// Equal does a field-for-field comparison, used by pager round-trip tests.
func (n *Node) Equal(other *Node) bool {
	if other == nil {
		return false
	}
	if n.Offset != other.Offset || n.IsLeaf != other.IsLeaf || n.NumberOfKeys != other.NumberOfKeys {
		return false
	}
	if len(n.Keys) != len(other.Keys) || len(n.ChildrenPtrs) != len(other.ChildrenPtrs) {
		return false
	}
	for i := range n.Keys {
		if n.Keys[i] != other.Keys[i] {
			return false
		}
	}
	for i := range n.ChildrenPtrs {
		if n.ChildrenPtrs[i] != other.ChildrenPtrs[i] {
			return false
		}
	}
	return true
}
