// Package pager converts between in-memory node.Node values and the
// fixed-size on-disk records of a single append-structured B-tree file.
//
// File layout:
//
//	[0..3]  uint32 be  root_offset
//	[4..7]  uint32 be  degree
//	[8..)   a sequence of fixed-size node records, one per node.
//
// Record layout for a tree of degree t (all integers big-endian), total
// length RecordSize(t):
//
//	[0..3]    uint32  offset (self-identifying, checked on read)
//	[4]       uint8   is_leaf (0x01 leaf, 0x00 internal)
//	[5..8]    uint32  number_of_keys
//	[9..12]   uint32  number_of_children
//	[13..)    2t-1 key slots, 16 bytes each: sequence(u64) || frequency(u64)
//	[..)      2t child slots, 4 bytes each: child offset(u32)
//	[..)      13 bytes of zero-filled padding
//
// Unused key/child slots within a record are zero-filled. The fixed
// stride means the i-th node occupies [8+i*R(t), 8+(i+1)*R(t)) — offset
// arithmetic never needs a free-space allocator.
package pager

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/wrightcameron/genebank-btree/internal/node"
)

// StartingOffset is the byte offset of the first node record, right after
// the 8-byte metadata header.
const StartingOffset uint32 = 8

const (
	offOffset       = 0
	offIsLeaf       = 4
	offNumberOfKeys = 5
	offNumChildren  = 9
	offKeySlots     = 13

	keySlotSize   = 16 // sequence(u64) + frequency(u64)
	childSlotSize = 4  // child offset(u32)
	trailingPad   = 13
)

// RecordSize returns R(t), the fixed on-disk length of every node record
// for a tree of degree t.
func RecordSize(degree uint32) uint32 {
	return offKeySlots + keySlotSize*(2*degree-1) + childSlotSize*(2*degree) + trailingPad
}

// BestDegreeForPageSize returns the largest degree t such that
// RecordSize(t) fits within pageSize bytes. Used to resolve the CLI's
// degree=0 "auto" sentinel against a 4096-byte page budget (yields 102).
func BestDegreeForPageSize(pageSize uint32) uint32 {
	degree := uint32(2)
	for RecordSize(degree+1) <= pageSize {
		degree++
	}
	return degree
}

// Pager owns the single file handle backing a B-tree and knows how to
// serialize node.Node values to and from it at fixed offsets.
type Pager struct {
	file         *os.File
	degree       uint32
	recordSize   uint32
	appendCursor uint32
}

// Open opens (or creates) the file at path for a tree of the given
// degree. The append cursor starts at StartingOffset; Open does not
// write the metadata header — callers write it explicitly via
// WriteMetadata, matching the reference pager's two-step init.
func Open(path string, degree uint32) (*Pager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("pager: open %s: %w", path, err)
	}
	return &Pager{
		file:         f,
		degree:       degree,
		recordSize:   RecordSize(degree),
		appendCursor: StartingOffset,
	}, nil
}

// Close closes the underlying file.
func (p *Pager) Close() error {
	if err := p.file.Close(); err != nil {
		return fmt.Errorf("pager: close: %w", err)
	}
	return nil
}

// AppendCursor returns the pager's next-write offset for a never-before
// written node. The B-tree reads this to assign offsets to new pages.
func (p *Pager) AppendCursor() uint32 {
	return p.appendCursor
}

// SetAppendCursor lets a caller resuming against an existing file (no
// truncate) seed the cursor from the file's current length.
func (p *Pager) SetAppendCursor(offset uint32) {
	p.appendCursor = offset
}

// SeedAppendCursorFromFile sets the append cursor from the file's actual
// size on disk, for the reopen-without-truncate path where the cursor
// otherwise defaults to StartingOffset regardless of what's already
// been written.
func (p *Pager) SeedAppendCursorFromFile() error {
	info, err := p.file.Stat()
	if err != nil {
		return fmt.Errorf("pager: stat: %w", err)
	}
	size := uint32(info.Size())
	if size < StartingOffset {
		size = StartingOffset
	}
	p.appendCursor = size
	return nil
}

// WriteMetadata writes the 8-byte header: root_offset then degree, both
// big-endian. Passing rootOffset==0 is treated as "use the default first
// node offset" (StartingOffset).
func (p *Pager) WriteMetadata(rootOffset, degree uint32) error {
	if rootOffset == 0 {
		rootOffset = StartingOffset
	}
	var hdr [8]byte
	binary.BigEndian.PutUint32(hdr[0:4], rootOffset)
	binary.BigEndian.PutUint32(hdr[4:8], degree)
	if _, err := p.file.WriteAt(hdr[:], 0); err != nil {
		return fmt.Errorf("pager: write metadata: %w", err)
	}
	return p.file.Sync()
}

// ReadMetadata reads the 8-byte header, returning (root_offset, degree).
// Fails if the file is shorter than 8 bytes.
func (p *Pager) ReadMetadata() (rootOffset, degree uint32, err error) {
	var hdr [8]byte
	n, readErr := p.file.ReadAt(hdr[:], 0)
	if n < 8 {
		if readErr != nil {
			return 0, 0, fmt.Errorf("pager: no metadata: %w", readErr)
		}
		return 0, 0, fmt.Errorf("pager: no metadata: short read (%d bytes)", n)
	}
	rootOffset = binary.BigEndian.Uint32(hdr[0:4])
	degree = binary.BigEndian.Uint32(hdr[4:8])
	return rootOffset, degree, nil
}

// GetRootOffset is a convenience wrapper over ReadMetadata returning only
// the root offset.
func (p *Pager) GetRootOffset() (uint32, error) {
	rootOffset, _, err := p.ReadMetadata()
	if err != nil {
		return 0, err
	}
	return rootOffset, nil
}

// ReadRoot reads the metadata header, then reads and returns the root
// node it points to.
func (p *Pager) ReadRoot() (*node.Node, error) {
	offset, err := p.GetRootOffset()
	if err != nil {
		return nil, err
	}
	return p.Read(offset)
}

// Write serializes n at n.Offset. If n.Offset is at or beyond the
// current append cursor, the cursor advances by RecordSize(degree) —
// this is how the pager distinguishes "append a new node" from
// "update an existing one in place".
func (p *Pager) Write(n *node.Node) error {
	moveCursor := n.Offset >= p.appendCursor

	buf := make([]byte, p.recordSize)
	binary.BigEndian.PutUint32(buf[offOffset:], n.Offset)
	if n.IsLeaf {
		buf[offIsLeaf] = 0x01
	} else {
		buf[offIsLeaf] = 0x00
	}
	binary.BigEndian.PutUint32(buf[offNumberOfKeys:], n.NumberOfKeys)
	binary.BigEndian.PutUint32(buf[offNumChildren:], uint32(len(n.ChildrenPtrs)))

	maxKeys := 2*p.degree - 1
	off := offKeySlots
	for i := uint32(0); i < maxKeys; i++ {
		if i < uint32(len(n.Keys)) {
			binary.BigEndian.PutUint64(buf[off:], n.Keys[i].Sequence)
			binary.BigEndian.PutUint64(buf[off+8:], n.Keys[i].Frequency)
		}
		off += keySlotSize
	}

	maxChildren := 2 * p.degree
	for i := uint32(0); i < maxChildren; i++ {
		if i < uint32(len(n.ChildrenPtrs)) {
			binary.BigEndian.PutUint32(buf[off:], n.ChildrenPtrs[i])
		}
		off += childSlotSize
	}
	// Remaining trailingPad bytes stay zero.

	if _, err := p.file.WriteAt(buf, int64(n.Offset)); err != nil {
		return fmt.Errorf("pager: write node at %d: %w", n.Offset, err)
	}
	if err := p.file.Sync(); err != nil {
		return fmt.Errorf("pager: sync after write at %d: %w", n.Offset, err)
	}

	if moveCursor {
		p.appendCursor += p.recordSize
	}
	return nil
}

// Read reads the node record at offset. It asserts the self-stored
// offset field equals the requested offset; a mismatch indicates
// corruption and panics, naming the bad offset.
func (p *Pager) Read(offset uint32) (*node.Node, error) {
	buf := make([]byte, p.recordSize)
	if _, err := p.file.ReadAt(buf, int64(offset)); err != nil {
		return nil, fmt.Errorf("pager: read node at %d: %w", offset, err)
	}

	foundOffset := binary.BigEndian.Uint32(buf[offOffset:])
	if foundOffset != offset {
		panic(fmt.Sprintf("pager: corruption — found offset %d doesn't match requested offset %d", foundOffset, offset))
	}

	isLeaf := buf[offIsLeaf] == 0x01
	numberOfKeys := binary.BigEndian.Uint32(buf[offNumberOfKeys:])
	numberOfChildren := binary.BigEndian.Uint32(buf[offNumChildren:])

	keys := make([]node.TreeObject, numberOfKeys)
	off := offKeySlots
	for i := uint32(0); i < numberOfKeys; i++ {
		keys[i] = node.TreeObject{
			Sequence:  binary.BigEndian.Uint64(buf[off:]),
			Frequency: binary.BigEndian.Uint64(buf[off+8:]),
		}
		off += keySlotSize
	}

	childOff := offKeySlots + int(2*p.degree-1)*keySlotSize
	children := make([]uint32, numberOfChildren)
	for i := uint32(0); i < numberOfChildren; i++ {
		children[i] = binary.BigEndian.Uint32(buf[childOff:])
		childOff += childSlotSize
	}

	return &node.Node{
		Offset:       foundOffset,
		IsLeaf:       isLeaf,
		NumberOfKeys: numberOfKeys,
		Keys:         keys,
		ChildrenPtrs: children,
	}, nil
}

// Degree returns the tree degree this pager was opened with.
func (p *Pager) Degree() uint32 {
	return p.degree
}
