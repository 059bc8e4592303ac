// Package btree implements KellerStore's disk-resident B+tree: an
// ordered map from fixed-type keys to fixed-size records, built directly
// on top of internal/pager (spec.md §4.2, grounded on the reference
// engine's btree.hpp "B+tree form" and btree.cpp).
package btree

import (
	"encoding/binary"

	"github.com/kellerstore/kellerstore/internal/pager"
)

// Node header, fixed at the front of every node page (spec.md §3
// "B+tree node"):
//
//	[0:4]   Index     — this node's own page id
//	[4:8]   Parent     — parent page id, 0 if this is the root
//	[8:12]  NextLeaf   — next leaf in scan-order chain (leaves only)
//	[12:16] PrevLeaf   — previous leaf in scan-order chain (leaves only)
//	[16:20] NumKeys    — number of keys currently stored
//	[20]    IsLeaf     — 1 if leaf, 0 if internal
//	[21:24] padding
const (
	nodeIndexOff    = 0
	nodeParentOff   = 4
	nodeNextLeafOff = 8
	nodePrevLeafOff = 12
	nodeNumKeysOff  = 16
	nodeIsLeafOff   = 20
	nodeHeaderSize  = 24
)

// node is a page-buffer view, parameterized by the owning tree's fan-out
// geometry so key/record/child offsets can be computed without storing
// them redundantly on every page.
type node struct {
	buf  []byte
	t    *Tree
}

func (t *Tree) wrap(buf []byte) *node { return &node{buf: buf, t: t} }

func (n *node) Index() pager.PageID {
	return pager.PageID(binary.LittleEndian.Uint32(n.buf[nodeIndexOff:]))
}
func (n *node) Parent() pager.PageID {
	return pager.PageID(binary.LittleEndian.Uint32(n.buf[nodeParentOff:]))
}
func (n *node) NextLeaf() pager.PageID {
	return pager.PageID(binary.LittleEndian.Uint32(n.buf[nodeNextLeafOff:]))
}
func (n *node) PrevLeaf() pager.PageID {
	return pager.PageID(binary.LittleEndian.Uint32(n.buf[nodePrevLeafOff:]))
}
func (n *node) NumKeys() int {
	return int(binary.LittleEndian.Uint32(n.buf[nodeNumKeysOff:]))
}
func (n *node) IsLeaf() bool { return n.buf[nodeIsLeafOff] == 1 }

func (n *node) SetIndex(id pager.PageID) {
	binary.LittleEndian.PutUint32(n.buf[nodeIndexOff:], uint32(id))
}
func (n *node) SetParent(id pager.PageID) {
	binary.LittleEndian.PutUint32(n.buf[nodeParentOff:], uint32(id))
}
func (n *node) SetNextLeaf(id pager.PageID) {
	binary.LittleEndian.PutUint32(n.buf[nodeNextLeafOff:], uint32(id))
}
func (n *node) SetPrevLeaf(id pager.PageID) {
	binary.LittleEndian.PutUint32(n.buf[nodePrevLeafOff:], uint32(id))
}
func (n *node) SetNumKeys(k int) {
	binary.LittleEndian.PutUint32(n.buf[nodeNumKeysOff:], uint32(k))
}
func (n *node) SetIsLeaf(leaf bool) {
	if leaf {
		n.buf[nodeIsLeafOff] = 1
	} else {
		n.buf[nodeIsLeafOff] = 0
	}
}

// initNode zero-fills buf and stamps index/parent/isLeaf.
func (t *Tree) initNode(buf []byte, id, parent pager.PageID, isLeaf bool) *node {
	for i := range buf {
		buf[i] = 0
	}
	n := t.wrap(buf)
	n.SetIndex(id)
	n.SetParent(parent)
	n.SetIsLeaf(isLeaf)
	return n
}

func (n *node) keyOffset(i int) int { return nodeHeaderSize + i*n.t.keySize }

func (n *node) Key(i int) []byte {
	off := n.keyOffset(i)
	return n.buf[off : off+n.t.keySize]
}
func (n *node) SetKey(i int, key []byte) {
	off := n.keyOffset(i)
	copy(n.buf[off:off+n.t.keySize], key)
}

// Leaf record slots follow every key slot (spec.md §3 "Leaf:
// keys[max_leaf] | records[max_leaf]"). The key region is sized to
// MaxLeaf+1 slots, not MaxLeaf: Cursor.Insert fills a leaf to MaxLeaf+1
// entries before splitNode trims it back down, so a full leaf needs one
// scratch key/record slot beyond its steady-state capacity. Tree.Create
// reserves that extra slot's worth of bytes when computing MaxLeaf.
func (n *node) recordOffset(i int) int {
	return nodeHeaderSize + (n.t.MaxLeaf+1)*n.t.keySize + i*n.t.RecordSize
}
func (n *node) Record(i int) []byte {
	off := n.recordOffset(i)
	return n.buf[off : off+n.t.RecordSize]
}
func (n *node) SetRecord(i int, rec []byte) {
	off := n.recordOffset(i)
	copy(n.buf[off:off+n.t.RecordSize], rec)
}

// Internal child pointer slots follow every key slot (spec.md §3
// "Internal: keys[max_internal] | child_pointers[max_internal+1]"). As
// with recordOffset, the key region is sized to MaxInternal+1 slots so a
// full node being grown to MaxInternal+1 keys (and MaxInternal+2
// children) before splitNode trims it has a scratch slot to land in.
func (n *node) childOffset(i int) int {
	return nodeHeaderSize + (n.t.MaxInternal+1)*n.t.keySize + i*4
}
func (n *node) Child(i int) pager.PageID {
	off := n.childOffset(i)
	return pager.PageID(binary.LittleEndian.Uint32(n.buf[off:]))
}
func (n *node) SetChild(i int, id pager.PageID) {
	off := n.childOffset(i)
	binary.LittleEndian.PutUint32(n.buf[off:], uint32(id))
}

// maxKeys returns this node's key capacity, leaf or internal.
func (n *node) maxKeys() int {
	if n.IsLeaf() {
		return n.t.MaxLeaf
	}
	return n.t.MaxInternal
}
func (n *node) minKeys() int {
	if n.IsLeaf() {
		return n.t.MinLeaf
	}
	return n.t.MinInternal
}

// insertLeafAt makes room at index i by moving keys/records one slot to
// the right, for num-1 .. i, then writes key and rec at i.
func (n *node) insertLeafAt(i int, key, rec []byte) {
	nk := n.NumKeys()
	for j := nk; j > i; j-- {
		copy(n.Key(j), n.Key(j-1))
		copy(n.Record(j), n.Record(j-1))
	}
	copy(n.Key(i), key)
	copy(n.Record(i), rec)
	n.SetNumKeys(nk + 1)
}

func (n *node) removeLeafAt(i int) {
	nk := n.NumKeys()
	for j := i; j < nk-1; j++ {
		copy(n.Key(j), n.Key(j+1))
		copy(n.Record(j), n.Record(j+1))
	}
	n.SetNumKeys(nk - 1)
}

// insertInternalAt inserts separator key at index i with its right child
// at i+1, shifting existing keys/children right.
func (n *node) insertInternalAt(i int, key []byte, rightChild pager.PageID) {
	nk := n.NumKeys()
	for j := nk; j > i; j-- {
		copy(n.Key(j), n.Key(j-1))
	}
	for j := nk + 1; j > i+1; j-- {
		n.SetChild(j, n.Child(j-1))
	}
	copy(n.Key(i), key)
	n.SetChild(i+1, rightChild)
	n.SetNumKeys(nk + 1)
}

// removeInternalAt removes separator key i and the child pointer at
// childIdx (either i or i+1, chosen by the caller per which side merged).
func (n *node) removeInternalAt(keyIdx, childIdx int) {
	nk := n.NumKeys()
	for j := keyIdx; j < nk-1; j++ {
		copy(n.Key(j), n.Key(j+1))
	}
	for j := childIdx; j < nk; j++ {
		n.SetChild(j, n.Child(j+1))
	}
	n.SetNumKeys(nk - 1)
}

// prependInternal inserts key at position 0 with leftChild as the new
// child 0, shifting every existing key/child one slot to the right.
func (n *node) prependInternal(key []byte, leftChild pager.PageID) {
	nk := n.NumKeys()
	for j := nk; j > 0; j-- {
		copy(n.Key(j), n.Key(j-1))
	}
	for j := nk + 1; j > 0; j-- {
		n.SetChild(j, n.Child(j-1))
	}
	copy(n.Key(0), key)
	n.SetChild(0, leftChild)
	n.SetNumKeys(nk + 1)
}

// appendInternal appends key and rightChild at the end.
func (n *node) appendInternal(key []byte, rightChild pager.PageID) {
	nk := n.NumKeys()
	copy(n.Key(nk), key)
	n.SetChild(nk+1, rightChild)
	n.SetNumKeys(nk + 1)
}

// removeFirstInternal removes key 0 and child 0, shifting the rest left.
func (n *node) removeFirstInternal() ([]byte, pager.PageID) {
	key := append([]byte(nil), n.Key(0)...)
	child := n.Child(0)
	nk := n.NumKeys()
	for j := 0; j < nk-1; j++ {
		copy(n.Key(j), n.Key(j+1))
	}
	for j := 0; j < nk; j++ {
		n.SetChild(j, n.Child(j+1))
	}
	n.SetNumKeys(nk - 1)
	return key, child
}

// removeLastInternal removes the last key and last child.
func (n *node) removeLastInternal() ([]byte, pager.PageID) {
	nk := n.NumKeys()
	key := append([]byte(nil), n.Key(nk-1)...)
	child := n.Child(nk)
	n.SetNumKeys(nk - 1)
	return key, child
}
