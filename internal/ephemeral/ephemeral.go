// Package ephemeral implements an in-memory red-black tree with the same
// cursor contract as internal/btree, used for ORDER BY / GROUP BY
// intermediate state that never needs to survive past one query (spec.md
// §4.3, grounded on the reference engine's ephemeral_tree.hpp).
package ephemeral

import (
	"github.com/kellerstore/kellerstore/internal/arena"
	"github.com/kellerstore/kellerstore/internal/types"
)

// Color is a red-black node color.
type Color uint8

const (
	Red Color = iota
	Black
)

// Node is one red-black tree node. Key and Record bytes are arena-owned;
// the Node struct itself is an ordinary Go heap value reclaimed by the
// garbage collector once the arena is reset and the tree is dropped —
// unlike the reference's single contiguous [node][key][record]
// allocation, nothing here needs manual pointer arithmetic to reach a
// node's payload.
type Node struct {
	Key    []byte
	Record []byte

	Left, Right, Parent *Node
	Color                Color
}

// Tree is a red-black tree over fixed-type keys and fixed-size records.
type Tree struct {
	arena      *arena.Arena
	Root       *Node
	KeyType    types.DataType
	RecordSize int
	NodeCount  int

	// AllowDuplicates permits repeated insertions of an equal key;
	// traversal visits each distinct insertion (spec.md §4.3).
	AllowDuplicates bool

	// Rebalance toggles red-black fixup. When false the tree degrades to
	// a plain unbalanced BST (spec.md §4.3 "Rebalance is optional").
	Rebalance bool
}

// New creates an empty tree backed by a, for keys of keyType and records
// of recordSize bytes.
func New(a *arena.Arena, keyType types.DataType, recordSize int, allowDuplicates, rebalance bool) *Tree {
	return &Tree{
		arena:           a,
		KeyType:         keyType,
		RecordSize:      recordSize,
		AllowDuplicates: allowDuplicates,
		Rebalance:       rebalance,
	}
}

func (t *Tree) compareKeys(a, b []byte) int {
	return types.Compare(
		types.TypedValue{Type: t.KeyType, Bytes: a},
		types.TypedValue{Type: t.KeyType, Bytes: b},
	)
}

func (t *Tree) newNode(key, record []byte) (*Node, error) {
	k, err := t.arena.AllocCopy(key)
	if err != nil {
		return nil, err
	}
	r, err := t.arena.AllocCopy(record)
	if err != nil {
		return nil, err
	}
	return &Node{Key: k, Record: r, Color: Red}, nil
}

// minimum returns the leftmost descendant of n (nil if n is nil).
func minimum(n *Node) *Node {
	if n == nil {
		return nil
	}
	for n.Left != nil {
		n = n.Left
	}
	return n
}

// maximum returns the rightmost descendant of n.
func maximum(n *Node) *Node {
	if n == nil {
		return nil
	}
	for n.Right != nil {
		n = n.Right
	}
	return n
}

// successor returns n's in-order successor.
func successor(n *Node) *Node {
	if n.Right != nil {
		return minimum(n.Right)
	}
	p := n.Parent
	for p != nil && n == p.Right {
		n = p
		p = p.Parent
	}
	return p
}

// predecessor returns n's in-order predecessor.
func predecessor(n *Node) *Node {
	if n.Left != nil {
		return maximum(n.Left)
	}
	p := n.Parent
	for p != nil && n == p.Left {
		n = p
		p = p.Parent
	}
	return p
}
