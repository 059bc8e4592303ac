package btree

import (
	"fmt"

	"github.com/kellerstore/kellerstore/internal/pager"
	"github.com/kellerstore/kellerstore/internal/types"
)

// Tree is the fan-out geometry and pager handle for one B+tree. It is a
// lightweight value: the actual tree state lives in pages owned by the
// pager, addressed through RootPage (spec.md §4.2: "cursors never own
// pages; they refer by id").
type Tree struct {
	p        *pager.Pager
	RootPage pager.PageID
	KeyType  types.DataType

	RecordSize int
	keySize    int

	MaxLeaf, MinLeaf, SplitLeaf          int
	MaxInternal, MinInternal, SplitInternal int
}

// Create computes fan-out for a tree over keyType keys and recordSize
// records, and — if init is true — allocates a single empty leaf as its
// root (spec.md §4.2 "create(key_type, record_size, init)").
func Create(p *pager.Pager, keyType types.DataType, recordSize int, init bool) (*Tree, error) {
	keySize := int(keyType.TotalSize())
	if keySize <= 0 {
		return nil, fmt.Errorf("btree: key type has zero size")
	}
	dataSize := p.PageSize() - nodeHeaderSize

	// Both fan-outs reserve one scratch key slot beyond steady-state
	// capacity: Cursor.Insert fills a node to Max+1 entries before
	// splitNode trims it back down, and node.go's recordOffset/
	// childOffset base their record/child regions on Max+1 key slots to
	// give that transient state somewhere to land without overrunning
	// the page.
	maxLeaf := dataSize/(keySize+recordSize) - 1
	if maxLeaf < 3 {
		return nil, fmt.Errorf("btree: page too small for key size %d / record size %d", keySize, recordSize)
	}
	maxInternal := (dataSize - keySize - 8) / (keySize + 4)
	if maxInternal < 3 {
		return nil, fmt.Errorf("btree: page too small for internal fan-out at key size %d", keySize)
	}

	t := &Tree{
		p:           p,
		KeyType:     keyType,
		RecordSize:  recordSize,
		keySize:     keySize,
		MaxLeaf:     maxLeaf,
		MinLeaf:     maxLeaf / 2,
		SplitLeaf:   (maxLeaf + 1) / 2,
		MaxInternal: maxInternal,
		MinInternal: maxInternal / 2,
		SplitInternal: (maxInternal + 1) / 2,
	}

	if init {
		id, buf, err := p.NewPage()
		if err != nil {
			return nil, err
		}
		n := t.initNode(buf, id, pager.InvalidPageID, true)
		n.SetNextLeaf(pager.InvalidPageID)
		n.SetPrevLeaf(pager.InvalidPageID)
		n.SetNumKeys(0)
		t.RootPage = id
	}
	return t, nil
}

// Open reuses an already-allocated root page (e.g. read from a catalog
// descriptor) for tree geometry matching keyType/recordSize.
func Open(p *pager.Pager, root pager.PageID, keyType types.DataType, recordSize int) (*Tree, error) {
	t, err := Create(p, keyType, recordSize, false)
	if err != nil {
		return nil, err
	}
	t.RootPage = root
	return t, nil
}

func (t *Tree) getNode(id pager.PageID) (*node, error) {
	buf, err := t.p.Get(id)
	if err != nil {
		return nil, err
	}
	return t.wrap(buf), nil
}

func (t *Tree) getNodeForWrite(id pager.PageID) (*node, error) {
	buf, err := t.p.GetForWrite(id)
	if err != nil {
		return nil, err
	}
	return t.wrap(buf), nil
}

// Clear recursively frees every page belonging to the tree, leaving
// RootPage invalid (spec.md §4.2 "clear(&tree)").
func (t *Tree) Clear() error {
	if t.RootPage == pager.InvalidPageID {
		return nil
	}
	if err := t.clearSubtree(t.RootPage); err != nil {
		return err
	}
	t.RootPage = pager.InvalidPageID
	return nil
}

func (t *Tree) clearSubtree(id pager.PageID) error {
	n, err := t.getNode(id)
	if err != nil {
		return err
	}
	if !n.IsLeaf() {
		children := make([]pager.PageID, n.NumKeys()+1)
		for i := range children {
			children[i] = n.Child(i)
		}
		for _, c := range children {
			if err := t.clearSubtree(c); err != nil {
				return err
			}
		}
	}
	return t.p.Delete(id)
}

// locate performs the lower-bound binary search over a node's keys
// (spec.md §4.2 "Binary search within a node"): on an exact match it
// returns the matching index for a leaf, or index+1 for an internal node
// (so descent always lands in the right subtree for the matched
// separator). On no match it returns the standard lower-bound insertion
// point.
func locate(n *node, key []byte) int {
	keyType := n.t.KeyType
	lo, hi := 0, n.NumKeys()
	for lo < hi {
		mid := (lo + hi) / 2
		cmp := types.Compare(
			types.TypedValue{Type: keyType, Bytes: n.Key(mid)},
			types.TypedValue{Type: keyType, Bytes: key},
		)
		if cmp == 0 {
			if n.IsLeaf() {
				return mid
			}
			return mid + 1
		} else if cmp < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

func (t *Tree) compareKeys(a, b []byte) int {
	return types.Compare(
		types.TypedValue{Type: t.KeyType, Bytes: a},
		types.TypedValue{Type: t.KeyType, Bytes: b},
	)
}

// descendTo walks from the root to the leaf that should contain key,
// recording nothing but the final leaf id — ancestor navigation for
// split/rebalance propagation goes through each node's own Parent field
// rather than a cursor path stack (spec.md §3 node header carries
// `parent` directly).
func (t *Tree) descendTo(key []byte) (pager.PageID, error) {
	id := t.RootPage
	for {
		n, err := t.getNode(id)
		if err != nil {
			return 0, err
		}
		if n.IsLeaf() {
			return id, nil
		}
		idx := locate(n, key)
		id = n.Child(idx)
	}
}
