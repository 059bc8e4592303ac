package btree

import (
	"fmt"

	"github.com/kellerstore/kellerstore/internal/pager"
)

// State is a cursor's positioning status (spec.md §4.2 "Cursor").
type State int

const (
	Invalid State = iota
	Valid
	Fault
)

// ComparisonOp selects the seek_cmp direction (spec.md §4.2
// "cursor_seek_cmp").
type ComparisonOp int

const (
	LT ComparisonOp = iota
	LE
	EQ
	GE
	GT
)

// Cursor walks a Tree without ever holding a raw page pointer: only a
// PageID and an index, so the pager is free to evict the page between
// calls (spec.md §4.2 "Cursors never own pages").
type Cursor struct {
	Tree      *Tree
	LeafPage  pager.PageID
	LeafIndex int
	State     State
}

// NewCursor returns a fresh, Invalid cursor over t.
func NewCursor(t *Tree) *Cursor {
	return &Cursor{Tree: t, State: Invalid}
}

func (c *Cursor) leaf() (*node, error) { return c.Tree.getNode(c.LeafPage) }

// Key returns the key at the cursor's current position. Valid only when
// State == Valid.
func (c *Cursor) Key() ([]byte, error) {
	n, err := c.leaf()
	if err != nil {
		return nil, err
	}
	return n.Key(c.LeafIndex), nil
}

// Record returns the record at the cursor's current position.
func (c *Cursor) Record() ([]byte, error) {
	n, err := c.leaf()
	if err != nil {
		return nil, err
	}
	return n.Record(c.LeafIndex), nil
}

// Seek positions the cursor at key if present, else at the insertion
// point clamped to the last key of the target leaf (spec.md §4.2
// "cursor_seek").
func (c *Cursor) Seek(key []byte) (bool, error) {
	leafID, err := c.Tree.descendTo(key)
	if err != nil {
		return false, err
	}
	n, err := c.Tree.getNode(leafID)
	if err != nil {
		return false, err
	}
	if n.NumKeys() == 0 {
		c.LeafPage = leafID
		c.LeafIndex = 0
		c.State = Invalid
		return false, nil
	}
	idx := locate(n, key)
	found := idx < n.NumKeys() && c.Tree.compareKeys(n.Key(idx), key) == 0
	if idx >= n.NumKeys() {
		idx = n.NumKeys() - 1
	}
	c.LeafPage = leafID
	c.LeafIndex = idx
	c.State = Valid
	return found, nil
}

// positionAtOrAfter finds the first entry with key >= target.
func (c *Cursor) positionAtOrAfter(target []byte) (bool, error) {
	leafID, err := c.Tree.descendTo(target)
	if err != nil {
		return false, err
	}
	n, err := c.Tree.getNode(leafID)
	if err != nil {
		return false, err
	}
	idx := locate(n, target)
	if idx < n.NumKeys() {
		c.LeafPage = leafID
		c.LeafIndex = idx
		c.State = Valid
		return c.Tree.compareKeys(n.Key(idx), target) == 0, nil
	}
	// Target is past every key in this leaf: advance to the next leaf's
	// first entry, if any.
	next := n.NextLeaf()
	if next == pager.InvalidPageID {
		c.State = Invalid
		return false, nil
	}
	c.LeafPage = next
	c.LeafIndex = 0
	c.State = Valid
	return false, nil
}

// positionAtOrBefore finds the last entry with key <= target.
func (c *Cursor) positionAtOrBefore(target []byte) (bool, error) {
	leafID, err := c.Tree.descendTo(target)
	if err != nil {
		return false, err
	}
	n, err := c.Tree.getNode(leafID)
	if err != nil {
		return false, err
	}
	idx := locate(n, target)
	if idx < n.NumKeys() && c.Tree.compareKeys(n.Key(idx), target) == 0 {
		c.LeafPage = leafID
		c.LeafIndex = idx
		c.State = Valid
		return true, nil
	}
	// idx is the first key greater than target (or NumKeys if none):
	// the entry we want is idx-1 in this leaf, or the previous leaf's
	// last entry if idx==0.
	if idx > 0 {
		c.LeafPage = leafID
		c.LeafIndex = idx - 1
		c.State = Valid
		return false, nil
	}
	prev := n.PrevLeaf()
	if prev == pager.InvalidPageID {
		c.State = Invalid
		return false, nil
	}
	prevNode, err := c.Tree.getNode(prev)
	if err != nil {
		return false, err
	}
	c.LeafPage = prev
	c.LeafIndex = prevNode.NumKeys() - 1
	c.State = Valid
	return false, nil
}

// SeekCmp positions the cursor at the first entry satisfying op relative
// to key (spec.md §4.2 "cursor_seek_cmp"). The returned bool reports
// whether such an entry exists (State == Valid on return), not whether
// it matches key exactly.
func (c *Cursor) SeekCmp(key []byte, op ComparisonOp) (bool, error) {
	switch op {
	case EQ:
		_, err := c.Seek(key)
		return c.State == Valid, err
	case GE:
		_, err := c.positionAtOrAfter(key)
		return c.State == Valid, err
	case GT:
		exact, err := c.positionAtOrAfter(key)
		if err != nil || c.State != Valid {
			return false, err
		}
		if exact {
			if _, err := c.Next(); err != nil {
				return false, err
			}
		}
		return c.State == Valid, nil
	case LE:
		_, err := c.positionAtOrBefore(key)
		return c.State == Valid, err
	case LT:
		exact, err := c.positionAtOrBefore(key)
		if err != nil || c.State != Valid {
			return false, err
		}
		if exact {
			if _, err := c.Previous(); err != nil {
				return false, err
			}
		}
		return c.State == Valid, nil
	default:
		return false, fmt.Errorf("btree: unknown comparison op %d", op)
	}
}

// First positions the cursor at the leftmost entry in the tree.
func (c *Cursor) First() (bool, error) {
	id := c.Tree.RootPage
	for {
		n, err := c.Tree.getNode(id)
		if err != nil {
			return false, err
		}
		if n.IsLeaf() {
			if n.NumKeys() == 0 {
				c.State = Invalid
				return false, nil
			}
			c.LeafPage = id
			c.LeafIndex = 0
			c.State = Valid
			return true, nil
		}
		id = n.Child(0)
	}
}

// Last positions the cursor at the rightmost entry in the tree.
func (c *Cursor) Last() (bool, error) {
	id := c.Tree.RootPage
	for {
		n, err := c.Tree.getNode(id)
		if err != nil {
			return false, err
		}
		if n.IsLeaf() {
			if n.NumKeys() == 0 {
				c.State = Invalid
				return false, nil
			}
			c.LeafPage = id
			c.LeafIndex = n.NumKeys() - 1
			c.State = Valid
			return true, nil
		}
		id = n.Child(n.NumKeys())
	}
}

// Next advances the cursor to the following entry in key order.
func (c *Cursor) Next() (bool, error) {
	if c.State != Valid {
		return false, fmt.Errorf("btree: Next on non-valid cursor")
	}
	n, err := c.leaf()
	if err != nil {
		return false, err
	}
	if c.LeafIndex+1 < n.NumKeys() {
		c.LeafIndex++
		return true, nil
	}
	next := n.NextLeaf()
	if next == pager.InvalidPageID {
		c.State = Invalid
		return false, nil
	}
	nextNode, err := c.Tree.getNode(next)
	if err != nil {
		return false, err
	}
	if nextNode.NumKeys() == 0 {
		c.State = Invalid
		return false, nil
	}
	c.LeafPage = next
	c.LeafIndex = 0
	return true, nil
}

// Previous moves the cursor to the preceding entry in key order.
func (c *Cursor) Previous() (bool, error) {
	if c.State != Valid {
		return false, fmt.Errorf("btree: Previous on non-valid cursor")
	}
	if c.LeafIndex > 0 {
		c.LeafIndex--
		return true, nil
	}
	n, err := c.leaf()
	if err != nil {
		return false, err
	}
	prev := n.PrevLeaf()
	if prev == pager.InvalidPageID {
		c.State = Invalid
		return false, nil
	}
	prevNode, err := c.Tree.getNode(prev)
	if err != nil {
		return false, err
	}
	if prevNode.NumKeys() == 0 {
		c.State = Invalid
		return false, nil
	}
	c.LeafPage = prev
	c.LeafIndex = prevNode.NumKeys() - 1
	return true, nil
}

// Insert inserts (key, record), rejecting duplicates (spec.md §4.2
// "cursor_insert").
func (c *Cursor) Insert(key, record []byte) (bool, error) {
	leafID, err := c.Tree.descendTo(key)
	if err != nil {
		return false, err
	}
	n, err := c.Tree.getNodeForWrite(leafID)
	if err != nil {
		return false, err
	}
	idx := locate(n, key)
	if idx < n.NumKeys() && c.Tree.compareKeys(n.Key(idx), key) == 0 {
		return false, nil
	}
	n.insertLeafAt(idx, key, record)
	if err := c.Tree.splitNode(leafID); err != nil {
		return false, err
	}
	if _, err := c.Seek(key); err != nil {
		return false, err
	}
	return true, nil
}

// Update overwrites the record at the cursor's current position.
func (c *Cursor) Update(record []byte) error {
	if c.State != Valid {
		return fmt.Errorf("btree: Update on non-valid cursor")
	}
	n, err := c.Tree.getNodeForWrite(c.LeafPage)
	if err != nil {
		return err
	}
	n.SetRecord(c.LeafIndex, record)
	return nil
}

// Delete removes the entry at the cursor's current position and
// rebalances (spec.md §4.2 "cursor_delete").
func (c *Cursor) Delete() (bool, error) {
	if c.State != Valid {
		return false, nil
	}
	n, err := c.Tree.getNodeForWrite(c.LeafPage)
	if err != nil {
		return false, err
	}
	deletedIdx := c.LeafIndex
	oldKey := append([]byte(nil), n.Key(deletedIdx)...)
	wasFirst := deletedIdx == 0
	parent := n.Parent()
	leafID := c.LeafPage

	n.removeLeafAt(deletedIdx)

	if wasFirst && n.NumKeys() > 0 {
		newMin := append([]byte(nil), n.Key(0)...)
		if err := c.Tree.fixupAncestorMinKey(parent, leafID, oldKey, newMin); err != nil {
			return false, err
		}
	}

	survived, err := c.Tree.rebalance(leafID)
	if err != nil {
		return false, err
	}
	if !survived {
		c.State = Invalid
		return true, nil
	}

	final, err := c.Tree.getNode(leafID)
	if err != nil {
		return false, err
	}
	if final.NumKeys() == 0 {
		c.State = Invalid
		return true, nil
	}
	if deletedIdx >= final.NumKeys() {
		deletedIdx = final.NumKeys() - 1
	}
	c.LeafPage = leafID
	c.LeafIndex = deletedIdx
	c.State = Valid
	return true, nil
}
