package ephemeral

import "fmt"

// State is a cursor's positioning status, mirroring internal/btree's
// Cursor so the VM's cursor table can treat both uniformly (spec.md
// §4.3 "same cursor contract").
type State int

const (
	Invalid State = iota
	Valid
)

// ComparisonOp selects the SeekCmp direction.
type ComparisonOp int

const (
	LT ComparisonOp = iota
	LE
	EQ
	GE
	GT
)

// Cursor walks a Tree by direct node pointer — safe here since, unlike
// the B+tree, an ephemeral tree's nodes never move or get evicted once
// allocated.
type Cursor struct {
	Tree    *Tree
	Current *Node
	State   State
}

// NewCursor returns a fresh, Invalid cursor over t.
func NewCursor(t *Tree) *Cursor {
	return &Cursor{Tree: t, State: Invalid}
}

// Key returns the key at the cursor's current position.
func (c *Cursor) Key() ([]byte, error) {
	if c.State != Valid {
		return nil, fmt.Errorf("ephemeral: Key on non-valid cursor")
	}
	return c.Current.Key, nil
}

// Record returns the record at the cursor's current position.
func (c *Cursor) Record() ([]byte, error) {
	if c.State != Valid {
		return nil, fmt.Errorf("ephemeral: Record on non-valid cursor")
	}
	return c.Current.Record, nil
}

// Seek positions the cursor at the first node with key == target, or at
// the in-order successor if no exact match exists.
func (c *Cursor) Seek(target []byte) (bool, error) {
	cur := c.Tree.Root
	var best *Node
	for cur != nil {
		cmp := c.Tree.compareKeys(cur.Key, target)
		switch {
		case cmp == 0:
			best = cur
			cur = cur.Left // find the leftmost (first-inserted) tie
		case cmp > 0:
			best = cur
			cur = cur.Left
		default:
			cur = cur.Right
		}
	}
	if best == nil {
		c.State = Invalid
		return false, nil
	}
	c.Current = best
	c.State = Valid
	return c.Tree.compareKeys(best.Key, target) == 0, nil
}

func (c *Cursor) positionAtOrAfter(target []byte) (bool, error) {
	found, err := c.Seek(target)
	return found, err
}

func (c *Cursor) positionAtOrBefore(target []byte) (bool, error) {
	cur := c.Tree.Root
	var best *Node
	for cur != nil {
		cmp := c.Tree.compareKeys(cur.Key, target)
		switch {
		case cmp == 0:
			best = cur
			cur = cur.Right // find the rightmost tie
		case cmp < 0:
			best = cur
			cur = cur.Right
		default:
			cur = cur.Left
		}
	}
	if best == nil {
		c.State = Invalid
		return false, nil
	}
	c.Current = best
	c.State = Valid
	return c.Tree.compareKeys(best.Key, target) == 0, nil
}

// SeekCmp positions the cursor at the first entry satisfying op relative
// to key. The returned bool reports whether a qualifying entry exists.
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
		return false, fmt.Errorf("ephemeral: unknown comparison op %d", op)
	}
}

// First positions the cursor at the leftmost (smallest-key) node.
func (c *Cursor) First() (bool, error) {
	n := minimum(c.Tree.Root)
	if n == nil {
		c.State = Invalid
		return false, nil
	}
	c.Current = n
	c.State = Valid
	return true, nil
}

// Last positions the cursor at the rightmost (largest-key) node.
func (c *Cursor) Last() (bool, error) {
	n := maximum(c.Tree.Root)
	if n == nil {
		c.State = Invalid
		return false, nil
	}
	c.Current = n
	c.State = Valid
	return true, nil
}

// Next advances the cursor to the in-order successor.
func (c *Cursor) Next() (bool, error) {
	if c.State != Valid {
		return false, fmt.Errorf("ephemeral: Next on non-valid cursor")
	}
	n := successor(c.Current)
	if n == nil {
		c.State = Invalid
		return false, nil
	}
	c.Current = n
	return true, nil
}

// Previous moves the cursor to the in-order predecessor.
func (c *Cursor) Previous() (bool, error) {
	if c.State != Valid {
		return false, fmt.Errorf("ephemeral: Previous on non-valid cursor")
	}
	n := predecessor(c.Current)
	if n == nil {
		c.State = Invalid
		return false, nil
	}
	c.Current = n
	return true, nil
}

// Insert adds (key, record) and repositions the cursor onto the new
// node (or leaves it untouched on duplicate rejection).
func (c *Cursor) Insert(key, record []byte) (bool, error) {
	ok, err := c.Tree.Insert(key, record)
	if err != nil || !ok {
		return ok, err
	}
	_, err = c.Seek(key)
	return true, err
}

// Update replaces the record at the cursor's current position with an
// arena copy of record. The key is left untouched, so ordering is
// unaffected.
func (c *Cursor) Update(record []byte) error {
	if c.State != Valid {
		return fmt.Errorf("ephemeral: Update on non-valid cursor")
	}
	rec, err := c.Tree.arena.AllocCopy(record)
	if err != nil {
		return err
	}
	c.Current.Record = rec
	return nil
}

// Delete removes the entry at the cursor's current position, leaving the
// cursor Invalid afterward (matching the B+tree cursor's clamp-or-invalidate
// contract, simplified here since a deletion can land anywhere in the tree
// rather than only at a leaf boundary).
func (c *Cursor) Delete() (bool, error) {
	if c.State != Valid {
		return false, nil
	}
	c.Tree.remove(c.Current)
	c.Current = nil
	c.State = Invalid
	return true, nil
}
