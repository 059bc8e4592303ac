package ephemeral

import "fmt"

// Validate walks the whole tree checking binary-search-tree ordering and,
// when Rebalance is enabled, the red-black invariants (no red node has a
// red child, every root-to-nil path carries the same black height).
// Intended for test suites, not the hot path.
func (t *Tree) Validate() error {
	if t.Root == nil {
		return nil
	}
	if t.Root.Color != Black && t.Rebalance {
		return fmt.Errorf("ephemeral: root is not black")
	}
	_, err := t.validateSubtree(t.Root, nil, nil, nil, true)
	return err
}

// validateSubtree checks n and its descendants against an inclusive lower
// bound lo and an upper bound hi that is inclusive when AllowDuplicates
// is set and exclusive otherwise. Insert descends right on a tie, but
// fixup rotations can move an equal key into a left subtree, so with
// duplicates permitted either child may equal its parent's key.
func (t *Tree) validateSubtree(n *Node, parent *Node, lo, hi []byte, hiInclusive bool) (int, error) {
	if n.Parent != parent {
		return 0, fmt.Errorf("ephemeral: node has wrong parent pointer")
	}
	if lo != nil && t.compareKeys(n.Key, lo) < 0 {
		return 0, fmt.Errorf("ephemeral: node violates lower bound")
	}
	if hi != nil {
		cmp := t.compareKeys(n.Key, hi)
		if cmp > 0 || (cmp == 0 && !hiInclusive) {
			return 0, fmt.Errorf("ephemeral: node violates upper bound")
		}
	}

	if t.Rebalance && n.Color == Red {
		if colorOf(n.Left) == Red || colorOf(n.Right) == Red {
			return 0, fmt.Errorf("ephemeral: red node has a red child")
		}
	}

	var leftBH, rightBH int
	var err error
	if n.Left != nil {
		leftBH, err = t.validateSubtree(n.Left, n, lo, n.Key, t.AllowDuplicates)
		if err != nil {
			return 0, err
		}
	}
	if n.Right != nil {
		rightBH, err = t.validateSubtree(n.Right, n, n.Key, hi, t.AllowDuplicates)
		if err != nil {
			return 0, err
		}
	}
	if t.Rebalance && leftBH != rightBH {
		return 0, fmt.Errorf("ephemeral: unequal black height across node")
	}
	bh := leftBH
	if colorOf(n) == Black {
		bh++
	}
	return bh, nil
}
