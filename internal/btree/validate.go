package btree

import (
	"fmt"

	"github.com/kellerstore/kellerstore/internal/pager"
)

// Validate walks the whole tree checking the structural invariants
// spec.md §3/§8 require: key ordering, min/max fan-out, uniform leaf
// depth, a bidirectional acyclic leaf chain, and parent/child
// containment bounds. Intended for test suites, not the hot path.
func (t *Tree) Validate() error {
	if t.RootPage == pager.InvalidPageID {
		return nil
	}
	depth, err := t.validateSubtree(t.RootPage, pager.InvalidPageID, true, nil, nil)
	if err != nil {
		return err
	}
	_ = depth
	return t.validateLeafChain()
}

// validateSubtree returns the leaf depth beneath id, checking every
// invariant along the way. lo/hi bound the keys this subtree may
// contain (nil = unbounded).
func (t *Tree) validateSubtree(id, expectParent pager.PageID, isRoot bool, lo, hi []byte) (int, error) {
	n, err := t.getNode(id)
	if err != nil {
		return 0, err
	}
	if n.Index() != id {
		return 0, fmt.Errorf("btree: node at page %d has stale self-index %d", id, n.Index())
	}
	if n.Parent() != expectParent {
		return 0, fmt.Errorf("btree: node %d has parent %d, expected %d", id, n.Parent(), expectParent)
	}

	nk := n.NumKeys()
	max := n.maxKeys()
	min := n.minKeys()
	if nk > max {
		return 0, fmt.Errorf("btree: node %d has %d keys, exceeds max %d", id, nk, max)
	}
	if !isRoot && nk < min {
		return 0, fmt.Errorf("btree: node %d has %d keys, below min %d", id, nk, min)
	}

	for i := 1; i < nk; i++ {
		if t.compareKeys(n.Key(i-1), n.Key(i)) >= 0 {
			return 0, fmt.Errorf("btree: node %d keys not strictly increasing at index %d", id, i)
		}
	}
	if lo != nil && nk > 0 && t.compareKeys(n.Key(0), lo) < 0 {
		return 0, fmt.Errorf("btree: node %d's first key violates lower bound", id)
	}
	if hi != nil && nk > 0 && t.compareKeys(n.Key(nk-1), hi) >= 0 {
		return 0, fmt.Errorf("btree: node %d's last key violates upper bound", id)
	}

	if n.IsLeaf() {
		return 0, nil
	}

	seen := map[pager.PageID]bool{id: true}
	var depth = -1
	for i := 0; i <= nk; i++ {
		childID := n.Child(i)
		if childID == pager.InvalidPageID {
			return 0, fmt.Errorf("btree: node %d has null child at %d", id, i)
		}
		if seen[childID] {
			return 0, fmt.Errorf("btree: node %d references child %d more than once (or self)", id, childID)
		}
		seen[childID] = true

		var childLo, childHi []byte
		if i > 0 {
			childLo = n.Key(i - 1)
		} else {
			childLo = lo
		}
		if i < nk {
			childHi = n.Key(i)
		} else {
			childHi = hi
		}

		d, err := t.validateSubtree(childID, id, false, childLo, childHi)
		if err != nil {
			return 0, err
		}
		if depth == -1 {
			depth = d
		} else if d != depth {
			return 0, fmt.Errorf("btree: uneven leaf depth under node %d", id)
		}
	}
	return depth + 1, nil
}

// validateLeafChain walks the leftmost path down to the first leaf, then
// follows NextLeaf pointers across, checking bidirectionality, ordering,
// and termination at both ends.
func (t *Tree) validateLeafChain() error {
	id := t.RootPage
	for {
		n, err := t.getNode(id)
		if err != nil {
			return err
		}
		if n.IsLeaf() {
			break
		}
		id = n.Child(0)
	}
	first, err := t.getNode(id)
	if err != nil {
		return err
	}
	if first.PrevLeaf() != pager.InvalidPageID {
		return fmt.Errorf("btree: leftmost leaf %d has nonzero prev", id)
	}

	visited := map[pager.PageID]bool{}
	var prevKey []byte
	prevID := pager.PageID(pager.InvalidPageID)
	for id != pager.InvalidPageID {
		if visited[id] {
			return fmt.Errorf("btree: cycle detected in leaf chain at page %d", id)
		}
		visited[id] = true
		n, err := t.getNode(id)
		if err != nil {
			return err
		}
		if n.PrevLeaf() != prevID {
			return fmt.Errorf("btree: leaf %d prev pointer %d does not match actual predecessor %d", id, n.PrevLeaf(), prevID)
		}
		for i := 0; i < n.NumKeys(); i++ {
			if prevKey != nil && t.compareKeys(prevKey, n.Key(i)) >= 0 {
				return fmt.Errorf("btree: leaf chain not strictly increasing at page %d index %d", id, i)
			}
			prevKey = n.Key(i)
		}
		prevID = id
		id = n.NextLeaf()
	}
	return nil
}
