package btree

import "github.com/kellerstore/kellerstore/internal/pager"

// rebalance repairs node id after it has lost a key (directly, or because
// a child of it was merged away), borrowing from a sibling or merging
// with one, and recursing upward as needed (spec.md §4.2 "Delete
// rebalance"). It returns whether id itself still exists after the
// repair — false means id was absorbed into a sibling and destroyed.
func (t *Tree) rebalance(id pager.PageID) (bool, error) {
	n, err := t.getNodeForWrite(id)
	if err != nil {
		return false, err
	}
	if n.NumKeys() >= n.minKeys() {
		return true, nil
	}

	parent := n.Parent()
	if parent == pager.InvalidPageID {
		return t.rebalanceRoot(id, n)
	}

	parentNode, err := t.getNodeForWrite(parent)
	if err != nil {
		return false, err
	}
	myIdx := childIndexOf(parentNode, id)

	if myIdx > 0 {
		leftID := parentNode.Child(myIdx - 1)
		left, err := t.getNodeForWrite(leftID)
		if err != nil {
			return false, err
		}
		if left.NumKeys() > left.minKeys() {
			t.borrowFromLeft(n, left, parentNode, myIdx)
			return true, nil
		}
	}
	if myIdx < parentNode.NumKeys() {
		rightID := parentNode.Child(myIdx + 1)
		right, err := t.getNodeForWrite(rightID)
		if err != nil {
			return false, err
		}
		if right.NumKeys() > right.minKeys() {
			t.borrowFromRight(n, right, parentNode, myIdx)
			return true, nil
		}
	}

	if myIdx < parentNode.NumKeys() {
		rightID := parentNode.Child(myIdx + 1)
		right, err := t.getNodeForWrite(rightID)
		if err != nil {
			return false, err
		}
		if err := t.mergeInto(n, right, parentNode, myIdx, id, rightID); err != nil {
			return false, err
		}
		if err := t.p.Delete(rightID); err != nil {
			return false, err
		}
		if _, err := t.rebalance(parent); err != nil {
			return false, err
		}
		return true, nil
	}

	leftID := parentNode.Child(myIdx - 1)
	left, err := t.getNodeForWrite(leftID)
	if err != nil {
		return false, err
	}
	if err := t.mergeInto(left, n, parentNode, myIdx-1, leftID, id); err != nil {
		return false, err
	}
	if err := t.p.Delete(id); err != nil {
		return false, err
	}
	if _, err := t.rebalance(parent); err != nil {
		return false, err
	}
	return false, nil
}

// rebalanceRoot handles an underflowing root: an empty leaf root is left
// as-is; an empty internal root collapses into its sole child, preserving
// the root page id via a content swap (spec.md §4.2 point 2).
func (t *Tree) rebalanceRoot(id pager.PageID, n *node) (bool, error) {
	if n.IsLeaf() {
		return true, nil
	}
	if n.NumKeys() > 0 {
		return true, nil
	}

	onlyChild := n.Child(0)
	child, err := t.getNodeForWrite(onlyChild)
	if err != nil {
		return false, err
	}
	copy(n.buf, child.buf)
	newRoot := t.wrap(n.buf)
	newRoot.SetIndex(id)
	newRoot.SetParent(pager.InvalidPageID)
	if !newRoot.IsLeaf() {
		for i := 0; i <= newRoot.NumKeys(); i++ {
			c, err := t.getNodeForWrite(newRoot.Child(i))
			if err != nil {
				return false, err
			}
			c.SetParent(id)
		}
	}
	if err := t.p.Delete(onlyChild); err != nil {
		return false, err
	}
	return true, nil
}

// borrowFromLeft moves left's last key/record (or child) to n's front,
// updating the separating key in parent.
func (t *Tree) borrowFromLeft(n, left, parent *node, myIdx int) {
	if n.IsLeaf() {
		lastIdx := left.NumKeys() - 1
		key := append([]byte(nil), left.Key(lastIdx)...)
		rec := append([]byte(nil), left.Record(lastIdx)...)
		left.removeLeafAt(lastIdx)
		n.insertLeafAt(0, key, rec)
		parent.SetKey(myIdx-1, n.Key(0))
		return
	}
	promoted, movedChild := left.removeLastInternal()
	oldSep := append([]byte(nil), parent.Key(myIdx-1)...)
	n.prependInternal(oldSep, movedChild)
	parent.SetKey(myIdx-1, promoted)
}

// borrowFromRight moves right's first key/record (or child) to n's end.
func (t *Tree) borrowFromRight(n, right, parent *node, myIdx int) {
	if n.IsLeaf() {
		key := append([]byte(nil), right.Key(0)...)
		rec := append([]byte(nil), right.Record(0)...)
		right.removeLeafAt(0)
		n.insertLeafAt(n.NumKeys(), key, rec)
		parent.SetKey(myIdx, right.Key(0))
		return
	}
	promoted, movedChild := right.removeFirstInternal()
	oldSep := append([]byte(nil), parent.Key(myIdx)...)
	n.appendInternal(oldSep, movedChild)
	parent.SetKey(myIdx, promoted)
}

// mergeInto absorbs right's contents into left, dropping the separator
// key at sepIdx (and right's child pointer) from parent.
func (t *Tree) mergeInto(left, right, parent *node, sepIdx int, leftID, rightID pager.PageID) error {
	ln := left.NumKeys()
	rn := right.NumKeys()

	if left.IsLeaf() {
		for i := 0; i < rn; i++ {
			copy(left.Key(ln+i), right.Key(i))
			copy(left.Record(ln+i), right.Record(i))
		}
		left.SetNumKeys(ln + rn)
		left.SetNextLeaf(right.NextLeaf())
		if nxtID := right.NextLeaf(); nxtID != pager.InvalidPageID {
			nxt, err := t.getNodeForWrite(nxtID)
			if err != nil {
				return err
			}
			nxt.SetPrevLeaf(leftID)
		}
	} else {
		sep := append([]byte(nil), parent.Key(sepIdx)...)
		left.SetKey(ln, sep)
		for i := 0; i < rn; i++ {
			copy(left.Key(ln+1+i), right.Key(i))
		}
		for i := 0; i <= rn; i++ {
			childID := right.Child(i)
			left.SetChild(ln+1+i, childID)
			child, err := t.getNodeForWrite(childID)
			if err != nil {
				return err
			}
			child.SetParent(leftID)
		}
		left.SetNumKeys(ln + 1 + rn)
	}
	parent.removeInternalAt(sepIdx, sepIdx+1)
	return nil
}

// fixupAncestorMinKey walks up from child's parent replacing the nearest
// ancestor separator equal to oldKey with newKey — needed when the
// deleted key was the first in its leaf, since an ancestor may hold a
// copy of it as a separator (spec.md §4.2: "walk up the ancestor chain
// replacing any separator copy of the deleted key with the new
// leaf-minimum").
func (t *Tree) fixupAncestorMinKey(parent, child pager.PageID, oldKey, newKey []byte) error {
	current := child
	ancestorID := parent
	for ancestorID != pager.InvalidPageID {
		anc, err := t.getNodeForWrite(ancestorID)
		if err != nil {
			return err
		}
		idx := childIndexOf(anc, current)
		if idx > 0 {
			if t.compareKeys(anc.Key(idx-1), oldKey) == 0 {
				anc.SetKey(idx-1, newKey)
			}
			return nil
		}
		current = ancestorID
		ancestorID = anc.Parent()
	}
	return nil
}
