package btree

import "github.com/kellerstore/kellerstore/internal/pager"

// childIndexOf returns the index of child id among parent's children.
func childIndexOf(parent *node, id pager.PageID) int {
	for i := 0; i <= parent.NumKeys(); i++ {
		if parent.Child(i) == id {
			return i
		}
	}
	return -1
}

// splitNode checks id for overflow and, if it has overflowed, splits it
// and propagates the split upward — possibly all the way to a root swap
// (spec.md §4.2 "Split").
func (t *Tree) splitNode(id pager.PageID) error {
	n, err := t.getNodeForWrite(id)
	if err != nil {
		return err
	}
	isLeaf := n.IsLeaf()
	limit := t.MaxLeaf
	splitIdx := t.SplitLeaf
	if !isLeaf {
		limit = t.MaxInternal
		splitIdx = t.SplitInternal
	}
	if n.NumKeys() <= limit {
		return nil
	}

	parent := n.Parent()

	rightID, rightBuf, err := t.p.NewPage()
	if err != nil {
		return err
	}
	right := t.initNode(rightBuf, rightID, parent, isLeaf)

	var sepKey []byte
	if isLeaf {
		cnt := n.NumKeys()
		for i := splitIdx; i < cnt; i++ {
			right.SetKey(i-splitIdx, n.Key(i))
			right.SetRecord(i-splitIdx, n.Record(i))
		}
		right.SetNumKeys(cnt - splitIdx)
		n.SetNumKeys(splitIdx)

		right.SetNextLeaf(n.NextLeaf())
		right.SetPrevLeaf(id)
		if nxtID := n.NextLeaf(); nxtID != pager.InvalidPageID {
			nxt, err := t.getNodeForWrite(nxtID)
			if err != nil {
				return err
			}
			nxt.SetPrevLeaf(rightID)
		}
		n.SetNextLeaf(rightID)
		sepKey = append([]byte(nil), right.Key(0)...)
	} else {
		cnt := n.NumKeys()
		sepKey = append([]byte(nil), n.Key(splitIdx)...)
		for i := splitIdx + 1; i < cnt; i++ {
			right.SetKey(i-splitIdx-1, n.Key(i))
		}
		for i := splitIdx + 1; i <= cnt; i++ {
			childID := n.Child(i)
			right.SetChild(i-splitIdx-1, childID)
			child, err := t.getNodeForWrite(childID)
			if err != nil {
				return err
			}
			child.SetParent(rightID)
		}
		right.SetNumKeys(cnt - splitIdx - 1)
		n.SetNumKeys(splitIdx)
	}

	if parent == pager.InvalidPageID {
		return t.splitRoot(id, n, right, rightID, sepKey, isLeaf)
	}

	parentNode, err := t.getNodeForWrite(parent)
	if err != nil {
		return err
	}
	idx := childIndexOf(parentNode, id)
	parentNode.insertInternalAt(idx, sepKey, rightID)
	return t.splitNode(parent)
}

// splitRoot handles the case where the overflowing node id was the root:
// the old root's (already-truncated) contents are relocated to a freshly
// allocated page, and id itself is reinitialized as the new internal
// root, preserving the root page id across the split (spec.md §4.2
// "Node self-copy swap-with-root").
func (t *Tree) splitRoot(id pager.PageID, left, right *node, rightID pager.PageID, sepKey []byte, isLeaf bool) error {
	newLeftID, newLeftBuf, err := t.p.NewPage()
	if err != nil {
		return err
	}
	copy(newLeftBuf, left.buf)
	newLeft := t.wrap(newLeftBuf)
	newLeft.SetIndex(newLeftID)
	newLeft.SetParent(id)

	if isLeaf {
		right.SetPrevLeaf(newLeftID)
	} else {
		for i := 0; i <= newLeft.NumKeys(); i++ {
			child, err := t.getNodeForWrite(newLeft.Child(i))
			if err != nil {
				return err
			}
			child.SetParent(newLeftID)
		}
	}
	right.SetParent(id)

	t.initNode(left.buf, id, pager.InvalidPageID, false)
	newRoot := t.wrap(left.buf)
	newRoot.SetKey(0, sepKey)
	newRoot.SetChild(0, newLeftID)
	newRoot.SetChild(1, rightID)
	newRoot.SetNumKeys(1)
	return nil
}
