package ephemeral

// colorOf treats a nil child as Black, matching the conventional
// red-black sentinel without allocating one.
func colorOf(n *Node) Color {
	if n == nil {
		return Black
	}
	return n.Color
}

// remove deletes n from the tree, rewiring children and running the
// delete fixup when Rebalance is enabled.
func (t *Tree) remove(n *Node) {
	y := n
	yOriginalColor := y.Color
	var x, xParent *Node

	switch {
	case n.Left == nil:
		x = n.Right
		xParent = n.Parent
		t.transplant(n, n.Right)
	case n.Right == nil:
		x = n.Left
		xParent = n.Parent
		t.transplant(n, n.Left)
	default:
		y = minimum(n.Right)
		yOriginalColor = y.Color
		x = y.Right
		if y.Parent == n {
			xParent = y
		} else {
			xParent = y.Parent
			t.transplant(y, y.Right)
			y.Right = n.Right
			y.Right.Parent = y
		}
		t.transplant(n, y)
		y.Left = n.Left
		y.Left.Parent = y
		y.Color = n.Color
	}
	t.NodeCount--

	if t.Rebalance && yOriginalColor == Black {
		t.deleteFixup(x, xParent)
	}
}

// transplant replaces the subtree rooted at u with the subtree rooted at
// v, leaving v.Parent pointing at u's old parent (v may be nil).
func (t *Tree) transplant(u, v *Node) {
	switch {
	case u.Parent == nil:
		t.Root = v
	case u == u.Parent.Left:
		u.Parent.Left = v
	default:
		u.Parent.Right = v
	}
	if v != nil {
		v.Parent = u.Parent
	}
}

// deleteFixup restores red-black invariants after removing a black node.
// x is the node that moved into the deleted position (possibly nil), and
// xParent is tracked explicitly since x itself may be nil.
func (t *Tree) deleteFixup(x, xParent *Node) {
	for x != t.Root && colorOf(x) == Black && xParent != nil {
		if x == xParent.Left {
			w := xParent.Right
			if colorOf(w) == Red {
				w.Color = Black
				xParent.Color = Red
				t.rotateLeft(xParent)
				w = xParent.Right
			}
			if w == nil {
				x, xParent = xParent, xParent.Parent
				continue
			}
			if colorOf(w.Left) == Black && colorOf(w.Right) == Black {
				w.Color = Red
				x, xParent = xParent, xParent.Parent
				continue
			}
			if colorOf(w.Right) == Black {
				if w.Left != nil {
					w.Left.Color = Black
				}
				w.Color = Red
				t.rotateRight(w)
				w = xParent.Right
			}
			w.Color = xParent.Color
			xParent.Color = Black
			if w.Right != nil {
				w.Right.Color = Black
			}
			t.rotateLeft(xParent)
			x = t.Root
			xParent = nil
		} else {
			w := xParent.Left
			if colorOf(w) == Red {
				w.Color = Black
				xParent.Color = Red
				t.rotateRight(xParent)
				w = xParent.Left
			}
			if w == nil {
				x, xParent = xParent, xParent.Parent
				continue
			}
			if colorOf(w.Right) == Black && colorOf(w.Left) == Black {
				w.Color = Red
				x, xParent = xParent, xParent.Parent
				continue
			}
			if colorOf(w.Left) == Black {
				if w.Right != nil {
					w.Right.Color = Black
				}
				w.Color = Red
				t.rotateLeft(w)
				w = xParent.Left
			}
			w.Color = xParent.Color
			xParent.Color = Black
			if w.Left != nil {
				w.Left.Color = Black
			}
			t.rotateRight(xParent)
			x = t.Root
			xParent = nil
		}
	}
	if x != nil {
		x.Color = Black
	}
}
