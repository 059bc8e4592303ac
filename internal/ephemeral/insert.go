package ephemeral

// Insert adds (key, record) to the tree. When AllowDuplicates is false
// and an equal key already exists, it is rejected (returns false, nil)
// exactly like the B+tree cursor's insert. When AllowDuplicates is true,
// an equal key is placed to the right of every existing equal key so
// that in-order traversal visits insertions in insertion order among
// ties.
func (t *Tree) Insert(key, record []byte) (bool, error) {
	var parent *Node
	cur := t.Root
	for cur != nil {
		parent = cur
		cmp := t.compareKeys(key, cur.Key)
		switch {
		case cmp < 0:
			cur = cur.Left
		case cmp > 0:
			cur = cur.Right
		default:
			if !t.AllowDuplicates {
				return false, nil
			}
			cur = cur.Right
		}
	}

	n, err := t.newNode(key, record)
	if err != nil {
		return false, err
	}
	n.Parent = parent
	switch {
	case parent == nil:
		t.Root = n
	case t.compareKeys(key, parent.Key) < 0:
		parent.Left = n
	default:
		parent.Right = n
	}
	t.NodeCount++

	if t.Rebalance {
		t.insertFixup(n)
	} else {
		n.Color = Black
	}
	return true, nil
}

func (t *Tree) rotateLeft(x *Node) {
	y := x.Right
	x.Right = y.Left
	if y.Left != nil {
		y.Left.Parent = x
	}
	y.Parent = x.Parent
	switch {
	case x.Parent == nil:
		t.Root = y
	case x == x.Parent.Left:
		x.Parent.Left = y
	default:
		x.Parent.Right = y
	}
	y.Left = x
	x.Parent = y
}

func (t *Tree) rotateRight(x *Node) {
	y := x.Left
	x.Left = y.Right
	if y.Right != nil {
		y.Right.Parent = x
	}
	y.Parent = x.Parent
	switch {
	case x.Parent == nil:
		t.Root = y
	case x == x.Parent.Right:
		x.Parent.Right = y
	default:
		x.Parent.Left = y
	}
	y.Right = x
	x.Parent = y
}

// insertFixup restores red-black invariants after a red-node insertion,
// following the standard CLRS case analysis.
func (t *Tree) insertFixup(z *Node) {
	for z.Parent != nil && z.Parent.Color == Red {
		grandparent := z.Parent.Parent
		if grandparent == nil {
			break
		}
		if z.Parent == grandparent.Left {
			uncle := grandparent.Right
			if uncle != nil && uncle.Color == Red {
				z.Parent.Color = Black
				uncle.Color = Black
				grandparent.Color = Red
				z = grandparent
				continue
			}
			if z == z.Parent.Right {
				z = z.Parent
				t.rotateLeft(z)
			}
			z.Parent.Color = Black
			grandparent.Color = Red
			t.rotateRight(grandparent)
		} else {
			uncle := grandparent.Left
			if uncle != nil && uncle.Color == Red {
				z.Parent.Color = Black
				uncle.Color = Black
				grandparent.Color = Red
				z = grandparent
				continue
			}
			if z == z.Parent.Left {
				z = z.Parent
				t.rotateRight(z)
			}
			z.Parent.Color = Black
			grandparent.Color = Red
			t.rotateLeft(grandparent)
		}
	}
	t.Root.Color = Black
}
