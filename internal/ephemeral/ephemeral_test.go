package ephemeral

import (
	"encoding/binary"
	"testing"

	"github.com/kellerstore/kellerstore/internal/arena"
	"github.com/kellerstore/kellerstore/internal/types"
)

func u32key(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func TestSequentialInsertScanAndDelete(t *testing.T) {
	a := arena.New(0)
	tr := New(a, types.U32(), 4, false, true)
	c := NewCursor(tr)

	const n = 500
	for i := 0; i < n; i++ {
		ok, err := c.Insert(u32key(uint32(i)), u32key(uint32(i*100)))
		if err != nil || !ok {
			t.Fatalf("insert %d: ok=%v err=%v", i, ok, err)
		}
		if err := tr.Validate(); err != nil {
			t.Fatalf("validate after insert %d: %v", i, err)
		}
	}

	for i := 0; i < n; i++ {
		found, err := c.Seek(u32key(uint32(i)))
		if err != nil || !found {
			t.Fatalf("seek %d: found=%v err=%v", i, found, err)
		}
		rec, _ := c.Record()
		if got := binary.LittleEndian.Uint32(rec); got != uint32(i*100) {
			t.Fatalf("seek %d: got %d want %d", i, got, i*100)
		}
	}

	for i := 0; i < n/2; i++ {
		found, err := c.Seek(u32key(uint32(i)))
		if err != nil || !found {
			t.Fatalf("seek before delete %d: found=%v err=%v", i, found, err)
		}
		ok, err := c.Delete()
		if err != nil || !ok {
			t.Fatalf("delete %d: ok=%v err=%v", i, ok, err)
		}
		if err := tr.Validate(); err != nil {
			t.Fatalf("validate after delete %d: %v", i, err)
		}
	}

	for i := 0; i < n/2; i++ {
		if found, _ := c.Seek(u32key(uint32(i))); found {
			t.Fatalf("seek %d: expected not-found after delete", i)
		}
	}
	for i := n / 2; i < n; i++ {
		if found, _ := c.Seek(u32key(uint32(i))); !found {
			t.Fatalf("seek %d: expected found after partial delete", i)
		}
	}
	if tr.NodeCount != n/2 {
		t.Fatalf("node count = %d, want %d", tr.NodeCount, n/2)
	}
}

func TestDuplicateKeyRejectedWithoutAllowDuplicates(t *testing.T) {
	a := arena.New(0)
	tr := New(a, types.U32(), 4, false, true)
	c := NewCursor(tr)

	ok, err := c.Insert(u32key(5), u32key(500))
	if err != nil || !ok {
		t.Fatalf("first insert failed: ok=%v err=%v", ok, err)
	}
	ok, err = c.Insert(u32key(5), u32key(999))
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatalf("expected duplicate insert to be rejected")
	}
}

func TestAllowDuplicatesVisitsEachInsertion(t *testing.T) {
	a := arena.New(0)
	tr := New(a, types.U32(), 4, true, true)
	c := NewCursor(tr)

	for i := 0; i < 5; i++ {
		ok, err := c.Insert(u32key(7), u32key(uint32(i)))
		if err != nil || !ok {
			t.Fatalf("insert %d: ok=%v err=%v", i, ok, err)
		}
	}
	if err := tr.Validate(); err != nil {
		t.Fatal(err)
	}
	if tr.NodeCount != 5 {
		t.Fatalf("node count = %d, want 5", tr.NodeCount)
	}

	ok, err := c.First()
	if err != nil || !ok {
		t.Fatalf("First failed: %v %v", ok, err)
	}
	count := 0
	for {
		k, _ := c.Key()
		if binary.LittleEndian.Uint32(k) != 7 {
			t.Fatalf("expected every key to be 7, got %d", binary.LittleEndian.Uint32(k))
		}
		count++
		more, err := c.Next()
		if err != nil {
			t.Fatal(err)
		}
		if !more {
			break
		}
	}
	if count != 5 {
		t.Fatalf("visited %d duplicate entries, want 5", count)
	}
}

func TestRebalanceFalseDegradesToPlainBST(t *testing.T) {
	a := arena.New(0)
	tr := New(a, types.U32(), 4, false, false)
	c := NewCursor(tr)

	// Strictly increasing insertion order into an unbalanced BST
	// produces a right-leaning chain: every node is Black (fixup never
	// runs) and the root is whatever was inserted first.
	for i := 0; i < 10; i++ {
		if _, err := c.Insert(u32key(uint32(i)), u32key(uint32(i))); err != nil {
			t.Fatal(err)
		}
	}
	if tr.Root == nil || binary.LittleEndian.Uint32(tr.Root.Key) != 0 {
		t.Fatalf("expected root to remain the first-inserted key in an unbalanced BST")
	}
	n := tr.Root
	depth := 0
	for n.Right != nil {
		n = n.Right
		depth++
	}
	if depth != 9 {
		t.Fatalf("expected a degenerate right-leaning chain of depth 9, got %d", depth)
	}
}

func TestSeekCmpBoundaries(t *testing.T) {
	a := arena.New(0)
	tr := New(a, types.U32(), 4, false, true)
	c := NewCursor(tr)
	for _, v := range []uint32{10, 20, 30, 40, 50} {
		if _, err := c.Insert(u32key(v), u32key(v)); err != nil {
			t.Fatal(err)
		}
	}

	cases := []struct {
		op   ComparisonOp
		key  uint32
		want uint32
	}{
		{GE, 25, 30},
		{GE, 30, 30},
		{GT, 30, 40},
		{LE, 25, 20},
		{LE, 30, 30},
		{LT, 30, 20},
	}
	for _, tc := range cases {
		found, err := c.SeekCmp(u32key(tc.key), tc.op)
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatalf("op=%d key=%d: expected found", tc.op, tc.key)
		}
		key, _ := c.Key()
		if got := binary.LittleEndian.Uint32(key); got != tc.want {
			t.Fatalf("op=%d key=%d: positioned at %d want %d", tc.op, tc.key, got, tc.want)
		}
	}
}

func TestFirstLastNextPrevious(t *testing.T) {
	a := arena.New(0)
	tr := New(a, types.U32(), 4, false, true)
	c := NewCursor(tr)
	for _, v := range []uint32{3, 1, 4, 1, 5, 9, 2, 6} {
		c.Insert(u32key(v), u32key(v))
	}

	ok, err := c.First()
	if err != nil || !ok {
		t.Fatalf("First failed: %v %v", ok, err)
	}
	var forward []uint32
	for {
		k, _ := c.Key()
		forward = append(forward, binary.LittleEndian.Uint32(k))
		more, err := c.Next()
		if err != nil {
			t.Fatal(err)
		}
		if !more {
			break
		}
	}
	for i := 1; i < len(forward); i++ {
		if forward[i-1] > forward[i] {
			t.Fatalf("forward scan not non-decreasing: %v", forward)
		}
	}

	ok, err = c.Last()
	if err != nil || !ok {
		t.Fatalf("Last failed: %v %v", ok, err)
	}
	var backward []uint32
	for {
		k, _ := c.Key()
		backward = append(backward, binary.LittleEndian.Uint32(k))
		more, err := c.Previous()
		if err != nil {
			t.Fatal(err)
		}
		if !more {
			break
		}
	}
	if len(backward) != len(forward) {
		t.Fatalf("forward/backward length mismatch: %d vs %d", len(forward), len(backward))
	}
}

func TestUpdatePreservesKeyChangesRecord(t *testing.T) {
	a := arena.New(0)
	tr := New(a, types.U32(), 4, false, true)
	c := NewCursor(tr)
	c.Insert(u32key(7), u32key(70))

	if _, err := c.Seek(u32key(7)); err != nil {
		t.Fatal(err)
	}
	if err := c.Update(u32key(9999)); err != nil {
		t.Fatal(err)
	}
	rec, err := c.Record()
	if err != nil {
		t.Fatal(err)
	}
	if binary.LittleEndian.Uint32(rec) != 9999 {
		t.Fatalf("update did not take effect")
	}
}

func TestRandomInsertDeleteStaysBalanced(t *testing.T) {
	a := arena.New(0)
	tr := New(a, types.U32(), 4, false, true)
	c := NewCursor(tr)

	keys := []uint32{50, 25, 75, 10, 30, 60, 90, 5, 15, 27, 33, 55, 65, 80, 95}
	for _, k := range keys {
		if _, err := c.Insert(u32key(k), u32key(k)); err != nil {
			t.Fatal(err)
		}
		if err := tr.Validate(); err != nil {
			t.Fatalf("validate after insert %d: %v", k, err)
		}
	}
	for _, k := range []uint32{25, 90, 50, 5} {
		if _, err := c.Seek(u32key(k)); err != nil {
			t.Fatal(err)
		}
		ok, err := c.Delete()
		if err != nil || !ok {
			t.Fatalf("delete %d: ok=%v err=%v", k, ok, err)
		}
		if err := tr.Validate(); err != nil {
			t.Fatalf("validate after delete %d: %v", k, err)
		}
	}
	if tr.NodeCount != len(keys)-4 {
		t.Fatalf("node count = %d, want %d", tr.NodeCount, len(keys)-4)
	}
}
