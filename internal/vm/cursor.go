package vm

import (
	"fmt"

	"github.com/kellerstore/kellerstore/internal/blobstore"
	"github.com/kellerstore/kellerstore/internal/btree"
	"github.com/kellerstore/kellerstore/internal/ephemeral"
	"github.com/kellerstore/kellerstore/internal/pager"
	"github.com/kellerstore/kellerstore/internal/types"
)

// StorageKind tags which concrete cursor a CursorContext wraps — the sum
// type spec.md §9 calls for ("sum-type VmCursor") so the VM can treat
// B+tree, ephemeral, and blob storage uniformly through one Open opcode.
type StorageKind uint8

const (
	StorageBPlus StorageKind = iota
	StorageRedBlack
	StorageBlob
)

// Layout describes how to slice a record's bytes into typed columns for
// the Column opcode, and how to re-pack register values into a record
// for Insert/Update.
type Layout struct {
	KeyType types.DataType
	Columns []types.DataType
}

func (l Layout) recordSize() int {
	n := 0
	for _, c := range l.Columns {
		n += int(c.TotalSize())
	}
	return n
}

// CursorContext is one open cursor slot (spec.md §4.6 "cursors[MAX_CURSORS]").
type CursorContext struct {
	Kind   StorageKind
	Layout Layout

	btreeCur *btree.Cursor
	rbCur    *ephemeral.Cursor
	blob     *BlobCursor
}

// MaxCursors bounds the VM's cursor table.
const MaxCursors = 16

// OpenBTree installs a B+tree cursor into the context.
func OpenBTree(tree *btree.Tree, layout Layout) *CursorContext {
	return &CursorContext{Kind: StorageBPlus, Layout: layout, btreeCur: btree.NewCursor(tree)}
}

// OpenRedBlack installs an ephemeral-tree cursor into the context.
func OpenRedBlack(tree *ephemeral.Tree, layout Layout) *CursorContext {
	return &CursorContext{Kind: StorageRedBlack, Layout: layout, rbCur: ephemeral.NewCursor(tree)}
}

// OpenBlob installs a blob reader/writer into the context.
func OpenBlob(store *blobstore.Store) *CursorContext {
	return &CursorContext{Kind: StorageBlob, blob: &BlobCursor{store: store}}
}

func (c *CursorContext) valid() bool {
	switch c.Kind {
	case StorageBPlus:
		return c.btreeCur.State == btree.Valid
	case StorageRedBlack:
		return c.rbCur.State == ephemeral.Valid
	case StorageBlob:
		return c.blob.valid
	default:
		return false
	}
}

// Rewind moves to the first (toEnd=false) or last (toEnd=true) entry.
func (c *CursorContext) Rewind(toEnd bool) (bool, error) {
	switch c.Kind {
	case StorageBPlus:
		if toEnd {
			return c.btreeCur.Last()
		}
		return c.btreeCur.First()
	case StorageRedBlack:
		if toEnd {
			return c.rbCur.Last()
		}
		return c.rbCur.First()
	case StorageBlob:
		return c.blob.valid, nil
	default:
		return false, fmt.Errorf("vm: Rewind on unknown cursor kind")
	}
}

// Step advances forward or backward.
func (c *CursorContext) Step(forward bool) (bool, error) {
	switch c.Kind {
	case StorageBPlus:
		if forward {
			return c.btreeCur.Next()
		}
		return c.btreeCur.Previous()
	case StorageRedBlack:
		if forward {
			return c.rbCur.Next()
		}
		return c.rbCur.Previous()
	case StorageBlob:
		return false, fmt.Errorf("vm: Step not supported on a blob cursor")
	default:
		return false, fmt.Errorf("vm: Step on unknown cursor kind")
	}
}

// toBtreeOp converts the VM's shared comparison-op enum to the B+tree
// cursor's ComparisonOp; NE has no seek_cmp meaning (spec.md §4.6 "Seek"
// lists only EQ/GE/GT/LE/LT).
func toBtreeOp(op types.ComparisonOp) (btree.ComparisonOp, error) {
	switch op {
	case types.CmpEQ:
		return btree.EQ, nil
	case types.CmpLT:
		return btree.LT, nil
	case types.CmpLE:
		return btree.LE, nil
	case types.CmpGT:
		return btree.GT, nil
	case types.CmpGE:
		return btree.GE, nil
	default:
		return 0, fmt.Errorf("vm: comparison op %s is not valid for Seek", op)
	}
}

func toRBOp(op types.ComparisonOp) (ephemeral.ComparisonOp, error) {
	switch op {
	case types.CmpEQ:
		return ephemeral.EQ, nil
	case types.CmpLT:
		return ephemeral.LT, nil
	case types.CmpLE:
		return ephemeral.LE, nil
	case types.CmpGT:
		return ephemeral.GT, nil
	case types.CmpGE:
		return ephemeral.GE, nil
	default:
		return 0, fmt.Errorf("vm: comparison op %s is not valid for Seek", op)
	}
}

// SeekCmp positions the cursor per op relative to key.
func (c *CursorContext) SeekCmp(key []byte, op types.ComparisonOp) (bool, error) {
	switch c.Kind {
	case StorageBPlus:
		bop, err := toBtreeOp(op)
		if err != nil {
			return false, err
		}
		return c.btreeCur.SeekCmp(key, bop)
	case StorageRedBlack:
		rop, err := toRBOp(op)
		if err != nil {
			return false, err
		}
		return c.rbCur.SeekCmp(key, rop)
	case StorageBlob:
		return false, fmt.Errorf("vm: Seek not supported on a blob cursor")
	default:
		return false, fmt.Errorf("vm: Seek on unknown cursor kind")
	}
}

// Key returns the raw key bytes at the cursor's current position.
func (c *CursorContext) Key() ([]byte, error) {
	switch c.Kind {
	case StorageBPlus:
		return c.btreeCur.Key()
	case StorageRedBlack:
		return c.rbCur.Key()
	default:
		return nil, fmt.Errorf("vm: Key not supported on this cursor kind")
	}
}

// Record returns the raw record bytes at the cursor's current position.
func (c *CursorContext) Record() ([]byte, error) {
	switch c.Kind {
	case StorageBPlus:
		return c.btreeCur.Record()
	case StorageRedBlack:
		return c.rbCur.Record()
	case StorageBlob:
		return c.blob.data, nil
	default:
		return nil, fmt.Errorf("vm: Record not supported on this cursor kind")
	}
}

// Column extracts column index from the current record as a TypedValue.
func (c *CursorContext) Column(index int) (types.TypedValue, error) {
	if index < 0 || index >= len(c.Layout.Columns) {
		return types.TypedValue{}, fmt.Errorf("vm: column index %d out of range", index)
	}
	rec, err := c.Record()
	if err != nil {
		return types.TypedValue{}, err
	}
	off := 0
	for i := 0; i < index; i++ {
		off += int(c.Layout.Columns[i].TotalSize())
	}
	ty := c.Layout.Columns[index]
	size := int(ty.TotalSize())
	if off+size > len(rec) {
		return types.TypedValue{}, fmt.Errorf("vm: column %d out of bounds for record of %d bytes", index, len(rec))
	}
	return types.TypedValue{Type: ty, Bytes: rec[off : off+size]}, nil
}

// Insert inserts regs[0] as the key and the rest as record columns
// (spec.md §4.6 "Insert semantics"). For a blob cursor, regs must
// contain exactly one element whose bytes become the blob's content.
func (c *CursorContext) Insert(regs []types.TypedValue) (bool, error) {
	switch c.Kind {
	case StorageBlob:
		if len(regs) != 1 {
			return false, fmt.Errorf("vm: blob Insert requires exactly one register")
		}
		head, err := c.blob.store.Create(regs[0].Bytes)
		if err != nil {
			return false, err
		}
		c.blob.head = head
		c.blob.data = regs[0].Bytes
		c.blob.valid = true
		return true, nil
	}
	key, record := packRow(regs)
	switch c.Kind {
	case StorageBPlus:
		return c.btreeCur.Insert(key, record)
	case StorageRedBlack:
		return c.rbCur.Insert(key, record)
	default:
		return false, fmt.Errorf("vm: Insert on unknown cursor kind")
	}
}

func packRow(regs []types.TypedValue) (key []byte, record []byte) {
	key = types.Encode(regs[0])
	for _, r := range regs[1:] {
		record = append(record, types.Encode(r)...)
	}
	return key, record
}

// Update rewrites the record at the current position from regs (the
// record columns only, not the key — spec.md §4.6 "Update rewrites the
// record at the current cursor position").
func (c *CursorContext) Update(regs []types.TypedValue) error {
	var record []byte
	for _, r := range regs {
		record = append(record, types.Encode(r)...)
	}
	switch c.Kind {
	case StorageBPlus:
		return c.btreeCur.Update(record)
	case StorageRedBlack:
		return c.rbCur.Update(record)
	default:
		return fmt.Errorf("vm: Update not supported on this cursor kind")
	}
}

// Delete removes the entry at the current position.
func (c *CursorContext) Delete() (bool, error) {
	switch c.Kind {
	case StorageBPlus:
		return c.btreeCur.Delete()
	case StorageRedBlack:
		return c.rbCur.Delete()
	case StorageBlob:
		if !c.blob.valid {
			return false, nil
		}
		err := c.blob.store.Delete(c.blob.head)
		c.blob.valid = false
		return err == nil, err
	default:
		return false, fmt.Errorf("vm: Delete on unknown cursor kind")
	}
}

// BlobCursor is a minimal reader/writer over a single blob, addressed by
// its head page id once opened (spec.md §4.4 "Blob store").
type BlobCursor struct {
	store *blobstore.Store
	head  pager.PageID
	data  []byte
	valid bool
}

// OpenAt loads an existing blob by head page id for reading.
func (bc *BlobCursor) OpenAt(head pager.PageID) error {
	data, err := bc.store.ReadFull(head)
	if err != nil {
		return err
	}
	bc.head = head
	bc.data = data
	bc.valid = true
	return nil
}

// Head returns the blob's head page id, valid once the cursor has
// created or opened a blob.
func (bc *BlobCursor) Head() pager.PageID { return bc.head }
