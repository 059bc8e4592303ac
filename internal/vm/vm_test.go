package vm

import (
	"path/filepath"
	"testing"

	"github.com/kellerstore/kellerstore/internal/arena"
	"github.com/kellerstore/kellerstore/internal/btree"
	"github.com/kellerstore/kellerstore/internal/pager"
	"github.com/kellerstore/kellerstore/internal/types"
)

func openTestVM(t *testing.T) (*pager.Pager, *VM) {
	t.Helper()
	dir := t.TempDir()
	p, err := pager.Open(filepath.Join(dir, "vm.db"), pager.Options{PageSize: 4096})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { p.Close() })
	a := arena.New(0)
	return p, New(p, a)
}

// TestSequentialInsertAndScan hand-assembles a program that opens a
// cursor over a fresh B+tree, inserts a handful of (id, name) rows in a
// transaction, commits, then rewinds and streams every row out through
// Result — the "sequential insert/scan" scenario (spec.md §8).
func TestSequentialInsertAndScan(t *testing.T) {
	p, v := openTestVM(t)
	if err := p.Begin(); err != nil {
		t.Fatal(err)
	}
	tree, err := btree.Create(p, types.U32(), 32, true)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Commit(); err != nil {
		t.Fatal(err)
	}

	layout := Layout{KeyType: types.U32(), Columns: []types.DataType{types.Char(32)}}
	ctx := OpenBTree(tree, layout)

	var rows [][]types.TypedValue
	v.SetResultCallback(func(values []types.TypedValue) {
		rows = append(rows, append([]types.TypedValue(nil), values...))
	})

	prog := NewProgram()
	prog.Emit(Instruction{Op: OpOpen, P1: 0, P4: ctx})
	prog.Emit(Instruction{Op: OpBegin})
	names := []string{"alice", "bob", "carol"}
	for i, name := range names {
		prog.Emit(Instruction{Op: OpLoad, P1: 1, P4: types.FromU64(types.IDU32, uint64(i))})
		prog.Emit(Instruction{Op: OpLoad, P1: 2, P4: types.FromString(32, name)})
		prog.Emit(Instruction{Op: OpInsert, P1: 0, P2: 1, P3: 2})
	}
	prog.Emit(Instruction{Op: OpCommit})
	prog.Emit(Instruction{Op: OpRewind, P1: 0, P3: 3})
	prog.Label("loop")
	prog.Emit(Instruction{Op: OpColumn, P1: 0, P2: 0, P3: 4})
	prog.Emit(Instruction{Op: OpResult, P1: 4, P2: 1})
	prog.Emit(Instruction{Op: OpStep, P1: 0, P3: 3, P5: 1})
	prog.Emit(Instruction{Op: OpJumpIf, P1: 3, P5: 1, Label: "loop"})
	prog.Emit(Instruction{Op: OpHalt})

	built, err := prog.Build()
	if err != nil {
		t.Fatal(err)
	}
	res, _, err := v.Execute(built)
	if err != nil {
		t.Fatal(err)
	}
	if res != ResultOK {
		t.Fatalf("execute result = %v, want OK", res)
	}
	if len(rows) != len(names) {
		t.Fatalf("got %d result rows, want %d", len(rows), len(names))
	}
	for i, row := range rows {
		got, err := types.StringValue(row[0])
		if err != nil {
			t.Fatal(err)
		}
		if got != names[i] {
			t.Fatalf("row %d = %q, want %q", i, got, names[i])
		}
	}
}

// TestRollbackDiscardsInserts runs an insert inside a transaction that is
// rolled back instead of committed, then confirms a fresh scan sees
// nothing — the "transaction rollback" scenario (spec.md §8).
func TestRollbackDiscardsInserts(t *testing.T) {
	p, v := openTestVM(t)
	if err := p.Begin(); err != nil {
		t.Fatal(err)
	}
	tree, err := btree.Create(p, types.U32(), 4, true)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Commit(); err != nil {
		t.Fatal(err)
	}

	layout := Layout{KeyType: types.U32(), Columns: []types.DataType{types.U32()}}
	ctx := OpenBTree(tree, layout)

	prog := NewProgram()
	prog.Emit(Instruction{Op: OpOpen, P1: 0, P4: ctx})
	prog.Emit(Instruction{Op: OpBegin})
	prog.Emit(Instruction{Op: OpLoad, P1: 1, P4: types.FromU64(types.IDU32, 1)})
	prog.Emit(Instruction{Op: OpLoad, P1: 2, P4: types.FromU64(types.IDU32, 100)})
	prog.Emit(Instruction{Op: OpInsert, P1: 0, P2: 1, P3: 2})
	prog.Emit(Instruction{Op: OpRollback})
	prog.Emit(Instruction{Op: OpHalt})

	built, err := prog.Build()
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := v.Execute(built); err != nil {
		t.Fatal(err)
	}

	cur := btree.NewCursor(tree)
	found, err := cur.Seek(types.Encode(types.FromU64(types.IDU32, 1)))
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatalf("expected rolled-back insert to be absent")
	}
}

func TestArithmeticAndTest(t *testing.T) {
	_, v := openTestVM(t)
	prog := NewProgram()
	prog.Emit(Instruction{Op: OpLoad, P1: 0, P4: types.FromU64(types.IDU32, 7)})
	prog.Emit(Instruction{Op: OpLoad, P1: 1, P4: types.FromU64(types.IDU32, 3)})
	prog.Emit(Instruction{Op: OpArithmetic, P1: 2, P2: 0, P3: 1, P5: uint8(types.ArithAdd)})
	prog.Emit(Instruction{Op: OpLoad, P1: 3, P4: types.FromU64(types.IDU32, 10)})
	prog.Emit(Instruction{Op: OpTest, P1: 4, P2: 2, P3: 3, P5: uint8(types.CmpEQ)})
	prog.Emit(Instruction{Op: OpHalt})

	built, err := prog.Build()
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := v.Execute(built); err != nil {
		t.Fatal(err)
	}
	if !types.Truthy(v.reg(4)) {
		t.Fatalf("expected 7+3==10 to be true")
	}
}

func TestFunctionLike(t *testing.T) {
	_, v := openTestVM(t)
	prog := NewProgram()
	prog.Emit(Instruction{Op: OpLoad, P1: 0, P4: types.FromString(16, "hello world")})
	prog.Emit(Instruction{Op: OpLoad, P1: 1, P4: types.FromString(16, "hello%")})
	prog.Emit(Instruction{Op: OpFunction, P1: 2, P2: 0, P3: 2, P4: BuiltinFunc(Like)})
	prog.Emit(Instruction{Op: OpHalt})

	built, err := prog.Build()
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := v.Execute(built); err != nil {
		t.Fatal(err)
	}
	if !types.Truthy(v.reg(2)) {
		t.Fatalf("expected LIKE match")
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	_, v := openTestVM(t)
	prog := NewProgram()
	prog.Emit(Instruction{Op: OpLoad, P1: 0, P4: types.FromU64(types.IDU32, 42)})
	prog.Emit(Instruction{Op: OpLoad, P1: 1, P4: types.FromU64(types.IDU32, 99)})
	prog.Emit(Instruction{Op: OpPack, P1: 2, P2: 0, P3: 1})
	prog.Emit(Instruction{Op: OpUnpack, P1: 3, P2: 2})
	prog.Emit(Instruction{Op: OpHalt})

	built, err := prog.Build()
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := v.Execute(built); err != nil {
		t.Fatal(err)
	}
	a, err := types.AsU64(v.reg(3))
	if err != nil {
		t.Fatal(err)
	}
	b, err := types.AsU64(v.reg(4))
	if err != nil {
		t.Fatal(err)
	}
	if a != 42 || b != 99 {
		t.Fatalf("unpack got (%d, %d), want (42, 99)", a, b)
	}
}
