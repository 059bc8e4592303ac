package main

import (
	"encoding/binary"
	"fmt"

	"github.com/kellerstore/kellerstore/internal/arena"
	"github.com/kellerstore/kellerstore/internal/btree"
	"github.com/kellerstore/kellerstore/internal/catalog"
	"github.com/kellerstore/kellerstore/internal/ephemeral"
	"github.com/kellerstore/kellerstore/internal/pager"
	"github.com/kellerstore/kellerstore/internal/types"
	"github.com/kellerstore/kellerstore/internal/vm"
)

func bytesToU32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

func u32PairBytes(a, b uint32) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint32(buf[0:4], a)
	binary.LittleEndian.PutUint32(buf[4:8], b)
	return buf
}

// sequentialScanCount is scaled down from spec.md §8 scenario 1's 5000
// rows for demo readability; internal/btree's own test suite runs a
// 500-row round trip.
const sequentialScanCount = 40
const sequentialScanCutoff = 20

// scenarioSequentialScan inserts (i, i*100) for i in [0, N) into a fresh
// u32->u32 B+tree via a dynamic VM loop, deletes i in [0, cutoff), then
// scans what remains and checks every surviving row.
func scenarioSequentialScan(p *pager.Pager) error {
	if err := p.Begin(); err != nil {
		return err
	}
	tree, err := btree.Create(p, types.U32(), 4, true)
	if err != nil {
		return err
	}
	layout := vm.Layout{KeyType: types.U32(), Columns: []types.DataType{types.U32()}}
	ctx := vm.OpenBTree(tree, layout)

	v := vm.New(p, arena.New(0))
	if err := v.SetCursor(0, ctx); err != nil {
		return err
	}

	insert := vm.NewProgram()
	insert.Emit(vm.Instruction{Op: vm.OpLoad, P1: 10, P4: types.FromU64(types.IDU32, 0)})
	insert.Emit(vm.Instruction{Op: vm.OpLoad, P1: 11, P4: types.FromU64(types.IDU32, 1)})
	insert.Emit(vm.Instruction{Op: vm.OpLoad, P1: 12, P4: types.FromU64(types.IDU32, 100)})
	insert.Emit(vm.Instruction{Op: vm.OpLoad, P1: 13, P4: types.FromU64(types.IDU32, sequentialScanCount)})
	insert.Label("loop")
	insert.Emit(vm.Instruction{Op: vm.OpMove, P1: 0, P3: 10})
	insert.Emit(vm.Instruction{Op: vm.OpArithmetic, P1: 1, P2: 10, P3: 12, P5: uint8(types.ArithMul)})
	insert.Emit(vm.Instruction{Op: vm.OpInsert, P1: 0, P2: 0, P3: 2})
	insert.Emit(vm.Instruction{Op: vm.OpArithmetic, P1: 10, P2: 10, P3: 11, P5: uint8(types.ArithAdd)})
	insert.Emit(vm.Instruction{Op: vm.OpTest, P1: 20, P2: 10, P3: 13, P5: uint8(types.CmpLT)})
	insert.Emit(vm.Instruction{Op: vm.OpJumpIf, P1: 20, P5: 1, Label: "loop"})
	insert.Emit(vm.Instruction{Op: vm.OpHalt})
	prog, err := insert.Build()
	if err != nil {
		return err
	}
	if _, _, err := v.Execute(prog); err != nil {
		return err
	}

	del := vm.NewProgram()
	del.Emit(vm.Instruction{Op: vm.OpLoad, P1: 10, P4: types.FromU64(types.IDU32, 0)})
	del.Emit(vm.Instruction{Op: vm.OpLoad, P1: 11, P4: types.FromU64(types.IDU32, 1)})
	del.Emit(vm.Instruction{Op: vm.OpLoad, P1: 13, P4: types.FromU64(types.IDU32, sequentialScanCutoff)})
	del.Label("loop")
	del.Emit(vm.Instruction{Op: vm.OpMove, P1: 0, P3: 10})
	del.Emit(vm.Instruction{Op: vm.OpSeek, P1: 0, P2: 0, P3: 21, P5: uint8(types.CmpEQ)})
	del.Emit(vm.Instruction{Op: vm.OpDelete, P1: 0, P2: 22, P3: 23})
	del.Emit(vm.Instruction{Op: vm.OpArithmetic, P1: 10, P2: 10, P3: 11, P5: uint8(types.ArithAdd)})
	del.Emit(vm.Instruction{Op: vm.OpTest, P1: 20, P2: 10, P3: 13, P5: uint8(types.CmpLT)})
	del.Emit(vm.Instruction{Op: vm.OpJumpIf, P1: 20, P5: 1, Label: "loop"})
	del.Emit(vm.Instruction{Op: vm.OpHalt})
	prog, err = del.Build()
	if err != nil {
		return err
	}
	if _, _, err := v.Execute(prog); err != nil {
		return err
	}
	if err := p.Commit(); err != nil {
		return err
	}

	// Column reaches record bytes only, so Result carries just the value;
	// the survivors come back in key order starting at the cutoff, which
	// gives each row's key from its scan position.
	var rows [][2]uint64
	v.SetResultCallback(func(values []types.TypedValue) {
		key := uint64(sequentialScanCutoff + len(rows))
		val, _ := types.AsU64(values[0])
		rows = append(rows, [2]uint64{key, val})
	})

	scan := vm.NewProgram()
	scan.Emit(vm.Instruction{Op: vm.OpRewind, P1: 0, P3: 1})
	scan.Label("loop")
	scan.Emit(vm.Instruction{Op: vm.OpColumn, P1: 0, P2: 0, P3: 2})
	scan.Emit(vm.Instruction{Op: vm.OpResult, P1: 2, P2: 1})
	scan.Emit(vm.Instruction{Op: vm.OpColumn, P1: 0, P2: 0, P3: 3})
	scan.Emit(vm.Instruction{Op: vm.OpStep, P1: 0, P3: 1, P5: 1})
	scan.Emit(vm.Instruction{Op: vm.OpJumpIf, P1: 1, P5: 1, Label: "loop"})
	scan.Emit(vm.Instruction{Op: vm.OpHalt})
	prog, err = scan.Build()
	if err != nil {
		return err
	}
	if _, _, err := v.Execute(prog); err != nil {
		return err
	}

	want := sequentialScanCount - sequentialScanCutoff
	if len(rows) != want {
		return fmt.Errorf("scan returned %d rows, want %d", len(rows), want)
	}
	for _, r := range rows {
		if r[0]*100 != r[1] {
			return fmt.Errorf("row %d has value %d, want %d", r[0], r[1], r[0]*100)
		}
	}
	fmt.Printf("inserted %d rows, deleted [0,%d), %d rows survive with correct values\n",
		sequentialScanCount, sequentialScanCutoff, len(rows))
	return nil
}

// scenarioTransactionRollback exercises the raw pager (no VM involved,
// matching spec.md §8 scenario 2's framing around a single page's byte):
// allocate P1, write 'a', commit; write 'b' over it, roll back; confirm
// 'a' survives.
func scenarioTransactionRollback(p *pager.Pager) error {
	if err := p.Begin(); err != nil {
		return err
	}
	id, buf, err := p.NewPage()
	if err != nil {
		return err
	}
	buf[0] = 'a'
	if err := p.Commit(); err != nil {
		return err
	}

	if err := p.Begin(); err != nil {
		return err
	}
	wbuf, err := p.GetForWrite(id)
	if err != nil {
		return err
	}
	wbuf[0] = 'b'
	if err := p.Rollback(); err != nil {
		return err
	}

	rbuf, err := p.Get(id)
	if err != nil {
		return err
	}
	if rbuf[0] != 'a' {
		return fmt.Errorf("page %d byte 0 = %q after rollback, want 'a'", id, rbuf[0])
	}
	fmt.Printf("page %d byte 0 = %q after rollback, as expected\n", id, rbuf[0])
	return nil
}

// scenarioLikeScan creates a products table, inserts a few rows, then
// runs a VM program that scans every row and keeps only the ones whose
// name matches "%Ess%" via the built-in Like function.
func scenarioLikeScan(p *pager.Pager) error {
	if err := p.Begin(); err != nil {
		return err
	}
	cat, err := catalog.Open(p)
	if err != nil {
		return err
	}
	table, err := cat.CreateTable("products", []catalog.Column{
		{Name: "id", Type: types.U32()},
		{Name: "name", Type: types.Char(32)},
	}, types.U32())
	if err != nil {
		return err
	}
	tree, err := btree.Open(p, table.RootPage, types.U32(), table.RecordSize)
	if err != nil {
		return err
	}
	layout := vm.Layout{KeyType: types.U32(), Columns: []types.DataType{types.Char(32)}}
	ctx := vm.OpenBTree(tree, layout)

	v := vm.New(p, arena.New(0))
	if err := v.SetCursor(0, ctx); err != nil {
		return err
	}

	names := []string{"Espresso Machine", "Chess Board", "Stainless Kettle", "Essential Oils"}
	insert := vm.NewProgram()
	for i, name := range names {
		insert.Emit(vm.Instruction{Op: vm.OpLoad, P1: 0, P4: types.FromU64(types.IDU32, uint64(i))})
		insert.Emit(vm.Instruction{Op: vm.OpLoad, P1: 1, P4: types.FromString(32, name)})
		insert.Emit(vm.Instruction{Op: vm.OpInsert, P1: 0, P2: 0, P3: 2})
	}
	insert.Emit(vm.Instruction{Op: vm.OpHalt})
	prog, err := insert.Build()
	if err != nil {
		return err
	}
	if _, _, err := v.Execute(prog); err != nil {
		return err
	}
	if err := p.Commit(); err != nil {
		return err
	}

	var matches []string
	v.SetResultCallback(func(values []types.TypedValue) {
		s, _ := types.StringValue(values[0])
		matches = append(matches, s)
	})

	// R12 holds the pattern literal for the whole scan; R11 holds each
	// row's name, freshly loaded every iteration by Column. Function's
	// args run contiguously from P2, so the text register must come
	// immediately before the pattern register: args[0]=R11 (text),
	// args[1]=R12 (pattern), matching Like(text, pattern)'s argument order.
	scan := vm.NewProgram()
	scan.Emit(vm.Instruction{Op: vm.OpLoad, P1: 12, P4: types.FromString(32, "%Ess%")})
	scan.Emit(vm.Instruction{Op: vm.OpRewind, P1: 0, P3: 1})
	scan.Label("loop")
	scan.Emit(vm.Instruction{Op: vm.OpColumn, P1: 0, P2: 0, P3: 11})
	scan.Emit(vm.Instruction{Op: vm.OpFunction, P1: 13, P2: 11, P3: 2, P4: vm.BuiltinFunc(vm.Like)})
	scan.Emit(vm.Instruction{Op: vm.OpJumpIf, P1: 13, P5: 0, Label: "skip"})
	scan.Emit(vm.Instruction{Op: vm.OpResult, P1: 11, P2: 1})
	scan.Label("skip")
	scan.Emit(vm.Instruction{Op: vm.OpStep, P1: 0, P3: 1, P5: 1})
	scan.Emit(vm.Instruction{Op: vm.OpJumpIf, P1: 1, P5: 1, Label: "loop"})
	scan.Emit(vm.Instruction{Op: vm.OpHalt})
	prog, err = scan.Build()
	if err != nil {
		return err
	}
	if _, _, err := v.Execute(prog); err != nil {
		return err
	}

	fmt.Printf("products matching %%Ess%%: %v\n", matches)
	if len(matches) != 1 {
		return fmt.Errorf("got %d matches, want 1", len(matches))
	}
	return nil
}

// scenarioNestedLoopJoin builds users and orders tables, then runs an
// outer scan over users with an inner scan over orders, emitting joined
// rows where users.id == orders.user_id. Both tables duplicate their key
// as record column 0, since the Column opcode only reaches record bytes
// (the key itself is only usable for Seek/positioning, not for register
// comparison) — a common enough shape in practice that it's not a hack
// specific to this demo.
func scenarioNestedLoopJoin(p *pager.Pager) error {
	if err := p.Begin(); err != nil {
		return err
	}
	cat, err := catalog.Open(p)
	if err != nil {
		return err
	}
	users, err := cat.CreateTable("users", []catalog.Column{
		{Name: "id", Type: types.U32()},
		{Name: "name", Type: types.Char(16)},
	}, types.U32())
	if err != nil {
		return err
	}
	orders, err := cat.CreateTable("orders", []catalog.Column{
		{Name: "id", Type: types.U32()},
		{Name: "user_id", Type: types.U32()},
	}, types.U32())
	if err != nil {
		return err
	}

	usersTree, err := btree.Open(p, users.RootPage, types.U32(), users.RecordSize)
	if err != nil {
		return err
	}
	ordersTree, err := btree.Open(p, orders.RootPage, types.U32(), orders.RecordSize)
	if err != nil {
		return err
	}

	usersLayout := vm.Layout{KeyType: types.U32(), Columns: []types.DataType{types.U32(), types.Char(16)}}
	ordersLayout := vm.Layout{KeyType: types.U32(), Columns: []types.DataType{types.U32(), types.U32()}}
	usersCtx := vm.OpenBTree(usersTree, usersLayout)
	ordersCtx := vm.OpenBTree(ordersTree, ordersLayout)

	v := vm.New(p, arena.New(0))
	if err := v.SetCursor(0, usersCtx); err != nil {
		return err
	}
	if err := v.SetCursor(1, ordersCtx); err != nil {
		return err
	}

	seed := vm.NewProgram()
	userNames := []string{"alice", "bob"}
	for i, name := range userNames {
		seed.Emit(vm.Instruction{Op: vm.OpLoad, P1: 0, P4: types.FromU64(types.IDU32, uint64(i))})
		seed.Emit(vm.Instruction{Op: vm.OpLoad, P1: 1, P4: types.FromU64(types.IDU32, uint64(i))})
		seed.Emit(vm.Instruction{Op: vm.OpLoad, P1: 2, P4: types.FromString(16, name)})
		seed.Emit(vm.Instruction{Op: vm.OpInsert, P1: 0, P2: 0, P3: 3})
	}
	orderRows := [][2]uint64{{0, 0}, {1, 0}, {2, 1}}
	for _, o := range orderRows {
		seed.Emit(vm.Instruction{Op: vm.OpLoad, P1: 0, P4: types.FromU64(types.IDU32, o[0])})
		seed.Emit(vm.Instruction{Op: vm.OpLoad, P1: 1, P4: types.FromU64(types.IDU32, o[0])})
		seed.Emit(vm.Instruction{Op: vm.OpLoad, P1: 2, P4: types.FromU64(types.IDU32, o[1])})
		seed.Emit(vm.Instruction{Op: vm.OpInsert, P1: 1, P2: 0, P3: 3})
	}
	seed.Emit(vm.Instruction{Op: vm.OpHalt})
	prog, err := seed.Build()
	if err != nil {
		return err
	}
	if _, _, err := v.Execute(prog); err != nil {
		return err
	}
	if err := p.Commit(); err != nil {
		return err
	}

	type joinedRow struct {
		userID  uint64
		name    string
		orderID uint64
	}
	var joins []joinedRow
	v.SetResultCallback(func(values []types.TypedValue) {
		uid, _ := types.AsU64(values[0])
		name, _ := types.StringValue(values[1])
		oid, _ := types.AsU64(values[2])
		joins = append(joins, joinedRow{uid, name, oid})
	})

	// R10 = outer user id, R11 = outer name, R12 = inner order id,
	// R13 = inner order's user_id, R14 = equality test result.
	join := vm.NewProgram()
	join.Emit(vm.Instruction{Op: vm.OpRewind, P1: 0, P3: 5})
	join.Label("outer")
	join.Emit(vm.Instruction{Op: vm.OpColumn, P1: 0, P2: 0, P3: 10})
	join.Emit(vm.Instruction{Op: vm.OpColumn, P1: 0, P2: 1, P3: 11})
	join.Emit(vm.Instruction{Op: vm.OpRewind, P1: 1, P3: 6})
	join.Label("inner")
	join.Emit(vm.Instruction{Op: vm.OpColumn, P1: 1, P2: 0, P3: 12})
	join.Emit(vm.Instruction{Op: vm.OpColumn, P1: 1, P2: 1, P3: 13})
	join.Emit(vm.Instruction{Op: vm.OpTest, P1: 14, P2: 10, P3: 13, P5: uint8(types.CmpEQ)})
	join.Emit(vm.Instruction{Op: vm.OpJumpIf, P1: 14, P5: 0, Label: "innerNext"})
	join.Emit(vm.Instruction{Op: vm.OpResult, P1: 10, P2: 3})
	join.Label("innerNext")
	join.Emit(vm.Instruction{Op: vm.OpStep, P1: 1, P3: 6, P5: 1})
	join.Emit(vm.Instruction{Op: vm.OpJumpIf, P1: 6, P5: 1, Label: "inner"})
	join.Emit(vm.Instruction{Op: vm.OpStep, P1: 0, P3: 5, P5: 1})
	join.Emit(vm.Instruction{Op: vm.OpJumpIf, P1: 5, P5: 1, Label: "outer"})
	join.Emit(vm.Instruction{Op: vm.OpHalt})
	prog, err = join.Build()
	if err != nil {
		return err
	}
	if _, _, err := v.Execute(prog); err != nil {
		return err
	}

	fmt.Printf("joined rows: %+v\n", joins)
	if len(joins) != len(orderRows) {
		return fmt.Errorf("got %d joined rows, want %d", len(joins), len(orderRows))
	}
	for i, j := range joins {
		if j.orderID != orderRows[i][0] || j.userID != orderRows[i][1] {
			return fmt.Errorf("joined row %d = %+v, inconsistent with seed order %v", i, j, orderRows[i])
		}
	}
	return nil
}

// groupByRow accumulates one ephemeral-tree record for scenarioGroupByAggregate.
type groupByRow struct {
	count  uint32
	sumAge uint32
}

// scenarioGroupByAggregate scans a people table (id, age, city) and
// aggregates into an ephemeral red-black tree keyed by city, updating
// count/sum_age in place on a duplicate-key insert, then emits the
// aggregated rows.
func scenarioGroupByAggregate(p *pager.Pager) error {
	if err := p.Begin(); err != nil {
		return err
	}
	cat, err := catalog.Open(p)
	if err != nil {
		return err
	}
	people, err := cat.CreateTable("people", []catalog.Column{
		{Name: "id", Type: types.U32()},
		{Name: "age", Type: types.U32()},
		{Name: "city", Type: types.Char(16)},
	}, types.U32())
	if err != nil {
		return err
	}
	peopleTree, err := btree.Open(p, people.RootPage, types.U32(), people.RecordSize)
	if err != nil {
		return err
	}
	peopleLayout := vm.Layout{KeyType: types.U32(), Columns: []types.DataType{types.U32(), types.Char(16)}}
	peopleCtx := vm.OpenBTree(peopleTree, peopleLayout)

	a := arena.New(0)
	groups := ephemeral.New(a, types.Char(16), 8, false, true)
	groupsLayout := vm.Layout{KeyType: types.Char(16), Columns: []types.DataType{types.U32(), types.U32()}}
	groupsCtx := vm.OpenRedBlack(groups, groupsLayout)

	v := vm.New(p, a)
	if err := v.SetCursor(0, peopleCtx); err != nil {
		return err
	}
	if err := v.SetCursor(1, groupsCtx); err != nil {
		return err
	}

	type person struct {
		age  uint32
		city string
	}
	rows := []person{
		{30, "Berlin"}, {41, "Munich"}, {25, "Berlin"}, {36, "Munich"}, {29, "Hamburg"},
	}
	seed := vm.NewProgram()
	for i, r := range rows {
		seed.Emit(vm.Instruction{Op: vm.OpLoad, P1: 0, P4: types.FromU64(types.IDU32, uint64(i))})
		seed.Emit(vm.Instruction{Op: vm.OpLoad, P1: 1, P4: types.FromU64(types.IDU32, uint64(r.age))})
		seed.Emit(vm.Instruction{Op: vm.OpLoad, P1: 2, P4: types.FromString(16, r.city)})
		seed.Emit(vm.Instruction{Op: vm.OpInsert, P1: 0, P2: 0, P3: 3})
	}
	seed.Emit(vm.Instruction{Op: vm.OpHalt})
	prog, err := seed.Build()
	if err != nil {
		return err
	}
	if _, _, err := v.Execute(prog); err != nil {
		return err
	}
	if err := p.Commit(); err != nil {
		return err
	}

	// The aggregation step needs read-modify-write semantics the plain
	// Insert/Update opcodes don't give directly (Insert fails on a
	// duplicate key, Update needs the cursor already positioned), so it
	// runs as direct cursor calls rather than a single VM program — the
	// scan itself, though, is still driven by the VM's Rewind/Step/Column
	// opcodes, matching spec.md §8 scenario 6's "scan users, insert into
	// an ephemeral tree... on duplicate-key insert, update".
	scanProg := vm.NewProgram()
	scanProg.Emit(vm.Instruction{Op: vm.OpRewind, P1: 0, P3: 1})
	scanProg.Emit(vm.Instruction{Op: vm.OpHalt})
	built, err := scanProg.Build()
	if err != nil {
		return err
	}
	if _, _, err := v.Execute(built); err != nil {
		return err
	}

	groupsCur := ephemeral.NewCursor(groups)
	for {
		ageVal, err := peopleCtx.Column(0)
		if err != nil {
			return err
		}
		cityVal, err := peopleCtx.Column(1)
		if err != nil {
			return err
		}
		age, _ := types.AsU64(ageVal)
		cityKey := types.Encode(cityVal)

		found, err := groupsCur.Seek(cityKey)
		if err != nil {
			return err
		}
		if found {
			rec, err := groupsCur.Record()
			if err != nil {
				return err
			}
			var row groupByRow
			row.count = bytesToU32(rec[0:4]) + 1
			row.sumAge = bytesToU32(rec[4:8]) + uint32(age)
			if err := groupsCur.Update(u32PairBytes(row.count, row.sumAge)); err != nil {
				return err
			}
		} else {
			if _, err := groups.Insert(cityKey, u32PairBytes(1, uint32(age))); err != nil {
				return err
			}
		}

		more, err := peopleCtx.Step(true)
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}

	cur := ephemeral.NewCursor(groups)
	ok, err := cur.First()
	if err != nil {
		return err
	}
	fmt.Println("city aggregates:")
	for ok {
		key, err := cur.Key()
		if err != nil {
			return err
		}
		rec, err := cur.Record()
		if err != nil {
			return err
		}
		count := bytesToU32(rec[0:4])
		sumAge := bytesToU32(rec[4:8])
		city, err := types.StringValue(types.TypedValue{Type: types.Char(16), Bytes: key})
		if err != nil {
			return err
		}
		fmt.Printf("  %-8s count=%d sum_age=%d\n", city, count, sumAge)
		ok, err = cur.Next()
		if err != nil {
			return err
		}
	}
	return nil
}
