package vm

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/kellerstore/kellerstore/internal/arena"
	"github.com/kellerstore/kellerstore/internal/pager"
	"github.com/kellerstore/kellerstore/internal/types"
)

// Registers is the fixed register bank size (spec.md §4.6 "REGISTERS").
const Registers = 40

// Result is the VM's outcome after running a program to completion or
// fatal error (spec.md §7: OK/ABORT/ERR).
type Result uint8

const (
	ResultOK Result = iota
	ResultAbort
	ResultErr
)

// ResultCallback receives a contiguous run of registers handed over by
// the Result opcode (spec.md §6 "Result callback").
type ResultCallback func(values []types.TypedValue)

// VM executes one instruction vector at a time against a register bank
// and cursor table, backed by a single pager and a per-query arena
// (spec.md §4.6, §5 "Resource lifecycle").
type VM struct {
	Pager *pager.Pager
	Arena *arena.Arena

	registers [Registers]types.TypedValue
	cursors   [MaxCursors]*CursorContext
	callback  ResultCallback
	pc        int
	inTx      bool

	instructions prometheus.Counter
}

// New creates a VM bound to p, allocating per-query scratch from a.
func New(p *pager.Pager, a *arena.Arena) *VM {
	return &VM{Pager: p, Arena: a}
}

// SetInstructionCounter installs a counter incremented once per dispatched
// instruction, wired up by internal/metrics's registry. Nil disables
// counting (the default).
func (v *VM) SetInstructionCounter(c prometheus.Counter) { v.instructions = c }

// SetResultCallback installs the callback Result instructions invoke.
// Switching callbacks between programs is legal (spec.md §4.6 "used to
// bootstrap the catalog").
func (v *VM) SetResultCallback(cb ResultCallback) { v.callback = cb }

// SetCursor installs ctx into cursor slot id, as OP_Open's effect.
func (v *VM) SetCursor(id int, ctx *CursorContext) error {
	if id < 0 || id >= MaxCursors {
		return fmt.Errorf("vm: cursor id %d out of range", id)
	}
	v.cursors[id] = ctx
	return nil
}

func (v *VM) cursor(id int32) (*CursorContext, error) {
	if id < 0 || int(id) >= MaxCursors || v.cursors[id] == nil {
		return nil, fmt.Errorf("vm: cursor %d not open", id)
	}
	return v.cursors[id], nil
}

func (v *VM) reg(i int32) types.TypedValue {
	return v.registers[i]
}

func (v *VM) setReg(i int32, val types.TypedValue) {
	v.registers[i] = val
}

// Execute runs prog from PC 0 to Halt (or a fatal error), returning the
// VM's terminal result and exit code. Malformed instructions are
// programmer errors (spec.md §7): bad cursor ids and missing operands
// surface as ResultErr, while an out-of-range register index panics.
func (v *VM) Execute(prog []Instruction) (Result, int32, error) {
	v.pc = 0
	for v.pc < len(prog) {
		inst := prog[v.pc]
		next := v.pc + 1
		if v.instructions != nil {
			v.instructions.Inc()
		}
		switch inst.Op {
		case OpGoto:
			next = int(inst.P2)

		case OpHalt:
			return ResultOK, inst.P1, nil

		case OpOpen:
			ctx, ok := inst.P4.(*CursorContext)
			if !ok {
				return ResultErr, 0, fmt.Errorf("vm: Open at PC %d missing cursor context", v.pc)
			}
			if err := v.SetCursor(int(inst.P1), ctx); err != nil {
				return ResultErr, 0, err
			}

		case OpClose:
			if int(inst.P1) < 0 || int(inst.P1) >= MaxCursors {
				return ResultErr, 0, fmt.Errorf("vm: Close cursor %d out of range", inst.P1)
			}
			v.cursors[inst.P1] = nil

		case OpRewind:
			c, err := v.cursor(inst.P1)
			if err != nil {
				return ResultErr, 0, err
			}
			ok, err := c.Rewind(inst.P5 != 0)
			if err != nil {
				return ResultErr, 0, err
			}
			v.setReg(int32(inst.P3), types.Bool(ok))

		case OpStep:
			c, err := v.cursor(inst.P1)
			if err != nil {
				return ResultErr, 0, err
			}
			ok, err := c.Step(inst.P5 != 0)
			if err != nil {
				return ResultErr, 0, err
			}
			v.setReg(int32(inst.P3), types.Bool(ok))

		case OpSeek:
			c, err := v.cursor(inst.P1)
			if err != nil {
				return ResultErr, 0, err
			}
			keyVal := v.reg(int32(inst.P2))
			ok, err := c.SeekCmp(keyVal.Bytes, types.ComparisonOp(inst.P5))
			if err != nil {
				return ResultErr, 0, err
			}
			v.setReg(inst.P3, types.Bool(ok))

		case OpColumn:
			c, err := v.cursor(inst.P1)
			if err != nil {
				return ResultErr, 0, err
			}
			val, err := c.Column(int(inst.P2))
			if err != nil {
				return ResultErr, 0, err
			}
			v.setReg(inst.P3, val)

		case OpInsert:
			c, err := v.cursor(inst.P1)
			if err != nil {
				return ResultErr, 0, err
			}
			start, count := int32(inst.P2), inst.P3
			regs := make([]types.TypedValue, count)
			for i := int32(0); i < count; i++ {
				regs[i] = v.reg(start + i)
			}
			if _, err := c.Insert(regs); err != nil {
				return ResultErr, 0, err
			}

		case OpDelete:
			c, err := v.cursor(inst.P1)
			if err != nil {
				return ResultErr, 0, err
			}
			occurred, err := c.Delete()
			if err != nil {
				return ResultErr, 0, err
			}
			v.setReg(inst.P2, types.Bool(c.valid()))
			v.setReg(inst.P3, types.Bool(occurred))

		case OpUpdate:
			c, err := v.cursor(inst.P1)
			if err != nil {
				return ResultErr, 0, err
			}
			rec := v.reg(int32(inst.P2))
			if err := c.Update([]types.TypedValue{rec}); err != nil {
				return ResultErr, 0, err
			}

		case OpMove:
			v.setReg(inst.P1, v.reg(int32(inst.P3)))

		case OpLoad:
			lit, ok := inst.P4.(types.TypedValue)
			if !ok {
				return ResultErr, 0, fmt.Errorf("vm: Load at PC %d missing literal", v.pc)
			}
			v.setReg(inst.P1, lit)

		case OpArithmetic:
			left, right := v.reg(int32(inst.P2)), v.reg(inst.P3)
			result, err := types.Arithmetic(types.ArithOp(inst.P5), left, right)
			if err != nil {
				return ResultErr, 0, err
			}
			v.setReg(inst.P1, result)

		case OpJumpIf:
			val := v.reg(inst.P1)
			wantTrue := inst.P5 != 0
			if types.Truthy(val) == wantTrue {
				next = int(inst.P2)
			}

		case OpLogic:
			left, right := v.reg(int32(inst.P2)), v.reg(inst.P3)
			v.setReg(inst.P1, types.Logic(types.LogicOp(inst.P5), left, right))

		case OpResult:
			if v.callback != nil {
				first, count := inst.P1, inst.P2
				vals := make([]types.TypedValue, count)
				for i := int64(0); i < count; i++ {
					vals[i] = v.reg(first + int32(i))
				}
				v.callback(vals)
			}

		case OpTest:
			left, right := v.reg(int32(inst.P2)), v.reg(inst.P3)
			v.setReg(inst.P1, types.Bool(types.Test(types.ComparisonOp(inst.P5), left, right)))

		case OpFunction:
			fn, ok := inst.P4.(BuiltinFunc)
			if !ok {
				return ResultErr, 0, fmt.Errorf("vm: Function at PC %d missing function pointer", v.pc)
			}
			start, count := inst.P2, inst.P3
			args := make([]types.TypedValue, count)
			for i := int32(0); i < count; i++ {
				args[i] = v.reg(int32(start) + i)
			}
			result, ok := fn(args, v.Arena)
			if !ok {
				return ResultErr, 0, fmt.Errorf("vm: function call at PC %d failed", v.pc)
			}
			v.setReg(inst.P1, result)

		case OpBegin:
			if v.inTx {
				break
			}
			if err := v.Pager.Begin(); err != nil {
				return ResultErr, 0, err
			}
			v.inTx = true

		case OpCommit:
			if !v.inTx {
				break
			}
			if err := v.Pager.Commit(); err != nil {
				return ResultErr, 0, err
			}
			v.inTx = false

		case OpRollback:
			if !v.inTx {
				break
			}
			if err := v.Pager.Rollback(); err != nil {
				return ResultErr, 0, err
			}
			v.inTx = false

		case OpPack:
			a, b := v.reg(int32(inst.P2)), v.reg(inst.P3)
			packed, err := types.Pack(a, b)
			if err != nil {
				return ResultErr, 0, err
			}
			v.setReg(inst.P1, packed)

		case OpUnpack:
			src := v.reg(int32(inst.P2))
			if !src.Type.IsDual() {
				return ResultErr, 0, fmt.Errorf("vm: Unpack at PC %d on non-dual register", v.pc)
			}
			t1 := scalarOfSize(src.Type.Size1())
			t2 := scalarOfSize(src.Type.Size2())
			a, b, err := types.Unpack(src, t1, t2)
			if err != nil {
				return ResultErr, 0, err
			}
			v.setReg(inst.P1, a)
			v.setReg(inst.P1+1, b)

		case OpDebug:
			log.Debug().Int("pc", v.pc).Str("inst", inst.String()).Msg("vm debug")

		default:
			return ResultErr, 0, fmt.Errorf("vm: unknown opcode %d at PC %d", inst.Op, v.pc)
		}
		v.pc = next
	}
	return ResultOK, 0, nil
}

// scalarOfSize guesses an unsigned integer scalar type of the given byte
// width, used to reconstruct Unpack's component types when the caller
// did not separately record them. Callers needing signed/float
// components should use types.Unpack directly instead of the Unpack
// opcode.
func scalarOfSize(size uint8) types.DataType {
	switch size {
	case 1:
		return types.U8()
	case 2:
		return types.U16()
	case 4:
		return types.U32()
	case 8:
		return types.U64()
	default:
		return types.Char(uint16(size))
	}
}
