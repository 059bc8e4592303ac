// Package vm implements the register-based bytecode machine: a fixed
// register bank, a cursor table spanning B+tree/ephemeral/blob storage,
// and a flat five-operand instruction format (spec.md §4.6, grounded on
// the reference engine's vm.hpp/vm.cpp).
package vm

import "fmt"

// Opcode identifies an instruction's operation. Numeric values match the
// reference engine's OPCODE enum exactly; nothing depends on the specific
// values, but keeping them aligned makes cross-referencing vm.hpp trivial.
type Opcode uint8

const (
	OpGoto Opcode = 1
	OpHalt Opcode = 2

	OpOpen   Opcode = 10
	OpClose  Opcode = 12
	OpRewind Opcode = 13
	OpStep   Opcode = 14

	OpSeek Opcode = 20

	OpColumn Opcode = 30
	OpInsert Opcode = 34
	OpDelete Opcode = 35
	OpUpdate Opcode = 36

	OpMove Opcode = 40
	OpLoad Opcode = 41

	OpArithmetic Opcode = 51
	OpJumpIf     Opcode = 52
	OpLogic      Opcode = 53
	OpResult     Opcode = 54

	OpTest     Opcode = 60
	OpFunction Opcode = 61
	OpBegin    Opcode = 62
	OpCommit   Opcode = 63
	OpRollback Opcode = 64

	OpPack   Opcode = 65
	OpUnpack Opcode = 66

	OpDebug Opcode = 67
)

func (op Opcode) String() string {
	switch op {
	case OpGoto:
		return "Goto"
	case OpHalt:
		return "Halt"
	case OpOpen:
		return "Open"
	case OpClose:
		return "Close"
	case OpRewind:
		return "Rewind"
	case OpStep:
		return "Step"
	case OpSeek:
		return "Seek"
	case OpColumn:
		return "Column"
	case OpInsert:
		return "Insert"
	case OpDelete:
		return "Delete"
	case OpUpdate:
		return "Update"
	case OpMove:
		return "Move"
	case OpLoad:
		return "Load"
	case OpArithmetic:
		return "Arithmetic"
	case OpJumpIf:
		return "JumpIf"
	case OpLogic:
		return "Logic"
	case OpResult:
		return "Result"
	case OpTest:
		return "Test"
	case OpFunction:
		return "Function"
	case OpBegin:
		return "Begin"
	case OpCommit:
		return "Commit"
	case OpRollback:
		return "Rollback"
	case OpPack:
		return "Pack"
	case OpUnpack:
		return "Unpack"
	case OpDebug:
		return "Debug"
	default:
		return fmt.Sprintf("Opcode(%d)", uint8(op))
	}
}

// Instruction is one bytecode instruction: an opcode plus five fixed
// operand slots. Not every opcode uses every slot (spec.md §4.6
// "Dispatch"). P4 carries either nil, a *CursorContext (Open), a
// types.TypedValue literal (Load), or a BuiltinFunc (Function).
type Instruction struct {
	Op Opcode
	P1 int32
	P2 int64
	P3 int32
	P4 any
	P5 uint8

	// Label is a symbolic jump target for Goto/JumpIf, resolved to a P2
	// PC value by (*Program).Build before execution. Empty for every
	// other opcode.
	Label string
}
