// Package types implements KellerStore's fixed 64-bit type descriptor and
// the TypedValue register contents it describes.
//
// A DataType packs type id, component count, up to four component sizes,
// and a total byte size into a single uint64:
//
//	[type_id:8][component_count:8][size1:8][size2:8][size3:8][size4:8][total_size:16]
//
// This layout is bit-for-bit the encoding used by the reference engine's
// type_system.h; it is kept exactly so that compare/arithmetic dispatch can
// branch on a single integer without touching an interface vtable.
package types

import "fmt"

// TypeID identifies the scalar/composite shape a DataType describes.
type TypeID uint8

// Type id namespace: unsigned, signed, float, string, composite, null.
// Reserved ranges mirror the reference so no two kinds of value ever alias.
const (
	IDU8  TypeID = 0x01
	IDU16 TypeID = 0x02
	IDU32 TypeID = 0x03
	IDU64 TypeID = 0x04

	IDI8  TypeID = 0x11
	IDI16 TypeID = 0x12
	IDI32 TypeID = 0x13
	IDI64 TypeID = 0x14

	IDF32 TypeID = 0x21
	IDF64 TypeID = 0x22

	IDChar    TypeID = 0x31
	IDVarchar TypeID = 0x32

	IDMulti TypeID = 0x50

	IDNull TypeID = 0xFF
)

// DataType is the packed 64-bit type descriptor.
type DataType uint64

// MakeType assembles a DataType from its six fields.
func MakeType(id TypeID, componentCount, size1, size2, size3, size4 uint8, totalSize uint16) DataType {
	return DataType(uint64(id)<<56 |
		uint64(componentCount)<<48 |
		uint64(size1)<<40 |
		uint64(size2)<<32 |
		uint64(size3)<<24 |
		uint64(size4)<<16 |
		uint64(totalSize))
}

func (t DataType) ID() TypeID           { return TypeID(t >> 56) }
func (t DataType) ComponentCount() uint8 { return uint8(t >> 48) }
func (t DataType) Size1() uint8         { return uint8(t >> 40) }
func (t DataType) Size2() uint8         { return uint8(t >> 32) }
func (t DataType) Size3() uint8         { return uint8(t >> 24) }
func (t DataType) Size4() uint8         { return uint8(t >> 16) }
func (t DataType) TotalSize() uint16    { return uint16(t) }

// IsNull reports whether t describes the null type.
func (t DataType) IsNull() bool { return t.ID() == IDNull }

// IsNumeric reports whether t is one of the fixed-width integer or float
// scalar kinds (i.e. arithmetic applies directly to its byte encoding).
func (t DataType) IsNumeric() bool {
	switch t.ID() {
	case IDU8, IDU16, IDU32, IDU64, IDI8, IDI16, IDI32, IDI64, IDF32, IDF64:
		return true
	}
	return false
}

// IsSigned reports whether t is one of the signed integer kinds.
func (t DataType) IsSigned() bool {
	switch t.ID() {
	case IDI8, IDI16, IDI32, IDI64:
		return true
	}
	return false
}

// IsFloat reports whether t is f32 or f64.
func (t DataType) IsFloat() bool {
	return t.ID() == IDF32 || t.ID() == IDF64
}

// IsString reports whether t is a fixed char or a varchar.
func (t DataType) IsString() bool {
	return t.ID() == IDChar || t.ID() == IDVarchar
}

// IsDual reports whether t is a two-component composite type.
func (t DataType) IsDual() bool {
	return t.ID() == IDMulti && t.ComponentCount() >= 2
}

// Scalar constructors — each carries component_count=0.
func U8() DataType  { return MakeType(IDU8, 0, 1, 0, 0, 0, 1) }
func U16() DataType { return MakeType(IDU16, 0, 2, 0, 0, 0, 2) }
func U32() DataType { return MakeType(IDU32, 0, 4, 0, 0, 0, 4) }
func U64() DataType { return MakeType(IDU64, 0, 8, 0, 0, 0, 8) }

func I8() DataType  { return MakeType(IDI8, 0, 1, 0, 0, 0, 1) }
func I16() DataType { return MakeType(IDI16, 0, 2, 0, 0, 0, 2) }
func I32() DataType { return MakeType(IDI32, 0, 4, 0, 0, 0, 4) }
func I64() DataType { return MakeType(IDI64, 0, 8, 0, 0, 0, 8) }

func F32() DataType { return MakeType(IDF32, 0, 4, 0, 0, 0, 4) }
func F64() DataType { return MakeType(IDF64, 0, 8, 0, 0, 0, 8) }

// Char returns a fixed-width character type of the given byte length.
func Char(size uint16) DataType {
	return MakeType(IDChar, 0, uint8(size&0xFF), uint8(size>>8), 0, 0, size)
}

// Varchar returns a variable-length string type descriptor; size1/size2
// encode the 16-bit length exactly as total_size does (spec.md §6).
func Varchar(size uint16) DataType {
	return MakeType(IDVarchar, 0, uint8(size&0xFF), uint8(size>>8), 0, 0, size)
}

// Null is the singleton null type.
func Null() DataType { return MakeType(IDNull, 0, 0, 0, 0, 0, 0) }

// Dual builds a two-component composite type out of two scalar component
// byte sizes. Components compare lexicographically: first by component 1,
// then by component 2.
func Dual(size1, size2 uint8) DataType {
	total := uint16(size1) + uint16(size2)
	return MakeType(IDMulti, 2, size1, size2, 0, 0, total)
}

// String renders a DataType for debug output and error messages.
func (t DataType) String() string {
	switch t.ID() {
	case IDU8:
		return "u8"
	case IDU16:
		return "u16"
	case IDU32:
		return "u32"
	case IDU64:
		return "u64"
	case IDI8:
		return "i8"
	case IDI16:
		return "i16"
	case IDI32:
		return "i32"
	case IDI64:
		return "i64"
	case IDF32:
		return "f32"
	case IDF64:
		return "f64"
	case IDChar:
		return fmt.Sprintf("char(%d)", t.TotalSize())
	case IDVarchar:
		return fmt.Sprintf("varchar(%d)", t.TotalSize())
	case IDMulti:
		return fmt.Sprintf("dual(%d,%d)", t.Size1(), t.Size2())
	case IDNull:
		return "null"
	default:
		return fmt.Sprintf("unknown(0x%02x)", uint8(t.ID()))
	}
}

// TypedValue is a (DataType, bytes) pair — the contents of one VM register
// or one B+tree/ephemeral-tree key or record.
type TypedValue struct {
	Type  DataType
	Bytes []byte
}

// Clone returns a TypedValue with its own copy of the byte buffer. Used
// whenever a value crosses into long-lived storage (a register load, an
// arena allocation) so later mutation of a caller's buffer cannot corrupt
// stored state.
func (v TypedValue) Clone() TypedValue {
	b := make([]byte, len(v.Bytes))
	copy(b, v.Bytes)
	return TypedValue{Type: v.Type, Bytes: b}
}

// IsNull reports whether v holds the null type.
func (v TypedValue) IsNull() bool { return v.Type.IsNull() }
