package types

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Encode writes v's numeric/scalar payload in little-endian fixed-width
// form. Strings and duals are assumed to already be in their wire form in
// v.Bytes and are returned unchanged (padded/truncated to TotalSize).
func Encode(v TypedValue) []byte {
	switch v.Type.ID() {
	case IDU8, IDI8:
		return []byte{v.Bytes[0]}
	case IDU16, IDI16:
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, binary.LittleEndian.Uint16(v.Bytes))
		return b
	case IDU32, IDI32:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, binary.LittleEndian.Uint32(v.Bytes))
		return b
	case IDU64, IDI64, IDF64:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, binary.LittleEndian.Uint64(v.Bytes))
		return b
	case IDF32:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, binary.LittleEndian.Uint32(v.Bytes))
		return b
	default:
		out := make([]byte, v.Type.TotalSize())
		copy(out, v.Bytes)
		return out
	}
}

// AsU64 interprets v as an unsigned integer of its declared width.
func AsU64(v TypedValue) (uint64, error) {
	switch v.Type.ID() {
	case IDU8:
		return uint64(v.Bytes[0]), nil
	case IDU16:
		return uint64(binary.LittleEndian.Uint16(v.Bytes)), nil
	case IDU32:
		return uint64(binary.LittleEndian.Uint32(v.Bytes)), nil
	case IDU64:
		return binary.LittleEndian.Uint64(v.Bytes), nil
	default:
		return 0, fmt.Errorf("types: %s is not an unsigned integer", v.Type)
	}
}

// AsI64 interprets v as a signed integer of its declared width.
func AsI64(v TypedValue) (int64, error) {
	switch v.Type.ID() {
	case IDI8:
		return int64(int8(v.Bytes[0])), nil
	case IDI16:
		return int64(int16(binary.LittleEndian.Uint16(v.Bytes))), nil
	case IDI32:
		return int64(int32(binary.LittleEndian.Uint32(v.Bytes))), nil
	case IDI64:
		return int64(binary.LittleEndian.Uint64(v.Bytes)), nil
	default:
		return 0, fmt.Errorf("types: %s is not a signed integer", v.Type)
	}
}

// AsF64 interprets v as a floating-point value, widening f32 to f64.
func AsF64(v TypedValue) (float64, error) {
	switch v.Type.ID() {
	case IDF32:
		bits := binary.LittleEndian.Uint32(v.Bytes)
		return float64(math.Float32frombits(bits)), nil
	case IDF64:
		bits := binary.LittleEndian.Uint64(v.Bytes)
		return math.Float64frombits(bits), nil
	default:
		return 0, fmt.Errorf("types: %s is not a float", v.Type)
	}
}

// AsNumber widens any numeric TypedValue to a float64 for generic
// arithmetic/comparison plumbing that does not care about exact width.
func AsNumber(v TypedValue) (float64, error) {
	switch {
	case v.Type.IsFloat():
		return AsF64(v)
	case v.Type.IsSigned():
		n, err := AsI64(v)
		return float64(n), err
	case v.Type.IsNumeric():
		n, err := AsU64(v)
		return float64(n), err
	default:
		return 0, fmt.Errorf("types: %s is not numeric", v.Type)
	}
}

// FromU64 builds a TypedValue of the requested unsigned width from n.
func FromU64(id TypeID, n uint64) TypedValue {
	switch id {
	case IDU8:
		return TypedValue{Type: U8(), Bytes: []byte{byte(n)}}
	case IDU16:
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(n))
		return TypedValue{Type: U16(), Bytes: b}
	case IDU32:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(n))
		return TypedValue{Type: U32(), Bytes: b}
	case IDU64:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, n)
		return TypedValue{Type: U64(), Bytes: b}
	}
	panic("types: FromU64 called with non-unsigned id")
}

// FromI64 builds a TypedValue of the requested signed width from n.
func FromI64(id TypeID, n int64) TypedValue {
	switch id {
	case IDI8:
		return TypedValue{Type: I8(), Bytes: []byte{byte(int8(n))}}
	case IDI16:
		b := make([]byte, 2)
		binary.LittleEndian.PutUint16(b, uint16(int16(n)))
		return TypedValue{Type: I16(), Bytes: b}
	case IDI32:
		b := make([]byte, 4)
		binary.LittleEndian.PutUint32(b, uint32(int32(n)))
		return TypedValue{Type: I32(), Bytes: b}
	case IDI64:
		b := make([]byte, 8)
		binary.LittleEndian.PutUint64(b, uint64(n))
		return TypedValue{Type: I64(), Bytes: b}
	}
	panic("types: FromI64 called with non-signed id")
}

// FromF32 builds an f32 TypedValue.
func FromF32(f float32) TypedValue {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(f))
	return TypedValue{Type: F32(), Bytes: b}
}

// FromF64 builds an f64 TypedValue.
func FromF64(f float64) TypedValue {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, math.Float64bits(f))
	return TypedValue{Type: F64(), Bytes: b}
}

// FromString builds a fixed-char TypedValue, truncating or zero-padding s
// to exactly size bytes.
func FromString(size uint16, s string) TypedValue {
	b := make([]byte, size)
	copy(b, s)
	return TypedValue{Type: Char(size), Bytes: b}
}

// FromVarchar builds a varchar TypedValue holding exactly len(s) bytes.
func FromVarchar(s string) TypedValue {
	return TypedValue{Type: Varchar(uint16(len(s))), Bytes: []byte(s)}
}

// StringValue returns the Go string held by a char/varchar TypedValue, with
// trailing NUL padding on fixed chars trimmed.
func StringValue(v TypedValue) (string, error) {
	if !v.Type.IsString() {
		return "", fmt.Errorf("types: %s is not a string type", v.Type)
	}
	b := v.Bytes
	if v.Type.ID() == IDChar {
		i := len(b)
		for i > 0 && b[i-1] == 0 {
			i--
		}
		b = b[:i]
	}
	return string(b), nil
}

// Bool returns a u8 TypedValue encoding 0 or 1 — the VM's boolean register
// convention (spec.md §4.6, the Test/JumpIf opcodes).
func Bool(b bool) TypedValue {
	if b {
		return FromU64(IDU8, 1)
	}
	return FromU64(IDU8, 0)
}

// Truthy interprets a TypedValue as a VM boolean: non-zero numeric value,
// or any non-empty/non-zero byte payload for other scalar kinds.
func Truthy(v TypedValue) bool {
	if v.IsNull() {
		return false
	}
	if v.Type.IsNumeric() {
		n, err := AsNumber(v)
		return err == nil && n != 0
	}
	for _, b := range v.Bytes {
		if b != 0 {
			return true
		}
	}
	return false
}
