package types

import "fmt"

// Pack forms a dual (composite) TypedValue from two component values,
// matching the VM's OP_Pack opcode (spec.md §4.6 Dual group). Both
// components must be fixed-width scalars; their encoded bytes are
// concatenated in order.
func Pack(a, b TypedValue) (TypedValue, error) {
	if a.Type.IsString() || b.Type.IsString() {
		return TypedValue{}, fmt.Errorf("types: Pack does not support variable-length components")
	}
	s1 := int(a.Type.TotalSize())
	s2 := int(b.Type.TotalSize())
	buf := make([]byte, 0, s1+s2)
	buf = append(buf, Encode(a)...)
	buf = append(buf, Encode(b)...)
	dt := Dual(uint8(s1), uint8(s2))
	return TypedValue{Type: dt, Bytes: buf}, nil
}

// Unpack splits a dual TypedValue back into its two components, matching
// OP_Unpack. The caller supplies the component DataTypes since the dual
// descriptor itself only records byte widths, not original type ids;
// compile-time knowledge of the composite's shape provides that.
func Unpack(v TypedValue, t1, t2 DataType) (TypedValue, TypedValue, error) {
	if !v.Type.IsDual() {
		return TypedValue{}, TypedValue{}, fmt.Errorf("types: Unpack called on non-dual type %s", v.Type)
	}
	s1 := int(v.Type.Size1())
	s2 := int(v.Type.Size2())
	if len(v.Bytes) < s1+s2 {
		return TypedValue{}, TypedValue{}, fmt.Errorf("types: dual value too short")
	}
	a := TypedValue{Type: t1, Bytes: append([]byte(nil), v.Bytes[:s1]...)}
	b := TypedValue{Type: t2, Bytes: append([]byte(nil), v.Bytes[s1:s1+s2]...)}
	return a, b, nil
}
