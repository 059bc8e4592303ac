package types

import "bytes"

// Compare orders two TypedValues of the same DataType. Numeric kinds
// compare by value; char/varchar compare byte-wise; dual (composite) types
// compare lexicographically component-by-component as spec.md §3 requires
// for internal-node key separation. Comparing values of different types
// is a programmer error and panics — the VM never does this because the
// compiler it receives bytecode from only ever compares like-typed
// registers (spec.md §7: malformed instructions are a programmer error).
func Compare(a, b TypedValue) int {
	if a.Type.ID() != b.Type.ID() {
		panic("types: Compare called on mismatched type ids")
	}
	switch a.Type.ID() {
	case IDU8, IDU16, IDU32, IDU64:
		av, _ := AsU64(a)
		bv, _ := AsU64(b)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case IDI8, IDI16, IDI32, IDI64:
		av, _ := AsI64(a)
		bv, _ := AsI64(b)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case IDF32, IDF64:
		av, _ := AsF64(a)
		bv, _ := AsF64(b)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case IDChar, IDVarchar:
		return bytes.Compare(a.Bytes, b.Bytes)
	case IDMulti:
		return compareDual(a, b)
	case IDNull:
		return 0
	default:
		panic("types: Compare called on unknown type id")
	}
}

// compareDual compares two composite values component by component. Each
// component's comparison rule follows its declared byte width the same way
// a scalar of that width would, falling back to memcmp for any component
// whose size does not match a known integer width (spec.md §4.2 / types.hpp
// "second component uses memcmp, not strcmp" warning for string duals).
func compareDual(a, b TypedValue) int {
	s1, s2 := int(a.Type.Size1()), int(a.Type.Size2())
	if c := compareComponent(a.Bytes[:s1], b.Bytes[:s1]); c != 0 {
		return c
	}
	return compareComponent(a.Bytes[s1:s1+s2], b.Bytes[s1:s1+s2])
}

func compareComponent(a, b []byte) int {
	switch len(a) {
	case 1, 2, 4, 8:
		var av, bv uint64
		for i := len(a) - 1; i >= 0; i-- {
			av = av<<8 | uint64(a[i])
			bv = bv<<8 | uint64(b[i])
		}
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	}
	return bytes.Compare(a, b)
}

// Equal reports whether two like-typed values compare equal.
func Equal(a, b TypedValue) bool { return Compare(a, b) == 0 }
