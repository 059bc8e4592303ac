package types

import "testing"

func TestScalarTypesHaveNonZeroSize(t *testing.T) {
	cases := []TypedValue{
		FromU64(IDU8, 7),
		FromU64(IDU32, 123456),
		FromI64(IDI32, -42),
		FromF64(3.25),
		FromString(8, "hi"),
		FromVarchar("hello world"),
	}
	for _, v := range cases {
		if v.Type.TotalSize() == 0 && !v.Type.IsNull() {
			t.Fatalf("zero total size for %s", v.Type)
		}
	}
}

func TestCompareOrdering(t *testing.T) {
	a := FromU64(IDU32, 10)
	b := FromU64(IDU32, 20)
	if Compare(a, b) >= 0 {
		t.Fatalf("expected a < b")
	}
	if Compare(b, a) <= 0 {
		t.Fatalf("expected b > a")
	}
	if Compare(a, a) != 0 {
		t.Fatalf("expected a == a")
	}
}

func TestCompareStrings(t *testing.T) {
	a := FromVarchar("apple")
	b := FromVarchar("banana")
	if Compare(a, b) >= 0 {
		t.Fatalf("expected apple < banana")
	}
}

func TestArithmeticDivisionByZero(t *testing.T) {
	a := FromU64(IDU32, 10)
	z := FromU64(IDU32, 0)
	if _, err := Arithmetic(ArithDiv, a, z); err == nil {
		t.Fatalf("expected division by zero error")
	}
}

func TestArithmeticSignedSubtraction(t *testing.T) {
	a := FromI64(IDI32, 5)
	b := FromI64(IDI32, 3)
	r, err := Arithmetic(ArithSub, a, b)
	if err != nil {
		t.Fatal(err)
	}
	n, _ := AsI64(r)
	if n != 2 {
		t.Fatalf("expected 2, got %d", n)
	}
}

func TestPackUnpackRoundTrip(t *testing.T) {
	a := FromU64(IDU32, 100)
	b := FromU64(IDU64, 200)
	packed, err := Pack(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if !packed.Type.IsDual() {
		t.Fatalf("expected dual type")
	}
	ua, ub, err := Unpack(packed, U32(), U64())
	if err != nil {
		t.Fatal(err)
	}
	av, _ := AsU64(ua)
	bv, _ := AsU64(ub)
	if av != 100 || bv != 200 {
		t.Fatalf("got %d,%d want 100,200", av, bv)
	}
}

func TestDualCompareLexicographic(t *testing.T) {
	a, _ := Pack(FromU64(IDU32, 1), FromU64(IDU32, 99))
	b, _ := Pack(FromU64(IDU32, 1), FromU64(IDU32, 100))
	c, _ := Pack(FromU64(IDU32, 2), FromU64(IDU32, 0))
	if Compare(a, b) >= 0 {
		t.Fatalf("expected a < b (second component breaks tie)")
	}
	if Compare(b, c) >= 0 {
		t.Fatalf("expected b < c (first component dominates)")
	}
}

func TestTruthy(t *testing.T) {
	if Truthy(FromU64(IDU32, 0)) {
		t.Fatalf("zero should be falsy")
	}
	if !Truthy(FromU64(IDU32, 1)) {
		t.Fatalf("nonzero should be truthy")
	}
	if Truthy(TypedValue{Type: Null()}) {
		t.Fatalf("null should be falsy")
	}
}

func TestStringValueTrimsPadding(t *testing.T) {
	v := FromString(8, "hi")
	s, err := StringValue(v)
	if err != nil {
		t.Fatal(err)
	}
	if s != "hi" {
		t.Fatalf("got %q want hi", s)
	}
}
