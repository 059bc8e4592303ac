package pattern

import "testing"

func TestMatch(t *testing.T) {
	cases := []struct {
		pat, s string
		want   bool
	}{
		{"%Ess%", "Espresso Machine", false},
		{"%Ess%", "Essential Oils", true},
		{"%Ess%", "Chess Board", false},
		{"%Ess%", "Stainless Kettle", false},
		{"A_ice", "Alice", true},
		{"A_ice", "Aliice", false},
		{"%", "anything", true},
		{"exact", "exact", true},
		{"exact", "exactly", false},
		{"", "", true},
		{"", "x", false},
	}
	for _, c := range cases {
		if got := Match(c.pat, c.s); got != c.want {
			t.Errorf("Match(%q, %q) = %v, want %v", c.pat, c.s, got, c.want)
		}
	}
}

func TestMatchTrimsTrailingSpaces(t *testing.T) {
	if !Match("foo", "foo   ") {
		t.Error("Match should trim trailing spaces from a fixed-char comparison")
	}
	if !Match("foo  ", "foo") {
		t.Error("Match should trim trailing spaces from the pattern too")
	}
}

func TestMatchFold(t *testing.T) {
	if !MatchFold("%ESS%", "Espresso Machine") {
		t.Error("MatchFold should be case-insensitive")
	}
	if MatchFold("%xyz%", "Espresso Machine") {
		t.Error("MatchFold should still reject a non-matching pattern")
	}
}
