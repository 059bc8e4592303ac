package vm

import (
	"strings"

	"github.com/google/uuid"

	"github.com/kellerstore/kellerstore/internal/arena"
	"github.com/kellerstore/kellerstore/internal/pattern"
	"github.com/kellerstore/kellerstore/internal/types"
)

// BuiltinFunc matches the reference engine's vm_function signature:
// (result, args, argc) -> ok (spec.md §6 "Built-in VM function
// signature"). Any output buffer must come from the supplied arena and
// must not retain pointers into args past return.
type BuiltinFunc func(args []types.TypedValue, a *arena.Arena) (types.TypedValue, bool)

// Like implements the LIKE opcode's built-in (spec.md example:
// "like(text, pattern)"), supporting the standard `%`/`_` wildcards.
func Like(args []types.TypedValue, a *arena.Arena) (types.TypedValue, bool) {
	if len(args) != 2 {
		return types.TypedValue{}, false
	}
	text, err1 := types.StringValue(args[0])
	pat, err2 := types.StringValue(args[1])
	if err1 != nil || err2 != nil {
		return types.TypedValue{}, false
	}
	return types.Bool(pattern.Match(pat, text)), true
}

// Upper uppercases a char/varchar argument.
func Upper(args []types.TypedValue, a *arena.Arena) (types.TypedValue, bool) {
	return stringTransform(args, a, strings.ToUpper)
}

// Lower lowercases a char/varchar argument.
func Lower(args []types.TypedValue, a *arena.Arena) (types.TypedValue, bool) {
	return stringTransform(args, a, strings.ToLower)
}

func stringTransform(args []types.TypedValue, a *arena.Arena, f func(string) string) (types.TypedValue, bool) {
	if len(args) != 1 {
		return types.TypedValue{}, false
	}
	s, err := types.StringValue(args[0])
	if err != nil {
		return types.TypedValue{}, false
	}
	out := f(s)
	buf, err := a.AllocCopy([]byte(out))
	if err != nil {
		return types.TypedValue{}, false
	}
	return types.TypedValue{Type: args[0].Type, Bytes: buf}, true
}

// Length returns the trimmed string length of a char/varchar argument as
// a u32.
func Length(args []types.TypedValue, a *arena.Arena) (types.TypedValue, bool) {
	if len(args) != 1 {
		return types.TypedValue{}, false
	}
	s, err := types.StringValue(args[0])
	if err != nil {
		return types.TypedValue{}, false
	}
	return types.FromU64(types.IDU32, uint64(len(s))), true
}

// UUID generates a random UUID as a 16-byte fixed-char value (supplemented
// from the teacher's UUID column support; not present in the reference's
// built-in table).
func UUID(args []types.TypedValue, a *arena.Arena) (types.TypedValue, bool) {
	if len(args) != 0 {
		return types.TypedValue{}, false
	}
	id := uuid.New()
	buf, err := a.AllocCopy(id[:])
	if err != nil {
		return types.TypedValue{}, false
	}
	return types.TypedValue{Type: types.Char(16), Bytes: buf}, true
}

// Builtins is the default function table keyed by the name a compiler
// would reference in a Function opcode's P4 slot.
var Builtins = map[string]BuiltinFunc{
	"like":   Like,
	"upper":  Upper,
	"lower":  Lower,
	"length": Length,
	"uuid":   UUID,
}
