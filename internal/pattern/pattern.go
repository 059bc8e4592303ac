// Package pattern implements SQL LIKE matching for the VM's `like`
// built-in, grounded on the reference engine's pattern.hpp
// (evaluate_like_pattern): `%` matches any run of characters, `_`
// matches exactly one, trailing spaces are trimmed for fixed-char
// comparison.
package pattern

import "strings"

// Match reports whether s satisfies pat, using the standard backtracking
// LIKE algorithm (save the most recent `%` position, backtrack to it on
// a mismatch instead of failing outright).
func Match(pat, s string) bool {
	s = strings.TrimRight(s, " ")
	pat = strings.TrimRight(pat, " ")

	var si, pi int
	starP, starS := -1, -1

	for si < len(s) {
		switch {
		case pi < len(pat) && pat[pi] == '%':
			starP = pi
			pi++
			starS = si
		case pi < len(pat) && (pat[pi] == '_' || pat[pi] == s[si]):
			pi++
			si++
		case starP != -1:
			pi = starP + 1
			starS++
			si = starS
		default:
			return false
		}
	}

	for pi < len(pat) && pat[pi] == '%' {
		pi++
	}
	return pi == len(pat)
}

// MatchFold is the case-insensitive ILIKE variant (pattern.hpp
// evaluate_ilike_pattern).
func MatchFold(pat, s string) bool {
	return Match(strings.ToUpper(pat), strings.ToUpper(s))
}
