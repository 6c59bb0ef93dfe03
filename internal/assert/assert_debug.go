//go:build debug

package assert

import "fmt"

// Invariant panics when ok is false. It is compiled in only with the debug
// build tag; use it for internal consistency checks on values the package
// itself built, never for validating records read from a repository.
//
// Examples:
//
//	assert.Invariant(total == len(unique), "summary must count each canonical key once")
//	assert.Invariant(len(res.Chain) > 0, "resolution chain starts at the current record")
func Invariant(ok bool, msg string) {
	if !ok {
		panic(fmt.Sprintf("INVARIANT VIOLATION: %s", msg))
	}
}

// Invariantf is Invariant with a formatted message. The arguments are only
// formatted when the check fails.
func Invariantf(ok bool, format string, args ...any) {
	if !ok {
		panic("INVARIANT VIOLATION: " + fmt.Sprintf(format, args...))
	}
}
