//go:build !debug

// Package assert holds internal invariant checks that are active only in
// builds with the debug tag.
package assert

// Invariant is a no-op without the debug build tag.
func Invariant(bool, string) {}

// Invariantf is a no-op without the debug build tag.
func Invariantf(bool, string, ...any) {}
