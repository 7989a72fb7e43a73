// Copyright (c) 2026 Shelfmark. All rights reserved.

/*
Package pointer provides small generic helpers for optional values.

Optional fields across the domain models are pointer-typed, so handlers and
adapters constantly move between values and pointers. These helpers keep
that traffic to one-liners.

Key Functions:
  - To: creates a pointer from a value literal.
  - Val: dereferences a pointer, returning the zero value if nil.
  - Fallback: dereferences a pointer, returning a fallback value if nil.
*/
package pointer

// To returns a pointer to the provided value.
// Useful for assigning a literal to a pointer-typed optional field
// (e.g. pointer.To("fantasy")).
func To[T any](v T) *T {
	return &v
}

// Val safely dereferences a pointer.
// If the pointer is nil, it returns the zero value of the underlying type.
func Val[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

// Fallback safely dereferences a pointer.
// If the pointer is nil, it returns the provided fallback value instead.
func Fallback[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}
