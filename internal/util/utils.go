// Package util holds small generic helpers shared across the HMM
// packages and their adaptors.
package util

// Ptr returns a pointer to a copy of v, useful for filling optional
// fields in literals without an intermediate variable.
func Ptr[T any](v T) *T { return &v }
