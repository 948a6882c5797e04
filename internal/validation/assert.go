// Package validation provides helpers for constructor contract enforcement.
package validation

import "fmt"

// AssertNotNil panics if the provided pointer is nil. It is intended for
// constructors where a dependency is mandatory and a nil value means the
// caller wired the service incorrectly.
//
// Usage:
//
//	validation.AssertNotNil(pool, "database pool")
func AssertNotNil[T any](ptr *T, name string) {
	if ptr == nil {
		panic(fmt.Sprintf("critical error: %s cannot be nil", name))
	}
}
