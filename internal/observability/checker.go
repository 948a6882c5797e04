package observability

import "context"

// Checker defines the contract for any component that reports its health.
// Implementations must be thread-safe and respect the provided context.
type Checker interface {
	// Name returns the unique identifier of the component (e.g., "postgres", "redis").
	Name() string
	// Check performs the health verification. Returns nil if healthy.
	Check(ctx context.Context) error
}
