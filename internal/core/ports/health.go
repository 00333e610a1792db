package ports

import "context"

// HealthChecker reports the reachability of a backing store.
type HealthChecker interface {
	// Ping returns nil if the dependency answers.
	Ping(ctx context.Context) error
	// Name identifies the dependency in /health output, e.g. "postgresql".
	Name() string
}
