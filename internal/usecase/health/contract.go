package health

import "context"

// Pinger is a store that answers PING.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker is a remote dependency with its own health check.
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// CheckFunc adapts a plain function to Checker.
type CheckFunc func(ctx context.Context) error

// HealthCheck calls f.
func (f CheckFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

// Catalog reports how many items are loaded for ranking.
type Catalog interface {
	Len() int
}
