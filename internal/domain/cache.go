package domain

import (
	"context"
	"time"
)

// RateLimiter throttles navigations against the target site. Implementations
// must be safe for concurrent use by pool workers.
type RateLimiter interface {
	// Allow reports whether a request for key is permitted under a sliding
	// window of limit requests per window. Allowed requests are counted.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	// Wait blocks until a request for key is allowed or ctx is cancelled.
	Wait(ctx context.Context, key string, limit int, window time.Duration) error
}
