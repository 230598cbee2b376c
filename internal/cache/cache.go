// Package cache provides the user cache consulted by the store facade.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque values by key. Get returns (nil, nil) on a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Invalidate removes keys. Missing keys are not an error.
	Invalidate(ctx context.Context, keys ...string) error
}
