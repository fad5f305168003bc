// Package db defines the optional Redis storage used by the completion cache
// and the generation budget counters. The index itself is never persisted.
package db

import (
	"context"
	"time"
)

// Store is everything the Redis driver offers to the service.
type Store interface {
	Pinger
	BlobStore
	CounterStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity. The health check only needs this.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BlobStore keeps opaque values such as serialized completions.
// Get returns ErrKeyNotFound for missing keys.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CounterStore keeps integer counters that expire with their period.
type CounterStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}
