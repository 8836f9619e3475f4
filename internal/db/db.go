// Package db declares the storage contracts shared by the Redis-backed
// repositories: per-user dislike hashes and the embedding cache.
package db

import (
	"context"
	"time"
)

// Store is the full surface of a Redis or Valkey connection.
type Store interface {
	Pinger
	HashStore
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashStore keeps one hash per user, one field per disliked category.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HIncrByCapped(ctx context.Context, key, field string, delta, limit int64) (int64, error)
	HDel(ctx context.Context, key string, fields ...string) error
	Del(ctx context.Context, key string) error
}

// KVStore holds opaque values such as cached embeddings.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}
