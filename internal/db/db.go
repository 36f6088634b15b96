package db

import (
	"context"
	"time"
)

// Store is the Redis/Valkey facade used by repositories.
// Repositories depend on the narrow sub-interfaces they need.
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

// HashStore provides hash operations and key enumeration.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	ScanPage(ctx context.Context, pattern string, cursor uint64) (ScanPage, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// ScanPage is one SCAN step. Next == 0 means the iteration is complete.
type ScanPage struct {
	Keys []string
	Next uint64
}

// KVStore provides string key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
	DelIfEqual(ctx context.Context, key string, value []byte) (bool, error)
}
