package redis

import (
	"context"
	"time"
)

// LockStoreInterface defines the interface for per-driver distributed locking.
type LockStoreInterface interface {
	AcquireDriverLock(ctx context.Context, driverKey string, ttl time.Duration) (release func(), err error)
}

// BalanceCacheInterface defines the interface for the driver balance cache.
type BalanceCacheInterface interface {
	GetBalance(ctx context.Context, driverKey string) (*CachedBalance, error)
	SetBalance(ctx context.Context, balance *CachedBalance) error
	InvalidateBalance(ctx context.Context, driverKey string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LockStoreInterface    = (*LockStore)(nil)
	_ BalanceCacheInterface = (*CacheStore)(nil)
)
